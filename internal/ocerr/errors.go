// Package ocerr defines Ocean's error taxonomy as sentinel errors, checked
// with errors.Is/errors.As. No error-handling library is used: none appears
// anywhere in the retrieved example pack, which uses plain fmt.Errorf/%w
// throughout, so that is what this package follows.
package ocerr

import "errors"

// Storage errors.
var (
	ErrStorage              = errors.New("storage backend failure")
	ErrKeyLengthMismatch    = errors.New("key length mismatch")
	ErrDeserialize          = errors.New("deserialization error")
	ErrUnsupportedVersion   = errors.New("unsupported schema version")
	ErrBucketMissing        = errors.New("column bucket missing")
)

// Arithmetic errors.
var (
	ErrOverflow           = errors.New("arithmetic overflow")
	ErrUnderflow          = errors.New("arithmetic underflow")
	ErrDecimalConversion  = errors.New("decimal conversion failure")
)

// Indexing errors.
var (
	ErrMissingSideChannelResult  = errors.New("missing side-channel result")
	ErrMissingPrimary            = errors.New("missing primary row for secondary index")
	ErrNotFoundDuringInvalidation = errors.New("expected row not found during invalidation")
)

// Upstream errors.
var (
	ErrUpstreamTransport   = errors.New("upstream rpc transport failure")
	ErrUpstreamApplication = errors.New("upstream rpc application error")
)

// Request errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrBadRequest        = errors.New("bad request")
	ErrUntradeableToken  = errors.New("untradeable token")
	ErrValidation        = errors.New("validation failure")
)

// HTTPStatus maps a request error to the status code contract in spec.md §6:
// 404 on not-found, 400 on bad-request, 500 otherwise.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrUntradeableToken), errors.Is(err, ErrValidation):
		return 400
	default:
		return 500
	}
}
