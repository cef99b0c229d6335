package kv

import "github.com/defich/ocean/internal/ocerr"

var errBucketMissing = ocerr.ErrBucketMissing
