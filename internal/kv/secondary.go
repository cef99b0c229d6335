package kv

import (
	"fmt"
	"iter"

	"github.com/defich/ocean/internal/ocerr"
)

// SecondaryColumn stores secondary-key -> primary-key, per spec.md §4.2.
// It shares the Column machinery (PK is the "value" type of the secondary
// table).
type SecondaryColumn[SK, PK any] = Column[SK, PK]

// ResolveSecondary composes a secondary-column scan with a lookup into the
// owning primary column: given a secondary (key, primary-key) pair, it
// fetches the primary row. A primary row missing for a secondary hit is a
// hard error (spec.md §4.2) — the two columns must be kept consistent
// across every index/invalidate.
func ResolveSecondary[SK, PK, V any](
	secondary *Column[SK, PK],
	primary *Column[PK, V],
	from *SK,
	dir Direction,
) iter.Seq2[Pair[PK, V], error] {
	return func(yield func(Pair[PK, V], error) bool) {
		for secPair, err := range secondary.List(from, dir) {
			if err != nil {
				var zero Pair[PK, V]
				if !yield(zero, err) {
					return
				}
				continue
			}
			v, ok, gerr := primary.Get(secPair.Value)
			if gerr != nil {
				var zero Pair[PK, V]
				if !yield(zero, gerr) {
					return
				}
				continue
			}
			if !ok {
				var zero Pair[PK, V]
				if !yield(zero, fmt.Errorf("%w: secondary %s -> primary %s", ocerr.ErrMissingPrimary, secondary.Name(), primary.Name())) {
					return
				}
				continue
			}
			if !yield(Pair[PK, V]{Key: secPair.Value, Value: v}, nil) {
				return
			}
		}
	}
}
