package pricetrack

import "errors"

var (
	// ErrInvariant marks a caller bug: incommensurable units, bad quantile input,
	// non-positive counts, an invalid unit family set and the like.
	ErrInvariant = errors.New("invariant violation")

	// ErrConsistency marks stored state that no longer matches what the caller
	// expected, e.g. a revert whose target was modified since it was read.
	ErrConsistency = errors.New("consistency violation")

	ErrNotFound      = errors.New("not found")
	ErrItemHasPrices = errors.New("item has prices")
)
