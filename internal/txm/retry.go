package txm

import "errors"

// Retry runs fn inside a fresh transaction in the given mode, looping
// as long as fn (or the transaction's own Close) reports ErrRetry.
// Mirrors the original's free-standing transactional() combinator.
func Retry[V any](region *Region, mode Mode, fn func(*Transaction) (V, error)) (V, error) {
	for {
		v, err := attempt(region, mode, fn)
		if errors.Is(err, ErrRetry) {
			continue
		}
		return v, err
	}
}

func attempt[V any](region *Region, mode Mode, fn func(*Transaction) (V, error)) (v V, err error) {
	tx, err := Begin(region, mode)
	if err != nil {
		return v, err
	}
	defer func() {
		if cerr := tx.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(tx)
}
