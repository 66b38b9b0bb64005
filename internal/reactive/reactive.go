// Package reactive provides stream operators over iter.Seq (lazy Map and
// Filter, Reduce, each with a context-aware *Async variant, and GroupBy), used to
// post-process stream.Event batches and dead-letter entries without
// materializing intermediate slices. Laziness follows range-over-func
// iterator composition; this is the idiomatic successor to a hand-rolled
// observable type once range-over-func landed in the standard library.
package reactive

import (
	"context"
	"iter"
)

// Map lazily transforms each element of seq with fn.
func Map[T, U any](seq iter.Seq[T], fn func(T) U) iter.Seq[U] {
	return func(yield func(U) bool) {
		for v := range seq {
			if !yield(fn(v)) {
				return
			}
		}
	}
}

// MapAsync is Map's context-aware variant: fn may return an error, and
// iteration stops early if ctx is cancelled or fn fails. Errors are
// reported via the errOut callback; iteration terminates on the first
// error.
func MapAsync[T, U any](ctx context.Context, seq iter.Seq[T], fn func(context.Context, T) (U, error), errOut func(error)) iter.Seq[U] {
	return func(yield func(U) bool) {
		for v := range seq {
			if err := ctx.Err(); err != nil {
				if errOut != nil {
					errOut(err)
				}
				return
			}

			mapped, err := fn(ctx, v)
			if err != nil {
				if errOut != nil {
					errOut(err)
				}
				return
			}

			if !yield(mapped) {
				return
			}
		}
	}
}

// Filter lazily keeps only elements for which pred returns true.
func Filter[T any](seq iter.Seq[T], pred func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			if pred(v) && !yield(v) {
				return
			}
		}
	}
}

// FilterAsync is Filter's context-aware variant.
func FilterAsync[T any](ctx context.Context, seq iter.Seq[T], pred func(context.Context, T) (bool, error), errOut func(error)) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			if err := ctx.Err(); err != nil {
				if errOut != nil {
					errOut(err)
				}
				return
			}

			keep, err := pred(ctx, v)
			if err != nil {
				if errOut != nil {
					errOut(err)
				}
				return
			}

			if keep && !yield(v) {
				return
			}
		}
	}
}

// Reduce folds seq into a single accumulated value.
func Reduce[T, A any](seq iter.Seq[T], init A, fn func(A, T) A) A {
	acc := init
	for v := range seq {
		acc = fn(acc, v)
	}
	return acc
}

// ReduceAsync is Reduce's context-aware variant, stopping (and returning
// the accumulator as-is) the moment ctx is cancelled or fn errors.
func ReduceAsync[T, A any](ctx context.Context, seq iter.Seq[T], init A, fn func(context.Context, A, T) (A, error)) (A, error) {
	acc := init
	for v := range seq {
		if err := ctx.Err(); err != nil {
			return acc, err
		}

		next, err := fn(ctx, acc, v)
		if err != nil {
			return acc, err
		}
		acc = next
	}
	return acc, nil
}

// GroupBy partitions seq into a map keyed by keyFn, preserving each group's
// relative order.
func GroupBy[T any, K comparable](seq iter.Seq[T], keyFn func(T) K) map[K][]T {
	groups := make(map[K][]T)
	for v := range seq {
		k := keyFn(v)
		groups[k] = append(groups[k], v)
	}
	return groups
}
