// Package outcome provides a success-or-failure value used to chain
// orchestration steps without branching on every error.
//
// This is part of the Functional Core - no I/O, no side effects beyond the
// callbacks supplied by the caller.
//
// # Usage
//
//	res := outcome.Bind(readOrder(names), func(order []string) outcome.Outcome[domain.StateMap] {
//	    return readStates(ctx, order)
//	})
//	if err := res.Err(); err != nil {
//	    return err
//	}
package outcome

// =============================================================================
// Outcome Type
// =============================================================================

// Unit is the value carried by outcomes of operations that produce nothing.
type Unit struct{}

// Outcome holds either a value or a single failure, never both.
type Outcome[T any] struct {
	value T
	err   error
}

// OK wraps a successful value.
func OK[T any](value T) Outcome[T] {
	return Outcome[T]{value: value}
}

// Fail wraps a failure. A nil err is treated as a success with the zero value.
func Fail[T any](err error) Outcome[T] {
	return Outcome[T]{err: err}
}

// Done is a successful Unit outcome.
func Done() Outcome[Unit] {
	return OK(Unit{})
}

// Try captures the result of a fallible call.
func Try[T any](fn func() (T, error)) Outcome[T] {
	value, err := fn()
	if err != nil {
		return Fail[T](err)
	}
	return OK(value)
}

// TryDo captures the error of a call that produces no value.
func TryDo(fn func() error) Outcome[Unit] {
	if err := fn(); err != nil {
		return Fail[Unit](err)
	}
	return Done()
}

// =============================================================================
// Accessors
// =============================================================================

// IsOK reports whether the outcome is a success.
func (o Outcome[T]) IsOK() bool {
	return o.err == nil
}

// IsFail reports whether the outcome is a failure.
func (o Outcome[T]) IsFail() bool {
	return o.err != nil
}

// Err returns the failure, or nil on success.
func (o Outcome[T]) Err() error {
	return o.err
}

// Value returns the success value. It is the zero value on failure.
func (o Outcome[T]) Value() T {
	return o.value
}

// Get unpacks the outcome into the usual Go pair.
func (o Outcome[T]) Get() (T, error) {
	return o.value, o.err
}

// OrElse returns the value on success and fallback on failure.
func (o Outcome[T]) OrElse(fallback T) T {
	if o.err != nil {
		return fallback
	}
	return o.value
}

// =============================================================================
// Side Effects
// =============================================================================

// Then runs fn with the value on success and passes the outcome through
// unchanged. Failures skip fn.
func (o Outcome[T]) Then(fn func(T)) Outcome[T] {
	if o.err == nil {
		fn(o.value)
	}
	return o
}

// Else runs fn with the failure and passes the outcome through unchanged.
func (o Outcome[T]) Else(fn func(error)) Outcome[T] {
	if o.err != nil {
		fn(o.err)
	}
	return o
}

// AndThen chains a step producing the same type. It is Bind for callers
// that stay within one value type.
func (o Outcome[T]) AndThen(fn func(T) Outcome[T]) Outcome[T] {
	return Bind(o, fn)
}

// =============================================================================
// Combinators
// =============================================================================

// Bind applies fn to the value on success and returns its outcome. A failure
// is propagated unchanged and fn is never called.
func Bind[T, U any](o Outcome[T], fn func(T) Outcome[U]) Outcome[U] {
	if o.err != nil {
		return Fail[U](o.err)
	}
	return fn(o.value)
}

// Map applies a pure transformation to the value on success.
func Map[T, U any](o Outcome[T], fn func(T) U) Outcome[U] {
	if o.err != nil {
		return Fail[U](o.err)
	}
	return OK(fn(o.value))
}

// Sequence collects already-evaluated outcomes. It succeeds with every value
// in input order, or fails with the first failure found.
func Sequence[T any](ops []Outcome[T]) Outcome[[]T] {
	values := make([]T, 0, len(ops))
	for _, op := range ops {
		if op.err != nil {
			return Fail[[]T](op.err)
		}
		values = append(values, op.value)
	}
	return OK(values)
}

// Dispatch evaluates steps in order and sequences their outcomes.
//
// With failFast unset every step runs even after an earlier one failed;
// nothing already issued is rolled back. With failFast set, evaluation stops
// at the first failure. In both cases the result carries the first failure.
func Dispatch[T any](steps []func() Outcome[T], failFast bool) Outcome[[]T] {
	ops := make([]Outcome[T], 0, len(steps))
	for _, step := range steps {
		op := step()
		ops = append(ops, op)
		if failFast && op.err != nil {
			break
		}
	}
	return Sequence(ops)
}
