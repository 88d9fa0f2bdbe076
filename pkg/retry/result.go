package retry

import "github.com/cdoc/crawldoc/pkg/failure"

// Result carries the outcome of a Retry call: the produced value on
// success, the terminal classified error on failure, and how many
// attempts were made.
type Result[T any] struct {
	value    T
	err      failure.ClassifiedError
	attempts int
}

// NewSuccessResult wraps a successful attempt's value and attempt count.
func NewSuccessResult[T any](value T, attempts int) Result[T] {
	return Result[T]{value: value, attempts: attempts}
}

// Value returns the produced value. It is the zero value of T on failure.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the terminal classified error, or nil on success.
func (r Result[T]) Err() failure.ClassifiedError {
	return r.err
}

// Attempts reports how many times fn was invoked.
func (r Result[T]) Attempts() int {
	return r.attempts
}

// IsSuccess reports whether Retry produced a value without error.
func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

// IsFailure reports whether Retry exhausted attempts or hit a
// non-retryable error.
func (r Result[T]) IsFailure() bool {
	return r.err != nil
}
