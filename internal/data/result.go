package data

import "errors"

// ErrProviderStatus is returned by providers when the upstream API answers
// with a non-success status.
var ErrProviderStatus = errors.New("provider returned non-success status")

// ErrThrottled is returned when a call is refused by the local rate limiter
// before reaching the provider.
var ErrThrottled = errors.New("throttled by local rate limiter")

// Result carries a value that falls back to its zero value on failure.
// Value is always usable; Err records why the fallback was taken.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether Value came from a successful call.
func (r Result[T]) OK() bool { return r.Err == nil }

// Success wraps a live value.
func Success[T any](v T) Result[T] { return Result[T]{Value: v} }

// Fallback wraps the zero value of T together with the failure cause.
func Fallback[T any](err error) Result[T] {
	var zero T
	return Result[T]{Value: zero, Err: err}
}
