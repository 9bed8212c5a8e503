package nutrition

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an estimation failure.
type ErrorKind string

const (
	// KindTruncated: the upstream stopped at its output-length limit before
	// anything usable was produced.
	KindTruncated ErrorKind = "truncated"
	// KindUnparseable: no decoding strategy recovered any field.
	KindUnparseable ErrorKind = "unparseable"
	// KindUpstream: transport failure, non-2xx status or an unreadable envelope.
	KindUpstream ErrorKind = "upstream"
	// KindTimeout: the call did not finish before the deadline.
	KindTimeout ErrorKind = "timeout"
)

// Error is returned for every failed estimate. Match with errors.Is against
// ErrTruncated, ErrUnparseable, ErrUpstream or ErrTimeout.
type Error struct {
	Kind ErrorKind
	Err  error
}

var (
	ErrTruncated   = &Error{Kind: KindTruncated}
	ErrUnparseable = &Error{Kind: KindUnparseable}
	ErrUpstream    = &Error{Kind: KindUpstream}
	ErrTimeout     = &Error{Kind: KindTimeout}
)

// ErrNoItems is returned when the estimator is called without any usable item.
var ErrNoItems = errors.New("nutrition: no food or drink items to estimate")

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("nutrition estimate: %s", e.Kind)
	}
	return fmt.Sprintf("nutrition estimate: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// UserMessage is safe to show to the person who submitted the diet entry.
// Upstream diagnostics stay in the logs.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindTruncated:
		return "the nutrition estimate was cut short; try a shorter food and drink list"
	case KindUnparseable:
		return "the nutrition estimate could not be read; please submit again"
	case KindTimeout:
		return "the nutrition estimate took too long; please try again shortly"
	default:
		return "the nutrition estimation service is unavailable; enter the nutrient values manually or retry later"
	}
}
