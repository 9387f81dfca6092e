// Package errs defines the typed error kinds the engine can fail with.
// Every failure surfaced above the decoders carries one of these kinds so
// the CLI dispatcher can print a single-line message and choose an exit
// code without re-parsing error text.
package errs

import "fmt"

// Kind enumerates the failure categories from the engine's error table.
type Kind string

const (
	Io                    Kind = "Io"
	BadHeader             Kind = "BadHeader"
	MalformedVarint       Kind = "MalformedVarint"
	TruncatedRecord       Kind = "TruncatedRecord"
	UnsupportedPageKind   Kind = "UnsupportedPageKind"
	OverflowUnsupported   Kind = "OverflowUnsupported"
	MalformedTree         Kind = "MalformedTree"
	SqlSyntax             Kind = "SqlSyntax"
	UnquotedStringLiteral Kind = "UnquotedStringLiteral"
	TrailingGarbage       Kind = "TrailingGarbage"
	UnknownTable          Kind = "UnknownTable"
	UnknownColumn         Kind = "UnknownColumn"
	UnsupportedFeature    Kind = "UnsupportedFeature"
)

// Error is the single error type the engine returns. It always carries a
// Kind so callers can branch on failure category instead of string
// matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that wraps an underlying cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
