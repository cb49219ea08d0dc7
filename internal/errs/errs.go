// Package errs classifies errors into the kinds enumerated in the error
// handling design: invalid input, not found, unauthorized, upstream
// unavailable, and store failure. Packages such as store and state construct
// these where they detect the condition; the api package maps them to HTTP
// status codes, treating any unclassified error as an internal failure.
package errs

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindUnauthorized
	KindUpstreamUnavailable
)

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func InvalidInput(msg string) error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func UpstreamUnavailable(msg string, cause error) error {
	return &Error{Kind: KindUpstreamUnavailable, Message: msg, cause: cause}
}

func Internal(msg string, cause error) error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// KindOf classifies err, defaulting to KindInternal for anything not wrapped
// by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
