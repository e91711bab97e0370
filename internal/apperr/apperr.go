// Package apperr holds the error taxonomy shared by the server and the client
// packages. Every error produced at a boundary wraps exactly one of the kind
// sentinels below so callers can branch with errors.Is.
package apperr

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrUpstream           = errors.New("upstream failure")
	ErrNetworkUnavailable = errors.New("network unavailable")
)

// Error carries a kind sentinel, a user facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Unauthorized(msg string) error { return &Error{Kind: ErrUnauthorized, Message: msg} }
func Forbidden(msg string) error    { return &Error{Kind: ErrForbidden, Message: msg} }
func NotFound(msg string) error     { return &Error{Kind: ErrNotFound, Message: msg} }
func Validation(msg string) error   { return &Error{Kind: ErrValidation, Message: msg} }

// Upstream wraps a storage or collaborator failure, keeping its message.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrUpstream, Err: err}
}

// Network marks a failed or impossible network call.
func Network(err error) error {
	if err == nil {
		return &Error{Kind: ErrNetworkUnavailable}
	}
	return &Error{Kind: ErrNetworkUnavailable, Err: err}
}

// Terminal reports whether retrying the same request can never succeed.
func Terminal(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound)
}

// Message returns the text that should be shown to a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
