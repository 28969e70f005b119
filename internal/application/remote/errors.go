package remote

import (
	"errors"
	"fmt"
)

// Failure classes. Gateways wrap one of these; callers classify with errors.Is.
var (
	// ErrUnauthorized means the credential was rejected. The session must be
	// discarded; the call is never retried.
	ErrUnauthorized = errors.New("remote: credential rejected")
	// ErrNoSession is returned without touching the network when no
	// credential is held.
	ErrNoSession = errors.New("remote: no active session")
	// ErrTransport covers no response, timeouts and 5xx.
	ErrTransport = errors.New("remote: transport failure")
	// ErrMalformedResponse means the payload failed to parse or validate.
	ErrMalformedResponse = errors.New("remote: malformed response")
	ErrConflict          = errors.New("remote: conflict")
	ErrNotFound          = errors.New("remote: not found")
	// ErrRejected is any other definitive refusal (validation, bad request).
	ErrRejected = errors.New("remote: rejected")
)

// Failure carries the server's own error code next to the failure class
type Failure struct {
	Kind    error
	Status  int
	Code    string
	Message string
}

func (f *Failure) Error() string {
	if f.Code == "" {
		return fmt.Sprintf("%v (status %d)", f.Kind, f.Status)
	}
	return fmt.Sprintf("%v (status %d): %s: %s", f.Kind, f.Status, f.Code, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Kind
}

// IsDefinitive reports whether the server positively refused the request, as
// opposed to the outcome being unknown.
func IsDefinitive(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrRejected)
}
