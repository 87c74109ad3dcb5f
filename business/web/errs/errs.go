// Package errs provides the error types handlers use to report expected
// failures with a status code.
package errs

import (
	"errors"
	"net/http"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted carries an error that is safe to show to the caller along with
// the status code to respond with.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps the error with the status code it should produce.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap returns the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// Response converts the trusted error into the response body.
func (te *Trusted) Response() Response {
	return Response{Error: te.Err.Error()}
}

// IsTrusted checks if a Trusted error exists in the chain.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns the Trusted error from the chain, or nil.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// Map returns the first status whose sentinel matches the error. The error
// is returned untouched when nothing matches.
func Map(err error, statuses map[error]int) error {
	for target, status := range statuses {
		if errors.Is(err, target) {
			return NewTrusted(err, status)
		}
	}
	return err
}

// Internal is the response body used when the error is not trusted.
func Internal() Response {
	return Response{Error: http.StatusText(http.StatusInternalServerError)}
}
