package client

import (
	"errors"
	"fmt"
)

// UndefinedErrorMessage is used when a failed response carries no usable
// "error" field.
const UndefinedErrorMessage = "Undefined error"

// ErrMalformedResponse is matched by every *MalformedResponseError.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is returned when the server (or the object store) answers with a
// status the operation does not accept.
type APIError struct {
	Message    string
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.Message, e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// TransportError wraps failures that happen before any HTTP status is
// available: DNS, connection, TLS, or a cancelled context.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is returned when an accepted response is missing a
// required field or cannot be decoded.
type MalformedResponseError struct {
	URL   string
	Field string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("malformed response from %s: field %q: %v", e.URL, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("malformed response from %s: missing field %q", e.URL, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("malformed response from %s", e.URL)
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
