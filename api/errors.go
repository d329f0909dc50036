package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound matches a ServerError with status 404 via errors.Is.
var ErrNotFound = errors.New("not found")

// TransportError indicates the request never produced an HTTP response,
// or the response body could not be read.
type TransportError struct {
	// Op is the client operation that failed (e.g. "list documents").
	Op string
	// Err is the underlying error.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError is returned for non-2xx responses.
// Detail is the server's message, surfaced to users verbatim.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// Is reports whether target is ErrNotFound and the status is 404.
func (e *ServerError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Message returns the user-facing text for an error returned by Client.
// Server errors yield the server's detail; transport failures are prefixed
// with "Network error".
func Message(err error) string {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.Detail
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return "Network error: " + transportErr.Err.Error()
	}
	return err.Error()
}
