package transport

import (
	"errors"
	"fmt"
)

// ErrNotAuthorized is returned when the remote instance rejects the bearer
// token (HTTP 401).
var ErrNotAuthorized = errors.New("not authorized by remote instance")

// UnsupportedMethodError is returned for any HTTP method other than GET or POST.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported HTTP method %q: expected GET or POST", e.Method)
}

// CommunicationError is a transport-level failure: the request could not be
// delivered or the response could not be read. Distinct from a remote
// 4xx/5xx, which arrives as a Response.
type CommunicationError struct {
	Endpoint string
	Err      error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("communication failure on %s: %v", e.Endpoint, e.Err)
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}

// RequestError is a non-2xx remote response not otherwise classified.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("remote returned HTTP %d: %s", e.Status, e.Body)
}
