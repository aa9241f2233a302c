package resource

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two failure classes of an admin API call.
var (
	// ErrTransport matches failures where no response was received.
	ErrTransport = errors.New("transport failure")
	// ErrAPI matches non-2xx responses and unreadable response bodies.
	ErrAPI = errors.New("api failure")
)

// TransportError reports a request that never produced a response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("resource: %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrTransport and the underlying cause, so
// errors.Is(err, context.Canceled) keeps working.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// APIError reports an application-level failure. Message is the server's
// "message" field when the body carried one.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("resource: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("resource: %s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("resource: %s: HTTP %d", e.Op, e.StatusCode)
	}
}

// Unwrap exposes ErrAPI and the decode error, if any.
func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrAPI, e.Err}
	}
	return []error{ErrAPI}
}

// UserMessage returns the text to show for err: the server-provided
// message for an API error that carried one, fallback otherwise.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
