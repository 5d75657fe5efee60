package webhook

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the failure taxonomy for endpoint calls.
type ErrorKind string

const (
	KindNotFound    ErrorKind = "not_found"
	KindForbidden   ErrorKind = "forbidden"
	KindRateLimited ErrorKind = "rate_limited"
	KindUnknown     ErrorKind = "unknown"
)

// EndpointError is returned by Send and Edit on any non-2xx response or
// transport failure. Status is 0 when no response was received.
type EndpointError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *EndpointError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook endpoint %s: %v", e.Kind, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("webhook endpoint %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("webhook endpoint %s (status %d)", e.Kind, e.Status)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// ClassifyStatus maps an HTTP status code to an ErrorKind.
func ClassifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindForbidden
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindUnknown
	}
}

// KindOf extracts the ErrorKind from err, or KindUnknown if err is not an
// EndpointError.
func KindOf(err error) ErrorKind {
	var epErr *EndpointError
	if errors.As(err, &epErr) {
		return epErr.Kind
	}
	return KindUnknown
}
