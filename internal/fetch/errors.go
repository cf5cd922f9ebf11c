package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a fetch failure.
type Kind string

const (
	// Transport covers DNS, connection and TLS failures.
	Transport Kind = "transport"
	// Timeout means the client timeout or the caller's deadline expired.
	Timeout Kind = "timeout"
	// Status means the server answered with a non-2xx status.
	Status Kind = "status"
	// Decode means a 2xx body was not valid JSON or was the literal null.
	Decode Kind = "decode"
	// Invalid means the request could not be built; nothing was sent.
	Invalid Kind = "invalid"
)

var (
	ErrEmptyUserID = errors.New("user id cannot be empty")
	ErrNoBaseURL   = errors.New("api base url is not configured")
	ErrEmptyBody   = errors.New("response body is null")
)

// Error is returned for every failed fetch. Callers should treat it as
// "no data" rather than a fatal condition.
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	RequestID  string
	// Message is the server's error message when the body carried one.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case Status:
		s := fmt.Sprintf("fetch %s: status=%d", e.URL, e.StatusCode)
		if e.RequestID != "" {
			s += " request_id=" + e.RequestID
		}
		if e.Message != "" {
			s += " message=" + e.Message
		}
		return s
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsAuth reports a 401 or 403 response.
func (e *Error) IsAuth() bool {
	return e.Kind == Status && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// IsNotFound reports a 404 response.
func (e *Error) IsNotFound() bool {
	return e.Kind == Status && e.StatusCode == http.StatusNotFound
}

// IsServer reports a 5xx response.
func (e *Error) IsServer() bool {
	return e.Kind == Status && e.StatusCode >= 500 && e.StatusCode <= 599
}
