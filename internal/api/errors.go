package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common backend errors
var (
	// ErrTransport is returned when the request never produced an HTTP response
	// (connection refused, DNS failure, timeout, canceled context).
	ErrTransport = errors.New("backend unreachable")

	// ErrServer is returned when the backend answered with a non-2xx status.
	ErrServer = errors.New("backend returned an error")

	// ErrDecode is returned when a 2xx response body does not match any known shape.
	ErrDecode = errors.New("unexpected response shape")

	// ErrInvalidArgument is returned before any request is made when a required
	// parameter is empty.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error is the normalized failure of a backend call. Message carries the most
// specific text available: the server's "message" field, then its "error"
// field, then the raw body or status text, then the transport error.
type Error struct {
	// Op is the client operation that failed (e.g., "UploadInvoice").
	Op string

	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int

	// Message is the user-facing failure text.
	Message string

	// RequestID is the X-Request-ID sent with the failed request.
	RequestID string

	// Err is the underlying error, one of the sentinels above when no more
	// specific cause exists.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api: %s failed (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NotFound reports whether the backend answered 404.
func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Message returns the most specific user-facing text for err, or fallback
// when err carries nothing better.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return msg
		}
		return fallback
	}
	if text := strings.TrimSpace(err.Error()); text != "" {
		return text
	}
	return fallback
}

// IsStatus reports whether err is an *Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func newTransportError(op, requestID string, err error) *Error {
	return &Error{
		Op:        op,
		Message:   err.Error(),
		RequestID: requestID,
		Err:       fmt.Errorf("%w: %w", ErrTransport, err),
	}
}

func newServerError(op, requestID string, status int, body []byte) *Error {
	return &Error{
		Op:         op,
		StatusCode: status,
		Message:    serverMessage(status, body),
		RequestID:  requestID,
		Err:        ErrServer,
	}
}

func newDecodeError(op, requestID string, status int, err error) *Error {
	return &Error{
		Op:         op,
		StatusCode: status,
		Message:    "unexpected response from server",
		RequestID:  requestID,
		Err:        fmt.Errorf("%w: %w", ErrDecode, err),
	}
}

func newArgumentError(op, details string) *Error {
	return &Error{
		Op:      op,
		Message: details,
		Err:     ErrInvalidArgument,
	}
}

// serverMessage extracts the message of an error body, preferring "message"
// over "error" and falling back to the raw body and finally the status text.
func serverMessage(status int, body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := textField(payload.Message); msg != "" {
			return msg
		}
		if msg := textField(payload.Error); msg != "" {
			return msg
		}
	}

	if raw := strings.TrimSpace(string(body)); raw != "" && !strings.HasPrefix(raw, "{") && !strings.HasPrefix(raw, "<") {
		return raw
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

// textField reads a JSON value that is either a string or an object carrying
// a "message" string, as some backend handlers nest their error payloads.
func textField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}
