package requester

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var (
	// ErrMissingCredential is returned when the auth manager has nothing to attach.
	ErrMissingCredential = errors.New("downstream credential is not configured")
	// ErrCredentialFetch is returned when a credential could not be obtained.
	ErrCredentialFetch = errors.New("failed to obtain downstream credential")
	// ErrResponseTooLarge is returned when a response body exceeds MaxResponseBytes.
	ErrResponseTooLarge = errors.New("response body too large")
)

// MaxResponseBytes bounds how much of a downstream response is read.
const MaxResponseBytes = 1 << 20

// Request represents a fully built HTTP request
type Request struct {
	URL         string
	Method      string
	Body        io.Reader
	Headers     map[string]string
	ContentType string
	HttpRequest *http.Request // The actual HTTP request
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Success reports whether the response has a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}
