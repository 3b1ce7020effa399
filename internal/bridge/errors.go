package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEvent means the inbound event lacks a required field.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrConfigMissing means no downstream credential is configured.
	ErrConfigMissing = errors.New("downstream credential missing")
	// ErrUpstreamUnavailable covers network failures and timeouts.
	ErrUpstreamUnavailable = errors.New("account api unavailable")
	// ErrUpstreamRejected means the account API answered with a non-2xx status.
	ErrUpstreamRejected = errors.New("account api rejected request")
	// ErrMalformedResponse means a 2xx answer without a usable account id.
	ErrMalformedResponse = errors.New("malformed account api response")
)

// Error describes a failed downstream operation. errors.Is matches both its
// Kind and the wrapped cause.
type Error struct {
	Op         string // create-account or get-account
	Kind       error
	StatusCode int  // set for ErrUpstreamRejected
	Timeout    bool // set when ErrUpstreamUnavailable came from a deadline
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Code returns a stable snake_case identifier for err, used in webhook
// responses and metric labels.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidEvent):
		return "invalid_request"
	case errors.Is(err, ErrConfigMissing):
		return "config_missing"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrUpstreamRejected):
		return "upstream_rejected"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	default:
		return "internal_error"
	}
}

// IsTimeout reports whether err is an unavailable-upstream error caused by a deadline.
func IsTimeout(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Timeout
}
