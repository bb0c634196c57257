package mastodon

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Failure categories for remote API calls. Every error returned by Client is
// an *APIError carrying one of these kinds; callers branch on the kind (or on
// Transient) rather than string-matching messages.
type ErrorKind string

const (
	ErrorIllegalArgument = ErrorKind("illegal_argument")
	ErrorNotFound        = ErrorKind("not_found")
	ErrorNetwork         = ErrorKind("network")
	ErrorAPI             = ErrorKind("api")
	ErrorRateLimit       = ErrorKind("rate_limit")
	ErrorServer          = ErrorKind("server")
	ErrorVersion         = ErrorKind("version")
	ErrorUnclassified    = ErrorKind("unclassified")
)

type RatelimitInfo struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Wrapped    error
	Ratelimit  *RatelimitInfo
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("mastodon API error (%s, HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mastodon API error (%s): %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Wrapped
}

// Transient reports whether retrying the same call on a later poll cycle is
// reasonable: network trouble, server errors, and rate limiting. Rejected
// inputs and missing resources are not retry-safe.
func (e *APIError) Transient() bool {
	switch e.Kind {
	case ErrorNetwork, ErrorServer, ErrorRateLimit:
		return true
	}
	return false
}

// IsNotFound reports whether err is an API or store lookup miss.
func IsNotFound(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind == ErrorNotFound
	}
	return false
}

// wire format of an API error body
type apiErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return ErrorNotFound
	case code == http.StatusUnprocessableEntity || code == http.StatusBadRequest:
		return ErrorIllegalArgument
	case code == http.StatusTooManyRequests:
		return ErrorRateLimit
	case code == http.StatusNotImplemented:
		// endpoint not supported by this server version
		return ErrorVersion
	case code >= 500:
		return ErrorServer
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrorAPI
	case code >= 400:
		return ErrorAPI
	}
	return ErrorUnclassified
}

func errorFromResponse(resp *http.Response, body apiErrorBody) *APIError {
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	e := &APIError{
		Kind:       classifyStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
	if resp.Header.Get("X-RateLimit-Limit") != "" {
		e.Ratelimit = &RatelimitInfo{}
		if n, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit")); err == nil {
			e.Ratelimit.Limit = n
		}
		if n, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining")); err == nil {
			e.Ratelimit.Remaining = n
		}
		if t, err := time.Parse(time.RFC3339, resp.Header.Get("X-RateLimit-Reset")); err == nil {
			e.Ratelimit.Reset = t
		}
	}
	return e
}
