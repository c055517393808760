package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrorKind classifies provider failures so callers can degrade
// appropriately without parsing provider-specific messages.
type ErrorKind int

const (
	// KindProvider is any upstream failure not covered by a more
	// specific kind (5xx, malformed response, unknown model).
	KindProvider ErrorKind = iota

	// KindTimeout means the request exceeded the adapter deadline.
	KindTimeout

	// KindRateLimited maps HTTP 429.
	KindRateLimited

	// KindAuthFailure maps HTTP 401/403 (bad or missing API key).
	KindAuthFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindAuthFailure:
		return "auth_failure"
	default:
		return "provider_error"
	}
}

// APIError is the unified error type returned by all provider backends.
type APIError struct {
	Kind     ErrorKind
	Provider string
	Status   int // HTTP status when applicable, 0 otherwise
	Message  string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// classifyStatus maps an HTTP status code to an ErrorKind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthFailure
	default:
		return KindProvider
	}
}

// wrapTransportError converts a transport-level error into an APIError,
// recognizing deadline expiry as a timeout.
func wrapTransportError(provider string, err error) *APIError {
	kind := KindProvider
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		kind = KindTimeout
	}
	return &APIError{Kind: kind, Provider: provider, Message: err.Error()}
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
