package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrProvider is matched by every *ProviderError.
var ErrProvider = errors.New("jsonguard: completion provider failed")

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindUnknown     ErrorKind = "unknown"
	KindNetwork     ErrorKind = "network"
	KindAuth        ErrorKind = "auth"
	KindRateLimit   ErrorKind = "rate_limit"
	KindTimeout     ErrorKind = "timeout"
	KindCanceled    ErrorKind = "canceled"
	KindServer      ErrorKind = "server"
	KindBadRequest  ErrorKind = "bad_request"
	KindBadResponse ErrorKind = "bad_response"
)

// ProviderError reports a failed invocation of the completion provider.
type ProviderError struct {
	Kind ErrorKind
	// StatusCode is the HTTP status returned by the provider, if any.
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s error: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes every ProviderError match ErrProvider.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// Classify returns err as a *ProviderError. Existing ProviderErrors are
// returned unchanged; context and network errors get their own kinds.
// Returns nil for a nil error.
func Classify(err error) *ProviderError {
	if err == nil {
		return nil
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr
	}

	kind := KindUnknown
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.As(err, &netErr):
		kind = KindNetwork
		if netErr.Timeout() {
			kind = KindTimeout
		}
	}

	return &ProviderError{Kind: kind, Err: err}
}

// KindForStatus maps an HTTP status code to an error kind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindRateLimit
	case status == 408 || status == 504:
		return KindTimeout
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindBadRequest
	default:
		return KindBadResponse
	}
}

// IsRetryable reports whether another attempt could plausibly succeed.
// Authentication failures, malformed requests and cancellation are permanent;
// everything else, including unknown errors, is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch Classify(err).Kind {
	case KindAuth, KindBadRequest, KindCanceled:
		return false
	default:
		return true
	}
}
