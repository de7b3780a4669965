package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leofalp/jsonguard/providers/completion"
)

// NewTimeoutMiddleware creates a Middleware that enforces a per-call deadline.
// The context is wrapped with context.WithTimeout and cancel is deferred, so
// it is released as soon as the provider returns or the deadline expires.
//
// When the deadline set by this middleware expires, the call fails with a
// ProviderError of kind timeout. If the caller supplies a context that already
// has a shorter deadline, that shorter deadline wins as per normal context
// semantics. A non-positive timeout disables the middleware.
func NewTimeoutMiddleware(timeout time.Duration) completion.Middleware {
	return func(next completion.CompleteFunc) completion.CompleteFunc {
		if timeout <= 0 {
			return next
		}

		return func(parent context.Context, request completion.Request) (string, error) {
			ctx, cancel := context.WithTimeout(parent, timeout)
			defer cancel()

			text, err := next(ctx, request)
			if err == nil {
				return text, nil
			}

			// Only claim the failure when our own deadline fired.
			if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", &completion.ProviderError{
					Kind: completion.KindTimeout,
					Err:  fmt.Errorf("no response within %s: %w", timeout, err),
				}
			}
			return "", err
		}
	}
}
