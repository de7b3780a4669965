package guard

import (
	"log/slog"

	"github.com/sethvargo/go-retry"

	"github.com/leofalp/jsonguard/providers/observability"
)

// BackoffFactory returns a fresh backoff for one run. go-retry backoffs are
// stateful, so a factory is used instead of a shared instance.
type BackoffFactory func() retry.Backoff

// Options contains the tunables of a Controller. Use the With* functions to
// set them.
type Options struct {
	Logger            *slog.Logger
	Metrics           observability.Metrics
	TransitionHook    TransitionHook
	ProviderBackoff   BackoffFactory
	ContentBackoff    BackoffFactory
	ProviderBudget    int
	ProviderRetryable func(error) bool
}

// Option configures a Controller.
type Option func(*Options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetrics sets the metrics sink. The default discards everything.
func WithMetrics(metrics observability.Metrics) Option {
	return func(o *Options) {
		o.Metrics = metrics
	}
}

// WithTransitionHook registers a hook called on every state change.
func WithTransitionHook(hook TransitionHook) Option {
	return func(o *Options) {
		o.TransitionHook = hook
	}
}

// WithProviderBackoff sets the wait applied after a provider failure before
// the next attempt. Without it the next attempt starts immediately. When the
// backoff signals stop the run ends as exhausted.
func WithProviderBackoff(factory BackoffFactory) Option {
	return func(o *Options) {
		o.ProviderBackoff = factory
	}
}

// WithContentBackoff sets the wait applied after a parse or validation
// failure. It behaves like WithProviderBackoff.
func WithContentBackoff(factory BackoffFactory) Option {
	return func(o *Options) {
		o.ContentBackoff = factory
	}
}

// WithProviderBudget gives provider failures their own budget of n attempts.
// Content failures and the final success then draw from maxAttempts alone.
// Zero, the default, makes every attempt draw from maxAttempts.
func WithProviderBudget(n int) Option {
	return func(o *Options) {
		o.ProviderBudget = n
	}
}

// WithProviderRetryable sets the predicate deciding whether a provider error
// may be retried. A provider error it rejects ends the run immediately. The
// default retries every error; completion.IsRetryable is a suitable
// alternative.
func WithProviderRetryable(retryable func(error) bool) Option {
	return func(o *Options) {
		o.ProviderRetryable = retryable
	}
}

func defaultOptions() Options {
	return Options{
		Logger:            slog.New(slog.DiscardHandler),
		Metrics:           observability.Noop(),
		ProviderRetryable: func(error) bool { return true },
	}
}
