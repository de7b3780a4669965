// Package middleware provides built-in middleware for completion providers.
// Each middleware is constructed via a New* function that returns a
// [completion.Middleware] ready to be passed to [completion.Chain].
//
// # Available Middleware
//
//   - [NewTimeoutMiddleware]: Adds a per-call deadline via context.WithTimeout,
//     ensuring that a stalled provider call does not block an attempt
//     indefinitely. An expired deadline surfaces as a timeout ProviderError,
//     which the guard records as an ordinary failed attempt.
//
//   - [NewLoggingMiddleware]: Emits structured slog log entries before and after
//     every provider call, with three verbosity levels (Minimal, Standard, Verbose).
//
// # Usage
//
//	complete := completion.Chain(provider,
//	    middleware.NewTimeoutMiddleware(30*time.Second),
//	    middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	)
//
// Middlewares execute outermost-first: the first entry passed to Chain is the
// outermost wrapper. In the example above, a request travels:
//
//	Timeout (first, outermost) → Logging → Provider
//
// and the response travels back in reverse.
package middleware
