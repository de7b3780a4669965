package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/jsonguard/internal/utils"
	"github.com/leofalp/jsonguard/providers/completion"
)

// LogLevel controls how much detail the logging middleware emits per call.
type LogLevel int

const (
	// LogLevelMinimal logs only the call duration and outcome.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard logs everything in Minimal plus the sampling
	// parameters and response length. This is the recommended default.
	LogLevelStandard

	// LogLevelVerbose logs everything in Standard plus the prompt and the
	// raw response, each truncated to 500 characters.
	//
	// WARNING: DO NOT use LogLevelVerbose in production. It will log raw prompt
	// and response text, which may contain sensitive user data, secrets, or PII.
	// It is intended solely for local debugging and development.
	LogLevelVerbose
)

// truncateLen is the maximum content length included in verbose log output.
const truncateLen = 500

// NewLoggingMiddleware creates a Middleware that emits structured slog log
// entries before and after every provider call.
//
// The logger parameter must not be nil. Use slog.Default() if you have not
// configured a custom logger.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) completion.Middleware {
	return func(next completion.CompleteFunc) completion.CompleteFunc {
		return func(ctx context.Context, request completion.Request) (string, error) {
			logger.DebugContext(ctx, "completion request", buildRequestAttrs(request, level)...)

			start := time.Now()
			text, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				attrs := []any{
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				}
				if providerErr := completion.Classify(err); providerErr != nil {
					attrs = append(attrs, slog.String("kind", string(providerErr.Kind)))
					if providerErr.StatusCode != 0 {
						attrs = append(attrs, slog.Int("status", providerErr.StatusCode))
					}
				}
				logger.ErrorContext(ctx, "completion failed", attrs...)
				return "", err
			}

			logger.InfoContext(ctx, "completion received", buildResponseAttrs(text, elapsed, level)...)
			return text, nil
		}
	}
}

// buildRequestAttrs returns slog attributes for an outgoing request,
// expanding detail according to the requested verbosity level.
func buildRequestAttrs(request completion.Request, level LogLevel) []any {
	var attrs []any

	if level >= LogLevelStandard {
		attrs = append(attrs,
			slog.Float64("temperature", request.Temperature),
			slog.Int("max_tokens", request.MaxTokens),
		)
		if request.ResponseFormat != nil {
			attrs = append(attrs, slog.String("response_format", string(request.ResponseFormat.Type)))
		}
	}

	if level >= LogLevelVerbose {
		attrs = append(attrs, slog.String("prompt", utils.TruncateString(request.Prompt, truncateLen)))
	}

	return attrs
}

// buildResponseAttrs returns slog attributes for a completed call.
func buildResponseAttrs(text string, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{
		slog.Duration("duration", elapsed),
	}

	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("response_chars", len(text)))
	}

	if level >= LogLevelVerbose {
		attrs = append(attrs, slog.String("response", utils.TruncateString(text, truncateLen)))
	}

	return attrs
}
