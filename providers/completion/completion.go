package completion

import (
	"context"

	"github.com/leofalp/jsonguard/internal/jsonschema"
)

// ResponseFormatType selects how strongly the provider is asked to produce
// JSON. Providers are free to ignore it; the guard never trusts it.
type ResponseFormatType string

const (
	ResponseFormatText       ResponseFormatType = "text"
	ResponseFormatJSONObject ResponseFormatType = "json_object"
	ResponseFormatJSONSchema ResponseFormatType = "json_schema"
)

// ResponseFormat is an optional structured output hint.
type ResponseFormat struct {
	Type ResponseFormatType
	// Name labels the schema for providers that require one. Only used with
	// ResponseFormatJSONSchema.
	Name   string
	Schema *jsonschema.Schema
	Strict bool
}

// Request is one completion call.
type Request struct {
	Prompt         string
	Temperature    float64
	MaxTokens      int
	ResponseFormat *ResponseFormat
}

// Provider is implemented by every completion backend.
type Provider interface {
	// Complete sends the request and returns the raw generated text. Failures
	// should be *ProviderError values; Chain classifies anything else.
	Complete(ctx context.Context, request Request) (string, error)
}

// ProviderFunc adapts an ordinary function to Provider.
type ProviderFunc func(ctx context.Context, request Request) (string, error)

// Complete calls f.
func (f ProviderFunc) Complete(ctx context.Context, request Request) (string, error) {
	return f(ctx, request)
}

// CompleteFunc is the unit threaded through the middleware chain.
type CompleteFunc func(ctx context.Context, request Request) (string, error)

// Middleware intercepts completion calls. Each Middleware receives the next
// CompleteFunc in the chain and returns a new CompleteFunc that wraps it.
type Middleware func(next CompleteFunc) CompleteFunc

// Chain builds the linear middleware chain around provider. Middlewares are
// applied in reverse order so that middlewares[0] is the outermost wrapper,
// i.e. the first to execute on an incoming request. Errors leaving the chain
// are always *ProviderError.
func Chain(provider Provider, middlewares ...Middleware) CompleteFunc {
	var chain CompleteFunc = func(ctx context.Context, request Request) (string, error) {
		text, err := provider.Complete(ctx, request)
		if err != nil {
			return "", Classify(err)
		}
		return text, nil
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			chain = middlewares[i](chain)
		}
	}

	return func(ctx context.Context, request Request) (string, error) {
		text, err := chain(ctx, request)
		if err != nil {
			return "", Classify(err)
		}
		return text, nil
	}
}

// Bind fixes the request so the chain can be used as the guard's invocation
// function. Every call sends the same request.
func Bind(complete CompleteFunc, request Request) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return complete(ctx, request)
	}
}
