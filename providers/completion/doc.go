// Package completion defines the completion provider collaborator: the
// external text-generation service whose free-form output the guard turns
// into trusted records.
//
// The core never constructs prompts or chooses sampling parameters. A caller
// assembles a [Request], wraps a [Provider] with [Chain] and any middleware,
// and hands the result of [Bind] to the guard as its invocation function.
//
//	provider := openai.New().WithModel("gpt-4o-mini")
//	complete := completion.Chain(provider,
//	    middleware.NewTimeoutMiddleware(30*time.Second),
//	    middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	)
//	invoke := completion.Bind(complete, completion.Request{
//	    Prompt:      prompt,
//	    Temperature: 0.7,
//	    MaxTokens:   200,
//	})
//
// Every failure of the collaborator is reported as a [ProviderError] so that
// callers can tell network, authentication, rate limiting and timeouts apart.
package completion
