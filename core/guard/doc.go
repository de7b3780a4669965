// Package guard drives repeated attempts to obtain a trusted record from an
// unreliable completion provider.
//
// Each attempt is one full cycle: invoke the provider, parse the raw text
// strictly, then either validate it strictly ([ModeStrict]) or recover it
// field by field ([ModeRecover]). The first success ends the run. When the
// attempt budget is spent the run ends as exhausted and the [Outcome] carries
// every per-attempt failure, each with the stage it happened in and the typed
// error behind it.
//
// Failures inside a run are values, never errors returned from Run. Run only
// returns an error for invalid configuration (matching [ErrInvalidConfig]) or
// when the context ends the run early, in which case the partial outcome is
// returned alongside ctx.Err().
//
// Basic usage:
//
//	ctrl, err := guard.New(guard.ModeRecover, schema.Example(), 3,
//	    guard.WithLogger(logger),
//	    guard.WithProviderBackoff(func() retry.Backoff {
//	        return retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	outcome, err := ctrl.Run(ctx, completion.Bind(complete, request))
//
// A Controller holds no per-run state and may be shared between goroutines.
package guard
