package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/leofalp/jsonguard/core/normalize"
	"github.com/leofalp/jsonguard/core/parse"
	"github.com/leofalp/jsonguard/core/schema"
	"github.com/leofalp/jsonguard/core/validate"
	"github.com/leofalp/jsonguard/providers/observability"
)

// ErrInvalidConfig is matched by every configuration error. Such errors are
// reported before any attempt starts.
var ErrInvalidConfig = errors.New("jsonguard: invalid guard configuration")

// InvokeFunc calls the completion provider once and returns its raw text.
type InvokeFunc func(ctx context.Context) (string, error)

// Mode selects how a parsed value is turned into a record.
type Mode int

const (
	// ModeStrict accepts a value only if every field is present and correct.
	ModeStrict Mode = iota + 1
	// ModeRecover repairs recoverable fields and fails only on required ones.
	ModeRecover
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeRecover:
		return "recover"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps "strict" and "recover" to their Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "strict":
		return ModeStrict, nil
	case "recover":
		return ModeRecover, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
	}
}

// Controller runs the attempt loop for one schema and mode.
type Controller struct {
	mode        Mode
	schema      *schema.Schema
	maxAttempts int
	opts        Options
}

// New validates the configuration and returns a Controller.
func New(mode Mode, s *schema.Schema, maxAttempts int, opts ...Option) (*Controller, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	switch {
	case mode != ModeStrict && mode != ModeRecover:
		return nil, fmt.Errorf("%w: unknown mode %s", ErrInvalidConfig, mode)
	case s == nil:
		return nil, fmt.Errorf("%w: schema is nil", ErrInvalidConfig)
	case maxAttempts < 1:
		return nil, fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidConfig, maxAttempts)
	case options.ProviderBudget < 0:
		return nil, fmt.Errorf("%w: provider budget must not be negative, got %d", ErrInvalidConfig, options.ProviderBudget)
	}

	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.Metrics == nil {
		options.Metrics = observability.Noop()
	}
	if options.ProviderRetryable == nil {
		options.ProviderRetryable = func(error) bool { return true }
	}

	return &Controller{
		mode:        mode,
		schema:      s,
		maxAttempts: maxAttempts,
		opts:        options,
	}, nil
}

// Run builds a Controller and runs it once. See Controller.Run for the
// retry policy.
func Run(ctx context.Context, invoke InvokeFunc, mode Mode, s *schema.Schema, maxAttempts int, opts ...Option) (*Outcome, error) {
	ctrl, err := New(mode, s, maxAttempts, opts...)
	if err != nil {
		return nil, err
	}
	return ctrl.Run(ctx, invoke)
}

// Mode returns the controller's mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// MaxAttempts returns the attempt budget shared by content failures.
func (c *Controller) MaxAttempts() int {
	return c.maxAttempts
}

// Run performs attempts until one succeeds or the budget is spent. It calls
// invoke at most once per attempt and never concurrently.
//
// By default a provider failure is retried like a parse or validation
// failure and consumes one attempt from maxAttempts. To end the run on the
// first permanent provider error instead, pass WithProviderRetryable, for
// example with completion.IsRetryable. WithProviderBudget gives provider
// failures a budget of their own.
func (c *Controller) Run(ctx context.Context, invoke InvokeFunc) (*Outcome, error) {
	if invoke == nil {
		return nil, fmt.Errorf("%w: invoke function is nil", ErrInvalidConfig)
	}

	r := &run{
		ctrl:    c,
		outcome: &Outcome{RunID: uuid.NewString(), Status: StatusExhausted},
		state:   StateIdle,
	}
	r.logger = c.opts.Logger.With(slog.String("run_id", r.outcome.RunID))
	if c.opts.ProviderBackoff != nil {
		r.providerBackoff = c.opts.ProviderBackoff()
	}
	if c.opts.ContentBackoff != nil {
		r.contentBackoff = c.opts.ContentBackoff()
	}

	r.logger.DebugContext(ctx, "run started",
		slog.String("mode", c.mode.String()),
		slog.Int("max_attempts", c.maxAttempts),
		slog.Int("provider_budget", c.opts.ProviderBudget),
	)

	for {
		if err := ctx.Err(); err != nil {
			r.finish(ctx, StateExhausted)
			return r.outcome, err
		}

		attempt := r.outcome.AttemptsUsed + 1
		r.outcome.AttemptsUsed = attempt
		r.transition(StateInvoking, attempt)

		rec, failure := r.attempt(ctx, invoke, attempt)
		if failure == nil {
			r.outcome.Record = rec
			r.finish(ctx, StateSuccess)
			return r.outcome, nil
		}

		r.fail(ctx, *failure)

		if failure.Stage == StageInvoke && !c.opts.ProviderRetryable(failure.Err) {
			r.logger.WarnContext(ctx, "provider error is not retryable", slog.Int("attempt", attempt))
			r.finish(ctx, StateExhausted)
			return r.outcome, nil
		}
		if !r.hasBudget() {
			r.finish(ctx, StateExhausted)
			return r.outcome, nil
		}

		backoff := r.contentBackoff
		if failure.Stage == StageInvoke {
			backoff = r.providerBackoff
		}
		if err := r.wait(ctx, backoff, attempt); err != nil {
			r.finish(ctx, StateExhausted)
			if errors.Is(err, errBackoffStopped) {
				return r.outcome, nil
			}
			return r.outcome, err
		}
	}
}

var errBackoffStopped = errors.New("backoff stopped")

// run is the per-run state. It never outlives Controller.Run.
type run struct {
	ctrl    *Controller
	outcome *Outcome
	state   State
	logger  *slog.Logger

	providerBackoff retry.Backoff
	contentBackoff  retry.Backoff

	providerFailures int
	contentAttempts  int
}

// attempt performs one invoke, parse and check cycle.
func (r *run) attempt(ctx context.Context, invoke InvokeFunc, attempt int) (*schema.Record, *AttemptFailure) {
	text, err := invoke(ctx)
	if err != nil {
		r.providerFailures++
		return nil, &AttemptFailure{Attempt: attempt, Stage: StageInvoke, Reason: err.Error(), Err: err}
	}
	r.contentAttempts++

	r.transition(StateParsing, attempt)
	value, err := parse.Parse(text)
	if err != nil {
		return nil, &AttemptFailure{Attempt: attempt, Stage: StageParse, Reason: err.Error(), Err: err}
	}

	r.transition(StateValidating, attempt)
	rec, err := r.check(ctx, value, attempt)
	if err != nil {
		return nil, &AttemptFailure{Attempt: attempt, Stage: StageValidate, Reason: err.Error(), Err: err}
	}
	return rec, nil
}

func (r *run) check(ctx context.Context, value any, attempt int) (*schema.Record, error) {
	if r.ctrl.mode == ModeStrict {
		return validate.Validate(value, r.ctrl.schema)
	}

	rec, report, err := normalize.NormalizeWithReport(value, r.ctrl.schema)
	if err != nil {
		return nil, err
	}

	for _, repair := range report.Repairs {
		r.ctrl.opts.Metrics.Counter(observability.MetricGuardRepairs).Add(ctx, 1,
			observability.String(observability.AttrGuardField, repair.Field),
			observability.Bool(observability.AttrGuardDefaulted, repair.Defaulted),
		)
		r.logger.DebugContext(ctx, "field repaired",
			slog.Int("attempt", attempt),
			slog.String("field", repair.Field),
			slog.Bool("defaulted", repair.Defaulted),
			slog.Int("dropped", repair.Dropped),
		)
	}
	return rec, nil
}

// hasBudget reports whether another attempt may start.
func (r *run) hasBudget() bool {
	c := r.ctrl
	if c.opts.ProviderBudget == 0 {
		return r.outcome.AttemptsUsed < c.maxAttempts
	}
	return r.contentAttempts < c.maxAttempts && r.providerFailures < c.opts.ProviderBudget
}

// wait blocks for the next delay of backoff. A nil backoff does not wait.
func (r *run) wait(ctx context.Context, backoff retry.Backoff, attempt int) error {
	if backoff == nil {
		return nil
	}

	delay, stop := backoff.Next()
	if stop {
		r.logger.InfoContext(ctx, "backoff stopped retrying", slog.Int("attempt", attempt))
		return errBackoffStopped
	}
	if delay <= 0 {
		return nil
	}

	r.logger.DebugContext(ctx, "waiting before next attempt",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *run) fail(ctx context.Context, failure AttemptFailure) {
	r.outcome.Failures = append(r.outcome.Failures, failure)

	r.ctrl.opts.Metrics.Counter(observability.MetricGuardAttempts).Add(ctx, 1,
		observability.String(observability.AttrGuardStage, string(failure.Stage)),
		observability.String(observability.AttrGuardResult, observability.ResultFailed),
		observability.Int(observability.AttrGuardAttempt, failure.Attempt),
	)
	r.logger.WarnContext(ctx, "attempt failed",
		slog.Int("attempt", failure.Attempt),
		slog.String("stage", string(failure.Stage)),
		slog.String("reason", failure.Reason),
	)
}

func (r *run) finish(ctx context.Context, to State) {
	metrics := r.ctrl.opts.Metrics
	out := r.outcome

	if to == StateSuccess {
		out.Status = StatusSuccess
		metrics.Counter(observability.MetricGuardAttempts).Add(ctx, 1,
			observability.String(observability.AttrGuardStage, string(StageValidate)),
			observability.String(observability.AttrGuardResult, observability.ResultOK),
			observability.Int(observability.AttrGuardAttempt, out.AttemptsUsed),
		)
		r.logger.InfoContext(ctx, "run succeeded", slog.Int("attempts_used", out.AttemptsUsed))
	} else {
		out.Status = StatusExhausted
		r.logger.ErrorContext(ctx, "run exhausted",
			slog.Int("attempts_used", out.AttemptsUsed),
			slog.Int("failures", len(out.Failures)),
		)
	}
	r.transition(to, out.AttemptsUsed)

	statusAttr := observability.String(observability.AttrGuardStatus, string(out.Status))
	metrics.Counter(observability.MetricGuardRuns).Add(ctx, 1,
		statusAttr,
		observability.String(observability.AttrGuardMode, r.ctrl.mode.String()),
	)
	metrics.Histogram(observability.MetricGuardAttemptsPerRun).Record(ctx, float64(out.AttemptsUsed), statusAttr)
}

func (r *run) transition(to State, attempt int) {
	from := r.state
	r.state = to
	if hook := r.ctrl.opts.TransitionHook; hook != nil {
		hook(Transition{From: from, To: to, Attempt: attempt})
	}
}
