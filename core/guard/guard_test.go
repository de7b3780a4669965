package guard

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/jsonguard/core/normalize"
	"github.com/leofalp/jsonguard/core/parse"
	"github.com/leofalp/jsonguard/core/schema"
	"github.com/leofalp/jsonguard/core/validate"
	"github.com/leofalp/jsonguard/providers/completion"
	"github.com/leofalp/jsonguard/providers/completion/middleware"
	"github.com/leofalp/jsonguard/providers/observability"
	obsslog "github.com/leofalp/jsonguard/providers/observability/slog"
)

// ========== Helpers ==========

const (
	validPayload     = `{"language": "Go", "purpose": "services", "benefits": ["fast", "simple"]}`
	malformedPayload = `{"language": "Go", "purpose": "services",}`
	mixedListPayload = `{"language": "Python", "purpose": "testing", "benefits": ["safe", 42, "isolated", null]}`
)

// step is one scripted provider reply.
type step struct {
	text string
	err  error
}

// scripted returns an InvokeFunc replaying steps in order and repeating the
// last one once the script runs out, plus a pointer to the call count.
func scripted(steps ...step) (InvokeFunc, *int) {
	calls := 0
	return func(context.Context) (string, error) {
		i := calls
		if i >= len(steps) {
			i = len(steps) - 1
		}
		calls++
		return steps[i].text, steps[i].err
	}, &calls
}

func reply(text string) step { return step{text: text} }

func failWith(kind completion.ErrorKind) step {
	return step{err: &completion.ProviderError{Kind: kind, Err: errors.New(string(kind))}}
}

func stages(out *Outcome) []Stage {
	s := make([]Stage, len(out.Failures))
	for i, f := range out.Failures {
		s[i] = f.Stage
	}
	return s
}

// ========== Retry bound and short-circuit ==========

// TestRun_RetryBoundIsExact checks that an always-malformed provider is
// called exactly maxAttempts times.
func TestRun_RetryBoundIsExact(t *testing.T) {
	invoke, calls := scripted(reply("Sure! Here is your JSON: {"))

	out, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, *calls)
	assert.Equal(t, StatusExhausted, out.Status)
	assert.Equal(t, 3, out.AttemptsUsed)
	assert.Nil(t, out.Record)
	assert.Equal(t, []Stage{StageParse, StageParse, StageParse}, stages(out))

	for i, f := range out.Failures {
		assert.Equal(t, i+1, f.Attempt)
		var failure *parse.ParseFailure
		assert.ErrorAs(t, f.Err, &failure)
	}
}

// TestRun_FirstSuccessShortCircuits checks that no call follows a success.
func TestRun_FirstSuccessShortCircuits(t *testing.T) {
	invoke, calls := scripted(reply(malformedPayload), reply(validPayload), reply(malformedPayload))

	out, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 3)
	require.NoError(t, err)

	assert.Equal(t, 2, *calls)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, 2, out.AttemptsUsed)
	assert.Equal(t, []Stage{StageParse}, stages(out))
	assert.Equal(t, "Go", out.Record.String("language"))
	assert.Equal(t, []string{"fast", "simple"}, out.Record.Strings("benefits"))
	assert.NotEmpty(t, out.RunID)
}

func TestRun_SingleAttempt(t *testing.T) {
	invoke, calls := scripted(reply(validPayload))

	out, err := Run(context.Background(), invoke, ModeRecover, schema.Example(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
	assert.True(t, out.Succeeded())
	assert.Empty(t, out.Failures)
}

// ========== Modes ==========

func TestRun_ModesDisagreeOnMixedList(t *testing.T) {
	t.Run("strict rejects", func(t *testing.T) {
		invoke, calls := scripted(reply(mixedListPayload))

		out, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 2)
		require.NoError(t, err)
		assert.Equal(t, 2, *calls)
		assert.Equal(t, StatusExhausted, out.Status)
		assert.Equal(t, []Stage{StageValidate, StageValidate}, stages(out))

		var violation *validate.SchemaViolation
		require.ErrorAs(t, out.Failures[0].Err, &violation)
		assert.Equal(t, []string{"benefits"}, violation.Fields())
	})

	t.Run("recover keeps strings", func(t *testing.T) {
		invoke, calls := scripted(reply(mixedListPayload))

		out, err := Run(context.Background(), invoke, ModeRecover, schema.Example(), 2)
		require.NoError(t, err)
		assert.Equal(t, 1, *calls)
		assert.True(t, out.Succeeded())
		assert.Equal(t, []string{"safe", "isolated"}, out.Record.Strings("benefits"))
	})
}

func TestRun_RecoverAcceptsOutOfRangeNumbers(t *testing.T) {
	invoke, calls := scripted(reply(`{"language": "Python", "purpose": "testing", "benefits": ["safe", 1e400, "isolated"]}`))

	out, err := Run(context.Background(), invoke, ModeRecover, schema.Example(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
	require.True(t, out.Succeeded())
	assert.Equal(t, []string{"safe", "isolated"}, out.Record.Strings("benefits"))
}

func TestRun_RecoverNeverInventsRequiredFields(t *testing.T) {
	invoke, _ := scripted(reply(`{"purpose": "testing", "benefits": ["x"]}`), reply(`{"language": "Go", "purpose": "testing"}`))

	out, err := Run(context.Background(), invoke, ModeRecover, schema.Example(), 3)
	require.NoError(t, err)
	require.True(t, out.Succeeded())
	assert.Equal(t, 2, out.AttemptsUsed)
	assert.Equal(t, []string{}, out.Record.Strings("benefits"))

	var fieldErr *normalize.UnrecoverableFieldError
	require.ErrorAs(t, out.Failures[0].Err, &fieldErr)
	assert.Equal(t, "language", fieldErr.Field)
	assert.Equal(t, StageValidate, out.Failures[0].Stage)
}

// ========== Provider failures ==========

// TestRun_ProviderFailuresConsumeAttempts checks the default policy: provider
// errors are retried like any other failure from the same budget.
func TestRun_ProviderFailuresConsumeAttempts(t *testing.T) {
	invoke, calls := scripted(failWith(completion.KindRateLimit), failWith(completion.KindNetwork), reply(validPayload))

	out, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, *calls)
	assert.True(t, out.Succeeded())
	assert.Equal(t, []Stage{StageInvoke, StageInvoke}, stages(out))

	var providerErr *completion.ProviderError
	require.ErrorAs(t, out.Failures[0].Err, &providerErr)
	assert.Equal(t, completion.KindRateLimit, providerErr.Kind)
}

func TestRun_ProviderFailuresExhaust(t *testing.T) {
	invoke, calls := scripted(failWith(completion.KindServer))

	out, err := Run(context.Background(), invoke, ModeRecover, schema.Example(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, StatusExhausted, out.Status)
	assert.Equal(t, []Stage{StageInvoke, StageInvoke, StageInvoke}, stages(out))
}

func TestRun_NonRetryableProviderErrorEndsRun(t *testing.T) {
	invoke, calls := scripted(failWith(completion.KindAuth), reply(validPayload))

	out, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 3,
		WithProviderRetryable(completion.IsRetryable))
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, StatusExhausted, out.Status)
	assert.Equal(t, 1, out.AttemptsUsed)
}

func TestRun_SeparateProviderBudget(t *testing.T) {
	t.Run("provider failures do not use content budget", func(t *testing.T) {
		invoke, calls := scripted(failWith(completion.KindServer), failWith(completion.KindServer), reply(validPayload))

		out, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 1, WithProviderBudget(3))
		require.NoError(t, err)
		assert.Equal(t, 3, *calls)
		assert.True(t, out.Succeeded())
		assert.Equal(t, 3, out.AttemptsUsed)
	})

	t.Run("provider budget runs out", func(t *testing.T) {
		invoke, calls := scripted(failWith(completion.KindNetwork))

		out, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 5, WithProviderBudget(2))
		require.NoError(t, err)
		assert.Equal(t, 2, *calls)
		assert.Equal(t, StatusExhausted, out.Status)
	})

	t.Run("content budget runs out", func(t *testing.T) {
		invoke, calls := scripted(failWith(completion.KindNetwork), reply(malformedPayload))

		out, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 2, WithProviderBudget(5))
		require.NoError(t, err)
		assert.Equal(t, 3, *calls)
		assert.Equal(t, []Stage{StageInvoke, StageParse, StageParse}, stages(out))
	})
}

// TestRun_ProviderTimeoutIsAnAttemptFailure wires the timeout middleware in
// front of a stalled provider and expects ordinary invoke failures.
func TestRun_ProviderTimeoutIsAnAttemptFailure(t *testing.T) {
	stalled := completion.ProviderFunc(func(ctx context.Context, _ completion.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	complete := completion.Chain(stalled, middleware.NewTimeoutMiddleware(5*time.Millisecond))

	out, err := Run(context.Background(), completion.Bind(complete, completion.Request{Prompt: "p"}), ModeStrict, schema.Example(), 2)
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageInvoke, StageInvoke}, stages(out))

	var providerErr *completion.ProviderError
	require.ErrorAs(t, out.Failures[0].Err, &providerErr)
	assert.Equal(t, completion.KindTimeout, providerErr.Kind)
}

// ========== Backoff ==========

func TestRun_ContentBackoffWaits(t *testing.T) {
	invoke, _ := scripted(reply(malformedPayload))

	start := time.Now()
	out, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 3,
		WithContentBackoff(func() retry.Backoff { return retry.NewConstant(15 * time.Millisecond) }))
	require.NoError(t, err)
	assert.Equal(t, 3, out.AttemptsUsed)
	// Two waits: none after the final attempt.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRun_BackoffsAreIndependent(t *testing.T) {
	var providerWaits, contentWaits int
	counting := func(n *int) BackoffFactory {
		return func() retry.Backoff {
			return retry.BackoffFunc(func() (time.Duration, bool) {
				*n++
				return 0, false
			})
		}
	}

	invoke, _ := scripted(failWith(completion.KindServer), reply(malformedPayload), reply(malformedPayload), reply(validPayload))

	out, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 4,
		WithProviderBackoff(counting(&providerWaits)),
		WithContentBackoff(counting(&contentWaits)))
	require.NoError(t, err)
	assert.True(t, out.Succeeded())
	assert.Equal(t, 1, providerWaits)
	assert.Equal(t, 2, contentWaits)
}

func TestRun_BackoffStopEndsRun(t *testing.T) {
	invoke, calls := scripted(reply(malformedPayload))

	out, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 5,
		WithContentBackoff(func() retry.Backoff {
			return retry.WithMaxRetries(1, retry.NewConstant(time.Millisecond))
		}))
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
	assert.Equal(t, StatusExhausted, out.Status)
}

// ========== Context ==========

func TestRun_CanceledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	invoke, calls := scripted(reply(validPayload))
	out, err := Run(ctx, invoke, ModeStrict, schema.Example(), 3)

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, out)
	assert.Equal(t, 0, *calls)
	assert.Equal(t, StatusExhausted, out.Status)
	assert.Equal(t, 0, out.AttemptsUsed)
}

func TestRun_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	invoke := func(context.Context) (string, error) {
		calls++
		cancel()
		return malformedPayload, nil
	}

	out, err := Run(ctx, invoke, ModeStrict, schema.Example(), 3,
		WithContentBackoff(func() retry.Backoff { return retry.NewConstant(time.Hour) }))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, out.AttemptsUsed)
	assert.Equal(t, []Stage{StageParse}, stages(out))
}

// ========== State machine ==========

func TestRun_Transitions(t *testing.T) {
	var got []Transition
	invoke, _ := scripted(reply(malformedPayload), reply(validPayload))

	_, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 3,
		WithTransitionHook(func(tr Transition) { got = append(got, tr) }))
	require.NoError(t, err)

	assert.Equal(t, []Transition{
		{From: StateIdle, To: StateInvoking, Attempt: 1},
		{From: StateInvoking, To: StateParsing, Attempt: 1},
		{From: StateParsing, To: StateInvoking, Attempt: 2},
		{From: StateInvoking, To: StateParsing, Attempt: 2},
		{From: StateParsing, To: StateValidating, Attempt: 2},
		{From: StateValidating, To: StateSuccess, Attempt: 2},
	}, got)
}

func TestRun_TransitionsToExhausted(t *testing.T) {
	var got []Transition
	invoke, _ := scripted(reply(`{"language": 1}`))

	_, err := Run(context.Background(), invoke, ModeStrict, schema.Example(), 1,
		WithTransitionHook(func(tr Transition) { got = append(got, tr) }))
	require.NoError(t, err)

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, Transition{From: StateValidating, To: StateExhausted, Attempt: 1}, last)
	assert.True(t, last.To.Terminal())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "validating", StateValidating.String())
	assert.Equal(t, "exhausted", StateExhausted.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.False(t, StateParsing.Terminal())
}

// ========== Configuration ==========

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		mode        Mode
		schema      *schema.Schema
		maxAttempts int
		opts        []Option
	}{
		{name: "unknown mode", mode: Mode(0), schema: schema.Example(), maxAttempts: 3},
		{name: "nil schema", mode: ModeStrict, schema: nil, maxAttempts: 3},
		{name: "zero attempts", mode: ModeStrict, schema: schema.Example(), maxAttempts: 0},
		{name: "negative provider budget", mode: ModeRecover, schema: schema.Example(), maxAttempts: 1, opts: []Option{WithProviderBudget(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoke, calls := scripted(reply(validPayload))

			out, err := Run(context.Background(), invoke, tt.mode, tt.schema, tt.maxAttempts, tt.opts...)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, out)
			assert.Equal(t, 0, *calls)
		})
	}
}

func TestRun_NilInvoke(t *testing.T) {
	ctrl, err := New(ModeStrict, schema.Example(), 1)
	require.NoError(t, err)

	_, err = ctrl.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("recover")
	require.NoError(t, err)
	assert.Equal(t, ModeRecover, mode)

	mode, err = ParseMode("strict")
	require.NoError(t, err)
	assert.Equal(t, "strict", mode.String())

	_, err = ParseMode("lenient")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// TestController_Reusable checks that runs on one controller do not share
// counters or failures.
func TestController_Reusable(t *testing.T) {
	ctrl, err := New(ModeRecover, schema.Example(), 2)
	require.NoError(t, err)
	assert.Equal(t, ModeRecover, ctrl.Mode())
	assert.Equal(t, 2, ctrl.MaxAttempts())

	bad, _ := scripted(reply("nope"))
	first, err := ctrl.Run(context.Background(), bad)
	require.NoError(t, err)

	good, _ := scripted(reply(validPayload))
	second, err := ctrl.Run(context.Background(), good)
	require.NoError(t, err)

	assert.Equal(t, 2, first.AttemptsUsed)
	assert.Equal(t, 1, second.AttemptsUsed)
	assert.Empty(t, second.Failures)
	assert.NotEqual(t, first.RunID, second.RunID)
}

// ========== Observability ==========

func TestRun_MetricsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	metrics := obsslog.New(logger)

	invoke, _ := scripted(reply(malformedPayload), reply(mixedListPayload))
	out, err := Run(context.Background(), invoke, ModeRecover, schema.Example(), 3,
		WithLogger(logger), WithMetrics(metrics))
	require.NoError(t, err)
	require.True(t, out.Succeeded())

	assert.Equal(t, int64(2), metrics.CounterValue(observability.MetricGuardAttempts))
	assert.Equal(t, int64(1), metrics.CounterValue(observability.MetricGuardRuns))
	assert.Equal(t, int64(1), metrics.CounterValue(observability.MetricGuardRepairs))

	logs := buf.String()
	assert.Contains(t, logs, "run_id="+out.RunID)
	assert.Contains(t, logs, "attempt failed")
	assert.Contains(t, logs, "stage=parse")
	assert.Contains(t, logs, "field repaired")
	assert.Contains(t, logs, "run succeeded")
	assert.Contains(t, logs, "guard.stage=parse guard.result=failed guard.attempt=1")
	assert.Contains(t, logs, "guard.stage=validate guard.result=ok guard.attempt=2")
	assert.Contains(t, logs, "guard.field=benefits guard.defaulted=false")
}
