package guard

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leofalp/jsonguard/core/schema"
)

// ErrExhausted is matched by the error returned from Outcome.Err when a run
// used up its attempts without success.
var ErrExhausted = errors.New("jsonguard: attempts exhausted")

// Status is the final status of a run.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusExhausted Status = "exhausted"
)

// Stage names the step of an attempt that failed.
type Stage string

const (
	StageInvoke   Stage = "invoke"
	StageParse    Stage = "parse"
	StageValidate Stage = "validate"
)

// AttemptFailure records why one attempt failed. Err holds the typed error
// (*completion.ProviderError, *parse.ParseFailure, *validate.SchemaViolation
// or *normalize.UnrecoverableFieldError) for use with errors.As.
type AttemptFailure struct {
	Attempt int
	Stage   Stage
	Reason  string
	Err     error
}

func (f AttemptFailure) Error() string {
	return fmt.Sprintf("attempt %d failed at %s: %s", f.Attempt, f.Stage, f.Reason)
}

func (f AttemptFailure) Unwrap() error {
	return f.Err
}

// Outcome is the result of one run. It is not modified after Run returns.
type Outcome struct {
	RunID  string
	Status Status
	// Record is set only when Status is StatusSuccess.
	Record       *schema.Record
	AttemptsUsed int
	// Failures lists every failed attempt in order. A successful run may
	// still carry failures from the attempts before the one that succeeded.
	Failures []AttemptFailure
}

// Succeeded reports whether the run produced a record.
func (o *Outcome) Succeeded() bool {
	return o != nil && o.Status == StatusSuccess
}

// Err returns nil for a successful run. Otherwise it returns an error matching
// ErrExhausted that joins every attempt failure.
func (o *Outcome) Err() error {
	if o.Succeeded() {
		return nil
	}

	errs := make([]error, 0, len(o.Failures)+1)
	errs = append(errs, fmt.Errorf("%w after %d attempts", ErrExhausted, o.AttemptsUsed))
	for _, f := range o.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

type failureJSON struct {
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

type successJSON struct {
	Status       Status         `json:"status"`
	Record       *schema.Record `json:"record"`
	AttemptsUsed int            `json:"attempts_used"`
}

type exhaustedJSON struct {
	Status       Status        `json:"status"`
	AttemptsUsed int           `json:"attempts_used"`
	Failures     []failureJSON `json:"failures"`
}

// MarshalJSON renders the success or exhausted shape depending on Status.
func (o *Outcome) MarshalJSON() ([]byte, error) {
	if o.Succeeded() {
		return json.Marshal(successJSON{
			Status:       o.Status,
			Record:       o.Record,
			AttemptsUsed: o.AttemptsUsed,
		})
	}

	failures := make([]failureJSON, len(o.Failures))
	for i, f := range o.Failures {
		failures[i] = failureJSON{Stage: f.Stage, Reason: f.Reason}
	}
	return json.Marshal(exhaustedJSON{
		Status:       StatusExhausted,
		AttemptsUsed: o.AttemptsUsed,
		Failures:     failures,
	})
}
