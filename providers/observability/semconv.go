package observability

// Semantic conventions for guard metrics.
// These constants define standard metric and attribute names so that every
// backend exports the same series.

// --- Metric names ---

const (
	// MetricGuardAttempts counts attempts, labelled by stage and result.
	MetricGuardAttempts = "guard.attempts"

	// MetricGuardRuns counts finished runs, labelled by status and mode.
	MetricGuardRuns = "guard.runs"

	// MetricGuardAttemptsPerRun records how many attempts each run consumed.
	MetricGuardAttemptsPerRun = "guard.attempts_per_run"

	// MetricGuardRepairs counts recoverable fields repaired in recovery mode.
	MetricGuardRepairs = "guard.repairs"
)

// --- Attribute keys ---

const (
	// AttrGuardMode is the validation mode ("strict" or "recover")
	AttrGuardMode = "guard.mode"

	// AttrGuardStage is the pipeline stage an attempt ended in
	AttrGuardStage = "guard.stage"

	// AttrGuardResult is "ok" or "failed"
	AttrGuardResult = "guard.result"

	// AttrGuardStatus is the run status ("success" or "exhausted")
	AttrGuardStatus = "guard.status"

	// AttrGuardField is the schema field a repair applied to
	AttrGuardField = "guard.field"

	// AttrGuardAttempt is the 1-based attempt number
	AttrGuardAttempt = "guard.attempt"

	// AttrGuardDefaulted is true when a repair replaced the value with the
	// field default
	AttrGuardDefaulted = "guard.defaulted"
)

// Attribute values for AttrGuardResult.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)
