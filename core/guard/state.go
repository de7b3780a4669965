package guard

// State is a step of the per-run state machine.
type State int

const (
	StateIdle State = iota
	StateInvoking
	StateParsing
	StateValidating
	StateSuccess
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInvoking:
		return "invoking"
	case StateParsing:
		return "parsing"
	case StateValidating:
		return "validating"
	case StateSuccess:
		return "success"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateExhausted
}

// Transition is one observed state change. Attempt is the 1-based attempt the
// change belongs to, or 0 before the first attempt.
type Transition struct {
	From    State
	To      State
	Attempt int
}

// TransitionHook observes state changes. It runs synchronously on the
// goroutine calling Run and must not block.
type TransitionHook func(Transition)
