package deploy

// State is a step of a deployment run.
type State int

const (
	StateInit State = iota
	StateChecking
	StatePreflight
	StateSubmitting
	StatePolling
	StateReady
	StateTimedOut
	StateFailed
	StateInterrupted
	// StateCancelled means the operator declined to update an existing agent.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateChecking:
		return "checking"
	case StatePreflight:
		return "preflight"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateReady:
		return "ready"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	case StateInterrupted:
		return "interrupted"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	switch s {
	case StateReady, StateTimedOut, StateFailed, StateInterrupted, StateCancelled:
		return true
	}
	return false
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
