package domain

// ConnState is the lifecycle of a debuggee connection.
type ConnState int

const (
	ConnNotBootstrapped ConnState = iota
	ConnBootstrapped
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnNotBootstrapped:
		return "not_bootstrapped"
	case ConnBootstrapped:
		return "bootstrapped"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ControllerState is the lifecycle of a session controller.
//
//	Idle -> Bootstrapping -> Active -> (Restarting -> Active)* -> Closed
//
// Failed is entered when bootstrap or a send fails, or the event stream ends.
// Start may be retried from it. Closed is reached only through Close.
type ControllerState int

const (
	ControllerIdle ControllerState = iota
	ControllerBootstrapping
	ControllerActive
	ControllerRestarting
	ControllerFailed
	ControllerClosed
)

func (s ControllerState) String() string {
	switch s {
	case ControllerIdle:
		return "idle"
	case ControllerBootstrapping:
		return "bootstrapping"
	case ControllerActive:
		return "active"
	case ControllerRestarting:
		return "restarting"
	case ControllerFailed:
		return "failed"
	case ControllerClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s ControllerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AcceptsCommands reports whether commands may be sent in this state.
func (s ControllerState) AcceptsCommands() bool {
	return s == ControllerActive || s == ControllerRestarting
}
