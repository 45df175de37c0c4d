package conversation

type State int

const (
	StateIdle State = iota
	StateChoosingService
	StateEnteringName
	StateEnteringPhone
	StateEnteringCredential
	// Terminal outcomes. Sessions in these states are never stored.
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChoosingService:
		return "choosing_service"
	case StateEnteringName:
		return "entering_name"
	case StateEnteringPhone:
		return "entering_phone"
	case StateEnteringCredential:
		return "entering_credential"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}
