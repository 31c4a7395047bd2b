package client

// State is the client's position in its listen/transfer/report cycle.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateTransferring
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateTransferring:
		return "transferring"
	case StateReporting:
		return "reporting"
	default:
		return "unknown"
	}
}
