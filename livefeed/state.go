package livefeed

// ConnectionState represents the current state of the feed channel.
type ConnectionState int

const (
	// StateClosed means the channel is not connected and no reconnect is pending.
	StateClosed ConnectionState = iota

	// StateConnecting means the manager is dialing the channel.
	StateConnecting

	// StateOpen means the channel is established and Send is accepted.
	StateOpen

	// StateReconnecting means the channel dropped and a reconnect timer is pending.
	StateReconnecting
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// StateEvent represents a state change event.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error // Optional error that caused the state change
}
