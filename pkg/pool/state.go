package pool

import "time"

// StateKind discriminates ConnectionState's variants. Go has no sum types,
// so the state carries every variant's fields and StateKind says which are
// meaningful, the same shape the example corpus uses for Rust-derived enums.
type StateKind int

const (
	StateDisconnected StateKind = iota
	StateConnecting
	StateConnected
	StateErrored
	StateDisabled
)

func (k StateKind) String() string {
	switch k {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateErrored:
		return "errored"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ConnectionState is the device's reconnection state machine position.
// Only the fields relevant to Kind are meaningful:
//
//	Connecting: Attempt
//	Connected:  Since
//	Errored:    Message, NextRetry
type ConnectionState struct {
	Kind      StateKind
	Attempt   uint32
	Since     time.Time
	Message   string
	NextRetry time.Time
}

func Disconnected() ConnectionState {
	return ConnectionState{Kind: StateDisconnected}
}

func Connecting(attempt uint32) ConnectionState {
	return ConnectionState{Kind: StateConnecting, Attempt: attempt}
}

func Connected(since time.Time) ConnectionState {
	return ConnectionState{Kind: StateConnected, Since: since}
}

func Errored(message string, nextRetry time.Time) ConnectionState {
	return ConnectionState{Kind: StateErrored, Message: message, NextRetry: nextRetry}
}

func Disabled() ConnectionState {
	return ConnectionState{Kind: StateDisabled}
}

// ConnectionDuration reports how long a Connected state has held, or zero
// for any other state.
func (s ConnectionState) ConnectionDuration() time.Duration {
	if s.Kind != StateConnected {
		return 0
	}
	return time.Since(s.Since)
}

// ConnectionStats accumulates lifetime counters for a device, surfaced
// verbatim in ServerStatus.
type ConnectionStats struct {
	ConnectAttempts    uint64
	SuccessfulCommands uint64
	FailedCommands     uint64
	LastError          string
}
