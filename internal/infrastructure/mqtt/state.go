package mqtt

// ConnectionState describes the broker link lifecycle.
//
// It is owned exclusively by this package; transitions are driven only by
// broker lifecycle events (connect acknowledged, connection lost, teardown),
// never by consumers.
type ConnectionState int

const (
	// StateDisconnected means no link exists. This is the initial state and
	// the terminal state after Close().
	StateDisconnected ConnectionState = iota

	// StateConnecting means a connection attempt is in flight.
	StateConnecting

	// StateConnected means the link is up and publishes/subscribes flow.
	StateConnected

	// StateFaulted means the last connection attempt failed or timed out.
	// The retry loop keeps running; the state returns to Connected when a
	// later attempt succeeds.
	StateFaulted
)

// String returns a human-readable name for the state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}
