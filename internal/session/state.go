package session

// State is the Socket Session's connection state, per §3's "Connection
// state" data model: exactly one of five values at any instant, moving
// strictly within a connection attempt and able to fall back to
// Disconnected from any state on failure.
type State string

const (
	StateDisconnected   State = "disconnected"
	StateConnecting     State = "connecting"
	StateAuthenticating State = "authenticating"
	StateConnected      State = "connected"
	StateReconnecting   State = "reconnecting"
)
