package lifecycle

// ConnState is how far a socket got in establishing its connection at the
// moment it is observed.
type ConnState int

const (
	// StateResolving means name resolution has not completed.
	StateResolving ConnState = iota
	// StateConnecting means the address is known and the transport connection
	// is being established.
	StateConnecting
	// StateHandshaking means the transport is connected and a TLS handshake
	// is pending.
	StateHandshaking
	// StateReady means the connection is fully established, as with a reused
	// keep-alive connection.
	StateReady
)

func (s ConnState) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Conn is the transport connection associated with a request. It is the
// payload of the Socket signal.
type Conn interface {
	Emitter

	// State reports the connection state at the time of the call.
	State() ConnState
	// Secure reports whether the connection carries TLS.
	Secure() bool
}
