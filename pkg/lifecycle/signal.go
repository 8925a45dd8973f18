package lifecycle

// Signal names a lifecycle transition emitted by a request, response or socket.
type Signal string

// Signals understood by the timer package.
const (
	// Socket fires on a request once a transport connection is associated with it.
	// The payload is the Conn.
	Socket Signal = "socket"
	// Lookup fires on a socket once name resolution completes.
	Lookup Signal = "lookup"
	// Connect fires on a socket once the transport connection is established.
	Connect Signal = "connect"
	// SecureConnect fires on a socket once the TLS handshake completes.
	SecureConnect Signal = "secureConnect"
	// Finish fires on a request once its body has been fully written.
	Finish Signal = "finish"
	// Response fires on a request when response metadata arrives.
	// The payload is the response Emitter.
	Response Signal = "response"
	// End fires on a response once its body has been fully consumed.
	End Signal = "end"
	// Error fires on a request or response that fails. The payload is the error.
	Error Signal = "error"
)

// Listener receives the payload of an emitted signal.
type Listener func(payload any)

// ID identifies a subscription on an Emitter.
type ID uint64

// Emitter is the capability required to instrument an object: subscribing to
// and unsubscribing from named signals.
type Emitter interface {
	// On appends fn to the listeners of sig.
	On(sig Signal, fn Listener) ID
	// Prepend inserts fn ahead of the current listeners of sig.
	Prepend(sig Signal, fn Listener) ID
	// Off removes the subscription. Unknown IDs are ignored.
	Off(sig Signal, id ID)
}

// Observer is implemented by emitters that can run a listener ahead of every
// ordinary listener, including ones prepended after it.
type Observer interface {
	Observe(sig Signal, fn Listener) ID
}

// ListenerCounter reports how many subscriptions a signal currently has.
type ListenerCounter interface {
	ListenerCount(sig Signal) int
}

// SocketHolder is implemented by requests that may already hold a socket when
// they are instrumented.
type SocketHolder interface {
	AssignedSocket() Conn
}

// UploadReporter is implemented by requests that can tell whether their body
// has already been written.
type UploadReporter interface {
	Uploaded() bool
}
