package conn

// State is the connection's primary state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshakingSendHello
	StateHandshakingRecvHello
	StateHandshakingSendAddendum
	StateReady
	StateRequestSendQuery
	StateRequestWaitForData
	StateRequestSendBlock
	StateRequestSendEnd
	StateRequestWaitForEOS
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateHandshakingSendHello:
		return "HandshakingSendHello"
	case StateHandshakingRecvHello:
		return "HandshakingRecvHello"
	case StateHandshakingSendAddendum:
		return "HandshakingSendAddendum"
	case StateReady:
		return "Ready"
	case StateRequestSendQuery:
		return "RequestSendQuery"
	case StateRequestWaitForData:
		return "RequestWaitForData"
	case StateRequestSendBlock:
		return "RequestSendBlock"
	case StateRequestSendEnd:
		return "RequestSendEnd"
	case StateRequestWaitForEOS:
		return "RequestWaitForEOS"
	default:
		return "Unknown"
	}
}

// connected reports whether s is one of the states in which the caller-
// visible Connected() predicate is true: Ready or any request-in-flight
// state.
func (s State) connected() bool {
	return s == StateReady ||
		s == StateRequestSendQuery || s == StateRequestWaitForData ||
		s == StateRequestSendBlock || s == StateRequestSendEnd || s == StateRequestWaitForEOS
}

// requestPhase mirrors the state machine's progress through one in-flight
// request's four pre-encoded buffers. Only meaningful while a request is
// being driven (States StateRequestSendQuery..StateRequestWaitForEOS).
type requestPhase int

const (
	phaseSendingQuery requestPhase = iota
	phaseSendingQueryTerminator
	phaseWaitingForData
	phaseSendingBlock
	phaseSendingEnd
	phaseWaitingForEOS
)

// EnqueueResult is what EnqueueInsert reports about a single call.
type EnqueueResult int

const (
	Queued EnqueueResult = iota
	Dropped
	Disabled
	NotConnected
)

func (r EnqueueResult) String() string {
	switch r {
	case Queued:
		return "queued"
	case Dropped:
		return "dropped"
	case Disabled:
		return "disabled"
	case NotConnected:
		return "not_connected"
	default:
		return "unknown"
	}
}

// PollResult is the progress counters returned by one Connection.Poll call.
type PollResult struct {
	Progressed        bool
	Connected         bool
	BytesSent         int
	BytesRecv         int
	RequestsCompleted int
	RequestsFailed    int
}
