package zmqclient

import "sync/atomic"

// lastError boxes the fatal connect or handshake error the worker recorded
// on its way to TEARDOWN, if any, so callers can tell a rejected address or
// handshake apart from other exits after Good() turns false; steady-state
// failures are not recorded. atomic.Value rather than a plain field since
// it's written once by the worker and read from any goroutine.
type lastError struct {
	v atomic.Value // holds errorBox
}

type errorBox struct{ err error }

func (l *lastError) store(err error) {
	l.v.Store(errorBox{err: err})
}

func (l *lastError) load() error {
	boxed, ok := l.v.Load().(errorBox)
	if !ok {
		return nil
	}
	return boxed.err
}

// phase names the connection state machine's current stage, per spec.md
// §4.4.
type phase int

const (
	phaseInit phase = iota
	phaseHandshakeWait
	phaseSteady
	phaseTeardown
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseInit:
		return "init"
	case phaseHandshakeWait:
		return "handshake_wait"
	case phaseSteady:
		return "steady"
	case phaseTeardown:
		return "teardown"
	default:
		return "done"
	}
}

// flags bundles the scalar state spec.md §3 calls ClientState: atomic
// booleans with clear transitions, each written from exactly one place in
// the state machine (plus StopServer/SetFlushOnExit from the facade side).
type flags struct {
	startServing atomic.Bool
	isWorking    atomic.Bool
	errorConnect atomic.Bool
	flushOnExit  atomic.Bool
	serverStop   atomic.Bool
}

// connectRequest is the one-shot (addr, identity) handoff from facade to
// worker described in SPEC_FULL.md §4.6: the worker performs all transport
// calls, so the facade never reaches into the socket.
type connectRequest struct {
	addr     string
	identity uint64
}
