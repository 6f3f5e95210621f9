// Package transport abstracts the duplex frame pipe the connection state
// machine drives. spec.md treats the transport as an external collaborator
// specified only where the core touches it (socket lifecycle, linger/
// timeout options, identity, poll, send/recv of two-part envelopes); this
// package is that boundary. The concrete implementation in zmq.go is a
// ZeroMQ DEALER socket via goczmq; tests use an in-memory fake satisfying
// the same interface so the state machine's timing/ordering invariants can
// be verified without a real ZeroMQ context.
package transport

import (
	"time"

	"github.com/9triver/zmqclient/internal/protocol"
)

// Transport is the duplex envelope pipe the worker owns exclusively.
// Implementations are not required to be safe for concurrent use: exactly
// one goroutine (the worker) calls into a Transport for its lifetime.
type Transport interface {
	// SetIdentity assigns the socket's routing identity. Must be called
	// before Connect.
	SetIdentity(id uint64) error

	// Connect dials addr. Returns a non-nil error if the address could not
	// be bound to a connection attempt (malformed address, etc.) — per
	// spec.md §3/§7, this is a ConfigurationError, not necessarily proof
	// the peer is unreachable (ZeroMQ connects are asynchronous).
	Connect(addr string) error

	// SetLinger sets the socket's linger period, honored on Close.
	SetLinger(d time.Duration) error
	// SetSendTimeout bounds how long Send may block.
	SetSendTimeout(d time.Duration) error
	// SetRecvTimeout bounds how long Recv may block once PollReadable has
	// reported data available; it is a backstop, not the primary timeout
	// mechanism (see PollReadable).
	SetRecvTimeout(d time.Duration) error

	// Send writes one two-part envelope (control frame, payload).
	Send(env protocol.Envelope) error
	// Recv reads one two-part envelope. Callers are expected to have
	// established readiness via PollReadable first.
	Recv() (protocol.Envelope, error)

	// PollReadable blocks up to timeout waiting for at least one envelope
	// to become available, returning true if one is. A timeout of 0 polls
	// once without blocking, used to check for pipelined envelopes
	// immediately after draining one.
	PollReadable(timeout time.Duration) (bool, error)

	// Close releases the socket and any associated resources. Close is
	// idempotent.
	Close() error
}
