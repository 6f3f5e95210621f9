// Package zmqclient implements an asynchronous, single-connection
// messaging client that speaks a small framed protocol over a ZeroMQ
// DEALER socket to a remote server. It serves two roles: an Exporter that
// ships application payloads and receives replies, and a Heartbeat that
// keeps a server-side worker alive by pinging it on a schedule. Both roles
// share one lifecycle: construct, connect, handshake, duplex steady state,
// then graceful shutdown or fault.
//
// A Client owns exactly one worker goroutine and one transport socket for
// its entire life; producers reach it only through the exported methods.
package zmqclient

import (
	"time"

	"github.com/9triver/zmqclient/internal/protocol"
)

// PROTOCOL_VERSION in spec terms; Version is the Go-idiomatic name.
const Version = protocol.Version

const (
	pingInterval      = 1000 * time.Millisecond
	ioTimeout         = 100 * time.Millisecond // reserved for socket-level IO option parity; no call site needs it yet
	heartbeatTimeout  = 2 * pingInterval
	exporterTimeout   = 5 * pingInterval
	maxConseqMessages = 10

	pollInterval         = 10 * time.Millisecond
	idleSleep            = 1 * time.Millisecond
	teardownSendTimeout  = 200 * time.Millisecond
	syncStopGracePeriod  = 200 * time.Millisecond
	waitForMessagesCap   = 10 * time.Second
)

// Role re-exports protocol.Role so callers never need to import the
// internal package directly.
type Role = protocol.Role

const (
	RoleNone      = protocol.RoleNone
	RoleExporter  = protocol.RoleExporter
	RoleHeartbeat = protocol.RoleHeartbeat
)

// Callback is invoked once per DATA payload received from the server.
// Invocations never overlap: a Callback must return before the next one
// (or a SetCallback replacement) can proceed.
type Callback func(payload []byte)
