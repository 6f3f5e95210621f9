package zmqclient

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/9triver/zmqclient/internal/protocol"
	"github.com/9triver/zmqclient/internal/queue"
	"github.com/lithammer/shortuuid/v4"
	"github.com/sirupsen/logrus"
)

// Client is the public facade described in spec.md §4.5. Construct one
// with New; it owns a worker goroutine and a transport socket for its
// entire lifetime, and must be shut down with SyncStop (or Close) when no
// longer needed.
type Client struct {
	id     string
	role   protocol.Role
	logger *logrus.Entry
	cfg    config

	queue *queue.Outbound

	callbackMu sync.Mutex
	callback   Callback

	flags   flags
	lastErr lastError

	connectOnce sync.Once
	connectCh   chan connectRequest
	readyCh     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Client and starts its worker. It does not return until
// the worker has finished initializing its transport socket, so a
// subsequent Connect call is always safe — mirroring spec.md §4.4's
// "startup invariant".
//
// Role is Heartbeat iff heartbeat is true, otherwise Exporter.
func New(heartbeat bool, opts ...Option) *Client {
	role := protocol.RoleExporter
	if heartbeat {
		role = protocol.RoleHeartbeat
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		id:        shortuuid.New(),
		role:      role,
		cfg:       cfg,
		queue:     queue.New(),
		connectCh: make(chan connectRequest, 1),
		readyCh:   make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.logger = cfg.logger.WithFields(logrus.Fields{"client_id": c.id, "role": role.String()})
	c.flags.isWorking.Store(true)

	c.wg.Add(1)
	go c.runWorker()
	<-c.readyCh

	return c
}

// Connect is one-shot: the first call publishes addr and a fresh random
// identity to the worker and wakes it; subsequent calls are ignored. It
// never blocks on the network — ZeroMQ DEALER connects are asynchronous —
// so a false Connected() afterward means the address itself was rejected,
// not that the peer is unreachable.
func (c *Client) Connect(addr string) {
	c.connectOnce.Do(func() {
		var idBytes [8]byte
		if _, err := rand.Read(idBytes[:]); err != nil {
			// crypto/rand failing is effectively unrecoverable on any real
			// platform; fall back to a fixed identity rather than blocking
			// forever, since a duplicate identity only risks routing
			// ambiguity on a shared endpoint, not a protocol violation.
			binary.LittleEndian.PutUint64(idBytes[:], 0)
		}
		req := connectRequest{addr: addr, identity: binary.LittleEndian.Uint64(idBytes[:])}
		select {
		case c.connectCh <- req:
		default:
		}
		c.flags.startServing.Store(true)
	})
}

// Send copies data into a new payload and enqueues it. It never blocks
// beyond the outbound queue's mutex.
func (c *Client) Send(data []byte) {
	payload := make([]byte, len(data))
	copy(payload, data)
	c.enqueue(payload)
}

// SendPayload enqueues payload directly, taking ownership of it: the
// caller must not read or write payload after this call returns. Use this
// instead of Send to avoid a copy when the caller already has a buffer it
// is done with.
func (c *Client) SendPayload(payload []byte) {
	c.enqueue(payload)
}

func (c *Client) enqueue(payload []byte) {
	c.queue.Push(payload)
	if c.cfg.metrics != nil {
		c.cfg.metrics.QueueDepth.Set(float64(c.queue.Size()))
	}
}

// SetCallback replaces the delivery callback. The swap is serialized with
// any in-flight delivery: SetCallback blocks until the current callback
// invocation (if any) returns.
func (c *Client) SetCallback(cb Callback) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.callback = cb
}

// SetFlushOnExit sets or clears the flush-on-exit policy flag.
func (c *Client) SetFlushOnExit(b bool) {
	c.flags.flushOnExit.Store(b)
}

// GetFlushOnExit reports the current flush-on-exit policy flag.
func (c *Client) GetFlushOnExit() bool {
	return c.flags.flushOnExit.Load()
}

// OutstandingMessages returns a best-effort snapshot of the outbound
// queue's length.
func (c *Client) OutstandingMessages() int {
	return c.queue.Size()
}

// Good reports whether the worker is still serving.
func (c *Client) Good() bool {
	return c.flags.isWorking.Load()
}

// Connected reports whether Connect has been called and did not fail to
// even be attempted.
func (c *Client) Connected() bool {
	return c.flags.startServing.Load() && !c.flags.errorConnect.Load()
}

// LastError returns the error that drove the worker into teardown while
// connecting or handshaking, or nil if neither failed (including while the
// client is still healthy and running). It is one of the sentinel errors in
// errors.go, possibly wrapped with context via fmt.Errorf's %w, and is
// primarily useful after Good() has turned false. Failures in the steady
// state (a transport error, or a Heartbeat server going silent) are logged
// but not recorded here; LastError stays nil for them.
func (c *Client) LastError() error {
	return c.lastErr.load()
}

// StopServer asks the worker to emit a STOP control frame to the peer on
// its way out and stop serving. Pending queued payloads are discarded, per
// spec.md's stop-precedence invariant.
func (c *Client) StopServer() {
	c.flags.serverStop.Store(true)
	c.flags.isWorking.Store(false)
}

// SyncStop performs cooperative shutdown: if StopServer was called, it
// first waits up to 200ms for the worker to finish emitting STOP; then it
// stops the worker, closes the transport, and joins the worker goroutine.
// SyncStop is idempotent and safe to call more than once.
func (c *Client) SyncStop() {
	if c.flags.serverStop.Load() {
		deadline := time.Now().Add(syncStopGracePeriod)
		for c.flags.serverStop.Load() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
	}

	c.flags.isWorking.Store(false)
	c.flags.startServing.Store(true) // as Connect would; cancel below wakes a worker still waiting for Connect
	c.cancel()
	c.wg.Wait()
}

// Close is an alias for SyncStop, so Client satisfies io.Closer.
func (c *Client) Close() error {
	c.SyncStop()
	return nil
}

// WaitForMessages blocks until the outbound queue is empty, the worker
// exits, or timeoutMs elapses (clamped to 10s), returning whether the
// queue ended up empty.
func (c *Client) WaitForMessages(timeoutMs int) bool {
	timeout := time.Duration(timeoutMs) * time.Millisecond
	if timeout > waitForMessagesCap || timeoutMs < 0 {
		timeout = waitForMessagesCap
	}
	if c.queue.Empty() {
		return true
	}

	deadline := time.Now().Add(timeout)
	for {
		if c.queue.Empty() {
			return true
		}
		if !c.flags.isWorking.Load() {
			return false
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
