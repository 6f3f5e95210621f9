package zmqclient

import (
	"errors"
	"testing"
	"time"

	"github.com/9triver/zmqclient/internal/protocol"
	"github.com/9triver/zmqclient/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, heartbeat bool) (*Client, *pipeTransport) {
	t.Helper()
	pipe := newPipeTransport()
	c := New(heartbeat, withTransportFactory(func() (transport.Transport, error) {
		return pipe, nil
	}))
	t.Cleanup(c.SyncStop)
	return c, pipe
}

func handshake(t *testing.T, c *Client, pipe *pipeTransport, role protocol.Role, connectOp, createOp protocol.Opcode) {
	t.Helper()
	c.Connect("inproc://test")

	env, ok := pipe.recvSent(time.Second)
	require.True(t, ok, "expected client to send handshake connect frame")
	assert.Equal(t, connectOp, env.Frame.Opcode)
	assert.Equal(t, role, env.Frame.Role)
	assert.Empty(t, env.Payload)

	pipe.deliver(protocol.NewEnvelope(role, createOp))

	require.Eventually(t, c.Good, time.Second, time.Millisecond)
	assert.True(t, c.Connected())
}

// S1: handshake success (Exporter).
func TestHandshakeSuccessExporter(t *testing.T) {
	c, pipe := newTestClient(t, false)
	handshake(t, c, pipe, protocol.RoleExporter, protocol.OpExporterConnect, protocol.OpRendererCreate)
}

// S2: version mismatch aborts the client; no DATA is ever attempted.
func TestVersionMismatchAbortsClient(t *testing.T) {
	c, pipe := newTestClient(t, false)
	c.Connect("inproc://test")

	_, ok := pipe.recvSent(time.Second)
	require.True(t, ok)

	bad := protocol.NewEnvelope(protocol.RoleExporter, protocol.OpRendererCreate)
	bad.Frame.Version = 1012
	pipe.deliver(bad)

	require.Eventually(t, func() bool { return !c.Good() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.LastError(), ErrProtocolVersion)

	c.Send([]byte("should never be sent"))
	_, sent := pipe.recvSent(50 * time.Millisecond)
	assert.False(t, sent)
}

// S3: round trip — send, server echoes, callback fires exactly once.
func TestRoundTripDelivery(t *testing.T) {
	c, pipe := newTestClient(t, false)
	handshake(t, c, pipe, protocol.RoleExporter, protocol.OpExporterConnect, protocol.OpRendererCreate)

	received := make(chan []byte, 4)
	c.SetCallback(func(payload []byte) { received <- payload })

	c.Send([]byte("hello"))

	env, ok := pipe.recvSent(time.Second)
	require.True(t, ok)
	assert.Equal(t, protocol.OpData, env.Frame.Opcode)
	assert.Equal(t, []byte("hello"), env.Payload)

	pipe.deliver(protocol.NewDataEnvelope(protocol.RoleExporter, []byte("world")))

	select {
	case payload := <-received:
		assert.Equal(t, []byte("world"), payload)
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}

	select {
	case <-received:
		t.Fatal("callback fired more than once for one delivery")
	case <-time.After(50 * time.Millisecond):
	}
}

// S4: ping keepalive — idle for just over the ping interval, the peer
// observes at least one PING.
func TestPingKeepalive(t *testing.T) {
	c, pipe := newTestClient(t, false)
	handshake(t, c, pipe, protocol.RoleExporter, protocol.OpExporterConnect, protocol.OpRendererCreate)

	env, ok := pipe.recvSent(1200 * time.Millisecond)
	require.True(t, ok, "expected a ping within the idle window")
	assert.Equal(t, protocol.OpPing, env.Frame.Opcode)
	assert.Empty(t, env.Payload)
}

// S5: heartbeat disconnect — server silence beyond HEARTBEAT_TIMEOUT is
// terminal for a Heartbeat-role client.
func TestHeartbeatDisconnectsOnSilence(t *testing.T) {
	c, pipe := newTestClient(t, true)
	handshake(t, c, pipe, protocol.RoleHeartbeat, protocol.OpHeartbeatConnect, protocol.OpHeartbeatCreate)

	require.Eventually(t, func() bool { return !c.Good() }, 2600*time.Millisecond, 10*time.Millisecond)
}

// S6: flush on exit — queued payloads are all sent, in order, before the
// socket closes.
func TestFlushOnExitSendsAllQueuedPayloads(t *testing.T) {
	c, pipe := newTestClient(t, false)
	handshake(t, c, pipe, protocol.RoleExporter, protocol.OpExporterConnect, protocol.OpRendererCreate)

	for i := 0; i < 5; i++ {
		c.Send([]byte{byte(i)})
	}
	c.SetFlushOnExit(true)
	c.SyncStop()

	for i := 0; i < 5; i++ {
		env, ok := pipe.recvSent(time.Second)
		require.True(t, ok, "expected flushed payload %d", i)
		assert.Equal(t, protocol.OpData, env.Frame.Opcode)
		assert.Equal(t, []byte{byte(i)}, env.Payload)
	}
}

// Property 8: stop precedence — StopServer discards pending payloads and
// emits STOP instead of further DATA.
func TestStopServerDiscardsPendingPayloads(t *testing.T) {
	c, pipe := newTestClient(t, false)
	handshake(t, c, pipe, protocol.RoleExporter, protocol.OpExporterConnect, protocol.OpRendererCreate)

	c.Send([]byte("never sent"))
	c.StopServer()

	env, ok := pipe.recvSent(time.Second)
	require.True(t, ok)
	assert.Equal(t, protocol.OpStop, env.Frame.Opcode)

	_, sawData := pipe.recvSent(50 * time.Millisecond)
	assert.False(t, sawData)
}

// Property 4: at most one callback invocation in flight at a time, even
// under SetCallback replacement.
func TestCallbackReplacementSerializesWithDelivery(t *testing.T) {
	c, pipe := newTestClient(t, false)
	handshake(t, c, pipe, protocol.RoleExporter, protocol.OpExporterConnect, protocol.OpRendererCreate)

	started := make(chan struct{})
	release := make(chan struct{})
	c.SetCallback(func(payload []byte) {
		close(started)
		<-release
	})

	pipe.deliver(protocol.NewDataEnvelope(protocol.RoleExporter, []byte("first")))
	<-started

	swapped := make(chan struct{})
	go func() {
		c.SetCallback(func(payload []byte) {})
		close(swapped)
	}()

	select {
	case <-swapped:
		t.Fatal("SetCallback returned before the in-flight delivery finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-swapped:
	case <-time.After(time.Second):
		t.Fatal("SetCallback never returned after delivery finished")
	}
}

// Property 3 / FIFO delivery ordering.
func TestFIFODeliveryOrder(t *testing.T) {
	c, pipe := newTestClient(t, false)
	handshake(t, c, pipe, protocol.RoleExporter, protocol.OpExporterConnect, protocol.OpRendererCreate)

	for i := 0; i < 5; i++ {
		c.Send([]byte{byte(i)})
	}

	for i := 0; i < 5; i++ {
		env, ok := pipe.recvSent(time.Second)
		require.True(t, ok)
		assert.Equal(t, []byte{byte(i)}, env.Payload)
	}
}

func TestConnectedFalseOnConnectFailure(t *testing.T) {
	pipe := newPipeTransport()
	pipe.connectErr = errors.New("connection refused")
	c := New(false, withTransportFactory(func() (transport.Transport, error) { return pipe, nil }))
	defer c.SyncStop()

	c.Connect("not-a-real-address")
	require.Eventually(t, func() bool { return !c.Good() }, time.Second, time.Millisecond)
	assert.False(t, c.Connected())
}
