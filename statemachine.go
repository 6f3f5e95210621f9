package zmqclient

import (
	"fmt"
	"time"

	"github.com/9triver/zmqclient/internal/protocol"
	"github.com/9triver/zmqclient/internal/transport"
)

// runWorker is the worker harness (spec.md §4.6): it owns the transport
// socket exclusively from the moment it is created until Close, and walks
// the connection state machine's phases (spec.md §4.4) until the client is
// torn down.
func (c *Client) runWorker() {
	defer c.wg.Done()

	tr, err := c.cfg.newTransport()
	if err != nil {
		c.logger.WithError(err).Error("failed to create transport")
		c.flags.isWorking.Store(false)
		close(c.readyCh)
		return
	}

	if err := tr.SetLinger(0); err != nil {
		c.logger.WithError(err).Warn("failed to set linger")
	}
	if err := tr.SetSendTimeout(heartbeatTimeout); err != nil {
		c.logger.WithError(err).Warn("failed to set initial send timeout")
	}

	close(c.readyCh)

	p := phaseInit
	for p != phaseDone {
		c.reportPhase(p)
		switch p {
		case phaseInit:
			p = c.runInit(tr)
		case phaseHandshakeWait:
			p = c.runHandshake(tr)
		case phaseSteady:
			p = c.runSteady(tr)
		case phaseTeardown:
			c.runTeardown(tr)
			p = phaseDone
		}
	}
}

func (c *Client) reportPhase(p phase) {
	if c.cfg.metrics != nil {
		c.cfg.metrics.Phase.WithLabelValues(p.String()).Inc()
	}
}

// runInit blocks until Connect wakes it or the client is shut down before
// ever connecting.
func (c *Client) runInit(tr transport.Transport) phase {
	select {
	case req := <-c.connectCh:
		if err := tr.SetIdentity(req.identity); err != nil {
			c.logger.WithError(err).Error("failed to set socket identity")
			c.lastErr.store(fmt.Errorf("%w: %v", ErrConfiguration, err))
			c.flags.errorConnect.Store(true)
			return phaseTeardown
		}
		if err := tr.Connect(req.addr); err != nil {
			c.logger.WithError(err).WithField("addr", req.addr).Error("failed to connect")
			c.lastErr.store(fmt.Errorf("%w: %v", ErrConfiguration, err))
			c.flags.errorConnect.Store(true)
			return phaseTeardown
		}
		return phaseHandshakeWait
	case <-c.ctx.Done():
		return phaseTeardown
	}
}

// runHandshake sends the role-specific connect frame and waits for the
// matching create frame, per spec.md §4.4 "HANDSHAKE-WAIT".
func (c *Client) runHandshake(tr transport.Transport) phase {
	connectOp := protocol.OpExporterConnect
	createOp := protocol.OpRendererCreate
	if c.role == protocol.RoleHeartbeat {
		connectOp = protocol.OpHeartbeatConnect
		createOp = protocol.OpHeartbeatCreate
	}

	if err := tr.Send(protocol.NewEnvelope(c.role, connectOp)); err != nil {
		c.logger.WithError(err).Error("failed to send handshake")
		c.lastErr.store(fmt.Errorf("%w: %v", ErrConfiguration, err))
		c.handshakeOutcome("send_failed")
		return phaseTeardown
	}

	if err := tr.SetRecvTimeout(exporterTimeout); err != nil {
		c.logger.WithError(err).Warn("failed to set handshake receive timeout")
	}

	ready, err := tr.PollReadable(exporterTimeout)
	if err != nil {
		c.logger.WithError(err).Error("failed to poll for handshake reply")
		c.lastErr.store(fmt.Errorf("%w: %v", ErrConfiguration, err))
		c.handshakeOutcome("poll_failed")
		return phaseTeardown
	}
	if !ready {
		c.logger.Warn("server did not respond to handshake within timeout, stopping client")
		c.lastErr.store(ErrHandshakeTimeout)
		c.handshakeOutcome("timeout")
		return phaseTeardown
	}

	env, err := tr.Recv()
	if err != nil {
		c.logger.WithError(err).Error("failed to receive handshake reply")
		c.lastErr.store(fmt.Errorf("%w: %v", ErrConfiguration, err))
		c.handshakeOutcome("recv_failed")
		return phaseTeardown
	}

	if !env.Frame.Valid() {
		c.logger.WithField("peer_version", env.Frame.Version).Warn("server speaks an incompatible protocol version")
		c.lastErr.store(ErrProtocolVersion)
		c.handshakeOutcome("version_mismatch")
		return phaseTeardown
	}
	if env.Frame.Role != c.role {
		c.logger.Warn("server created a mismatching worker type for us")
		c.lastErr.store(ErrRoleMismatch)
		c.handshakeOutcome("role_mismatch")
		return phaseTeardown
	}
	if env.Frame.Opcode != createOp {
		c.logger.WithField("opcode", env.Frame.Opcode.String()).Warn("server responded with an unexpected handshake opcode")
		c.lastErr.store(ErrUnexpectedOpcode)
		c.handshakeOutcome("opcode_mismatch")
		return phaseTeardown
	}

	c.logger.Info("connected to server")
	c.handshakeOutcome("success")
	return phaseSteady
}

func (c *Client) handshakeOutcome(outcome string) {
	if c.cfg.metrics != nil {
		c.cfg.metrics.Handshake.WithLabelValues(outcome).Inc()
	}
}

// runSteady is the post-handshake poll loop described in spec.md §4.4
// "STEADY": each iteration services the readable branch, the writable
// branch, and (for Heartbeat clients) the liveness check, sleeping briefly
// only when none of those did any work.
func (c *Client) runSteady(tr transport.Transport) phase {
	lastPeerActivity := time.Now()
	lastPingSent := time.Now().Add(-2 * pingInterval) // force an immediate first ping

	for {
		if c.ctx.Err() != nil || !c.flags.isWorking.Load() {
			return phaseTeardown
		}

		didWork := false

		readable, err := tr.PollReadable(pollInterval)
		if err != nil {
			c.logger.WithError(err).Error("poll failed, stopping client")
			return phaseTeardown
		}
		if readable {
			didWork = true
			next, stop := c.drainInbound(tr, &lastPeerActivity)
			if stop {
				return next
			}
		}

		now := time.Now()
		if now.Sub(lastPingSent) > pingInterval {
			if err := tr.Send(protocol.NewEnvelope(c.role, protocol.OpPing)); err != nil {
				c.logger.WithError(err).Error("failed to send ping, stopping client")
				return phaseTeardown
			}
			lastPingSent = now
			didWork = true
			c.countSent()
		}

		sentAny, err := c.drainOutbound(tr, &lastPingSent)
		if err != nil {
			c.logger.WithError(err).Error("failed to send queued payload, stopping client")
			return phaseTeardown
		}
		didWork = didWork || sentAny

		if c.role == protocol.RoleHeartbeat && time.Since(lastPeerActivity) > heartbeatTimeout {
			c.logger.Warn("server unresponsive, stopping client")
			return phaseTeardown
		}

		if !didWork {
			time.Sleep(idleSleep)
		}
	}
}

// drainInbound reads up to maxConseqMessages envelopes in a row, stopping
// early once no more are immediately available. It returns (phaseTeardown,
// true) if a transport error forces the steady loop to end.
func (c *Client) drainInbound(tr transport.Transport, lastPeerActivity *time.Time) (phase, bool) {
	for i := 0; i < maxConseqMessages; i++ {
		env, err := tr.Recv()
		if err != nil {
			c.logger.WithError(err).Error("recv failed, stopping client")
			return phaseTeardown, true
		}
		c.countReceived()

		if !env.Frame.Valid() {
			c.logger.WithField("peer_version", env.Frame.Version).Warn("dropping frame with incompatible protocol version")
			c.countDropped("version_mismatch")
		} else if env.Frame.Role != c.role {
			c.logger.Warn("dropping frame with mismatching role")
			c.countDropped("role_mismatch")
		} else {
			*lastPeerActivity = time.Now()
			c.handleSteadyFrame(env)
		}

		more, err := tr.PollReadable(0)
		if err != nil || !more {
			break
		}
	}
	return phaseSteady, false
}

func (c *Client) handleSteadyFrame(env protocol.Envelope) {
	switch env.Frame.Opcode {
	case protocol.OpData:
		c.dispatch(env.Payload)
	case protocol.OpPing, protocol.OpPong:
		if len(env.Payload) != 0 {
			c.logger.Warn("missing empty frame after ping/pong")
		}
	default:
		c.logger.WithField("opcode", env.Frame.Opcode.String()).Warn("unexpected opcode in steady state")
	}
}

// drainOutbound drains up to maxConseqMessages payloads from the outbound
// queue as DATA envelopes, stopping on the first send failure or as soon
// as the client stops working (so StopServer discards what is still queued).
func (c *Client) drainOutbound(tr transport.Transport, lastPingSent *time.Time) (bool, error) {
	sentAny := false
	for i := 0; i < maxConseqMessages; i++ {
		if !c.flags.isWorking.Load() {
			break
		}
		payload, ok := c.queue.Front()
		if !ok {
			break
		}
		if err := tr.Send(protocol.NewDataEnvelope(protocol.RoleExporter, payload)); err != nil {
			return sentAny, err
		}
		c.queue.Pop()
		c.countSent()
		sentAny = true
		*lastPingSent = time.Now() // any outgoing frame counts as keepalive
		if c.cfg.metrics != nil {
			c.cfg.metrics.QueueDepth.Set(float64(c.queue.Size()))
		}
	}
	return sentAny, nil
}

func (c *Client) dispatch(payload []byte) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	if c.callback != nil {
		c.callback(payload)
	}
}

// runTeardown performs one of the three tails described in spec.md §4.4
// "TEARDOWN": emit STOP, flush the outbound queue, or neither, then close
// the transport and mark the worker no longer working.
func (c *Client) runTeardown(tr transport.Transport) {
	switch {
	case c.flags.serverStop.Load():
		if err := tr.SetSendTimeout(teardownSendTimeout); err != nil {
			c.logger.WithError(err).Warn("failed to set teardown send timeout")
		}
		if err := tr.Send(protocol.NewEnvelope(c.role, protocol.OpStop)); err != nil {
			c.logger.WithError(err).Warn("failed to send stop frame")
		} else {
			c.countSent()
		}
		c.flags.serverStop.Store(false)

	case c.flags.flushOnExit.Load():
		if err := tr.SetSendTimeout(teardownSendTimeout); err != nil {
			c.logger.WithError(err).Warn("failed to set teardown send timeout")
		}
		for _, payload := range c.queue.Drain() {
			if err := tr.Send(protocol.NewDataEnvelope(protocol.RoleExporter, payload)); err != nil {
				c.logger.WithError(err).Warn("failed to flush payload on exit")
				break
			}
			c.countSent()
		}
	}

	if err := tr.Close(); err != nil {
		c.logger.WithError(err).Warn("failed to close transport")
	}
	c.flags.isWorking.Store(false)
}

func (c *Client) countSent() {
	if c.cfg.metrics != nil {
		c.cfg.metrics.FramesSent.Inc()
	}
}

func (c *Client) countReceived() {
	if c.cfg.metrics != nil {
		c.cfg.metrics.FramesReceived.Inc()
	}
}

func (c *Client) countDropped(reason string) {
	if c.cfg.metrics != nil {
		c.cfg.metrics.FramesDropped.WithLabelValues(reason).Inc()
	}
}
