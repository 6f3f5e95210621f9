package zmqclient

import (
	"errors"
	"sync"
	"time"

	"github.com/9triver/zmqclient/internal/protocol"
	"github.com/9triver/zmqclient/internal/transport"
)

// pipeTransport is an in-memory stand-in for transport.Transport, driven
// directly by test code acting as the remote peer. It lets the state
// machine's timing and ordering invariants be exercised deterministically,
// without a real ZeroMQ context.
type pipeTransport struct {
	mu     sync.Mutex
	inbox  []protocol.Envelope
	notify chan struct{}

	outCh   chan protocol.Envelope
	closeCh chan struct{}
	closed  bool

	identity   uint64
	connectErr error
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{
		notify:  make(chan struct{}, 1),
		outCh:   make(chan protocol.Envelope, 64),
		closeCh: make(chan struct{}),
	}
}

var _ transport.Transport = (*pipeTransport)(nil)

func (p *pipeTransport) SetIdentity(id uint64) error {
	p.identity = id
	return nil
}

func (p *pipeTransport) Connect(addr string) error {
	return p.connectErr
}

func (p *pipeTransport) SetLinger(time.Duration) error      { return nil }
func (p *pipeTransport) SetSendTimeout(time.Duration) error { return nil }
func (p *pipeTransport) SetRecvTimeout(time.Duration) error { return nil }

func (p *pipeTransport) Send(env protocol.Envelope) error {
	select {
	case p.outCh <- env:
		return nil
	case <-p.closeCh:
		return errors.New("pipeTransport: closed")
	}
}

func (p *pipeTransport) Recv() (protocol.Envelope, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.inbox) == 0 {
		return protocol.Envelope{}, errors.New("pipeTransport: no message available")
	}
	env := p.inbox[0]
	p.inbox = p.inbox[1:]
	return env, nil
}

func (p *pipeTransport) PollReadable(timeout time.Duration) (bool, error) {
	if ready := p.hasInbox(); ready || timeout <= 0 {
		return ready, nil
	}
	select {
	case <-p.notify:
		return p.hasInbox(), nil
	case <-time.After(timeout):
		return false, nil
	case <-p.closeCh:
		return false, nil
	}
}

func (p *pipeTransport) hasInbox() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inbox) > 0
}

func (p *pipeTransport) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	close(p.closeCh)
	return nil
}

// deliver simulates the server sending env to the client.
func (p *pipeTransport) deliver(env protocol.Envelope) {
	p.mu.Lock()
	p.inbox = append(p.inbox, env)
	p.mu.Unlock()
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// recvSent waits up to timeout for the client to have sent an envelope,
// acting as the remote peer reading off the wire.
func (p *pipeTransport) recvSent(timeout time.Duration) (protocol.Envelope, bool) {
	select {
	case env := <-p.outCh:
		return env, true
	case <-time.After(timeout):
		return protocol.Envelope{}, false
	}
}
