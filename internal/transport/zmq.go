package transport

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/9triver/zmqclient/internal/protocol"
	"gopkg.in/zeromq/goczmq.v4"
)

// Dealer is the ZeroMQ DEALER implementation of Transport, built on
// goczmq. goczmq's Poller (backed by CZMQ's zpoller) only reports read
// readiness, not write readiness — unlike the raw zmq_poll the original
// C++ client used with ZMQ_POLLIN|ZMQ_POLLOUT. A DEALER socket accepts
// sends as long as its outbound queue hasn't hit its high-water mark, so
// Send here relies on the send timeout set via SetSendTimeout rather than
// an explicit writable-poll; see DESIGN.md for the full rationale.
type Dealer struct {
	sock   *goczmq.Sock
	poller *goczmq.Poller
	closed bool
}

// NewDealer creates an unconnected DEALER socket.
func NewDealer() (*Dealer, error) {
	sock := goczmq.NewSock(goczmq.Dealer)
	if sock == nil {
		return nil, fmt.Errorf("transport: failed to create DEALER socket")
	}
	poller, err := goczmq.NewPoller(sock)
	if err != nil {
		sock.Destroy()
		return nil, fmt.Errorf("transport: failed to create poller: %w", err)
	}
	return &Dealer{sock: sock, poller: poller}, nil
}

func (d *Dealer) SetIdentity(id uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return d.sock.SetIdentity(string(b[:]))
}

func (d *Dealer) Connect(addr string) error {
	return d.sock.Connect(addr)
}

func (d *Dealer) SetLinger(v time.Duration) error {
	d.sock.SetLinger(int(v.Milliseconds()))
	return nil
}

func (d *Dealer) SetSendTimeout(v time.Duration) error {
	d.sock.SetSndtimeo(int(v.Milliseconds()))
	return nil
}

func (d *Dealer) SetRecvTimeout(v time.Duration) error {
	d.sock.SetRcvtimeo(int(v.Milliseconds()))
	return nil
}

func (d *Dealer) Send(env protocol.Envelope) error {
	return d.sock.SendMessage([][]byte{env.Frame.Encode(), env.Payload})
}

func (d *Dealer) Recv() (protocol.Envelope, error) {
	parts, err := d.sock.RecvMessage()
	if err != nil {
		return protocol.Envelope{}, err
	}
	if len(parts) == 0 {
		return protocol.Envelope{}, fmt.Errorf("transport: empty message from peer")
	}
	frame := protocol.Decode(parts[0])
	var payload []byte
	if len(parts) > 1 {
		payload = parts[1]
	}
	return protocol.Envelope{Frame: frame, Payload: payload}, nil
}

func (d *Dealer) PollReadable(timeout time.Duration) (bool, error) {
	ready := d.poller.Wait(int(timeout.Milliseconds()))
	return ready != nil, nil
}

func (d *Dealer) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.poller.Destroy()
	d.sock.Destroy()
	return nil
}
