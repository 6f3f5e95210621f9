// Package protocol implements the fixed-width control frame that precedes
// every payload exchanged with the server, and the two-part envelope built
// from it.
package protocol

import (
	"encoding/binary"
)

// Version is the wire protocol version this client speaks. A frame whose
// version does not match is invalid, whichever side produced it.
const Version int32 = 1013

// Role identifies which kind of client sent a frame.
type Role int32

const (
	RoleNone Role = iota
	RoleExporter
	RoleHeartbeat
)

func (r Role) String() string {
	switch r {
	case RoleExporter:
		return "exporter"
	case RoleHeartbeat:
		return "heartbeat"
	default:
		return "none"
	}
}

// Opcode names the control message carried by a frame.
type Opcode int32

const (
	OpData Opcode = 0

	OpExporterConnect  Opcode = 1000
	OpHeartbeatConnect Opcode = 1001

	OpRendererCreate  Opcode = 2000
	OpHeartbeatCreate Opcode = 2001

	OpPing Opcode = 3000
	OpPong Opcode = 3001

	OpStop Opcode = 4000
)

func (o Opcode) String() string {
	switch o {
	case OpData:
		return "DATA"
	case OpExporterConnect:
		return "EXPORTER_CONNECT"
	case OpHeartbeatConnect:
		return "HEARTBEAT_CONNECT"
	case OpRendererCreate:
		return "RENDERER_CREATE"
	case OpHeartbeatCreate:
		return "HEARTBEAT_CREATE"
	case OpPing:
		return "PING"
	case OpPong:
		return "PONG"
	case OpStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// frameSize is the on-wire width of a ControlFrame: three little-endian
// int32 fields, version/role/opcode, in that order.
const frameSize = 12

// ControlFrame is the fixed-width record that precedes every Payload.
// A ControlFrame with Version == -1 is the decoder's sentinel for "the
// bytes I was given could not possibly be a frame" (see Decode).
type ControlFrame struct {
	Version int32
	Role    Role
	Opcode  Opcode
}

// NewControlFrame builds a valid frame for role/opcode.
func NewControlFrame(role Role, opcode Opcode) ControlFrame {
	return ControlFrame{Version: Version, Role: role, Opcode: opcode}
}

// Valid reports whether the frame carries the protocol version this client
// understands. An invalid frame is never acted on beyond logging.
func (f ControlFrame) Valid() bool {
	return f.Version == Version
}

// Encode renders the frame to its exact on-wire width.
func (f ControlFrame) Encode() []byte {
	buf := make([]byte, frameSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.Version))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(f.Role))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(f.Opcode))
	return buf
}

// Decode reconstructs a ControlFrame from exactly frameSize bytes. Any other
// length is not a protocol error to be returned — per spec, it's a sentinel
// invalid frame, since the peer that sent junk is the thing to log about,
// not a reason to abort the caller's loop with an error value.
func Decode(b []byte) ControlFrame {
	if len(b) != frameSize {
		return ControlFrame{Version: -1}
	}
	return ControlFrame{
		Version: int32(binary.LittleEndian.Uint32(b[0:4])),
		Role:    Role(binary.LittleEndian.Uint32(b[4:8])),
		Opcode:  Opcode(binary.LittleEndian.Uint32(b[8:12])),
	}
}
