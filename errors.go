package zmqclient

import "errors"

// Sentinel errors for the handful of places this package's new surface
// (beyond the spec's deliberately non-erroring facade methods) needs
// callers to branch with errors.Is on the value Client.LastError returns.
var (
	// ErrConfiguration reports an address or identity the transport
	// rejected (malformed address, etc.) — spec.md's ConfigurationError. It
	// also wraps transport failures while handshaking (sending the connect
	// frame, polling for or receiving the reply).
	ErrConfiguration = errors.New("zmqclient: configuration error")

	// ErrProtocolVersion is returned internally when a handshake reply
	// does not carry the version this client speaks.
	ErrProtocolVersion = errors.New("zmqclient: protocol version mismatch")

	// ErrRoleMismatch is returned internally when a handshake reply does
	// not echo this client's role.
	ErrRoleMismatch = errors.New("zmqclient: role mismatch")

	// ErrUnexpectedOpcode is returned internally when a handshake reply
	// carries the wrong create opcode for this client's role.
	ErrUnexpectedOpcode = errors.New("zmqclient: unexpected handshake opcode")

	// ErrHandshakeTimeout is returned internally when the server does not
	// reply to the connect frame within the exporter timeout.
	ErrHandshakeTimeout = errors.New("zmqclient: handshake timed out")
)
