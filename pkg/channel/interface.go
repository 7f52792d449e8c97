package channel

import (
	"context"
	"errors"
)

var (
	ErrChannelClosed = errors.New("channel is closed")
	ErrNoPeer        = errors.New("no peer address available")
)

// ConnectionStateListener receives notifications about connection state changes
type ConnectionStateListener interface {
	// OnConnectionEstablished is called when a new connection is established
	OnConnectionEstablished()

	// OnConnectionLost is called when a connection is lost
	OnConnectionLost()
}

// PhysicalChannel carries whole OSC packets over some transport.
// There is one implementation per Kind in this package; tests supply fakes.
type PhysicalChannel interface {
	// Read returns the next OSC packet.
	// Blocks until a packet arrives, the context is cancelled or the channel is closed.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one OSC packet to the channel's destination
	Write(ctx context.Context, data []byte) error

	// Close releases the underlying socket and unblocks pending Read/Write.
	// Calling Close more than once is a no-op.
	Close() error

	// Statistics returns transport-level statistics
	Statistics() TransportStats

	// SetConnectionStateListener sets a listener for connection state changes.
	// Connectionless transports ignore it.
	SetConnectionStateListener(listener ConnectionStateListener)
}

// TransportStats provides transport-level statistics
type TransportStats struct {
	BytesSent     uint64 // Total bytes sent
	BytesReceived uint64 // Total bytes received
	WriteErrors   uint64 // Number of write errors
	ReadErrors    uint64 // Number of read errors, including discarded datagrams
	Connects      uint64 // Number of connections (sockets bound for UDP)
	Disconnects   uint64 // Number of disconnections
}

// Kind names a transport implementation
type Kind string

const (
	KindUDP  Kind = "udp"
	KindTCP  Kind = "tcp"
	KindQUIC Kind = "quic"
)

// ParseKind validates a transport name
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindUDP, KindTCP, KindQUIC:
		return Kind(s), nil
	default:
		return "", errors.New("unknown transport " + s + " (want udp, tcp or quic)")
	}
}

// Open creates a channel of the given kind.
// Server channels bind address and receive; client channels send to address.
func Open(kind Kind, address string, isServer bool) (PhysicalChannel, error) {
	switch kind {
	case KindTCP:
		return NewTCPChannel(TCPChannelConfig{Address: address, IsServer: isServer})
	case KindQUIC:
		return NewQUICChannel(QUICChannelConfig{Address: address, IsServer: isServer})
	case KindUDP, "":
		return NewUDPChannel(UDPChannelConfig{Address: address, IsServer: isServer})
	default:
		return nil, errors.New("unknown transport " + string(kind))
	}
}
