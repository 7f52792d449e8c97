package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// TCPChannel implements PhysicalChannel for OSC over TCP using the OSC 1.0
// size-prefixed stream framing. A server keeps only the newest peer.
type TCPChannel struct {
	// Connection
	conn     net.Conn
	connLock sync.RWMutex

	// Configuration
	address        string
	isServer       bool
	listener       net.Listener
	reconnectDelay time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration

	// Connection state listener
	stateListener     ConnectionStateListener
	stateListenerLock sync.RWMutex

	// Statistics
	stats struct {
		bytesSent     atomic.Uint64
		bytesReceived atomic.Uint64
		writeErrors   atomic.Uint64
		readErrors    atomic.Uint64
		connects      atomic.Uint64
		disconnects   atomic.Uint64
	}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// TCPChannelConfig configures a TCP channel
type TCPChannelConfig struct {
	Address        string        // "host:port" format
	IsServer       bool          // true = listen, false = connect
	ReconnectDelay time.Duration // Delay between reconnection attempts (client only)
	ReadTimeout    time.Duration // Deadline used to poll for cancellation (0 = 500ms)
	WriteTimeout   time.Duration // Write timeout (0 = 5s)
}

// NewTCPChannel creates a new TCP channel
func NewTCPChannel(config TCPChannelConfig) (*TCPChannel, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	if config.ReconnectDelay == 0 {
		config.ReconnectDelay = 2 * time.Second
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 500 * time.Millisecond
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	tc := &TCPChannel{
		address:        config.Address,
		isServer:       config.IsServer,
		reconnectDelay: config.ReconnectDelay,
		readTimeout:    config.ReadTimeout,
		writeTimeout:   config.WriteTimeout,
		ctx:            ctx,
		cancel:         cancel,
	}

	var err error
	if config.IsServer {
		err = tc.startServer()
	} else {
		err = tc.connect()
	}
	if err != nil {
		cancel()
		return nil, err
	}

	return tc, nil
}

// startServer starts listening for incoming connections
func (tc *TCPChannel) startServer() error {
	listener, err := net.Listen("tcp", tc.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", tc.address, err)
	}
	tc.listener = listener

	tc.wg.Add(1)
	go tc.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections; the newest one replaces the old
func (tc *TCPChannel) acceptLoop() {
	defer tc.wg.Done()

	for {
		conn, err := tc.listener.Accept()
		if err != nil {
			if tc.closed.Load() {
				return
			}
			select {
			case <-tc.ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		tc.swapConn(conn)
	}
}

// connect establishes the initial client connection
func (tc *TCPChannel) connect() error {
	conn, err := net.DialTimeout("tcp", tc.address, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", tc.address, err)
	}
	tc.swapConn(conn)

	tc.wg.Add(1)
	go tc.reconnectLoop()

	return nil
}

// reconnectLoop redials after the client connection was dropped
func (tc *TCPChannel) reconnectLoop() {
	defer tc.wg.Done()

	for {
		select {
		case <-tc.ctx.Done():
			return
		case <-time.After(tc.reconnectDelay):
		}

		tc.connLock.RLock()
		alive := tc.conn != nil
		tc.connLock.RUnlock()
		if alive {
			continue
		}

		conn, err := net.DialTimeout("tcp", tc.address, 10*time.Second)
		if err != nil {
			continue
		}
		tc.swapConn(conn)
	}
}

// swapConn installs conn as the active connection, closing the previous one
func (tc *TCPChannel) swapConn(conn net.Conn) {
	tc.connLock.Lock()
	replaced := tc.conn != nil
	if replaced {
		tc.conn.Close()
		tc.stats.disconnects.Add(1)
	}
	tc.conn = conn
	tc.stats.connects.Add(1)
	tc.connLock.Unlock()

	if replaced {
		tc.notifyConnectionLost()
	}
	tc.notifyConnectionEstablished()
}

// dropConn closes conn if it is still the active connection
func (tc *TCPChannel) dropConn(conn net.Conn) {
	tc.connLock.Lock()
	dropped := tc.conn == conn
	if dropped {
		tc.conn.Close()
		tc.stats.disconnects.Add(1)
		tc.conn = nil
	}
	tc.connLock.Unlock()

	if dropped {
		tc.notifyConnectionLost()
	}
}

// Read implements PhysicalChannel.Read
func (tc *TCPChannel) Read(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tc.ctx.Done():
			return nil, ErrChannelClosed
		default:
		}

		tc.connLock.RLock()
		conn := tc.conn
		tc.connLock.RUnlock()

		if conn == nil {
			select {
			case <-time.After(100 * time.Millisecond):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-tc.ctx.Done():
				return nil, ErrChannelClosed
			}
		}

		// Poll with a deadline only while no frame has started; a partial
		// frame read under deadline would lose framing.
		conn.SetReadDeadline(time.Now().Add(tc.readTimeout))
		one := make([]byte, 1)
		if _, err := conn.Read(one); err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if tc.closed.Load() {
				return nil, ErrChannelClosed
			}
			tc.stats.readErrors.Add(1)
			tc.dropConn(conn)
			continue
		}

		// A frame has started; cancelling ctx now fails the read and the
		// half-read connection is dropped.
		conn.SetReadDeadline(time.Time{})
		stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
		packet, err := readFrame(&prefixedReader{first: one[0], r: conn})
		stop()
		if err != nil {
			if tc.closed.Load() {
				return nil, ErrChannelClosed
			}
			tc.dropConn(conn)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			tc.stats.readErrors.Add(1)
			continue
		}

		tc.stats.bytesReceived.Add(uint64(4 + len(packet)))
		return packet, nil
	}
}

// prefixedReader replays one already-consumed byte before reading from r
type prefixedReader struct {
	first byte
	done  bool
	r     net.Conn
}

func (p *prefixedReader) Read(b []byte) (int, error) {
	if !p.done && len(b) > 0 {
		b[0] = p.first
		p.done = true
		return 1, nil
	}
	return p.r.Read(b)
}

// Write implements PhysicalChannel.Write
func (tc *TCPChannel) Write(ctx context.Context, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tc.ctx.Done():
		return ErrChannelClosed
	default:
	}

	framed, err := frame(data)
	if err != nil {
		tc.stats.writeErrors.Add(1)
		return err
	}

	tc.connLock.RLock()
	conn := tc.conn
	tc.connLock.RUnlock()

	if conn == nil {
		tc.stats.writeErrors.Add(1)
		return ErrNoPeer
	}

	if tc.writeTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(tc.writeTimeout))
	}

	if _, err := conn.Write(framed); err != nil {
		tc.stats.writeErrors.Add(1)
		tc.dropConn(conn)
		return err
	}

	tc.stats.bytesSent.Add(uint64(len(framed)))
	return nil
}

// Close implements PhysicalChannel.Close
func (tc *TCPChannel) Close() error {
	if !tc.closed.CompareAndSwap(false, true) {
		return nil
	}

	tc.cancel()

	if tc.listener != nil {
		tc.listener.Close()
	}

	tc.connLock.Lock()
	if tc.conn != nil {
		tc.conn.Close()
		tc.stats.disconnects.Add(1)
		tc.conn = nil
	}
	tc.connLock.Unlock()

	tc.wg.Wait()

	return nil
}

// Statistics implements PhysicalChannel.Statistics
func (tc *TCPChannel) Statistics() TransportStats {
	return TransportStats{
		BytesSent:     tc.stats.bytesSent.Load(),
		BytesReceived: tc.stats.bytesReceived.Load(),
		WriteErrors:   tc.stats.writeErrors.Load(),
		ReadErrors:    tc.stats.readErrors.Load(),
		Connects:      tc.stats.connects.Load(),
		Disconnects:   tc.stats.disconnects.Load(),
	}
}

// SetConnectionStateListener sets a listener for connection state changes
func (tc *TCPChannel) SetConnectionStateListener(listener ConnectionStateListener) {
	tc.stateListenerLock.Lock()
	defer tc.stateListenerLock.Unlock()
	tc.stateListener = listener
}

func (tc *TCPChannel) notifyConnectionEstablished() {
	tc.stateListenerLock.RLock()
	listener := tc.stateListener
	tc.stateListenerLock.RUnlock()

	if listener != nil {
		listener.OnConnectionEstablished()
	}
}

func (tc *TCPChannel) notifyConnectionLost() {
	tc.stateListenerLock.RLock()
	listener := tc.stateListener
	tc.stateListenerLock.RUnlock()

	if listener != nil {
		listener.OnConnectionLost()
	}
}
