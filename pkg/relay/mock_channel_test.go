package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"avaneesh/osc-relay/pkg/channel"
	"avaneesh/osc-relay/pkg/osc"
)

// mockChannel is an in-memory PhysicalChannel
type mockChannel struct {
	readChan  chan []byte
	writeChan chan []byte
	closeChan chan struct{}
	closed    bool
	mu        sync.RWMutex
	stats     channel.TransportStats
	writeErr  error
}

func newMockChannel() *mockChannel {
	return &mockChannel{
		readChan:  make(chan []byte, 64),
		writeChan: make(chan []byte, 64),
		closeChan: make(chan struct{}),
	}
}

func (m *mockChannel) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.closeChan:
		return nil, channel.ErrChannelClosed
	case data := <-m.readChan:
		m.mu.Lock()
		m.stats.BytesReceived += uint64(len(data))
		m.mu.Unlock()
		return data, nil
	}
}

func (m *mockChannel) Write(ctx context.Context, data []byte) error {
	m.mu.RLock()
	closed, writeErr := m.closed, m.writeErr
	m.mu.RUnlock()
	if closed {
		return channel.ErrChannelClosed
	}
	if writeErr != nil {
		return writeErr
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.writeChan <- data:
		m.mu.Lock()
		m.stats.BytesSent += uint64(len(data))
		m.mu.Unlock()
		return nil
	}
}

func (m *mockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.closeChan)
	return nil
}

func (m *mockChannel) Statistics() channel.TransportStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *mockChannel) SetConnectionStateListener(listener channel.ConnectionStateListener) {}

// inject serializes msg and queues it for Read
func (m *mockChannel) inject(t *testing.T, msg *osc.Message) {
	t.Helper()
	data, err := msg.Serialize()
	require.NoError(t, err)
	m.readChan <- data
}

// next waits for the next written message
func (m *mockChannel) next(t *testing.T) *osc.Message {
	t.Helper()
	select {
	case data := <-m.writeChan:
		msg, err := osc.ParseMessage(data)
		require.NoError(t, err)
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for output")
		return nil
	}
}

// none asserts nothing is written within a short window
func (m *mockChannel) none(t *testing.T) {
	t.Helper()
	select {
	case data := <-m.writeChan:
		msg, _ := osc.ParseMessage(data)
		t.Fatalf("unexpected output %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
