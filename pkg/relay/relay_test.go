package relay

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avaneesh/osc-relay/pkg/channel"
	"avaneesh/osc-relay/pkg/config"
	"avaneesh/osc-relay/pkg/fanout"
	"avaneesh/osc-relay/pkg/internal/logger"
	"avaneesh/osc-relay/pkg/osc"
	"avaneesh/osc-relay/pkg/reassembler"
)

// startRelay runs r in the background and stops it when the test ends
func startRelay(t *testing.T, r *Relay) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("relay did not stop")
		}
		r.Close()
	})
}

func newParserRelay(t *testing.T, log logger.Logger) (*Relay, *mockChannel, *mockChannel) {
	t.Helper()
	listen, target := newMockChannel(), newMockChannel()

	d := channel.NewDispatcher()
	require.NoError(t, d.Map("/wek/outputs", SplitterHandler(fanout.New("/parsed/output-", log))))
	return New("parser", listen, target, d, log), listen, target
}

func newReassemblerRelay(t *testing.T, count int, log logger.Logger) (*Relay, *mockChannel, *mockChannel) {
	t.Helper()
	listen, target := newMockChannel(), newMockChannel()

	r, err := reassembler.New(reassembler.Config{
		InputPrefix:   "/parsed/output-",
		OutputAddress: "/wek/outputs",
		ValueCount:    count,
	}, log)
	require.NoError(t, err)

	d := channel.NewDispatcher()
	require.NoError(t, d.MapPrefix("/parsed/output-", ReassemblerHandler(r)))
	return New("reassembler", listen, target, d, log), listen, target
}

func TestRelay_ParserFansOut(t *testing.T) {
	r, listen, target := newParserRelay(t, nil)
	startRelay(t, r)

	listen.inject(t, osc.NewMessage("/wek/outputs",
		float32(0.1), float32(0.2), float32(0.3), float32(0.4), float32(0.5)))

	for i, want := range []float32{0.1, 0.2, 0.3, 0.4, 0.5} {
		msg := target.next(t)
		assert.Equal(t, wireAddress(i+1), msg.Address)
		assert.Equal(t, []interface{}{want}, msg.Arguments)
	}
}

func TestRelay_TransportStatistics(t *testing.T) {
	r, listen, target := newParserRelay(t, nil)
	startRelay(t, r)

	in, err := osc.NewMessage("/wek/outputs", float32(1)).Serialize()
	require.NoError(t, err)
	listen.readChan <- in
	out := target.next(t)

	outData, err := out.Serialize()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, targetStats := r.TransportStatistics()
		return targetStats.BytesSent == uint64(len(outData))
	}, 2*time.Second, 10*time.Millisecond)

	listenStats, _ := r.TransportStatistics()
	assert.Equal(t, uint64(len(in)), listenStats.BytesReceived)
}

func wireAddress(n int) string {
	return "/parsed/output-" + string(rune('0'+n))
}

func TestRelay_ParserIgnoresOtherAddresses(t *testing.T) {
	r, listen, target := newParserRelay(t, nil)
	startRelay(t, r)

	listen.inject(t, osc.NewMessage("/wek/other", float32(1)))
	listen.inject(t, osc.NewMessage("/wek/outputs/extra", float32(1)))
	listen.inject(t, osc.NewMessage("/wek/outputs"))
	listen.inject(t, osc.NewMessage("/wek/outputs", int32(7)))

	msg := target.next(t)
	assert.Equal(t, "/parsed/output-1", msg.Address)
	assert.Equal(t, []interface{}{int32(7)}, msg.Arguments)
	target.none(t)

	stats := r.Statistics()
	assert.Equal(t, uint64(4), stats.MessagesRx)
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, uint64(1), stats.MessagesTx)
}

func TestRelay_ReassemblerSequence(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, logger.LevelInfo)
	r, listen, target := newReassemblerRelay(t, 5, log)
	startRelay(t, r)

	listen.inject(t, osc.NewMessage("/parsed/output-1", float32(0.1)))
	listen.inject(t, osc.NewMessage("/parsed/output-2", float32(0.2)))
	listen.inject(t, osc.NewMessage("/parsed/output-abc", float32(1.0)))
	listen.inject(t, osc.NewMessage("/parsed/output-3", float32(0.3)))
	listen.inject(t, osc.NewMessage("/parsed/output-4", float32(0.4)))
	listen.inject(t, osc.NewMessage("/parsed/output-9", float32(9)))
	listen.inject(t, osc.NewMessage("/parsed/output-5", float32(0.5)))

	msg := target.next(t)
	assert.Equal(t, osc.NewMessage("/wek/outputs",
		float32(0.1), float32(0.2), float32(0.3), float32(0.4), float32(0.5)), msg)

	listen.inject(t, osc.NewMessage("/parsed/output-3", float32(9.9)))
	msg = target.next(t)
	assert.Equal(t, osc.NewMessage("/wek/outputs",
		float32(0.1), float32(0.2), float32(9.9), float32(0.4), float32(0.5)), msg)
	target.none(t)

	stats := r.Statistics()
	assert.Equal(t, uint64(2), stats.Rejected)
	assert.Equal(t, uint64(2), stats.MessagesTx)
	assert.Contains(t, buf.String(), "does not end with an integer index")
	assert.Contains(t, buf.String(), "outside 1..5")
}

func TestRelay_BundleMessagesProcessedInOrder(t *testing.T) {
	r, listen, target := newReassemblerRelay(t, 2, nil)
	startRelay(t, r)

	data, err := osc.SerializeBundle(
		osc.NewMessage("/parsed/output-1", int32(1)),
		osc.NewMessage("/parsed/output-2", int32(2)),
		osc.NewMessage("/parsed/output-1", int32(3)),
	)
	require.NoError(t, err)
	listen.readChan <- data

	assert.Equal(t, []interface{}{int32(1), int32(2)}, target.next(t).Arguments)
	assert.Equal(t, []interface{}{int32(3), int32(2)}, target.next(t).Arguments)
}

func TestRelay_UndecodablePacketIsSkipped(t *testing.T) {
	r, listen, target := newParserRelay(t, nil)
	startRelay(t, r)

	listen.readChan <- []byte{'/', 'a', 0, 0, ',', 'z', 0, 0, 'x', 0, 0, 0}
	listen.inject(t, osc.NewMessage("/wek/outputs", float32(1)))

	assert.Equal(t, "/parsed/output-1", target.next(t).Address)
	assert.Equal(t, uint64(1), r.Statistics().DecodeErrors)
}

func TestRelay_WriteErrorsDoNotStopLoop(t *testing.T) {
	r, listen, target := newParserRelay(t, nil)
	target.writeErr = errors.New("network unreachable")
	startRelay(t, r)

	listen.inject(t, osc.NewMessage("/wek/outputs", float32(1), float32(2)))

	require.Eventually(t, func() bool {
		return r.Statistics().WriteErrors == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(0), r.Statistics().MessagesTx)
}

func TestRelay_RunReturnsWhenListenCloses(t *testing.T) {
	r, listen, _ := newParserRelay(t, nil)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	listen.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, channel.ErrChannelClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelay_CloseReleasesBothChannels(t *testing.T) {
	r, listen, target := newParserRelay(t, nil)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.True(t, listen.closed)
	assert.True(t, target.closed)
}

func TestNew_GeneratesID(t *testing.T) {
	a := New("", newMockChannel(), newMockChannel(), channel.NewDispatcher(), nil)
	b := New("", newMockChannel(), newMockChannel(), channel.NewDispatcher(), nil)

	assert.Len(t, a.ID(), 36)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "fixed", New("fixed", newMockChannel(), newMockChannel(), channel.NewDispatcher(), nil).ID())
}

// TestReassembler_OverUDP runs the full reassembler stack on loopback sockets
func TestReassembler_OverUDP(t *testing.T) {
	sink, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer sink.Close()

	cfg := config.DefaultReassemblerConfig()
	cfg.Listen = config.Endpoint{Host: "127.0.0.1", Port: 0}
	cfg.Target = config.Endpoint{Host: "127.0.0.1", Port: sink.LocalAddr().(*net.UDPAddr).Port}
	cfg.ValueCount = 2

	r, err := NewReassembler(cfg, nil)
	require.NoError(t, err)
	startRelay(t, r)

	listenAddr := r.listen.(*channel.UDPChannel).LocalAddr().(*net.UDPAddr)
	src, err := net.DialUDP("udp", nil, listenAddr)
	require.NoError(t, err)
	defer src.Close()

	for i, v := range []float32{0.25, 0.75} {
		data, err := osc.NewMessage(wireAddress(i+1), v).Serialize()
		require.NoError(t, err)
		_, err = src.Write(data)
		require.NoError(t, err)
	}

	require.NoError(t, sink.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, osc.MaxPacketSize)
	n, _, err := sink.ReadFromUDP(buf)
	require.NoError(t, err)

	msg, err := osc.ParseMessage(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, osc.NewMessage("/wek/outputs", float32(0.25), float32(0.75)), msg)
}

func TestNewParser_InvalidConfig(t *testing.T) {
	cfg := config.DefaultParserConfig()
	cfg.OutputPrefix = ""

	_, err := NewParser(cfg, nil)
	assert.Error(t, err)
}

func TestNewParser_BindFailure(t *testing.T) {
	taken, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer taken.Close()

	cfg := config.DefaultParserConfig()
	cfg.Listen = config.Endpoint{Host: "127.0.0.1", Port: taken.LocalAddr().(*net.UDPAddr).Port}

	_, err = NewParser(cfg, nil)
	assert.Error(t, err)
}
