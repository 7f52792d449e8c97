package reassembler

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avaneesh/osc-relay/pkg/address"
	"avaneesh/osc-relay/pkg/osc"
)

func newTestReassembler(t *testing.T, count int) *Reassembler {
	t.Helper()
	r, err := New(Config{
		InputPrefix:   "/parsed/output-",
		OutputAddress: "/wek/outputs",
		ValueCount:    count,
	}, nil)
	require.NoError(t, err)
	return r
}

func feed(t *testing.T, r *Reassembler, addr string, value interface{}) *osc.Message {
	t.Helper()
	out, err := r.Handle(osc.NewMessage(addr, value))
	require.NoError(t, err)
	return out
}

func TestReassembler_EmitsOnceCompleteAndOnEveryUpdateAfter(t *testing.T) {
	r := newTestReassembler(t, 5)

	assert.Nil(t, feed(t, r, "/parsed/output-1", float32(0.1)))
	assert.Nil(t, feed(t, r, "/parsed/output-2", float32(0.2)))
	assert.Nil(t, feed(t, r, "/parsed/output-3", float32(0.3)))
	assert.Nil(t, feed(t, r, "/parsed/output-4", float32(0.4)))
	assert.False(t, r.Complete())

	out := feed(t, r, "/parsed/output-5", float32(0.5))
	require.NotNil(t, out)
	assert.Equal(t, osc.NewMessage("/wek/outputs",
		float32(0.1), float32(0.2), float32(0.3), float32(0.4), float32(0.5)), out)
	assert.True(t, r.Complete())

	// A single-slot update re-emits with the stale values of the others
	out = feed(t, r, "/parsed/output-3", float32(9.9))
	require.NotNil(t, out)
	assert.Equal(t, osc.NewMessage("/wek/outputs",
		float32(0.1), float32(0.2), float32(9.9), float32(0.4), float32(0.5)), out)
}

func TestReassembler_NoEmissionUntilEverySlotSeen(t *testing.T) {
	r := newTestReassembler(t, 3)

	// Repeated updates to the same slots never complete the table
	for i := 0; i < 10; i++ {
		assert.Nil(t, feed(t, r, "/parsed/output-1", int32(i)))
		assert.Nil(t, feed(t, r, "/parsed/output-3", int32(i)))
	}
	assert.Equal(t, []int{2}, r.Missing())

	out := feed(t, r, "/parsed/output-2", int32(100))
	require.NotNil(t, out)
	assert.Equal(t, []interface{}{int32(9), int32(100), int32(9)}, out.Arguments)
	assert.Empty(t, r.Missing())
}

func TestReassembler_SingleSlotEmitsEveryMessage(t *testing.T) {
	r := newTestReassembler(t, 1)

	for i := 0; i < 3; i++ {
		out := feed(t, r, "/parsed/output-1", float64(i))
		require.NotNil(t, out)
		assert.Equal(t, []interface{}{float64(i)}, out.Arguments)
	}
}

func TestReassembler_CompletenessIsMonotonic(t *testing.T) {
	r := newTestReassembler(t, 2)
	feed(t, r, "/parsed/output-1", float32(1))
	feed(t, r, "/parsed/output-2", float32(2))
	require.True(t, r.Complete())

	inputs := []*osc.Message{
		osc.NewMessage("/parsed/output-9", float32(1)),
		osc.NewMessage("/parsed/output-abc", float32(1)),
		osc.NewMessage("/other", float32(1)),
		osc.NewMessage("/parsed/output-1"),
		osc.NewMessage("/parsed/output-2", float32(5)),
	}
	for _, msg := range inputs {
		_, _ = r.Handle(msg)
		assert.True(t, r.Complete(), "after %s", msg)
	}
}

func TestReassembler_InvalidMessagesLeaveTableUntouched(t *testing.T) {
	tests := []struct {
		name string
		msg  *osc.Message
		want error
	}{
		{"malformed suffix", osc.NewMessage("/parsed/output-abc", float32(1.0)), address.ErrAddressMalformed},
		{"wire index zero", osc.NewMessage("/parsed/output-0", float32(1.0)), ErrIndexOutOfRange},
		{"index past count", osc.NewMessage("/parsed/output-6", float32(1.0)), ErrIndexOutOfRange},
		{"index too large for int", osc.NewMessage("/parsed/output-99999999999", float32(1.0)), ErrIndexOutOfRange},
		{"other prefix", osc.NewMessage("/wek/outputs", float32(1.0)), address.ErrAddressMismatch},
		{"no payload", osc.NewMessage("/parsed/output-1"), ErrNoPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReassembler(t, 5)
			feed(t, r, "/parsed/output-2", float32(0.2))
			before := r.Values()

			out, err := r.Handle(tt.msg)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
			assert.Equal(t, before, r.Values())
			assert.False(t, r.Complete())
			assert.Equal(t, []int{1, 3, 4, 5}, r.Missing())
		})
	}
}

func TestReassembler_HugeIndexReportedAsOutOfRange(t *testing.T) {
	r := newTestReassembler(t, 5)

	_, err := r.Handle(osc.NewMessage("/parsed/output-99999999999", float32(1.0)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 99999999999 is outside 1..5")
}

func TestReassembler_InvalidMessagesNeverEmitWhenComplete(t *testing.T) {
	r := newTestReassembler(t, 2)
	feed(t, r, "/parsed/output-1", float32(1))
	feed(t, r, "/parsed/output-2", float32(2))

	out, err := r.Handle(osc.NewMessage("/parsed/output-3", float32(3)))
	assert.Error(t, err)
	assert.Nil(t, out)

	out, err = r.Handle(osc.NewMessage("/parsed/output-x", float32(3)))
	assert.Error(t, err)
	assert.Nil(t, out)

	assert.Equal(t, []interface{}{float32(1), float32(2)}, r.Values())
}

func TestReassembler_UsesFirstOfMultipleValues(t *testing.T) {
	r := newTestReassembler(t, 1)

	out, err := r.Handle(osc.NewMessage("/parsed/output-1", float32(7), float32(8)))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, []interface{}{float32(7)}, out.Arguments)
}

func TestReassembler_EmittedMessageIsACopy(t *testing.T) {
	r := newTestReassembler(t, 1)

	out := feed(t, r, "/parsed/output-1", int32(1))
	feed(t, r, "/parsed/output-1", int32(2))

	assert.Equal(t, []interface{}{int32(1)}, out.Arguments)
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"zero count", Config{InputPrefix: "/p", OutputAddress: "/o", ValueCount: 0}},
		{"negative count", Config{InputPrefix: "/p", OutputAddress: "/o", ValueCount: -3}},
		{"no prefix", Config{OutputAddress: "/o", ValueCount: 1}},
		{"no output", Config{InputPrefix: "/p", ValueCount: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config, nil)
			assert.Error(t, err)
		})
	}
}

func TestReassembler_Accessors(t *testing.T) {
	r := newTestReassembler(t, 3)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []interface{}{nil, nil, nil}, r.Values())
	assert.Equal(t, []int{1, 2, 3}, r.Missing())
}
