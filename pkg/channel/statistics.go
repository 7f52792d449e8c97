package channel

import "sync/atomic"

// Statistics tracks message-level counters for a relay
type Statistics struct {
	packetsRx    uint64
	messagesRx   uint64
	messagesTx   uint64
	decodeErrors uint64
	droppedMsgs  uint64
	rejectedMsgs uint64
	writeErrors  uint64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{}
}

// PacketRx increments received packets
func (s *Statistics) PacketRx() {
	atomic.AddUint64(&s.packetsRx, 1)
}

// MessageRx increments decoded messages
func (s *Statistics) MessageRx() {
	atomic.AddUint64(&s.messagesRx, 1)
}

// MessageTx increments sent messages
func (s *Statistics) MessageTx() {
	atomic.AddUint64(&s.messagesTx, 1)
}

// DecodeError increments packets that failed to decode
func (s *Statistics) DecodeError() {
	atomic.AddUint64(&s.decodeErrors, 1)
}

// Dropped increments messages not addressed to us
func (s *Statistics) Dropped() {
	atomic.AddUint64(&s.droppedMsgs, 1)
}

// Rejected increments messages refused by a handler (malformed, out of range)
func (s *Statistics) Rejected() {
	atomic.AddUint64(&s.rejectedMsgs, 1)
}

// WriteError increments failed sends
func (s *Statistics) WriteError() {
	atomic.AddUint64(&s.writeErrors, 1)
}

// Snapshot is a point-in-time copy of Statistics
type Snapshot struct {
	PacketsRx    uint64
	MessagesRx   uint64
	MessagesTx   uint64
	DecodeErrors uint64
	Dropped      uint64
	Rejected     uint64
	WriteErrors  uint64
}

// Snapshot returns the current counter values
func (s *Statistics) Snapshot() Snapshot {
	return Snapshot{
		PacketsRx:    atomic.LoadUint64(&s.packetsRx),
		MessagesRx:   atomic.LoadUint64(&s.messagesRx),
		MessagesTx:   atomic.LoadUint64(&s.messagesTx),
		DecodeErrors: atomic.LoadUint64(&s.decodeErrors),
		Dropped:      atomic.LoadUint64(&s.droppedMsgs),
		Rejected:     atomic.LoadUint64(&s.rejectedMsgs),
		WriteErrors:  atomic.LoadUint64(&s.writeErrors),
	}
}
