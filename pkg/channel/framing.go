package channel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"avaneesh/osc-relay/pkg/osc"
)

// ErrBadFrame is returned when a stream frame's size prefix is out of range
var ErrBadFrame = errors.New("invalid stream frame size")

// readFrame reads one size-prefixed OSC packet from a stream
func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	size := int(int32(binary.BigEndian.Uint32(header)))
	if size < osc.MinPacketSize || size > osc.MaxPacketSize {
		return nil, fmt.Errorf("%w: %d", ErrBadFrame, size)
	}

	packet := make([]byte, size)
	if _, err := io.ReadFull(r, packet); err != nil {
		return nil, err
	}
	return packet, nil
}

// frame prefixes an OSC packet with its big-endian int32 size
func frame(data []byte) ([]byte, error) {
	if len(data) > osc.MaxPacketSize {
		return nil, osc.ErrPacketTooLarge
	}
	out := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	copy(out[4:], data)
	return out, nil
}
