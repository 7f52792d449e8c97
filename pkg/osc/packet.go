package osc

import (
	"bytes"
	"encoding/binary"
	"time"

	gosc "github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"
)

// maxBundleDepth limits nested bundles
const maxBundleDepth = 8

// ParsePacket parses an OSC packet, which is either a single message or a
// bundle. Bundle elements are flattened in wire order, with messages and
// nested bundles interleaved as sent; timetags are ignored and every message
// is delivered immediately.
func ParsePacket(data []byte) ([]*Message, error) {
	return parsePacket(data, 0)
}

func parsePacket(data []byte, depth int) ([]*Message, error) {
	if len(data) < MinPacketSize {
		return nil, ErrPacketTooShort
	}
	if len(data) > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}

	if !IsBundle(data) {
		msg, err := ParseMessage(data)
		if err != nil {
			return nil, err
		}
		return []*Message{msg}, nil
	}

	if depth >= maxBundleDepth {
		return nil, errors.Wrap(ErrInvalidBundle, "nested too deep")
	}
	if len(data) < bundleHeaderSize {
		return nil, errors.Wrap(ErrTruncated, "bundle header")
	}

	var messages []*Message
	offset := bundleHeaderSize
	for offset < len(data) {
		if offset+4 > len(data) {
			return nil, errors.Wrap(ErrTruncated, "bundle element size")
		}
		size := int(int32(binary.BigEndian.Uint32(data[offset : offset+4])))
		offset += 4
		if size <= 0 || size%alignment != 0 || offset+size > len(data) {
			return nil, errors.Wrapf(ErrInvalidBundle, "element size %d", size)
		}

		elems, err := parsePacket(data[offset:offset+size], depth+1)
		if err != nil {
			return nil, errors.Wrap(err, "bundle element")
		}
		messages = append(messages, elems...)
		offset += size
	}

	return messages, nil
}

// IsBundle reports whether data starts with the bundle tag
func IsBundle(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[:8], []byte(BundleTag+"\x00"))
}

// SerializeBundle wraps messages into a bundle stamped with the current time
func SerializeBundle(messages ...*Message) ([]byte, error) {
	bundle := gosc.NewBundle(time.Now())
	for _, msg := range messages {
		if err := msg.checkArguments(); err != nil {
			return nil, err
		}
		if err := bundle.Append(msg.wire()); err != nil {
			return nil, errors.Wrap(ErrInvalidBundle, err.Error())
		}
	}

	data, err := bundle.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(ErrInvalidBundle, err.Error())
	}
	if len(data) > MaxPacketSize {
		return nil, errors.Wrapf(ErrPacketTooLarge, "%d bytes", len(data))
	}
	return data, nil
}
