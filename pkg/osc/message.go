package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	gosc "github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"
)

// Message is a decoded OSC message: an address plus ordered arguments.
// Arguments hold int32, float32, int64, float64, string, []byte, bool or
// nil values.
type Message struct {
	Address   string
	Arguments []interface{}
}

// NewMessage creates a new message
func NewMessage(address string, args ...interface{}) *Message {
	return &Message{
		Address:   address,
		Arguments: args,
	}
}

// checkArguments rejects argument types go-osc cannot encode
func (m *Message) checkArguments() error {
	if m.Address == "" || m.Address[0] != AddressPrefix {
		return errors.Wrapf(ErrInvalidAddress, "%q", m.Address)
	}
	for _, arg := range m.Arguments {
		switch arg.(type) {
		case int32, float32, int64, float64, string, []byte, bool, nil:
		default:
			return errors.Wrapf(ErrUnsupportedType, "%T in %s", arg, m.Address)
		}
	}
	return nil
}

func (m *Message) wire() *gosc.Message {
	return gosc.NewMessage(m.Address, m.Arguments...)
}

// Serialize converts the message to wire format
func (m *Message) Serialize() ([]byte, error) {
	if err := m.checkArguments(); err != nil {
		return nil, err
	}

	data, err := m.wire().MarshalBinary()
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "serialize %s: %v", m.Address, err)
	}
	if len(data) > MaxPacketSize {
		return nil, errors.Wrapf(ErrPacketTooLarge, "%d bytes", len(data))
	}
	return data, nil
}

// stringEnd returns the offset after the OSC-string starting at offset
func stringEnd(data []byte, offset int) (int, error) {
	end := bytes.IndexByte(data[offset:], 0)
	if end < 0 {
		return 0, errors.Wrap(ErrTruncated, "unterminated string")
	}
	next := offset + padded(end+1)
	if next > len(data) {
		return 0, errors.Wrap(ErrTruncated, "string padding")
	}
	return next, nil
}

// checkLayout walks the address, type tags and argument sizes so that
// go-osc only ever sees an in-bounds message with known tags.
func checkLayout(data []byte) error {
	if len(data) < MinPacketSize {
		return ErrPacketTooShort
	}
	if data[0] != AddressPrefix {
		return ErrInvalidAddress
	}

	offset, err := stringEnd(data, 0)
	if err != nil {
		return errors.Wrap(err, "address")
	}
	if offset >= len(data) || data[offset] != TypeTagPrefix {
		return ErrMissingTypeTags
	}
	tagStart := offset
	offset, err = stringEnd(data, offset)
	if err != nil {
		return errors.Wrap(err, "type tags")
	}
	tags := bytes.TrimRight(data[tagStart+1:offset], "\x00")

	for _, tag := range tags {
		size := 0
		switch tag {
		case TypeTagInt32, TypeTagFloat32:
			size = 4
		case TypeTagInt64, TypeTagFloat64:
			size = 8
		case TypeTagTrue, TypeTagFalse, TypeTagNil:
		case TypeTagString:
			if offset >= len(data) {
				return errors.Wrap(ErrTruncated, "string argument")
			}
			next, err := stringEnd(data, offset)
			if err != nil {
				return errors.Wrap(err, "string argument")
			}
			size = next - offset
		case TypeTagBlob:
			if offset+4 > len(data) {
				return errors.Wrap(ErrTruncated, "blob size")
			}
			n := int(int32(binary.BigEndian.Uint32(data[offset:])))
			if n < 0 {
				return errors.Wrapf(ErrMalformed, "blob size %d", n)
			}
			size = 4 + padded(n)
		default:
			return errors.Wrapf(ErrUnsupportedTypeTag, "%q", tag)
		}
		if offset+size > len(data) {
			return errors.Wrapf(ErrTruncated, "argument %q", tag)
		}
		offset += size
	}
	return nil
}

// ParseMessage parses a single OSC message
func ParseMessage(data []byte) (*Message, error) {
	if err := checkLayout(data); err != nil {
		return nil, err
	}

	packet, err := gosc.ParsePacket(string(data))
	if err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	msg, ok := packet.(*gosc.Message)
	if !ok || msg == nil {
		return nil, ErrMalformed
	}

	return &Message{
		Address:   msg.Address,
		Arguments: msg.Arguments,
	}, nil
}

// String returns a string representation of the message
func (m *Message) String() string {
	var sb strings.Builder
	sb.WriteString(m.Address)
	for _, arg := range m.Arguments {
		sb.WriteString(fmt.Sprintf(" %v", arg))
	}
	return sb.String()
}
