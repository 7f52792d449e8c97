package osc

import "github.com/pkg/errors"

// Type tags accepted on the wire
const (
	TypeTagInt32   byte = 'i'
	TypeTagFloat32 byte = 'f'
	TypeTagString  byte = 's'
	TypeTagBlob    byte = 'b'
	TypeTagInt64   byte = 'h'
	TypeTagFloat64 byte = 'd'
	TypeTagTrue    byte = 'T'
	TypeTagFalse   byte = 'F'
	TypeTagNil     byte = 'N'
)

const (
	// AddressPrefix starts every OSC address pattern
	AddressPrefix byte = '/'

	// TypeTagPrefix starts the type tag string
	TypeTagPrefix byte = ','

	// BundleTag is the OSC-string that opens a bundle
	BundleTag = "#bundle"

	// MinPacketSize is the smallest well-formed OSC packet (one padded string)
	MinPacketSize = 4

	// MaxPacketSize bounds a single packet; larger than any UDP payload
	MaxPacketSize = 65536

	bundleHeaderSize = 16 // "#bundle\0" + 8-byte timetag
	alignment        = 4
)

var (
	ErrPacketTooShort     = errors.New("osc packet too short")
	ErrPacketTooLarge     = errors.New("osc packet too large")
	ErrInvalidAddress     = errors.New("invalid osc address")
	ErrMissingTypeTags    = errors.New("missing osc type tag string")
	ErrUnsupportedTypeTag = errors.New("unsupported osc type tag")
	ErrUnsupportedType    = errors.New("unsupported argument type")
	ErrTruncated          = errors.New("osc packet truncated")
	ErrInvalidBundle      = errors.New("invalid osc bundle")
	ErrMalformed          = errors.New("malformed osc message")
)

// padded returns n rounded up to the next multiple of 4
func padded(n int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}
