// Package address maps OSC addresses of the form <prefix><n> to 0-based
// indexes. Wire numbering starts at 1.
package address

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrAddressMismatch means the address does not carry the prefix and is
	// addressed to someone else.
	ErrAddressMismatch = errors.New("address does not match prefix")
	// ErrAddressMalformed means the prefix matched but the suffix is not a
	// non-negative decimal integer.
	ErrAddressMalformed = errors.New("address does not end with an integer index")
	// ErrIndexOverflow means the suffix is a decimal integer too large to be
	// any index.
	ErrIndexOverflow = errors.New("address index too large")
)

const digits = "0123456789"

// Encode returns prefix followed by the 1-based form of index
func Encode(prefix string, index int) string {
	return prefix + strconv.Itoa(index+1)
}

// Decode strips prefix from address and returns the 0-based index.
// The result is not bounds-checked; a wire index of 0 yields -1.
func Decode(address, prefix string) (int, error) {
	if !strings.HasPrefix(address, prefix) {
		return 0, ErrAddressMismatch
	}

	suffix := address[len(prefix):]
	if suffix == "" || strings.TrimLeft(suffix, digits) != "" {
		return 0, errors.Wrapf(ErrAddressMalformed, "%q", address)
	}
	n, err := strconv.ParseUint(suffix, 10, 31)
	if err != nil {
		return 0, errors.Wrapf(ErrIndexOverflow, "%q", address)
	}

	return int(n) - 1, nil
}
