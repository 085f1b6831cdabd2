package devicecache

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrMalformedKey is returned when textual input cannot be turned into a Key.
var ErrMalformedKey = errors.New("malformed device key")

// Key identifies a device in the cache. It is either a canonical MAC address
// (lower-case, colon separated) or a trimmed device identifier, depending on
// how the owning deployment keys its devices.
type Key string

// String returns the canonical textual form of the key.
func (k Key) String() string {
	return string(k)
}

// ParseMAC parses a 6-octet hardware address in any form accepted by
// net.ParseMAC and returns its canonical key.
func ParseMAC(s string) (Key, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil || len(hw) != 6 {
		return "", fmt.Errorf("%w: %q is not a 6-octet MAC address", ErrMalformedKey, s)
	}
	return Key(hw.String()), nil
}

// ParseDeviceID builds a key from an opaque device identifier.
func ParseDeviceID(s string) (Key, error) {
	id := strings.TrimSpace(s)
	if id == "" {
		return "", fmt.Errorf("%w: empty device identifier", ErrMalformedKey)
	}
	return Key(id), nil
}

// KeyParser converts boundary text into a Key.
type KeyParser func(string) (Key, error)

// KeyMode selects which parser a deployment uses at its boundary.
type KeyMode string

const (
	KeyModeMAC      KeyMode = "mac"
	KeyModeDeviceID KeyMode = "id"
)

// Parser returns the parser for the mode, or an error for an unknown mode.
func (m KeyMode) Parser() (KeyParser, error) {
	switch m {
	case KeyModeMAC, "":
		return ParseMAC, nil
	case KeyModeDeviceID:
		return ParseDeviceID, nil
	default:
		return nil, fmt.Errorf("unknown key mode %q", string(m))
	}
}

// matchesKeyPattern reports whether pattern occurs in the canonical key text.
// MAC keys are stored lowercase, so MAC patterns should be too.
func matchesKeyPattern(k Key, pattern string) bool {
	return strings.Contains(string(k), pattern)
}
