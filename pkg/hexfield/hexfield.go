package hexfield

import (
	"fmt"
	"strconv"
)

// Digit counts for each field kind.
const (
	DevAddrDigits = 8
	EUIDigits     = 16
	NetIDDigits   = 6
)

// FormatError is returned when text cannot be parsed as a fixed-width hex field.
type FormatError struct {
	// Kind is the field being parsed ("devaddr", "eui", "net_id").
	Kind string

	// Input is the rejected text.
	Input string

	// Reason describes what was wrong with the input.
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Input, e.Reason)
}

// parse validates s as exactly digits uppercase hex characters.
func parse(kind, s string, digits int) (uint64, error) {
	if len(s) != digits {
		return 0, &FormatError{
			Kind:   kind,
			Input:  s,
			Reason: fmt.Sprintf("expected %d hex digits, got %d", digits, len(s)),
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return 0, &FormatError{
				Kind:   kind,
				Input:  s,
				Reason: fmt.Sprintf("invalid character %q at offset %d", c, i),
			}
		}
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, &FormatError{Kind: kind, Input: s, Reason: err.Error()}
	}
	return v, nil
}

func format(v uint64, digits int) string {
	return fmt.Sprintf("%0*X", digits, v)
}

// DevAddr is a 32-bit LoRaWAN device address.
type DevAddr uint32

// ParseDevAddr parses exactly 8 uppercase hex digits.
func ParseDevAddr(s string) (DevAddr, error) {
	v, err := parse("devaddr", s, DevAddrDigits)
	if err != nil {
		return 0, err
	}
	return DevAddr(v), nil
}

// String returns the 8-digit uppercase hex form.
func (d DevAddr) String() string {
	return format(uint64(d), DevAddrDigits)
}

// MarshalText implements encoding.TextMarshaler.
func (d DevAddr) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DevAddr) UnmarshalText(text []byte) error {
	v, err := ParseDevAddr(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// EUI is a 64-bit extended unique identifier (AppEUI / DevEUI).
type EUI uint64

// ParseEUI parses exactly 16 uppercase hex digits.
func ParseEUI(s string) (EUI, error) {
	v, err := parse("eui", s, EUIDigits)
	if err != nil {
		return 0, err
	}
	return EUI(v), nil
}

// String returns the 16-digit uppercase hex form.
func (e EUI) String() string {
	return format(uint64(e), EUIDigits)
}

// MarshalText implements encoding.TextMarshaler.
func (e EUI) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EUI) UnmarshalText(text []byte) error {
	v, err := ParseEUI(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// NetID is a 24-bit LoRaWAN network identifier.
type NetID uint32

// MaxNetID is the largest representable NetID.
const MaxNetID NetID = 1<<24 - 1

// ParseNetID parses exactly 6 uppercase hex digits.
func ParseNetID(s string) (NetID, error) {
	v, err := parse("net_id", s, NetIDDigits)
	if err != nil {
		return 0, err
	}
	return NetID(v), nil
}

// NetIDFromUint32 converts a wire value, rejecting values wider than 24 bits.
func NetIDFromUint32(v uint32) (NetID, error) {
	if NetID(v) > MaxNetID {
		return 0, &FormatError{
			Kind:   "net_id",
			Input:  strconv.FormatUint(uint64(v), 16),
			Reason: "value exceeds 24 bits",
		}
	}
	return NetID(v), nil
}

// String returns the 6-digit uppercase hex form.
func (n NetID) String() string {
	return format(uint64(n), NetIDDigits)
}

// MarshalText implements encoding.TextMarshaler.
func (n NetID) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NetID) UnmarshalText(text []byte) error {
	v, err := ParseNetID(string(text))
	if err != nil {
		return err
	}
	*n = v
	return nil
}
