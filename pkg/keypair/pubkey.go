package keypair

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Public key errors.
var (
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrChecksum         = errors.New("public key checksum mismatch")
)

// b58Version is the version byte prefixed to encoded public keys.
const b58Version = 0x00

// PublicKey is a tagged public key: one tag byte followed by the key
// material (32 bytes for ed25519, 33 bytes SEC1 compressed for ECC).
type PublicKey struct {
	network Network
	keyType KeyType
	key     []byte
}

// PublicKeyFromBytes parses a tagged public key.
func PublicKeyFromBytes(data []byte) (PublicKey, error) {
	if len(data) < 1 {
		return PublicKey{}, ErrInvalidPublicKey
	}
	network, keyType := splitTag(data[0])
	key := append([]byte(nil), data[1:]...)

	switch keyType {
	case KeyTypeEd25519:
		if len(key) != ed25519.PublicKeySize {
			return PublicKey{}, fmt.Errorf("%w: ed25519 key is %d bytes", ErrInvalidPublicKey, len(key))
		}
	case KeyTypeECCCompact:
		if x, _ := elliptic.UnmarshalCompressed(elliptic.P256(), key); x == nil {
			return PublicKey{}, fmt.Errorf("%w: bad compressed P-256 point", ErrInvalidPublicKey)
		}
	default:
		return PublicKey{}, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, keyType)
	}

	return PublicKey{network: network, keyType: keyType, key: key}, nil
}

// ParsePublicKey decodes the base58check text form.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) < 1+4 {
		return PublicKey{}, ErrInvalidPublicKey
	}
	payload, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	want := checksum(payload)
	if string(sum) != string(want[:]) {
		return PublicKey{}, ErrChecksum
	}
	if payload[0] != b58Version {
		return PublicKey{}, fmt.Errorf("%w: unexpected version byte %#x", ErrInvalidPublicKey, payload[0])
	}
	return PublicKeyFromBytes(payload[1:])
}

// Network returns the network the key belongs to.
func (p PublicKey) Network() Network {
	return p.network
}

// KeyType returns the key algorithm.
func (p PublicKey) KeyType() KeyType {
	return p.keyType
}

// IsZero reports whether p is the zero value.
func (p PublicKey) IsZero() bool {
	return len(p.key) == 0
}

// Bytes returns the tagged binary form.
func (p PublicKey) Bytes() []byte {
	if p.IsZero() {
		return nil
	}
	out := make([]byte, 0, 1+len(p.key))
	out = append(out, tag(p.network, p.keyType))
	return append(out, p.key...)
}

// String returns the base58check text form.
func (p PublicKey) String() string {
	if p.IsZero() {
		return ""
	}
	payload := append([]byte{b58Version}, p.Bytes()...)
	sum := checksum(payload)
	return base58.Encode(append(payload, sum[:]...))
}

// Equal reports whether two keys are identical.
func (p PublicKey) Equal(other PublicKey) bool {
	return p.network == other.network && p.keyType == other.keyType && string(p.key) == string(other.key)
}

// Verify checks sig over msg.
func (p PublicKey) Verify(msg, sig []byte) bool {
	switch p.keyType {
	case KeyTypeEd25519:
		if len(p.key) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(p.key), msg, sig)
	case KeyTypeECCCompact:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), p.key)
		if x == nil {
			return false
		}
		pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
		digest := sha256.Sum256(msg)
		return ecdsa.VerifyASN1(pub, digest[:], sig)
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p PublicKey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text yields the
// zero key.
func (p *PublicKey) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = PublicKey{}
		return nil
	}
	v, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func checksum(payload []byte) [4]byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	var out [4]byte
	copy(out[:], second[:4])
	return out
}
