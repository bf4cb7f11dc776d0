// Package keypair loads, generates and uses the signing keys that
// authenticate requests to the config service.
//
// Two algorithms are supported:
//   - ed25519
//   - ECC compact: ECDSA over P-256 with SHA-256 digests
//
// Keys serialize to a tagged binary form. The first byte packs the network
// (high nibble) and key type (low nibble); the rest is the key material.
package keypair

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// Keypair errors.
var (
	ErrUnsupportedKeyType = errors.New("unsupported key type")
	ErrInvalidKey         = errors.New("invalid private key")
)

// KeyType identifies the signing algorithm.
type KeyType uint8

const (
	// KeyTypeECCCompact is ECDSA P-256.
	KeyTypeECCCompact KeyType = 0

	// KeyTypeEd25519 is ed25519.
	KeyTypeEd25519 KeyType = 1
)

// String returns the key type name.
func (t KeyType) String() string {
	switch t {
	case KeyTypeECCCompact:
		return "ecc_compact"
	case KeyTypeEd25519:
		return "ed25519"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseKeyType parses a key type name.
func ParseKeyType(s string) (KeyType, error) {
	switch s {
	case "ecc_compact", "ecc", "p256":
		return KeyTypeECCCompact, nil
	case "ed25519":
		return KeyTypeEd25519, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedKeyType, s)
	}
}

// Network distinguishes mainnet from testnet keys.
type Network uint8

const (
	NetworkMainnet Network = 0
	NetworkTestnet Network = 1
)

// String returns the network name.
func (n Network) String() string {
	switch n {
	case NetworkMainnet:
		return "mainnet"
	case NetworkTestnet:
		return "testnet"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(n))
	}
}

func tag(n Network, t KeyType) byte {
	return byte(n)<<4 | byte(t)&0x0F
}

func splitTag(b byte) (Network, KeyType) {
	return Network(b >> 4), KeyType(b & 0x0F)
}

// Private key material sizes in the tagged binary form.
const (
	ed25519KeyLen = ed25519.PrivateKeySize // seed || public key
	eccScalarLen  = 32
)

// Keypair is a private signing key. It is safe for concurrent use.
type Keypair struct {
	network Network
	keyType KeyType
	ed      ed25519.PrivateKey
	ec      *ecdsa.PrivateKey
}

// Generate creates a new random keypair. A nil reader uses crypto/rand.
func Generate(keyType KeyType, network Network, r io.Reader) (*Keypair, error) {
	if r == nil {
		r = rand.Reader
	}
	switch keyType {
	case KeyTypeEd25519:
		_, priv, err := ed25519.GenerateKey(r)
		if err != nil {
			return nil, err
		}
		return &Keypair{network: network, keyType: keyType, ed: priv}, nil
	case KeyTypeECCCompact:
		var seed [eccScalarLen]byte
		if _, err := io.ReadFull(r, seed[:]); err != nil {
			return nil, err
		}
		return fromScalar(network, seed[:])
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, keyType)
	}
}

// FromEd25519 wraps an existing ed25519 private key.
func FromEd25519(key ed25519.PrivateKey, network Network) (*Keypair, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: ed25519 key is %d bytes", ErrInvalidKey, len(key))
	}
	return &Keypair{network: network, keyType: KeyTypeEd25519, ed: key}, nil
}

// FromECDSA wraps an existing P-256 private key.
func FromECDSA(key *ecdsa.PrivateKey, network Network) (*Keypair, error) {
	if key == nil || key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: expected ECDSA P-256", ErrInvalidKey)
	}
	return &Keypair{network: network, keyType: KeyTypeECCCompact, ec: key}, nil
}

// fromScalar derives a P-256 key from a 32-byte scalar, reducing it into
// the valid range [1, N-1].
func fromScalar(network Network, scalar []byte) (*Keypair, error) {
	curve := elliptic.P256()
	n := new(big.Int).Sub(curve.Params().N, big.NewInt(1))
	d := new(big.Int).SetBytes(scalar)
	d.Mod(d, n)
	d.Add(d, big.NewInt(1))

	priv := new(ecdsa.PrivateKey)
	priv.Curve = curve
	priv.D = d
	priv.X, priv.Y = curve.ScalarBaseMult(d.FillBytes(make([]byte, eccScalarLen)))
	return &Keypair{network: network, keyType: KeyTypeECCCompact, ec: priv}, nil
}

// FromBytes parses the tagged binary form.
func FromBytes(data []byte) (*Keypair, error) {
	if len(data) < 1 {
		return nil, ErrInvalidKey
	}
	network, keyType := splitTag(data[0])
	material := data[1:]

	switch keyType {
	case KeyTypeEd25519:
		if len(material) != ed25519KeyLen {
			return nil, fmt.Errorf("%w: ed25519 material is %d bytes, want %d", ErrInvalidKey, len(material), ed25519KeyLen)
		}
		key := ed25519.PrivateKey(append([]byte(nil), material...))
		// The trailing public half must match the seed.
		derived := ed25519.NewKeyFromSeed(key.Seed())
		if !derived.Equal(key) {
			return nil, fmt.Errorf("%w: ed25519 public half does not match seed", ErrInvalidKey)
		}
		return &Keypair{network: network, keyType: keyType, ed: key}, nil
	case KeyTypeECCCompact:
		// The scalar may be followed by a cached public key; only the scalar is used.
		if len(material) < eccScalarLen {
			return nil, fmt.Errorf("%w: ecc material is %d bytes, want at least %d", ErrInvalidKey, len(material), eccScalarLen)
		}
		return eccFromD(network, material[:eccScalarLen])
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, keyType)
	}
}

func eccFromD(network Network, dBytes []byte) (*Keypair, error) {
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(dBytes)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("%w: ecc scalar out of range", ErrInvalidKey)
	}
	priv := new(ecdsa.PrivateKey)
	priv.Curve = curve
	priv.D = d
	priv.X, priv.Y = curve.ScalarBaseMult(dBytes)
	return &Keypair{network: network, keyType: KeyTypeECCCompact, ec: priv}, nil
}

// Bytes returns the tagged binary form.
func (k *Keypair) Bytes() []byte {
	out := []byte{tag(k.network, k.keyType)}
	switch k.keyType {
	case KeyTypeEd25519:
		return append(out, k.ed...)
	case KeyTypeECCCompact:
		return append(out, k.ec.D.FillBytes(make([]byte, eccScalarLen))...)
	}
	return out
}

// KeyType returns the key algorithm.
func (k *Keypair) KeyType() KeyType {
	return k.keyType
}

// Network returns the key's network.
func (k *Keypair) Network() Network {
	return k.network
}

// PublicKey returns the tagged public key.
func (k *Keypair) PublicKey() PublicKey {
	switch k.keyType {
	case KeyTypeEd25519:
		pub := k.ed.Public().(ed25519.PublicKey)
		return PublicKey{network: k.network, keyType: k.keyType, key: append([]byte(nil), pub...)}
	case KeyTypeECCCompact:
		return PublicKey{
			network: k.network,
			keyType: k.keyType,
			key:     elliptic.MarshalCompressed(elliptic.P256(), k.ec.X, k.ec.Y),
		}
	}
	return PublicKey{}
}

// Sign signs msg. ed25519 signatures are deterministic; ECC signatures are
// DER-encoded ECDSA over the SHA-256 digest of msg.
func (k *Keypair) Sign(msg []byte) ([]byte, error) {
	switch k.keyType {
	case KeyTypeEd25519:
		if len(k.ed) != ed25519.PrivateKeySize {
			return nil, ErrInvalidKey
		}
		return ed25519.Sign(k.ed, msg), nil
	case KeyTypeECCCompact:
		if k.ec == nil {
			return nil, ErrInvalidKey
		}
		digest := sha256.Sum256(msg)
		return ecdsa.SignASN1(rand.Reader, k.ec, digest[:])
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, k.keyType)
	}
}

// Verify checks sig over msg with the keypair's public key.
func (k *Keypair) Verify(msg, sig []byte) bool {
	return k.PublicKey().Verify(msg, sig)
}
