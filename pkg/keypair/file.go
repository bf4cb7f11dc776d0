package keypair

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// File errors.
var (
	ErrInvalidPEM = errors.New("invalid PEM data")
	ErrReadFile   = errors.New("failed to read keypair file")
	ErrWriteFile  = errors.New("failed to write keypair file")
)

// PEM block types accepted by Decode.
const (
	pemTypeEC      = "EC PRIVATE KEY"
	pemTypePKCS8   = "PRIVATE KEY"
	pemTypeOpenSSH = "OPENSSH PRIVATE KEY"
)

// Decode parses a keypair in any supported encoding: PEM (SEC1 EC,
// PKCS#8, OpenSSH) or the tagged binary form. PEM keys carry no network
// and are assigned network.
func Decode(data []byte, network Network) (*Keypair, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return FromBytes(data)
	}

	switch block.Type {
	case pemTypeEC:
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
		}
		return FromECDSA(key, network)
	case pemTypePKCS8:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
		}
		return fromCryptoKey(key, network)
	case pemTypeOpenSSH:
		key, err := ssh.ParseRawPrivateKey(data)
		if err != nil {
			var missing *ssh.PassphraseMissingError
			if errors.As(err, &missing) {
				return nil, fmt.Errorf("%w: encrypted OpenSSH keys are not supported", ErrInvalidPEM)
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
		}
		return fromCryptoKey(key, network)
	default:
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEM, block.Type)
	}
}

func fromCryptoKey(key any, network Network) (*Keypair, error) {
	switch k := key.(type) {
	case ed25519.PrivateKey:
		return FromEd25519(k, network)
	case *ed25519.PrivateKey:
		return FromEd25519(*k, network)
	case *ecdsa.PrivateKey:
		return FromECDSA(k, network)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyType, key)
	}
}

// EncodePEM encodes the keypair as a PKCS#8 PEM block.
func (k *Keypair) EncodePEM() ([]byte, error) {
	var key any
	switch k.keyType {
	case KeyTypeEd25519:
		key = k.ed
	case KeyTypeECCCompact:
		key = k.ec
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, k.keyType)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePKCS8, Bytes: der}), nil
}

// Load reads a keypair file in any supported encoding. Keys without an
// embedded network default to mainnet.
func Load(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrReadFile, path, err)
	}
	k, err := Decode(data, NetworkMainnet)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", path, err)
	}
	return k, nil
}

// WriteFile writes the tagged binary form with restricted permissions.
// It refuses to overwrite an existing file.
func (k *Keypair) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w %s: %w", ErrWriteFile, path, err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrWriteFile, path, err)
	}
	if _, err := f.Write(k.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("%w %s: %w", ErrWriteFile, path, err)
	}
	return f.Close()
}
