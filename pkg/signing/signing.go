// Package signing turns wire requests into authenticated requests.
//
// A request is signed over its canonical encoding: a copy of the request
// with the signature cleared, encoded with the deterministic CBOR codec of
// package wire. The signature is then attached to the original request.
// Verification recomputes the same bytes, so any field change made after
// signing (including the timestamp) invalidates the signature.
package signing

import (
	"errors"
	"fmt"
	"time"

	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// ErrBadSignature is returned by Verify when the attached signature does
// not match the canonical encoding.
var ErrBadSignature = errors.New("signature verification failed")

// ErrUnsigned is returned by Verify when no signature is attached.
var ErrUnsigned = errors.New("message is not signed")

// Signer produces a detached signature over bytes.
type Signer interface {
	Sign(msg []byte) ([]byte, error)
}

// Verifier checks a detached signature.
type Verifier interface {
	Verify(msg, sig []byte) bool
}

// SignerFunc adapts a function to the Signer interface.
type SignerFunc func(msg []byte) ([]byte, error)

// Sign calls f(msg).
func (f SignerFunc) Sign(msg []byte) ([]byte, error) {
	return f(msg)
}

// Signable is satisfied by pointers to wire requests that carry a signature
// field, which is every request embedding wire.Signed.
type Signable[T any] interface {
	*T
	GetSignature() []byte
	SetSignature([]byte)
}

// SigningError reports a failure to produce a signature for a message.
type SigningError struct {
	// Message is the Go type of the request being signed.
	Message string
	Err     error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign %s: %v", e.Message, e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// Canonical returns the bytes a signature over msg is computed on. msg is
// not modified.
func Canonical[T any, P Signable[T]](msg P) ([]byte, error) {
	clone := *msg
	P(&clone).SetSignature(nil)
	return wire.Marshal(&clone)
}

// Sign returns a signature over the canonical encoding of msg. msg is not
// modified.
func Sign[T any, P Signable[T]](msg P, signer Signer) ([]byte, error) {
	data, err := Canonical[T, P](msg)
	if err != nil {
		return nil, &SigningError{Message: typeName(msg), Err: fmt.Errorf("encode: %w", err)}
	}
	sig, err := signer.Sign(data)
	if err != nil {
		return nil, &SigningError{Message: typeName(msg), Err: err}
	}
	return sig, nil
}

// Apply signs msg and attaches the signature. On error msg is unchanged.
func Apply[T any, P Signable[T]](msg P, signer Signer) error {
	sig, err := Sign[T, P](msg, signer)
	if err != nil {
		return err
	}
	msg.SetSignature(sig)
	return nil
}

// Verify checks the signature attached to msg against its canonical
// encoding.
func Verify[T any, P Signable[T]](msg P, verifier Verifier) error {
	sig := msg.GetSignature()
	if len(sig) == 0 {
		return ErrUnsigned
	}
	data, err := Canonical[T, P](msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", typeName(msg), err)
	}
	if !verifier.Verify(data, sig) {
		return ErrBadSignature
	}
	return nil
}

// Timestamp returns t as milliseconds since the Unix epoch, the unit of
// wire.Signed.Timestamp.
func Timestamp(t time.Time) uint64 {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

// Now returns the current time as a request timestamp.
func Now() uint64 {
	return Timestamp(time.Now())
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
