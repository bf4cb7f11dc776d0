// Package wire defines the CBOR wire format for the IoT config service.
//
// Every request and response is a CBOR map with integer keys. Encoding is
// deterministic: map keys are sorted canonically, lengths are always
// definite and empty optional fields are omitted. Two encoders given equal
// messages always produce identical bytes, which is what makes the bytes
// usable as signing input.
//
// # Signed Requests
//
// Mutating and authenticated requests carry two extra fields:
//   - Timestamp: milliseconds since the Unix epoch at signing time
//   - Signature: detached signature over the request encoded with an
//     empty Signature
//
// An empty Signature is omitted from the encoding, so the signing input of
// a request is identical to its encoding before it was ever signed.
//
// # Transport
//
// Messages travel over gRPC using the "cbor" content-subtype. The codec is
// registered with grpc's encoding registry when this package is imported.
package wire
