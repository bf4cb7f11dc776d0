// Package hexfield provides fixed-width hexadecimal identifiers used by the
// LoRaWAN configuration service.
//
// Every type is serialized as exactly width/4 uppercase hex digits:
//   - DevAddr: 32 bits, 8 digits
//   - EUI: 64 bits, 16 digits
//   - NetID: 24 bits, 6 digits
//
// Parsing is strict. Input must have the exact digit count and may only
// contain the characters 0-9 and A-F, so that formatting a parsed value
// always reproduces the original text. Callers accepting free-form user
// input normalize it (e.g. strings.ToUpper) before parsing.
package hexfield
