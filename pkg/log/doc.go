// Package log captures the signed requests and responses exchanged with the
// configuration service.
//
// This package defines the Logger interface and Event types for protocol
// capture. It is separate from operational logging (zap): protocol capture
// provides a complete machine-readable trace of what was signed, by whom,
// and what the service answered.
//
// # Basic Usage
//
// Clients accept a Logger:
//
//	// For development: log to console via zap
//	opts.Capture = log.NewZapAdapter(zapLogger)
//
//	// For audit trails: write to binary file
//	opts.Capture, _ = log.NewFileLogger("/var/log/iotconfig/requests.clog")
//
//	// Both: use MultiLogger
//	opts.Capture = log.NewMultiLogger(log.NewZapAdapter(zapLogger), fileLogger)
//
// # Events
//
// Each RPC gets a request ID (UUID). Every event of that RPC carries it:
//   - Message: one outgoing request or one incoming response element
//   - Stream: a streaming call opened or closed
//   - Error: the call failed
//
// # File Format
//
// Capture files are a sequence of CBOR-encoded events. The iotconfig
// "capture" commands view, filter and summarize them.
package log
