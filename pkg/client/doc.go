// Package client provides signed command clients for the IoT configuration
// service.
//
// Every client wraps a grpc.ClientConnInterface. Requests are built from
// the domain types of package model, stamped with the current time, signed
// with the operator's key (package signing) and sent with the CBOR codec of
// package wire. Each request, response element and failure is reported to a
// protocol capture logger (package log).
//
// Three call shapes are used:
//
//   - unary: one request, one response (org get, route create, ...)
//   - server stream: one request, a stream of responses (route get_euis, ...)
//   - client stream: a batch of individually signed requests, one response
//     (route update_euis, session key filter update, ...)
//
// Batch operations sign each element separately. When an element cannot be
// signed, BatchPolicy decides whether the rest of the batch is still sent.
package client
