package client

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TransportError reports a call that failed between the client and the
// service: connection failures, gRPC status errors and codec errors.
type TransportError struct {
	// Method is the fully qualified gRPC method.
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Code returns the gRPC status code of the failure, codes.Unknown when the
// error carries none.
func (e *TransportError) Code() codes.Code {
	return status.Code(e.Err)
}
