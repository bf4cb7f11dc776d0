package log

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a protocol capture event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RequestID correlates all events of one RPC (UUID).
	RequestID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Method is the fully qualified gRPC method.
	Method string `cbor:"5,keyasint,omitempty"`

	// Host is the configuration service address.
	Host string `cbor:"6,keyasint,omitempty"`

	// Signer is the base58 public key that signed outgoing requests.
	Signer string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message *MessageEvent   `cbor:"10,keyasint,omitempty"`
	Stream  *StreamEvent    `cbor:"11,keyasint,omitempty"`
	Error   *ErrorEventData `cbor:"12,keyasint,omitempty"`
}

// NewRequestID returns a fresh request ID.
func NewRequestID() string {
	return uuid.NewString()
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a response from the service.
	DirectionIn Direction = 0
	// DirectionOut indicates a request to the service.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection parses a direction name.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "IN", "in":
		return DirectionIn, true
	case "OUT", "out":
		return DirectionOut, true
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a request or response message.
	CategoryMessage Category = 0
	// CategoryStream indicates a streaming call opened or closed.
	CategoryStream Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryStream:
		return "STREAM"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "MESSAGE", "message":
		return CategoryMessage, true
	case "STREAM", "stream":
		return CategoryStream, true
	case "ERROR", "error":
		return CategoryError, true
	}
	return 0, false
}

// MessageEvent captures one decoded request or response.
type MessageEvent struct {
	// Type distinguishes request from response.
	Type MessageType `cbor:"1,keyasint"`

	// Sequence is the element index within a stream (0 for unary calls).
	Sequence uint32 `cbor:"2,keyasint"`

	// SignedAt is the request timestamp in milliseconds (requests only).
	SignedAt uint64 `cbor:"3,keyasint,omitempty"`

	// Signature is the attached signature (requests only).
	Signature []byte `cbor:"4,keyasint,omitempty"`

	// Decoded payload (the wire message).
	Payload any `cbor:"5,keyasint,omitempty"`

	// Latency is the duration from send to this response (response only).
	// Stored as nanoseconds.
	Latency *time.Duration `cbor:"6,keyasint,omitempty"`
}

// MessageType distinguishes requests from responses.
type MessageType uint8

const (
	// MessageTypeRequest indicates a request message.
	MessageTypeRequest MessageType = 0
	// MessageTypeResponse indicates a response message.
	MessageTypeResponse MessageType = 1
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "REQUEST"
	case MessageTypeResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// StreamEvent captures the lifecycle of a streaming call.
type StreamEvent struct {
	// Kind is open or close.
	Kind StreamKind `cbor:"1,keyasint"`

	// Count is the number of elements sent (client streams) or received
	// (server streams). Set on close.
	Count uint32 `cbor:"2,keyasint,omitempty"`
}

// StreamKind indicates a stream lifecycle step.
type StreamKind uint8

const (
	// StreamOpen indicates the stream was opened.
	StreamOpen StreamKind = 0
	// StreamClose indicates the stream completed.
	StreamClose StreamKind = 1
)

// String returns the stream kind name.
func (s StreamKind) String() string {
	switch s {
	case StreamOpen:
		return "OPEN"
	case StreamClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures a failed call.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Code is the gRPC status code name (if applicable).
	Code string `cbor:"2,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
