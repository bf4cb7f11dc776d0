package log

import (
	"go.uber.org/zap"
)

// ZapAdapter writes capture events to a zap.Logger at debug level.
// Useful for development when you want to see requests in the console.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter creates a ZapAdapter writing to logger.
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	return &ZapAdapter{logger: logger.Named("capture")}
}

// Log writes the event.
func (a *ZapAdapter) Log(event Event) {
	if ce := a.logger.Check(zap.DebugLevel, "protocol"); ce != nil {
		ce.Write(eventFields(event)...)
	}
}

func eventFields(event Event) []zap.Field {
	fields := []zap.Field{
		zap.String("request_id", event.RequestID),
		zap.String("direction", event.Direction.String()),
		zap.String("category", event.Category.String()),
	}
	if event.Method != "" {
		fields = append(fields, zap.String("method", event.Method))
	}
	if event.Host != "" {
		fields = append(fields, zap.String("host", event.Host))
	}
	if event.Signer != "" {
		fields = append(fields, zap.String("signer", event.Signer))
	}

	switch {
	case event.Message != nil:
		fields = append(fields,
			zap.String("msg_type", event.Message.Type.String()),
			zap.Uint32("seq", event.Message.Sequence),
		)
		if event.Message.SignedAt != 0 {
			fields = append(fields, zap.Uint64("signed_at", event.Message.SignedAt))
		}
		if event.Message.Latency != nil {
			fields = append(fields, zap.Duration("latency", *event.Message.Latency))
		}
	case event.Stream != nil:
		fields = append(fields,
			zap.String("stream", event.Stream.Kind.String()),
			zap.Uint32("count", event.Stream.Count),
		)
	case event.Error != nil:
		fields = append(fields, zap.String("error_msg", event.Error.Message))
		if event.Error.Code != "" {
			fields = append(fields, zap.String("error_code", event.Error.Code))
		}
		if event.Error.Context != "" {
			fields = append(fields, zap.String("error_context", event.Error.Context))
		}
	}
	return fields
}

// Compile-time interface satisfaction check.
var _ Logger = (*ZapAdapter)(nil)
