package client

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"github.com/iotconfig/iotconfig-go/pkg/log"
	"github.com/iotconfig/iotconfig-go/pkg/signing"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// BatchPolicy decides what happens to a batch when some elements fail to
// sign.
type BatchPolicy uint8

const (
	// AbortOnSignFailure sends nothing if any element fails to sign.
	AbortOnSignFailure BatchPolicy = iota

	// SendSigned sends the elements that were signed and reports the rest.
	SendSigned
)

// String returns the policy name.
func (p BatchPolicy) String() string {
	switch p {
	case AbortOnSignFailure:
		return "abort"
	case SendSigned:
		return "send-signed"
	default:
		return "unknown"
	}
}

// Options configures the command clients.
type Options struct {
	// Signer signs every mutating and owner-scoped request. Required for
	// all calls except org list and org get.
	Signer signing.Signer

	// SignerID identifies the signer in capture events, usually the
	// base58 public key.
	SignerID string

	// Host is recorded in capture events.
	Host string

	// Capture receives protocol capture events. Nil disables capture.
	Capture log.Logger

	// Logger receives operational logs. Nil uses zap.NewNop.
	Logger *zap.Logger

	// Clock supplies request timestamps. Nil uses time.Now.
	Clock func() time.Time

	// BatchPolicy applies to client-stream batch operations.
	BatchPolicy BatchPolicy

	// Retry applies to read-only calls.
	Retry RetryPolicy
}

// Client bundles the clients of every configuration service.
type Client struct {
	Org     *OrgClient
	Route   *RouteClient
	Skf     *SkfClient
	Gateway *GatewayClient
}

// New creates clients for all services sharing conn and opts.
func New(conn grpc.ClientConnInterface, opts Options) *Client {
	c := newCaller(conn, opts)
	return &Client{
		Org:     &OrgClient{c: c},
		Route:   &RouteClient{c: c},
		Skf:     &SkfClient{c: c},
		Gateway: &GatewayClient{c: c},
	}
}

// errNoSigner is returned by signed calls when Options.Signer is nil.
var errNoSigner = errors.New("no signer configured")

// caller holds what every call needs and implements the three call shapes.
type caller struct {
	conn     grpc.ClientConnInterface
	signer   signing.Signer
	signerID string
	host     string
	capture  log.Logger
	logger   *zap.Logger
	clock    func() time.Time
	policy   BatchPolicy
	retry    RetryPolicy
}

func newCaller(conn grpc.ClientConnInterface, opts Options) *caller {
	c := &caller{
		conn:     conn,
		signer:   opts.Signer,
		signerID: opts.SignerID,
		host:     opts.Host,
		capture:  log.OrNoop(opts.Capture),
		logger:   opts.Logger,
		clock:    opts.Clock,
		policy:   opts.BatchPolicy,
		retry:    opts.Retry,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.signer == nil {
		c.signer = signing.SignerFunc(func([]byte) ([]byte, error) { return nil, errNoSigner })
	}
	return c
}

// now returns the request timestamp for a new request.
func (c *caller) now() uint64 {
	return signing.Timestamp(c.clock())
}

func (c *caller) callOptions() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(wire.CodecName)}
}

// signed is implemented by every request embedding wire.Signed.
type signed interface {
	GetTimestamp() uint64
	GetSignature() []byte
}

func (c *caller) event(id, method string, dir log.Direction, cat log.Category) log.Event {
	ev := log.Event{
		Timestamp: c.clock(),
		RequestID: id,
		Direction: dir,
		Category:  cat,
		Method:    method,
		Host:      c.host,
	}
	if dir == log.DirectionOut {
		ev.Signer = c.signerID
	}
	return ev
}

func (c *caller) logRequest(id, method string, seq uint32, req any) {
	ev := c.event(id, method, log.DirectionOut, log.CategoryMessage)
	msg := &log.MessageEvent{Type: log.MessageTypeRequest, Sequence: seq, Payload: req}
	if s, ok := req.(signed); ok {
		msg.SignedAt = s.GetTimestamp()
		msg.Signature = s.GetSignature()
	}
	ev.Message = msg
	c.capture.Log(ev)
}

func (c *caller) logResponse(id, method string, seq uint32, res any, start time.Time) {
	latency := c.clock().Sub(start)
	ev := c.event(id, method, log.DirectionIn, log.CategoryMessage)
	ev.Message = &log.MessageEvent{Type: log.MessageTypeResponse, Sequence: seq, Payload: res, Latency: &latency}
	c.capture.Log(ev)
}

func (c *caller) logStream(id, method string, kind log.StreamKind, count int) {
	dir := log.DirectionOut
	if kind == log.StreamClose {
		dir = log.DirectionIn
	}
	ev := c.event(id, method, dir, log.CategoryStream)
	ev.Stream = &log.StreamEvent{Kind: kind, Count: uint32(count)}
	c.capture.Log(ev)
}

// fail records a transport failure and wraps it.
func (c *caller) fail(id, method, op string, err error) error {
	te := &TransportError{Method: method, Err: err}
	ev := c.event(id, method, log.DirectionIn, log.CategoryError)
	ev.Error = &log.ErrorEventData{Message: err.Error(), Code: te.Code().String(), Context: op}
	c.capture.Log(ev)
	c.logger.Debug("call failed",
		zap.String("method", method),
		zap.String("request_id", id),
		zap.String("code", te.Code().String()),
		zap.Error(err),
	)
	return te
}

// withRetry runs call until it succeeds, fails with a non-retryable error,
// or the retry policy is exhausted. Only read-only calls use it.
func (c *caller) withRetry(ctx context.Context, method string, call func() error) error {
	attempts := max(c.retry.Attempts, 1)
	b := newBackoff(c.retry)
	for attempt := 1; ; attempt++ {
		err := call()
		if err == nil || attempt >= attempts || !retryable(err) {
			return err
		}
		delay := b.Next()
		c.logger.Info("retrying call",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}

func retryable(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	switch te.Code() {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	}
	return false
}

// unary sends one request and decodes one response.
func unary[Res any](ctx context.Context, c *caller, method string, req any) (*Res, error) {
	id := log.NewRequestID()
	c.logRequest(id, method, 0, req)

	start := c.clock()
	res := new(Res)
	if err := c.conn.Invoke(ctx, method, req, res, c.callOptions()...); err != nil {
		return nil, c.fail(id, method, "invoke", err)
	}
	c.logResponse(id, method, 0, res, start)
	c.logger.Debug("call completed", zap.String("method", method), zap.String("request_id", id))
	return res, nil
}

// serverStream sends one request and collects every streamed response.
func serverStream[Res any](ctx context.Context, c *caller, method string, req any) ([]Res, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := log.NewRequestID()
	c.logStream(id, method, log.StreamOpen, 0)
	c.logRequest(id, method, 0, req)

	start := c.clock()
	desc := &grpc.StreamDesc{ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, method, c.callOptions()...)
	if err != nil {
		return nil, c.fail(id, method, "open stream", err)
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, c.fail(id, method, "send", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, c.fail(id, method, "close send", err)
	}

	var out []Res
	for {
		var m Res
		err := stream.RecvMsg(&m)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, c.fail(id, method, "receive", err)
		}
		c.logResponse(id, method, uint32(len(out)), &m, start)
		out = append(out, m)
	}

	c.logStream(id, method, log.StreamClose, len(out))
	c.logger.Debug("stream completed",
		zap.String("method", method),
		zap.String("request_id", id),
		zap.Int("received", len(out)),
	)
	return out, nil
}

// clientStream streams reqs to the service and decodes the single
// response.
func clientStream[Res any, P any](ctx context.Context, c *caller, method string, reqs []P) (*Res, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := log.NewRequestID()
	c.logStream(id, method, log.StreamOpen, 0)

	start := c.clock()
	desc := &grpc.StreamDesc{ClientStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, method, c.callOptions()...)
	if err != nil {
		return nil, c.fail(id, method, "open stream", err)
	}

	sent := 0
	for i, req := range reqs {
		c.logRequest(id, method, uint32(i), req)
		err := stream.SendMsg(req)
		if errors.Is(err, io.EOF) {
			// The service ended the stream; its status arrives with RecvMsg.
			break
		}
		if err != nil {
			return nil, c.fail(id, method, "send", err)
		}
		sent++
	}
	if err := stream.CloseSend(); err != nil {
		return nil, c.fail(id, method, "close send", err)
	}

	res := new(Res)
	if err := stream.RecvMsg(res); err != nil {
		return nil, c.fail(id, method, "receive", err)
	}
	c.logResponse(id, method, 0, res, start)
	c.logStream(id, method, log.StreamClose, sent)
	c.logger.Debug("batch sent",
		zap.String("method", method),
		zap.String("request_id", id),
		zap.Int("sent", sent),
	)
	return res, nil
}

// BatchReport is the per-element outcome of a batch operation. Sent keeps
// the caller's order.
type BatchReport[I any] struct {
	// Sent lists the elements delivered to the service.
	Sent []I

	// Failed lists the elements that could not be signed.
	Failed []signing.Failure[I]
}

// Complete reports whether every element was sent.
func (r *BatchReport[I]) Complete() bool {
	return len(r.Failed) == 0
}

// sendBatch signs one request per input and streams the signed requests
// according to the batch policy. The returned error is the transport error,
// the *signing.BatchError, or both joined.
func sendBatch[I any, T any, P signing.Signable[T], Res any](ctx context.Context, c *caller, method string, inputs []I, build signing.Builder[I, T]) (*BatchReport[I], error) {
	res := signing.SignBatch[I, T, P](inputs, build, c.signer, c.clock)
	report := &BatchReport[I]{Failed: res.Failed}

	signErr := res.Err()
	if signErr != nil {
		c.logger.Warn("batch elements failed to sign",
			zap.String("method", method),
			zap.Int("failed", len(res.Failed)),
			zap.Int("total", len(inputs)),
			zap.Stringer("policy", c.policy),
		)
		if c.policy == AbortOnSignFailure {
			return report, signErr
		}
	}
	if len(res.Signed) == 0 {
		return report, signErr
	}

	if _, err := clientStream[Res](ctx, c, method, res.Signed); err != nil {
		return report, errors.Join(err, signErr)
	}
	report.Sent = res.Succeeded
	return report, signErr
}
