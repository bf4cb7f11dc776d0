package client

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/iotconfig/iotconfig-go/pkg/log"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// unaryHandler answers one encoded request.
type unaryHandler func(req []byte) (any, error)

// streamHandler answers the encoded requests of one stream.
type streamHandler func(reqs [][]byte) ([]any, error)

type fakeCall struct {
	method string
	reqs   [][]byte
}

// fakeConn is an in-memory grpc.ClientConnInterface. Messages pass through
// the CBOR codec in both directions.
type fakeConn struct {
	mu      sync.Mutex
	unary   map[string]unaryHandler
	streams map[string]streamHandler
	calls   []fakeCall
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		unary:   make(map[string]unaryHandler),
		streams: make(map[string]streamHandler),
	}
}

func (f *fakeConn) record(method string, reqs [][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{method: method, reqs: reqs})
}

func (f *fakeConn) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

func (f *fakeConn) Invoke(_ context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	data, err := wire.Marshal(args)
	if err != nil {
		return err
	}
	f.record(method, [][]byte{data})

	h, ok := f.unary[method]
	if !ok {
		return status.Error(codes.Unimplemented, method)
	}
	res, err := h(data)
	if err != nil {
		return err
	}
	return copyMessage(res, reply)
}

func (f *fakeConn) NewStream(ctx context.Context, _ *grpc.StreamDesc, method string, _ ...grpc.CallOption) (grpc.ClientStream, error) {
	h, ok := f.streams[method]
	if !ok {
		return nil, status.Error(codes.Unimplemented, method)
	}
	return &fakeStream{conn: f, ctx: ctx, method: method, handler: h}, nil
}

var _ grpc.ClientConnInterface = (*fakeConn)(nil)

type fakeStream struct {
	conn    *fakeConn
	ctx     context.Context
	method  string
	handler streamHandler

	sent    [][]byte
	replied bool
	replies []any
	err     error
}

func (s *fakeStream) Header() (metadata.MD, error) { return nil, nil }
func (s *fakeStream) Trailer() metadata.MD         { return nil }
func (s *fakeStream) CloseSend() error             { return nil }
func (s *fakeStream) Context() context.Context     { return s.ctx }

func (s *fakeStream) SendMsg(m any) error {
	data, err := wire.Marshal(m)
	if err != nil {
		return err
	}
	s.sent = append(s.sent, data)
	return nil
}

func (s *fakeStream) RecvMsg(m any) error {
	if !s.replied {
		s.replied = true
		s.conn.record(s.method, s.sent)
		s.replies, s.err = s.handler(s.sent)
	}
	if len(s.replies) == 0 {
		if s.err != nil {
			return s.err
		}
		return io.EOF
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return copyMessage(next, m)
}

func copyMessage(src, dst any) error {
	data, err := wire.Marshal(src)
	if err != nil {
		return err
	}
	return wire.Unmarshal(data, dst)
}

func decode[T any](t *testing.T, data []byte) *T {
	t.Helper()
	v := new(T)
	require.NoError(t, wire.Unmarshal(data, v))
	return v
}

// recordingLogger keeps every capture event.
type recordingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingLogger) Log(ev log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingLogger) Events() []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]log.Event(nil), r.events...)
}
