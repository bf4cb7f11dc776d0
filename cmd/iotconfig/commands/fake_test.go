package commands

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/iotconfig/iotconfig-go/pkg/config"
	"github.com/iotconfig/iotconfig-go/pkg/keypair"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

const testRouteID = "0b8d2c7e-1111-4a6e-9f0a-2c1d3e4f5a6b"

var testTime = time.UnixMilli(1_700_000_000_123)

// fakeService answers unary calls and client streams from handlers keyed
// by method. Every request passes through the CBOR codec.
type fakeService struct {
	mu      sync.Mutex
	unary   map[string]func(req []byte) (any, error)
	streams map[string]func(reqs [][]byte) ([]any, error)
	calls   map[string][][]byte
	dials   int
}

func newFakeService() *fakeService {
	return &fakeService{
		unary:   make(map[string]func([]byte) (any, error)),
		streams: make(map[string]func([][]byte) ([]any, error)),
		calls:   make(map[string][][]byte),
	}
}

func (f *fakeService) dial(string) (grpc.ClientConnInterface, io.Closer, error) {
	f.mu.Lock()
	f.dials++
	f.mu.Unlock()
	return f, io.NopCloser(nil), nil
}

func (f *fakeService) record(method string, reqs ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method] = append(f.calls[method], reqs...)
}

func (f *fakeService) requests(method string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeService) Invoke(_ context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	data, err := wire.Marshal(args)
	if err != nil {
		return err
	}
	f.record(method, data)
	h, ok := f.unary[method]
	if !ok {
		return status.Error(codes.Unimplemented, method)
	}
	res, err := h(data)
	if err != nil {
		return err
	}
	out, err := wire.Marshal(res)
	if err != nil {
		return err
	}
	return wire.Unmarshal(out, reply)
}

func (f *fakeService) NewStream(ctx context.Context, _ *grpc.StreamDesc, method string, _ ...grpc.CallOption) (grpc.ClientStream, error) {
	h, ok := f.streams[method]
	if !ok {
		return nil, status.Error(codes.Unimplemented, method)
	}
	return &fakeStream{svc: f, ctx: ctx, method: method, handler: h}, nil
}

type fakeStream struct {
	svc     *fakeService
	ctx     context.Context
	method  string
	handler func([][]byte) ([]any, error)
	sent    [][]byte
	done    bool
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
	if !s.done {
		s.done = true
		s.svc.record(s.method, s.sent...)
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
	data, err := wire.Marshal(next)
	if err != nil {
		return err
	}
	return wire.Unmarshal(data, m)
}

// testEnv is an App wired to a temp directory and a fake service.
type testEnv struct {
	dir      string
	settings string
	key      *keypair.Keypair
	svc      *fakeService
	out      *bytes.Buffer
	errOut   *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:      dir,
		settings: filepath.Join(dir, "iotconfig.yaml"),
		svc:      newFakeService(),
	}

	kp, err := keypair.Generate(keypair.KeyTypeEd25519, keypair.NetworkMainnet, nil)
	require.NoError(t, err)
	keyPath := filepath.Join(dir, "keypair.bin")
	require.NoError(t, kp.WriteFile(keyPath))
	env.key = kp

	s := config.Default()
	s.Keypair = keyPath
	s.RouteCache = filepath.Join(dir, "routes")
	s.Oui = 7
	require.NoError(t, s.Save(env.settings))
	return env
}

// run executes one command line and returns stdout.
func (e *testEnv) run(args ...string) (string, error) {
	e.out = &bytes.Buffer{}
	e.errOut = &bytes.Buffer{}
	app := &App{
		Out:       e.out,
		ErrOut:    e.errOut,
		In:        io.NopCloser(strings.NewReader("")),
		Dial:      e.svc.dial,
		LookupEnv: func(string) (string, bool) { return "", false },
		Clock:     func() time.Time { return testTime },
	}
	root := app.RootCommand()
	root.SetArgs(append([]string{"--config", e.settings, "--log-level", "error"}, args...))
	err := root.Execute()
	return e.out.String(), err
}

func decode[T any](t *testing.T, data []byte) *T {
	t.Helper()
	v := new(T)
	require.NoError(t, wire.Unmarshal(data, v))
	return v
}

func wireRoute(id string, maxCopies uint32) *wire.Route {
	return &wire.Route{
		ID:        id,
		NetID:     0xC00053,
		Oui:       7,
		Server:    &wire.Server{Host: "lns.example.com", Port: 1700, Protocol: &wire.Protocol{PacketRouter: &wire.ProtocolPacketRouter{}}},
		MaxCopies: maxCopies,
		Active:    true,
	}
}
