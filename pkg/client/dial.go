package client

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/iotconfig/iotconfig-go/pkg/version"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// Endpoint is a parsed configuration service address.
type Endpoint struct {
	// Target is the host:port handed to gRPC.
	Target string

	// TLS is set for https addresses.
	TLS bool
}

// ParseEndpoint parses a service address. Accepted forms are
// "http://host[:port]", "https://host[:port]" and a bare "host:port"
// (plaintext). Missing ports default to 80 and 443.
func ParseEndpoint(host string) (Endpoint, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return Endpoint{}, fmt.Errorf("empty config host")
	}

	if !strings.Contains(host, "://") {
		if _, _, err := net.SplitHostPort(host); err != nil {
			return Endpoint{}, fmt.Errorf("invalid config host %q: %w", host, err)
		}
		return Endpoint{Target: host}, nil
	}

	u, err := url.Parse(host)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid config host %q: %w", host, err)
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("invalid config host %q: missing host", host)
	}

	var ep Endpoint
	port := u.Port()
	switch u.Scheme {
	case "http":
		if port == "" {
			port = "80"
		}
	case "https":
		ep.TLS = true
		if port == "" {
			port = "443"
		}
	default:
		return Endpoint{}, fmt.Errorf("invalid config host %q: unsupported scheme %q", host, u.Scheme)
	}
	ep.Target = net.JoinHostPort(u.Hostname(), port)
	return ep, nil
}

// Dial creates a client connection to the configuration service. The
// connection is established lazily on the first call. Extra options are
// applied after the defaults.
func Dial(host string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	ep, err := ParseEndpoint(host)
	if err != nil {
		return nil, err
	}

	creds := insecure.NewCredentials()
	if ep.TLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithUserAgent(version.UserAgent()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(wire.CodecName)),
	}
	conn, err := grpc.NewClient(ep.Target, append(dialOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", ep.Target, err)
	}
	return conn, nil
}
