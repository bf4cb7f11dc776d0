// Package version provides the client version and the gRPC user agent
// derived from it.
package version

// Current is the version of this client.
const Current = "0.4.0"

// Product is the user agent product token.
const Product = "iotconfig-go"

// UserAgent returns the user agent sent with every RPC: "iotconfig-go/X.Y.Z".
func UserAgent() string {
	return Product + "/" + Current
}
