package client

import (
	"context"

	"google.golang.org/grpc"

	"github.com/iotconfig/iotconfig-go/pkg/model"
	"github.com/iotconfig/iotconfig-go/pkg/signing"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// GatewayClient calls the gateway service.
type GatewayClient struct {
	c *caller
}

// NewGatewayClient creates a gateway client.
func NewGatewayClient(conn grpc.ClientConnInterface, opts Options) *GatewayClient {
	return &GatewayClient{c: newCaller(conn, opts)}
}

// LoadRegion pushes the channel plan of a region together with its
// serialized H3 index set. An empty index set leaves the region's hexes
// unchanged.
func (g *GatewayClient) LoadRegion(ctx context.Context, region model.Region, params model.RegionParams, hexIndexes []byte) error {
	wr, err := region.ToWire()
	if err != nil {
		return err
	}
	req := &wire.GatewayLoadRegionReq{
		Region:     wr,
		Params:     params.ToWire(),
		HexIndexes: hexIndexes,
		Signed:     wire.Signed{Timestamp: g.c.now()},
	}
	if err := signing.Apply(req, g.c.signer); err != nil {
		return err
	}
	_, err = unary[wire.GatewayLoadRegionRes](ctx, g.c, wire.MethodGatewayLoadRegion, req)
	return err
}
