package client

import (
	"context"

	"google.golang.org/grpc"

	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
	"github.com/iotconfig/iotconfig-go/pkg/keypair"
	"github.com/iotconfig/iotconfig-go/pkg/model"
	"github.com/iotconfig/iotconfig-go/pkg/signing"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// OrgClient calls the org service.
type OrgClient struct {
	c *caller
}

// NewOrgClient creates an org client.
func NewOrgClient(conn grpc.ClientConnInterface, opts Options) *OrgClient {
	return &OrgClient{c: newCaller(conn, opts)}
}

// List returns every organization. The request is not signed.
func (o *OrgClient) List(ctx context.Context) (model.OrgList, error) {
	var res *wire.OrgListRes
	err := o.c.withRetry(ctx, wire.MethodOrgList, func() (err error) {
		res, err = unary[wire.OrgListRes](ctx, o.c, wire.MethodOrgList, &wire.OrgListReq{})
		return err
	})
	if err != nil {
		return model.OrgList{}, err
	}
	return model.OrgListFromWire(res)
}

// Get returns an organization with its NetID and devaddr constraints. The
// request is not signed.
func (o *OrgClient) Get(ctx context.Context, oui uint64) (model.OrgResponse, error) {
	var res *wire.OrgRes
	err := o.c.withRetry(ctx, wire.MethodOrgGet, func() (err error) {
		res, err = unary[wire.OrgRes](ctx, o.c, wire.MethodOrgGet, &wire.OrgGetReq{Oui: oui})
		return err
	})
	if err != nil {
		return model.OrgResponse{}, err
	}
	return model.OrgResponseFromWire(res)
}

// CreateHelium allocates an organization with devaddrCount addresses in
// the Helium NetID.
func (o *OrgClient) CreateHelium(ctx context.Context, owner, payer keypair.PublicKey, devaddrCount uint64, delegates []keypair.PublicKey) (model.OrgResponse, error) {
	req := &wire.OrgCreateHeliumReq{
		Owner:        owner.Bytes(),
		Payer:        payer.Bytes(),
		Devaddrs:     devaddrCount,
		DelegateKeys: model.PublicKeysToWire(delegates),
		Signed:       wire.Signed{Timestamp: o.c.now()},
	}
	if err := signing.Apply(req, o.c.signer); err != nil {
		return model.OrgResponse{}, err
	}
	res, err := unary[wire.OrgRes](ctx, o.c, wire.MethodOrgCreateHelium, req)
	if err != nil {
		return model.OrgResponse{}, err
	}
	return model.OrgResponseFromWire(res)
}

// CreateRoamer registers an organization for a roaming partner NetID.
func (o *OrgClient) CreateRoamer(ctx context.Context, owner, payer keypair.PublicKey, netID hexfield.NetID, delegates []keypair.PublicKey) (model.OrgResponse, error) {
	req := &wire.OrgCreateRoamerReq{
		Owner:        owner.Bytes(),
		Payer:        payer.Bytes(),
		NetID:        uint32(netID),
		DelegateKeys: model.PublicKeysToWire(delegates),
		Signed:       wire.Signed{Timestamp: o.c.now()},
	}
	if err := signing.Apply(req, o.c.signer); err != nil {
		return model.OrgResponse{}, err
	}
	res, err := unary[wire.OrgRes](ctx, o.c, wire.MethodOrgCreateRoamer, req)
	if err != nil {
		return model.OrgResponse{}, err
	}
	return model.OrgResponseFromWire(res)
}
