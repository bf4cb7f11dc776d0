package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
	"github.com/iotconfig/iotconfig-go/pkg/model"
	"github.com/iotconfig/iotconfig-go/pkg/signing"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// SkfClient calls the session key filter service.
type SkfClient struct {
	c *caller
}

// NewSkfClient creates a session key filter client.
func NewSkfClient(conn grpc.ClientConnInterface, opts Options) *SkfClient {
	return &SkfClient{c: newCaller(conn, opts)}
}

// List streams every filter of an organization.
func (s *SkfClient) List(ctx context.Context, oui uint64) ([]model.SessionKeyFilter, error) {
	return s.stream(ctx, wire.MethodSkfList, func() (any, error) {
		req := &wire.SessionKeyFilterListReq{Oui: oui, Signed: wire.Signed{Timestamp: s.c.now()}}
		return req, signing.Apply(req, s.c.signer)
	})
}

// Get streams the filters of one devaddr.
func (s *SkfClient) Get(ctx context.Context, oui uint64, addr hexfield.DevAddr) ([]model.SessionKeyFilter, error) {
	return s.stream(ctx, wire.MethodSkfGet, func() (any, error) {
		req := &wire.SessionKeyFilterGetReq{Oui: oui, Devaddr: uint32(addr), Signed: wire.Signed{Timestamp: s.c.now()}}
		return req, signing.Apply(req, s.c.signer)
	})
}

// stream signs a fresh request per attempt and collects the filters.
func (s *SkfClient) stream(ctx context.Context, method string, build func() (any, error)) ([]model.SessionKeyFilter, error) {
	var res []wire.SessionKeyFilter
	err := s.c.withRetry(ctx, method, func() error {
		req, err := build()
		if err != nil {
			return err
		}
		res, err = serverStream[wire.SessionKeyFilter](ctx, s.c, method, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	filters := make([]model.SessionKeyFilter, 0, len(res))
	for i := range res {
		f, err := model.SessionKeyFilterFromWire(&res[i])
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// Add adds filters.
func (s *SkfClient) Add(ctx context.Context, filters []model.SessionKeyFilter) (*BatchReport[model.SessionKeyFilter], error) {
	return sendBatch[model.SessionKeyFilter, wire.SessionKeyFilterUpdateReq, *wire.SessionKeyFilterUpdateReq, wire.SessionKeyFilterUpdateRes](
		ctx, s.c, wire.MethodSkfUpdate, filters, skfUpdate(wire.ActionAdd))
}

// Remove removes filters.
func (s *SkfClient) Remove(ctx context.Context, filters []model.SessionKeyFilter) (*BatchReport[model.SessionKeyFilter], error) {
	return sendBatch[model.SessionKeyFilter, wire.SessionKeyFilterUpdateReq, *wire.SessionKeyFilterUpdateReq, wire.SessionKeyFilterUpdateRes](
		ctx, s.c, wire.MethodSkfUpdate, filters, skfUpdate(wire.ActionRemove))
}

func skfUpdate(action wire.Action) signing.Builder[model.SessionKeyFilter, wire.SessionKeyFilterUpdateReq] {
	return func(f model.SessionKeyFilter, ts uint64) (*wire.SessionKeyFilterUpdateReq, error) {
		if len(f.SessionKey) == 0 {
			return nil, fmt.Errorf("filter %d/%s: empty session key", f.Oui, f.Devaddr)
		}
		return &wire.SessionKeyFilterUpdateReq{
			Action: action,
			Filter: f.ToWire(),
			Signed: wire.Signed{Timestamp: ts},
		}, nil
	}
}
