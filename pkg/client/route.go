package client

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"

	"github.com/iotconfig/iotconfig-go/pkg/devaddr"
	"github.com/iotconfig/iotconfig-go/pkg/model"
	"github.com/iotconfig/iotconfig-go/pkg/signing"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// RouteClient calls the route service, including the EUI and devaddr range
// sets owned by each route.
type RouteClient struct {
	c *caller
}

// NewRouteClient creates a route client.
func NewRouteClient(conn grpc.ClientConnInterface, opts Options) *RouteClient {
	return &RouteClient{c: newCaller(conn, opts)}
}

// List returns the routes of an organization.
func (r *RouteClient) List(ctx context.Context, oui uint64) (model.RouteList, error) {
	var res *wire.RouteListRes
	err := r.c.withRetry(ctx, wire.MethodRouteList, func() error {
		req := &wire.RouteListReq{Oui: oui, Signed: wire.Signed{Timestamp: r.c.now()}}
		if err := signing.Apply(req, r.c.signer); err != nil {
			return err
		}
		var err error
		res, err = unary[wire.RouteListRes](ctx, r.c, wire.MethodRouteList, req)
		return err
	})
	if err != nil {
		return model.RouteList{}, err
	}
	return model.RouteListFromWire(res)
}

// Get returns one route.
func (r *RouteClient) Get(ctx context.Context, id string) (model.Route, error) {
	var res *wire.Route
	err := r.c.withRetry(ctx, wire.MethodRouteGet, func() error {
		req := &wire.RouteGetReq{ID: id, Signed: wire.Signed{Timestamp: r.c.now()}}
		if err := signing.Apply(req, r.c.signer); err != nil {
			return err
		}
		var err error
		res, err = unary[wire.Route](ctx, r.c, wire.MethodRouteGet, req)
		return err
	})
	if err != nil {
		return model.Route{}, err
	}
	return model.RouteFromWire(res)
}

// Create creates route under its organization and returns the stored
// route, which carries the ID assigned by the service.
func (r *RouteClient) Create(ctx context.Context, route model.Route) (model.Route, error) {
	wr, err := route.ToWire()
	if err != nil {
		return model.Route{}, err
	}
	req := &wire.RouteCreateReq{Oui: route.Oui, Route: wr, Signed: wire.Signed{Timestamp: r.c.now()}}
	if err := signing.Apply(req, r.c.signer); err != nil {
		return model.Route{}, err
	}
	res, err := unary[wire.Route](ctx, r.c, wire.MethodRouteCreate, req)
	if err != nil {
		return model.Route{}, err
	}
	return model.RouteFromWire(res)
}

// Update replaces the stored route with route.
func (r *RouteClient) Update(ctx context.Context, route model.Route) (model.Route, error) {
	if route.ID == "" {
		return model.Route{}, errors.New("update route: missing route id")
	}
	wr, err := route.ToWire()
	if err != nil {
		return model.Route{}, err
	}
	req := &wire.RouteUpdateReq{Route: wr, Signed: wire.Signed{Timestamp: r.c.now()}}
	if err := signing.Apply(req, r.c.signer); err != nil {
		return model.Route{}, err
	}
	res, err := unary[wire.Route](ctx, r.c, wire.MethodRouteUpdate, req)
	if err != nil {
		return model.Route{}, err
	}
	return model.RouteFromWire(res)
}

// Delete removes a route and returns it as it was stored.
func (r *RouteClient) Delete(ctx context.Context, id string) (model.Route, error) {
	req := &wire.RouteDeleteReq{ID: id, Signed: wire.Signed{Timestamp: r.c.now()}}
	if err := signing.Apply(req, r.c.signer); err != nil {
		return model.Route{}, err
	}
	res, err := unary[wire.Route](ctx, r.c, wire.MethodRouteDelete, req)
	if err != nil {
		return model.Route{}, err
	}
	return model.RouteFromWire(res)
}

// GetEuis streams the EUI pairs of a route.
func (r *RouteClient) GetEuis(ctx context.Context, routeID string) ([]model.EuiPair, error) {
	var res []wire.EuiPair
	err := r.c.withRetry(ctx, wire.MethodRouteGetEuis, func() error {
		req := &wire.RouteGetEuisReq{RouteID: routeID, Signed: wire.Signed{Timestamp: r.c.now()}}
		if err := signing.Apply(req, r.c.signer); err != nil {
			return err
		}
		var err error
		res, err = serverStream[wire.EuiPair](ctx, r.c, wire.MethodRouteGetEuis, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	pairs := make([]model.EuiPair, 0, len(res))
	for i := range res {
		p, err := model.EuiPairFromWire(&res[i])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// AddEuis adds EUI pairs to the routes they name.
func (r *RouteClient) AddEuis(ctx context.Context, pairs []model.EuiPair) (*BatchReport[model.EuiPair], error) {
	return sendBatch[model.EuiPair, wire.RouteUpdateEuisReq, *wire.RouteUpdateEuisReq, wire.RouteEuisRes](
		ctx, r.c, wire.MethodRouteUpdateEuis, pairs, euiUpdate(wire.ActionAdd))
}

// RemoveEuis removes EUI pairs from the routes they name.
func (r *RouteClient) RemoveEuis(ctx context.Context, pairs []model.EuiPair) (*BatchReport[model.EuiPair], error) {
	return sendBatch[model.EuiPair, wire.RouteUpdateEuisReq, *wire.RouteUpdateEuisReq, wire.RouteEuisRes](
		ctx, r.c, wire.MethodRouteUpdateEuis, pairs, euiUpdate(wire.ActionRemove))
}

func euiUpdate(action wire.Action) signing.Builder[model.EuiPair, wire.RouteUpdateEuisReq] {
	return func(p model.EuiPair, ts uint64) (*wire.RouteUpdateEuisReq, error) {
		if p.RouteID == "" {
			return nil, fmt.Errorf("eui pair %s: missing route id", p)
		}
		return &wire.RouteUpdateEuisReq{
			Action:  action,
			EuiPair: p.ToWire(),
			Signed:  wire.Signed{Timestamp: ts},
		}, nil
	}
}

// DeleteEuis removes every EUI pair of a route.
func (r *RouteClient) DeleteEuis(ctx context.Context, routeID string) error {
	req := &wire.RouteDeleteEuisReq{RouteID: routeID, Signed: wire.Signed{Timestamp: r.c.now()}}
	if err := signing.Apply(req, r.c.signer); err != nil {
		return err
	}
	_, err := unary[wire.RouteEuisRes](ctx, r.c, wire.MethodRouteDeleteEuis, req)
	return err
}

// GetDevaddrs streams the devaddr ranges of a route.
func (r *RouteClient) GetDevaddrs(ctx context.Context, routeID string) ([]devaddr.Range, error) {
	var res []wire.DevaddrRange
	err := r.c.withRetry(ctx, wire.MethodRouteGetDevaddrRanges, func() error {
		req := &wire.RouteGetDevaddrRangesReq{RouteID: routeID, Signed: wire.Signed{Timestamp: r.c.now()}}
		if err := signing.Apply(req, r.c.signer); err != nil {
			return err
		}
		var err error
		res, err = serverStream[wire.DevaddrRange](ctx, r.c, wire.MethodRouteGetDevaddrRanges, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	ranges := make([]devaddr.Range, 0, len(res))
	for i := range res {
		rng, err := model.DevaddrRangeFromWire(&res[i])
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, rng)
	}
	return ranges, nil
}

// AddDevaddrs adds devaddr ranges to the routes they name.
func (r *RouteClient) AddDevaddrs(ctx context.Context, ranges []devaddr.Range) (*BatchReport[devaddr.Range], error) {
	return sendBatch[devaddr.Range, wire.RouteUpdateDevaddrRangesReq, *wire.RouteUpdateDevaddrRangesReq, wire.RouteDevaddrRangesRes](
		ctx, r.c, wire.MethodRouteUpdateDevaddrRanges, ranges, devaddrUpdate(wire.ActionAdd))
}

// RemoveDevaddrs removes devaddr ranges from the routes they name.
func (r *RouteClient) RemoveDevaddrs(ctx context.Context, ranges []devaddr.Range) (*BatchReport[devaddr.Range], error) {
	return sendBatch[devaddr.Range, wire.RouteUpdateDevaddrRangesReq, *wire.RouteUpdateDevaddrRangesReq, wire.RouteDevaddrRangesRes](
		ctx, r.c, wire.MethodRouteUpdateDevaddrRanges, ranges, devaddrUpdate(wire.ActionRemove))
}

func devaddrUpdate(action wire.Action) signing.Builder[devaddr.Range, wire.RouteUpdateDevaddrRangesReq] {
	return func(rng devaddr.Range, ts uint64) (*wire.RouteUpdateDevaddrRangesReq, error) {
		if rng.RouteID == "" {
			return nil, fmt.Errorf("devaddr range %s: missing route id", rng)
		}
		if rng.End < rng.Start {
			return nil, &devaddr.InvalidRangeError{Start: rng.Start, End: rng.End}
		}
		return &wire.RouteUpdateDevaddrRangesReq{
			Action:       action,
			DevaddrRange: model.DevaddrRangeToWire(rng),
			Signed:       wire.Signed{Timestamp: ts},
		}, nil
	}
}

// DeleteDevaddrs removes every devaddr range of a route.
func (r *RouteClient) DeleteDevaddrs(ctx context.Context, routeID string) error {
	req := &wire.RouteDeleteDevaddrRangesReq{RouteID: routeID, Signed: wire.Signed{Timestamp: r.c.now()}}
	if err := signing.Apply(req, r.c.signer); err != nil {
		return err
	}
	_, err := unary[wire.RouteDevaddrRangesRes](ctx, r.c, wire.MethodRouteDeleteDevaddrRanges, req)
	return err
}
