package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// Defaults for new routes and protocols.
const (
	DefaultMaxCopies     = 5
	DefaultDedupeTimeout = 250
)

// DefaultNetID is the Helium NetID.
const DefaultNetID hexfield.NetID = 0xC00053

// ErrNotGwmp is returned when a GWMP mapping is removed from a route whose
// protocol is not GWMP.
var ErrNotGwmp = errors.New("route protocol is not gwmp")

// ProtocolKind names a protocol variant.
type ProtocolKind string

const (
	ProtocolPacketRouter ProtocolKind = "packet_router"
	ProtocolGwmp         ProtocolKind = "gwmp"
	ProtocolHTTP         ProtocolKind = "http_roaming"
)

// FlowType selects the HTTP roaming flow.
type FlowType string

const (
	FlowSync  FlowType = "sync"
	FlowAsync FlowType = "async"
)

// GwmpMapping maps a region to a UDP port.
type GwmpMapping struct {
	Region Region `json:"region"`
	Port   uint32 `json:"port"`
}

// HTTPRoaming configures the LoRaWAN backend interfaces protocol.
type HTTPRoaming struct {
	FlowType      FlowType `json:"flow_type"`
	DedupeTimeout uint32   `json:"dedupe_timeout"`
	// Path is appended to the server host and port.
	Path       string `json:"path"`
	AuthHeader string `json:"auth_header,omitempty"`
}

// Protocol is one of the protocol variants, selected by Kind. Mapping is
// only meaningful for gwmp and HTTP only for http_roaming.
type Protocol struct {
	Kind    ProtocolKind  `json:"type"`
	Mapping []GwmpMapping `json:"mapping,omitempty"`
	HTTP    *HTTPRoaming  `json:"http,omitempty"`
}

// PacketRouter returns the packet router protocol.
func PacketRouter() Protocol {
	return Protocol{Kind: ProtocolPacketRouter}
}

// Gwmp returns a GWMP protocol with the given mappings.
func Gwmp(mapping ...GwmpMapping) Protocol {
	return Protocol{Kind: ProtocolGwmp, Mapping: mapping}
}

// HTTP returns an HTTP roaming protocol.
func HTTP(h HTTPRoaming) Protocol {
	return Protocol{Kind: ProtocolHTTP, HTTP: &h}
}

// Validate checks that the payload matches Kind.
func (p Protocol) Validate() error {
	switch p.Kind {
	case ProtocolPacketRouter:
		if len(p.Mapping) > 0 || p.HTTP != nil {
			return fmt.Errorf("protocol %s: unexpected payload", p.Kind)
		}
	case ProtocolGwmp:
		if p.HTTP != nil {
			return fmt.Errorf("protocol %s: unexpected http settings", p.Kind)
		}
		seen := make(map[Region]bool, len(p.Mapping))
		for _, m := range p.Mapping {
			if !m.Region.IsValid() {
				return &UnknownRegionError{Input: fmt.Sprintf("%d", uint8(m.Region))}
			}
			if seen[m.Region] {
				return fmt.Errorf("protocol %s: duplicate mapping for %s", p.Kind, m.Region)
			}
			seen[m.Region] = true
		}
	case ProtocolHTTP:
		if p.HTTP == nil {
			return fmt.Errorf("protocol %s: missing http settings", p.Kind)
		}
		if len(p.Mapping) > 0 {
			return fmt.Errorf("protocol %s: unexpected gwmp mapping", p.Kind)
		}
		if p.HTTP.FlowType != FlowSync && p.HTTP.FlowType != FlowAsync {
			return fmt.Errorf("protocol %s: unknown flow type %q", p.Kind, p.HTTP.FlowType)
		}
	default:
		return fmt.Errorf("unknown protocol %q", p.Kind)
	}
	return nil
}

// UnmarshalJSON decodes and validates a protocol.
func (p *Protocol) UnmarshalJSON(data []byte) error {
	type raw Protocol
	var v raw
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if err := Protocol(v).Validate(); err != nil {
		return err
	}
	*p = Protocol(v)
	return nil
}

// ToWire converts the protocol to its wire form.
func (p Protocol) ToWire() (*wire.Protocol, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	switch p.Kind {
	case ProtocolPacketRouter:
		return &wire.Protocol{PacketRouter: &wire.ProtocolPacketRouter{}}, nil
	case ProtocolGwmp:
		g := &wire.ProtocolGwmp{}
		for _, m := range p.Mapping {
			region, err := m.Region.ToWire()
			if err != nil {
				return nil, err
			}
			g.Mapping = append(g.Mapping, wire.GwmpMapping{Region: region, Port: m.Port})
		}
		return &wire.Protocol{Gwmp: g}, nil
	default:
		flow := wire.FlowTypeSync
		if p.HTTP.FlowType == FlowAsync {
			flow = wire.FlowTypeAsync
		}
		return &wire.Protocol{HTTPRoaming: &wire.ProtocolHTTPRoaming{
			FlowType:      flow,
			DedupeTimeout: p.HTTP.DedupeTimeout,
			Path:          p.HTTP.Path,
			AuthHeader:    p.HTTP.AuthHeader,
		}}, nil
	}
}

// ProtocolFromWire converts a wire protocol. Exactly one variant must be set.
func ProtocolFromWire(w *wire.Protocol) (Protocol, error) {
	if w == nil {
		return Protocol{}, fmt.Errorf("protocol: missing")
	}
	set := 0
	for _, present := range []bool{w.PacketRouter != nil, w.Gwmp != nil, w.HTTPRoaming != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return Protocol{}, fmt.Errorf("protocol: %d variants set, want 1", set)
	}

	switch {
	case w.PacketRouter != nil:
		return PacketRouter(), nil
	case w.Gwmp != nil:
		p := Protocol{Kind: ProtocolGwmp}
		for _, m := range w.Gwmp.Mapping {
			region, err := RegionFromWire(m.Region)
			if err != nil {
				return Protocol{}, fmt.Errorf("gwmp mapping: %w", err)
			}
			p.Mapping = append(p.Mapping, GwmpMapping{Region: region, Port: m.Port})
		}
		return p, nil
	default:
		h := w.HTTPRoaming
		var flow FlowType
		switch h.FlowType {
		case wire.FlowTypeSync:
			flow = FlowSync
		case wire.FlowTypeAsync:
			flow = FlowAsync
		default:
			return Protocol{}, fmt.Errorf("http roaming: unknown flow type %d", int32(h.FlowType))
		}
		return HTTP(HTTPRoaming{
			FlowType:      flow,
			DedupeTimeout: h.DedupeTimeout,
			Path:          h.Path,
			AuthHeader:    h.AuthHeader,
		}), nil
	}
}

// Server is the destination a route forwards packets to.
type Server struct {
	Host     string   `json:"host"`
	Port     uint32   `json:"port"`
	Protocol Protocol `json:"protocol"`
}

// ToWire converts the server to its wire form.
func (s Server) ToWire() (*wire.Server, error) {
	proto, err := s.Protocol.ToWire()
	if err != nil {
		return nil, err
	}
	return &wire.Server{Host: s.Host, Port: s.Port, Protocol: proto}, nil
}

// ServerFromWire converts a wire server.
func ServerFromWire(w *wire.Server) (Server, error) {
	if w == nil {
		return Server{}, fmt.Errorf("server: missing")
	}
	proto, err := ProtocolFromWire(w.Protocol)
	if err != nil {
		return Server{}, fmt.Errorf("server %s:%d: %w", w.Host, w.Port, err)
	}
	return Server{Host: w.Host, Port: w.Port, Protocol: proto}, nil
}

// Route describes how packets for an organization are forwarded.
type Route struct {
	ID             string         `json:"id"`
	NetID          hexfield.NetID `json:"net_id"`
	Oui            uint64         `json:"oui"`
	Server         Server         `json:"server"`
	MaxCopies      uint32         `json:"max_copies"`
	Active         bool           `json:"active"`
	Locked         bool           `json:"locked"`
	IgnoreEmptySkf bool           `json:"ignore_empty_skf"`
}

// NewRoute returns an active packet router route with no ID. The server
// assigns the ID on create.
func NewRoute(netID hexfield.NetID, oui uint64, maxCopies uint32) Route {
	return Route{
		NetID:     netID,
		Oui:       oui,
		MaxCopies: maxCopies,
		Active:    true,
		Server:    Server{Protocol: PacketRouter()},
	}
}

// ToWire converts the route to its wire form.
func (r Route) ToWire() (*wire.Route, error) {
	server, err := r.Server.ToWire()
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", r.ID, err)
	}
	return &wire.Route{
		ID:             r.ID,
		NetID:          uint32(r.NetID),
		Oui:            r.Oui,
		Server:         server,
		MaxCopies:      r.MaxCopies,
		Active:         r.Active,
		Locked:         r.Locked,
		IgnoreEmptySkf: r.IgnoreEmptySkf,
	}, nil
}

// RouteFromWire converts a wire route.
func RouteFromWire(w *wire.Route) (Route, error) {
	if w == nil {
		return Route{}, fmt.Errorf("route: missing from response")
	}
	netID, err := hexfield.NetIDFromUint32(w.NetID)
	if err != nil {
		return Route{}, fmt.Errorf("route %s: %w", w.ID, err)
	}
	server, err := ServerFromWire(w.Server)
	if err != nil {
		return Route{}, fmt.Errorf("route %s: %w", w.ID, err)
	}
	return Route{
		ID:             w.ID,
		NetID:          netID,
		Oui:            w.Oui,
		Server:         server,
		MaxCopies:      w.MaxCopies,
		Active:         w.Active,
		Locked:         w.Locked,
		IgnoreEmptySkf: w.IgnoreEmptySkf,
	}, nil
}

// SetGwmpRegion switches the route to GWMP, keeping existing mappings if
// it already uses GWMP, and maps region to port.
func (r *Route) SetGwmpRegion(region Region, port uint32) error {
	if !region.IsValid() {
		return &UnknownRegionError{Input: fmt.Sprintf("%d", uint8(region))}
	}
	if r.Server.Protocol.Kind != ProtocolGwmp {
		r.Server.Protocol = Gwmp()
	}
	mapping := r.Server.Protocol.Mapping[:0:0]
	for _, m := range r.Server.Protocol.Mapping {
		if m.Region != region {
			mapping = append(mapping, m)
		}
	}
	mapping = append(mapping, GwmpMapping{Region: region, Port: port})
	sort.Slice(mapping, func(i, j int) bool { return mapping[i].Region < mapping[j].Region })
	r.Server.Protocol.Mapping = mapping
	return nil
}

// RemoveGwmpRegion drops the mapping for region. It fails with ErrNotGwmp
// when the route does not use GWMP.
func (r *Route) RemoveGwmpRegion(region Region) error {
	if r.Server.Protocol.Kind != ProtocolGwmp {
		return fmt.Errorf("route %s: %w", r.ID, ErrNotGwmp)
	}
	mapping := r.Server.Protocol.Mapping[:0:0]
	for _, m := range r.Server.Protocol.Mapping {
		if m.Region != region {
			mapping = append(mapping, m)
		}
	}
	r.Server.Protocol.Mapping = mapping
	return nil
}

// RouteList is the result of listing routes.
type RouteList struct {
	Routes []Route `json:"routes"`
}

// RouteListFromWire converts a route list response.
func RouteListFromWire(w *wire.RouteListRes) (RouteList, error) {
	list := RouteList{Routes: make([]Route, 0, len(w.Routes))}
	for i := range w.Routes {
		route, err := RouteFromWire(&w.Routes[i])
		if err != nil {
			return RouteList{}, err
		}
		list.Routes = append(list.Routes, route)
	}
	return list, nil
}
