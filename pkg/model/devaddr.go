package model

import (
	"fmt"
	"unicode/utf8"

	"github.com/iotconfig/iotconfig-go/pkg/devaddr"
	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// ConstraintFromWire converts a wire constraint, rejecting reversed bounds.
func ConstraintFromWire(w wire.DevaddrConstraint) (devaddr.Constraint, error) {
	return devaddr.NewConstraint(hexfield.DevAddr(w.StartAddr), hexfield.DevAddr(w.EndAddr))
}

// ConstraintToWire converts a constraint to its wire form.
func ConstraintToWire(c devaddr.Constraint) wire.DevaddrConstraint {
	return wire.DevaddrConstraint{StartAddr: uint32(c.Start), EndAddr: uint32(c.End)}
}

// DevaddrRangeFromWire converts a wire range, rejecting reversed bounds.
func DevaddrRangeFromWire(w *wire.DevaddrRange) (devaddr.Range, error) {
	if w == nil {
		return devaddr.Range{}, fmt.Errorf("devaddr range: missing")
	}
	return devaddr.NewRange(w.RouteID, hexfield.DevAddr(w.StartAddr), hexfield.DevAddr(w.EndAddr))
}

// DevaddrRangeToWire converts a range to its wire form.
func DevaddrRangeToWire(r devaddr.Range) *wire.DevaddrRange {
	return &wire.DevaddrRange{
		RouteID:   r.RouteID,
		StartAddr: uint32(r.Start),
		EndAddr:   uint32(r.End),
	}
}

// EuiPair is an AppEUI/DevEUI pair owned by a route.
type EuiPair struct {
	RouteID string       `json:"route_id"`
	AppEUI  hexfield.EUI `json:"app_eui"`
	DevEUI  hexfield.EUI `json:"dev_eui"`
}

// EuiPairFromWire converts a wire EUI pair.
func EuiPairFromWire(w *wire.EuiPair) (EuiPair, error) {
	if w == nil {
		return EuiPair{}, fmt.Errorf("eui pair: missing")
	}
	return EuiPair{RouteID: w.RouteID, AppEUI: hexfield.EUI(w.AppEui), DevEUI: hexfield.EUI(w.DevEui)}, nil
}

// ToWire converts the pair to its wire form.
func (e EuiPair) ToWire() *wire.EuiPair {
	return &wire.EuiPair{RouteID: e.RouteID, AppEui: uint64(e.AppEUI), DevEui: uint64(e.DevEUI)}
}

// String returns "app_eui/dev_eui".
func (e EuiPair) String() string {
	return e.AppEUI.String() + "/" + e.DevEUI.String()
}

// SessionKeyFilter restricts the session keys accepted for a DevAddr.
type SessionKeyFilter struct {
	Oui        uint64           `json:"oui"`
	Devaddr    hexfield.DevAddr `json:"devaddr"`
	SessionKey string           `json:"session_key"`
}

// SessionKeyFilterFromWire converts a wire filter.
func SessionKeyFilterFromWire(w *wire.SessionKeyFilter) (SessionKeyFilter, error) {
	if w == nil {
		return SessionKeyFilter{}, fmt.Errorf("session key filter: missing")
	}
	if !utf8.Valid(w.SessionKey) {
		return SessionKeyFilter{}, fmt.Errorf("session key filter %d/%s: session key is not valid UTF-8", w.Oui, hexfield.DevAddr(w.Devaddr))
	}
	return SessionKeyFilter{
		Oui:        w.Oui,
		Devaddr:    hexfield.DevAddr(w.Devaddr),
		SessionKey: string(w.SessionKey),
	}, nil
}

// ToWire converts the filter to its wire form.
func (f SessionKeyFilter) ToWire() *wire.SessionKeyFilter {
	return &wire.SessionKeyFilter{
		Oui:        f.Oui,
		Devaddr:    uint32(f.Devaddr),
		SessionKey: []byte(f.SessionKey),
	}
}

// String returns "oui/devaddr/key".
func (f SessionKeyFilter) String() string {
	return fmt.Sprintf("%d/%s/%s", f.Oui, f.Devaddr, f.SessionKey)
}
