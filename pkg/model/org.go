package model

import (
	"fmt"

	"github.com/iotconfig/iotconfig-go/pkg/devaddr"
	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
	"github.com/iotconfig/iotconfig-go/pkg/keypair"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// Org is an organization.
type Org struct {
	Oui          uint64              `json:"oui"`
	Owner        keypair.PublicKey   `json:"owner"`
	Payer        keypair.PublicKey   `json:"payer"`
	DelegateKeys []keypair.PublicKey `json:"delegate_keys"`
	Locked       bool                `json:"locked"`
}

// OrgResponse is an organization together with its network allocation.
type OrgResponse struct {
	Org                Org                  `json:"org"`
	NetID              hexfield.NetID       `json:"net_id"`
	DevaddrConstraints []devaddr.Constraint `json:"devaddr_constraints"`
}

// OrgList is the result of listing organizations.
type OrgList struct {
	Orgs []Org `json:"orgs"`
}

func publicKeyFromWire(field string, b []byte) (keypair.PublicKey, error) {
	if len(b) == 0 {
		return keypair.PublicKey{}, nil
	}
	pk, err := keypair.PublicKeyFromBytes(b)
	if err != nil {
		return keypair.PublicKey{}, fmt.Errorf("%s: %w", field, err)
	}
	return pk, nil
}

// PublicKeysToWire returns the binary form of each key.
func PublicKeysToWire(keys []keypair.PublicKey) [][]byte {
	if len(keys) == 0 {
		return nil
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = k.Bytes()
	}
	return out
}

// OrgFromWire converts a wire organization.
func OrgFromWire(w *wire.Org) (Org, error) {
	if w == nil {
		return Org{}, fmt.Errorf("org: missing from response")
	}
	owner, err := publicKeyFromWire("org owner", w.Owner)
	if err != nil {
		return Org{}, err
	}
	payer, err := publicKeyFromWire("org payer", w.Payer)
	if err != nil {
		return Org{}, err
	}
	delegates := make([]keypair.PublicKey, 0, len(w.DelegateKeys))
	for i, b := range w.DelegateKeys {
		pk, err := publicKeyFromWire(fmt.Sprintf("org delegate key %d", i), b)
		if err != nil {
			return Org{}, err
		}
		delegates = append(delegates, pk)
	}
	return Org{
		Oui:          w.Oui,
		Owner:        owner,
		Payer:        payer,
		DelegateKeys: delegates,
		Locked:       w.Locked,
	}, nil
}

// ToWire converts the organization to its wire form.
func (o Org) ToWire() *wire.Org {
	return &wire.Org{
		Oui:          o.Oui,
		Owner:        o.Owner.Bytes(),
		Payer:        o.Payer.Bytes(),
		DelegateKeys: PublicKeysToWire(o.DelegateKeys),
		Locked:       o.Locked,
	}
}

// OrgListFromWire converts an org list response.
func OrgListFromWire(w *wire.OrgListRes) (OrgList, error) {
	list := OrgList{Orgs: make([]Org, 0, len(w.Orgs))}
	for i := range w.Orgs {
		org, err := OrgFromWire(&w.Orgs[i])
		if err != nil {
			return OrgList{}, err
		}
		list.Orgs = append(list.Orgs, org)
	}
	return list, nil
}

// OrgResponseFromWire converts an org get or create response.
func OrgResponseFromWire(w *wire.OrgRes) (OrgResponse, error) {
	org, err := OrgFromWire(w.Org)
	if err != nil {
		return OrgResponse{}, err
	}
	netID, err := hexfield.NetIDFromUint32(w.NetID)
	if err != nil {
		return OrgResponse{}, fmt.Errorf("org %d: %w", org.Oui, err)
	}
	constraints := make([]devaddr.Constraint, 0, len(w.DevaddrConstraints))
	for _, c := range w.DevaddrConstraints {
		dc, err := ConstraintFromWire(c)
		if err != nil {
			return OrgResponse{}, fmt.Errorf("org %d: %w", org.Oui, err)
		}
		constraints = append(constraints, dc)
	}
	return OrgResponse{Org: org, NetID: netID, DevaddrConstraints: constraints}, nil
}
