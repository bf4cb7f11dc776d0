package model

import (
	"fmt"
	"strings"

	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// Region is a LoRaWAN regional plan. The zero value is not a valid region.
type Region uint8

const (
	RegionUS915 Region = iota + 1
	RegionEU868
	RegionEU433
	RegionCN470
	RegionCN779
	RegionAU915
	RegionAS923_1
	RegionAS923_1B
	RegionAS923_2
	RegionAS923_3
	RegionAS923_4
	RegionKR920
	RegionIN865
	RegionCD900_1A
)

// regionTable is the single mapping between domain and wire regions.
var regionTable = []struct {
	region Region
	wire   wire.Region
	name   string
}{
	{RegionUS915, wire.RegionUS915, "US915"},
	{RegionEU868, wire.RegionEU868, "EU868"},
	{RegionEU433, wire.RegionEU433, "EU433"},
	{RegionCN470, wire.RegionCN470, "CN470"},
	{RegionCN779, wire.RegionCN779, "CN779"},
	{RegionAU915, wire.RegionAU915, "AU915"},
	{RegionAS923_1, wire.RegionAS923_1, "AS923_1"},
	{RegionAS923_1B, wire.RegionAS923_1B, "AS923_1B"},
	{RegionAS923_2, wire.RegionAS923_2, "AS923_2"},
	{RegionAS923_3, wire.RegionAS923_3, "AS923_3"},
	{RegionAS923_4, wire.RegionAS923_4, "AS923_4"},
	{RegionKR920, wire.RegionKR920, "KR920"},
	{RegionIN865, wire.RegionIN865, "IN865"},
	{RegionCD900_1A, wire.RegionCD900_1A, "CD900_1A"},
}

// UnknownRegionError is returned for a region name or wire value with no
// domain counterpart.
type UnknownRegionError struct {
	Input string
}

func (e *UnknownRegionError) Error() string {
	return fmt.Sprintf("unsupported region %s", e.Input)
}

// Regions returns every region in declaration order.
func Regions() []Region {
	out := make([]Region, len(regionTable))
	for i, row := range regionTable {
		out[i] = row.region
	}
	return out
}

// ParseRegion parses a region name case-insensitively ("us915",
// "AS923_1B").
func ParseRegion(s string) (Region, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, row := range regionTable {
		if row.name == name {
			return row.region, nil
		}
	}
	return 0, &UnknownRegionError{Input: fmt.Sprintf("%q", s)}
}

// RegionFromWire maps a wire region to its domain value.
func RegionFromWire(w wire.Region) (Region, error) {
	for _, row := range regionTable {
		if row.wire == w {
			return row.region, nil
		}
	}
	return 0, &UnknownRegionError{Input: fmt.Sprintf("%d", int32(w))}
}

// ToWire maps the region to its wire value.
func (r Region) ToWire() (wire.Region, error) {
	for _, row := range regionTable {
		if row.region == r {
			return row.wire, nil
		}
	}
	return 0, &UnknownRegionError{Input: fmt.Sprintf("%d", uint8(r))}
}

// String returns the upper-case region name.
func (r Region) String() string {
	for _, row := range regionTable {
		if row.region == r {
			return row.name
		}
	}
	return fmt.Sprintf("Region(%d)", uint8(r))
}

// IsValid returns true if the region is known.
func (r Region) IsValid() bool {
	_, err := r.ToWire()
	return err == nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Region) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, &UnknownRegionError{Input: fmt.Sprintf("%d", uint8(r))}
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Region) UnmarshalText(text []byte) error {
	v, err := ParseRegion(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
