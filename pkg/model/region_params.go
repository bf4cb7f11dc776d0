package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

// TaggedSpreading pairs a spreading factor with its maximum packet size.
type TaggedSpreading struct {
	RegionSpreading string `json:"region_spreading"`
	MaxPacketSize   uint32 `json:"max_packet_size"`
}

// RegionParam describes one channel of a regional plan.
type RegionParam struct {
	ChannelFrequency uint64            `json:"channel_frequency"`
	ChannelBandwidth uint32            `json:"channel_bandwidth"`
	MaxEirp          uint32            `json:"max_eirp"`
	Spreading        []TaggedSpreading `json:"spreading"`
}

// RegionParams is the channel plan for a region.
type RegionParams struct {
	RegionParams []RegionParam `json:"region_params"`
}

// LoadRegionParams reads a JSON channel plan file.
func LoadRegionParams(path string) (RegionParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RegionParams{}, err
	}
	var p RegionParams
	if err := json.Unmarshal(data, &p); err != nil {
		return RegionParams{}, fmt.Errorf("parse region params %s: %w", path, err)
	}
	if len(p.RegionParams) == 0 {
		return RegionParams{}, fmt.Errorf("region params %s: no channels", path)
	}
	return p, nil
}

// ToWire converts the channel plan to its wire form.
func (p RegionParams) ToWire() *wire.RegionParams {
	out := &wire.RegionParams{RegionParams: make([]wire.RegionParam, 0, len(p.RegionParams))}
	for _, rp := range p.RegionParams {
		w := wire.RegionParam{
			ChannelFrequency: rp.ChannelFrequency,
			ChannelBandwidth: rp.ChannelBandwidth,
			MaxEirp:          rp.MaxEirp,
		}
		for _, s := range rp.Spreading {
			w.Spreading = append(w.Spreading, wire.TaggedSpreading{
				RegionSpreading: s.RegionSpreading,
				MaxPacketSize:   s.MaxPacketSize,
			})
		}
		out.RegionParams = append(out.RegionParams, w)
	}
	return out
}
