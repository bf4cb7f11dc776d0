package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotconfig/iotconfig-go/pkg/devaddr"
	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
	"github.com/iotconfig/iotconfig-go/pkg/keypair"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

func TestRegionMappingIsExhaustive(t *testing.T) {
	seenWire := map[wire.Region]bool{}
	for _, r := range Regions() {
		w, err := r.ToWire()
		require.NoError(t, err, "region %s", r)
		assert.False(t, seenWire[w], "wire region %s mapped twice", w)
		seenWire[w] = true

		back, err := RegionFromWire(w)
		require.NoError(t, err)
		assert.Equal(t, r, back)

		assert.Equal(t, w.String(), r.String(), "names must agree with the wire enum")
	}

	// Every wire region has a domain counterpart.
	for w := wire.RegionUS915; w <= wire.RegionCD900_1A; w++ {
		assert.True(t, seenWire[w], "wire region %s has no domain mapping", w)
	}
	assert.Len(t, Regions(), 14)
}

func TestRegionRejectsUnknown(t *testing.T) {
	_, err := RegionFromWire(wire.Region(77))
	var ure *UnknownRegionError
	assert.ErrorAs(t, err, &ure)

	_, err = Region(0).ToWire()
	assert.ErrorAs(t, err, &ure)

	_, err = ParseRegion("eu999")
	assert.ErrorAs(t, err, &ure)
}

func TestParseRegion(t *testing.T) {
	tests := map[string]Region{
		"us915":    RegionUS915,
		"US915":    RegionUS915,
		"as923_1b": RegionAS923_1B,
		"cd900_1a": RegionCD900_1A,
		" eu868 ":  RegionEU868,
	}
	for in, want := range tests {
		got, err := ParseRegion(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestRegionJSON(t *testing.T) {
	data, err := json.Marshal(GwmpMapping{Region: RegionAS923_2, Port: 1700})
	require.NoError(t, err)
	assert.JSONEq(t, `{"region":"AS923_2","port":1700}`, string(data))

	var m GwmpMapping
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, RegionAS923_2, m.Region)
}

func sampleRoute() Route {
	r := NewRoute(DefaultNetID, 7, DefaultMaxCopies)
	r.ID = "5e3f8a1c-8d7a-4b6e-9f0a-2c1d3e4f5a6b"
	r.Server.Host = "lns.example.com"
	r.Server.Port = 8080
	return r
}

func TestRouteWireRoundTrip(t *testing.T) {
	protocols := []Protocol{
		PacketRouter(),
		Gwmp(GwmpMapping{Region: RegionUS915, Port: 1700}, GwmpMapping{Region: RegionEU868, Port: 1701}),
		HTTP(HTTPRoaming{FlowType: FlowAsync, DedupeTimeout: 250, Path: "/roaming", AuthHeader: "Bearer x"}),
	}
	for _, p := range protocols {
		t.Run(string(p.Kind), func(t *testing.T) {
			r := sampleRoute()
			r.Server.Protocol = p

			w, err := r.ToWire()
			require.NoError(t, err)
			assert.Equal(t, uint32(0xC00053), w.NetID)

			back, err := RouteFromWire(w)
			require.NoError(t, err)
			assert.Equal(t, r, back)
		})
	}
}

func TestRouteFromWireRejects(t *testing.T) {
	base := func() *wire.Route {
		return &wire.Route{
			ID:     "r",
			NetID:  0xC00053,
			Server: &wire.Server{Protocol: &wire.Protocol{PacketRouter: &wire.ProtocolPacketRouter{}}},
		}
	}

	tooWide := base()
	tooWide.NetID = 1 << 24
	_, err := RouteFromWire(tooWide)
	assert.Error(t, err)

	noProtocol := base()
	noProtocol.Server.Protocol = nil
	_, err = RouteFromWire(noProtocol)
	assert.Error(t, err)

	twoVariants := base()
	twoVariants.Server.Protocol.Gwmp = &wire.ProtocolGwmp{}
	_, err = RouteFromWire(twoVariants)
	assert.Error(t, err)

	badRegion := base()
	badRegion.Server.Protocol = &wire.Protocol{Gwmp: &wire.ProtocolGwmp{
		Mapping: []wire.GwmpMapping{{Region: wire.Region(99), Port: 1}},
	}}
	_, err = RouteFromWire(badRegion)
	var ure *UnknownRegionError
	assert.ErrorAs(t, err, &ure)

	_, err = RouteFromWire(nil)
	assert.Error(t, err)
}

func TestRouteJSON(t *testing.T) {
	r := sampleRoute()
	require.NoError(t, r.SetGwmpRegion(RegionEU868, 1701))

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"net_id":"C00053"`)
	assert.Contains(t, string(data), `"type":"gwmp"`)

	var back Route
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)

	bad := []byte(`{"id":"r","net_id":"C00053","server":{"protocol":{"type":"http_roaming"}}}`)
	assert.Error(t, json.Unmarshal(bad, &back))
}

func TestGwmpRegionEditing(t *testing.T) {
	r := sampleRoute()

	err := r.RemoveGwmpRegion(RegionUS915)
	assert.ErrorIs(t, err, ErrNotGwmp)

	require.NoError(t, r.SetGwmpRegion(RegionEU868, 1701))
	require.NoError(t, r.SetGwmpRegion(RegionUS915, 1700))
	require.NoError(t, r.SetGwmpRegion(RegionEU868, 1702))
	assert.Equal(t, ProtocolGwmp, r.Server.Protocol.Kind)
	assert.Equal(t, []GwmpMapping{
		{Region: RegionUS915, Port: 1700},
		{Region: RegionEU868, Port: 1702},
	}, r.Server.Protocol.Mapping)

	require.NoError(t, r.RemoveGwmpRegion(RegionUS915))
	assert.Equal(t, []GwmpMapping{{Region: RegionEU868, Port: 1702}}, r.Server.Protocol.Mapping)

	assert.Error(t, r.SetGwmpRegion(Region(0), 1))
}

func TestOrgFromWire(t *testing.T) {
	owner, err := keypair.Generate(keypair.KeyTypeEd25519, keypair.NetworkMainnet, nil)
	require.NoError(t, err)
	payer, err := keypair.Generate(keypair.KeyTypeECCCompact, keypair.NetworkMainnet, nil)
	require.NoError(t, err)

	res := &wire.OrgRes{
		Org: &wire.Org{
			Oui:          4,
			Owner:        owner.PublicKey().Bytes(),
			Payer:        payer.PublicKey().Bytes(),
			DelegateKeys: [][]byte{owner.PublicKey().Bytes()},
		},
		NetID:              0xC00053,
		DevaddrConstraints: []wire.DevaddrConstraint{{StartAddr: 0x48000000, EndAddr: 0x480003FF}},
	}

	got, err := OrgResponseFromWire(res)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got.Org.Oui)
	assert.True(t, got.Org.Owner.Equal(owner.PublicKey()))
	assert.True(t, got.Org.Payer.Equal(payer.PublicKey()))
	require.Len(t, got.Org.DelegateKeys, 1)
	assert.Equal(t, hexfield.NetID(0xC00053), got.NetID)
	assert.Equal(t, uint64(1024), got.DevaddrConstraints[0].Length())

	assert.Equal(t, res.Org, got.Org.ToWire())

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(data), owner.PublicKey().String())
	assert.Contains(t, string(data), `"start_addr":"48000000"`)

	res.DevaddrConstraints[0] = wire.DevaddrConstraint{StartAddr: 2, EndAddr: 1}
	_, err = OrgResponseFromWire(res)
	var ire *devaddr.InvalidRangeError
	assert.ErrorAs(t, err, &ire)

	res.Org.Owner = []byte{0x01, 0x02}
	_, err = OrgResponseFromWire(res)
	assert.ErrorIs(t, err, keypair.ErrInvalidPublicKey)
}

func TestEuiPairAndFilterConversions(t *testing.T) {
	pair := EuiPair{RouteID: "r", AppEUI: 0x0000000000000001, DevEUI: 0xFFFFFFFFFFFFFFFF}
	back, err := EuiPairFromWire(pair.ToWire())
	require.NoError(t, err)
	assert.Equal(t, pair, back)
	assert.Equal(t, "0000000000000001/FFFFFFFFFFFFFFFF", pair.String())

	filter := SessionKeyFilter{Oui: 1, Devaddr: 0x48000001, SessionKey: "my-session-key"}
	w := filter.ToWire()
	assert.Equal(t, []byte("my-session-key"), w.SessionKey)
	fback, err := SessionKeyFilterFromWire(w)
	require.NoError(t, err)
	assert.Equal(t, filter, fback)
	assert.Equal(t, "1/48000001/my-session-key", filter.String())

	// Hex-looking keys are sent as text, not decoded.
	assert.Equal(t, []byte{0x41, 0x42, 0x43, 0x44}, SessionKeyFilter{SessionKey: "ABCD"}.ToWire().SessionKey)

	_, err = SessionKeyFilterFromWire(&wire.SessionKeyFilter{Oui: 1, SessionKey: []byte{0xff, 0xfe}})
	assert.Error(t, err)
	_, err = SessionKeyFilterFromWire(nil)
	assert.Error(t, err)
}

func TestDevaddrRangeConversions(t *testing.T) {
	r, err := devaddr.NewRange("r", 0x48000800, 0x48000FFF)
	require.NoError(t, err)
	back, err := DevaddrRangeFromWire(DevaddrRangeToWire(r))
	require.NoError(t, err)
	assert.Equal(t, r, back)

	_, err = DevaddrRangeFromWire(&wire.DevaddrRange{StartAddr: 5, EndAddr: 4})
	assert.Error(t, err)
}

func TestLoadRegionParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "us915.json")
	content := `{"region_params":[{"channel_frequency":903900000,"channel_bandwidth":125000,"max_eirp":360,
		"spreading":[{"region_spreading":"SF10","max_packet_size":24}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	params, err := LoadRegionParams(path)
	require.NoError(t, err)
	w := params.ToWire()
	require.Len(t, w.RegionParams, 1)
	assert.Equal(t, uint64(903900000), w.RegionParams[0].ChannelFrequency)
	assert.Equal(t, "SF10", w.RegionParams[0].Spreading[0].RegionSpreading)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0644))
	_, err = LoadRegionParams(empty)
	assert.Error(t, err)
}
