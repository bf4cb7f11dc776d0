package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iotconfig/iotconfig-go/pkg/config"
	"github.com/iotconfig/iotconfig-go/pkg/keypair"
	"github.com/iotconfig/iotconfig-go/pkg/persistence"
	"github.com/iotconfig/iotconfig-go/pkg/signing"
	"github.com/iotconfig/iotconfig-go/pkg/wire"
)

const dryRunPrefix = "== DRY RUN == (pass `--commit`)\n"

func TestMsgString(t *testing.T) {
	assert.Equal(t, dryRunPrefix+"x", DryRun("x").String())
	assert.Equal(t, "✓ done", Success("done").String())
	assert.Equal(t, "✗ boom", Failure("boom").String())
}

func TestPrettyJSONUsesTwoSpaces(t *testing.T) {
	s, err := prettyJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", s)
}

func TestSubnetMask(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("subnet-mask", "00000001", "00000002")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "✓ "), out)

	var blocks []struct {
		Base       string `json:"base"`
		PrefixBits uint8  `json:"prefix_bits"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(out, "✓ ")), &blocks))
	require.Len(t, blocks, 2)
	assert.Equal(t, "00000001", blocks[0].Base)
	assert.Equal(t, uint8(32), blocks[0].PrefixBits)
	assert.Equal(t, "00000002", blocks[1].Base)
	assert.Equal(t, uint8(32), blocks[1].PrefixBits)
}

func TestSubnetMaskAcceptsLowercase(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("subnet-mask", "48000800", "48000fff")
	require.NoError(t, err)
	assert.Contains(t, out, `"base": "48000800"`)
	assert.Contains(t, out, `"prefix_bits": 21`)
}

func TestSubnetMaskRejectsReversedRange(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("subnet-mask", "00000002", "00000001")
	require.Error(t, err)
	assert.Zero(t, env.svc.dials)
}

func TestRouteNewDryRun(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("route", "new", "--max-copies", "3")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, dryRunPrefix+"create route\n"), out)
	assert.Contains(t, out, `"oui": 7`)
	assert.Contains(t, out, `"net_id": "C00053"`)
	assert.Contains(t, out, `"max_copies": 3`)
	assert.Zero(t, env.svc.dials, "dry run must not connect")
}

func TestRouteNewCommitCachesRoute(t *testing.T) {
	env := newTestEnv(t)
	env.svc.unary[wire.MethodRouteCreate] = func(data []byte) (any, error) {
		req := decode[wire.RouteCreateReq](t, data)
		require.NoError(t, signing.Verify(req, env.key.PublicKey()))
		route := *req.Route
		route.ID = testRouteID
		return &route, nil
	}

	out, err := env.run("route", "new", "--commit")
	require.NoError(t, err)
	assert.Contains(t, out, testRouteID)

	cached, err := persistence.NewRouteStore(filepath.Join(env.dir, "routes")).Load(testRouteID)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cached.Oui)
	assert.Equal(t, uint32(config.DefaultMaxCopies), cached.MaxCopies)
}

func TestRouteUpdateMaxCopies(t *testing.T) {
	env := newTestEnv(t)
	env.svc.unary[wire.MethodRouteGet] = func([]byte) (any, error) {
		return wireRoute(testRouteID, 3), nil
	}
	env.svc.unary[wire.MethodRouteUpdate] = func(data []byte) (any, error) {
		req := decode[wire.RouteUpdateReq](t, data)
		return req.Route, nil
	}

	out, err := env.run("route", "update", "max-copies", "-r", testRouteID, "--max-copies", "9")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, dryRunPrefix), out)
	assert.Contains(t, out, `"max_copies": 9`)
	assert.Empty(t, env.svc.requests(wire.MethodRouteUpdate))

	out, err = env.run("route", "update", "max-copies", "-r", testRouteID, "--max-copies", "9", "--commit")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "✓ "), out)

	reqs := env.svc.requests(wire.MethodRouteUpdate)
	require.Len(t, reqs, 1)
	req := decode[wire.RouteUpdateReq](t, reqs[0])
	assert.Equal(t, uint32(9), req.Route.MaxCopies)
	assert.Equal(t, uint64(testTime.UnixMilli()), req.Timestamp)
	require.NoError(t, signing.Verify(req, env.key.PublicKey()))

	cached, err := persistence.NewRouteStore(filepath.Join(env.dir, "routes")).Load(testRouteID)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), cached.MaxCopies)
}

func TestRouteUpdateGwmpRegion(t *testing.T) {
	env := newTestEnv(t)
	env.svc.unary[wire.MethodRouteGet] = func([]byte) (any, error) {
		return wireRoute(testRouteID, 3), nil
	}

	out, err := env.run("route", "update", "add-gwmp-region", "-r", testRouteID, "us915", "1701")
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "gwmp"`)
	assert.Contains(t, out, `"region": "US915"`)
	assert.Contains(t, out, `"port": 1701`)

	_, err = env.run("route", "update", "remove-gwmp-region", "-r", testRouteID, "US915")
	require.Error(t, err, "packet router route has no gwmp mapping")
}

func TestRouteCommandsRejectBadRouteID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("route", "get", "-r", "../../etc/passwd")
	var idErr *persistence.InvalidRouteIDError
	require.ErrorAs(t, err, &idErr)
	assert.Zero(t, env.svc.dials)
}

func TestRouteDeactivateAlias(t *testing.T) {
	env := newTestEnv(t)
	env.svc.unary[wire.MethodRouteGet] = func([]byte) (any, error) {
		return wireRoute(testRouteID, 3), nil
	}

	out, err := env.run("route", "disable", "-r", testRouteID)
	require.NoError(t, err)
	assert.Contains(t, out, `"active": false`)
}

func TestEuisAddFromFile(t *testing.T) {
	env := newTestEnv(t)
	env.svc.streams[wire.MethodRouteUpdateEuis] = func([][]byte) ([]any, error) {
		return []any{&wire.RouteEuisRes{}}, nil
	}
	file := filepath.Join(env.dir, "euis.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
		{"app_eui": "0000000000000001", "dev_eui": "00000000000000AA"},
		{"app_eui": "0000000000000002", "dev_eui": "00000000000000BB"}
	]`), 0644))

	out, err := env.run("route", "euis", "add", "-r", testRouteID, "--file", file, "--commit")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "✓ "), out)

	reqs := env.svc.requests(wire.MethodRouteUpdateEuis)
	require.Len(t, reqs, 2)
	for i, data := range reqs {
		req := decode[wire.RouteUpdateEuisReq](t, data)
		assert.Equal(t, wire.ActionAdd, req.Action)
		assert.Equal(t, testRouteID, req.EuiPair.RouteID)
		assert.Equal(t, uint64(i+1), req.EuiPair.AppEui)
		require.NoError(t, signing.Verify(req, env.key.PublicKey()))
	}
}

func TestDevaddrsAddDryRunRejectsReversed(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("route", "devaddrs", "add", "-r", testRouteID,
		"--start-addr", "48000800", "--end-addr", "48000fff")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, dryRunPrefix+"add devaddrs\n"), out)
	assert.Contains(t, out, `"start_addr": "48000800"`)
	assert.Contains(t, out, `"end_addr": "48000FFF"`)

	_, err = env.run("route", "devaddrs", "add", "-r", testRouteID,
		"--start-addr", "48000FFF", "--end-addr", "48000800")
	require.Error(t, err)
}

func TestDevaddrsSubnetMask(t *testing.T) {
	env := newTestEnv(t)
	env.svc.streams[wire.MethodRouteGetDevaddrRanges] = func([][]byte) ([]any, error) {
		return []any{
			&wire.DevaddrRange{RouteID: testRouteID, StartAddr: 0x48000800, EndAddr: 0x48000FFF},
		}, nil
	}

	out, err := env.run("route", "devaddrs", "subnet-mask", "-r", testRouteID)
	require.NoError(t, err)
	assert.Contains(t, out, `"subnets"`)
	assert.Contains(t, out, `"prefix_bits": 21`)
}

func TestSkfAddDryRun(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("skf", "add", "--devaddr", "48000801", "--session-key", "my-session-key")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, dryRunPrefix), out)
	assert.Contains(t, out, `"session_key": "my-session-key"`)
	assert.Contains(t, out, `"oui": 7`)
}

func TestOrgGetUsesConfiguredOui(t *testing.T) {
	env := newTestEnv(t)
	env.svc.unary[wire.MethodOrgGet] = func(data []byte) (any, error) {
		req := decode[wire.OrgGetReq](t, data)
		return &wire.OrgRes{
			Org:   &wire.Org{Oui: req.Oui, Owner: env.key.PublicKey().Bytes(), Payer: env.key.PublicKey().Bytes()},
			NetID: 0xC00053,
		}, nil
	}

	out, err := env.run("org", "get")
	require.NoError(t, err)
	assert.Contains(t, out, `"oui": 7`)
	assert.Contains(t, out, env.key.PublicKey().String())
}

func TestOrgCreateHeliumDryRun(t *testing.T) {
	env := newTestEnv(t)
	pk := env.key.PublicKey().String()

	out, err := env.run("org", "create-helium", "--owner", pk, "--payer", pk, "--devaddr-count", "8")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, dryRunPrefix+"create helium org\n"), out)
	assert.Contains(t, out, `"devaddr_count": 8`)

	_, err = env.run("org", "create-helium", "--owner", "not-a-key", "--payer", pk, "--devaddr-count", "8")
	require.Error(t, err)
}

func TestRegionParamsPushDryRun(t *testing.T) {
	env := newTestEnv(t)
	params := filepath.Join(env.dir, "params.json")
	require.NoError(t, os.WriteFile(params, []byte(`{"region_params": [
		{"channel_frequency": 903900000, "channel_bandwidth": 125000, "max_eirp": 360,
		 "spreading": [{"region_spreading": "SF7", "max_packet_size": 242}]}
	]}`), 0644))
	index := filepath.Join(env.dir, "us915.h3idz")
	require.NoError(t, os.WriteFile(index, []byte{1, 2, 3, 4}, 0644))

	out, err := env.run("region-params", "push", "US915", "--params-file", params, "--index-file", index)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, dryRunPrefix+"load region US915\n"), out)
	assert.Contains(t, out, `"index_bytes": 4`)

	env.svc.unary[wire.MethodGatewayLoadRegion] = func(data []byte) (any, error) {
		req := decode[wire.GatewayLoadRegionReq](t, data)
		assert.Equal(t, []byte{1, 2, 3, 4}, req.HexIndexes)
		return &wire.GatewayLoadRegionRes{}, nil
	}
	out, err = env.run("region-params", "push", "US915", "--params-file", params, "--index-file", index, "--commit")
	require.NoError(t, err)
	assert.Equal(t, "✓ region US915 loaded (1 channels, 4 index bytes)\n", out)
}

func TestEnvGenerateKeypair(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "new.bin")

	out, err := env.run("env", "generate-keypair", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "✓ new ed25519 keypair written to "), out)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	out, err = env.run("env", "generate-keypair", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, dryRunPrefix), out)
	unchanged, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, unchanged)

	_, err = env.run("env", "generate-keypair", path, "--commit", "--key-type", "ecc_compact")
	require.NoError(t, err)
	kp, err := keypair.Load(path)
	require.NoError(t, err)
	assert.Equal(t, keypair.KeyTypeECCCompact, kp.KeyType())
}

func TestEnvInfo(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("env", "info")
	require.NoError(t, err)
	assert.Contains(t, out, `"public_key": "`+env.key.PublicKey().String()+`"`)
	assert.Contains(t, out, `"net_id": "C00053"`)
	assert.Contains(t, out, `"oui": 7`)
}

func TestEnvOverridesSettingsFile(t *testing.T) {
	env := newTestEnv(t)
	var out bytes.Buffer
	app := &App{
		Out:    &out,
		ErrOut: &bytes.Buffer{},
		LookupEnv: func(k string) (string, bool) {
			if k == config.EnvOui {
				return "42", true
			}
			return "", false
		},
	}
	root := app.RootCommand()
	root.SetArgs([]string{"--config", env.settings, "env", "info"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"oui": 42`)
}

func answers(values ...string) Prompter {
	return func(_, def string) (string, error) {
		if len(values) == 0 {
			return def, nil
		}
		v := values[0]
		values = values[1:]
		if v == "" {
			return def, nil
		}
		return v, nil
	}
}

func TestPromptSettings(t *testing.T) {
	s, err := promptSettings(answers("https://config.example.com", "", "c00053", "12", "2"), config.Default())
	require.NoError(t, err)
	assert.Equal(t, "https://config.example.com", s.ConfigHost)
	assert.Equal(t, config.DefaultKeypair, s.Keypair)
	assert.Equal(t, config.DefaultNetID, s.NetID)
	assert.Equal(t, uint64(12), s.Oui)
	assert.Equal(t, uint32(2), s.MaxCopies)

	_, err = promptSettings(answers("", "", "", "twelve"), config.Default())
	require.Error(t, err)

	failing := func(string, string) (string, error) { return "", errors.New("interrupted") }
	_, err = promptSettings(failing, config.Default())
	require.EqualError(t, err, "interrupted")
}

func TestEnvInitCommitWritesSettings(t *testing.T) {
	env := newTestEnv(t)
	target := filepath.Join(env.dir, "new.yaml")
	var out bytes.Buffer
	app := &App{
		Out:       &out,
		ErrOut:    &bytes.Buffer{},
		LookupEnv: func(string) (string, bool) { return "", false },
		Prompt:    answers("http://config.local:50051", "", "", "99", "4"),
	}
	root := app.RootCommand()
	root.SetArgs([]string{"--config", target, "env", "init", "--commit"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "export HELIUM_CONFIG_HOST=http://config.local:50051")
	assert.Contains(t, out.String(), "export HELIUM_OUI=99")

	s, err := config.Load(target)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), s.Oui)
	assert.Equal(t, uint32(4), s.MaxCopies)
}

func TestMissingKeypairFailsBeforeDial(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("--keypair", filepath.Join(env.dir, "missing.bin"), "route", "list")
	require.ErrorIs(t, err, keypair.ErrReadFile)
	assert.Zero(t, env.svc.dials)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("warn", &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", zap.Int("n", 1))
	require.NoError(t, logger.Sync())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = newLogger("loud", &buf)
	require.Error(t, err)
}

func TestCaptureRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.svc.unary[wire.MethodRouteGet] = func([]byte) (any, error) {
		return wireRoute(testRouteID, 3), nil
	}
	capture := filepath.Join(env.dir, "capture.cbor")

	_, err := env.run("--protocol-log", capture, "route", "get", "-r", testRouteID)
	require.NoError(t, err)

	out, err := env.run("capture", "export", capture)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var req, res jsonEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &req))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &res))
	assert.Equal(t, "OUT", req.Direction)
	assert.Equal(t, "IN", res.Direction)
	assert.Equal(t, wire.MethodRouteGet, req.Method)
	assert.Equal(t, req.RequestID, res.RequestID)
	assert.Equal(t, env.key.PublicKey().String(), req.Signer)
	require.NotNil(t, req.Message)
	assert.Equal(t, uint64(testTime.UnixMilli()), req.Message.SignedAt)

	filtered := filepath.Join(env.dir, "in.cbor")
	out, err = env.run("capture", "filter", capture, "-o", filtered, "--direction", "in")
	require.NoError(t, err)
	assert.Contains(t, out, "filtered 1 events")

	out, err = env.run("capture", "export", filtered, "--format", "csv")
	require.NoError(t, err)
	rows := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, rows, 2)
	assert.True(t, strings.HasPrefix(rows[0], "timestamp,request_id,direction"))
	assert.Contains(t, rows[1], ",IN,MESSAGE,"+wire.MethodRouteGet+",")

	_, err = env.run("capture", "export", capture, "--direction", "sideways")
	require.Error(t, err)
}

func TestRoutePushFromCache(t *testing.T) {
	env := newTestEnv(t)
	env.svc.unary[wire.MethodRouteGet] = func([]byte) (any, error) {
		return wireRoute(testRouteID, 3), nil
	}
	env.svc.unary[wire.MethodRouteUpdate] = func(data []byte) (any, error) {
		req := decode[wire.RouteUpdateReq](t, data)
		return req.Route, nil
	}

	_, err := env.run("route", "get", "-r", testRouteID, "--commit")
	require.NoError(t, err)

	store := persistence.NewRouteStore(filepath.Join(env.dir, "routes"))
	cached, err := store.Load(testRouteID)
	require.NoError(t, err)
	cached.MaxCopies = 11
	require.NoError(t, store.Save(*cached))

	dials := env.svc.dials
	out, err := env.run("route", "push", "-r", testRouteID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, dryRunPrefix), out)
	assert.Contains(t, out, `"max_copies": 11`)
	assert.Equal(t, dials, env.svc.dials)

	_, err = env.run("route", "push", "-r", testRouteID, "--commit")
	require.NoError(t, err)
	reqs := env.svc.requests(wire.MethodRouteUpdate)
	require.Len(t, reqs, 1)
	req := decode[wire.RouteUpdateReq](t, reqs[0])
	assert.Equal(t, uint32(11), req.Route.MaxCopies)
	require.NoError(t, signing.Verify(req, env.key.PublicKey()))

	_, err = env.run("route", "push", "-r", "0b8d2c7e-2222-4a6e-9f0a-2c1d3e4f5a6b")
	require.Error(t, err)
}
