package hexfield

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseDevAddr(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DevAddr
		wantErr bool
	}{
		{name: "zero", input: "00000000", want: 0},
		{name: "max", input: "FFFFFFFF", want: 0xFFFFFFFF},
		{name: "typical", input: "48000800", want: 0x48000800},
		{name: "too short", input: "4800080", wantErr: true},
		{name: "too long", input: "480008000", wantErr: true},
		{name: "lower case", input: "4800080a", wantErr: true},
		{name: "non hex", input: "4800080G", wantErr: true},
		{name: "prefix", input: "0x480008", wantErr: true},
		{name: "sign", input: "+4800080", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDevAddr(tt.input)
			if tt.wantErr {
				var fe *FormatError
				if !errors.As(err, &fe) {
					t.Fatalf("ParseDevAddr(%q) error = %v, want *FormatError", tt.input, err)
				}
				if fe.Input != tt.input || fe.Kind != "devaddr" {
					t.Errorf("FormatError = %+v, want input %q kind devaddr", fe, tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDevAddr(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDevAddr(%q) = %#x, want %#x", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseEUI(t *testing.T) {
	got, err := ParseEUI("1122334411223344")
	if err != nil {
		t.Fatalf("ParseEUI failed: %v", err)
	}
	if got != 0x1122334411223344 {
		t.Errorf("ParseEUI = %#x", uint64(got))
	}

	for _, bad := range []string{"112233441122334", "11223344112233445", "112233441122334Z"} {
		if _, err := ParseEUI(bad); err == nil {
			t.Errorf("ParseEUI(%q) expected error", bad)
		}
	}
}

func TestParseNetID(t *testing.T) {
	got, err := ParseNetID("C00053")
	if err != nil {
		t.Fatalf("ParseNetID failed: %v", err)
	}
	if got != 0xC00053 {
		t.Errorf("ParseNetID = %#x", uint32(got))
	}

	// A DevAddr-width value is not a NetID.
	if _, err := ParseNetID("00C00053"); err == nil {
		t.Error("ParseNetID accepted 8 digits")
	}
}

func TestNetIDFromUint32(t *testing.T) {
	if _, err := NetIDFromUint32(0xFFFFFF); err != nil {
		t.Errorf("max NetID rejected: %v", err)
	}
	if _, err := NetIDFromUint32(0x1000000); err == nil {
		t.Error("25-bit NetID accepted")
	}
}

func TestFormatPadsToWidth(t *testing.T) {
	if got := DevAddr(0x1).String(); got != "00000001" {
		t.Errorf("DevAddr(1) = %q", got)
	}
	if got := EUI(0xABC).String(); got != "0000000000000ABC" {
		t.Errorf("EUI(0xABC) = %q", got)
	}
	if got := NetID(0x53).String(); got != "000053" {
		t.Errorf("NetID(0x53) = %q", got)
	}
}

func TestRoundTripValues(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x0F, 0x10, 0x48000800, 0x7FFFFFFF, 0x80000000, 0xFFFFFFFF} {
		got, err := ParseDevAddr(DevAddr(v).String())
		if err != nil {
			t.Fatalf("round trip %#x: %v", v, err)
		}
		if uint32(got) != v {
			t.Errorf("round trip %#x = %#x", v, uint32(got))
		}
	}

	for _, v := range []uint64{0, 1, 0x1122334411223344, 0xFFFFFFFFFFFFFFFF} {
		got, err := ParseEUI(EUI(v).String())
		if err != nil {
			t.Fatalf("round trip %#x: %v", v, err)
		}
		if uint64(got) != v {
			t.Errorf("round trip %#x = %#x", v, uint64(got))
		}
	}
}

func TestRoundTripText(t *testing.T) {
	for _, s := range []string{"00000000", "DEADBEEF", "0A0B0C0D", "FFFFFFFF"} {
		v, err := ParseDevAddr(s)
		if err != nil {
			t.Fatalf("ParseDevAddr(%q): %v", s, err)
		}
		if v.String() != s {
			t.Errorf("format(parse(%q)) = %q", s, v.String())
		}
	}
}

func TestJSONAndYAML(t *testing.T) {
	type doc struct {
		Addr  DevAddr `json:"addr" yaml:"addr"`
		EUI   EUI     `json:"eui" yaml:"eui"`
		NetID NetID   `json:"net_id" yaml:"net_id"`
	}
	in := doc{Addr: 0x48000800, EUI: 0x1122334411223344, NetID: 0xC00053}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	want := `{"addr":"48000800","eui":"1122334411223344","net_id":"C00053"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var out doc
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("json round trip = %+v, want %+v", out, in)
	}

	var fromYAML doc
	if err := yaml.Unmarshal([]byte("addr: \"48000800\"\neui: \"1122334411223344\"\nnet_id: C00053\n"), &fromYAML); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if fromYAML != in {
		t.Errorf("yaml = %+v, want %+v", fromYAML, in)
	}

	if err := json.Unmarshal([]byte(`{"addr":"4800080"}`), &out); err == nil {
		t.Error("json accepted short devaddr")
	}
}
