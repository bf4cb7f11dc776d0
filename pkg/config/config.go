// Package config loads the operator settings used by the iotconfig tool.
//
// Settings are resolved in order: defaults, then the YAML settings file,
// then HELIUM_* environment variables. Command-line flags override the
// result in the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfigHost = "HELIUM_CONFIG_HOST"
	EnvKeypair    = "HELIUM_KEYPAIR_BIN"
	EnvNetID      = "HELIUM_NET_ID"
	EnvOui        = "HELIUM_OUI"
	EnvMaxCopies  = "HELIUM_MAX_COPIES"
)

// Defaults.
const (
	DefaultConfigHost = "http://localhost:50051"
	DefaultKeypair    = "./keypair.bin"
	DefaultMaxCopies  = 5
	DefaultRouteCache = "./routes"
	DefaultLogLevel   = "info"
)

// DefaultNetID is the Helium NetID.
const DefaultNetID hexfield.NetID = 0xC00053

// Settings are the operator's connection and identity settings.
type Settings struct {
	// ConfigHost is the configuration service address.
	ConfigHost string `yaml:"config_host"`

	// Keypair is the path of the signing keypair file.
	Keypair string `yaml:"keypair"`

	// NetID is the default NetID for new routes.
	NetID hexfield.NetID `yaml:"net_id"`

	// Oui is the operator's organization. Zero means unset.
	Oui uint64 `yaml:"oui,omitempty"`

	// MaxCopies is the default packet copy limit for new routes.
	MaxCopies uint32 `yaml:"max_copies"`

	// RouteCache is the directory of cached routes.
	RouteCache string `yaml:"route_cache"`

	// ProtocolLog, when set, is the capture file every request and
	// response is appended to.
	ProtocolLog string `yaml:"protocol_log,omitempty"`

	// LogLevel is the operational log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// Default returns the default settings.
func Default() Settings {
	return Settings{
		ConfigHost: DefaultConfigHost,
		Keypair:    DefaultKeypair,
		NetID:      DefaultNetID,
		MaxCopies:  DefaultMaxCopies,
		RouteCache: DefaultRouteCache,
		LogLevel:   DefaultLogLevel,
	}
}

// LoadError reports a settings file or variable that could not be used.
type LoadError struct {
	// Source is the file path or environment variable.
	Source  string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return Settings{}, &LoadError{Source: path, Message: "failed to read file", Cause: err}
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, &LoadError{Source: path, Message: "failed to parse YAML", Cause: err}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, &LoadError{Source: path, Message: "invalid settings", Cause: err}
	}
	return s, nil
}

// Save writes the settings as YAML, creating parent directories.
func (s Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides settings from environment variables. lookup is
// os.LookupEnv in production.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvConfigHost); ok && v != "" {
		s.ConfigHost = v
	}
	if v, ok := lookup(EnvKeypair); ok && v != "" {
		s.Keypair = v
	}
	if v, ok := lookup(EnvNetID); ok && v != "" {
		id, err := hexfield.ParseNetID(strings.ToUpper(v))
		if err != nil {
			return &LoadError{Source: EnvNetID, Message: "invalid value", Cause: err}
		}
		s.NetID = id
	}
	if v, ok := lookup(EnvOui); ok && v != "" {
		oui, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return &LoadError{Source: EnvOui, Message: "invalid value", Cause: err}
		}
		s.Oui = oui
	}
	if v, ok := lookup(EnvMaxCopies); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return &LoadError{Source: EnvMaxCopies, Message: "invalid value", Cause: err}
		}
		s.MaxCopies = uint32(n)
	}
	return nil
}

// Validate checks the settings for values no command could use.
func (s Settings) Validate() error {
	if s.ConfigHost == "" {
		return errors.New("config_host is empty")
	}
	if s.Keypair == "" {
		return errors.New("keypair is empty")
	}
	switch s.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", s.LogLevel)
	}
	return nil
}

// Env returns the settings as environment assignments, in the order of
// the variables above. Unset OUI is omitted.
func (s Settings) Env() []string {
	out := []string{
		EnvConfigHost + "=" + s.ConfigHost,
		EnvKeypair + "=" + s.Keypair,
		EnvNetID + "=" + s.NetID.String(),
	}
	if s.Oui != 0 {
		out = append(out, EnvOui+"="+strconv.FormatUint(s.Oui, 10))
	}
	out = append(out, EnvMaxCopies+"="+strconv.FormatUint(uint64(s.MaxCopies), 10))
	return out
}
