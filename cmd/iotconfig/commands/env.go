package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/iotconfig/iotconfig-go/pkg/config"
	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
	"github.com/iotconfig/iotconfig-go/pkg/keypair"
)

// Prompter asks for one value. An empty answer returns def.
type Prompter func(label, def string) (string, error)

// readlinePrompter reads answers from the app's input. The returned func
// releases the terminal.
func (a *App) readlinePrompter() (Prompter, func(), error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:           a.In,
		Stdout:          a.Out,
		Stderr:          a.ErrOut,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create readline: %w", err)
	}
	prompt := func(label, def string) (string, error) {
		rl.SetPrompt(fmt.Sprintf("%s [%s]: ", label, def))
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				return "", errors.New("interrupted")
			}
			return "", err
		}
		if line = strings.TrimSpace(line); line == "" {
			return def, nil
		}
		return line, nil
	}
	return prompt, func() { _ = rl.Close() }, nil
}

// promptSettings asks for each connection and identity setting, offering
// the values of base as defaults.
func promptSettings(prompt Prompter, base config.Settings) (config.Settings, error) {
	s := base

	host, err := prompt("Config service host", s.ConfigHost)
	if err != nil {
		return s, err
	}
	s.ConfigHost = host

	kp, err := prompt("Keypair location", s.Keypair)
	if err != nil {
		return s, err
	}
	s.Keypair = kp

	netID, err := prompt("Net ID", s.NetID.String())
	if err != nil {
		return s, err
	}
	if s.NetID, err = parseNetID(netID); err != nil {
		return s, err
	}

	ouiDef := ""
	if s.Oui != 0 {
		ouiDef = strconv.FormatUint(s.Oui, 10)
	}
	oui, err := prompt("Assigned OUI", ouiDef)
	if err != nil {
		return s, err
	}
	if oui != "" {
		if s.Oui, err = strconv.ParseUint(oui, 10, 64); err != nil {
			return s, fmt.Errorf("oui %q: %w", oui, err)
		}
	}

	copies, err := prompt("Default max copies", strconv.FormatUint(uint64(s.MaxCopies), 10))
	if err != nil {
		return s, err
	}
	mc, err := strconv.ParseUint(copies, 10, 32)
	if err != nil {
		return s, fmt.Errorf("max copies %q: %w", copies, err)
	}
	s.MaxCopies = uint32(mc)

	return s, s.Validate()
}

func (a *App) envCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect and initialize the local environment",
	}
	cmd.AddCommand(a.envInitCommand(), a.envInfoCommand(), a.envGenerateKeypairCommand())
	return cmd
}

func (a *App) envInitCommand() *cobra.Command {
	var commit bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Prompt for settings and print them as environment variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prompt := a.Prompt
			if prompt == nil {
				p, done, err := a.readlinePrompter()
				if err != nil {
					return err
				}
				defer done()
				prompt = p
			}

			s, err := promptSettings(prompt, a.settings)
			if err != nil {
				return err
			}

			var b strings.Builder
			b.WriteString("Put these in your environment:\n")
			for _, kv := range s.Env() {
				b.WriteString("export ")
				b.WriteString(kv)
				b.WriteByte('\n')
			}
			text := strings.TrimSuffix(b.String(), "\n")

			if !commit {
				a.print(DryRun(text + "\n\nwould write " + a.configPath))
				return nil
			}
			if err := s.Save(a.configPath); err != nil {
				return err
			}
			a.print(Success(text + "\n\nsettings written to " + a.configPath))
			return nil
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "write the settings file")
	return cmd
}

type envInfo struct {
	SettingsFile string         `json:"settings_file"`
	ConfigHost   string         `json:"config_host"`
	Keypair      string         `json:"keypair"`
	PublicKey    string         `json:"public_key,omitempty"`
	KeyType      string         `json:"key_type,omitempty"`
	KeyError     string         `json:"keypair_error,omitempty"`
	NetID        hexfield.NetID `json:"net_id"`
	Oui          uint64         `json:"oui,omitempty"`
	MaxCopies    uint32         `json:"max_copies"`
	RouteCache   string         `json:"route_cache"`
	ProtocolLog  string         `json:"protocol_log,omitempty"`
}

func (a *App) envInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the resolved settings and the keypair's public key",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			s := a.settings
			info := envInfo{
				SettingsFile: a.configPath,
				ConfigHost:   s.ConfigHost,
				Keypair:      s.Keypair,
				NetID:        s.NetID,
				Oui:          s.Oui,
				MaxCopies:    s.MaxCopies,
				RouteCache:   s.RouteCache,
				ProtocolLog:  s.ProtocolLog,
			}
			if kp, err := keypair.Load(s.Keypair); err != nil {
				info.KeyError = err.Error()
			} else {
				info.PublicKey = kp.PublicKey().String()
				info.KeyType = kp.KeyType().String()
			}
			return a.printJSON(info)
		},
	}
}

func (a *App) envGenerateKeypairCommand() *cobra.Command {
	var (
		commit  bool
		keyType string
		testnet bool
	)
	cmd := &cobra.Command{
		Use:   "generate-keypair [out-file]",
		Short: "Generate a signing keypair",
		Long: `Generate a signing keypair and write it in the tagged binary form.

An existing file is only replaced when --commit is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := config.DefaultKeypair
			if len(args) == 1 {
				path = args[0]
			}
			kt, err := keypair.ParseKeyType(keyType)
			if err != nil {
				return err
			}
			network := keypair.NetworkMainnet
			if testnet {
				network = keypair.NetworkTestnet
			}

			_, statErr := os.Stat(path)
			exists := statErr == nil
			if exists && !commit {
				a.print(DryRun(fmt.Sprintf("%s exists, would overwrite it with a new %s keypair", path, kt)))
				return nil
			}

			kp, err := keypair.Generate(kt, network, nil)
			if err != nil {
				return err
			}
			if exists {
				if err := os.Remove(path); err != nil {
					return err
				}
			}
			if err := kp.WriteFile(path); err != nil {
				return err
			}
			a.print(Success(fmt.Sprintf("new %s keypair written to %s\npublic key: %s", kt, path, kp.PublicKey())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "overwrite an existing file")
	cmd.Flags().StringVar(&keyType, "key-type", "ed25519", "key type (ed25519, ecc_compact)")
	cmd.Flags().BoolVar(&testnet, "testnet", false, "tag the key for testnet")
	return cmd
}
