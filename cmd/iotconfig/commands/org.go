package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
	"github.com/iotconfig/iotconfig-go/pkg/keypair"
)

func (a *App) orgCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations",
	}
	cmd.AddCommand(
		a.orgListCommand(),
		a.orgGetCommand(),
		a.orgCreateHeliumCommand(),
		a.orgCreateRoamingCommand(),
	)
	return cmd
}

func (a *App) orgListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.connect(false)
			if err != nil {
				return err
			}
			defer s.Close()

			orgs, err := s.Org.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(orgs)
		},
	}
}

func (a *App) orgGetCommand() *cobra.Command {
	var ouiFlag uint64
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show an organization with its devaddr constraints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oui, err := a.oui(cmd, ouiFlag)
			if err != nil {
				return err
			}
			s, err := a.connect(false)
			if err != nil {
				return err
			}
			defer s.Close()

			org, err := s.Org.Get(cmd.Context(), oui)
			if err != nil {
				return err
			}
			return a.printJSON(org)
		},
	}
	cmd.Flags().Uint64Var(&ouiFlag, "oui", 0, "organization [env HELIUM_OUI]")
	return cmd
}

// orgKeys are the key flags shared by the create commands.
type orgKeys struct {
	owner     string
	payer     string
	delegates []string
}

func (k *orgKeys) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&k.owner, "owner", "", "owner public key (base58)")
	cmd.Flags().StringVar(&k.payer, "payer", "", "payer public key (base58)")
	cmd.Flags().StringArrayVar(&k.delegates, "delegate", nil, "delegate public key (repeatable)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("payer")
}

func (k *orgKeys) parse() (owner, payer keypair.PublicKey, delegates []keypair.PublicKey, err error) {
	if owner, err = keypair.ParsePublicKey(k.owner); err != nil {
		return owner, payer, nil, fmt.Errorf("owner: %w", err)
	}
	if payer, err = keypair.ParsePublicKey(k.payer); err != nil {
		return owner, payer, nil, fmt.Errorf("payer: %w", err)
	}
	for _, d := range k.delegates {
		pk, err := keypair.ParsePublicKey(d)
		if err != nil {
			return owner, payer, nil, fmt.Errorf("delegate: %w", err)
		}
		delegates = append(delegates, pk)
	}
	return owner, payer, delegates, nil
}

type orgCreateHelium struct {
	Owner        keypair.PublicKey   `json:"owner"`
	Payer        keypair.PublicKey   `json:"payer"`
	DevaddrCount uint64              `json:"devaddr_count"`
	DelegateKeys []keypair.PublicKey `json:"delegate_keys"`
}

func (a *App) orgCreateHeliumCommand() *cobra.Command {
	var (
		keys   orgKeys
		count  uint64
		commit bool
	)
	cmd := &cobra.Command{
		Use:   "create-helium",
		Short: "Create an organization in the Helium NetID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, payer, delegates, err := keys.parse()
			if err != nil {
				return err
			}
			if count == 0 {
				return errors.New("--devaddr-count must be positive")
			}
			if !commit {
				return a.printDryRun("create helium org", orgCreateHelium{
					Owner: owner, Payer: payer, DevaddrCount: count, DelegateKeys: delegates,
				})
			}

			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			org, err := s.Org.CreateHelium(cmd.Context(), owner, payer, count, delegates)
			if err != nil {
				return err
			}
			return a.printJSON(org)
		},
	}
	keys.bind(cmd)
	cmd.Flags().Uint64Var(&count, "devaddr-count", 0, "number of devaddrs to allocate")
	cmd.Flags().BoolVar(&commit, "commit", false, "send the request")
	_ = cmd.MarkFlagRequired("devaddr-count")
	return cmd
}

type orgCreateRoaming struct {
	Owner        keypair.PublicKey   `json:"owner"`
	Payer        keypair.PublicKey   `json:"payer"`
	NetID        hexfield.NetID      `json:"net_id"`
	DelegateKeys []keypair.PublicKey `json:"delegate_keys"`
}

func (a *App) orgCreateRoamingCommand() *cobra.Command {
	var (
		keys   orgKeys
		netID  string
		commit bool
	)
	cmd := &cobra.Command{
		Use:   "create-roaming",
		Short: "Create an organization for a roaming partner NetID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, payer, delegates, err := keys.parse()
			if err != nil {
				return err
			}
			id, err := parseNetID(netID)
			if err != nil {
				return err
			}
			if !commit {
				return a.printDryRun("create roaming org", orgCreateRoaming{
					Owner: owner, Payer: payer, NetID: id, DelegateKeys: delegates,
				})
			}

			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			org, err := s.Org.CreateRoamer(cmd.Context(), owner, payer, id, delegates)
			if err != nil {
				return err
			}
			return a.printJSON(org)
		},
	}
	keys.bind(cmd)
	cmd.Flags().StringVar(&netID, "net-id", "", "roaming partner NetID (hex)")
	cmd.Flags().BoolVar(&commit, "commit", false, "send the request")
	_ = cmd.MarkFlagRequired("net-id")
	return cmd
}
