package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/iotconfig/iotconfig-go/pkg/client"
	"github.com/iotconfig/iotconfig-go/pkg/model"
)

func (a *App) skfCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session-key-filter",
		Aliases: []string{"skf"},
		Short:   "Manage session key filters",
	}
	cmd.AddCommand(
		a.skfListCommand(),
		a.skfGetCommand(),
		a.skfUpdateCommand("add", "Add session key filters", (*client.SkfClient).Add),
		a.skfUpdateCommand("remove", "Remove session key filters", (*client.SkfClient).Remove),
	)
	return cmd
}

func (a *App) skfListCommand() *cobra.Command {
	var ouiFlag uint64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the session key filters of an organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oui, err := a.oui(cmd, ouiFlag)
			if err != nil {
				return err
			}
			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			filters, err := s.Skf.List(cmd.Context(), oui)
			if err != nil {
				return err
			}
			return a.printJSON(filters)
		},
	}
	cmd.Flags().Uint64Var(&ouiFlag, "oui", 0, "organization [env HELIUM_OUI]")
	return cmd
}

func (a *App) skfGetCommand() *cobra.Command {
	var (
		ouiFlag uint64
		addr    string
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "List the session key filters of one devaddr",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oui, err := a.oui(cmd, ouiFlag)
			if err != nil {
				return err
			}
			devaddr, err := parseDevAddr(addr)
			if err != nil {
				return err
			}
			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			filters, err := s.Skf.Get(cmd.Context(), oui, devaddr)
			if err != nil {
				return err
			}
			return a.printJSON(filters)
		},
	}
	cmd.Flags().Uint64Var(&ouiFlag, "oui", 0, "organization [env HELIUM_OUI]")
	cmd.Flags().StringVar(&addr, "devaddr", "", "devaddr (8 hex digits)")
	_ = cmd.MarkFlagRequired("devaddr")
	return cmd
}

type skfBatchFunc func(*client.SkfClient, context.Context, []model.SessionKeyFilter) (*client.BatchReport[model.SessionKeyFilter], error)

func (a *App) skfUpdateCommand(name, short string, send skfBatchFunc) *cobra.Command {
	var (
		ouiFlag uint64
		addr    string
		key     string
		file    string
		commit  bool
	)
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Long: short + `.

A single filter is given with --devaddr and --session-key. --file reads a
JSON array of {"oui", "devaddr", "session_key"} objects; entries without an
oui use the configured one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oui, err := a.oui(cmd, ouiFlag)
			if err != nil {
				return err
			}
			filters, err := sessionKeyFilters(oui, addr, key, file)
			if err != nil {
				return err
			}
			if !commit {
				return a.printDryRun(name+" session key filters", filters)
			}

			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := send(s.Skf, cmd.Context(), filters)
			return printBatch(a, report, err)
		},
	}
	cmd.Flags().Uint64Var(&ouiFlag, "oui", 0, "organization [env HELIUM_OUI]")
	cmd.Flags().StringVar(&addr, "devaddr", "", "devaddr (8 hex digits)")
	cmd.Flags().StringVar(&key, "session-key", "", "session key")
	cmd.Flags().StringVar(&file, "file", "", "JSON file of session key filters")
	cmd.MarkFlagsRequiredTogether("devaddr", "session-key")
	cmd.MarkFlagsMutuallyExclusive("file", "devaddr")
	commitFlag(cmd, &commit)
	return cmd
}

func sessionKeyFilters(oui uint64, addr, key, file string) ([]model.SessionKeyFilter, error) {
	if file != "" {
		filters, err := readJSONList[model.SessionKeyFilter](file)
		if err != nil {
			return nil, err
		}
		for i := range filters {
			if filters[i].Oui == 0 {
				filters[i].Oui = oui
			}
		}
		return filters, nil
	}
	if addr == "" || key == "" {
		return nil, errors.New("pass --devaddr and --session-key, or --file")
	}
	devaddr, err := parseDevAddr(addr)
	if err != nil {
		return nil, err
	}
	return []model.SessionKeyFilter{{Oui: oui, Devaddr: devaddr, SessionKey: key}}, nil
}
