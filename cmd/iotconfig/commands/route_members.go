package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iotconfig/iotconfig-go/pkg/client"
	"github.com/iotconfig/iotconfig-go/pkg/devaddr"
	"github.com/iotconfig/iotconfig-go/pkg/model"
	"github.com/iotconfig/iotconfig-go/pkg/persistence"
)

// readJSONList reads a JSON array file.
func readJSONList[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no entries", path)
	}
	return out, nil
}

func (a *App) euisCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "euis",
		Short: "Manage the EUI pairs of a route",
	}
	cmd.AddCommand(
		a.euisListCommand(),
		a.euisUpdateCommand("add", "Add EUI pairs to a route", (*client.RouteClient).AddEuis),
		a.euisUpdateCommand("remove", "Remove EUI pairs from a route", (*client.RouteClient).RemoveEuis),
		a.euisClearCommand(),
	)
	return cmd
}

func (a *App) euisListCommand() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the EUI pairs of a route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := persistence.ValidateRouteID(id); err != nil {
				return err
			}
			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			pairs, err := s.Route.GetEuis(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printJSON(pairs)
		},
	}
	routeIDFlag(cmd, &id)
	return cmd
}

// batchFunc is a RouteClient batch method.
type batchFunc[I any] func(*client.RouteClient, context.Context, []I) (*client.BatchReport[I], error)

func (a *App) euisUpdateCommand(name, short string, send batchFunc[model.EuiPair]) *cobra.Command {
	var (
		id     string
		appEUI string
		devEUI string
		file   string
		commit bool
	)
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Long: short + `.

A single pair is given with --app-eui and --dev-eui. --file reads a JSON
array of {"app_eui", "dev_eui"} objects; entries without a route_id use
--route-id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := persistence.ValidateRouteID(id); err != nil {
				return err
			}
			pairs, err := euiPairs(id, appEUI, devEUI, file)
			if err != nil {
				return err
			}
			if !commit {
				return a.printDryRun(name+" euis", pairs)
			}

			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := send(s.Route, cmd.Context(), pairs)
			return printBatch(a, report, err)
		},
	}
	routeIDFlag(cmd, &id)
	cmd.Flags().StringVar(&appEUI, "app-eui", "", "AppEUI (16 hex digits)")
	cmd.Flags().StringVar(&devEUI, "dev-eui", "", "DevEUI (16 hex digits)")
	cmd.Flags().StringVar(&file, "file", "", "JSON file of EUI pairs")
	cmd.MarkFlagsRequiredTogether("app-eui", "dev-eui")
	cmd.MarkFlagsMutuallyExclusive("file", "app-eui")
	commitFlag(cmd, &commit)
	return cmd
}

func euiPairs(routeID, appEUI, devEUI, file string) ([]model.EuiPair, error) {
	if file != "" {
		pairs, err := readJSONList[model.EuiPair](file)
		if err != nil {
			return nil, err
		}
		for i := range pairs {
			if pairs[i].RouteID == "" {
				pairs[i].RouteID = routeID
			}
		}
		return pairs, nil
	}
	if appEUI == "" || devEUI == "" {
		return nil, errors.New("pass --app-eui and --dev-eui, or --file")
	}
	app, err := parseEUI(appEUI)
	if err != nil {
		return nil, err
	}
	dev, err := parseEUI(devEUI)
	if err != nil {
		return nil, err
	}
	return []model.EuiPair{{RouteID: routeID, AppEUI: app, DevEUI: dev}}, nil
}

func (a *App) euisClearCommand() *cobra.Command {
	var (
		id     string
		commit bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every EUI pair of a route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := persistence.ValidateRouteID(id); err != nil {
				return err
			}
			if !commit {
				a.print(DryRun("remove all euis from route " + id))
				return nil
			}
			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Route.DeleteEuis(cmd.Context(), id); err != nil {
				return err
			}
			a.print(Success("all euis removed from route " + id))
			return nil
		},
	}
	routeIDFlag(cmd, &id)
	commitFlag(cmd, &commit)
	return cmd
}

func (a *App) devaddrsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devaddrs",
		Short: "Manage the devaddr ranges of a route",
	}
	cmd.AddCommand(
		a.devaddrsListCommand(),
		a.devaddrsUpdateCommand("add", "Add devaddr ranges to a route", (*client.RouteClient).AddDevaddrs),
		a.devaddrsUpdateCommand("remove", "Remove devaddr ranges from a route", (*client.RouteClient).RemoveDevaddrs),
		a.devaddrsSubnetMaskCommand(),
		a.devaddrsClearCommand(),
	)
	return cmd
}

func (a *App) devaddrsListCommand() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the devaddr ranges of a route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := persistence.ValidateRouteID(id); err != nil {
				return err
			}
			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			ranges, err := s.Route.GetDevaddrs(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printJSON(ranges)
		},
	}
	routeIDFlag(cmd, &id)
	return cmd
}

func (a *App) devaddrsUpdateCommand(name, short string, send batchFunc[devaddr.Range]) *cobra.Command {
	var (
		id     string
		start  string
		end    string
		file   string
		commit bool
	)
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Long: short + `.

A single range is given with --start-addr and --end-addr (inclusive). --file
reads a JSON array of {"start_addr", "end_addr"} objects; entries without a
route_id use --route-id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := persistence.ValidateRouteID(id); err != nil {
				return err
			}
			ranges, err := devaddrRanges(id, start, end, file)
			if err != nil {
				return err
			}
			if !commit {
				return a.printDryRun(name+" devaddrs", ranges)
			}

			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := send(s.Route, cmd.Context(), ranges)
			return printBatch(a, report, err)
		},
	}
	routeIDFlag(cmd, &id)
	cmd.Flags().StringVar(&start, "start-addr", "", "first devaddr (8 hex digits)")
	cmd.Flags().StringVar(&end, "end-addr", "", "last devaddr (8 hex digits)")
	cmd.Flags().StringVar(&file, "file", "", "JSON file of devaddr ranges")
	cmd.MarkFlagsRequiredTogether("start-addr", "end-addr")
	cmd.MarkFlagsMutuallyExclusive("file", "start-addr")
	commitFlag(cmd, &commit)
	return cmd
}

func devaddrRanges(routeID, start, end, file string) ([]devaddr.Range, error) {
	if file != "" {
		ranges, err := readJSONList[devaddr.Range](file)
		if err != nil {
			return nil, err
		}
		for i := range ranges {
			if ranges[i].RouteID == "" {
				ranges[i].RouteID = routeID
			}
		}
		return ranges, nil
	}
	if start == "" || end == "" {
		return nil, errors.New("pass --start-addr and --end-addr, or --file")
	}
	s, err := parseDevAddr(start)
	if err != nil {
		return nil, err
	}
	e, err := parseDevAddr(end)
	if err != nil {
		return nil, err
	}
	r, err := devaddr.NewRange(routeID, s, e)
	if err != nil {
		return nil, err
	}
	return []devaddr.Range{r}, nil
}

type rangeSubnets struct {
	Range   devaddr.Range   `json:"range"`
	Subnets []devaddr.Block `json:"subnets"`
}

func (a *App) devaddrsSubnetMaskCommand() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "subnet-mask",
		Short: "Show the aligned blocks covering each devaddr range of a route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := persistence.ValidateRouteID(id); err != nil {
				return err
			}
			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			ranges, err := s.Route.GetDevaddrs(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := make([]rangeSubnets, 0, len(ranges))
			for _, r := range ranges {
				out = append(out, rangeSubnets{Range: r, Subnets: r.Subnets()})
			}
			return a.printJSON(out)
		},
	}
	routeIDFlag(cmd, &id)
	return cmd
}

func (a *App) devaddrsClearCommand() *cobra.Command {
	var (
		id     string
		commit bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every devaddr range of a route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := persistence.ValidateRouteID(id); err != nil {
				return err
			}
			if !commit {
				a.print(DryRun("remove all devaddr ranges from route " + id))
				return nil
			}
			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Route.DeleteDevaddrs(cmd.Context(), id); err != nil {
				return err
			}
			a.print(Success("all devaddr ranges removed from route " + id))
			return nil
		},
	}
	routeIDFlag(cmd, &id)
	commitFlag(cmd, &commit)
	return cmd
}
