package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iotconfig/iotconfig-go/pkg/model"
	"github.com/iotconfig/iotconfig-go/pkg/persistence"
)

func (a *App) routeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Manage routes and their EUIs and devaddr ranges",
	}
	cmd.AddCommand(
		a.routeListCommand(),
		a.routeGetCommand(),
		a.routeNewCommand(),
		a.routeDeleteCommand(),
		a.routeActiveCommand("activate", "enable", "Mark a route active", true),
		a.routeActiveCommand("deactivate", "disable", "Mark a route inactive", false),
		a.routePushCommand(),
		a.routeUpdateCommand(),
		a.euisCommand(),
		a.devaddrsCommand(),
	)
	return cmd
}

// routeIDFlag binds the required --route-id flag.
func routeIDFlag(cmd *cobra.Command, id *string) {
	cmd.Flags().StringVarP(id, "route-id", "r", "", "route ID")
	_ = cmd.MarkFlagRequired("route-id")
}

func commitFlag(cmd *cobra.Command, commit *bool) {
	cmd.Flags().BoolVar(commit, "commit", false, "send the request")
}

func (a *App) routeListCommand() *cobra.Command {
	var (
		ouiFlag uint64
		commit  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the routes of an organization",
		Long:  "List the routes of an organization. --commit also writes them to the route cache.",
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

			list, err := s.Route.List(cmd.Context(), oui)
			if err != nil {
				return err
			}
			if commit {
				if err := a.routeStore().SaveAll(list.Routes); err != nil {
					return err
				}
			}
			return a.printJSON(list)
		},
	}
	cmd.Flags().Uint64Var(&ouiFlag, "oui", 0, "organization [env HELIUM_OUI]")
	cmd.Flags().BoolVar(&commit, "commit", false, "write the routes to the route cache")
	return cmd
}

func (a *App) routeGetCommand() *cobra.Command {
	var (
		id     string
		commit bool
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show one route",
		Long:  "Show one route. --commit also writes it to the route cache.",
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

			route, err := s.Route.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if commit {
				if err := a.routeStore().Save(route); err != nil {
					return err
				}
			}
			return a.printJSON(route)
		},
	}
	routeIDFlag(cmd, &id)
	cmd.Flags().BoolVar(&commit, "commit", false, "write the route to the route cache")
	return cmd
}

func (a *App) routeNewCommand() *cobra.Command {
	var (
		netIDFlag     string
		ouiFlag       uint64
		maxCopiesFlag uint32
		commit        bool
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a packet router route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			netID, err := a.netID(cmd, netIDFlag)
			if err != nil {
				return err
			}
			oui, err := a.oui(cmd, ouiFlag)
			if err != nil {
				return err
			}
			route := model.NewRoute(netID, oui, a.maxCopies(cmd, maxCopiesFlag))
			if !commit {
				return a.printDryRun("create route", route)
			}

			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			created, err := s.Route.Create(cmd.Context(), route)
			if err != nil {
				return err
			}
			if err := a.routeStore().Save(created); err != nil {
				return err
			}
			return a.printJSON(created)
		},
	}
	cmd.Flags().StringVar(&netIDFlag, "net-id", model.DefaultNetID.String(), "NetID (hex) [env HELIUM_NET_ID]")
	cmd.Flags().Uint64Var(&ouiFlag, "oui", 0, "organization [env HELIUM_OUI]")
	cmd.Flags().Uint32Var(&maxCopiesFlag, "max-copies", model.DefaultMaxCopies, "packet copy limit [env HELIUM_MAX_COPIES]")
	commitFlag(cmd, &commit)
	return cmd
}

func (a *App) routeDeleteCommand() *cobra.Command {
	var (
		id     string
		commit bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := persistence.ValidateRouteID(id); err != nil {
				return err
			}
			if !commit {
				a.print(DryRun("delete route " + id))
				return nil
			}

			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			deleted, err := s.Route.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := a.routeStore().Remove(id); err != nil {
				return err
			}
			return a.printJSON(deleted)
		},
	}
	routeIDFlag(cmd, &id)
	commitFlag(cmd, &commit)
	return cmd
}

func (a *App) routeActiveCommand(name, alias, short string, active bool) *cobra.Command {
	var (
		id     string
		commit bool
	)
	cmd := &cobra.Command{
		Use:     name,
		Aliases: []string{alias},
		Short:   short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.updateRoute(cmd.Context(), id, commit, func(r *model.Route) error {
				r.Active = active
				return nil
			})
		},
	}
	routeIDFlag(cmd, &id)
	commitFlag(cmd, &commit)
	return cmd
}

// routePushCommand sends a cached, possibly hand-edited route back to the
// service.
func (a *App) routePushCommand() *cobra.Command {
	var (
		id     string
		commit bool
	)
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Update a route from its cached copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.routeStore()
			route, err := store.Load(id)
			if err != nil {
				return err
			}
			if !commit {
				return a.printDryRun("update route "+id, route)
			}

			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			updated, err := s.Route.Update(cmd.Context(), *route)
			if err != nil {
				return err
			}
			if err := store.Save(updated); err != nil {
				return err
			}
			return a.printJSON(updated)
		},
	}
	routeIDFlag(cmd, &id)
	commitFlag(cmd, &commit)
	return cmd
}

// updateRoute fetches a route, applies mutate and, with commit, sends the
// result and refreshes the cache. Without commit the mutated route is
// printed.
func (a *App) updateRoute(ctx context.Context, id string, commit bool, mutate func(*model.Route) error) error {
	if err := persistence.ValidateRouteID(id); err != nil {
		return err
	}
	s, err := a.connect(true)
	if err != nil {
		return err
	}
	defer s.Close()

	route, err := s.Route.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(&route); err != nil {
		return err
	}
	if !commit {
		return a.printDryRun("update route "+id, route)
	}

	updated, err := s.Route.Update(ctx, route)
	if err != nil {
		return err
	}
	if err := a.routeStore().Save(updated); err != nil {
		return err
	}
	return a.printJSON(updated)
}

func (a *App) routeUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change one aspect of a route",
	}
	cmd.AddCommand(
		a.updateMaxCopiesCommand(),
		a.updateServerCommand(),
		a.updateHTTPCommand(),
		a.updateAddGwmpRegionCommand(),
		a.updateRemoveGwmpRegionCommand(),
		a.updatePacketRouterCommand(),
	)
	return cmd
}

func (a *App) updateMaxCopiesCommand() *cobra.Command {
	var (
		id        string
		maxCopies uint32
		commit    bool
	)
	cmd := &cobra.Command{
		Use:   "max-copies",
		Short: "Set the packet copy limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.updateRoute(cmd.Context(), id, commit, func(r *model.Route) error {
				r.MaxCopies = maxCopies
				return nil
			})
		},
	}
	routeIDFlag(cmd, &id)
	cmd.Flags().Uint32Var(&maxCopies, "max-copies", 0, "packet copy limit")
	_ = cmd.MarkFlagRequired("max-copies")
	commitFlag(cmd, &commit)
	return cmd
}

func (a *App) updateServerCommand() *cobra.Command {
	var (
		id     string
		host   string
		port   uint32
		commit bool
	)
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Set the server host and port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.updateRoute(cmd.Context(), id, commit, func(r *model.Route) error {
				r.Server.Host = host
				r.Server.Port = port
				return nil
			})
		},
	}
	routeIDFlag(cmd, &id)
	cmd.Flags().StringVar(&host, "host", "", "server host")
	cmd.Flags().Uint32Var(&port, "port", 0, "server port")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("port")
	commitFlag(cmd, &commit)
	return cmd
}

func (a *App) updateHTTPCommand() *cobra.Command {
	var (
		id         string
		flow       string
		dedupe     uint32
		path       string
		authHeader string
		commit     bool
	)
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Switch the route to HTTP roaming",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ft := model.FlowType(flow)
			if ft != model.FlowSync && ft != model.FlowAsync {
				return fmt.Errorf("invalid flow type %q (must be sync or async)", flow)
			}
			return a.updateRoute(cmd.Context(), id, commit, func(r *model.Route) error {
				r.Server.Protocol = model.HTTP(model.HTTPRoaming{
					FlowType:      ft,
					DedupeTimeout: dedupe,
					Path:          path,
					AuthHeader:    authHeader,
				})
				return r.Server.Protocol.Validate()
			})
		},
	}
	routeIDFlag(cmd, &id)
	cmd.Flags().StringVar(&flow, "flow-type", string(model.FlowSync), "roaming flow (sync, async)")
	cmd.Flags().Uint32Var(&dedupe, "dedupe-timeout", model.DefaultDedupeTimeout, "dedupe window in milliseconds")
	cmd.Flags().StringVar(&path, "path", "", "path appended to host and port")
	cmd.Flags().StringVar(&authHeader, "auth-header", "", "authorization header value")
	_ = cmd.MarkFlagRequired("path")
	commitFlag(cmd, &commit)
	return cmd
}

func (a *App) updateAddGwmpRegionCommand() *cobra.Command {
	var (
		id     string
		commit bool
	)
	cmd := &cobra.Command{
		Use:   "add-gwmp-region <region> <port>",
		Short: "Map a region to a GWMP port",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			region, err := model.ParseRegion(args[0])
			if err != nil {
				return err
			}
			port, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[1], err)
			}
			return a.updateRoute(cmd.Context(), id, commit, func(r *model.Route) error {
				return r.SetGwmpRegion(region, uint32(port))
			})
		},
	}
	routeIDFlag(cmd, &id)
	commitFlag(cmd, &commit)
	return cmd
}

func (a *App) updateRemoveGwmpRegionCommand() *cobra.Command {
	var (
		id     string
		commit bool
	)
	cmd := &cobra.Command{
		Use:   "remove-gwmp-region <region>",
		Short: "Remove a region's GWMP port mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			region, err := model.ParseRegion(args[0])
			if err != nil {
				return err
			}
			return a.updateRoute(cmd.Context(), id, commit, func(r *model.Route) error {
				return r.RemoveGwmpRegion(region)
			})
		},
	}
	routeIDFlag(cmd, &id)
	commitFlag(cmd, &commit)
	return cmd
}

func (a *App) updatePacketRouterCommand() *cobra.Command {
	var (
		id     string
		commit bool
	)
	cmd := &cobra.Command{
		Use:   "packet-router",
		Short: "Switch the route to the packet router protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.updateRoute(cmd.Context(), id, commit, func(r *model.Route) error {
				r.Server.Protocol = model.PacketRouter()
				return nil
			})
		},
	}
	routeIDFlag(cmd, &id)
	commitFlag(cmd, &commit)
	return cmd
}
