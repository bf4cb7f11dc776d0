package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iotconfig/iotconfig-go/pkg/model"
)

func (a *App) regionParamsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "region-params",
		Short: "Manage regional channel plans",
	}
	cmd.AddCommand(a.regionParamsPushCommand())
	return cmd
}

type regionPush struct {
	Region     model.Region       `json:"region"`
	Params     model.RegionParams `json:"params"`
	IndexBytes int                `json:"index_bytes"`
}

func (a *App) regionParamsPushCommand() *cobra.Command {
	var (
		paramsFile string
		indexFile  string
		commit     bool
	)
	cmd := &cobra.Command{
		Use:   "push <region>",
		Short: "Load a region's channel plan and H3 index set",
		Long: `Load a region's channel plan and, optionally, its serialized H3 index set.

The params file is JSON: {"region_params": [{"channel_frequency", "channel_bandwidth",
"max_eirp", "spreading": [{"region_spreading", "max_packet_size"}]}]}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			region, err := model.ParseRegion(args[0])
			if err != nil {
				return err
			}
			params, err := model.LoadRegionParams(paramsFile)
			if err != nil {
				return err
			}
			var indexes []byte
			if indexFile != "" {
				if indexes, err = os.ReadFile(indexFile); err != nil {
					return fmt.Errorf("read index file: %w", err)
				}
			}
			if !commit {
				return a.printDryRun("load region "+region.String(), regionPush{
					Region: region, Params: params, IndexBytes: len(indexes),
				})
			}

			s, err := a.connect(true)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Gateway.LoadRegion(cmd.Context(), region, params, indexes); err != nil {
				return err
			}
			a.print(Success(fmt.Sprintf("region %s loaded (%d channels, %d index bytes)",
				region, len(params.RegionParams), len(indexes))))
			return nil
		},
	}
	cmd.Flags().StringVar(&paramsFile, "params-file", "", "channel plan JSON file")
	cmd.Flags().StringVar(&indexFile, "index-file", "", "serialized H3 index set")
	_ = cmd.MarkFlagRequired("params-file")
	commitFlag(cmd, &commit)
	return cmd
}
