package commands

import (
	"github.com/spf13/cobra"

	"github.com/iotconfig/iotconfig-go/pkg/devaddr"
)

func (a *App) subnetMaskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "subnet-mask <start-addr> <end-addr>",
		Short: "Decompose an inclusive devaddr range into aligned blocks",
		Example: `  iotconfig subnet-mask 48000800 48000FFF
  iotconfig subnet-mask 00000001 00000002`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			start, err := parseDevAddr(args[0])
			if err != nil {
				return err
			}
			end, err := parseDevAddr(args[1])
			if err != nil {
				return err
			}
			c, err := devaddr.NewConstraint(start, end)
			if err != nil {
				return err
			}
			return a.printJSON(c.Subnets())
		},
	}
}
