package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-smrsim/internal/command"
	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/deploymenttheory/go-smrsim/pkg/app"
	"github.com/deploymenttheory/go-smrsim/pkg/app/report"
)

var (
	// Zone query options
	queryCriteria string
	queryMax      uint32
)

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Inspect and reset zones",
	Long: `Inspect the zone directory of the emulated device.

Examples:
  # Count zones
  smrsim zones count -d disk.img

  # List every zone with at least 2048 free sectors
  smrsim zones query -d disk.img --criteria 2048

  # Rewind the write pointer of the zone holding LBA 524288
  smrsim zones reset 524288 -d disk.img`,
}

var zonesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of zones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showValue(command.GetNumZones{}, "Zones")
	},
}

var zonesSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Print the zone size in sectors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showValue(command.GetDefaultZoneSize{}, "Zone size (sectors)")
	},
}

var zonesSetSizeCmd = &cobra.Command{
	Use:   "set-size <sectors>",
	Short: "Re-layout the device with a new zone size",
	Long: `Change the zone size and rebuild the default layout. Every write pointer,
zone type and statistic is reset.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sectors, err := parseUint32("zone size", args[0])
		if err != nil {
			return err
		}
		return run(command.SetDefaultZoneSize{Sectors: sectors}, "Zone size changed.")
	},
}

var zonesResetCmd = &cobra.Command{
	Use:   "reset <lba>",
	Short: "Reset the write pointer of the zone holding an LBA",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lba, err := parseLBA(args[0])
		if err != nil {
			return err
		}
		return run(command.ResetZoneWritePointer{LBA: lba}, "Write pointer reset.")
	},
}

var zonesQueryCmd = &cobra.Command{
	Use:   "query [start-lba]",
	Short: "List zones matching a criteria",
	Long: `List zones starting from the zone holding start-lba (default 0).

Criteria is a class name or a minimum number of free sectors:
  all, full, partial, free, readonly, offline, wp-ne-checkpoint, <sectors>`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var lba uint64
		if len(args) == 1 {
			var err error
			if lba, err = parseLBA(args[0]); err != nil {
				return err
			}
		}
		criteria, err := types.ParseQueryCriteria(queryCriteria)
		if err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid criteria", err)
		}
		return withSession(func(ctx *app.Context, s *app.Session) error {
			reply, err := dispatch(ctx, s, command.QueryZones{LBA: lba, Criteria: criteria, Max: queryMax})
			if err != nil {
				return err
			}
			return render(ctx, report.ZoneList{Criteria: criteria.String(), Zones: reply.Zones})
		})
	},
}

func init() {
	rootCmd.AddCommand(zonesCmd)
	zonesCmd.AddCommand(zonesCountCmd, zonesSizeCmd, zonesSetSizeCmd, zonesResetCmd, zonesQueryCmd)

	zonesQueryCmd.Flags().StringVar(&queryCriteria, "criteria", "all", "zone class or minimum free sectors")
	zonesQueryCmd.Flags().Uint32Var(&queryMax, "max", 1<<20, "maximum zones to report")
}

// showValue dispatches a command with a scalar reply and renders it.
func showValue(cmd command.Command, name string) error {
	return withSession(func(ctx *app.Context, s *app.Session) error {
		reply, err := dispatch(ctx, s, cmd)
		if err != nil {
			return err
		}
		return render(ctx, report.Value{Name: name, Value: reply.Value})
	})
}
