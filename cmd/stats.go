package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-smrsim/internal/command"
	"github.com/deploymenttheory/go-smrsim/pkg/app"
	"github.com/deploymenttheory/go-smrsim/pkg/app/report"
)

// Show zones without violations too
var statsAll bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show or reset violation statistics",
}

var statsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print idle times and per-zone violation counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx *app.Context, s *app.Session) error {
			reply, err := dispatch(ctx, s, command.GetStats{})
			if err != nil {
				return err
			}
			return render(ctx, report.StatsReport{Stats: reply.Stats, All: statsAll})
		})
	},
}

var statsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Zero every counter and the idle times",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(command.ResetStats{}, "Statistics reset.")
	},
}

var statsResetZoneCmd = &cobra.Command{
	Use:   "reset-zone <lba>",
	Short: "Zero the counters of the zone holding an LBA",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lba, err := parseLBA(args[0])
		if err != nil {
			return err
		}
		return run(command.ResetZoneStats{LBA: lba}, "Zone statistics reset.")
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.AddCommand(statsGetCmd, statsResetCmd, statsResetZoneCmd)

	statsGetCmd.Flags().BoolVarP(&statsAll, "all", "a", false, "include zones without violations")
}
