package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-smrsim/internal/command"
	"github.com/deploymenttheory/go-smrsim/internal/policy"
	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/deploymenttheory/go-smrsim/pkg/app"
)

var (
	// Border-cross target
	borderZone uint32
	borderAll  bool
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Toggle write pointer research behaviors",
	Long: `Toggle the research overrides of the write pointer policy.

wp-reset, wp-adjust and match only last while the device stays attached,
so they are meant for the shell or for the research.* configuration keys.
Border-cross modes are stored in the zone flags and persist.`,
}

var researchWPResetCmd = &cobra.Command{
	Use:   "wp-reset <on|off>",
	Short: "Treat a write at a zone start as a write pointer reset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseSwitch(args[0])
		if err != nil {
			return err
		}
		return run(command.SetBackwardPointerReset{Enable: on}, "Backward pointer reset "+onOff(on)+".")
	},
}

var researchWPAdjustCmd = &cobra.Command{
	Use:   "wp-adjust <on|off>",
	Short: "Move the write pointer forward to a write landing ahead of it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseSwitch(args[0])
		if err != nil {
			return err
		}
		return run(command.SetForwardPointerAdjust{Enable: on}, "Forward pointer adjust "+onOff(on)+".")
	},
}

var researchMatchCmd = &cobra.Command{
	Use:       "match <exact|bitmask>",
	Short:     "Select how zone flags are tested before splitting a write",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"exact", "bitmask"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var m policy.BorderCrossMatch
		switch args[0] {
		case policy.MatchExact.String():
			m = policy.MatchExact
		case policy.MatchBitmask.String():
			m = policy.MatchBitmask
		default:
			return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("unknown match %q", args[0]), nil)
		}
		return withSession(func(ctx *app.Context, s *app.Session) error {
			s.Engine.SetBorderCrossMatch(m)
			return render(ctx, "Border-cross match "+m.String()+".")
		})
	},
}

var researchBorderCrossCmd = &cobra.Command{
	Use:   "border-cross <off|sequential|current>",
	Short: "Allow writes to split across a zone border",
	Long: `Set the border-cross mode of one zone (--zone) or of every zone (--all).
The off and sequential modes always apply to the whole directory.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"off", "sequential", "current"},
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := types.ParseBorderCrossMode(args[0])
		if err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid border-cross mode", err)
		}
		if mode == types.BorderCrossCurrent && !borderAll && !cmd.Flags().Changed("zone") {
			return app.NewError(app.ErrCodeInvalidInput, "current mode needs --zone or --all", nil)
		}
		return run(command.SetBorderCrossPolicy{Zone: borderZone, All: borderAll, Mode: mode},
			"Border-cross mode set to "+mode.String()+".")
	},
}

var researchLoggingCmd = &cobra.Command{
	Use:   "logging <on|off>",
	Short: "Log every policy decision at info level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseSwitch(args[0])
		if err != nil {
			return err
		}
		return run(command.SetLogging{Enable: on}, "Decision logging "+onOff(on)+".")
	},
}

func init() {
	rootCmd.AddCommand(researchCmd)
	researchCmd.AddCommand(
		researchWPResetCmd,
		researchWPAdjustCmd,
		researchMatchCmd,
		researchBorderCrossCmd,
		researchLoggingCmd,
	)

	researchBorderCrossCmd.Flags().Uint32Var(&borderZone, "zone", 0, "zone index")
	researchBorderCrossCmd.Flags().BoolVar(&borderAll, "all", false, "apply to every zone")
	researchBorderCrossCmd.MarkFlagsMutuallyExclusive("zone", "all")
}
