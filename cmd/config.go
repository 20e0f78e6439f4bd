package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-smrsim/internal/command"
	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/deploymenttheory/go-smrsim/pkg/app"
)

var (
	// Zone descriptor fields for add and modify
	zoneCondition  string
	zoneType       string
	zoneWP         uint32
	zoneCheckpoint uint32
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the policy and the zone layout",
	Long: `Show or change the device configuration.

Examples:
  # Satisfy violating writes after a 100 ms delay
  smrsim config set-policy write permit -d disk.img
  smrsim config set-penalty write 100 -d disk.img

  # Mark zone 3 read-only
  smrsim config modify 3 --type sequential --condition RO -d disk.img

  # Start over from the default layout
  smrsim config reset -d disk.img`,
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the out-of-policy configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx *app.Context, s *app.Session) error {
			reply, err := dispatch(ctx, s, command.GetDeviceConfig{})
			if err != nil {
				return err
			}
			return render(ctx, *reply.Config)
		})
	},
}

var configSetPolicyCmd = &cobra.Command{
	Use:       "set-policy <read|write> <permit|reject>",
	Short:     "Permit or reject out-of-policy reads or writes",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"read", "write"},
	RunE: func(cmd *cobra.Command, args []string) error {
		permit, err := parsePermit(args[1])
		if err != nil {
			return err
		}
		switch args[0] {
		case "read":
			return run(command.SetReadPolicy{Permit: permit}, "Read policy updated.")
		case "write":
			return run(command.SetWritePolicy{Permit: permit}, "Write policy updated.")
		}
		return directionError(args[0])
	},
}

var configSetPenaltyCmd = &cobra.Command{
	Use:   "set-penalty <read|write> <milliseconds>",
	Short: "Set the delay applied to permitted out-of-policy I/O",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ms, err := parseMillis(args[1])
		if err != nil {
			return err
		}
		switch args[0] {
		case "read":
			return run(command.SetReadPenalty{Millis: ms}, "Read penalty updated.")
		case "write":
			return run(command.SetWritePenalty{Millis: ms}, "Write penalty updated.")
		}
		return directionError(args[0])
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset [default|zone|device]",
	Short: "Restore built-in defaults",
	Long: `Restore built-in defaults.

  default  zone size, zone layout, policy and statistics (the default)
  zone     zone layout only, keeping the zone size
  device   policy only`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"default", "zone", "device"},
	RunE: func(cmd *cobra.Command, args []string) error {
		what := "default"
		if len(args) == 1 {
			what = args[0]
		}
		switch what {
		case "default":
			return run(command.ResetDefaultConfig{}, "Configuration reset to defaults.")
		case "zone":
			return run(command.ResetZoneConfig{}, "Zone layout reset.")
		case "device":
			return run(command.ResetDeviceConfig{}, "Device policy reset.")
		}
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("unknown reset target %q", what), nil)
	},
}

var configClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every zone from the directory",
	Long: `Remove every zone. All I/O fails as out of range until zones are added
back with "config add".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(command.ClearZoneConfig{}, "Zone directory cleared.")
	},
}

var configAddCmd = &cobra.Command{
	Use:   "add <zone-index>",
	Short: "Append a zone to the directory",
	Long: `Append a zone at the tail of the directory. The index must be the next
free one. Conventional zones take condition NO_WP, sequential zones EMPTY.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseLBA(args[0])
		if err != nil {
			return err
		}
		typ, err := types.ParseZoneType(zoneType)
		if err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid zone type", err)
		}
		cond := types.ZoneCondEmpty
		if typ == types.ZoneTypeConventional {
			cond = types.ZoneCondNoWP
		}
		if cmd.Flags().Changed("condition") {
			if cond, err = types.ParseZoneCondition(zoneCondition); err != nil {
				return app.NewError(app.ErrCodeInvalidInput, "invalid zone condition", err)
			}
		}

		return withSession(func(ctx *app.Context, s *app.Session) error {
			size, err := dispatch(ctx, s, command.GetDefaultZoneSize{})
			if err != nil {
				return err
			}
			z := types.ZoneDescriptor{Start: idx, Length: size.Value, Type: typ, Condition: cond}
			if _, err := dispatch(ctx, s, command.AddZoneConfig{Zone: z}); err != nil {
				return err
			}
			return render(ctx, fmt.Sprintf("Zone %d added.", idx))
		})
	},
}

var configModifyCmd = &cobra.Command{
	Use:   "modify <zone-index>",
	Short: "Change the type, condition or pointers of a zone",
	Long: `Change an existing zone. Fields not given on the command line keep their
current value.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseLBA(args[0])
		if err != nil {
			return err
		}
		flags := cmd.Flags()

		return withSession(func(ctx *app.Context, s *app.Session) error {
			z, err := lookupZone(ctx, s, idx)
			if err != nil {
				return err
			}
			if flags.Changed("type") {
				if z.Type, err = types.ParseZoneType(zoneType); err != nil {
					return app.NewError(app.ErrCodeInvalidInput, "invalid zone type", err)
				}
			}
			if flags.Changed("condition") {
				if z.Condition, err = types.ParseZoneCondition(zoneCondition); err != nil {
					return app.NewError(app.ErrCodeInvalidInput, "invalid zone condition", err)
				}
			}
			if flags.Changed("wp") {
				z.WritePtrOffset = zoneWP
			}
			if flags.Changed("checkpoint") {
				z.CheckpointOffset = zoneCheckpoint
			}
			if _, err := dispatch(ctx, s, command.ModifyZoneConfig{Zone: z}); err != nil {
				return err
			}
			return render(ctx, fmt.Sprintf("Zone %d modified.", idx))
		})
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(
		configGetCmd,
		configSetPolicyCmd,
		configSetPenaltyCmd,
		configResetCmd,
		configClearCmd,
		configAddCmd,
		configModifyCmd,
	)

	for _, c := range []*cobra.Command{configAddCmd, configModifyCmd} {
		c.Flags().StringVar(&zoneType, "type", "sequential", "zone type (conventional, sequential)")
		c.Flags().StringVar(&zoneCondition, "condition", "", "zone condition (NO_WP, EMPTY, CLOSED, RO, FULL, OFFLINE)")
	}
	configModifyCmd.Flags().Uint32Var(&zoneWP, "wp", 0, "write pointer offset in sectors")
	configModifyCmd.Flags().Uint32Var(&zoneCheckpoint, "checkpoint", 0, "checkpoint offset in sectors")
}

// lookupZone fetches the current descriptor of zone idx.
func lookupZone(ctx *app.Context, s *app.Session, idx uint64) (types.ZoneDescriptor, error) {
	size, err := dispatch(ctx, s, command.GetDefaultZoneSize{})
	if err != nil {
		return types.ZoneDescriptor{}, err
	}
	reply, err := dispatch(ctx, s, command.QueryZones{LBA: idx * uint64(size.Value), Criteria: types.MatchAll, Max: 1})
	if err != nil {
		return types.ZoneDescriptor{}, err
	}
	if len(reply.Zones) == 0 || reply.Zones[0].Start != idx {
		return types.ZoneDescriptor{}, app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("zone %d does not exist", idx), nil)
	}
	return reply.Zones[0], nil
}

func directionError(dir string) error {
	return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("direction must be read or write, got %q", dir), nil)
}
