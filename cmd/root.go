package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-smrsim/internal/config"
)

var (
	// Global output flags
	verbose      bool
	quiet        bool
	outputFormat string
	configFile   string

	loader    = config.NewLoader()
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "smrsim",
	Short: "Host-managed SMR zoned block device emulator",
	Long: `smrsim emulates a host-managed shingled magnetic recording (SMR) disk on
top of an ordinary file or block device.

Every read and write is checked against the zone it lands in: sequential
zones must be written at their write pointer in 4 KiB units and may not be
read past it. Violations are rejected, or satisfied after a configurable
delay when out-of-policy I/O is permitted. The zone directory, policy and
violation statistics persist at the end of the backing image.

Commands:
  zones       Inspect and reset zones
  stats       Show or reset violation statistics
  config      Show or change the policy and the zone layout
  research    Toggle write pointer research behaviors
  io          Submit reads and writes through the policy engine
  error       Read the last-error registers
  shell       Run commands against one attached device`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if activeSession != nil {
			return nil
		}
		cfg, err := loader.Load(configFile)
		if err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()

	// Output control
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	flags.StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")

	// Device selection, bound to configuration keys
	flags.StringVarP(&configFile, "config", "c", "", "config file (default: smrsim.yaml in ., ./config, $HOME/.smrsim, /etc/smrsim)")
	flags.StringP("device", "d", "", "backing image path")
	flags.Uint64("capacity", 0, "emulated capacity in sectors (0 derives it from the image size)")
	flags.Bool("create", false, "create the backing image if it does not exist")
	flags.Uint32("zone-size", 0, "default zone size in sectors for a fresh layout")
	flags.Bool("debug", false, "log every policy decision")

	v := loader.Viper()
	v.BindPFlag("device.path", flags.Lookup("device"))
	v.BindPFlag("device.capacity_sectors", flags.Lookup("capacity"))
	v.BindPFlag("device.create", flags.Lookup("create"))
	v.BindPFlag("zone.default_sectors", flags.Lookup("zone-size"))
	v.BindPFlag("log.debug", flags.Lookup("debug"))
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetOutputFormat returns the output format
func GetOutputFormat() string {
	return outputFormat
}
