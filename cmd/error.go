package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-smrsim/internal/command"
	"github.com/deploymenttheory/go-smrsim/pkg/app"
	"github.com/deploymenttheory/go-smrsim/pkg/app/report"
)

var errorCmd = &cobra.Command{
	Use:   "error",
	Short: "Read the last-error registers",
	Long: `Print the most recent read or write violation and clear it. The registers
are not persisted, so they are only meaningful inside the shell.`,
}

var errorLastReadCmd = &cobra.Command{
	Use:   "last-read",
	Short: "Print and clear the last read violation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showViolation(command.GetLastReadError{}, "read")
	},
}

var errorLastWriteCmd = &cobra.Command{
	Use:   "last-write",
	Short: "Print and clear the last write violation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showViolation(command.GetLastWriteError{}, "write")
	},
}

func init() {
	rootCmd.AddCommand(errorCmd)
	errorCmd.AddCommand(errorLastReadCmd, errorLastWriteCmd)
}

func showViolation(cmd command.Command, direction string) error {
	return withSession(func(ctx *app.Context, s *app.Session) error {
		reply, err := dispatch(ctx, s, cmd)
		if err != nil {
			return err
		}
		return render(ctx, report.NewViolation(direction, reply.Violation))
	})
}
