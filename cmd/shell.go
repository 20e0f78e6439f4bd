package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/deploymenttheory/go-smrsim/internal/command"
	"github.com/deploymenttheory/go-smrsim/pkg/app"
)

var (
	// Shell options
	shellMetricsAddr string
	shellWatch       bool

	// Full checkpoint instead of a dirty-page flush
	syncFull bool
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run commands against one attached device",
	Long: `Attach the device once and read commands from standard input, one per
line, using the same syntax as the command line without the program name.
Research toggles and last-error registers live as long as the shell.

With --watch, edits to the config file are applied live: policy, research
overrides and decision logging. With --metrics, Prometheus metrics are
served at http://<addr>/metrics.

Example:
  $ smrsim shell -d disk.img --metrics :9595
  smrsim> research wp-adjust on
  smrsim> io write 524296 8
  smrsim> error last-write
  smrsim> exit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Flush dirty state to the backing image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !syncFull {
			return run(command.Sync{}, "State flushed.")
		}
		return withSession(func(ctx *app.Context, s *app.Session) error {
			if err := s.Engine.Checkpoint(ctx); err != nil {
				return app.Classify("checkpoint failed", err)
			}
			return render(ctx, "Checkpoint written.")
		})
	},
}

func init() {
	rootCmd.AddCommand(shellCmd, syncCmd)

	shellCmd.Flags().StringVar(&shellMetricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	shellCmd.Flags().BoolVar(&shellWatch, "watch", false, "apply config file changes live")
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "rewrite the whole persisted state")
}

func runShell(cmd *cobra.Command) error {
	if activeSession != nil {
		return app.NewError(app.ErrCodeInvalidInput, "already in a shell", nil)
	}

	ctx := newContext()
	s, err := app.OpenSession(ctx, appConfig)
	if err != nil {
		return err
	}
	activeSession = s
	defer func() {
		activeSession = nil
	}()

	if shellWatch {
		if loader.File() == "" {
			ctx.Error("no config file in use; --watch ignored")
		} else {
			s.Watch(loader)
		}
	}

	var srv *http.Server
	if shellMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.Metrics.Handler())
		srv = &http.Server{Addr: shellMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Error("metrics server failed", "addr", shellMetricsAddr, err)
			}
		}()
		ctx.Log(fmt.Sprintf("Metrics endpoint: http://%s/metrics", shellMetricsAddr))
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	loopErr := shellLoop(sigCtx, cmd)
	stop()

	shutdownCtx, cancel := ctx.WithTimeout(ctx.DefaultTimeout)
	defer cancel()
	if srv != nil {
		srv.Shutdown(shutdownCtx)
	}
	return errors.Join(loopErr, s.Close(shutdownCtx))
}

// shellLoop executes input lines until exit, end of input or cancellation.
func shellLoop(ctx context.Context, cmd *cobra.Command) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	// Root flags given on the shell's own command line apply to every line.
	saved := rootFlags{verbose: verbose, quiet: quiet, output: outputFormat}
	out := cmd.OutOrStdout()
	for {
		if !quiet {
			fmt.Fprint(out, "smrsim> ")
		}
		var line string
		var ok bool
		select {
		case line, ok = <-lines:
		case <-ctx.Done():
			return nil
		}
		if !ok {
			return nil
		}

		args := strings.Fields(line)
		if len(args) == 0 || strings.HasPrefix(args[0], "#") {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}

		resetFlags(rootCmd)
		saved.restore()
		rootCmd.SetArgs(args)
		if err := rootCmd.Execute(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
}

type rootFlags struct {
	verbose bool
	quiet   bool
	output  string
}

func (r rootFlags) restore() {
	verbose, quiet, outputFormat = r.verbose, r.quiet, r.output
}

// resetFlags returns the local flags of every subcommand to their defaults so
// one shell line does not leak into the next.
func resetFlags(c *cobra.Command) {
	for _, sub := range c.Commands() {
		sub.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				f.Value.Set(f.DefValue)
				f.Changed = false
			}
		})
		resetFlags(sub)
	}
}
