package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/deploymenttheory/go-smrsim/internal/command"
	"github.com/deploymenttheory/go-smrsim/pkg/app"
	"github.com/deploymenttheory/go-smrsim/pkg/app/report"
)

// activeSession is set while the shell holds a device open. Commands run
// against it instead of attaching their own.
var activeSession *app.Session

func newContext() *app.Context {
	ctx := app.NewContext()
	ctx.Out = rootCmd.OutOrStdout()
	ctx.Diag = rootCmd.ErrOrStderr()
	ctx.OutputFormat = GetOutputFormat()
	ctx.Verbose = GetVerbose()
	ctx.Quiet = GetQuiet()
	return ctx
}

// withSession attaches the configured device, runs fn and detaches again,
// flushing all state. Inside the shell it reuses the open session.
func withSession(fn func(ctx *app.Context, s *app.Session) error) error {
	ctx := newContext()
	if activeSession != nil {
		return fn(ctx, activeSession)
	}
	if appConfig == nil {
		return app.NewError(app.ErrCodeConfiguration, "configuration not loaded", nil)
	}

	s, err := app.OpenSession(ctx, appConfig)
	if err != nil {
		return err
	}
	runErr := fn(ctx, s)

	closeCtx, cancel := ctx.WithTimeout(ctx.DefaultTimeout)
	defer cancel()
	return errors.Join(runErr, s.Close(closeCtx))
}

// dispatch runs one management command and classifies its error.
func dispatch(ctx *app.Context, s *app.Session, cmd command.Command) (command.Reply, error) {
	reply, err := s.Dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		return reply, app.Classify(fmt.Sprintf("%s failed", cmd.Kind()), err)
	}
	ctx.Log(fmt.Sprintf("%s: request %s", cmd.Kind(), reply.ID))
	return reply, nil
}

// run dispatches a command that has no result and reports completion.
func run(cmd command.Command, done string) error {
	return withSession(func(ctx *app.Context, s *app.Session) error {
		if _, err := dispatch(ctx, s, cmd); err != nil {
			return err
		}
		return render(ctx, done)
	})
}

// render writes v to the context's output unless quiet.
func render(ctx *app.Context, v any) error {
	if ctx.Quiet {
		return nil
	}
	return report.Render(ctx.Out, ctx.OutputFormat, v)
}

func parseLBA(s string) (uint64, error) {
	lba, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("invalid lba %q", s), err)
	}
	return lba, nil
}

func parseUint32(name, s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("invalid %s %q", name, s), err)
	}
	return uint32(n), nil
}

func parseMillis(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("invalid penalty %q", s), err)
	}
	return uint16(n), nil
}

// parseSwitch accepts on/off and the usual boolean spellings.
func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "enable", "enabled":
		return true, nil
	case "off", "disable", "disabled":
		return false, nil
	}
	on, err := strconv.ParseBool(s)
	if err != nil {
		return false, app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("expected on or off, got %q", s), nil)
	}
	return on, nil
}

// parsePermit accepts permit/reject for an out-of-policy switch.
func parsePermit(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "permit", "allow":
		return true, nil
	case "reject", "deny":
		return false, nil
	}
	return parseSwitch(s)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
