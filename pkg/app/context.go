package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Out receives command results, Diag receives diagnostics
	Out  io.Writer
	Diag io.Writer

	// Common timeouts
	DefaultTimeout time.Duration
}

// NewContext creates a new application context writing to stdout and stderr
func NewContext() *Context {
	return &Context{
		Context:        context.Background(),
		OutputFormat:   "table",
		Out:            os.Stdout,
		Diag:           os.Stderr,
		DefaultTimeout: 30 * time.Second,
	}
}

// WithTimeout creates a context with timeout
func (c *Context) WithTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// Log outputs a message based on verbosity settings
func (c *Context) Log(message string) {
	if !c.Quiet && c.Verbose {
		fmt.Fprintln(c.Diag, message)
	}
}

// Error outputs an error message unless quiet
func (c *Context) Error(message string) {
	if !c.Quiet {
		fmt.Fprintln(c.Diag, "Error:", message)
	}
}
