package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_WithTimeout(t *testing.T) {
	ctx := NewContext()
	ctx.OutputFormat = "json"

	child, cancel := ctx.WithTimeout(time.Millisecond)
	defer cancel()
	assert.Equal(t, "json", child.OutputFormat)
	_, ok := child.Deadline()
	require.True(t, ok)

	<-child.Done()
	assert.ErrorIs(t, child.Err(), context.DeadlineExceeded)
	assert.NoError(t, ctx.Context.Err(), "parent is unaffected")
}

func TestContext_LogAndError(t *testing.T) {
	var errOut bytes.Buffer
	ctx := NewContext()
	ctx.Diag = &errOut

	ctx.Log("hidden")
	assert.Empty(t, errOut.String())

	ctx.Verbose = true
	ctx.Log("shown")
	ctx.Error("broken")
	assert.Equal(t, "shown\nError: broken\n", errOut.String())

	errOut.Reset()
	ctx.Quiet = true
	ctx.Log("quiet")
	ctx.Error("quiet")
	assert.Empty(t, errOut.String())
}
