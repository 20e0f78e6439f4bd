package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToFields(t *testing.T) {
	tests := []struct {
		name string
		in   []interface{}
		keys []string
	}{
		{"pairs", []interface{}{"zone", 3, "lba", uint64(8)}, []string{"zone", "lba"}},
		{"dangling key", []interface{}{"zone"}, []string{"zone"}},
		{"zap field", []interface{}{zap.Int("n", 1), "k", "v"}, []string{"n", "k"}},
		{"error", []interface{}{errors.New("boom")}, []string{"error"}},
		{"map", []interface{}{map[string]interface{}{"a": 1}}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.in...)
			require.Len(t, fields, len(tt.keys))
			for i, f := range fields {
				assert.Equal(t, tt.keys[i], f.Key)
			}
		})
	}
}

func TestLogger_NamedWithLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).Named("engine").With("instance", "abc")

	l.Debug("decision", "zone", 1)
	l.Warn("flush failed", errors.New("media"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "engine", entries[0].LoggerName)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "abc", entries[0].ContextMap()["instance"])
	assert.EqualValues(t, 1, entries[0].ContextMap()["zone"])
	assert.Equal(t, "media", entries[1].ContextMap()["error"])
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode, true)
		require.NoError(t, err)
		assert.True(t, l.Zap().Core().Enabled(zapcore.DebugLevel))
	}
	l, err := New("prod", false)
	require.NoError(t, err)
	assert.False(t, l.Zap().Core().Enabled(zapcore.DebugLevel))
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Info("ignored", "k", 1)
		Wrap(nil).Error("ignored")
	})
}
