package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-smrsim/internal/policy"
	"github.com/deploymenttheory/go-smrsim/internal/types"
)

func sampleZones() ZoneList {
	return ZoneList{
		Criteria: types.MatchAll.String(),
		Zones: []types.ZoneDescriptor{
			{Start: 0, Length: 1024, Condition: types.ZoneCondNoWP, Type: types.ZoneTypeConventional},
			{Start: 1, Length: 1024, WritePtrOffset: 8, Condition: types.ZoneCondClosed, Type: types.ZoneTypeSequential},
		},
	}
}

func TestRender_Formats(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		wantErr  bool
		validate func(*testing.T, string)
	}{
		{
			name:   "table format",
			format: "table",
			validate: func(t *testing.T, output string) {
				assert.Contains(t, output, "START LBA")
				assert.Contains(t, output, "1024")
				assert.Contains(t, output, "2 zones (all)")
			},
		},
		{
			name:   "empty format defaults to table",
			format: "",
			validate: func(t *testing.T, output string) {
				assert.Contains(t, output, "CONDITION")
			},
		},
		{
			name:   "json format",
			format: "json",
			validate: func(t *testing.T, output string) {
				var got ZoneList
				require.NoError(t, json.Unmarshal([]byte(output), &got))
				assert.Equal(t, sampleZones(), got)
			},
		},
		{
			name:   "yaml format",
			format: "yaml",
			validate: func(t *testing.T, output string) {
				var got ZoneList
				require.NoError(t, yaml.Unmarshal([]byte(output), &got))
				assert.Equal(t, sampleZones(), got)
			},
		},
		{
			name:    "unknown format",
			format:  "xml",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Render(&buf, tt.format, sampleZones())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, buf.String())
		})
	}
}

func TestRender_EmptyZoneList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "table", ZoneList{Criteria: "offline"}))
	assert.Equal(t, "No zones match offline.\n", buf.String())
}

func TestRender_StatsSkipsCleanZones(t *testing.T) {
	s := &types.Stats{
		Device:   types.IdleStats{IdleTimeMax: 7, IdleTimeMin: 1},
		NumZones: 3,
		Zones:    make([]types.ZoneStats, 3),
	}
	s.Zones[2].Write.NotOnWPCount = 4

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "table", StatsReport{Stats: s}))
	out := buf.String()
	assert.Contains(t, out, "Idle time max:  7 s")
	assert.Contains(t, out, "2     0            0       4")
	assert.NotContains(t, out, "\n0     ")

	buf.Reset()
	require.NoError(t, Render(&buf, "table", StatsReport{Stats: &types.Stats{NumZones: 1, Zones: make([]types.ZoneStats, 1)}}))
	assert.Contains(t, buf.String(), "(no violations recorded)")
}

func TestRender_DeviceConfig(t *testing.T) {
	cfg := types.DeviceConfig{OutOfPolicyRead: 1, OutOfPolicyWrite: 1, ReadPenaltyMillis: 10, WritePenaltyMillis: 20}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "table", cfg))
	assert.Contains(t, buf.String(), "permit")
	assert.Contains(t, buf.String(), "20 ms")
	assert.Contains(t, buf.String(), "Passthrough")

	buf.Reset()
	require.NoError(t, Render(&buf, "json", cfg))
	assert.JSONEq(t, `{"out_of_policy_read":1,"out_of_policy_write":1,"read_penalty_ms":10,"write_penalty_ms":20}`, buf.String())
}

func TestRender_ScalarsAndViolations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "table", Value{Name: "Zones", Value: uint32(12)}))
	assert.Equal(t, "Zones:  12\n", buf.String())

	buf.Reset()
	require.NoError(t, Render(&buf, "table", NewViolation("write", types.ViolationWritePointer)))
	assert.Contains(t, buf.String(), "-228 (write pointer)")

	buf.Reset()
	assert.Error(t, Render(&buf, "table", 42))
}

func TestNewIOResult(t *testing.T) {
	tests := []struct {
		name     string
		decision policy.Decision
		outcome  string
		override string
	}{
		{
			name:     "clean pass",
			decision: policy.Decision{Dir: policy.DirWrite, LBA: 1024, Zone: 1},
			outcome:  "ok",
		},
		{
			name: "permitted violation",
			decision: policy.Decision{
				Dir:        policy.DirRead,
				LBA:        2048,
				Zone:       2,
				Code:       types.ViolationOutOfPolicy,
				Violations: []types.ViolationCode{types.ViolationReadPointer},
				Penalty:    4 * time.Second,
			},
			outcome: "out-of-policy",
		},
		{
			name: "rejection",
			decision: policy.Decision{
				Dir:        policy.DirWrite,
				Code:       types.ViolationWriteFull,
				Violations: []types.ViolationCode{types.ViolationWriteFull},
			},
			outcome: "rejected: write full",
		},
		{
			name:     "split",
			decision: policy.Decision{Dir: policy.DirWrite, Override: policy.OverrideSplit},
			outcome:  "ok",
			override: "split",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewIOResult(tt.decision, 8)
			assert.Equal(t, tt.outcome, r.Outcome)
			assert.Equal(t, tt.override, r.Override)
			assert.Equal(t, tt.decision.Dir.String(), r.Direction)
			assert.Equal(t, uint32(8), r.Sectors)
			assert.Len(t, r.Violations, len(tt.decision.Violations))
			assert.Equal(t, tt.decision.Penalty, r.Penalty)
		})
	}
}
