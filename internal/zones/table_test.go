package zones

import (
	"errors"
	"testing"

	"github.com/deploymenttheory/go-smrsim/internal/stats"
	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now uint32 }

func (c *fixedClock) Ticks() uint32 { return c.now }

// newThreeZoneTable builds a 3072-sector device with 1024-sector zones:
// CONV | SEQ | CONV.
func newThreeZoneTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(3072, 1024, stats.NewAggregator(&fixedClock{}, 0))
	require.NoError(t, err)
	return tbl
}

func TestNewTable_DefaultLayout(t *testing.T) {
	tbl := newThreeZoneTable(t)

	require.Equal(t, uint32(3), tbl.NumZones())
	assert.Equal(t, uint32(1024), tbl.ZoneSize())
	assert.Equal(t, uint32(3), tbl.Stats().NumZones())

	want := []struct {
		typ  types.ZoneType
		cond types.ZoneCondition
	}{
		{types.ZoneTypeConventional, types.ZoneCondNoWP},
		{types.ZoneTypeSequential, types.ZoneCondEmpty},
		{types.ZoneTypeConventional, types.ZoneCondNoWP},
	}
	for i, w := range want {
		z := tbl.Zone(uint32(i))
		require.NotNil(t, z)
		assert.Equal(t, uint64(i), z.Start)
		assert.Equal(t, w.typ, z.Type, "zone %d type", i)
		assert.Equal(t, w.cond, z.Condition, "zone %d condition", i)
	}
	assert.Equal(t, types.DefaultDeviceConfig(), tbl.Config())
	assert.NoError(t, tbl.CheckInvariants())
}

func TestNewTable_SingleZoneIsSequential(t *testing.T) {
	tbl, err := NewTable(1024, 1024, stats.NewAggregator(&fixedClock{}, 0))
	require.NoError(t, err)
	require.Equal(t, uint32(1), tbl.NumZones())
	assert.Equal(t, types.ZoneTypeSequential, tbl.Zone(0).Type)
	assert.Equal(t, types.ZoneCondEmpty, tbl.Zone(0).Condition)
}

func TestInitializeDefault_Errors(t *testing.T) {
	tbl := newThreeZoneTable(t)

	err := tbl.InitializeDefault(0)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	err = tbl.InitializeDefault(types.MaxCapacitySectors + 1)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestResizeDefaultZone(t *testing.T) {
	tests := []struct {
		name    string
		size    uint32
		wantErr bool
		zones   uint32
	}{
		{name: "half size", size: 512, zones: 6},
		{name: "whole device", size: 2048, zones: 1},
		{name: "not power of two", size: 768, wantErr: true},
		{name: "not block multiple", size: 4, wantErr: true},
		{name: "zero", size: 0, wantErr: true},
		{name: "larger than device", size: 4096, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newThreeZoneTable(t)
			tbl.SetConfig(types.DeviceConfig{OutOfPolicyRead: 1})

			err := tbl.ResizeDefaultZone(tt.size)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrConfiguration)
				assert.Equal(t, uint32(1024), tbl.ZoneSize())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, tbl.ZoneSize())
			assert.Equal(t, tt.zones, tbl.NumZones())
			assert.Equal(t, types.DefaultDeviceConfig(), tbl.Config())
			assert.NoError(t, tbl.CheckInvariants())
		})
	}
}

func TestAddZone(t *testing.T) {
	tbl := newThreeZoneTable(t)
	tbl.Clear()
	require.Equal(t, uint32(0), tbl.NumZones())
	assert.Equal(t, uint32(0), tbl.Stats().NumZones())

	bad := []struct {
		name string
		z    types.ZoneDescriptor
	}{
		{"not at tail", types.ZoneDescriptor{Start: 1, Length: 1024, Type: types.ZoneTypeSequential, Condition: types.ZoneCondEmpty}},
		{"wrong length", types.ZoneDescriptor{Start: 0, Length: 512, Type: types.ZoneTypeSequential, Condition: types.ZoneCondEmpty}},
		{"seq not empty", types.ZoneDescriptor{Start: 0, Length: 1024, Type: types.ZoneTypeSequential, Condition: types.ZoneCondClosed}},
		{"conv with wp condition", types.ZoneDescriptor{Start: 0, Length: 1024, Type: types.ZoneTypeConventional, Condition: types.ZoneCondEmpty}},
		{"preferred", types.ZoneDescriptor{Start: 0, Length: 1024, Type: types.ZoneTypePreferred, Condition: types.ZoneCondEmpty}},
		{"nonzero wp", types.ZoneDescriptor{Start: 0, Length: 1024, WritePtrOffset: 8, Type: types.ZoneTypeSequential, Condition: types.ZoneCondEmpty}},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tbl.AddZone(tt.z), types.ErrConfiguration)
			assert.Equal(t, uint32(0), tbl.NumZones())
		})
	}

	for i := uint64(0); i < 3; i++ {
		err := tbl.AddZone(types.ZoneDescriptor{Start: i, Length: 1024, Type: types.ZoneTypeSequential, Condition: types.ZoneCondEmpty})
		require.NoError(t, err)
		assert.Equal(t, uint32(i+1), tbl.NumZones())
	}
	assert.Equal(t, uint32(3), tbl.Stats().NumZones())

	err := tbl.AddZone(types.ZoneDescriptor{Start: 3, Length: 1024, Type: types.ZoneTypeSequential, Condition: types.ZoneCondEmpty})
	assert.ErrorIs(t, err, types.ErrConfiguration, "beyond max zone count")
}

func TestModifyZone(t *testing.T) {
	seq := func(mut func(z *types.ZoneDescriptor)) types.ZoneDescriptor {
		z := types.ZoneDescriptor{Start: 1, Length: 1024, Type: types.ZoneTypeSequential, Condition: types.ZoneCondClosed, WritePtrOffset: 64}
		mut(&z)
		return z
	}
	tests := []struct {
		name    string
		z       types.ZoneDescriptor
		wantErr bool
	}{
		{"closed partial", seq(func(z *types.ZoneDescriptor) {}), false},
		{"full", seq(func(z *types.ZoneDescriptor) { z.WritePtrOffset = 1024; z.Condition = types.ZoneCondFull }), false},
		{"read only", seq(func(z *types.ZoneDescriptor) { z.Condition = types.ZoneCondReadOnly }), false},
		{"offline", seq(func(z *types.ZoneDescriptor) { z.Condition = types.ZoneCondOffline }), false},
		{"out of range", seq(func(z *types.ZoneDescriptor) { z.Start = 3 }), true},
		{"last sequential to conventional", seq(func(z *types.ZoneDescriptor) { z.Type = types.ZoneTypeConventional; z.Condition = types.ZoneCondNoWP; z.WritePtrOffset = 0 }), true},
		{"length differs", seq(func(z *types.ZoneDescriptor) { z.Length = 512 }), true},
		{"wp beyond length", seq(func(z *types.ZoneDescriptor) { z.WritePtrOffset = 2000 }), true},
		{"wp at end not full", seq(func(z *types.ZoneDescriptor) { z.WritePtrOffset = 1024 }), true},
		{"full with partial wp", seq(func(z *types.ZoneDescriptor) { z.Condition = types.ZoneCondFull }), true},
		{"checkpoint at length", seq(func(z *types.ZoneDescriptor) { z.CheckpointOffset = 1024 }), true},
		{"open condition", seq(func(z *types.ZoneDescriptor) { z.Condition = types.ZoneCondImpOpen }), true},
		{"no wp on sequential", seq(func(z *types.ZoneDescriptor) { z.Condition = types.ZoneCondNoWP }), true},
		{"empty with wp", seq(func(z *types.ZoneDescriptor) { z.Condition = types.ZoneCondEmpty }), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newThreeZoneTable(t)
			before := tbl.Zones()

			err := tbl.ModifyZone(tt.z)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrConfiguration)
				assert.Equal(t, before, tbl.Zones())
				return
			}
			require.NoError(t, err)
			got := tbl.Zone(uint32(tt.z.Start))
			assert.Equal(t, tt.z, *got)
			assert.NoError(t, tbl.CheckInvariants())
		})
	}
}

func TestModifyZone_ConventionalToSequentialAndBack(t *testing.T) {
	tbl := newThreeZoneTable(t)

	require.NoError(t, tbl.ModifyZone(types.ZoneDescriptor{Start: 0, Length: 1024, Type: types.ZoneTypeSequential, Condition: types.ZoneCondEmpty}))
	// With two sequential zones, either may become conventional.
	require.NoError(t, tbl.ModifyZone(types.ZoneDescriptor{Start: 1, Length: 1024, Type: types.ZoneTypeConventional, Condition: types.ZoneCondNoWP}))
	err := tbl.ModifyZone(types.ZoneDescriptor{Start: 0, Length: 1024, Type: types.ZoneTypeConventional, Condition: types.ZoneCondNoWP})
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestResetWritePointer(t *testing.T) {
	tbl := newThreeZoneTable(t)
	z := tbl.Zone(1)
	z.WritePtrOffset = 512
	z.Condition = types.ZoneCondClosed

	assert.ErrorIs(t, tbl.ResetWritePointer(1025), types.ErrConfiguration, "not zone aligned")
	assert.ErrorIs(t, tbl.ResetWritePointer(0), types.ErrConfiguration, "conventional")
	assert.ErrorIs(t, tbl.ResetWritePointer(4096), types.ErrConfiguration, "out of range")

	require.NoError(t, tbl.ResetWritePointer(1024))
	assert.Equal(t, uint32(0), z.WritePtrOffset)
	assert.Equal(t, types.ZoneCondEmpty, z.Condition)
}

func TestResetConfigs(t *testing.T) {
	tbl := newThreeZoneTable(t)
	require.NoError(t, tbl.ResizeDefaultZone(512))
	cfg := types.DeviceConfig{OutOfPolicyRead: 1, OutOfPolicyWrite: 1, ReadPenaltyMillis: 10, WritePenaltyMillis: 20}
	tbl.SetConfig(cfg)

	tbl.ResetZoneConfigToDefault()
	assert.Equal(t, uint32(1024), tbl.ZoneSize())
	assert.Equal(t, uint32(3), tbl.NumZones())
	assert.Equal(t, cfg, tbl.Config(), "zone reset keeps device config")

	first := tbl.Zones()
	tbl.ResetZoneConfigToDefault()
	assert.Equal(t, first, tbl.Zones())

	tbl.ResetDeviceConfigToDefault()
	assert.Equal(t, types.DefaultDeviceConfig(), tbl.Config())
}

func TestSetBorderCross(t *testing.T) {
	tbl := newThreeZoneTable(t)

	require.NoError(t, tbl.SetBorderCross(0, types.BorderCrossSequential))
	assert.Equal(t, uint8(0), tbl.Zone(0).Flag)
	assert.Equal(t, uint8(types.BorderCrossSequential), tbl.Zone(1).Flag)

	require.NoError(t, tbl.SetBorderCross(2, types.BorderCrossCurrent))
	assert.Equal(t, uint8(types.BorderCrossCurrent), tbl.Zone(2).Flag)

	require.NoError(t, tbl.SetBorderCross(0, types.BorderCrossOff))
	for _, z := range tbl.Zones() {
		assert.Equal(t, uint8(0), z.Flag)
	}

	assert.ErrorIs(t, tbl.SetBorderCross(9, types.BorderCrossCurrent), types.ErrConfiguration)
	assert.ErrorIs(t, tbl.SetBorderCross(0, types.BorderCrossMode(7)), types.ErrConfiguration)
}

func TestRestore(t *testing.T) {
	tbl := newThreeZoneTable(t)
	loaded := []types.ZoneDescriptor{
		{Start: 0, Length: 512, Type: types.ZoneTypeSequential, Condition: types.ZoneCondEmpty},
		{Start: 1, Length: 512, Type: types.ZoneTypeSequential, Condition: types.ZoneCondFull, WritePtrOffset: 512},
	}
	cfg := types.DeviceConfig{OutOfPolicyWrite: 1, ReadPenaltyMillis: 1, WritePenaltyMillis: 2}

	require.NoError(t, tbl.Restore(cfg, loaded))
	assert.Equal(t, uint32(512), tbl.ZoneSize())
	assert.Equal(t, loaded, tbl.Zones())
	assert.Equal(t, cfg, tbl.Config())

	loaded[1].Length = 1024
	err := tbl.Restore(cfg, loaded)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}
