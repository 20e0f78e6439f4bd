package command

import (
	"context"
	"testing"
	"time"

	"github.com/deploymenttheory/go-smrsim/internal/device"
	"github.com/deploymenttheory/go-smrsim/internal/engine"
	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTarget is a mock implementation of Target
type MockTarget struct {
	mock.Mock
}

func (m *MockTarget) NumZones() uint32 { return m.Called().Get(0).(uint32) }

func (m *MockTarget) DefaultZoneSize() uint32 { return m.Called().Get(0).(uint32) }

func (m *MockTarget) SetDefaultZoneSize(sectors uint32) error { return m.Called(sectors).Error(0) }

func (m *MockTarget) ResetZoneWritePointer(lba uint64) error { return m.Called(lba).Error(0) }

func (m *MockTarget) QueryZones(lba uint64, criteria types.QueryCriteria, max uint32) ([]types.ZoneDescriptor, error) {
	args := m.Called(lba, criteria, max)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ZoneDescriptor), args.Error(1)
}

func (m *MockTarget) Stats() *types.Stats { return m.Called().Get(0).(*types.Stats) }

func (m *MockTarget) ResetStats() { m.Called() }

func (m *MockTarget) ResetZoneStats(lba uint64) error { return m.Called(lba).Error(0) }

func (m *MockTarget) DeviceConfig() types.DeviceConfig {
	return m.Called().Get(0).(types.DeviceConfig)
}

func (m *MockTarget) SetReadPolicy(permit bool) error { return m.Called(permit).Error(0) }

func (m *MockTarget) SetWritePolicy(permit bool) error { return m.Called(permit).Error(0) }

func (m *MockTarget) SetReadPenalty(ms uint16) error { return m.Called(ms).Error(0) }

func (m *MockTarget) SetWritePenalty(ms uint16) error { return m.Called(ms).Error(0) }

func (m *MockTarget) ClearZoneConfig() { m.Called() }

func (m *MockTarget) AddZoneConfig(z types.ZoneDescriptor) error { return m.Called(z).Error(0) }

func (m *MockTarget) ModifyZoneConfig(z types.ZoneDescriptor) error { return m.Called(z).Error(0) }

func (m *MockTarget) ResetDefaultConfig() { m.Called() }

func (m *MockTarget) ResetZoneConfig() { m.Called() }

func (m *MockTarget) ResetDeviceConfig() { m.Called() }

func (m *MockTarget) SetBackwardPointerReset(on bool) { m.Called(on) }

func (m *MockTarget) SetForwardPointerAdjust(on bool) { m.Called(on) }

func (m *MockTarget) SetBorderCrossPolicy(idx uint32, all bool, mode types.BorderCrossMode) error {
	return m.Called(idx, all, mode).Error(0)
}

func (m *MockTarget) SetLogging(on bool) { m.Called(on) }

func (m *MockTarget) LastReadError() types.ViolationCode {
	return m.Called().Get(0).(types.ViolationCode)
}

func (m *MockTarget) LastWriteError() types.ViolationCode {
	return m.Called().Get(0).(types.ViolationCode)
}

func (m *MockTarget) Sync(ctx context.Context) error { return m.Called(ctx).Error(0) }

type unknownCommand struct{}

func (unknownCommand) Kind() Kind { return Kind(200) }

func TestDispatch_Routing(t *testing.T) {
	ctx := context.Background()
	zone := types.ZoneDescriptor{Start: 3, Length: 1024, Type: types.ZoneTypeSequential, Condition: types.ZoneCondEmpty}

	tests := []struct {
		name  string
		cmd   Command
		setup func(m *MockTarget)
		check func(t *testing.T, r Reply)
	}{
		{
			name:  "get num zones",
			cmd:   GetNumZones{},
			setup: func(m *MockTarget) { m.On("NumZones").Return(uint32(7)) },
			check: func(t *testing.T, r Reply) { assert.Equal(t, uint32(7), r.Value) },
		},
		{
			name:  "get default zone size",
			cmd:   GetDefaultZoneSize{},
			setup: func(m *MockTarget) { m.On("DefaultZoneSize").Return(uint32(1024)) },
			check: func(t *testing.T, r Reply) { assert.Equal(t, uint32(1024), r.Value) },
		},
		{
			name:  "set default zone size",
			cmd:   SetDefaultZoneSize{Sectors: 2048},
			setup: func(m *MockTarget) { m.On("SetDefaultZoneSize", uint32(2048)).Return(nil) },
		},
		{
			name:  "reset write pointer",
			cmd:   ResetZoneWritePointer{LBA: 1024},
			setup: func(m *MockTarget) { m.On("ResetZoneWritePointer", uint64(1024)).Return(nil) },
		},
		{
			name: "query zones",
			cmd:  QueryZones{LBA: 0, Criteria: types.MatchFree, Max: 4},
			setup: func(m *MockTarget) {
				m.On("QueryZones", uint64(0), types.MatchFree, uint32(4)).Return([]types.ZoneDescriptor{zone}, nil)
			},
			check: func(t *testing.T, r Reply) {
				assert.Equal(t, uint32(1), r.Value)
				assert.Equal(t, []types.ZoneDescriptor{zone}, r.Zones)
			},
		},
		{
			name:  "get stats",
			cmd:   GetStats{},
			setup: func(m *MockTarget) { m.On("Stats").Return(&types.Stats{NumZones: 2}) },
			check: func(t *testing.T, r Reply) { assert.Equal(t, uint32(2), r.Stats.NumZones) },
		},
		{
			name:  "reset stats",
			cmd:   ResetStats{},
			setup: func(m *MockTarget) { m.On("ResetStats").Return() },
		},
		{
			name:  "reset zone stats",
			cmd:   ResetZoneStats{LBA: 8},
			setup: func(m *MockTarget) { m.On("ResetZoneStats", uint64(8)).Return(nil) },
		},
		{
			name:  "get device config",
			cmd:   GetDeviceConfig{},
			setup: func(m *MockTarget) { m.On("DeviceConfig").Return(types.DefaultDeviceConfig()) },
			check: func(t *testing.T, r Reply) { assert.Equal(t, types.DefaultDeviceConfig(), *r.Config) },
		},
		{
			name:  "set read policy",
			cmd:   SetReadPolicy{Permit: true},
			setup: func(m *MockTarget) { m.On("SetReadPolicy", true).Return(nil) },
		},
		{
			name:  "set write policy",
			cmd:   SetWritePolicy{Permit: false},
			setup: func(m *MockTarget) { m.On("SetWritePolicy", false).Return(nil) },
		},
		{
			name:  "set read penalty",
			cmd:   SetReadPenalty{Millis: 10},
			setup: func(m *MockTarget) { m.On("SetReadPenalty", uint16(10)).Return(nil) },
		},
		{
			name:  "set write penalty",
			cmd:   SetWritePenalty{Millis: 20},
			setup: func(m *MockTarget) { m.On("SetWritePenalty", uint16(20)).Return(nil) },
		},
		{
			name:  "clear zone config",
			cmd:   ClearZoneConfig{},
			setup: func(m *MockTarget) { m.On("ClearZoneConfig").Return() },
		},
		{
			name:  "add zone",
			cmd:   AddZoneConfig{Zone: zone},
			setup: func(m *MockTarget) { m.On("AddZoneConfig", zone).Return(nil) },
		},
		{
			name:  "modify zone",
			cmd:   ModifyZoneConfig{Zone: zone},
			setup: func(m *MockTarget) { m.On("ModifyZoneConfig", zone).Return(nil) },
		},
		{
			name:  "reset default config",
			cmd:   ResetDefaultConfig{},
			setup: func(m *MockTarget) { m.On("ResetDefaultConfig").Return() },
		},
		{
			name:  "reset zone config",
			cmd:   ResetZoneConfig{},
			setup: func(m *MockTarget) { m.On("ResetZoneConfig").Return() },
		},
		{
			name:  "reset device config",
			cmd:   ResetDeviceConfig{},
			setup: func(m *MockTarget) { m.On("ResetDeviceConfig").Return() },
		},
		{
			name:  "backward reset",
			cmd:   SetBackwardPointerReset{Enable: true},
			setup: func(m *MockTarget) { m.On("SetBackwardPointerReset", true).Return() },
		},
		{
			name:  "forward adjust",
			cmd:   SetForwardPointerAdjust{Enable: true},
			setup: func(m *MockTarget) { m.On("SetForwardPointerAdjust", true).Return() },
		},
		{
			name: "border cross",
			cmd:  SetBorderCrossPolicy{All: true, Mode: types.BorderCrossSequential},
			setup: func(m *MockTarget) {
				m.On("SetBorderCrossPolicy", uint32(0), true, types.BorderCrossSequential).Return(nil)
			},
		},
		{
			name:  "logging",
			cmd:   SetLogging{Enable: true},
			setup: func(m *MockTarget) { m.On("SetLogging", true).Return() },
		},
		{
			name:  "last read error",
			cmd:   GetLastReadError{},
			setup: func(m *MockTarget) { m.On("LastReadError").Return(types.ViolationReadPointer) },
			check: func(t *testing.T, r Reply) { assert.Equal(t, types.ViolationReadPointer, r.Violation) },
		},
		{
			name:  "last write error",
			cmd:   GetLastWriteError{},
			setup: func(m *MockTarget) { m.On("LastWriteError").Return(types.ViolationWriteAlign) },
			check: func(t *testing.T, r Reply) { assert.Equal(t, types.ViolationWriteAlign, r.Violation) },
		},
		{
			name:  "sync",
			cmd:   Sync{},
			setup: func(m *MockTarget) { m.On("Sync", ctx).Return(nil) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockTarget)
			tt.setup(m)
			d := NewDispatcher(m, nil)

			r, err := d.Dispatch(ctx, tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd.Kind(), r.Kind)
			assert.NotEqual(t, uuid.Nil, r.ID)
			if tt.check != nil {
				tt.check(t, r)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestDispatch_Errors(t *testing.T) {
	ctx := context.Background()
	m := new(MockTarget)
	boom := types.NewConfigError("bad size")
	m.On("SetDefaultZoneSize", uint32(1000)).Return(boom)
	m.On("QueryZones", uint64(0), types.MatchAll, uint32(0)).Return(nil, types.NewConfigError("max is zero"))
	d := NewDispatcher(m, nil)

	_, err := d.Dispatch(ctx, SetDefaultZoneSize{Sectors: 1000})
	assert.ErrorIs(t, err, boom)

	r, err := d.Dispatch(ctx, QueryZones{})
	assert.ErrorIs(t, err, types.ErrConfiguration)
	assert.Nil(t, r.Zones)

	_, err = d.Dispatch(ctx, unknownCommand{})
	assert.Error(t, err)

	_, err = d.Dispatch(ctx, nil)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = d.Dispatch(cancelled, GetNumZones{})
	assert.ErrorIs(t, err, context.Canceled)
	m.AssertNotCalled(t, "NumZones")
}

func TestDispatch_Serialized(t *testing.T) {
	ctx := context.Background()
	m := new(MockTarget)
	release := make(chan time.Time)
	m.On("Sync", mock.Anything).WaitUntil(release).Return(nil).Once()
	m.On("NumZones").Return(uint32(3))
	d := NewDispatcher(m, nil)

	done := make(chan struct{})
	go func() {
		_, _ = d.Dispatch(ctx, Sync{})
		close(done)
	}()

	// Wait until the sync holds the dispatcher lock.
	require.Eventually(t, func() bool {
		if d.mu.TryLock() {
			d.mu.Unlock()
			return false
		}
		return true
	}, time.Second, time.Millisecond)

	got := make(chan uint32, 1)
	go func() {
		r, _ := d.Dispatch(ctx, GetNumZones{})
		got <- r.Value
	}()

	select {
	case <-got:
		t.Fatal("command ran while another held the dispatcher")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-done
	assert.Equal(t, uint32(3), <-got)
}

func TestDispatch_Engine(t *testing.T) {
	ctx := context.Background()
	dev := device.NewMemory(device.StateOffset(3072) + 16*types.PageSize)
	e, err := engine.Open(ctx, dev, engine.Options{Capacity: 3072, DefaultZoneSectors: 1024, FlushInterval: time.Hour})
	require.NoError(t, err)
	defer e.Close(ctx)
	d := NewDispatcher(e, nil)

	r, err := d.Dispatch(ctx, GetNumZones{})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), r.Value)

	_, err = d.Dispatch(ctx, AddZoneConfig{Zone: types.ZoneDescriptor{Start: 5, Length: 1024, Type: types.ZoneTypeSequential, Condition: types.ZoneCondEmpty}})
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, _, err = e.Read(ctx, 1024, 8)
	require.Error(t, err)
	r, err = d.Dispatch(ctx, GetLastReadError{})
	require.NoError(t, err)
	assert.Equal(t, types.ViolationReadPointer, r.Violation)

	r, err = d.Dispatch(ctx, QueryZones{Criteria: types.MatchFree, Max: 8})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), r.Value)

	_, err = d.Dispatch(ctx, SetWritePenalty{Millis: types.MaxPenaltyMillis})
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = d.Dispatch(ctx, Sync{})
	assert.NoError(t, err)
}
