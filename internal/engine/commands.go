package engine

import (
	"github.com/deploymenttheory/go-smrsim/internal/policy"
	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// Zone geometry

// NumZones returns the number of zones in the directory.
func (e *Engine) NumZones() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.NumZones()
}

// DefaultZoneSize returns the configured zone size in sectors.
func (e *Engine) DefaultZoneSize() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.ZoneSize()
}

// Capacity returns the emulated capacity in sectors.
func (e *Engine) Capacity() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.Capacity()
}

// SetDefaultZoneSize changes the zone size and rebuilds the default layout.
// Zone contents, statistics and the device configuration are reset.
func (e *Engine) SetDefaultZoneSize(sectors uint32) error {
	return e.mutate(func() error {
		return e.table.ResizeDefaultZone(sectors)
	})
}

// ResetZoneWritePointer rewinds the zone starting at lba.
func (e *Engine) ResetZoneWritePointer(lba uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.table.ResetWritePointer(lba); err != nil {
		return err
	}
	e.tracker.MarkStatus(uint32(e.table.ZoneIndex(lba)), e.table.NumZones())
	return nil
}

// QueryZones returns up to max zones from the zone containing lba onward that
// match criteria.
func (e *Engine) QueryZones(lba uint64, criteria types.QueryCriteria, max uint32) ([]types.ZoneDescriptor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.Query(lba, criteria, max)
}

// Statistics

// Stats returns a copy of the statistics block.
func (e *Engine) Stats() *types.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agg.Snapshot()
}

// ResetStats zeroes every counter and the idle statistics.
func (e *Engine) ResetStats() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agg.ResetAll()
	e.tracker.MarkConfig()
}

// ResetZoneStats zeroes the counters of the zone containing lba.
func (e *Engine) ResetZoneStats(lba uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.table.ZoneIndex(lba)
	if idx >= uint64(e.table.NumZones()) {
		return types.NewConfigError("lba %d out of range", lba)
	}
	if err := e.agg.ResetZone(uint32(idx)); err != nil {
		return err
	}
	e.tracker.MarkStats(uint32(idx))
	return nil
}

// Device configuration

// DeviceConfig returns the device configuration.
func (e *Engine) DeviceConfig() types.DeviceConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.Config()
}

// SetDeviceConfig replaces the whole device configuration.
func (e *Engine) SetDeviceConfig(cfg types.DeviceConfig) error {
	if cfg.ReadPenaltyMillis >= types.MaxPenaltyMillis || cfg.WritePenaltyMillis >= types.MaxPenaltyMillis {
		return types.NewConfigError("penalty must be below %d ms", types.MaxPenaltyMillis)
	}
	return e.updateConfig(func(c *types.DeviceConfig) { *c = cfg })
}

// SetReadPolicy selects whether violating reads are satisfied or rejected.
func (e *Engine) SetReadPolicy(permit bool) error {
	return e.updateConfig(func(c *types.DeviceConfig) { c.OutOfPolicyRead = types.BoolFlag(permit) })
}

// SetWritePolicy selects whether violating writes are satisfied or rejected.
func (e *Engine) SetWritePolicy(permit bool) error {
	return e.updateConfig(func(c *types.DeviceConfig) { c.OutOfPolicyWrite = types.BoolFlag(permit) })
}

// SetReadPenalty sets the delay applied to a permitted violating read.
func (e *Engine) SetReadPenalty(ms uint16) error {
	if ms >= types.MaxPenaltyMillis {
		return types.NewConfigError("read penalty %d ms must be below %d", ms, types.MaxPenaltyMillis)
	}
	return e.updateConfig(func(c *types.DeviceConfig) { c.ReadPenaltyMillis = ms })
}

// SetWritePenalty sets the delay applied to a permitted violating write.
func (e *Engine) SetWritePenalty(ms uint16) error {
	if ms >= types.MaxPenaltyMillis {
		return types.NewConfigError("write penalty %d ms must be below %d", ms, types.MaxPenaltyMillis)
	}
	return e.updateConfig(func(c *types.DeviceConfig) { c.WritePenaltyMillis = ms })
}

func (e *Engine) updateConfig(fn func(c *types.DeviceConfig)) error {
	return e.mutate(func() error {
		cfg := e.table.Config()
		fn(&cfg)
		e.table.SetConfig(cfg)
		return nil
	})
}

// Zone configuration

// ClearZoneConfig removes every zone. I/O fails as out of range until zones
// are added back.
func (e *Engine) ClearZoneConfig() {
	_ = e.mutate(func() error {
		e.table.Clear()
		return nil
	})
}

// AddZoneConfig appends a zone at the tail of the directory.
func (e *Engine) AddZoneConfig(z types.ZoneDescriptor) error {
	return e.mutate(func() error { return e.table.AddZone(z) })
}

// ModifyZoneConfig overwrites the mutable fields of an existing zone.
func (e *Engine) ModifyZoneConfig(z types.ZoneDescriptor) error {
	return e.mutate(func() error { return e.table.ModifyZone(z) })
}

// ResetDefaultConfig restores the default layout, the default device
// configuration, and clears the research overrides.
func (e *Engine) ResetDefaultConfig() {
	_ = e.mutate(func() error {
		e.table.ResetZoneConfigToDefault()
		e.table.ResetDeviceConfigToDefault()
		opts := e.checker.Options()
		e.checker.SetOptions(policy.Options{BorderCrossMatch: opts.BorderCrossMatch})
		return nil
	})
}

// ResetZoneConfig restores the default zone size and layout.
func (e *Engine) ResetZoneConfig() {
	_ = e.mutate(func() error {
		e.table.ResetZoneConfigToDefault()
		return nil
	})
}

// ResetDeviceConfig restores the default policy flags and penalties.
func (e *Engine) ResetDeviceConfig() {
	_ = e.mutate(func() error {
		e.table.ResetDeviceConfigToDefault()
		return nil
	})
}

// Zones returns a copy of the whole zone directory.
func (e *Engine) Zones() []types.ZoneDescriptor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.Zones()
}

// mutate runs fn under the state lock and schedules a full rewrite when it
// succeeds.
func (e *Engine) mutate(fn func() error) error {
	e.mu.Lock()
	err := fn()
	n := e.table.NumZones()
	if err == nil {
		e.tracker.MarkConfig()
	}
	e.mu.Unlock()

	if err == nil {
		e.met.SetZones(n)
	}
	return err
}

// Research overrides

// Research returns the active research overrides.
func (e *Engine) Research() policy.Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checker.Options()
}

// SetBackwardPointerReset toggles treating a write at a zone start as a
// pointer reset.
func (e *Engine) SetBackwardPointerReset(on bool) {
	e.setResearch(func(o *policy.Options) { o.BackwardReset = on })
}

// SetForwardPointerAdjust toggles moving the pointer forward to a write
// landing ahead of it.
func (e *Engine) SetForwardPointerAdjust(on bool) {
	e.setResearch(func(o *policy.Options) { o.ForwardAdjust = on })
}

// SetBorderCrossMatch selects the split trigger predicate.
func (e *Engine) SetBorderCrossMatch(m policy.BorderCrossMatch) {
	e.setResearch(func(o *policy.Options) { o.BorderCrossMatch = m })
}

func (e *Engine) setResearch(fn func(o *policy.Options)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	opts := e.checker.Options()
	fn(&opts)
	e.checker.SetOptions(opts)
	e.log.Info("research overrides changed",
		"backward_reset", opts.BackwardReset,
		"forward_adjust", opts.ForwardAdjust,
		"border_cross_match", opts.BorderCrossMatch.String(),
	)
}

// SetBorderCrossPolicy sets the border-cross mode of zone idx, or of every
// zone when all is set. Modes other than BorderCrossCurrent always apply to
// the whole directory.
func (e *Engine) SetBorderCrossPolicy(idx uint32, all bool, mode types.BorderCrossMode) error {
	return e.mutate(func() error {
		if all && mode == types.BorderCrossCurrent {
			for i := uint32(0); i < e.table.NumZones(); i++ {
				if err := e.table.SetBorderCross(i, mode); err != nil {
					return err
				}
			}
			return nil
		}
		return e.table.SetBorderCross(idx, mode)
	})
}

// Diagnostics

// SetLogging raises or lowers the level of per-request decision logging.
func (e *Engine) SetLogging(on bool) {
	e.mu.Lock()
	e.debug = on
	e.mu.Unlock()
	e.log.Info("decision logging changed", "enabled", on)
}

// LastReadError returns the most recent read violation and clears it.
func (e *Engine) LastReadError() types.ViolationCode {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lastRead
	e.lastRead = types.ViolationNone
	return v
}

// LastWriteError returns the most recent write violation and clears it.
func (e *Engine) LastWriteError() types.ViolationCode {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lastWrite
	e.lastWrite = types.ViolationNone
	return v
}
