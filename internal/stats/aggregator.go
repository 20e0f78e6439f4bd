// Package stats aggregates per-zone policy violation counters and device idle time.
package stats

import (
	"fmt"
	"time"

	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// Clock is a monotonic tick source. The counter may wrap around.
type Clock interface {
	Ticks() uint32
}

// MonotonicClock counts milliseconds since it was created.
type MonotonicClock struct {
	origin time.Time
}

// NewMonotonicClock returns a clock starting at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{origin: time.Now()}
}

// Ticks returns elapsed milliseconds truncated to 32 bits.
func (c *MonotonicClock) Ticks() uint32 {
	return uint32(time.Since(c.origin).Milliseconds())
}

// Aggregator owns the statistics block. It is not safe for concurrent use; the
// engine's state lock serializes access.
type Aggregator struct {
	clock  Clock
	device types.IdleStats
	zones  []types.ZoneStats
	last   uint32
}

// NewAggregator creates an aggregator for numZones zones.
func NewAggregator(clock Clock, numZones uint32) *Aggregator {
	if clock == nil {
		clock = NewMonotonicClock()
	}
	a := &Aggregator{clock: clock}
	a.Reset(numZones)
	return a
}

// Reset discards all counters and sizes the zone array to numZones.
func (a *Aggregator) Reset(numZones uint32) {
	a.zones = make([]types.ZoneStats, numZones)
	a.device = types.IdleStats{}
	a.last = a.clock.Ticks()
}

// Append adds a zeroed slot for a newly added zone.
func (a *Aggregator) Append() {
	a.zones = append(a.zones, types.ZoneStats{})
}

// NumZones returns the number of zone slots.
func (a *Aggregator) NumZones() uint32 {
	return uint32(len(a.zones))
}

// Zone returns the counters of zone idx. The caller must have range-checked idx.
func (a *Aggregator) Zone(idx uint32) *types.ZoneStats {
	return &a.zones[idx]
}

// ResetAll zeroes the idle statistics and every zone's counters.
func (a *Aggregator) ResetAll() {
	a.device = types.IdleStats{}
	for i := range a.zones {
		a.zones[i] = types.ZoneStats{}
	}
}

// ResetZone zeroes the counters of zone idx.
func (a *Aggregator) ResetZone(idx uint32) error {
	if idx >= uint32(len(a.zones)) {
		return types.NewConfigError("zone %d out of range (%d zones)", idx, len(a.zones))
	}
	a.zones[idx] = types.ZoneStats{}
	return nil
}

// TouchIdle records an I/O arrival and folds the elapsed gap into the idle
// extremes. A counter that went backwards has wrapped; unsigned subtraction
// yields the distance across the wrap.
func (a *Aggregator) TouchIdle() uint32 {
	now := a.clock.Ticks()
	dt := now - a.last
	a.last = now

	if dt > a.device.IdleTimeMax {
		a.device.IdleTimeMax = dt
	}
	if dt > 0 && (a.device.IdleTimeMin == 0 || dt < a.device.IdleTimeMin) {
		a.device.IdleTimeMin = dt
	}
	return dt
}

// Idle returns the device idle statistics.
func (a *Aggregator) Idle() types.IdleStats {
	return a.device
}

// Snapshot returns a deep copy of the statistics block.
func (a *Aggregator) Snapshot() *types.Stats {
	return &types.Stats{
		Device:   a.device,
		NumZones: uint32(len(a.zones)),
		Zones:    append([]types.ZoneStats(nil), a.zones...),
	}
}

// Restore replaces the counters with a previously persisted block.
func (a *Aggregator) Restore(s *types.Stats) error {
	if int(s.NumZones) != len(s.Zones) {
		return fmt.Errorf("stats zone count %d does not match %d slots", s.NumZones, len(s.Zones))
	}
	a.device = s.Device
	a.zones = append([]types.ZoneStats(nil), s.Zones...)
	a.last = a.clock.Ticks()
	return nil
}
