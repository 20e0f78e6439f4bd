package zones

import (
	"fmt"

	"github.com/deploymenttheory/go-smrsim/internal/stats"
	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// Capacity returns the device capacity in sectors.
func (t *Table) Capacity() uint64 { return t.capacity }

// ZoneSize returns the configured zone size in sectors.
func (t *Table) ZoneSize() uint32 { return t.zoneSize }

// DefaultZoneSize returns the built-in zone size in sectors.
func (t *Table) DefaultZoneSize() uint32 { return t.defaultSize }

// MaxZones returns how many zones of the configured size fit in the device.
func (t *Table) MaxZones() uint32 {
	if t.zoneSize == 0 {
		return 0
	}
	return uint32(t.capacity / uint64(t.zoneSize))
}

// NumZones returns the number of zones in the directory.
func (t *Table) NumZones() uint32 { return uint32(len(t.zones)) }

// ZoneIndex maps an LBA to the index of the zone containing it. The result may
// be past the end of the directory.
func (t *Table) ZoneIndex(lba uint64) uint64 {
	return lba / uint64(t.zoneSize)
}

// ZoneBase returns the first LBA of zone idx.
func (t *Table) ZoneBase(idx uint32) uint64 {
	return uint64(idx) * uint64(t.zoneSize)
}

// Zone returns zone idx for in-place update, or nil when out of range.
func (t *Table) Zone(idx uint32) *types.ZoneDescriptor {
	if idx >= uint32(len(t.zones)) {
		return nil
	}
	return &t.zones[idx]
}

// Zones returns a copy of the directory.
func (t *Table) Zones() []types.ZoneDescriptor {
	return append([]types.ZoneDescriptor(nil), t.zones...)
}

// Config returns the device configuration.
func (t *Table) Config() types.DeviceConfig { return t.config }

// SetConfig replaces the device configuration.
func (t *Table) SetConfig(cfg types.DeviceConfig) { t.config = cfg }

// Stats returns the statistics aggregator kept in step with the directory.
func (t *Table) Stats() *stats.Aggregator { return t.stats }

// CheckInvariants verifies the write pointer and FULL-condition rules for
// every zone.
func (t *Table) CheckInvariants() error {
	for i := range t.zones {
		z := &t.zones[i]
		if z.WritePtrOffset > z.Length {
			return fmt.Errorf("zone %d: write pointer %d beyond length %d", i, z.WritePtrOffset, z.Length)
		}
		if z.IsSequential() && (z.Condition == types.ZoneCondFull) != (z.WritePtrOffset == z.Length) {
			return fmt.Errorf("zone %d: condition %s with write pointer %d/%d", i, z.Condition, z.WritePtrOffset, z.Length)
		}
	}
	if t.stats.NumZones() != uint32(len(t.zones)) {
		return fmt.Errorf("stats hold %d zones, directory holds %d", t.stats.NumZones(), len(t.zones))
	}
	return nil
}
