// Package zones owns the zone directory and the device configuration, and
// enforces the rules under which either may be changed.
package zones

import (
	"github.com/deploymenttheory/go-smrsim/internal/stats"
	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// Table is the zone directory plus device configuration. It is not safe for
// concurrent use; the engine's state lock serializes access.
type Table struct {
	capacity    uint64 // sectors
	defaultSize uint32 // built-in zone size, sectors
	zoneSize    uint32 // configured zone size, sectors

	config types.DeviceConfig
	zones  []types.ZoneDescriptor
	stats  *stats.Aggregator
}

// NewTable builds a table with the default layout for capacity sectors.
// defaultZoneSectors of zero selects types.DefaultZoneSectors.
func NewTable(capacity uint64, defaultZoneSectors uint32, agg *stats.Aggregator) (*Table, error) {
	if defaultZoneSectors == 0 {
		defaultZoneSectors = types.DefaultZoneSectors
	}
	if err := validZoneSize(defaultZoneSectors); err != nil {
		return nil, err
	}
	t := &Table{defaultSize: defaultZoneSectors, stats: agg}
	if err := t.InitializeDefault(capacity); err != nil {
		return nil, err
	}
	return t, nil
}

// InitializeDefault resets everything to the built-in defaults for a device of
// capacity sectors: default zone size, default layout, default device config,
// zeroed statistics.
func (t *Table) InitializeDefault(capacity uint64) error {
	if capacity == 0 {
		return types.NewConfigError("zero capacity")
	}
	if capacity > types.MaxCapacitySectors {
		return types.NewConfigError("capacity %d exceeds maximum %d sectors", capacity, types.MaxCapacitySectors)
	}
	t.capacity = capacity
	t.zoneSize = t.defaultSize
	t.config = types.DefaultDeviceConfig()
	t.rebuild()
	return nil
}

// ResizeDefaultZone changes the zone size and reinitializes the whole state
// with the default layout for the new size.
func (t *Table) ResizeDefaultZone(newSize uint32) error {
	if err := validZoneSize(newSize); err != nil {
		return err
	}
	if uint64(newSize) > t.capacity {
		return types.NewConfigError("zone size %d exceeds capacity %d", newSize, t.capacity)
	}
	t.zoneSize = newSize
	t.config = types.DefaultDeviceConfig()
	t.rebuild()
	return nil
}

// ResetZoneConfigToDefault restores the default zone size and layout. The
// device configuration is kept.
func (t *Table) ResetZoneConfigToDefault() {
	t.zoneSize = t.defaultSize
	t.rebuild()
}

// ResetDeviceConfigToDefault restores the default policy flags and penalties.
func (t *Table) ResetDeviceConfigToDefault() {
	t.config = types.DefaultDeviceConfig()
}

// rebuild lays out capacity/zoneSize equal zones. With more than one zone the
// first and last are conventional; the rest are sequential and empty.
func (t *Table) rebuild() {
	n := t.MaxZones()
	t.zones = make([]types.ZoneDescriptor, n)
	for i := uint32(0); i < n; i++ {
		z := types.ZoneDescriptor{
			Start:     uint64(i),
			Length:    t.zoneSize,
			Type:      types.ZoneTypeSequential,
			Condition: types.ZoneCondEmpty,
		}
		if n > 1 && (i == 0 || i == n-1) {
			z.Type = types.ZoneTypeConventional
			z.Condition = types.ZoneCondNoWP
		}
		t.zones[i] = z
	}
	t.stats.Reset(n)
}

// Clear removes every zone and its statistics. Later I/O fails as out of range
// until zones are added again.
func (t *Table) Clear() {
	t.zones = t.zones[:0]
	t.stats.Reset(0)
}

// AddZone appends a zone at the tail of the directory.
func (t *Table) AddZone(z types.ZoneDescriptor) error {
	n := uint64(len(t.zones))
	if z.Start >= uint64(t.MaxZones()) {
		return types.NewConfigError("zone %d beyond maximum zone count %d", z.Start, t.MaxZones())
	}
	if z.Start != n {
		return types.NewConfigError("zone %d does not extend the directory (next index %d)", z.Start, n)
	}
	if z.Length != t.zoneSize {
		return types.NewConfigError("zone length %d differs from zone size %d", z.Length, t.zoneSize)
	}
	switch {
	case z.Type == types.ZoneTypeConventional && z.Condition == types.ZoneCondNoWP:
	case z.Type == types.ZoneTypeSequential && z.Condition == types.ZoneCondEmpty:
	default:
		return types.NewConfigError("zone type %s with condition %s cannot be added", z.Type, z.Condition)
	}
	if z.WritePtrOffset != 0 {
		return types.NewConfigError("new zone write pointer %d is not at zone start", z.WritePtrOffset)
	}
	z.Flag = 0
	t.zones = append(t.zones, z)
	t.stats.Append()
	return nil
}

// ModifyZone overwrites the mutable fields of an existing zone.
func (t *Table) ModifyZone(z types.ZoneDescriptor) error {
	if z.Start >= uint64(len(t.zones)) {
		return types.NewConfigError("zone %d does not exist", z.Start)
	}
	cur := &t.zones[z.Start]
	if cur.IsSequential() && z.Type == types.ZoneTypeConventional && t.sequentialCount() <= 1 {
		return types.NewConfigError("zone %d is the last sequential zone", z.Start)
	}
	if z.Length != t.zoneSize {
		return types.NewConfigError("zone size is global; length %d differs from %d", z.Length, t.zoneSize)
	}
	if z.WritePtrOffset > z.Length {
		return types.NewConfigError("write pointer %d beyond zone length %d", z.WritePtrOffset, z.Length)
	}
	if z.WritePtrOffset == z.Length && z.Condition != types.ZoneCondFull {
		return types.NewConfigError("write pointer at zone end requires FULL, got %s", z.Condition)
	}
	if z.Type == types.ZoneTypeSequential && z.Condition == types.ZoneCondFull && z.WritePtrOffset != z.Length {
		return types.NewConfigError("FULL sequential zone needs write pointer at zone end")
	}
	if z.CheckpointOffset >= z.Length {
		return types.NewConfigError("checkpoint offset %d out of range", z.CheckpointOffset)
	}
	if !z.Condition.Settable() {
		return types.NewConfigError("condition %s cannot be set", z.Condition)
	}
	if z.Condition == types.ZoneCondNoWP && z.Type != types.ZoneTypeConventional {
		return types.NewConfigError("NO_WP requires a conventional zone, got %s", z.Type)
	}
	if z.Condition == types.ZoneCondEmpty && z.Type == types.ZoneTypeSequential && z.WritePtrOffset != 0 {
		return types.NewConfigError("EMPTY sequential zone has write pointer %d", z.WritePtrOffset)
	}

	cur.WritePtrOffset = z.WritePtrOffset
	cur.CheckpointOffset = z.CheckpointOffset
	cur.Condition = z.Condition
	cur.Type = z.Type
	cur.Flag = z.Flag
	return nil
}

func (t *Table) sequentialCount() int {
	count := 0
	for i := range t.zones {
		if t.zones[i].IsSequential() {
			count++
		}
	}
	return count
}

// ResetWritePointer rewinds the sequential zone starting at lba.
func (t *Table) ResetWritePointer(lba uint64) error {
	idx := t.ZoneIndex(lba)
	if idx >= uint64(len(t.zones)) {
		return types.NewConfigError("lba %d out of range", lba)
	}
	if lba%uint64(t.zoneSize) != 0 {
		return types.NewConfigError("lba %d is not the start of a zone", lba)
	}
	z := &t.zones[idx]
	if z.IsConventional() {
		return types.NewConfigError("conventional zone %d has no write pointer", idx)
	}
	z.WritePtrOffset = 0
	if z.IsSequential() {
		z.Condition = types.ZoneCondEmpty
	}
	return nil
}

// SetBorderCross applies a border-cross research mode. BorderCrossCurrent
// applies to zone idx only; BorderCrossSequential marks every sequential zone;
// BorderCrossOff clears every zone.
func (t *Table) SetBorderCross(idx uint32, mode types.BorderCrossMode) error {
	switch mode {
	case types.BorderCrossCurrent:
		if idx >= uint32(len(t.zones)) {
			return types.NewConfigError("zone %d out of range", idx)
		}
		t.zones[idx].Flag = uint8(mode)
	case types.BorderCrossOff:
		for i := range t.zones {
			t.zones[i].Flag = uint8(mode)
		}
	case types.BorderCrossSequential:
		for i := range t.zones {
			if t.zones[i].IsSequential() {
				t.zones[i].Flag = uint8(mode)
			}
		}
	default:
		return types.NewConfigError("unknown border cross mode %s", mode)
	}
	return nil
}

// Restore replaces the table contents with a loaded state. The zone size is
// taken from the first zone; an empty directory keeps the current size.
func (t *Table) Restore(cfg types.DeviceConfig, zones []types.ZoneDescriptor) error {
	if len(zones) > 0 {
		size := zones[0].Length
		if err := validZoneSize(size); err != nil {
			return err
		}
		for i := range zones {
			if zones[i].Length != size {
				return types.NewConfigError("zone %d length %d differs from %d", i, zones[i].Length, size)
			}
		}
		t.zoneSize = size
	}
	t.config = cfg
	t.zones = append([]types.ZoneDescriptor(nil), zones...)
	return nil
}

func validZoneSize(size uint32) error {
	if size%types.BlockSectors != 0 || !types.IsPowerOfTwo(uint64(size)) {
		return types.NewConfigError("zone size %d must be a power of two and a multiple of %d sectors", size, types.BlockSectors)
	}
	return nil
}
