package types

// Statistics
// Violation counters are kept per zone; idle time is kept for the whole device.

// ReadViolationStats counts read policy violations for a zone.
type ReadViolationStats struct {
	// BeyondWPCount counts reads past the write pointer of a sequential zone.
	BeyondWPCount uint32 `json:"beyond_swp_count" yaml:"beyond_swp_count"`
	// SpanZonesCount counts reads that crossed the zone end.
	SpanZonesCount uint32 `json:"span_zones_count" yaml:"span_zones_count"`
}

// WriteViolationStats counts write policy violations for a zone.
type WriteViolationStats struct {
	// NotOnWPCount counts writes to a sequential zone that did not start at the write pointer.
	NotOnWPCount uint32 `json:"not_on_swp_count" yaml:"not_on_swp_count"`
	// SpanZonesCount counts writes that crossed the zone end.
	SpanZonesCount uint32 `json:"span_zones_count" yaml:"span_zones_count"`
	// UnalignedCount counts writes to a sequential zone that were not 4 KiB multiples.
	UnalignedCount uint32 `json:"unaligned_count" yaml:"unaligned_count"`
}

// ZoneStats holds the violation counters of one zone.
// Encoded size: 20 bytes.
type ZoneStats struct {
	Read  ReadViolationStats  `json:"read" yaml:"read"`
	Write WriteViolationStats `json:"write" yaml:"write"`
}

// ZoneStatsSize is the encoded size of a ZoneStats in bytes.
const ZoneStatsSize = 20

// IdleStats tracks the longest and shortest gap between consecutive I/Os.
// Encoded size: 8 bytes.
type IdleStats struct {
	IdleTimeMax uint32 `json:"idle_time_max" yaml:"idle_time_max"`
	IdleTimeMin uint32 `json:"idle_time_min" yaml:"idle_time_min"`
}

// IdleStatsSize is the encoded size of IdleStats in bytes.
const IdleStatsSize = 8

// Stats is the full statistics block: device stats, the zone count, and one
// ZoneStats per zone.
type Stats struct {
	Device   IdleStats   `json:"device" yaml:"device"`
	NumZones uint32      `json:"num_zones" yaml:"num_zones"`
	Zones    []ZoneStats `json:"zones" yaml:"zones"`
}

// Clone returns a deep copy of the statistics.
func (s *Stats) Clone() *Stats {
	out := &Stats{Device: s.Device, NumZones: s.NumZones}
	out.Zones = append([]ZoneStats(nil), s.Zones...)
	return out
}
