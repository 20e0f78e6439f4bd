package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Zone Descriptors
// A zone is a fixed-size range of the device's LBA space with its own write pointer
// and lifecycle condition.

// ZoneCondition is the lifecycle state of a zone. Values match the ZBC zone condition codes.
type ZoneCondition uint16

const (
	// ZoneCondNoWP marks a conventional zone, which has no write pointer.
	ZoneCondNoWP ZoneCondition = 0x00
	// ZoneCondEmpty marks a sequential zone whose write pointer is at the zone start.
	ZoneCondEmpty ZoneCondition = 0x01
	// ZoneCondImpOpen marks an implicitly opened zone.
	ZoneCondImpOpen ZoneCondition = 0x02
	// ZoneCondExpOpen marks an explicitly opened zone.
	ZoneCondExpOpen ZoneCondition = 0x03
	// ZoneCondClosed marks a partially written zone.
	ZoneCondClosed ZoneCondition = 0x04
	// ZoneCondReadOnly marks a zone that rejects writes.
	ZoneCondReadOnly ZoneCondition = 0x0D
	// ZoneCondFull marks a zone whose write pointer reached the zone end.
	ZoneCondFull ZoneCondition = 0x0E
	// ZoneCondOffline marks a zone that rejects all I/O.
	ZoneCondOffline ZoneCondition = 0x0F
)

// String returns the condition name.
func (c ZoneCondition) String() string {
	switch c {
	case ZoneCondNoWP:
		return "NO_WP"
	case ZoneCondEmpty:
		return "EMPTY"
	case ZoneCondImpOpen:
		return "IMP_OPEN"
	case ZoneCondExpOpen:
		return "EXP_OPEN"
	case ZoneCondClosed:
		return "CLOSED"
	case ZoneCondReadOnly:
		return "RO"
	case ZoneCondFull:
		return "FULL"
	case ZoneCondOffline:
		return "OFFLINE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%x)", uint16(c))
	}
}

// ParseZoneCondition accepts a condition name such as "CLOSED", in any case,
// or its numeric code.
func ParseZoneCondition(s string) (ZoneCondition, error) {
	for c := ZoneCondNoWP; c <= ZoneCondOffline; c++ {
		if known(c) && strings.EqualFold(c.String(), s) {
			return c, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil || !known(ZoneCondition(n)) {
		return 0, fmt.Errorf("unknown zone condition %q", s)
	}
	return ZoneCondition(n), nil
}

func known(c ZoneCondition) bool {
	return !strings.HasPrefix(c.String(), "UNKNOWN")
}

// Settable reports whether the condition may be assigned through zone configuration.
// The open conditions are never reachable in the emulator.
func (c ZoneCondition) Settable() bool {
	switch c {
	case ZoneCondNoWP, ZoneCondEmpty, ZoneCondClosed, ZoneCondReadOnly, ZoneCondFull, ZoneCondOffline:
		return true
	default:
		return false
	}
}

// ZoneType classifies a zone's write discipline.
type ZoneType uint8

const (
	// ZoneTypeReserved is not used by the emulator.
	ZoneTypeReserved ZoneType = 0x00
	// ZoneTypeConventional zones accept writes anywhere.
	ZoneTypeConventional ZoneType = 0x01
	// ZoneTypeSequential zones must be written at the write pointer.
	ZoneTypeSequential ZoneType = 0x02
	// ZoneTypePreferred zones are sequential-write-preferred.
	ZoneTypePreferred ZoneType = 0x03
)

// String returns the type name.
func (t ZoneType) String() string {
	switch t {
	case ZoneTypeReserved:
		return "RESERVED"
	case ZoneTypeConventional:
		return "CONVENTIONAL"
	case ZoneTypeSequential:
		return "SEQUENTIAL"
	case ZoneTypePreferred:
		return "PREFERRED"
	default:
		return fmt.Sprintf("UNKNOWN(0x%x)", uint8(t))
	}
}

// ParseZoneType accepts a type name such as "sequential", in any case, or its
// numeric code.
func ParseZoneType(s string) (ZoneType, error) {
	for t := ZoneTypeReserved; t <= ZoneTypePreferred; t++ {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil || n > uint64(ZoneTypePreferred) {
		return 0, fmt.Errorf("unknown zone type %q", s)
	}
	return ZoneType(n), nil
}

// BorderCrossMode is the research flag stored in a zone descriptor's Flag field.
type BorderCrossMode uint8

const (
	// BorderCrossOff clears border crossing for every zone.
	BorderCrossOff BorderCrossMode = 0x00
	// BorderCrossSequential enables border crossing on all sequential zones.
	BorderCrossSequential BorderCrossMode = 0x02
	// BorderCrossCurrent enables border crossing on a single zone.
	BorderCrossCurrent BorderCrossMode = 0x04
)

// ParseBorderCrossMode accepts off, sequential or current.
func ParseBorderCrossMode(s string) (BorderCrossMode, error) {
	for _, m := range []BorderCrossMode{BorderCrossOff, BorderCrossSequential, BorderCrossCurrent} {
		if strings.EqualFold(m.String(), s) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown border-cross mode %q", s)
}

// String returns the mode name.
func (m BorderCrossMode) String() string {
	switch m {
	case BorderCrossOff:
		return "off"
	case BorderCrossSequential:
		return "sequential"
	case BorderCrossCurrent:
		return "current"
	default:
		return fmt.Sprintf("unknown(0x%x)", uint8(m))
	}
}

// ZoneDescriptor describes one zone of the device.
// Encoded size: 24 bytes.
type ZoneDescriptor struct {
	// Start is the zone index within the device.
	Start uint64 `json:"start" yaml:"start"`

	// Length is the zone size in sectors. It always equals the configured zone size.
	Length uint32 `json:"length" yaml:"length"`

	// WritePtrOffset is the write pointer relative to the zone start, in sectors.
	// Invariant: WritePtrOffset <= Length.
	WritePtrOffset uint32 `json:"write_ptr_offset" yaml:"write_ptr_offset"`

	// CheckpointOffset is reserved for checkpoint tracking, in sectors.
	CheckpointOffset uint32 `json:"checkpoint_offset" yaml:"checkpoint_offset"`

	// Condition is the zone's lifecycle state.
	Condition ZoneCondition `json:"condition" yaml:"condition"`

	// Type is the zone's write discipline.
	Type ZoneType `json:"type" yaml:"type"`

	// Flag holds research-mode bits (see BorderCrossMode).
	Flag uint8 `json:"flag" yaml:"flag"`
}

// ZoneDescriptorSize is the encoded size of a ZoneDescriptor in bytes.
const ZoneDescriptorSize = 24

// IsSequential reports whether the zone enforces sequential writes.
func (z *ZoneDescriptor) IsSequential() bool {
	return z.Type == ZoneTypeSequential
}

// IsConventional reports whether the zone accepts writes anywhere.
func (z *ZoneDescriptor) IsConventional() bool {
	return z.Type == ZoneTypeConventional
}

// Remaining returns the number of unwritten sectors.
func (z *ZoneDescriptor) Remaining() uint32 {
	return z.Length - z.WritePtrOffset
}
