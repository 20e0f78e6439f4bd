package types

// Persisted State
// The persisted state is one contiguous region laid out as
//
//	StateHeader | DeviceConfig | IdleStats | NumZones | ZoneStats[n] | ZoneDescriptor[n] | magic
//
// All integers are little-endian.

// StateMagic identifies a valid persisted state, both at offset 0 and as the trailing sentinel.
const StateMagic uint32 = 0xBEEFBEEF

// StateVersion encodes major/minor/patch as (a<<16 | b<<8 | c).
const StateVersion uint32 = 1<<16 | 0<<8 | 0

// StateHeader prefixes the persisted state.
// Encoded size: 16 bytes.
type StateHeader struct {
	// Magic is always StateMagic.
	Magic uint32
	// Length is the total encoded size of the state, header and trailer included.
	Length uint32
	// Version is the layout version.
	Version uint32
	// CRC32 covers every byte after the header, up to Length.
	CRC32 uint32
}

const (
	// StateHeaderSize is the encoded size of StateHeader.
	StateHeaderSize = 16

	// StateTrailerSize is the size of the trailing magic sentinel.
	StateTrailerSize = 4

	// ZoneStatsOffset is the offset of the first ZoneStats slot:
	// header + config + idle stats + zone count.
	ZoneStatsOffset = StateHeaderSize + DeviceConfigSize + IdleStatsSize + 4
)

// StateSize returns the encoded size of a state holding numZones zones.
func StateSize(numZones uint32) uint32 {
	return ZoneStatsOffset +
		numZones*ZoneStatsSize +
		numZones*ZoneDescriptorSize +
		StateTrailerSize
}

// ZoneStatsSlot returns the byte offset of zone idx's stats slot.
func ZoneStatsSlot(idx uint32) uint32 {
	return ZoneStatsOffset + idx*ZoneStatsSize
}

// ZoneDescriptorSlot returns the byte offset of zone idx's descriptor slot in a
// state holding numZones zones.
func ZoneDescriptorSlot(numZones, idx uint32) uint32 {
	return ZoneStatsOffset + numZones*ZoneStatsSize + idx*ZoneDescriptorSize
}
