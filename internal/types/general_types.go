// Package types implements the data structures shared by the SMR zoned device emulator.
// Every structure with an on-disk form documents its encoded size; the persistence
// package is the only place that turns these values into bytes.
package types

// General-Purpose Types
// Units and geometry used throughout the emulator. All addresses handed to the
// emulator are logical block addresses measured in 512-byte sectors.

const (
	// SectorShift is log2 of the sector size in bytes.
	SectorShift = 9

	// SectorSize is the size of one addressable sector in bytes.
	SectorSize = 1 << SectorShift

	// BlockSectorsShift is log2 of the number of sectors in one logical block.
	BlockSectorsShift = 3

	// BlockSectors is the number of sectors in one 4 KiB logical block.
	// Zone sizes must be a multiple of this value.
	BlockSectors = 1 << BlockSectorsShift

	// PageSize is the unit in which the persisted state is read and written.
	PageSize = 4096

	// PageSectors is the number of sectors covered by one persistence page.
	PageSectors = PageSize / SectorSize

	// WriteAlignment is the byte granularity required of writes into sequential zones.
	WriteAlignment = 4096

	// DefaultZoneSizeShift is log2 of the number of blocks in a default zone (256 MiB).
	DefaultZoneSizeShift = 16

	// DefaultZoneSectors is the default zone size in sectors.
	DefaultZoneSectors = 1 << BlockSectorsShift << DefaultZoneSizeShift

	// MaxCapacitySectors bounds the emulated device capacity (10 TiB).
	MaxCapacitySectors uint64 = 21474836480

	// MaxRequestZones is the maximum number of zones a single request may touch.
	MaxRequestZones = 2
)

// LBA represents a logical block address in sectors.
type LBA uint64

// Bytes returns the byte offset of the address.
func (l LBA) Bytes() int64 {
	return int64(l) << SectorShift
}

// SectorsToBytes converts a sector count to a byte count.
func SectorsToBytes(sectors uint64) int64 {
	return int64(sectors) << SectorShift
}

// BytesToSectors converts a byte count to whole sectors, discarding any remainder.
func BytesToSectors(n int) uint64 {
	return uint64(n) >> SectorShift
}

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// Log2 returns the index of the highest set bit of v.
func Log2(v uint64) uint32 {
	var idx uint32
	for v >>= 1; v != 0; v >>= 1 {
		idx++
	}
	return idx
}

// AlignUp rounds n up to the next multiple of align, which must be a power of two.
func AlignUp(n, align int64) int64 {
	return (n + align - 1) &^ (align - 1)
}
