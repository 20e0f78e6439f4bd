// Package persistence serializes the emulator state to its on-disk layout and
// decides which pages of that layout need rewriting.
package persistence

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// State is the in-memory form of the persisted state.
type State struct {
	Config types.DeviceConfig
	Idle   types.IdleStats
	Stats  []types.ZoneStats
	Zones  []types.ZoneDescriptor
}

// NumZones returns the zone count recorded by the state.
func (s *State) NumZones() uint32 {
	return uint32(len(s.Zones))
}

// Encode lays out s, seals the header checksum, and pads the result to a whole
// number of pages. Stats and Zones must have the same length.
func Encode(s *State) ([]byte, error) {
	n := s.NumZones()
	if uint32(len(s.Stats)) != n {
		return nil, fmt.Errorf("encode: %d stats slots for %d zones", len(s.Stats), n)
	}
	length := types.StateSize(n)
	buf := make([]byte, types.AlignUp(int64(length), types.PageSize))

	le := binary.LittleEndian
	le.PutUint32(buf[0:4], types.StateMagic)
	le.PutUint32(buf[4:8], length)
	le.PutUint32(buf[8:12], types.StateVersion)

	off := types.StateHeaderSize
	le.PutUint32(buf[off:], s.Config.OutOfPolicyRead)
	le.PutUint32(buf[off+4:], s.Config.OutOfPolicyWrite)
	le.PutUint16(buf[off+8:], s.Config.ReadPenaltyMillis)
	le.PutUint16(buf[off+10:], s.Config.WritePenaltyMillis)
	off += types.DeviceConfigSize

	le.PutUint32(buf[off:], s.Idle.IdleTimeMax)
	le.PutUint32(buf[off+4:], s.Idle.IdleTimeMin)
	off += types.IdleStatsSize
	le.PutUint32(buf[off:], n)

	for i := range s.Stats {
		putZoneStats(buf[types.ZoneStatsSlot(uint32(i)):], &s.Stats[i])
	}
	for i := range s.Zones {
		putZoneDescriptor(buf[types.ZoneDescriptorSlot(n, uint32(i)):], &s.Zones[i])
	}
	le.PutUint32(buf[length-types.StateTrailerSize:], types.StateMagic)

	le.PutUint32(buf[12:16], Checksum(buf[:length]))
	return buf, nil
}

// Checksum returns the CRC-32 of everything after the header.
func Checksum(state []byte) uint32 {
	return crc32.ChecksumIEEE(state[types.StateHeaderSize:])
}

// ParseHeader decodes and sanity-checks the header at the start of buf.
func ParseHeader(buf []byte) (types.StateHeader, error) {
	var h types.StateHeader
	if len(buf) < types.StateHeaderSize {
		return h, fmt.Errorf("header needs %d bytes, have %d: %w", types.StateHeaderSize, len(buf), types.ErrBadLength)
	}
	le := binary.LittleEndian
	h.Magic = le.Uint32(buf[0:4])
	h.Length = le.Uint32(buf[4:8])
	h.Version = le.Uint32(buf[8:12])
	h.CRC32 = le.Uint32(buf[12:16])

	if h.Magic != types.StateMagic {
		return h, fmt.Errorf("magic 0x%08x: %w", h.Magic, types.ErrBadMagic)
	}
	if h.Length < types.StateSize(0) {
		return h, fmt.Errorf("length %d below minimum %d: %w", h.Length, types.StateSize(0), types.ErrBadLength)
	}
	return h, nil
}

// Decode validates and decodes a persisted state.
func Decode(buf []byte) (*State, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	if int64(h.Length) > int64(len(buf)) {
		return nil, fmt.Errorf("length %d exceeds %d bytes read: %w", h.Length, len(buf), types.ErrBadLength)
	}
	state := buf[:h.Length]
	if crc := Checksum(state); crc != h.CRC32 {
		return nil, fmt.Errorf("computed 0x%08x, stored 0x%08x: %w", crc, h.CRC32, types.ErrCRCMismatch)
	}

	le := binary.LittleEndian
	s := &State{}
	off := types.StateHeaderSize
	s.Config.OutOfPolicyRead = le.Uint32(state[off:])
	s.Config.OutOfPolicyWrite = le.Uint32(state[off+4:])
	s.Config.ReadPenaltyMillis = le.Uint16(state[off+8:])
	s.Config.WritePenaltyMillis = le.Uint16(state[off+10:])
	off += types.DeviceConfigSize

	s.Idle.IdleTimeMax = le.Uint32(state[off:])
	s.Idle.IdleTimeMin = le.Uint32(state[off+4:])
	off += types.IdleStatsSize
	n := le.Uint32(state[off:])

	if uint64(types.ZoneStatsSize+types.ZoneDescriptorSize)*uint64(n) > uint64(h.Length) || types.StateSize(n) != h.Length {
		return nil, fmt.Errorf("%d zones do not fit length %d: %w", n, h.Length, types.ErrBadLength)
	}
	if m := le.Uint32(state[h.Length-types.StateTrailerSize:]); m != types.StateMagic {
		return nil, fmt.Errorf("trailer 0x%08x: %w", m, types.ErrBadMagic)
	}

	s.Stats = make([]types.ZoneStats, n)
	s.Zones = make([]types.ZoneDescriptor, n)
	for i := uint32(0); i < n; i++ {
		s.Stats[i] = zoneStatsAt(state[types.ZoneStatsSlot(i):])
		s.Zones[i] = zoneDescriptorAt(state[types.ZoneDescriptorSlot(n, i):])
	}
	return s, nil
}

func putZoneStats(b []byte, z *types.ZoneStats) {
	le := binary.LittleEndian
	le.PutUint32(b[0:], z.Read.BeyondWPCount)
	le.PutUint32(b[4:], z.Read.SpanZonesCount)
	le.PutUint32(b[8:], z.Write.NotOnWPCount)
	le.PutUint32(b[12:], z.Write.SpanZonesCount)
	le.PutUint32(b[16:], z.Write.UnalignedCount)
}

func zoneStatsAt(b []byte) types.ZoneStats {
	le := binary.LittleEndian
	var z types.ZoneStats
	z.Read.BeyondWPCount = le.Uint32(b[0:])
	z.Read.SpanZonesCount = le.Uint32(b[4:])
	z.Write.NotOnWPCount = le.Uint32(b[8:])
	z.Write.SpanZonesCount = le.Uint32(b[12:])
	z.Write.UnalignedCount = le.Uint32(b[16:])
	return z
}

func putZoneDescriptor(b []byte, z *types.ZoneDescriptor) {
	le := binary.LittleEndian
	le.PutUint64(b[0:], z.Start)
	le.PutUint32(b[8:], z.Length)
	le.PutUint32(b[12:], z.WritePtrOffset)
	le.PutUint32(b[16:], z.CheckpointOffset)
	le.PutUint16(b[20:], uint16(z.Condition))
	b[22] = uint8(z.Type)
	b[23] = z.Flag
}

func zoneDescriptorAt(b []byte) types.ZoneDescriptor {
	le := binary.LittleEndian
	return types.ZoneDescriptor{
		Start:            le.Uint64(b[0:]),
		Length:           le.Uint32(b[8:]),
		WritePtrOffset:   le.Uint32(b[12:]),
		CheckpointOffset: le.Uint32(b[16:]),
		Condition:        types.ZoneCondition(le.Uint16(b[20:])),
		Type:             types.ZoneType(b[22]),
		Flag:             b[23],
	}
}
