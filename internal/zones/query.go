package zones

import "github.com/deploymenttheory/go-smrsim/internal/types"

// Query returns up to max descriptors matching criteria, scanning in ascending
// index order from the zone containing startLBA.
func (t *Table) Query(startLBA uint64, criteria types.QueryCriteria, max uint32) ([]types.ZoneDescriptor, error) {
	if max == 0 {
		return nil, types.NewConfigError("query max must be positive")
	}
	if !criteria.Valid() {
		return nil, types.NewConfigError("unknown query criteria %d", int32(criteria))
	}
	start := t.ZoneIndex(startLBA)
	n := uint64(len(t.zones))
	if start >= n {
		return nil, types.NewConfigError("start lba %d beyond last zone", startLBA)
	}
	if uint64(max) > n-start {
		max = uint32(n - start)
	}

	out := make([]types.ZoneDescriptor, 0, max)
	for i := start; i < n && uint32(len(out)) < max; i++ {
		if matches(&t.zones[i], criteria) {
			out = append(out, t.zones[i])
		}
	}
	return out, nil
}

func matches(z *types.ZoneDescriptor, criteria types.QueryCriteria) bool {
	if minFree, ok := criteria.MinFree(); ok {
		return z.Remaining() >= minFree
	}
	switch criteria {
	case types.MatchAll:
		return true
	case types.MatchFull:
		return z.Condition == types.ZoneCondFull
	case types.MatchPartial:
		return z.Condition == types.ZoneCondClosed && z.WritePtrOffset != 0
	case types.MatchFree:
		return z.Condition == types.ZoneCondEmpty
	case types.MatchReadOnly:
		return z.Condition == types.ZoneCondReadOnly
	case types.MatchOffline:
		return z.Condition == types.ZoneCondOffline
	case types.MatchWPNotCheckpoint:
		return z.WritePtrOffset != z.CheckpointOffset
	}
	return false
}
