package zones

import (
	"testing"

	"github.com/deploymenttheory/go-smrsim/internal/stats"
	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startsOf(zs []types.ZoneDescriptor) []uint64 {
	out := make([]uint64, 0, len(zs))
	for _, z := range zs {
		out = append(out, z.Start)
	}
	return out
}

func TestQuery_FreeBeforeAndAfterWrite(t *testing.T) {
	tbl := newThreeZoneTable(t)

	got, err := tbl.Query(0, types.MatchFree, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, startsOf(got))

	z := tbl.Zone(1)
	z.WritePtrOffset = 512
	z.Condition = types.ZoneCondClosed

	got, err = tbl.Query(0, types.MatchFree, 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuery_Criteria(t *testing.T) {
	tbl, err := NewTable(8*1024, 1024, stats.NewAggregator(&fixedClock{}, 0))
	require.NoError(t, err)
	// 0 CONV | 1 EMPTY | 2 CLOSED@100 | 3 FULL | 4 RO | 5 OFFLINE | 6 CLOSED@1000 ckpt | 7 CONV
	tbl.Zone(2).WritePtrOffset, tbl.Zone(2).Condition = 100, types.ZoneCondClosed
	tbl.Zone(3).WritePtrOffset, tbl.Zone(3).Condition = 1024, types.ZoneCondFull
	tbl.Zone(4).Condition = types.ZoneCondReadOnly
	tbl.Zone(5).Condition = types.ZoneCondOffline
	tbl.Zone(6).WritePtrOffset, tbl.Zone(6).Condition = 1000, types.ZoneCondClosed
	tbl.Zone(6).CheckpointOffset = 1000

	tests := []struct {
		name     string
		lba      uint64
		criteria types.QueryCriteria
		max      uint32
		want     []uint64
	}{
		{"all", 0, types.MatchAll, 100, []uint64{0, 1, 2, 3, 4, 5, 6, 7}},
		{"all from zone 5", 5 * 1024, types.MatchAll, 100, []uint64{5, 6, 7}},
		{"all capped", 1500, types.MatchAll, 2, []uint64{1, 2}},
		{"full", 0, types.MatchFull, 8, []uint64{3}},
		{"partial", 0, types.MatchPartial, 8, []uint64{2, 6}},
		{"free", 0, types.MatchFree, 8, []uint64{1}},
		{"read only", 0, types.MatchReadOnly, 8, []uint64{4}},
		{"offline", 0, types.MatchOffline, 8, []uint64{5}},
		{"wp differs from checkpoint", 0, types.MatchWPNotCheckpoint, 8, []uint64{2, 3}},
		{"at least 924 free", 0, types.QueryCriteria(924), 8, []uint64{0, 1, 2, 4, 5, 7}},
		{"at least 1024 free", 0, types.QueryCriteria(1024), 8, []uint64{0, 1, 4, 5, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tbl.Query(tt.lba, tt.criteria, tt.max)
			require.NoError(t, err)
			assert.Equal(t, tt.want, startsOf(got))
		})
	}
}

func TestQuery_Errors(t *testing.T) {
	tbl := newThreeZoneTable(t)

	_, err := tbl.Query(0, types.MatchAll, 0)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = tbl.Query(3*1024, types.MatchAll, 1)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = tbl.Query(0, types.QueryCriteria(-42), 1)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
