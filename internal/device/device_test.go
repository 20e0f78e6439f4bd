package device

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/deploymenttheory/go-smrsim/internal/interfaces"
	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ interfaces.BlockDevice = (*FileDevice)(nil)
	_ interfaces.BlockDevice = (*MemoryDevice)(nil)
)

func TestStateOffset(t *testing.T) {
	tests := []struct {
		capacity uint64
		want     int64
	}{
		{3072, 3072 * 512},
		{1, 4096},
		{9, 8192},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StateOffset(tt.capacity), "capacity %d", tt.capacity)
	}
	assert.Equal(t, int64(3072*512+4096), ImageSize(3072, 3))
}

func TestFileDevice_CreateReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smr.img")

	dev, err := OpenFile(path, FileConfig{Create: true, Capacity: 2048, CachePages: 4})
	require.NoError(t, err)
	defer dev.Close()
	assert.Equal(t, ImageSize(2048, 0), dev.Size())

	page := bytes.Repeat([]byte{0xAB}, types.PageSize)
	require.NoError(t, dev.WriteBlock(types.PageSize, page))

	got, err := dev.ReadBlock(types.PageSize, types.PageSize)
	require.NoError(t, err)
	assert.Equal(t, page, got)

	// Second read is served from the cache.
	_, err = dev.ReadBlock(types.PageSize, types.PageSize)
	require.NoError(t, err)
	stats := dev.GetStats()
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Equal(t, float64(50), stats.CacheHitRate())

	// A write invalidates the cached page.
	page[0] = 0x01
	require.NoError(t, dev.WriteBlock(types.PageSize, page[:512]))
	got, err = dev.ReadBlock(types.PageSize, types.PageSize)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), got[0])
	assert.Equal(t, byte(0xAB), got[1])

	require.NoError(t, dev.Sync())
}

func TestFileDevice_GrowsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smr.img")
	dev, err := OpenFile(path, FileConfig{Create: true, Capacity: 8})
	require.NoError(t, err)
	defer dev.Close()

	size := dev.Size()
	require.NoError(t, dev.WriteBlock(size, make([]byte, types.PageSize)))
	assert.Equal(t, size+types.PageSize, dev.Size())

	_, err = dev.ReadBlock(dev.Size(), 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestFileDevice_OpenMissing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.img"), FileConfig{})
	assert.Error(t, err)
}

func TestMemoryDevice(t *testing.T) {
	dev := NewMemory(8192)

	require.NoError(t, dev.WriteBlock(10, []byte{1, 2, 3}))
	got, err := dev.ReadBlock(10, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	got[0] = 9
	again, _ := dev.ReadBlock(10, 1)
	assert.Equal(t, byte(1), again[0], "reads return copies")

	dev.Corrupt(10)
	again, _ = dev.ReadBlock(10, 1)
	assert.Equal(t, byte(0xFE), again[0])

	assert.ErrorIs(t, dev.WriteBlock(8190, []byte{1, 2, 3}), ErrOutOfBounds)
	_, err = dev.ReadBlock(-1, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	stats := dev.GetStats()
	assert.Equal(t, int64(1), stats.BlocksWritten)
}
