package device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// FileDevice is a backing store kept in a regular file or a raw block device node
type FileDevice struct {
	path     string
	file     *os.File
	size     atomic.Int64
	growable bool

	pageCache        map[int64][]byte
	cacheMutex       sync.RWMutex
	maxCacheSize     int64
	currentCacheSize int64
	cacheGen         uint64
	stats            *counters
}

// FileConfig holds options for opening a FileDevice
type FileConfig struct {
	// Create makes the file when it does not exist, sized to hold Capacity
	// sectors plus the persisted state.
	Create bool
	// Capacity is the emulated capacity in sectors, used with Create
	Capacity uint64
	// CachePages bounds the read cache, in 4 KiB pages; zero disables it
	CachePages int
	// ReadOnly opens the file without write access
	ReadOnly bool
}

// ImageSize returns the backing size needed for capacity sectors plus the
// persisted state of numZones zones.
func ImageSize(capacity uint64, numZones uint32) int64 {
	state := types.AlignUp(int64(types.StateSize(numZones)), types.PageSize)
	return StateOffset(capacity) + state
}

// StateOffset returns the byte offset at which the persisted state lives:
// immediately past the emulated capacity, page aligned.
func StateOffset(capacity uint64) int64 {
	return types.AlignUp(types.SectorsToBytes(capacity), types.PageSize)
}

// OpenFile opens the backing file at path
func OpenFile(path string, config FileConfig) (*FileDevice, error) {
	flags := os.O_RDWR
	if config.ReadOnly {
		flags = os.O_RDONLY
	}
	if config.Create && !config.ReadOnly {
		flags |= os.O_CREATE
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open backing file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat backing file: %w", err)
	}

	size := stat.Size()
	regular := stat.Mode().IsRegular()
	if config.Create && regular {
		want := ImageSize(config.Capacity, uint32(config.Capacity/types.DefaultZoneSectors))
		if size < want {
			if err := file.Truncate(want); err != nil {
				file.Close()
				return nil, fmt.Errorf("failed to size backing file: %w", err)
			}
			size = want
		}
	}

	device := &FileDevice{
		path:         path,
		file:         file,
		growable:     regular && !config.ReadOnly,
		pageCache:    make(map[int64][]byte),
		maxCacheSize: int64(config.CachePages) * types.PageSize,
		stats:        &counters{},
	}
	device.size.Store(size)
	return device, nil
}

// ReadBlock reads length bytes at offset. Reads that are exactly one aligned
// page go through the page cache.
func (d *FileDevice) ReadBlock(offset int64, length int) ([]byte, error) {
	if size := d.size.Load(); offset < 0 || offset+int64(length) > size {
		return nil, fmt.Errorf("read %d bytes at %d beyond device size %d: %w", length, offset, size, ErrOutOfBounds)
	}

	cacheable := d.maxCacheSize > 0 && length == types.PageSize && offset%types.PageSize == 0
	var gen uint64
	if cacheable {
		d.cacheMutex.RLock()
		cached, ok := d.pageCache[offset]
		gen = d.cacheGen
		d.cacheMutex.RUnlock()
		if ok {
			d.stats.recordCacheHit()
			return append([]byte(nil), cached...), nil
		}
		d.stats.recordCacheMiss()
	}

	buf := make([]byte, length)
	n, err := d.file.ReadAt(buf, offset)
	if err != nil && !(errors.Is(err, io.EOF) && n == length) {
		return nil, fmt.Errorf("failed to read %d bytes at %d: %w", length, offset, err)
	}
	d.stats.recordRead(n)

	if cacheable {
		d.cacheMutex.Lock()
		// A write since the read started may have made buf stale.
		if gen == d.cacheGen && d.currentCacheSize+int64(n) <= d.maxCacheSize {
			if _, ok := d.pageCache[offset]; !ok {
				d.pageCache[offset] = append([]byte(nil), buf...)
				d.currentCacheSize += int64(n)
			}
		}
		d.cacheMutex.Unlock()
	}
	return buf, nil
}

// WriteBlock writes data at offset and invalidates overlapping cached pages.
// A regular file grows to fit writes past its end; a device node does not.
func (d *FileDevice) WriteBlock(offset int64, data []byte) error {
	end := offset + int64(len(data))
	if size := d.size.Load(); offset < 0 || (end > size && !d.growable) {
		return fmt.Errorf("write %d bytes at %d beyond device size %d: %w", len(data), offset, size, ErrOutOfBounds)
	}
	n, err := d.file.WriteAt(data, offset)
	if err != nil {
		return fmt.Errorf("failed to write %d bytes at %d: %w", len(data), offset, err)
	}
	for {
		size := d.size.Load()
		if end <= size || d.size.CompareAndSwap(size, end) {
			break
		}
	}
	d.stats.recordWrite(n)
	d.invalidate(offset, int64(len(data)))
	return nil
}

func (d *FileDevice) invalidate(offset, length int64) {
	d.cacheMutex.Lock()
	defer d.cacheMutex.Unlock()
	d.cacheGen++
	if len(d.pageCache) == 0 {
		return
	}
	first := offset &^ (types.PageSize - 1)
	for page := first; page < offset+length; page += types.PageSize {
		if cached, ok := d.pageCache[page]; ok {
			d.currentCacheSize -= int64(len(cached))
			delete(d.pageCache, page)
		}
	}
}

// Size returns the size of the backing store in bytes
func (d *FileDevice) Size() int64 {
	return d.size.Load()
}

// Path returns the path the device was opened from
func (d *FileDevice) Path() string {
	return d.path
}

// Sync flushes written data to stable storage
func (d *FileDevice) Sync() error {
	if err := d.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync backing file: %w", err)
	}
	return nil
}

// Close closes the backing file
func (d *FileDevice) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// GetStats returns a copy of the current access statistics
func (d *FileDevice) GetStats() Statistics {
	return d.stats.snapshot()
}

// ClearCache drops every cached page
func (d *FileDevice) ClearCache() {
	d.cacheMutex.Lock()
	defer d.cacheMutex.Unlock()
	d.pageCache = make(map[int64][]byte)
	d.currentCacheSize = 0
}
