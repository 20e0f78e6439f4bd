package device

import (
	"fmt"
	"sync"
)

// MemoryDevice is a fixed-size backing store held in memory
type MemoryDevice struct {
	mu    sync.RWMutex
	data  []byte
	stats *counters
}

// NewMemory returns a zero-filled MemoryDevice of size bytes
func NewMemory(size int64) *MemoryDevice {
	return &MemoryDevice{data: make([]byte, size), stats: &counters{}}
}

// ReadBlock returns a copy of length bytes at offset
func (m *MemoryDevice) ReadBlock(offset int64, length int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if offset < 0 || length < 0 || offset+int64(length) > int64(len(m.data)) {
		return nil, fmt.Errorf("read %d bytes at %d beyond device size %d: %w", length, offset, len(m.data), ErrOutOfBounds)
	}
	m.stats.recordRead(length)
	return append([]byte(nil), m.data[offset:offset+int64(length)]...), nil
}

// WriteBlock copies data to offset
func (m *MemoryDevice) WriteBlock(offset int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset < 0 || offset+int64(len(data)) > int64(len(m.data)) {
		return fmt.Errorf("write %d bytes at %d beyond device size %d: %w", len(data), offset, len(m.data), ErrOutOfBounds)
	}
	copy(m.data[offset:], data)
	m.stats.recordWrite(len(data))
	return nil
}

// Size returns the size of the store in bytes
func (m *MemoryDevice) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data))
}

// Sync is a no-op
func (m *MemoryDevice) Sync() error { return nil }

// Close is a no-op
func (m *MemoryDevice) Close() error { return nil }

// GetStats returns a copy of the current access statistics
func (m *MemoryDevice) GetStats() Statistics {
	return m.stats.snapshot()
}

// Corrupt flips the bits of one byte. It exists to exercise integrity checks.
func (m *MemoryDevice) Corrupt(offset int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[offset] ^= 0xFF
}
