// File: internal/interfaces/block_device.go
package interfaces

import "io"

// BlockReader reads byte ranges from a backing store
type BlockReader interface {
	// ReadBlock reads length bytes starting at the byte offset
	ReadBlock(offset int64, length int) ([]byte, error)
}

// BlockWriter writes byte ranges to a backing store
type BlockWriter interface {
	// WriteBlock writes data starting at the byte offset
	WriteBlock(offset int64, data []byte) error
}

// BlockDevice is the backing store beneath the emulated zoned device
type BlockDevice interface {
	BlockReader
	BlockWriter

	// Size returns the size of the backing store in bytes
	Size() int64

	// Sync commits written data to stable storage
	Sync() error

	io.Closer
}
