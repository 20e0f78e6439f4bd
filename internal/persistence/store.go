package persistence

import (
	"fmt"

	"github.com/deploymenttheory/go-smrsim/internal/interfaces"
	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// Store reads and writes the persisted state at a fixed offset of a backing
// device.
type Store struct {
	dev    interfaces.BlockDevice
	offset int64
}

// NewStore returns a store for the state at byte offset of dev.
func NewStore(dev interfaces.BlockDevice, offset int64) *Store {
	return &Store{dev: dev, offset: offset}
}

// Offset returns the byte offset of the state.
func (s *Store) Offset() int64 {
	return s.offset
}

// Load reads the first page, validates the header, reads the remaining pages,
// and decodes the state. Every failure is a *types.PersistenceError.
func (s *Store) Load() (*State, error) {
	first, err := s.dev.ReadBlock(s.offset, types.PageSize)
	if err != nil {
		return nil, &types.PersistenceError{Op: "read header page", Err: err}
	}
	h, err := ParseHeader(first)
	if err != nil {
		return nil, &types.PersistenceError{Op: "parse header", Err: err}
	}

	size := types.AlignUp(int64(h.Length), types.PageSize)
	if avail := s.dev.Size() - s.offset; size > avail {
		return nil, &types.PersistenceError{
			Op:  "size state",
			Err: fmt.Errorf("length %d exceeds %d available bytes: %w", h.Length, avail, types.ErrBadLength),
		}
	}

	buf := first
	if size > types.PageSize {
		rest, err := s.dev.ReadBlock(s.offset+types.PageSize, int(size-types.PageSize))
		if err != nil {
			return nil, &types.PersistenceError{Op: "read state pages", Err: err}
		}
		buf = append(buf, rest...)
	}

	state, err := Decode(buf)
	if err != nil {
		return nil, &types.PersistenceError{Op: "decode", Err: err}
	}
	return state, nil
}

// WriteFull writes every page of an encoded image.
func (s *Store) WriteFull(image []byte) error {
	if err := s.dev.WriteBlock(s.offset, image); err != nil {
		return &types.PersistenceError{Op: "write state", Err: err}
	}
	return nil
}

// WritePages writes the listed pages of an encoded image, one page per write.
func (s *Store) WritePages(image []byte, pages []uint32) error {
	for _, p := range pages {
		off := int64(p) * types.PageSize
		if off+types.PageSize > int64(len(image)) {
			return &types.PersistenceError{Op: "write page", Err: fmt.Errorf("page %d beyond image of %d bytes: %w", p, len(image), types.ErrBadLength)}
		}
		if err := s.dev.WriteBlock(s.offset+off, image[off:off+types.PageSize]); err != nil {
			return &types.PersistenceError{Op: fmt.Sprintf("write page %d", p), Err: err}
		}
	}
	return nil
}

// Apply writes whatever plan requires from image.
func (s *Store) Apply(plan Plan, image []byte) error {
	if plan.Full {
		return s.WriteFull(image)
	}
	return s.WritePages(image, plan.Pages)
}
