// Package region manages the fixed-size memory-mapped file backing a
// framelog channel. A Region owns the file handle and the mapped view
// together; both are released by Close.
//
// The file length is fixed at creation. Every process mapping the same
// file must request the same capacity; a mismatch is a configuration
// error, never an auto-resize.
package region

import (
	"errors"
	"fmt"
	"os"
)

// Errors returned by Open and Close. Check with errors.Is.
var (
	// ErrSizeMismatch is returned when the file already exists with a
	// length different from the requested capacity.
	ErrSizeMismatch = errors.New("framelog: region size mismatch")

	// ErrBadCapacity is returned for a non-positive requested capacity.
	ErrBadCapacity = errors.New("framelog: bad region capacity")

	// ErrClosed is returned when the region has already been closed.
	ErrClosed = errors.New("framelog: region closed")
)

// Region is a read-write mapped view of a fixed-length file.
type Region struct {
	f    *os.File
	data []byte
	size int64
}

// Open creates or opens the file at path and maps it fully into memory.
//
// If the file does not exist or is empty it is extended to capacity and
// the new length is forced to stable storage before mapping, so that a
// concurrent open from another process observes a consistent length.
// An existing file whose length differs from capacity fails with
// ErrSizeMismatch.
func Open(path string, capacity int64) (*Region, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadCapacity, capacity)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("framelog: open region: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("framelog: stat region: %w", err)
	}

	switch length := info.Size(); {
	case length == 0:
		if err := f.Truncate(capacity); err != nil {
			f.Close()
			return nil, fmt.Errorf("framelog: extend region to %d: %w", capacity, err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("framelog: sync region length: %w", err)
		}
	case length != capacity:
		f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrSizeMismatch, path, length, capacity)
	}

	data, err := mmap(f, int(capacity))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("framelog: map region: %w", err)
	}

	return &Region{f: f, data: data, size: capacity}, nil
}

// Bytes returns the full mapped view. The slice is valid until Close;
// writes through it land in the shared pages and are visible to every
// other mapping of the same file.
func (r *Region) Bytes() []byte { return r.data }

// Size returns the region capacity in bytes.
func (r *Region) Size() int64 { return r.size }

// Path returns the name of the backing file.
func (r *Region) Path() string { return r.f.Name() }

// Sync flushes dirty pages to the backing file. The channel never calls
// this on the hot path; durability until then is page-cache level.
func (r *Region) Sync() error {
	if r.data == nil {
		return ErrClosed
	}
	if err := msync(r.data); err != nil {
		return fmt.Errorf("framelog: sync region: %w", err)
	}
	return nil
}

// Close unmaps the view and closes the file handle.
func (r *Region) Close() error {
	if r.data == nil {
		return ErrClosed
	}
	unmapErr := munmap(r.data)
	r.data = nil
	closeErr := r.f.Close()
	if unmapErr != nil {
		return fmt.Errorf("framelog: unmap region: %w", unmapErr)
	}
	if closeErr != nil {
		return fmt.Errorf("framelog: close region: %w", closeErr)
	}
	return nil
}
