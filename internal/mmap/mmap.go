// Package mmap provides anonymous memory mappings for off-heap block storage.
//
// Column arenas can hold large amounts of long-lived row data. Keeping those
// buffers off the Go heap takes them out of the garbage collector's scan set,
// which matters when a client holds many wide result columns at once.
//
// MapAnon returns a read-write anonymous mapping. On platforms without mmap
// support the package falls back to a regular heap allocation, so callers can
// treat the mapping as best-effort.
package mmap

import (
	"sync/atomic"
)

// Mapping represents one anonymous memory mapping. It owns the underlying
// byte slice and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	closed atomic.Bool
	// unmap is the platform-specific release function; nil for heap fallback.
	unmap func([]byte) error
}

// MapAnon creates a read-write anonymous mapping of the given size.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return &Mapping{}, nil
	}
	data, unmap, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped byte slice.
// The slice is valid only until Close is called.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Close releases the mapping. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}
