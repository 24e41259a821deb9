// Package arena provides fixed-capacity, append-only byte blocks for column
// storage.
//
// A Block is allocated once and never resized or moved, so an (offset, length)
// pair handed out at append time stays valid for the lifetime of the block.
// Columns exploit this to index rows without copying them out of the buffer.
//
// Blocks are single-owner: a block belongs to exactly one column and all
// mutation happens on the owner's goroutine. There is no internal locking.
package arena

import (
	"github.com/hupe1980/nativecol/internal/mmap"
)

// Block is a fixed-capacity byte buffer that only grows at the tail.
// Bytes in [0, Len()) are committed row data; bytes in [Len(), Cap()) are
// reserved for future appends.
type Block struct {
	data []byte
	used int
	// mapping holds the off-heap allocation backing data, if any.
	mapping *mmap.Mapping
}

// New allocates a zeroed block with the given capacity.
func New(capacity int) *Block {
	return &Block{data: make([]byte, capacity)}
}

// NewOffHeap allocates a block backed by an anonymous memory mapping, keeping
// the buffer out of the garbage collector's scan set. It falls back to a heap
// block when the mapping cannot be created.
func NewOffHeap(capacity int) *Block {
	m, err := mmap.MapAnon(capacity)
	if err != nil {
		return New(capacity)
	}
	return &Block{data: m.Bytes(), mapping: m}
}

// Adopt wraps an externally produced buffer as a full block without copying.
// The caller must not mutate payload afterwards.
func Adopt(payload []byte) *Block {
	return &Block{data: payload, used: len(payload)}
}

// Cap returns the block's fixed capacity.
func (b *Block) Cap() int { return len(b.data) }

// Len returns the number of committed bytes.
func (b *Block) Len() int { return b.used }

// Available returns the remaining tail capacity.
func (b *Block) Available() int { return len(b.data) - b.used }

// AppendUnsafe copies v to the tail and returns the offset of the written
// range. The caller must have checked Available() >= len(v); the owning
// column's append path is the only place that invariant is enforced.
func (b *Block) AppendUnsafe(v []byte) int {
	off := b.used
	copy(b.data[off:], v)
	b.used += len(v)
	return off
}

// AppendStringUnsafe is AppendUnsafe for string values, avoiding a []byte
// conversion on the caller side.
func (b *Block) AppendStringUnsafe(v string) int {
	off := b.used
	copy(b.data[off:], v)
	b.used += len(v)
	return off
}

// Tail returns the uncommitted region [Len(), Cap()) for direct decoding from
// a stream. Bytes written there become visible once Consume commits them.
func (b *Block) Tail() []byte {
	return b.data[b.used:]
}

// Consume commits n bytes previously written into Tail and returns the offset
// of the consumed range.
func (b *Block) Consume(n int) int {
	off := b.used
	b.used += n
	return off
}

// Bytes returns the committed range [off, off+n).
func (b *Block) Bytes(off, n int) []byte {
	return b.data[off : off+n : off+n]
}

// Close releases the block's backing memory. Any byte range previously
// returned by Bytes becomes invalid. It is safe to call Close more than once.
func (b *Block) Close() error {
	b.data = nil
	b.used = 0
	if b.mapping != nil {
		m := b.mapping
		b.mapping = nil
		return m.Close()
	}
	return nil
}
