package nativecol

import (
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/nativecol/internal/arena"
	"github.com/hupe1980/nativecol/wire"
)

// maxRowPrealloc caps the row index preallocation in LoadBody so a corrupt
// stream-declared row count cannot force an absurd allocation before decoding
// fails on the truncated stream.
const maxRowPrealloc = 1 << 20

// rowRef locates one row inside the owning column's block sequence.
//
// Rows are addressed as (block index, offset, length) rather than as slices
// into the block buffers, so a stale reference can never outlive or alias the
// arena; every access resolves through the column that owns the blocks.
type rowRef struct {
	block int
	off   int
	n     int
}

// StringOptions configures a String column.
type StringOptions struct {
	// BlockSize is the minimum arena block capacity. Values larger than the
	// block size always get a block of their own exact size.
	BlockSize int

	// OffHeap allocates arena blocks outside the Go heap via anonymous
	// mappings, keeping large long-lived columns out of GC scans.
	OffHeap bool
}

// String is a variable-length string column.
//
// Row bytes live in a sequence of fixed-capacity arena blocks that are never
// resized or moved after creation, so row references stay valid across any
// number of further appends. Wasted space is bounded by at most one
// under-filled block at a time.
type String struct {
	blocks []*arena.Block
	rows   []rowRef
	opts   StringOptions
}

var _ Column = (*String)(nil)

// NewString creates an empty variable-length string column.
func NewString(optFns ...func(o *StringOptions)) *String {
	opts := StringOptions{
		BlockSize: DefaultBlockSize,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	return &String{opts: opts}
}

// NewStringFromStrings creates a column holding the given values, packed into
// a single block.
func NewStringFromStrings(values []string, optFns ...func(o *StringOptions)) *String {
	c := NewString(optFns...)
	var total int
	for _, v := range values {
		total += len(v)
	}
	if len(values) == 0 {
		return c
	}
	c.grow(total)
	c.rows = slices.Grow(c.rows, len(values))
	for _, v := range values {
		c.appendStringUnsafe(v)
	}
	return c
}

// AdoptString wraps an externally produced payload as a column without
// copying. lengths gives each row's byte length in order and must sum to
// len(payload). The caller must not mutate payload afterwards.
func AdoptString(payload []byte, lengths []int) (*String, error) {
	var total int
	for _, n := range lengths {
		if n < 0 {
			return nil, ErrAdoptedLengths
		}
		total += n
	}
	if total != len(payload) {
		return nil, ErrAdoptedLengths
	}

	c := NewString()
	c.blocks = append(c.blocks, arena.Adopt(payload))
	c.rows = make([]rowRef, 0, len(lengths))
	var off int
	for _, n := range lengths {
		c.rows = append(c.rows, rowRef{block: 0, off: off, n: n})
		off += n
	}
	return c, nil
}

// Kind returns KindString.
func (c *String) Kind() Kind { return KindString }

// Type returns the wire type name.
func (c *String) Type() string { return "String" }

// Rows returns the number of rows.
func (c *String) Rows() int { return len(c.rows) }

// Reserve pre-sizes the row index for the given total row count.
func (c *String) Reserve(rows int) {
	if extra := rows - len(c.rows); extra > 0 {
		c.rows = slices.Grow(c.rows, extra)
	}
}

// Append adds one row holding a copy of v.
func (c *String) Append(v []byte) {
	if len(c.blocks) == 0 || c.last().Available() < len(v) {
		c.grow(len(v))
	}
	blk := c.last()
	c.rows = append(c.rows, rowRef{
		block: len(c.blocks) - 1,
		off:   blk.AppendUnsafe(v),
		n:     len(v),
	})
}

// AppendString adds one row holding a copy of v.
func (c *String) AppendString(v string) {
	if len(c.blocks) == 0 || c.last().Available() < len(v) {
		c.grow(len(v))
	}
	c.appendStringUnsafe(v)
}

// appendStringUnsafe appends into the last block without a capacity check.
func (c *String) appendStringUnsafe(v string) {
	blk := c.last()
	c.rows = append(c.rows, rowRef{
		block: len(c.blocks) - 1,
		off:   blk.AppendStringUnsafe(v),
		n:     len(v),
	})
}

// Value returns the bytes of row i. The returned slice aliases the column's
// arena and is valid until the column is cleared, swapped or closed; callers
// that need to retain it across mutations of this column's owner must copy.
func (c *String) Value(i int) ([]byte, error) {
	if i < 0 || i >= len(c.rows) {
		return nil, &ErrOutOfRange{Index: i, Rows: len(c.rows)}
	}
	ref := c.rows[i]
	return c.blocks[ref.block].Bytes(ref.off, ref.n), nil
}

// Clear drops all rows and blocks. Previously returned row bytes become
// invalid.
func (c *String) Clear() {
	_ = c.reset()
}

// Close releases the column's arena. Unlike Clear it reports an unmap failure
// for off-heap blocks.
func (c *String) Close() error {
	return c.reset()
}

func (c *String) reset() error {
	var firstErr error
	for _, blk := range c.blocks {
		if err := blk.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.blocks = nil
	c.rows = nil
	return firstErr
}

// AppendFrom bulk-appends every row of other. The incoming total is measured
// up front so the batch costs at most one new block allocation. A non-String
// column is ignored.
func (c *String) AppendFrom(other Column) {
	col, ok := other.(*String)
	if !ok || len(col.rows) == 0 {
		return
	}

	var total int
	for _, ref := range col.rows {
		total += ref.n
	}
	if len(c.blocks) == 0 || c.last().Available() < total {
		c.grow(total)
	}
	c.rows = slices.Grow(c.rows, len(col.rows))

	blk := c.last()
	block := len(c.blocks) - 1
	for _, ref := range col.rows {
		src := col.blocks[ref.block].Bytes(ref.off, ref.n)
		c.rows = append(c.rows, rowRef{
			block: block,
			off:   blk.AppendUnsafe(src),
			n:     ref.n,
		})
	}
}

// LoadBody replaces the column's contents with the given number of rows
// decoded from r.
// Row bytes are read straight into freshly grown arena space, one
// varint-prefixed value at a time. On failure the column is cleared.
func (c *String) LoadBody(r *wire.Reader, rows int) error {
	c.Clear()
	if rows < 0 {
		return fmt.Errorf("implausible string row count: %d", rows)
	}
	prealloc := rows
	if prealloc > maxRowPrealloc {
		prealloc = maxRowPrealloc
	}
	c.rows = make([]rowRef, 0, prealloc)

	for i := 0; i < rows; i++ {
		n64, err := r.ReadUvarint()
		if err != nil {
			c.Clear()
			return fmt.Errorf("load string row %d: %w", i, err)
		}
		if n64 > math.MaxInt32 {
			c.Clear()
			return fmt.Errorf("load string row %d: implausible length %d", i, n64)
		}
		n := int(n64)

		if len(c.blocks) == 0 || c.last().Available() < n {
			c.grow(n)
		}
		blk := c.last()
		if err := r.ReadFull(blk.Tail()[:n]); err != nil {
			c.Clear()
			return fmt.Errorf("load string row %d: %w", i, err)
		}
		c.rows = append(c.rows, rowRef{
			block: len(c.blocks) - 1,
			off:   blk.Consume(n),
			n:     n,
		})
	}
	return nil
}

// SaveBody writes every row as [varint length][bytes], in row order.
func (c *String) SaveBody(w *wire.Writer) error {
	for i, ref := range c.rows {
		if err := w.WriteBytes(c.blocks[ref.block].Bytes(ref.off, ref.n)); err != nil {
			return fmt.Errorf("save string row %d: %w", i, err)
		}
	}
	return nil
}

// Slice returns a new column holding a deep copy of rows [begin, begin+n),
// packed into one exactly-sized block. The result never aliases this column's
// arena.
func (c *String) Slice(begin, n int) Column {
	result := NewString(func(o *StringOptions) { *o = c.opts })
	if begin < 0 || begin >= len(c.rows) || n <= 0 {
		return result
	}
	if n > len(c.rows)-begin {
		n = len(c.rows) - begin
	}

	var total int
	for _, ref := range c.rows[begin : begin+n] {
		total += ref.n
	}
	// The block is sized to exactly the selected rows, not rounded up.
	if c.opts.OffHeap {
		result.blocks = append(result.blocks, arena.NewOffHeap(total))
	} else {
		result.blocks = append(result.blocks, arena.New(total))
	}
	result.rows = make([]rowRef, 0, n)
	blk := result.last()
	for _, ref := range c.rows[begin : begin+n] {
		src := c.blocks[ref.block].Bytes(ref.off, ref.n)
		result.rows = append(result.rows, rowRef{
			block: 0,
			off:   blk.AppendUnsafe(src),
			n:     ref.n,
		})
	}
	return result
}

// CloneEmpty returns a new, empty column with the same options.
func (c *String) CloneEmpty() Column {
	return NewString(func(o *StringOptions) { *o = c.opts })
}

// Swap exchanges the internal state of two String columns in constant time.
// A non-String column is ignored. Row bytes previously read from either
// column must be treated as invalidated.
func (c *String) Swap(other Column) {
	col, ok := other.(*String)
	if !ok {
		return
	}
	c.blocks, col.blocks = col.blocks, c.blocks
	c.rows, col.rows = col.rows, c.rows
	c.opts, col.opts = col.opts, c.opts
}

func (c *String) last() *arena.Block {
	return c.blocks[len(c.blocks)-1]
}

// grow appends a fresh block able to hold at least need bytes.
func (c *String) grow(need int) {
	c.blocks = append(c.blocks, c.newBlock(need))
}

func (c *String) newBlock(need int) *arena.Block {
	capacity := c.opts.BlockSize
	if need > capacity {
		capacity = need
	}
	if c.opts.OffHeap {
		return arena.NewOffHeap(capacity)
	}
	return arena.New(capacity)
}
