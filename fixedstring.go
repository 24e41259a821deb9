package nativecol

import (
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/nativecol/wire"
)

// FixedString is a fixed-width string column. Every row occupies exactly
// Width bytes in one flat buffer; values shorter than the width are
// zero-padded at append time, so row i always starts at offset i*Width.
type FixedString struct {
	width int
	data  []byte
}

var _ Column = (*FixedString)(nil)

// NewFixedString creates an empty column whose rows are width bytes wide.
// The width is fixed for the column's lifetime. It panics if width is not
// positive.
func NewFixedString(width int) *FixedString {
	if width <= 0 {
		panic(fmt.Sprintf("nativecol: fixed string width must be positive, got %d", width))
	}
	return &FixedString{width: width}
}

// Kind returns KindFixedString.
func (c *FixedString) Kind() Kind { return KindFixedString }

// Type returns the wire type name, e.g. "FixedString(16)".
func (c *FixedString) Type() string { return fmt.Sprintf("FixedString(%d)", c.width) }

// Width returns the declared row width in bytes.
func (c *FixedString) Width() int { return c.width }

// Rows returns the number of rows.
func (c *FixedString) Rows() int { return len(c.data) / c.width }

// Reserve pre-sizes the buffer for the given total row count.
func (c *FixedString) Reserve(rows int) {
	if need := rows * c.width; need > cap(c.data) {
		c.data = slices.Grow(c.data, need-len(c.data))
	}
}

// Append adds one row. Values longer than the column width are rejected with
// ErrValueTooLong and leave the row count unchanged; shorter values are
// padded with zero bytes up to the width.
func (c *FixedString) Append(v []byte) error {
	if len(v) > c.width {
		return &ErrValueTooLong{Width: c.width, Size: len(v)}
	}

	if cap(c.data)-len(c.data) < c.width {
		// Round the reservation up to the next block multiple to amortize
		// reallocation across appends.
		reserve := ((len(c.data)+c.width)/DefaultBlockSize + 1) * DefaultBlockSize
		grown := make([]byte, len(c.data), reserve)
		copy(grown, c.data)
		c.data = grown
	}

	c.data = append(c.data, v...)
	for i := len(v); i < c.width; i++ {
		c.data = append(c.data, 0)
	}
	return nil
}

// AppendString adds one row holding v.
func (c *FixedString) AppendString(v string) error {
	return c.Append([]byte(v))
}

// Value returns the full-width bytes of row i, padding included. The slice
// aliases the column's buffer and is valid until the next mutation.
func (c *FixedString) Value(i int) ([]byte, error) {
	if i < 0 || i >= c.Rows() {
		return nil, &ErrOutOfRange{Index: i, Rows: c.Rows()}
	}
	pos := i * c.width
	return c.data[pos : pos+c.width : pos+c.width], nil
}

// Clear drops all rows, keeping the buffer capacity for reuse.
func (c *FixedString) Clear() {
	c.data = c.data[:0]
}

// Close releases the column's buffer.
func (c *FixedString) Close() error {
	c.data = nil
	return nil
}

// AppendFrom bulk-appends every row of other. Columns of a different kind or
// a different width are ignored.
func (c *FixedString) AppendFrom(other Column) {
	col, ok := other.(*FixedString)
	if !ok || col.width != c.width {
		return
	}
	c.data = append(c.data, col.data...)
}

// LoadBody replaces the column's contents with the given number of rows,
// read in one shot.
// On failure the column is left cleared.
func (c *FixedString) LoadBody(r *wire.Reader, rows int) error {
	if rows < 0 || rows > math.MaxInt/c.width {
		c.data = c.data[:0]
		return fmt.Errorf("implausible fixed string row count: %d", rows)
	}
	need := c.width * rows
	if cap(c.data) >= need {
		c.data = c.data[:need]
	} else {
		c.data = make([]byte, need)
	}
	if err := r.ReadFull(c.data); err != nil {
		c.data = c.data[:0]
		return fmt.Errorf("load fixed string rows: %w", err)
	}
	return nil
}

// SaveBody writes the whole buffer in one call; rows carry no length prefix.
func (c *FixedString) SaveBody(w *wire.Writer) error {
	if err := w.WriteRaw(c.data); err != nil {
		return fmt.Errorf("save fixed string rows: %w", err)
	}
	return nil
}

// Slice returns a new column holding a deep copy of rows [begin, begin+n),
// clamped to the available rows.
func (c *FixedString) Slice(begin, n int) Column {
	result := NewFixedString(c.width)
	if begin < 0 || begin >= c.Rows() || n <= 0 {
		return result
	}
	b := begin * c.width
	l := n * c.width
	if l > len(c.data)-b {
		l = len(c.data) - b
	}
	result.data = slices.Clone(c.data[b : b+l])
	return result
}

// CloneEmpty returns a new, empty column with the same width.
func (c *FixedString) CloneEmpty() Column {
	return NewFixedString(c.width)
}

// Swap exchanges the internal state of two FixedString columns in constant
// time, width included. A non-FixedString column is ignored.
func (c *FixedString) Swap(other Column) {
	col, ok := other.(*FixedString)
	if !ok {
		return
	}
	c.width, col.width = col.width, c.width
	c.data, col.data = col.data, c.data
}
