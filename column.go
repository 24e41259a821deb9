package nativecol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/nativecol/wire"
)

// Kind identifies a concrete column implementation.
type Kind uint8

const (
	// KindString is the variable-length string column.
	KindString Kind = iota
	// KindFixedString is the fixed-width string column.
	KindFixedString
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindFixedString:
		return "FixedString"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// DefaultBlockSize is the arena block size used when no single value demands
// a larger allocation, and the reservation granularity of fixed-width buffers.
const DefaultBlockSize = 4096

// Column is the contract shared by all column implementations.
//
// Columns are single-owner: no method may be called concurrently with any
// other method on the same instance. Operations taking another Column treat
// a mismatched concrete kind as a silent no-op, preserving composability for
// callers that hold columns polymorphically.
type Column interface {
	// Kind returns the concrete column kind.
	Kind() Kind

	// Type returns the wire type name, e.g. "String" or "FixedString(16)".
	Type() string

	// Rows returns the number of rows.
	Rows() int

	// Reserve pre-sizes internal storage for the given total row count.
	Reserve(rows int)

	// Clear drops all rows and releases row storage.
	Clear()

	// AppendFrom bulk-appends every row of other. It is a no-op when other
	// is not the same concrete kind (or shape).
	AppendFrom(other Column)

	// Slice returns a new column holding a deep copy of rows [begin, begin+n),
	// clamped to the available rows.
	Slice(begin, n int) Column

	// CloneEmpty returns a new, empty column of the same kind and shape.
	CloneEmpty() Column

	// Swap exchanges the internal state of two same-kind columns in constant
	// time. It is a no-op when other is not the same concrete kind. Row data
	// previously read from either column must be treated as invalidated.
	Swap(other Column)

	// LoadBody replaces the column's contents with rows decoded from r.
	// On failure the column is left cleared, never partially loaded.
	LoadBody(r *wire.Reader, rows int) error

	// SaveBody encodes all rows onto w.
	SaveBody(w *wire.Writer) error

	// Close releases the column's backing storage.
	Close() error
}

// ByType returns a fresh, empty column for a wire type name.
//
// Recognized forms are "String" and "FixedString(N)". This is used when
// decoding self-describing batches that carry the type name in their header.
func ByType(typ string) (Column, error) {
	switch {
	case typ == "String":
		return NewString(), nil
	case strings.HasPrefix(typ, "FixedString(") && strings.HasSuffix(typ, ")"):
		arg := typ[len("FixedString(") : len(typ)-1]
		width, err := strconv.Atoi(arg)
		if err != nil || width <= 0 {
			return nil, &ErrUnknownType{Type: typ}
		}
		return NewFixedString(width), nil
	default:
		return nil, &ErrUnknownType{Type: typ}
	}
}
