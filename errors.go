package nativecol

import (
	"errors"
	"fmt"
)

var (
	// ErrRowsMismatch is returned when a column's row count does not match
	// the other columns already in a batch.
	ErrRowsMismatch = errors.New("columns in a batch must have equal row counts")
	// ErrDuplicateColumn is returned when a batch already contains a column
	// with the same name.
	ErrDuplicateColumn = errors.New("duplicate column name in batch")
	// ErrAdoptedLengths is returned when adopted row lengths do not sum to
	// the payload size.
	ErrAdoptedLengths = errors.New("adopted row lengths do not sum to payload size")
)

// ErrOutOfRange indicates a row index at or beyond the column's row count.
type ErrOutOfRange struct {
	Index int
	Rows  int
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("row index out of range: %d with %d rows", e.Index, e.Rows)
}

// ErrValueTooLong indicates a value exceeding a fixed column's declared width.
//
// It is a validation error: the append is rejected and the column's row count
// is unchanged.
type ErrValueTooLong struct {
	Width int
	Size  int
}

func (e *ErrValueTooLong) Error() string {
	return fmt.Sprintf("expected value of at most %d bytes, received %d bytes", e.Width, e.Size)
}

// ErrUnknownType indicates a wire type name this package cannot construct.
type ErrUnknownType struct {
	Type string
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown column type: %q", e.Type)
}
