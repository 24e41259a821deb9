// Package wire implements the binary framing shared by all column bodies:
// unsigned LEB128 varints, raw byte spans, and varint-length-prefixed spans,
// all little-endian where fixed widths are involved.
//
// Reads and writes are synchronous and unbuffered; callers that care about
// syscall counts should hand in a buffered stream. A short read or write is
// unrecoverable and is reported as a wrapped error without retry.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrUvarintOverflow is returned when a varint does not fit in 64 bits.
var ErrUvarintOverflow = errors.New("wire: uvarint overflows 64 bits")

// Reader decodes wire-format primitives from an io.Reader.
type Reader struct {
	r       io.Reader
	scratch [8]byte
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadUvarint reads one unsigned LEB128 varint.
func (r *Reader) ReadUvarint() (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < binary.MaxVarintLen64; i++ {
		if _, err := io.ReadFull(r.r, r.scratch[:1]); err != nil {
			if i > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, fmt.Errorf("wire: read uvarint: %w", err)
		}
		b := r.scratch[0]
		if b < 0x80 {
			if i == binary.MaxVarintLen64-1 && b > 1 {
				return 0, ErrUvarintOverflow
			}
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, ErrUvarintOverflow
}

// ReadFull reads exactly len(dst) bytes. A truncated stream surfaces as a
// wrapped io.ErrUnexpectedEOF.
func (r *Reader) ReadFull(dst []byte) error {
	if _, err := io.ReadFull(r.r, dst); err != nil {
		if err == io.EOF && len(dst) > 0 {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("wire: read %d bytes: %w", len(dst), err)
	}
	return nil
}

// ReadUint16 reads one little-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.ReadFull(r.scratch[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.scratch[:2]), nil
}

// ReadUint32 reads one little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.ReadFull(r.scratch[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.scratch[:4]), nil
}

// Writer encodes wire-format primitives onto an io.Writer.
type Writer struct {
	w       io.Writer
	scratch [binary.MaxVarintLen64]byte
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteUvarint writes v as an unsigned LEB128 varint.
func (w *Writer) WriteUvarint(v uint64) error {
	n := binary.PutUvarint(w.scratch[:], v)
	return w.WriteRaw(w.scratch[:n])
}

// WriteRaw writes p without any prefix.
func (w *Writer) WriteRaw(p []byte) error {
	if _, err := w.w.Write(p); err != nil {
		return fmt.Errorf("wire: write %d bytes: %w", len(p), err)
	}
	return nil
}

// WriteBytes writes p prefixed with its length as a varint.
func (w *Writer) WriteBytes(p []byte) error {
	if err := w.WriteUvarint(uint64(len(p))); err != nil {
		return err
	}
	return w.WriteRaw(p)
}

// WriteString writes s prefixed with its length as a varint.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	if _, err := io.WriteString(w.w, s); err != nil {
		return fmt.Errorf("wire: write %d bytes: %w", len(s), err)
	}
	return nil
}

// WriteUint16 writes v little-endian.
func (w *Writer) WriteUint16(v uint16) error {
	binary.LittleEndian.PutUint16(w.scratch[:2], v)
	return w.WriteRaw(w.scratch[:2])
}

// WriteUint32 writes v little-endian.
func (w *Writer) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	return w.WriteRaw(w.scratch[:4])
}
