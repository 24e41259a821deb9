package wire

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
)

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 127, 128, 255, 256, 16383, 16384,
		1<<32 - 1, 1 << 32, math.MaxUint64,
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, v := range values {
		if err := w.WriteUvarint(v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
	}

	r := NewReader(&buf)
	for _, v := range values {
		got, err := r.ReadUvarint()
		if err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if got != v {
			t.Errorf("expected %d, got %d", v, got)
		}
	}
}

func TestReadUvarint_Overflow(t *testing.T) {
	// Eleven continuation bytes never terminate a valid 64-bit varint.
	r := NewReader(bytes.NewReader(bytes.Repeat([]byte{0xff}, 11)))
	if _, err := r.ReadUvarint(); !errors.Is(err, ErrUvarintOverflow) {
		t.Fatalf("expected ErrUvarintOverflow, got %v", err)
	}
}

func TestReadUvarint_Truncated(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x80}))
	_, err := r.ReadUvarint()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF, got %v", err)
	}
}

func TestWriteBytesReadFull(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBytes([]byte("payload")); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewReader(&buf)
	n, err := r.ReadUvarint()
	if err != nil {
		t.Fatalf("read length: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected length 7, got %d", n)
	}
	dst := make([]byte, n)
	if err := r.ReadFull(dst); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if string(dst) != "payload" {
		t.Errorf("expected %q, got %q", "payload", dst)
	}
}

func TestReadFull_ShortRead(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("abc")))
	err := r.ReadFull(make([]byte, 8))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF, got %v", err)
	}
}

func TestWriteString(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteString("abc"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{3, 'a', 'b', 'c'}) {
		t.Errorf("unexpected encoding: %v", buf.Bytes())
	}
}

func TestFixedWidthRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteUint16(0xBEEF); err != nil {
		t.Fatalf("write uint16: %v", err)
	}
	if err := w.WriteUint32(0xDEADBEEF); err != nil {
		t.Fatalf("write uint32: %v", err)
	}
	// Little-endian layout.
	if !bytes.Equal(buf.Bytes(), []byte{0xEF, 0xBE, 0xEF, 0xBE, 0xAD, 0xDE}) {
		t.Fatalf("unexpected encoding: %x", buf.Bytes())
	}

	r := NewReader(&buf)
	v16, err := r.ReadUint16()
	if err != nil || v16 != 0xBEEF {
		t.Fatalf("expected 0xBEEF, got %#x err=%v", v16, err)
	}
	v32, err := r.ReadUint32()
	if err != nil || v32 != 0xDEADBEEF {
		t.Fatalf("expected 0xDEADBEEF, got %#x err=%v", v32, err)
	}
}
