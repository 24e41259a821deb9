// Package compress implements the checksummed frame codec used to move column
// bodies over a byte stream.
//
// A stream is a sequence of independent frames:
//
//	[checksum u64][method u8][compressed u32][raw u32][payload]
//
// All fixed-width fields are little-endian. The checksum is xxhash64 over
// everything after the checksum itself (method, sizes and payload), so frame
// corruption is detected before any decompression is attempted. Frames whose
// payload does not shrink under compression are stored raw with MethodNone in
// the method byte, regardless of the writer's configured method.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Method identifies a frame compression algorithm.
type Method uint8

const (
	// MethodNone stores payloads uncompressed.
	MethodNone Method = 0
	// MethodLZ4 uses LZ4 block compression (fast, moderate ratio).
	MethodLZ4 Method = 1
	// MethodZSTD uses zstd (better ratio, slower writes).
	MethodZSTD Method = 2
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodLZ4:
		return "lz4"
	case MethodZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

const (
	headerSize = 17 // checksum u64 + method u8 + compressed u32 + raw u32

	// MaxFrameSize bounds the raw payload of a single frame. The writer
	// splits larger writes; the reader rejects declared sizes above it.
	MaxFrameSize = 1 << 20
)

var (
	// ErrChecksum is returned when a frame fails checksum verification.
	ErrChecksum = errors.New("compress: frame checksum mismatch")
	// ErrUnknownMethod is returned for an unrecognized method byte.
	ErrUnknownMethod = errors.New("compress: unknown compression method")
	// ErrFrameCorrupt is returned when declared frame sizes are implausible.
	ErrFrameCorrupt = errors.New("compress: corrupt frame header")
)

// Shared zstd encoder/decoder pools, one codec state per concurrent stream.
var (
	zstdEncoderPool = sync.Pool{
		New: func() any {
			enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			return enc
		},
	}
	zstdDecoderPool = sync.Pool{
		New: func() any {
			dec, _ := zstd.NewReader(nil)
			return dec
		},
	}
)

// Writer buffers written bytes and emits them as frames of at most
// MaxFrameSize raw bytes each. Close flushes the final partial frame.
type Writer struct {
	w      io.Writer
	method Method
	buf    []byte
	frame  []byte
}

// NewWriter creates a frame Writer targeting w with the given method.
func NewWriter(w io.Writer, method Method) *Writer {
	return &Writer{w: w, method: method}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		n := MaxFrameSize - len(w.buf)
		if n > len(p) {
			n = len(p)
		}
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
		if len(w.buf) == MaxFrameSize {
			if err := w.flushFrame(); err != nil {
				return total - len(p), err
			}
		}
	}
	return total, nil
}

// Flush writes any buffered bytes as one frame. Empty buffers emit nothing.
func (w *Writer) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	return w.flushFrame()
}

// Close flushes buffered bytes. The underlying writer is left open.
func (w *Writer) Close() error {
	return w.Flush()
}

func (w *Writer) flushFrame() error {
	frame, err := encodeFrame(w.frame[:0], w.buf, w.method)
	if err != nil {
		return err
	}
	w.frame = frame
	w.buf = w.buf[:0]
	if _, err := w.w.Write(frame); err != nil {
		return fmt.Errorf("compress: write frame: %w", err)
	}
	return nil
}

// encodeFrame appends one encoded frame for raw to dst.
func encodeFrame(dst, raw []byte, method Method) ([]byte, error) {
	var payload []byte
	var err error

	switch method {
	case MethodNone:
	case MethodLZ4:
		payload, err = compressLZ4(raw)
	case MethodZSTD:
		payload = compressZSTD(raw)
	default:
		return nil, ErrUnknownMethod
	}
	if err != nil {
		return nil, err
	}

	// Store raw when compression does not pay for itself.
	if payload == nil || len(payload) >= len(raw) {
		payload = raw
		method = MethodNone
	}

	start := len(dst)
	dst = append(dst, make([]byte, headerSize)...)
	dst = append(dst, payload...)

	hdr := dst[start:]
	hdr[8] = byte(method)
	binary.LittleEndian.PutUint32(hdr[9:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(hdr[13:], uint32(len(raw)))
	binary.LittleEndian.PutUint64(hdr[:8], xxhash.Sum64(hdr[8:]))
	return dst, nil
}

func compressLZ4(raw []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("compress: lz4: %w", err)
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return dst[:n], nil
}

func compressZSTD(raw []byte) []byte {
	enc := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(raw, nil)
}

// Reader decodes a frame stream produced by Writer. It implements io.Reader
// and reports clean io.EOF only at a frame boundary.
type Reader struct {
	r   io.Reader
	buf []byte
	off int
	hdr [headerSize]byte
}

// NewReader creates a frame Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	for r.off == len(r.buf) {
		if err := r.readFrame(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.buf[r.off:])
	r.off += n
	return n, nil
}

func (r *Reader) readFrame() error {
	if _, err := io.ReadFull(r.r, r.hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("compress: read frame header: %w", err)
		}
		return err // clean EOF at frame boundary
	}

	checksum := binary.LittleEndian.Uint64(r.hdr[:8])
	method := Method(r.hdr[8])
	compressed := binary.LittleEndian.Uint32(r.hdr[9:])
	raw := binary.LittleEndian.Uint32(r.hdr[13:])

	if raw > MaxFrameSize || int(compressed) > lz4.CompressBlockBound(MaxFrameSize) {
		return ErrFrameCorrupt
	}

	payload := make([]byte, headerSize-8+int(compressed))
	copy(payload, r.hdr[8:])
	if _, err := io.ReadFull(r.r, payload[headerSize-8:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("compress: read frame payload: %w", err)
	}
	if xxhash.Sum64(payload) != checksum {
		return ErrChecksum
	}
	payload = payload[headerSize-8:]

	switch method {
	case MethodNone:
		if compressed != raw {
			return ErrFrameCorrupt
		}
		r.buf = payload
	case MethodLZ4:
		dst := make([]byte, raw)
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return fmt.Errorf("compress: lz4: %w", err)
		}
		if uint32(n) != raw {
			return ErrFrameCorrupt
		}
		r.buf = dst
	case MethodZSTD:
		dec := zstdDecoderPool.Get().(*zstd.Decoder)
		dst, err := dec.DecodeAll(payload, make([]byte, 0, raw))
		zstdDecoderPool.Put(dec)
		if err != nil {
			return fmt.Errorf("compress: zstd: %w", err)
		}
		if uint32(len(dst)) != raw {
			return ErrFrameCorrupt
		}
		r.buf = dst
	default:
		return ErrUnknownMethod
	}

	r.off = 0
	return nil
}
