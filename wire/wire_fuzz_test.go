package wire

import (
	"bytes"
	"testing"
)

// FuzzUvarint ensures any uint64 survives an encode/decode roundtrip and that
// decoding arbitrary bytes never panics.
func FuzzUvarint(f *testing.F) {
	f.Add(uint64(0))
	f.Add(uint64(127))
	f.Add(uint64(128))
	f.Add(uint64(1) << 63)
	f.Add(^uint64(0))

	f.Fuzz(func(t *testing.T, v uint64) {
		var buf bytes.Buffer
		if err := NewWriter(&buf).WriteUvarint(v); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		got, err := NewReader(&buf).ReadUvarint()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if got != v {
			t.Fatalf("roundtrip mismatch: wrote %d, read %d", v, got)
		}
	})
}

// FuzzReadBytes feeds arbitrary streams through the length-prefixed decode
// path; it must error out cleanly, never panic.
func FuzzReadBytes(f *testing.F) {
	f.Add([]byte{3, 'a', 'b', 'c'})
	f.Add([]byte{0})
	f.Add([]byte{0x80, 0x01, 'x'})
	f.Add([]byte{0xff, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, data []byte) {
		r := NewReader(bytes.NewReader(data))
		n, err := r.ReadUvarint()
		if err != nil {
			return
		}
		if n > 1<<20 {
			return
		}
		dst := make([]byte, n)
		_ = r.ReadFull(dst)
	})
}
