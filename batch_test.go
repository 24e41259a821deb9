package nativecol

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nativecol/compress"
	"github.com/hupe1980/nativecol/wire"
)

func testBatch(t *testing.T, optFns ...func(o *BatchOptions)) *Batch {
	t.Helper()

	names := NewStringFromStrings([]string{"alice", "bob", "carol"})
	codes := NewFixedString(4)
	for _, v := range []string{"a", "bb", "ccc"} {
		require.NoError(t, codes.AppendString(v))
	}

	b := NewBatch(optFns...)
	require.NoError(t, b.AddColumn("name", names))
	require.NoError(t, b.AddColumn("code", codes))
	return b
}

func assertBatchContents(t *testing.T, b *Batch) {
	t.Helper()

	require.Equal(t, 2, b.Columns())
	require.Equal(t, 3, b.Rows())

	names, ok := b.ColumnByName("name")
	require.True(t, ok)
	assert.Equal(t, []string{"alice", "bob", "carol"}, stringValues(t, names.(*String)))

	codes, ok := b.ColumnByName("code")
	require.True(t, ok)
	assert.Equal(t, []string{"a\x00\x00\x00", "bb\x00\x00", "ccc\x00"}, fixedValues(t, codes.(*FixedString)))
}

func TestBatch_SaveLoadRoundTrip(t *testing.T) {
	methods := []compress.Method{compress.MethodNone, compress.MethodLZ4, compress.MethodZSTD}

	for _, method := range methods {
		t.Run(method.String(), func(t *testing.T) {
			b := testBatch(t, func(o *BatchOptions) { o.Compression = method })

			var buf bytes.Buffer
			require.NoError(t, b.Save(&buf))

			decoded := NewBatch()
			require.NoError(t, decoded.Load(&buf))
			assertBatchContents(t, decoded)
		})
	}
}

func TestBatch_ParallelSaveIsByteIdentical(t *testing.T) {
	sequential := testBatch(t)
	parallel := testBatch(t, func(o *BatchOptions) { o.Concurrency = 4 })

	var seq, par bytes.Buffer
	require.NoError(t, sequential.Save(&seq))
	require.NoError(t, parallel.Save(&par))

	assert.Equal(t, seq.Bytes(), par.Bytes())
}

func TestBatch_ParallelCompressedRoundTrip(t *testing.T) {
	names := NewString()
	codes := NewFixedString(8)
	for i := 0; i < 5000; i++ {
		names.AppendString(fmt.Sprintf("user-%d", i))
		require.NoError(t, codes.AppendString(fmt.Sprintf("c%d", i%100)))
	}

	b := NewBatch(func(o *BatchOptions) {
		o.Compression = compress.MethodZSTD
		o.Concurrency = 4
	})
	require.NoError(t, b.AddColumn("name", names))
	require.NoError(t, b.AddColumn("code", codes))

	var buf bytes.Buffer
	require.NoError(t, b.Save(&buf))

	decoded := NewBatch()
	require.NoError(t, decoded.Load(&buf))
	require.Equal(t, 5000, decoded.Rows())

	got, ok := decoded.ColumnByName("name")
	require.True(t, ok)
	v, err := got.(*String).Value(4999)
	require.NoError(t, err)
	assert.Equal(t, "user-4999", string(v))
}

func TestBatch_AddColumn(t *testing.T) {
	t.Run("rows mismatch", func(t *testing.T) {
		b := NewBatch()
		require.NoError(t, b.AddColumn("a", NewStringFromStrings([]string{"x", "y"})))
		err := b.AddColumn("b", NewStringFromStrings([]string{"z"}))
		require.ErrorIs(t, err, ErrRowsMismatch)
	})

	t.Run("duplicate name", func(t *testing.T) {
		b := NewBatch()
		require.NoError(t, b.AddColumn("a", NewString()))
		err := b.AddColumn("a", NewString())
		require.ErrorIs(t, err, ErrDuplicateColumn)
	})
}

func TestBatch_LoadErrors(t *testing.T) {
	t.Run("bad magic", func(t *testing.T) {
		err := NewBatch().Load(bytes.NewReader([]byte("XXXX\x01\x00\x00\x00\x00\x00")))
		require.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("truncated header", func(t *testing.T) {
		err := NewBatch().Load(bytes.NewReader([]byte("NC")))
		require.Error(t, err)
	})

	t.Run("unsupported version", func(t *testing.T) {
		err := NewBatch().Load(bytes.NewReader([]byte{'N', 'C', 'B', '0', 0x63, 0x00, 0x00, 0x00, 0x00, 0x00}))
		require.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("implausible row count", func(t *testing.T) {
		// A corrupt header declaring an enormous row count must error out
		// before any column tries to size its storage.
		var buf bytes.Buffer
		hw := wire.NewWriter(&buf)
		require.NoError(t, hw.WriteRaw(batchMagic[:]))
		require.NoError(t, hw.WriteUint16(batchVersion))
		require.NoError(t, hw.WriteUint16(0))
		require.NoError(t, hw.WriteUvarint(1))
		require.NoError(t, hw.WriteUvarint(3<<61))
		require.NoError(t, hw.WriteString("code"))
		require.NoError(t, hw.WriteString("FixedString(3)"))

		err := NewBatch().Load(&buf)
		require.Error(t, err)
	})

	t.Run("truncated body keeps previous contents", func(t *testing.T) {
		src := testBatch(t)
		var buf bytes.Buffer
		require.NoError(t, src.Save(&buf))

		decoded := testBatch(t)
		err := decoded.Load(bytes.NewReader(buf.Bytes()[:buf.Len()-4]))
		require.Error(t, err)
		assertBatchContents(t, decoded)
	})
}

func TestBatch_Empty(t *testing.T) {
	b := NewBatch()
	require.Equal(t, 0, b.Columns())
	require.Equal(t, 0, b.Rows())

	var buf bytes.Buffer
	require.NoError(t, b.Save(&buf))

	decoded := NewBatch()
	require.NoError(t, decoded.Load(&buf))
	assert.Equal(t, 0, decoded.Columns())
}

func TestBatch_Accessors(t *testing.T) {
	b := testBatch(t)
	assert.Equal(t, "name", b.Name(0))
	assert.Equal(t, "code", b.Name(1))
	assert.Equal(t, KindString, b.Column(0).Kind())
	assert.Equal(t, KindFixedString, b.Column(1).Kind())

	_, ok := b.ColumnByName("missing")
	assert.False(t, ok)
}
