package nativecol

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/nativecol/compress"
	"github.com/hupe1980/nativecol/wire"
)

var batchMagic = [4]byte{'N', 'C', 'B', '0'}

const (
	batchVersion = uint16(1)

	flagCompressed = uint16(1)

	// maxHeaderString bounds column names and type strings so a corrupt
	// header cannot force an absurd allocation.
	maxHeaderString = 1 << 10
	// maxBatchColumns bounds the declared column count for the same reason.
	maxBatchColumns = 1 << 16
	// maxBatchRows bounds the declared row count for the same reason.
	maxBatchRows = 1 << 32
)

var (
	// ErrBadMagic is returned when a batch stream does not start with the
	// expected magic bytes.
	ErrBadMagic = errors.New("invalid batch magic")
	// ErrUnsupportedVersion is returned for batch headers written by a
	// newer format revision.
	ErrUnsupportedVersion = errors.New("unsupported batch version")
)

// BatchOptions configures batch encoding.
type BatchOptions struct {
	// Logger receives debug-level save/load tracing. Defaults to a noop
	// logger.
	Logger *Logger

	// Compression selects the frame codec method for column bodies on Save.
	// Load auto-detects from the header.
	Compression compress.Method

	// Concurrency > 1 pre-encodes column sections in parallel on Save. The
	// output byte stream is identical to the sequential path.
	Concurrency int
}

// Batch is a named, ordered set of equal-length columns: the unit a client
// sends to or receives from the server in one round trip.
//
// The zero value is not usable; create batches with NewBatch. A Batch is a
// container plus framing only: it owns no column type hierarchy beyond the
// wire type names the columns report themselves.
type Batch struct {
	names []string
	cols  []Column
	opts  BatchOptions
}

// NewBatch creates an empty batch.
func NewBatch(optFns ...func(o *BatchOptions)) *Batch {
	opts := BatchOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	return &Batch{opts: opts}
}

// AddColumn appends a named column. All columns in a batch must have the same
// row count, and names must be unique.
func (b *Batch) AddColumn(name string, col Column) error {
	for _, existing := range b.names {
		if existing == name {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
	}
	if len(b.cols) > 0 && col.Rows() != b.cols[0].Rows() {
		return fmt.Errorf("%w: %q has %d rows, batch has %d",
			ErrRowsMismatch, name, col.Rows(), b.cols[0].Rows())
	}
	b.names = append(b.names, name)
	b.cols = append(b.cols, col)
	return nil
}

// Columns returns the number of columns.
func (b *Batch) Columns() int { return len(b.cols) }

// Rows returns the batch's row count.
func (b *Batch) Rows() int {
	if len(b.cols) == 0 {
		return 0
	}
	return b.cols[0].Rows()
}

// Name returns the name of column i.
func (b *Batch) Name(i int) string { return b.names[i] }

// Column returns column i.
func (b *Batch) Column(i int) Column { return b.cols[i] }

// ColumnByName returns the column with the given name.
func (b *Batch) ColumnByName(name string) (Column, bool) {
	for i, n := range b.names {
		if n == name {
			return b.cols[i], true
		}
	}
	return nil, false
}

// Save encodes the batch onto w: a fixed header, then per column the name,
// the wire type name and the column body. With compression enabled the
// column sections stream through the frame codec.
func (b *Batch) Save(w io.Writer) error {
	hw := wire.NewWriter(w)

	var flags uint16
	if b.opts.Compression != compress.MethodNone {
		flags |= flagCompressed
	}

	if err := hw.WriteRaw(batchMagic[:]); err != nil {
		return fmt.Errorf("write batch header: %w", err)
	}
	if err := hw.WriteUint16(batchVersion); err != nil {
		return fmt.Errorf("write batch header: %w", err)
	}
	if err := hw.WriteUint16(flags); err != nil {
		return fmt.Errorf("write batch header: %w", err)
	}
	if err := hw.WriteUvarint(uint64(len(b.cols))); err != nil {
		return fmt.Errorf("write batch header: %w", err)
	}
	if err := hw.WriteUvarint(uint64(b.Rows())); err != nil {
		return fmt.Errorf("write batch header: %w", err)
	}

	body := io.Writer(w)
	var cw *compress.Writer
	if flags&flagCompressed != 0 {
		cw = compress.NewWriter(w, b.opts.Compression)
		body = cw
	}

	if b.opts.Concurrency > 1 && len(b.cols) > 1 {
		if err := b.saveParallel(body); err != nil {
			return err
		}
	} else {
		bw := wire.NewWriter(body)
		for i := range b.cols {
			if err := b.saveColumn(bw, i); err != nil {
				return err
			}
		}
	}

	if cw != nil {
		if err := cw.Close(); err != nil {
			return err
		}
	}

	b.opts.Logger.WithBatch(len(b.cols), b.Rows()).Debug("batch saved",
		"compression", b.opts.Compression.String(),
	)
	return nil
}

// saveParallel pre-encodes each column section into its own buffer, then
// writes the sections in column order so the stream is byte-identical to the
// sequential path.
func (b *Batch) saveParallel(body io.Writer) error {
	sections := make([][]byte, len(b.cols))

	var g errgroup.Group
	g.SetLimit(b.opts.Concurrency)
	for i := range b.cols {
		i := i
		g.Go(func() error {
			var buf bytes.Buffer
			if err := b.saveColumn(wire.NewWriter(&buf), i); err != nil {
				return err
			}
			sections[i] = buf.Bytes()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, section := range sections {
		if _, err := body.Write(section); err != nil {
			return fmt.Errorf("write batch body: %w", err)
		}
	}
	return nil
}

func (b *Batch) saveColumn(bw *wire.Writer, i int) error {
	if err := bw.WriteString(b.names[i]); err != nil {
		return fmt.Errorf("write column %q header: %w", b.names[i], err)
	}
	if err := bw.WriteString(b.cols[i].Type()); err != nil {
		return fmt.Errorf("write column %q header: %w", b.names[i], err)
	}
	if err := b.cols[i].SaveBody(bw); err != nil {
		return fmt.Errorf("write column %q: %w", b.names[i], err)
	}
	return nil
}

// Load replaces the batch's contents with columns decoded from r. Columns are
// reconstructed from the type names carried in the stream. On failure the
// batch keeps its previous contents.
func (b *Batch) Load(r io.Reader) error {
	hr := wire.NewReader(r)

	var magic [4]byte
	if err := hr.ReadFull(magic[:]); err != nil {
		return fmt.Errorf("read batch header: %w", err)
	}
	if magic != batchMagic {
		return ErrBadMagic
	}
	version, err := hr.ReadUint16()
	if err != nil {
		return fmt.Errorf("read batch header: %w", err)
	}
	if version != batchVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	flags, err := hr.ReadUint16()
	if err != nil {
		return fmt.Errorf("read batch header: %w", err)
	}
	columns, err := hr.ReadUvarint()
	if err != nil {
		return fmt.Errorf("read batch header: %w", err)
	}
	if columns > maxBatchColumns {
		return fmt.Errorf("implausible batch column count: %d", columns)
	}
	rows64, err := hr.ReadUvarint()
	if err != nil {
		return fmt.Errorf("read batch header: %w", err)
	}
	if rows64 > maxBatchRows {
		return fmt.Errorf("implausible batch row count: %d", rows64)
	}
	rows := int(rows64)
	if rows64 != uint64(rows) || rows < 0 {
		return fmt.Errorf("implausible batch row count: %d", rows64)
	}

	br := hr
	if flags&flagCompressed != 0 {
		br = wire.NewReader(compress.NewReader(r))
	}

	names := make([]string, 0, columns)
	cols := make([]Column, 0, columns)
	for i := uint64(0); i < columns; i++ {
		name, err := readHeaderString(br)
		if err != nil {
			return fmt.Errorf("read column %d name: %w", i, err)
		}
		typ, err := readHeaderString(br)
		if err != nil {
			return fmt.Errorf("read column %q type: %w", name, err)
		}
		col, err := ByType(typ)
		if err != nil {
			return err
		}
		if err := col.LoadBody(br, rows); err != nil {
			return fmt.Errorf("read column %q: %w", name, err)
		}
		names = append(names, name)
		cols = append(cols, col)
	}

	b.names = names
	b.cols = cols

	b.opts.Logger.WithBatch(len(cols), rows).Debug("batch loaded")
	return nil
}

func readHeaderString(r *wire.Reader) (string, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return "", err
	}
	if n > maxHeaderString {
		return "", fmt.Errorf("implausible header string length: %d", n)
	}
	buf := make([]byte, n)
	if err := r.ReadFull(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
