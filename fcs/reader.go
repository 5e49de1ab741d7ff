package fcs

import (
	"fmt"
	"io"
	"math"
	"os"
	"unsafe"

	"gonum.org/v1/gonum/mat"

	"github.com/jlumpe/pycyt-old/endian"
	"github.com/jlumpe/pycyt-old/errs"
	"github.com/jlumpe/pycyt-old/internal/options"
	"github.com/jlumpe/pycyt-old/internal/pool"
)

// File is an open FCS data set: a seekable byte source plus its resolved
// metadata. Metadata is parsed once at open time; event data is read on
// demand.
type File struct {
	r      io.ReadSeeker
	meta   *Metadata
	closer io.Closer
}

// Open opens the named FCS file and resolves its metadata.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	meta, err := ReadMetadata(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &File{r: f, meta: meta, closer: f}, nil
}

// NewFile resolves metadata from an already-open seekable source. The
// caller retains ownership of r; Close is a no-op.
func NewFile(r io.ReadSeeker) (*File, error) {
	meta, err := ReadMetadata(r)
	if err != nil {
		return nil, err
	}

	return &File{r: r, meta: meta}, nil
}

// Close releases the underlying file handle, if Open created it.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}

	return f.closer.Close()
}

// Metadata returns the resolved metadata record.
func (f *File) Metadata() *Metadata { return f.meta }

// ChannelNames returns the short name of each channel in declared order.
func (f *File) ChannelNames() []string { return f.meta.ChannelNames() }

// Events returns the total event count.
func (f *File) Events() int { return f.meta.Events }

type readConfig struct {
	compensation *mat.Dense
	autoComp     bool
}

// ReadOption configures a read of event data.
type ReadOption = options.Option[*readConfig]

// WithCompensation applies the given channels-by-channels matrix to the
// decoded events. The matrix is used as-is; pass the inverse of a
// spillover matrix to unmix cross-talk.
func WithCompensation(m *mat.Dense) ReadOption {
	return options.New(func(c *readConfig) error {
		if m == nil {
			return fmt.Errorf("%w: nil compensation matrix", errs.ErrInvalidMatrixType)
		}
		rows, cols := m.Dims()
		if rows != cols {
			return fmt.Errorf("%w: compensation matrix is %dx%d", errs.ErrMatrixShape, rows, cols)
		}
		c.compensation = m

		return nil
	})
}

// WithAutoCompensation derives the compensation matrix from the file's own
// spillover keyword. Reading fails with ErrNoSpillover when the file does
// not declare one.
func WithAutoCompensation() ReadOption {
	return options.NoError(func(c *readConfig) {
		c.autoComp = true
	})
}

// ReadAll decodes every event in the file.
func (f *File) ReadAll(opts ...ReadOption) (*Matrix, error) {
	return f.ReadMatrix(0, f.meta.Events, opts...)
}

// ReadMatrix decodes events in the half-open row interval [start, end) into
// a single homogeneous matrix. Integer channels are masked and, when the
// file mixes channel widths, widened to a common representation.
// Compensation always yields a float64 matrix.
func (f *File) ReadMatrix(start, end int, opts ...ReadOption) (*Matrix, error) {
	cfg := &readConfig{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	raw, release, err := f.readRaw(start, end)
	if err != nil {
		return nil, err
	}
	defer release()

	rows := end - start
	var result *Matrix

	switch f.meta.DataType {
	case DataTypeFloat:
		result = f.decodeFloat32(raw, rows)
	case DataTypeDouble:
		result = f.decodeFloat64(raw, rows)
	case DataTypeInt:
		result = f.decodeUint(raw, rows)
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedDataType, f.meta.DataType)
	}

	if cfg.compensation == nil && !cfg.autoComp {
		return result, nil
	}

	comp := cfg.compensation
	if comp == nil {
		if f.meta.Spillover == nil {
			return nil, errs.ErrNoSpillover
		}
		comp, err = pseudoInverse(f.meta.Spillover.Matrix)
		if err != nil {
			return nil, err
		}
	}

	cr, _ := comp.Dims()
	if cr != f.meta.Par() {
		return nil, fmt.Errorf("%w: compensation matrix is %dx%d for %d channels",
			errs.ErrMatrixShape, cr, cr, f.meta.Par())
	}

	var out mat.Dense
	out.Mul(result.Dense(), comp)

	return denseToMatrix(&out), nil
}

// ReadEvents decodes the half-open row interval [start, end) into one
// column per channel, each keeping its native width and kind.
func (f *File) ReadEvents(start, end int) (*EventList, error) {
	raw, release, err := f.readRaw(start, end)
	if err != nil {
		return nil, err
	}
	defer release()

	rows := end - start
	engine := f.meta.ByteOrder
	cols := make([]Column, f.meta.Par())

	for i, p := range f.meta.Parameters {
		cols[i] = Column{Name: p.ShortName, Bits: p.Bits}
		switch f.meta.DataType {
		case DataTypeFloat:
			cols[i].Kind = KindFloat32
			cols[i].Float32s = make([]float32, rows)
		case DataTypeDouble:
			cols[i].Kind = KindFloat64
			cols[i].Float64s = make([]float64, rows)
		default:
			cols[i].Kind = KindUint
			cols[i].Uints = make([]uint64, rows)
		}
	}

	bpe := f.meta.bytesPerEvent
	for row := 0; row < rows; row++ {
		off := row * bpe
		for i := range cols {
			width := f.meta.channelBytes[i]
			switch f.meta.DataType {
			case DataTypeFloat:
				cols[i].Float32s[row] = math.Float32frombits(engine.Uint32(raw[off:]))
			case DataTypeDouble:
				cols[i].Float64s[row] = math.Float64frombits(engine.Uint64(raw[off:]))
			default:
				cols[i].Uints[row] = f.maskedUint(raw[off:], width, f.meta.masks[i])
			}
			off += width
		}
	}

	return &EventList{rows: rows, Columns: cols}, nil
}

// readRaw reads the raw bytes of the requested row interval from the DATA
// segment into a pooled buffer.
func (f *File) readRaw(start, end int) ([]byte, func(), error) {
	if start < 0 || end > f.meta.Events || start > end {
		return nil, nil, fmt.Errorf("%w: rows [%d, %d) of %d events",
			errs.ErrInvalidSlice, start, end, f.meta.Events)
	}

	bpe := f.meta.bytesPerEvent
	size := (end - start) * bpe
	buf, release := pool.GetBuffer(size)

	offset := f.meta.Data.Begin + int64(start)*int64(bpe)
	if _, err := f.r.Seek(offset, io.SeekStart); err != nil {
		release()
		return nil, nil, err
	}
	if _, err := io.ReadFull(f.r, buf); err != nil {
		release()
		return nil, nil, fmt.Errorf("%w: truncated DATA segment", errs.ErrInvalidDataLength)
	}

	return buf, release, nil
}

func (f *File) decodeFloat32(raw []byte, rows int) *Matrix {
	n := rows * f.meta.Par()
	out := make([]float32, n)

	if n > 0 && endian.CompareNativeEndian(f.meta.ByteOrder) {
		copy(out, unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(raw))), n))
	} else {
		engine := f.meta.ByteOrder
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(engine.Uint32(raw[i*4:]))
		}
	}

	return &Matrix{rows: rows, cols: f.meta.Par(), kind: KindFloat32, f32: out}
}

func (f *File) decodeFloat64(raw []byte, rows int) *Matrix {
	n := rows * f.meta.Par()
	out := make([]float64, n)

	if n > 0 && endian.CompareNativeEndian(f.meta.ByteOrder) {
		copy(out, unsafe.Slice((*float64)(unsafe.Pointer(unsafe.SliceData(raw))), n))
	} else {
		engine := f.meta.ByteOrder
		for i := 0; i < n; i++ {
			out[i] = math.Float64frombits(engine.Uint64(raw[i*8:]))
		}
	}

	return &Matrix{rows: rows, cols: f.meta.Par(), kind: KindFloat64, f64: out}
}

func (f *File) decodeUint(raw []byte, rows int) *Matrix {
	par := f.meta.Par()
	out := make([]uint64, rows*par)

	bpe := f.meta.bytesPerEvent
	for row := 0; row < rows; row++ {
		off := row * bpe
		for i := 0; i < par; i++ {
			width := f.meta.channelBytes[i]
			out[row*par+i] = f.maskedUint(raw[off:], width, f.meta.masks[i])
			off += width
		}
	}

	return &Matrix{rows: rows, cols: par, kind: KindUint, u64: out}
}

func (f *File) maskedUint(b []byte, width int, mask uint64) uint64 {
	engine := f.meta.ByteOrder

	var v uint64
	switch width {
	case 1:
		v = uint64(b[0])
	case 2:
		v = uint64(engine.Uint16(b))
	case 4:
		v = uint64(engine.Uint32(b))
	default:
		v = engine.Uint64(b)
	}

	if mask != 0 {
		v &= mask
	}

	return v
}
