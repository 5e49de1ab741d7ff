package fcs

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jlumpe/pycyt-old/errs"
)

// NumericKind identifies the element type of a decoded Matrix or Column.
type NumericKind uint8

const (
	// KindFloat32 holds IEEE 754 single-precision values ($DATATYPE F).
	KindFloat32 NumericKind = iota + 1
	// KindFloat64 holds double-precision values ($DATATYPE D).
	KindFloat64
	// KindUint holds unsigned integer values ($DATATYPE I), widened to
	// uint64 regardless of the channel's declared bit width.
	KindUint
)

func (k NumericKind) String() string {
	switch k {
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	case KindUint:
		return "Uint"
	default:
		return "Unknown"
	}
}

// Matrix is a homogeneous two-dimensional event matrix in row-major order:
// rows are events, columns are channels in declared order, and the channel
// index varies fastest. Once returned by a read, the matrix is owned
// exclusively by the caller; the codec keeps no reference to it.
type Matrix struct {
	rows int
	cols int
	kind NumericKind

	f32 []float32
	f64 []float64
	u64 []uint64
}

// NewFloat32Matrix wraps a row-major float32 slice as a rows×cols matrix.
// The slice is used directly, not copied.
func NewFloat32Matrix(rows, cols int, values []float32) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(values) != rows*cols {
		return nil, errs.ErrMatrixShape
	}

	return &Matrix{rows: rows, cols: cols, kind: KindFloat32, f32: values}, nil
}

// NewFloat64Matrix wraps a row-major float64 slice as a rows×cols matrix.
// The slice is used directly, not copied.
func NewFloat64Matrix(rows, cols int, values []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(values) != rows*cols {
		return nil, errs.ErrMatrixShape
	}

	return &Matrix{rows: rows, cols: cols, kind: KindFloat64, f64: values}, nil
}

// Rows returns the number of events.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of channels.
func (m *Matrix) Cols() int { return m.cols }

// Kind returns the element type.
func (m *Matrix) Kind() NumericKind { return m.kind }

// At returns the element at (row, col) converted to float64.
func (m *Matrix) At(row, col int) float64 {
	i := row*m.cols + col
	switch m.kind {
	case KindFloat32:
		return float64(m.f32[i])
	case KindFloat64:
		return m.f64[i]
	case KindUint:
		return float64(m.u64[i])
	default:
		panic("fcs: matrix has no element kind")
	}
}

// Float32s returns the backing row-major slice, or nil if the matrix does
// not hold float32 values.
func (m *Matrix) Float32s() []float32 { return m.f32 }

// Float64s returns the backing row-major slice, or nil if the matrix does
// not hold float64 values.
func (m *Matrix) Float64s() []float64 { return m.f64 }

// Uints returns the backing row-major slice of widened integer values, or
// nil if the matrix does not hold integers.
func (m *Matrix) Uints() []uint64 { return m.u64 }

// Dense copies the matrix into a gonum dense matrix of float64, the form
// downstream gating and transform code consumes.
func (m *Matrix) Dense() *mat.Dense {
	out := mat.NewDense(m.rows, m.cols, nil)
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			out.Set(r, c, m.At(r, c))
		}
	}

	return out
}

func denseToMatrix(d *mat.Dense) *Matrix {
	rows, cols := d.Dims()
	values := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		copy(values[r*cols:(r+1)*cols], d.RawRowView(r))
	}

	return &Matrix{rows: rows, cols: cols, kind: KindFloat64, f64: values}
}

// Column is one decoded channel of a structured-record read. Exactly one of
// Uints, Float32s or Float64s is populated, according to Kind. Integer
// columns are widened to uint64 with the channel's bit mask already
// applied.
type Column struct {
	Name string
	Bits int
	Kind NumericKind

	Uints    []uint64
	Float32s []float32
	Float64s []float64
}

// EventList is the structured-record decode of an event slice: one typed
// column per channel, in declared order. It represents the same events as
// the matrix layout but preserves each channel's own width, which matters
// when integer channels have heterogeneous widths.
type EventList struct {
	rows    int
	Columns []Column
}

// Rows returns the number of decoded events.
func (l *EventList) Rows() int { return l.rows }

// ChannelNames returns the column names in declared order.
func (l *EventList) ChannelNames() []string {
	names := make([]string, len(l.Columns))
	for i, col := range l.Columns {
		names[i] = col.Name
	}

	return names
}

// Matrix copies the columns into a homogeneous matrix. Integer columns are
// widened to uint64; float columns keep their precision. This is the
// conversion the matrix layout uses when channel widths differ.
func (l *EventList) Matrix() *Matrix {
	cols := len(l.Columns)
	m := &Matrix{rows: l.rows, cols: cols}
	if cols == 0 {
		m.kind = KindFloat64
		m.f64 = []float64{}
		return m
	}

	m.kind = l.Columns[0].Kind
	switch m.kind {
	case KindFloat32:
		m.f32 = make([]float32, l.rows*cols)
		for c, col := range l.Columns {
			for r, v := range col.Float32s {
				m.f32[r*cols+c] = v
			}
		}
	case KindFloat64:
		m.f64 = make([]float64, l.rows*cols)
		for c, col := range l.Columns {
			for r, v := range col.Float64s {
				m.f64[r*cols+c] = v
			}
		}
	case KindUint:
		m.u64 = make([]uint64, l.rows*cols)
		for c, col := range l.Columns {
			for r, v := range col.Uints {
				m.u64[r*cols+c] = v
			}
		}
	}

	return m
}
