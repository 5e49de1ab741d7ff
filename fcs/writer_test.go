package fcs

import (
	"bytes"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jlumpe/pycyt-old/errs"
	"github.com/jlumpe/pycyt-old/keyword"
)

func writeToBytes(t *testing.T, channels []string, m *Matrix, opts ...WriteOption) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, channels, m, opts...))

	return buf.Bytes()
}

func TestWriteRoundTripFloat32(t *testing.T) {
	channels := []string{"FSC-A", "SSC-A", "FL1-A"}
	values := make([]float32, 100*3)
	for i := range values {
		values[i] = float32(i) * 1.5
	}
	m, err := NewFloat32Matrix(100, 3, values)
	require.NoError(t, err)

	raw := writeToBytes(t, channels, m)

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)

	meta := f.Metadata()
	require.Equal(t, "3", meta.Keywords[keyword.Par])
	require.Equal(t, "100", meta.Keywords[keyword.Tot])
	require.Equal(t, "F", meta.Keywords[keyword.DataType])
	require.Equal(t, DataTypeFloat, meta.DataType)
	require.Equal(t, channels, f.ChannelNames())

	got, err := f.ReadAll()
	require.NoError(t, err)
	require.Equal(t, KindFloat32, got.Kind())
	require.Equal(t, values, got.Float32s())
}

func TestWriteRoundTripFloat64(t *testing.T) {
	channels := []string{"A", "B"}
	values := []float64{1.25, -2.5, 3e100, 0, 42, 1e-300}
	m, err := NewFloat64Matrix(3, 2, values)
	require.NoError(t, err)

	raw := writeToBytes(t, channels, m)

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, DataTypeDouble, f.Metadata().DataType)

	// The 3e100 maximum drives the estimated $PnR far past uint64; the
	// written value keeps its full precision and the parsed range
	// saturates instead of failing the read.
	require.Greater(t, len(f.Metadata().Keywords["$P1R"]), 20)
	require.Equal(t, uint64(math.MaxUint64), f.Metadata().Parameters[0].Range)

	got, err := f.ReadAll()
	require.NoError(t, err)
	require.Equal(t, values, got.Float64s())
}

func TestWriteRoundTripSingleCell(t *testing.T) {
	m, err := NewFloat32Matrix(1, 1, []float32{7})
	require.NoError(t, err)

	raw := writeToBytes(t, []string{"FSC-A"}, m)

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 1, f.Events())

	got, err := f.ReadAll()
	require.NoError(t, err)
	require.Equal(t, []float32{7}, got.Float32s())
}

func TestWriteBigEndianRoundTrip(t *testing.T) {
	values := []float32{1, 2, 3, 4}
	m, err := NewFloat32Matrix(2, 2, values)
	require.NoError(t, err)

	raw := writeToBytes(t, []string{"A", "B"}, m, WithBigEndian())

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "4,3,2,1", f.Metadata().Keywords[keyword.ByteOrd])

	got, err := f.ReadAll()
	require.NoError(t, err)
	require.Equal(t, values, got.Float32s())
}

func TestWriteDelimiterEscaping(t *testing.T) {
	m, err := NewFloat32Matrix(1, 1, []float32{1})
	require.NoError(t, err)

	// A value containing the delimiter byte must survive through the
	// doubled-delimiter escape.
	raw := writeToBytes(t, []string{"FSC-A"}, m,
		WithKeywords(map[string]string{"COMMENT": "a/b"}))

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "a/b", f.Metadata().Keywords["COMMENT"])
}

func TestWriteCustomDelimiter(t *testing.T) {
	m, err := NewFloat32Matrix(1, 2, []float32{1, 2})
	require.NoError(t, err)

	raw := writeToBytes(t, []string{"A", "B"}, m, WithDelimiter('|'))

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, f.ChannelNames())
}

func TestWriteRangeEstimate(t *testing.T) {
	// Maxima near 1024 in both channels give an estimated range of 2^10.
	values := []float32{1000, 900, 1024, 800}
	m, err := NewFloat32Matrix(2, 2, values)
	require.NoError(t, err)

	raw := writeToBytes(t, []string{"A", "B"}, m)

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "1024", f.Metadata().Keywords["$P1R"])
	require.Equal(t, "1024", f.Metadata().Keywords["$P2R"])
}

func TestWriteExplicitRanges(t *testing.T) {
	m, err := NewFloat32Matrix(1, 2, []float32{1, 2})
	require.NoError(t, err)

	raw := writeToBytes(t, []string{"A", "B"}, m, WithRanges([]uint64{4096, 262144}))

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "4096", f.Metadata().Keywords["$P1R"])
	require.Equal(t, "262144", f.Metadata().Keywords["$P2R"])
}

func TestWriteSpillover(t *testing.T) {
	m, err := NewFloat32Matrix(1, 2, []float32{1, 2})
	require.NoError(t, err)

	s, err := NewSpillover([]string{"A", "B"}, []float64{1, 0.05, 0.1, 1})
	require.NoError(t, err)

	raw := writeToBytes(t, []string{"A", "B"}, m, WithSpillover(s))

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	require.NotNil(t, f.Metadata().Spillover)
	require.InDelta(t, 0.05, f.Metadata().Spillover.Matrix.At(0, 1), 1e-12)
}

func TestWriteOffsetsConsistent(t *testing.T) {
	m, err := NewFloat32Matrix(5, 2, make([]float32, 10))
	require.NoError(t, err)

	raw := writeToBytes(t, []string{"A", "B"}, m)

	meta, err := ReadMetadata(bytes.NewReader(raw))
	require.NoError(t, err)

	// The file must end exactly at the declared DATA end.
	require.Equal(t, meta.Data.End+1, int64(len(raw)))
	require.Equal(t, int64(5*2*4), meta.Data.Length())

	// The text keywords carry the same offsets, zero padded to 12 digits.
	require.Len(t, meta.Keywords[keyword.BeginData], 12)
	begin, err := strconv.ParseInt(meta.Keywords[keyword.BeginData], 10, 64)
	require.NoError(t, err)
	require.Equal(t, meta.Data.Begin, begin)
	end, err := strconv.ParseInt(meta.Keywords[keyword.EndData], 10, 64)
	require.NoError(t, err)
	require.Equal(t, meta.Data.End, end)
}

func TestWriteOffsetOverflowRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("writes a >100MB file in memory")
	}

	// 26M single-channel float32 events push the DATA end offset past the
	// 8-digit header capacity.
	const rows = 26_000_000
	values := make([]float32, rows)
	values[0] = 1.5
	values[rows-1] = 7.25
	m, err := NewFloat32Matrix(rows, 1, values)
	require.NoError(t, err)

	raw := writeToBytes(t, []string{"FSC-A"}, m)

	// Header DATA offset fields hold the literal zero sentinel.
	require.Equal(t, "       0", string(raw[26:34]))
	require.Equal(t, "       0", string(raw[34:42]))

	meta, err := ReadMetadata(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Greater(t, meta.Data.End, int64(99_999_999))
	require.Equal(t, int64(rows*4), meta.Data.Length())
	require.Equal(t, int64(len(raw)), meta.Data.End+1)

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)

	head, err := f.ReadMatrix(0, 1)
	require.NoError(t, err)
	require.Equal(t, []float32{1.5}, head.Float32s())

	tail, err := f.ReadMatrix(rows-1, rows)
	require.NoError(t, err)
	require.Equal(t, []float32{7.25}, tail.Float32s())
}

func TestWriteValidation(t *testing.T) {
	good, err := NewFloat32Matrix(1, 2, []float32{1, 2})
	require.NoError(t, err)

	tests := []struct {
		name     string
		channels []string
		m        *Matrix
		opts     []WriteOption
		want     error
	}{
		{
			name:     "channel with comma",
			channels: []string{"A,B", "C"},
			m:        good,
			want:     errs.ErrInvalidChannelName,
		},
		{
			name:     "channel with delimiter byte",
			channels: []string{"A/B", "C"},
			m:        good,
			want:     errs.ErrInvalidChannelName,
		},
		{
			name:     "empty channel name",
			channels: []string{"", "C"},
			m:        good,
			want:     errs.ErrInvalidChannelName,
		},
		{
			name:     "duplicate channels",
			channels: []string{"A", "A"},
			m:        good,
			want:     errs.ErrDuplicateChannelName,
		},
		{
			name:     "column count mismatch",
			channels: []string{"A"},
			m:        good,
			want:     errs.ErrMatrixShape,
		},
		{
			name:     "ranges length mismatch",
			channels: []string{"A", "B"},
			m:        good,
			opts:     []WriteOption{WithRanges([]uint64{1024})},
			want:     errs.ErrMatrixShape,
		},
		{
			name:     "bad delimiter",
			channels: []string{"A", "B"},
			m:        good,
			opts:     []WriteOption{WithDelimiter(0)},
			want:     errs.ErrInvalidDelimiter,
		},
		{
			name:     "bad user keyword name",
			channels: []string{"A", "B"},
			m:        good,
			opts:     []WriteOption{WithKeywords(map[string]string{"": "x"})},
			want:     errs.ErrInvalidKeywordName,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Write(&buf, tc.channels, tc.m, tc.opts...)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestWriteIntegerMatrixRejected(t *testing.T) {
	m := &Matrix{rows: 1, cols: 1, kind: KindUint, u64: []uint64{1}}

	var buf bytes.Buffer
	err := Write(&buf, []string{"A"}, m)
	require.ErrorIs(t, err, errs.ErrInvalidMatrixType)
}

func TestWriteTemplateKeywordExpansion(t *testing.T) {
	m, err := NewFloat32Matrix(1, 2, []float32{1, 2})
	require.NoError(t, err)

	raw := writeToBytes(t, []string{"A", "B"}, m,
		WithKeywords(map[string]string{
			keyword.ParamRange: "4096",
			"$PnV":             "550",
			// Expands to $P1B/$P2B, which collide with derived values and
			// must lose to them.
			keyword.ParamBits: "99",
		}), WithQuiet())

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	kw := f.Metadata().Keywords
	require.Equal(t, "4096", kw["$P1R"])
	require.Equal(t, "4096", kw["$P2R"])
	require.Equal(t, "550", kw["$P1V"])
	require.Equal(t, "550", kw["$P2V"])
	require.Equal(t, "32", kw["$P1B"])
	require.Equal(t, "32", kw["$P2B"])
}

func TestWriteDerivedKeywordWins(t *testing.T) {
	m, err := NewFloat32Matrix(2, 1, []float32{1, 2})
	require.NoError(t, err)

	raw := writeToBytes(t, []string{"A"}, m,
		WithKeywords(map[string]string{keyword.Tot: "999"}), WithQuiet())

	f, err := NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 2, f.Events())
	require.Equal(t, "2", f.Metadata().Keywords[keyword.Tot])
}
