package fcs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jlumpe/pycyt-old/errs"
)

func TestParseParameter(t *testing.T) {
	kw := map[string]string{
		"$P1N": "FL1-A",
		"$P1B": "32",
		"$P1R": "262144",
		"$P1E": "4.0,0.1",
		"$P1S": "FITC",
		"$P1G": "1.5",
		"$P1L": "488,640",
		"$P1V": "550",
		"$P1D": "Logarithmic,4,0.1",
	}

	p, err := parseParameter(kw, 1)
	require.NoError(t, err)
	require.Equal(t, "FL1-A", p.ShortName)
	require.Equal(t, 32, p.Bits)
	require.Equal(t, uint64(262144), p.Range)
	require.Equal(t, 4.0, p.Amplification.Decades)
	require.Equal(t, 0.1, p.Amplification.Zero)
	require.False(t, p.Amplification.IsLinear())
	require.Equal(t, "FITC", p.LongName)
	require.NotNil(t, p.Gain)
	require.Equal(t, 1.5, *p.Gain)
	require.Equal(t, []int{488, 640}, p.ExcitationWavelengths)
	require.NotNil(t, p.Voltage)
	require.Equal(t, 550.0, *p.Voltage)
	require.NotNil(t, p.Display)
	require.Equal(t, "Logarithmic", p.Display.Scale)
	require.Equal(t, 4.0, p.Display.F1)
}

func TestParseParameterRequired(t *testing.T) {
	base := map[string]string{
		"$P1N": "FSC-A",
		"$P1B": "16",
		"$P1R": "1024",
		"$P1E": "0,0",
	}

	p, err := parseParameter(base, 1)
	require.NoError(t, err)
	require.True(t, p.Amplification.IsLinear())
	require.Nil(t, p.Gain)
	require.Nil(t, p.Display)
	require.Nil(t, p.ExcitationWavelengths)

	for _, missing := range []string{"$P1N", "$P1B", "$P1R", "$P1E"} {
		t.Run("missing "+missing, func(t *testing.T) {
			kw := make(map[string]string, len(base))
			for k, v := range base {
				kw[k] = v
			}
			delete(kw, missing)

			_, err := parseParameter(kw, 1)
			require.ErrorIs(t, err, errs.ErrMissingKeyword)
		})
	}

	t.Run("malformed amplification", func(t *testing.T) {
		kw := map[string]string{"$P1N": "A", "$P1B": "16", "$P1R": "1024", "$P1E": "linear"}
		_, err := parseParameter(kw, 1)
		require.ErrorIs(t, err, errs.ErrInvalidKeywordValue)
	})

	t.Run("malformed optional is ignored", func(t *testing.T) {
		kw := map[string]string{
			"$P1N": "A", "$P1B": "16", "$P1R": "1024", "$P1E": "0,0",
			"$P1G": "high", "$P1L": "488,blue",
		}
		p, err := parseParameter(kw, 1)
		require.NoError(t, err)
		require.Nil(t, p.Gain)
		require.Nil(t, p.ExcitationWavelengths)
	})
}

func TestParseRangeOverflowSaturates(t *testing.T) {
	// 2^64, the conventional full-range value for 64-bit channels.
	r, err := parseRange(map[string]string{"$P1R": "18446744073709551616"}, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), r)

	// Ranges written for large float data can be arbitrarily big (2^167
	// here); parsing must not reject them.
	r, err = parseRange(map[string]string{"$P1R": "187072209578355573530071658587684226515959365500928"}, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), r)

	_, err = parseRange(map[string]string{"$P1R": "12e4"}, 1)
	require.ErrorIs(t, err, errs.ErrInvalidKeywordValue)

	_, err = parseRange(map[string]string{}, 1)
	require.ErrorIs(t, err, errs.ErrMissingKeyword)
}

func TestIntMask(t *testing.T) {
	tests := []struct {
		name    string
		rng     uint64
		bits    int
		want    uint64
		wantErr error
	}{
		{name: "range rounds up", rng: 1000, bits: 16, want: 1023},
		{name: "exact power of two", rng: 65536, bits: 16, want: 0},
		{name: "small range", rng: 256, bits: 16, want: 255},
		{name: "range of two", rng: 2, bits: 8, want: 1},
		{name: "saturated full range", rng: math.MaxUint64, bits: 64, want: 0},
		{name: "needs 64 bits", rng: 1<<63 + 1, bits: 64, want: 0},
		{name: "too wide", rng: 1000, bits: 8, wantErr: errs.ErrRangeWidthMismatch},
		{name: "saturated on narrow channel", rng: math.MaxUint64, bits: 32, wantErr: errs.ErrRangeWidthMismatch},
		{name: "zero range 16-bit", rng: 0, bits: 16, wantErr: errs.ErrInvalidKeywordValue},
		{name: "zero range 64-bit", rng: 0, bits: 64, wantErr: errs.ErrInvalidKeywordValue},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mask, err := intMask(tc.rng, tc.bits)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, mask)
		})
	}
}
