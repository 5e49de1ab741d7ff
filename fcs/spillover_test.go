package fcs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestParseSpillover(t *testing.T) {
	s, err := ParseSpillover("2,FL1-A,FL2-A,1,0.12,0.034,1")
	require.NoError(t, err)
	require.Equal(t, []string{"FL1-A", "FL2-A"}, s.Channels)
	require.InDelta(t, 0.12, s.Matrix.At(0, 1), 1e-12)
	require.InDelta(t, 0.034, s.Matrix.At(1, 0), 1e-12)
}

func TestParseSpilloverErrors(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"bad count", "x,FL1,FL2,1,0,0,1"},
		{"count below two", "1,FL1,1"},
		{"field count mismatch", "2,FL1,FL2,1,0"},
		{"bad coefficient", "2,FL1,FL2,1,zero,0,1"},
		{"duplicate channel", "2,FL1,FL1,1,0,0,1"},
		{"diagonal not one", "2,FL1,FL2,1,0,0,0.9"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSpillover(tc.value)
			require.Error(t, err)
		})
	}
}

func TestSpilloverKeywordRoundTrip(t *testing.T) {
	s, err := NewSpillover([]string{"FL1-A", "FL2-A", "FL3-A"}, []float64{
		1, 0.1, 0.02,
		0.05, 1, 0.3,
		0, 0.07, 1,
	})
	require.NoError(t, err)

	parsed, err := ParseSpillover(s.Keyword())
	require.NoError(t, err)
	require.Equal(t, s.Channels, parsed.Channels)
	require.True(t, mat.EqualApprox(s.Matrix, parsed.Matrix, 1e-15))
}

func TestSpilloverExpanded(t *testing.T) {
	s, err := NewSpillover([]string{"FL2-A", "FL1-A"}, []float64{1, 0.2, 0.1, 1})
	require.NoError(t, err)

	// Declared channels appear out of file order; untouched channels get
	// identity rows.
	full, err := s.Expanded([]string{"FSC-A", "FL1-A", "FL2-A"})
	require.NoError(t, err)

	want := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0.1,
		0, 0.2, 1,
	})
	require.True(t, mat.EqualApprox(want, full, 1e-15))

	t.Run("unknown channel", func(t *testing.T) {
		_, err := s.Expanded([]string{"FSC-A", "FL1-A"})
		require.Error(t, err)
	})
}

func TestPseudoInverse(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 0.2, 0.1, 1})

	pinv, err := pseudoInverse(a)
	require.NoError(t, err)

	var prod mat.Dense
	prod.Mul(pinv, a)
	require.True(t, mat.EqualApprox(eye(2), &prod, 1e-12))
}

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}

	return d
}
