package fcs

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/jlumpe/pycyt-old/errs"
)

// Spillover is a declared cross-talk matrix between channels. Rows
// correspond to fluorochromes and columns to detectors: element (i, j) is
// the spillover from fluorochrome i into detector j. The declared matrix
// may cover only a subset of the file's channels; Expanded fills the rest
// with identity.
type Spillover struct {
	Channels []string
	Matrix   *mat.Dense
}

// NewSpillover builds a spillover matrix from channel names and a row-major
// n×n value slice.
func NewSpillover(channels []string, values []float64) (*Spillover, error) {
	n := len(channels)
	if n < 2 {
		return nil, fmt.Errorf("%w: spillover needs at least two channels", errs.ErrMatrixShape)
	}
	if len(values) != n*n {
		return nil, fmt.Errorf("%w: spillover values are not %dx%d", errs.ErrMatrixShape, n, n)
	}

	return &Spillover{
		Channels: append([]string(nil), channels...),
		Matrix:   mat.NewDense(n, n, append([]float64(nil), values...)),
	}, nil
}

// ParseSpillover parses a $SPILLOVER (or SPILL) keyword value:
// "n,name1,...,namen,v11,v12,...,vnn".
func ParseSpillover(value string) (*Spillover, error) {
	fields := strings.Split(value, ",")
	if len(fields) < 1 {
		return nil, fmt.Errorf("empty spillover value")
	}

	n, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || n < 2 {
		return nil, fmt.Errorf("invalid spillover channel count %q", fields[0])
	}
	if len(fields) != 1+n+n*n {
		return nil, fmt.Errorf("spillover value has %d fields, want %d", len(fields), 1+n+n*n)
	}

	channels := make([]string, n)
	for i := range channels {
		channels[i] = fields[1+i]
	}

	values := make([]float64, n*n)
	for i := range values {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[1+n+i]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid spillover coefficient %q", fields[1+n+i])
		}
		values[i] = v
	}

	s := &Spillover{Channels: channels, Matrix: mat.NewDense(n, n, values)}
	if err := s.validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// validate checks that every declared channel is unique and that the
// diagonal is exactly 1.0 for the declared sub-matrix.
func (s *Spillover) validate() error {
	seen := make(map[string]struct{}, len(s.Channels))
	for i, name := range s.Channels {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate spillover channel %q", name)
		}
		seen[name] = struct{}{}

		if d := s.Matrix.At(i, i); d != 1.0 {
			return fmt.Errorf("spillover diagonal for %q is %v, want exactly 1", name, d)
		}
	}

	return nil
}

// Keyword serializes the spillover into the $SPILLOVER value format.
func (s *Spillover) Keyword() string {
	n := len(s.Channels)
	entries := make([]string, 0, 1+n+n*n)
	entries = append(entries, strconv.Itoa(n))
	entries = append(entries, s.Channels...)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			entries = append(entries, strconv.FormatFloat(s.Matrix.At(r, c), 'g', -1, 64))
		}
	}

	return strings.Join(entries, ",")
}

// Expanded returns the spillover expanded to cover every channel in all,
// identity elsewhere. Every declared channel must appear in all.
func (s *Spillover) Expanded(all []string) (*mat.Dense, error) {
	index := make(map[string]int, len(all))
	for i, name := range all {
		index[name] = i
	}

	pos := make([]int, len(s.Channels))
	for i, name := range s.Channels {
		j, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("spillover channel %q is not a file channel", name)
		}
		pos[i] = j
	}

	p := len(all)
	out := mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		out.Set(i, i, 1)
	}
	for r, pr := range pos {
		for c, pc := range pos {
			out.Set(pr, pc, s.Matrix.At(r, c))
		}
	}

	return out, nil
}

// pseudoInverse computes the Moore-Penrose pseudo-inverse via thin SVD,
// zeroing singular values below the usual numpy-style tolerance.
func pseudoInverse(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, fmt.Errorf("pycyt: SVD factorization failed")
	}

	rows, cols := a.Dims()
	values := svd.Values(nil)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := 0.0
	if len(values) > 0 {
		tol = float64(max(rows, cols)) * values[0] * 2.220446049250313e-16
	}

	// pinv = V * S^+ * U^T
	k := len(values)
	sinv := mat.NewDense(k, k, nil)
	for i, s := range values {
		if s > tol {
			sinv.Set(i, i, 1/s)
		}
	}

	var tmp, pinv mat.Dense
	tmp.Mul(&v, sinv)
	pinv.Mul(&tmp, u.T())

	return &pinv, nil
}
