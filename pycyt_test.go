package pycyt_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pycyt "github.com/jlumpe/pycyt-old"
	"github.com/jlumpe/pycyt-old/fcs"
)

func TestWriteFileOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.fcs")

	channels := []string{"FSC-A", "SSC-A", "FL1-A"}
	values := make([]float32, 100*3)
	for i := range values {
		values[i] = float32(i)
	}
	m, err := fcs.NewFloat32Matrix(100, 3, values)
	require.NoError(t, err)

	require.NoError(t, pycyt.WriteFile(path, channels, m))

	f, err := pycyt.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, channels, f.ChannelNames())
	require.Equal(t, 100, f.Events())

	meta := f.Metadata()
	require.Equal(t, "3", meta.Keywords["$PAR"])
	require.Equal(t, "100", meta.Keywords["$TOT"])
	require.Equal(t, "F", meta.Keywords["$DATATYPE"])
	require.Equal(t, "L", meta.Keywords["$MODE"])
	require.Equal(t, "0", meta.Keywords["$NEXTDATA"])

	got, err := f.ReadAll()
	require.NoError(t, err)
	require.Equal(t, values, got.Float32s())
}

func TestOpenReader(t *testing.T) {
	m, err := fcs.NewFloat64Matrix(2, 1, []float64{1.5, 2.5})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, pycyt.Write(&buf, []string{"FSC-A"}, m))

	f, err := pycyt.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 2, f.Events())

	meta, err := pycyt.ReadMetadata(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, f.Metadata().Fingerprint(), meta.Fingerprint())
}
