package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWarnWritesThroughModuleLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	defer SetLogger(prev)

	SetLogger(zerolog.New(&buf))
	Warn().Str("keyword", "$SPILLOVER").Msg("ignoring unparseable spillover matrix")

	out := buf.String()
	require.Contains(t, out, `"level":"warn"`)
	require.Contains(t, out, "ignoring unparseable spillover matrix")
	require.Contains(t, out, "$SPILLOVER")
}

func TestSetLoggerNopSilences(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	defer SetLogger(prev)

	SetLogger(zerolog.Nop())
	Warn().Msg("should not appear")
	require.Empty(t, buf.String())
}
