package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetBuffer(t *testing.T) {
	t.Run("Exact size", func(t *testing.T) {
		buf, cleanup := GetBuffer(100)
		defer cleanup()

		require.Len(t, buf, 100)
	})

	t.Run("Reuse after cleanup", func(t *testing.T) {
		buf, cleanup := GetBuffer(16)
		for i := range buf {
			buf[i] = 0xAB
		}
		cleanup()

		buf2, cleanup2 := GetBuffer(16)
		defer cleanup2()
		require.Len(t, buf2, 16)
	})

	t.Run("Grows beyond default", func(t *testing.T) {
		buf, cleanup := GetBuffer(eventBufferDefaultSize * 4)
		defer cleanup()

		require.Len(t, buf, eventBufferDefaultSize*4)
	})

	t.Run("Zero size", func(t *testing.T) {
		buf, cleanup := GetBuffer(0)
		defer cleanup()

		require.Empty(t, buf)
	})
}
