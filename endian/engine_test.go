package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jlumpe/pycyt-old/errs"
)

func TestCheckEndianness(t *testing.T) {
	engine := CheckEndianness()
	require.NotNil(t, engine)

	// The detected engine must agree with how the host lays out a uint16.
	buf := make([]byte, 2)
	engine.PutUint16(buf, 0x0102)
	if IsNativeLittleEndian() {
		require.Equal(t, []byte{0x02, 0x01}, buf)
	} else {
		require.Equal(t, []byte{0x01, 0x02}, buf)
	}
}

func TestCompareNativeEndian(t *testing.T) {
	require.True(t, CompareNativeEndian(CheckEndianness()))

	if IsNativeLittleEndian() {
		require.True(t, CompareNativeEndian(GetLittleEndianEngine()))
		require.False(t, CompareNativeEndian(GetBigEndianEngine()))
	} else {
		require.True(t, CompareNativeEndian(GetBigEndianEngine()))
		require.False(t, CompareNativeEndian(GetLittleEndianEngine()))
	}
}

func TestParseByteOrder(t *testing.T) {
	t.Run("Little endian", func(t *testing.T) {
		engine, err := ParseByteOrder("1,2,3,4")
		require.NoError(t, err)
		require.Equal(t, EndianEngine(binary.LittleEndian), engine)
	})

	t.Run("Big endian", func(t *testing.T) {
		engine, err := ParseByteOrder("4,3,2,1")
		require.NoError(t, err)
		require.Equal(t, EndianEngine(binary.BigEndian), engine)
	})

	t.Run("Mixed ordering is unsupported", func(t *testing.T) {
		for _, value := range []string{"3,4,1,2", "2,1,4,3", "1,2", "", "little"} {
			_, err := ParseByteOrder(value)
			require.Error(t, err)
			require.ErrorIs(t, err, errs.ErrUnsupportedByteOrder)
			require.ErrorIs(t, err, errs.ErrUnsupported)
		}
	})
}

func TestKeyword(t *testing.T) {
	require.Equal(t, "1,2,3,4", Keyword(GetLittleEndianEngine()))
	require.Equal(t, "4,3,2,1", Keyword(GetBigEndianEngine()))
}

func TestKeywordRoundTrip(t *testing.T) {
	for _, value := range []string{LittleEndianKeyword, BigEndianKeyword} {
		engine, err := ParseByteOrder(value)
		require.NoError(t, err)
		require.Equal(t, value, Keyword(engine))
	}
}
