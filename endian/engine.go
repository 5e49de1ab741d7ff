// Package endian provides byte order utilities for the FCS codec.
//
// It combines the ByteOrder and AppendByteOrder interfaces from
// encoding/binary into a single EndianEngine interface, detects the host's
// native order, and maps engines to and from the two canonical $BYTEORD
// keyword values defined by the FCS 3.1 standard ("1,2,3,4" for
// little-endian, "4,3,2,1" for big-endian).
//
// All functions are safe for concurrent use; the returned engines are the
// stateless binary.LittleEndian and binary.BigEndian values.
package endian

import (
	"encoding/binary"
	"unsafe"

	"github.com/jlumpe/pycyt-old/errs"
)

// Canonical $BYTEORD keyword values.
const (
	LittleEndianKeyword = "1,2,3,4"
	BigEndianKeyword    = "4,3,2,1"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface. It is satisfied by binary.LittleEndian and
// binary.BigEndian.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() EndianEngine {
	// 0x0100 is 256. On a little-endian host the LSB (0x00) is stored
	// first; on a big-endian host the MSB (0x01) is.
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeLittleEndian reports whether the host is little-endian.
func IsNativeLittleEndian() bool {
	return CheckEndianness() == EndianEngine(binary.LittleEndian)
}

// CompareNativeEndian reports whether the given engine matches the host's
// native byte order.
func CompareNativeEndian(engine EndianEngine) bool {
	return engine == CheckEndianness()
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// ParseByteOrder resolves a $BYTEORD keyword value to an engine.
//
// Only the two canonical orderings are accepted; any other value (including
// the mixed orderings some historic instruments emitted) returns
// errs.ErrUnsupportedByteOrder.
func ParseByteOrder(value string) (EndianEngine, error) {
	switch value {
	case LittleEndianKeyword:
		return binary.LittleEndian, nil
	case BigEndianKeyword:
		return binary.BigEndian, nil
	default:
		return nil, errs.ErrUnsupportedByteOrder
	}
}

// Keyword returns the $BYTEORD value for the given engine.
func Keyword(engine EndianEngine) string {
	if engine == EndianEngine(binary.BigEndian) {
		return BigEndianKeyword
	}

	return LittleEndianKeyword
}
