// Package errs defines the sentinel errors shared by the pycyt packages.
//
// Errors fall into three classes:
//
//   - Corruption: the file violates the FCS framing or keyword rules and
//     cannot be read. Specific corruption sentinels wrap ErrCorrupted, so
//     errors.Is(err, errs.ErrCorrupted) matches all of them.
//   - Unsupported: the file is recognizable FCS but uses a mode, datatype,
//     byte order or bit width outside the supported subset. Specific
//     sentinels wrap ErrUnsupported.
//   - Caller contract: the caller passed invalid arguments (bad slice
//     bounds, duplicate channel names, a compensation request the file
//     cannot satisfy). These are plain sentinels with no class.
//
// Recoverable conditions (version skew, spillover parse failures, keyword
// pattern mismatches on write) are never returned as errors; they are
// logged and processing continues with a defined fallback.
package errs

import (
	"errors"
	"fmt"
)

// Error classes.
var (
	// ErrCorrupted indicates the file is structurally invalid FCS.
	ErrCorrupted = errors.New("pycyt: corrupted FCS file")

	// ErrUnsupported indicates a well-formed file outside the supported
	// subset of the FCS 3.1 standard.
	ErrUnsupported = errors.New("pycyt: unsupported FCS feature")
)

// Corruption errors.
var (
	// ErrInvalidVersionTag indicates the first 6 bytes are not an FCS version tag.
	ErrInvalidVersionTag = fmt.Errorf("%w: invalid version tag", ErrCorrupted)

	// ErrInvalidHeaderSize indicates the file is too short to hold the fixed header.
	ErrInvalidHeaderSize = fmt.Errorf("%w: truncated header", ErrCorrupted)

	// ErrInvalidOffsets indicates a header offset field is not a decimal integer.
	ErrInvalidOffsets = fmt.Errorf("%w: malformed segment offsets", ErrCorrupted)

	// ErrInvalidTextSegment indicates the TEXT segment violates the
	// delimiter framing rule (mismatched leading/trailing delimiter, or an
	// empty first key).
	ErrInvalidTextSegment = fmt.Errorf("%w: malformed TEXT segment", ErrCorrupted)

	// ErrKeyValueMismatch indicates the TEXT segment tokenized into an odd
	// number of fields.
	ErrKeyValueMismatch = fmt.Errorf("%w: TEXT key count does not equal value count", ErrCorrupted)

	// ErrMissingKeyword indicates a required keyword is absent from the TEXT segment.
	ErrMissingKeyword = fmt.Errorf("%w: missing required keyword", ErrCorrupted)

	// ErrInvalidKeywordValue indicates a required keyword value failed to parse.
	ErrInvalidKeywordValue = fmt.Errorf("%w: invalid keyword value", ErrCorrupted)

	// ErrRangeWidthMismatch indicates a $PnR range that needs more bits
	// than the channel's declared $PnB width.
	ErrRangeWidthMismatch = fmt.Errorf("%w: $PnR incompatible with $PnB", ErrCorrupted)

	// ErrInvalidDataLength indicates the DATA segment is shorter than
	// $TOT events of the declared per-event width.
	ErrInvalidDataLength = fmt.Errorf("%w: DATA segment inconsistent with $TOT and $PnB", ErrCorrupted)
)

// Unsupported errors.
var (
	// ErrUnsupportedMode indicates a $MODE other than list mode ("L").
	ErrUnsupportedMode = fmt.Errorf("%w: only list mode ($MODE=L) is supported", ErrUnsupported)

	// ErrUnsupportedDataType indicates a $DATATYPE other than F, D or I.
	ErrUnsupportedDataType = fmt.Errorf("%w: unsupported $DATATYPE", ErrUnsupported)

	// ErrUnsupportedByteOrder indicates a $BYTEORD that is neither
	// "1,2,3,4" nor "4,3,2,1".
	ErrUnsupportedByteOrder = fmt.Errorf("%w: non-canonical $BYTEORD", ErrUnsupported)

	// ErrUnsupportedBitWidth indicates an integer $PnB outside {8,16,32,64}.
	ErrUnsupportedBitWidth = fmt.Errorf("%w: unsupported integer bit width", ErrUnsupported)

	// ErrInvalidFloatWidth indicates a float file whose $PnB values are not
	// uniformly 32 (type F) or 64 (type D).
	ErrInvalidFloatWidth = fmt.Errorf("%w: float files require uniform $PnB", ErrCorrupted)
)

// Caller-contract errors.
var (
	// ErrInvalidSlice indicates an event slice outside [0, $TOT].
	ErrInvalidSlice = errors.New("pycyt: event slice out of range")

	// ErrInvalidChannelName indicates a channel name that is not printable
	// ASCII, contains a comma, or contains the delimiter.
	ErrInvalidChannelName = errors.New("pycyt: invalid channel name")

	// ErrDuplicateChannelName indicates a channel name used more than once.
	ErrDuplicateChannelName = errors.New("pycyt: duplicate channel name")

	// ErrInvalidDelimiter indicates a TEXT delimiter outside ASCII 1-126,
	// or the reserved '$' character.
	ErrInvalidDelimiter = errors.New("pycyt: invalid TEXT delimiter")

	// ErrInvalidKeywordName indicates a caller-supplied keyword that is not
	// printable ASCII or starts with the delimiter.
	ErrInvalidKeywordName = errors.New("pycyt: invalid keyword name")

	// ErrInvalidMatrixType indicates a write with a matrix that is not
	// float32 or float64.
	ErrInvalidMatrixType = errors.New("pycyt: matrix must be float32 or float64")

	// ErrMatrixShape indicates a matrix whose column count does not match
	// the channel list, or a spillover/compensation matrix of the wrong size.
	ErrMatrixShape = errors.New("pycyt: matrix shape mismatch")

	// ErrNoSpillover indicates a compensation request against a file that
	// declares no spillover matrix.
	ErrNoSpillover = errors.New("pycyt: compensation requested but file has no spillover matrix")

	// ErrFileTooLarge indicates segment offsets that cannot be represented
	// even through the TEXT-segment fallback fields.
	ErrFileTooLarge = errors.New("pycyt: file too large to represent FCS offsets")
)

// Writer-internal invariant violation: the stream position after emitting a
// segment did not match the precomputed offset. Indicates a bug, never bad
// input.
var ErrOffsetMismatch = errors.New("pycyt: internal offset computation mismatch")
