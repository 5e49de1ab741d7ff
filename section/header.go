package section

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jlumpe/pycyt-old/errs"
)

// Segment is an inclusive (begin, end) byte-offset pair for one file
// segment.
type Segment struct {
	Begin int64
	End   int64
}

// Length returns the byte length of the segment.
func (s Segment) Length() int64 {
	return s.End - s.Begin + 1
}

// IsSentinel reports whether the pair is the "too large to encode" sentinel
// (all values non-positive). For the DATA segment this means the true
// offsets live in the $BEGINDATA/$ENDDATA keywords. Files in the wild also
// use -1 or 0 pairs for an absent ANALYSIS segment.
func (s Segment) IsSentinel() bool {
	return s.Begin <= 0 && s.End <= 0
}

// Header is the fixed-size header at the start of an FCS file: a 6-byte
// version tag, 4 reserved bytes, and (begin, end) offset pairs for the
// TEXT, DATA and ANALYSIS segments.
type Header struct {
	Version  string
	Text     Segment
	Data     Segment
	Analysis Segment
}

// IsSupportedVersion reports whether the header carries the exact version
// tag this codec implements. Other tags in the FCS family are decoded on a
// best-effort basis.
func (h *Header) IsSupportedVersion() bool {
	return h.Version == VersionTag
}

// ParseHeader parses the fixed header from a byte slice.
//
// A version tag outside the FCS family is a fatal corruption error. A tag
// with the family prefix but a different revision parses successfully; the
// caller decides whether to warn. Offset fields are 8 right-justified ASCII
// decimal characters; blank fields parse as zero.
//
// Returns:
//   - Header: Parsed header
//   - error: errs.ErrInvalidHeaderSize, errs.ErrInvalidVersionTag or
//     errs.ErrInvalidOffsets
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, errs.ErrInvalidHeaderSize
	}

	h := Header{Version: string(data[:VersionTagSize])}
	if !strings.HasPrefix(h.Version, VersionPrefix) {
		return Header{}, errs.ErrInvalidVersionTag
	}

	fields := make([]int64, 6)
	pos := VersionTagSize + ReservedSize
	for i := range fields {
		raw := data[pos : pos+OffsetFieldWidth]
		pos += OffsetFieldWidth

		v, err := parseOffsetField(raw)
		if err != nil {
			return Header{}, fmt.Errorf("%w: field %d %q", errs.ErrInvalidOffsets, i, raw)
		}
		fields[i] = v
	}

	h.Text = Segment{Begin: fields[0], End: fields[1]}
	h.Data = Segment{Begin: fields[2], End: fields[3]}
	h.Analysis = Segment{Begin: fields[4], End: fields[5]}

	return h, nil
}

// Bytes serializes the header into its fixed 58-byte layout.
//
// Offsets larger than MaxHeaderOffset are emitted as the zero sentinel; the
// caller is responsible for recording the true values in the TEXT segment.
func (h *Header) Bytes() []byte {
	b := make([]byte, 0, HeaderSize)
	b = append(b, h.Version...)
	b = append(b, bytes.Repeat([]byte{' '}, ReservedSize)...)

	for _, seg := range []Segment{h.Text, h.Data, h.Analysis} {
		begin, end := seg.Begin, seg.End
		if end > MaxHeaderOffset {
			begin, end = 0, 0
		}
		b = appendOffsetField(b, begin)
		b = appendOffsetField(b, end)
	}

	return b
}

func parseOffsetField(raw []byte) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return 0, nil
	}

	return strconv.ParseInt(s, 10, 64)
}

func appendOffsetField(b []byte, v int64) []byte {
	s := strconv.FormatInt(v, 10)
	for i := len(s); i < OffsetFieldWidth; i++ {
		b = append(b, ' ')
	}

	return append(b, s...)
}
