package fcs

import (
	"fmt"
	"io"
	"math/bits"
	"strings"

	"github.com/jlumpe/pycyt-old/endian"
	"github.com/jlumpe/pycyt-old/errs"
	"github.com/jlumpe/pycyt-old/internal/hash"
	"github.com/jlumpe/pycyt-old/internal/logging"
	"github.com/jlumpe/pycyt-old/keyword"
	"github.com/jlumpe/pycyt-old/section"
)

// DataType is the numeric encoding of the DATA segment ($DATATYPE).
type DataType byte

const (
	// DataTypeFloat is 32-bit IEEE 754 float ($DATATYPE F).
	DataTypeFloat DataType = 'F'
	// DataTypeDouble is 64-bit IEEE 754 float ($DATATYPE D).
	DataTypeDouble DataType = 'D'
	// DataTypeInt is unsigned integer with per-channel width ($DATATYPE I).
	DataTypeInt DataType = 'I'
)

func (t DataType) String() string {
	switch t {
	case DataTypeFloat:
		return "F"
	case DataTypeDouble:
		return "D"
	case DataTypeInt:
		return "I"
	default:
		return "Unknown"
	}
}

// ModeList is the only supported $MODE value: one row per event, no
// histogram binning.
const ModeList = "L"

// Metadata is the fully resolved metadata record of an FCS file. It is
// built in a single pass by ReadMetadata and immutable afterwards, so it
// may be shared freely between goroutines.
type Metadata struct {
	// Version is the file's version tag, e.g. "FCS3.1".
	Version string

	// Text, Data and Analysis are the resolved segment offsets. Data is
	// always the true range: if the header carried the overflow sentinel,
	// the $BEGINDATA/$ENDDATA values have already been substituted.
	Text     section.Segment
	Data     section.Segment
	Analysis section.Segment

	// Keywords is the complete key/value map of the TEXT segment.
	Keywords map[string]string

	// Parameters describes each channel in declared order.
	Parameters []Parameter

	// Events is the total event count ($TOT).
	Events int

	// DataType is the numeric encoding of the DATA segment.
	DataType DataType

	// ByteOrder is the engine resolved from $BYTEORD.
	ByteOrder endian.EndianEngine

	// Spillover is the declared cross-talk matrix expanded to every
	// channel, or nil when absent or unparseable.
	Spillover *Spillover

	fingerprint   uint64
	channelBytes  []int    // bytes per channel, declared order
	masks         []uint64 // per-channel integer mask, 0 = none
	bytesPerEvent int
}

// ReadMetadata performs the single sequential resolution pass over a
// readable, seekable byte source: fixed header, TEXT segment, offset
// override, parameter table, mode/byte-order/datatype validation, and
// spillover.
func ReadMetadata(r io.ReadSeeker) (*Metadata, error) {
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	if !header.IsSupportedVersion() {
		logging.Warn().Str("version", header.Version).
			Msgf("file version differs from %s, decoding may be incompatible", section.VersionTag)
	}

	rawText, err := readTextSegment(r, header.Text)
	if err != nil {
		return nil, err
	}

	tokens, _, err := section.Tokenize(rawText)
	if err != nil {
		return nil, err
	}

	meta := &Metadata{
		Version:     header.Version,
		Text:        header.Text,
		Data:        header.Data,
		Analysis:    header.Analysis,
		Keywords:    make(map[string]string, len(tokens)/2),
		fingerprint: hash.Fingerprint(rawText),
	}
	// Files in the wild mark an absent ANALYSIS segment with -1 offsets.
	if meta.Analysis.IsSentinel() {
		meta.Analysis = section.Segment{}
	}
	for i := 0; i+1 < len(tokens); i += 2 {
		meta.Keywords[tokens[i]] = tokens[i+1]
	}

	if err := meta.resolveDataOffsets(); err != nil {
		return nil, err
	}
	if err := meta.resolveKeywords(); err != nil {
		return nil, err
	}
	if err := meta.resolveEncoding(); err != nil {
		return nil, err
	}
	if err := meta.checkDataLength(); err != nil {
		return nil, err
	}
	meta.resolveSpillover()

	return meta, nil
}

// Par returns the number of channels.
func (m *Metadata) Par() int { return len(m.Parameters) }

// ChannelNames returns the short name of each channel in declared order.
func (m *Metadata) ChannelNames() []string {
	names := make([]string, len(m.Parameters))
	for i := range m.Parameters {
		names[i] = m.Parameters[i].ShortName
	}

	return names
}

// ChannelIndex returns the declared position of the named channel, or -1.
func (m *Metadata) ChannelIndex(name string) int {
	for i := range m.Parameters {
		if m.Parameters[i].ShortName == name {
			return i
		}
	}

	return -1
}

// BytesPerEvent returns the total byte width of one event row.
func (m *Metadata) BytesPerEvent() int { return m.bytesPerEvent }

// Fingerprint returns the xxHash64 of the raw TEXT segment, a cheap stable
// identity for the file's metadata.
func (m *Metadata) Fingerprint() uint64 { return m.fingerprint }

func readHeader(r io.ReadSeeker) (section.Header, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return section.Header{}, err
	}

	buf := make([]byte, section.HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return section.Header{}, errs.ErrInvalidHeaderSize
	}

	return section.ParseHeader(buf)
}

func readTextSegment(r io.ReadSeeker, seg section.Segment) ([]byte, error) {
	if seg.Begin < section.HeaderSize || seg.End < seg.Begin {
		return nil, fmt.Errorf("%w: TEXT segment (%d, %d)", errs.ErrInvalidOffsets, seg.Begin, seg.End)
	}

	if _, err := r.Seek(seg.Begin, io.SeekStart); err != nil {
		return nil, err
	}

	buf := make([]byte, seg.Length())
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: truncated TEXT segment", errs.ErrCorrupted)
	}

	return buf, nil
}

// resolveDataOffsets substitutes the $BEGINDATA/$ENDDATA values when the
// header carried the "too large to encode" sentinel. This is the explicit
// second phase of offset resolution; the header values are tentative until
// this step has run.
func (m *Metadata) resolveDataOffsets() error {
	if !m.Data.IsSentinel() {
		return nil
	}

	begin, err := requiredInt(m.Keywords, keyword.BeginData)
	if err != nil {
		return err
	}
	end, err := requiredInt(m.Keywords, keyword.EndData)
	if err != nil {
		return err
	}
	if begin <= 0 || end < begin {
		return fmt.Errorf("%w: $BEGINDATA/$ENDDATA (%d, %d)", errs.ErrInvalidOffsets, begin, end)
	}

	m.Data = section.Segment{Begin: begin, End: end}

	return nil
}

func (m *Metadata) resolveKeywords() error {
	par, err := requiredInt(m.Keywords, keyword.Par)
	if err != nil {
		return err
	}
	if par <= 0 {
		return fmt.Errorf("%w: $PAR=%d", errs.ErrInvalidKeywordValue, par)
	}

	m.Parameters, err = parseParameters(m.Keywords, int(par))
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, par)
	for _, p := range m.Parameters {
		if _, dup := seen[p.ShortName]; dup {
			return fmt.Errorf("%w: %q", errs.ErrDuplicateChannelName, p.ShortName)
		}
		seen[p.ShortName] = struct{}{}
	}

	tot, err := requiredInt(m.Keywords, keyword.Tot)
	if err != nil {
		return err
	}
	if tot < 0 {
		return fmt.Errorf("%w: $TOT=%d", errs.ErrInvalidKeywordValue, tot)
	}
	m.Events = int(tot)

	mode, ok := m.Keywords[keyword.Mode]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrMissingKeyword, keyword.Mode)
	}
	if mode != ModeList {
		return fmt.Errorf("%w: $MODE=%q", errs.ErrUnsupportedMode, mode)
	}

	byteOrd, ok := m.Keywords[keyword.ByteOrd]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrMissingKeyword, keyword.ByteOrd)
	}
	m.ByteOrder, err = endian.ParseByteOrder(byteOrd)
	if err != nil {
		return fmt.Errorf("%w: $BYTEORD=%q", err, byteOrd)
	}

	// Multi-dataset traversal is not implemented; only the first dataset
	// is read.
	if next, ok := m.Keywords[keyword.NextData]; ok && strings.TrimSpace(next) != "0" {
		logging.Warn().Str("keyword", keyword.NextData).Str("value", next).
			Msg("file declares additional datasets, only the first is read")
	}

	return nil
}

// resolveEncoding derives per-channel byte widths and integer masks from
// $DATATYPE and the parameter table, enforcing the Data Model invariants:
// float encodings require uniform width, integer widths are restricted to
// 8/16/32/64 bits, and a channel's mask must fit its declared width.
func (m *Metadata) resolveEncoding() error {
	dt, ok := m.Keywords[keyword.DataType]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrMissingKeyword, keyword.DataType)
	}

	par := m.Par()
	m.channelBytes = make([]int, par)
	m.masks = make([]uint64, par)

	switch dt {
	case "F", "D":
		wantBits := 32
		m.DataType = DataTypeFloat
		if dt == "D" {
			wantBits = 64
			m.DataType = DataTypeDouble
		}
		for i, p := range m.Parameters {
			if p.Bits != wantBits {
				return fmt.Errorf("%w: $P%dB=%d for $DATATYPE=%s", errs.ErrInvalidFloatWidth, i+1, p.Bits, dt)
			}
			m.channelBytes[i] = wantBits / 8
		}

	case "I":
		m.DataType = DataTypeInt
		for i, p := range m.Parameters {
			switch p.Bits {
			case 8, 16, 32, 64:
			default:
				return fmt.Errorf("%w: $P%dB=%d", errs.ErrUnsupportedBitWidth, i+1, p.Bits)
			}
			m.channelBytes[i] = p.Bits / 8

			mask, err := intMask(p.Range, p.Bits)
			if err != nil {
				return fmt.Errorf("%w: channel %q", err, p.ShortName)
			}
			m.masks[i] = mask
		}

	default:
		return fmt.Errorf("%w: $DATATYPE=%q", errs.ErrUnsupportedDataType, dt)
	}

	m.bytesPerEvent = 0
	for _, b := range m.channelBytes {
		m.bytesPerEvent += b
	}

	return nil
}

// intMask derives the bit mask for an integer channel: no mask when the
// declared range is exactly 2^bits, otherwise 2^ceil(log2(range)) - 1,
// which must be representable within the channel's width. A range that
// saturated at MaxUint64 during parsing needs 64 bits like any other
// full-width range.
func intMask(rng uint64, channelBits int) (uint64, error) {
	if rng == 0 {
		return 0, fmt.Errorf("%w: $PnR=0", errs.ErrInvalidKeywordValue)
	}
	if channelBits < 64 && rng == uint64(1)<<channelBits {
		return 0, nil
	}

	need := bits.Len64(rng - 1)
	if need > channelBits {
		return 0, errs.ErrRangeWidthMismatch
	}
	if need == 64 {
		return 0, nil
	}

	return uint64(1)<<need - 1, nil
}

// checkDataLength verifies the DATA segment is long enough for $TOT events
// of the declared per-event width. Extra trailing bytes are tolerated;
// instruments are known to pad.
func (m *Metadata) checkDataLength() error {
	if m.Events == 0 {
		return nil
	}

	need := int64(m.Events) * int64(m.bytesPerEvent)
	if m.Data.Begin <= 0 || m.Data.Length() < need {
		return fmt.Errorf("%w: segment (%d, %d) holds %d bytes, need %d",
			errs.ErrInvalidDataLength, m.Data.Begin, m.Data.End, m.Data.Length(), need)
	}

	return nil
}

// resolveSpillover parses $SPILLOVER (or the vendor alias SPILL) and
// expands it to the full channel set. Any failure degrades to "absent"
// with a warning; a broken spillover never blocks reading the file.
func (m *Metadata) resolveSpillover() {
	value, ok := m.Keywords[keyword.Spillover]
	key := keyword.Spillover
	if !ok {
		value, ok = m.Keywords[keyword.SpillAlias]
		key = keyword.SpillAlias
	}
	if !ok {
		return
	}

	declared, err := ParseSpillover(value)
	if err != nil {
		logging.Warn().Str("keyword", key).Err(err).Msg("ignoring unparseable spillover matrix")
		return
	}

	expanded, err := declared.Expanded(m.ChannelNames())
	if err != nil {
		logging.Warn().Str("keyword", key).Err(err).Msg("ignoring unparseable spillover matrix")
		return
	}

	m.Spillover = &Spillover{Channels: m.ChannelNames(), Matrix: expanded}
}
