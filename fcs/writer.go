package fcs

import (
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"sort"
	"strconv"
	"strings"
	"unsafe"

	"github.com/jlumpe/pycyt-old/endian"
	"github.com/jlumpe/pycyt-old/errs"
	"github.com/jlumpe/pycyt-old/internal/logging"
	"github.com/jlumpe/pycyt-old/internal/options"
	"github.com/jlumpe/pycyt-old/keyword"
	"github.com/jlumpe/pycyt-old/section"
)

// offsetFieldWidth is the fixed decimal width of the $BEGINDATA/$ENDDATA
// values. Padding them to a known width lets the TEXT length be computed
// before the true data offsets exist.
const offsetFieldWidth = 12

type writeConfig struct {
	delim     byte
	keywords  map[string]string
	spillover *Spillover
	ranges    []uint64
	engine    endian.EndianEngine
	quiet     bool
}

// WriteOption configures a file write.
type WriteOption = options.Option[*writeConfig]

// WithDelimiter sets the TEXT segment delimiter byte. The default is '/'.
func WithDelimiter(delim byte) WriteOption {
	return options.New(func(c *writeConfig) error {
		if !keyword.IsValidDelimiter(delim) {
			return fmt.Errorf("%w: 0x%02x", errs.ErrInvalidDelimiter, delim)
		}
		c.delim = delim

		return nil
	})
}

// WithKeywords adds extra key/value pairs to the TEXT segment. Derived
// keywords always win over user values for the same key.
func WithKeywords(keywords map[string]string) WriteOption {
	return options.NoError(func(c *writeConfig) {
		if c.keywords == nil {
			c.keywords = make(map[string]string, len(keywords))
		}
		for k, v := range keywords {
			c.keywords[k] = v
		}
	})
}

// WithSpillover emits the given cross-talk matrix as $SPILLOVER.
func WithSpillover(s *Spillover) WriteOption {
	return options.New(func(c *writeConfig) error {
		if s == nil {
			return fmt.Errorf("%w: nil spillover", errs.ErrInvalidMatrixType)
		}
		c.spillover = s

		return nil
	})
}

// WithRanges sets an explicit $PnR value per channel instead of estimating
// one from the data.
func WithRanges(ranges []uint64) WriteOption {
	return options.NoError(func(c *writeConfig) {
		c.ranges = ranges
	})
}

// WithLittleEndian forces little-endian data encoding.
func WithLittleEndian() WriteOption {
	return options.NoError(func(c *writeConfig) {
		c.engine = endian.GetLittleEndianEngine()
	})
}

// WithBigEndian forces big-endian data encoding.
func WithBigEndian() WriteOption {
	return options.NoError(func(c *writeConfig) {
		c.engine = endian.GetBigEndianEngine()
	})
}

// WithQuiet suppresses warnings about suspicious user keywords.
func WithQuiet() WriteOption {
	return options.NoError(func(c *writeConfig) {
		c.quiet = true
	})
}

// WriteFile writes the matrix to the named path as a complete FCS file.
func WriteFile(path string, channels []string, m *Matrix, opts ...WriteOption) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Write(f, channels, m, opts...); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// Write emits a complete FCS file: fixed header, TEXT segment and DATA
// segment, with every offset keyword consistent with the bytes actually
// written. The matrix must hold float32 or float64 values, one column per
// channel.
func Write(w io.Writer, channels []string, m *Matrix, opts ...WriteOption) error {
	cfg := &writeConfig{delim: '/', engine: endian.CheckEndianness()}
	if err := options.Apply(cfg, opts...); err != nil {
		return err
	}

	if err := validateWrite(cfg, channels, m); err != nil {
		return err
	}

	pairs, err := buildKeywords(cfg, channels, m)
	if err != nil {
		return err
	}

	// TEXT length is stable because the data offset values are padded to a
	// fixed width. Compute offsets, then patch the placeholders.
	textLen := section.Length(pairs, cfg.delim)
	textBegin := int64(section.HeaderSize)
	textEnd := textBegin + int64(textLen) - 1
	if textEnd > section.MaxHeaderOffset {
		return fmt.Errorf("%w: TEXT segment ends at %d", errs.ErrFileTooLarge, textEnd)
	}

	dataLen := int64(m.Rows()) * int64(m.Cols()) * int64(sampleWidth(m))
	dataBegin := textEnd + 1
	dataEnd := dataBegin + dataLen - 1
	if len(strconv.FormatInt(dataEnd, 10)) > offsetFieldWidth {
		return fmt.Errorf("%w: DATA segment ends at %d", errs.ErrFileTooLarge, dataEnd)
	}

	patchOffset(pairs, keyword.BeginData, dataBegin)
	patchOffset(pairs, keyword.EndData, dataEnd)

	header := section.Header{
		Version: section.VersionTag,
		Text:    section.Segment{Begin: textBegin, End: textEnd},
		Data:    section.Segment{Begin: dataBegin, End: dataEnd},
	}

	cw := &countingWriter{w: w}
	if _, err := cw.Write(header.Bytes()); err != nil {
		return err
	}
	if _, err := cw.Write(section.Build(pairs, cfg.delim)); err != nil {
		return err
	}
	if cw.n != dataBegin {
		return fmt.Errorf("%w: TEXT segment ended at %d, expected %d", errs.ErrOffsetMismatch, cw.n-1, textEnd)
	}

	if err := writeData(cw, m, cfg.engine); err != nil {
		return err
	}
	if cw.n != dataEnd+1 {
		return fmt.Errorf("%w: DATA segment ended at %d, expected %d", errs.ErrOffsetMismatch, cw.n-1, dataEnd)
	}

	return nil
}

func validateWrite(cfg *writeConfig, channels []string, m *Matrix) error {
	if m.Kind() != KindFloat32 && m.Kind() != KindFloat64 {
		return fmt.Errorf("%w: %s", errs.ErrInvalidMatrixType, m.Kind())
	}
	if m.Cols() != len(channels) {
		return fmt.Errorf("%w: %d columns for %d channels", errs.ErrMatrixShape, m.Cols(), len(channels))
	}
	if cfg.ranges != nil && len(cfg.ranges) != len(channels) {
		return fmt.Errorf("%w: %d ranges for %d channels", errs.ErrMatrixShape, len(cfg.ranges), len(channels))
	}

	seen := make(map[string]struct{}, len(channels))
	for _, name := range channels {
		if err := validateChannelName(name, cfg.delim); err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q", errs.ErrDuplicateChannelName, name)
		}
		seen[name] = struct{}{}
	}

	return nil
}

func validateChannelName(name string, delim byte) error {
	if name == "" || !keyword.IsPrintable(name) ||
		strings.ContainsRune(name, ',') || strings.IndexByte(name, delim) >= 0 {
		return fmt.Errorf("%w: %q", errs.ErrInvalidChannelName, name)
	}

	return nil
}

// buildKeywords assembles the complete ordered TEXT pair list: derived
// global keywords first, then per-channel keywords, then the remaining
// user keywords sorted by key.
func buildKeywords(cfg *writeConfig, channels []string, m *Matrix) ([]section.Pair, error) {
	par := len(channels)
	width := sampleWidth(m)

	datatype := "F"
	if m.Kind() == KindFloat64 {
		datatype = "D"
	}

	derived := map[string]string{
		keyword.ByteOrd:       endian.Keyword(cfg.engine),
		keyword.DataType:      datatype,
		keyword.Mode:          ModeList,
		keyword.NextData:      "0",
		keyword.Par:           strconv.Itoa(par),
		keyword.Tot:           strconv.Itoa(m.Rows()),
		keyword.BeginData:     strings.Repeat("0", offsetFieldWidth),
		keyword.EndData:       strings.Repeat("0", offsetFieldWidth),
		keyword.BeginAnalysis: "0",
		keyword.EndAnalysis:   "0",
		keyword.BeginSText:    "0",
		keyword.EndSText:      "0",
	}
	for i, name := range channels {
		derived[keyword.Expand(keyword.ParamBits, i+1)] = strconv.Itoa(width * 8)
		derived[keyword.Expand(keyword.ParamName, i+1)] = name
	}
	if cfg.spillover != nil {
		derived[keyword.Spillover] = cfg.spillover.Keyword()
	}

	// Template keys with a literal "n" (e.g. $PnR) apply their value to
	// every channel; expansion happens before validation so each concrete
	// key gets the same checks a directly supplied key would.
	expanded := make(map[string]string, len(cfg.keywords))
	for k, v := range cfg.keywords {
		if keyword.IsParamTemplate(k) {
			for i := 1; i <= par; i++ {
				expanded[keyword.Expand(k, i)] = v
			}
			continue
		}
		expanded[k] = v
	}

	user := make(map[string]string, len(expanded))
	for k, v := range expanded {
		if err := checkUserKeyword(cfg, k, v); err != nil {
			return nil, err
		}
		if _, overridden := derived[k]; overridden {
			if !cfg.quiet {
				logging.Warn().Str("keyword", k).Msg("user value for derived keyword ignored")
			}
			continue
		}
		user[k] = v
	}

	addRangeDefaults(cfg, user, channels, m)
	addAmplificationDefaults(user, par)

	globalOrder := []string{
		keyword.ByteOrd, keyword.DataType, keyword.Mode, keyword.NextData,
		keyword.Par, keyword.Tot,
		keyword.BeginData, keyword.EndData,
		keyword.BeginAnalysis, keyword.EndAnalysis,
		keyword.BeginSText, keyword.EndSText,
	}

	pairs := make([]section.Pair, 0, len(derived)+len(user))
	for _, k := range globalOrder {
		pairs = append(pairs, section.Pair{Key: k, Value: derived[k]})
	}
	if cfg.spillover != nil {
		pairs = append(pairs, section.Pair{Key: keyword.Spillover, Value: derived[keyword.Spillover]})
	}
	for i := 1; i <= par; i++ {
		for _, tmpl := range []string{keyword.ParamBits, keyword.ParamName, keyword.ParamAmpType, keyword.ParamRange} {
			key := keyword.Expand(tmpl, i)
			if v, ok := derived[key]; ok {
				pairs = append(pairs, section.Pair{Key: key, Value: v})
				delete(user, key)
			} else if v, ok := user[key]; ok {
				pairs = append(pairs, section.Pair{Key: key, Value: v})
				delete(user, key)
			}
		}
	}

	rest := make([]string, 0, len(user))
	for k := range user {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		pairs = append(pairs, section.Pair{Key: k, Value: user[k]})
	}

	return pairs, nil
}

func checkUserKeyword(cfg *writeConfig, key, value string) error {
	if !keyword.IsValidName(key, cfg.delim) || strings.IndexByte(key, cfg.delim) >= 0 {
		return fmt.Errorf("%w: %q", errs.ErrInvalidKeywordName, key)
	}
	if cfg.quiet {
		return nil
	}

	norm := keyword.Normalize(key)
	if keyword.IsStandard(norm) || keyword.IsParamTemplate(norm) {
		if pat := keyword.Pattern(norm); pat != nil && !pat.MatchString(value) {
			logging.Warn().Str("keyword", key).Str("value", value).
				Msg("value does not match the expected format")
		}
	} else if strings.HasPrefix(key, "$") {
		logging.Warn().Str("keyword", key).Msg("non-standard keyword uses the reserved $ prefix")
	}

	return nil
}

// addRangeDefaults fills in $PnR for channels the caller did not cover,
// either from the explicit ranges option or from a single power-of-two
// estimate over the data's per-channel maxima.
func addRangeDefaults(cfg *writeConfig, user map[string]string, channels []string, m *Matrix) {
	var estimate string
	for i := range channels {
		key := keyword.Expand(keyword.ParamRange, i+1)
		if _, ok := user[key]; ok {
			continue
		}
		if cfg.ranges != nil {
			user[key] = strconv.FormatUint(cfg.ranges[i], 10)
			continue
		}
		if estimate == "" {
			estimate = estimateRange(m)
		}
		user[key] = estimate
	}
}

func addAmplificationDefaults(user map[string]string, par int) {
	for i := 1; i <= par; i++ {
		key := keyword.Expand(keyword.ParamAmpType, i)
		if _, ok := user[key]; !ok {
			user[key] = "0,0"
		}
	}
}

// estimateRange picks one power of two for every channel: the exponent is
// the rounded mean of log2 of each channel's maximum value, with maxima
// clamped to at least 1 so empty or negative data stays well defined.
func estimateRange(m *Matrix) string {
	sum := 0.0
	for col := 0; col < m.Cols(); col++ {
		colMax := 1.0
		for row := 0; row < m.Rows(); row++ {
			if v := m.At(row, col); v > colMax {
				colMax = v
			}
		}
		sum += math.Log2(colMax)
	}

	exp := 0
	if m.Cols() > 0 {
		exp = int(math.Round(sum / float64(m.Cols())))
	}
	if exp < 0 {
		exp = 0
	}

	// big.Int keeps the value exact past 2^63.
	return new(big.Int).Lsh(big.NewInt(1), uint(exp)).String()
}

func sampleWidth(m *Matrix) int {
	if m.Kind() == KindFloat64 {
		return 8
	}

	return 4
}

func patchOffset(pairs []section.Pair, key string, value int64) {
	text := strconv.FormatInt(value, 10)
	padded := strings.Repeat("0", offsetFieldWidth-len(text)) + text
	for i := range pairs {
		if pairs[i].Key == key {
			pairs[i].Value = padded
			return
		}
	}
}

func writeData(w io.Writer, m *Matrix, engine endian.EndianEngine) error {
	n := m.Rows() * m.Cols()
	if n == 0 {
		return nil
	}

	native := endian.CompareNativeEndian(engine)

	if m.Kind() == KindFloat32 {
		values := m.Float32s()
		if native {
			_, err := w.Write(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(values))), n*4))
			return err
		}
		buf := make([]byte, 0, n*4)
		for _, v := range values {
			buf = engine.AppendUint32(buf, math.Float32bits(v))
		}
		_, err := w.Write(buf)
		return err
	}

	values := m.Float64s()
	if native {
		_, err := w.Write(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(values))), n*8))
		return err
	}
	buf := make([]byte, 0, n*8)
	for _, v := range values {
		buf = engine.AppendUint64(buf, math.Float64bits(v))
	}
	_, err := w.Write(buf)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}
