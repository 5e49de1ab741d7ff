package fcs

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jlumpe/pycyt-old/errs"
	"github.com/jlumpe/pycyt-old/internal/logging"
	"github.com/jlumpe/pycyt-old/keyword"
)

// Amplification is the $PnE keyword pair: the number of logarithmic decades
// and the offset value. (0, 0) means linear amplification.
type Amplification struct {
	Decades float64
	Zero    float64
}

// IsLinear reports whether the amplification pair denotes linear scaling.
func (a Amplification) IsLinear() bool {
	return a.Decades == 0 && a.Zero == 0
}

// Display is the $PnD visualization-scale triple.
type Display struct {
	Scale string // "Linear" or "Logarithmic"
	F1    float64
	F2    float64
}

// Parameter describes one channel of the event matrix, built from the
// numbered $Pn* keyword family. Parameters are constructed once during
// metadata resolution and immutable afterwards; channel position in the
// declared order is the channel's identity.
//
// Optional fields use pointers (or nil slices) so that "unset" is
// distinguishable from a stored zero.
type Parameter struct {
	// Required keywords.
	ShortName     string        // $PnN, unique across the file
	Bits          int           // $PnB
	Range         uint64        // $PnR
	Amplification Amplification // $PnE

	// Optional keywords.
	LongName              string   // $PnS
	DetectorType          string   // $PnT
	Filter                string   // $PnF
	Display               *Display // $PnD
	Gain                  *float64 // $PnG
	ExcitationWavelengths []int    // $PnL
	ExcitationPower       *float64 // $PnO
	PercentLight          *float64 // $PnP
	Voltage               *float64 // $PnV
}

// parseParameters builds the channel table from numbered keyword families.
// Missing or malformed required sub-fields are fatal; malformed optional
// sub-fields are logged and left unset.
func parseParameters(keywords map[string]string, par int) ([]Parameter, error) {
	params := make([]Parameter, par)
	for n := 1; n <= par; n++ {
		p, err := parseParameter(keywords, n)
		if err != nil {
			return nil, err
		}
		params[n-1] = p
	}

	return params, nil
}

func parseParameter(keywords map[string]string, n int) (Parameter, error) {
	var p Parameter

	name, ok := keywords[keyword.Expand(keyword.ParamName, n)]
	if !ok {
		return p, fmt.Errorf("%w: %s", errs.ErrMissingKeyword, keyword.Expand(keyword.ParamName, n))
	}
	p.ShortName = name

	bits, err := requiredInt(keywords, keyword.Expand(keyword.ParamBits, n))
	if err != nil {
		return p, err
	}
	p.Bits = int(bits)

	p.Range, err = parseRange(keywords, n)
	if err != nil {
		return p, err
	}

	ampKey := keyword.Expand(keyword.ParamAmpType, n)
	amp, ok := keywords[ampKey]
	if !ok {
		return p, fmt.Errorf("%w: %s", errs.ErrMissingKeyword, ampKey)
	}
	p.Amplification, err = parseAmplification(amp)
	if err != nil {
		return p, fmt.Errorf("%w: %s=%q", errs.ErrInvalidKeywordValue, ampKey, amp)
	}

	p.LongName = keywords[keyword.Expand("$PnS", n)]
	p.DetectorType = keywords[keyword.Expand("$PnT", n)]
	p.Filter = keywords[keyword.Expand("$PnF", n)]
	p.Display = optionalDisplay(keywords, keyword.Expand("$PnD", n))
	p.Gain = optionalFloat(keywords, keyword.Expand("$PnG", n))
	p.ExcitationWavelengths = optionalWavelengths(keywords, keyword.Expand("$PnL", n))
	p.ExcitationPower = optionalFloat(keywords, keyword.Expand("$PnO", n))
	p.PercentLight = optionalFloat(keywords, keyword.Expand("$PnP", n))
	p.Voltage = optionalFloat(keywords, keyword.Expand("$PnV", n))

	return p, nil
}

// parseRange parses $PnR. The format allows arbitrary-precision decimal
// ranges (2^64 is the conventional full-range value for 64-bit channels,
// and float files may declare any magnitude), so a well-formed value that
// overflows uint64 saturates to MaxUint64. Mask derivation then treats the
// saturated value like any other: no mask on 64-bit channels, a width
// violation on narrower integer channels, irrelevant for float channels.
func parseRange(keywords map[string]string, n int) (uint64, error) {
	key := keyword.Expand(keyword.ParamRange, n)
	value, ok := keywords[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errs.ErrMissingKeyword, key)
	}

	r, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
			return math.MaxUint64, nil
		}

		return 0, fmt.Errorf("%w: %s=%q", errs.ErrInvalidKeywordValue, key, value)
	}

	return r, nil
}

func parseAmplification(value string) (Amplification, error) {
	f1, f2, ok := splitFloatPair(value)
	if !ok {
		return Amplification{}, fmt.Errorf("expected two comma-separated floats")
	}

	return Amplification{Decades: f1, Zero: f2}, nil
}

func requiredInt(keywords map[string]string, key string) (int64, error) {
	value, ok := keywords[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errs.ErrMissingKeyword, key)
	}

	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errs.ErrInvalidKeywordValue, key, value)
	}

	return v, nil
}

func optionalFloat(keywords map[string]string, key string) *float64 {
	value, ok := keywords[key]
	if !ok {
		return nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		logging.Warn().Str("keyword", key).Str("value", value).Msg("ignoring malformed optional keyword")
		return nil
	}

	return &v
}

func optionalDisplay(keywords map[string]string, key string) *Display {
	value, ok := keywords[key]
	if !ok {
		return nil
	}

	parts := strings.SplitN(value, ",", 3)
	if len(parts) != 3 {
		logging.Warn().Str("keyword", key).Str("value", value).Msg("ignoring malformed optional keyword")
		return nil
	}

	f1, err1 := strconv.ParseFloat(parts[1], 64)
	f2, err2 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil {
		logging.Warn().Str("keyword", key).Str("value", value).Msg("ignoring malformed optional keyword")
		return nil
	}

	return &Display{Scale: parts[0], F1: f1, F2: f2}
}

func optionalWavelengths(keywords map[string]string, key string) []int {
	value, ok := keywords[key]
	if !ok || value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			logging.Warn().Str("keyword", key).Str("value", value).Msg("ignoring malformed optional keyword")
			return nil
		}
		out = append(out, v)
	}

	return out
}

func splitFloatPair(value string) (float64, float64, bool) {
	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	f1, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	f2, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}

	return f1, f2, true
}
