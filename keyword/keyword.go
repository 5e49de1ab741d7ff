// Package keyword enumerates the keyword surface of the FCS 3.1 standard.
//
// It provides the static tables the reader and writer validate against: the
// full set of standard keywords, the required subset, the per-parameter
// keyword templates (keys containing a lowercase "n" placeholder for the
// parameter number), and the regular expressions that standard keyword
// values must match.
//
// All tables are built once at package init and never mutated; everything
// here is safe for concurrent use.
package keyword

import (
	"regexp"
	"strconv"
	"strings"
)

// Keywords the codec itself consumes or produces.
const (
	Par       = "$PAR"
	Tot       = "$TOT"
	Mode      = "$MODE"
	ByteOrd   = "$BYTEORD"
	DataType  = "$DATATYPE"
	NextData  = "$NEXTDATA"
	Spillover = "$SPILLOVER"
	// SpillAlias is a widespread vendor alias for $SPILLOVER.
	SpillAlias = "SPILL"

	BeginData     = "$BEGINDATA"
	EndData       = "$ENDDATA"
	BeginAnalysis = "$BEGINANALYSIS"
	EndAnalysis   = "$ENDANALYSIS"
	BeginSText    = "$BEGINSTEXT"
	EndSText      = "$ENDSTEXT"

	// Per-parameter templates; expand with Expand before use.
	ParamBits    = "$PnB"
	ParamName    = "$PnN"
	ParamRange   = "$PnR"
	ParamAmpType = "$PnE"
)

// standard is the set of keywords defined by the FCS 3.1 standard. Keys use
// a lowercase "n" where the standard has a parameter/gate number.
var standard = map[string]struct{}{
	"$ABRT": {}, "$BEGINANALYSIS": {}, "$BEGINDATA": {}, "$BEGINSTEXT": {},
	"$BTIM": {}, "$BYTEORD": {}, "$CELLS": {}, "$COM": {}, "$CSMODE": {},
	"$CSVBITS": {}, "$CSVnFLAG": {}, "$CYT": {}, "$CYTSN": {},
	"$DATATYPE": {}, "$DATE": {}, "$ENDANALYSIS": {}, "$ENDDATA": {},
	"$ENDSTEXT": {}, "$ETIM": {}, "$EXP": {}, "$FIL": {}, "$GATE": {},
	"$GATING": {}, "$GnE": {}, "$GnF": {}, "$GnN": {}, "$GnP": {},
	"$GnR": {}, "$GnS": {}, "$GnT": {}, "$GnV": {}, "$INST": {},
	"$LAST_MODIFIED": {}, "$LAST_MODIFIER": {}, "$LOST": {}, "$MODE": {},
	"$NEXTDATA": {}, "$OP": {}, "$ORIGINALITY": {}, "$PAR": {}, "$PKNn": {},
	"$PKn": {}, "$PLATEID": {}, "$PLATENAME": {}, "$PROJ": {}, "$PnB": {},
	"$PnCALIBRATION": {}, "$PnD": {}, "$PnE": {}, "$PnF": {}, "$PnG": {},
	"$PnL": {}, "$PnN": {}, "$PnO": {}, "$PnP": {}, "$PnR": {}, "$PnS": {},
	"$PnT": {}, "$PnV": {}, "$RnI": {}, "$RnW": {}, "$SMNO": {},
	"$SPILLOVER": {}, "$SRC": {}, "$SYS": {}, "$TIMESTEP": {}, "$TOT": {},
	"$TR": {}, "$VOL": {}, "$WELLID": {},
}

// required is the set of keywords the standard requires in every file.
var required = map[string]struct{}{
	"$BEGINANALYSIS": {}, "$BEGINDATA": {}, "$BEGINSTEXT": {},
	"$BYTEORD": {}, "$DATATYPE": {}, "$ENDANALYSIS": {}, "$ENDDATA": {},
	"$ENDSTEXT": {}, "$MODE": {}, "$NEXTDATA": {}, "$PAR": {}, "$PnB": {},
	"$PnE": {}, "$PnN": {}, "$PnR": {}, "$TOT": {},
}

// paramTemplates is the set of per-parameter keyword templates; "n" stands
// for the parameter number.
var paramTemplates = map[string]struct{}{
	"$PnB": {}, "$PnCALIBRATION": {}, "$PnD": {}, "$PnE": {}, "$PnF": {},
	"$PnG": {}, "$PnL": {}, "$PnN": {}, "$PnO": {}, "$PnP": {}, "$PnR": {},
	"$PnS": {}, "$PnT": {}, "$PnV": {},
}

// Building blocks for the value patterns.
const (
	patInt   = `\d+`
	patFloat = `[-+]?(\d*\.\d+|\d+(\.\d*)?)([eE][-+]?\d+)?`
	patDate  = `\d{2}-[A-Za-z]{3}-\d{4}`
	patTime  = `\d{2}:\d{2}:\d{2}(\.\d{2})?`
)

// patterns maps normalized standard keywords to the regular expression
// their value must match. Keywords with free-form values are absent.
var patterns = map[string]*regexp.Regexp{}

func init() {
	raw := map[string]string{
		"$ABRT":          patInt,
		"$BEGINANALYSIS": patInt,
		"$BEGINDATA":     patInt,
		"$BEGINSTEXT":    patInt,
		"$BTIM":          patTime,
		"$BYTEORD":       `1,2,3,4|4,3,2,1`,
		"$CSMODE":        patInt,
		"$CSVBITS":       patInt,
		"$CSVnFLAG":      patInt,
		"$DATATYPE":      `[IFDA]`,
		"$DATE":          patDate,
		"$ENDANALYSIS":   patInt,
		"$ENDDATA":       patInt,
		"$ENDSTEXT":      patInt,
		"$ETIM":          patTime,
		"$GATE":          patInt,
		"$GnE":           patFloat + `,` + patFloat,
		"$GnP":           patInt,
		"$GnR":           patInt,
		"$GnV":           patInt,
		"$LAST_MODIFIED": patDate + ` ` + patTime,
		"$MODE":          `[LCU]`,
		"$NEXTDATA":      patInt,
		"$PAR":           patInt,
		"$PKn":           patInt,
		"$PKNn":          patInt,
		"$PnB":           patInt,
		"$PnCALIBRATION": patFloat + `,.*`,
		"$PnD":           `(Linear|Logarithmic),` + patFloat + `,` + patFloat,
		"$PnE":           patFloat + `,` + patFloat,
		"$PnG":           patFloat,
		"$PnL":           patInt + `(,` + patInt + `)*`,
		"$PnO":           patInt,
		"$PnP":           patInt,
		"$PnR":           patInt,
		"$PnV":           patFloat,
		"$RnW":           patFloat + `,` + patFloat + `(;` + patFloat + `,` + patFloat + `)*`,
		"$TIMESTEP":      patFloat,
		"$TOT":           patInt,
		"$TR":            `[^,]+,\d+`,
		"$VOL":           patFloat,
	}
	for kw, pat := range raw {
		patterns[kw] = regexp.MustCompile(`^(` + pat + `)$`)
	}
}

var digitRun = regexp.MustCompile(`\d+`)

// IsStandard reports whether the normalized keyword is defined by the
// FCS 3.1 standard.
func IsStandard(normalized string) bool {
	_, ok := standard[normalized]
	return ok
}

// IsRequired reports whether the normalized keyword is required by the
// standard.
func IsRequired(normalized string) bool {
	_, ok := required[normalized]
	return ok
}

// IsParamTemplate reports whether the keyword is a per-parameter template
// (contains the "n" placeholder, e.g. "$PnR").
func IsParamTemplate(kw string) bool {
	_, ok := paramTemplates[kw]
	return ok
}

// Normalize replaces every digit run in a keyword with the "n" placeholder,
// mapping concrete per-parameter keys back to their template (e.g. "$P12R"
// → "$PnR").
func Normalize(kw string) string {
	return digitRun.ReplaceAllString(kw, "n")
}

// Expand substitutes a parameter number into a template keyword
// ("$PnR", 3 → "$P3R").
func Expand(template string, n int) string {
	return strings.Replace(template, "n", strconv.Itoa(n), 1)
}

// ValidateValue checks a value against the pattern for the normalized
// keyword. It reports ok=false only when a pattern exists and the value
// does not match; keywords without a defined pattern always validate.
func ValidateValue(normalized, value string) bool {
	pat, ok := patterns[normalized]
	if !ok {
		return true
	}

	return pat.MatchString(value)
}

// Pattern returns the value pattern for a normalized keyword, or nil if the
// standard does not constrain its value.
func Pattern(normalized string) *regexp.Regexp {
	return patterns[normalized]
}

// IsPrintable reports whether s contains only characters the standard
// considers printable (ASCII 32-126).
func IsPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 32 || s[i] > 126 {
			return false
		}
	}

	return true
}

// IsValidDelimiter reports whether b may be used as the TEXT delimiter:
// ASCII 1-126, excluding '$' since keywords must not start with the
// delimiter and standard keywords all start with '$'.
func IsValidDelimiter(b byte) bool {
	return b >= 1 && b <= 126 && b != '$'
}

// IsValidName reports whether kw is a usable keyword name: printable and
// not starting with the delimiter.
func IsValidName(kw string, delim byte) bool {
	return len(kw) > 0 && IsPrintable(kw) && kw[0] != delim
}
