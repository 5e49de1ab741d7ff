package section

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jlumpe/pycyt-old/errs"
)

// Pair is one keyword/value entry of a TEXT segment. Values are unescaped;
// Build and Length apply delimiter escaping.
type Pair struct {
	Key   string
	Value string
}

// Tokenize splits raw TEXT-segment bytes into an ordered, alternating list
// of keys and values.
//
// The delimiter is the first byte of the segment and must also be the last.
// A doubled delimiter inside a field is an escaped literal delimiter; every
// other occurrence separates fields. Two delimiters immediately after the
// segment start (an empty first key) and an odd token count are corruption
// errors.
//
// Returns:
//   - []string: Alternating key/value tokens, escapes resolved
//   - byte: The delimiter character
//   - error: errs.ErrInvalidTextSegment or errs.ErrKeyValueMismatch
func Tokenize(raw []byte) ([]string, byte, error) {
	if len(raw) < 2 {
		return nil, 0, fmt.Errorf("%w: segment too short", errs.ErrInvalidTextSegment)
	}

	delim := raw[0]
	if raw[len(raw)-1] != delim {
		return nil, 0, fmt.Errorf("%w: segment does not end with delimiter %q", errs.ErrInvalidTextSegment, delim)
	}
	if raw[1] == delim {
		return nil, 0, fmt.Errorf("%w: empty first key", errs.ErrInvalidTextSegment)
	}

	escaped := []byte{delim, delim}
	single := []byte{delim}

	var tokens []string
	idx := 1
	for idx < len(raw) {
		// Find the next delimiter that is not the first byte of a doubled
		// (escaped) pair. The final delimiter of the segment is always a
		// separator, so the escape check stops at len-1.
		next := bytes.IndexByte(raw[idx:], delim)
		if next < 0 {
			return nil, 0, fmt.Errorf("%w: unterminated field", errs.ErrInvalidTextSegment)
		}
		next += idx
		for next < len(raw)-1 && raw[next+1] == delim {
			rest := bytes.IndexByte(raw[next+2:], delim)
			if rest < 0 {
				return nil, 0, fmt.Errorf("%w: unterminated field", errs.ErrInvalidTextSegment)
			}
			next += 2 + rest
		}

		field := raw[idx:next]
		tokens = append(tokens, string(bytes.ReplaceAll(field, escaped, single)))
		idx = next + 1
	}

	if len(tokens)%2 != 0 {
		return nil, 0, errs.ErrKeyValueMismatch
	}

	return tokens, delim, nil
}

// Escape doubles every occurrence of the delimiter in a value so the
// tokenizer reads it back as a literal.
func Escape(value string, delim byte) string {
	d := string(delim)
	return strings.ReplaceAll(value, d, d+d)
}

// Length returns the encoded byte length of a TEXT segment holding the
// given pairs: one leading delimiter, then for each pair the key, a
// delimiter, the escaped value, and a delimiter.
func Length(pairs []Pair, delim byte) int {
	n := 1
	for _, p := range pairs {
		n += 2 + len(p.Key) + len(Escape(p.Value, delim))
	}

	return n
}

// Build encodes the pairs into a complete TEXT segment, escaping values.
// Keys must already be validated to be printable and delimiter-free.
func Build(pairs []Pair, delim byte) []byte {
	buf := make([]byte, 0, Length(pairs, delim))
	buf = append(buf, delim)
	for _, p := range pairs {
		buf = append(buf, p.Key...)
		buf = append(buf, delim)
		buf = append(buf, Escape(p.Value, delim)...)
		buf = append(buf, delim)
	}

	return buf
}
