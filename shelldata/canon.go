package shelldata

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tlog.app/go/errors"
)

// RegexFlags is the set of legal regular expression flags in canonical order.
const RegexFlags = "ilmsux"

// maxSafeInteger is the largest integer a double holds exactly.
const maxSafeInteger = 1 << 53

func checkRegexFlags(flags string) error {
	for i := 0; i < len(flags); i++ {
		if strings.IndexByte(RegexFlags, flags[i]) < 0 {
			return errors.New("illegal regex flag %q", flags[i])
		}
	}

	return nil
}

// canonicalFlags deduplicates flags and sorts them into RegexFlags order.
func canonicalFlags(flags string) string {
	if flags == "" {
		return ""
	}

	var b [len(RegexFlags)]byte
	n := 0

	for i := 0; i < len(RegexFlags); i++ {
		if strings.IndexByte(flags, RegexFlags[i]) >= 0 {
			b[n] = RegexFlags[i]
			n++
		}
	}

	return string(b[:n])
}

// quoteString double-quotes s with minimal escaping.
// Bytes that are not valid UTF-8 are copied as is so the text re-parses to the same string.
func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])

		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteByte(s[i])
		case r == '\\':
			b.WriteString(`\\`)
		case r == '"':
			b.WriteString(`\"`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			// Control character: use \u00XX
			b.WriteString(`\u00`)
			b.WriteByte(upperHex[r>>4])
			b.WriteByte(upperHex[r&0xf])
		default:
			b.WriteString(s[i : i+size])
		}

		i += size
	}

	b.WriteByte('"')
	return b.String()
}

const upperHex = "0123456789ABCDEF"

// isBareKey reports whether a document key may be written without quotes.
func isBareKey(s string) bool {
	if s == "" || isDigit(s[0]) {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isLetter(c) && !isDigit(c) && c != '_' {
			return false
		}
	}

	return true
}

// formatDouble renders f so that it re-parses as a double.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	if a := math.Abs(f); a != 0 && (a < 1e-6 || a >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}

	return s
}

// regexIsBare reports whether pattern can be written as /pattern/ and scanned back unchanged.
func regexIsBare(pattern string) bool {
	if pattern == "" || pattern[0] == '*' {
		return false
	}

	if strings.ContainsAny(pattern, "\n\r") {
		return false
	}

	// Mirror the lexer's class tracking: an unclosed [ would swallow the closing slash.
	// An escaped slash cannot be written bare since the lexer reads \/ as /.
	inClass := false
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			if i+1 == len(pattern) || pattern[i+1] == '/' {
				return false
			}
			i++
		case '[':
			inClass = true
		case ']':
			inClass = false
		}
	}

	return !inClass
}

// escapeRegex escapes every unescaped slash of a bare-safe pattern.
func escapeRegex(pattern string) string {
	if !strings.Contains(pattern, "/") {
		return pattern
	}

	var b strings.Builder
	b.Grow(len(pattern) + 4)

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]

		switch c {
		case '\\':
			b.WriteByte(c)
			i++
			b.WriteByte(pattern[i])
		case '/':
			b.WriteString(`\/`)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

const isoLayout = "2006-01-02T15:04:05.000Z"

// Accepted ISODate argument layouts. Fractional seconds are accepted after
// the seconds field by time.Parse even when the layout omits them.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseISODate(s string) (int64, error) {
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UnixMilli(), nil
		}
	}

	return 0, errors.New("invalid date %q", s)
}

// formatDate returns the ISO text of ms, or false if the year has no four digit form.
func formatDate(ms int64) (string, bool) {
	t := time.UnixMilli(ms).UTC()
	if y := t.Year(); y < 0 || y > 9999 {
		return "", false
	}

	return t.Format(isoLayout), true
}
