package internal

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/runenames"
)

var (
	runeNamesOnce  sync.Once
	runeNamesIndex map[string]rune
)

// lookupRuneName resolves a Unicode character name such as "LATIN SMALL LETTER A".
// The reverse index is built on first use.
func lookupRuneName(name string) (rune, bool) {
	runeNamesOnce.Do(func() {
		runeNamesIndex = make(map[string]rune, 1<<15)
		for r := rune(0); r <= unicode.MaxRune; r++ {
			if r >= 0xD800 && r <= 0xDFFF {
				continue
			}
			n := runenames.Name(r)
			if n == "" || strings.HasPrefix(n, "<") {
				continue
			}
			if _, exists := runeNamesIndex[n]; !exists {
				runeNamesIndex[n] = r
			}
		}
	})
	r, ok := runeNamesIndex[strings.ToUpper(strings.TrimSpace(name))]
	return r, ok
}

// Unescape resolves backslash escapes in a string literal body. Supported forms
// are the single-character escapes, \xNN, \uNNNN, \UNNNNNNNN and \N{NAME}.
// Unknown escapes are kept verbatim.
func Unescape(raw string) (string, error) {
	if strings.IndexByte(raw, CharBackslash) < 0 {
		return raw, nil
	}

	var sb strings.Builder
	sb.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if ch != CharBackslash || i+1 >= len(raw) {
			sb.WriteByte(ch)
			continue
		}
		i++
		switch esc := raw[i]; esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case '\\', '\'', '"':
			sb.WriteByte(esc)
		case '\n':
			// line continuation
		case 'x', 'u', 'U':
			width := hexEscapeWidth(esc)
			if i+1+width > len(raw) {
				return "", fmt.Errorf("%s: \\%c needs %d hex digits", ErrMsgInvalidEscape, esc, width)
			}
			code, err := strconv.ParseUint(raw[i+1:i+1+width], 16, 32)
			if err != nil {
				return "", fmt.Errorf("%s: \\%c%s", ErrMsgInvalidEscape, esc, raw[i+1:i+1+width])
			}
			if !utf8.ValidRune(rune(code)) {
				return "", fmt.Errorf("%s: code point %X out of range", ErrMsgInvalidEscape, code)
			}
			sb.WriteRune(rune(code))
			i += width
		case 'N':
			if i+1 >= len(raw) || raw[i+1] != '{' {
				return "", fmt.Errorf("%s: \\N must be followed by {NAME}", ErrMsgInvalidEscape)
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%s: unterminated \\N{", ErrMsgInvalidEscape)
			}
			name := raw[i+2 : i+1+end]
			r, ok := lookupRuneName(name)
			if !ok {
				return "", fmt.Errorf("%s: unknown character name %q", ErrMsgInvalidEscape, name)
			}
			sb.WriteRune(r)
			i += 1 + end
		default:
			sb.WriteByte(CharBackslash)
			sb.WriteByte(esc)
		}
	}
	return sb.String(), nil
}

func hexEscapeWidth(esc byte) int {
	switch esc {
	case 'x':
		return 2
	case 'u':
		return 4
	default:
		return 8
	}
}

// ErrMsgInvalidEscape is reported for malformed escape sequences
const ErrMsgInvalidEscape = "invalid escape sequence"
