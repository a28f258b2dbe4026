// Package replace renders a replacement template against a match's
// capture groups.
//
// Two modes are supported: Raw, which copies the template verbatim (used
// when the original search dialect was Literal and the replacement text
// is meant to be taken literally), and Cooked, which interprets capture
// references (\N, ${N}), case-transform directives (\U \u \L \l \E), and
// control/numeric escapes (\n, \xHH, \{octal}) the way the regex dialect's
// replacement syntax does.
package replace

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

func toUpper(r rune) rune { return unicode.ToUpper(r) }

func toLower(r rune) rune { return unicode.ToLower(r) }

// Mode selects how Render interprets tpl.
type Mode int

const (
	// Cooked interprets capture references and escape sequences.
	Cooked Mode = iota
	// Raw copies the template verbatim.
	Raw
)

// maxCaptureToken is the highest numbered \N / ${N} backreference a
// template may use, mirroring MC_SEARCH__NUM_REPLACE_ARGS's capture
// ceiling.
const maxCaptureToken = 16

// ErrTooManyTokens is returned when a template references a capture group
// index beyond what the compiled condition produced or beyond
// maxCaptureToken.
type ErrTooManyTokens struct {
	Token int
}

func (e *ErrTooManyTokens) Error() string {
	return fmt.Sprintf("replace: capture reference %%%d exceeds the %d available capture groups", e.Token, maxCaptureToken)
}

// Captures exposes a match's capture group text to Render.
type Captures interface {
	// NumGroups returns the number of capture groups, including group 0.
	NumGroups() int
	// Group returns the matched bytes for group i, or nil if it is
	// unmatched or out of range.
	Group(i int) []byte
}

type transform int

const (
	transformNone      transform = 0
	transformUpperChar transform = 1 << 0
	transformLowerChar transform = 1 << 1
	transformUpper     transform = 1 << 2
	transformLower     transform = 1 << 3
)

// Render expands tpl against match's captures. utf8Mode controls whether
// numeric escapes above 0x7F are UTF-8 encoded or emitted as a single raw
// byte.
func Render(tpl []byte, match Captures, mode Mode, utf8Mode bool) ([]byte, error) {
	if mode == Raw {
		out := make([]byte, len(tpl))
		copy(out, tpl)
		return out, nil
	}

	if err := checkTokenCeiling(tpl, match.NumGroups()); err != nil {
		return nil, err
	}

	var out strings.Builder
	flags := transformNone
	i := 0

	for i < len(tpl) {
		token, skip, ok := parseToken(tpl, i)
		if !ok {
			// Collect the whole run of ordinary literal bytes up to the
			// next recognized token and transform it as one unit, so a
			// multi-byte UTF-8 rune in the template isn't split across
			// separate appendTransformed calls, and so \U/\L apply to
			// literal template text the same way they already apply to
			// capture substitutions (regex.c's process_append_str runs
			// every literal chunk through the same case-transform path).
			j := i + 1
			for j < len(tpl) {
				if _, _, tokOK := parseToken(tpl, j); tokOK {
					break
				}
				j++
			}
			appendTransformed(&out, tpl[i:j], &flags)
			i = j
			continue
		}

		switch t := token.(type) {
		case captureRef:
			g := match.Group(t.index)
			appendTransformed(&out, g, &flags)
		case transformFlag:
			applyTransformFlag(&flags, t.directive)
		case literalByte:
			appendEscapeByte(&out, t.value, utf8Mode, &flags)
		case literalBytes:
			appendTransformed(&out, t.value, &flags)
		}

		i += skip
	}

	return []byte(out.String()), nil
}

type captureRef struct{ index int }
type transformFlag struct{ directive byte }
type literalByte struct{ value rune }
type literalBytes struct{ value []byte }

// checkTokenCeiling rejects templates that reference a capture index the
// match can't satisfy or that exceeds maxCaptureToken.
func checkTokenCeiling(tpl []byte, numGroups int) error {
	for i := 0; i+1 < len(tpl); i++ {
		var tok int
		var matched bool

		if tpl[i] == '\\' && i+1 < len(tpl) && tpl[i+1] >= '0' && tpl[i+1] <= '9' && !isEscapedAt(tpl, i) {
			tok = int(tpl[i+1] - '0')
			matched = true
		} else if tpl[i] == '$' && i+1 < len(tpl) && tpl[i+1] == '{' && !isEscapedAt(tpl, i) {
			j := i + 2
			for j < len(tpl) && tpl[j] >= '0' && tpl[j] <= '9' {
				j++
			}
			if j < len(tpl) && tpl[j] == '}' && j > i+2 {
				n, _ := strconv.Atoi(string(tpl[i+2 : j]))
				tok = n
				matched = true
			}
		}

		if matched && (tok > maxCaptureToken || tok >= numGroups) {
			return &ErrTooManyTokens{Token: tok}
		}
	}
	return nil
}

func isEscapedAt(tpl []byte, i int) bool {
	count := 0
	for j := i - 1; j >= 0 && tpl[j] == '\\'; j-- {
		count++
	}
	return count%2 == 1
}

// parseToken inspects tpl[i:] for a capture reference, a transform
// directive, or an escape sequence, returning the parsed token and how
// many bytes it consumes. ok is false when tpl[i] is an ordinary literal
// byte the caller should copy as-is.
func parseToken(tpl []byte, i int) (token interface{}, skip int, ok bool) {
	if tpl[i] == '$' && i+2 < len(tpl) && tpl[i+1] == '{' && isDigit(tpl[i+2]) && !isEscapedAt(tpl, i) {
		j := i + 2
		for j < len(tpl) && isDigit(tpl[j]) {
			j++
		}
		if j < len(tpl) && tpl[j] == '}' {
			n, _ := strconv.Atoi(string(tpl[i+2 : j]))
			return captureRef{index: n}, j + 1 - i, true
		}
		return nil, 0, false
	}

	if tpl[i] != '\\' || i+1 >= len(tpl) || isEscapedAt(tpl, i) {
		return nil, 0, false
	}

	c := tpl[i+1]

	if isDigit(c) {
		return captureRef{index: int(c - '0')}, 2, true
	}

	switch c {
	case 'U', 'u', 'L', 'l', 'E':
		return transformFlag{directive: c}, 2, true
	case '{':
		return parseOctalEscape(tpl, i)
	case 'x':
		return parseHexEscape(tpl, i)
	case 'n':
		return literalByte{value: '\n'}, 2, true
	case 't':
		return literalByte{value: '\t'}, 2, true
	case 'v':
		return literalByte{value: '\v'}, 2, true
	case 'b':
		return literalByte{value: '\b'}, 2, true
	case 'r':
		return literalByte{value: '\r'}, 2, true
	case 'f':
		return literalByte{value: '\f'}, 2, true
	case 'a':
		return literalByte{value: '\a'}, 2, true
	}

	return nil, 0, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func parseOctalEscape(tpl []byte, i int) (interface{}, int, bool) {
	j := i + 2
	for j < len(tpl) && tpl[j] >= '0' && tpl[j] <= '7' {
		j++
	}
	if j >= len(tpl) || tpl[j] != '}' {
		return nil, 0, false
	}
	val := 0
	for k := i + 2; k < j; k++ {
		val = val*8 + int(tpl[k]-'0')
	}
	return literalByte{value: rune(val)}, j + 1 - i, true
}

func parseHexEscape(tpl []byte, i int) (interface{}, int, bool) {
	j := i + 2
	braced := j < len(tpl) && tpl[j] == '{'
	if braced {
		j++
	}
	start := j
	for j < len(tpl) && isHexDigit(tpl[j]) {
		j++
	}
	if j == start {
		return nil, 0, false
	}
	end := j
	if braced {
		if j >= len(tpl) || tpl[j] != '}' {
			return nil, 0, false
		}
		j++
	} else if j-start > 2 {
		end = start + 2
		j = end
	}
	val := 0
	for k := start; k < end; k++ {
		val = val*16 + hexDigitValue(tpl[k])
	}
	return literalByte{value: rune(val)}, j - i, true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexDigitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

func applyTransformFlag(flags *transform, directive byte) {
	switch directive {
	case 'U':
		*flags |= transformUpper
		*flags &^= transformLower
	case 'u':
		*flags |= transformUpperChar
	case 'L':
		*flags |= transformLower
		*flags &^= transformUpper
	case 'l':
		*flags |= transformLowerChar
	case 'E':
		*flags = transformNone
	}
}

// appendTransformed writes b to out, applying the current case-transform
// flags rune by rune (transformUpperChar/transformLowerChar consume
// themselves after the first rune).
func appendTransformed(out *strings.Builder, b []byte, flags *transform) {
	if *flags == transformNone {
		out.Write(b)
		return
	}
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		out.WriteRune(transformRune(r, flags))
		i += size
	}
}

func transformRune(r rune, flags *transform) rune {
	switch {
	case *flags&transformUpperChar != 0:
		*flags &^= transformUpperChar
		return toUpper(r)
	case *flags&transformLowerChar != 0:
		*flags &^= transformLowerChar
		return toLower(r)
	case *flags&transformUpper != 0:
		return toUpper(r)
	case *flags&transformLower != 0:
		return toLower(r)
	default:
		return r
	}
}

// appendEscapeByte writes the decoded escape rune v: UTF-8 encoded when
// utf8Mode and v is non-ASCII, otherwise as the single raw byte value
// v&0xFF, matching the upstream implementation's is_utf8 branch.
func appendEscapeByte(out *strings.Builder, v rune, utf8Mode bool, flags *transform) {
	if v < 0x80 || !utf8Mode {
		transformed := transformRune(v&0xFF, flags)
		out.WriteByte(byte(transformed))
		return
	}
	out.WriteRune(transformRune(v, flags))
}
