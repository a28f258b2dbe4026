// Package dialect translates a user-facing search pattern (literal text,
// shell glob, hex byte sequence, or already-valid regex) into the
// canonical regex syntax rxengine compiles.
//
// Each dialect contributes its own translator; whole-word and entire-line
// wrapping, plus the case-insensitive/UTF-8 flag assembly, are applied
// uniformly afterward by Translate so every dialect shares the same
// compile path into rxengine.
package dialect

import (
	"fmt"
	"strings"
)

// Dialect selects which pattern syntax a condition's source text is
// written in.
type Dialect int

const (
	// Literal matches the pattern text verbatim; regex metacharacters are
	// escaped automatically.
	Literal Dialect = iota
	// Glob interprets the pattern as a shell-style glob (*, ?, {a,b}).
	Glob
	// Hex interprets the pattern as whitespace-separated hex bytes and
	// C-style quoted strings.
	Hex
	// Regex passes the pattern through to rxengine unchanged.
	Regex
)

// String returns the dialect's human-readable name.
func (d Dialect) String() string {
	switch d {
	case Literal:
		return "Normal"
	case Glob:
		return "Glob"
	case Hex:
		return "Hex"
	case Regex:
		return "Regular expression"
	default:
		return "Unknown"
	}
}

// Options controls how Translate wraps and reports the canonical pattern.
type Options struct {
	// WholeWords wraps the pattern in \b word-boundary assertions. Ignored
	// when EntireLine is set (an entire-line match is already bounded).
	WholeWords bool
	// EntireLine anchors the pattern with ^ and $.
	EntireLine bool
}

// Error reports a pattern translation failure, tagged with the dialect
// and the byte offset within the original pattern text where translation
// stopped, mirroring the positional hex-dialect errors mc reports.
type Error struct {
	Dialect Dialect
	Pos     int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dialect: %s pattern error at position %d: %v", e.Dialect, e.Pos+1, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Translate converts pattern (written in dialect d) into a canonical regex
// string rxengine can compile. forceASCII reports whether the dialect
// requires byte-oriented (non-UTF-8) compilation regardless of the
// condition's configured charset — true only for Hex, since a hex pattern
// may target binary data that isn't valid text in any charset.
func Translate(pattern []byte, d Dialect, opts Options) (canonical string, forceASCII bool, err error) {
	var body string

	switch d {
	case Literal:
		body = translateLiteral(pattern)
	case Glob:
		body = translateGlob(pattern)
	case Hex:
		body, err = translateHex(pattern)
		if err != nil {
			return "", true, err
		}
		forceASCII = true
	case Regex:
		body = string(pattern)
	default:
		return "", false, fmt.Errorf("dialect: unknown dialect %d", d)
	}

	if opts.EntireLine {
		body = "^" + body + "$"
	} else if opts.WholeWords {
		// rxengine parses with regexp/syntax (RE2 grammar), which has no
		// lookaround: (?<!...) and (?!...) are parse errors. \b is RE2's
		// own zero-width word-boundary assertion, so it wraps the pattern
		// without consuming any bytes or shifting capture group 0's span,
		// the way the lookaround it replaces would not either.
		body = `\b` + body + `\b`
	}

	return body, forceASCII, nil
}

// literalEscape is the exact set of regex metacharacters the Literal and
// Glob dialects escape in unmatched positions.
const literalEscape = `*?,{}[]\+.$()^-|`

// translateLiteral backslash-escapes every regex metacharacter so the
// pattern matches itself verbatim.
func translateLiteral(pattern []byte) string {
	var out strings.Builder
	out.Grow(len(pattern) + 8)
	for _, b := range pattern {
		if strings.IndexByte(literalEscape, b) >= 0 {
			out.WriteByte('\\')
		}
		out.WriteByte(b)
	}
	return out.String()
}

// IsEscaped reports whether pattern[pos] is itself an escaped character,
// i.e. preceded by an odd number of consecutive backslashes. Shared by the
// Glob translator and the replace package's token parser, per the
// upstream convention of computing escape parity exactly once.
func IsEscaped(pattern []byte, pos int) bool {
	count := 0
	for i := pos - 1; i >= 0 && pattern[i] == '\\'; i-- {
		count++
	}
	return count%2 == 1
}

// translateGlob implements the shell-glob-to-regex state machine: * and ?
// become capturing groups ((.*) / (.)) outside a {...} alternation group,
// or bare .*/. inside one (so ,-separated alternatives inside { } don't
// each capture); , becomes | inside a group; { and } become ( and ).
func translateGlob(pattern []byte) string {
	var out strings.Builder
	insideGroup := false

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		escaped := IsEscaped(pattern, i)

		if !escaped {
			switch c {
			case '*':
				if insideGroup {
					out.WriteString(".*")
				} else {
					out.WriteString("(.*)")
				}
				continue
			case '?':
				if insideGroup {
					out.WriteByte('.')
				} else {
					out.WriteString("(.)")
				}
				continue
			case ',':
				if insideGroup {
					out.WriteByte('|')
				} else {
					out.WriteByte(',')
				}
				continue
			case '{':
				out.WriteByte('(')
				insideGroup = true
				continue
			case '}':
				out.WriteByte(')')
				insideGroup = false
				continue
			case '+', '.', '$', '(', ')', '^':
				out.WriteByte('\\')
			}
		}
		out.WriteByte(c)
	}

	return out.String()
}

// GlobBackrefs translates a glob-dialect replacement string into the
// token syntax replace.Render understands: each unescaped * or ? is
// replaced, in the order it appears in the replacement text itself, with
// an auto-numbered backreference (\1, \2, ...), and a literal & is
// escaped so it isn't mistaken for one. The numbering is purely
// positional within the replacement string — it does not inspect the
// search pattern's capture groups — mirroring
// mc_search__translate_replace_glob_to_regex, which counts independently
// of mc_search__glob_translate_to_regex. A replacement with more */?
// tokens than the search pattern has capturing groups is a user error,
// not one this translation can catch.
func GlobBackrefs(pattern string) string {
	var out strings.Builder
	cnt := byte('0')
	escaped := false

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '\\':
			if !escaped {
				escaped = true
				out.WriteByte('\\')
				continue
			}
		case '*', '?':
			if !escaped {
				out.WriteByte('\\')
				cnt++
				c = cnt
			}
		case '&':
			if !escaped {
				out.WriteByte('\\')
			}
		}
		out.WriteByte(c)
		escaped = false
	}

	return out.String()
}
