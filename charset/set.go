package charset

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Charset is the per-codepage view dialect, casefold, and msearch compile
// conditions against: decoding one logical character from the condition's
// raw bytes, classifying it, and mapping it to upper/lower case.
//
// UTF8 and ASCII are pseudo-charsets with no codepage table behind them;
// every registered codepage (koi8-r, cp1251, ...) is backed by a Table.
type Charset interface {
	// Name is the charset's registry identifier ("utf-8", "ascii", "koi8-r", ...).
	Name() string

	// IsUTF8 reports whether this charset is the UTF-8 pseudo-charset. The
	// regex engine's native Unicode case-insensitivity only applies when
	// this is true; every other charset must be case-expanded by casefold.
	IsUTF8() bool

	// DecodeOne reads one logical character starting at b[0] and returns
	// its Unicode code point together with the number of raw bytes it
	// occupies. size is always 1 for single-byte charsets.
	DecodeOne(b []byte) (r rune, size int)

	// Encode maps r back to this charset's raw byte(s). ok is false if r
	// has no representation in this charset.
	Encode(r rune) (b []byte, ok bool)

	ToUpper(r rune) rune
	ToLower(r rune) rune
	IsAlphanumeric(r rune) bool
	IsDigit(r rune) bool
}

type asciiCharset struct{}

// ASCII is the 7-bit pseudo-charset used to force byte-oriented matching
// (the Hex dialect always compiles against it, per spec).
var ASCII Charset = asciiCharset{}

func (asciiCharset) Name() string  { return "ascii" }
func (asciiCharset) IsUTF8() bool  { return false }
func (asciiCharset) DecodeOne(b []byte) (rune, int) {
	if len(b) == 0 {
		return utf8.RuneError, 0
	}
	if b[0] >= utf8.RuneSelf {
		return utf8.RuneError, 1
	}
	return rune(b[0]), 1
}
func (asciiCharset) Encode(r rune) ([]byte, bool) {
	if r < 0 || r >= utf8.RuneSelf {
		return nil, false
	}
	return []byte{byte(r)}, true
}
func (asciiCharset) ToUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
func (asciiCharset) ToLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
func (asciiCharset) IsAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
func (asciiCharset) IsDigit(r rune) bool { return r >= '0' && r <= '9' }

type utf8Charset struct{}

// UTF8 is the Unicode pseudo-charset. The regex engine folds case for this
// charset itself; casefold.Expand is never invoked for it.
var UTF8 Charset = utf8Charset{}

func (utf8Charset) Name() string { return "utf-8" }
func (utf8Charset) IsUTF8() bool { return true }
func (utf8Charset) DecodeOne(b []byte) (rune, int) {
	if len(b) == 0 {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRune(b)
}
func (utf8Charset) Encode(r rune) ([]byte, bool) {
	if !utf8.ValidRune(r) {
		return nil, false
	}
	buf := make([]byte, utf8.UTFMax)
	n := utf8.EncodeRune(buf, r)
	return buf[:n], true
}
func (utf8Charset) ToUpper(r rune) rune          { return unicode.ToUpper(r) }
func (utf8Charset) ToLower(r rune) rune          { return unicode.ToLower(r) }
func (utf8Charset) IsAlphanumeric(r rune) bool   { return unicode.IsLetter(r) || unicode.IsDigit(r) }
func (utf8Charset) IsDigit(r rune) bool          { return unicode.IsDigit(r) }

// codepageCharset adapts a single-byte Table/charmap pair to the Charset
// interface.
type codepageCharset struct {
	name string
	tbl  *Table
	cm   *charmap.Charmap
}

func (c *codepageCharset) Name() string { return c.name }
func (c *codepageCharset) IsUTF8() bool { return false }
func (c *codepageCharset) DecodeOne(b []byte) (rune, int) {
	if len(b) == 0 {
		return utf8.RuneError, 0
	}
	return c.cm.DecodeByte(b[0]), 1
}
func (c *codepageCharset) Encode(r rune) ([]byte, bool) {
	b, ok := c.cm.EncodeRune(r)
	if !ok {
		return nil, false
	}
	return []byte{b}, true
}
func (c *codepageCharset) ToUpper(r rune) rune {
	b, ok := c.cm.EncodeRune(r)
	if !ok {
		return r
	}
	return c.cm.DecodeByte(c.tbl.ToUpper(b))
}
func (c *codepageCharset) ToLower(r rune) rune {
	b, ok := c.cm.EncodeRune(r)
	if !ok {
		return r
	}
	return c.cm.DecodeByte(c.tbl.ToLower(b))
}
func (c *codepageCharset) IsAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
func (c *codepageCharset) IsDigit(r rune) bool { return unicode.IsDigit(r) }

// ByName resolves a charset identifier to a Charset. "ascii" and "utf-8"
// resolve to the pseudo-charsets; any other name is looked up as a
// registered codepage.
func ByName(name string) (Charset, error) {
	switch name {
	case "ascii", "":
		return ASCII, nil
	case "utf-8", "utf8":
		return UTF8, nil
	}
	tbl, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return &codepageCharset{name: name, tbl: tbl, cm: registry[name]}, nil
}

// All returns every Charset known to the registry, ASCII and UTF-8 first.
// msearch's all_charsets mode compiles one condition per entry.
func All() []Charset {
	out := []Charset{ASCII, UTF8}
	for _, name := range Names() {
		cs, err := ByName(name)
		if err != nil {
			continue
		}
		out = append(out, cs)
	}
	return out
}

// Recode transcodes b from src's encoding to dst's encoding, decoding one
// logical character at a time. Bytes with no representation in dst are
// dropped, mirroring iconv's //TRANSLIT-less behavior for unmappable
// characters in the upstream tool's recode path.
func Recode(b []byte, src, dst Charset) []byte {
	if src.Name() == dst.Name() {
		out := make([]byte, len(b))
		copy(out, b)
		return out
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		r, size := src.DecodeOne(b[i:])
		if size == 0 {
			break
		}
		if enc, ok := dst.Encode(r); ok {
			out = append(out, enc...)
		}
		i += size
	}
	return out
}
