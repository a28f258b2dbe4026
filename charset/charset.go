// Package charset maps a codepage name to a per-byte upper/lower case table.
//
// The regex and DFA engines in rxengine fold case using Go's Unicode tables,
// which only know about UTF-8 text. A pattern condition built against a
// legacy single-byte codepage (KOI8-R, CP1251, ISO-8859-5, ...) needs its
// case-insensitive alternatives expanded one byte at a time before the
// pattern ever reaches the regex compiler; charset.Table supplies the
// upper/lower mapping casefold needs to do that expansion.
package charset

import (
	"fmt"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

// Table maps every byte value (0-255) of a single-byte codepage to its
// upper and lower case equivalents. Bytes with no case (digits, punctuation,
// control codes) map to themselves.
type Table struct {
	name  string
	upper [256]byte
	lower [256]byte
}

// Name returns the codepage identifier the table was built for.
func (t *Table) Name() string { return t.name }

// ToUpper returns the upper case byte for b, or b unchanged if b has no
// case in this codepage.
func (t *Table) ToUpper(b byte) byte { return t.upper[b] }

// ToLower returns the lower case byte for b, or b unchanged if b has no
// case in this codepage.
func (t *Table) ToLower(b byte) byte { return t.lower[b] }

// registry holds the codepages known at init time. Names match the
// identifiers mc's charsets.list uses (lowercased, as Lookup normalizes
// its argument).
var registry = map[string]*charmap.Charmap{
	"cp1251":     charmap.Windows1251,
	"windows-1251": charmap.Windows1251,
	"cp1252":     charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"koi8-r":     charmap.KOI8R,
	"koi8-u":     charmap.KOI8U,
	"iso-8859-1": charmap.ISO8859_1,
	"iso-8859-2": charmap.ISO8859_2,
	"iso-8859-5": charmap.ISO8859_5,
	"iso-8859-7": charmap.ISO8859_7,
	"iso-8859-9": charmap.ISO8859_9,
	"cp866":      charmap.CodePage866,
	"ibm866":     charmap.CodePage866,
}

var tableCache = map[string]*Table{}

// Lookup returns the case table for the named codepage. The empty string
// is not a valid name: callers use it to mean "no charset, fold via
// Unicode" and should not call Lookup in that case.
func Lookup(name string) (*Table, error) {
	if t, ok := tableCache[name]; ok {
		return t, nil
	}
	cm, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("charset: unknown codepage %q", name)
	}
	t := buildTable(name, cm)
	tableCache[name] = t
	return t, nil
}

// Names returns the list of codepage identifiers Lookup accepts.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

func buildTable(name string, cm *charmap.Charmap) *Table {
	t := &Table{name: name}
	for i := 0; i < 256; i++ {
		t.upper[i] = byte(i)
		t.lower[i] = byte(i)
	}
	for i := 0; i < 256; i++ {
		r := cm.DecodeByte(byte(i))
		if r == 0xFFFD {
			continue
		}
		upperByte, upperOK := cm.EncodeRune(toUpperRune(r))
		lowerByte, lowerOK := cm.EncodeRune(toLowerRune(r))
		if upperOK {
			t.upper[i] = upperByte
		}
		if lowerOK {
			t.lower[i] = lowerByte
		}
	}
	return t
}

func toUpperRune(r rune) rune { return unicode.ToUpper(r) }

func toLowerRune(r rune) rune { return unicode.ToLower(r) }
