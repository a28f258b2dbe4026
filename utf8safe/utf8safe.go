// Package utf8safe guards against feeding invalid UTF-8 to a regex engine
// that assumes well-formed input.
//
// rxengine's UTF-8 NFA path walks the subject rune by rune; a stray
// continuation byte or truncated multi-byte sequence would desynchronize
// that walk and could report matches at the wrong offsets. Scrub removes
// that risk in place, without changing the buffer's length, so offsets
// callers already captured stay valid.
package utf8safe

import "unicode/utf8"

// Scrub replaces every byte that is not part of a valid UTF-8 encoding with
// a NUL byte, in place. It never changes len(buf), so any offsets computed
// against buf before scrubbing remain valid afterward.
func Scrub(buf []byte) {
	for i := 0; i < len(buf); {
		if buf[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size == 1 {
			buf[i] = 0
			i++
			continue
		}
		i += size
	}
}

// Valid reports whether buf is entirely well-formed UTF-8.
func Valid(buf []byte) bool {
	return utf8.Valid(buf)
}
