// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package utf8validate checks byte slices for well-formed, pure UTF-8:
// ASCII and properly tagged 2/3/4-byte sequences, rejecting overlong
// encodings, surrogates, codepoints above U+10FFFF, and truncated
// sequences. It does not accept Modified UTF-8, CESU-8, or WTF-8.
//
// Unlike unicode/utf8's DecodeRune family (which substitutes
// RuneError for bad input and keeps scanning), this package reports a
// single pass/fail so the caller — the MessagePack reader's ReadUTF8 family
// — can flag the whole string as invalid rather than silently accept a
// corrupted one.
package utf8validate

// Valid reports whether b is well-formed, pure UTF-8.
func Valid(b []byte) bool {
	return scan(b, false)
}

// ValidNoNUL reports whether b is well-formed, pure UTF-8 with no embedded
// NUL bytes, for C-string-compatible reads.
func ValidNoNUL(b []byte) bool {
	return scan(b, true)
}

func scan(b []byte, rejectNUL bool) bool {
	i := 0
	n := len(b)
	for i < n {
		c := b[i]
		switch {
		case c < 0x80:
			if rejectNUL && c == 0 {
				return false
			}
			i++
		case c&0xe0 == 0xc0:
			if i+1 >= n || !isCont(b[i+1]) {
				return false
			}
			cp := (rune(c&0x1f) << 6) | rune(b[i+1]&0x3f)
			if cp < 0x80 { // overlong
				return false
			}
			i += 2
		case c&0xf0 == 0xe0:
			if i+2 >= n || !isCont(b[i+1]) || !isCont(b[i+2]) {
				return false
			}
			cp := (rune(c&0x0f) << 12) | (rune(b[i+1]&0x3f) << 6) | rune(b[i+2]&0x3f)
			if cp < 0x800 { // overlong
				return false
			}
			if cp >= 0xd800 && cp <= 0xdfff { // surrogate
				return false
			}
			i += 3
		case c&0xf8 == 0xf0:
			if i+3 >= n || !isCont(b[i+1]) || !isCont(b[i+2]) || !isCont(b[i+3]) {
				return false
			}
			cp := (rune(c&0x07) << 18) | (rune(b[i+1]&0x3f) << 12) | (rune(b[i+2]&0x3f) << 6) | rune(b[i+3]&0x3f)
			if cp < 0x10000 || cp > 0x10ffff { // overlong or out of range
				return false
			}
			i += 4
		default:
			// Continuation byte in lead position, or a 5/6-byte lead
			// (0xf8-0xff), none of which are valid UTF-8.
			return false
		}
	}
	return true
}

func isCont(c byte) bool { return c&0xc0 == 0x80 }
