// Package strenc implements the string/terminator conversions the
// narrow/wide call-site boundary and the .reg codec both need: narrow
// (UTF-8, this shim's stand-in for the platform's narrow code page) to
// and from the UTF-16LE payloads the overlay always stores strings as.
package strenc

import (
	"encoding/binary"
	"unicode/utf16"
)

var (
	UTF16LEBOM = [2]byte{0xFF, 0xFE}
	UTF8BOM    = [3]byte{0xEF, 0xBB, 0xBF}
)

// DecodeFileInput converts .reg file input (UTF-16LE or UTF-8) to UTF-8
// bytes suitable for line-oriented scanning, detecting the encoding from a
// leading byte-order mark when present. Without a mark, input whose second
// byte is NUL (an ASCII first character in UTF-16LE) is read as UTF-16LE
// and anything else as UTF-8.
func DecodeFileInput(data []byte) []byte {
	if len(data) >= 2 && data[0] == UTF16LEBOM[0] && data[1] == UTF16LEBOM[1] {
		return UTF16LEToUTF8(data[2:])
	}
	if len(data) >= 3 && data[0] == UTF8BOM[0] && data[1] == UTF8BOM[1] && data[2] == UTF8BOM[2] {
		return data[3:]
	}
	if len(data) >= 2 && data[0] != 0 && data[1] == 0 {
		return UTF16LEToUTF8(data)
	}
	return data
}

// UTF16LEToUTF8 decodes a raw (non-terminated) UTF-16LE byte slice.
func UTF16LEToUTF8(data []byte) []byte {
	if len(data)%2 == 1 {
		data = data[:len(data)-1]
	}
	if len(data) == 0 {
		return nil
	}
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return []byte(string(utf16.Decode(words)))
}

// EncodeUTF16LEWithBOM encodes text as UTF-16LE with a leading byte-order
// mark, the emission encoding for exported .reg files and CLI output.
func EncodeUTF16LEWithBOM(text string) []byte {
	units := utf16.Encode([]rune(text))
	out := make([]byte, 2+len(units)*2)
	out[0], out[1] = UTF16LEBOM[0], UTF16LEBOM[1]
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2+i*2:], u)
	}
	return out
}

// NarrowToUTF16LENulTerminated encodes s as UTF-16LE with a single
// trailing NUL code unit (the REG_SZ / REG_EXPAND_SZ terminator rule).
func NarrowToUTF16LENulTerminated(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, (len(units)+1)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[i*2:], u)
	}
	return out
}

// NarrowMultiToUTF16LEDoubleNulTerminated encodes a REG_MULTI_SZ list as
// UTF-16LE: each string single-NUL terminated, the whole payload
// double-NUL terminated.
func NarrowMultiToUTF16LEDoubleNulTerminated(strs []string) []byte {
	var out []byte
	for _, s := range strs {
		out = append(out, NarrowToUTF16LENulTerminated(s)...)
	}
	return append(out, 0, 0)
}

// UTF16LEStringToNarrow transcodes a NUL-terminated UTF-16LE payload back
// to a narrow (UTF-8) string, stopping at the first NUL code unit.
func UTF16LEStringToNarrow(data []byte) string {
	n := len(data) - (len(data) % 2)
	words := make([]uint16, 0, n/2)
	for i := 0; i+1 < n; i += 2 {
		u := binary.LittleEndian.Uint16(data[i:])
		if u == 0 {
			break
		}
		words = append(words, u)
	}
	return string(utf16.Decode(words))
}

// UTF16LEMultiToNarrow splits a double-NUL-terminated MULTI_SZ payload
// into its narrow (UTF-8) component strings.
func UTF16LEMultiToNarrow(data []byte) []string {
	var out []string
	n := len(data) - (len(data) % 2)
	var words []uint16
	for i := 0; i+1 < n; i += 2 {
		u := binary.LittleEndian.Uint16(data[i:])
		if u == 0 {
			if len(words) == 0 {
				break
			}
			out = append(out, string(utf16.Decode(words)))
			words = nil
			continue
		}
		words = append(words, u)
	}
	if len(words) > 0 {
		out = append(out, string(utf16.Decode(words)))
	}
	return out
}
