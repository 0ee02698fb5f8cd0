// Package canonicaljson produces the byte-exact JSON form that webhook
// signatures are computed over.
//
// The canonical form is compact JSON in producer key order with strings
// escaped the way PHP's json_encode does by default: "/" becomes "\/", every
// non-ASCII code point becomes a lowercase \uXXXX escape (surrogate pairs
// above U+FFFF), and "<", ">" and "&" stay literal. Numbers are emitted as
// produced by the encoder.
package canonicaljson

import (
	"bytes"
	"encoding/json"
	"unicode/utf16"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// Marshal encodes v in canonical form. Structs keep field declaration order,
// ordered maps and json.RawMessage keep their own order, and plain Go maps
// come out with sorted keys.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return Normalize(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Normalize compacts data and rewrites every string token in canonical
// escaping. Two documents that differ only in whitespace or in how their
// strings are escaped normalize to the same bytes.
func Normalize(data []byte) ([]byte, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, err
	}

	src := compact.Bytes()
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); {
		if src[i] != '"' {
			out = append(out, src[i])
			i++
			continue
		}
		end := stringEnd(src, i)
		var s string
		if err := json.Unmarshal(src[i:end], &s); err != nil {
			return nil, err
		}
		out = appendString(out, s)
		i = end
	}
	return out, nil
}

// stringEnd returns the index just past the closing quote of the string
// token starting at start. src must be valid compact JSON.
func stringEnd(src []byte, start int) int {
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(src)
}

func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for _, r := range s {
		switch {
		case r == '"':
			dst = append(dst, '\\', '"')
		case r == '\\':
			dst = append(dst, '\\', '\\')
		case r == '/':
			dst = append(dst, '\\', '/')
		case r == '\b':
			dst = append(dst, '\\', 'b')
		case r == '\f':
			dst = append(dst, '\\', 'f')
		case r == '\n':
			dst = append(dst, '\\', 'n')
		case r == '\r':
			dst = append(dst, '\\', 'r')
		case r == '\t':
			dst = append(dst, '\\', 't')
		case r < 0x20:
			dst = appendEscape(dst, r)
		case r < utf8.RuneSelf:
			dst = append(dst, byte(r))
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			dst = appendEscape(appendEscape(dst, hi), lo)
		default:
			dst = appendEscape(dst, r)
		}
	}
	return append(dst, '"')
}

func appendEscape(dst []byte, r rune) []byte {
	return append(dst, '\\', 'u',
		hexDigits[r>>12&0xF], hexDigits[r>>8&0xF], hexDigits[r>>4&0xF], hexDigits[r&0xF])
}
