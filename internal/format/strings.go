package format

import (
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodedString carries a decoded registry string along with whether the
// decode required substituting replacement characters. Tainted strings are
// still returned (never dropped); the caller decides whether to surface the
// taint to a diagnostics report.
type DecodedString struct {
	Value   string
	Tainted bool
}

// isASCII reports whether every byte in b is in the 7-bit ASCII range, which
// lets callers skip the charmap/UTF-16 machinery for the overwhelmingly
// common case of plain key and value names.
func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

// DecodeWindows1252 decodes b (compressed/ANSI name bytes) as Windows-1252.
// Windows-1252 maps every byte to a valid rune, so this path never taints.
func DecodeWindows1252(b []byte) DecodedString {
	if isASCII(b) {
		return DecodedString{Value: string(b)}
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return DecodedString{Value: string(b), Tainted: true}
	}
	return DecodedString{Value: string(out)}
}

// DecodeUTF16LE decodes b as UTF-16LE. An odd-length input or any unpaired
// surrogate results in a Tainted string carrying U+FFFD replacement
// characters rather than a hard failure, per spec's Clean/Tainted model.
func DecodeUTF16LE(b []byte) DecodedString {
	if isASCII(b) && len(b)%2 == 0 {
		// Fast path: ASCII-range UTF-16LE is every other byte zero.
		ascii := true
		for i := 1; i < len(b); i += 2 {
			if b[i] != 0 {
				ascii = false
				break
			}
		}
		if ascii {
			out := make([]byte, 0, len(b)/2)
			for i := 0; i < len(b); i += 2 {
				out = append(out, b[i])
			}
			return DecodedString{Value: string(out)}
		}
	}

	tainted := len(b)%2 != 0
	n := len(b) / 2
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	runes := utf16.Decode(units)
	s := string(runes)
	if !tainted {
		for _, r := range runes {
			if r == utf8.RuneError {
				tainted = true
				break
			}
		}
	}
	return DecodedString{Value: s, Tainted: tainted}
}

// DecodeMultiString splits a REG_MULTI_SZ payload on UTF-16 NUL code units,
// dropping a single trailing empty segment (the terminating double-NUL).
func DecodeMultiString(b []byte) ([]string, bool) {
	n := len(b) / 2
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	var out []string
	var tainted bool
	start := 0
	for i, u := range units {
		if u != 0 {
			continue
		}
		seg := DecodeUTF16LE(unitsToBytes(units[start:i]))
		if seg.Tainted {
			tainted = true
		}
		if seg.Value != "" || i != len(units)-1 {
			out = append(out, seg.Value)
		}
		start = i + 1
	}
	if start < len(units) {
		seg := DecodeUTF16LE(unitsToBytes(units[start:]))
		if seg.Tainted {
			tainted = true
		}
		out = append(out, seg.Value)
	}
	return out, tainted
}

func unitsToBytes(units []uint16) []byte {
	b := make([]byte, len(units)*2)
	for i, u := range units {
		b[2*i] = byte(u)
		b[2*i+1] = byte(u >> 8)
	}
	return b
}

// DecodeKeyName decodes an nk record's name bytes. compressed selects
// Windows-1252 (KEY_COMP_NAME) over UTF-16LE.
func DecodeKeyName(raw []byte, compressed bool) DecodedString {
	if compressed {
		return DecodeWindows1252(raw)
	}
	return DecodeUTF16LE(raw)
}

// DecodeValueName decodes a vk record's name bytes. ascii selects
// Windows-1252 (VALUE_COMP_NAME) over UTF-16LE.
func DecodeValueName(raw []byte, ascii bool) DecodedString {
	if ascii {
		return DecodeWindows1252(raw)
	}
	return DecodeUTF16LE(raw)
}

// DecodeRegString decodes a REG_SZ/REG_EXPAND_SZ/REG_LINK payload: UTF-16LE
// primary, falling back to Windows-1252 only when the UTF-16LE decode is
// tainted, per spec §4.9.
func DecodeRegString(b []byte) DecodedString {
	primary := DecodeUTF16LE(b)
	if !primary.Tainted {
		return primary
	}
	fallback := DecodeWindows1252(b)
	if !fallback.Tainted {
		return fallback
	}
	return primary
}
