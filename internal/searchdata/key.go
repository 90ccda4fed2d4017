package searchdata

import (
	"strings"
)

// SplitKey separates the generator's numeric suffix from a raw key:
// "vectoradd_534" -> ("vectoradd", "534"). Keys without a numeric suffix are
// returned unchanged with an empty id.
func SplitKey(raw string) (key, id string) {
	i := strings.LastIndexByte(raw, '_')
	if i <= 0 || i == len(raw)-1 {
		return raw, ""
	}
	for _, c := range []byte(raw[i+1:]) {
		if !isDigit(c) {
			return raw, ""
		}
	}
	return raw[:i], raw[i+1:]
}

// EncodeKey converts a symbol name to the generator's key alphabet: ASCII
// letters are lowercased, digits are kept and every other byte becomes "_"
// followed by two lowercase hex digits ("Vector.c" -> "vector_2ec").
func EncodeKey(name string) string {
	const hexDigits = "0123456789abcdef"
	var sb strings.Builder
	sb.Grow(len(name))
	for _, c := range []byte(name) {
		switch {
		case c >= 'a' && c <= 'z', isDigit(c):
			sb.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			sb.WriteByte(c + 'a' - 'A')
		default:
			sb.WriteByte('_')
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0x0f])
		}
	}
	return sb.String()
}

// DecodeKey reverses the escapes applied by EncodeKey. Letter case is not
// recoverable, so "vector_2ec" decodes to "vector.c". Malformed escapes are
// copied through.
func DecodeKey(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	var sb strings.Builder
	sb.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '_' && i+2 < len(key) {
			hi, ok1 := hexValue(key[i+1])
			lo, ok2 := hexValue(key[i+2])
			if ok1 && ok2 {
				sb.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// queryKeys maps user input to the keys it may denote. encoded is always
// the input run through EncodeKey. literal is the trimmed input itself when
// it already has key form and differs from encoded, otherwise empty.
func queryKeys(q string) (encoded, literal string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", ""
	}
	encoded = EncodeKey(q)
	if encoded != q && isEncoded(q) {
		literal = q
	}
	return encoded, literal
}

// isEncoded reports whether s is already in key form: lowercase letters,
// digits and well-formed "_xx" escapes only.
func isEncoded(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', isDigit(c):
		case c == '_':
			if i+2 >= len(s) {
				return false
			}
			if _, ok := hexValue(s[i+1]); !ok {
				return false
			}
			if _, ok := hexValue(s[i+2]); !ok {
				return false
			}
			i += 2
		default:
			return false
		}
	}
	return true
}
