package searchdata

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLBracket
	tokRBracket
	tokComma
	tokSemicolon
	tokEquals
	tokString
	tokNumber
	tokIdent
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokComma:
		return "','"
	case tokSemicolon:
		return "';'"
	case tokEquals:
		return "'='"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokIdent:
		return "identifier"
	}
	return "unknown"
}

type token struct {
	kind   tokenKind
	text   string
	offset int
}

// lexer tokenizes the subset of JavaScript emitted for search fragments:
// a single var declaration whose value is nested array literals of strings
// and integers.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	// Skip a UTF-8 byte order mark.
	return &lexer{src: strings.TrimPrefix(src, "\ufeff")}
}

func (l *lexer) errorf(offset int, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrMalformed, offset, fmt.Sprintf(format, args...))
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, offset: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '[':
		l.pos++
		return token{kind: tokLBracket, offset: start}, nil
	case c == ']':
		l.pos++
		return token{kind: tokRBracket, offset: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, offset: start}, nil
	case c == ';':
		l.pos++
		return token{kind: tokSemicolon, offset: start}, nil
	case c == '=':
		l.pos++
		return token{kind: tokEquals, offset: start}, nil
	case c == '\'' || c == '"':
		s, err := l.readString(c)
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, offset: start}, nil
	case c == '-' || isDigit(c):
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.src[start:l.pos] == "-" {
			return token{}, l.errorf(start, "dangling minus sign")
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], offset: start}, nil
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], offset: start}, nil
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return token{}, l.errorf(start, "unexpected character %q", r)
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], "//"):
			end := strings.IndexByte(l.src[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.src)
			} else {
				l.pos += end + 1
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf(l.pos, "unterminated comment")
			}
			l.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) readString(quote byte) (string, error) {
	start := l.pos
	l.pos++ // opening quote

	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			return sb.String(), nil
		case '\n':
			return "", l.errorf(start, "newline in string")
		case '\\':
			if l.pos+1 >= len(l.src) {
				return "", l.errorf(start, "unterminated string")
			}
			esc := l.src[l.pos+1]
			l.pos += 2
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'u':
				r, err := l.readHex(4)
				if err != nil {
					return "", err
				}
				sb.WriteRune(r)
			case 'x':
				r, err := l.readHex(2)
				if err != nil {
					return "", err
				}
				sb.WriteRune(r)
			default:
				// \' \" \\ \/ and any other escaped byte stand for themselves.
				sb.WriteByte(esc)
			}
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return "", l.errorf(start, "unterminated string")
}

func (l *lexer) readHex(n int) (rune, error) {
	if l.pos+n > len(l.src) {
		return 0, l.errorf(l.pos, "short hex escape")
	}
	var r rune
	for _, c := range []byte(l.src[l.pos : l.pos+n]) {
		v, ok := hexValue(c)
		if !ok {
			return 0, l.errorf(l.pos, "invalid hex escape")
		}
		r = r<<4 | rune(v)
	}
	l.pos += n
	return r, nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
