package parser

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	default:
		return "symbol"
	}
}

type token struct {
	kind tokenKind
	// text is the unquoted value for identifiers and strings.
	text string
	// quoted is set for backquoted identifiers, which never match a keyword.
	quoted bool
	offset int
}

func (t token) keyword(kw string) bool {
	return t.kind == tokIdent && !t.quoted && strings.EqualFold(t.text, kw)
}

func (t token) punct(p string) bool {
	return t.kind == tokPunct && t.text == p
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return t.kind.String()
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

type lexError struct {
	offset int
	reason string
}

func (e *lexError) Error() string { return e.reason }

// lex splits text into tokens. Comparison operators made of two characters are
// returned as a single token; arrows are left to the statement parser.
func lex(text string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '/' && i+1 < len(text) && text[i+1] == '/':
			for i < len(text) && text[i] != '\n' {
				i++
			}
		case isIdentStart(c):
			start := i
			for i < len(text) && isIdentPart(text[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: text[start:i], offset: start})
		case c == '`':
			start := i
			var b strings.Builder
			i++
			for {
				if i >= len(text) {
					return nil, &lexError{offset: start, reason: "unterminated quoted name"}
				}
				if text[i] == '`' {
					if i+1 < len(text) && text[i+1] == '`' {
						b.WriteByte('`')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteByte(text[i])
				i++
			}
			if b.Len() == 0 {
				return nil, &lexError{offset: start, reason: "empty quoted name"}
			}
			toks = append(toks, token{kind: tokIdent, text: b.String(), quoted: true, offset: start})
		case c == '\'' || c == '"':
			start := i
			s, n, err := scanString(text[i:])
			if err != nil {
				return nil, &lexError{offset: start, reason: err.Error()}
			}
			i += n
			toks = append(toks, token{kind: tokString, text: s, offset: start})
		case c >= '0' && c <= '9':
			start := i
			for i < len(text) && text[i] >= '0' && text[i] <= '9' {
				i++
			}
			if i+1 < len(text) && text[i] == '.' && text[i+1] >= '0' && text[i+1] <= '9' {
				i++
				for i < len(text) && text[i] >= '0' && text[i] <= '9' {
					i++
				}
			}
			toks = append(toks, token{kind: tokNumber, text: text[start:i], offset: start})
		default:
			start := i
			op := string(c)
			if i+1 < len(text) {
				switch two := text[i : i+2]; two {
				case "<>", ">=", "<=", "!=":
					op = two
				}
			}
			if !strings.Contains("()[]{}:,.-><=*;+/%!|", op[:1]) {
				return nil, &lexError{offset: start, reason: fmt.Sprintf("unexpected character %q", c)}
			}
			i += len(op)
			toks = append(toks, token{kind: tokPunct, text: op, offset: start})
		}
	}
	return append(toks, token{kind: tokEOF, offset: len(text)}), nil
}

// scanString reads a quoted literal at the start of s and returns its value and the
// number of bytes consumed.
func scanString(s string) (string, int, error) {
	quote := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated string")
			}
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(s[i])
			}
		case c == quote:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
