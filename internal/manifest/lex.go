package manifest

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokChar
	tokString
	tokLifetime
	tokPunct
)

func (k tokKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokInt:
		return "integer"
	case tokChar:
		return "char literal"
	case tokString:
		return "string literal"
	case tokLifetime:
		return "lifetime"
	default:
		return "punctuation"
	}
}

// token is one lexeme of a type expression. Offsets are byte offsets into
// the expression text.
type token struct {
	Kind  tokKind
	Text  string
	Start int
	End   int
}

func (t token) is(punct string) bool {
	return t.Kind == tokPunct && t.Text == punct
}

func (t token) isIdent(name string) bool {
	return t.Kind == tokIdent && t.Text == name
}

// SyntaxError reports a malformed type expression.
type SyntaxError struct {
	Start int
	End   int
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Start, e.End, e.Msg)
}

// Longest first so that `..=` wins over `..` and `::` over `:`.
var puncts = []string{"...", "..=", "::", "->", "..", "<", ">", "(", ")", "[", "]", ",", ";", ":", "&", "*", "!", "=", "+", "-", "{", "}"}

type scanner struct {
	src string
	off int
}

// scan splits src into tokens, ending with tokEOF.
func scan(src string) ([]token, error) {
	s := &scanner{src: src}
	var out []token
	for {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == tokEOF {
			return out, nil
		}
	}
}

func (s *scanner) next() (token, error) {
	for s.off < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.off:])
		if !unicode.IsSpace(r) {
			break
		}
		s.off += size
	}
	start := s.off
	if s.off >= len(s.src) {
		return token{Kind: tokEOF, Start: start, End: start}, nil
	}

	r, size := utf8.DecodeRuneInString(s.src[s.off:])
	switch {
	case r == '_' || unicode.IsLetter(r):
		s.off += size
		s.skipIdent()
		return token{Kind: tokIdent, Text: s.src[start:s.off], Start: start, End: s.off}, nil

	case r >= '0' && r <= '9':
		return s.number(start)

	case r == '\'':
		return s.quote(start)

	case r == '"':
		return s.str(start)
	}

	for _, p := range puncts {
		if len(s.src)-s.off >= len(p) && s.src[s.off:s.off+len(p)] == p {
			s.off += len(p)
			return token{Kind: tokPunct, Text: p, Start: start, End: s.off}, nil
		}
	}
	return token{}, &SyntaxError{Start: start, End: start + size, Msg: fmt.Sprintf("unexpected character %q", r)}
}

func (s *scanner) skipIdent() {
	for s.off < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.off:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return
		}
		s.off += size
	}
}

func (s *scanner) number(start int) (token, error) {
	if s.off+1 < len(s.src) && s.src[s.off] == '0' && (s.src[s.off+1] == 'x' || s.src[s.off+1] == 'b' || s.src[s.off+1] == 'o') {
		s.off += 2
	}
	for s.off < len(s.src) {
		c := s.src[s.off]
		if c != '_' && !isHexDigit(c) {
			break
		}
		s.off++
	}
	return token{Kind: tokInt, Text: s.src[start:s.off], Start: start, End: s.off}, nil
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// quote scans either a char literal ('x', '\n') or a lifetime ('a, 'static).
func (s *scanner) quote(start int) (token, error) {
	s.off++
	if s.off >= len(s.src) {
		return token{}, &SyntaxError{Start: start, End: s.off, Msg: "unterminated quote"}
	}
	identStart := s.off
	s.skipIdent()
	if s.off > identStart && (s.off >= len(s.src) || s.src[s.off] != '\'') {
		return token{Kind: tokLifetime, Text: s.src[identStart:s.off], Start: start, End: s.off}, nil
	}

	s.off = identStart
	value, _, tail, err := strconv.UnquoteChar(s.src[s.off:], '\'')
	if err != nil {
		return token{}, &SyntaxError{Start: start, End: s.off, Msg: "malformed char literal"}
	}
	s.off = len(s.src) - len(tail)
	if s.off >= len(s.src) || s.src[s.off] != '\'' {
		return token{}, &SyntaxError{Start: start, End: s.off, Msg: "unterminated char literal"}
	}
	s.off++
	return token{Kind: tokChar, Text: string(value), Start: start, End: s.off}, nil
}

func (s *scanner) str(start int) (token, error) {
	s.off++
	for s.off < len(s.src) && s.src[s.off] != '"' {
		if s.src[s.off] == '\\' {
			s.off++
		}
		s.off++
	}
	if s.off >= len(s.src) {
		return token{}, &SyntaxError{Start: start, End: len(s.src), Msg: "unterminated string literal"}
	}
	s.off++
	text, err := strconv.Unquote(s.src[start:s.off])
	if err != nil {
		return token{}, &SyntaxError{Start: start, End: s.off, Msg: "malformed string literal"}
	}
	return token{Kind: tokString, Text: text, Start: start, End: s.off}, nil
}
