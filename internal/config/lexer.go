package config

import (
	"strings"

	liberr "github.com/nabbar/webserv/internal/errors"
)

// Lexer tokenizes the config file lazily, one rune at a time, tracking
// 1-based line/column of the start of the token currently being scanned so
// parse errors can report an exact source position.
type Lexer struct {
	src  []rune
	pos  int
	line int
	col  int
}

// NewLexer wraps raw config bytes for tokenizing.
func NewLexer(src []byte) *Lexer {
	return &Lexer{src: []rune(string(src)), line: 1, col: 1}
}

func (l *Lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *Lexer) advance() (rune, bool) {
	r, ok := l.peekRune()
	if !ok {
		return 0, false
	}
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r, true
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

func isControl(r rune) bool {
	return r < 0x20 && r != '\t'
}

func isWordRune(r rune) bool {
	return !isSpace(r) && r != ';' && r != '{' && r != '}' && r != '#' && r != '\'' && r != '"'
}

func (l *Lexer) skipSpaceAndComments() {
	for {
		r, ok := l.peekRune()
		if !ok {
			return
		}
		if isSpace(r) {
			l.advance()
			continue
		}
		if r == '#' {
			for {
				r2, ok2 := l.peekRune()
				if !ok2 || r2 == '\n' {
					break
				}
				l.advance()
			}
			continue
		}
		return
	}
}

// Next returns the next token, or a LexError on an unterminated quoted
// string or a control character found outside quotes.
func (l *Lexer) Next() (Token, error) {
	l.skipSpaceAndComments()

	startLine, startCol := l.line, l.col

	r, ok := l.peekRune()
	if !ok {
		return Token{Type: TokenEOF, Line: startLine, Col: startCol}, nil
	}

	switch r {
	case ';':
		l.advance()
		return Token{Type: TokenSemicolon, Value: ";", Line: startLine, Col: startCol}, nil
	case '{':
		l.advance()
		return Token{Type: TokenLBrace, Value: "{", Line: startLine, Col: startCol}, nil
	case '}':
		l.advance()
		return Token{Type: TokenRBrace, Value: "}", Line: startLine, Col: startCol}, nil
	case '~':
		l.advance()
		return Token{Type: TokenTilde, Value: "~", Line: startLine, Col: startCol}, nil
	case '\'', '"':
		return l.scanQuoted(r, startLine, startCol)
	}

	if isControl(r) {
		return Token{}, liberr.NewConfigError(liberr.ConfigLex, startLine, startCol, "unexpected control character")
	}

	return l.scanWord(startLine, startCol)
}

func (l *Lexer) scanWord(startLine, startCol int) (Token, error) {
	var sb strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok || !isWordRune(r) {
			break
		}
		if isControl(r) {
			return Token{}, liberr.NewConfigError(liberr.ConfigLex, l.line, l.col, "unexpected control character")
		}
		sb.WriteRune(r)
		l.advance()
	}
	return Token{Type: TokenWord, Value: sb.String(), Line: startLine, Col: startCol}, nil
}

func (l *Lexer) scanQuoted(quote rune, startLine, startCol int) (Token, error) {
	l.advance() // consume opening quote
	var sb strings.Builder
	for {
		r, ok := l.advance()
		if !ok {
			return Token{}, liberr.NewConfigError(liberr.ConfigLex, startLine, startCol, "unterminated quoted string")
		}
		if r == '\\' {
			esc, ok2 := l.advance()
			if !ok2 {
				return Token{}, liberr.NewConfigError(liberr.ConfigLex, startLine, startCol, "unterminated quoted string")
			}
			sb.WriteRune(esc)
			continue
		}
		if r == quote {
			return Token{Type: TokenQuoted, Value: sb.String(), Line: startLine, Col: startCol}, nil
		}
		if r == '\n' {
			return Token{}, liberr.NewConfigError(liberr.ConfigLex, startLine, startCol, "unterminated quoted string")
		}
		sb.WriteRune(r)
	}
}
