package tex

import (
	"strings"
)

// Lexer turns AlphaTex text into tokens on demand. One token of
// lookahead is kept for the parser.
type Lexer struct {
	src []byte
	at  Position

	ahead    Token
	buffered bool
}

func NewLexer(src []byte) *Lexer {
	l := &Lexer{src: src}
	l.Reset()
	return l
}

// Tokenize lexes src in one go. The last token is always TokenEOF.
func Tokenize(src []byte) ([]Token, error) {
	l := NewLexer(src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokenEOF {
			return toks, nil
		}
	}
}

func (l *Lexer) Reset() {
	l.at = Position{Line: 1, Column: 1}
	l.ahead, l.buffered = Token{}, false
}

func (l *Lexer) Peek() (Token, error) {
	if !l.buffered {
		tok, err := l.scan()
		if err != nil {
			return Token{}, err
		}
		l.ahead, l.buffered = tok, true
	}
	return l.ahead, nil
}

func (l *Lexer) Next() (Token, error) {
	tok, err := l.Peek()
	if err != nil {
		return Token{}, err
	}
	l.buffered = false
	return tok, nil
}

func (l *Lexer) currentPos() Position { return l.at }

func (l *Lexer) atEnd() bool { return l.at.Offset >= len(l.src) }

func (l *Lexer) peek() byte { return l.peekAt(0) }

// peekAt returns the byte n places past the cursor, 0 past the end.
func (l *Lexer) peekAt(n int) byte {
	if i := l.at.Offset + n; i < len(l.src) {
		return l.src[i]
	}
	return 0
}

func (l *Lexer) advance() byte {
	ch := l.src[l.at.Offset]
	l.at.Offset++
	l.at.Column++
	if ch == '\n' {
		l.at.Line++
		l.at.Column = 1
	}
	return ch
}

func (l *Lexer) skip(n int) {
	for ; n > 0 && !l.atEnd(); n-- {
		l.advance()
	}
}

func (l *Lexer) opens(a, b byte) bool {
	return l.peek() == a && l.peekAt(1) == b
}

func lexError(pos Position, msg string) *LexError {
	return &LexError{ParseError{Message: msg, Pos: pos}}
}

// skipTrivia moves past blanks and comments.
func (l *Lexer) skipTrivia() error {
	for !l.atEnd() {
		switch {
		case isSpace(l.peek()):
			l.advance()
		case l.opens('/', '/'):
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		case l.opens('/', '*'):
			if err := l.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) skipBlockComment() error {
	open := l.at
	l.skip(2)
	for !l.opens('*', '/') {
		if l.atEnd() {
			return lexError(open, "unterminated block comment")
		}
		l.advance()
	}
	l.skip(2)
	return nil
}

func (l *Lexer) scan() (Token, error) {
	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}

	if l.atEnd() {
		return Token{Kind: TokenEOF, Pos: l.currentPos()}, nil
	}

	pos := l.currentPos()
	ch := l.peek()

	if kind, ok := symbols[ch]; ok {
		l.advance()
		return Token{Kind: kind, Literal: string(ch), Pos: pos}, nil
	}

	switch ch {
	case '"', '\'':
		return l.scanString()
	case '\\':
		l.advance()
		start := l.at.Offset
		for !l.atEnd() && isWordPart(l.peek()) {
			l.advance()
		}
		name := strings.ToLower(string(l.src[start:l.at.Offset]))
		return Token{Kind: TokenDirective, Literal: name, Pos: pos}, nil
	}

	return l.scanWord()
}

func (l *Lexer) scanString() (Token, error) {
	pos := l.currentPos()
	quote := l.advance()

	var sb strings.Builder
	for {
		if l.atEnd() {
			return Token{}, lexError(pos, "unterminated string")
		}
		ch := l.advance()
		if ch == quote {
			return Token{Kind: TokenString, Literal: sb.String(), Pos: pos}, nil
		}
		if ch == '\\' {
			if l.atEnd() {
				return Token{}, lexError(pos, "unterminated string escape")
			}
			esc := l.advance()
			switch esc {
			case '"', '\'', '\\':
				sb.WriteByte(esc)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
			continue
		}
		sb.WriteByte(ch)
	}
}

// scanWord consumes a maximal run of non-structural bytes. Unknown words
// are passed through; the parser decides whether they are valid.
func (l *Lexer) scanWord() (Token, error) {
	pos := l.currentPos()
	start := l.at.Offset
	digitsOnly := true
	for !l.atEnd() && isWordPart(l.peek()) {
		if !isDigit(l.peek()) {
			digitsOnly = false
		}
		l.advance()
	}
	literal := string(l.src[start:l.at.Offset])
	if digitsOnly {
		return Token{Kind: TokenInteger, Literal: literal, Pos: pos}, nil
	}
	return Token{Kind: TokenWord, Literal: literal, Pos: pos}, nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isWordPart(ch byte) bool {
	if isSpace(ch) || ch == '"' || ch == '\'' || ch == '\\' {
		return false
	}
	_, structural := symbols[ch]
	return !structural
}
