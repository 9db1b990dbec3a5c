package tex

import "fmt"

// TokenKind identifies the type of a lexical token.
type TokenKind int

const (
	TokenEOF       TokenKind = iota
	TokenDirective           // \word, literal holds the lower-cased word
	TokenString              // "..." or '...' with escape processing
	TokenWord                // bare word: pitch, rest, staff option, clef name...
	TokenInteger             // [0-9]+
	TokenPipe                // |
	TokenColon               // :
	TokenDot                 // .
	TokenLBrace              // {
	TokenRBrace              // }
	TokenLParen              // (
	TokenRParen              // )
	TokenDash                // -
)

var tokenNames = map[TokenKind]string{
	TokenEOF:       "EOF",
	TokenDirective: "directive",
	TokenString:    "string",
	TokenWord:      "word",
	TokenInteger:   "integer",
	TokenPipe:      "'|'",
	TokenColon:     "':'",
	TokenDot:       "'.'",
	TokenLBrace:    "'{'",
	TokenRBrace:    "'}'",
	TokenLParen:    "'('",
	TokenRParen:    "')'",
	TokenDash:      "'-'",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return "unknown"
}

// Position locates a token in the source.
type Position struct {
	Line   int // 1-based
	Column int // 1-based
	Offset int // byte offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Kind    TokenKind
	Literal string
	Pos     Position
}

func (t Token) describe() string {
	switch t.Kind {
	case TokenEOF:
		return "EOF"
	case TokenDirective:
		return fmt.Sprintf("directive %q", `\`+t.Literal)
	default:
		return fmt.Sprintf("%s (%q)", t.Kind, t.Literal)
	}
}

// symbols maps single-byte structural symbols to their kinds.
var symbols = map[byte]TokenKind{
	'|': TokenPipe,
	':': TokenColon,
	'.': TokenDot,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'(': TokenLParen,
	')': TokenRParen,
	'-': TokenDash,
}
