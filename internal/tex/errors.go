package tex

import "fmt"

// located prefixes msg with pos when pos is known.
func located(pos Position, msg string) string {
	if pos.Line == 0 {
		return msg
	}
	return fmt.Sprintf("line %d, col %d: %s", pos.Line, pos.Column, msg)
}

// ParseError carries a message and the source position it refers to.
// LexError and SyntaxError embed it.
type ParseError struct {
	Message string
	Pos     Position
	Cause   error
}

func (e *ParseError) Error() string { return located(e.Pos, e.Message) }

func (e *ParseError) Unwrap() error { return e.Cause }

// LexError is raised for unterminated strings, escapes and block comments.
type LexError struct{ ParseError }

// SyntaxError is raised when the parser meets a token it cannot place.
// Expected names what the grammar allowed there.
type SyntaxError struct {
	ParseError
	Expected string
	Got      string
}

func (e *SyntaxError) Error() string {
	msg := "expected " + e.Expected + ", got " + e.Got
	if e.Message != "" {
		msg = e.Message + ": " + msg
	}
	return located(e.Pos, msg)
}
