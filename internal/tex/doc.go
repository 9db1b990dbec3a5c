// Package tex implements the lexer, parser and document tree for AlphaTex
// score notation.
//
// A document is an optional metadata block closed by a bare '.', followed
// by one or more tracks. Each track holds one or more staves and each staff
// holds '|'-separated measures of notes and chords:
//
//	\title "Down by the Riverside"
//	\tempo 84
//	.
//	\track "Soprano"
//	\staff {score} \ks G
//	r.2 :4 d3 e3 | g3{d}.2 :8 g3{-} a3 |
//
// The parser is hand-rolled recursive descent in two layers:
//
//   - Lexer: converts raw bytes into tokens, skipping whitespace and comments.
//   - Parser: consumes tokens and builds a Document.
//
// The tree is a faithful record of the source. Nothing is inherited or
// defaulted here; that is the job of the resolve package.
package tex
