package tex

import (
	"strconv"
	"strings"
)

// Parse parses AlphaTex source text and returns its Document.
// Returns a *LexError or *SyntaxError on failure.
func Parse(src []byte) (*Document, error) {
	p := &parser{lex: NewLexer(src)}
	return p.parseDocument()
}

type parser struct {
	lex *Lexer
}

// documentText maps metadata directives with a textual value to the
// Document field they set. Repeated directives overwrite earlier ones.
var documentText = map[string]func(*Document) *string{
	"title":      func(d *Document) *string { return &d.Title },
	"subtitle":   func(d *Document) *string { return &d.Subtitle },
	"artist":     func(d *Document) *string { return &d.Artist },
	"album":      func(d *Document) *string { return &d.Album },
	"words":      func(d *Document) *string { return &d.Words },
	"music":      func(d *Document) *string { return &d.Music },
	"copyright":  func(d *Document) *string { return &d.Copyright },
	"instrument": func(d *Document) *string { return &d.Instrument },
	"tuning":     func(d *Document) *string { return &d.Tuning },
}

var staffText = map[string]func(*Staff) *string{
	"tuning":     func(s *Staff) *string { return &s.Tuning },
	"instrument": func(s *Staff) *string { return &s.Instrument },
	"clef":       func(s *Staff) *string { return &s.Clef },
	"ks":         func(s *Staff) *string { return &s.KeySignature },
}

func isMetadataDirective(name string) bool {
	if _, ok := documentText[name]; ok {
		return true
	}
	return name == "tempo" || name == "capo"
}

func isStaffDirective(name string) bool {
	if _, ok := staffText[name]; ok {
		return true
	}
	return name == "lyrics"
}

func (p *parser) peek() (Token, error) {
	return p.lex.Peek()
}

func (p *parser) next() (Token, error) {
	return p.lex.Next()
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok, err := p.next()
	if err != nil {
		return Token{}, err
	}
	if tok.Kind != kind {
		return Token{}, unexpected(tok, kind.String(), "")
	}
	return tok, nil
}

func unexpected(tok Token, expected, msg string) *SyntaxError {
	return &SyntaxError{
		ParseError: ParseError{Message: msg, Pos: tok.Pos},
		Expected:   expected,
		Got:        tok.describe(),
	}
}

func isDirective(tok Token, name string) bool {
	return tok.Kind == TokenDirective && tok.Literal == name
}

// endOfStaff reports whether tok closes the current staff's measure list.
func endOfStaff(tok Token) bool {
	return tok.Kind == TokenEOF || isDirective(tok, "track") || isDirective(tok, "staff")
}

func (p *parser) parseDocument() (*Document, error) {
	doc := &Document{}

	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokenDirective || !isMetadataDirective(tok.Literal) {
			break
		}
		if err := p.parseMetadata(doc); err != nil {
			return nil, err
		}
	}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokenDot {
		return nil, unexpected(tok, "'.'", "metadata block must be terminated by '.'")
	}

	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenEOF && len(doc.Tracks) > 0 {
			break
		}
		if !isDirective(tok, "track") {
			return nil, unexpected(tok, `\track`, "")
		}
		track, err := p.parseTrack()
		if err != nil {
			return nil, err
		}
		doc.Tracks = append(doc.Tracks, track)
	}

	return doc, nil
}

func (p *parser) parseMetadata(doc *Document) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	switch tok.Literal {
	case "tempo":
		n, err := p.parsePositive("tempo in beats per minute")
		if err != nil {
			return err
		}
		doc.Tempo = n
	case "capo":
		n, err := p.parseInteger("capo fret")
		if err != nil {
			return err
		}
		doc.Capo = n
	default:
		v, err := p.parseValue(`value for \` + tok.Literal)
		if err != nil {
			return err
		}
		*documentText[tok.Literal](doc) = v
	}
	return nil
}

// parseValue consumes a single string, word or integer.
func (p *parser) parseValue(what string) (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	switch tok.Kind {
	case TokenString, TokenWord, TokenInteger:
		return tok.Literal, nil
	}
	return "", unexpected(tok, what, "")
}

func (p *parser) parseInteger(what string) (int, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TokenInteger {
		return 0, unexpected(tok, what, "")
	}
	n, err := strconv.Atoi(tok.Literal)
	if err != nil {
		return 0, unexpected(tok, what, "integer out of range")
	}
	return n, nil
}

func (p *parser) parsePositive(what string) (int, error) {
	tok, err := p.peek()
	if err != nil {
		return 0, err
	}
	n, err := p.parseInteger(what)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, unexpected(tok, what, "value must be positive")
	}
	return n, nil
}

func (p *parser) parseTrack() (Track, error) {
	start, err := p.next()
	if err != nil {
		return Track{}, err
	}
	track := Track{Pos: start.Pos}

	for {
		tok, err := p.peek()
		if err != nil {
			return Track{}, err
		}
		if tok.Kind != TokenString && tok.Kind != TokenWord {
			break
		}
		_, _ = p.next()
		track.Names = append(track.Names, tok.Literal)
	}
	if len(track.Names) == 0 {
		tok, _ := p.peek()
		return Track{}, unexpected(tok, "track name", "")
	}

	for {
		tok, err := p.peek()
		if err != nil {
			return Track{}, err
		}
		if !isDirective(tok, "tuning") {
			break
		}
		_, _ = p.next()
		v, err := p.parseValue("tuning")
		if err != nil {
			return Track{}, err
		}
		track.Tunings = append(track.Tunings, v)
	}

	for {
		tok, err := p.peek()
		if err != nil {
			return Track{}, err
		}
		if !isDirective(tok, "staff") {
			if len(track.Staves) == 0 {
				return Track{}, unexpected(tok, `\staff`, "")
			}
			break
		}
		staff, err := p.parseStaff()
		if err != nil {
			return Track{}, err
		}
		track.Staves = append(track.Staves, staff)
	}

	return track, nil
}

func (p *parser) parseStaff() (Staff, error) {
	start, err := p.next()
	if err != nil {
		return Staff{}, err
	}
	staff := Staff{Pos: start.Pos}

	if _, err := p.expect(TokenLBrace); err != nil {
		return Staff{}, err
	}
	var opts []string
	for {
		tok, err := p.next()
		if err != nil {
			return Staff{}, err
		}
		if tok.Kind == TokenRBrace {
			break
		}
		if tok.Kind != TokenWord && tok.Kind != TokenString && tok.Kind != TokenInteger {
			return Staff{}, unexpected(tok, "staff option or '}'", "")
		}
		opts = append(opts, tok.Literal)
	}
	staff.Option = strings.Join(opts, " ")

	for {
		tok, err := p.peek()
		if err != nil {
			return Staff{}, err
		}
		if tok.Kind != TokenDirective || !isStaffDirective(tok.Literal) {
			break
		}
		_, _ = p.next()
		if tok.Literal == "lyrics" {
			if err := p.parseLyrics(&staff); err != nil {
				return Staff{}, err
			}
			continue
		}
		v, err := p.parseValue(`value for \` + tok.Literal)
		if err != nil {
			return Staff{}, err
		}
		*staffText[tok.Literal](&staff) = v
	}

	measures, err := p.parseMeasures()
	if err != nil {
		return Staff{}, err
	}
	staff.Measures = measures
	return staff, nil
}

func (p *parser) parseLyrics(staff *Staff) error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.Kind == TokenInteger {
		line, err := p.parseInteger("lyrics line")
		if err != nil {
			return err
		}
		staff.LyricsLine = line
	}
	v, err := p.parseValue("lyrics text")
	if err != nil {
		return err
	}
	staff.Lyrics = v
	return nil
}

func (p *parser) parseMeasures() ([]Measure, error) {
	var measures []Measure
	for {
		m, err := p.parseMeasure()
		if err != nil {
			return nil, err
		}
		measures = append(measures, m)

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenPipe {
			_, _ = p.next()
			if tok, err = p.peek(); err != nil {
				return nil, err
			}
		}
		if endOfStaff(tok) {
			return measures, nil
		}
	}
}

func (p *parser) parseMeasure() (Measure, error) {
	start, err := p.peek()
	if err != nil {
		return Measure{}, err
	}
	m := Measure{Pos: start.Pos}
	declared := false

	for {
		tok, err := p.peek()
		if err != nil {
			return Measure{}, err
		}
		switch {
		case tok.Kind == TokenPipe || endOfStaff(tok):
			if len(m.Elements) == 0 && !declared {
				return Measure{}, unexpected(tok, "note, chord or measure directive", "empty measure")
			}
			return m, nil
		case tok.Kind == TokenDirective:
			if err := p.parseMeasureDirective(&m); err != nil {
				return Measure{}, err
			}
			declared = true
		case tok.Kind == TokenColon || tok.Kind == TokenWord || tok.Kind == TokenLParen:
			el, err := p.parseElement()
			if err != nil {
				return Measure{}, err
			}
			m.Elements = append(m.Elements, el)
		default:
			return Measure{}, unexpected(tok, "note, chord, ':' or '|'", "")
		}
	}
}

func (p *parser) parseMeasureDirective(m *Measure) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	switch tok.Literal {
	case "ts":
		top, err := p.parsePositive("time signature numerator")
		if err != nil {
			return err
		}
		bottom, err := p.parsePositive("time signature denominator")
		if err != nil {
			return err
		}
		m.TimeSignature = &TimeSignature{Top: top, Bottom: bottom}
	case "tempo":
		n, err := p.parsePositive("tempo in beats per minute")
		if err != nil {
			return err
		}
		m.Tempo = n
	case "clef":
		v, err := p.parseValue(`value for \clef`)
		if err != nil {
			return err
		}
		m.Clef = v
	case "ks":
		v, err := p.parseValue(`value for \ks`)
		if err != nil {
			return err
		}
		m.KeySignature = v
	default:
		return unexpected(tok, `measure directive (\ts, \clef, \tempo or \ks)`, "")
	}
	return nil
}

func (p *parser) parseElement() (Element, error) {
	tok, err := p.peek()
	if err != nil {
		return Element{}, err
	}
	el := Element{Pos: tok.Pos}

	if tok.Kind == TokenColon {
		_, _ = p.next()
		d, err := p.parsePositive("duration after ':'")
		if err != nil {
			return Element{}, err
		}
		el.Marker = &DurationMarker{Duration: d, Pos: tok.Pos}
		brace, err := p.peek()
		if err != nil {
			return Element{}, err
		}
		if brace.Kind == TokenLBrace {
			opts, err := p.parseOptions()
			if err != nil {
				return Element{}, err
			}
			if opts.Tied || opts.Dotted {
				return Element{}, unexpected(brace, "'tu N'", "duration marker only accepts a tuplet")
			}
			el.Marker.Tuplet = opts.Tuplet
		}
		if tok, err = p.peek(); err != nil {
			return Element{}, err
		}
	}

	switch tok.Kind {
	case TokenLParen:
		_, _ = p.next()
		el.Chord = true
		for {
			t, err := p.peek()
			if err != nil {
				return Element{}, err
			}
			if t.Kind == TokenRParen {
				if len(el.Notes) == 0 {
					return Element{}, unexpected(t, "note", "empty chord")
				}
				_, _ = p.next()
				break
			}
			if t.Kind != TokenWord {
				return Element{}, unexpected(t, "note or ')'", "")
			}
			n, err := p.parseNote()
			if err != nil {
				return Element{}, err
			}
			el.Notes = append(el.Notes, n)
		}
		el.Duration, el.Options, err = p.parseSuffix()
		if err != nil {
			return Element{}, err
		}
	case TokenWord:
		n, err := p.parseNote()
		if err != nil {
			return Element{}, err
		}
		el.Notes = []Note{n}
	default:
		return Element{}, unexpected(tok, "note or chord", "")
	}
	return el, nil
}

func (p *parser) parseNote() (Note, error) {
	tok, err := p.next()
	if err != nil {
		return Note{}, err
	}
	pitch, ok := ParsePitch(tok.Literal)
	if !ok {
		return Note{}, unexpected(tok, "pitch or rest", "")
	}
	n := Note{Pitch: pitch, Pos: tok.Pos}
	n.Duration, n.Options, err = p.parseSuffix()
	if err != nil {
		return Note{}, err
	}
	return n, nil
}

// parseSuffix reads the optional ".N" and "{...}" groups following a
// note or chord, in either order. At most one ".N" is consumed.
func (p *parser) parseSuffix() (int, NoteOptions, error) {
	var dur int
	var opts NoteOptions
	for {
		tok, err := p.peek()
		if err != nil {
			return 0, NoteOptions{}, err
		}
		switch {
		case tok.Kind == TokenDot && dur == 0:
			_, _ = p.next()
			if dur, err = p.parsePositive("duration after '.'"); err != nil {
				return 0, NoteOptions{}, err
			}
		case tok.Kind == TokenLBrace:
			o, err := p.parseOptions()
			if err != nil {
				return 0, NoteOptions{}, err
			}
			opts = opts.merge(o)
		default:
			return dur, opts, nil
		}
	}
}

func (p *parser) parseOptions() (NoteOptions, error) {
	if _, err := p.expect(TokenLBrace); err != nil {
		return NoteOptions{}, err
	}
	var o NoteOptions
	for {
		tok, err := p.next()
		if err != nil {
			return NoteOptions{}, err
		}
		switch {
		case tok.Kind == TokenRBrace:
			return o, nil
		case tok.Kind == TokenDash:
			o.Tied = true
		case tok.Kind == TokenWord && strings.EqualFold(tok.Literal, "d"):
			o.Dotted = true
		case tok.Kind == TokenWord && strings.EqualFold(tok.Literal, "tu"):
			k, err := p.parsePositive("tuplet size")
			if err != nil {
				return NoteOptions{}, err
			}
			o.Tuplet = k
		default:
			return NoteOptions{}, unexpected(tok, "note option ('-', 'd' or 'tu N')", "")
		}
	}
}

// ParsePitch splits a pitch word such as "f#4", "ab3" or "r" into its
// parts. The letter is not checked against a-g here.
func ParsePitch(word string) (Pitch, bool) {
	if strings.EqualFold(word, "r") || strings.EqualFold(word, "rest") {
		return Pitch{Rest: true}, true
	}
	if word == "" || !isLetter(word[0]) {
		return Pitch{}, false
	}
	i := 1
	for i < len(word) && (word[i] == '#' || word[i] == 'b') {
		i++
	}
	if i == len(word) {
		return Pitch{}, false
	}
	for j := i; j < len(word); j++ {
		if !isDigit(word[j]) {
			return Pitch{}, false
		}
	}
	octave, err := strconv.Atoi(word[i:])
	if err != nil {
		return Pitch{}, false
	}
	return Pitch{
		Letter:      lower(word[0]),
		Accidentals: word[1:i],
		Octave:      octave,
	}, true
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
