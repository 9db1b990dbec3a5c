package tex

import (
	"strconv"
	"strings"
)

// Document is the root of a parsed AlphaTex source.
// Zero values mean "not declared".
type Document struct {
	Title      string
	Subtitle   string
	Artist     string
	Album      string
	Words      string
	Music      string
	Copyright  string
	Instrument string
	Tuning     string
	Tempo      int
	Capo       int
	Tracks     []Track
}

// Track groups one or more staves of the same part.
type Track struct {
	Names   []string
	Tunings []string
	Staves  []Staff
	Pos     Position
}

// Staff is a single rendering target of a track with its measures.
type Staff struct {
	Option       string // contents of the {...} after \staff, verbatim
	Tuning       string
	Instrument   string
	Clef         string
	KeySignature string
	Lyrics       string
	LyricsLine   int
	Measures     []Measure
	Pos          Position
}

// TimeSignature is a \ts declaration.
type TimeSignature struct {
	Top    int
	Bottom int
}

// Measure is the content between two bar lines together with the
// overrides it declares.
type Measure struct {
	TimeSignature *TimeSignature
	Clef          string
	KeySignature  string
	Tempo         int
	Elements      []Element
	Pos           Position
}

// DurationMarker is a ":N" or ":N{tu K}" prefix on an element.
type DurationMarker struct {
	Duration int
	Tuplet   int
	Pos      Position
}

// Element is a bare note or a parenthesized chord.
type Element struct {
	Marker   *DurationMarker
	Notes    []Note
	Chord    bool
	Duration int         // chord-level ".N", only set when Chord is true
	Options  NoteOptions // chord-level "{...}", only set when Chord is true
	Pos      Position
}

// Note is a single pitched note or a rest.
type Note struct {
	Pitch    Pitch
	Duration int // 0 when the note carries no ".N"
	Options  NoteOptions
	Pos      Position
}

// Pitch is a letter with accidentals and octave, or a rest.
type Pitch struct {
	Rest        bool
	Letter      byte   // lower-case
	Accidentals string // sequence of '#' and 'b'
	Octave      int
}

func (p Pitch) String() string {
	if p.Rest {
		return "r"
	}
	var sb strings.Builder
	sb.WriteByte(p.Letter)
	sb.WriteString(p.Accidentals)
	sb.WriteString(strconv.Itoa(p.Octave))
	return sb.String()
}

// NoteOptions holds the "{...}" markers attached to a note or chord.
type NoteOptions struct {
	Tied   bool
	Dotted bool
	Tuplet int
}

func (o NoteOptions) merge(other NoteOptions) NoteOptions {
	o.Tied = o.Tied || other.Tied
	o.Dotted = o.Dotted || other.Dotted
	if other.Tuplet > 0 {
		o.Tuplet = other.Tuplet
	}
	return o
}
