package resolve

import (
	"strconv"
	"strings"

	"github.com/cbegin/alphatex-go/internal/tex"
)

// Score is a Document after inheritance: every note has a concrete
// duration and every measure carries its effective overrides.
type Score struct {
	Tempo  int // document default, 0 when undeclared
	Tracks []Track
}

// NoteCount returns the number of notes (rests included) in the score.
func (s *Score) NoteCount() int {
	n := 0
	for _, tr := range s.Tracks {
		for _, st := range tr.Staves {
			for _, m := range st.Measures {
				for _, c := range m.Chords {
					n += len(c.Notes)
				}
			}
		}
	}
	return n
}

type Track struct {
	Names   []string
	Tunings []string
	Staves  []Staff
}

// Name returns the first display name of the track.
func (t Track) Name() string {
	if len(t.Names) == 0 {
		return ""
	}
	return t.Names[0]
}

type Staff struct {
	Option     string
	Tuning     string
	Instrument string
	Lyrics     string
	Measures   []Measure
}

// Measure holds the effective time signature, clef, key signature and
// tempo in force for its notes. TimeSignature is nil and Tempo is 0 when
// nothing on the staff has declared them yet.
type Measure struct {
	Index         int
	TimeSignature *tex.TimeSignature
	Clef          string
	KeySignature  string
	Tempo         int
	TempoDeclared bool
	Chords        []Chord
}

// Chord is one or more notes sounding together. A bare note is a
// single-note chord.
type Chord struct {
	Notes []Note
}

type Note struct {
	Pitch     tex.Pitch
	Duration  int
	Modifiers Modifiers
	Pos       tex.Position
}

// Modifiers is the final modifier set of a resolved note.
type Modifiers struct {
	Dotted bool
	Tied   bool
	Tuplet int // group size, 0 when not in a tuplet
}

func (m Modifiers) String() string {
	var parts []string
	if m.Dotted {
		parts = append(parts, "dotted")
	}
	if m.Tied {
		parts = append(parts, "tied")
	}
	if m.Tuplet > 0 {
		parts = append(parts, "tuplet "+strconv.Itoa(m.Tuplet))
	}
	return strings.Join(parts, " ")
}
