// Package resolve applies the inheritance rules of AlphaTex to a parsed
// Document: durations flow forward from ":N" markers, tuplet markers tag
// the notes that follow them, and measure overrides carry onto later
// measures of the same staff.
package resolve

import (
	"github.com/cbegin/alphatex-go/internal/tex"
)

// staffState is the running state of one staff pass. It is copied into
// and returned from every step so each step stays a pure function.
type staffState struct {
	timeSig *tex.TimeSignature
	clef    string
	keySig  string
	tempo   int

	duration   int // active ":N" context, 0 when none
	tupletSize int
	tupletLeft int
}

// Resolve turns doc into a Score. It fails with *UnresolvedDurationError
// on the first note whose duration cannot be determined.
func Resolve(doc *tex.Document) (*Score, error) {
	score := &Score{
		Tempo:  doc.Tempo,
		Tracks: make([]Track, 0, len(doc.Tracks)),
	}
	for _, tr := range doc.Tracks {
		out := Track{
			Names:   append([]string(nil), tr.Names...),
			Tunings: append([]string(nil), tr.Tunings...),
			Staves:  make([]Staff, 0, len(tr.Staves)),
		}
		for _, st := range tr.Staves {
			staff, err := ResolveStaff(st)
			if err != nil {
				return nil, err
			}
			out.Staves = append(out.Staves, staff)
		}
		score.Tracks = append(score.Tracks, out)
	}
	return score, nil
}

// ResolveStaff resolves a single staff on its own. Staves share no
// state, so any staff can be resolved independently of the others.
func ResolveStaff(st tex.Staff) (Staff, error) {
	out := Staff{
		Option:     st.Option,
		Tuning:     st.Tuning,
		Instrument: st.Instrument,
		Lyrics:     st.Lyrics,
		Measures:   make([]Measure, 0, len(st.Measures)),
	}
	state := staffState{clef: st.Clef, keySig: st.KeySignature}
	for i, m := range st.Measures {
		var (
			rm  Measure
			err error
		)
		rm, state, err = resolveMeasure(i, m, state)
		if err != nil {
			return Staff{}, err
		}
		out.Measures = append(out.Measures, rm)
	}
	return out, nil
}

func resolveMeasure(index int, m tex.Measure, st staffState) (Measure, staffState, error) {
	if m.TimeSignature != nil {
		ts := *m.TimeSignature
		st.timeSig = &ts
	}
	if m.Clef != "" {
		st.clef = m.Clef
	}
	if m.KeySignature != "" {
		st.keySig = m.KeySignature
	}
	if m.Tempo > 0 {
		st.tempo = m.Tempo
	}

	out := Measure{
		Index:         index,
		Clef:          st.clef,
		KeySignature:  st.keySig,
		Tempo:         st.tempo,
		TempoDeclared: m.Tempo > 0,
		Chords:        make([]Chord, 0, len(m.Elements)),
	}
	if st.timeSig != nil {
		ts := *st.timeSig
		out.TimeSignature = &ts
	}

	for _, el := range m.Elements {
		var (
			chord Chord
			err   error
		)
		chord, st, err = resolveElement(el, st)
		if err != nil {
			return Measure{}, st, err
		}
		out.Chords = append(out.Chords, chord)
	}
	return out, st, nil
}

func resolveElement(el tex.Element, st staffState) (Chord, staffState, error) {
	if el.Marker != nil {
		st.duration = el.Marker.Duration
		if el.Marker.Tuplet > 0 {
			st.tupletSize = el.Marker.Tuplet
			st.tupletLeft = el.Marker.Tuplet
		}
	}

	chord := Chord{Notes: make([]Note, 0, len(el.Notes))}
	for _, n := range el.Notes {
		dur := n.Duration
		if dur == 0 {
			dur = el.Duration
		}
		if dur == 0 {
			dur = st.duration
		}
		if dur == 0 {
			return Chord{}, st, &UnresolvedDurationError{Pitch: n.Pitch, Pos: n.Pos}
		}

		mods := Modifiers{
			Dotted: n.Options.Dotted || el.Options.Dotted,
			Tied:   n.Options.Tied || el.Options.Tied,
		}
		switch {
		case n.Options.Tuplet > 0:
			mods.Tuplet = n.Options.Tuplet
		case el.Options.Tuplet > 0:
			mods.Tuplet = el.Options.Tuplet
		case st.tupletLeft > 0:
			mods.Tuplet = st.tupletSize
			st.tupletLeft--
			if st.tupletLeft == 0 {
				st.tupletSize = 0
			}
		}

		chord.Notes = append(chord.Notes, Note{
			Pitch:     n.Pitch,
			Duration:  dur,
			Modifiers: mods,
			Pos:       n.Pos,
		})
	}
	return chord, st, nil
}
