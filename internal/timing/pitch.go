package timing

import (
	"fmt"

	"github.com/cbegin/alphatex-go/internal/tex"
)

// RestValue is the MIDIValue emitted for rests.
const RestValue = -1

// maxOctave is the highest octave with any note inside 0..127.
const maxOctave = 10

var letterOffsets = map[byte]int{
	'c': 0,
	'd': 2,
	'e': 4,
	'f': 5,
	'g': 7,
	'a': 9,
	'b': 11,
}

// InvalidPitchError reports a pitch word that cannot be mapped to a
// MIDI note number.
type InvalidPitchError struct {
	Pitch  tex.Pitch
	Pos    tex.Position
	Reason string
}

func (e *InvalidPitchError) Error() string {
	return fmt.Sprintf("line %d, col %d: invalid pitch %s: %s", e.Pos.Line, e.Pos.Column, e.Pitch, e.Reason)
}

// MIDIValue maps a pitch to its MIDI note number, or RestValue for a
// rest. Octave 0 is based at 21 and every later octave at 24 plus 12 per
// octave above the first, so c4 is 60.
func MIDIValue(p tex.Pitch) (int, error) {
	if p.Rest {
		return RestValue, nil
	}
	offset, ok := letterOffsets[p.Letter]
	if !ok {
		return 0, &InvalidPitchError{Pitch: p, Reason: fmt.Sprintf("unknown letter %q", p.Letter)}
	}
	for i := 0; i < len(p.Accidentals); i++ {
		switch p.Accidentals[i] {
		case '#':
			offset++
		case 'b':
			offset--
		default:
			return 0, &InvalidPitchError{Pitch: p, Reason: fmt.Sprintf("unknown accidental %q", p.Accidentals[i])}
		}
	}
	if p.Octave < 0 {
		return 0, &InvalidPitchError{Pitch: p, Reason: "negative octave"}
	}
	if p.Octave > maxOctave {
		return 0, &InvalidPitchError{Pitch: p, Reason: fmt.Sprintf("octave %d out of range", p.Octave)}
	}

	base, octave := 24, p.Octave-1
	if p.Octave == 0 {
		base, octave = 21, 0
	}
	v := base + 12*octave + offset
	if v < 0 || v > 127 {
		return 0, &InvalidPitchError{Pitch: p, Reason: fmt.Sprintf("note number %d outside 0..127", v)}
	}
	return v, nil
}
