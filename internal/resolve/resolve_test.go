package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/alphatex-go/internal/tex"
)

func resolveSource(t *testing.T, src string) *Score {
	t.Helper()
	doc, err := tex.Parse([]byte(src))
	require.NoError(t, err)
	score, err := Resolve(doc)
	require.NoError(t, err)
	return score
}

// staffNotes flattens the first staff of the first track.
func staffNotes(s *Score) []Note {
	var out []Note
	for _, m := range s.Tracks[0].Staves[0].Measures {
		for _, c := range m.Chords {
			out = append(out, c.Notes...)
		}
	}
	return out
}

func durations(notes []Note) []int {
	out := make([]int, len(notes))
	for i, n := range notes {
		out[i] = n.Duration
	}
	return out
}

func tuplets(notes []Note) []int {
	out := make([]int, len(notes))
	for i, n := range notes {
		out[i] = n.Modifiers.Tuplet
	}
	return out
}

func TestMarkerDurationInherited(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :8 a4 b4 c5`)
	assert.Equal(t, []int{8, 8, 8}, durations(staffNotes(s)))
}

func TestMarkerPersistsAcrossBarLines(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :8 a4 | b4 |`)
	assert.Equal(t, []int{8, 8}, durations(staffNotes(s)))
}

func TestExplicitDurationWins(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :8 a4.4 b4 (c4 e4.2).16`)
	assert.Equal(t, []int{4, 8, 16, 2}, durations(staffNotes(s)))
}

func TestNextMarkerReplacesContext(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :8 a4 :2 b4 | c4`)
	assert.Equal(t, []int{8, 2, 2}, durations(staffNotes(s)))
}

func TestTupletMarkerTagsFollowingNotes(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :8{tu 3} a4 b4 c5 d4`)
	assert.Equal(t, []int{3, 3, 3, 0}, tuplets(staffNotes(s)))
}

func TestTupletCounterCountsChordNotesAndBars(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :8{tu 3} (a4 c5) | b4 d4`)
	assert.Equal(t, []int{3, 3, 3, 0}, tuplets(staffNotes(s)))
}

func TestPlainMarkerKeepsArmedTuplet(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :8{tu 3} a4 :4 b4 c4 d4`)
	notes := staffNotes(s)
	assert.Equal(t, []int{3, 3, 3, 0}, tuplets(notes))
	assert.Equal(t, []int{8, 4, 4, 4}, durations(notes))
}

func TestSecondTupletMarkerRestartsCounter(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :8{tu 3} a4 :8{tu 5} b4 c4 d4 e4 f4 g4`)
	assert.Equal(t, []int{3, 5, 5, 5, 5, 5, 0}, tuplets(staffNotes(s)))
}

func TestExplicitTupletScopedToElement(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :8 (a4 c5){tu 5} b4{tu 7} d4`)
	assert.Equal(t, []int{5, 5, 7, 0}, tuplets(staffNotes(s)))
}

func TestExplicitTupletDoesNotConsumeCounter(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :8{tu 2} a4 b4{tu 7} c4 d4`)
	assert.Equal(t, []int{2, 7, 2, 0}, tuplets(staffNotes(s)))
}

func TestTupletCounterClearedAtStaffEnd(t *testing.T) {
	s := resolveSource(t, `. \track a
  \staff {score} :8{tu 3} a4
  \staff {score} :8 b4 c4`)
	second := s.Tracks[0].Staves[1].Measures[0].Chords
	assert.Zero(t, second[0].Notes[0].Modifiers.Tuplet)
	assert.Zero(t, second[1].Notes[0].Modifiers.Tuplet)
}

func TestModifiersDoNotPropagate(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :4 a4{d} b4{-} c4 (d4 f4){d -}`)
	notes := staffNotes(s)
	assert.Equal(t, Modifiers{Dotted: true}, notes[0].Modifiers)
	assert.Equal(t, Modifiers{Tied: true}, notes[1].Modifiers)
	assert.Equal(t, Modifiers{}, notes[2].Modifiers)
	assert.Equal(t, Modifiers{Dotted: true, Tied: true}, notes[3].Modifiers)
	assert.Equal(t, Modifiers{Dotted: true, Tied: true}, notes[4].Modifiers)
}

func TestMeasureOverridesCarryForward(t *testing.T) {
	s := resolveSource(t, `\tempo 84 . \track a
  \staff {score} \clef G2 \ks C
  \ts 4 4 :4 c4 | \tempo 88 \ks G d4 | \ts 3 4 \clef F4 e4 | f4`)
	ms := s.Tracks[0].Staves[0].Measures
	require.Len(t, ms, 4)

	assert.Equal(t, 84, s.Tempo)
	assert.Equal(t, 0, ms[0].Tempo)
	assert.False(t, ms[0].TempoDeclared)
	assert.Equal(t, &tex.TimeSignature{Top: 4, Bottom: 4}, ms[0].TimeSignature)
	assert.Equal(t, "G2", ms[0].Clef)
	assert.Equal(t, "C", ms[0].KeySignature)

	assert.Equal(t, 88, ms[1].Tempo)
	assert.True(t, ms[1].TempoDeclared)
	assert.Equal(t, "G", ms[1].KeySignature)
	assert.Equal(t, &tex.TimeSignature{Top: 4, Bottom: 4}, ms[1].TimeSignature)

	assert.Equal(t, &tex.TimeSignature{Top: 3, Bottom: 4}, ms[2].TimeSignature)
	assert.Equal(t, "F4", ms[2].Clef)
	assert.Equal(t, 88, ms[2].Tempo)
	assert.False(t, ms[2].TempoDeclared)

	assert.Equal(t, 88, ms[3].Tempo)
	assert.Equal(t, "F4", ms[3].Clef)
	assert.Equal(t, []int{0, 1, 2, 3}, []int{ms[0].Index, ms[1].Index, ms[2].Index, ms[3].Index})
}

func TestOverridesAreStaffScoped(t *testing.T) {
	s := resolveSource(t, `. \track a
  \staff {score} \tempo 120 \ts 2 4 :4 c4
  \staff {score} :4 d4`)
	second := s.Tracks[0].Staves[1].Measures[0]
	assert.Zero(t, second.Tempo)
	assert.Nil(t, second.TimeSignature)
}

func TestUnresolvedDuration(t *testing.T) {
	doc, err := tex.Parse([]byte(`. \track a \staff {score} c4.4 d4`))
	require.NoError(t, err)

	_, err = Resolve(doc)
	var unresolved *UnresolvedDurationError
	require.True(t, errors.As(err, &unresolved), "got %v", err)
	assert.Equal(t, "d4", unresolved.Pitch.String())
	assert.Equal(t, 1, unresolved.Pos.Line)
	assert.Contains(t, err.Error(), "note d4 has no duration")
}

func TestContextDoesNotLeakBetweenStaves(t *testing.T) {
	doc, err := tex.Parse([]byte(`. \track a \staff {score} :8 c4 \staff {score} d4`))
	require.NoError(t, err)

	_, err = Resolve(doc)
	var unresolved *UnresolvedDurationError
	assert.True(t, errors.As(err, &unresolved))
}

func TestNoteCountAndModifierString(t *testing.T) {
	s := resolveSource(t, `. \track a \staff {score} :8{tu 3} (c4 e4 g4){d -} r`)
	assert.Equal(t, 4, s.NoteCount())
	assert.Equal(t, "dotted tied tuplet 3", staffNotes(s)[0].Modifiers.String())
	assert.Equal(t, "", staffNotes(s)[3].Modifiers.String())
	assert.Equal(t, "a", s.Tracks[0].Name())
}
