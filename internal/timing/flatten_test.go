package timing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/alphatex-go/internal/resolve"
	"github.com/cbegin/alphatex-go/internal/tex"
)

func flattenSource(t *testing.T, src string, opts Options) []Event {
	t.Helper()
	events, err := flattenErr(src, opts)
	require.NoError(t, err)
	return events
}

func flattenErr(src string, opts Options) ([]Event, error) {
	doc, err := tex.Parse([]byte(src))
	if err != nil {
		return nil, err
	}
	score, err := resolve.Resolve(doc)
	if err != nil {
		return nil, err
	}
	return Flatten(score, opts)
}

func TestMIDIValue(t *testing.T) {
	tests := []struct {
		pitch string
		want  int
	}{
		{"c4", 60},
		{"a4", 69},
		{"c5", 72},
		{"b3", 59},
		{"g#3", 56},
		{"ab3", 56},
		{"c0", 21},
		{"c1", 24},
		{"g9", 127},
		{"r", RestValue},
	}
	for _, tt := range tests {
		t.Run(tt.pitch, func(t *testing.T) {
			p, ok := tex.ParsePitch(tt.pitch)
			require.True(t, ok)
			got, err := MIDIValue(p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMIDIValueRelations(t *testing.T) {
	value := func(word string) int {
		p, ok := tex.ParsePitch(word)
		require.True(t, ok)
		v, err := MIDIValue(p)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, value("c4")+12, value("c5"))
	assert.Equal(t, value("g3")+1, value("g#3"))
	assert.Equal(t, value("a3")-1, value("ab3"))
	assert.Equal(t, value("c4")+2, value("c##4"))
}

func TestMIDIValueInvalid(t *testing.T) {
	for _, word := range []string{"h4", "g#9", "a10", "c11", "c4611686018427387908"} {
		t.Run(word, func(t *testing.T) {
			p, ok := tex.ParsePitch(word)
			require.True(t, ok)
			_, err := MIDIValue(p)
			var invalid *InvalidPitchError
			assert.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
}

func TestSeconds(t *testing.T) {
	assert.InDelta(t, 3.0, Seconds(4, 80, false), 1e-9)
	assert.InDelta(t, 4.5, Seconds(4, 80, true), 1e-9)
	assert.InDelta(t, 6.0, Seconds(8, 80, false), 1e-9)
	assert.InDelta(t, 1.0, Seconds(1, 60, false), 1e-9)
}

func TestRestEvent(t *testing.T) {
	events := flattenSource(t, `. \track a \staff {score} r.4`, DefaultOptions())
	require.Len(t, events, 1)
	assert.True(t, events[0].IsRest())
	assert.Equal(t, RestValue, events[0].MIDIValue)
	assert.InDelta(t, 60.0/80*4, events[0].Duration, 1e-9)
}

func TestTempoChangeAtDeclaringMeasure(t *testing.T) {
	events := flattenSource(t, `\tempo 84 . \track a \staff {score}
  :4 c4 d4 | e4 | \tempo 88 f4 | g4`, DefaultOptions())
	require.Len(t, events, 5)

	before := 60.0 / 84 * 4
	after := 60.0 / 88 * 4
	for _, e := range events[:3] {
		assert.InDelta(t, before, e.Duration, 1e-9)
	}
	for _, e := range events[3:] {
		assert.InDelta(t, after, e.Duration, 1e-9)
	}
	assert.Equal(t, []int{0, 0, 1, 2, 3}, []int{
		events[0].Measure, events[1].Measure, events[2].Measure, events[3].Measure, events[4].Measure,
	})
}

func TestTempoRestartsPerStaff(t *testing.T) {
	events := flattenSource(t, `\tempo 60 . \track a
  \staff {score} \tempo 120 :4 c4
  \staff {score} :4 d4`, DefaultOptions())
	require.Len(t, events, 2)
	assert.InDelta(t, 2.0, events[0].Duration, 1e-9)
	assert.InDelta(t, 4.0, events[1].Duration, 1e-9)
	assert.Equal(t, 1, events[1].Staff)
}

func TestFallbackTempo(t *testing.T) {
	events := flattenSource(t, `. \track a \staff {score} c4.4`, Options{FallbackTempo: 120})
	require.Len(t, events, 1)
	assert.InDelta(t, 2.0, events[0].Duration, 1e-9)

	events = flattenSource(t, `. \track a \staff {score} c4.4`, Options{})
	assert.InDelta(t, 3.0, events[0].Duration, 1e-9)
}

func TestChordFlattening(t *testing.T) {
	events := flattenSource(t, `\tempo 60 . \track a \staff {score} (d4 g4).2`, DefaultOptions())
	require.Len(t, events, 2)
	assert.Equal(t, 62, events[0].MIDIValue)
	assert.Equal(t, 67, events[1].MIDIValue)
	assert.InDelta(t, 2.0, events[0].Duration, 1e-9)
	assert.InDelta(t, 2.0, events[1].Duration, 1e-9)
}

func TestTiesAndTupletsDoNotChangeDuration(t *testing.T) {
	events := flattenSource(t, `\tempo 60 . \track a \staff {score} :8{tu 3} c4{-} d4 e4`, DefaultOptions())
	require.Len(t, events, 3)
	for _, e := range events {
		assert.InDelta(t, 8.0, e.Duration, 1e-9)
	}
}

func TestInvalidPitchCarriesPosition(t *testing.T) {
	_, err := flattenErr(". \\track a \\staff {score}\n  h4.4", DefaultOptions())
	var invalid *InvalidPitchError
	require.True(t, errors.As(err, &invalid), "got %v", err)
	assert.Equal(t, 2, invalid.Pos.Line)
	assert.Equal(t, 3, invalid.Pos.Column)
	assert.Contains(t, err.Error(), "unknown letter")
}

func TestParallelMatchesSequential(t *testing.T) {
	src := `\tempo 90 .
\track a \staff {score} :4 c4 d4 | \tempo 100 e4 \staff {tabs} :8 c3 c3 c3
\track b \staff {score} :2 (c4 e4 g4) | r.4 g4.8{d}
\track c \staff {score} :16{tu 3} a4 b4 c5 d5`
	seq := flattenSource(t, src, DefaultOptions())
	par := flattenSource(t, src, Options{Parallelism: 4})
	assert.Equal(t, seq, par)
	assert.Len(t, seq, 15)
}

func TestFlattenIsDeterministic(t *testing.T) {
	src := `\tempo 84 . \track a \staff {score} :8 a4 b4 (c5 e5).4{d} r`
	assert.Equal(t, flattenSource(t, src, DefaultOptions()), flattenSource(t, src, DefaultOptions()))
}
