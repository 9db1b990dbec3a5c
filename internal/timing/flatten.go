// Package timing flattens a resolved score into an ordered list of
// pitch/duration events.
package timing

import (
	"github.com/remeh/sizedwaitgroup"

	"github.com/cbegin/alphatex-go/internal/resolve"
)

const (
	// FallbackTempo is used when neither the document nor the staff
	// declares a tempo.
	FallbackTempo = 80

	secondsPerMinute = 60
)

// Event is a single emitted note. Track, Staff and Measure are zero-based
// indices into the score and are not part of the serialized output.
type Event struct {
	MIDIValue int
	Duration  float64 // seconds
	Track     int
	Staff     int
	Measure   int
}

// IsRest reports whether the event is a rest.
func (e Event) IsRest() bool { return e.MIDIValue == RestValue }

type Options struct {
	// FallbackTempo replaces a missing document tempo.
	FallbackTempo int
	// Parallelism bounds how many staves are flattened concurrently.
	// Values below 2 flatten sequentially.
	Parallelism int
}

func DefaultOptions() Options {
	return Options{FallbackTempo: FallbackTempo, Parallelism: 1}
}

// Seconds converts a duration denominator to seconds at tempo, scaled by
// 1.5 when dotted. The result grows with the denominator.
func Seconds(denominator, tempo int, dotted bool) float64 {
	factor := float64(secondsPerMinute) / float64(tempo)
	d := factor * float64(denominator)
	if dotted {
		d *= 1.5
	}
	return d
}

type lane struct {
	track, staff int
	st           *resolve.Staff
}

// Flatten walks the score in document order (track, staff, measure,
// chord, note) and returns one event per note. The result is identical
// whatever opts.Parallelism is.
func Flatten(score *resolve.Score, opts Options) ([]Event, error) {
	if opts.FallbackTempo <= 0 {
		opts.FallbackTempo = FallbackTempo
	}
	start := score.Tempo
	if start <= 0 {
		start = opts.FallbackTempo
	}

	var lanes []lane
	for ti := range score.Tracks {
		for si := range score.Tracks[ti].Staves {
			lanes = append(lanes, lane{track: ti, staff: si, st: &score.Tracks[ti].Staves[si]})
		}
	}

	results := make([][]Event, len(lanes))
	errs := make([]error, len(lanes))
	if opts.Parallelism < 2 {
		for i, l := range lanes {
			results[i], errs[i] = flattenStaff(l, start)
			if errs[i] != nil {
				return nil, errs[i]
			}
		}
	} else {
		swg := sizedwaitgroup.New(opts.Parallelism)
		for i, l := range lanes {
			swg.Add()
			go func(i int, l lane) {
				defer swg.Done()
				results[i], errs[i] = flattenStaff(l, start)
			}(i, l)
		}
		swg.Wait()
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	events := make([]Event, 0, total)
	for _, r := range results {
		events = append(events, r...)
	}
	return events, nil
}

func flattenStaff(l lane, tempo int) ([]Event, error) {
	var events []Event
	for _, m := range l.st.Measures {
		if m.Tempo > 0 {
			tempo = m.Tempo
		}
		for _, c := range m.Chords {
			for _, n := range c.Notes {
				v, err := MIDIValue(n.Pitch)
				if err != nil {
					if pe, ok := err.(*InvalidPitchError); ok {
						pe.Pos = n.Pos
					}
					return nil, err
				}
				events = append(events, Event{
					MIDIValue: v,
					Duration:  Seconds(n.Duration, tempo, n.Modifiers.Dotted),
					Track:     l.track,
					Staff:     l.staff,
					Measure:   m.Index,
				})
			}
		}
	}
	return events, nil
}
