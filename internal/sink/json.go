// Package sink serializes flattened event lists.
package sink

import (
	"encoding/json"
	"io"

	"github.com/cbegin/alphatex-go/internal/timing"
)

type jsonPitch struct {
	MIDIValue int     `json:"midiValue"`
	Duration  float64 `json:"duration"`
}

type jsonDocument struct {
	Pitches []jsonPitch `json:"pitches"`
}

// WriteJSON writes events as {"pitches":[{"midiValue":..,"duration":..}]}
// in emission order. The pitches array is present even when empty.
func WriteJSON(w io.Writer, events []timing.Event, indent bool) error {
	doc := jsonDocument{Pitches: make([]jsonPitch, 0, len(events))}
	for _, e := range events {
		doc.Pitches = append(doc.Pitches, jsonPitch{MIDIValue: e.MIDIValue, Duration: e.Duration})
	}
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}

// ReadJSON decodes the output of WriteJSON. Only MIDIValue and Duration
// are restored.
func ReadJSON(r io.Reader) ([]timing.Event, error) {
	var doc jsonDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	events := make([]timing.Event, 0, len(doc.Pitches))
	for _, p := range doc.Pitches {
		events = append(events, timing.Event{MIDIValue: p.MIDIValue, Duration: p.Duration})
	}
	return events, nil
}
