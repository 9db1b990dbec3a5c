package sink

import (
	"fmt"
	"io"
	"math"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/alphatex-go/internal/timing"
)

const (
	// conductorBPM makes one quarter note last one second, so event
	// seconds convert directly to quarter-note ticks.
	conductorBPM        = 60
	DefaultResolution   = 960
	DefaultNoteVelocity = 100
	drumChannel         = 9
)

// MIDIWriter renders events as a Standard MIDI File. Each (track, staff)
// pair becomes its own SMF track and its events are laid out one after
// another, rests advancing time.
type MIDIWriter struct {
	Resolution uint16
	Velocity   uint8
	// TrackNames names SMF tracks by score track index. Missing entries
	// fall back to "Track N".
	TrackNames []string
}

func NewMIDIWriter(trackNames []string) *MIDIWriter {
	return &MIDIWriter{
		Resolution: DefaultResolution,
		Velocity:   DefaultNoteVelocity,
		TrackNames: trackNames,
	}
}

type laneKey struct{ track, staff int }

// SMF builds the in-memory file.
func (mw *MIDIWriter) SMF(events []timing.Event) (*smf.SMF, error) {
	res := mw.Resolution
	if res == 0 {
		res = DefaultResolution
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(res)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTempo(conductorBPM))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return nil, err
	}

	var order []laneKey
	lanes := map[laneKey][]timing.Event{}
	for _, e := range events {
		k := laneKey{e.Track, e.Staff}
		if _, ok := lanes[k]; !ok {
			order = append(order, k)
		}
		lanes[k] = append(lanes[k], e)
	}

	for i, k := range order {
		tr, err := mw.lane(k, channelFor(i), float64(res), lanes[k])
		if err != nil {
			return nil, err
		}
		if err := s.Add(tr); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Write encodes events as a Standard MIDI File to w.
func (mw *MIDIWriter) Write(w io.Writer, events []timing.Event) error {
	s, err := mw.SMF(events)
	if err != nil {
		return err
	}
	_, err = s.WriteTo(w)
	return err
}

func (mw *MIDIWriter) lane(k laneKey, ch uint8, ticksPerSecond float64, events []timing.Event) (smf.Track, error) {
	var tr smf.Track
	name := fmt.Sprintf("Track %d", k.track+1)
	if k.track < len(mw.TrackNames) && mw.TrackNames[k.track] != "" {
		name = mw.TrackNames[k.track]
	}
	if k.staff > 0 {
		name = fmt.Sprintf("%s (staff %d)", name, k.staff+1)
	}
	tr.Add(0, smf.MetaTrackSequenceName(name))

	vel := mw.Velocity
	if vel == 0 {
		vel = DefaultNoteVelocity
	}

	var (
		elapsed float64 // seconds
		cursor  int64   // ticks already written
	)
	for _, e := range events {
		start := int64(math.Round(elapsed * ticksPerSecond))
		elapsed += e.Duration
		end := int64(math.Round(elapsed * ticksPerSecond))
		if end > math.MaxUint32 {
			return nil, fmt.Errorf("lane %q exceeds the maximum file length", name)
		}
		if e.IsRest() {
			continue
		}
		key := uint8(e.MIDIValue)
		tr.Add(uint32(start-cursor), midi.NoteOn(ch, key, vel))
		tr.Add(uint32(end-start), midi.NoteOff(ch, key))
		cursor = end
	}
	tr.Close(uint32(int64(math.Round(elapsed*ticksPerSecond)) - cursor))
	return tr, nil
}

// channelFor assigns channels round-robin, skipping the drum channel.
func channelFor(lane int) uint8 {
	ch := uint8(lane % 15)
	if ch >= drumChannel {
		ch++
	}
	return ch
}
