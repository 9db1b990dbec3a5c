package sink

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/alphatex-go/internal/timing"
)

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	err := WriteJSON(&buf, []timing.Event{
		{MIDIValue: 60, Duration: 1.5, Track: 2},
		{MIDIValue: timing.RestValue, Duration: 0.75},
	}, false)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"pitches":[{"midiValue":60,"duration":1.5},{"midiValue":-1,"duration":0.75}]}`,
		buf.String())
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil, true))
	assert.JSONEq(t, `{"pitches":[]}`, buf.String())
}

func TestReadJSON(t *testing.T) {
	in := []timing.Event{{MIDIValue: 67, Duration: 2.25}, {MIDIValue: -1, Duration: 3}}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, in, true))

	out, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

type heard struct {
	key      uint8
	ch       uint8
	startMic int64
	endMic   int64
}

// notesOf reads every note of track back with absolute times in microseconds.
func notesOf(s *smf.SMF, track int) []heard {
	var out []heard
	open := map[uint8]int{}
	var abs int64
	for _, ev := range s.Tracks[track] {
		abs += int64(ev.Delta)
		var ch, key, vel uint8
		switch {
		case ev.Message.GetNoteOn(&ch, &key, &vel):
			open[key] = len(out)
			out = append(out, heard{key: key, ch: ch, startMic: s.TimeAt(abs)})
		case ev.Message.GetNoteOff(&ch, &key, &vel):
			out[open[key]].endMic = s.TimeAt(abs)
		}
	}
	return out
}

func TestMIDIWriterLanes(t *testing.T) {
	events := []timing.Event{
		{MIDIValue: 60, Duration: 1, Track: 0, Staff: 0},
		{MIDIValue: timing.RestValue, Duration: 0.5, Track: 0, Staff: 0},
		{MIDIValue: 64, Duration: 2, Track: 0, Staff: 0},
		{MIDIValue: 48, Duration: 4, Track: 1, Staff: 0},
	}
	var buf bytes.Buffer
	require.NoError(t, NewMIDIWriter([]string{"Soprano", "Bass"}).Write(&buf, events))

	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, s.Tracks, 3)

	first := notesOf(s, 1)
	require.Len(t, first, 2)
	assert.Equal(t, heard{key: 60, ch: 0, startMic: 0, endMic: 1_000_000}, first[0])
	assert.Equal(t, heard{key: 64, ch: 0, startMic: 1_500_000, endMic: 3_500_000}, first[1])

	second := notesOf(s, 2)
	require.Len(t, second, 1)
	assert.Equal(t, heard{key: 48, ch: 1, startMic: 0, endMic: 4_000_000}, second[0])
}

func TestMIDIWriterEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewMIDIWriter(nil).Write(&buf, nil))

	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Len(t, s.Tracks, 1)
}

func TestChannelForSkipsDrums(t *testing.T) {
	assert.Equal(t, uint8(0), channelFor(0))
	assert.Equal(t, uint8(8), channelFor(8))
	assert.Equal(t, uint8(10), channelFor(9))
	assert.Equal(t, uint8(15), channelFor(14))
	assert.Equal(t, uint8(0), channelFor(15))
}
