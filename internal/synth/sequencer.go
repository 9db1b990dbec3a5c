package synth

import (
	"math"
	"sort"

	"github.com/cbegin/alphatex-go/internal/timing"
)

const DefaultVelocity = 100

type Options struct {
	Velocity          int
	ReleaseTailFrames int // extra frames to render after the last voice ends (0 = use 0.5s default)
	OnEnded           func()
}

// cue is a scheduled note-on or note-off. Note-offs sort before note-ons
// on the same frame.
type cue struct {
	frame int64
	on    bool
	note  int
	id    int // pairs an on with its off
	pan   float64
	wave  Wave
}

// Sequencer plays an event list through an Engine. Each (track, staff)
// lane starts at time zero and its events follow one another.
type Sequencer struct {
	engine     *Engine
	velocity   int
	cues       []cue
	next       int
	frame      int64
	frames     int64
	voiceOf    map[int]int
	tailFrames int
	ended      bool
	onEnded    func()
}

func NewSequencer(events []timing.Event, engine *Engine, sampleRate int, opts Options) *Sequencer {
	tail := opts.ReleaseTailFrames
	if tail <= 0 {
		tail = sampleRate / 2
	}
	vel := opts.Velocity
	if vel <= 0 {
		vel = DefaultVelocity
	}
	s := &Sequencer{
		engine:     engine,
		velocity:   vel,
		voiceOf:    map[int]int{},
		tailFrames: tail,
		onEnded:    opts.OnEnded,
	}
	s.schedule(events, float64(sampleRate))
	return s
}

type laneKey struct{ track, staff int }

func (s *Sequencer) schedule(events []timing.Event, rate float64) {
	var order []laneKey
	elapsed := map[laneKey]float64{}
	for _, e := range events {
		k := laneKey{e.Track, e.Staff}
		if _, ok := elapsed[k]; !ok {
			order = append(order, k)
			elapsed[k] = 0
		}
	}
	lane := map[laneKey]int{}
	for i, k := range order {
		lane[k] = i
	}

	for i, e := range events {
		k := laneKey{e.Track, e.Staff}
		start := int64(math.Round(elapsed[k] * rate))
		elapsed[k] += e.Duration
		end := int64(math.Round(elapsed[k] * rate))
		if end > s.frames {
			s.frames = end
		}
		if e.IsRest() {
			continue
		}
		if end <= start {
			end = start + 1
		}
		pan, wave := lanePan(lane[k], len(order)), WaveTriangle
		if lane[k]%2 == 1 {
			wave = WavePulse
		}
		s.cues = append(s.cues,
			cue{frame: start, on: true, note: e.MIDIValue, id: i, pan: pan, wave: wave},
			cue{frame: end, id: i},
		)
	}
	sort.SliceStable(s.cues, func(a, b int) bool {
		if s.cues[a].frame != s.cues[b].frame {
			return s.cues[a].frame < s.cues[b].frame
		}
		return !s.cues[a].on && s.cues[b].on
	})
}

// lanePan spreads lanes evenly between -32 and 32.
func lanePan(lane, lanes int) float64 {
	if lanes < 2 {
		return 0
	}
	return -32 + 64*float64(lane)/float64(lanes-1)
}

// Process renders len(dst)/2 interleaved stereo frames.
func (s *Sequencer) Process(dst []float32) {
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		for s.next < len(s.cues) && s.cues[s.next].frame <= s.frame {
			c := s.cues[s.next]
			if c.on {
				s.voiceOf[c.id] = s.engine.NoteOn(c.note, s.velocity, c.pan, c.wave)
			} else if v, ok := s.voiceOf[c.id]; ok {
				s.engine.NoteOff(v)
				delete(s.voiceOf, c.id)
			}
			s.next++
		}
		l, r := s.engine.RenderFrame()
		dst[f*2] = l
		dst[f*2+1] = r
		s.frame++
		if s.next >= len(s.cues) && s.frame >= s.frames && !s.ended && s.engine.ActiveVoiceCount() == 0 {
			if s.tailFrames <= 0 {
				s.ended = true
				if s.onEnded != nil {
					s.onEnded()
				}
			} else {
				s.tailFrames--
			}
		}
	}
}

// Finished reports whether every cue has played and the release tail
// has been rendered.
func (s *Sequencer) Finished() bool { return s.ended }

// Frames returns the length of the longest lane in frames, without the
// release tail.
func (s *Sequencer) Frames() int64 { return s.frames }

// Position returns the number of frames rendered so far.
func (s *Sequencer) Position() int64 { return s.frame }
