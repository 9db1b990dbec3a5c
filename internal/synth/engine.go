// Package synth renders flattened note events to stereo float32 frames
// for previewing a score.
package synth

import (
	"math"
	"sync/atomic"
)

const twoPi = math.Pi * 2

type Params struct {
	Voices      int
	MasterGain  float64
	AttackSec   float64
	DecaySec    float64
	SustainLvl  float64
	ReleaseSec  float64
	PulseDuty   float64
	VelocityAmp float64
	LPFCutoff   float64 // lowpass filter cutoff in Hz (0 = disabled)
}

func DefaultParams() Params {
	return Params{
		Voices:      16,
		MasterGain:  0.3,
		AttackSec:   0.01,
		DecaySec:    0.2,
		SustainLvl:  0.7,
		ReleaseSec:  0.25,
		PulseDuty:   0.25,
		VelocityAmp: 0.85,
		LPFCutoff:   9000,
	}
}

// Wave selects a voice waveform.
type Wave int

const (
	WaveTriangle Wave = iota
	WavePulse
)

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active   bool
	id       int
	age      int
	wave     Wave
	freq     float64
	phase    float64
	velocity float64
	env      float64
	envState envState
	pan      float64
}

// Engine is a small polyphonic voice pool with an ADSR envelope per voice.
type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	nextID     int
	masterGain uint64
	dcPrevIn   [2]float64
	dcPrevOut  [2]float64
	lpf        [2]float64
	lpfAlpha   float64
}

func NewEngine(sampleRate int, params Params) *Engine {
	if params.Voices <= 0 {
		params.Voices = 16
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Voices),
		masterGain: math.Float64bits(params.MasterGain),
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / float64(sampleRate)
		e.lpfAlpha = dt / (rc + dt)
	}
	return e
}

// NoteOn starts a voice and returns its id. pan ranges from -64 (left)
// to 64 (right).
func (e *Engine) NoteOn(note int, velocity int, pan float64, wave Wave) int {
	slot := e.stealVoice()
	id := e.nextID
	e.nextID++
	v := &e.voices[slot]
	*v = voice{
		active:   true,
		id:       id,
		wave:     wave,
		freq:     midiToFreq(note),
		velocity: clamp(float64(velocity)/127.0, 0, 1),
		envState: envAttack,
		pan:      clamp(pan, -64, 64),
	}
	return id
}

func (e *Engine) NoteOff(id int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.id == id && v.envState != envRelease {
			v.envState = envRelease
		}
	}
}

func (e *Engine) RenderFrame() (float32, float32) {
	gain := e.masterGainValue()
	var l, r float64
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		v.age++
		env := e.advanceEnv(v)
		if !v.active {
			continue
		}
		sig := e.renderWave(v) * env * (0.15 + v.velocity*e.params.VelocityAmp)
		angle := ((v.pan + 64.0) / 128.0) * (math.Pi / 2.0)
		l += sig * math.Cos(angle) * gain
		r += sig * math.Sin(angle) * gain
	}
	l = e.dcBlock(0, l)
	r = e.dcBlock(1, r)
	if e.lpfAlpha > 0 {
		e.lpf[0] += e.lpfAlpha * (l - e.lpf[0])
		e.lpf[1] += e.lpfAlpha * (r - e.lpf[1])
		l, r = e.lpf[0], e.lpf[1]
	}
	return float32(clamp(l, -1, 1)), float32(clamp(r, -1, 1))
}

func (e *Engine) dcBlock(ch int, x float64) float64 {
	const r = 0.995
	y := x - e.dcPrevIn[ch] + r*e.dcPrevOut[ch]
	e.dcPrevIn[ch] = x
	e.dcPrevOut[ch] = y
	return y
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func (e *Engine) renderWave(v *voice) float64 {
	dt := v.freq / e.sampleRate
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	switch v.wave {
	case WavePulse:
		duty := e.params.PulseDuty
		out := -1.0
		if v.phase < duty {
			out = 1
		}
		out += polyBLEP(v.phase, dt)
		out -= polyBLEP(math.Mod(v.phase-duty+1, 1), dt)
		return out
	default:
		return 2*math.Abs(2*v.phase-1) - 1
	}
}

func (e *Engine) stealVoice() int {
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
	}
	// Steal the oldest releasing voice, or failing that the oldest active voice.
	oldestRelease, oldestReleaseAge := -1, -1
	oldestActive, oldestActiveAge := 0, -1
	for i := range e.voices {
		v := &e.voices[i]
		if v.envState == envRelease && v.age > oldestReleaseAge {
			oldestRelease, oldestReleaseAge = i, v.age
		}
		if v.age > oldestActiveAge {
			oldestActive, oldestActiveAge = i, v.age
		}
	}
	if oldestRelease >= 0 {
		return oldestRelease
	}
	return oldestActive
}

func (e *Engine) advanceEnv(v *voice) float64 {
	switch v.envState {
	case envAttack:
		v.env += e.step(1, e.params.AttackSec)
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		v.env -= e.step(1-e.params.SustainLvl, e.params.DecaySec)
		if v.env <= e.params.SustainLvl {
			v.env = e.params.SustainLvl
			v.envState = envSustain
		}
	case envSustain:
	case envRelease:
		v.env -= e.step(e.params.SustainLvl, e.params.ReleaseSec)
		if v.env <= 0.0001 {
			v.env = 0
			v.envState = envOff
			v.active = false
		}
	case envOff:
		v.active = false
		v.env = 0
	}
	return v.env
}

// step is the per-frame envelope increment covering span over sec.
func (e *Engine) step(span, sec float64) float64 {
	if sec <= 0 || span <= 0 {
		return 1
	}
	return span / (sec * e.sampleRate)
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

func midiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
