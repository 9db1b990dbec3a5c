// Package audio streams rendered score previews to the sound card.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Source fills dst with interleaved stereo float32 frames and reports
// when nothing is left to render.
type Source interface {
	Process(dst []float32)
	Finished() bool
}

// StreamReader adapts a Source to the float32 little-endian byte stream
// ebiten expects. It returns io.EOF once the source has finished.
type StreamReader struct {
	mu     sync.Mutex
	source Source
	buf    []float32
	frames int64
}

func NewStreamReader(source Source) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.source.Finished() {
		return 0, io.EOF
	}
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	r.frames += int64(frames)
	if r.source.Finished() {
		return frames * 8, io.EOF
	}
	return frames * 8, nil
}

// Frames returns how many frames have been handed to the audio device.
func (r *StreamReader) Frames() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *StreamReader) Close() error { return nil }

type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// sharedAudioContext returns the process-wide ebiten context. ebiten
// allows a single context, so every player must use the same rate.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate int, source Source) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }

func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

// SetVolume sets the output volume in the range 0..1.
func (p *Player) SetVolume(v float64) { p.player.SetVolume(v) }

// Position returns what the listener actually hears.
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

// Frames returns how many frames the source has rendered for playback.
func (p *Player) Frames() int64 { return p.reader.Frames() }

func (p *Player) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
