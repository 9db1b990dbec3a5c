package alphatex

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	intaudio "github.com/cbegin/alphatex-go/internal/audio"
	intsynth "github.com/cbegin/alphatex-go/internal/synth"
)

// PlaybackEvent is delivered on the channel returned by Watch.
type PlaybackEvent struct {
	Kind int // EventLoopCompleted or EventPlaybackEnded
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	loopPlayback bool
	sampleTap    func([]float32)
	params       intsynth.Params
	translator   *Translator
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{params: intsynth.DefaultParams()}
}

func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loopPlayback = enabled
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// WithTranslator sets the translator used by PlayText.
func WithTranslator(t *Translator) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.translator = t
	}
}

// backend is the audio output driving a Source.
type backend interface {
	Play()
	Pause()
	Stop() error
	Position() time.Duration
	Frames() int64
}

func newAudioBackend(sampleRate int, src intaudio.Source) (backend, error) {
	return intaudio.NewPlayer(sampleRate, src)
}

// Player previews event lists on the default audio device.
type Player struct {
	mu           sync.Mutex
	sampleRate   int
	params       intsynth.Params
	translator   *Translator
	engine       *intsynth.Engine
	audio        backend
	newBackend   func(int, intaudio.Source) (backend, error)
	current      *playback
	lastFrames   int64
	volume       float64
	loopPlayback bool
	sampleTap    func([]float32)
	eventCh      chan PlaybackEvent
	eventChMu    sync.Mutex
}

// playback is one Play call. done closes once when it ends, is
// stopped or is replaced; events from an inactive playback are dropped.
type playback struct {
	done   chan struct{}
	once   sync.Once
	active atomic.Bool
}

func newPlayback() *playback {
	pb := &playback{done: make(chan struct{})}
	pb.active.Store(true)
	return pb
}

func (pb *playback) end() {
	pb.active.Store(false)
	pb.once.Do(func() { close(pb.done) })
}

// eventWrapper feeds the sequencer to the audio stream, restarting it
// when looping and reporting when playback ends.
type eventWrapper struct {
	seq       *intsynth.Sequencer
	restart   func() *intsynth.Sequencer
	loop      bool
	finished  atomic.Bool
	onEvent   func(int)
	sampleTap func([]float32)
}

func (w *eventWrapper) Process(dst []float32) {
	w.seq.Process(dst)
	if w.seq.Finished() {
		if w.loop {
			w.seq = w.restart()
			w.onEvent(EventLoopCompleted)
		} else if !w.finished.Swap(true) {
			w.onEvent(EventPlaybackEnded)
		}
	}
	if w.sampleTap != nil {
		w.sampleTap(dst)
	}
}

func (w *eventWrapper) Finished() bool {
	return w.finished.Load()
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.translator == nil {
		cfg.translator = NewTranslator()
	}
	engine := intsynth.NewEngine(sampleRate, cfg.params)
	return &Player{
		sampleRate:   sampleRate,
		params:       cfg.params,
		translator:   cfg.translator,
		engine:       engine,
		newBackend:   newAudioBackend,
		volume:       1,
		loopPlayback: cfg.loopPlayback,
		sampleTap:    cfg.sampleTap,
	}, nil
}

// PlayText translates src and starts playing it.
func (p *Player) PlayText(src []byte) error {
	res, err := p.translator.Translate(src)
	if err != nil {
		return err
	}
	return p.Play(res.Events)
}

// Play starts playing events, replacing any current playback. On error
// the current playback is left untouched.
func (p *Player) Play(events []Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A fresh engine per Play keeps voices from leaking between scores.
	engine := intsynth.NewEngine(p.sampleRate, p.params)
	engine.SetMasterGain(p.params.MasterGain * p.volume)

	pb := newPlayback()
	newSeq := func() *intsynth.Sequencer {
		return intsynth.NewSequencer(events, engine, p.sampleRate, intsynth.Options{})
	}
	wrapper := &eventWrapper{
		seq:       newSeq(),
		restart:   newSeq,
		loop:      p.loopPlayback,
		sampleTap: p.sampleTap,
		onEvent:   func(kind int) { p.playbackEvent(pb, kind) },
	}

	out, err := p.newBackend(p.sampleRate, wrapper)
	if err != nil {
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	if p.current != nil {
		p.current.end()
	}
	p.engine = engine
	p.audio = out
	p.lastFrames = 0
	p.current = pb
	p.audio.Play()
	return nil
}

// playbackEvent forwards kind from pb. It never takes p.mu, so the
// audio thread cannot block on a concurrent Play or Stop.
func (p *Player) playbackEvent(pb *playback, kind int) {
	if !pb.active.Load() {
		return
	}
	p.sendEvent(PlaybackEvent{Kind: kind})
	if kind == EventPlaybackEnded {
		pb.end()
	}
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	p.lastFrames = p.audio.Frames()
	err := p.audio.Stop()
	p.audio = nil
	pb := p.current
	p.current = nil
	p.mu.Unlock()
	if pb != nil && pb.active.Load() {
		p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
		pb.end()
	}
	return err
}

// Wait blocks until the current playback ends. With loop playback it
// blocks until Stop. It returns immediately when nothing is playing.
func (p *Player) Wait() {
	p.mu.Lock()
	pb := p.current
	p.mu.Unlock()
	if pb != nil {
		<-pb.done
	}
}

// Watch returns a channel that receives playback events. The channel is
// buffered (cap 8) and events are dropped when it is full. Only the most
// recent Watch channel receives events; call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMasterVolume sets the runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.engine.SetMasterGain(p.params.MasterGain * p.volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlaybackPosition returns the output position of the audio driver in
// frames, or 0 when not playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return int64(a.Position().Seconds() * float64(p.sampleRate))
}

// RenderedFrames returns how many frames of the current, or last
// stopped, playback have been handed to the audio device.
func (p *Player) RenderedFrames() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return p.lastFrames
	}
	return p.audio.Frames()
}
