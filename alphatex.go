// Package alphatex translates AlphaTex score notation into an ordered
// list of pitch/duration events.
//
// Translation runs in three stages: the text is parsed into a Document,
// the Document is resolved into a Score where every note has a concrete
// duration, and the Score is flattened into Events. Each stage is a pure
// function of its input.
package alphatex

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cbegin/alphatex-go/internal/resolve"
	"github.com/cbegin/alphatex-go/internal/sink"
	"github.com/cbegin/alphatex-go/internal/tex"
	"github.com/cbegin/alphatex-go/internal/timing"
)

type (
	Document = tex.Document
	Score    = resolve.Score
	Event    = timing.Event

	ParseError              = tex.ParseError
	LexError                = tex.LexError
	SyntaxError             = tex.SyntaxError
	UnresolvedDurationError = resolve.UnresolvedDurationError
	InvalidPitchError       = timing.InvalidPitchError
)

const (
	RestValue     = timing.RestValue
	FallbackTempo = timing.FallbackTempo
)

type Config struct {
	// FallbackTempo is used when the document declares no \tempo.
	FallbackTempo int
	// Parallelism bounds how many staves are flattened at once.
	Parallelism int
	// Logger receives per-stage debug records. Nil disables logging.
	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{FallbackTempo: FallbackTempo, Parallelism: 1}
}

type Option func(*Config)

func WithFallbackTempo(bpm int) Option {
	return func(cfg *Config) {
		if bpm > 0 {
			cfg.FallbackTempo = bpm
		}
	}
}

func WithParallelism(n int) Option {
	return func(cfg *Config) {
		cfg.Parallelism = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

// Translator runs the full pipeline. It holds no per-call state and is
// safe for concurrent use.
type Translator struct {
	cfg Config
}

func NewTranslator(opts ...Option) *Translator {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Translator{cfg: cfg}
}

func (t *Translator) Config() Config { return t.cfg }

// Result holds every intermediate form of one translation.
type Result struct {
	Document *Document
	Score    *Score
	Events   []Event
}

// Translate parses, resolves and flattens src. The first error of any
// stage aborts the translation.
func (t *Translator) Translate(src []byte) (*Result, error) {
	start := time.Now()

	doc, err := tex.Parse(src)
	if err != nil {
		t.log(slog.LevelDebug, "parse failed", slog.Any("error", err))
		return nil, err
	}
	t.log(slog.LevelDebug, "parsed document",
		slog.String("title", doc.Title),
		slog.Int("tracks", len(doc.Tracks)))

	score, err := resolve.Resolve(doc)
	if err != nil {
		t.log(slog.LevelDebug, "resolve failed", slog.Any("error", err))
		return nil, err
	}
	t.log(slog.LevelDebug, "resolved score", slog.Int("notes", score.NoteCount()))

	events, err := timing.Flatten(score, timing.Options{
		FallbackTempo: t.cfg.FallbackTempo,
		Parallelism:   t.cfg.Parallelism,
	})
	if err != nil {
		t.log(slog.LevelDebug, "flatten failed", slog.Any("error", err))
		return nil, err
	}
	t.log(slog.LevelDebug, "flattened events",
		slog.Int("events", len(events)),
		slog.Duration("elapsed", time.Since(start)))

	return &Result{Document: doc, Score: score, Events: events}, nil
}

func (t *Translator) log(level slog.Level, msg string, attrs ...slog.Attr) {
	if t.cfg.Logger == nil {
		return
	}
	t.cfg.Logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// Translate runs the pipeline with the default configuration and
// returns only the events.
func Translate(src []byte) ([]Event, error) {
	res, err := NewTranslator().Translate(src)
	if err != nil {
		return nil, err
	}
	return res.Events, nil
}

// TrackNames returns the first display name of every track.
func (r *Result) TrackNames() []string {
	names := make([]string, len(r.Score.Tracks))
	for i, tr := range r.Score.Tracks {
		names[i] = tr.Name()
	}
	return names
}

// Duration returns the length of the longest (track, staff) lane.
func (r *Result) Duration() time.Duration {
	return EventsDuration(r.Events)
}

// EventsDuration sums event durations per (track, staff) lane and returns
// the longest lane.
func EventsDuration(events []Event) time.Duration {
	type lane struct{ track, staff int }
	totals := map[lane]float64{}
	var longest float64
	for _, e := range events {
		k := lane{e.Track, e.Staff}
		totals[k] += e.Duration
		if totals[k] > longest {
			longest = totals[k]
		}
	}
	return time.Duration(longest * float64(time.Second))
}

// WriteJSON writes the events as {"pitches":[{"midiValue","duration"}]}.
func (r *Result) WriteJSON(w io.Writer, indent bool) error {
	return sink.WriteJSON(w, r.Events, indent)
}

// WriteMIDI writes the events as a Standard MIDI File with one track per
// staff.
func (r *Result) WriteMIDI(w io.Writer) error {
	return sink.NewMIDIWriter(r.TrackNames()).Write(w, r.Events)
}

// ReadJSON decodes an event list written by WriteJSON. Track, staff and
// measure indices are not stored, so every event lands on the first lane.
func ReadJSON(r io.Reader) ([]Event, error) {
	return sink.ReadJSON(r)
}
