package audio

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
)

type constSource struct {
	value  float32
	chunks int
}

func (s *constSource) Process(dst []float32) {
	for i := range dst {
		dst[i] = s.value
	}
	s.chunks--
}

func (s *constSource) Finished() bool { return s.chunks <= 0 }

func TestStreamReaderEncodesFloat32LE(t *testing.T) {
	r := NewStreamReader(&constSource{value: 0.5, chunks: 2})

	p := make([]byte, 4*8)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != len(p) {
		t.Fatalf("n = %d, want %d", n, len(p))
	}
	for i := 0; i < n; i += 4 {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(p[i:])); got != 0.5 {
			t.Fatalf("sample %d = %f", i/4, got)
		}
	}
	if r.Frames() != 4 {
		t.Fatalf("frames = %d, want 4", r.Frames())
	}
}

func TestStreamReaderReturnsEOFWhenFinished(t *testing.T) {
	r := NewStreamReader(&constSource{chunks: 1})

	p := make([]byte, 16)
	n, err := r.Read(p)
	if err != io.EOF || n != 16 {
		t.Fatalf("got (%d, %v), want (16, EOF)", n, err)
	}
	n, err = r.Read(p)
	if err != io.EOF || n != 0 {
		t.Fatalf("got (%d, %v), want (0, EOF)", n, err)
	}
}

func TestStreamReaderIgnoresPartialFrames(t *testing.T) {
	r := NewStreamReader(&constSource{chunks: 5})
	n, err := r.Read(make([]byte, 7))
	if err != nil || n != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", n, err)
	}
}
