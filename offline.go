package alphatex

import (
	"bytes"
	"encoding/binary"

	intsynth "github.com/cbegin/alphatex-go/internal/synth"
)

const renderBlockFrames = 1024

// RenderSamples renders events through the preview synth and returns
// interleaved stereo frames. Rendering stops once every note and its
// release tail have played, or after maxSeconds when maxSeconds > 0.
func RenderSamples(events []Event, sampleRate int, maxSeconds float64) []float32 {
	engine := intsynth.NewEngine(sampleRate, intsynth.DefaultParams())
	seq := intsynth.NewSequencer(events, engine, sampleRate, intsynth.Options{})

	limit := int64(-1)
	if maxSeconds > 0 {
		limit = int64(maxSeconds * float64(sampleRate))
	}
	size := seq.Frames() + int64(sampleRate)/2
	if limit >= 0 && limit < size {
		size = limit
	}
	out := make([]float32, 0, size*2)
	block := make([]float32, renderBlockFrames*2)
	for !seq.Finished() {
		n := int64(renderBlockFrames)
		if limit >= 0 {
			left := limit - seq.Position()
			if left <= 0 {
				break
			}
			if left < n {
				n = left
			}
		}
		seq.Process(block[:n*2])
		out = append(out, block[:n*2]...)
	}
	return out
}

type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

const wavFormatIEEEFloat = 3

// EncodeWAVFloat32LE wraps interleaved float32 samples in a WAV container.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := uint32(len(samples) * 4)
	hdr := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   wavFormatIEEEFloat,
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * 4),
		BlockAlign:    uint16(channels * 4),
		BitsPerSample: 32,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
	var buf bytes.Buffer
	buf.Grow(44 + int(dataSize))
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, hdr)
	_ = binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}
