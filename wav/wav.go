// Package wav provides blocks to stream audio from and to wav files.
// Items are interleaved float64 samples.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/block"
)

type (
	// Source streams samples from a wav file on a single output port.
	// The file is opened on start and its properties are accessible
	// afterwards. A sample rate tag is added at offset 0 of the stream.
	Source struct {
		path  string
		block *block.Block

		file    *os.File
		decoder *wav.Decoder
		ib      *audio.IntBuffer

		numChannels int
		sampleRate  int
		bitDepth    int
		tagged      bool
	}

	// Sink saves samples from a single input port to a wav file.
	Sink struct {
		path        string
		sampleRate  int
		numChannels int
		bitDepth    int

		file    *os.File
		encoder *wav.Encoder
		ib      *audio.IntBuffer
	}
)

// SampleRateKey is the key of the tag the source adds at stream start.
const SampleRateKey = "sample_rate"

// ErrInvalidWav is returned if the source file is not a valid wav.
var ErrInvalidWav = errors.New("wav is not valid")

// NewSource creates a source block around a wav file path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Bind implements block.Binder.
func (s *Source) Bind(b *block.Block) {
	s.block = b
}

// Start implements block.Starter. It opens and validates the file.
func (s *Source) Start() error {
	file, err := os.Open(s.path)
	if err != nil {
		return err
	}
	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return fmt.Errorf("%s: %w", s.path, ErrInvalidWav)
	}
	s.file = file
	s.decoder = decoder
	s.numChannels = decoder.Format().NumChannels
	s.sampleRate = int(decoder.SampleRate)
	s.bitDepth = int(decoder.BitDepth)
	s.ib = &audio.IntBuffer{
		Format:         decoder.Format(),
		SourceBitDepth: int(decoder.BitDepth),
	}
	return nil
}

// Stop implements block.Stopper.
func (s *Source) Stop() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// Work implements block.Worker. It decodes up to the output view size
// of interleaved samples, io.EOF is returned when the file is drained.
func (s *Source) Work(in block.InputItems, out block.OutputItems) (int, error) {
	dst := block.As[float64](out[0])
	if len(s.ib.Data) != len(dst) {
		s.ib.Data = make([]int, len(dst))
	}
	read, err := s.decoder.PCMBuffer(s.ib)
	if err != nil {
		return 0, fmt.Errorf("error decoding %s: %w", s.path, err)
	}
	if read == 0 {
		return 0, io.EOF
	}
	if !s.tagged {
		s.block.AddTag(0, block.Tag{
			Offset:   0,
			Key:      SampleRateKey,
			Value:    s.sampleRate,
			SourceID: s.block.UniqueID(),
		})
		s.tagged = true
	}
	divider := float64(uint64(1) << (s.bitDepth - 1))
	for i := 0; i < read; i++ {
		dst[i] = float64(s.ib.Data[i]) / divider
	}
	return read, nil
}

// SampleRate returns wav's sample rate.
func (s *Source) SampleRate() int {
	return s.sampleRate
}

// NumChannels returns wav's number of channels.
func (s *Source) NumChannels() int {
	return s.numChannels
}

// BitDepth returns wav's bit depth.
func (s *Source) BitDepth() int {
	return s.bitDepth
}

// NewSink creates a sink block writing a wav file with provided
// properties.
func NewSink(path string, sampleRate, numChannels, bitDepth int) *Sink {
	return &Sink{
		path:        path,
		sampleRate:  sampleRate,
		numChannels: numChannels,
		bitDepth:    bitDepth,
	}
}

// Start implements block.Starter. It creates the file and the encoder.
func (s *Sink) Start() error {
	file, err := os.Create(s.path)
	if err != nil {
		return err
	}
	s.file = file
	s.encoder = wav.NewEncoder(file, s.sampleRate, s.bitDepth, s.numChannels, 1)
	s.ib = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: s.numChannels,
			SampleRate:  s.sampleRate,
		},
		SourceBitDepth: s.bitDepth,
	}
	return nil
}

// Stop implements block.Stopper. It finalizes the encoder and closes
// the file.
func (s *Sink) Stop() error {
	if s.encoder == nil {
		return nil
	}
	if err := s.encoder.Close(); err != nil {
		return err
	}
	return s.file.Close()
}

// Work implements block.Worker. It encodes all available interleaved
// samples from the input view.
func (s *Sink) Work(in block.InputItems, out block.OutputItems) (int, error) {
	src := block.As[float64](in[0])
	if len(s.ib.Data) != len(src) {
		s.ib.Data = make([]int, len(src))
	}
	multiplier := float64(uint64(1)<<(s.bitDepth-1)) - 1
	for i := range src {
		s.ib.Data[i] = int(src[i] * multiplier)
	}
	if err := s.encoder.Write(s.ib); err != nil {
		return 0, fmt.Errorf("error encoding %s: %w", s.path, err)
	}
	return len(src), nil
}
