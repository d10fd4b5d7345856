package wav_test

import (
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/block"
	"pipelined.dev/block/wav"
)

const (
	bufferSize  = 512
	sampleRate  = 44100
	numChannels = 2
	bitDepth    = 16
)

func TestWavRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	samples := make([]float64, 10*bufferSize)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(float64(i)/100)
	}

	// write all samples through a sink block
	sink, err := block.New("wav sink",
		wav.NewSink(path, sampleRate, numChannels, bitDepth),
		block.Signature{Ports: 1, ItemSize: 8},
		block.Signature{},
	)
	assert.Nil(t, err)
	assert.Nil(t, sink.Start())
	for pos := 0; pos < len(samples); pos += bufferSize {
		n, err := sink.Execute(bufferSize,
			block.InputItems{block.Of(samples[pos : pos+bufferSize])},
			block.OutputItems{},
		)
		assert.Nil(t, err)
		assert.Equal(t, bufferSize, n)
	}
	assert.Nil(t, sink.Stop())
	assert.Equal(t, uint64(len(samples)), sink.ItemsRead(0))

	// read them back through a source block
	worker := wav.NewSource(path)
	source, err := block.New("wav source", worker,
		block.Signature{},
		block.Signature{Ports: 1, ItemSize: 8},
	)
	assert.Nil(t, err)
	assert.Nil(t, source.Start())
	assert.Equal(t, sampleRate, worker.SampleRate())
	assert.Equal(t, numChannels, worker.NumChannels())
	assert.Equal(t, bitDepth, worker.BitDepth())

	var read []float64
	out := make([]float64, bufferSize)
	for {
		n, err := source.Execute(bufferSize, block.InputItems{}, block.OutputItems{block.Of(out)})
		if err == io.EOF {
			break
		}
		assert.Nil(t, err)
		read = append(read, out[:n]...)
	}
	assert.Nil(t, source.Stop())

	assert.Equal(t, len(samples), len(read))
	assert.Equal(t, uint64(len(samples)), source.ItemsWritten(0))
	for i := 0; i < len(samples); i += 1000 {
		// 16 bit quantization error
		assert.InDelta(t, samples[i], read[i], 2.0/float64(int(1)<<(bitDepth-1)))
	}

	// the source tags stream start with the sample rate
	tags := source.ProducedTags(nil, 0, 0, 1)
	assert.Equal(t, 1, len(tags))
	assert.Equal(t, wav.SampleRateKey, tags[0].Key)
	assert.Equal(t, sampleRate, tags[0].Value)
	assert.Equal(t, source.UniqueID(), tags[0].SourceID)
}

func TestSourceInvalid(t *testing.T) {
	source := wav.NewSource(filepath.Join(t.TempDir(), "missing.wav"))
	assert.NotNil(t, source.Start())
	assert.Nil(t, source.Stop())
}
