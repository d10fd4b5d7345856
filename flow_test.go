package block_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/block"
	"pipelined.dev/block/metric"
	"pipelined.dev/block/mock"
)

func TestExecuteAuto(t *testing.T) {
	proc := &mock.Processor{}
	b, err := block.New("copy", proc, floats, floats)
	assert.Nil(t, err)
	assert.Nil(t, b.Start())

	in := make([]float64, 512)
	out := make([]float64, 512)
	n, err := b.Execute(512,
		block.InputItems{block.Of(in)},
		block.OutputItems{block.Of(out)},
	)
	assert.Nil(t, err)
	assert.Equal(t, 512, n)
	assert.Equal(t, uint64(512), b.ItemsRead(0))
	assert.Equal(t, uint64(512), b.ItemsWritten(0))

	// counters are cumulative
	_, err = b.Execute(512,
		block.InputItems{block.Of(in)},
		block.OutputItems{block.Of(out)},
	)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1024), b.ItemsRead(0))
	assert.Equal(t, uint64(1024), b.ItemsWritten(0))
	assert.Equal(t, 2, proc.Works)
}

func TestExecuteSource(t *testing.T) {
	source := &mock.Source{Limit: 768, Value: 0.5}
	b, err := block.New("source", source, block.Signature{}, floats)
	assert.Nil(t, err)

	out := make([]float64, 512)
	n, err := b.Execute(512, block.InputItems{}, block.OutputItems{block.Of(out)})
	assert.Nil(t, err)
	assert.Equal(t, 512, n)
	assert.Equal(t, 0.5, out[0])

	n, err = b.Execute(512, block.InputItems{}, block.OutputItems{block.Of(out)})
	assert.Nil(t, err)
	assert.Equal(t, 256, n)
	assert.Equal(t, uint64(768), b.ItemsWritten(0))

	_, err = b.Execute(512, block.InputItems{}, block.OutputItems{block.Of(out)})
	assert.Equal(t, io.EOF, err)
}

func TestRelativeRate(t *testing.T) {
	b, err := block.New("interpolator", &mock.Generator{Value: 1}, floats, floats)
	assert.Nil(t, err)
	b.SetRelativeRate(2.0)
	assert.Equal(t, 2.0, b.RelativeRate())

	in := make([]float64, 50)
	out := make([]float64, 100)
	n, err := b.Execute(100,
		block.InputItems{block.Of(in)},
		block.OutputItems{block.Of(out)},
	)
	assert.Nil(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, uint64(50), b.ItemsRead(0))
	assert.Equal(t, uint64(100), b.ItemsWritten(0))

	// forecast requires 50 items, 49 is not enough
	_, err = b.Execute(100,
		block.InputItems{block.Of(make([]float64, 49))},
		block.OutputItems{block.Of(out)},
	)
	assert.True(t, errors.Is(err, block.ErrInsufficientItems))
}

func TestForecastOverride(t *testing.T) {
	b, err := block.New("decimator", &mock.Decimator{Factor: 4}, floats, floats)
	assert.Nil(t, err)
	b.SetRelativeRate(0.25)

	in := make([]float64, 400)
	for i := range in {
		in[i] = float64(i)
	}
	out := make([]float64, 100)
	n, err := b.Execute(100,
		block.InputItems{block.Of(in)},
		block.OutputItems{block.Of(out)},
	)
	assert.Nil(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, uint64(400), b.ItemsRead(0))
	assert.Equal(t, uint64(100), b.ItemsWritten(0))
	assert.Equal(t, 4.0, out[1])

	// forecast override is authoritative: 399 items are not enough
	_, err = b.Execute(100,
		block.InputItems{block.Of(make([]float64, 399))},
		block.OutputItems{block.Of(out)},
	)
	assert.True(t, errors.Is(err, block.ErrInsufficientItems))
}

func TestOutputMultiple(t *testing.T) {
	gen := &mock.Generator{Value: 1}
	b, err := block.New("aligned", gen, block.Signature{}, floats)
	assert.Nil(t, err)
	b.SetOutputMultiple(8)
	assert.Equal(t, 8, b.OutputMultiple())

	// request of 10 is rounded down to 8 before work is invoked
	out := make([]float64, 10)
	n, err := b.Execute(10, block.InputItems{}, block.OutputItems{block.Of(out)})
	assert.Nil(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, uint64(8), b.ItemsWritten(0))
	assert.Equal(t, 0.0, out[8])

	// request below the multiple yields no work call at all
	n, err = b.Execute(7, block.InputItems{}, block.OutputItems{block.Of(out)})
	assert.Nil(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, gen.Works)
}

func TestHistory(t *testing.T) {
	b, err := block.New("sliding", &mock.Processor{}, floats, floats)
	assert.Nil(t, err)
	b.SetHistory(4)
	assert.Equal(t, 4, b.History())

	// first call: 3 look-back items are not available yet, the forecast
	// demands them on top of the requested output
	out := make([]float64, 10)
	_, err = b.Execute(10,
		block.InputItems{block.Of(make([]float64, 10))},
		block.OutputItems{block.Of(out)},
	)
	assert.True(t, errors.Is(err, block.ErrInsufficientItems))

	n, err := b.Execute(10,
		block.InputItems{block.Of(make([]float64, 13))},
		block.OutputItems{block.Of(out)},
	)
	assert.Nil(t, err)
	assert.Equal(t, 10, n)
	// look-back items are retained, not consumed
	assert.Equal(t, uint64(10), b.ItemsRead(0))
}

func TestManualMode(t *testing.T) {
	flusher := &mock.Flusher{}
	b, err := block.New("manual", flusher, floats, floats)
	assert.Nil(t, err)
	b.SetAuto(false)
	assert.Equal(t, b, flusher.Block)

	in := make([]float64, 256)
	out := make([]float64, 256)
	n, err := b.Execute(256,
		block.InputItems{block.Of(in)},
		block.OutputItems{block.Of(out)},
	)
	assert.Nil(t, err)
	assert.Equal(t, 256, n)
	assert.Equal(t, uint64(256), b.ItemsRead(0))
	assert.Equal(t, uint64(256), b.ItemsWritten(0))
}

func TestContractViolations(t *testing.T) {
	b, err := block.New("auto", &mock.Processor{}, floats, floats)
	assert.Nil(t, err)

	// consume and produce belong to the facet in automatic mode
	assert.Panics(t, func() { b.Consume(0, 1) })
	assert.Panics(t, func() { b.ConsumeEach(1) })
	assert.Panics(t, func() { b.Produce(0, 1) })

	manual, err := block.New("manual", &mock.Processor{}, floats, floats)
	assert.Nil(t, err)
	manual.SetAuto(false)

	// over-consuming items which were never made available
	assert.Panics(t, func() { manual.Consume(0, 5) })
	assert.Panics(t, func() { manual.Produce(0, 5) })
	assert.Panics(t, func() { manual.Consume(2, 0) })

	assert.Panics(t, func() { b.SetHistory(0) })
	assert.Panics(t, func() { b.SetOutputMultiple(0) })
	assert.Panics(t, func() { b.SetRelativeRate(0) })
	assert.Panics(t, func() { b.ItemsRead(1) })
	assert.Panics(t, func() { b.ItemsWritten(-1) })
}

func TestMetered(t *testing.T) {
	gen := &mock.Generator{Value: 1}
	b, err := block.New("metered", gen, block.Signature{}, floats,
		block.WithMeter(metric.Meter(gen)),
	)
	assert.Nil(t, err)
	assert.Nil(t, b.Start())

	out := make([]float64, 100)
	for i := 0; i < 5; i++ {
		_, err := b.Execute(100, block.InputItems{}, block.OutputItems{block.Of(out)})
		assert.Nil(t, err)
	}
	assert.Nil(t, b.Stop())

	values := metric.Get(gen)
	assert.Equal(t, "5", values[metric.WorkCounter])
	assert.Equal(t, "500", values[metric.ItemCounter])
	assert.Equal(t, "1", values[metric.WorkerCounter])
}

// overProducer reports more items than were requested.
type overProducer struct{}

func (overProducer) Work(in block.InputItems, out block.OutputItems) (int, error) {
	return 1000, nil
}

func TestOverProduce(t *testing.T) {
	b, err := block.New("liar", overProducer{}, block.Signature{}, floats)
	assert.Nil(t, err)

	out := make([]float64, 10)
	assert.Panics(t, func() {
		b.Execute(10, block.InputItems{}, block.OutputItems{block.Of(out)})
	})
}

func TestPortCountMismatch(t *testing.T) {
	b, err := block.New("copy", &mock.Processor{}, floats, floats)
	assert.Nil(t, err)

	_, err = b.Execute(10, block.InputItems{}, block.OutputItems{block.Of(make([]float64, 10))})
	assert.True(t, errors.Is(err, block.ErrPortCount))
}
