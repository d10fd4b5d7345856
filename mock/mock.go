// Package mock provides workers to test blocks.
package mock

import (
	"io"

	"pipelined.dev/block"
)

type (
	// Counter counts work calls and items.
	Counter struct {
		Works int
		Items int
	}

	// Source produces constant-valued float64 items on a single output
	// port until Limit items are sent, then io.EOF is returned.
	Source struct {
		Counter
		Limit        int
		Value        float64
		Started      bool
		Stopped      bool
		ErrorOnStart error
		ErrorOnStop  error
		sent         int
	}

	// Processor copies float64 items from single input to single output
	// one to one.
	Processor struct {
		Counter
	}

	// Generator fills every output view completely with Value, ignoring
	// inputs. It is used to drive rate and multiple accounting from
	// tests.
	Generator struct {
		Counter
		Value float64
	}

	// Decimator produces one item per Factor input items. It overrides
	// forecast to ask for Factor times more input.
	Decimator struct {
		Counter
		Factor int
	}

	// Flusher consumes and produces manually through the bound block.
	Flusher struct {
		Counter
		Block *block.Block
	}
)

// advance captures work counters.
func (c *Counter) advance(items int) {
	c.Works++
	c.Items += items
}

// Work implements block.Worker.
func (s *Source) Work(in block.InputItems, out block.OutputItems) (int, error) {
	if s.sent >= s.Limit {
		return 0, io.EOF
	}
	dst := block.As[float64](out[0])
	n := len(dst)
	if left := s.Limit - s.sent; left < n {
		n = left
	}
	for i := 0; i < n; i++ {
		dst[i] = s.Value
	}
	s.sent += n
	s.advance(n)
	return n, nil
}

// Start implements block.Starter.
func (s *Source) Start() error {
	s.Started = true
	return s.ErrorOnStart
}

// Stop implements block.Stopper.
func (s *Source) Stop() error {
	s.Stopped = true
	return s.ErrorOnStop
}

// Work implements block.Worker.
func (p *Processor) Work(in block.InputItems, out block.OutputItems) (int, error) {
	src := block.As[float64](in[0])
	dst := block.As[float64](out[0])
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	copy(dst[:n], src[:n])
	p.advance(n)
	return n, nil
}

// Work implements block.Worker.
func (g *Generator) Work(in block.InputItems, out block.OutputItems) (int, error) {
	n := 0
	for i := range out {
		dst := block.As[float64](out[i])
		for j := range dst {
			dst[j] = g.Value
		}
		n = len(dst)
	}
	g.advance(n)
	return n, nil
}

// Work implements block.Worker.
func (d *Decimator) Work(in block.InputItems, out block.OutputItems) (int, error) {
	src := block.As[float64](in[0])
	dst := block.As[float64](out[0])
	n := len(src) / d.Factor
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = src[i*d.Factor]
	}
	d.advance(n)
	return n, nil
}

// Forecast implements block.Forecaster.
func (d *Decimator) Forecast(noutput int, required []int) {
	for i := range required {
		required[i] = noutput * d.Factor
	}
}

// Bind implements block.Binder.
func (f *Flusher) Bind(b *block.Block) {
	f.Block = b
}

// Work implements block.Worker. It copies as much as fits and does all
// bookkeeping itself, the owning block must be in manual mode.
func (f *Flusher) Work(in block.InputItems, out block.OutputItems) (int, error) {
	src := block.As[float64](in[0])
	dst := block.As[float64](out[0])
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	copy(dst[:n], src[:n])
	f.Block.ConsumeEach(n)
	f.Block.Produce(0, n)
	f.advance(n)
	return n, nil
}
