package block

import (
	"fmt"
	"math"
)

// SetAuto sets the block's work mode. When automatic, forecast is run
// before every work call and consumption is inferred from production
// afterwards; the worker must not call Consume or Produce itself. When
// manual, the worker is solely responsible for both.
func (b *Block) SetAuto(auto bool) {
	b.auto = auto
}

// SetHistory requests history-1 extra look-back items to be retained at
// the head of each input buffer across successive calls. Default is 1,
// no look-back.
func (b *Block) SetHistory(history int) {
	if history < 1 {
		panic(fmt.Sprintf("history %d out of range", history))
	}
	b.history = history
}

// History returns the history depth.
func (b *Block) History() int {
	return b.history
}

// SetOutputMultiple constrains the scheduler to only request output
// counts that are multiples of multiple. Default is 1.
func (b *Block) SetOutputMultiple(multiple int) {
	if multiple < 1 {
		panic(fmt.Sprintf("output multiple %d out of range", multiple))
	}
	b.outputMultiple = multiple
}

// OutputMultiple returns the output multiple.
func (b *Block) OutputMultiple() int {
	return b.outputMultiple
}

// SetRelativeRate declares the ratio of output items to input items,
// above 1 for interpolation and below 1 for decimation. Default is 1.
func (b *Block) SetRelativeRate(rate float64) {
	if rate <= 0 {
		panic(fmt.Sprintf("relative rate %v out of range", rate))
	}
	b.relativeRate = rate
}

// RelativeRate returns the relative rate.
func (b *Block) RelativeRate() float64 {
	return b.relativeRate
}

// Consume advances the read counter of the input port. It is valid only
// in manual mode and only for counts up to the items made available in
// the current work call.
func (b *Block) Consume(input, n int) {
	if b.auto {
		panic("consume in automatic mode")
	}
	b.consume(input, n)
}

// ConsumeEach advances the read counter of every input port uniformly.
// It is valid only in manual mode.
func (b *Block) ConsumeEach(n int) {
	if b.auto {
		panic("consume in automatic mode")
	}
	for input := range b.read {
		b.consume(input, n)
	}
}

// Produce advances the write counter of the output port. It is valid
// only in manual mode.
func (b *Block) Produce(output, n int) {
	if b.auto {
		panic("produce in automatic mode")
	}
	if output < 0 || output >= len(b.written) {
		panic(fmt.Sprintf("output port %d out of range", output))
	}
	if n < 0 || n > b.space[output] {
		panic(fmt.Sprintf("produce %d items with %d available", n, b.space[output]))
	}
	b.space[output] -= n
	b.written[output] += uint64(n)
}

// ItemsRead returns the cumulative number of items consumed on the
// input port since block start. It is the basis for translating tag
// ranges into buffer-relative positions.
func (b *Block) ItemsRead(input int) uint64 {
	if input < 0 || input >= len(b.read) {
		panic(fmt.Sprintf("input port %d out of range", input))
	}
	return b.read[input]
}

// ItemsWritten returns the cumulative number of items produced on the
// output port since block start.
func (b *Block) ItemsWritten(output int) uint64 {
	if output < 0 || output >= len(b.written) {
		panic(fmt.Sprintf("output port %d out of range", output))
	}
	return b.written[output]
}

func (b *Block) consume(input, n int) {
	if input < 0 || input >= len(b.read) {
		panic(fmt.Sprintf("input port %d out of range", input))
	}
	if n < 0 || n > b.available[input] {
		panic(fmt.Sprintf("consume %d items with %d available", n, b.available[input]))
	}
	b.available[input] -= n
	b.read[input] += uint64(n)
}

// forecast computes required input items per port. The worker's
// Forecast override is authoritative; the default derives the
// requirement from the relative rate and the history depth. Required
// counts round up, so a rate-changing block never starves.
func (b *Block) forecast(noutput int, required []int) {
	if b.forecaster != nil {
		b.forecaster.Forecast(noutput, required)
		return
	}
	n := noutput
	if b.relativeRate != 1.0 {
		n = int(math.Ceil(float64(noutput) / b.relativeRate))
	}
	for i := range required {
		required[i] = n + b.history - 1
	}
}

// Execute does a single work iteration on behalf of the scheduler. The
// requested output count is rounded down to the output multiple. In
// automatic mode the forecast is run first and the supplied input views
// are validated against it; after work returns, consumption is inferred
// from production via the relative rate, rounding down, and all
// counters advance. In manual mode the worker does its own bookkeeping
// through Consume and Produce.
//
// The returned count is the number of output items produced. Work
// errors are passed through, io.EOF meaning the block is done.
func (b *Block) Execute(noutput int, in InputItems, out OutputItems) (int, error) {
	if len(in) != b.in.Ports || len(out) != b.out.Ports {
		return 0, fmt.Errorf("execute %v: %w", b, ErrPortCount)
	}
	if m := b.outputMultiple; m > 1 {
		noutput -= noutput % m
	}
	if noutput <= 0 {
		return 0, nil
	}
	out = clampViews(out, noutput)
	for i := range in {
		b.available[i] = in[i].Size()
	}
	for i := range out {
		b.space[i] = out[i].Size()
	}
	if b.auto && len(in) > 0 {
		required := make([]int, len(in))
		b.forecast(noutput, required)
		for i := range in {
			if in[i].Size() < required[i] {
				return 0, fmt.Errorf("execute %v: input %d has %d of %d items: %w",
					b, i, in[i].Size(), required[i], ErrInsufficientItems)
			}
		}
	}
	n, err := b.worker.Work(in, out)
	if err != nil {
		return n, err
	}
	if b.auto {
		if n > noutput {
			panic(fmt.Sprintf("work produced %d items with %d requested", n, noutput))
		}
		consumed := n
		if b.relativeRate != 1.0 {
			consumed = int(float64(n) / b.relativeRate)
		}
		for input := range b.read {
			b.consume(input, consumed)
		}
		for output := range b.written {
			b.written[output] += uint64(n)
		}
	}
	if b.measure != nil {
		b.measure(int64(n))
	}
	return n, nil
}

// clampViews trims output views to the rounded request so work never
// sees more room than requested. Copy on write, the caller's views are
// left intact.
func clampViews(out OutputItems, noutput int) OutputItems {
	needed := false
	for i := range out {
		if out[i].Size() > noutput {
			needed = true
			break
		}
	}
	if !needed {
		return out
	}
	clamped := make(OutputItems, len(out))
	for i := range out {
		clamped[i] = out[i]
		if clamped[i].Size() > noutput {
			clamped[i] = Wrap(clamped[i].Get(), noutput)
		}
	}
	return clamped
}
