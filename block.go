package block

import (
	"fmt"

	"github.com/rs/xid"

	"pipelined.dev/block/metric"
)

type (
	// Signature describes the sample ports on one side of a block.
	// ItemSize is the size of a single item in bytes and is used by the
	// scheduler for buffer sizing.
	Signature struct {
		Ports    int
		ItemSize int
	}

	// Worker is the core algorithm of a block. Work is a function of the
	// provided memory views plus the worker's own state and returns the
	// number of output items produced. Implementations should use next
	// error conventions:
	// 		- nil if work completed and may be invoked again;
	// 		- io.EOF if the stream is finished and the block is done.
	Worker interface {
		Work(in InputItems, out OutputItems) (int, error)
	}

	// Forecaster computes, per input port, how many items are required to
	// produce noutput items. Workers of rate-changing blocks must
	// implement it, otherwise automatic-mode bookkeeping derives the
	// requirement from the relative rate.
	Forecaster interface {
		Forecast(noutput int, required []int)
	}

	// Starter is implemented by workers that acquire resources when the
	// graph transitions to running.
	Starter interface {
		Start() error
	}

	// Stopper is implemented by workers that release resources when the
	// graph stops.
	Stopper interface {
		Stop() error
	}

	// Binder is implemented by workers that consult their block's tag
	// store or message bus from inside work. Bind is called once during
	// construction.
	Binder interface {
		Bind(*Block)
	}

	// Logger is a global interface for block loggers.
	Logger interface {
		Debug(...interface{})
		Info(...interface{})
	}

	// Block aggregates the flow-control facet, the tag stores and the
	// message bus around a single worker. All mutable state is private
	// and reachable only through the declared operations.
	Block struct {
		uid    string
		name   string
		in     Signature
		out    Signature
		msgSig MessageSignature

		worker     Worker
		forecaster Forecaster

		// flow control
		auto           bool
		history        int
		outputMultiple int
		relativeRate   float64
		read           []uint64
		written        []uint64
		available      []int
		space          []int

		// tags
		propagation TagPropagation
		inTags      []tagStore
		outTags     []tagStore

		// messages
		queue       *msgQueue
		subscribers [][]subscriber

		meter   metric.ResetFunc
		measure metric.MeasureFunc
		log     Logger
	}

	// Option provides a way to set functional parameters to block.
	Option func(b *Block) error
)

// newUID returns new unique id value.
func newUID() string {
	return xid.New().String()
}

// New creates a block around the provided worker and applies options.
// The name and signatures are immutable for the block's lifetime.
func New(name string, w Worker, in, out Signature, options ...Option) (*Block, error) {
	if w == nil {
		return nil, ErrNilWorker
	}
	if in.Ports < 0 || out.Ports < 0 || in.ItemSize < 0 || out.ItemSize < 0 {
		return nil, ErrSignature
	}
	b := &Block{
		uid:            newUID(),
		name:           name,
		in:             in,
		out:            out,
		worker:         w,
		auto:           true,
		history:        1,
		outputMultiple: 1,
		relativeRate:   1.0,
		read:           make([]uint64, in.Ports),
		written:        make([]uint64, out.Ports),
		available:      make([]int, in.Ports),
		space:          make([]int, out.Ports),
		inTags:         make([]tagStore, in.Ports),
		outTags:        make([]tagStore, out.Ports),
		queue:          newMsgQueue(),
		log:            defaultLogger,
	}
	for _, option := range options {
		if err := option(b); err != nil {
			return nil, err
		}
	}
	b.forecaster, _ = w.(Forecaster)
	if binder, ok := w.(Binder); ok {
		binder.Bind(b)
	}
	return b, nil
}

// WithLogger sets logger to block. If this option is not provided,
// silent logger is used.
func WithLogger(l Logger) Option {
	return func(b *Block) error {
		b.log = l
		return nil
	}
}

// WithMessages declares the message ports of the block.
func WithMessages(sig MessageSignature) Option {
	return func(b *Block) error {
		if sig.NumOutputs < 0 {
			return ErrSignature
		}
		b.msgSig = sig
		b.subscribers = make([][]subscriber, sig.NumOutputs)
		return nil
	}
}

// WithMeter adds metrics for this block.
func WithMeter(m metric.ResetFunc) Option {
	return func(b *Block) error {
		b.meter = m
		return nil
	}
}

// UniqueID returns the block's unique id.
func (b *Block) UniqueID() string {
	return b.uid
}

// Name returns the block's name.
func (b *Block) Name() string {
	return b.name
}

// Inputs returns the number of input sample ports.
func (b *Block) Inputs() int {
	return b.in.Ports
}

// Outputs returns the number of output sample ports.
func (b *Block) Outputs() int {
	return b.out.Ports
}

// InputSignature returns the input sample port signature.
func (b *Block) InputSignature() Signature {
	return b.in
}

// OutputSignature returns the output sample port signature.
func (b *Block) OutputSignature() Signature {
	return b.out
}

// Start is called by the scheduler when the graph transitions to
// running. It runs the worker's start hook if one is provided.
func (b *Block) Start() error {
	if b.meter != nil {
		b.measure = b.meter()
	}
	if starter, ok := b.worker.(Starter); ok {
		if err := starter.Start(); err != nil {
			return fmt.Errorf("error starting %v: %w", b, err)
		}
	}
	b.log.Debug(fmt.Sprintf("%v started", b))
	return nil
}

// Stop is called by the scheduler when the graph stops. It runs the
// worker's stop hook if one is provided. An in-flight work call is never
// interrupted, stopping is cooperative.
func (b *Block) Stop() error {
	if stopper, ok := b.worker.(Stopper); ok {
		if err := stopper.Stop(); err != nil {
			return fmt.Errorf("error stopping %v: %w", b, err)
		}
	}
	b.log.Debug(fmt.Sprintf("%v stopped", b))
	return nil
}

// Close discards all pending queued messages. It is called when the
// block is removed from the graph.
func (b *Block) Close() {
	b.queue.reset()
}

// Convert block to string. Name is included if it has value.
func (b *Block) String() string {
	if b.name == "" {
		return b.uid
	}
	return fmt.Sprintf("%v %v", b.name, b.uid)
}

type silentLogger struct{}

func (silentLogger) Debug(args ...interface{}) {}

func (silentLogger) Info(args ...interface{}) {}

var defaultLogger silentLogger
