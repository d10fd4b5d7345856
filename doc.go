// Package block provides the node abstraction for a streaming dataflow
// engine. A block is a single executable unit inside a signal-processing
// graph: it consumes items from input ports, produces items to output
// ports, attaches offset-anchored metadata tags to its streams and
// exchanges asynchronous messages with other blocks.
//
// The graph scheduler is an external collaborator. It wires ports, sizes
// buffers, supplies memory views for every work iteration and drives the
// block lifecycle: Start, repeated Execute, Stop. Block implementations
// only provide the Worker contract and, optionally, Forecaster, Starter,
// Stopper and Binder capabilities.
package block
