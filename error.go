package block

import "errors"

var (
	// ErrNilWorker is returned if a block is constructed without a worker.
	ErrNilWorker = errors.New("nil worker")
	// ErrSignature is returned if a block is constructed with a negative
	// port count or item size.
	ErrSignature = errors.New("invalid signature")
	// ErrPortCount is returned if the number of supplied views does not
	// match the block's signature.
	ErrPortCount = errors.New("port count mismatch")
	// ErrInsufficientItems is returned if the scheduler supplied fewer
	// input items than the forecast requires.
	ErrInsufficientItems = errors.New("insufficient input items")
	// ErrMessageGroup is returned if a subscription targets a message
	// group the block does not declare.
	ErrMessageGroup = errors.New("message group out of range")
	// ErrNoMessageInput is returned if a subscription target declares no
	// input message port.
	ErrNoMessageInput = errors.New("no input message port")
)
