package block

import (
	"fmt"
	"sync"
)

type (
	// MessageSignature declares the message ports a block exposes in
	// addition to its sample IO ports. It is fixed at construction. The
	// input message port is indexed right after the last input sample
	// port; output message ports are indexed right after the last output
	// sample port. Subscriber wiring and port enumeration by the graph
	// builder depend on this convention.
	MessageSignature struct {
		HasInput   bool
		NumOutputs int
	}

	// subscriber is a single registration in a subscriber group.
	subscriber struct {
		target *Block
		port   int
	}

	// msgQueue is the inbound message queue. Push is safe from any
	// execution context, pop blocks until a message arrives.
	msgQueue struct {
		mu   sync.Mutex
		cond *sync.Cond
		msgs []Tag
	}
)

func newMsgQueue() *msgQueue {
	q := &msgQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *msgQueue) push(m Tag) {
	q.mu.Lock()
	q.msgs = append(q.msgs, m)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *msgQueue) pop() Tag {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.msgs) == 0 {
		q.cond.Wait()
	}
	m := q.msgs[0]
	copy(q.msgs, q.msgs[1:])
	q.msgs = q.msgs[:len(q.msgs)-1]
	return m
}

func (q *msgQueue) pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs) > 0
}

func (q *msgQueue) reset() {
	q.mu.Lock()
	q.msgs = nil
	q.mu.Unlock()
}

// NewMessage builds a message envelope. Messages reuse the tag record
// with Offset unused and forced to zero.
func NewMessage(key, value, source Value) Tag {
	return Tag{
		Key:      key,
		Value:    value,
		SourceID: source,
	}
}

// MessageSignature returns the block's message port declaration.
func (b *Block) MessageSignature() MessageSignature {
	return b.msgSig
}

// MessageInputPort returns the index of the input message port and
// whether the block declares one.
func (b *Block) MessageInputPort() (int, bool) {
	if !b.msgSig.HasInput {
		return 0, false
	}
	return b.in.Ports, true
}

// MessageOutputPort returns the index of the output message port for
// the group.
func (b *Block) MessageOutputPort(group int) int {
	if group < 0 || group >= b.msgSig.NumOutputs {
		panic(fmt.Sprintf("message group %d out of range", group))
	}
	return b.out.Ports + group
}

// CheckMessages reports whether a message is available to pop. It never
// blocks.
func (b *Block) CheckMessages() bool {
	return b.queue.pending()
}

// PopMessage removes and returns the oldest queued message. It blocks
// the calling context until a message arrives: callers must treat it as
// a suspension point, not a busy-poll. There is no timeout variant, a
// caller needing bounded waits must build that externally.
func (b *Block) PopMessage() Tag {
	return b.queue.pop()
}

// PostMessage delivers the message to every subscriber registered under
// the group, appending to each subscriber's inbound queue. It is safe
// to call from a different block's execution context. Messages posted
// by one producer to one group arrive at each subscriber in post order.
// Posting to a group with zero subscribers is a silent no-op.
func (b *Block) PostMessage(group int, m Tag) {
	if group < 0 || group >= b.msgSig.NumOutputs {
		panic(fmt.Sprintf("message group %d out of range", group))
	}
	for _, s := range b.subscribers[group] {
		s.target.queue.push(m)
	}
}

// Post builds a message from key, value and source and delivers it to
// the group.
func (b *Block) Post(group int, key, value, source Value) {
	b.PostMessage(group, NewMessage(key, value, source))
}

// Subscribe registers the target block's input message port under the
// group. It is called by the graph builder during wiring. The target is
// shared, many subscription edges may reference one block.
func (b *Block) Subscribe(group int, target *Block, port int) error {
	if group < 0 || group >= b.msgSig.NumOutputs {
		return fmt.Errorf("subscribe group %d of %v: %w", group, b, ErrMessageGroup)
	}
	in, ok := target.MessageInputPort()
	if !ok {
		return fmt.Errorf("subscribe %v: %w", target, ErrNoMessageInput)
	}
	if port != in {
		return fmt.Errorf("subscribe %v port %d: %w", target, port, ErrNoMessageInput)
	}
	b.subscribers[group] = append(b.subscribers[group], subscriber{target: target, port: port})
	return nil
}
