package block

import (
	"fmt"
	"sort"
)

type (
	// Value is an opaque metadata value owned by the surrounding
	// application. Values used as tag keys must be comparable.
	Value = interface{}

	// Tag is a metadata record anchored to an exact position in a
	// block's infinite sample stream. Offset is the absolute stream
	// position, not a position in the current buffer window, so the tag
	// stays meaningful regardless of how much of the stream has been
	// consumed.
	Tag struct {
		Offset   uint64
		Key      Value
		Value    Value
		SourceID Value
	}

	// TagPropagation declares how the scheduler copies tags from input
	// ports to output ports between work calls when the block does not
	// manage tags itself. It is a hint consulted by the scheduler, not
	// enforced by the block.
	TagPropagation int

	// tagStore keeps tags of a single port ordered by offset.
	tagStore []Tag
)

const (
	// PropagateAll copies tags from every input port to every output port.
	PropagateAll TagPropagation = iota
	// PropagateOneToOne copies tags to the output port with matching index.
	PropagateOneToOne
	// PropagateNone disables tag propagation.
	PropagateNone
)

func (s tagStore) insert(t Tag) tagStore {
	// tags usually arrive in offset order
	if n := len(s); n == 0 || s[n-1].Offset <= t.Offset {
		return append(s, t)
	}
	i := sort.Search(len(s), func(i int) bool { return s[i].Offset > t.Offset })
	s = append(s, Tag{})
	copy(s[i+1:], s[i:])
	s[i] = t
	return s
}

func (s tagStore) inRange(dst []Tag, start, end uint64, key Value, keyed bool) []Tag {
	for _, t := range s {
		if t.Offset < start {
			continue
		}
		if t.Offset >= end {
			break
		}
		if keyed && t.Key != key {
			continue
		}
		dst = append(dst, t)
	}
	return dst
}

// AddTag inserts the tag on the output port at the tag's absolute
// offset. Offsets are expected to be at or past ItemsWritten for the
// port: tags describe upcoming or just-produced samples, not the past.
func (b *Block) AddTag(output int, t Tag) {
	if output < 0 || output >= len(b.outTags) {
		panic(fmt.Sprintf("output port %d out of range", output))
	}
	b.outTags[output] = b.outTags[output].insert(t)
}

// AttachTag deposits a routed tag on an input port. It is called by the
// scheduler when tags travel downstream, never by block implementations.
func (b *Block) AttachTag(input int, t Tag) {
	if input < 0 || input >= len(b.inTags) {
		panic(fmt.Sprintf("input port %d out of range", input))
	}
	b.inTags[input] = b.inTags[input].insert(t)
}

// TagsInRange appends to dst all tags on the input port with offset in
// [start, end), ordered by offset ascending.
func (b *Block) TagsInRange(dst []Tag, input int, start, end uint64) []Tag {
	if input < 0 || input >= len(b.inTags) {
		panic(fmt.Sprintf("input port %d out of range", input))
	}
	return b.inTags[input].inRange(dst, start, end, nil, false)
}

// TagsInRangeKey appends to dst the tags on the input port with offset
// in [start, end) and matching key, ordered by offset ascending.
func (b *Block) TagsInRangeKey(dst []Tag, input int, start, end uint64, key Value) []Tag {
	if input < 0 || input >= len(b.inTags) {
		panic(fmt.Sprintf("input port %d out of range", input))
	}
	return b.inTags[input].inRange(dst, start, end, key, true)
}

// ProducedTags appends to dst the tags added on the output port with
// offset in [start, end). The scheduler reads them to route tags to
// downstream input ports according to the propagation policy.
func (b *Block) ProducedTags(dst []Tag, output int, start, end uint64) []Tag {
	if output < 0 || output >= len(b.outTags) {
		panic(fmt.Sprintf("output port %d out of range", output))
	}
	return b.outTags[output].inRange(dst, start, end, nil, false)
}

// TagPropagationPolicy returns the current propagation policy.
func (b *Block) TagPropagationPolicy() TagPropagation {
	return b.propagation
}

// SetTagPropagationPolicy sets the propagation policy.
func (b *Block) SetTagPropagationPolicy(p TagPropagation) {
	b.propagation = p
}
