// Package pool implements the fixed-capacity slot pools and per-consumer
// FIFOs the access-unit assembler uses to move NAL units and access units
// downstream without an allocation per packet. Slot pools never grow —
// exhaustion is a hard, caller-visible error — but the byte buffers backing
// each slot grow to fit an oversized access unit.
package pool

import "golang.org/x/xerrors"

// ErrPoolExhausted is returned when a fixed-size slot pool has no free
// slots left. Pools never grow to recover from this; the caller must wait
// for in-flight slots to be released.
var ErrPoolExhausted = xerrors.New("pool: no free slots")

// NALUSlot is one entry in a NALUPool: a descriptor plus the byte range it
// refers to within some AU buffer record's payload array.
type NALUSlot struct {
	// Type is the NAL unit type (reused across Acquire/Release cycles).
	Type byte
	// Offset and Length locate the NALU's bytes within its AU's payload
	// buffer.
	Offset, Length int
	// Synthesized marks a slot filled by loss concealment (skipped-P or
	// gray-I) rather than copied from the wire.
	Synthesized bool

	next int // index of the next free slot, or -1
}

// NALUPool is a fixed-size vector of NALU descriptor slots with an
// intrusive free list threaded through NALUSlot.next.
type NALUPool struct {
	slots    []NALUSlot
	freeHead int // index of first free slot, or -1 if empty
}

// NewNALUPool allocates a pool of the given fixed capacity, all slots
// initially free.
func NewNALUPool(capacity int) *NALUPool {
	p := &NALUPool{slots: make([]NALUSlot, capacity)}
	for i := range p.slots {
		p.slots[i].next = i + 1
	}
	if capacity > 0 {
		p.slots[capacity-1].next = -1
	}
	p.freeHead = 0
	if capacity == 0 {
		p.freeHead = -1
	}
	return p
}

// Acquire pops a zeroed slot off the free list. Returns ErrPoolExhausted
// when none remain.
func (p *NALUPool) Acquire() (index int, slot *NALUSlot, err error) {
	if p.freeHead == -1 {
		return -1, nil, ErrPoolExhausted
	}
	index = p.freeHead
	slot = &p.slots[index]
	p.freeHead = slot.next
	*slot = NALUSlot{}
	return index, slot, nil
}

// Release returns a slot to the free list. The slot's fields are left
// intact until the next Acquire zeroes them, matching pop_free()'s
// "slot with fields zeroed" contract living on the acquire side.
func (p *NALUPool) Release(index int) {
	p.slots[index].next = p.freeHead
	p.freeHead = index
}

// Get returns the slot at index without removing it from the pool.
func (p *NALUPool) Get(index int) *NALUSlot {
	return &p.slots[index]
}

// Len reports the pool's fixed slot capacity.
func (p *NALUPool) Len() int { return len(p.slots) }
