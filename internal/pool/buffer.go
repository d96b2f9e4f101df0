package pool

import "sync/atomic"

// MinRealloc is the smallest growth increment applied to an undersized AU
// buffer.
const MinRealloc = 64 * 1024

// BufferRecord owns the four byte arrays backing one access unit: the
// concatenated NALU payload, a metadata blob, an opaque user-data blob, and
// a per-macroblock status map. The assembler writes the payload only; it
// does not copy SEI data into UserData.
// AddRef increments an atomic counter; Unref decrements it and returns the
// record to its pool's free list at zero.
type BufferRecord struct {
	Payload  []byte
	Metadata []byte
	UserData []byte
	MbStatus []byte

	// PayloadLen and MbStatusLen are the in-use prefix lengths; Payload/
	// MbStatus may have spare capacity from a prior growth.
	PayloadLen  int
	MbStatusLen int

	refcount int32
	index    int
	pool     *AUBufferPool
}

// AddRef increments the record's reference count.
func (b *BufferRecord) AddRef() {
	atomic.AddInt32(&b.refcount, 1)
}

// Unref decrements the record's reference count and, when it reaches zero,
// returns the record to its pool's free list.
func (b *BufferRecord) Unref() {
	if atomic.AddInt32(&b.refcount, -1) == 0 {
		b.pool.release(b.index)
	}
}

// growPayload ensures Payload has at least `needed` bytes of capacity,
// applying a max(current+delta, needed) growth policy where delta is at
// least MinRealloc.
func (b *BufferRecord) growPayload(needed int) {
	b.Payload = growSlice(b.Payload, needed)
}

// growMbStatus is growPayload's counterpart for the per-macroblock status
// array.
func (b *BufferRecord) growMbStatus(needed int) {
	b.MbStatus = growSlice(b.MbStatus, needed)
}

// AppendPayload copies data onto the end of the in-use payload prefix,
// growing the backing array per the growth policy above if needed, and
// returns the offset the data was written at.
func (b *BufferRecord) AppendPayload(data []byte) int {
	offset := b.PayloadLen
	needed := offset + len(data)
	if needed > cap(b.Payload) {
		b.growPayload(needed)
	}
	if needed > len(b.Payload) {
		b.Payload = b.Payload[:needed]
	}
	copy(b.Payload[offset:needed], data)
	b.PayloadLen = needed
	return offset
}

func growSlice(buf []byte, needed int) []byte {
	if cap(buf) >= needed {
		return buf[:cap(buf)]
	}
	delta := MinRealloc
	grown := len(buf) + delta
	if grown < needed {
		grown = needed
	}
	newBuf := make([]byte, grown)
	copy(newBuf, buf)
	return newBuf
}

// AUBufferPool is a fixed-size vector of BufferRecords, each sized at init
// and reused via reference counting. The pool itself never grows; only the
// per-record byte arrays do.
type AUBufferPool struct {
	records  []BufferRecord
	freeHead int
	free     []int32 // next pointers, parallel to records
}

// NewAUBufferPool allocates `capacity` records, each with payload/mb-status
// arrays pre-sized to initialPayload/initialMbStatus bytes.
func NewAUBufferPool(capacity, initialPayload, initialMbStatus int) *AUBufferPool {
	p := &AUBufferPool{
		records: make([]BufferRecord, capacity),
		free:    make([]int32, capacity),
	}
	for i := range p.records {
		p.records[i].Payload = make([]byte, initialPayload)
		p.records[i].MbStatus = make([]byte, initialMbStatus)
		p.records[i].index = i
		p.records[i].pool = p
		p.free[i] = int32(i + 1)
	}
	if capacity > 0 {
		p.free[capacity-1] = -1
	}
	p.freeHead = 0
	if capacity == 0 {
		p.freeHead = -1
	}
	return p
}

// Get returns a fresh record with refcount 1, growing its payload/mb-status
// arrays to at least the requested sizes. Returns ErrPoolExhausted if no
// record is free.
func (p *AUBufferPool) Get(payloadSize, mbStatusSize int) (*BufferRecord, error) {
	if p.freeHead == -1 {
		return nil, ErrPoolExhausted
	}
	index := p.freeHead
	p.freeHead = int(p.free[index])

	r := &p.records[index]
	r.growPayload(payloadSize)
	r.growMbStatus(mbStatusSize)
	r.Payload = r.Payload[:cap(r.Payload)]
	r.MbStatus = r.MbStatus[:cap(r.MbStatus)]
	r.PayloadLen = 0
	r.MbStatusLen = 0
	r.Metadata = r.Metadata[:0]
	r.UserData = r.UserData[:0]
	r.refcount = 1
	return r, nil
}

func (p *AUBufferPool) release(index int) {
	p.free[index] = int32(p.freeHead)
	p.freeHead = index
}

// Len reports the pool's fixed record capacity.
func (p *AUBufferPool) Len() int { return len(p.records) }
