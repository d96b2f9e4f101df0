package pool

import (
	"golang.org/x/xerrors"

	"github.com/lanikai/kolea/internal/logging"
)

var log = logging.DefaultLogger.WithTag("pool")

// ErrQueueNotFound is returned by RemoveQueue/Enqueue when the named queue
// was never registered (or was already removed).
var ErrQueueNotFound = xerrors.New("pool: queue not registered")

// NALUItem is one NAL unit within an AUItem's slice list, referencing bytes
// inside the AU's BufferRecord.Payload.
type NALUItem struct {
	Type        byte
	Offset      int
	Length      int
	Synthesized bool
}

// AUItem is one access unit: a buffer record plus the ordered NALU list and
// bookkeeping the assembler attaches (sync classification, completeness,
// timestamp). The sync/completeness fields are plain ints/bools rather
// than internal/au's enums so this package has no dependency on the
// assembler that uses it.
type AUItem struct {
	Buffer      *BufferRecord
	NALUs       []NALUItem
	Timestamp   uint64
	SyncType    int
	Incomplete  bool

	index int
}

// AUFIFO is a pool of AUItem slots plus a registry of named consumer
// queues. AddQueue/RemoveQueue manage the registry (ground:
// broadcaster.go's Subscribe/Unsubscribe subscriber slice); Enqueue pushes
// one item onto a single named queue, and DuplicateItem clones an item
// (and AddRefs its buffer) so a caller fanning one AU out to several
// queues can Enqueue an independent copy onto each.
type AUFIFO struct {
	items    []AUItem
	freeHead int
	free     []int32

	queues map[string]chan *AUItem
}

// NewAUFIFO allocates an AUFIFO with a fixed number of AU item slots.
func NewAUFIFO(capacity int) *AUFIFO {
	f := &AUFIFO{
		items:  make([]AUItem, capacity),
		free:   make([]int32, capacity),
		queues: make(map[string]chan *AUItem),
	}
	for i := range f.items {
		f.items[i].index = i
		f.free[i] = int32(i + 1)
	}
	if capacity > 0 {
		f.free[capacity-1] = -1
	}
	f.freeHead = 0
	if capacity == 0 {
		f.freeHead = -1
	}
	return f
}

// AddQueue registers a new named consumer queue with the given channel
// capacity. It is an error to register a name twice.
func (f *AUFIFO) AddQueue(name string, capacity int) (<-chan *AUItem, error) {
	if _, exists := f.queues[name]; exists {
		return nil, xerrors.Errorf("pool: queue %q already registered", name)
	}
	ch := make(chan *AUItem, capacity)
	f.queues[name] = ch
	return ch, nil
}

// RemoveQueue unregisters and closes a consumer queue.
func (f *AUFIFO) RemoveQueue(name string) error {
	ch, ok := f.queues[name]
	if !ok {
		return ErrQueueNotFound
	}
	close(ch)
	delete(f.queues, name)
	return nil
}

// acquire pops a free AUItem slot, or returns ErrPoolExhausted.
func (f *AUFIFO) acquire() (*AUItem, error) {
	if f.freeHead == -1 {
		return nil, ErrPoolExhausted
	}
	idx := f.freeHead
	item := &f.items[idx]
	f.freeHead = int(f.free[idx])
	index := item.index
	*item = AUItem{index: index}
	return item, nil
}

func (f *AUFIFO) release(item *AUItem) {
	idx := item.index
	f.free[idx] = int32(f.freeHead)
	f.freeHead = idx
}

// NewItem acquires a fresh AUItem backed by buf, with refcount already
// held by the caller (the BufferRecord's initial Get()).
func (f *AUFIFO) NewItem(buf *BufferRecord) (*AUItem, error) {
	item, err := f.acquire()
	if err != nil {
		return nil, err
	}
	item.Buffer = buf
	return item, nil
}

// Enqueue pushes item onto the named queue (this design's "an AU item is
// enqueued into a specific queue" model — fan-out to several queues is the
// caller's job, via DuplicateItem once per extra queue before calling
// Enqueue on each). Ordering within one queue is FIFO by enqueue; no
// ordering is promised across queues. Returns ErrQueueNotFound if name was
// never registered or has since been removed. A queue whose channel is
// full drops item (releasing its buffer reference) rather than blocking
// the caller, mirroring the resource-unavailable drop path used elsewhere
// on this FIFO.
func (f *AUFIFO) Enqueue(name string, item *AUItem) error {
	ch, ok := f.queues[name]
	if !ok {
		return ErrQueueNotFound
	}
	select {
	case ch <- item:
	default:
		log.Warn("pool: queue %q full, dropping AU", name)
		f.Release(item)
	}
	return nil
}

// DuplicateItem clones an AU item (and its NALU list) into a fresh pool
// slot, AddRef'ing the shared buffer record so both copies stay valid
// until each is independently released. This is the fan-out path used when
// the same AU must be delivered to more than one consumer queue without
// either consumer mutating the other's view.
func (f *AUFIFO) DuplicateItem(src *AUItem) (*AUItem, error) {
	dup, err := f.acquire()
	if err != nil {
		return nil, err
	}
	dup.Buffer = src.Buffer
	dup.Buffer.AddRef()
	dup.NALUs = append([]NALUItem(nil), src.NALUs...)
	dup.Timestamp = src.Timestamp
	dup.SyncType = src.SyncType
	dup.Incomplete = src.Incomplete
	return dup, nil
}

// Release returns an AU item's slot to the free list and unrefs its
// buffer. Callers must not use item after calling Release.
func (f *AUFIFO) Release(item *AUItem) {
	if item.Buffer != nil {
		item.Buffer.Unref()
	}
	f.release(item)
}

// Len reports the FIFO's fixed AU item slot capacity.
func (f *AUFIFO) Len() int { return len(f.items) }
