// Package kolea is the receive-side pipeline for a live H.264 video stream
// delivered over RTP from a drone to a ground station: it reassembles
// RTP-depacketized NAL units into decodable access units, conceals packet
// loss by synthesizing replacement slices, and hands complete access units
// to one or more consumer callbacks.
//
// The RTP layer itself (packetization, RTCP, multicast sockets, a resender)
// is an external collaborator — see internal/rtpsrc for a reference
// depacketizer used to drive this pipeline from a file or UDP socket
// without a real drone attached.
package kolea

import (
	"sync"

	"github.com/lanikai/kolea/internal/au"
	"github.com/lanikai/kolea/internal/logging"
	"github.com/lanikai/kolea/internal/pool"
)

var log = logging.DefaultLogger.WithTag("kolea")

// Pipeline is the public entry point: feed it NAL units with SubmitNALU (the
// network thread's job) and register one or more Consumers with AddConsumer
// before Start; each runs its own output goroutine that drains AUs in FIFO
// order and invokes the consumer's callbacks with the pipeline's internal
// state lock dropped — the assembler's own mutex is never held across
// anything in outputLoop/deliver.
type Pipeline struct {
	cfg Config

	naluPool *pool.NALUPool
	bufPool  *pool.AUBufferPool
	fifo     *pool.AUFIFO
	asm      *au.Assembler

	// SPSPPSReady fires once per sync, shared across every consumer since
	// the parameter sets are not consumer-specific.
	SPSPPSReady SPSPPSReadyFunc

	mu        sync.Mutex
	started   bool
	stopping  bool
	names     []string
	chans     map[string]<-chan *pool.AUItem // held only so outputLoop can range over it
	consumers map[string]Consumer

	wg sync.WaitGroup
}

// New allocates a Pipeline's NALU pool, AU buffer pool, and AU FIFO per
// cfg's fixed capacities, and constructs the assembler that will own them.
// Register consumers with AddConsumer, then call Start.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	naluPool := pool.NewNALUPool(cfg.NALUPoolCapacity)
	bufPool := pool.NewAUBufferPool(cfg.AUPoolCapacity, cfg.InitialPayloadSize, cfg.InitialMbStatusSize)
	fifo := pool.NewAUFIFO(cfg.AUPoolCapacity)
	asm := au.New(cfg.Config, naluPool, bufPool, fifo)

	return &Pipeline{
		cfg:       cfg,
		naluPool:  naluPool,
		bufPool:   bufPool,
		fifo:      fifo,
		asm:       asm,
		chans:     make(map[string]<-chan *pool.AUItem),
		consumers: make(map[string]Consumer),
	}, nil
}

// AddConsumer registers a named output queue on the AU FIFO's own
// consumer-queue registry (ground: internal/pool.AUFIFO.AddQueue), to be
// drained by its own goroutine once Start is called. Must be called before
// Start; registering the same name twice is an error.
func (p *Pipeline) AddConsumer(name string, c Consumer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrInvalidState
	}
	if _, exists := p.consumers[name]; exists {
		return badParameters("consumer %q already registered", name)
	}

	depth := p.cfg.OutputQueueDepth
	if depth <= 0 {
		depth = DefaultOutputQueueDepth
	}
	ch, err := p.fifo.AddQueue(name, depth)
	if err != nil {
		return newError(ErrorKindAlloc, err)
	}
	p.names = append(p.names, name)
	p.consumers[name] = c
	p.chans[name] = ch
	return nil
}

// Start wires the assembler's callbacks to this pipeline's fan-out logic
// and launches one output goroutine per registered consumer. Calling Start
// twice without an intervening Stop is ErrInvalidState.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrInvalidState
	}
	p.started = true
	names := append([]string(nil), p.names...)
	p.mu.Unlock()

	p.asm.SPSPPSReady = func(sps, pps []byte) {
		if p.SPSPPSReady != nil {
			p.SPSPPSReady(sps, pps)
		}
	}
	p.asm.AUReady = p.dispatch

	for _, name := range names {
		p.wg.Add(1)
		go p.outputLoop(name)
	}
	return nil
}

// Stop unregisters every consumer queue from the AU FIFO (which closes its
// channel), waits for in-flight consumer callbacks and the output
// goroutines to finish draining, then returns. A second Stop call while the
// first is still in flight returns ErrBusy, the same BUSY condition a
// concurrent free-before-stop-completes would raise.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrInvalidState
	}
	if p.stopping {
		p.mu.Unlock()
		return ErrBusy
	}
	p.stopping = true
	names := append([]string(nil), p.names...)
	p.mu.Unlock()

	for _, name := range names {
		_ = p.fifo.RemoveQueue(name)
	}
	p.wg.Wait()

	p.mu.Lock()
	p.started = false
	p.stopping = false
	p.mu.Unlock()
	return nil
}

// SubmitNALU feeds one complete, already-reassembled Annex-B NALU (start
// code included) into the assembler. This is the network thread's entry
// point, and may be called concurrently with consumer output draining but
// not with Start/Stop.
func (p *Pipeline) SubmitNALU(cause Cause, nalu []byte, ts Timestamps, isFirst, isLast bool, missingBefore int) error {
	p.mu.Lock()
	ready := p.started && !p.stopping
	p.mu.Unlock()
	if !ready {
		return ErrInvalidState
	}

	if err := p.asm.HandleNALU(cause, nalu, ts, isFirst, isLast, missingBefore); err != nil {
		return newError(ErrorKindAlloc, err)
	}
	return nil
}

// DroppedNALUs and DroppedAUs report the assembler's running loss counters:
// NALUs or AUs dropped for pool exhaustion or a closed-but-unsynced/
// incomplete state.
func (p *Pipeline) DroppedNALUs() uint64 { return p.asm.DroppedNALUs }
func (p *Pipeline) DroppedAUs() uint64   { return p.asm.DroppedAUs }

// State reports the assembler's current sync state (UNSYNCED, SYNC_PENDING,
// or SYNCED).
func (p *Pipeline) State() State { return p.asm.State() }

// dispatch is the assembler's AUReady callback: it fans item out to every
// registered consumer's named queue on the AU FIFO, duplicating (and
// AddRef'ing the shared buffer) for every consumer but the last so N
// consumers each end up with their own independently-releasable AUItem.
// The FIFO's own Enqueue handles the per-queue full-channel drop; dispatch
// itself holds no queue state of its own. With no consumers registered,
// the AU is released unread.
func (p *Pipeline) dispatch(item *pool.AUItem) au.ConsumerResult {
	p.mu.Lock()
	names := append([]string(nil), p.names...)
	p.mu.Unlock()

	if len(names) == 0 {
		p.fifo.Release(item)
		return au.ConsumerOK
	}

	for i, name := range names {
		deliver := item
		if i < len(names)-1 {
			dup, err := p.fifo.DuplicateItem(item)
			if err != nil {
				log.Warn("fan-out to consumer %q dropped: %v", name, err)
				continue
			}
			deliver = dup
		}

		if err := p.fifo.Enqueue(name, deliver); err != nil {
			log.Warn("consumer %q queue missing at dispatch: %v", name, err)
			p.fifo.Release(deliver)
		}
	}
	return au.ConsumerOK
}

// outputLoop is the app-output thread for one consumer: it blocks on the
// consumer's channel and invokes its callbacks with no
// pipeline lock held, so a slow consumer callback never stalls the network
// thread feeding SubmitNALU.
func (p *Pipeline) outputLoop(name string) {
	defer p.wg.Done()

	p.mu.Lock()
	ch := p.chans[name]
	c := p.consumers[name]
	p.mu.Unlock()

	for item := range ch {
		p.deliver(name, c, item)
	}
}

// deliver copies one access unit into the consumer-supplied buffer and
// invokes AUReady, always releasing the item's pool slot and buffer
// reference afterward regardless of outcome.
func (p *Pipeline) deliver(name string, c Consumer, item *pool.AUItem) {
	defer p.fifo.Release(item)

	if c.GetAUBuffer == nil || c.AUReady == nil {
		return
	}

	buf, userPtr, err := c.GetAUBuffer()
	if err != nil {
		log.Debug("consumer %q: no AU buffer available, dropping AU", name)
		return
	}

	n := item.Buffer.PayloadLen
	if len(buf) < n {
		n = len(buf)
	}
	copy(buf[:n], item.Buffer.Payload[:n])

	out := &OutputAU{
		Buf:        buf[:n],
		Timestamp:  item.Timestamp,
		SyncType:   au.SyncType(item.SyncType),
		Incomplete: item.Incomplete,
		Metadata:   item.Buffer.Metadata,
		UserData:   item.Buffer.UserData,
		MbStatus:   item.Buffer.MbStatus[:item.Buffer.MbStatusLen],
		UserPtr:    userPtr,
	}

	if c.AUReady(out) == au.ConsumerResyncRequired {
		p.asm.Resync()
	}
}
