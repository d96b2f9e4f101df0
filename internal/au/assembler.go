package au

import (
	"sync"

	"github.com/lanikai/kolea/internal/h264"
	"github.com/lanikai/kolea/internal/logging"
	"github.com/lanikai/kolea/internal/pool"
	"github.com/lanikai/kolea/internal/sei"
)

var log = logging.DefaultLogger.WithTag("au")

// GrayISeedShift is the backdating applied to a seeded gray-I frame's
// timestamp relative to the real frame that triggered it. The original
// filter offers both a microsecond- and millisecond-granularity call site;
// this implementation always takes the microsecond path (see SPEC_FULL.md
// §4.5's recorded decision).
const GrayISeedShift = 1 // microsecond, subtracted from Timestamps.Ts

// SPSPPSReadyFunc fires once per sync, when both SPS and PPS have been
// observed.
type SPSPPSReadyFunc func(sps, pps []byte)

// AUReadyFunc is invoked once per completed access unit. The assembler
// hands over its reference to item (refcount already held); the consumer
// must call item's FIFO Release when done with it. Returning
// ConsumerResyncRequired drops the assembler back to SYNC_PENDING and
// re-arms gray-I seeding if enabled.
type AUReadyFunc func(item *pool.AUItem) ConsumerResult

// Assembler implements the per-stream access-unit state machine: one
// in-progress AU at a time, fed one NALU at a time,
// closed on timestamp/end-of-AU boundaries, with loss concealment applied
// before slices are appended.
type Assembler struct {
	mu sync.Mutex

	cfg      Config
	parser   *h264.Parser
	bufPool  *pool.AUBufferPool
	fifo     *pool.AUFIFO
	naluPool *pool.NALUPool

	state State

	current *inProgressAU

	havePrevSlice bool
	prevSlice     h264.Slice

	streaming     sei.StreamingV1
	haveStreaming bool

	// sliceScanIndex/sliceScanMb track how far into the current AU's
	// streaming.SliceMbCount map concealment has walked: sliceScanMb is the
	// cumulative macroblock count of every slice at index < sliceScanIndex.
	// Reset per AU (see openAU), advanced only in sliceMbCount.
	sliceScanIndex int
	sliceScanMb    uint32

	spsBytes, ppsBytes []byte
	spsPpsReady        bool

	grayIArmed bool

	DroppedNALUs uint64
	DroppedAUs   uint64

	SPSPPSReady SPSPPSReadyFunc
	AUReady     AUReadyFunc
}

type inProgressAU struct {
	buf       *pool.BufferRecord
	nalus     []pool.NALUItem
	naluSlots []int // NALUPool slot indices backing nalus, 1:1, for release on close

	ts Timestamps

	syncType   SyncType
	incomplete bool
	sawNonI    bool

	haveLastSlice bool
	lastSlice     h264.Slice
}

// New creates an Assembler backed by the given NALU pool, AU buffer pool,
// and AU FIFO. naluPool bounds how many NALUs a single in-progress AU may
// hold (this package's pool-exhaustion scenario: over-enqueue is a hard
// QUEUE_FULL, dropping the offending NALU while the first four already
// accepted are still emitted correctly). The FIFO's item slots back every
// AU this assembler closes.
func New(cfg Config, naluPool *pool.NALUPool, bufPool *pool.AUBufferPool, fifo *pool.AUFIFO) *Assembler {
	return &Assembler{
		cfg:      cfg,
		parser:   h264.NewParser(),
		bufPool:  bufPool,
		fifo:     fifo,
		naluPool: naluPool,
		state:    StateUnsynced,
	}
}

func (a *Assembler) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Resync drops the assembler back to SYNC_PENDING and re-arms gray-I
// seeding if enabled, the same transition emitAU applies internally when
// AUReady returns ConsumerResyncRequired. Exposed so a caller that defers
// the app-level AUReady callback to a goroutine outside the assembler's
// lock (this package's "callback invoked with the lock dropped" design) can
// still signal a resync once that deferred callback actually runs.
func (a *Assembler) Resync() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateSyncPending
	if a.cfg.GenerateFirstGrayIFrame {
		a.grayIArmed = true
	}
}

// trimStartCode strips a leading Annex-B start code (3- or 4-byte) from a
// complete NALU, since internal/h264.Parser operates on header+RBSP only.
func trimStartCode(nalu []byte) []byte {
	if len(nalu) >= 4 && nalu[0] == 0 && nalu[1] == 0 && nalu[2] == 0 && nalu[3] == 1 {
		return nalu[4:]
	}
	if len(nalu) >= 3 && nalu[0] == 0 && nalu[1] == 0 && nalu[2] == 1 {
		return nalu[3:]
	}
	return nalu
}

// HandleNALU feeds one complete, already-reassembled Annex-B NALU (start
// code included) into the assembler. ts/isFirst/isLast/missingBefore mirror
// this package's inbound callback parameters exactly.
func (a *Assembler) HandleNALU(cause Cause, nalu []byte, ts Timestamps, isFirst, isLast bool, missingBefore int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cause == CauseCancel || len(nalu) == 0 {
		return nil
	}

	rbsp := trimStartCode(nalu)
	if len(rbsp) == 0 {
		a.DroppedNALUs++
		return nil
	}
	header := h264.ParseNALUHeader(rbsp[0])

	setupErr := a.parser.SetupNALU(rbsp)
	var parseErr error
	if setupErr == nil {
		parseErr = a.parser.Parse()
	}
	// ErrUnsupported is the parser's designed stop point past
	// dec_ref_pic_marking(); it still yields a usable partial slice header,
	// so it is not treated as a parse failure here.
	unparseable := setupErr != nil || (parseErr != nil && parseErr != h264.ErrUnsupported)

	if header.Type == h264.NALUTypeSPS {
		a.handleSPS(nalu, unparseable)
	} else if header.Type == h264.NALUTypePPS {
		a.handlePPS(nalu, unparseable)
	}
	a.maybeFireSPSPPSReady()

	// Step 2: close the previous AU on a boundary. is_first_nalu_in_au
	// dominates even when timestamps happen to match (this package's tie-break
	// rule).
	if a.current != nil {
		boundary := isFirst || (len(a.current.nalus) > 0 && ts.Ts != a.current.ts.Ts)
		if boundary {
			a.closeCurrentAU()
		}
	}
	if a.current == nil {
		if err := a.openAU(ts); err != nil {
			a.DroppedNALUs++
			log.Warn("dropping NALU, no free AU buffer: %v", err)
			return err
		}
	}

	if header.Type.IsVCL() {
		slice, haveSlice := a.parser.SliceInfo()
		if haveSlice && a.haveStreaming {
			slice.MbCount = a.sliceMbCount(slice)
		}

		if missingBefore > 0 {
			a.concealGap(missingBefore, slice, haveSlice)
		}

		if a.grayIArmed {
			a.seedGrayIFrame(ts)
		}

		if haveSlice {
			if slice.IsIDR() {
				a.current.syncType = SyncIDR
			}
			if slice.Type != h264.SliceTypeI && slice.Type != h264.SliceTypeSI {
				a.current.sawNonI = true
			}
			a.current.haveLastSlice = true
			a.current.lastSlice = slice
			a.havePrevSlice = true
			a.prevSlice = slice

			if a.state == StateSyncPending {
				a.state = StateSynced
			}
		}
	}

	if header.Type == h264.NALUTypeSEI && setupErr == nil && parseErr == nil {
		a.captureStreamingInfo()
	}

	if unparseable {
		a.DroppedNALUs++
		a.current.incomplete = true
		log.Debug("discarding unparseable NALU type %d, AU marked incomplete", header.Type)
	} else {
		filtered := (header.Type.IsParameterSet() && a.cfg.FilterOutSPSPPS) ||
			(header.Type == h264.NALUTypeSEI && a.cfg.FilterOutSEI)
		if !filtered {
			if err := a.appendNALU(nalu, header.Type, false); err != nil {
				// Pool exhaustion (this design scenario 6): this NALU is
				// dropped, the AU it would have joined is marked incomplete,
				// and the pipeline continues with whatever was already
				// accepted.
				a.DroppedNALUs++
				a.current.incomplete = true
				log.Warn("NALU pool exhausted, dropping NALU type %d", header.Type)
			}
		}
	}

	if isLast {
		a.closeCurrentAU()
	}

	return nil
}

func (a *Assembler) handleSPS(nalu []byte, unparseable bool) {
	if unparseable {
		return
	}
	if a.spsBytes == nil {
		a.spsBytes = append([]byte(nil), nalu...)
	}
	a.advanceSyncOnParamSets()
}

func (a *Assembler) handlePPS(nalu []byte, unparseable bool) {
	if unparseable {
		return
	}
	if a.ppsBytes == nil {
		a.ppsBytes = append([]byte(nil), nalu...)
	}
	a.advanceSyncOnParamSets()
}

func (a *Assembler) advanceSyncOnParamSets() {
	ctx := a.parser.SPSPPSContext()
	if a.state == StateUnsynced && ctx.Ready() {
		a.state = StateSyncPending
		if a.cfg.GenerateFirstGrayIFrame {
			a.grayIArmed = true
		}
	}
}

func (a *Assembler) maybeFireSPSPPSReady() {
	if !a.spsPpsReady && a.spsBytes != nil && a.ppsBytes != nil {
		a.spsPpsReady = true
		if a.SPSPPSReady != nil {
			a.SPSPPSReady(a.spsBytes, a.ppsBytes)
		}
	}
}

// sliceMbCount looks up how many macroblocks the given slice covers from
// the current frame's streaming-info slice map, by walking the cumulative
// slice-size sums forward until they reach the slice's true
// FirstMbInSlice (ground: arstream2_h264_filter.c's
// currentAuPreviousSliceIndex, which advances the same way). This finds
// the right map entry regardless of how many real slices a single gap
// dropped, unlike counting how many NALUs (real or synthesized) have been
// appended so far: a synthesized filler for the gap that revealed this
// slice is appended after this lookup runs (in concealGap), so it must
// not be allowed to shift the count.
func (a *Assembler) sliceMbCount(slice h264.Slice) int {
	for a.sliceScanIndex < len(a.streaming.SliceMbCount) && a.sliceScanMb < slice.FirstMbInSlice {
		a.sliceScanMb += uint32(a.streaming.SliceMbCount[a.sliceScanIndex])
		a.sliceScanIndex++
	}
	if a.sliceScanIndex >= len(a.streaming.SliceMbCount) {
		return 0
	}
	return int(a.streaming.SliceMbCount[a.sliceScanIndex])
}

func (a *Assembler) captureStreamingInfo() {
	count := a.parser.UserDataSEICount()
	for i := 0; i < count; i++ {
		payload := a.parser.UserDataSEI(i)
		schema, _ := sei.IdentifySchema(payload)
		switch schema {
		case sei.SchemaStreamingV1:
			decoded, err := sei.DecodeStreamingV1(payload)
			if err == nil {
				a.streaming = decoded.Streaming
				a.haveStreaming = true
			}
		case sei.SchemaStreamingFrameInfoV1:
			decoded, err := sei.DecodeStreamingFrameInfoV1(payload)
			if err == nil {
				a.streaming = decoded.Streaming
				a.haveStreaming = true
			}
		}
	}
	a.parser.DrainUserDataSEI()
}

func (a *Assembler) appendNALU(nalu []byte, t h264.NALUType, synthesized bool) error {
	return a.appendNALUTo(a.current, nalu, t, synthesized)
}

// rewriteLengthPrefix overwrites a stored NALU's leading 4-byte Annex-B
// start code with its big-endian payload length (the length-prefix format
// several hardware decoders expect in place of start codes), per
// ReplaceStartCodesWithNALUSize.
func rewriteLengthPrefix(buf *pool.BufferRecord, offset, length int) {
	if length < 4 {
		return
	}
	naluLen := uint32(length - 4)
	p := buf.Payload[offset : offset+4]
	p[0] = byte(naluLen >> 24)
	p[1] = byte(naluLen >> 16)
	p[2] = byte(naluLen >> 8)
	p[3] = byte(naluLen)
}

func (a *Assembler) openAU(ts Timestamps) error {
	buf, err := a.bufPool.Get(pool.MinRealloc, 0)
	if err != nil {
		return err
	}
	a.current = &inProgressAU{buf: buf, ts: ts}
	a.sliceScanIndex = 0
	a.sliceScanMb = 0
	return nil
}

// closeCurrentAU finishes the in-progress AU: applies missing-tail
// concealment, finalizes sync_type, and hands the item to AUReady.
func (a *Assembler) closeCurrentAU() {
	cur := a.current
	a.current = nil
	if cur == nil {
		return
	}
	defer a.releaseNALUSlots(cur)

	if a.cfg.GenerateSkippedPSlices && a.haveStreaming && cur.haveLastSlice {
		total := 0
		for _, mb := range a.streaming.SliceMbCount {
			total += int(mb)
		}
		covered := cur.lastSlice.FirstMbInSlice + uint32(cur.lastSlice.MbCount)
		if total > 0 && int(covered) < total {
			a.appendSkippedTail(cur, covered, uint32(total)-covered)
		}
	}

	if cur.syncType == SyncNone {
		if len(cur.nalus) > 0 && !cur.sawNonI && cur.haveLastSlice {
			cur.syncType = SyncIFrame
		} else if a.haveStreaming && a.streaming.IndexInGop == 0 {
			cur.syncType = SyncPIRStart
		}
	}

	a.haveStreaming = false

	if cur.incomplete && !a.cfg.OutputIncompleteAU {
		cur.buf.Unref()
		a.DroppedAUs++
		return
	}
	if a.cfg.WaitForSync && a.state == StateUnsynced {
		cur.buf.Unref()
		a.DroppedAUs++
		return
	}

	a.emitAU(cur.buf, cur.nalus, cur.ts.Ts, cur.syncType, cur.incomplete)
}

// emitAU wraps a finished buffer and NALU list into a pool.AUItem and hands
// it to the AUReady callback, whatever its origin (a real closed AU or a
// synthesized gray-I seed frame).
func (a *Assembler) emitAU(buf *pool.BufferRecord, nalus []pool.NALUItem, ts uint64, syncType SyncType, incomplete bool) {
	item, err := a.fifo.NewItem(buf)
	if err != nil {
		buf.Unref()
		a.DroppedAUs++
		return
	}
	item.NALUs = nalus
	item.Timestamp = ts
	item.SyncType = int(syncType)
	item.Incomplete = incomplete

	if a.AUReady == nil {
		a.fifo.Release(item)
		return
	}
	switch a.AUReady(item) {
	case ConsumerResyncRequired:
		a.state = StateSyncPending
		if a.cfg.GenerateFirstGrayIFrame {
			a.grayIArmed = true
		}
	}
}

// concealGap handles a reported run of missing packets ahead of the slice
// currently being processed, per this package's three-way branch:
//   - a run at the very start of a new AU belongs to the *previous* AU (no
//     action here, since the heuristic keys off is_first_nalu_in_au rather
//     than anything this function can observe after the fact);
//   - a run that only ever covered SPS/PPS/SEI (inferred from
//     first_mb_in_slice==0 with a slice already seen earlier in the stream)
//     needs no concealment;
//   - otherwise one or more slices were lost and, if enabled and the
//     concealment oracle is available, a synthesized skipped-P slice is
//     spliced in ahead of the slice that revealed the gap.
func (a *Assembler) concealGap(missingBefore int, slice h264.Slice, haveSlice bool) {
	if a.current == nil || len(a.current.nalus) == 0 {
		return // gap attributed to the previous (already-closed) AU
	}
	if !haveSlice {
		return
	}
	if slice.FirstMbInSlice == 0 && a.havePrevSlice {
		return // gap was SPS/PPS/SEI-only: a new frame's first slice starts at mb 0
	}

	a.current.incomplete = true
	if !a.cfg.GenerateSkippedPSlices || !a.haveStreaming || !a.havePrevSlice {
		return
	}

	missingMbs := int(slice.FirstMbInSlice) - (int(a.prevSlice.FirstMbInSlice) + a.prevSlice.MbCount)
	if missingMbs <= 0 {
		return
	}

	ctx := a.parser.SPSPPSContext()
	dst := make([]byte, 256+missingMbs/4)
	n, err := h264.EmitSkippedPSlice(dst, ctx, a.prevSlice, uint32(a.prevSlice.FirstMbInSlice)+uint32(a.prevSlice.MbCount), uint32(missingMbs))
	if err != nil {
		return // writer failure: AU stays incomplete, no replacement inserted
	}
	if err := a.appendNALUTo(a.current, dst[:n], h264.NALUTypeSliceNonIDR, true); err != nil {
		a.DroppedNALUs++
	}
}

// seedGrayIFrame fabricates a full gray IDR picture (SPS + PPS + one I slice
// covering every macroblock) and enqueues it as its own AU, timestamped
// GrayISeedShift microseconds before the real frame that triggered seeding,
// so a consumer sees it first. The pending real NALU that triggered this is
// then processed normally by the caller.
func (a *Assembler) seedGrayIFrame(ts Timestamps) {
	a.grayIArmed = false

	ctx := a.parser.SPSPPSContext()
	if !ctx.Ready() {
		return
	}
	buf, err := a.bufPool.Get(pool.MinRealloc, 0)
	if err != nil {
		return
	}

	seed := &inProgressAU{buf: buf, ts: ts, syncType: SyncIDR}
	if err := a.appendNALUTo(seed, a.spsBytes, h264.NALUTypeSPS, false); err != nil {
		a.releaseNALUSlots(seed)
		buf.Unref()
		return
	}
	if err := a.appendNALUTo(seed, a.ppsBytes, h264.NALUTypePPS, false); err != nil {
		a.releaseNALUSlots(seed)
		buf.Unref()
		return
	}

	dst := make([]byte, 256+ctx.SPS.TotalMbCount()/2)
	n, err := h264.EmitGrayIFrame(dst, ctx, uint32(ctx.SPS.TotalMbCount()))
	if err != nil {
		a.releaseNALUSlots(seed)
		buf.Unref()
		return
	}
	if err := a.appendNALUTo(seed, dst[:n], h264.NALUTypeSliceIDR, true); err != nil {
		a.releaseNALUSlots(seed)
		buf.Unref()
		return
	}

	shiftedTs := ts.Ts
	if shiftedTs >= GrayISeedShift {
		shiftedTs -= GrayISeedShift
	}
	a.emitAU(seed.buf, seed.nalus, shiftedTs, SyncIDR, false)
	a.releaseNALUSlots(seed)
}

func (a *Assembler) appendSkippedTail(cur *inProgressAU, firstMb, mbCount uint32) {
	ctx := a.parser.SPSPPSContext()
	dst := make([]byte, 256+int(mbCount)/4)
	n, err := h264.EmitSkippedPSlice(dst, ctx, cur.lastSlice, firstMb, mbCount)
	if err != nil {
		cur.incomplete = true
		return
	}
	if err := a.appendNALUTo(cur, dst[:n], h264.NALUTypeSliceNonIDR, true); err != nil {
		cur.incomplete = true
	}
}

// appendNALUTo acquires a NALUPool slot to back the new entry (the bounded
// NALU pool), copies the bytes into the AU's buffer record,
// and records the slot for release when the owning AU closes. Returns
// ErrQueueFull, leaving cur.nalus untouched, when the pool has no free
// slots left.
func (a *Assembler) appendNALUTo(cur *inProgressAU, nalu []byte, t h264.NALUType, synthesized bool) error {
	slot, desc, err := a.naluPool.Acquire()
	if err != nil {
		return ErrQueueFull
	}

	offset := cur.buf.AppendPayload(nalu)
	if a.cfg.ReplaceStartCodesWithNALUSize {
		rewriteLengthPrefix(cur.buf, offset, len(nalu))
	}
	// desc is the pool's own NALU descriptor slot (this design's "NALU
	// pool" proper); cur.nalus is the AU-local ordered list emitted to the
	// consumer. Both are populated from the same values so the pool slot
	// genuinely describes what it backs, not just a free-list placeholder.
	desc.Type = byte(t)
	desc.Offset = offset
	desc.Length = len(nalu)
	desc.Synthesized = synthesized

	cur.nalus = append(cur.nalus, pool.NALUItem{
		Type:        desc.Type,
		Offset:      desc.Offset,
		Length:      desc.Length,
		Synthesized: desc.Synthesized,
	})
	cur.naluSlots = append(cur.naluSlots, slot)
	return nil
}

// releaseNALUSlots returns every NALUPool slot an in-progress (or just
// closed) AU was holding back to the free list. Safe to call more than
// once; a nil cur or an already-drained slot list is a no-op.
func (a *Assembler) releaseNALUSlots(cur *inProgressAU) {
	if cur == nil {
		return
	}
	for _, idx := range cur.naluSlots {
		a.naluPool.Release(idx)
	}
	cur.naluSlots = nil
}
