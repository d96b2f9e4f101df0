package rtpsrc

import (
	"bytes"

	"github.com/lanikai/kolea/internal/h264"
)

// RTP H.264 payload types, per RFC 6184 §5.2.
const (
	payloadTypeSTAPA = 24
	payloadTypeFUA   = 28
)

const rtpHeaderSize = 12

// rtpHeader is the fixed 12-byte RTP header (RFC 3550 §5.1), CSRC list
// unsupported since this pipeline's drone link never uses mixers.
type rtpHeader struct {
	marker      bool
	payloadType byte
	sequence    uint16
	timestamp   uint32
}

func parseRTPHeader(pkt []byte) (rtpHeader, []byte, bool) {
	if len(pkt) < rtpHeaderSize {
		return rtpHeader{}, nil, false
	}
	csrcCount := int(pkt[0] & 0x0f)
	headerLen := rtpHeaderSize + 4*csrcCount
	if len(pkt) < headerLen {
		return rtpHeader{}, nil, false
	}
	h := rtpHeader{
		marker:      pkt[1]&0x80 != 0,
		payloadType: pkt[1] & 0x7f,
		sequence:    uint16(pkt[2])<<8 | uint16(pkt[3]),
		timestamp:   uint32(pkt[4])<<24 | uint32(pkt[5])<<16 | uint32(pkt[6])<<8 | uint32(pkt[7]),
	}
	return h, pkt[headerLen:], true
}

// Depacketizer reassembles a sequence of RTP/RFC 6184 packets (single-NALU,
// STAP-A aggregated, or FU-A fragmented) into complete NAL units, tracking
// sequence-number gaps as a missing-packet count and unwrapping the 32-bit
// RTP timestamp into a monotonic 64-bit clock.
type Depacketizer struct {
	haveSeq    bool
	lastSeq    uint16
	haveTSHigh bool
	extTSHigh  uint32
	lastExtTS  uint64

	fu         bytes.Buffer
	fuActive   bool
	fuMissing  int
}

// NewDepacketizer returns a Depacketizer ready to process the first packet
// of a session.
func NewDepacketizer() *Depacketizer {
	return &Depacketizer{}
}

// extendTimestamp unwraps a 32-bit RTP timestamp against the last one seen,
// assuming forward progress within half the 32-bit range (
// "if RTP timestamps wrap, the extended timestamp... is used").
func (d *Depacketizer) extendTimestamp(ts uint32) uint64 {
	if !d.haveTSHigh {
		d.haveTSHigh = true
		d.lastExtTS = uint64(ts)
		return d.lastExtTS
	}
	prev32 := uint32(d.lastExtTS)
	delta := ts - prev32
	var ext uint64
	if delta < 1<<31 {
		ext = d.lastExtTS + uint64(delta)
	} else {
		back := prev32 - ts
		if uint64(back) > d.lastExtTS {
			ext = 0
		} else {
			ext = d.lastExtTS - uint64(back)
		}
	}
	if ext > d.lastExtTS {
		d.lastExtTS = ext
	}
	return ext
}

// missingSince returns how many packets were lost since the last sequence
// number seen, updating the tracked sequence. The first packet of a
// session reports zero missing (nothing to compare against).
func (d *Depacketizer) missingSince(seq uint16) int {
	if !d.haveSeq {
		d.haveSeq = true
		d.lastSeq = seq
		return 0
	}
	delta := int16(seq - d.lastSeq)
	if delta <= 0 {
		return 0 // out-of-order or duplicate; not a loss
	}
	d.lastSeq = seq
	return int(delta) - 1
}

// HandlePacket processes one UDP datagram containing an RTP packet,
// returning the NALUs it completed (zero for a mid-fragment FU-A packet,
// one for a single-NALU or completing FU-A packet, more than one for a
// STAP-A aggregate).
func (d *Depacketizer) HandlePacket(pkt []byte) ([]NALU, bool) {
	hdr, payload, ok := parseRTPHeader(pkt)
	if !ok || len(payload) == 0 {
		return nil, false
	}

	missing := d.missingSince(hdr.sequence)
	ts := d.extendTimestamp(hdr.timestamp)
	naluType := payload[0] & 0x1f

	switch naluType {
	case payloadTypeSTAPA:
		return d.handleSTAPA(payload, ts, hdr.marker, missing)
	case payloadTypeFUA:
		return d.handleFUA(payload, ts, hdr.marker, missing)
	default:
		wire := annexBWrap(payload)
		return []NALU{{Bytes: wire, Timestamp: ts, IsFirst: true, IsLast: hdr.marker, MissingBefore: missing}}, true
	}
}

func (d *Depacketizer) handleSTAPA(payload []byte, ts uint64, marker bool, missing int) ([]NALU, bool) {
	var out []NALU
	i := 1
	first := true
	for i+2 <= len(payload) {
		size := int(payload[i])<<8 | int(payload[i+1])
		i += 2
		if i+size > len(payload) {
			break
		}
		nalu := payload[i : i+size]
		i += size
		isLastNALU := i >= len(payload)
		out = append(out, NALU{
			Bytes:         annexBWrap(nalu),
			Timestamp:     ts,
			IsFirst:       first,
			IsLast:        isLastNALU && marker,
			MissingBefore: missing,
		})
		first = false
		missing = 0 // only the first aggregated NALU inherits the reported gap
	}
	return out, len(out) > 0
}

func (d *Depacketizer) handleFUA(payload []byte, ts uint64, marker bool, missing int) ([]NALU, bool) {
	if len(payload) < 2 {
		return nil, false
	}
	indicator := payload[0]
	fuHeader := payload[1]
	start := fuHeader&0x80 != 0
	end := fuHeader&0x40 != 0

	if start {
		d.fu.Reset()
		d.fu.WriteByte(indicator&0xe0 | fuHeader&0x1f)
		d.fuActive = true
		d.fuMissing = missing
	} else if !d.fuActive {
		return nil, false // mid-stream join; wait for the next start
	} else if missing > 0 {
		// A gap inside a fragmented NALU leaves it unrecoverable; drop what
		// was accumulated and wait for the next start bit.
		d.fuActive = false
		return nil, false
	}
	d.fu.Write(payload[2:])

	if !end {
		return nil, false
	}
	d.fuActive = false
	nalu := append([]byte(nil), d.fu.Bytes()...)
	return []NALU{{Bytes: annexBWrap(nalu), Timestamp: ts, IsFirst: true, IsLast: marker, MissingBefore: d.fuMissing}}, true
}

func annexBWrap(nalu []byte) []byte {
	out := make([]byte, 0, len(h264.StartCode)+len(nalu))
	out = append(out, h264.StartCode[:]...)
	out = append(out, nalu...)
	return out
}
