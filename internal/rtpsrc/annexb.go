// Package rtpsrc is a reference NALU source used to drive a kolea.Pipeline
// without a real drone link attached: an Annex-B elementary-stream replayer
// for recorded/offline testing, and a minimal RTP/RFC 6184 depacketizer for
// a live or recorded UDP capture. Neither replaces a real RTP stack — they
// exist only so cmd/koleactl and the integration tests have something to
// feed the pipeline.
package rtpsrc

import (
	"os"

	"github.com/lanikai/kolea/internal/h264"
)

// DefaultFrameDurationTicks advances the synthetic 90kHz RTP clock by one
// NTSC-ish 30fps frame interval between access units replayed from a file
// that carries no RTP timing of its own.
const DefaultFrameDurationTicks = 3000

// NALU is one NAL unit plus the access-unit boundary metadata a
// kolea.Pipeline's SubmitNALU expects (this package's inbound callback
// parameters, minus Cause which the caller supplies).
type NALU struct {
	Bytes         []byte
	Timestamp     uint64
	IsFirst       bool
	IsLast        bool
	MissingBefore int
}

// AnnexBSource replays a recorded Annex-B elementary stream (a captured
// ".264" file with no RTP envelope) as a sequence of NALU values with
// synthesized timestamps, for replay without a live link.
type AnnexBSource struct {
	data []byte

	// FrameDurationTicks is how far the synthetic timestamp advances per
	// access unit boundary.
	FrameDurationTicks uint64
}

// OpenAnnexBFile reads path into memory as an Annex-B byte stream.
func OpenAnnexBFile(path string) (*AnnexBSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &AnnexBSource{data: data, FrameDurationTicks: DefaultFrameDurationTicks}, nil
}

// NewAnnexBSource wraps an in-memory Annex-B byte stream, e.g. one already
// read from a capture file or assembled by a test.
func NewAnnexBSource(data []byte) *AnnexBSource {
	return &AnnexBSource{data: data, FrameDurationTicks: DefaultFrameDurationTicks}
}

// Each calls fn once per NALU in the stream, in bitstream order, grouping
// consecutive non-VCL NALUs (SPS/PPS/SEI/AUD) ahead of the VCL slice NALU
// that closes each access unit. This reference source assumes one coded
// slice per picture; the real concealment-driving path (internal/au)
// handles multi-slice pictures, but a flat replay file has no packet-loss
// signal to synthesize gaps from anyway.
func (s *AnnexBSource) Each(fn func(NALU) error) error {
	var ts uint64
	offset := 0
	first := true
	for {
		nalu, next, ok := h264.ReadNextNALU(s.data, offset)
		if !ok {
			break
		}
		offset = next
		if len(nalu) == 0 {
			continue
		}
		header := h264.ParseNALUHeader(nalu[0])
		isLast := header.Type.IsVCL()

		wire := make([]byte, 0, len(h264.StartCode)+len(nalu))
		wire = append(wire, h264.StartCode[:]...)
		wire = append(wire, nalu...)

		if err := fn(NALU{Bytes: wire, Timestamp: ts, IsFirst: first, IsLast: isLast}); err != nil {
			return err
		}

		first = false
		if isLast {
			ts += s.FrameDurationTicks
			first = true
		}
	}
	return nil
}
