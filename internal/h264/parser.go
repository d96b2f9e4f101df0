package h264

import "github.com/lanikai/kolea/internal/bitio"

// Parser is a single-NALU-at-a-time Annex B parser. It keeps the first
// SPS and PPS it observes and the most recent slice header, and accumulates user-data SEI
// payloads across calls until the caller drains them. It is not safe for
// concurrent use; the access-unit assembler owns one per input stream.
type Parser struct {
	ctx Context

	currentType   NALUType
	currentHeader NALUHeader
	currentSlice  Slice
	haveSlice     bool
	pending       []byte

	userDataSEI [][]byte
}

// NewParser returns an empty Parser with no SPS/PPS context yet observed.
func NewParser() *Parser {
	return &Parser{}
}

// ReadNextNALU scans buf (the remainder of an Annex B byte stream starting
// at offset) for the next start code and returns the NALU payload (header
// byte through, but not including, the following start code), plus the
// offset of the next unscanned byte in buf. It returns ok=false once no
// further start code can be found, tolerating trailing zero padding per
//.
func ReadNextNALU(buf []byte, offset int) (nalu []byte, next int, ok bool) {
	_, payloadStart := findStartCode(buf, offset)
	if payloadStart < 0 {
		return nil, len(buf), false
	}
	nextCodeStart, _ := findStartCode(buf, payloadStart)
	end := nextCodeStart
	next = nextCodeStart
	if end < 0 {
		end = len(buf)
		next = len(buf)
	}
	// A 4-byte start code's extra leading zero_byte, and any Annex B padding
	// zero bytes, are not part of the payload regardless of whether the next
	// start code or end-of-stream terminates it.
	for end > payloadStart && buf[end-1] == 0x00 {
		end--
	}
	return buf[payloadStart:end], next, true
}

// findStartCode returns the index of the start of a 3- or 4-byte start code
// (0x000001 or 0x00000001) at or after offset, and the index of the byte
// following it (where the NALU payload begins). Returns (-1, -1) if none is
// found.
func findStartCode(buf []byte, offset int) (codeStart, payloadStart int) {
	for i := offset; i+2 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			return i, i + 3
		}
	}
	return -1, -1
}

// SetupNALU binds nalu (header byte + RBSP, start code already stripped) as
// the unit the next Parse call will process.
func (p *Parser) SetupNALU(nalu []byte) error {
	if len(nalu) == 0 {
		return ErrInvalidBitstream
	}
	p.currentHeader = ParseNALUHeader(nalu[0])
	p.currentType = p.currentHeader.Type
	p.pending = nalu[1:]
	p.haveSlice = false
	return nil
}

// Parse dispatches on the NALU type bound by SetupNALU. A malformed
// bitstream returns ErrInvalidBitstream; the parser remains usable for the
// next NALU regardless of the outcome.
func (p *Parser) Parse() error {
	switch p.currentType {
	case NALUTypeSPS:
		sps, err := ParseSPS(p.pending)
		if err != nil {
			return err
		}
		if !p.ctx.SPS.Present {
			p.ctx.SPS = sps
		}
		return nil
	case NALUTypePPS:
		pps, err := ParsePPS(p.pending)
		if err != nil {
			return err
		}
		if !p.ctx.PPS.Present {
			p.ctx.PPS = pps
		}
		return nil
	case NALUTypeSliceNonIDR, NALUTypeSliceIDR:
		if !p.ctx.Ready() {
			return ErrNotReady
		}
		slice, err := ParseSliceHeader(p.pending, p.currentHeader, p.ctx.SPS, p.ctx.PPS)
		if err != nil && err != ErrUnsupported {
			return err
		}
		// Classification fields (first_mb_in_slice, slice_type, frame_num,
		// ...) are populated even when parsing stops partway through at an
		// unsupported element, so the slice is still usable for AU
		// assembly purposes.
		p.currentSlice = slice
		p.haveSlice = true
		return nil
	case NALUTypeSEI:
		return p.parseSEI(p.pending)
	default:
		return nil
	}
}

func (p *Parser) parseSEI(rbsp []byte) error {
	r := bitio.NewReader(rbsp, true)
	for r.BitsRemaining() >= 16 && r.MoreRBSPData() {
		payloadType, err := readFFByteValue(r)
		if err != nil {
			return ErrInvalidBitstream
		}
		payloadSize, err := readFFByteValue(r)
		if err != nil {
			return ErrInvalidBitstream
		}
		if r.BitsRemaining() < int(payloadSize)*8 {
			return ErrInvalidBitstream
		}
		payload := make([]byte, payloadSize)
		for i := range payload {
			b, err := r.ReadBits(8)
			if err != nil {
				return ErrInvalidBitstream
			}
			payload[i] = byte(b)
		}
		if payloadType == SEITypeUserDataUnregistered {
			p.userDataSEI = append(p.userDataSEI, payload)
		}
	}
	return nil
}

// readFFByteValue decodes H.264's ff_byte run-length prefix: read 0xFF bytes
// (each worth +255) until a terminating byte < 0xFF, added to the total.
func readFFByteValue(r *bitio.Reader) (uint32, error) {
	var total uint32
	for {
		b, err := r.ReadBits(8)
		if err != nil {
			return 0, err
		}
		total += b
		if b != 0xFF {
			break
		}
	}
	return total, nil
}

// LastNALUType returns the type of the most recently bound NALU.
func (p *Parser) LastNALUType() NALUType {
	return p.currentType
}

// SliceInfo returns the most recently parsed slice header and whether one
// is available (false before any slice has been parsed, or after a
// non-slice NALU).
func (p *Parser) SliceInfo() (Slice, bool) {
	return p.currentSlice, p.haveSlice
}

// SPSPPSContext returns the parser's current SPS/PPS pair.
func (p *Parser) SPSPPSContext() Context {
	return p.ctx
}

// SliceContext returns a writer-ready template derived from the last parsed
// slice header.
func (p *Parser) SliceContext() (Slice, bool) {
	return p.currentSlice, p.haveSlice
}

// UserDataSEICount returns the number of user_data_unregistered payloads
// accumulated so far.
func (p *Parser) UserDataSEICount() int {
	return len(p.userDataSEI)
}

// UserDataSEI returns the payload bytes (UUID included, first 16 bytes) at
// index i.
func (p *Parser) UserDataSEI(i int) []byte {
	return p.userDataSEI[i]
}

// DrainUserDataSEI removes and returns all accumulated user-data SEI
// payloads, resetting the count to zero.
func (p *Parser) DrainUserDataSEI() [][]byte {
	out := p.userDataSEI
	p.userDataSEI = nil
	return out
}
