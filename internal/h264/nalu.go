// Package h264 implements the Annex B bitstream layer needed to identify NAL
// units, parse SPS/PPS/slice headers, extract user-data SEI payloads, and
// synthesize replacement slice NALUs (skipped-P and gray-I) from a
// previously-parsed SPS/PPS context.
//
// It does not implement an H.264 decoder: no inverse transform, no motion
// compensation, no entropy decoding of slice data.
package h264

import "golang.org/x/xerrors"

// NALUType is the 5-bit nal_unit_type field.
type NALUType byte

const (
	NALUTypeUnspecified           NALUType = 0
	NALUTypeSliceNonIDR           NALUType = 1
	NALUTypeSliceDataPartitionA   NALUType = 2
	NALUTypeSliceDataPartitionB   NALUType = 3
	NALUTypeSliceDataPartitionC   NALUType = 4
	NALUTypeSliceIDR              NALUType = 5
	NALUTypeSEI                   NALUType = 6
	NALUTypeSPS                   NALUType = 7
	NALUTypePPS                   NALUType = 8
	NALUTypeAUD                   NALUType = 9
	NALUTypeEndOfSequence         NALUType = 10
	NALUTypeEndOfStream           NALUType = 11
	NALUTypeFillerData            NALUType = 12
	NALUTypeSPSExtension          NALUType = 13
	NALUTypePrefix                NALUType = 14
	NALUTypeSubsetSPS             NALUType = 15
)

// SEI payload types, see Annex D.
const (
	SEITypeUserDataUnregistered = 5
)

// IsVCL reports whether a NAL unit of this type carries coded slice data
// (types 1 and 5 are the only VCL types this system needs to recognize; data
// partitions 2-4 are VCL too but are not emitted by the writer and are
// treated as opaque pass-through by the assembler).
func (t NALUType) IsVCL() bool {
	switch t {
	case NALUTypeSliceNonIDR, NALUTypeSliceDataPartitionA,
		NALUTypeSliceDataPartitionB, NALUTypeSliceDataPartitionC, NALUTypeSliceIDR:
		return true
	}
	return false
}

func (t NALUType) IsIDR() bool {
	return t == NALUTypeSliceIDR
}

func (t NALUType) IsParameterSet() bool {
	return t == NALUTypeSPS || t == NALUTypePPS
}

// NALUHeader holds the first-byte fields of a NAL unit.
type NALUHeader struct {
	ForbiddenZeroBit byte
	NalRefIdc        byte
	Type             NALUType
}

// ParseNALUHeader reads the one-byte NAL header that precedes RBSP payload.
func ParseNALUHeader(b byte) NALUHeader {
	return NALUHeader{
		ForbiddenZeroBit: b & 0x80 >> 7,
		NalRefIdc:        b & 0x60 >> 5,
		Type:             NALUType(b & 0x1f),
	}
}

func (h NALUHeader) Byte() byte {
	return h.ForbiddenZeroBit<<7 | h.NalRefIdc<<5 | byte(h.Type)&0x1f
}

// StartCode is the Annex B 4-byte start code this implementation always
// emits (this design allows either the 3- or 4-byte form; this writer always
// uses the 4-byte form, matching beaver_writer.c's NAL_START_CODE).
var StartCode = [4]byte{0x00, 0x00, 0x00, 0x01}

var (
	ErrInvalidBitstream = xerrors.New("h264: invalid bitstream")
	ErrNotReady         = xerrors.New("h264: SPS/PPS context not set")
	ErrUnsupported      = xerrors.New("h264: unsupported syntax")
)

// ErrBufferTooSmall indicates the destination buffer passed to a writer
// function was too small; Needed holds the size that would have sufficed.
type ErrBufferTooSmall struct {
	Needed int
}

func (e *ErrBufferTooSmall) Error() string {
	return xerrors.Errorf("h264: buffer too small, need %d bytes", e.Needed).Error()
}
