package h264

// SPS holds the subset of sequence-parameter-set fields required to re-parse
// subsequent slice headers and to synthesize compliant slice NALUs. Only the
// first SPS observed is stored; any later SPS NALU is ignored, whatever its
// seq_parameter_set_id (ground: arstream2_h264_filter.c keeps a single
// "current SPS" slot and only replaces it when unset).
type SPS struct {
	ID uint32

	ProfileIdc uint32
	LevelIdc   uint32

	ChromaFormatIdc          uint32
	SeparateColourPlaneFlag  bool
	BitDepthLumaMinus8       uint32
	BitDepthChromaMinus8     uint32

	Log2MaxFrameNumMinus4 uint32

	PicOrderCntType                   uint32
	Log2MaxPicOrderCntLsbMinus4        uint32
	DeltaPicOrderAlwaysZeroFlag        bool
	OffsetForNonRefPic                 int32
	OffsetForTopToBottomField          int32
	NumRefFramesInPicOrderCntCycle     uint32
	OffsetForRefFrame                  []int32

	MaxNumRefFrames uint32

	PicWidthInMbsMinus1       uint32
	PicHeightInMapUnitsMinus1 uint32
	FrameMbsOnlyFlag          bool
	MbAdaptiveFrameFieldFlag  bool

	Present bool
}

// PicWidthInMbs and PicHeightInMbs give the picture dimensions in
// macroblocks, accounting for field coding (frame_mbs_only_flag==0 means
// each map unit is a macroblock pair, two macroblocks tall).
func (s *SPS) PicWidthInMbs() int {
	return int(s.PicWidthInMbsMinus1) + 1
}

func (s *SPS) PicHeightInMbs() int {
	heightInMapUnits := int(s.PicHeightInMapUnitsMinus1) + 1
	mul := 1
	if !s.FrameMbsOnlyFlag {
		mul = 2
	}
	return heightInMapUnits * mul
}

func (s *SPS) TotalMbCount() int {
	return s.PicWidthInMbs() * s.PicHeightInMbs()
}

// PPS holds the picture-parameter-set fields listed in.
type PPS struct {
	ID    uint32
	SpsID uint32

	EntropyCodingModeFlag                    bool
	BottomFieldPicOrderInFramePresentFlag     bool
	NumSliceGroupsMinus1                      uint32
	SliceGroupMapType                         uint32
	SliceGroupChangeRateMinus1                uint32

	NumRefIdxL0DefaultActiveMinus1 uint32
	NumRefIdxL1DefaultActiveMinus1 uint32

	WeightedPredFlag     bool
	WeightedBipredIdc    uint32

	PicInitQpMinus26 int32
	PicInitQsMinus26 int32
	ChromaQpIndexOffset int32

	DeblockingFilterControlPresentFlag bool
	ConstrainedIntraPredFlag           bool
	RedundantPicCntPresentFlag         bool

	Present bool
}

// Context bundles the SPS/PPS pair that, once both are present, lets the
// parser classify and fully re-parse slice headers, and lets the writer
// synthesize compliant replacement slices.
type Context struct {
	SPS SPS
	PPS PPS
}

func (c *Context) Ready() bool {
	return c.SPS.Present && c.PPS.Present
}

// SliceType mirrors the five slice_type families, after folding out the
// "all slices in this picture are of this type" values (5-9) via mod 5.
type SliceType byte

const (
	SliceTypeP  SliceType = 0
	SliceTypeB  SliceType = 1
	SliceTypeI  SliceType = 2
	SliceTypeSP SliceType = 3
	SliceTypeSI SliceType = 4
)

func (t SliceType) String() string {
	switch t {
	case SliceTypeP:
		return "P"
	case SliceTypeB:
		return "B"
	case SliceTypeI:
		return "I"
	case SliceTypeSP:
		return "SP"
	case SliceTypeSI:
		return "SI"
	default:
		return "?"
	}
}

// Slice is the most recently parsed slice header, complete enough to serve
// as a template for an emitted replacement slice of the same frame.
type Slice struct {
	FirstMbInSlice uint32
	SliceTypeRaw   uint32 // pre-mod-5 value, as it appeared on the wire
	Type           SliceType
	PicParameterSetID uint32

	FrameNum uint32

	FieldPicFlag    bool
	BottomFieldFlag bool

	IdrPicID uint32 // only meaningful when the owning NALU is an IDR slice

	PicOrderCntLsb             uint32
	DeltaPicOrderCntBottom     int32
	DeltaPicOrderCnt0          int32
	DeltaPicOrderCnt1          int32

	RedundantPicCnt uint32

	DirectSpatialMvPredFlag bool

	NumRefIdxActiveOverrideFlag bool
	NumRefIdxL0ActiveMinus1     uint32
	NumRefIdxL1ActiveMinus1     uint32

	CabacInitIdc uint32

	SliceQpDelta int32
	SpForSwitchFlag bool
	SliceQsDelta int32

	DisableDeblockingFilterIdc uint32
	SliceAlphaC0OffsetDiv2     int32
	SliceBetaOffsetDiv2        int32

	// NalRefIdc/NalUnitType from the owning NAL header; needed to decide
	// idrPicFlag and to reuse nal_ref_idc when synthesizing a skipped-P
	// slice of the same reference priority.
	NalRefIdc   byte
	NalUnitType NALUType

	// MbCount is the number of macroblocks this slice covered, computed by
	// the caller from streaming info (internal/sei). Zero means unknown.
	MbCount int
}

func (s *Slice) IsIDR() bool {
	return s.NalUnitType == NALUTypeSliceIDR
}
