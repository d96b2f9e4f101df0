package h264

import "github.com/lanikai/kolea/internal/bitio"

// writeSliceHeader emits slice_header() for s against the given SPS/PPS,
// mirroring ParseSliceHeader field-for-field (ground: beaver_writer.c's
// BEAVER_Writer_WriteSliceHeader). Unlike the parser, the writer always
// supplies every optional field's value itself, so it only refuses the
// handful of syntax elements (ref_pic_list_modification beyond "none",
// pred_weight_table, adaptive ref-pic marking beyond "none") that would
// require the caller to have supplied reference-picture state this pipeline
// never tracks.
func writeSliceHeader(w *bitio.Writer, s Slice, sps SPS, pps PPS) error {
	if err := w.WriteUE(s.FirstMbInSlice); err != nil {
		return err
	}
	if err := w.WriteUE(s.SliceTypeRaw); err != nil {
		return err
	}
	if err := w.WriteUE(s.PicParameterSetID); err != nil {
		return err
	}

	if sps.SeparateColourPlaneFlag {
		if err := w.WriteBits(2, 0); err != nil {
			return err
		}
	}

	frameNumBits := int(sps.Log2MaxFrameNumMinus4) + 4
	if err := w.WriteBits(frameNumBits, s.FrameNum); err != nil {
		return err
	}

	if !sps.FrameMbsOnlyFlag {
		if err := w.WriteFlag(s.FieldPicFlag); err != nil {
			return err
		}
		if s.FieldPicFlag {
			if err := w.WriteFlag(s.BottomFieldFlag); err != nil {
				return err
			}
		}
	}

	if s.IsIDR() {
		if err := w.WriteUE(s.IdrPicID); err != nil {
			return err
		}
	}

	if sps.PicOrderCntType == 0 {
		picOrderCntLsbBits := int(sps.Log2MaxPicOrderCntLsbMinus4) + 4
		if err := w.WriteBits(picOrderCntLsbBits, s.PicOrderCntLsb); err != nil {
			return err
		}
		if pps.BottomFieldPicOrderInFramePresentFlag && !s.FieldPicFlag {
			if err := w.WriteSE(s.DeltaPicOrderCntBottom); err != nil {
				return err
			}
		}
	} else if sps.PicOrderCntType == 1 && !sps.DeltaPicOrderAlwaysZeroFlag {
		if err := w.WriteSE(s.DeltaPicOrderCnt0); err != nil {
			return err
		}
		if pps.BottomFieldPicOrderInFramePresentFlag && !s.FieldPicFlag {
			if err := w.WriteSE(s.DeltaPicOrderCnt1); err != nil {
				return err
			}
		}
	}

	if pps.RedundantPicCntPresentFlag {
		if err := w.WriteUE(s.RedundantPicCnt); err != nil {
			return err
		}
	}

	if s.Type == SliceTypeB {
		if err := w.WriteFlag(s.DirectSpatialMvPredFlag); err != nil {
			return err
		}
	}

	switch s.Type {
	case SliceTypeP, SliceTypeSP, SliceTypeB:
		if err := w.WriteFlag(s.NumRefIdxActiveOverrideFlag); err != nil {
			return err
		}
		if s.NumRefIdxActiveOverrideFlag {
			if err := w.WriteUE(s.NumRefIdxL0ActiveMinus1); err != nil {
				return err
			}
			if s.Type == SliceTypeB {
				if err := w.WriteUE(s.NumRefIdxL1ActiveMinus1); err != nil {
					return err
				}
			}
		}
		// ref_pic_list_modification_flag_l0 = 0 (use the default list).
		if err := w.WriteFlag(false); err != nil {
			return err
		}
		if s.Type == SliceTypeB {
			if err := w.WriteFlag(false); err != nil { // ref_pic_list_modification_flag_l1
				return err
			}
		}
		if pps.WeightedPredFlag && (s.Type == SliceTypeP || s.Type == SliceTypeSP) {
			return ErrUnsupported // pred_weight_table()
		}
		if s.Type == SliceTypeB && pps.WeightedBipredIdc == 1 {
			return ErrUnsupported // pred_weight_table()
		}
	case SliceTypeI, SliceTypeSI:
		// no ref_pic_list_modification() for I/SI
	}

	if s.NalRefIdc != 0 {
		if s.IsIDR() {
			if err := w.WriteFlag(false); err != nil { // no_output_of_prior_pics_flag
				return err
			}
			if err := w.WriteFlag(false); err != nil { // long_term_reference_flag
				return err
			}
		} else {
			if err := w.WriteFlag(false); err != nil { // adaptive_ref_pic_marking_mode_flag
				return err
			}
		}
	}

	if pps.EntropyCodingModeFlag && s.Type != SliceTypeI && s.Type != SliceTypeSI {
		if err := w.WriteUE(s.CabacInitIdc); err != nil {
			return err
		}
	}

	if err := w.WriteSE(s.SliceQpDelta); err != nil {
		return err
	}

	if s.Type == SliceTypeSP || s.Type == SliceTypeSI {
		if s.Type == SliceTypeSP {
			if err := w.WriteFlag(s.SpForSwitchFlag); err != nil {
				return err
			}
		}
		if err := w.WriteSE(s.SliceQsDelta); err != nil {
			return err
		}
	}

	if pps.DeblockingFilterControlPresentFlag {
		if err := w.WriteUE(s.DisableDeblockingFilterIdc); err != nil {
			return err
		}
		if s.DisableDeblockingFilterIdc != 1 {
			if err := w.WriteSE(s.SliceAlphaC0OffsetDiv2); err != nil {
				return err
			}
			if err := w.WriteSE(s.SliceBetaOffsetDiv2); err != nil {
				return err
			}
		}
	}

	if pps.NumSliceGroupsMinus1 > 0 && pps.SliceGroupMapType >= 3 && pps.SliceGroupMapType <= 5 {
		n := sliceGroupChangeCycleBits(sps, pps)
		if err := w.WriteBits(n, 0); err != nil { // slice_group_change_cycle
			return err
		}
	}

	return nil
}

func sliceGroupChangeCycleBits(sps SPS, pps PPS) int {
	picSizeInMapUnits := sps.PicWidthInMbs() * (int(sps.PicHeightInMapUnitsMinus1) + 1)
	rate := int(pps.SliceGroupChangeRateMinus1) + 1
	steps := picSizeInMapUnits/rate + 1
	n := 0
	for (1 << uint(n)) < steps {
		n++
	}
	return n
}

// naluHeaderByte packs the one-byte NAL header.
func naluHeaderByte(nalRefIdc byte, t NALUType) byte {
	return NALUHeader{NalRefIdc: nalRefIdc & 0x3, Type: t}.Byte()
}

// newNALUWriter copies the Annex-B start code directly into dst (bypassing
// emulation-prevention bookkeeping, which must never touch the start code
// itself) and returns a Writer over the remainder of dst, primed with the
// NAL header byte. Each NALU resets the emulation-prevention zero-run
// counter at its own boundary, which a fresh Writer does for free.
func newNALUWriter(dst []byte, nalRefIdc byte, t NALUType) (*bitio.Writer, error) {
	if len(dst) < 5 {
		return nil, bitio.ErrBufferTooSmall
	}
	copy(dst[:4], StartCode[:])
	w := bitio.NewWriter(dst[4:], true)
	if err := w.WriteBits(8, uint32(naluHeaderByte(nalRefIdc, t))); err != nil {
		return nil, err
	}
	return w, nil
}

// writeFFByteValue writes value using H.264's ff_byte run-length prefix scheme:
// 0xFF bytes until the remainder fits in a final byte < 0xFF.
func writeFFByteValue(w *bitio.Writer, value int) error {
	for value >= 255 {
		if err := w.WriteBits(8, 0xFF); err != nil {
			return err
		}
		value -= 255
	}
	return w.WriteBits(8, uint32(value))
}

// EmitUserDataSEI writes an SEI NALU with a single user_data_unregistered
// message wrapping payload. It returns the number of bytes written into dst.
func EmitUserDataSEI(dst []byte, payload []byte) (int, error) {
	w, err := newNALUWriter(dst, 0, NALUTypeSEI)
	if err != nil {
		return 0, toBufferTooSmall(err, len(dst)+32)
	}
	if err := writeFFByteValue(w, SEITypeUserDataUnregistered); err != nil {
		return 0, toBufferTooSmall(err, len(dst)+32)
	}
	if err := writeFFByteValue(w, len(payload)); err != nil {
		return 0, toBufferTooSmall(err, len(dst)+32)
	}
	for _, b := range payload {
		if err := w.WriteBits(8, uint32(b)); err != nil {
			return 0, toBufferTooSmall(err, len(dst)+len(payload))
		}
	}
	if err := w.ByteAlign(); err != nil {
		return 0, toBufferTooSmall(err, len(dst)+1)
	}
	return 4 + w.Len(), nil
}

// EmitSkippedPSlice writes a replacement P-slice NALU covering mbCount
// macroblocks starting at firstMb, via a single mb_skip_run. tmpl supplies
// the frame_num/pic_order_cnt/nal_ref_idc etc. of the access unit being
// patched (ground: this design / BEAVER_Writer_WriteSkippedPSliceNalu).
func EmitSkippedPSlice(dst []byte, ctx Context, tmpl Slice, firstMb, mbCount uint32) (int, error) {
	if !ctx.Ready() {
		return 0, ErrNotReady
	}
	if ctx.PPS.EntropyCodingModeFlag {
		return 0, ErrUnsupported // CABAC: cabac_alignment_one_bit, not supported
	}

	s := tmpl
	s.FirstMbInSlice = firstMb
	s.SliceTypeRaw = 5 // P, "all slices in picture are P"
	s.Type = SliceTypeP
	s.NalUnitType = NALUTypeSliceNonIDR
	s.RedundantPicCnt = 0
	s.DirectSpatialMvPredFlag = false
	s.SliceQpDelta = 0
	s.DisableDeblockingFilterIdc = 2
	s.SliceAlphaC0OffsetDiv2 = 0
	s.SliceBetaOffsetDiv2 = 0
	s.NumRefIdxActiveOverrideFlag = false

	w, err := newNALUWriter(dst, s.NalRefIdc, NALUTypeSliceNonIDR)
	if err != nil {
		return 0, toBufferTooSmall(err, len(dst)+32)
	}
	if err := writeSliceHeader(w, s, ctx.SPS, ctx.PPS); err != nil {
		return 0, toBufferTooSmall(err, len(dst)+32)
	}
	if err := w.WriteUE(mbCount); err != nil { // mb_skip_run
		return 0, toBufferTooSmall(err, len(dst)+8)
	}
	if err := w.ByteAlign(); err != nil {
		return 0, toBufferTooSmall(err, len(dst)+1)
	}
	return 4 + w.Len(), nil
}

// EmitGrayIFrame writes a complete synthetic IDR frame of mbCount
// intra-16x16, DC-predicted, zero-residual macroblocks, which decodes to a
// uniform mid-gray picture. Used to unblock a decoder waiting for its first
// IDR (generateFirstGrayIFrame in
// arstream2_h264_filter.c drives when this is invoked, though the actual
// macroblock bit layout here follows the H.264 standard's
// I_16x16_2_0_0/coeff_token tables directly, since the retrieved original
// source's gray-slice writer body was not available).
func EmitGrayIFrame(dst []byte, ctx Context, mbCount uint32) (int, error) {
	if !ctx.Ready() {
		return 0, ErrNotReady
	}
	if ctx.PPS.EntropyCodingModeFlag {
		return 0, ErrUnsupported
	}

	s := Slice{
		FirstMbInSlice:    0,
		SliceTypeRaw:      7, // "all slices I"
		Type:              SliceTypeI,
		PicParameterSetID: ctx.PPS.ID,
		FrameNum:          0,
		IdrPicID:          0,
		NalRefIdc:         3,
		NalUnitType:       NALUTypeSliceIDR,
		SliceQpDelta:      0,
	}

	w, err := newNALUWriter(dst, s.NalRefIdc, NALUTypeSliceIDR)
	if err != nil {
		return 0, toBufferTooSmall(err, len(dst)+32)
	}
	if err := writeSliceHeader(w, s, ctx.SPS, ctx.PPS); err != nil {
		return 0, toBufferTooSmall(err, len(dst)+32)
	}
	for i := uint32(0); i < mbCount; i++ {
		if err := writeGrayMacroblock(w); err != nil {
			return 0, toBufferTooSmall(err, len(dst)+int(mbCount)*2)
		}
	}
	if err := w.ByteAlign(); err != nil {
		return 0, toBufferTooSmall(err, len(dst)+1)
	}
	return 4 + w.Len(), nil
}

// writeGrayMacroblock emits one macroblock_layer() for mb_type
// I_16x16_2_0_0 (DC luma prediction, zero luma/chroma coded block pattern)
// with intra_chroma_pred_mode DC and mb_qp_delta 0, then the three
// zero-coefficient residual blocks (luma DC, chroma DC x2) this mb_type
// always signals regardless of cbp. Every neighboring macroblock is
// identical, so nC is 0 throughout (Table 9-5/Table 9-4 VLC0 entries for
// TotalCoeff=0).
func writeGrayMacroblock(w *bitio.Writer) error {
	if err := w.WriteUE(3); err != nil { // mb_type = I_16x16_2_0_0
		return err
	}
	if err := w.WriteUE(0); err != nil { // intra_chroma_pred_mode = DC
		return err
	}
	if err := w.WriteSE(0); err != nil { // mb_qp_delta
		return err
	}
	// Intra16x16DCLevel: coeff_token(0,0), nC<2 -> "1"
	if err := w.WriteBits(1, 1); err != nil {
		return err
	}
	// ChromaDCLevel for Cb, then Cr: coeff_token(0,0), nC==-1 -> "01"
	for i := 0; i < 2; i++ {
		if err := w.WriteBits(2, 0x1); err != nil {
			return err
		}
	}
	return nil
}

func toBufferTooSmall(err error, needed int) error {
	if err == bitio.ErrBufferTooSmall {
		return &ErrBufferTooSmall{Needed: needed}
	}
	return err
}
