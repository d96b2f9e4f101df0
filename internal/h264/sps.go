package h264

import "github.com/lanikai/kolea/internal/bitio"

// ParseSPS parses a seq_parameter_set_rbsp() from an RBSP buffer (the NAL
// header byte must already be stripped). It extracts the fields needed to
// interpret slice headers and picture dimensions and stops after
// frame_mbs_only_flag's dependents: direct_8x8_inference_flag, frame
// cropping and VUI/HRD parameters are not read, matching arstream2_h264.c's
// ARSTREAM2_H264_ParseSps, which never looks past that point either.
func ParseSPS(rbsp []byte) (SPS, error) {
	var sps SPS
	r := bitio.NewReader(rbsp, true)

	profileIdc, err := r.ReadBits(8)
	if err != nil {
		return sps, wrapShortRead(err)
	}
	sps.ProfileIdc = profileIdc

	// constraint_set0_flag .. constraint_set5_flag, reserved_zero_2bits
	if _, err := r.ReadBits(8); err != nil {
		return sps, wrapShortRead(err)
	}

	levelIdc, err := r.ReadBits(8)
	if err != nil {
		return sps, wrapShortRead(err)
	}
	sps.LevelIdc = levelIdc

	id, err := r.ReadUE()
	if err != nil {
		return sps, wrapShortRead(err)
	}
	sps.ID = id

	sps.ChromaFormatIdc = 1 // default when the high-profile fields are absent
	switch profileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		chromaFormatIdc, err := r.ReadUE()
		if err != nil {
			return sps, wrapShortRead(err)
		}
		sps.ChromaFormatIdc = chromaFormatIdc
		if chromaFormatIdc == 3 {
			v, err := r.ReadFlag()
			if err != nil {
				return sps, wrapShortRead(err)
			}
			sps.SeparateColourPlaneFlag = v
		}
		bitDepthLuma, err := r.ReadUE()
		if err != nil {
			return sps, wrapShortRead(err)
		}
		sps.BitDepthLumaMinus8 = bitDepthLuma

		bitDepthChroma, err := r.ReadUE()
		if err != nil {
			return sps, wrapShortRead(err)
		}
		sps.BitDepthChromaMinus8 = bitDepthChroma

		// qpprime_y_zero_transform_bypass_flag
		if _, err := r.ReadFlag(); err != nil {
			return sps, wrapShortRead(err)
		}

		seqScalingMatrixPresent, err := r.ReadFlag()
		if err != nil {
			return sps, wrapShortRead(err)
		}
		if seqScalingMatrixPresent {
			return sps, ErrUnsupported // scaling lists not needed by this pipeline
		}
	}

	log2MaxFrameNumMinus4, err := r.ReadUE()
	if err != nil {
		return sps, wrapShortRead(err)
	}
	sps.Log2MaxFrameNumMinus4 = log2MaxFrameNumMinus4

	picOrderCntType, err := r.ReadUE()
	if err != nil {
		return sps, wrapShortRead(err)
	}
	sps.PicOrderCntType = picOrderCntType

	switch picOrderCntType {
	case 0:
		v, err := r.ReadUE()
		if err != nil {
			return sps, wrapShortRead(err)
		}
		sps.Log2MaxPicOrderCntLsbMinus4 = v
	case 1:
		v, err := r.ReadFlag()
		if err != nil {
			return sps, wrapShortRead(err)
		}
		sps.DeltaPicOrderAlwaysZeroFlag = v

		off1, err := r.ReadSE()
		if err != nil {
			return sps, wrapShortRead(err)
		}
		sps.OffsetForNonRefPic = off1

		off2, err := r.ReadSE()
		if err != nil {
			return sps, wrapShortRead(err)
		}
		sps.OffsetForTopToBottomField = off2

		n, err := r.ReadUE()
		if err != nil {
			return sps, wrapShortRead(err)
		}
		sps.NumRefFramesInPicOrderCntCycle = n
		sps.OffsetForRefFrame = make([]int32, n)
		for i := uint32(0); i < n; i++ {
			v, err := r.ReadSE()
			if err != nil {
				return sps, wrapShortRead(err)
			}
			sps.OffsetForRefFrame[i] = v
		}
	}

	maxNumRefFrames, err := r.ReadUE()
	if err != nil {
		return sps, wrapShortRead(err)
	}
	sps.MaxNumRefFrames = maxNumRefFrames

	// gaps_in_frame_num_value_allowed_flag
	if _, err := r.ReadFlag(); err != nil {
		return sps, wrapShortRead(err)
	}

	picWidthInMbsMinus1, err := r.ReadUE()
	if err != nil {
		return sps, wrapShortRead(err)
	}
	sps.PicWidthInMbsMinus1 = picWidthInMbsMinus1

	picHeightInMapUnitsMinus1, err := r.ReadUE()
	if err != nil {
		return sps, wrapShortRead(err)
	}
	sps.PicHeightInMapUnitsMinus1 = picHeightInMapUnitsMinus1

	frameMbsOnlyFlag, err := r.ReadFlag()
	if err != nil {
		return sps, wrapShortRead(err)
	}
	sps.FrameMbsOnlyFlag = frameMbsOnlyFlag

	if !frameMbsOnlyFlag {
		v, err := r.ReadFlag()
		if err != nil {
			return sps, wrapShortRead(err)
		}
		sps.MbAdaptiveFrameFieldFlag = v
	}

	sps.Present = true
	return sps, nil
}

func wrapShortRead(err error) error {
	if err == bitio.ErrShortRead {
		return ErrInvalidBitstream
	}
	return err
}
