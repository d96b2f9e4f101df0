package h264

import "github.com/lanikai/kolea/internal/bitio"

// ParsePPS parses a pic_parameter_set_rbsp(). Of the slice-group map
// parameters only slice_group_change_direction_flag and
// slice_group_change_rate_minus1 (map types 3-5) are read; map types 0, 2
// and 6 make ParsePPS return ErrUnsupported rather than being silently
// ignored.
func ParsePPS(rbsp []byte) (PPS, error) {
	var pps PPS
	r := bitio.NewReader(rbsp, true)

	id, err := r.ReadUE()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.ID = id

	spsID, err := r.ReadUE()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.SpsID = spsID

	entropyCodingModeFlag, err := r.ReadFlag()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.EntropyCodingModeFlag = entropyCodingModeFlag

	bottomFieldPresent, err := r.ReadFlag()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.BottomFieldPicOrderInFramePresentFlag = bottomFieldPresent

	numSliceGroupsMinus1, err := r.ReadUE()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.NumSliceGroupsMinus1 = numSliceGroupsMinus1

	if numSliceGroupsMinus1 > 0 {
		sliceGroupMapType, err := r.ReadUE()
		if err != nil {
			return pps, wrapShortRead(err)
		}
		pps.SliceGroupMapType = sliceGroupMapType

		switch sliceGroupMapType {
		case 0, 2:
			// run_length_minus1[i] / top_left[i]+bottom_right[i], one set per
			// group: needs a loop bound by numSliceGroupsMinus1 but no
			// bitstream-sized array, so it is representable; this pipeline
			// has never needed non-zero slice groups, so treat as
			// unsupported rather than parse blind.
			return pps, ErrUnsupported
		case 3, 4, 5:
			// slice_group_change_direction_flag
			if _, err := r.ReadFlag(); err != nil {
				return pps, wrapShortRead(err)
			}
			v, err := r.ReadUE()
			if err != nil {
				return pps, wrapShortRead(err)
			}
			pps.SliceGroupChangeRateMinus1 = v
		case 6:
			return pps, ErrUnsupported // explicit per-map-unit slice_group_id[i]
		}
	}

	numRefIdxL0, err := r.ReadUE()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.NumRefIdxL0DefaultActiveMinus1 = numRefIdxL0

	numRefIdxL1, err := r.ReadUE()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.NumRefIdxL1DefaultActiveMinus1 = numRefIdxL1

	weightedPredFlag, err := r.ReadFlag()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.WeightedPredFlag = weightedPredFlag

	weightedBipredIdc, err := r.ReadBits(2)
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.WeightedBipredIdc = weightedBipredIdc

	picInitQpMinus26, err := r.ReadSE()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.PicInitQpMinus26 = picInitQpMinus26

	picInitQsMinus26, err := r.ReadSE()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.PicInitQsMinus26 = picInitQsMinus26

	chromaQpIndexOffset, err := r.ReadSE()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.ChromaQpIndexOffset = chromaQpIndexOffset

	deblockingControlPresent, err := r.ReadFlag()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.DeblockingFilterControlPresentFlag = deblockingControlPresent

	constrainedIntraPredFlag, err := r.ReadFlag()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.ConstrainedIntraPredFlag = constrainedIntraPredFlag

	redundantPicCntPresent, err := r.ReadFlag()
	if err != nil {
		return pps, wrapShortRead(err)
	}
	pps.RedundantPicCntPresentFlag = redundantPicCntPresent

	pps.Present = true
	return pps, nil
}
