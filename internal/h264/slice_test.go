package h264

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lanikai/kolea/internal/bitio"
)

func testContext() Context {
	return Context{
		SPS: SPS{
			Present:                     true,
			Log2MaxFrameNumMinus4:       0,
			PicOrderCntType:             0,
			Log2MaxPicOrderCntLsbMinus4: 0,
			FrameMbsOnlyFlag:            true,
			PicWidthInMbsMinus1:         10,
			PicHeightInMapUnitsMinus1:   8,
		},
		PPS: PPS{
			Present:                             true,
			EntropyCodingModeFlag:               false,
			BottomFieldPicOrderInFramePresentFlag: false,
			RedundantPicCntPresentFlag:          false,
			NumSliceGroupsMinus1:                0,
			DeblockingFilterControlPresentFlag:  false,
			WeightedPredFlag:                     false,
		},
	}
}

// TestParseSliceHeaderIDR encodes an IDR slice header up through the point
// where parsing intentionally stops (dec_ref_pic_marking, since
// nal_ref_idc!=0), matching the "classify, don't fully consume" contract
// described for reference pictures.
func TestParseSliceHeaderIDR(t *testing.T) {
	ctx := testContext()

	buf := make([]byte, 32)
	w := bitio.NewWriter(buf, true)
	require.NoError(t, w.WriteUE(0)) // first_mb_in_slice
	require.NoError(t, w.WriteUE(7)) // slice_type = 7 ("all I")
	require.NoError(t, w.WriteUE(0)) // pic_parameter_set_id
	require.NoError(t, w.WriteBits(4, 0)) // frame_num
	require.NoError(t, w.WriteUE(2))      // idr_pic_id
	require.NoError(t, w.WriteBits(4, 3)) // pic_order_cnt_lsb
	require.NoError(t, w.ByteAlign())

	header := NALUHeader{NalRefIdc: 3, Type: NALUTypeSliceIDR}
	s, err := ParseSliceHeader(w.Bytes(), header, ctx.SPS, ctx.PPS)
	require.Equal(t, ErrUnsupported, err)

	require.Equal(t, uint32(0), s.FirstMbInSlice)
	require.Equal(t, uint32(7), s.SliceTypeRaw)
	require.Equal(t, SliceTypeI, s.Type)
	require.Equal(t, uint32(0), s.PicParameterSetID)
	require.Equal(t, uint32(0), s.FrameNum)
	require.Equal(t, uint32(2), s.IdrPicID)
	require.Equal(t, uint32(3), s.PicOrderCntLsb)
	require.Equal(t, byte(3), s.NalRefIdc)
	require.True(t, s.IsIDR())
}

func TestSliceTypeString(t *testing.T) {
	require.Equal(t, "P", SliceTypeP.String())
	require.Equal(t, "I", SliceTypeI.String())
	require.Equal(t, "B", SliceTypeB.String())
	require.Equal(t, "SP", SliceTypeSP.String())
	require.Equal(t, "SI", SliceTypeSI.String())
}
