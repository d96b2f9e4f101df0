package h264

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lanikai/kolea/internal/bitio"
)

// buildBaselineSPS encodes a Baseline-profile SPS RBSP for a 176x144 (QCIF,
// 11x9 macroblocks) frame-only sequence, pic_order_cnt_type 2 (the simplest
// form with no dependent fields), matching what a drone encoder's default
// configuration would emit.
func buildBaselineSPS(t *testing.T) []byte {
	buf := make([]byte, 64)
	w := bitio.NewWriter(buf, true)

	require.NoError(t, w.WriteBits(8, 66)) // profile_idc = Baseline
	require.NoError(t, w.WriteBits(8, 0))  // constraint flags + reserved
	require.NoError(t, w.WriteBits(8, 30)) // level_idc
	require.NoError(t, w.WriteUE(0))       // seq_parameter_set_id

	require.NoError(t, w.WriteUE(0)) // log2_max_frame_num_minus4
	require.NoError(t, w.WriteUE(2)) // pic_order_cnt_type = 2

	require.NoError(t, w.WriteUE(4))        // max_num_ref_frames
	require.NoError(t, w.WriteFlag(false))  // gaps_in_frame_num_value_allowed_flag
	require.NoError(t, w.WriteUE(10))       // pic_width_in_mbs_minus1 (176/16-1)
	require.NoError(t, w.WriteUE(8))        // pic_height_in_map_units_minus1 (144/16-1)
	require.NoError(t, w.WriteFlag(true))   // frame_mbs_only_flag
	require.NoError(t, w.ByteAlign())
	return w.Bytes()
}

func TestParseSPSBaseline(t *testing.T) {
	rbsp := buildBaselineSPS(t)
	sps, err := ParseSPS(rbsp)
	require.NoError(t, err)
	require.True(t, sps.Present)
	require.Equal(t, uint32(66), sps.ProfileIdc)
	require.Equal(t, uint32(1), sps.ChromaFormatIdc) // default for Baseline
	require.Equal(t, uint32(0), sps.Log2MaxFrameNumMinus4)
	require.Equal(t, uint32(2), sps.PicOrderCntType)
	require.Equal(t, uint32(10), sps.PicWidthInMbsMinus1)
	require.Equal(t, uint32(8), sps.PicHeightInMapUnitsMinus1)
	require.True(t, sps.FrameMbsOnlyFlag)
	require.Equal(t, 11, sps.PicWidthInMbs())
	require.Equal(t, 9, sps.PicHeightInMbs())
	require.Equal(t, 99, sps.TotalMbCount())
}

func buildSimplePPS(t *testing.T, ppsID, spsID uint32) []byte {
	buf := make([]byte, 32)
	w := bitio.NewWriter(buf, true)

	require.NoError(t, w.WriteUE(ppsID))
	require.NoError(t, w.WriteUE(spsID))
	require.NoError(t, w.WriteFlag(false)) // entropy_coding_mode_flag = CAVLC
	require.NoError(t, w.WriteFlag(false)) // bottom_field_pic_order_in_frame_present_flag
	require.NoError(t, w.WriteUE(0))       // num_slice_groups_minus1
	require.NoError(t, w.WriteUE(0))       // num_ref_idx_l0_default_active_minus1
	require.NoError(t, w.WriteUE(0))       // num_ref_idx_l1_default_active_minus1
	require.NoError(t, w.WriteFlag(false)) // weighted_pred_flag
	require.NoError(t, w.WriteBits(2, 0))  // weighted_bipred_idc
	require.NoError(t, w.WriteSE(0))       // pic_init_qp_minus26
	require.NoError(t, w.WriteSE(0))       // pic_init_qs_minus26
	require.NoError(t, w.WriteSE(0))       // chroma_qp_index_offset
	require.NoError(t, w.WriteFlag(true))  // deblocking_filter_control_present_flag
	require.NoError(t, w.WriteFlag(false)) // constrained_intra_pred_flag
	require.NoError(t, w.WriteFlag(false)) // redundant_pic_cnt_present_flag
	require.NoError(t, w.ByteAlign())
	return w.Bytes()
}

func TestParsePPSBaseline(t *testing.T) {
	rbsp := buildSimplePPS(t, 0, 0)
	pps, err := ParsePPS(rbsp)
	require.NoError(t, err)
	require.True(t, pps.Present)
	require.False(t, pps.EntropyCodingModeFlag)
	require.Equal(t, uint32(0), pps.NumSliceGroupsMinus1)
	require.True(t, pps.DeblockingFilterControlPresentFlag)
	require.False(t, pps.RedundantPicCntPresentFlag)
}

func TestParsePPSRejectsUnsupportedSliceGroupMap(t *testing.T) {
	buf := make([]byte, 16)
	w := bitio.NewWriter(buf, true)
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteFlag(false))
	require.NoError(t, w.WriteFlag(false))
	require.NoError(t, w.WriteUE(1)) // num_slice_groups_minus1 = 1 (2 groups)
	require.NoError(t, w.WriteUE(0)) // slice_group_map_type = 0
	require.NoError(t, w.ByteAlign())

	_, err := ParsePPS(w.Bytes())
	require.Equal(t, ErrUnsupported, err)
}
