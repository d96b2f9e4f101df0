package h264

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitSkippedPSliceProducesParsableHeader(t *testing.T) {
	ctx := testContext()
	tmpl := Slice{
		PicParameterSetID: 0,
		FrameNum:          5,
		PicOrderCntLsb:    10,
		NalRefIdc:         2,
	}

	dst := make([]byte, 64)
	n, err := EmitSkippedPSlice(dst, ctx, tmpl, 12, 34)
	require.NoError(t, err)
	require.Greater(t, n, 4)

	nalu := dst[:n]
	require.Equal(t, StartCode, [4]byte(nalu[:4]))
	header := ParseNALUHeader(nalu[4])
	require.Equal(t, NALUTypeSliceNonIDR, header.Type)
	require.Equal(t, byte(2), header.NalRefIdc)

	s, err := ParseSliceHeader(nalu[5:], header, ctx.SPS, ctx.PPS)
	require.Equal(t, ErrUnsupported, err) // stops at dec_ref_pic_marking, nal_ref_idc != 0
	require.Equal(t, uint32(12), s.FirstMbInSlice)
	require.Equal(t, SliceTypeP, s.Type)
	require.Equal(t, uint32(5), s.FrameNum)
	require.Equal(t, uint32(10), s.PicOrderCntLsb)
}

func TestEmitSkippedPSliceRejectsCABAC(t *testing.T) {
	ctx := testContext()
	ctx.PPS.EntropyCodingModeFlag = true
	_, err := EmitSkippedPSlice(make([]byte, 64), ctx, Slice{}, 0, 10)
	require.Equal(t, ErrUnsupported, err)
}

func TestEmitSkippedPSliceNotReadyWithoutContext(t *testing.T) {
	_, err := EmitSkippedPSlice(make([]byte, 64), Context{}, Slice{}, 0, 10)
	require.Equal(t, ErrNotReady, err)
}

func TestEmitSkippedPSliceBufferTooSmall(t *testing.T) {
	ctx := testContext()
	_, err := EmitSkippedPSlice(make([]byte, 2), ctx, Slice{NalRefIdc: 1}, 0, 10)
	require.Error(t, err)
	var tooSmall *ErrBufferTooSmall
	require.ErrorAs(t, err, &tooSmall)
}

func TestEmitGrayIFrameProducesIDR(t *testing.T) {
	ctx := testContext()
	dst := make([]byte, 256)
	n, err := EmitGrayIFrame(dst, ctx, 99)
	require.NoError(t, err)
	require.Greater(t, n, 4)

	nalu := dst[:n]
	header := ParseNALUHeader(nalu[4])
	require.Equal(t, NALUTypeSliceIDR, header.Type)
	require.Equal(t, byte(3), header.NalRefIdc)

	s, err := ParseSliceHeader(nalu[5:], header, ctx.SPS, ctx.PPS)
	require.Equal(t, ErrUnsupported, err) // stops at dec_ref_pic_marking, nal_ref_idc=3
	require.Equal(t, SliceTypeI, s.Type)
	require.True(t, s.IsIDR())
	require.Equal(t, uint32(0), s.FrameNum)
	require.Equal(t, uint32(0), s.IdrPicID)
}

func TestEmitGrayIFrameNotReady(t *testing.T) {
	_, err := EmitGrayIFrame(make([]byte, 64), Context{}, 10)
	require.Equal(t, ErrNotReady, err)
}

func TestEmitUserDataSEIRoundTrip(t *testing.T) {
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(i)
	}
	dst := make([]byte, 64)
	n, err := EmitUserDataSEI(dst, payload)
	require.NoError(t, err)

	p := NewParser()
	require.NoError(t, p.SetupNALU(dst[4:n]))
	require.Equal(t, NALUTypeSEI, p.LastNALUType())
	require.NoError(t, p.Parse())
	require.Equal(t, 1, p.UserDataSEICount())
	require.Equal(t, payload, p.UserDataSEI(0))
}
