package h264

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNALUHeaderRoundTrip(t *testing.T) {
	cases := []NALUHeader{
		{NalRefIdc: 0, Type: NALUTypeSliceNonIDR},
		{NalRefIdc: 3, Type: NALUTypeSliceIDR},
		{NalRefIdc: 1, Type: NALUTypeSPS},
	}
	for _, h := range cases {
		got := ParseNALUHeader(h.Byte())
		require.Equal(t, h.NalRefIdc, got.NalRefIdc)
		require.Equal(t, h.Type, got.Type)
	}
}

func TestNALUTypeClassification(t *testing.T) {
	require.True(t, NALUTypeSliceIDR.IsVCL())
	require.True(t, NALUTypeSliceIDR.IsIDR())
	require.True(t, NALUTypeSliceNonIDR.IsVCL())
	require.False(t, NALUTypeSliceNonIDR.IsIDR())
	require.False(t, NALUTypeSEI.IsVCL())
	require.True(t, NALUTypeSPS.IsParameterSet())
	require.True(t, NALUTypePPS.IsParameterSet())
	require.False(t, NALUTypeSEI.IsParameterSet())
}

func TestReadNextNALUFindsEachUnit(t *testing.T) {
	stream := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0xAA, 0xBB,
		0x00, 0x00, 0x01, 0x68, 0xCC,
		0x00, 0x00, 0x00, 0x01, 0x65, 0xDD, 0xEE,
		0x00, 0x00, 0x00, // trailing zero padding
	}

	nalu, next, ok := ReadNextNALU(stream, 0)
	require.True(t, ok)
	require.Equal(t, []byte{0x67, 0xAA, 0xBB}, nalu)

	nalu, next, ok = ReadNextNALU(stream, next)
	require.True(t, ok)
	require.Equal(t, []byte{0x68, 0xCC}, nalu)

	nalu, next, ok = ReadNextNALU(stream, next)
	require.True(t, ok)
	require.Equal(t, []byte{0x65, 0xDD, 0xEE}, nalu)

	_, _, ok = ReadNextNALU(stream, next)
	require.False(t, ok)
}
