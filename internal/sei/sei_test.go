package sei

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentifySchemaStreaming(t *testing.T) {
	payload := EncodeStreamingV1(StreamingV1{IndexInGop: 0, SliceMbCount: []uint16{100, 100}})
	schema, uuid := IdentifySchema(payload)
	require.Equal(t, SchemaStreamingV1, schema)
	require.Equal(t, uuidStreamingV1, uuid)
}

func TestIdentifySchemaUnknown(t *testing.T) {
	payload := make([]byte, 16)
	schema, _ := IdentifySchema(payload)
	require.Equal(t, SchemaUnknown, schema)
}

func TestDecodeStreamingV1RoundTrip(t *testing.T) {
	want := StreamingV1{IndexInGop: 3, SliceMbCount: []uint16{100, 100, 100, 100, 96}}
	payload := EncodeStreamingV1(want)

	decoded, err := DecodeStreamingV1(payload)
	require.NoError(t, err)
	require.Equal(t, uuidStreamingV1, decoded.UUID)
	require.Equal(t, want.IndexInGop, decoded.Streaming.IndexInGop)
	require.Equal(t, want.SliceMbCount, decoded.Streaming.SliceMbCount)
	require.Equal(t, 5, decoded.Streaming.SliceCount())
}

func TestDecodeStreamingV1RejectsExcessiveSliceCount(t *testing.T) {
	payload := make([]byte, 18)
	copy(payload[:16], uuidStreamingV1[:])
	payload[17] = MaxSliceCount + 1
	_, err := DecodeStreamingV1(payload)
	require.ErrorIs(t, err, ErrSliceCount)
}

func TestDecodeStreamingV1RejectsShortPayload(t *testing.T) {
	payload := make([]byte, 17)
	copy(payload[:16], uuidStreamingV1[:])
	payload[16] = 0
	// sliceCount byte is entirely missing
	_, err := DecodeStreamingV1(payload)
	require.ErrorIs(t, err, ErrTooShort)
}

func buildBasicV1(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, 16+4*4)
	copy(buf[:16], uuidBasicV1[:])
	binary.BigEndian.PutUint32(buf[16:20], 42)    // frameIndex
	binary.BigEndian.PutUint32(buf[20:24], 1)     // acquisitionTsH
	binary.BigEndian.PutUint32(buf[24:28], 2)     // acquisitionTsL
	binary.BigEndian.PutUint32(buf[28:32], 0xFF)  // prevMse_fp8
	return buf
}

func TestDecodeBasicV1(t *testing.T) {
	buf := buildBasicV1(t)
	v, err := DecodeBasicV1(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(42), v.FrameIndex)
	require.Equal(t, uint32(0xFF), v.PrevMseFp8)
}

func TestDecodeDispatchesBasicV1(t *testing.T) {
	buf := buildBasicV1(t)
	decoded, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, SchemaBasicV1, decoded.Schema)
	require.NotNil(t, decoded.Basic)
	require.Equal(t, uint32(42), decoded.Basic.FrameIndex)
}

func TestDecodeUnknownUUID(t *testing.T) {
	buf := make([]byte, 32)
	_, err := Decode(buf)
	require.ErrorIs(t, err, ErrUnknownSchema)
}

func buildExtendedV1(t *testing.T) []byte {
	t.Helper()
	const fixedFieldCount = 34
	buf := make([]byte, 16+fixedFieldCount*4+2*(SerialNumberPartLength+1))
	copy(buf[:16], uuidExtendedV1[:])
	off := 16
	for i := 0; i < fixedFieldCount; i++ {
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(i))
		off += 4
	}
	copy(buf[off:], []byte("ABCDEFGHI"))
	off += SerialNumberPartLength + 1
	copy(buf[off:], []byte("123456789"))
	return buf
}

func TestDecodeExtendedV1(t *testing.T) {
	buf := buildExtendedV1(t)
	v, err := DecodeExtendedV1(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(0), v.FrameIndex)
	require.Equal(t, uint32(1), v.AcquisitionTsH)
	require.Equal(t, "ABCDEFGHI", v.SerialNumberH)
	require.Equal(t, "123456789", v.SerialNumberL)
}

func TestDecodeExtendedV1TooShort(t *testing.T) {
	_, err := DecodeExtendedV1(make([]byte, 20))
	require.ErrorIs(t, err, ErrTooShort)
}

func TestDecodeStreamingFrameInfoV1(t *testing.T) {
	frameInfoBody := make([]byte, frameInfoV1Size)
	streamingBody := EncodeStreamingV1(StreamingV1{IndexInGop: 1, SliceMbCount: []uint16{50, 50}})[16:]

	payload := make([]byte, 0, 16+len(frameInfoBody)+len(streamingBody))
	payload = append(payload, uuidStreamingFrameInfoV1[:]...)
	payload = append(payload, frameInfoBody...)
	payload = append(payload, streamingBody...)

	decoded, err := DecodeStreamingFrameInfoV1(payload)
	require.NoError(t, err)
	require.Equal(t, uint8(1), decoded.Streaming.IndexInGop)
	require.Equal(t, []uint16{50, 50}, decoded.Streaming.SliceMbCount)
}
