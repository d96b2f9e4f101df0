package sei

import "encoding/binary"

// StreamingV1 is the "Dragon Streaming" v1 schema: this frame's position in
// its GOP and the per-slice macroblock counts the access-unit assembler
// uses to detect and size missing slices (ground:
// BEAVER_Parrot_DragonStreamingV1_t / BEAVER_Parrot_DeserializeDragonStreamingV1).
type StreamingV1 struct {
	IndexInGop   uint8
	SliceMbCount []uint16
}

// SliceCount reports the frame's slice count as carried on the wire.
func (s StreamingV1) SliceCount() int { return len(s.SliceMbCount) }

func decodeStreamingV1Body(payload []byte) (StreamingV1, []byte, error) {
	if len(payload) < 2 {
		return StreamingV1{}, nil, ErrTooShort
	}
	indexInGop := payload[0]
	sliceCount := int(payload[1])
	if sliceCount > MaxSliceCount {
		return StreamingV1{}, nil, ErrSliceCount
	}
	need := 2 + sliceCount*2
	if len(payload) < need {
		return StreamingV1{}, nil, ErrTooShort
	}

	mbCount := make([]uint16, sliceCount)
	for i := 0; i < sliceCount; i++ {
		mbCount[i] = binary.BigEndian.Uint16(payload[2+2*i : 4+2*i])
	}
	return StreamingV1{IndexInGop: indexInGop, SliceMbCount: mbCount}, payload[need:], nil
}

// UserDataSeiStreamingV1 wraps StreamingV1 with its SEI UUID prefix.
type UserDataSeiStreamingV1 struct {
	UUID      UUID
	Streaming StreamingV1
}

// DecodeStreamingV1 parses a "Dragon Streaming" v1 user-data SEI payload.
func DecodeStreamingV1(payload []byte) (UserDataSeiStreamingV1, error) {
	if len(payload) < 16 {
		return UserDataSeiStreamingV1{}, ErrTooShort
	}
	s, _, err := decodeStreamingV1Body(payload[16:])
	if err != nil {
		return UserDataSeiStreamingV1{}, err
	}
	return UserDataSeiStreamingV1{UUID: readUUID(payload), Streaming: s}, nil
}

// UserDataSeiStreamingFrameInfoV1 concatenates the frame-info and streaming
// schemas under one UUID (ground:
// BEAVER_Parrot_UserDataSeiDragonStreamingFrameInfoV1_t).
type UserDataSeiStreamingFrameInfoV1 struct {
	UUID      UUID
	FrameInfo FrameInfoV1
	Streaming StreamingV1
}

// DecodeStreamingFrameInfoV1 parses a "Dragon Streaming FrameInfo" v1
// payload: frame-info fields immediately followed by the streaming slice
// map, both behind a single UUID prefix.
func DecodeStreamingFrameInfoV1(payload []byte) (UserDataSeiStreamingFrameInfoV1, error) {
	if len(payload) < 16 {
		return UserDataSeiStreamingFrameInfoV1{}, ErrTooShort
	}
	rest := payload[16:]

	frameInfo, err := decodeFrameInfoV1Body(rest)
	if err != nil {
		return UserDataSeiStreamingFrameInfoV1{}, err
	}
	rest = rest[frameInfoV1Size:]

	streaming, _, err := decodeStreamingV1Body(rest)
	if err != nil {
		return UserDataSeiStreamingFrameInfoV1{}, err
	}

	return UserDataSeiStreamingFrameInfoV1{
		UUID:      readUUID(payload),
		FrameInfo: frameInfo,
		Streaming: streaming,
	}, nil
}

// EncodeStreamingV1 serializes a StreamingV1 payload with its UUID prefix
// (ground: BEAVER_Parrot_SerializeUserDataSeiDragonStreamingV1), used by
// tests and by any synthetic-telemetry producer exercising the same wire
// format the assembler consumes.
func EncodeStreamingV1(s StreamingV1) []byte {
	buf := make([]byte, 16+2+2*len(s.SliceMbCount))
	copy(buf[:16], uuidStreamingV1[:])
	buf[16] = s.IndexInGop
	buf[17] = byte(len(s.SliceMbCount))
	for i, mb := range s.SliceMbCount {
		binary.BigEndian.PutUint16(buf[18+2*i:20+2*i], mb)
	}
	return buf
}
