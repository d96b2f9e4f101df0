package sei

// BasicV1 is the "Dragon Basic" v1 schema: frame index, acquisition
// timestamp, and a single previous-frame MSE sample.
type BasicV1 struct {
	UUID             UUID
	FrameIndex       uint32
	AcquisitionTsH   uint32
	AcquisitionTsL   uint32
	PrevMseFp8       uint32
}

// DecodeBasicV1 parses a "Dragon Basic" v1 payload (ground:
// BEAVER_Parrot_DeserializeUserDataSeiDragonBasicV1).
func DecodeBasicV1(payload []byte) (BasicV1, error) {
	const size = 16 + 4*4
	if len(payload) < size {
		return BasicV1{}, ErrTooShort
	}
	return BasicV1{
		UUID:           readUUID(payload),
		FrameIndex:     readU32BE(payload[16:20]),
		AcquisitionTsH: readU32BE(payload[20:24]),
		AcquisitionTsL: readU32BE(payload[24:28]),
		PrevMseFp8:     readU32BE(payload[28:32]),
	}, nil
}

// BasicV2 drops PrevMseFp8 relative to BasicV1.
type BasicV2 struct {
	UUID           UUID
	FrameIndex     uint32
	AcquisitionTsH uint32
	AcquisitionTsL uint32
}

// DecodeBasicV2 parses a "Dragon Basic" v2 payload (ground:
// BEAVER_Parrot_DeserializeUserDataSeiDragonBasicV2).
func DecodeBasicV2(payload []byte) (BasicV2, error) {
	const size = 16 + 3*4
	if len(payload) < size {
		return BasicV2{}, ErrTooShort
	}
	return BasicV2{
		UUID:           readUUID(payload),
		FrameIndex:     readU32BE(payload[16:20]),
		AcquisitionTsH: readU32BE(payload[20:24]),
		AcquisitionTsL: readU32BE(payload[24:28]),
	}, nil
}
