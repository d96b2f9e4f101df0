package sei

// ExtendedV1 is the "Dragon Extended" v1 schema: BasicV1's fields plus
// attitude, navigation, and link-quality telemetry, terminated by a
// two-part drone serial number.
type ExtendedV1 struct {
	UUID                                UUID
	FrameIndex                          uint32
	AcquisitionTsH, AcquisitionTsL       uint32
	PrevMseFp8                          uint32
	BatteryPercentage                   uint32
	LatitudeFp20, LongitudeFp20         int32
	AltitudeFp16                        int32
	AbsoluteHeightFp16, RelativeHeightFp16 int32
	XSpeedFp16, YSpeedFp16, ZSpeedFp16  int32
	DistanceFp16                        uint32
	HeadingFp16, YawFp16, PitchFp16, RollFp16 int32
	CameraPanFp16, CameraTiltFp16       int32
	VideoStreamingTargetBitrate         uint32
	WifiRssi                            int32
	WifiMcsRate, WifiTxRate, WifiRxRate uint32
	WifiTxFailRate, WifiTxErrorRate     uint32
	PostReprojTimestampDelta            uint32
	PostEeTimestampDelta                uint32
	PostScalingTimestampDelta           uint32
	PostStreamingEncodingTimestampDelta uint32
	PostNetworkInputTimestampDelta      uint32
	SystemTsH, SystemTsL                uint32
	SerialNumberH, SerialNumberL        string
}

// DecodeExtendedV1 parses a "Dragon Extended" v1 payload (ground:
// BEAVER_Parrot_DeserializeUserDataSeiDragonExtendedV1).
func DecodeExtendedV1(payload []byte) (ExtendedV1, error) {
	const fixedFieldCount = 34
	const serialBlock = 2 * (SerialNumberPartLength + 1)
	const size = 16 + fixedFieldCount*4 + serialBlock
	if len(payload) < size {
		return ExtendedV1{}, ErrTooShort
	}

	var e ExtendedV1
	e.UUID = readUUID(payload)
	off := 16

	next32 := func() uint32 {
		v := readU32BE(payload[off : off+4])
		off += 4
		return v
	}
	nextI32 := func() int32 {
		v := readI32BE(payload[off : off+4])
		off += 4
		return v
	}

	e.FrameIndex = next32()
	e.AcquisitionTsH = next32()
	e.AcquisitionTsL = next32()
	e.PrevMseFp8 = next32()
	e.BatteryPercentage = next32()
	e.LatitudeFp20 = nextI32()
	e.LongitudeFp20 = nextI32()
	e.AltitudeFp16 = nextI32()
	e.AbsoluteHeightFp16 = nextI32()
	e.RelativeHeightFp16 = nextI32()
	e.XSpeedFp16 = nextI32()
	e.YSpeedFp16 = nextI32()
	e.ZSpeedFp16 = nextI32()
	e.DistanceFp16 = next32()
	e.HeadingFp16 = nextI32()
	e.YawFp16 = nextI32()
	e.PitchFp16 = nextI32()
	e.RollFp16 = nextI32()
	e.CameraPanFp16 = nextI32()
	e.CameraTiltFp16 = nextI32()
	e.VideoStreamingTargetBitrate = next32()
	e.WifiRssi = nextI32()
	e.WifiMcsRate = next32()
	e.WifiTxRate = next32()
	e.WifiRxRate = next32()
	e.WifiTxFailRate = next32()
	e.WifiTxErrorRate = next32()
	e.PostReprojTimestampDelta = next32()
	e.PostEeTimestampDelta = next32()
	e.PostScalingTimestampDelta = next32()
	e.PostStreamingEncodingTimestampDelta = next32()
	e.PostNetworkInputTimestampDelta = next32()
	e.SystemTsH = next32()
	e.SystemTsL = next32()

	e.SerialNumberH = readSerialPart(payload[off : off+SerialNumberPartLength])
	off += SerialNumberPartLength + 1
	e.SerialNumberL = readSerialPart(payload[off : off+SerialNumberPartLength])

	return e, nil
}

// ExtendedV2 replaces ExtendedV1's single encoder/link snapshot with
// separate streaming and recording encoder stats, plus aggregate network
// jitter counters.
type ExtendedV2 struct {
	UUID                                UUID
	FrameIndex                          uint32
	AcquisitionTsH, AcquisitionTsL       uint32
	BatteryPercentage                   uint32
	LatitudeFp20, LongitudeFp20         int32
	AltitudeFp16                        int32
	AbsoluteHeightFp16, RelativeHeightFp16 int32
	XSpeedFp16, YSpeedFp16, ZSpeedFp16  int32
	DistanceFp16                        uint32
	YawFp16, PitchFp16, RollFp16        int32
	CameraPanFp16, CameraTiltFp16       int32
	VideoStreamingTargetBitrate         uint32
	VideoStreamingDecimation            uint32
	VideoStreamingGopLength             uint32
	VideoStreamingPrevFrameType         int32
	VideoStreamingPrevFrameSize         uint32
	VideoStreamingPrevFrameMseYFp8      uint32
	VideoRecordingPrevFrameType         int32
	VideoRecordingPrevFrameSize         uint32
	VideoRecordingPrevFrameMseYFp8      uint32
	WifiRssi                            int32
	WifiMcsRate, WifiTxRate, WifiRxRate uint32
	WifiTxFailRate, WifiTxErrorRate     uint32
	PreReprojTimestampDelta             uint32
	PostReprojTimestampDelta            uint32
	PostEeTimestampDelta                uint32
	PostScalingTimestampDelta           uint32
	PostStreamingEncodingTimestampDelta uint32
	PostRecordingEncodingTimestampDelta uint32
	PostNetworkInputTimestampDelta      uint32
	SystemTsH, SystemTsL                uint32
	StreamingMonitorTimeInterval        uint32
	StreamingMeanAcqToNetworkTime       uint32
	StreamingAcqToNetworkJitter         uint32
	StreamingMeanNetworkTime            uint32
	StreamingNetworkJitter              uint32
	StreamingBytesSent                  uint32
	StreamingMeanPacketSize             uint32
	StreamingPacketSizeStdDev           uint32
	StreamingPacketsSent                uint32
	StreamingBytesDropped               uint32
	StreamingNaluDropped                uint32
	SerialNumberH, SerialNumberL        string
}

// DecodeExtendedV2 parses a "Dragon Extended" v2 payload (ground:
// BEAVER_Parrot_DeserializeUserDataSeiDragonExtendedV2).
func DecodeExtendedV2(payload []byte) (ExtendedV2, error) {
	const fixedFieldCount = 53
	const serialBlock = 2 * (SerialNumberPartLength + 1)
	const size = 16 + fixedFieldCount*4 + serialBlock
	if len(payload) < size {
		return ExtendedV2{}, ErrTooShort
	}

	var e ExtendedV2
	e.UUID = readUUID(payload)
	off := 16

	next32 := func() uint32 {
		v := readU32BE(payload[off : off+4])
		off += 4
		return v
	}
	nextI32 := func() int32 {
		v := readI32BE(payload[off : off+4])
		off += 4
		return v
	}

	e.FrameIndex = next32()
	e.AcquisitionTsH = next32()
	e.AcquisitionTsL = next32()
	e.BatteryPercentage = next32()
	e.LatitudeFp20 = nextI32()
	e.LongitudeFp20 = nextI32()
	e.AltitudeFp16 = nextI32()
	e.AbsoluteHeightFp16 = nextI32()
	e.RelativeHeightFp16 = nextI32()
	e.XSpeedFp16 = nextI32()
	e.YSpeedFp16 = nextI32()
	e.ZSpeedFp16 = nextI32()
	e.DistanceFp16 = next32()
	e.YawFp16 = nextI32()
	e.PitchFp16 = nextI32()
	e.RollFp16 = nextI32()
	e.CameraPanFp16 = nextI32()
	e.CameraTiltFp16 = nextI32()
	e.VideoStreamingTargetBitrate = next32()
	e.VideoStreamingDecimation = next32()
	e.VideoStreamingGopLength = next32()
	e.VideoStreamingPrevFrameType = nextI32()
	e.VideoStreamingPrevFrameSize = next32()
	e.VideoStreamingPrevFrameMseYFp8 = next32()
	e.VideoRecordingPrevFrameType = nextI32()
	e.VideoRecordingPrevFrameSize = next32()
	e.VideoRecordingPrevFrameMseYFp8 = next32()
	e.WifiRssi = nextI32()
	e.WifiMcsRate = next32()
	e.WifiTxRate = next32()
	e.WifiRxRate = next32()
	e.WifiTxFailRate = next32()
	e.WifiTxErrorRate = next32()
	e.PreReprojTimestampDelta = next32()
	e.PostReprojTimestampDelta = next32()
	e.PostEeTimestampDelta = next32()
	e.PostScalingTimestampDelta = next32()
	e.PostStreamingEncodingTimestampDelta = next32()
	e.PostRecordingEncodingTimestampDelta = next32()
	e.PostNetworkInputTimestampDelta = next32()
	e.SystemTsH = next32()
	e.SystemTsL = next32()
	e.StreamingMonitorTimeInterval = next32()
	e.StreamingMeanAcqToNetworkTime = next32()
	e.StreamingAcqToNetworkJitter = next32()
	e.StreamingMeanNetworkTime = next32()
	e.StreamingNetworkJitter = next32()
	e.StreamingBytesSent = next32()
	e.StreamingMeanPacketSize = next32()
	e.StreamingPacketSizeStdDev = next32()
	e.StreamingPacketsSent = next32()
	e.StreamingBytesDropped = next32()
	e.StreamingNaluDropped = next32()

	e.SerialNumberH = readSerialPart(payload[off : off+SerialNumberPartLength])
	off += SerialNumberPartLength + 1
	e.SerialNumberL = readSerialPart(payload[off : off+SerialNumberPartLength])

	return e, nil
}
