package sei

// FrameInfoV1 is the "Dragon FrameInfo" v1 schema: per-frame encoding,
// navigation, and link-quality statistics with no slice map (ground:
// BEAVER_Parrot_DragonFrameInfoV1_t / BEAVER_Parrot_DeserializeDragonFrameInfoV1).
type FrameInfoV1 struct {
	FrameIndex                     uint32
	AcquisitionTsH, AcquisitionTsL uint32
	SystemTsH, SystemTsL           uint32
	BatteryPercentage              uint32
	GpsLatitudeFp20, GpsLongitudeFp20 int32
	GpsAltitudeFp16                 int32
	AbsoluteHeightFp16, RelativeHeightFp16 int32
	XSpeedFp16, YSpeedFp16, ZSpeedFp16 int32
	DistanceFromHomeFp16            uint32
	YawFp16, PitchFp16, RollFp16     int32
	CameraPanFp16, CameraTiltFp16    int32
	WifiRssi                        int32
	WifiMcsRate, WifiTxRate, WifiRxRate uint32
	WifiTxFailRate, WifiTxErrorRate  uint32
	WifiTxFailEventCount             uint32
	VideoStreamingTargetBitrate      uint32
	VideoStreamingDecimation         uint32
	VideoStreamingGopLength          uint32
	VideoStreamingPrevFrameType      int32
	VideoStreamingPrevFrameSize      uint32
	VideoStreamingPrevFrameMseYFp8   uint32
	VideoRecordingPrevFrameType      int32
	VideoRecordingPrevFrameSize      uint32
	VideoRecordingPrevFrameMseYFp8   uint32
	StreamingMonitorTimeInterval     uint32
	StreamingMeanAcqToNetworkTime    uint32
	StreamingAcqToNetworkJitter      uint32
	StreamingMeanNetworkTime         uint32
	StreamingNetworkJitter           uint32
	StreamingBytesSent               uint32
	StreamingMeanPacketSize          uint32
	StreamingPacketSizeStdDev        uint32
	StreamingPacketsSent             uint32
	StreamingBytesDropped            uint32
	StreamingNaluDropped             uint32
	CommandsMaxTimeDeltaOnLastSec    uint32
	PreReprojTimestampDelta          uint32
	PostReprojTimestampDelta         uint32
	PostEeTimestampDelta             uint32
	PostScalingTimestampDelta        uint32
	PostStreamingEncodingTimestampDelta uint32
	PostRecordingEncodingTimestampDelta uint32
	PostNetworkInputTimestampDelta   uint32
	SerialNumberH, SerialNumberL     string
}

const frameInfoV1FieldCount = 55

// frameInfoV1Size is the wire size of the plain (no UUID) FrameInfoV1 body.
const frameInfoV1Size = frameInfoV1FieldCount*4 + 2*(SerialNumberPartLength+1)

func decodeFrameInfoV1Body(payload []byte) (FrameInfoV1, error) {
	if len(payload) < frameInfoV1Size {
		return FrameInfoV1{}, ErrTooShort
	}

	var f FrameInfoV1
	off := 0
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

	f.FrameIndex = next32()
	f.AcquisitionTsH = next32()
	f.AcquisitionTsL = next32()
	f.SystemTsH = next32()
	f.SystemTsL = next32()
	f.BatteryPercentage = next32()
	f.GpsLatitudeFp20 = nextI32()
	f.GpsLongitudeFp20 = nextI32()
	f.GpsAltitudeFp16 = nextI32()
	f.AbsoluteHeightFp16 = nextI32()
	f.RelativeHeightFp16 = nextI32()
	f.XSpeedFp16 = nextI32()
	f.YSpeedFp16 = nextI32()
	f.ZSpeedFp16 = nextI32()
	f.DistanceFromHomeFp16 = next32()
	f.YawFp16 = nextI32()
	f.PitchFp16 = nextI32()
	f.RollFp16 = nextI32()
	f.CameraPanFp16 = nextI32()
	f.CameraTiltFp16 = nextI32()
	f.WifiRssi = nextI32()
	f.WifiMcsRate = next32()
	f.WifiTxRate = next32()
	f.WifiRxRate = next32()
	f.WifiTxFailRate = next32()
	f.WifiTxErrorRate = next32()
	f.WifiTxFailEventCount = next32()
	f.VideoStreamingTargetBitrate = next32()
	f.VideoStreamingDecimation = next32()
	f.VideoStreamingGopLength = next32()
	f.VideoStreamingPrevFrameType = nextI32()
	f.VideoStreamingPrevFrameSize = next32()
	f.VideoStreamingPrevFrameMseYFp8 = next32()
	f.VideoRecordingPrevFrameType = nextI32()
	f.VideoRecordingPrevFrameSize = next32()
	f.VideoRecordingPrevFrameMseYFp8 = next32()
	f.StreamingMonitorTimeInterval = next32()
	f.StreamingMeanAcqToNetworkTime = next32()
	f.StreamingAcqToNetworkJitter = next32()
	f.StreamingMeanNetworkTime = next32()
	f.StreamingNetworkJitter = next32()
	f.StreamingBytesSent = next32()
	f.StreamingMeanPacketSize = next32()
	f.StreamingPacketSizeStdDev = next32()
	f.StreamingPacketsSent = next32()
	f.StreamingBytesDropped = next32()
	f.StreamingNaluDropped = next32()
	f.CommandsMaxTimeDeltaOnLastSec = next32()
	f.PreReprojTimestampDelta = next32()
	f.PostReprojTimestampDelta = next32()
	f.PostEeTimestampDelta = next32()
	f.PostScalingTimestampDelta = next32()
	f.PostStreamingEncodingTimestampDelta = next32()
	f.PostRecordingEncodingTimestampDelta = next32()
	f.PostNetworkInputTimestampDelta = next32()

	f.SerialNumberH = readSerialPart(payload[off : off+SerialNumberPartLength])
	off += SerialNumberPartLength + 1
	f.SerialNumberL = readSerialPart(payload[off : off+SerialNumberPartLength])

	return f, nil
}

// UserDataSeiFrameInfoV1 wraps FrameInfoV1 with its SEI UUID prefix.
type UserDataSeiFrameInfoV1 struct {
	UUID      UUID
	FrameInfo FrameInfoV1
}

// DecodeFrameInfoV1 parses a "Dragon FrameInfo" v1 user-data SEI payload.
func DecodeFrameInfoV1(payload []byte) (UserDataSeiFrameInfoV1, error) {
	if len(payload) < 16 {
		return UserDataSeiFrameInfoV1{}, ErrTooShort
	}
	body, err := decodeFrameInfoV1Body(payload[16:])
	if err != nil {
		return UserDataSeiFrameInfoV1{}, err
	}
	return UserDataSeiFrameInfoV1{UUID: readUUID(payload), FrameInfo: body}, nil
}
