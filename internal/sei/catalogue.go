package sei

// Decoded holds a user-data SEI payload's schema tag alongside whichever of
// the typed structs matched it. Only one of the typed fields is set,
// selected by Schema.
type Decoded struct {
	Schema                Schema
	Basic                 *BasicV1
	BasicV2                *BasicV2
	Extended              *ExtendedV1
	ExtendedV2             *ExtendedV2
	FrameInfo              *UserDataSeiFrameInfoV1
	Streaming              *UserDataSeiStreamingV1
	StreamingFrameInfo     *UserDataSeiStreamingFrameInfoV1
}

// Decode identifies and parses a user-data SEI payload. Unrecognized UUIDs
// are reported as SchemaUnknown with a nil Decoded payload, matching
// BEAVER_Parrot_GetUserDataSeiType's pass-through-opaquely contract: the
// caller keeps the raw bytes and ignores Decode's result.
func Decode(payload []byte) (Decoded, error) {
	schema, _ := IdentifySchema(payload)

	switch schema {
	case SchemaBasicV1:
		v, err := DecodeBasicV1(payload)
		return Decoded{Schema: schema, Basic: &v}, err
	case SchemaBasicV2:
		v, err := DecodeBasicV2(payload)
		return Decoded{Schema: schema, BasicV2: &v}, err
	case SchemaExtendedV1:
		v, err := DecodeExtendedV1(payload)
		return Decoded{Schema: schema, Extended: &v}, err
	case SchemaExtendedV2:
		v, err := DecodeExtendedV2(payload)
		return Decoded{Schema: schema, ExtendedV2: &v}, err
	case SchemaFrameInfoV1:
		v, err := DecodeFrameInfoV1(payload)
		return Decoded{Schema: schema, FrameInfo: &v}, err
	case SchemaStreamingV1:
		v, err := DecodeStreamingV1(payload)
		return Decoded{Schema: schema, Streaming: &v}, err
	case SchemaStreamingFrameInfoV1:
		v, err := DecodeStreamingFrameInfoV1(payload)
		return Decoded{Schema: schema, StreamingFrameInfo: &v}, err
	default:
		return Decoded{Schema: SchemaUnknown}, ErrUnknownSchema
	}
}
