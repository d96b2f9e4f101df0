// Package sei decodes the vendor user-data SEI telemetry carried alongside
// the H.264 bitstream: a 16-byte UUID prefix selects one of a fixed set of
// schemas, each a flat sequence of network-byte-order fields (ground:
// beaver_parrot.c's BEAVER_Parrot_GetUserDataSeiType/Deserialize* family).
package sei

import (
	"encoding/binary"

	"golang.org/x/xerrors"
)

// UUID identifies a user-data SEI schema by its 16-byte prefix.
type UUID [16]byte

// Schema enumerates the recognized user-data SEI payload layouts.
type Schema int

const (
	SchemaUnknown Schema = iota
	SchemaBasicV1
	SchemaBasicV2
	SchemaExtendedV1
	SchemaExtendedV2
	SchemaFrameInfoV1
	SchemaStreamingV1
	SchemaStreamingFrameInfoV1
)

func (s Schema) String() string {
	switch s {
	case SchemaBasicV1:
		return "basic-v1"
	case SchemaBasicV2:
		return "basic-v2"
	case SchemaExtendedV1:
		return "extended-v1"
	case SchemaExtendedV2:
		return "extended-v2"
	case SchemaFrameInfoV1:
		return "frame-info-v1"
	case SchemaStreamingV1:
		return "streaming-v1"
	case SchemaStreamingFrameInfoV1:
		return "streaming-frame-info-v1"
	default:
		return "unknown"
	}
}

var (
	uuidBasicV1              = UUID{0x88, 0x18, 0xb6, 0xd5, 0x4a, 0xff, 0x45, 0xad, 0xba, 0x04, 0xbc, 0x0c, 0xba, 0xe6, 0xa5, 0xfd}
	uuidBasicV2              = UUID{0xf1, 0x43, 0x3a, 0x75, 0xe4, 0x91, 0x4b, 0xf5, 0xaa, 0xdf, 0x45, 0x5d, 0xdf, 0x6a, 0xc0, 0xa8}
	uuidExtendedV1           = UUID{0x5a, 0xac, 0xe9, 0x27, 0x93, 0x3f, 0x41, 0xff, 0xb8, 0x63, 0xaf, 0x7e, 0x61, 0x75, 0x32, 0xcf}
	uuidExtendedV2           = UUID{0x93, 0x7a, 0x50, 0x9b, 0x2f, 0x23, 0x4d, 0xf6, 0x8b, 0xe3, 0x33, 0x05, 0x69, 0xd3, 0xb5, 0xbb}
	uuidFrameInfoV1          = UUID{0x39, 0x91, 0xd0, 0xdf, 0x5a, 0xdf, 0x46, 0xec, 0xbd, 0x68, 0xa7, 0x09, 0x6b, 0xb0, 0x29, 0xa8}
	uuidStreamingV1          = UUID{0x13, 0xdb, 0xcc, 0xc7, 0xc7, 0x20, 0x42, 0xf5, 0xa0, 0xb7, 0xaa, 0xfa, 0xa2, 0xb3, 0xaf, 0x97}
	uuidStreamingFrameInfoV1 = UUID{0xa9, 0x0f, 0x27, 0x08, 0xdc, 0x10, 0x49, 0x3a, 0x9a, 0x34, 0x94, 0xb6, 0xb9, 0xba, 0xb7, 0x5b}

	schemaByUUID = map[UUID]Schema{
		uuidBasicV1:              SchemaBasicV1,
		uuidBasicV2:              SchemaBasicV2,
		uuidExtendedV1:           SchemaExtendedV1,
		uuidExtendedV2:           SchemaExtendedV2,
		uuidFrameInfoV1:          SchemaFrameInfoV1,
		uuidStreamingV1:          SchemaStreamingV1,
		uuidStreamingFrameInfoV1: SchemaStreamingFrameInfoV1,
	}
)

// MaxSliceCount bounds the streaming schema's per-frame slice map, matching
// BEAVER_PARROT_DRAGON_MAX_SLICE_COUNT.
const MaxSliceCount = 128

// SerialNumberPartLength is the byte length of each half of the drone serial
// number carried in the extended schemas.
const SerialNumberPartLength = 9

var (
	ErrTooShort      = xerrors.New("sei: payload too short for schema")
	ErrUnknownSchema = xerrors.New("sei: unrecognized UUID")
	ErrSliceCount    = xerrors.New("sei: slice count exceeds maximum")
)

// IdentifySchema inspects the leading 16 bytes of a user-data SEI payload
// and reports which schema it matches, if any.
func IdentifySchema(payload []byte) (Schema, UUID) {
	if len(payload) < 16 {
		return SchemaUnknown, UUID{}
	}
	var u UUID
	copy(u[:], payload[:16])
	return schemaByUUID[u], u
}

func readUUID(payload []byte) UUID {
	var u UUID
	copy(u[:], payload[:16])
	return u
}

func readU32BE(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func readI32BE(b []byte) int32  { return int32(binary.BigEndian.Uint32(b)) }

func readSerialPart(b []byte) string {
	n := len(b)
	for i, c := range b {
		if c == 0 {
			n = i
			break
		}
	}
	return string(b[:n])
}
