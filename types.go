package kolea

import "github.com/lanikai/kolea/internal/au"

// Cause classifies why SubmitNALU was invoked, mirroring the
// inbound NALU callback `cause` parameter.
type Cause = au.Cause

const (
	CauseNALUComplete       = au.CauseNALUComplete
	CauseNALUBufferTooSmall = au.CauseNALUBufferTooSmall
	CauseNALUCopyComplete   = au.CauseNALUCopyComplete
	CauseCancel             = au.CauseCancel
)

// Timestamps carries the RTP-derived timing of one NALU/access unit.
type Timestamps = au.Timestamps

// SyncType classifies a delivered access unit's role in the decode
// sequence.
type SyncType = au.SyncType

const (
	SyncNone     = au.SyncNone
	SyncIDR      = au.SyncIDR
	SyncIFrame   = au.SyncIFrame
	SyncPIRStart = au.SyncPIRStart
)

// State is the assembler's three-state sync machine (UNSYNCED,
// SYNC_PENDING, SYNCED).
type State = au.State

const (
	StateUnsynced    = au.StateUnsynced
	StateSyncPending = au.StateSyncPending
	StateSynced      = au.StateSynced
)

// ConsumerResult is what a consumer's AUReady callback returns to steer the
// pipeline's sync state.
type ConsumerResult = au.ConsumerResult

const (
	ConsumerOK                  = au.ConsumerOK
	ConsumerResyncRequired      = au.ConsumerResyncRequired
	ConsumerResourceUnavailable = au.ConsumerResourceUnavailable
)

// SPSPPSReadyFunc fires once per sync, when both SPS and PPS have been
// observed .
type SPSPPSReadyFunc func(sps, pps []byte)

// GetAUBufferFunc is called once per access unit a consumer's queue
// delivers, to obtain the destination the pipeline should copy the AU's
// bytes into. userPtr is opaque and is handed back unchanged to AUReady.
type GetAUBufferFunc func() (buf []byte, userPtr interface{}, err error)

// OutputAU is handed to a consumer's AUReadyFunc: the AU's bytes already
// copied into the buffer GetAUBuffer supplied, plus every field
// §6's au_ready callback documents.
type OutputAU struct {
	Buf               []byte
	Timestamp         uint64
	NTPTimestamp      uint64
	NTPTimestampLocal uint64
	SyncType          SyncType
	Incomplete        bool
	Metadata          []byte
	UserData          []byte
	MbStatus          []byte
	UserPtr           interface{}
}

// AUReadyFunc is invoked once per completed access unit delivered to a
// consumer's queue. Returning ConsumerResyncRequired drops the pipeline
// back to SYNC_PENDING and re-arms gray-I seeding if enabled.
type AUReadyFunc func(out *OutputAU) ConsumerResult

// Consumer bundles the outbound callbacks this design defines for one
// registered output queue. GetAUBuffer and AUReady are required; a
// Consumer missing either is silently skipped (its AUs are still released,
// just never delivered) so a caller can register a named queue before it
// has finished wiring its own callbacks.
type Consumer struct {
	GetAUBuffer GetAUBufferFunc
	AUReady     AUReadyFunc
}
