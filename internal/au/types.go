// Package au implements the access-unit assembler and loss-concealment
// filter: the state machine that groups NAL units arriving one at a time
// from the RTP layer into access units, detects gaps using per-frame
// streaming metadata, synthesizes replacement slices to cover them, and
// enqueues complete AUs onto an internal/pool.AUFIFO (ground:
// arstream2_h264_filter.c's ARSTREAM2_H264Filter_*Callback family).
package au

import "golang.org/x/xerrors"

// Cause classifies why HandleNALU was invoked, mirroring the inbound
// callback's `cause` parameter from the inbound callback contract.
type Cause int

const (
	CauseNALUComplete Cause = iota
	CauseNALUBufferTooSmall
	CauseNALUCopyComplete
	CauseCancel
)

// Timestamps carries the RTP-derived timing of one access unit. Ts is the
// 64-bit extended RTP timestamp (already unwrapped by the caller, per
// this package's 32-bit-wraparound rule). Gray-I backdating is applied to the
// seeded AU's own timestamp, not to this struct.
type Timestamps struct {
	Ts        uint64
	NTPTs     uint64
	NTPTsLocal uint64
}

// SyncType classifies an access unit's role in the decode sequence.
type SyncType int

const (
	SyncNone SyncType = iota
	SyncIDR
	SyncIFrame
	SyncPIRStart
)

func (s SyncType) String() string {
	switch s {
	case SyncIDR:
		return "IDR"
	case SyncIFrame:
		return "I-FRAME"
	case SyncPIRStart:
		return "PIR-START"
	default:
		return "NONE"
	}
}

// State is the assembler's three-state sync machine.
type State int

const (
	StateUnsynced State = iota
	StateSyncPending
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateSyncPending:
		return "SYNC_PENDING"
	case StateSynced:
		return "SYNCED"
	default:
		return "UNSYNCED"
	}
}

var (
	// ErrResyncRequired is returned internally when a consumer demands a
	// restart; the assembler drops back to SYNC_PENDING.
	ErrResyncRequired = xerrors.New("au: resync required")
	// ErrQueueFull surfaces pool exhaustion at enqueue time.
	ErrQueueFull = xerrors.New("au: pool exhausted, AU dropped")
)

// ConsumerResult is what an AUReady callback returns to steer the
// assembler's state.
type ConsumerResult int

const (
	ConsumerOK ConsumerResult = iota
	ConsumerResyncRequired
	ConsumerResourceUnavailable
)

// Config carries every option from this package's configuration table.
type Config struct {
	WaitForSync                bool
	OutputIncompleteAU          bool
	FilterOutSPSPPS             bool
	FilterOutSEI                bool
	ReplaceStartCodesWithNALUSize bool
	GenerateSkippedPSlices      bool
	GenerateFirstGrayIFrame     bool

	MaxPacketSize       int
	MaxBitrate          int
	MaxLatencyMS        int
	MaxNetworkLatencyMS int
}
