package kolea

import (
	"github.com/pkg/errors"
	"golang.org/x/xerrors"
)

// ErrorKind classifies the errors this package's public API surfaces.
type ErrorKind int

const (
	// ErrorKindBadParameters is an invalid argument to a public API call.
	ErrorKindBadParameters ErrorKind = iota
	// ErrorKindAlloc is a pool or buffer allocation failure.
	ErrorKindAlloc
	// ErrorKindBusy is Stop() called before a prior Stop() finished.
	ErrorKindBusy
	// ErrorKindQueueFull is pool exhaustion at enqueue time.
	ErrorKindQueueFull
	// ErrorKindWaitingForSync is a read issued before SPS/PPS was observed.
	ErrorKindWaitingForSync
	// ErrorKindResyncRequired is internal: a consumer asked for a restart.
	ErrorKindResyncRequired
	// ErrorKindResourceUnavailable is internal: GetAUBuffer had none to give.
	ErrorKindResourceUnavailable
	// ErrorKindInvalidState is a method call not valid in the pipeline's
	// current lifecycle state.
	ErrorKindInvalidState
	// ErrorKindUnsupported is the writer being asked to emit a bitstream
	// feature it does not implement (e.g. a CABAC skipped-P slice).
	ErrorKindUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindBadParameters:
		return "BAD_PARAMETERS"
	case ErrorKindAlloc:
		return "ALLOC"
	case ErrorKindBusy:
		return "BUSY"
	case ErrorKindQueueFull:
		return "QUEUE_FULL"
	case ErrorKindWaitingForSync:
		return "WAITING_FOR_SYNC"
	case ErrorKindResyncRequired:
		return "RESYNC_REQUIRED"
	case ErrorKindResourceUnavailable:
		return "RESOURCE_UNAVAILABLE"
	case ErrorKindInvalidState:
		return "INVALID_STATE"
	case ErrorKindUnsupported:
		return "UNSUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// Error is the concrete error type every kolea public API call returns,
// pairing an ErrorKind with whatever underlying error (if any) caused it.
type Error struct {
	Kind  ErrorKind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return xerrors.Errorf("%s: %w", e.Kind, e.cause).Error()
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// badParameters builds a BAD_PARAMETERS error from a formatted message,
// matching media/registry.go's errors.Errorf use of github.com/pkg/errors
// for construction without an existing cause to wrap.
func badParameters(format string, a ...interface{}) *Error {
	return newError(ErrorKindBadParameters, errors.Errorf(format, a...))
}

var (
	// ErrBusy is returned by Stop when a previous Stop call is still
	// in flight.
	ErrBusy = &Error{Kind: ErrorKindBusy}
	// ErrInvalidState is returned when a method is called out of order
	// (e.g. SubmitNALU before Start, or Start twice).
	ErrInvalidState = &Error{Kind: ErrorKindInvalidState}
)
