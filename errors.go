// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrKind classifies why a Reader, Writer, or Tree operation failed. Once
// an instance flags a non-ok ErrKind it is sticky: every subsequent public
// method is a no-op that returns a zero/empty/sentinel value.
//
// This is a distinct type from Tag/Node's Kind (which variant of
// MessagePack value a tag or node carries); the two are unrelated
// classifications.
type ErrKind uint8

const (
	// KindOK means no error has been flagged.
	KindOK ErrKind = iota

	// KindIO means a fill, flush, or skip callback failed, or returned 0
	// bytes where the blocking protocol requires progress.
	KindIO

	// KindInvalid means the input is not well-formed MessagePack: a
	// reserved type byte (0xc1), a truncated message read from a
	// fill-less reader/tree, overlong or surrogate UTF-8, or an
	// out-of-range timestamp.
	KindInvalid

	// KindUnsupported means the byte is a valid MessagePack type code but
	// this build has that feature (extensions) disabled.
	KindUnsupported

	// KindType means a value did not match what the caller expected: the
	// wrong tag variant, an integer outside the requested width, a string
	// containing an embedded NUL where disallowed, or non-UTF-8 bytes
	// where UTF-8 was required.
	KindType

	// KindTooBig means a declared or requested size exceeds a buffer,
	// pool, or configured limit.
	KindTooBig

	// KindMemory means a dynamic allocation failed.
	KindMemory

	// KindBug means the API was misused: a tracking pop of the wrong
	// kind, an unbalanced element/byte count, writing a missing tag, or
	// attaching a fill function to a non-writable buffer.
	KindBug

	// KindData means a node lookup was semantically rejected by the
	// caller: a duplicate map key or an out-of-range array index.
	KindData

	// KindEOF classifies a blocking fill that reached a clean end of input.
	// The Reader and Tree in this package report such a fill as KindIO;
	// KindEOF is flagged only by callers, through Reader.Fail.
	KindEOF
)

func (k ErrKind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindIO:
		return "io"
	case KindInvalid:
		return "invalid"
	case KindUnsupported:
		return "unsupported"
	case KindType:
		return "type"
	case KindTooBig:
		return "too_big"
	case KindMemory:
		return "memory"
	case KindBug:
		return "bug"
	case KindData:
		return "data"
	case KindEOF:
		return "eof"
	default:
		return "unknown"
	}
}

// Error wraps an ErrKind with an optional underlying cause (typically an
// I/O error surfaced by a caller-supplied fill/flush/skip callback).
type Error struct {
	Kind  ErrKind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("msgpack: %s: %v", e.Kind, e.Cause)
	}
	return "msgpack: " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(k ErrKind) *Error               { return &Error{Kind: k} }
func wrapErr(k ErrKind, cause error) *Error { return &Error{Kind: k, Cause: cause} }

// ErrInvalidArgument is a sentinel for an invalid configuration. No function
// in this package returns it: a nil fill callback is reported as KindInvalid
// and a nil flush callback as KindTooBig, once more data or room is needed.
var ErrInvalidArgument = errors.New("msgpack: invalid argument")

// These are provided as package-level aliases so callers can recognize the
// non-blocking control-flow signals without importing iox directly. Only
// Tree.TryParse treats a zero-byte fill carrying one of these as "no data
// yet": it suspends and leaves the Tree InProgress for the caller to retry.
// A Reader or Writer has no state to resume, so a fill or flush callback
// returning one of these there flags KindIO.
var (
	// ErrWouldBlock means a fill/flush callback made no progress right now.
	// Any byte count returned alongside it is still real, already-applied
	// progress.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrMore means a streaming fill delivered a partial, usable chunk and
	// additional chunks are expected from the same logical read.
	ErrMore = iox.ErrMore
)
