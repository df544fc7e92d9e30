// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

import (
	"errors"
	"io"

	"code.hybscloud.com/msgpack/internal/track"
	"code.hybscloud.com/msgpack/internal/utf8validate"
)

// minReaderBufferSize is the smallest writable buffer a filling Reader can
// use: it must hold any single encoded tag header (9 bytes at most) plus
// slack, matching the writer's minimum.
const minReaderBufferSize = 32

// Reader decodes a stream of MessagePack values from a bounded, reusable
// buffer. A Reader is not safe for concurrent use; exactly one logical
// caller owns an instance at a time.
type Reader struct {
	buf      []byte
	pos      int
	end      int
	writable bool
	fill     FillFunc
	opts     readerOptions
	track    *track.Stack
	err      *Error
}

// NewReader returns a Reader that decodes from buf, refilling it by calling
// fill whenever more bytes are needed. buf starts out empty; its full
// capacity bounds the largest tag header or in-place read the Reader can
// service.
func NewReader(buf []byte, fill FillFunc, opts ...ReaderOption) *Reader {
	o := defaultReaderOptions
	for _, fn := range opts {
		fn(&o)
	}
	r := &Reader{buf: buf, fill: fill, writable: true, opts: o}
	if o.Tracking {
		r.track = &track.Stack{}
	}
	if len(buf) < minReaderBufferSize {
		r.fail(newErr(KindBug))
	}
	return r
}

// NewReaderFromBytes returns a Reader over a complete, already-materialised
// message. No fill is attached: ensure() fails with invalid rather than
// blocking once data runs out, since a truncated blob can never be
// completed.
func NewReaderFromBytes(data []byte, opts ...ReaderOption) *Reader {
	o := defaultReaderOptions
	for _, fn := range opts {
		fn(&o)
	}
	r := &Reader{buf: data, pos: 0, end: len(data), writable: false, opts: o}
	if o.Tracking {
		r.track = &track.Stack{}
	}
	return r
}

// NewReaderFromIO adapts an io.Reader into a Reader's fill callback. buf is
// the Reader's scratch buffer; its capacity bounds the largest tag header
// or in-place read this Reader can service.
func NewReaderFromIO(src io.Reader, buf []byte, opts ...ReaderOption) *Reader {
	return NewReader(buf, func(dst []byte) (int, error) { return src.Read(dst) }, opts...)
}

// UserData returns the opaque value attached via WithReaderUserData, or nil.
func (r *Reader) UserData() any { return r.opts.UserData }

// Err reports the Reader's sticky error, or nil if none has been flagged.
func (r *Reader) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Fail flags the Reader's sticky error with kind if none is already set, and
// returns the resulting error. It lets a layer built on top of ReadTag (such
// as a typed expectation helper) report a semantic mismatch using the same
// sticky-error model the Reader uses internally, without reaching into
// unexported state.
func (r *Reader) Fail(kind ErrKind) error {
	return r.fail(newErr(kind))
}

// extEnabled gates ext/fixext decoding: off when explicitly disabled, and
// off in v4 mode, which predates the ext family entirely.
func (r *Reader) extEnabled() bool {
	return r.opts.Extensions && r.opts.Version != V4
}

func (r *Reader) fail(e *Error) *Error {
	if r.err == nil {
		r.err = e
		if r.opts.OnError != nil {
			r.opts.OnError(e)
		}
	}
	return r.err
}

// Destroy runs the tracking-stack empty check (flagging bug if the document
// was left half-open) and then invokes the teardown callback exactly once.
// It is safe to call Destroy after an error has already been flagged: the
// tracking check and teardown still run, but no further I/O is attempted.
func (r *Reader) Destroy() error {
	if r.err == nil && r.track != nil {
		if err := r.track.CheckEmpty(); err != nil {
			r.fail(wrapErr(KindBug, err))
		}
	}
	if r.opts.Teardown != nil {
		r.opts.Teardown()
	}
	return r.Err()
}

// ensure guarantees at least n unread bytes are available starting at pos,
// compacting and refilling as needed. It is the single choke point every
// tag and in-place byte read goes through.
func (r *Reader) ensure(n int) *Error {
	if r.err != nil {
		return r.err
	}
	if n <= r.end-r.pos {
		return nil
	}
	if !r.writable || r.fill == nil {
		return r.fail(newErr(KindInvalid))
	}
	if n > len(r.buf) {
		return r.fail(newErr(KindTooBig))
	}
	r.compact()
	for r.end-r.pos < n {
		got, err := r.fill(r.buf[r.end:])
		if got > 0 {
			r.end += got
			continue
		}
		if err == nil || err == io.EOF || errors.Is(err, ErrWouldBlock) || errors.Is(err, ErrMore) {
			// A Reader is purely blocking: it has no suspended state to
			// resume from, so even a callback returning one of
			// Tree.TryParse's retry-later signals is fatal here.
			return r.fail(newErr(KindIO))
		}
		return r.fail(wrapErr(KindIO, err))
	}
	return nil
}

// compact moves unread bytes to the start of the buffer, making room at the
// tail for the next fill call.
func (r *Reader) compact() {
	if r.pos == 0 {
		return
	}
	unread := r.end - r.pos
	copy(r.buf, r.buf[r.pos:r.end])
	r.pos = 0
	r.end = unread
}

func asError(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return wrapErr(KindBug, err)
}

// PeekTag returns the next tag without advancing past it or touching the
// tracking stack. It returns NilTag on error.
func (r *Reader) PeekTag() Tag {
	if r.err != nil {
		return NilTag()
	}
	if err := r.ensure(1); err != nil {
		return NilTag()
	}
	first := r.buf[r.pos]
	hlen, ok := headerLen(first)
	if !ok {
		r.fail(newErr(KindInvalid))
		return NilTag()
	}
	if err := r.ensure(hlen); err != nil {
		return NilTag()
	}
	tag, derr := decodeTag(r.buf[r.pos:r.pos+hlen], r.extEnabled())
	if derr != nil {
		r.fail(asError(derr))
		return NilTag()
	}
	return tag
}

// ReadTag returns the next tag and advances past its header. Compound kinds
// push a tracking entry that the matching DoneArray/DoneMap/DoneStr/DoneBin/
// DoneExt call later pops.
func (r *Reader) ReadTag() Tag {
	if r.err != nil {
		return NilTag()
	}
	if err := r.ensure(1); err != nil {
		return NilTag()
	}
	first := r.buf[r.pos]
	hlen, ok := headerLen(first)
	if !ok {
		r.fail(newErr(KindInvalid))
		return NilTag()
	}
	if err := r.ensure(hlen); err != nil {
		return NilTag()
	}
	tag, derr := decodeTag(r.buf[r.pos:r.pos+hlen], r.extEnabled())
	if derr != nil {
		r.fail(asError(derr))
		return NilTag()
	}
	r.pos += hlen
	r.trackElement(tag)
	return tag
}

// trackElement records one element/byte-range consumption against the
// tracking stack (if enabled) for a just-read tag, then pushes a fresh
// entry if the tag itself opens a new compound.
func (r *Reader) trackElement(tag Tag) {
	if r.track == nil {
		return
	}
	if r.track.Len() > 0 {
		if err := r.track.Element(true); err != nil {
			r.fail(wrapErr(KindBug, err))
			return
		}
	}
	switch tag.Kind() {
	case KindArray:
		r.track.Push(track.Array, uint64(tag.Length()))
	case KindMap:
		r.track.Push(track.Map, uint64(tag.Length()))
	case KindStr:
		r.track.Push(track.Str, uint64(tag.Length()))
	case KindBin:
		r.track.Push(track.Bin, uint64(tag.Length()))
	case KindExt:
		r.track.Push(track.Ext, uint64(tag.Length()))
	}
}

func (r *Reader) done(kind track.Kind) {
	if r.err != nil {
		return
	}
	if r.track == nil {
		return
	}
	if err := r.track.Pop(kind); err != nil {
		r.fail(wrapErr(KindBug, err))
	}
}

// DoneArray pops the tracker opened by the array tag just read.
func (r *Reader) DoneArray() { r.done(track.Array) }

// DoneMap pops the tracker opened by the map tag just read.
func (r *Reader) DoneMap() { r.done(track.Map) }

// DoneStr pops the tracker opened by the str tag just read.
func (r *Reader) DoneStr() { r.done(track.Str) }

// DoneBin pops the tracker opened by the bin tag just read.
func (r *Reader) DoneBin() { r.done(track.Bin) }

// DoneExt pops the tracker opened by the ext tag just read.
func (r *Reader) DoneExt() { r.done(track.Ext) }

// Discard reads and skips the next complete value, recursing into
// compound types iteratively via an explicit worklist rather than the Go
// call stack, so a deeply nested but otherwise well-formed document cannot
// exhaust it.
func (r *Reader) Discard() {
	if r.err != nil {
		return
	}
	// frame tracks one open array/map's still-unread child slots (elements
	// for an array, 2*count key/value slots for a map). A frame is popped,
	// via DoneArray/DoneMap, only once left reaches zero, and popping it
	// counts as consuming one slot of whatever frame is now on top — the
	// same left-to-right, depth-first completion order ReadTag's own
	// tracking stack enforces, just driven by an explicit worklist instead
	// of the Go call stack.
	type frame struct {
		kind track.Kind
		left int
	}
	var stack []frame

	closeDone := func() {
		for len(stack) > 0 && stack[len(stack)-1].left == 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch top.kind {
			case track.Array:
				r.DoneArray()
			case track.Map:
				r.DoneMap()
			}
			if r.err != nil {
				return
			}
			if len(stack) > 0 {
				stack[len(stack)-1].left--
			}
		}
	}

	for {
		tag := r.ReadTag()
		if r.err != nil {
			return
		}
		switch tag.Kind() {
		case KindArray:
			stack = append(stack, frame{kind: track.Array, left: int(tag.Length())})
		case KindMap:
			stack = append(stack, frame{kind: track.Map, left: int(tag.Length()) * 2})
		case KindStr:
			r.SkipBytes(int64(tag.Length()))
			r.DoneStr()
			if r.err != nil {
				return
			}
			if len(stack) > 0 {
				stack[len(stack)-1].left--
			}
		case KindBin:
			r.SkipBytes(int64(tag.Length()))
			r.DoneBin()
			if r.err != nil {
				return
			}
			if len(stack) > 0 {
				stack[len(stack)-1].left--
			}
		case KindExt:
			r.SkipBytes(int64(tag.Length()))
			r.DoneExt()
			if r.err != nil {
				return
			}
			if len(stack) > 0 {
				stack[len(stack)-1].left--
			}
		default:
			if len(stack) > 0 {
				stack[len(stack)-1].left--
			}
		}
		closeDone()
		if r.err != nil {
			return
		}
		if len(stack) == 0 {
			return
		}
	}
}

// ReadBytes copies len(dst) bytes into dst, advancing past them and
// tracking the consumption against the open str/bin/ext element.
func (r *Reader) ReadBytes(dst []byte) error {
	if r.err != nil {
		return r.err
	}
	n := len(dst)
	if r.track != nil {
		if err := r.track.Bytes(true, uint64(n)); err != nil {
			return r.fail(wrapErr(KindBug, err))
		}
	}
	avail := r.end - r.pos
	if n <= avail {
		copy(dst, r.buf[r.pos:r.pos+n])
		r.pos += n
		return nil
	}
	if !r.writable || r.fill == nil {
		return r.fail(newErr(KindInvalid))
	}
	// Small-fraction heuristic: a straddling span much smaller than the
	// buffer is cheaper to fetch by refilling the whole buffer and
	// copying out of it; a larger span is cheaper to fill directly into
	// the caller's destination.
	threshold := r.opts.SmallFraction
	if threshold <= 0 {
		threshold = 1
	}
	if n <= len(r.buf)/threshold {
		if err := r.ensure(n); err != nil {
			return err
		}
		copy(dst, r.buf[r.pos:r.pos+n])
		r.pos += n
		return nil
	}
	copy(dst, r.buf[r.pos:r.end])
	got := avail
	r.pos = r.end
	for got < n {
		filled, err := r.fill(dst[got:])
		if filled > 0 {
			got += filled
			continue
		}
		if err == nil || err == io.EOF || errors.Is(err, ErrWouldBlock) || errors.Is(err, ErrMore) {
			return r.fail(newErr(KindIO))
		}
		return r.fail(wrapErr(KindIO, err))
	}
	return nil
}

// ReadBytesInplace returns a slice of length n borrowed directly from the
// Reader's buffer, advancing past it. The slice is valid only until the
// next call on this Reader. Fails with too_big if n exceeds the buffer's
// capacity, or with invalid if no fill is attached and data is truncated.
func (r *Reader) ReadBytesInplace(n int) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if err := r.ensure(n); err != nil {
		return nil, err
	}
	s := r.buf[r.pos : r.pos+n]
	r.pos += n
	if r.track != nil {
		if err := r.track.Bytes(true, uint64(n)); err != nil {
			return nil, r.fail(wrapErr(KindBug, err))
		}
	}
	return s, nil
}

// ReadUTF8 is ReadBytes with an additional well-formed-UTF-8 check, failing
// with type on bad encoding.
func (r *Reader) ReadUTF8(dst []byte) error {
	if err := r.ReadBytes(dst); err != nil {
		return err
	}
	if !utf8validate.Valid(dst) {
		return r.fail(newErr(KindType))
	}
	return nil
}

// ReadUTF8Inplace is ReadBytesInplace with an additional well-formed-UTF-8
// check, failing with type on bad encoding.
func (r *Reader) ReadUTF8Inplace(n int) ([]byte, error) {
	s, err := r.ReadBytesInplace(n)
	if err != nil {
		return nil, err
	}
	if !utf8validate.Valid(s) {
		return nil, r.fail(newErr(KindType))
	}
	return s, nil
}

// ReadCStr copies n bytes into dst and appends a trailing NUL, rejecting
// len(dst) < n+1 with too_big and any embedded NUL byte with type.
func (r *Reader) ReadCStr(dst []byte, n int) error {
	if r.err != nil {
		return r.err
	}
	if len(dst) < n+1 {
		return r.fail(newErr(KindTooBig))
	}
	if err := r.ReadBytes(dst[:n]); err != nil {
		return err
	}
	for _, b := range dst[:n] {
		if b == 0 {
			return r.fail(newErr(KindType))
		}
	}
	dst[n] = 0
	return nil
}

// ReadUTF8CStr is ReadCStr with an additional well-formed-UTF-8 check over
// the n payload bytes (embedded NUL is itself invalid UTF-8-with-no-NUL, so
// both checks collapse into one validator call).
func (r *Reader) ReadUTF8CStr(dst []byte, n int) error {
	if r.err != nil {
		return r.err
	}
	if len(dst) < n+1 {
		return r.fail(newErr(KindTooBig))
	}
	if err := r.ReadBytes(dst[:n]); err != nil {
		return err
	}
	if !utf8validate.ValidNoNUL(dst[:n]) {
		return r.fail(newErr(KindType))
	}
	dst[n] = 0
	return nil
}

// SkipBytes advances past n bytes without copying them anywhere. If a skip
// callback is attached and n is large relative to the buffer size, it
// delegates to that callback; otherwise it discards by repeated fills.
func (r *Reader) SkipBytes(n int64) error {
	if r.err != nil {
		return r.err
	}
	if n < 0 {
		return r.fail(newErr(KindBug))
	}
	threshold := r.opts.SeekThreshold
	if threshold <= 0 {
		threshold = 1
	}
	if r.track != nil {
		if err := r.track.Bytes(true, uint64(n)); err != nil {
			return r.fail(wrapErr(KindBug, err))
		}
	}
	if r.opts.Skip != nil && n > int64(len(r.buf))/int64(threshold) {
		avail := int64(r.end - r.pos)
		if avail >= n {
			r.pos += int(n)
			return nil
		}
		r.pos = r.end
		remaining := n - avail
		if err := r.opts.Skip(remaining); err != nil {
			return r.fail(wrapErr(KindIO, err))
		}
		return nil
	}
	remaining := n
	for remaining > 0 {
		chunk := remaining
		if chunk > int64(len(r.buf)) {
			chunk = int64(len(r.buf))
		}
		if err := r.ensure(int(chunk)); err != nil {
			return err
		}
		r.pos += int(chunk)
		remaining -= chunk
	}
	return nil
}

// ReadTimestamp reads a timestamp extension tag and its body, returning the
// seconds and nanoseconds components. The caller must have already peeked
// or otherwise confirmed the next tag is a timestamp ext; ReadTimestamp
// calls ReadTag itself.
func (r *Reader) ReadTimestamp() (seconds int64, nanoseconds uint32, err error) {
	tag := r.ReadTag()
	if r.err != nil {
		return 0, 0, r.err
	}
	if tag.Kind() != KindExt || tag.ExtType() != TimestampExtType {
		return 0, 0, r.fail(newErr(KindType))
	}
	body, berr := r.ReadBytesInplace(int(tag.Length()))
	if berr != nil {
		return 0, 0, berr
	}
	seconds, nanoseconds, derr := decodeTimestamp(body)
	if derr != nil {
		return 0, 0, r.fail(asError(derr))
	}
	r.DoneExt()
	return seconds, nanoseconds, nil
}
