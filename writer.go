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

// minWriterBufferSize is the smallest buffer a flushing Writer can use: it
// must hold the largest fixstr payload (31 bytes) together with any tag
// header.
const minWriterBufferSize = 32

// Writer encodes a stream of MessagePack values into a bounded, reusable
// buffer, flushing through a caller-supplied callback whenever it fills. A
// Writer is not safe for concurrent use; exactly one logical caller owns
// an instance at a time.
type Writer struct {
	buf      []byte
	used     int
	flush    FlushFunc
	growable bool
	opts     writerOptions
	track    *track.Stack
	err      *Error
}

// NewWriter returns a Writer that encodes into buf, flushing full contents
// to flush whenever more room is needed. len(buf) must be at least
// minWriterBufferSize.
func NewWriter(buf []byte, flush FlushFunc, opts ...WriterOption) *Writer {
	o := defaultWriterOptions
	for _, fn := range opts {
		fn(&o)
	}
	w := &Writer{buf: buf, flush: flush, opts: o}
	if o.Tracking {
		w.track = &track.Stack{}
	}
	if len(buf) < minWriterBufferSize {
		w.fail(newErr(KindBug))
	}
	return w
}

// NewGrowableWriter returns a Writer with no flush callback: instead of
// handing filled data to a sink, it grows its own buffer (at least
// doubling) whenever more room is needed. Call Bytes after Destroy to take
// ownership of the final, right-sized allocation.
func NewGrowableWriter(initialCap int, opts ...WriterOption) *Writer {
	o := defaultWriterOptions
	for _, fn := range opts {
		fn(&o)
	}
	if initialCap < minWriterBufferSize {
		initialCap = minWriterBufferSize
	}
	w := &Writer{buf: make([]byte, initialCap), growable: true, opts: o}
	if o.Tracking {
		w.track = &track.Stack{}
	}
	return w
}

// NewWriterToIO adapts an io.Writer into a Writer's flush callback.
func NewWriterToIO(dst io.Writer, buf []byte, opts ...WriterOption) *Writer {
	return NewWriter(buf, func(p []byte) error {
		_, err := dst.Write(p)
		return err
	}, opts...)
}

// UserData returns the opaque value attached via WithWriterUserData, or nil.
func (w *Writer) UserData() any { return w.opts.UserData }

// Err reports the Writer's sticky error, or nil if none has been flagged.
func (w *Writer) Err() error {
	if w.err == nil {
		return nil
	}
	return w.err
}

func (w *Writer) fail(e *Error) *Error {
	if w.err == nil {
		w.err = e
		if w.opts.OnError != nil {
			w.opts.OnError(e)
		}
	}
	return w.err
}

// Destroy flushes any pending bytes (flushing variant), runs the
// tracking-stack empty check, and invokes the teardown callback exactly
// once. If an error was already flagged, the final flush and tracking
// check are both skipped.
func (w *Writer) Destroy() error {
	if w.err == nil {
		if !w.growable && w.flush != nil && w.used > 0 {
			if err := w.flush(w.buf[:w.used]); err != nil {
				w.fail(wrapErr(KindIO, err))
			} else {
				w.used = 0
			}
		}
		if w.err == nil && w.track != nil {
			if err := w.track.CheckEmpty(); err != nil {
				w.fail(wrapErr(KindBug, err))
			}
		}
	}
	if w.opts.Teardown != nil {
		w.opts.Teardown()
	}
	return w.Err()
}

// Bytes returns the accumulated message of a growable Writer. If the final
// buffer is less than half used, it is copied down to an exact-size
// allocation first; an empty message still returns a non-nil slice.
func (w *Writer) Bytes() []byte {
	if !w.growable {
		return nil
	}
	if w.used*2 < cap(w.buf) {
		exact := make([]byte, w.used)
		copy(exact, w.buf[:w.used])
		return exact
	}
	return w.buf[:w.used]
}

// ensure guarantees n bytes of headroom at w.buf[w.used:], flushing (fixed
// buffer) or growing (growable buffer) as needed.
func (w *Writer) ensure(n int) *Error {
	if w.err != nil {
		return w.err
	}
	if n <= cap(w.buf)-w.used {
		return nil
	}
	if w.growable {
		w.grow(w.used + n)
		return nil
	}
	if w.flush == nil {
		// No flush sink: the caller asked for the whole message in this
		// exact buffer, and it does not fit.
		return w.fail(newErr(KindTooBig))
	}
	if err := w.flush(w.buf[:w.used]); err != nil {
		if errors.Is(err, ErrWouldBlock) || errors.Is(err, ErrMore) {
			// A Writer is purely blocking: there is no suspended-write
			// state to resume, so a sink that cannot accept the whole
			// buffer right now is fatal, not retryable.
			return w.fail(newErr(KindIO))
		}
		return w.fail(wrapErr(KindIO, err))
	}
	w.used = 0
	if n > cap(w.buf) {
		return w.fail(newErr(KindTooBig))
	}
	return nil
}

// grow doubles the growable Writer's backing array until it holds at least
// need bytes, preserving the pending prefix.
func (w *Writer) grow(need int) {
	newCap := cap(w.buf)
	if newCap < minWriterBufferSize {
		newCap = minWriterBufferSize
	}
	for newCap < need {
		newCap *= 2
	}
	nb := make([]byte, newCap)
	copy(nb, w.buf[:w.used])
	w.buf = nb
}

// writeTag encodes tag's header into the buffer, pushing a tracking entry
// if it opens a compound. It is the single choke point every public method
// that writes a tag header goes through, mirroring Reader.ReadTag on the
// write side. A tracking violation is returned as well as flagged.
func (w *Writer) writeTag(tag Tag) *Error {
	if w.err != nil {
		return w.err
	}
	if err := w.ensure(MaxTagHeaderSize); err != nil {
		return err
	}
	dst := w.buf[w.used:w.used]
	out, eerr := encodeTag(dst, tag, w.opts.Version, w.opts.Extensions)
	if eerr != nil {
		return w.fail(asError(eerr))
	}
	w.used += len(out)
	w.trackElement(tag)
	return w.err
}

func (w *Writer) trackElement(tag Tag) {
	if w.track == nil {
		return
	}
	if w.track.Len() > 0 {
		if err := w.track.Element(false); err != nil {
			w.fail(wrapErr(KindBug, err))
			return
		}
	}
	switch tag.Kind() {
	case KindArray:
		w.track.Push(track.Array, uint64(tag.Length()))
	case KindMap:
		w.track.Push(track.Map, uint64(tag.Length()))
	case KindStr:
		w.track.Push(track.Str, uint64(tag.Length()))
	case KindBin:
		w.track.Push(track.Bin, uint64(tag.Length()))
	case KindExt:
		w.track.Push(track.Ext, uint64(tag.Length()))
	}
}

func (w *Writer) done(kind track.Kind) {
	if w.err != nil {
		return
	}
	if w.track == nil {
		return
	}
	if err := w.track.Pop(kind); err != nil {
		w.fail(wrapErr(KindBug, err))
	}
}

// WriteTag dispatches on tag's variant: for scalars it writes the complete
// value, for compounds it is equivalent to the matching Start* call.
func (w *Writer) WriteTag(tag Tag) error {
	if e := w.writeTag(tag); e != nil {
		return e
	}
	return nil
}

// WriteNil writes a nil value.
func (w *Writer) WriteNil() error { return w.WriteTag(NilTag()) }

// WriteBool writes a bool value.
func (w *Writer) WriteBool(v bool) error { return w.WriteTag(BoolTag(v)) }

// WriteInt writes a signed integer using the shortest valid encoding.
func (w *Writer) WriteInt(v int64) error { return w.WriteTag(IntTag(v)) }

// WriteUint writes an unsigned integer using the shortest valid encoding.
func (w *Writer) WriteUint(v uint64) error { return w.WriteTag(UintTag(v)) }

// WriteFloat writes a 32-bit float value.
func (w *Writer) WriteFloat(v float32) error { return w.WriteTag(FloatTag(v)) }

// WriteDouble writes a 64-bit float value.
func (w *Writer) WriteDouble(v float64) error { return w.WriteTag(DoubleTag(v)) }

// StartArray writes an array header declaring count elements and pushes a
// tracker; the caller writes exactly count elements and then calls
// FinishArray.
func (w *Writer) StartArray(count uint32) error { return w.WriteTag(ArrayTag(count)) }

// FinishArray pops the tracker opened by StartArray.
func (w *Writer) FinishArray() error {
	w.done(track.Array)
	return w.Err()
}

// StartMap writes a map header declaring count key/value pairs and pushes a
// tracker; the caller writes exactly count keys and count values,
// interleaved, and then calls FinishMap.
func (w *Writer) StartMap(count uint32) error { return w.WriteTag(MapTag(count)) }

// FinishMap pops the tracker opened by StartMap.
func (w *Writer) FinishMap() error {
	w.done(track.Map)
	return w.Err()
}

// StartStr writes a str header declaring length bytes and pushes a
// tracker; the caller writes exactly length bytes via WriteBytes and then
// calls FinishStr.
func (w *Writer) StartStr(length uint32) error { return w.WriteTag(StrTag(length)) }

// FinishStr pops the tracker opened by StartStr.
func (w *Writer) FinishStr() error {
	w.done(track.Str)
	return w.Err()
}

// StartBin writes a bin header declaring length bytes and pushes a
// tracker; the caller writes exactly length bytes via WriteBytes and then
// calls FinishBin.
func (w *Writer) StartBin(length uint32) error { return w.WriteTag(BinTag(length)) }

// FinishBin pops the tracker opened by StartBin.
func (w *Writer) FinishBin() error {
	w.done(track.Bin)
	return w.Err()
}

// StartExt writes an ext header declaring exttype and length bytes and
// pushes a tracker; the caller writes exactly length bytes via WriteBytes
// and then calls FinishExt.
func (w *Writer) StartExt(exttype int8, length uint32) error {
	return w.WriteTag(ExtTag(exttype, length))
}

// FinishExt pops the tracker opened by StartExt.
func (w *Writer) FinishExt() error {
	w.done(track.Ext)
	return w.Err()
}

// WriteBytes copies p into the buffer, flushing or growing as needed, and
// tracks the consumption against the open str/bin/ext element.
func (w *Writer) WriteBytes(p []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.track != nil {
		if err := w.track.Bytes(false, uint64(len(p))); err != nil {
			return w.fail(wrapErr(KindBug, err))
		}
	}
	if w.growable {
		// Grow once to fit both buffered and incoming bytes, then append
		// the incoming bytes directly.
		if err := w.ensure(len(p)); err != nil {
			return err
		}
		w.used += copy(w.buf[w.used:w.used+len(p)], p)
		return nil
	}
	remaining := p
	for len(remaining) > 0 {
		room := cap(w.buf) - w.used
		if room == 0 {
			if err := w.ensure(1); err != nil {
				return err
			}
			room = cap(w.buf) - w.used
		}
		n := len(remaining)
		if n > room {
			n = room
		}
		copy(w.buf[w.used:w.used+n], remaining[:n])
		w.used += n
		remaining = remaining[n:]
	}
	return nil
}

// WriteStr writes a complete str value: header, then data, then pops the
// tracker, in one call.
func (w *Writer) WriteStr(data []byte) error {
	if e := w.writeTag(StrTag(uint32(len(data)))); e != nil {
		return e
	}
	if err := w.WriteBytes(data); err != nil {
		return err
	}
	w.done(track.Str)
	return w.Err()
}

// WriteBin writes a complete bin value: header, then data, then pops the
// tracker, in one call.
func (w *Writer) WriteBin(data []byte) error {
	if e := w.writeTag(BinTag(uint32(len(data)))); e != nil {
		return e
	}
	if err := w.WriteBytes(data); err != nil {
		return err
	}
	w.done(track.Bin)
	return w.Err()
}

// WriteExt writes a complete ext value: header, then data, then pops the
// tracker, in one call.
func (w *Writer) WriteExt(exttype int8, data []byte) error {
	if e := w.writeTag(ExtTag(exttype, uint32(len(data)))); e != nil {
		return e
	}
	if err := w.WriteBytes(data); err != nil {
		return err
	}
	w.done(track.Ext)
	return w.Err()
}

// WriteUTF8 writes data as a str value, first checking it is well-formed
// UTF-8 and failing with type if not.
func (w *Writer) WriteUTF8(data []byte) error {
	if w.err != nil {
		return w.err
	}
	if !utf8validate.Valid(data) {
		return w.fail(newErr(KindType))
	}
	return w.WriteStr(data)
}

// WriteCStr writes s as a str value. s is assumed to already be a
// NUL-free, C-string-compatible value; unlike ReadCStr there is no
// terminator to add on the wire, since a MessagePack str carries its own
// explicit length.
func (w *Writer) WriteCStr(s string) error {
	return w.WriteStr([]byte(s))
}

// WriteUTF8CStr writes s as a str value, checking it is well-formed UTF-8
// with no embedded NUL and failing with type if not.
func (w *Writer) WriteUTF8CStr(s string) error {
	if w.err != nil {
		return w.err
	}
	if !utf8validate.ValidNoNUL([]byte(s)) {
		return w.fail(newErr(KindType))
	}
	return w.WriteStr([]byte(s))
}

// WriteTimestamp writes a timestamp extension value, choosing the
// shortest of the 4/8/12-byte encodings that represents it.
func (w *Writer) WriteTimestamp(seconds int64, nanoseconds uint32) error {
	if w.err != nil {
		return w.err
	}
	if w.opts.Version == V4 {
		return w.fail(newErr(KindBug))
	}
	if !w.opts.Extensions {
		return w.fail(newErr(KindUnsupported))
	}
	var tmp [12]byte
	body, eerr := encodeTimestamp(tmp[:0], seconds, nanoseconds)
	if eerr != nil {
		return w.fail(asError(eerr))
	}
	if e := w.writeTag(ExtTag(TimestampExtType, uint32(len(body)))); e != nil {
		return e
	}
	if err := w.WriteBytes(body); err != nil {
		return err
	}
	w.done(track.Ext)
	return w.Err()
}
