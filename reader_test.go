// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

import (
	"bytes"
	"testing"
)

func encodeMessage(t *testing.T, fn func(w *Writer)) []byte {
	t.Helper()
	w := NewGrowableWriter(64)
	fn(w)
	if err := w.Destroy(); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return w.Bytes()
}

func TestReaderReadTagScalars(t *testing.T) {
	msg := encodeMessage(t, func(w *Writer) {
		w.WriteUint(5)
		w.WriteInt(-5)
		w.WriteBool(true)
		w.WriteNil()
		w.WriteFloat(1.5)
		w.WriteDouble(2.5)
	})
	r := NewReaderFromBytes(msg)
	if v := r.ReadTag(); v.Kind() != KindUint || v.Uint() != 5 {
		t.Fatalf("got %+v", v)
	}
	if v := r.ReadTag(); v.Kind() != KindInt || v.Int() != -5 {
		t.Fatalf("got %+v", v)
	}
	if v := r.ReadTag(); v.Kind() != KindBool || !v.Bool() {
		t.Fatalf("got %+v", v)
	}
	if v := r.ReadTag(); !v.IsNil() {
		t.Fatalf("got %+v", v)
	}
	if v := r.ReadTag(); v.Kind() != KindFloat || v.Float() != 1.5 {
		t.Fatalf("got %+v", v)
	}
	if v := r.ReadTag(); v.Kind() != KindDouble || v.Double() != 2.5 {
		t.Fatalf("got %+v", v)
	}
	if err := r.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
}

func TestReaderStraddlingInplaceRead(t *testing.T) {
	// A reader with a 32-byte buffer, filled from a stream, where a 20-byte
	// str header starts at buffer offset 24 of the underlying source:
	// forces ensure() to compact and refill mid read. The warm-up values
	// encode to 9 + 9 + 5 + 1 = 24 bytes.
	payload := bytes.Repeat([]byte("x"), 20)
	warmup := []uint64{1 << 40, 1<<40 + 1, 1 << 20, 1}
	msg := encodeMessage(t, func(w *Writer) {
		for _, v := range warmup {
			w.WriteUint(v)
		}
		w.WriteStr(payload)
	})

	src := bytes.NewReader(msg)
	r := NewReaderFromIO(src, make([]byte, 32))

	for i, want := range warmup {
		tag := r.ReadTag()
		if tag.Kind() != KindUint || tag.Uint() != want {
			t.Fatalf("warm-up read %d: got %+v", i, tag)
		}
	}

	tag := r.ReadTag()
	if tag.Kind() != KindStr || tag.Length() != 20 {
		t.Fatalf("got %+v", tag)
	}
	data, err := r.ReadBytesInplace(20)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("got %q, want %q", data, payload)
	}
	r.DoneStr()
	if err := r.Destroy(); err != nil {
		t.Fatal(err)
	}
}

func TestReaderArrayMapTracking(t *testing.T) {
	msg := encodeMessage(t, func(w *Writer) {
		w.StartArray(2)
		w.WriteUint(1)
		w.StartMap(1)
		w.WriteStr([]byte("k"))
		w.WriteUint(9)
		w.FinishMap()
		w.FinishArray()
	})
	r := NewReaderFromBytes(msg)
	arr := r.ReadTag()
	if arr.Kind() != KindArray || arr.Length() != 2 {
		t.Fatalf("got %+v", arr)
	}
	if v := r.ReadTag(); v.Uint() != 1 {
		t.Fatalf("got %+v", v)
	}
	m := r.ReadTag()
	if m.Kind() != KindMap || m.Length() != 1 {
		t.Fatalf("got %+v", m)
	}
	key := r.ReadTag()
	kb, err := r.ReadBytesInplace(int(key.Length()))
	if err != nil || string(kb) != "k" {
		t.Fatalf("key=%q err=%v", kb, err)
	}
	r.DoneStr()
	if v := r.ReadTag(); v.Uint() != 9 {
		t.Fatalf("got %+v", v)
	}
	r.DoneMap()
	r.DoneArray()
	if err := r.Destroy(); err != nil {
		t.Fatal(err)
	}
}

func TestReaderDoneMismatchFlagsBug(t *testing.T) {
	msg := encodeMessage(t, func(w *Writer) {
		w.StartArray(1)
		w.WriteUint(1)
		w.FinishArray()
	})
	r := NewReaderFromBytes(msg)
	r.ReadTag() // array
	r.ReadTag() // the single element
	r.DoneMap() // wrong kind: should flag bug
	if err := r.Err(); err == nil {
		t.Fatalf("expected a bug error for mismatched Done call")
	}
}

func TestReaderStickyError(t *testing.T) {
	r := NewReaderFromBytes([]byte{0xc1}) // reserved byte
	tag := r.ReadTag()
	if err := r.Err(); err == nil {
		t.Fatalf("expected an error decoding 0xc1")
	}
	if !tag.IsNil() {
		t.Fatalf("ReadTag should return NilTag once in error state")
	}
	// Subsequent calls remain no-ops returning the same sticky error.
	tag2 := r.ReadTag()
	if !tag2.IsNil() {
		t.Fatalf("ReadTag should stay a no-op after error")
	}
	if r.Err() == nil {
		t.Fatalf("error should remain sticky")
	}
}

func TestReaderTruncatedFixedBlobFailsInvalid(t *testing.T) {
	// A str(10) header with only 3 body bytes available and no fill
	// attached must fail with invalid: the caller promised a complete
	// message in the buffer and it is truncated.
	msg := encodeMessage(t, func(w *Writer) {
		w.WriteStr(bytes.Repeat([]byte("y"), 10))
	})
	truncated := msg[:len(msg)-7]
	r := NewReaderFromBytes(truncated)
	r.ReadTag()
	if _, err := r.ReadBytesInplace(10); err == nil {
		t.Fatalf("expected invalid for truncated data with no fill")
	}
}

func TestReaderSkipBytes(t *testing.T) {
	msg := encodeMessage(t, func(w *Writer) {
		w.WriteStr(bytes.Repeat([]byte("z"), 50))
		w.WriteUint(42)
	})
	r := NewReaderFromBytes(msg)
	tag := r.ReadTag()
	if tag.Kind() != KindStr {
		t.Fatalf("got %+v", tag)
	}
	if err := r.SkipBytes(int64(tag.Length())); err != nil {
		t.Fatal(err)
	}
	r.DoneStr()
	if v := r.ReadTag(); v.Uint() != 42 {
		t.Fatalf("got %+v", v)
	}
}

func TestReaderDiscard(t *testing.T) {
	msg := encodeMessage(t, func(w *Writer) {
		w.StartArray(2)
		w.StartMap(1)
		w.WriteStr([]byte("a"))
		w.WriteUint(1)
		w.FinishMap()
		w.WriteStr([]byte("tail"))
		w.FinishArray()
		w.WriteUint(99)
	})
	r := NewReaderFromBytes(msg)
	tag := r.ReadTag()
	if tag.Kind() != KindArray {
		t.Fatalf("got %+v", tag)
	}
	r.Discard() // map
	r.Discard() // "tail" str
	r.DoneArray()
	if v := r.ReadTag(); v.Uint() != 99 {
		t.Fatalf("got %+v", v)
	}
	if err := r.Destroy(); err != nil {
		t.Fatal(err)
	}
}

func TestReaderTimestampRoundtrip(t *testing.T) {
	for _, c := range []struct {
		seconds int64
		ns      uint32
	}{
		{0, 0},
		{1 << 32, 0},
		{-1, 500},
		{1700000000, 123456789},
	} {
		msg := encodeMessage(t, func(w *Writer) {
			w.WriteTimestamp(c.seconds, c.ns)
		})
		r := NewReaderFromBytes(msg)
		sec, ns, err := r.ReadTimestamp()
		if err != nil {
			t.Fatalf("case %+v: %v", c, err)
		}
		if sec != c.seconds || ns != c.ns {
			t.Fatalf("case %+v: got seconds=%d ns=%d", c, sec, ns)
		}
	}
}
