// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

import (
	"bytes"
	"testing"
)

func TestWriterGrowableBytesNonNilWhenEmpty(t *testing.T) {
	w := NewGrowableWriter(64)
	if err := w.Destroy(); err != nil {
		t.Fatal(err)
	}
	b := w.Bytes()
	if b == nil {
		t.Fatalf("Bytes() must never be nil, even for an empty message")
	}
	if len(b) != 0 {
		t.Fatalf("got %d bytes, want 0", len(b))
	}
}

// TestWriterOutputIndependentOfFlushSchedule: the encoded byte sequence
// must not depend on how many times the underlying sink forces a flush. A
// tiny fixed buffer and a large growable buffer must produce identical
// bytes for the same write sequence.
func TestWriterOutputIndependentOfFlushSchedule(t *testing.T) {
	build := func(w *Writer) {
		w.StartArray(3)
		w.WriteStr([]byte("hello world, this is a longer string"))
		w.WriteUint(123456789)
		w.StartMap(2)
		w.WriteStr([]byte("a"))
		w.WriteBool(true)
		w.WriteStr([]byte("b"))
		w.WriteInt(-42)
		w.FinishMap()
		w.FinishArray()
	}

	growable := NewGrowableWriter(64)
	build(growable)
	if err := growable.Destroy(); err != nil {
		t.Fatal(err)
	}
	want := growable.Bytes()

	var buf bytes.Buffer
	tiny := NewWriterToIO(&buf, make([]byte, minWriterBufferSize))
	build(tiny)
	if err := tiny.Destroy(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("flush schedule changed output:\n got % x\nwant % x", buf.Bytes(), want)
	}
}

func TestWriterTrackingMismatchFlagsBug(t *testing.T) {
	w := NewGrowableWriter(64)
	w.StartArray(2)
	w.WriteUint(1)
	// Missing the second declared element: FinishArray must flag a bug.
	if err := w.FinishArray(); err == nil {
		t.Fatalf("expected a bug error for a short array")
	}
}

func TestWriterTrackingOverflowFlagsBug(t *testing.T) {
	w := NewGrowableWriter(64)
	w.StartArray(1)
	w.WriteUint(1)
	if err := w.WriteUint(2); err == nil {
		t.Fatalf("expected a bug error for writing past the declared count")
	}
}

func TestWriterDestroyChecksUnclosedContainer(t *testing.T) {
	w := NewGrowableWriter(64)
	w.StartArray(1)
	w.WriteUint(1)
	// FinishArray never called.
	if err := w.Destroy(); err == nil {
		t.Fatalf("expected Destroy to flag an unclosed container")
	}
}

func TestWriterV4RejectsExtAndTimestamp(t *testing.T) {
	w := NewGrowableWriter(64, WithWriterVersion(V4))
	if err := w.WriteTimestamp(0, 0); err == nil {
		t.Fatalf("v4 must reject WriteTimestamp")
	}
	w = NewGrowableWriter(64, WithWriterVersion(V4))
	if err := w.WriteExt(1, []byte{0}); err == nil {
		t.Fatalf("v4 must reject WriteExt")
	}
}

func TestWriterUTF8ValidationRejectsIllFormed(t *testing.T) {
	w := NewGrowableWriter(64)
	illFormed := []byte{0xff, 0xfe}
	if err := w.WriteUTF8(illFormed); err == nil {
		t.Fatalf("expected a type error for ill-formed UTF-8")
	}
}

func TestWriterUTF8CStrRejectsEmbeddedNUL(t *testing.T) {
	w := NewGrowableWriter(64)
	if err := w.WriteUTF8CStr("a\x00b"); err == nil {
		t.Fatalf("expected a type error for an embedded NUL")
	}
}

func TestWriterStickyErrorIsNoOp(t *testing.T) {
	w := NewGrowableWriter(64)
	w.StartArray(1)
	_ = w.WriteUint(1)
	_ = w.WriteUint(2) // overflow, flags the first error
	first := w.Err()
	if first == nil {
		t.Fatalf("expected an error")
	}
	if err := w.WriteBool(true); err == nil {
		t.Fatalf("expected the sticky error to persist")
	}
	if w.Err().Error() != first.Error() {
		t.Fatalf("error changed after it was already flagged")
	}
}

func TestWriterNoFlushFuncFailsOnOverflow(t *testing.T) {
	buf := make([]byte, minWriterBufferSize)
	w := NewWriter(buf, nil)
	payload := bytes.Repeat([]byte("x"), 100)
	if err := w.WriteStr(payload); err == nil {
		t.Fatalf("expected an error when overflow has no flush callback")
	}
}
