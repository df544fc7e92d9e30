// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

import (
	"bytes"
	"testing"
)

// TestHomepageExample checks the msgpack.org front-page example: encoding
// {"compact": true, "schema": 0} must produce exactly this 18-byte message.
func TestHomepageExample(t *testing.T) {
	want := []byte{
		0x82, 0xa7, 0x63, 0x6f, 0x6d, 0x70, 0x61, 0x63, 0x74, 0xc3,
		0xa6, 0x73, 0x63, 0x68, 0x65, 0x6d, 0x61, 0x00,
	}

	var buf bytes.Buffer
	w := NewWriterToIO(&buf, make([]byte, 64))
	if err := w.StartMap(2); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteStr([]byte("compact")); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBool(true); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteStr([]byte("schema")); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint(0); err != nil {
		t.Fatal(err)
	}
	if err := w.FinishMap(); err != nil {
		t.Fatal(err)
	}
	if err := w.Destroy(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % x, want % x", buf.Bytes(), want)
	}

	tree := NewTreeFromBytes(want)
	tree.Parse()
	if err := tree.Err(); err != nil {
		t.Fatal(err)
	}
	root := tree.Root()
	if root.MapCount() != 2 {
		t.Fatalf("MapCount() = %d, want 2", root.MapCount())
	}
	if !root.MapStr("compact").Bool() {
		t.Fatalf("compact should be true")
	}
	if v := root.MapStr("schema").Uint64(); v != 0 {
		t.Fatalf("schema = %d, want 0", v)
	}
}

// TestIntegerShortestForm pins the exact bytes the shortest-form integer
// encoder must choose at each width boundary.
func TestIntegerShortestForm(t *testing.T) {
	cases := []struct {
		v    int64
		want []byte
	}{
		{5, []byte{0x05}},
		{-1, []byte{0xff}},
		{128, []byte{0xcc, 0x80}},
		{0x100000000, []byte{0xcf, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}},
		{-1 << 63, []byte{0xd3, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
	}
	for _, c := range cases {
		got := encodeInt(nil, c.v)
		if !bytes.Equal(got, c.want) {
			t.Errorf("encodeInt(%d) = % x, want % x", c.v, got, c.want)
		}
	}
}

func TestTimestampEncodingSelection(t *testing.T) {
	cases := []struct {
		seconds int64
		ns      uint32
		want    []byte
	}{
		{0, 0, []byte{0xd6, 0xff, 0x00, 0x00, 0x00, 0x00}},
		{1 << 32, 0, nil}, // checked for length below, exact bytes vary
		{-1, 0, nil},
	}
	for i, c := range cases {
		var buf bytes.Buffer
		w := NewWriterToIO(&buf, make([]byte, 64))
		if err := w.WriteTimestamp(c.seconds, c.ns); err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if err := w.Destroy(); err != nil {
			t.Fatalf("case %d destroy: %v", i, err)
		}
		if c.want != nil && !bytes.Equal(buf.Bytes(), c.want) {
			t.Errorf("case %d: got % x, want % x", i, buf.Bytes(), c.want)
		}
	}

	// seconds = 1<<32 must use the 8-byte form (fixext8, code 0xd7).
	var buf bytes.Buffer
	w := NewWriterToIO(&buf, make([]byte, 64))
	if err := w.WriteTimestamp(1<<32, 0); err != nil {
		t.Fatal(err)
	}
	w.Destroy()
	if buf.Bytes()[0] != 0xd7 {
		t.Fatalf("expected fixext8 (0xd7), got %#x", buf.Bytes()[0])
	}

	// seconds = -1 must use the 12-byte form (ext8, length 12).
	buf.Reset()
	w = NewWriterToIO(&buf, make([]byte, 64))
	if err := w.WriteTimestamp(-1, 0); err != nil {
		t.Fatal(err)
	}
	w.Destroy()
	if buf.Bytes()[0] != 0xc7 || buf.Bytes()[1] != 12 {
		t.Fatalf("expected ext8 length=12, got % x", buf.Bytes())
	}

	// Out-of-range nanoseconds must fail.
	buf.Reset()
	w = NewWriterToIO(&buf, make([]byte, 64))
	if err := w.WriteTimestamp(0, 1_000_000_000); err == nil {
		t.Fatalf("expected an error for nanoseconds = 1e9")
	}
}

func TestDecodeEncodeRoundtripShortestForm(t *testing.T) {
	values := []Tag{
		NilTag(), BoolTag(true), BoolTag(false),
		IntTag(0), IntTag(-1), IntTag(-33), IntTag(-129), IntTag(-32769), IntTag(-1 << 40),
		UintTag(0), UintTag(127), UintTag(128), UintTag(65536), UintTag(1 << 40),
		FloatTag(3.5), DoubleTag(3.5),
		StrTag(0), StrTag(31), StrTag(32), StrTag(1 << 20),
		BinTag(0), BinTag(1 << 20),
		ArrayTag(0), ArrayTag(15), ArrayTag(16), ArrayTag(1 << 20),
		MapTag(0), MapTag(15), MapTag(16),
		ExtTag(-1, 4), ExtTag(7, 100),
	}
	for _, tag := range values {
		enc, err := encodeTag(nil, tag, V5, true)
		if err != nil {
			t.Fatalf("encode %+v: %v", tag, err)
		}
		hlen, ok := headerLen(enc[0])
		if !ok {
			t.Fatalf("encode %+v produced unrecognized first byte %#x", tag, enc[0])
		}
		if hlen != len(enc) {
			t.Fatalf("encode %+v produced %d bytes, headerLen says %d", tag, len(enc), hlen)
		}
		dec, err := decodeTag(enc, true)
		if err != nil {
			t.Fatalf("decode % x: %v", enc, err)
		}
		if !Equal(dec, tag) {
			t.Fatalf("roundtrip mismatch: in=%+v out=%+v (bytes=% x)", tag, dec, enc)
		}
		// Re-encoding the decoded tag must reproduce the same shortest
		// bytes: encode-then-decode is idempotent on shortest-form input.
		enc2, err := encodeTag(nil, dec, V5, true)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if !bytes.Equal(enc, enc2) {
			t.Fatalf("re-encode not idempotent: % x vs % x", enc, enc2)
		}
	}
}

// TestNonShortestIntegerAccepted: the reader accepts non-shortest
// encodings (e.g. a uint16-coded 5) even though the writer never emits
// them.
func TestNonShortestIntegerAccepted(t *testing.T) {
	nonShortest := []byte{0xcd, 0x00, 0x05} // uint16(5), not fixint
	tag, err := decodeTag(nonShortest, true)
	if err != nil {
		t.Fatal(err)
	}
	if tag.Kind() != KindUint || tag.Uint() != 5 {
		t.Fatalf("got %+v, want uint 5", tag)
	}
}

func TestReservedByteFails(t *testing.T) {
	if _, ok := headerLen(0xc1); ok {
		t.Fatalf("0xc1 must be reserved/invalid")
	}
	_, err := decodeTag([]byte{0xc1}, true)
	if err == nil {
		t.Fatalf("decoding 0xc1 must fail")
	}
}

func TestExtensionsDisabled(t *testing.T) {
	enc, err := encodeTag(nil, ExtTag(1, 4), V5, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeTag(enc, false); err == nil {
		t.Fatalf("decoding an ext tag with extensions disabled must fail")
	}
}

func TestV4CompatibilityMode(t *testing.T) {
	// str8 is forbidden in v4; a length that would use str8 in v5 must use
	// str16 instead.
	enc, err := encodeTag(nil, StrTag(200), V4, true)
	if err != nil {
		t.Fatal(err)
	}
	if enc[0] != codeStr16 {
		t.Fatalf("v4 should encode a 200-byte string as str16, got %#x", enc[0])
	}

	// bin falls back to str in v4.
	enc, err = encodeTag(nil, BinTag(10), V4, true)
	if err != nil {
		t.Fatal(err)
	}
	if enc[0] != 0xa0|byte(10) {
		t.Fatalf("v4 bin should encode as fixstr, got %#x", enc[0])
	}

	// ext is forbidden entirely in v4.
	if _, err := encodeTag(nil, ExtTag(1, 4), V4, true); err == nil {
		t.Fatalf("v4 must reject ext tags")
	}
}
