// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

import (
	"math"
	"testing"
)

func TestTagEqualIntUintNormalization(t *testing.T) {
	if !Equal(IntTag(5), UintTag(5)) {
		t.Fatalf("IntTag(5) should equal UintTag(5)")
	}
	if Equal(IntTag(-1), UintTag(math.MaxUint64)) {
		t.Fatalf("negative int must never equal a uint")
	}
}

func TestTagEqualFloatBitwise(t *testing.T) {
	nan := FloatTag(float32(math.NaN()))
	if !Equal(nan, nan) {
		t.Fatalf("identical NaN bit patterns must compare equal under bitwise equality")
	}
	if Equal(FloatTag(1), DoubleTag(1)) {
		t.Fatalf("float must never equal double even for the same numeric value")
	}
}

func TestTagCompareConsistentWithEqual(t *testing.T) {
	pairs := []Tag{
		NilTag(), BoolTag(true), BoolTag(false),
		IntTag(5), UintTag(5), IntTag(-5),
		FloatTag(1), DoubleTag(1),
		StrTag(3), BinTag(3), ArrayTag(2), MapTag(2),
		ExtTag(1, 4), ExtTag(2, 4),
	}
	for _, a := range pairs {
		for _, b := range pairs {
			eq := Equal(a, b)
			cmp := Compare(a, b)
			if eq != (cmp == 0) {
				t.Fatalf("Equal(%v,%v)=%v but Compare=%d", a, b, eq, cmp)
			}
		}
	}
}

func TestTagAccessorsRoundtrip(t *testing.T) {
	if v := IntTag(-42).Int(); v != -42 {
		t.Fatalf("Int() = %d, want -42", v)
	}
	if v := UintTag(42).Uint(); v != 42 {
		t.Fatalf("Uint() = %d, want 42", v)
	}
	if v := StrTag(7).Length(); v != 7 {
		t.Fatalf("Length() = %d, want 7", v)
	}
	if v := ExtTag(5, 2).ExtType(); v != 5 {
		t.Fatalf("ExtType() = %d, want 5", v)
	}
	if v := StrTag(9).Bytes(); v != 9 {
		t.Fatalf("Bytes() = %d, want 9", v)
	}
	if v := BoolTag(true).Bytes(); v != 0 {
		t.Fatalf("Bytes() on a non-sized kind should be 0, got %d", v)
	}
}

func TestTagMissingAndNil(t *testing.T) {
	if !MissingTag().IsMissing() {
		t.Fatalf("MissingTag should report IsMissing")
	}
	if MissingTag().IsNil() {
		t.Fatalf("MissingTag should not report IsNil")
	}
	if !NilTag().IsNil() {
		t.Fatalf("NilTag should report IsNil")
	}
	if !Equal(MissingTag(), MissingTag()) {
		t.Fatalf("two missing tags should compare equal")
	}
	if Equal(MissingTag(), NilTag()) {
		t.Fatalf("missing must not equal nil")
	}
}
