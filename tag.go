// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package msgpack implements the MessagePack binary serialization format:
// a streaming Reader and Writer over bounded, caller-supplied buffers, and
// a Tree parser that materialises a complete message as a graph of typed
// Nodes. All three share the same tag codec and are safe for use by one
// goroutine at a time; there is no internal synchronization.
package msgpack

import "math"

// Kind identifies which MessagePack type a Tag or Node carries.
type Kind uint8

const (
	// KindMissing is the sentinel returned by optional lookups that found
	// nothing. It is distinct from KindNil.
	KindMissing Kind = iota
	KindNil
	KindBool
	KindInt
	KindUint
	KindFloat
	KindDouble
	KindStr
	KindBin
	KindArray
	KindMap
	KindExt
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindStr:
		return "str"
	case KindBin:
		return "bin"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindExt:
		return "ext"
	default:
		return "unknown"
	}
}

// TimestampExtType is the reserved extension type for the MessagePack
// timestamp extension (exttype == -1).
const TimestampExtType int8 = -1

// Tag is a decoded MessagePack value header: a scalar value for primitive
// types, or a length/count for compound types (str, bin, array, map, ext).
// Tags are small value types, freely copied and compared.
type Tag struct {
	kind    Kind
	i       int64
	u       uint64
	f32     float32
	f64     float64
	b       bool
	length  uint32
	exttype int8
}

// MissingTag returns the sentinel tag for an absent optional lookup.
func MissingTag() Tag { return Tag{kind: KindMissing} }

// NilTag returns the nil tag.
func NilTag() Tag { return Tag{kind: KindNil} }

// BoolTag returns a bool tag.
func BoolTag(v bool) Tag { return Tag{kind: KindBool, b: v} }

// IntTag returns a signed-integer tag.
func IntTag(v int64) Tag { return Tag{kind: KindInt, i: v} }

// UintTag returns an unsigned-integer tag.
func UintTag(v uint64) Tag { return Tag{kind: KindUint, u: v} }

// FloatTag returns a 32-bit float tag.
func FloatTag(v float32) Tag { return Tag{kind: KindFloat, f32: v} }

// DoubleTag returns a 64-bit float tag.
func DoubleTag(v float64) Tag { return Tag{kind: KindDouble, f64: v} }

// StrTag returns a str tag with the given byte length.
func StrTag(length uint32) Tag { return Tag{kind: KindStr, length: length} }

// BinTag returns a bin tag with the given byte length.
func BinTag(length uint32) Tag { return Tag{kind: KindBin, length: length} }

// ArrayTag returns an array tag with the given element count.
func ArrayTag(count uint32) Tag { return Tag{kind: KindArray, length: count} }

// MapTag returns a map tag with the given key/value pair count.
func MapTag(count uint32) Tag { return Tag{kind: KindMap, length: count} }

// ExtTag returns an extension tag with the given exttype and byte length.
func ExtTag(exttype int8, length uint32) Tag {
	return Tag{kind: KindExt, exttype: exttype, length: length}
}

// Kind reports the tag's variant.
func (t Tag) Kind() Kind { return t.kind }

// IsMissing reports whether t is the missing sentinel.
func (t Tag) IsMissing() bool { return t.kind == KindMissing }

// IsNil reports whether t is nil.
func (t Tag) IsNil() bool { return t.kind == KindNil }

// Bool returns the tag's bool value. The caller must know t.Kind() ==
// KindBool; calling this on any other variant is a contract violation (see
// assertKind).
func (t Tag) Bool() bool {
	assertKind(t, KindBool)
	return t.b
}

// Int returns the tag's signed integer value. Requires KindInt.
func (t Tag) Int() int64 {
	assertKind(t, KindInt)
	return t.i
}

// Uint returns the tag's unsigned integer value. Requires KindUint.
func (t Tag) Uint() uint64 {
	assertKind(t, KindUint)
	return t.u
}

// Float returns the tag's 32-bit float value. Requires KindFloat.
func (t Tag) Float() float32 {
	assertKind(t, KindFloat)
	return t.f32
}

// Double returns the tag's 64-bit float value. Requires KindDouble.
func (t Tag) Double() float64 {
	assertKind(t, KindDouble)
	return t.f64
}

// Length returns the element/pair count for array/map tags, or the byte
// length for str/bin/ext tags.
func (t Tag) Length() uint32 {
	assertKind(t, KindStr, KindBin, KindArray, KindMap, KindExt)
	return t.length
}

// ExtType returns the extension type byte. Requires KindExt.
func (t Tag) ExtType() int8 {
	assertKind(t, KindExt)
	return t.exttype
}

// Bytes returns the byte length carried by str, bin, and ext tags. For any
// other kind it returns 0.
func (t Tag) Bytes() uint32 {
	switch t.kind {
	case KindStr, KindBin, KindExt:
		return t.length
	default:
		return 0
	}
}

// Equal reports whether a and b carry the same variant and value.
//
// For str/bin/array/map it compares the declared length/count, not any
// backing content. For ext it compares both exttype and length. Float and
// double equality is bitwise rather than IEEE, so two NaNs with identical
// bit patterns compare equal and a float never equals a double. A positive
// signed int compares equal to the same-valued uint.
func Equal(a, b Tag) bool {
	na, naok := normalizeInt(a)
	nb, nbok := normalizeInt(b)
	if naok && nbok {
		return na == nb
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindMissing, KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return math.Float32bits(a.f32) == math.Float32bits(b.f32)
	case KindDouble:
		return math.Float64bits(a.f64) == math.Float64bits(b.f64)
	case KindStr, KindBin, KindArray, KindMap:
		return a.length == b.length
	case KindExt:
		return a.exttype == b.exttype && a.length == b.length
	default:
		return false
	}
}

// normalizeInt returns (value, true) if t is a non-negative KindInt or a
// KindUint, so that IntTag(5) and UintTag(5) can be compared directly.
func normalizeInt(t Tag) (uint64, bool) {
	switch t.kind {
	case KindUint:
		return t.u, true
	case KindInt:
		if t.i >= 0 {
			return uint64(t.i), true
		}
	}
	return 0, false
}

// variantOrder fixes the total order across variants used by Compare.
func variantOrder(k Kind) int {
	switch k {
	case KindMissing:
		return 0
	case KindNil:
		return 1
	case KindBool:
		return 2
	case KindUint, KindInt:
		return 3
	case KindFloat:
		return 4
	case KindDouble:
		return 5
	case KindStr:
		return 6
	case KindBin:
		return 7
	case KindArray:
		return 8
	case KindMap:
		return 9
	case KindExt:
		return 10
	default:
		return 11
	}
}

// Compare returns -1, 0, or 1 comparing a and b by variant first, then by
// payload. Positive signed ints are normalized to unsigned first, matching
// Equal.
func Compare(a, b Tag) int {
	na, naok := normalizeInt(a)
	nb, nbok := normalizeInt(b)
	if naok && nbok {
		return cmpUint64(na, nb)
	}
	oa, ob := variantOrder(a.kind), variantOrder(b.kind)
	if oa != ob {
		return cmpInt(oa, ob)
	}
	switch a.kind {
	case KindMissing, KindNil:
		return 0
	case KindBool:
		return cmpBool(a.b, b.b)
	case KindInt:
		if b.kind == KindUint {
			return -1
		}
		return cmpInt64(a.i, b.i)
	case KindUint:
		// b is a negative int here: every uint sorts after it.
		return 1
	case KindFloat:
		return cmpUint64(uint64(math.Float32bits(a.f32)), uint64(math.Float32bits(b.f32)))
	case KindDouble:
		return cmpUint64(math.Float64bits(a.f64), math.Float64bits(b.f64))
	case KindStr, KindBin, KindArray, KindMap:
		return cmpUint64(uint64(a.length), uint64(b.length))
	case KindExt:
		if a.exttype != b.exttype {
			return cmpInt(int(a.exttype), int(b.exttype))
		}
		return cmpUint64(uint64(a.length), uint64(b.length))
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

// isCompound reports whether k is a container/sized kind tracked by the
// tracking stack and the tree's bounded-nodes invariant.
func isCompound(k Kind) bool {
	switch k {
	case KindArray, KindMap, KindStr, KindBin, KindExt:
		return true
	default:
		return false
	}
}
