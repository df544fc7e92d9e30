// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package msgexpect is a thin per-call type/range-checking convenience
// layer over msgpack.Reader: each helper reads one tag and flags KindType,
// KindData, or (for a size bound or destination that is exceeded)
// KindTooBig on the Reader when the value does not match the caller's
// expectation, leaving every subsequent call a no-op under the Reader's
// sticky-error model. It is built entirely on the Reader's public surface.
package msgexpect

import (
	"math"

	"code.hybscloud.com/msgpack"
)

// ExpectNil requires the next value to be nil.
func ExpectNil(r *msgpack.Reader) {
	tag := r.ReadTag()
	if r.Err() != nil {
		return
	}
	if tag.Kind() != msgpack.KindNil {
		r.Fail(msgpack.KindType)
	}
}

// ExpectBool requires the next value to be a bool and returns it.
func ExpectBool(r *msgpack.Reader) bool {
	tag := r.ReadTag()
	if r.Err() != nil {
		return false
	}
	if tag.Kind() != msgpack.KindBool {
		r.Fail(msgpack.KindType)
		return false
	}
	return tag.Bool()
}

// ExpectFloat requires the next value to be numeric and returns it
// converted to float32 (doubles are narrowed, integers converted).
func ExpectFloat(r *msgpack.Reader) float32 {
	tag := r.ReadTag()
	if r.Err() != nil {
		return 0
	}
	switch tag.Kind() {
	case msgpack.KindFloat:
		return tag.Float()
	case msgpack.KindDouble:
		return float32(tag.Double())
	case msgpack.KindInt:
		return float32(tag.Int())
	case msgpack.KindUint:
		return float32(tag.Uint())
	default:
		r.Fail(msgpack.KindType)
		return 0
	}
}

// ExpectDouble requires the next value to be numeric and returns it
// widened to float64.
func ExpectDouble(r *msgpack.Reader) float64 {
	tag := r.ReadTag()
	if r.Err() != nil {
		return 0
	}
	switch tag.Kind() {
	case msgpack.KindDouble:
		return tag.Double()
	case msgpack.KindFloat:
		return float64(tag.Float())
	case msgpack.KindInt:
		return float64(tag.Int())
	case msgpack.KindUint:
		return float64(tag.Uint())
	default:
		r.Fail(msgpack.KindType)
		return 0
	}
}

func expectInt64Range(r *msgpack.Reader, lo, hi int64) int64 {
	tag := r.ReadTag()
	if r.Err() != nil {
		return 0
	}
	var v int64
	switch tag.Kind() {
	case msgpack.KindInt:
		v = tag.Int()
	case msgpack.KindUint:
		u := tag.Uint()
		if u > math.MaxInt64 {
			r.Fail(msgpack.KindType)
			return 0
		}
		v = int64(u)
	default:
		r.Fail(msgpack.KindType)
		return 0
	}
	if v < lo || v > hi {
		r.Fail(msgpack.KindType)
		return 0
	}
	return v
}

func expectUint64Range(r *msgpack.Reader, hi uint64) uint64 {
	tag := r.ReadTag()
	if r.Err() != nil {
		return 0
	}
	var v uint64
	switch tag.Kind() {
	case msgpack.KindUint:
		v = tag.Uint()
	case msgpack.KindInt:
		i := tag.Int()
		if i < 0 {
			r.Fail(msgpack.KindType)
			return 0
		}
		v = uint64(i)
	default:
		r.Fail(msgpack.KindType)
		return 0
	}
	if v > hi {
		r.Fail(msgpack.KindType)
		return 0
	}
	return v
}

// ExpectI8 requires the next value to be an integer fitting in int8.
func ExpectI8(r *msgpack.Reader) int8 { return int8(expectInt64Range(r, math.MinInt8, math.MaxInt8)) }

// ExpectI16 requires the next value to be an integer fitting in int16.
func ExpectI16(r *msgpack.Reader) int16 {
	return int16(expectInt64Range(r, math.MinInt16, math.MaxInt16))
}

// ExpectI32 requires the next value to be an integer fitting in int32.
func ExpectI32(r *msgpack.Reader) int32 {
	return int32(expectInt64Range(r, math.MinInt32, math.MaxInt32))
}

// ExpectI64 requires the next value to be an integer fitting in int64.
func ExpectI64(r *msgpack.Reader) int64 { return expectInt64Range(r, math.MinInt64, math.MaxInt64) }

// ExpectU8 requires the next value to be an integer fitting in uint8.
func ExpectU8(r *msgpack.Reader) uint8 { return uint8(expectUint64Range(r, math.MaxUint8)) }

// ExpectU16 requires the next value to be an integer fitting in uint16.
func ExpectU16(r *msgpack.Reader) uint16 { return uint16(expectUint64Range(r, math.MaxUint16)) }

// ExpectU32 requires the next value to be an integer fitting in uint32.
func ExpectU32(r *msgpack.Reader) uint32 { return uint32(expectUint64Range(r, math.MaxUint32)) }

// ExpectU64 requires the next value to be an integer fitting in uint64.
func ExpectU64(r *msgpack.Reader) uint64 { return expectUint64Range(r, math.MaxUint64) }

// ExpectIntMatch requires the next value to be an integer exactly equal to
// value, flagging KindData (a semantic mismatch, not a type mismatch) when
// it decodes fine but disagrees.
func ExpectIntMatch(r *msgpack.Reader, value int64) {
	v := ExpectI64(r)
	if r.Err() != nil {
		return
	}
	if v != value {
		r.Fail(msgpack.KindData)
	}
}

// ExpectArray requires the next value to be an array and returns its
// declared element count. The caller must read exactly that many child
// values and then call r.DoneArray(), exactly as with Reader.ReadTag.
func ExpectArray(r *msgpack.Reader) uint32 {
	tag := r.ReadTag()
	if r.Err() != nil {
		return 0
	}
	if tag.Kind() != msgpack.KindArray {
		r.Fail(msgpack.KindType)
		return 0
	}
	return tag.Length()
}

// ExpectArrayMax requires an array of at most maxCount elements.
func ExpectArrayMax(r *msgpack.Reader, maxCount uint32) uint32 {
	n := ExpectArray(r)
	if r.Err() != nil {
		return 0
	}
	if n > maxCount {
		r.Fail(msgpack.KindTooBig)
		return 0
	}
	return n
}

// ExpectMap requires the next value to be a map and returns its declared
// pair count. The caller must then read exactly that many key/value pairs
// and call r.DoneMap().
func ExpectMap(r *msgpack.Reader) uint32 {
	tag := r.ReadTag()
	if r.Err() != nil {
		return 0
	}
	if tag.Kind() != msgpack.KindMap {
		r.Fail(msgpack.KindType)
		return 0
	}
	return tag.Length()
}

// ExpectMapMax requires a map of at most maxCount pairs.
func ExpectMapMax(r *msgpack.Reader, maxCount uint32) uint32 {
	n := ExpectMap(r)
	if r.Err() != nil {
		return 0
	}
	if n > maxCount {
		r.Fail(msgpack.KindTooBig)
		return 0
	}
	return n
}

// ExpectStr requires the next value to be a string of at most len(dst)
// bytes (flagging KindTooBig otherwise), copies its content into dst, and
// returns the byte slice read. UTF-8 well-formedness is validated.
func ExpectStr(r *msgpack.Reader, dst []byte) []byte {
	tag := r.ReadTag()
	if r.Err() != nil {
		return nil
	}
	if tag.Kind() != msgpack.KindStr {
		r.Fail(msgpack.KindType)
		return nil
	}
	n := int(tag.Length())
	if n > len(dst) {
		r.Fail(msgpack.KindTooBig)
		return nil
	}
	if err := r.ReadUTF8(dst[:n]); err != nil {
		return nil
	}
	r.DoneStr()
	return dst[:n]
}

// ExpectBin requires the next value to be a bin blob of at most len(dst)
// bytes (flagging KindTooBig otherwise) and copies it into dst, returning
// the slice read.
func ExpectBin(r *msgpack.Reader, dst []byte) []byte {
	tag := r.ReadTag()
	if r.Err() != nil {
		return nil
	}
	if tag.Kind() != msgpack.KindBin {
		r.Fail(msgpack.KindType)
		return nil
	}
	n := int(tag.Length())
	if n > len(dst) {
		r.Fail(msgpack.KindTooBig)
		return nil
	}
	if err := r.ReadBytes(dst[:n]); err != nil {
		return nil
	}
	r.DoneBin()
	return dst[:n]
}

// ExpectEnum requires the next value to be a string matching one of strs
// and returns its index, flagging KindData when the string is well-formed
// but matches none of the candidates.
func ExpectEnum(r *msgpack.Reader, strs []string) int {
	var buf [256]byte
	s := ExpectStr(r, buf[:])
	if r.Err() != nil {
		return -1
	}
	for i, cand := range strs {
		if string(s) == cand {
			return i
		}
	}
	r.Fail(msgpack.KindData)
	return -1
}
