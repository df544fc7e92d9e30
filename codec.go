// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

import (
	"encoding/binary"
	"math"
)

// First-byte type codes, per the MessagePack format's first-byte table.
const (
	codeNil      byte = 0xc0
	codeReserved byte = 0xc1
	codeFalse    byte = 0xc2
	codeTrue     byte = 0xc3
	codeBin8     byte = 0xc4
	codeBin16    byte = 0xc5
	codeBin32    byte = 0xc6
	codeExt8     byte = 0xc7
	codeExt16    byte = 0xc8
	codeExt32    byte = 0xc9
	codeFloat32  byte = 0xca
	codeFloat64  byte = 0xcb
	codeUint8    byte = 0xcc
	codeUint16   byte = 0xcd
	codeUint32   byte = 0xce
	codeUint64   byte = 0xcf
	codeInt8     byte = 0xd0
	codeInt16    byte = 0xd1
	codeInt32    byte = 0xd2
	codeInt64    byte = 0xd3
	codeFixext1  byte = 0xd4
	codeFixext2  byte = 0xd5
	codeFixext4  byte = 0xd6
	codeFixext8  byte = 0xd7
	codeFixext16 byte = 0xd8
	codeStr8     byte = 0xd9
	codeStr16    byte = 0xda
	codeStr32    byte = 0xdb
	codeArray16  byte = 0xdc
	codeArray32  byte = 0xdd
	codeMap16    byte = 0xde
	codeMap32    byte = 0xdf
)

// MaxTagHeaderSize is the largest number of bytes any tag header can
// occupy (uint64/int64/float64: 1 code + 8 payload bytes).
const MaxTagHeaderSize = 9

// headerLen returns the total number of header bytes (including the first
// byte itself) that must be available before the tag can be decoded, and
// whether the first byte is a recognized code at all (0xc1 is reserved and
// never valid).
func headerLen(first byte) (n int, ok bool) {
	switch {
	case first <= 0x7f: // positive fixint
		return 1, true
	case first >= 0x80 && first <= 0x8f: // fixmap
		return 1, true
	case first >= 0x90 && first <= 0x9f: // fixarray
		return 1, true
	case first >= 0xa0 && first <= 0xbf: // fixstr
		return 1, true
	case first >= 0xe0: // negative fixint
		return 1, true
	}
	switch first {
	case codeNil, codeFalse, codeTrue:
		return 1, true
	case codeReserved:
		return 1, false
	case codeBin8, codeUint8, codeInt8, codeStr8:
		return 2, true
	case codeBin16, codeUint16, codeInt16, codeStr16, codeArray16, codeMap16:
		return 3, true
	case codeBin32, codeUint32, codeInt32, codeStr32, codeArray32, codeMap32, codeFloat32:
		return 5, true
	case codeUint64, codeInt64, codeFloat64:
		return 9, true
	case codeExt8:
		return 3, true // code + 1 length byte + 1 exttype byte
	case codeExt16:
		return 4, true // code + 2 length bytes + 1 exttype byte
	case codeExt32:
		return 6, true // code + 4 length bytes + 1 exttype byte
	case codeFixext1:
		return 2, true
	case codeFixext2:
		return 2, true
	case codeFixext4:
		return 2, true
	case codeFixext8:
		return 2, true
	case codeFixext16:
		return 2, true
	}
	return 1, false
}

// isExtCode reports whether first denotes one of the extension-carrying
// codes, used to apply the "extensions disabled" build configuration.
func isExtCode(first byte) bool {
	switch first {
	case codeExt8, codeExt16, codeExt32,
		codeFixext1, codeFixext2, codeFixext4, codeFixext8, codeFixext16:
		return true
	default:
		return false
	}
}

// decodeTag decodes a single tag header from a byte-dispatched switch over
// the first byte. header must be exactly headerLen(header[0]) bytes long.
// extEnabled gates the ext/fixext codes, which decode as unsupported when
// the extension family is disabled on the owning Reader or Tree.
func decodeTag(header []byte, extEnabled bool) (Tag, error) {
	first := header[0]
	switch {
	case first <= 0x7f:
		return Tag{kind: KindUint, u: uint64(first)}, nil
	case first >= 0x80 && first <= 0x8f:
		return MapTag(uint32(first & 0x0f)), nil
	case first >= 0x90 && first <= 0x9f:
		return ArrayTag(uint32(first & 0x0f)), nil
	case first >= 0xa0 && first <= 0xbf:
		return StrTag(uint32(first & 0x1f)), nil
	case first >= 0xe0:
		return Tag{kind: KindInt, i: int64(int8(first))}, nil
	}

	switch first {
	case codeNil:
		return NilTag(), nil
	case codeReserved:
		return Tag{}, newErr(KindInvalid)
	case codeFalse:
		return BoolTag(false), nil
	case codeTrue:
		return BoolTag(true), nil

	case codeBin8:
		return BinTag(uint32(header[1])), nil
	case codeBin16:
		return BinTag(uint32(binary.BigEndian.Uint16(header[1:3]))), nil
	case codeBin32:
		return BinTag(binary.BigEndian.Uint32(header[1:5])), nil

	case codeExt8, codeExt16, codeExt32:
		if !extEnabled {
			return Tag{}, newErr(KindUnsupported)
		}
		var length uint32
		var exttype int8
		switch first {
		case codeExt8:
			length = uint32(header[1])
			exttype = int8(header[2])
		case codeExt16:
			length = uint32(binary.BigEndian.Uint16(header[1:3]))
			exttype = int8(header[3])
		case codeExt32:
			length = binary.BigEndian.Uint32(header[1:5])
			exttype = int8(header[5])
		}
		return ExtTag(exttype, length), nil

	case codeFloat32:
		bits := binary.BigEndian.Uint32(header[1:5])
		return FloatTag(math.Float32frombits(bits)), nil
	case codeFloat64:
		bits := binary.BigEndian.Uint64(header[1:9])
		return DoubleTag(math.Float64frombits(bits)), nil

	case codeUint8:
		return Tag{kind: KindUint, u: uint64(header[1])}, nil
	case codeUint16:
		return Tag{kind: KindUint, u: uint64(binary.BigEndian.Uint16(header[1:3]))}, nil
	case codeUint32:
		return Tag{kind: KindUint, u: uint64(binary.BigEndian.Uint32(header[1:5]))}, nil
	case codeUint64:
		return Tag{kind: KindUint, u: binary.BigEndian.Uint64(header[1:9])}, nil

	case codeInt8:
		return Tag{kind: KindInt, i: int64(int8(header[1]))}, nil
	case codeInt16:
		return Tag{kind: KindInt, i: int64(int16(binary.BigEndian.Uint16(header[1:3])))}, nil
	case codeInt32:
		return Tag{kind: KindInt, i: int64(int32(binary.BigEndian.Uint32(header[1:5])))}, nil
	case codeInt64:
		return Tag{kind: KindInt, i: int64(binary.BigEndian.Uint64(header[1:9]))}, nil

	case codeFixext1, codeFixext2, codeFixext4, codeFixext8, codeFixext16:
		if !extEnabled {
			return Tag{}, newErr(KindUnsupported)
		}
		var length uint32
		switch first {
		case codeFixext1:
			length = 1
		case codeFixext2:
			length = 2
		case codeFixext4:
			length = 4
		case codeFixext8:
			length = 8
		case codeFixext16:
			length = 16
		}
		return ExtTag(int8(header[1]), length), nil

	case codeStr8:
		return StrTag(uint32(header[1])), nil
	case codeStr16:
		return StrTag(uint32(binary.BigEndian.Uint16(header[1:3]))), nil
	case codeStr32:
		return StrTag(binary.BigEndian.Uint32(header[1:5])), nil

	case codeArray16:
		return ArrayTag(uint32(binary.BigEndian.Uint16(header[1:3]))), nil
	case codeArray32:
		return ArrayTag(binary.BigEndian.Uint32(header[1:5])), nil

	case codeMap16:
		return MapTag(uint32(binary.BigEndian.Uint16(header[1:3]))), nil
	case codeMap32:
		return MapTag(binary.BigEndian.Uint32(header[1:5])), nil
	}

	return Tag{}, newErr(KindInvalid)
}

// encodeTag appends the shortest valid header encoding of tag to dst and
// returns the result. version gates the v4 compatibility restrictions:
// str8 is forbidden (str16 is used instead), bin falls back to str, and
// ext/timestamp are forbidden entirely.
func encodeTag(dst []byte, tag Tag, version Version, extEnabled bool) ([]byte, error) {
	switch tag.kind {
	case KindMissing:
		return dst, newErr(KindBug)
	case KindNil:
		return append(dst, codeNil), nil
	case KindBool:
		if tag.b {
			return append(dst, codeTrue), nil
		}
		return append(dst, codeFalse), nil
	case KindInt:
		return encodeInt(dst, tag.i), nil
	case KindUint:
		return encodeUint(dst, tag.u), nil
	case KindFloat:
		dst = append(dst, codeFloat32)
		return appendUint32(dst, math.Float32bits(tag.f32)), nil
	case KindDouble:
		dst = append(dst, codeFloat64)
		return appendUint64(dst, math.Float64bits(tag.f64)), nil
	case KindStr:
		return encodeStrHeader(dst, tag.length, version), nil
	case KindBin:
		if version == V4 {
			// v4 has no bin type; writes fall back to str.
			return encodeStrHeader(dst, tag.length, version), nil
		}
		return encodeBinHeader(dst, tag.length), nil
	case KindArray:
		return encodeArrayHeader(dst, tag.length), nil
	case KindMap:
		return encodeMapHeader(dst, tag.length), nil
	case KindExt:
		if version == V4 {
			return dst, newErr(KindBug)
		}
		if !extEnabled {
			return dst, newErr(KindUnsupported)
		}
		return encodeExtHeader(dst, tag.exttype, tag.length), nil
	default:
		return dst, newErr(KindBug)
	}
}

func appendUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

func appendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// encodeInt picks the shortest signed-or-unsigned form that fits v: a
// non-negative value always takes the unsigned ladder (fixint before u8
// before u16 and so on), a negative one the signed ladder.
func encodeInt(dst []byte, v int64) []byte {
	if v >= 0 {
		return encodeUint(dst, uint64(v))
	}
	switch {
	case v >= -32:
		return append(dst, byte(v))
	case v >= -128:
		return append(dst, codeInt8, byte(v))
	case v >= -32768:
		dst = append(dst, codeInt16)
		return appendUint16(dst, uint16(v))
	case v >= -(1 << 31):
		dst = append(dst, codeInt32)
		return appendUint32(dst, uint32(v))
	default:
		dst = append(dst, codeInt64)
		return appendUint64(dst, uint64(v))
	}
}

func encodeUint(dst []byte, v uint64) []byte {
	switch {
	case v <= 0x7f:
		return append(dst, byte(v))
	case v <= 0xff:
		return append(dst, codeUint8, byte(v))
	case v <= 0xffff:
		dst = append(dst, codeUint16)
		return appendUint16(dst, uint16(v))
	case v <= 0xffffffff:
		dst = append(dst, codeUint32)
		return appendUint32(dst, uint32(v))
	default:
		dst = append(dst, codeUint64)
		return appendUint64(dst, v)
	}
}

func encodeStrHeader(dst []byte, length uint32, version Version) []byte {
	switch {
	case length <= 31:
		return append(dst, 0xa0|byte(length))
	case version == V4:
		// str8 is forbidden in v4; str16 covers the rest of its range
		// and is used even for lengths that would fit str8 elsewhere.
		if length <= 0xffff {
			dst = append(dst, codeStr16)
			return appendUint16(dst, uint16(length))
		}
		dst = append(dst, codeStr32)
		return appendUint32(dst, length)
	case length <= 0xff:
		return append(dst, codeStr8, byte(length))
	case length <= 0xffff:
		dst = append(dst, codeStr16)
		return appendUint16(dst, uint16(length))
	default:
		dst = append(dst, codeStr32)
		return appendUint32(dst, length)
	}
}

func encodeBinHeader(dst []byte, length uint32) []byte {
	switch {
	case length <= 0xff:
		return append(dst, codeBin8, byte(length))
	case length <= 0xffff:
		dst = append(dst, codeBin16)
		return appendUint16(dst, uint16(length))
	default:
		dst = append(dst, codeBin32)
		return appendUint32(dst, length)
	}
}

func encodeArrayHeader(dst []byte, count uint32) []byte {
	switch {
	case count <= 15:
		return append(dst, 0x90|byte(count))
	case count <= 0xffff:
		dst = append(dst, codeArray16)
		return appendUint16(dst, uint16(count))
	default:
		dst = append(dst, codeArray32)
		return appendUint32(dst, count)
	}
}

func encodeMapHeader(dst []byte, count uint32) []byte {
	switch {
	case count <= 15:
		return append(dst, 0x80|byte(count))
	case count <= 0xffff:
		dst = append(dst, codeMap16)
		return appendUint16(dst, uint16(count))
	default:
		dst = append(dst, codeMap32)
		return appendUint32(dst, count)
	}
}

func encodeExtHeader(dst []byte, exttype int8, length uint32) []byte {
	switch length {
	case 1:
		return append(dst, codeFixext1, byte(exttype))
	case 2:
		return append(dst, codeFixext2, byte(exttype))
	case 4:
		return append(dst, codeFixext4, byte(exttype))
	case 8:
		return append(dst, codeFixext8, byte(exttype))
	case 16:
		return append(dst, codeFixext16, byte(exttype))
	}
	switch {
	case length <= 0xff:
		return append(dst, codeExt8, byte(length), byte(exttype))
	case length <= 0xffff:
		dst = append(dst, codeExt16)
		dst = appendUint16(dst, uint16(length))
		return append(dst, byte(exttype))
	default:
		dst = append(dst, codeExt32)
		dst = appendUint32(dst, length)
		return append(dst, byte(exttype))
	}
}

// MaxTimestampNanoseconds is the largest legal nanoseconds field of a
// timestamp extension value.
const MaxTimestampNanoseconds = 999999999

// encodeTimestamp appends the shortest of the three timestamp bodies to
// dst: 4 bytes when nanoseconds are zero and the seconds fit a u32, 8
// bytes while the seconds fit 34 unsigned bits, 12 bytes otherwise.
func encodeTimestamp(dst []byte, seconds int64, nanoseconds uint32) ([]byte, error) {
	if nanoseconds > MaxTimestampNanoseconds {
		return dst, newErr(KindInvalid)
	}
	switch {
	case nanoseconds == 0 && seconds >= 0 && seconds <= 0xffffffff:
		return appendUint32(dst, uint32(seconds)), nil
	case seconds >= 0 && seconds < (1<<34):
		packed := (uint64(nanoseconds) << 34) | uint64(seconds)
		return appendUint64(dst, packed), nil
	default:
		dst = appendUint32(dst, nanoseconds)
		return appendUint64(dst, uint64(seconds)), nil
	}
}

// decodeTimestamp reverses encodeTimestamp given the ext body bytes (4, 8,
// or 12 bytes, per the encoded form's length).
func decodeTimestamp(body []byte) (seconds int64, nanoseconds uint32, err error) {
	switch len(body) {
	case 4:
		return int64(binary.BigEndian.Uint32(body)), 0, nil
	case 8:
		packed := binary.BigEndian.Uint64(body)
		nanoseconds = uint32(packed >> 34)
		seconds = int64(packed & ((1 << 34) - 1))
	case 12:
		nanoseconds = binary.BigEndian.Uint32(body[:4])
		seconds = int64(binary.BigEndian.Uint64(body[4:]))
	default:
		return 0, 0, newErr(KindInvalid)
	}
	if nanoseconds > MaxTimestampNanoseconds {
		return 0, 0, newErr(KindInvalid)
	}
	return seconds, nanoseconds, nil
}

// timestampBodyLen returns the number of body bytes encodeTimestamp will
// produce for the given value, used by Writer.WriteTimestamp to size its
// ensure() call before encoding.
func timestampBodyLen(seconds int64, nanoseconds uint32) int {
	switch {
	case nanoseconds == 0 && seconds >= 0 && seconds <= 0xffffffff:
		return 4
	case seconds >= 0 && seconds < (1<<34):
		return 8
	default:
		return 12
	}
}
