// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package msgsax is a small SAX-style recursive descent walker over a
// msgpack.Reader: one callback per decoded value, no tree materialised.
// It is built entirely on the Reader's public tag/byte-read surface.
package msgsax

import (
	"fmt"

	"code.hybscloud.com/msgpack"
)

// maxDepth bounds recursion: an attacker-controlled message nesting
// arbitrarily deep must not blow the Go call stack.
const maxDepth = 32

// Callbacks receives one call per decoded value as the walker descends a
// message, depth-first. Array and map callbacks bracket their children:
// StartArray/StartMap fire before the children are walked, FinishArray/
// FinishMap after.
type Callbacks struct {
	Nil         func(depth int)
	Bool        func(depth int, v bool)
	Int         func(depth int, v int64)
	Uint        func(depth int, v uint64)
	Float       func(depth int, v float32)
	Double      func(depth int, v float64)
	Str         func(depth int, data []byte)
	Bin         func(depth int, data []byte)
	Ext         func(depth int, exttype int8, data []byte)
	StartArray  func(depth int, count uint32)
	FinishArray func(depth int)
	StartMap    func(depth int, count uint32)
	FinishMap   func(depth int)
}

// Walk parses exactly one complete message from r, invoking cb as it goes.
// It returns the first error flagged on r, if any, as r.Err() reports it.
// A Reader already in an error state returns that error unchanged without
// invoking any callback.
func Walk(r *msgpack.Reader, cb Callbacks) error {
	if err := r.Err(); err != nil {
		return err
	}
	walkElement(r, 0, cb)
	return r.Err()
}

func walkElement(r *msgpack.Reader, depth int, cb Callbacks) {
	if r.Err() != nil {
		return
	}
	if depth >= maxDepth {
		r.Fail(msgpack.KindTooBig)
		return
	}

	tag := r.ReadTag()
	if r.Err() != nil {
		return
	}

	switch tag.Kind() {
	case msgpack.KindNil:
		if cb.Nil != nil {
			cb.Nil(depth)
		}
	case msgpack.KindBool:
		if cb.Bool != nil {
			cb.Bool(depth, tag.Bool())
		}
	case msgpack.KindInt:
		if cb.Int != nil {
			cb.Int(depth, tag.Int())
		}
	case msgpack.KindUint:
		if cb.Uint != nil {
			cb.Uint(depth, tag.Uint())
		}
	case msgpack.KindFloat:
		if cb.Float != nil {
			cb.Float(depth, tag.Float())
		}
	case msgpack.KindDouble:
		if cb.Double != nil {
			cb.Double(depth, tag.Double())
		}

	case msgpack.KindStr:
		length := tag.Length()
		data, err := r.ReadBytesInplace(int(length))
		if err != nil {
			return
		}
		if cb.Str != nil {
			cb.Str(depth, data)
		}
		r.DoneStr()

	case msgpack.KindBin:
		length := tag.Length()
		data, err := r.ReadBytesInplace(int(length))
		if err != nil {
			return
		}
		if cb.Bin != nil {
			cb.Bin(depth, data)
		}
		r.DoneBin()

	case msgpack.KindExt:
		length := tag.Length()
		data, err := r.ReadBytesInplace(int(length))
		if err != nil {
			return
		}
		if cb.Ext != nil {
			cb.Ext(depth, tag.ExtType(), data)
		}
		r.DoneExt()

	case msgpack.KindArray:
		count := tag.Length()
		if cb.StartArray != nil {
			cb.StartArray(depth, count)
		}
		for i := uint32(0); i < count; i++ {
			walkElement(r, depth+1, cb)
			if r.Err() != nil {
				break
			}
		}
		if cb.FinishArray != nil {
			cb.FinishArray(depth)
		}
		r.DoneArray()

	case msgpack.KindMap:
		count := tag.Length()
		if cb.StartMap != nil {
			cb.StartMap(depth, count)
		}
		for i := uint32(0); i < count; i++ {
			walkElement(r, depth+1, cb)
			walkElement(r, depth+1, cb)
			if r.Err() != nil {
				break
			}
		}
		if cb.FinishMap != nil {
			cb.FinishMap(depth)
		}
		r.DoneMap()

	default:
		r.Fail(msgpack.KindUnsupported)
	}
}

// DebugString is a convenience Callbacks constructor that accumulates an
// indented textual trace, primarily useful in tests. It makes no
// numeric or structural fidelity guarantee; it is only a human-readable
// trace of the callback sequence, not a serialization format.
func DebugString(out *[]string) Callbacks {
	indent := func(depth int) string {
		return fmt.Sprintf("%*s", depth*2, "")
	}
	return Callbacks{
		Nil:   func(d int) { *out = append(*out, indent(d)+"nil") },
		Bool:  func(d int, v bool) { *out = append(*out, fmt.Sprintf("%sbool: %v", indent(d), v)) },
		Int:   func(d int, v int64) { *out = append(*out, fmt.Sprintf("%sint: %d", indent(d), v)) },
		Uint:  func(d int, v uint64) { *out = append(*out, fmt.Sprintf("%suint: %d", indent(d), v)) },
		Float: func(d int, v float32) { *out = append(*out, fmt.Sprintf("%sfloat: %v", indent(d), v)) },
		Double: func(d int, v float64) {
			*out = append(*out, fmt.Sprintf("%sdouble: %v", indent(d), v))
		},
		Str: func(d int, data []byte) {
			*out = append(*out, fmt.Sprintf("%sstring: %q", indent(d), string(data)))
		},
		Bin: func(d int, data []byte) {
			*out = append(*out, fmt.Sprintf("%sbin: % x", indent(d), data))
		},
		Ext: func(d int, exttype int8, data []byte) {
			*out = append(*out, fmt.Sprintf("%sext(%d): % x", indent(d), exttype, data))
		},
		StartArray: func(d int, count uint32) {
			*out = append(*out, fmt.Sprintf("%sarray[%d]", indent(d), count))
		},
		FinishArray: func(d int) {},
		StartMap: func(d int, count uint32) {
			*out = append(*out, fmt.Sprintf("%smap[%d]", indent(d), count))
		},
		FinishMap: func(d int) {},
	}
}
