// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

import (
	"bytes"
	"math"
)

// Node is a handle to one value inside a parsed Tree. The zero value is
// not useful; Nodes are obtained from Tree.Root and from other Node
// accessors. A Node remains valid only as long as its Tree has not been
// destroyed.
type Node struct {
	tree *Tree
	d    *nodeData
}

func (n Node) failed() bool { return n.tree.err != nil }

// Kind reports which MessagePack type this node carries. On a tree in an
// error state every node behaves as the nil sentinel.
func (n Node) Kind() Kind {
	if n.failed() {
		return KindNil
	}
	return n.d.tag.Kind()
}

// IsMissing reports whether n is the sentinel returned by an optional
// lookup that found nothing. It is distinct from IsNil.
func (n Node) IsMissing() bool { return n.Kind() == KindMissing }

// IsNil reports whether n holds the MessagePack nil value.
func (n Node) IsNil() bool { return n.Kind() == KindNil }

// Tag returns the node's decoded tag, or NilTag on a tree in an error
// state.
func (n Node) Tag() Tag {
	if n.failed() {
		return NilTag()
	}
	return n.d.tag
}

// Bool returns the node's bool value, flagging type on the tree if n is
// not a bool.
func (n Node) Bool() bool {
	if n.failed() {
		return false
	}
	if n.d.tag.Kind() != KindBool {
		n.tree.fail(newErr(KindType))
		return false
	}
	return n.d.tag.Bool()
}

func (n Node) asInt() (int64, bool) {
	switch n.d.tag.Kind() {
	case KindInt:
		return n.d.tag.Int(), true
	case KindUint:
		u := n.d.tag.Uint()
		if u <= math.MaxInt64 {
			return int64(u), true
		}
	}
	return 0, false
}

func (n Node) asUint() (uint64, bool) {
	switch n.d.tag.Kind() {
	case KindUint:
		return n.d.tag.Uint(), true
	case KindInt:
		i := n.d.tag.Int()
		if i >= 0 {
			return uint64(i), true
		}
	}
	return 0, false
}

func (n Node) rangedInt(lo, hi int64) int64 {
	if n.failed() {
		return 0
	}
	v, ok := n.asInt()
	if !ok || v < lo || v > hi {
		n.tree.fail(newErr(KindType))
		return 0
	}
	return v
}

func (n Node) rangedUint(hi uint64) uint64 {
	if n.failed() {
		return 0
	}
	v, ok := n.asUint()
	if !ok || v > hi {
		n.tree.fail(newErr(KindType))
		return 0
	}
	return v
}

// Int8, Int16, Int32, and Int64 return the node's value if it is an
// integer of either signedness that fits in the named width, flagging
// type otherwise.
func (n Node) Int8() int8   { return int8(n.rangedInt(math.MinInt8, math.MaxInt8)) }
func (n Node) Int16() int16 { return int16(n.rangedInt(math.MinInt16, math.MaxInt16)) }
func (n Node) Int32() int32 { return int32(n.rangedInt(math.MinInt32, math.MaxInt32)) }
func (n Node) Int64() int64 { return n.rangedInt(math.MinInt64, math.MaxInt64) }

// Uint8, Uint16, Uint32, and Uint64 return the node's value if it is a
// non-negative integer of either signedness that fits in the named width,
// flagging type otherwise.
func (n Node) Uint8() uint8   { return uint8(n.rangedUint(math.MaxUint8)) }
func (n Node) Uint16() uint16 { return uint16(n.rangedUint(math.MaxUint16)) }
func (n Node) Uint32() uint32 { return uint32(n.rangedUint(math.MaxUint32)) }
func (n Node) Uint64() uint64 { return n.rangedUint(math.MaxUint64) }

// Float returns the node's value coerced to float32 from any numeric
// kind (float, double, int, or uint), flagging type otherwise.
func (n Node) Float() float32 {
	if n.failed() {
		return 0
	}
	switch n.d.tag.Kind() {
	case KindFloat:
		return n.d.tag.Float()
	case KindDouble:
		return float32(n.d.tag.Double())
	case KindInt:
		return float32(n.d.tag.Int())
	case KindUint:
		return float32(n.d.tag.Uint())
	}
	n.tree.fail(newErr(KindType))
	return 0
}

// Double returns the node's value coerced to float64 from any numeric
// kind (float, double, int, or uint), flagging type otherwise.
func (n Node) Double() float64 {
	if n.failed() {
		return 0
	}
	switch n.d.tag.Kind() {
	case KindDouble:
		return n.d.tag.Double()
	case KindFloat:
		return float64(n.d.tag.Float())
	case KindInt:
		return float64(n.d.tag.Int())
	case KindUint:
		return float64(n.d.tag.Uint())
	}
	n.tree.fail(newErr(KindType))
	return 0
}

// Length returns the element/pair count for array/map nodes, or the byte
// length for str/bin/ext nodes, flagging type for any other kind.
func (n Node) Length() uint32 {
	if n.failed() {
		return 0
	}
	switch n.d.tag.Kind() {
	case KindStr, KindBin, KindExt, KindArray, KindMap:
		return n.d.tag.Length()
	}
	n.tree.fail(newErr(KindType))
	return 0
}

// ExtType returns the node's extension type byte, flagging type if n is
// not an ext node.
func (n Node) ExtType() int8 {
	if n.failed() {
		return 0
	}
	if n.d.tag.Kind() != KindExt {
		n.tree.fail(newErr(KindType))
		return 0
	}
	return n.d.tag.ExtType()
}

// Data returns the node's raw str/bin/ext payload, borrowed from the
// tree's backing blob or stream buffer. It is valid only until the tree
// is destroyed. Flags type for any other kind.
func (n Node) Data() []byte {
	if n.failed() {
		return nil
	}
	switch n.d.tag.Kind() {
	case KindStr, KindBin, KindExt:
		return n.d.data
	}
	n.tree.fail(newErr(KindType))
	return nil
}

// Str returns a str node's payload as a Go string, flagging type if n is
// not a str node.
func (n Node) Str() string {
	if n.failed() {
		return ""
	}
	if n.d.tag.Kind() != KindStr {
		n.tree.fail(newErr(KindType))
		return ""
	}
	return string(n.d.data)
}

// CopyBytes copies n's str/bin/ext payload into dst, returning the number
// of bytes copied. Flags too_big if dst is too small to hold it.
func (n Node) CopyBytes(dst []byte) int {
	data := n.Data()
	if n.failed() {
		return 0
	}
	if len(dst) < len(data) {
		n.tree.fail(newErr(KindTooBig))
		return 0
	}
	return copy(dst, data)
}

// DataCopy returns a freshly allocated copy of n's str/bin/ext payload,
// independent of the tree's backing storage.
func (n Node) DataCopy() []byte {
	data := n.Data()
	if n.failed() {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// ArrayLength returns the element count of an array node, flagging type
// otherwise.
func (n Node) ArrayLength() uint32 {
	if n.failed() {
		return 0
	}
	if n.d.tag.Kind() != KindArray {
		n.tree.fail(newErr(KindType))
		return 0
	}
	return n.d.tag.Length()
}

// ArrayAt returns the i'th element of an array node, flagging type if n is
// not an array or data if i is out of range, and returning the tree's nil
// sentinel in either case.
func (n Node) ArrayAt(i int) Node {
	if n.failed() {
		return n.tree.nilNode()
	}
	if n.d.tag.Kind() != KindArray {
		n.tree.fail(newErr(KindType))
		return n.tree.nilNode()
	}
	if i < 0 || i >= len(n.d.children) {
		n.tree.fail(newErr(KindData))
		return n.tree.nilNode()
	}
	return Node{tree: n.tree, d: &n.d.children[i]}
}

// MapCount returns the key/value pair count of a map node, flagging type
// otherwise.
func (n Node) MapCount() uint32 {
	if n.failed() {
		return 0
	}
	if n.d.tag.Kind() != KindMap {
		n.tree.fail(newErr(KindType))
		return 0
	}
	return n.d.tag.Length()
}

// MapKeyAt and MapValueAt return the i'th key or value of a map node
// (0 <= i < MapCount()), for callers that want to enumerate a map rather
// than look up a single key.
func (n Node) MapKeyAt(i int) Node {
	if n.failed() {
		return n.tree.nilNode()
	}
	if n.d.tag.Kind() != KindMap {
		n.tree.fail(newErr(KindType))
		return n.tree.nilNode()
	}
	if i < 0 || 2*i >= len(n.d.children) {
		n.tree.fail(newErr(KindData))
		return n.tree.nilNode()
	}
	return Node{tree: n.tree, d: &n.d.children[2*i]}
}

func (n Node) MapValueAt(i int) Node {
	if n.failed() {
		return n.tree.nilNode()
	}
	if n.d.tag.Kind() != KindMap {
		n.tree.fail(newErr(KindType))
		return n.tree.nilNode()
	}
	if i < 0 || 2*i+1 >= len(n.d.children) {
		n.tree.fail(newErr(KindData))
		return n.tree.nilNode()
	}
	return Node{tree: n.tree, d: &n.d.children[2*i+1]}
}

// mapFind linear-scans a map node's keys for exactly one match, flagging
// type if n is not a map and data if more than one key matches.
func (n Node) mapFind(match func(key *nodeData) bool) (int, bool) {
	if n.d.tag.Kind() != KindMap {
		n.tree.fail(newErr(KindType))
		return -1, false
	}
	found := -1
	for i := 0; i < len(n.d.children); i += 2 {
		if match(&n.d.children[i]) {
			if found != -1 {
				n.tree.fail(newErr(KindData))
				return -1, false
			}
			found = i
		}
	}
	return found, found != -1
}

// MapInt, MapUint, MapStr, and MapCStr look up a map node's value by key,
// treating int and uint keys as interchangeable when both are
// non-negative. Absent keys return the tree's missing sentinel without
// flagging an error; a duplicate matching key flags data.
func (n Node) MapInt(key int64) Node {
	if n.failed() {
		return n.tree.nilNode()
	}
	idx, found := n.mapFind(func(k *nodeData) bool {
		switch k.tag.Kind() {
		case KindInt:
			return k.tag.Int() == key
		case KindUint:
			return key >= 0 && k.tag.Uint() == uint64(key)
		}
		return false
	})
	if n.failed() {
		return n.tree.nilNode()
	}
	if !found {
		return n.tree.missingNode()
	}
	return Node{tree: n.tree, d: &n.d.children[idx+1]}
}

func (n Node) MapUint(key uint64) Node {
	if n.failed() {
		return n.tree.nilNode()
	}
	idx, found := n.mapFind(func(k *nodeData) bool {
		switch k.tag.Kind() {
		case KindUint:
			return k.tag.Uint() == key
		case KindInt:
			i := k.tag.Int()
			return i >= 0 && uint64(i) == key
		}
		return false
	})
	if n.failed() {
		return n.tree.nilNode()
	}
	if !found {
		return n.tree.missingNode()
	}
	return Node{tree: n.tree, d: &n.d.children[idx+1]}
}

func (n Node) MapStr(key string) Node {
	if n.failed() {
		return n.tree.nilNode()
	}
	kb := []byte(key)
	idx, found := n.mapFind(func(k *nodeData) bool {
		return k.tag.Kind() == KindStr && bytes.Equal(k.data, kb)
	})
	if n.failed() {
		return n.tree.nilNode()
	}
	if !found {
		return n.tree.missingNode()
	}
	return Node{tree: n.tree, d: &n.d.children[idx+1]}
}

// MapCStr is MapStr for callers working with NUL-terminated C strings;
// key must not itself contain an embedded NUL (Go strings have no notion
// of one, so the lookup is identical to MapStr).
func (n Node) MapCStr(key string) Node { return n.MapStr(key) }

// Enum returns the index of n's str value within strs, flagging data if
// n is a str with no match, or type if n is not a str.
func (n Node) Enum(strs []string) int {
	if n.failed() {
		return len(strs)
	}
	if n.d.tag.Kind() != KindStr {
		n.tree.fail(newErr(KindType))
		return len(strs)
	}
	s := string(n.d.data)
	for i, candidate := range strs {
		if candidate == s {
			return i
		}
	}
	n.tree.fail(newErr(KindData))
	return len(strs)
}

// EnumOptional is Enum without flagging on no-match or wrong kind: it
// simply returns len(strs).
func (n Node) EnumOptional(strs []string) int {
	if n.failed() {
		return len(strs)
	}
	if n.d.tag.Kind() != KindStr {
		return len(strs)
	}
	s := string(n.d.data)
	for i, candidate := range strs {
		if candidate == s {
			return i
		}
	}
	return len(strs)
}
