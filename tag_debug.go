//go:build msgpack_debug

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

import "fmt"

// assertKind panics if t's variant is not one of want. Built only with the
// msgpack_debug tag; release builds use the no-op in tag_release.go so that
// calling an accessor on the wrong variant is undefined but never crashes,
// per this package's tag-model contract.
func assertKind(t Tag, want ...Kind) {
	for _, k := range want {
		if t.kind == k {
			return
		}
	}
	panic(fmt.Sprintf("msgpack: accessor called on tag of kind %s, want one of %v", t.kind, want))
}
