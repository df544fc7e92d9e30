//go:build !msgpack_debug

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

// assertKind is a no-op in release builds: calling an accessor on the wrong
// tag variant is undefined but must not crash, per this package's tag-model
// contract. Enable the msgpack_debug build tag to turn mismatches into a
// hard panic during development and tests.
func assertKind(Tag, ...Kind) {}
