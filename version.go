// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

// Version selects a MessagePack specification generation for encoding.
type Version uint8

const (
	// V5 is the current specification: str8, bin, ext, and timestamps are
	// all available. This is the default.
	V5 Version = 5

	// V4 is the legacy specification. str8 is forbidden (str16 is used
	// instead), bin writes fall back to the str type, and ext/timestamp
	// are forbidden entirely.
	V4 Version = 4
)
