// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

// FillFunc supplies more bytes to a Reader or Tree. It writes into dst and
// returns the number of bytes written. Reader.ensure and Tree.Parse treat a
// zero-byte, nil-error return as end of input and flag io; Tree.TryParse is
// the one operation in the library with a non-blocking mode, and instead
// treats it as "no data yet" and suspends, returning control to its caller
// to retry later. Any non-nil error (including io.EOF) is fatal to a
// blocking caller.
type FillFunc func(dst []byte) (n int, err error)

// SkipFunc advances a Reader's underlying source by n bytes without
// filling them through the buffer, used by SkipBytes for large spans.
type SkipFunc func(n int64) error

// FlushFunc delivers p to a Writer's sink. A nil return means all of p was
// accepted. A Writer is purely blocking and has no pending-write state to
// resume, so ErrWouldBlock/ErrMore are not a retry signal here the way they
// are for Tree.TryParse's fill: either one is treated as a fatal io error.
type FlushFunc func(p []byte) error

// ErrorFunc is invoked exactly once, at the moment a Reader, Writer, or
// Tree transitions into an error state.
type ErrorFunc func(err *Error)

// TeardownFunc is invoked exactly once when a Reader, Writer, or Tree is
// destroyed, whether or not an error was flagged.
type TeardownFunc func()
