// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

// readerOptions configures a Reader. defaultReaderOptions gives every
// Option a stable base: the package-level default struct is copied and
// then mutated by each supplied Option.
type readerOptions struct {
	Version       Version
	Tracking      bool
	Extensions    bool
	SmallFraction int // straddling copy-read heuristic divisor
	SeekThreshold int // SkipBytes seek-vs-fill divisor
	Skip          SkipFunc
	OnError       ErrorFunc
	Teardown      TeardownFunc
	UserData      any
}

var defaultReaderOptions = readerOptions{
	Version:       V5,
	Tracking:      true,
	Extensions:    true,
	SmallFraction: 32,
	SeekThreshold: 16,
}

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*readerOptions)

// WithReaderVersion selects the MessagePack compatibility mode used to
// interpret v4-forbidden codes (ext, timestamp) as unsupported.
func WithReaderVersion(v Version) ReaderOption {
	return func(o *readerOptions) { o.Version = v }
}

// WithReaderTracking enables or disables the structural tracking stack.
// Tracking is on by default; disabling it does not change the observable
// success behavior of correctly sequenced calls, only whether misuse is
// caught.
func WithReaderTracking(enabled bool) ReaderOption {
	return func(o *readerOptions) { o.Tracking = enabled }
}

// WithReaderExtensionsDisabled rejects ext/fixext/timestamp codes with
// KindUnsupported, for callers whose dialect excludes the extension
// family entirely.
func WithReaderExtensionsDisabled() ReaderOption {
	return func(o *readerOptions) { o.Extensions = false }
}

// WithReaderSkip attaches a seek-like skip callback used by SkipBytes to
// bypass large spans without filling them through the buffer.
func WithReaderSkip(fn SkipFunc) ReaderOption {
	return func(o *readerOptions) { o.Skip = fn }
}

// WithReaderErrorFunc attaches a callback invoked exactly once, at the
// moment the Reader transitions into an error state.
func WithReaderErrorFunc(fn ErrorFunc) ReaderOption {
	return func(o *readerOptions) { o.OnError = fn }
}

// WithReaderTeardownFunc attaches a callback invoked exactly once from
// Destroy, after the tracking-stack empty check.
func WithReaderTeardownFunc(fn TeardownFunc) ReaderOption {
	return func(o *readerOptions) { o.Teardown = fn }
}

// WithReaderUserData attaches an opaque value retrievable via
// Reader.UserData, for callers who want per-instance state on the Reader
// itself rather than captured in every callback closure.
func WithReaderUserData(v any) ReaderOption {
	return func(o *readerOptions) { o.UserData = v }
}

// writerOptions configures a Writer.
type writerOptions struct {
	Version    Version
	Tracking   bool
	Extensions bool
	OnError    ErrorFunc
	Teardown   TeardownFunc
	UserData   any
}

var defaultWriterOptions = writerOptions{
	Version:    V5,
	Tracking:   true,
	Extensions: true,
}

// WriterOption configures a Writer at construction time.
type WriterOption func(*writerOptions)

// WithWriterVersion selects the MessagePack compatibility mode: in v4
// mode str8 is never emitted, bin writes fall back to str, and
// ext/timestamp writes flag bug.
func WithWriterVersion(v Version) WriterOption {
	return func(o *writerOptions) { o.Version = v }
}

// WithWriterTracking enables or disables the structural tracking stack.
func WithWriterTracking(enabled bool) WriterOption {
	return func(o *writerOptions) { o.Tracking = enabled }
}

// WithWriterExtensionsDisabled rejects ext/timestamp writes with
// KindUnsupported.
func WithWriterExtensionsDisabled() WriterOption {
	return func(o *writerOptions) { o.Extensions = false }
}

// WithWriterErrorFunc attaches a callback invoked exactly once, at the
// moment the Writer transitions into an error state.
func WithWriterErrorFunc(fn ErrorFunc) WriterOption {
	return func(o *writerOptions) { o.OnError = fn }
}

// WithWriterTeardownFunc attaches a callback invoked exactly once from
// Destroy, after the final flush.
func WithWriterTeardownFunc(fn TeardownFunc) WriterOption {
	return func(o *writerOptions) { o.Teardown = fn }
}

// WithWriterUserData attaches an opaque value retrievable via
// Writer.UserData.
func WithWriterUserData(v any) WriterOption {
	return func(o *writerOptions) { o.UserData = v }
}

// treeOptions configures a Tree.
type treeOptions struct {
	Version        Version
	Extensions     bool
	MaxMessageSize int64
	MaxNodes       int64
	PageNodes      int
	OnError        ErrorFunc
	Teardown       TeardownFunc
	UserData       any
}

const (
	defaultMaxMessageSize = 1 << 20 // 1 MiB, used only for stream-backed trees
	defaultMaxNodes       = 1 << 20
	defaultPageNodes      = 256
)

var defaultTreeOptions = treeOptions{
	Version:        V5,
	Extensions:     true,
	MaxMessageSize: defaultMaxMessageSize,
	MaxNodes:       defaultMaxNodes,
	PageNodes:      defaultPageNodes,
}

// TreeOption configures a Tree at construction time.
type TreeOption func(*treeOptions)

// WithTreeVersion selects the MessagePack compatibility mode.
func WithTreeVersion(v Version) TreeOption {
	return func(o *treeOptions) { o.Version = v }
}

// WithTreeExtensionsDisabled rejects ext/timestamp nodes with
// KindUnsupported.
func WithTreeExtensionsDisabled() TreeOption {
	return func(o *treeOptions) { o.Extensions = false }
}

// WithMaxMessageSize bounds how large a stream-backed Tree's internal
// buffer may grow. It has no effect on a Tree parsed from a fixed blob,
// whose effective bound is simply the blob's length.
func WithMaxMessageSize(n int64) TreeOption {
	return func(o *treeOptions) { o.MaxMessageSize = n }
}

// WithMaxNodes bounds the total number of nodes a single parse may
// allocate, enforced alongside the remaining-input bound before any child
// storage is allocated.
func WithMaxNodes(n int64) TreeOption {
	return func(o *treeOptions) { o.MaxNodes = n }
}

// WithPageNodes sets the initial capacity of the Tree's explicit parse
// stack (one frame per currently open compound), avoiding a few early
// stack reallocations for documents with known typical nesting depth.
func WithPageNodes(n int) TreeOption {
	return func(o *treeOptions) {
		if n > 0 {
			o.PageNodes = n
		}
	}
}

// WithTreeErrorFunc attaches a callback invoked exactly once, at the
// moment the Tree transitions into an error state.
func WithTreeErrorFunc(fn ErrorFunc) TreeOption {
	return func(o *treeOptions) { o.OnError = fn }
}

// WithTreeTeardownFunc attaches a callback invoked exactly once from
// Destroy.
func WithTreeTeardownFunc(fn TeardownFunc) TreeOption {
	return func(o *treeOptions) { o.Teardown = fn }
}

// WithTreeUserData attaches an opaque value retrievable via Tree.UserData.
func WithTreeUserData(v any) TreeOption {
	return func(o *treeOptions) { o.UserData = v }
}
