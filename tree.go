// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msgpack

import (
	"errors"
	"io"
)

// nodeData is the storage behind one parsed Node. Scalars carry only tag;
// array and map carry children (for a map, key/value pairs flattened two
// entries at a time); str/bin/ext carry data. Children and data are plain
// Go slices: the garbage collector, not a manual arena, owns their
// lifetime, and the bounded-nodes ledger below is what actually defends
// against adversarial size declarations, not the allocation strategy.
type nodeData struct {
	tag      Tag
	children []nodeData
	data     []byte
}

var missingNodeData = nodeData{}
var nilNodeData = nodeData{tag: NilTag()}

// TreeState reports how far a Tree's current message has progressed.
type TreeState uint8

const (
	TreeNotParsed TreeState = iota
	TreeInProgress
	TreeParsed
)

// treeFrame is one entry of the parser's explicit, non-recursive stack:
// the compound node currently being filled and the index of its next
// unfilled child.
type treeFrame struct {
	node *nodeData
	idx  int
}

// Tree parses a complete MessagePack message into a graph of Nodes, either
// from a borrowed contiguous blob or incrementally from a fill callback. A
// Tree is not safe for concurrent use; exactly one logical caller owns an
// instance at a time.
type Tree struct {
	opts  treeOptions
	err   *Error
	state TreeState

	root     nodeData
	stack    []treeFrame
	rootDone bool

	pendingPayload *nodeData
	pendingLen     int

	// The bounded-nodes ledger: possibleNodesLeft is the count of input
	// bytes in hand that no node has spoken for yet. Every fill credits
	// it; every reservation (one byte per declared child of a container,
	// plus a node's length-prefix and payload bytes) debits it. Because
	// every node costs at least one input byte, a reservation that cannot
	// be covered proves the declared sizes exceed what the input can ever
	// deliver, before anything is allocated for them.
	nodesAllocated    int64
	possibleNodesLeft int64

	// contiguous-blob mode
	blob    []byte
	blobPos int

	// stream mode
	fill                FillFunc
	streamBuf           []byte
	streamPos           int
	streamEnd           int
	streamConsumedTotal int64
}

// NewTreeFromBytes returns a Tree that parses data in place. data is
// borrowed: the caller must keep it alive until the Tree is destroyed, and
// any str/bin/ext Node data is a zero-copy slice into it.
func NewTreeFromBytes(data []byte, opts ...TreeOption) *Tree {
	o := defaultTreeOptions
	for _, fn := range opts {
		fn(&o)
	}
	stackCap := o.PageNodes
	if stackCap <= 0 {
		stackCap = 8
	}
	if data == nil {
		data = []byte{}
	}
	return &Tree{opts: o, blob: data, stack: make([]treeFrame, 0, stackCap)}
}

// NewTree returns a stream-backed Tree that refills its own growable
// buffer (bounded by WithMaxMessageSize) by calling fill.
func NewTree(fill FillFunc, opts ...TreeOption) *Tree {
	o := defaultTreeOptions
	for _, fn := range opts {
		fn(&o)
	}
	stackCap := o.PageNodes
	if stackCap <= 0 {
		stackCap = 8
	}
	const initialStreamBuf = 256
	bufCap := initialStreamBuf
	if int64(bufCap) > o.MaxMessageSize {
		bufCap = int(o.MaxMessageSize)
	}
	if bufCap < 1 {
		bufCap = 1
	}
	return &Tree{
		opts:      o,
		fill:      fill,
		streamBuf: make([]byte, bufCap),
		stack:     make([]treeFrame, 0, stackCap),
	}
}

// NewTreeFromIO adapts an io.Reader into a Tree's fill callback.
func NewTreeFromIO(src io.Reader, opts ...TreeOption) *Tree {
	return NewTree(func(dst []byte) (int, error) { return src.Read(dst) }, opts...)
}

// UserData returns the opaque value attached via WithTreeUserData, or nil.
func (t *Tree) UserData() any { return t.opts.UserData }

// Err reports the Tree's sticky error, or nil if none has been flagged.
func (t *Tree) Err() error {
	if t.err == nil {
		return nil
	}
	return t.err
}

// State reports how far the current message has progressed.
func (t *Tree) State() TreeState { return t.state }

func (t *Tree) fail(e *Error) *Error {
	if t.err == nil {
		t.err = e
		if t.opts.OnError != nil {
			t.opts.OnError(e)
		}
	}
	return t.err
}

func (t *Tree) extEnabled() bool {
	return t.opts.Extensions && t.opts.Version != V4
}

// Destroy invokes the teardown callback exactly once. Unlike the reader
// and writer, a tree has no tracking-stack-empty obligation of its own: an
// InProgress tree simply stops being driven.
func (t *Tree) Destroy() error {
	if t.opts.Teardown != nil {
		t.opts.Teardown()
	}
	return t.Err()
}

// Reset discards the current message's parse state (root, stack, pending
// payload, node count) and positions the tree to begin parsing the next
// message, advancing past whatever was already consumed. Parse and
// TryParse call this automatically on re-entry after a completed parse, so
// a Tree used to read a stream of messages does not need explicit Reset
// calls between them; it is exposed for abandoning an InProgress parse and
// starting over.
func (t *Tree) Reset() {
	t.root = nodeData{}
	t.stack = t.stack[:0]
	t.rootDone = false
	t.pendingPayload = nil
	t.pendingLen = 0
	t.nodesAllocated = 0
	t.possibleNodesLeft = 0
	t.streamConsumedTotal = 0
	t.state = TreeNotParsed
	if t.blob == nil {
		t.compactStream()
		// Unread trailing bytes already in hand belong to the next
		// message and count toward its size ceiling.
		t.streamConsumedTotal = int64(t.streamEnd - t.streamPos)
	}
}

func (t *Tree) beginIfNeeded() {
	if t.state == TreeParsed {
		t.Reset()
	}
	if t.state != TreeInProgress {
		// Open the ledger for a fresh message: everything in hand is
		// unclaimed except one byte spoken for by the root's own type
		// byte. The count may start negative for an empty stream; the
		// first fill credits it.
		t.possibleNodesLeft = t.availableBytes() - 1
		t.nodesAllocated = 1
		t.state = TreeInProgress
	}
}

func (t *Tree) availableBytes() int64 {
	if t.blob != nil {
		return int64(len(t.blob) - t.blobPos)
	}
	return int64(t.streamEnd - t.streamPos)
}

// Root returns the root Node of the most recently completed parse, or the
// nil sentinel if the tree is in an error state or has no completed parse.
func (t *Tree) Root() Node {
	if t.err != nil || t.state != TreeParsed {
		return t.nilNode()
	}
	return Node{tree: t, d: &t.root}
}

func (t *Tree) nilNode() Node     { return Node{tree: t, d: &nilNodeData} }
func (t *Tree) missingNode() Node { return Node{tree: t, d: &missingNodeData} }

// Parse synchronously drives the parse loop to completion. fill may block;
// a zero-byte, nil-error return from it is treated as end of input and
// flags io.
func (t *Tree) Parse() {
	if t.err != nil {
		return
	}
	t.beginIfNeeded()
	done, _ := t.run(true)
	if done {
		t.state = TreeParsed
	}
}

// TryParse drives the parse loop without blocking: it returns true once a
// complete message has been parsed, and false if fill signalled "no data
// yet" (a zero-byte return alongside nil, ErrWouldBlock, or ErrMore) or a
// real error was flagged. On a false return with no error, the tree
// remains InProgress and the caller re-invokes TryParse once more input
// may be available.
func (t *Tree) TryParse() bool {
	if t.err != nil {
		return false
	}
	t.beginIfNeeded()
	done, _ := t.run(false)
	if done {
		t.state = TreeParsed
		return true
	}
	return false
}

// run drives the non-recursive parse loop. It returns done=true once the
// root is fully parsed, waiting=true if a non-blocking fill suspended the
// loop (blocking must be false for this to happen), or both false if an
// error was flagged (t.err is set). Nothing is consumed and no ledger
// debit is taken until a node's full reservation clears, so a suspension
// at any point resumes by re-peeking the same header.
func (t *Tree) run(blocking bool) (done bool, waiting bool) {
	for {
		if t.err != nil {
			return false, false
		}
		if t.rootDone {
			return true, false
		}
		if t.pendingPayload != nil {
			data, ok, wait := t.readPayload(t.pendingLen, blocking)
			if wait {
				return false, true
			}
			if !ok {
				return false, false
			}
			t.pendingPayload.data = data
			t.pendingPayload = nil
			t.advance()
			continue
		}

		var target *nodeData
		if len(t.stack) == 0 {
			target = &t.root
		} else {
			top := &t.stack[len(t.stack)-1]
			target = &top.node.children[top.idx]
		}

		first, ok, wait := t.peekBytes(1, blocking)
		if wait {
			return false, true
		}
		if !ok {
			return false, false
		}
		hlen, valid := headerLen(first[0])
		if !valid {
			t.fail(newErr(KindInvalid))
			return false, false
		}
		header, ok, wait := t.peekBytes(hlen, blocking)
		if wait {
			return false, true
		}
		if !ok {
			return false, false
		}
		tag, derr := decodeTag(header, t.extEnabled())
		if derr != nil {
			t.fail(asError(derr))
			return false, false
		}

		// One ledger debit per node: its length-prefix bytes beyond the
		// type byte (itself pre-reserved by the parent container, or by
		// beginIfNeeded for the root), one byte per declared child, and
		// the declared payload bytes.
		var children, payload int64
		switch tag.Kind() {
		case KindArray:
			children = int64(tag.Length())
		case KindMap:
			children = 2 * int64(tag.Length())
		case KindStr, KindBin, KindExt:
			payload = int64(tag.Length())
		}
		if children > 0 && t.nodesAllocated+children > t.opts.MaxNodes {
			t.fail(newErr(KindTooBig))
			return false, false
		}
		ok, wait = t.reserveBytes(int64(hlen-1)+children+payload, blocking)
		if wait {
			return false, true
		}
		if !ok {
			return false, false
		}
		t.nodesAllocated += children
		t.advancePos(hlen)
		*target = nodeData{tag: tag}

		switch tag.Kind() {
		case KindArray, KindMap:
			if children == 0 {
				t.advance()
				continue
			}
			target.children = make([]nodeData, children)
			t.stack = append(t.stack, treeFrame{node: target, idx: 0})
		case KindStr, KindBin, KindExt:
			t.pendingPayload = target
			t.pendingLen = int(payload)
		default:
			t.advance()
		}
	}
}

// advance records that the current target node is fully populated,
// cascading completion up through any ancestor frames that are now
// themselves complete.
func (t *Tree) advance() {
	for len(t.stack) > 0 {
		top := &t.stack[len(t.stack)-1]
		top.idx++
		if top.idx < len(top.node.children) {
			return
		}
		t.stack = t.stack[:len(t.stack)-1]
	}
	t.rootDone = true
}

// reserveBytes claims n future input bytes in the ledger. The claim must
// be covered by bytes already in hand; for a stream the fill callback is
// driven until it is (failing with too_big once covering it would push the
// message past max_message_size), while for a blob an uncoverable claim
// proves the input truncated and fails with invalid. This is what rejects
// an adversarial header like a 65535-pair map declared in three bytes
// without attempting to allocate 131070 nodes, and what catches nested
// containers whose cumulative declarations exceed the input even when each
// one individually fits.
func (t *Tree) reserveBytes(n int64, blocking bool) (ok bool, waiting bool) {
	for n > t.possibleNodesLeft {
		if t.blob != nil {
			t.fail(newErr(KindInvalid))
			return false, false
		}
		deficit := n - t.possibleNodesLeft
		if t.streamConsumedTotal+deficit > t.opts.MaxMessageSize {
			t.fail(newErr(KindTooBig))
			return false, false
		}
		need := t.streamEnd - t.streamPos + int(deficit)
		fok, wait := t.fillOnce(need, blocking)
		if !fok {
			return false, wait
		}
	}
	t.possibleNodesLeft -= n
	return true, false
}

// readPayload reads n raw body bytes, copying them out of the stream
// buffer (which is reused and compacted across calls) or borrowing
// directly from the blob (which the caller keeps alive for the tree's
// lifetime). The bytes themselves were already claimed in the ledger when
// the owning tag was reserved.
func (t *Tree) readPayload(n int, blocking bool) (data []byte, ok bool, waiting bool) {
	b, ok1, waiting1 := t.peekBytes(n, blocking)
	if waiting1 {
		return nil, false, true
	}
	if !ok1 {
		return nil, false, false
	}
	var out []byte
	if t.blob != nil {
		out = b
	} else {
		out = append([]byte(nil), b...)
	}
	t.advancePos(n)
	return out, true, false
}

func (t *Tree) advancePos(n int) {
	if t.blob != nil {
		t.blobPos += n
		return
	}
	t.streamPos += n
}

// peekBytes guarantees n bytes are available starting at the current
// position and returns them without advancing. For a stream it refills as
// needed; blocking selects whether a zero-byte fill result flags io
// immediately or suspends the loop (waiting=true) for TryParse to resume.
func (t *Tree) peekBytes(n int, blocking bool) (b []byte, ok bool, waiting bool) {
	if t.blob != nil {
		if t.blobPos+n > len(t.blob) {
			t.fail(newErr(KindInvalid))
			return nil, false, false
		}
		return t.blob[t.blobPos : t.blobPos+n], true, false
	}
	for t.streamEnd-t.streamPos < n {
		fok, wait := t.fillOnce(n, blocking)
		if !fok {
			return nil, false, wait
		}
	}
	return t.streamBuf[t.streamPos : t.streamPos+n], true, false
}

// fillOnce grows the stream buffer until it can hold need contiguous
// bytes from the current position and runs one fill call, crediting the
// ledger with whatever arrives.
func (t *Tree) fillOnce(need int, blocking bool) (ok bool, waiting bool) {
	if t.fill == nil {
		t.fail(newErr(KindInvalid))
		return false, false
	}
	if err := t.growStream(need); err != nil {
		t.fail(err)
		return false, false
	}
	got, ferr := t.fill(t.streamBuf[t.streamEnd:cap(t.streamBuf)])
	if got > 0 {
		t.streamEnd += got
		t.streamConsumedTotal += int64(got)
		t.possibleNodesLeft += int64(got)
		return true, false
	}
	if ferr == nil || errors.Is(ferr, ErrWouldBlock) || errors.Is(ferr, ErrMore) {
		// A non-blocking fill signals "nothing available right now" by
		// returning zero bytes alongside nil, ErrWouldBlock, or ErrMore.
		// TryParse treats all three identically: suspend and let the
		// caller retry; Parse has no such option and flags io.
		if blocking {
			t.fail(newErr(KindIO))
			return false, false
		}
		return false, true
	}
	if ferr == io.EOF {
		t.fail(newErr(KindIO))
		return false, false
	}
	t.fail(wrapErr(KindIO, ferr))
	return false, false
}

// compactStream moves unread stream bytes to the start of the buffer.
func (t *Tree) compactStream() {
	if t.streamPos == 0 {
		return
	}
	unread := t.streamEnd - t.streamPos
	copy(t.streamBuf, t.streamBuf[t.streamPos:t.streamEnd])
	t.streamPos = 0
	t.streamEnd = unread
	t.streamBuf = t.streamBuf[:cap(t.streamBuf)]
}

// growStream guarantees the stream buffer can hold n bytes from the
// current position, compacting first and then doubling up to
// max_message_size; exceeding that ceiling fails with too_big.
func (t *Tree) growStream(n int) *Error {
	t.compactStream()
	if n <= cap(t.streamBuf) {
		return nil
	}
	if int64(n) > t.opts.MaxMessageSize {
		return newErr(KindTooBig)
	}
	newCap := cap(t.streamBuf)
	if newCap == 0 {
		newCap = 256
	}
	for newCap < n {
		newCap *= 2
	}
	if int64(newCap) > t.opts.MaxMessageSize {
		newCap = int(t.opts.MaxMessageSize)
	}
	nb := make([]byte, t.streamEnd, newCap)
	copy(nb, t.streamBuf[:t.streamEnd])
	t.streamBuf = nb[:cap(nb)]
	return nil
}
