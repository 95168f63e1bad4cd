package channel

import (
	"fmt"

	"github.com/bft-labs/framelog/internal/region"
)

// Writer is the producer end of a framed channel. It owns a monotonic
// write cursor over the region's bytes; the cursor is not shared, not
// synchronized and not persisted. Exactly one Writer may exist per
// region: a second writer would walk the same offsets unaware of the
// first and interleave frames destructively.
//
// Writer methods must be called from a single goroutine.
type Writer struct {
	reg  *region.Region
	data []byte
	pos  int
	opts options
}

// NewWriter binds a producer cursor to offset 0 of reg.
func NewWriter(reg *region.Region, opts ...Option) (*Writer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if reg.Size() < MinCapacity {
		return nil, fmt.Errorf("%w: %d bytes, need more than %d", ErrTooSmall, reg.Size(), MinCapacity-1)
	}
	return &Writer{reg: reg, data: reg.Bytes(), opts: o}, nil
}

// Append writes one frame containing p and advances the cursor.
//
// If p does not fit in the remaining capacity, Append writes the
// end-of-stream marker at the cursor instead, leaves the cursor where
// it was and returns false; the channel is then logically closed at
// this position unless a smaller payload is appended over the marker.
// An empty or oversized payload returns false without side effects.
//
// No flush happens here. The written bytes reach any concurrent reader
// through the shared pages as soon as the stores land; durability to
// disk is the kernel's business until Sync is called.
func (w *Writer) Append(p []byte) bool {
	if len(p) == 0 || len(p) >= MaxPayload {
		return false
	}

	// Reserve room for a trailing end-of-stream marker after this
	// frame, so overflow can always be recorded for the reader.
	need := headerSize + len(p) + footerSize
	if w.pos+need+Overhead > len(w.data) {
		w.writeEOF()
		return false
	}

	putLength(w.data[w.pos:], len(p))
	copy(w.data[w.pos+headerSize:], p)
	// Footer goes last: a reader that sees the length before the
	// checksum store lands fails verification and retries.
	putSum(w.data[w.pos+headerSize+len(p):], w.opts.sumOf(p))
	w.pos += need
	return true
}

// Finish writes the end-of-stream marker at the current cursor without
// advancing past it. A later Append overwrites the marker, so Finish
// marks "no more data here for now" rather than sealing the region.
func (w *Writer) Finish() {
	w.writeEOF()
}

func (w *Writer) writeEOF() {
	if w.pos+Overhead > len(w.data) {
		// Unreachable through Append, which always reserves marker
		// room; guards a cursor corrupted by the caller.
		return
	}
	putLength(w.data[w.pos:], 0)
	putSum(w.data[w.pos+headerSize:], eofFooter)
}

// Remaining returns the payload bytes still appendable: the capacity
// left past the cursor minus framing overhead and the reserved
// end-of-stream marker.
func (w *Writer) Remaining() int {
	n := len(w.data) - w.pos - 2*Overhead
	if n < 0 {
		return 0
	}
	return n
}

// Offset returns the current write cursor position.
func (w *Writer) Offset() int { return w.pos }

// Sync forces written frames to stable storage. Not part of the append
// path.
func (w *Writer) Sync() error { return w.reg.Sync() }

// Close releases the underlying region mapping and file handle.
func (w *Writer) Close() error { return w.reg.Close() }
