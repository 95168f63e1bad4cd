package channel

import (
	"context"
	"fmt"

	"github.com/bft-labs/framelog/internal/region"
)

// Reader is the consumer end of a framed channel. It owns its own
// cursor over the region, independent of the writer's: the two are
// separate walks of the same byte sequence, coordinated only by the
// frame checksums. Exactly one Reader may exist per region.
//
// Reader methods must be called from a single goroutine.
type Reader struct {
	reg  *region.Region
	data []byte
	pos  int
	opts options
}

// NewReader binds a consumer cursor to offset 0 of reg. The checksum
// capability must match the writer's.
func NewReader(reg *region.Region, opts ...Option) (*Reader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if reg.Size() < MinCapacity {
		return nil, fmt.Errorf("%w: %d bytes, need more than %d", ErrTooSmall, reg.Size(), MinCapacity-1)
	}
	return &Reader{reg: reg, data: reg.Bytes(), opts: o}, nil
}

// Poll makes one attempt to consume the frame at the cursor.
//
// On success it commits the cursor past the frame and returns the
// payload as a view into the mapped region, valid until the Reader is
// closed and never modified by a conforming writer. On any other
// outcome the cursor is left exactly where it was:
//
//   - ErrEndOfStream: the end-of-stream marker sits at the cursor.
//   - ErrNotReady: nothing, a torn in-flight frame, or garbage.
//
// This mark-and-restore discipline is the entire synchronization
// mechanism. A reader racing ahead of the writer fails the checksum,
// stays put and retries; it can never observe a torn frame as data.
func (r *Reader) Poll() ([]byte, error) {
	if r.pos+Overhead > len(r.data) {
		// No frame or marker can ever be written here.
		return nil, ErrEndOfStream
	}

	length := getLength(r.data[r.pos:])
	switch {
	case length == 0:
		if getSum(r.data[r.pos+headerSize:]) == eofFooter {
			return nil, ErrEndOfStream
		}
		return nil, ErrNotReady

	case length < 0 || length >= MaxPayload:
		return nil, ErrNotReady

	case r.pos+headerSize+length+footerSize > len(r.data):
		// A length this large can never complete within the region.
		return nil, ErrNotReady
	}

	payload := r.data[r.pos+headerSize : r.pos+headerSize+length]
	stored := getSum(r.data[r.pos+headerSize+length:])
	if stored != r.opts.sumOf(payload) {
		return nil, ErrNotReady
	}
	r.pos += headerSize + length + footerSize
	return payload, nil
}

// Take blocks until a data frame is available and returns it. It waits
// through both not-ready outcomes and the end-of-stream marker, since
// the writer may overwrite the marker with a later append; callers that
// want to stop at the marker, or to bound the wait, compose Poll with
// their own loop. Cancellation is the context's.
func (r *Reader) Take(ctx context.Context) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := r.Poll()
		if err == nil {
			return p, nil
		}
		r.opts.wait.Wait(attempt)
	}
}

// Offset returns the current read cursor position.
func (r *Reader) Offset() int { return r.pos }

// Close releases the underlying region mapping and file handle.
func (r *Reader) Close() error { return r.reg.Close() }
