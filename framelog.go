// Package framelog provides a persistent, lock-free transport for a
// stream of variable-length binary messages over a fixed-size
// memory-mapped file shared by exactly one producer and one consumer,
// which may be separate threads or separate processes.
//
// The producer and consumer each hold their own mapping of the same
// file and never exchange anything but its bytes: a frame's trailing
// checksum is the commit record, and a reader that catches up with an
// in-flight write simply fails verification and retries. There is no
// mutex, no condition variable, and no flush on the append path.
//
// Example usage, producer side:
//
//	w, err := framelog.OpenWriter("/tmp/chan.dat", framelog.EstimateFileSize(1000, 1024))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//	w.Append([]byte("hello"))
//	w.Finish()
//
// And consumer side, in another process:
//
//	r, err := framelog.OpenReader("/tmp/chan.dat", framelog.EstimateFileSize(1000, 1024))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	payload, err := r.Take(ctx)
//
// The single-writer/single-reader restriction is a hard precondition,
// not a runtime check: a second writer over the same region would
// interleave frames destructively.
package framelog

import (
	"fmt"

	"github.com/bft-labs/framelog/internal/channel"
	"github.com/bft-labs/framelog/internal/region"
)

// Writer is the producer end of a channel. See internal/channel.Writer.
type Writer = channel.Writer

// Reader is the consumer end of a channel. See internal/channel.Reader.
type Reader = channel.Reader

// Option configures a Writer or Reader.
type Option = channel.Option

// WaitStrategy decides how Take yields between poll attempts.
type WaitStrategy = channel.WaitStrategy

// WithChecksum sets the checksum capability; both ends must agree.
var WithChecksum = channel.WithChecksum

// WithWait sets the wait strategy used by Take.
var WithWait = channel.WithWait

// Errors surfaced by the public API. Check with errors.Is.
var (
	ErrTooSmall     = channel.ErrTooSmall
	ErrNotReady     = channel.ErrNotReady
	ErrEndOfStream  = channel.ErrEndOfStream
	ErrSizeMismatch = region.ErrSizeMismatch
)

// Overhead is the per-frame framing cost in bytes: the length header
// plus the checksum footer.
const Overhead = channel.Overhead

// EstimateFileSize returns the region capacity needed for numMessages
// messages of messageSize bytes each. A region opened with exactly
// this capacity fits exactly that many appends.
func EstimateFileSize(numMessages, messageSize int) int64 {
	return channel.EstimateFileSize(numMessages, messageSize)
}

// OpenWriter creates or opens the region file at path and binds the
// producer end to it. The file must either not exist yet (it is then
// created and sized to capacity) or already have exactly that length.
func OpenWriter(path string, capacity int64, opts ...Option) (*Writer, error) {
	reg, err := openRegion(path, capacity)
	if err != nil {
		return nil, err
	}
	w, err := channel.NewWriter(reg, opts...)
	if err != nil {
		reg.Close()
		return nil, err
	}
	return w, nil
}

// OpenReader creates or opens the region file at path and binds the
// consumer end to it. The reader's cursor always starts at offset 0,
// regardless of any earlier reader's progress.
func OpenReader(path string, capacity int64, opts ...Option) (*Reader, error) {
	reg, err := openRegion(path, capacity)
	if err != nil {
		return nil, err
	}
	r, err := channel.NewReader(reg, opts...)
	if err != nil {
		reg.Close()
		return nil, err
	}
	return r, nil
}

// openRegion applies the minimum-capacity invariant before touching
// the filesystem, so an undersized request never creates a file.
func openRegion(path string, capacity int64) (*region.Region, error) {
	if capacity < channel.MinCapacity {
		return nil, fmt.Errorf("%w: %d bytes, need more than %d", ErrTooSmall, capacity, channel.MinCapacity-1)
	}
	return region.Open(path, capacity)
}
