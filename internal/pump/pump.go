// Package pump drives a framelog writer from a stream of
// newline-delimited records, the producer-side counterpart of the
// tailer.
package pump

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/valyala/bytebufferpool"

	"github.com/bft-labs/framelog/internal/channel"
	"github.com/bft-labs/framelog/pkg/log"
)

// ErrRegionFull is returned when a record no longer fits. The writer
// has already recorded the end-of-stream marker, so readers see a
// closed stream rather than spinning past the last frame.
var ErrRegionFull = errors.New("framelog: region full")

// Pump appends records read from src to a framelog writer.
type Pump struct {
	writer *channel.Writer
	logger log.Logger
}

// New creates a Pump. A nil logger means no logging.
func New(w *channel.Writer, logger log.Logger) *Pump {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Pump{writer: w, logger: logger}
}

// Run reads newline-delimited records from src and appends each as one
// frame, until src is exhausted. The trailing newline is not part of
// the payload; empty lines are skipped, since a frame cannot be empty.
// At input EOF the end-of-stream marker is written and the appended
// frame count returned.
//
// Records longer than the bufio buffer are accumulated in a pooled
// staging buffer, so arbitrarily long lines cost no steady-state
// allocation.
func (p *Pump) Run(src io.Reader) (uint64, error) {
	br := bufio.NewReaderSize(src, 64*1024)
	staging := bytebufferpool.Get()
	defer bytebufferpool.Put(staging)

	var appended uint64
	for {
		record, err := p.nextRecord(br, staging)
		if err == io.EOF {
			p.writer.Finish()
			p.logger.Info("input drained", log.Uint64("appended", appended))
			return appended, nil
		}
		if err != nil {
			return appended, fmt.Errorf("read record: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		if !p.writer.Append(record) {
			p.logger.Warn("region full",
				log.Uint64("appended", appended),
				log.Int("record_size", len(record)),
				log.Int("remaining", p.writer.Remaining()))
			return appended, ErrRegionFull
		}
		appended++
	}
}

// nextRecord returns the next line without its newline. The returned
// slice is valid until the next call.
func (p *Pump) nextRecord(br *bufio.Reader, staging *bytebufferpool.ByteBuffer) ([]byte, error) {
	staging.Reset()

	for {
		chunk, err := br.ReadSlice('\n')
		switch {
		case err == nil:
			chunk = chunk[:len(chunk)-1]
			if staging.Len() == 0 {
				return chunk, nil
			}
			staging.Write(chunk)
			return staging.B, nil

		case errors.Is(err, bufio.ErrBufferFull):
			staging.Write(chunk)

		case err == io.EOF && (len(chunk) > 0 || staging.Len() > 0):
			// Final record without trailing newline.
			staging.Write(chunk)
			return staging.B, nil

		default:
			return nil, err
		}
	}
}
