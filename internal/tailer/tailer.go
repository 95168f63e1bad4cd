// Package tailer drives a framelog reader as a long-running consumer:
// poll with exponential backoff, emit payloads to a sink, persist a
// resume position, and pick up config changes while running.
package tailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bft-labs/framelog/internal/channel"
	"github.com/bft-labs/framelog/pkg/log"
)

// Config controls a tail run.
type Config struct {
	// PollInterval caps the backoff between read attempts.
	PollInterval time.Duration

	// Follow keeps polling past the end-of-stream marker, in case the
	// writer overwrites it with more frames.
	Follow bool

	// Once drains the frames currently available and returns instead
	// of waiting for more.
	Once bool

	// StateDir, when set, persists the resume position there.
	StateDir string
}

// Tailer consumes frames from a reader and emits them to a sink.
type Tailer struct {
	reader *channel.Reader
	sink   io.Writer
	logger log.Logger
	cfg    Config

	// pollNanos is read by the run loop and written by SetPollInterval,
	// possibly from the config watcher goroutine.
	pollNanos atomic.Int64

	consumed uint64
}

// New creates a Tailer. A nil logger means no logging.
func New(r *channel.Reader, sink io.Writer, logger log.Logger, cfg Config) *Tailer {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	t := &Tailer{reader: r, sink: sink, logger: logger, cfg: cfg}
	t.pollNanos.Store(int64(cfg.PollInterval))
	return t
}

// SetPollInterval adjusts the backoff ceiling. Safe to call while Run
// is in flight.
func (t *Tailer) SetPollInterval(d time.Duration) {
	if d > 0 {
		t.pollNanos.Store(int64(d))
	}
}

// Consumed returns the number of frames emitted so far.
func (t *Tailer) Consumed() uint64 { return t.consumed }

// Run consumes frames until the stream ends, Once drains dry, or the
// context is cancelled. Each payload is written to the sink followed by
// a newline, matching the record format the pump reads.
func (t *Tailer) Run(ctx context.Context) error {
	if t.cfg.StateDir != "" {
		t.fastForward()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Millisecond
	bo.MaxInterval = time.Duration(t.pollNanos.Load())
	bo.MaxElapsedTime = 0 // the context is the deadline
	bo.Reset()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		p, err := t.reader.Poll()
		switch {
		case err == nil:
			if err := t.emit(p); err != nil {
				return err
			}
			bo.Reset()
			continue

		case errors.Is(err, channel.ErrEndOfStream):
			if !t.cfg.Follow {
				t.logger.Info("end of stream", log.Uint64("consumed", t.consumed))
				return nil
			}

		case errors.Is(err, channel.ErrNotReady):
			if t.cfg.Once {
				t.logger.Info("drained", log.Uint64("consumed", t.consumed))
				return nil
			}
		}

		bo.MaxInterval = time.Duration(t.pollNanos.Load())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bo.NextBackOff()):
		}
	}
}

func (t *Tailer) emit(p []byte) error {
	if _, err := t.sink.Write(p); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	if _, err := t.sink.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	t.consumed++
	if t.cfg.StateDir != "" {
		st := state{Consumed: t.consumed, Offset: int64(t.reader.Offset()), UpdatedAt: time.Now().UTC()}
		if err := saveState(t.cfg.StateDir, st); err != nil {
			t.logger.Warn("save state", log.Err(err))
		}
	}
	return nil
}

// fastForward replays past the frames a previous run already emitted.
// A resume position that cannot be reached (the region was recreated,
// or the state file belongs to another region) is discarded.
func (t *Tailer) fastForward() {
	st, err := loadState(t.cfg.StateDir)
	if err != nil || st.Consumed == 0 {
		return
	}
	for skipped := uint64(0); skipped < st.Consumed; skipped++ {
		if _, err := t.reader.Poll(); err != nil {
			t.consumed = skipped
			t.logger.Warn("resume state ahead of region",
				log.Uint64("expected", st.Consumed),
				log.Uint64("skipped", skipped))
			return
		}
	}
	if int64(t.reader.Offset()) != st.Offset {
		t.logger.Warn("resume offset drifted",
			log.Int64("state", st.Offset),
			log.Int64("cursor", int64(t.reader.Offset())))
	}
	t.consumed = st.Consumed
	t.logger.Info("resumed", log.Uint64("consumed", t.consumed))
}
