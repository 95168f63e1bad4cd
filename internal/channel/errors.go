package channel

import (
	"errors"
	"io"
)

// Channel errors. Check with errors.Is.
var (
	// ErrTooSmall is returned when the region cannot hold at least one
	// frame plus the end-of-stream marker.
	ErrTooSmall = errors.New("framelog: region too small")

	// ErrNotReady is returned by Poll when no whole frame is present at
	// the cursor. This deliberately conflates "the writer has not
	// finished this frame yet" with genuine corruption: both look like
	// a checksum mismatch, and both mean "retry".
	ErrNotReady = errors.New("framelog: no frame ready")

	// ErrEndOfStream is returned by Poll when the cursor sits on the
	// end-of-stream marker. The marker is left in place, not consumed:
	// the writer may still overwrite it with a real frame, and a
	// repeated Poll re-observes it until that happens.
	ErrEndOfStream = io.EOF
)
