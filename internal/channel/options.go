package channel

import "github.com/bft-labs/framelog/pkg/checksum"

// Option configures a Writer or Reader at construction time. Both sides
// of a region must be configured with the same checksum capability or
// the reader will treat every frame as not yet written.
type Option func(*options)

type options struct {
	sum  checksum.Summer
	wait WaitStrategy
}

func defaultOptions() options {
	return options{
		sum:  checksum.CRC32(),
		wait: NewYieldingWait(),
	}
}

// WithChecksum sets the checksum capability. A nil Summer disables
// integrity checking: frames carry a fixed magic constant instead of a
// digest, and corruption becomes undetectable.
func WithChecksum(s checksum.Summer) Option {
	return func(o *options) { o.sum = s }
}

// WithWait sets the strategy Take uses to yield between poll attempts.
func WithWait(w WaitStrategy) Option {
	return func(o *options) { o.wait = w }
}

func (o options) sumOf(p []byte) uint32 {
	if o.sum == nil {
		return noSumMagic
	}
	return o.sum.Sum32(p)
}
