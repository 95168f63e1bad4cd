package channel

import (
	"math/rand"
	"runtime"
	"time"
)

// WaitStrategy decides how Take yields between poll attempts. attempt
// counts consecutive misses since Take was entered.
type WaitStrategy interface {
	Wait(attempt int)
}

// WaitFunc adapts a plain function to the WaitStrategy interface.
type WaitFunc func(attempt int)

// Wait calls f.
func (f WaitFunc) Wait(attempt int) { f(attempt) }

// yieldingWait spins cooperatively for a burst of attempts, then backs
// off with doubling jittered sleeps. This keeps latency low when the
// writer is hot without pegging a core when it goes quiet.
type yieldingWait struct {
	spins int
	base  time.Duration
	max   time.Duration
}

// NewYieldingWait returns the default wait strategy: 100 attempts of
// runtime.Gosched, then sleeps from 50µs doubling up to 10ms.
func NewYieldingWait() WaitStrategy {
	return &yieldingWait{spins: 100, base: 50 * time.Microsecond, max: 10 * time.Millisecond}
}

func (y *yieldingWait) Wait(attempt int) {
	if attempt < y.spins {
		runtime.Gosched()
		return
	}
	d := y.base << uint(min(attempt-y.spins, 30))
	if d > y.max || d <= 0 {
		d = y.max
	}
	// jitter ~ +/-20%
	j := 0.8 + 0.4*rand.Float64()
	time.Sleep(time.Duration(float64(d) * j))
}
