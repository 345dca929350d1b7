package worker

import (
	"math/rand"
	"time"
)

type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns min(Base*2^(attempts-1), Max) plus a jitter drawn uniformly
// from [0, Base). attempts is 1-based; lower values behave as 1.
func (b Backoff) Delay(attempts int, rng *rand.Rand) time.Duration {
	if attempts < 1 {
		attempts = 1
	}

	delay := b.exponential(attempts)

	if b.Base <= 0 {
		return delay
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return delay + time.Duration(rng.Int63n(int64(b.Base)))
}

func (b Backoff) exponential(attempts int) time.Duration {
	if b.Base <= 0 {
		return 0
	}

	shift := attempts - 1
	// base << shift overflows or passes Max; either way the cap applies.
	if shift >= 62 || b.Base > b.Max>>shift {
		return b.Max
	}

	delay := b.Base << shift
	if delay > b.Max {
		return b.Max
	}
	return delay
}
