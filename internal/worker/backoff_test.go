package worker

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_DelayBounds(t *testing.T) {
	t.Parallel()

	b := Backoff{Base: time.Second, Max: time.Minute}
	rng := rand.New(rand.NewSource(1))

	cases := []struct {
		attempts int
		floor    time.Duration
	}{
		{attempts: 1, floor: time.Second},
		{attempts: 2, floor: 2 * time.Second},
		{attempts: 3, floor: 4 * time.Second},
		{attempts: 6, floor: 32 * time.Second},
		{attempts: 7, floor: time.Minute},
		{attempts: 40, floor: time.Minute},
	}

	for _, tc := range cases {
		d := b.Delay(tc.attempts, rng)
		assert.GreaterOrEqual(t, d, tc.floor, "attempts=%d", tc.attempts)
		assert.Less(t, d, tc.floor+b.Base, "attempts=%d", tc.attempts)
	}
}

func TestBackoff_MonotonicUntilCap(t *testing.T) {
	t.Parallel()

	b := Backoff{Base: 5 * time.Second, Max: 10 * time.Minute}

	prev := time.Duration(0)
	for attempts := 1; attempts <= 20; attempts++ {
		d := b.exponential(attempts)
		require.GreaterOrEqual(t, d, prev)
		require.LessOrEqual(t, d, b.Max)
		prev = d
	}
	require.Equal(t, b.Max, prev)
}

func TestBackoff_AttemptsBelowOneBehaveAsOne(t *testing.T) {
	t.Parallel()

	b := Backoff{Base: time.Second, Max: time.Minute}

	assert.Equal(t, b.exponential(1), b.exponential(0))
	assert.Equal(t, b.exponential(1), b.exponential(-3))

	d := b.Delay(0, rand.New(rand.NewSource(7)))
	assert.GreaterOrEqual(t, d, time.Second)
	assert.Less(t, d, 2*time.Second)
}

func TestBackoff_NoOverflowOnLargeAttempts(t *testing.T) {
	t.Parallel()

	b := Backoff{Base: time.Hour, Max: 24 * time.Hour}

	for _, attempts := range []int{30, 62, 63, 64, 1000} {
		assert.Equal(t, b.Max, b.exponential(attempts), "attempts=%d", attempts)
	}
}

func TestBackoff_DeterministicWithSeededRand(t *testing.T) {
	t.Parallel()

	b := Backoff{Base: time.Second, Max: time.Minute}

	d1 := b.Delay(3, rand.New(rand.NewSource(42)))
	d2 := b.Delay(3, rand.New(rand.NewSource(42)))
	assert.Equal(t, d1, d2)
}
