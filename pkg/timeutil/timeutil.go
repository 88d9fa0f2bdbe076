package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// durationPtr is a helper function to create a pointer to a time.Duration
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// MaxDuration returns the largest of durations, or 0 for an empty slice.
// The input slice is not modified.
func MaxDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	max := durations[0]
	for _, d := range durations[1:] {
		if d > max {
			max = d
		}
	}
	return max
}

// ComputeJitter returns a pseudo-random duration in [0, max), or 0 when max <= 0.
func ComputeJitter(max time.Duration, rng rand.Rand) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// ExponentialBackoffDelay returns initialDuration * multiplier^(backoffCount-1),
// capped at maxDuration, plus ComputeJitter(jitter, rng).
func ExponentialBackoffDelay(backoffCount int, jitter time.Duration, rng rand.Rand, backoffParam BackoffParam) time.Duration {
	delay := float64(backoffParam.InitialDuration()) * math.Pow(backoffParam.Multiplier(), float64(backoffCount-1))
	if delay > float64(backoffParam.MaxDuration()) {
		delay = float64(backoffParam.MaxDuration())
	}
	return time.Duration(delay) + ComputeJitter(jitter, rng)
}

// Sleeper abstracts time.Sleep so callers that pace themselves between
// requests can be driven by a fake clock in tests.
type Sleeper interface {
	Sleep(d time.Duration)
}

// RealSleeper sleeps on the wall clock via time.Sleep.
type RealSleeper struct{}

func NewRealSleeper() RealSleeper {
	return RealSleeper{}
}

func (RealSleeper) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	time.Sleep(d)
}
