package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func ExponentialBackoffWithMaxElapsed(initialInterval, maxInterval, maxElapsed time.Duration, multiplier float64) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.MaxInterval = maxInterval
	exp.Multiplier = multiplier
	exp.MaxElapsedTime = maxElapsed
	return exp
}

// CalculateBackoffDuration returns initial * multiplier^attempt capped at max.
func CalculateBackoffDuration(attempt int, initialInterval time.Duration, multiplier float64, maxInterval time.Duration) time.Duration {
	duration := float64(initialInterval) * math.Pow(multiplier, float64(attempt))
	if duration > float64(maxInterval) || math.IsInf(duration, 1) {
		return maxInterval
	}
	return time.Duration(duration)
}

// Schedule is a stateless exponential backoff used to compute the redelivery
// delay of a message from its retry count.
type Schedule struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// Jitter in [0, 1) spreads each delay uniformly by ±Jitter.
	Jitter float64
}

func DefaultSchedule() Schedule {
	return Schedule{
		InitialInterval: time.Second,
		MaxInterval:     5 * time.Minute,
		Multiplier:      2.0,
	}
}

// Delay returns the wait before retry number retryCount (1-based). The first
// retry waits InitialInterval.
func (s Schedule) Delay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	multiplier := s.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	maxInterval := s.MaxInterval
	if maxInterval <= 0 {
		maxInterval = s.InitialInterval
	}

	d := CalculateBackoffDuration(retryCount-1, s.InitialInterval, multiplier, maxInterval)
	if s.Jitter > 0 {
		delta := s.Jitter * float64(d)
		d = time.Duration(float64(d) - delta + rand.Float64()*2*delta)
		if d > maxInterval {
			d = maxInterval
		}
	}
	return d
}
