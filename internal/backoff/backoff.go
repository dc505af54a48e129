// Package backoff computes retry delays for failed task attempts.
package backoff

import (
	"math"
	"time"
)

// maxAttempts caps the exponent to prevent overflow in the delay
// calculation.
const maxAttempts = 63

// Exponential doubles the delay on each attempt, capped at Max.
// With Initial=100ms: 100ms, 200ms, 400ms, ...
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// Delay returns the wait before retry attemptNumber (0-indexed: 0 is
// the first retry).
func (e Exponential) Delay(attemptNumber int) time.Duration {
	if attemptNumber < 0 || e.Initial <= 0 {
		return 0
	}
	if attemptNumber > maxAttempts {
		attemptNumber = maxAttempts
	}

	delay := time.Duration(float64(e.Initial) * math.Pow(2, float64(attemptNumber)))
	if e.Max > 0 && (delay > e.Max || delay < 0) {
		return e.Max
	}
	return delay
}
