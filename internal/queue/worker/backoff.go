package worker

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff doubles from a 2s base per attempt, capped at 5 minutes,
// with up to 250ms of jitter to avoid thundering herds.
func ExponentialBackoff(attempt int) time.Duration {
	base := 2 * time.Second
	capDelay := 5 * time.Minute

	if attempt < 0 {
		attempt = 0
	}

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))

	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	delay += time.Duration(rand.Intn(250)) * time.Millisecond

	return delay
}
