package worker

import (
	"testing"
	"time"
)

func TestExponentialBackoffGrowsAndCaps(t *testing.T) {
	prev := time.Duration(0)

	for attempt := 0; attempt < 6; attempt++ {
		d := ExponentialBackoff(attempt)

		if d < prev {
			t.Fatalf("attempt %d: backoff shrank from %v to %v", attempt, prev, d)
		}
		prev = d
	}

	// well past the cap
	d := ExponentialBackoff(30)

	if d > 5*time.Minute+time.Second {
		t.Fatalf("backoff exceeds cap: %v", d)
	}
}

func TestExponentialBackoffNegativeAttempt(t *testing.T) {
	d := ExponentialBackoff(-3)

	if d < 2*time.Second {
		t.Fatalf("negative attempt should use base delay, got %v", d)
	}
}
