package mail

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedMailer struct {
	errs  []error
	calls int
}

func (s *scriptedMailer) Send(ctx context.Context, msg Message) error {
	defer func() { s.calls++ }()

	if s.calls < len(s.errs) {
		return s.errs[s.calls]
	}
	return nil
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("smtp down")

	inner := &scriptedMailer{errs: []error{boom, boom, boom}}

	m := NewProtectedMailer(inner, ProtectedMailerConfig{
		FailureThreshold: 3,
		Cooldown:         time.Hour,
	})

	msg := Message{From: "a@x.com", To: []string{"b@x.com"}}

	for i := 0; i < 3; i++ {
		if err := m.Send(context.Background(), msg); !errors.Is(err, boom) {
			t.Fatalf("call %d: got %v, want inner error", i, err)
		}
	}

	// circuit is now open: inner must not be reached
	if err := m.Send(context.Background(), msg); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}

	if inner.calls != 3 {
		t.Fatalf("inner called %d times, want 3", inner.calls)
	}
}

func TestCircuitRecoversAfterCooldown(t *testing.T) {
	boom := errors.New("smtp down")

	inner := &scriptedMailer{errs: []error{boom}}

	m := NewProtectedMailer(inner, ProtectedMailerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Millisecond,
	})

	msg := Message{From: "a@x.com", To: []string{"b@x.com"}}

	if err := m.Send(context.Background(), msg); !errors.Is(err, boom) {
		t.Fatalf("got %v, want inner error", err)
	}

	time.Sleep(5 * time.Millisecond)

	// half-open trial call succeeds and closes the circuit
	if err := m.Send(context.Background(), msg); err != nil {
		t.Fatalf("half-open trial failed: %v", err)
	}

	if err := m.Send(context.Background(), msg); err != nil {
		t.Fatalf("closed circuit rejected send: %v", err)
	}
}
