package resilience

import (
	"errors"
	"testing"
	"time"
)

type transition struct{ from, to CircuitState }

func newTestBreaker(threshold, probes int) (*CircuitBreaker, *time.Time, *[]transition) {
	var seen []transition
	b := NewCircuitBreaker(CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: threshold,
		OpenTimeout:      5 * time.Second,
		HalfOpenMaxReq:   probes,
		OnStateChange: func(from, to CircuitState) {
			seen = append(seen, transition{from, to})
		},
	})
	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now, &seen
}

func TestCircuitBreaker_OpensThenClosesAfterProbes(t *testing.T) {
	b, now, seen := newTestBreaker(2, 1)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}
	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}
	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	*now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected second probe to be rejected, got %v", err)
	}
	b.RecordSuccess()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful probe, got %s", state)
	}

	want := []transition{
		{CircuitStateClosed, CircuitStateOpen},
		{CircuitStateOpen, CircuitStateHalfOpen},
		{CircuitStateHalfOpen, CircuitStateClosed},
	}
	if len(*seen) != len(want) {
		t.Fatalf("unexpected transitions: %+v", *seen)
	}
	for i := range want {
		if (*seen)[i] != want[i] {
			t.Fatalf("transition %d: want %+v got %+v", i, want[i], (*seen)[i])
		}
	}
}

func TestCircuitBreaker_ExecuteIgnoresUncountableErrors(t *testing.T) {
	b, _, _ := newTestBreaker(1, 1)
	errBadRequest := errors.New("bad request")
	transient := func(err error) bool { return !errors.Is(err, errBadRequest) }

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errBadRequest }, transient); !errors.Is(err, errBadRequest) {
			t.Fatalf("expected passthrough error, got %v", err)
		}
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("uncountable errors should not open the breaker, got %s", state)
	}

	_ = b.Execute(func() error { return errors.New("timeout") }, transient)
	if err := b.Execute(func() error { return nil }, transient); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open breaker to reject, got %v", err)
	}
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	b, now, _ := newTestBreaker(1, 2)

	b.RecordFailure()
	*now = now.Add(5 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe, got %v", err)
	}
	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected reopen after failed probe, got %s", state)
	}
}
