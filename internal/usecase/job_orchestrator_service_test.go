package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/jobscheduler"
	"github.com/riskibarqy/career-engine/internal/infrastructure/repository/memory"
)

type countingRunner struct {
	calls int
	err   error
}

func (r *countingRunner) Run(_ context.Context, _ CareerActionJob) error {
	r.calls++
	return r.err
}

func TestCareerDispatchID_UsesQStashSafeFormat(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.February, 25, 4, 25, 42, 0, time.UTC)
	got := careerDispatchID("save:1 2025", at)

	if strings.Contains(got, ":") {
		t.Fatalf("dispatch id must not contain colon, got=%q", got)
	}
	want := "career-actions-save-1-2025-20260225T042542.000000000Z"
	if got != want {
		t.Fatalf("unexpected dispatch id: got=%q want=%q", got, want)
	}
}

func TestJobOrchestratorService_RecordsCompletion(t *testing.T) {
	ctx := context.Background()
	dispatches := memory.NewJobDispatchRepository(memory.NewStore())
	runner := &countingRunner{}
	svc := NewJobOrchestratorService(runner, dispatches, nil)

	job := CareerActionJob{DispatchID: "d1", GameID: " g1 ", Ticks: 2}
	result, err := svc.RunCareerActions(ctx, job)
	if err != nil {
		t.Fatalf("run career actions: %v", err)
	}
	if result.Skipped || result.GameID != "g1" || result.Ticks != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	event, ok, err := dispatches.Get(ctx, "d1")
	if err != nil || !ok {
		t.Fatalf("dispatch not recorded: ok=%v err=%v", ok, err)
	}
	if event.Status != jobscheduler.StatusCompleted {
		t.Fatalf("unexpected status: %s", event.Status)
	}

	result, err = svc.RunCareerActions(ctx, job)
	if err != nil {
		t.Fatalf("rerun career actions: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("expected redelivered dispatch to be skipped")
	}
	if runner.calls != 1 {
		t.Fatalf("runner called %d times, want 1", runner.calls)
	}
}

func TestJobOrchestratorService_RecordsFailure(t *testing.T) {
	ctx := context.Background()
	dispatches := memory.NewJobDispatchRepository(memory.NewStore())
	errBoom := errors.New("boom")
	svc := NewJobOrchestratorService(&countingRunner{err: errBoom}, dispatches, nil)

	_, err := svc.RunCareerActions(ctx, CareerActionJob{DispatchID: "d2", GameID: "g1"})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected runner error, got %v", err)
	}

	event, ok, _ := dispatches.Get(ctx, "d2")
	if !ok || event.Status != jobscheduler.StatusFailed || event.ErrorMessage != "boom" {
		t.Fatalf("unexpected failed dispatch: ok=%v event=%+v", ok, event)
	}
}

func TestJobOrchestratorService_RequiresGame(t *testing.T) {
	svc := NewJobOrchestratorService(&countingRunner{}, nil, nil)
	if _, err := svc.RunCareerActions(context.Background(), CareerActionJob{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
