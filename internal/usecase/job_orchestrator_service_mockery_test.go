package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/career-engine/internal/domain/jobscheduler"
	jobschedulermock "github.com/riskibarqy/career-engine/internal/mocks/domain/jobscheduler"
	"github.com/stretchr/testify/mock"
)

func TestJobOrchestratorService_SkipsCompletedDispatchUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := jobschedulermock.NewRepository(t)
	runner := &countingRunner{}
	svc := NewJobOrchestratorService(runner, repo, nil)

	repo.
		On("Get", mock.MatchedBy(func(v context.Context) bool { return v != nil }), "d-done").
		Return(jobscheduler.DispatchEvent{DispatchID: "d-done", Status: jobscheduler.StatusCompleted}, true, nil).
		Once()

	result, err := svc.RunCareerActions(ctx, CareerActionJob{DispatchID: "d-done", GameID: "g1", Ticks: 1})
	if err != nil {
		t.Fatalf("run career actions: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("expected redelivered dispatch to be skipped: %+v", result)
	}
	if runner.calls != 0 {
		t.Fatalf("runner should not run for a completed dispatch, calls=%d", runner.calls)
	}
}

func TestJobOrchestratorService_RecordsFailureUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := jobschedulermock.NewRepository(t)
	runner := &countingRunner{err: errors.New("tick exploded")}
	svc := NewJobOrchestratorService(runner, repo, nil)

	repo.
		On("Get", mock.Anything, "d-fail").
		Return(jobscheduler.DispatchEvent{}, false, nil).
		Once()
	repo.
		On("UpsertEvent", mock.Anything, mock.MatchedBy(func(e jobscheduler.DispatchEvent) bool {
			return e.DispatchID == "d-fail" && e.Status == jobscheduler.StatusFailed && e.ErrorMessage == "tick exploded" && !e.OccurredAt.IsZero()
		})).
		Return(errors.New("dispatch table unavailable")).
		Once()

	_, err := svc.RunCareerActions(ctx, CareerActionJob{DispatchID: "d-fail", GameID: "g1", Ticks: 1})
	if err == nil {
		t.Fatalf("expected runner error")
	}
	if runner.calls != 1 {
		t.Fatalf("expected one run, got %d", runner.calls)
	}
}

func TestJobOrchestratorService_LookupErrorUsingMockery(t *testing.T) {
	t.Parallel()

	repo := jobschedulermock.NewRepository(t)
	runner := &countingRunner{}
	svc := NewJobOrchestratorService(runner, repo, nil)

	lookupErr := errors.New("connection reset")
	repo.
		On("Get", mock.Anything, "d-x").
		Return(jobscheduler.DispatchEvent{}, false, lookupErr).
		Once()

	_, err := svc.RunCareerActions(context.Background(), CareerActionJob{DispatchID: "d-x", GameID: "g1"})
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	if runner.calls != 0 {
		t.Fatalf("runner should not run when the dispatch lookup fails")
	}
}
