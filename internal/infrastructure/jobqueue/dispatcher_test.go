package jobqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/career-engine/internal/usecase"
)

type recordingQueue struct {
	path    string
	payload any
	dedupID string
	err     error
}

func (q *recordingQueue) Enqueue(_ context.Context, path string, payload any, _ time.Duration, dedupID string) error {
	q.path, q.payload, q.dedupID = path, payload, dedupID
	return q.err
}

func TestQStashDispatcher_UsesDispatchIDForDedup(t *testing.T) {
	queue := &recordingQueue{}
	job := usecase.CareerActionJob{DispatchID: " d1 ", GameID: "g1", Ticks: 2}

	if err := NewQStashDispatcher(queue).Dispatch(context.Background(), job); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if queue.path != usecase.CareerActionsJobPath {
		t.Fatalf("unexpected path: %s", queue.path)
	}
	if queue.dedupID != "d1" {
		t.Fatalf("unexpected dedup id: %q", queue.dedupID)
	}
	if got, ok := queue.payload.(usecase.CareerActionJob); !ok || got.GameID != "g1" {
		t.Fatalf("unexpected payload: %+v", queue.payload)
	}
}

func TestQStashDispatcher_PropagatesQueueError(t *testing.T) {
	errDown := errors.New("down")
	err := NewQStashDispatcher(&recordingQueue{err: errDown}).Dispatch(context.Background(), usecase.CareerActionJob{GameID: "g1"})
	if !errors.Is(err, errDown) {
		t.Fatalf("expected queue error, got %v", err)
	}
}

type blockingRunner struct {
	mu      sync.Mutex
	games   []string
	calls   atomic.Int32
	release chan struct{}
}

func (r *blockingRunner) RunCareerActions(ctx context.Context, job usecase.CareerActionJob) (usecase.JobRunResult, error) {
	r.calls.Add(1)
	if r.release != nil {
		<-r.release
	}
	if err := ctx.Err(); err != nil {
		return usecase.JobRunResult{}, err
	}
	r.mu.Lock()
	r.games = append(r.games, job.GameID)
	r.mu.Unlock()
	return usecase.JobRunResult{GameID: job.GameID}, nil
}

func TestLocalDispatcher_RunsJobAfterRequestEnds(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	dispatcher, err := NewLocalDispatcher(runner, 2, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	defer dispatcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if err := dispatcher.Dispatch(ctx, usecase.CareerActionJob{GameID: "g1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	cancel()
	close(runner.release)
	dispatcher.Wait()

	if len(runner.games) != 1 || runner.games[0] != "g1" {
		t.Fatalf("job did not survive request cancellation: %v", runner.games)
	}
}

func TestLocalDispatcher_RunsDifferentSaves(t *testing.T) {
	runner := &blockingRunner{}
	dispatcher, err := NewLocalDispatcher(runner, 4, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	defer dispatcher.Close()

	for _, gameID := range []string{"g1", "g2", "g3"} {
		if err := dispatcher.Dispatch(context.Background(), usecase.CareerActionJob{GameID: gameID}); err != nil {
			t.Fatalf("dispatch %s: %v", gameID, err)
		}
	}
	dispatcher.Wait()

	if runner.calls.Load() != 3 {
		t.Fatalf("expected 3 runs, got %d", runner.calls.Load())
	}
}
