package jobqueue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/riskibarqy/career-engine/internal/platform/resilience"
	"github.com/riskibarqy/career-engine/internal/usecase"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

// QStashDispatcher hands career tick runs to QStash. The dispatch id doubles
// as the deduplication id so a retried advance never queues twice.
type QStashDispatcher struct {
	queue Enqueuer
	path  string
}

func NewQStashDispatcher(queue Enqueuer) *QStashDispatcher {
	return &QStashDispatcher{queue: queue, path: usecase.CareerActionsJobPath}
}

func (d *QStashDispatcher) Dispatch(ctx context.Context, job usecase.CareerActionJob) error {
	if d.queue == nil {
		return fmt.Errorf("%w: job queue is not configured", usecase.ErrDependencyUnavailable)
	}
	return d.queue.Enqueue(ctx, d.path, job, 0, strings.TrimSpace(job.DispatchID))
}

type JobRunner interface {
	RunCareerActions(ctx context.Context, job usecase.CareerActionJob) (usecase.JobRunResult, error)
}

// LocalDispatcher runs career tick jobs in-process on a bounded worker
// pool. Concurrent jobs for the same save collapse into one run.
type LocalDispatcher struct {
	pool    *ants.Pool
	runner  JobRunner
	flights resilience.SingleFlight[usecase.JobRunResult]
	running sync.WaitGroup
	logger  *logging.Logger
}

func NewLocalDispatcher(runner JobRunner, workers int, logger *logging.Logger) (*LocalDispatcher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create career action worker pool: %w", err)
	}
	return &LocalDispatcher{pool: pool, runner: runner, logger: logger}, nil
}

// Dispatch returns once the job is accepted by the pool. The job outlives
// the caller's request context.
func (d *LocalDispatcher) Dispatch(ctx context.Context, job usecase.CareerActionJob) error {
	runCtx := context.WithoutCancel(ctx)
	if d.flights.Running(job.GameID) {
		d.logger.DebugContext(ctx, "career action job already running for game", "game_id", job.GameID, "dispatch_id", job.DispatchID)
	}
	d.running.Add(1)
	err := d.pool.Submit(func() {
		defer d.running.Done()
		_, err, shared := d.flights.Do(job.GameID, func() (usecase.JobRunResult, error) {
			return d.runner.RunCareerActions(runCtx, job)
		})
		if shared {
			d.logger.InfoContext(runCtx, "career action job joined running job", "game_id", job.GameID, "dispatch_id", job.DispatchID)
			return
		}
		if err != nil {
			d.logger.ErrorContext(runCtx, "career action job failed", "game_id", job.GameID, "dispatch_id", job.DispatchID, "error", err)
		}
	})
	if err != nil {
		d.running.Done()
		return fmt.Errorf("submit career action job game=%s: %w", job.GameID, err)
	}
	return nil
}

// Wait blocks until every accepted job has finished.
func (d *LocalDispatcher) Wait() {
	d.running.Wait()
}

func (d *LocalDispatcher) Close() {
	d.running.Wait()
	d.pool.Release()
}
