package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/jobscheduler"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// CareerActionRunner executes one claimed career tick run.
type CareerActionRunner interface {
	Run(ctx context.Context, job CareerActionJob) error
}

// JobRunResult is what the internal job endpoint reports back to the queue.
type JobRunResult struct {
	DispatchID string `json:"dispatch_id"`
	GameID     string `json:"game_id"`
	Ticks      int    `json:"ticks"`
	Skipped    bool   `json:"skipped"`
}

// JobOrchestratorService runs queued career-action jobs and keeps their
// dispatch history. A redelivered dispatch that already completed is
// acknowledged without running again.
type JobOrchestratorService struct {
	runner       CareerActionRunner
	dispatchRepo jobscheduler.Repository
	logger       *logging.Logger
	now          func() time.Time
}

func NewJobOrchestratorService(runner CareerActionRunner, dispatchRepo jobscheduler.Repository, logger *logging.Logger) *JobOrchestratorService {
	if logger == nil {
		logger = logging.Default()
	}
	return &JobOrchestratorService{
		runner:       runner,
		dispatchRepo: dispatchRepo,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *JobOrchestratorService) RunCareerActions(ctx context.Context, job CareerActionJob) (JobRunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.RunCareerActions",
		attribute.String("game.id", job.GameID),
		attribute.String("dispatch.id", job.DispatchID),
	)
	defer span.End()

	job.GameID = strings.TrimSpace(job.GameID)
	job.DispatchID = strings.TrimSpace(job.DispatchID)
	if job.GameID == "" {
		return JobRunResult{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	if s.runner == nil {
		return JobRunResult{}, fmt.Errorf("%w: career action runner is not configured", ErrDependencyUnavailable)
	}
	result := JobRunResult{DispatchID: job.DispatchID, GameID: job.GameID, Ticks: job.Ticks}

	if done, err := s.alreadyCompleted(ctx, job.DispatchID); err != nil {
		return JobRunResult{}, err
	} else if done {
		s.logger.InfoContext(ctx, "career action dispatch already completed", "dispatch_id", job.DispatchID, "game_id", job.GameID)
		result.Skipped = true
		return result, nil
	}

	event := jobscheduler.CareerActionsEvent(job.DispatchID, job.GameID, CareerActionsJobPath, job.Ticks, jobscheduler.StatusCompleted)
	if err := s.runner.Run(ctx, job); err != nil {
		s.recordDispatchEvent(ctx, event.Failed(err))
		return JobRunResult{}, fmt.Errorf("run career actions game=%s: %w", job.GameID, err)
	}
	s.recordDispatchEvent(ctx, event)
	return result, nil
}

func (s *JobOrchestratorService) alreadyCompleted(ctx context.Context, dispatchID string) (bool, error) {
	if s.dispatchRepo == nil || dispatchID == "" {
		return false, nil
	}
	event, ok, err := s.dispatchRepo.Get(ctx, dispatchID)
	if err != nil {
		return false, fmt.Errorf("get job dispatch=%s: %w", dispatchID, err)
	}
	return ok && event.Completed(), nil
}

func (s *JobOrchestratorService) recordDispatchEvent(ctx context.Context, event jobscheduler.DispatchEvent) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	event.TraceID, event.SpanID = traceMetaFromContext(ctx)
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}
