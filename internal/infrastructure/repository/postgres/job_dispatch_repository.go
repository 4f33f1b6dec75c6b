package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/career-engine/internal/domain/jobscheduler"
	qb "github.com/riskibarqy/career-engine/internal/platform/querybuilder"
)

type JobDispatchRepository struct {
	db *sqlx.DB
}

func NewJobDispatchRepository(db *sqlx.DB) *JobDispatchRepository {
	return &JobDispatchRepository{db: db}
}

func (r *JobDispatchRepository) UpsertEvent(ctx context.Context, event jobscheduler.DispatchEvent) error {
	dispatchID := strings.TrimSpace(event.DispatchID)
	if dispatchID == "" {
		return fmt.Errorf("dispatch id is required")
	}

	jobName := strings.TrimSpace(event.JobName)
	if jobName == "" {
		jobName = "unknown"
	}
	jobPath := strings.TrimSpace(event.JobPath)
	if jobPath == "" {
		jobPath = "/unknown"
	}
	gameID := strings.TrimSpace(event.GameID)
	if gameID == "" {
		gameID = "unknown"
	}

	occurredAt := event.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	model := jobDispatchInsertModel{
		DispatchID: dispatchID,
		JobName:    jobName,
		JobPath:    jobPath,
		GameID:     gameID,
		Payload:    encodeJSONMap(event.Payload),
		Status:     string(event.Status),
		LastError:  optionalString(event.ErrorMessage),
	}

	switch event.Status {
	case jobscheduler.StatusSent:
		model.SentAt = &occurredAt
		model.SentTraceID = optionalString(event.TraceID)
		model.SentSpanID = optionalString(event.SpanID)
		model.LastError = nil
	case jobscheduler.StatusCompleted:
		model.CompletedAt = &occurredAt
		model.CompletedTraceID = optionalString(event.TraceID)
		model.CompletedSpanID = optionalString(event.SpanID)
		model.LastError = nil
	case jobscheduler.StatusFailed:
		model.FailedAt = &occurredAt
		model.FailedTraceID = optionalString(event.TraceID)
		model.FailedSpanID = optionalString(event.SpanID)
	}

	query, args, err := qb.InsertModel("job_dispatches", model, `ON CONFLICT (dispatch_id)
DO UPDATE SET
    job_name = EXCLUDED.job_name,
    job_path = EXCLUDED.job_path,
    game_id = EXCLUDED.game_id,
    payload = EXCLUDED.payload,
    status = EXCLUDED.status,
    sent_at = CASE
        WHEN EXCLUDED.status = 'sent' THEN EXCLUDED.sent_at
        ELSE COALESCE(job_dispatches.sent_at, EXCLUDED.sent_at)
    END,
    completed_at = CASE
        WHEN EXCLUDED.status = 'completed' THEN EXCLUDED.completed_at
        ELSE job_dispatches.completed_at
    END,
    failed_at = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_at
        WHEN EXCLUDED.status = 'completed' THEN NULL
        ELSE job_dispatches.failed_at
    END,
    last_error = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.last_error
        ELSE NULL
    END,
    sent_trace_id = COALESCE(EXCLUDED.sent_trace_id, job_dispatches.sent_trace_id),
    sent_span_id = COALESCE(EXCLUDED.sent_span_id, job_dispatches.sent_span_id),
    completed_trace_id = COALESCE(EXCLUDED.completed_trace_id, job_dispatches.completed_trace_id),
    completed_span_id = COALESCE(EXCLUDED.completed_span_id, job_dispatches.completed_span_id),
    failed_trace_id = COALESCE(EXCLUDED.failed_trace_id, job_dispatches.failed_trace_id),
    failed_span_id = COALESCE(EXCLUDED.failed_span_id, job_dispatches.failed_span_id)`)
	if err != nil {
		return fmt.Errorf("build upsert job dispatch query: %w", err)
	}

	if _, err := executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job dispatch dispatch_id=%s status=%s: %w", dispatchID, event.Status, err)
	}

	return nil
}

// Get returns the latest recorded state of a dispatch.
func (r *JobDispatchRepository) Get(ctx context.Context, dispatchID string) (jobscheduler.DispatchEvent, bool, error) {
	query, args, err := qb.Select("dispatch_id", "job_name", "job_path", "game_id", "payload::text AS payload", "status",
		"sent_at", "completed_at", "failed_at", "last_error",
		"sent_trace_id", "sent_span_id", "completed_trace_id", "completed_span_id", "failed_trace_id", "failed_span_id").
		From("job_dispatches").
		Where(qb.Eq("dispatch_id", dispatchID)).
		ToSQL()
	if err != nil {
		return jobscheduler.DispatchEvent{}, false, fmt.Errorf("build select job dispatch query: %w", err)
	}

	var row jobDispatchTableModel
	if err := executor(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return jobscheduler.DispatchEvent{}, false, nil
		}
		return jobscheduler.DispatchEvent{}, false, fmt.Errorf("select job dispatch dispatch_id=%s: %w", dispatchID, err)
	}

	event := jobscheduler.DispatchEvent{
		DispatchID:   row.DispatchID,
		JobName:      row.JobName,
		JobPath:      row.JobPath,
		GameID:       row.GameID,
		Status:       jobscheduler.DispatchStatus(row.Status),
		Payload:      decodeJSONMap(row.Payload),
		ErrorMessage: stringValue(row.LastError),
	}
	switch event.Status {
	case jobscheduler.StatusSent:
		event.OccurredAt, event.TraceID, event.SpanID = timeValue(row.SentAt), stringValue(row.SentTraceID), stringValue(row.SentSpanID)
	case jobscheduler.StatusCompleted:
		event.OccurredAt, event.TraceID, event.SpanID = timeValue(row.CompletedAt), stringValue(row.CompletedTraceID), stringValue(row.CompletedSpanID)
	case jobscheduler.StatusFailed:
		event.OccurredAt, event.TraceID, event.SpanID = timeValue(row.FailedAt), stringValue(row.FailedTraceID), stringValue(row.FailedSpanID)
	}
	return event, true, nil
}

func timeValue(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return value.UTC()
}
