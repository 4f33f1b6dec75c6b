package httpapi

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/riskibarqy/career-engine/internal/usecase"
)

var internalJobDispatchUnsafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

type careerActionsJobRequest struct {
	DispatchID string    `json:"dispatch_id" validate:"omitempty,max=200"`
	GameID     string    `json:"game_id" validate:"required"`
	Ticks      int       `json:"ticks" validate:"gte=0"`
	ClaimedAt  time.Time `json:"claimed_at"`
}

// RunCareerActionsJob is called back by the job queue. A request without a
// dispatch id is treated as a manual run.
func (h *Handler) RunCareerActionsJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "httpapi.Handler.RunCareerActionsJob")
	defer span.End()

	if h.jobs == nil {
		writeError(ctx, w, unavailable("job orchestrator"))
		return
	}

	var req careerActionsJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	req.GameID = strings.TrimSpace(req.GameID)
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.DispatchID) == "" {
		req.DispatchID = buildManualDispatchID("career-actions", req.GameID, time.Now())
	}

	result, err := h.jobs.RunCareerActions(ctx, usecase.CareerActionJob{
		DispatchID: req.DispatchID,
		GameID:     req.GameID,
		Ticks:      req.Ticks,
		ClaimedAt:  req.ClaimedAt,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "run career actions job failed", "game_id", req.GameID, "dispatch_id", req.DispatchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func buildManualDispatchID(jobName, gameID string, now time.Time) string {
	jobName = sanitizeDispatchPart(jobName)
	gameID = sanitizeDispatchPart(gameID)
	ts := now.UTC().Format("20060102T150405.000000000Z")
	return "manual-" + jobName + "-" + gameID + "-" + ts
}

func sanitizeDispatchPart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return internalJobDispatchUnsafeRegex.ReplaceAllString(value, "-")
}
