package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/season"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/riskibarqy/career-engine/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

type MatchdayAdvancer interface {
	Advance(ctx context.Context, gameID string) (usecase.AdvanceResult, error)
}

type MatchFinalizer interface {
	FinalizeMatch(ctx context.Context, gameID, matchID string) error
}

type MatchResimulator interface {
	Resimulate(ctx context.Context, input usecase.ResimulationInput) (usecase.ResimulationResult, error)
	ResimulateExtraTime(ctx context.Context, input usecase.ResimulationInput) (usecase.ResimulationResult, error)
}

type SeasonEndRunner interface {
	Run(ctx context.Context, input usecase.SeasonEndInput) (season.TransitionData, error)
}

type CareerActionJobRunner interface {
	RunCareerActions(ctx context.Context, job usecase.CareerActionJob) (usecase.JobRunResult, error)
}

type CompetitionLister interface {
	ListByGame(ctx context.Context, gameID string) ([]competition.Competition, error)
}

// HandlerDeps are the use cases served over HTTP. A nil dependency makes
// its routes answer 503.
type HandlerDeps struct {
	Advancer     MatchdayAdvancer
	Finalizer    MatchFinalizer
	Resimulator  MatchResimulator
	SeasonEnd    SeasonEndRunner
	Jobs         CareerActionJobRunner
	Competitions CompetitionLister
	Logger       *logging.Logger
}

type Handler struct {
	advancer     MatchdayAdvancer
	finalizer    MatchFinalizer
	resimulator  MatchResimulator
	seasonEnd    SeasonEndRunner
	jobs         CareerActionJobRunner
	competitions CompetitionLister
	logger       *logging.Logger
	validator    *validator.Validate
}

func NewHandler(deps HandlerDeps) *Handler {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}

	return &Handler{
		advancer:     deps.Advancer,
		finalizer:    deps.Finalizer,
		resimulator:  deps.Resimulator,
		seasonEnd:    deps.SeasonEnd,
		jobs:         deps.Jobs,
		competitions: deps.Competitions,
		logger:       deps.Logger,
		validator:    validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %w", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSON decodes an optional JSON body. An empty body leaves out
// untouched.
func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(raw) > maxRequestBodyBytes {
		return fmt.Errorf("%w: request body exceeds %d bytes", usecase.ErrInvalidInput, maxRequestBodyBytes)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil
	}
	if err := strictJSON.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func pathID(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(r.PathValue(name))
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", usecase.ErrInvalidInput, name)
	}
	return value, nil
}

func unavailable(what string) error {
	return fmt.Errorf("%w: %s is not configured", usecase.ErrDependencyUnavailable, what)
}
