package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/season"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/riskibarqy/career-engine/internal/usecase"
	"github.com/stretchr/testify/require"
)

type fakeUsecases struct {
	advanceGameID string
	advanceResult usecase.AdvanceResult
	advanceErr    error

	finalized   [2]string
	finalizeErr error

	resimInput usecase.ResimulationInput
	resimExtra bool

	seasonInput usecase.SeasonEndInput

	job usecase.CareerActionJob

	competitions []competition.Competition
}

func (f *fakeUsecases) Advance(_ context.Context, gameID string) (usecase.AdvanceResult, error) {
	f.advanceGameID = gameID
	return f.advanceResult, f.advanceErr
}

func (f *fakeUsecases) FinalizeMatch(_ context.Context, gameID, matchID string) error {
	f.finalized = [2]string{gameID, matchID}
	return f.finalizeErr
}

func (f *fakeUsecases) Resimulate(_ context.Context, input usecase.ResimulationInput) (usecase.ResimulationResult, error) {
	f.resimInput = input
	return usecase.ResimulationResult{MatchID: input.MatchID, Minute: input.Minute, NewHomeScore: 2}, nil
}

func (f *fakeUsecases) ResimulateExtraTime(_ context.Context, input usecase.ResimulationInput) (usecase.ResimulationResult, error) {
	f.resimInput = input
	f.resimExtra = true
	return usecase.ResimulationResult{MatchID: input.MatchID, Minute: input.Minute}, nil
}

func (f *fakeUsecases) Run(_ context.Context, input usecase.SeasonEndInput) (season.TransitionData, error) {
	f.seasonInput = input
	return season.TransitionData{GameID: input.GameID, OldSeason: "2025/26", NewSeason: "2026/27", CompetitionID: "lg"}, nil
}

func (f *fakeUsecases) RunCareerActions(_ context.Context, job usecase.CareerActionJob) (usecase.JobRunResult, error) {
	f.job = job
	return usecase.JobRunResult{DispatchID: job.DispatchID, GameID: job.GameID, Ticks: job.Ticks}, nil
}

func (f *fakeUsecases) ListByGame(_ context.Context, _ string) ([]competition.Competition, error) {
	return f.competitions, nil
}

func newTestRouter(f *fakeUsecases) http.Handler {
	handler := NewHandler(HandlerDeps{
		Advancer:     f,
		Finalizer:    f,
		Resimulator:  f,
		SeasonEnd:    f,
		Jobs:         f,
		Competitions: f,
		Logger:       logging.NewNop(),
	})
	return NewRouter(handler, RouterConfig{
		CORSAllowedOrigins: []string{"*"},
		InternalJobToken:   "job-secret",
	}, logging.NewNop())
}

func serve(t *testing.T, router http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &out), "body=%s", rec.Body.String())
	return rec, out
}

func TestAdvanceMatchday(t *testing.T) {
	f := &fakeUsecases{advanceResult: usecase.AdvanceResult{Status: usecase.AdvanceLiveMatch, MatchID: "m-7", Matchday: 3}}
	rec, body := serve(t, newTestRouter(f), http.MethodPost, "/v1/games/g1/advance", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "g1", f.advanceGameID)
	data := body["data"].(map[string]any)
	require.Equal(t, "live_match", data["status"])
	require.Equal(t, "m-7", data["match_id"])
}

func TestAdvanceMatchday_NotFound(t *testing.T) {
	f := &fakeUsecases{advanceErr: fmt.Errorf("%w: game=missing", usecase.ErrNotFound)}
	rec, body := serve(t, newTestRouter(f), http.MethodPost, "/v1/games/missing/advance", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, body, "error")
}

func TestFinalizeMatch_Conflict(t *testing.T) {
	f := &fakeUsecases{finalizeErr: fmt.Errorf("%w: match=m-2 is not pending", usecase.ErrConflict)}
	rec, _ := serve(t, newTestRouter(f), http.MethodPost, "/v1/games/g1/matches/m-2/finalize", "", nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, [2]string{"g1", "m-2"}, f.finalized)
}

func TestResimulateMatch_BindsPathAndBody(t *testing.T) {
	f := &fakeUsecases{}
	body := `{"minute":60,"home_lineup":["h1","h2","h3","h4","h5","h6","h7"],"away_lineup":["a1","a2","a3","a4","a5","a6","a7"],"home_mentality":"attacking"}`
	rec, resp := serve(t, newTestRouter(f), http.MethodPost, "/v1/games/g1/matches/m-9/resimulate", body, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "g1", f.resimInput.GameID)
	require.Equal(t, "m-9", f.resimInput.MatchID)
	require.Equal(t, 60, f.resimInput.Minute)
	require.Equal(t, "attacking", f.resimInput.HomeMentality)
	require.False(t, f.resimExtra)
	require.EqualValues(t, 2, resp["data"].(map[string]any)["new_home_score"])
}

func TestResimulateExtraTime_UsesExtraTimeReplay(t *testing.T) {
	f := &fakeUsecases{}
	body := `{"minute":95,"home_lineup":["h1","h2","h3","h4","h5","h6","h7"],"away_lineup":["a1","a2","a3","a4","a5","a6","a7"]}`
	rec, _ := serve(t, newTestRouter(f), http.MethodPost, "/v1/games/g1/matches/m-9/resimulate-extra-time", body, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, f.resimExtra)
}

func TestResimulateMatch_RejectsUnknownFields(t *testing.T) {
	f := &fakeUsecases{}
	rec, _ := serve(t, newTestRouter(f), http.MethodPost, "/v1/games/g1/matches/m-9/resimulate", `{"minute":10,"weather":"rain"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, f.resimInput.MatchID)
}

func TestRunSeasonEnd_PassesForce(t *testing.T) {
	f := &fakeUsecases{}
	rec, body := serve(t, newTestRouter(f), http.MethodPost, "/v1/games/g1/season-end", `{"force":true}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, usecase.SeasonEndInput{GameID: "g1", Force: true}, f.seasonInput)
	require.Equal(t, "2026/27", body["data"].(map[string]any)["new_season"])
}

func TestListCompetitions(t *testing.T) {
	f := &fakeUsecases{competitions: []competition.Competition{
		{ID: "lg", Name: "Premier", Format: competition.FormatLeague, Role: competition.RolePrimary, Tier: 1, Participating: true},
	}}
	rec, body := serve(t, newTestRouter(f), http.MethodGet, "/v1/games/g1/competitions", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	items := body["data"].([]any)
	require.Len(t, items, 1)
	require.Equal(t, "league", items[0].(map[string]any)["format"])
}

func TestRunCareerActionsJob(t *testing.T) {
	t.Run("rejects missing token", func(t *testing.T) {
		f := &fakeUsecases{}
		rec, _ := serve(t, newTestRouter(f), http.MethodPost, usecase.CareerActionsJobPath, `{"game_id":"g1","ticks":2}`, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Empty(t, f.job.GameID)
	})

	t.Run("runs queued dispatch", func(t *testing.T) {
		f := &fakeUsecases{}
		rec, body := serve(t, newTestRouter(f), http.MethodPost, usecase.CareerActionsJobPath,
			`{"dispatch_id":"career-actions-g1-1","game_id":"g1","ticks":2,"claimed_at":"2025-09-01T00:00:00Z"}`,
			map[string]string{internalJobTokenHeader: "job-secret"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "career-actions-g1-1", f.job.DispatchID)
		require.Equal(t, 2, f.job.Ticks)
		require.False(t, f.job.ClaimedAt.IsZero())
		require.Equal(t, "g1", body["data"].(map[string]any)["game_id"])
	})

	t.Run("builds manual dispatch id", func(t *testing.T) {
		f := &fakeUsecases{}
		rec, _ := serve(t, newTestRouter(f), http.MethodPost, usecase.CareerActionsJobPath, `{"game_id":"g 1"}`,
			map[string]string{internalJobTokenHeader: "job-secret"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, strings.HasPrefix(f.job.DispatchID, "manual-career-actions-g-1-"), f.job.DispatchID)
	})

	t.Run("requires game id", func(t *testing.T) {
		f := &fakeUsecases{}
		rec, _ := serve(t, newTestRouter(f), http.MethodPost, usecase.CareerActionsJobPath, `{"ticks":1}`,
			map[string]string{internalJobTokenHeader: "job-secret"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_MissingDependency(t *testing.T) {
	router := NewRouter(NewHandler(HandlerDeps{Logger: logging.NewNop()}), RouterConfig{CORSAllowedOrigins: []string{"*"}}, logging.NewNop())
	rec, _ := serve(t, router, http.MethodPost, "/v1/games/g1/advance", "", nil)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec, body := serve(t, newTestRouter(&fakeUsecases{}), http.MethodGet, "/healthz", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["data"].(map[string]any)["status"])
}
