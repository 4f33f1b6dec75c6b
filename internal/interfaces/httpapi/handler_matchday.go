package httpapi

import (
	"net/http"

	"github.com/riskibarqy/career-engine/internal/usecase"
)

type finalizeMatchDTO struct {
	GameID    string `json:"game_id"`
	MatchID   string `json:"match_id"`
	Finalized bool   `json:"finalized"`
}

func (h *Handler) AdvanceMatchday(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "httpapi.Handler.AdvanceMatchday")
	defer span.End()

	if h.advancer == nil {
		writeError(ctx, w, unavailable("matchday orchestrator"))
		return
	}
	gameID, err := pathID(r, "gameID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.advancer.Advance(ctx, gameID)
	if err != nil {
		h.logger.WarnContext(ctx, "advance matchday failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) FinalizeMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "httpapi.Handler.FinalizeMatch")
	defer span.End()

	if h.finalizer == nil {
		writeError(ctx, w, unavailable("match finalization"))
		return
	}
	gameID, err := pathID(r, "gameID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	matchID, err := pathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.finalizer.FinalizeMatch(ctx, gameID, matchID); err != nil {
		h.logger.WarnContext(ctx, "finalize match failed", "game_id", gameID, "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, finalizeMatchDTO{GameID: gameID, MatchID: matchID, Finalized: true})
}

func (h *Handler) ResimulateMatch(w http.ResponseWriter, r *http.Request) {
	h.resimulate(w, r, false)
}

func (h *Handler) ResimulateExtraTime(w http.ResponseWriter, r *http.Request) {
	h.resimulate(w, r, true)
}

func (h *Handler) resimulate(w http.ResponseWriter, r *http.Request, extraTime bool) {
	spanName := "httpapi.Handler.ResimulateMatch"
	if extraTime {
		spanName = "httpapi.Handler.ResimulateExtraTime"
	}
	ctx, span := startHandlerSpan(r, spanName)
	defer span.End()

	if h.resimulator == nil {
		writeError(ctx, w, unavailable("match resimulation"))
		return
	}
	gameID, err := pathID(r, "gameID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	matchID, err := pathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var input usecase.ResimulationInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(ctx, w, err)
		return
	}
	input.GameID = gameID
	input.MatchID = matchID

	var result usecase.ResimulationResult
	if extraTime {
		result, err = h.resimulator.ResimulateExtraTime(ctx, input)
	} else {
		result, err = h.resimulator.Resimulate(ctx, input)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "resimulate match failed",
			"game_id", gameID,
			"match_id", matchID,
			"minute", input.Minute,
			"extra_time", extraTime,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}
