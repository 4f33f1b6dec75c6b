package httpapi

import (
	"net/http"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/usecase"
)

type seasonEndRequest struct {
	Force bool `json:"force"`
}

type seasonTransitionDTO struct {
	GameID        string         `json:"game_id"`
	OldSeason     string         `json:"old_season"`
	NewSeason     string         `json:"new_season"`
	CompetitionID string         `json:"competition_id"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type competitionDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Format             string `json:"format"`
	Role               string `json:"role"`
	Tier               int    `json:"tier"`
	Country            string `json:"country,omitempty"`
	Participating      bool   `json:"participating"`
	PromotesToID       string `json:"promotes_to_id,omitempty"`
	RelegatesToID      string `json:"relegates_to_id,omitempty"`
	TwoLeggedKnockout  bool   `json:"two_legged_knockout"`
	PrizeMoneyPerRound int64  `json:"prize_money_per_round"`
}

func (h *Handler) RunSeasonEnd(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "httpapi.Handler.RunSeasonEnd")
	defer span.End()

	if h.seasonEnd == nil {
		writeError(ctx, w, unavailable("season end pipeline"))
		return
	}
	gameID, err := pathID(r, "gameID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	var req seasonEndRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	data, err := h.seasonEnd.Run(ctx, usecase.SeasonEndInput{GameID: gameID, Force: req.Force})
	if err != nil {
		h.logger.WarnContext(ctx, "season end failed", "game_id", gameID, "force", req.Force, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, seasonTransitionDTO{
		GameID:        data.GameID,
		OldSeason:     data.OldSeason,
		NewSeason:     data.NewSeason,
		CompetitionID: data.CompetitionID,
		Metadata:      data.Metadata,
	})
}

func (h *Handler) ListCompetitions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "httpapi.Handler.ListCompetitions")
	defer span.End()

	if h.competitions == nil {
		writeError(ctx, w, unavailable("competition store"))
		return
	}
	gameID, err := pathID(r, "gameID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.competitions.ListByGame(ctx, gameID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list competitions failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]competitionDTO, 0, len(items))
	for _, c := range items {
		out = append(out, competitionToDTO(c))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func competitionToDTO(c competition.Competition) competitionDTO {
	return competitionDTO{
		ID:                 c.ID,
		Name:               c.Name,
		Format:             string(c.Format),
		Role:               string(c.Role),
		Tier:               c.Tier,
		Country:            c.Country,
		Participating:      c.Participating,
		PromotesToID:       c.PromotesToID,
		RelegatesToID:      c.RelegatesToID,
		TwoLeggedKnockout:  c.TwoLeggedKnockout,
		PrizeMoneyPerRound: c.PrizeMoneyPerRound,
	}
}
