package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	qb "github.com/riskibarqy/career-engine/internal/platform/querybuilder"
)

type GameRepository struct {
	db *sqlx.DB
}

var gameSelectColumns = []string{
	"id",
	"user_id",
	"team_id",
	"season",
	"competition_id",
	"game_date",
	"current_matchday",
	"pending_finalization_match_id",
	"career_actions_processing_at",
	"season_transition_started_at",
	"season_completed_at",
	"needs_onboarding",
	"budget",
	"updated_at",
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) GetByID(ctx context.Context, gameID string) (game.Game, bool, error) {
	return r.get(ctx, gameID, false)
}

// LockForUpdate holds the game row until the surrounding transaction ends.
func (r *GameRepository) LockForUpdate(ctx context.Context, gameID string) (game.Game, bool, error) {
	return r.get(ctx, gameID, true)
}

func (r *GameRepository) get(ctx context.Context, gameID string, forUpdate bool) (game.Game, bool, error) {
	query, args, err := qb.Select(gameSelectColumns...).From("games").
		Where(qb.Eq("id", gameID)).
		ForUpdate(forUpdate).
		ToSQL()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("build select game query: %w", err)
	}

	var row gameTableModel
	if err := executor(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, fmt.Errorf("select game id=%s: %w", gameID, err)
	}
	return gameFromRow(row), true, nil
}

func (r *GameRepository) Update(ctx context.Context, g game.Game) error {
	query, args, err := qb.Update("games").
		Set("user_id", g.UserID).
		Set("team_id", g.TeamID).
		Set("season", g.Season).
		Set("competition_id", g.CompetitionID).
		Set("game_date", g.CurrentDate.UTC()).
		Set("current_matchday", g.CurrentMatchday).
		Set("pending_finalization_match_id", optionalString(g.PendingFinalizationMatchID)).
		Set("career_actions_processing_at", utcTime(g.CareerActionsProcessingAt)).
		Set("season_transition_started_at", utcTime(g.SeasonTransitionStartedAt)).
		Set("season_completed_at", utcTime(g.SeasonCompletedAt)).
		Set("needs_onboarding", g.NeedsOnboarding).
		Set("budget", g.Budget).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", g.ID)).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "update game id="+g.ID, query, args, err)
}

// Insert creates a save. Only seeding and the operator CLI create games.
func (r *GameRepository) Insert(ctx context.Context, g game.Game) error {
	query, args, err := qb.InsertModel("games", gameToRow(g), "ON CONFLICT (id) DO NOTHING")
	return execBuilt(ctx, executor(ctx, r.db), "insert game id="+g.ID, query, args, err)
}

func (r *GameRepository) ListPendingActions(ctx context.Context, gameID string) ([]game.PendingAction, error) {
	query, args, err := qb.Select("id", "game_id", "type", "title", "payload::text AS payload", "created_at", "resolved_at").
		From("pending_actions").
		Where(qb.Eq("game_id", gameID), qb.IsNull("resolved_at")).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select pending actions query: %w", err)
	}

	var rows []pendingActionTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select pending actions game=%s: %w", gameID, err)
	}

	out := make([]game.PendingAction, 0, len(rows))
	for _, row := range rows {
		out = append(out, game.PendingAction{
			ID:         row.ID,
			GameID:     row.GameID,
			Type:       row.Type,
			Title:      row.Title,
			Payload:    decodeJSONMap(row.Payload),
			CreatedAt:  row.CreatedAt,
			ResolvedAt: row.ResolvedAt,
		})
	}
	return out, nil
}

func (r *GameRepository) CreatePendingAction(ctx context.Context, action game.PendingAction) error {
	createdAt := action.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query, args, err := qb.InsertModel("pending_actions", pendingActionTableModel{
		ID:         action.ID,
		GameID:     action.GameID,
		Type:       action.Type,
		Title:      action.Title,
		Payload:    encodeJSONMap(action.Payload),
		CreatedAt:  createdAt,
		ResolvedAt: utcTime(action.ResolvedAt),
	}, "")
	return execBuilt(ctx, executor(ctx, r.db), "insert pending action id="+action.ID, query, args, err)
}

func (r *GameRepository) ResolvePendingAction(ctx context.Context, gameID, actionID string, at time.Time) error {
	query, args, err := qb.Update("pending_actions").
		Set("resolved_at", at.UTC()).
		Where(qb.Eq("game_id", gameID), qb.Eq("id", actionID)).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "resolve pending action id="+actionID, query, args, err)
}

// ReleaseCareerActions clears the claim only while it is still the one
// taken at claimedAt. A zero claimedAt releases any claim.
func (r *GameRepository) ReleaseCareerActions(ctx context.Context, gameID string, claimedAt time.Time) error {
	conditions := []qb.Condition{qb.Eq("id", gameID)}
	if !claimedAt.IsZero() {
		conditions = append(conditions, qb.Eq("career_actions_processing_at", claimedAt.UTC()))
	}
	query, args, err := qb.Update("games").
		SetExpr("career_actions_processing_at", "NULL").
		SetExpr("updated_at", "NOW()").
		Where(conditions...).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "release career actions game="+gameID, query, args, err)
}

func gameFromRow(row gameTableModel) game.Game {
	return game.Game{
		ID:                         row.ID,
		UserID:                     row.UserID,
		TeamID:                     row.TeamID,
		Season:                     row.Season,
		CompetitionID:              row.CompetitionID,
		CurrentDate:                row.GameDate.UTC(),
		CurrentMatchday:            row.CurrentMatchday,
		PendingFinalizationMatchID: stringValue(row.PendingFinalizationMatchID),
		CareerActionsProcessingAt:  utcTime(row.CareerActionsProcessingAt),
		SeasonTransitionStartedAt:  utcTime(row.SeasonTransitionStartedAt),
		SeasonCompletedAt:          utcTime(row.SeasonCompletedAt),
		NeedsOnboarding:            row.NeedsOnboarding,
		Budget:                     row.Budget,
		UpdatedAt:                  row.UpdatedAt,
	}
}

func gameToRow(g game.Game) gameTableModel {
	updatedAt := g.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return gameTableModel{
		ID:                         g.ID,
		UserID:                     g.UserID,
		TeamID:                     g.TeamID,
		Season:                     g.Season,
		CompetitionID:              g.CompetitionID,
		GameDate:                   g.CurrentDate.UTC(),
		CurrentMatchday:            g.CurrentMatchday,
		PendingFinalizationMatchID: optionalString(g.PendingFinalizationMatchID),
		CareerActionsProcessingAt:  utcTime(g.CareerActionsProcessingAt),
		SeasonTransitionStartedAt:  utcTime(g.SeasonTransitionStartedAt),
		SeasonCompletedAt:          utcTime(g.SeasonCompletedAt),
		NeedsOnboarding:            g.NeedsOnboarding,
		Budget:                     g.Budget,
		UpdatedAt:                  updatedAt,
	}
}
