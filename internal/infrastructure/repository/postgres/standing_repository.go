package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/career-engine/internal/domain/standing"
	qb "github.com/riskibarqy/career-engine/internal/platform/querybuilder"
)

type StandingRepository struct {
	db *sqlx.DB
}

var standingSelectColumns = []string{
	"game_id",
	"competition_id",
	"group_label",
	"team_id",
	"position",
	"previous_position",
	"played",
	"won",
	"drawn",
	"lost",
	"goals_for",
	"goals_against",
	"points",
	"form",
	"row_order",
}

func NewStandingRepository(db *sqlx.DB) *StandingRepository {
	return &StandingRepository{db: db}
}

func (r *StandingRepository) ListByCompetition(ctx context.Context, gameID, competitionID string) ([]standing.Standing, error) {
	return r.list(ctx, false, qb.Eq("game_id", gameID), qb.Eq("competition_id", competitionID))
}

func (r *StandingRepository) list(ctx context.Context, forUpdate bool, conditions ...qb.Condition) ([]standing.Standing, error) {
	query, args, err := qb.Select(standingSelectColumns...).From("standings").
		Where(conditions...).
		OrderBy("row_order", "team_id").
		ForUpdate(forUpdate).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select standings query: %w", err)
	}

	var rows []standingTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select standings: %w", err)
	}

	out := make([]standing.Standing, 0, len(rows))
	for _, row := range rows {
		out = append(out, standing.Standing{
			GameID:           row.GameID,
			CompetitionID:    row.CompetitionID,
			GroupLabel:       row.GroupLabel,
			TeamID:           row.TeamID,
			Position:         row.Position,
			PreviousPosition: row.PreviousPosition,
			Played:           row.Played,
			Won:              row.Won,
			Drawn:            row.Drawn,
			Lost:             row.Lost,
			GoalsFor:         row.GoalsFor,
			GoalsAgainst:     row.GoalsAgainst,
			Points:           row.Points,
			Form:             row.Form,
		})
	}
	return out, nil
}

// ApplyResults locks the affected rows, folds every delta in with
// standing.Apply and writes them back in one statement. Teams without a
// row are ignored.
func (r *StandingRepository) ApplyResults(ctx context.Context, gameID, competitionID string, deltas []standing.ResultDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	teamIDs := make([]string, 0, len(deltas))
	for _, d := range deltas {
		teamIDs = append(teamIDs, d.TeamID)
	}
	rows, err := r.list(ctx, true,
		qb.Eq("game_id", gameID),
		qb.Eq("competition_id", competitionID),
		qb.In("team_id", stringSliceToAny(teamIDs)),
	)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	byTeam := make(map[string]int, len(rows))
	for i, row := range rows {
		byTeam[row.TeamID] = i
	}
	for _, d := range deltas {
		if i, ok := byTeam[d.TeamID]; ok {
			rows[i] = standing.Apply(rows[i], d)
		}
	}

	bulk := qb.BulkUpdate("standings", "team_id").
		Columns("played", "won", "drawn", "lost", "goals_for", "goals_against", "points", "form").
		Cast("played", "integer").
		Cast("won", "integer").
		Cast("drawn", "integer").
		Cast("lost", "integer").
		Cast("goals_for", "integer").
		Cast("goals_against", "integer").
		Cast("points", "integer").
		Cast("form", "text").
		Where(qb.Eq("game_id", gameID), qb.Eq("competition_id", competitionID))
	for _, row := range rows {
		bulk.Row(row.TeamID, row.Played, row.Won, row.Drawn, row.Lost, row.GoalsFor, row.GoalsAgainst, row.Points, row.Form)
	}
	query, args, err := bulk.ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "apply standing results competition="+competitionID, query, args, err)
}

func (r *StandingRepository) SavePositions(ctx context.Context, gameID, competitionID string, ranked []standing.Standing) error {
	if len(ranked) == 0 {
		return nil
	}
	bulk := qb.BulkUpdate("standings", "team_id").
		Columns("position", "previous_position").
		Cast("position", "integer").
		Cast("previous_position", "integer").
		Where(qb.Eq("game_id", gameID), qb.Eq("competition_id", competitionID))
	for _, row := range latestByKey(ranked, func(s standing.Standing) string { return s.TeamID }) {
		bulk.Row(row.TeamID, row.Position, row.PreviousPosition)
	}
	query, args, err := bulk.ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "save standing positions competition="+competitionID, query, args, err)
}

// Replace swaps the whole table of one competition.
func (r *StandingRepository) Replace(ctx context.Context, gameID, competitionID string, rows []standing.Standing) error {
	q := executor(ctx, r.db)
	query, args, err := qb.Delete("standings").
		Where(qb.Eq("game_id", gameID), qb.Eq("competition_id", competitionID)).
		ToSQL()
	if err := execBuilt(ctx, q, "delete standings competition="+competitionID, query, args, err); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	models := make([]standingTableModel, 0, len(rows))
	for i, row := range rows {
		models = append(models, standingTableModel{
			GameID:           gameID,
			CompetitionID:    competitionID,
			GroupLabel:       row.GroupLabel,
			TeamID:           row.TeamID,
			Position:         row.Position,
			PreviousPosition: row.PreviousPosition,
			Played:           row.Played,
			Won:              row.Won,
			Drawn:            row.Drawn,
			Lost:             row.Lost,
			GoalsFor:         row.GoalsFor,
			GoalsAgainst:     row.GoalsAgainst,
			Points:           row.Points,
			Form:             row.Form,
			RowOrder:         i,
		})
	}
	query, args, err = qb.InsertModels("standings", models, "")
	return execBuilt(ctx, q, "insert standings competition="+competitionID, query, args, err)
}

func (r *StandingRepository) DeleteByGame(ctx context.Context, gameID string) error {
	_, err := deleteByGame(ctx, executor(ctx, r.db), "standings", gameID)
	return err
}
