package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/career-engine/internal/domain/competition"
	qb "github.com/riskibarqy/career-engine/internal/platform/querybuilder"
)

type CompetitionRepository struct {
	db *sqlx.DB
}

var competitionSelectColumns = []string{
	"id",
	"game_id",
	"name",
	"format",
	"role",
	"tier",
	"country",
	"participating",
	"promotes_to_id",
	"relegates_to_id",
	"promotion_spots",
	"relegation_spots",
	"playoff_from",
	"playoff_to",
	"knockout_seed_from",
	"knockout_seed_to",
	"group_qualifiers",
	"qualification_targets::text AS qualification_targets",
	"two_legged_knockout",
	"prize_money_per_round",
}

func NewCompetitionRepository(db *sqlx.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

func (r *CompetitionRepository) ListByGame(ctx context.Context, gameID string) ([]competition.Competition, error) {
	query, args, err := qb.Select(competitionSelectColumns...).From("competitions").
		Where(qb.Eq("game_id", gameID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select competitions query: %w", err)
	}

	var rows []competitionTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select competitions game=%s: %w", gameID, err)
	}

	out := make([]competition.Competition, 0, len(rows))
	for _, row := range rows {
		c, err := competitionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *CompetitionRepository) GetByID(ctx context.Context, gameID, competitionID string) (competition.Competition, bool, error) {
	query, args, err := qb.Select(competitionSelectColumns...).From("competitions").
		Where(qb.Eq("game_id", gameID), qb.Eq("id", competitionID)).
		ToSQL()
	if err != nil {
		return competition.Competition{}, false, fmt.Errorf("build select competition query: %w", err)
	}

	var row competitionTableModel
	if err := executor(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return competition.Competition{}, false, nil
		}
		return competition.Competition{}, false, fmt.Errorf("select competition id=%s: %w", competitionID, err)
	}
	c, err := competitionFromRow(row)
	if err != nil {
		return competition.Competition{}, false, err
	}
	return c, true, nil
}

func (r *CompetitionRepository) InsertBatch(ctx context.Context, comps []competition.Competition) error {
	if len(comps) == 0 {
		return nil
	}
	rows := make([]competitionTableModel, 0, len(comps))
	for _, c := range comps {
		targets, err := encodeJSON(c.QualificationTargets)
		if err != nil {
			return fmt.Errorf("encode qualification targets competition=%s: %w", c.ID, err)
		}
		rows = append(rows, competitionTableModel{
			ID:                   c.ID,
			GameID:               c.GameID,
			Name:                 c.Name,
			Format:               string(c.Format),
			Role:                 string(c.Role),
			Tier:                 c.Tier,
			Country:              c.Country,
			Participating:        c.Participating,
			PromotesToID:         c.PromotesToID,
			RelegatesToID:        c.RelegatesToID,
			PromotionSpots:       c.PromotionSpots,
			RelegationSpots:      c.RelegationSpots,
			PlayoffFrom:          c.PlayoffFrom,
			PlayoffTo:            c.PlayoffTo,
			KnockoutSeedFrom:     c.KnockoutSeedFrom,
			KnockoutSeedTo:       c.KnockoutSeedTo,
			GroupQualifiers:      c.GroupQualifiers,
			QualificationTargets: targets,
			TwoLeggedKnockout:    c.TwoLeggedKnockout,
			PrizeMoneyPerRound:   c.PrizeMoneyPerRound,
		})
	}
	query, args, err := qb.InsertModels("competitions", rows, "ON CONFLICT (game_id, id) DO NOTHING")
	return execBuilt(ctx, executor(ctx, r.db), "insert competitions", query, args, err)
}

func (r *CompetitionRepository) ListEntries(ctx context.Context, gameID, competitionID string) ([]competition.Entry, error) {
	query, args, err := qb.Select("game_id", "competition_id", "team_id", "group_label", "seed", "entry_order").
		From("competition_entries").
		Where(qb.Eq("game_id", gameID), qb.Eq("competition_id", competitionID)).
		OrderBy("entry_order").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select competition entries query: %w", err)
	}

	var rows []competitionEntryTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select competition entries competition=%s: %w", competitionID, err)
	}

	out := make([]competition.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, competition.Entry{
			GameID:        row.GameID,
			CompetitionID: row.CompetitionID,
			TeamID:        row.TeamID,
			GroupLabel:    row.GroupLabel,
			Seed:          row.Seed,
		})
	}
	return out, nil
}

// ReplaceEntries swaps the whole entry list; order is kept.
func (r *CompetitionRepository) ReplaceEntries(ctx context.Context, gameID, competitionID string, entries []competition.Entry) error {
	q := executor(ctx, r.db)
	query, args, err := qb.Delete("competition_entries").
		Where(qb.Eq("game_id", gameID), qb.Eq("competition_id", competitionID)).
		ToSQL()
	if err := execBuilt(ctx, q, "delete competition entries competition="+competitionID, query, args, err); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	rows := make([]competitionEntryTableModel, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, competitionEntryTableModel{
			GameID:        gameID,
			CompetitionID: competitionID,
			TeamID:        e.TeamID,
			GroupLabel:    e.GroupLabel,
			Seed:          e.Seed,
			EntryOrder:    i,
		})
	}
	query, args, err = qb.InsertModels("competition_entries", rows, "")
	return execBuilt(ctx, q, "insert competition entries competition="+competitionID, query, args, err)
}

func (r *CompetitionRepository) ListRounds(ctx context.Context, gameID, competitionID string) ([]competition.Round, error) {
	query, args, err := qb.Select("game_id", "competition_id", "number", "name", "first_leg_date", "second_leg_date", "knockout").
		From("competition_rounds").
		Where(qb.Eq("game_id", gameID), qb.Eq("competition_id", competitionID)).
		OrderBy("number").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select competition rounds query: %w", err)
	}

	var rows []competitionRoundTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select competition rounds competition=%s: %w", competitionID, err)
	}

	out := make([]competition.Round, 0, len(rows))
	for _, row := range rows {
		out = append(out, competition.Round{
			CompetitionID: row.CompetitionID,
			Number:        row.Number,
			Name:          row.Name,
			FirstLegDate:  row.FirstLegDate.UTC(),
			SecondLegDate: utcTime(row.SecondLegDate),
			Knockout:      row.Knockout,
		})
	}
	return out, nil
}

func (r *CompetitionRepository) UpsertRounds(ctx context.Context, gameID string, rounds []competition.Round) error {
	if len(rounds) == 0 {
		return nil
	}
	rows := make([]competitionRoundTableModel, 0, len(rounds))
	for _, round := range latestByKey(rounds, func(r competition.Round) string { return r.CompetitionID + "/" + strconv.Itoa(r.Number) }) {
		rows = append(rows, competitionRoundTableModel{
			GameID:        gameID,
			CompetitionID: round.CompetitionID,
			Number:        round.Number,
			Name:          round.Name,
			FirstLegDate:  round.FirstLegDate.UTC(),
			SecondLegDate: utcTime(round.SecondLegDate),
			Knockout:      round.Knockout,
		})
	}
	query, args, err := qb.InsertModels("competition_rounds", rows, `ON CONFLICT (game_id, competition_id, number)
DO UPDATE SET
    name = EXCLUDED.name,
    first_leg_date = EXCLUDED.first_leg_date,
    second_leg_date = EXCLUDED.second_leg_date,
    knockout = EXCLUDED.knockout`)
	return execBuilt(ctx, executor(ctx, r.db), "upsert competition rounds", query, args, err)
}

func (r *CompetitionRepository) UpdateParticipation(ctx context.Context, gameID, competitionID string, role competition.Role, participating bool) error {
	query, args, err := qb.Update("competitions").
		Set("role", string(role)).
		Set("participating", participating).
		Where(qb.Eq("game_id", gameID), qb.Eq("id", competitionID)).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "update competition participation id="+competitionID, query, args, err)
}

func (r *CompetitionRepository) DeleteRounds(ctx context.Context, gameID string) error {
	query, args, err := qb.Delete("competition_rounds").Where(qb.Eq("game_id", gameID)).ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "delete competition rounds game="+gameID, query, args, err)
}

func competitionFromRow(row competitionTableModel) (competition.Competition, error) {
	targets, err := decodeJSON[[]competition.QualificationTarget](row.QualificationTargets)
	if err != nil {
		return competition.Competition{}, fmt.Errorf("decode qualification targets competition=%s: %w", row.ID, err)
	}
	return competition.Competition{
		ID:                   row.ID,
		GameID:               row.GameID,
		Name:                 row.Name,
		Format:               competition.Format(row.Format),
		Role:                 competition.Role(row.Role),
		Tier:                 row.Tier,
		Country:              row.Country,
		Participating:        row.Participating,
		PromotesToID:         row.PromotesToID,
		RelegatesToID:        row.RelegatesToID,
		PromotionSpots:       row.PromotionSpots,
		RelegationSpots:      row.RelegationSpots,
		PlayoffFrom:          row.PlayoffFrom,
		PlayoffTo:            row.PlayoffTo,
		KnockoutSeedFrom:     row.KnockoutSeedFrom,
		KnockoutSeedTo:       row.KnockoutSeedTo,
		GroupQualifiers:      row.GroupQualifiers,
		QualificationTargets: targets,
		TwoLeggedKnockout:    row.TwoLeggedKnockout,
		PrizeMoneyPerRound:   row.PrizeMoneyPerRound,
	}, nil
}
