package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	qb "github.com/riskibarqy/career-engine/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

var playerSelectColumns = []string{
	"id",
	"game_id",
	"team_id",
	"parent_team_id",
	"name",
	"position",
	"age",
	"ability",
	"potential",
	"goals",
	"own_goals",
	"assists",
	"yellow_cards",
	"red_cards",
	"appearances",
	"goals_conceded",
	"clean_sheets",
	"injury_type",
	"injured_until",
	"injury_source_match_id",
	"fitness",
	"morale",
	"contract_until",
	"wage",
	"market_value",
	"retiring_at_season_end",
}

const playerUpsertSuffix = `ON CONFLICT (game_id, id)
DO UPDATE SET
    team_id = EXCLUDED.team_id,
    parent_team_id = EXCLUDED.parent_team_id,
    name = EXCLUDED.name,
    position = EXCLUDED.position,
    age = EXCLUDED.age,
    ability = EXCLUDED.ability,
    potential = EXCLUDED.potential,
    goals = EXCLUDED.goals,
    own_goals = EXCLUDED.own_goals,
    assists = EXCLUDED.assists,
    yellow_cards = EXCLUDED.yellow_cards,
    red_cards = EXCLUDED.red_cards,
    appearances = EXCLUDED.appearances,
    goals_conceded = EXCLUDED.goals_conceded,
    clean_sheets = EXCLUDED.clean_sheets,
    injury_type = EXCLUDED.injury_type,
    injured_until = EXCLUDED.injured_until,
    injury_source_match_id = EXCLUDED.injury_source_match_id,
    fitness = EXCLUDED.fitness,
    morale = EXCLUDED.morale,
    contract_until = EXCLUDED.contract_until,
    wage = EXCLUDED.wage,
    market_value = EXCLUDED.market_value,
    retiring_at_season_end = EXCLUDED.retiring_at_season_end`

// recomputePlayerStatsQuery rebuilds the counters of the given players from
// the events left in the save. Players without events drop to zero.
const recomputePlayerStatsQuery = `
UPDATE game_players AS p SET
    goals = COALESCE(c.goals, 0),
    own_goals = COALESCE(c.own_goals, 0),
    assists = COALESCE(c.assists, 0),
    yellow_cards = COALESCE(c.yellow_cards, 0),
    red_cards = COALESCE(c.red_cards, 0)
FROM unnest($2::text[]) AS ids(player_id)
LEFT JOIN (
    SELECT
        player_id,
        COUNT(*) FILTER (WHERE type = $3) AS goals,
        COUNT(*) FILTER (WHERE type = $4) AS own_goals,
        COUNT(*) FILTER (WHERE type = $5) AS assists,
        COUNT(*) FILTER (WHERE type = $6) AS yellow_cards,
        COUNT(*) FILTER (WHERE type = $7) AS red_cards
    FROM match_events
    WHERE game_id = $1 AND player_id = ANY($2::text[])
    GROUP BY player_id
) AS c ON c.player_id = ids.player_id
WHERE p.game_id = $1 AND p.id = ids.player_id`

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) list(ctx context.Context, what string, conditions ...qb.Condition) ([]player.Player, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("game_players").
		Where(conditions...).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select %s query: %w", what, err)
	}

	var rows []playerTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", what, err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerFromRow(row))
	}
	return out, nil
}

func (r *PlayerRepository) ListByGame(ctx context.Context, gameID string) ([]player.Player, error) {
	return r.list(ctx, "players by game", qb.Eq("game_id", gameID))
}

func (r *PlayerRepository) ListByTeams(ctx context.Context, gameID string, teamIDs []string) ([]player.Player, error) {
	if len(teamIDs) == 0 {
		return []player.Player{}, nil
	}
	return r.list(ctx, "players by teams", qb.Eq("game_id", gameID), qb.In("team_id", stringSliceToAny(teamIDs)))
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, gameID string, playerIDs []string) ([]player.Player, error) {
	if len(playerIDs) == 0 {
		return []player.Player{}, nil
	}
	return r.list(ctx, "players by ids", qb.Eq("game_id", gameID), qb.In("id", stringSliceToAny(playerIDs)))
}

func (r *PlayerRepository) InsertBatch(ctx context.Context, players []player.Player) error {
	return r.SaveBatch(ctx, players)
}

// SaveBatch upserts whole player rows.
func (r *PlayerRepository) SaveBatch(ctx context.Context, players []player.Player) error {
	if len(players) == 0 {
		return nil
	}
	rows := make([]playerTableModel, 0, len(players))
	for _, p := range latestByKey(players, func(p player.Player) string { return p.GameID + "/" + p.ID }) {
		rows = append(rows, playerToRow(p))
	}
	query, args, err := qb.InsertModels("game_players", rows, playerUpsertSuffix)
	return execBuilt(ctx, executor(ctx, r.db), "upsert players", query, args, err)
}

func (r *PlayerRepository) DeleteBatch(ctx context.Context, gameID string, playerIDs []string) error {
	if len(playerIDs) == 0 {
		return nil
	}
	query, args, err := qb.Delete("game_players").
		Where(qb.Eq("game_id", gameID), qb.In("id", stringSliceToAny(playerIDs))).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "delete players", query, args, err)
}

func (r *PlayerRepository) ApplyStatDeltas(ctx context.Context, gameID string, deltas []player.StatDelta) error {
	merged := mergeStatDeltas(deltas)
	if len(merged) == 0 {
		return nil
	}
	bulk := qb.BulkUpdate("game_players", "id").
		Columns("goals", "own_goals", "assists", "yellow_cards", "red_cards").
		Increment("goals", "own_goals", "assists", "yellow_cards", "red_cards").
		Where(qb.Eq("game_id", gameID))
	for _, d := range merged {
		bulk.Row(d.PlayerID, d.Goals, d.OwnGoals, d.Assists, d.YellowCards, d.RedCards)
	}
	query, args, err := bulk.ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "apply player stat deltas", query, args, err)
}

func (r *PlayerRepository) RecomputeStatsFromEvents(ctx context.Context, gameID string, playerIDs []string) error {
	if len(playerIDs) == 0 {
		return nil
	}
	_, err := executor(ctx, r.db).ExecContext(ctx, recomputePlayerStatsQuery,
		gameID,
		pq.Array(playerIDs),
		string(match.EventGoal),
		string(match.EventOwnGoal),
		string(match.EventAssist),
		string(match.EventYellowCard),
		string(match.EventRedCard),
	)
	if err != nil {
		return fmt.Errorf("recompute player stats game=%s: %w", gameID, err)
	}
	return nil
}

func (r *PlayerRepository) IncrementAppearances(ctx context.Context, gameID string, playerIDs []string) error {
	if len(playerIDs) == 0 {
		return nil
	}
	query, args, err := qb.Update("game_players").
		SetExpr("appearances", "appearances + 1").
		Where(qb.Eq("game_id", gameID), qb.In("id", stringSliceToAny(playerIDs))).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "increment player appearances", query, args, err)
}

func (r *PlayerRepository) DecrementAppearances(ctx context.Context, gameID string, playerIDs []string) error {
	if len(playerIDs) == 0 {
		return nil
	}
	query, args, err := qb.Update("game_players").
		SetExpr("appearances", "GREATEST(appearances - 1, 0)").
		Where(qb.Eq("game_id", gameID), qb.In("id", stringSliceToAny(playerIDs))).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "decrement player appearances", query, args, err)
}

func (r *PlayerRepository) UpdateConditions(ctx context.Context, gameID string, updates []player.ConditionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	bulk := qb.BulkUpdate("game_players", "id").
		Columns("fitness", "morale").
		Cast("fitness", "integer").
		Cast("morale", "integer").
		Where(qb.Eq("game_id", gameID))
	for _, u := range latestByKey(updates, func(u player.ConditionUpdate) string { return u.PlayerID }) {
		bulk.Row(u.PlayerID, u.Fitness, u.Morale)
	}
	query, args, err := bulk.ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "update player conditions", query, args, err)
}

func (r *PlayerRepository) ApplyGoalkeeperStats(ctx context.Context, gameID string, deltas []player.GoalkeeperDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	merged := make(map[string]player.GoalkeeperDelta, len(deltas))
	order := make([]string, 0, len(deltas))
	for _, d := range deltas {
		acc, ok := merged[d.PlayerID]
		if !ok {
			order = append(order, d.PlayerID)
		}
		acc.PlayerID = d.PlayerID
		acc.GoalsConceded += d.GoalsConceded
		acc.CleanSheets += d.CleanSheets
		merged[d.PlayerID] = acc
	}
	bulk := qb.BulkUpdate("game_players", "id").
		Columns("goals_conceded", "clean_sheets").
		Increment("goals_conceded", "clean_sheets").
		Where(qb.Eq("game_id", gameID))
	for _, id := range order {
		d := merged[id]
		bulk.Row(id, d.GoalsConceded, d.CleanSheets)
	}
	query, args, err := bulk.ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "apply goalkeeper stats", query, args, err)
}

// UpdateInjuries sets or clears injuries. A nil Until clears the injury.
func (r *PlayerRepository) UpdateInjuries(ctx context.Context, gameID string, updates []player.InjuryUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	bulk := qb.BulkUpdate("game_players", "id").
		Columns("injury_type", "injured_until", "injury_source_match_id").
		Cast("injury_type", "text").
		Cast("injured_until", "timestamptz").
		Cast("injury_source_match_id", "text").
		Where(qb.Eq("game_id", gameID))
	for _, u := range latestByKey(updates, func(u player.InjuryUpdate) string { return u.PlayerID }) {
		if u.Until == nil {
			bulk.Row(u.PlayerID, "", nil, "")
			continue
		}
		bulk.Row(u.PlayerID, u.InjuryType, u.Until.UTC(), u.SourceMatchID)
	}
	query, args, err := bulk.ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "update player injuries", query, args, err)
}

func (r *PlayerRepository) ResetSeasonStats(ctx context.Context, gameID string) error {
	query, args, err := qb.Update("game_players").
		Set("goals", 0).
		Set("own_goals", 0).
		Set("assists", 0).
		Set("yellow_cards", 0).
		Set("red_cards", 0).
		Set("appearances", 0).
		Set("goals_conceded", 0).
		Set("clean_sheets", 0).
		Where(qb.Eq("game_id", gameID)).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "reset player season stats", query, args, err)
}

// mergeStatDeltas folds repeated players together and drops empty deltas.
func mergeStatDeltas(deltas []player.StatDelta) []player.StatDelta {
	index := make(map[string]int, len(deltas))
	out := make([]player.StatDelta, 0, len(deltas))
	for _, d := range deltas {
		i, ok := index[d.PlayerID]
		if !ok {
			index[d.PlayerID] = len(out)
			out = append(out, d)
			continue
		}
		out[i].Goals += d.Goals
		out[i].OwnGoals += d.OwnGoals
		out[i].Assists += d.Assists
		out[i].YellowCards += d.YellowCards
		out[i].RedCards += d.RedCards
	}
	kept := out[:0]
	for _, d := range out {
		if !d.IsZero() {
			kept = append(kept, d)
		}
	}
	return kept
}

type SuspensionRepository struct {
	db *sqlx.DB
}

func NewSuspensionRepository(db *sqlx.DB) *SuspensionRepository {
	return &SuspensionRepository{db: db}
}

func (r *SuspensionRepository) ListActive(ctx context.Context, gameID string, competitionIDs []string) ([]player.Suspension, error) {
	conditions := []qb.Condition{qb.Eq("game_id", gameID), qb.Expr("matches_remaining > 0")}
	if len(competitionIDs) > 0 {
		conditions = append(conditions, qb.In("competition_id", stringSliceToAny(competitionIDs)))
	}
	query, args, err := qb.Select("game_id", "player_id", "competition_id", "matches_remaining", "source_match_id").
		From("suspensions").
		Where(conditions...).
		OrderBy("competition_id", "player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select suspensions query: %w", err)
	}

	var rows []suspensionTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select active suspensions game=%s: %w", gameID, err)
	}

	out := make([]player.Suspension, 0, len(rows))
	for _, row := range rows {
		out = append(out, player.Suspension{
			GameID:           row.GameID,
			PlayerID:         row.PlayerID,
			CompetitionID:    row.CompetitionID,
			MatchesRemaining: row.MatchesRemaining,
			SourceMatchID:    row.SourceMatchID,
		})
	}
	return out, nil
}

// Add stacks a new ban on top of any ban left in the same competition.
func (r *SuspensionRepository) Add(ctx context.Context, suspension player.Suspension) error {
	query, args, err := qb.InsertModel("suspensions", suspensionTableModel{
		GameID:           suspension.GameID,
		PlayerID:         suspension.PlayerID,
		CompetitionID:    suspension.CompetitionID,
		MatchesRemaining: suspension.MatchesRemaining,
		SourceMatchID:    suspension.SourceMatchID,
	}, `ON CONFLICT (game_id, player_id, competition_id)
DO UPDATE SET
    matches_remaining = suspensions.matches_remaining + EXCLUDED.matches_remaining,
    source_match_id = EXCLUDED.source_match_id`)
	return execBuilt(ctx, executor(ctx, r.db), "add suspension player="+suspension.PlayerID, query, args, err)
}

func (r *SuspensionRepository) DecrementBatch(ctx context.Context, gameID string, keys []player.SuspensionKey) error {
	if len(keys) == 0 {
		return nil
	}
	playerIDs := make([]string, 0, len(keys))
	compIDs := make([]string, 0, len(keys))
	for _, k := range keys {
		playerIDs = append(playerIDs, k.PlayerID)
		compIDs = append(compIDs, k.CompetitionID)
	}
	query, args, err := qb.Update("suspensions").
		SetExpr("matches_remaining", "GREATEST(matches_remaining - 1, 0)").
		Where(
			qb.Eq("game_id", gameID),
			qb.Expr("(player_id, competition_id) IN (SELECT * FROM unnest(?::text[], ?::text[]))", pq.Array(playerIDs), pq.Array(compIDs)),
		).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "decrement suspensions", query, args, err)
}

// DeleteBySourceMatch drops bans earned in matchID; an empty playerIDs
// drops all of them.
func (r *SuspensionRepository) DeleteBySourceMatch(ctx context.Context, gameID, matchID string, playerIDs []string) error {
	conditions := []qb.Condition{qb.Eq("game_id", gameID), qb.Eq("source_match_id", matchID)}
	if len(playerIDs) > 0 {
		conditions = append(conditions, qb.In("player_id", stringSliceToAny(playerIDs)))
	}
	query, args, err := qb.Delete("suspensions").Where(conditions...).ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "delete suspensions match="+matchID, query, args, err)
}

func (r *SuspensionRepository) DeleteByGame(ctx context.Context, gameID string) error {
	_, err := deleteByGame(ctx, executor(ctx, r.db), "suspensions", gameID)
	return err
}

func playerFromRow(row playerTableModel) player.Player {
	return player.Player{
		ID:                  row.ID,
		GameID:              row.GameID,
		TeamID:              row.TeamID,
		ParentTeamID:        row.ParentTeamID,
		Name:                row.Name,
		Position:            player.Position(row.Position),
		Age:                 row.Age,
		Ability:             row.Ability,
		Potential:           row.Potential,
		Goals:               row.Goals,
		OwnGoals:            row.OwnGoals,
		Assists:             row.Assists,
		YellowCards:         row.YellowCards,
		RedCards:            row.RedCards,
		Appearances:         row.Appearances,
		GoalsConceded:       row.GoalsConceded,
		CleanSheets:         row.CleanSheets,
		InjuryType:          row.InjuryType,
		InjuredUntil:        utcTime(row.InjuredUntil),
		InjurySourceMatchID: row.InjurySourceMatchID,
		Fitness:             row.Fitness,
		Morale:              row.Morale,
		ContractUntil:       row.ContractUntil.UTC(),
		Wage:                row.Wage,
		MarketValue:         row.MarketValue,
		RetiringAtSeasonEnd: row.RetiringAtSeasonEnd,
	}
}

func playerToRow(p player.Player) playerTableModel {
	return playerTableModel{
		ID:                  p.ID,
		GameID:              p.GameID,
		TeamID:              p.TeamID,
		ParentTeamID:        p.ParentTeamID,
		Name:                p.Name,
		Position:            string(p.Position),
		Age:                 p.Age,
		Ability:             p.Ability,
		Potential:           p.Potential,
		Goals:               p.Goals,
		OwnGoals:            p.OwnGoals,
		Assists:             p.Assists,
		YellowCards:         p.YellowCards,
		RedCards:            p.RedCards,
		Appearances:         p.Appearances,
		GoalsConceded:       p.GoalsConceded,
		CleanSheets:         p.CleanSheets,
		InjuryType:          p.InjuryType,
		InjuredUntil:        utcTime(p.InjuredUntil),
		InjurySourceMatchID: p.InjurySourceMatchID,
		Fitness:             p.Fitness,
		Morale:              p.Morale,
		ContractUntil:       p.ContractUntil.UTC(),
		Wage:                p.Wage,
		MarketValue:         p.MarketValue,
		RetiringAtSeasonEnd: p.RetiringAtSeasonEnd,
	}
}
