package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	qb "github.com/riskibarqy/career-engine/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

var matchSelectColumns = []string{
	"id",
	"game_id",
	"competition_id",
	"round_number",
	"round_name",
	"cup_tie_id",
	"home_team_id",
	"away_team_id",
	"scheduled_date",
	"home_score",
	"away_score",
	"home_score_et",
	"away_score_et",
	"home_penalties",
	"away_penalties",
	"is_extra_time",
	"played",
	"played_at",
	"home_lineup",
	"away_lineup",
	"home_formation",
	"away_formation",
	"home_mentality",
	"away_mentality",
	"home_tactics::text AS home_tactics",
	"away_tactics::text AS away_tactics",
	"substitutions::text AS substitutions",
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) list(ctx context.Context, what string, limit int, conditions ...qb.Condition) ([]match.Match, error) {
	builder := qb.Select(matchSelectColumns...).From("matches").
		Where(conditions...).
		OrderBy("scheduled_date", "id")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select %s query: %w", what, err)
	}

	var rows []matchTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", what, err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		m, err := matchFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *MatchRepository) GetByID(ctx context.Context, gameID, matchID string) (match.Match, bool, error) {
	out, err := r.list(ctx, "match by id", 1, qb.Eq("game_id", gameID), qb.Eq("id", matchID))
	if err != nil || len(out) == 0 {
		return match.Match{}, false, err
	}
	return out[0], true, nil
}

func (r *MatchRepository) GetByIDs(ctx context.Context, gameID string, matchIDs []string) ([]match.Match, error) {
	if len(matchIDs) == 0 {
		return []match.Match{}, nil
	}
	return r.list(ctx, "matches by ids", 0, qb.Eq("game_id", gameID), qb.In("id", stringSliceToAny(matchIDs)))
}

func (r *MatchRepository) FirstUnplayed(ctx context.Context, gameID string) (match.Match, bool, error) {
	out, err := r.list(ctx, "first unplayed match", 1, qb.Eq("game_id", gameID), qb.Expr("played = FALSE"))
	if err != nil || len(out) == 0 {
		return match.Match{}, false, err
	}
	return out[0], true, nil
}

// ListUnplayedOnDate matches on the calendar day of date, in UTC.
func (r *MatchRepository) ListUnplayedOnDate(ctx context.Context, gameID string, date time.Time) ([]match.Match, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	return r.list(ctx, "unplayed matches on date", 0,
		qb.Eq("game_id", gameID),
		qb.Expr("played = FALSE"),
		qb.Expr("scheduled_date >= ?", day),
		qb.Expr("scheduled_date < ?", day.Add(24*time.Hour)),
	)
}

func (r *MatchRepository) ListUnplayedByRound(ctx context.Context, gameID, competitionID string, round int) ([]match.Match, error) {
	return r.list(ctx, "unplayed matches by round", 0,
		qb.Eq("game_id", gameID),
		qb.Eq("competition_id", competitionID),
		qb.Eq("round_number", round),
		qb.Expr("played = FALSE"),
	)
}

func (r *MatchRepository) ListByCompetition(ctx context.Context, gameID, competitionID string) ([]match.Match, error) {
	return r.list(ctx, "matches by competition", 0, qb.Eq("game_id", gameID), qb.Eq("competition_id", competitionID))
}

func (r *MatchRepository) HasUnplayedForTeam(ctx context.Context, gameID, teamID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM matches WHERE game_id = $1 AND played = FALSE AND (home_team_id = $2 OR away_team_id = $2))`
	if err := executor(ctx, r.db).GetContext(ctx, &exists, query, gameID, teamID); err != nil {
		return false, fmt.Errorf("check unplayed matches team=%s: %w", teamID, err)
	}
	return exists, nil
}

func (r *MatchRepository) CountUnplayed(ctx context.Context, gameID string) (int, error) {
	query, args, err := qb.Select("COUNT(1)").From("matches").
		Where(qb.Eq("game_id", gameID), qb.Expr("played = FALSE")).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count unplayed matches query: %w", err)
	}
	var count int
	if err := executor(ctx, r.db).GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count unplayed matches game=%s: %w", gameID, err)
	}
	return count, nil
}

func (r *MatchRepository) InsertBatch(ctx context.Context, matches []match.Match) error {
	if len(matches) == 0 {
		return nil
	}
	rows := make([]matchTableModel, 0, len(matches))
	for _, m := range matches {
		row, err := matchToRow(m)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	query, args, err := qb.InsertModels("matches", rows, "ON CONFLICT (game_id, id) DO NOTHING")
	return execBuilt(ctx, executor(ctx, r.db), "insert matches", query, args, err)
}

func (r *MatchRepository) SaveLineups(ctx context.Context, gameID string, updates []match.LineupUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	bulk := qb.BulkUpdate("matches", "id").
		Columns("home_lineup", "away_lineup", "home_formation", "away_formation",
			"home_mentality", "away_mentality", "home_tactics", "away_tactics", "substitutions").
		Cast("home_lineup", "text[]").
		Cast("away_lineup", "text[]").
		Cast("home_tactics", "jsonb").
		Cast("away_tactics", "jsonb").
		Cast("substitutions", "jsonb").
		Where(qb.Eq("game_id", gameID))
	for _, u := range updates {
		subs, err := encodeJSON(u.Substitutions)
		if err != nil {
			return fmt.Errorf("encode substitutions match=%s: %w", u.MatchID, err)
		}
		bulk.Row(u.MatchID,
			pq.StringArray(nonNilStrings(u.HomeLineup)),
			pq.StringArray(nonNilStrings(u.AwayLineup)),
			u.HomeFormation, u.AwayFormation,
			u.HomeMentality, u.AwayMentality,
			encodeStringMap(u.HomeTactics), encodeStringMap(u.AwayTactics),
			subs,
		)
	}
	query, args, err := bulk.ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "save match lineups", query, args, err)
}

// BulkSaveResults writes every score in one statement. Matches already
// played are skipped, so the returned count can be lower than len(results).
func (r *MatchRepository) BulkSaveResults(ctx context.Context, gameID string, results []match.ResultUpdate, playedAt time.Time) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}
	playedAt = playedAt.UTC()
	bulk := qb.BulkUpdate("matches", "id").
		Columns("home_score", "away_score", "played", "played_at").
		Cast("home_score", "integer").
		Cast("away_score", "integer").
		Cast("played", "boolean").
		Cast("played_at", "timestamptz").
		Where(qb.Eq("game_id", gameID), qb.Expr("played = FALSE"))
	for _, res := range results {
		bulk.Row(res.MatchID, res.HomeScore, res.AwayScore, true, playedAt)
	}
	query, args, err := bulk.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build save match results query: %w", err)
	}
	result, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("save match results game=%s: %w", gameID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read saved match results count: %w", err)
	}
	return int(affected), nil
}

func (r *MatchRepository) SaveExtraTime(ctx context.Context, gameID, matchID string, home, away int) error {
	query, args, err := qb.Update("matches").
		Set("home_score_et", home).
		Set("away_score_et", away).
		Set("is_extra_time", true).
		Where(qb.Eq("game_id", gameID), qb.Eq("id", matchID)).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "save extra time match="+matchID, query, args, err)
}

func (r *MatchRepository) SavePenalties(ctx context.Context, gameID, matchID string, home, away int) error {
	query, args, err := qb.Update("matches").
		Set("home_penalties", home).
		Set("away_penalties", away).
		Where(qb.Eq("game_id", gameID), qb.Eq("id", matchID)).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "save penalties match="+matchID, query, args, err)
}

func (r *MatchRepository) SaveLiveResult(ctx context.Context, m match.Match) error {
	query, args, err := qb.Update("matches").
		Set("home_score", m.HomeScore).
		Set("away_score", m.AwayScore).
		Set("home_score_et", m.HomeScoreET).
		Set("away_score_et", m.AwayScoreET).
		Set("home_penalties", m.HomePenalties).
		Set("away_penalties", m.AwayPenalties).
		Set("is_extra_time", m.IsExtraTime).
		Where(qb.Eq("game_id", m.GameID), qb.Eq("id", m.ID)).
		ToSQL()
	return execBuilt(ctx, executor(ctx, r.db), "save live result match="+m.ID, query, args, err)
}

func (r *MatchRepository) DeleteByGame(ctx context.Context, gameID string) (int, error) {
	return deleteByGame(ctx, executor(ctx, r.db), "matches", gameID)
}

type EventRepository struct {
	db *sqlx.DB
}

var matchEventSelectColumns = []string{
	"seq",
	"id",
	"game_id",
	"match_id",
	"competition_id",
	"team_id",
	"player_id",
	"minute",
	"type",
	"metadata::text AS metadata",
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListByMatch orders by minute, then by insertion.
func (r *EventRepository) ListByMatch(ctx context.Context, gameID, matchID string) ([]match.Event, error) {
	return r.list(ctx, "match events by match", []string{"minute", "seq"},
		qb.Eq("game_id", gameID), qb.Eq("match_id", matchID))
}

func (r *EventRepository) ListByPlayers(ctx context.Context, gameID string, playerIDs []string) ([]match.Event, error) {
	if len(playerIDs) == 0 {
		return []match.Event{}, nil
	}
	return r.list(ctx, "match events by players", []string{"seq"},
		qb.Eq("game_id", gameID), qb.In("player_id", stringSliceToAny(playerIDs)))
}

func (r *EventRepository) list(ctx context.Context, what string, orderBy []string, conditions ...qb.Condition) ([]match.Event, error) {
	query, args, err := qb.Select(matchEventSelectColumns...).From("match_events").
		Where(conditions...).
		OrderBy(orderBy...).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select %s query: %w", what, err)
	}

	var rows []matchEventTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", what, err)
	}
	return eventsFromRows(rows), nil
}

func (r *EventRepository) InsertBatch(ctx context.Context, events []match.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]matchEventInsertModel, 0, len(events))
	for _, e := range events {
		rows = append(rows, matchEventInsertModel{
			ID:            e.ID,
			GameID:        e.GameID,
			MatchID:       e.MatchID,
			CompetitionID: e.CompetitionID,
			TeamID:        e.TeamID,
			PlayerID:      e.PlayerID,
			Minute:        e.Minute,
			Type:          string(e.Type),
			Metadata:      encodeJSONMap(e.Metadata),
		})
	}
	query, args, err := qb.InsertModels("match_events", rows, "")
	return execBuilt(ctx, executor(ctx, r.db), "insert match events", query, args, err)
}

// DeleteAfterMinute removes and returns the events after minute, in
// timeline order.
func (r *EventRepository) DeleteAfterMinute(ctx context.Context, gameID, matchID string, minute int) ([]match.Event, error) {
	query, args, err := qb.Delete("match_events").
		Where(qb.Eq("game_id", gameID), qb.Eq("match_id", matchID), qb.Expr("minute > ?", minute)).
		Suffix("RETURNING " + joinColumns(matchEventSelectColumns)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build delete match events query: %w", err)
	}

	var rows []matchEventTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("delete match events match=%s after=%d: %w", matchID, minute, err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })
	out := eventsFromRows(rows)
	match.SortEvents(out)
	return out, nil
}

func (r *EventRepository) DeleteByGame(ctx context.Context, gameID string) (int, error) {
	return deleteByGame(ctx, executor(ctx, r.db), "match_events", gameID)
}

type CupTieRepository struct {
	db *sqlx.DB
}

var cupTieSelectColumns = []string{
	"id",
	"game_id",
	"competition_id",
	"round_number",
	"home_team_id",
	"away_team_id",
	"first_leg_match_id",
	"second_leg_match_id",
	"winner_id",
	"completed",
	"resolution::text AS resolution",
}

func NewCupTieRepository(db *sqlx.DB) *CupTieRepository {
	return &CupTieRepository{db: db}
}

func (r *CupTieRepository) GetByID(ctx context.Context, gameID, tieID string) (match.CupTie, bool, error) {
	query, args, err := qb.Select(cupTieSelectColumns...).From("cup_ties").
		Where(qb.Eq("game_id", gameID), qb.Eq("id", tieID)).
		ToSQL()
	if err != nil {
		return match.CupTie{}, false, fmt.Errorf("build select cup tie query: %w", err)
	}

	var row cupTieTableModel
	if err := executor(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.CupTie{}, false, nil
		}
		return match.CupTie{}, false, fmt.Errorf("select cup tie id=%s: %w", tieID, err)
	}
	tie, err := cupTieFromRow(row)
	if err != nil {
		return match.CupTie{}, false, err
	}
	return tie, true, nil
}

func (r *CupTieRepository) ListByCompetition(ctx context.Context, gameID, competitionID string) ([]match.CupTie, error) {
	query, args, err := qb.Select(cupTieSelectColumns...).From("cup_ties").
		Where(qb.Eq("game_id", gameID), qb.Eq("competition_id", competitionID)).
		OrderBy("round_number", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select cup ties query: %w", err)
	}

	var rows []cupTieTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select cup ties competition=%s: %w", competitionID, err)
	}

	out := make([]match.CupTie, 0, len(rows))
	for _, row := range rows {
		tie, err := cupTieFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tie)
	}
	return out, nil
}

func (r *CupTieRepository) InsertBatch(ctx context.Context, ties []match.CupTie) error {
	if len(ties) == 0 {
		return nil
	}
	rows := make([]cupTieTableModel, 0, len(ties))
	for _, tie := range ties {
		resolution, err := encodeResolution(tie.Resolution)
		if err != nil {
			return fmt.Errorf("encode cup tie resolution id=%s: %w", tie.ID, err)
		}
		rows = append(rows, cupTieTableModel{
			ID:               tie.ID,
			GameID:           tie.GameID,
			CompetitionID:    tie.CompetitionID,
			RoundNumber:      tie.RoundNumber,
			HomeTeamID:       tie.HomeTeamID,
			AwayTeamID:       tie.AwayTeamID,
			FirstLegMatchID:  tie.FirstLegMatchID,
			SecondLegMatchID: tie.SecondLegMatchID,
			WinnerID:         tie.WinnerID,
			Completed:        tie.Completed,
			Resolution:       resolution,
		})
	}
	query, args, err := qb.InsertModels("cup_ties", rows, "ON CONFLICT (game_id, id) DO NOTHING")
	return execBuilt(ctx, executor(ctx, r.db), "insert cup ties", query, args, err)
}

// Complete records the winner once. It reports false when the tie was
// already completed or does not exist.
func (r *CupTieRepository) Complete(ctx context.Context, tie match.CupTie) (bool, error) {
	resolution, err := encodeResolution(tie.Resolution)
	if err != nil {
		return false, fmt.Errorf("encode cup tie resolution id=%s: %w", tie.ID, err)
	}
	query, args, err := qb.Update("cup_ties").
		Set("winner_id", tie.WinnerID).
		SetExpr("resolution", "?::jsonb", resolution).
		Set("completed", true).
		Where(qb.Eq("game_id", tie.GameID), qb.Eq("id", tie.ID), qb.Expr("completed = FALSE")).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build complete cup tie query: %w", err)
	}
	result, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("complete cup tie id=%s: %w", tie.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read completed cup tie count: %w", err)
	}
	return affected == 1, nil
}

func (r *CupTieRepository) DeleteByGame(ctx context.Context, gameID string) (int, error) {
	return deleteByGame(ctx, executor(ctx, r.db), "cup_ties", gameID)
}

func deleteByGame(ctx context.Context, q querier, table, gameID string) (int, error) {
	query, args, err := qb.Delete(table).Where(qb.Eq("game_id", gameID)).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build delete %s query: %w", table, err)
	}
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s game=%s: %w", table, gameID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read deleted %s count: %w", table, err)
	}
	return int(affected), nil
}

func matchFromRow(row matchTableModel) (match.Match, error) {
	subs, err := decodeJSON[[]match.Substitution](row.Substitutions)
	if err != nil {
		return match.Match{}, fmt.Errorf("decode substitutions match=%s: %w", row.ID, err)
	}
	return match.Match{
		ID:            row.ID,
		GameID:        row.GameID,
		CompetitionID: row.CompetitionID,
		RoundNumber:   row.RoundNumber,
		RoundName:     row.RoundName,
		CupTieID:      row.CupTieID,
		HomeTeamID:    row.HomeTeamID,
		AwayTeamID:    row.AwayTeamID,
		ScheduledDate: row.ScheduledDate.UTC(),
		HomeScore:     row.HomeScore,
		AwayScore:     row.AwayScore,
		HomeScoreET:   row.HomeScoreET,
		AwayScoreET:   row.AwayScoreET,
		HomePenalties: row.HomePenalties,
		AwayPenalties: row.AwayPenalties,
		IsExtraTime:   row.IsExtraTime,
		Played:        row.Played,
		PlayedAt:      utcTime(row.PlayedAt),
		HomeLineup:    emptyToNil(row.HomeLineup),
		AwayLineup:    emptyToNil(row.AwayLineup),
		HomeFormation: row.HomeFormation,
		AwayFormation: row.AwayFormation,
		HomeMentality: row.HomeMentality,
		AwayMentality: row.AwayMentality,
		HomeTactics:   decodeStringMap(row.HomeTactics),
		AwayTactics:   decodeStringMap(row.AwayTactics),
		Substitutions: subs,
	}, nil
}

func matchToRow(m match.Match) (matchTableModel, error) {
	subs, err := encodeJSON(m.Substitutions)
	if err != nil {
		return matchTableModel{}, fmt.Errorf("encode substitutions match=%s: %w", m.ID, err)
	}
	return matchTableModel{
		ID:            m.ID,
		GameID:        m.GameID,
		CompetitionID: m.CompetitionID,
		RoundNumber:   m.RoundNumber,
		RoundName:     m.RoundName,
		CupTieID:      m.CupTieID,
		HomeTeamID:    m.HomeTeamID,
		AwayTeamID:    m.AwayTeamID,
		ScheduledDate: m.ScheduledDate.UTC(),
		HomeScore:     m.HomeScore,
		AwayScore:     m.AwayScore,
		HomeScoreET:   m.HomeScoreET,
		AwayScoreET:   m.AwayScoreET,
		HomePenalties: m.HomePenalties,
		AwayPenalties: m.AwayPenalties,
		IsExtraTime:   m.IsExtraTime,
		Played:        m.Played,
		PlayedAt:      utcTime(m.PlayedAt),
		HomeLineup:    pq.StringArray(nonNilStrings(m.HomeLineup)),
		AwayLineup:    pq.StringArray(nonNilStrings(m.AwayLineup)),
		HomeFormation: m.HomeFormation,
		AwayFormation: m.AwayFormation,
		HomeMentality: m.HomeMentality,
		AwayMentality: m.AwayMentality,
		HomeTactics:   encodeStringMap(m.HomeTactics),
		AwayTactics:   encodeStringMap(m.AwayTactics),
		Substitutions: subs,
	}, nil
}

func eventsFromRows(rows []matchEventTableModel) []match.Event {
	out := make([]match.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, match.Event{
			ID:            row.ID,
			GameID:        row.GameID,
			MatchID:       row.MatchID,
			CompetitionID: row.CompetitionID,
			TeamID:        row.TeamID,
			PlayerID:      row.PlayerID,
			Minute:        row.Minute,
			Type:          match.EventType(row.Type),
			Metadata:      decodeJSONMap(row.Metadata),
		})
	}
	return out
}

func cupTieFromRow(row cupTieTableModel) (match.CupTie, error) {
	tie := match.CupTie{
		ID:               row.ID,
		GameID:           row.GameID,
		CompetitionID:    row.CompetitionID,
		RoundNumber:      row.RoundNumber,
		HomeTeamID:       row.HomeTeamID,
		AwayTeamID:       row.AwayTeamID,
		FirstLegMatchID:  row.FirstLegMatchID,
		SecondLegMatchID: row.SecondLegMatchID,
		WinnerID:         row.WinnerID,
		Completed:        row.Completed,
	}
	if row.Resolution != nil {
		resolution, err := decodeJSON[*match.Resolution](*row.Resolution)
		if err != nil {
			return match.CupTie{}, fmt.Errorf("decode cup tie resolution id=%s: %w", row.ID, err)
		}
		tie.Resolution = resolution
	}
	return tie, nil
}

func encodeResolution(resolution *match.Resolution) (*string, error) {
	if resolution == nil {
		return nil, nil
	}
	raw, err := encodeJSON(resolution)
	if err != nil {
		return nil, err
	}
	return &raw, nil
}
