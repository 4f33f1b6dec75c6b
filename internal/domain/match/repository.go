package match

import (
	"context"
	"time"
)

// ResultUpdate is one regulation result written by the bulk score update.
type ResultUpdate struct {
	MatchID   string
	HomeScore int
	AwayScore int
}

// LineupUpdate stores an auto-selected or user lineup with its tactics.
type LineupUpdate struct {
	MatchID       string
	HomeLineup    []string
	AwayLineup    []string
	HomeFormation string
	AwayFormation string
	HomeMentality string
	AwayMentality string
	HomeTactics   map[string]string
	AwayTactics   map[string]string
	Substitutions []Substitution
}

// LineupUpdateOf captures the lineup fields of m.
func LineupUpdateOf(m Match) LineupUpdate {
	return LineupUpdate{
		MatchID:       m.ID,
		HomeLineup:    m.HomeLineup,
		AwayLineup:    m.AwayLineup,
		HomeFormation: m.HomeFormation,
		AwayFormation: m.AwayFormation,
		HomeMentality: m.HomeMentality,
		AwayMentality: m.AwayMentality,
		HomeTactics:   m.HomeTactics,
		AwayTactics:   m.AwayTactics,
		Substitutions: m.Substitutions,
	}
}

// Repository persists matches.
type Repository interface {
	GetByID(ctx context.Context, gameID, matchID string) (Match, bool, error)
	GetByIDs(ctx context.Context, gameID string, matchIDs []string) ([]Match, error)
	FirstUnplayed(ctx context.Context, gameID string) (Match, bool, error)
	ListUnplayedOnDate(ctx context.Context, gameID string, date time.Time) ([]Match, error)
	ListUnplayedByRound(ctx context.Context, gameID, competitionID string, round int) ([]Match, error)
	ListByCompetition(ctx context.Context, gameID, competitionID string) ([]Match, error)
	HasUnplayedForTeam(ctx context.Context, gameID, teamID string) (bool, error)
	CountUnplayed(ctx context.Context, gameID string) (int, error)
	InsertBatch(ctx context.Context, matches []Match) error
	SaveLineups(ctx context.Context, gameID string, updates []LineupUpdate) error
	// BulkSaveResults writes scores for unplayed matches only and marks them
	// played. It returns the number of rows updated.
	BulkSaveResults(ctx context.Context, gameID string, results []ResultUpdate, playedAt time.Time) (int, error)
	SaveExtraTime(ctx context.Context, gameID, matchID string, home, away int) error
	SavePenalties(ctx context.Context, gameID, matchID string, home, away int) error
	// SaveLiveResult overwrites every score column of a played match with
	// the values carried by m. Nil extra-time or penalty scores clear them.
	SaveLiveResult(ctx context.Context, m Match) error
	DeleteByGame(ctx context.Context, gameID string) (int, error)
}

// EventRepository persists match timelines.
type EventRepository interface {
	ListByMatch(ctx context.Context, gameID, matchID string) ([]Event, error)
	ListByPlayers(ctx context.Context, gameID string, playerIDs []string) ([]Event, error)
	InsertBatch(ctx context.Context, events []Event) error
	// DeleteAfterMinute removes events with Minute > minute and returns them.
	DeleteAfterMinute(ctx context.Context, gameID, matchID string, minute int) ([]Event, error)
	DeleteByGame(ctx context.Context, gameID string) (int, error)
}

// CupTieRepository persists knockout ties.
type CupTieRepository interface {
	GetByID(ctx context.Context, gameID, tieID string) (CupTie, bool, error)
	ListByCompetition(ctx context.Context, gameID, competitionID string) ([]CupTie, error)
	InsertBatch(ctx context.Context, ties []CupTie) error
	// Complete records the resolution only if the tie is still open. It
	// reports whether this call completed it.
	Complete(ctx context.Context, tie CupTie) (bool, error)
	DeleteByGame(ctx context.Context, gameID string) (int, error)
}
