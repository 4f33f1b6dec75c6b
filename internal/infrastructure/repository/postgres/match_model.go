package postgres

import (
	"time"

	"github.com/lib/pq"
)

type matchTableModel struct {
	ID            string         `db:"id"`
	GameID        string         `db:"game_id"`
	CompetitionID string         `db:"competition_id"`
	RoundNumber   int            `db:"round_number"`
	RoundName     string         `db:"round_name"`
	CupTieID      string         `db:"cup_tie_id"`
	HomeTeamID    string         `db:"home_team_id"`
	AwayTeamID    string         `db:"away_team_id"`
	ScheduledDate time.Time      `db:"scheduled_date"`
	HomeScore     *int           `db:"home_score"`
	AwayScore     *int           `db:"away_score"`
	HomeScoreET   *int           `db:"home_score_et"`
	AwayScoreET   *int           `db:"away_score_et"`
	HomePenalties *int           `db:"home_penalties"`
	AwayPenalties *int           `db:"away_penalties"`
	IsExtraTime   bool           `db:"is_extra_time"`
	Played        bool           `db:"played"`
	PlayedAt      *time.Time     `db:"played_at"`
	HomeLineup    pq.StringArray `db:"home_lineup"`
	AwayLineup    pq.StringArray `db:"away_lineup"`
	HomeFormation string         `db:"home_formation"`
	AwayFormation string         `db:"away_formation"`
	HomeMentality string         `db:"home_mentality"`
	AwayMentality string         `db:"away_mentality"`
	HomeTactics   string         `db:"home_tactics"`
	AwayTactics   string         `db:"away_tactics"`
	Substitutions string         `db:"substitutions"`
}

type matchEventTableModel struct {
	Seq           int64  `db:"seq"`
	ID            string `db:"id"`
	GameID        string `db:"game_id"`
	MatchID       string `db:"match_id"`
	CompetitionID string `db:"competition_id"`
	TeamID        string `db:"team_id"`
	PlayerID      string `db:"player_id"`
	Minute        int    `db:"minute"`
	Type          string `db:"type"`
	Metadata      string `db:"metadata"`
}

type matchEventInsertModel struct {
	ID            string `db:"id"`
	GameID        string `db:"game_id"`
	MatchID       string `db:"match_id"`
	CompetitionID string `db:"competition_id"`
	TeamID        string `db:"team_id"`
	PlayerID      string `db:"player_id"`
	Minute        int    `db:"minute"`
	Type          string `db:"type"`
	Metadata      string `db:"metadata"`
}

type cupTieTableModel struct {
	ID               string  `db:"id"`
	GameID           string  `db:"game_id"`
	CompetitionID    string  `db:"competition_id"`
	RoundNumber      int     `db:"round_number"`
	HomeTeamID       string  `db:"home_team_id"`
	AwayTeamID       string  `db:"away_team_id"`
	FirstLegMatchID  string  `db:"first_leg_match_id"`
	SecondLegMatchID string  `db:"second_leg_match_id"`
	WinnerID         string  `db:"winner_id"`
	Completed        bool    `db:"completed"`
	Resolution       *string `db:"resolution"`
}
