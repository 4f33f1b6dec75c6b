package postgres

import (
	"time"

	"github.com/lib/pq"
)

type transferOfferTableModel struct {
	ID           string     `db:"id"`
	GameID       string     `db:"game_id"`
	PlayerID     string     `db:"player_id"`
	FromTeamID   string     `db:"from_team_id"`
	ToTeamID     string     `db:"to_team_id"`
	Fee          int64      `db:"fee"`
	Status       string     `db:"status"`
	Incoming     bool       `db:"incoming"`
	ExpiringFlag bool       `db:"expiring_flag"`
	CreatedAt    time.Time  `db:"created_at"`
	RespondAt    *time.Time `db:"respond_at"`
	ExpiresAt    time.Time  `db:"expires_at"`
}

type contractNegotiationTableModel struct {
	ID           string    `db:"id"`
	GameID       string    `db:"game_id"`
	PlayerID     string    `db:"player_id"`
	TeamID       string    `db:"team_id"`
	Kind         string    `db:"kind"`
	OfferedWage  int64     `db:"offered_wage"`
	DemandedWage int64     `db:"demanded_wage"`
	Years        int       `db:"years"`
	Status       string    `db:"status"`
	RespondAt    time.Time `db:"respond_at"`
}

type loanRequestTableModel struct {
	ID         string    `db:"id"`
	GameID     string    `db:"game_id"`
	PlayerID   string    `db:"player_id"`
	FromTeamID string    `db:"from_team_id"`
	ToTeamID   string    `db:"to_team_id"`
	Status     string    `db:"status"`
	RespondAt  time.Time `db:"respond_at"`
}

type loanTableModel struct {
	ID           string    `db:"id"`
	GameID       string    `db:"game_id"`
	PlayerID     string    `db:"player_id"`
	ParentTeamID string    `db:"parent_team_id"`
	LoanTeamID   string    `db:"loan_team_id"`
	StartedAt    time.Time `db:"started_at"`
	Active       bool      `db:"active"`
}

type loanSearchTableModel struct {
	ID             string `db:"id"`
	GameID         string `db:"game_id"`
	PlayerID       string `db:"player_id"`
	WeeksRemaining int    `db:"weeks_remaining"`
	Status         string `db:"status"`
	LoanTeamID     string `db:"loan_team_id"`
}

type scoutingSearchTableModel struct {
	ID              string         `db:"id"`
	GameID          string         `db:"game_id"`
	Position        string         `db:"position"`
	MaxAge          int            `db:"max_age"`
	WeeksTotal      int            `db:"weeks_total"`
	WeeksElapsed    int            `db:"weeks_elapsed"`
	Status          string         `db:"status"`
	ResultPlayerIDs pq.StringArray `db:"result_player_ids"`
}

type academyPlayerTableModel struct {
	ID            string `db:"id"`
	GameID        string `db:"game_id"`
	TeamID        string `db:"team_id"`
	Name          string `db:"name"`
	Position      string `db:"position"`
	Age           int    `db:"age"`
	Ability       int    `db:"ability"`
	Potential     int    `db:"potential"`
	Progress      int    `db:"progress"`
	EvaluationDue bool   `db:"evaluation_due"`
	Status        string `db:"status"`
}
