package postgres

import "time"

type gameTableModel struct {
	ID                         string     `db:"id"`
	UserID                     string     `db:"user_id"`
	TeamID                     string     `db:"team_id"`
	Season                     string     `db:"season"`
	CompetitionID              string     `db:"competition_id"`
	GameDate                   time.Time  `db:"game_date"`
	CurrentMatchday            int        `db:"current_matchday"`
	PendingFinalizationMatchID *string    `db:"pending_finalization_match_id"`
	CareerActionsProcessingAt  *time.Time `db:"career_actions_processing_at"`
	SeasonTransitionStartedAt  *time.Time `db:"season_transition_started_at"`
	SeasonCompletedAt          *time.Time `db:"season_completed_at"`
	NeedsOnboarding            bool       `db:"needs_onboarding"`
	Budget                     int64      `db:"budget"`
	UpdatedAt                  time.Time  `db:"updated_at"`
}

type pendingActionTableModel struct {
	ID         string     `db:"id"`
	GameID     string     `db:"game_id"`
	Type       string     `db:"type"`
	Title      string     `db:"title"`
	Payload    string     `db:"payload"`
	CreatedAt  time.Time  `db:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
}
