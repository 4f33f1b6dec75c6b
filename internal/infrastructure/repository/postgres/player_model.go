package postgres

import "time"

type playerTableModel struct {
	ID                  string     `db:"id"`
	GameID              string     `db:"game_id"`
	TeamID              string     `db:"team_id"`
	ParentTeamID        string     `db:"parent_team_id"`
	Name                string     `db:"name"`
	Position            string     `db:"position"`
	Age                 int        `db:"age"`
	Ability             int        `db:"ability"`
	Potential           int        `db:"potential"`
	Goals               int        `db:"goals"`
	OwnGoals            int        `db:"own_goals"`
	Assists             int        `db:"assists"`
	YellowCards         int        `db:"yellow_cards"`
	RedCards            int        `db:"red_cards"`
	Appearances         int        `db:"appearances"`
	GoalsConceded       int        `db:"goals_conceded"`
	CleanSheets         int        `db:"clean_sheets"`
	InjuryType          string     `db:"injury_type"`
	InjuredUntil        *time.Time `db:"injured_until"`
	InjurySourceMatchID string     `db:"injury_source_match_id"`
	Fitness             int        `db:"fitness"`
	Morale              int        `db:"morale"`
	ContractUntil       time.Time  `db:"contract_until"`
	Wage                int64      `db:"wage"`
	MarketValue         int64      `db:"market_value"`
	RetiringAtSeasonEnd bool       `db:"retiring_at_season_end"`
}

type suspensionTableModel struct {
	GameID           string `db:"game_id"`
	PlayerID         string `db:"player_id"`
	CompetitionID    string `db:"competition_id"`
	MatchesRemaining int    `db:"matches_remaining"`
	SourceMatchID    string `db:"source_match_id"`
}
