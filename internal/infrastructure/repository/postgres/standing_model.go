package postgres

type standingTableModel struct {
	GameID           string `db:"game_id"`
	CompetitionID    string `db:"competition_id"`
	GroupLabel       string `db:"group_label"`
	TeamID           string `db:"team_id"`
	Position         int    `db:"position"`
	PreviousPosition int    `db:"previous_position"`
	Played           int    `db:"played"`
	Won              int    `db:"won"`
	Drawn            int    `db:"drawn"`
	Lost             int    `db:"lost"`
	GoalsFor         int    `db:"goals_for"`
	GoalsAgainst     int    `db:"goals_against"`
	Points           int    `db:"points"`
	Form             string `db:"form"`
	RowOrder         int    `db:"row_order"`
}
