package postgres

import "time"

type competitionTableModel struct {
	ID                   string `db:"id"`
	GameID               string `db:"game_id"`
	Name                 string `db:"name"`
	Format               string `db:"format"`
	Role                 string `db:"role"`
	Tier                 int    `db:"tier"`
	Country              string `db:"country"`
	Participating        bool   `db:"participating"`
	PromotesToID         string `db:"promotes_to_id"`
	RelegatesToID        string `db:"relegates_to_id"`
	PromotionSpots       int    `db:"promotion_spots"`
	RelegationSpots      int    `db:"relegation_spots"`
	PlayoffFrom          int    `db:"playoff_from"`
	PlayoffTo            int    `db:"playoff_to"`
	KnockoutSeedFrom     int    `db:"knockout_seed_from"`
	KnockoutSeedTo       int    `db:"knockout_seed_to"`
	GroupQualifiers      int    `db:"group_qualifiers"`
	QualificationTargets string `db:"qualification_targets"`
	TwoLeggedKnockout    bool   `db:"two_legged_knockout"`
	PrizeMoneyPerRound   int64  `db:"prize_money_per_round"`
}

type competitionRoundTableModel struct {
	GameID        string     `db:"game_id"`
	CompetitionID string     `db:"competition_id"`
	Number        int        `db:"number"`
	Name          string     `db:"name"`
	FirstLegDate  time.Time  `db:"first_leg_date"`
	SecondLegDate *time.Time `db:"second_leg_date"`
	Knockout      bool       `db:"knockout"`
}

type competitionEntryTableModel struct {
	GameID        string `db:"game_id"`
	CompetitionID string `db:"competition_id"`
	TeamID        string `db:"team_id"`
	GroupLabel    string `db:"group_label"`
	Seed          int    `db:"seed"`
	EntryOrder    int    `db:"entry_order"`
}
