package competition

import "time"

// Format selects the handler that drives a competition's fixture rules.
type Format string

const (
	FormatLeague            Format = "league"
	FormatKnockoutCup       Format = "knockout_cup"
	FormatSwiss             Format = "swiss_format"
	FormatLeagueWithPlayoff Format = "league_with_playoff"
	FormatGroupStageCup     Format = "group_stage_cup"
)

var AllFormats = map[Format]struct{}{
	FormatLeague:            {},
	FormatKnockoutCup:       {},
	FormatSwiss:             {},
	FormatLeagueWithPlayoff: {},
	FormatGroupStageCup:     {},
}

type Role string

const (
	RolePrimary     Role = "primary"
	RoleDomesticCup Role = "domestic_cup"
	RoleContinental Role = "continental"
	// RoleSimulated competitions are not played match by match; their
	// season outcome is simulated at season end.
	RoleSimulated Role = "simulated"
)

// QualificationTarget sends final positions FromPosition..ToPosition of a
// league into another competition next season.
type QualificationTarget struct {
	CompetitionID string `json:"competition_id"`
	FromPosition  int    `json:"from_position"`
	ToPosition    int    `json:"to_position"`
}

// Competition is one tournament inside a save.
type Competition struct {
	ID            string
	GameID        string
	Name          string
	Format        Format
	Role          Role
	Tier          int
	Country       string
	Participating bool

	PromotesToID    string
	RelegatesToID   string
	PromotionSpots  int
	RelegationSpots int

	// PlayoffFrom..PlayoffTo are the league positions seeded into the playoff
	// of a league_with_playoff competition.
	PlayoffFrom int
	PlayoffTo   int

	// KnockoutSeedFrom..KnockoutSeedTo are the league-phase positions seeded
	// into the knockout phase of a swiss_format competition.
	KnockoutSeedFrom int
	KnockoutSeedTo   int

	GroupQualifiers      int
	QualificationTargets []QualificationTarget
	TwoLeggedKnockout    bool
	PrizeMoneyPerRound   int64
}

func (c Competition) IsLeagueLike() bool {
	switch c.Format {
	case FormatLeague, FormatSwiss, FormatLeagueWithPlayoff:
		return true
	default:
		return false
	}
}

func (c Competition) HasKnockoutPhase() bool {
	switch c.Format {
	case FormatKnockoutCup, FormatSwiss, FormatLeagueWithPlayoff, FormatGroupStageCup:
		return true
	default:
		return false
	}
}

// HasStandings reports whether league-phase results feed a table.
func (c Competition) HasStandings() bool {
	return c.Format != FormatKnockoutCup
}

// Round is one scheduled stage of a competition. Knockout rounds may carry a
// second-leg date.
type Round struct {
	CompetitionID string
	Number        int
	Name          string
	FirstLegDate  time.Time
	SecondLegDate *time.Time
	Knockout      bool
}

func (r Round) TwoLegged() bool {
	return r.SecondLegDate != nil
}

// Entry links a team to a competition for a season.
type Entry struct {
	GameID        string
	CompetitionID string
	TeamID        string
	GroupLabel    string
	Seed          int
}
