package match

import (
	"strconv"
	"time"
)

// Match is one fixture between two teams inside a save.
type Match struct {
	ID            string
	GameID        string
	CompetitionID string
	RoundNumber   int
	RoundName     string
	CupTieID      string
	HomeTeamID    string
	AwayTeamID    string
	ScheduledDate time.Time

	HomeScore     *int
	AwayScore     *int
	HomeScoreET   *int
	AwayScoreET   *int
	HomePenalties *int
	AwayPenalties *int
	IsExtraTime   bool
	Played        bool
	PlayedAt      *time.Time

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

// Substitution swaps PlayerOutID for PlayerInID at Minute.
type Substitution struct {
	TeamID      string `json:"team_id" validate:"required"`
	PlayerOutID string `json:"player_out_id" validate:"required"`
	PlayerInID  string `json:"player_in_id" validate:"required"`
	Minute      int    `json:"minute" validate:"gte=0,lte=120"`
}

func (m Match) Involves(teamID string) bool {
	return teamID != "" && (m.HomeTeamID == teamID || m.AwayTeamID == teamID)
}

func (m Match) OpponentOf(teamID string) string {
	switch teamID {
	case m.HomeTeamID:
		return m.AwayTeamID
	case m.AwayTeamID:
		return m.HomeTeamID
	default:
		return ""
	}
}

func (m Match) IsCupTie() bool {
	return m.CupTieID != ""
}

func (m Match) HasLineups() bool {
	return len(m.HomeLineup) > 0 && len(m.AwayLineup) > 0
}

// Score returns the regulation score. Unplayed matches read 0-0.
func (m Match) Score() (int, int) {
	return intValue(m.HomeScore), intValue(m.AwayScore)
}

func (m Match) HasExtraTime() bool {
	return m.HomeScoreET != nil && m.AwayScoreET != nil
}

func (m Match) HasPenalties() bool {
	return m.HomePenalties != nil && m.AwayPenalties != nil
}

// LineupOf returns the lineup of the given side.
func (m Match) LineupOf(teamID string) []string {
	switch teamID {
	case m.HomeTeamID:
		return m.HomeLineup
	case m.AwayTeamID:
		return m.AwayLineup
	default:
		return nil
	}
}

func FormatScore(home, away int) string {
	return strconv.Itoa(home) + "-" + strconv.Itoa(away)
}

func IntPtr(v int) *int {
	return &v
}

func intValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
