package player

import (
	"fmt"
	"time"
)

// Position represents the broad role a player fills on the pitch.
type Position string

const (
	PositionGoalkeeper Position = "GK"
	PositionDefender   Position = "DEF"
	PositionMidfielder Position = "MID"
	PositionForward    Position = "FWD"
)

var AllPositions = map[Position]struct{}{
	PositionGoalkeeper: {},
	PositionDefender:   {},
	PositionMidfielder: {},
	PositionForward:    {},
}

// Player is a footballer as it exists inside one save.
type Player struct {
	ID           string
	GameID       string
	TeamID       string
	ParentTeamID string
	Name         string
	Position     Position
	Age          int
	Ability      int
	Potential    int

	Goals         int
	OwnGoals      int
	Assists       int
	YellowCards   int
	RedCards      int
	Appearances   int
	GoalsConceded int
	CleanSheets   int

	InjuryType          string
	InjuredUntil        *time.Time
	InjurySourceMatchID string

	Fitness int
	Morale  int

	ContractUntil       time.Time
	Wage                int64
	MarketValue         int64
	RetiringAtSeasonEnd bool
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.GameID == "" {
		return fmt.Errorf("player game id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if _, ok := AllPositions[p.Position]; !ok {
		return fmt.Errorf("invalid player position: %s", p.Position)
	}
	return nil
}

func (p Player) IsInjured(on time.Time) bool {
	return p.InjuredUntil != nil && p.InjuredUntil.After(on)
}

func (p Player) IsGoalkeeper() bool {
	return p.Position == PositionGoalkeeper
}

func (p Player) OnLoan() bool {
	return p.ParentTeamID != "" && p.ParentTeamID != p.TeamID
}

// Suspension counts the matches a player still has to sit out in one
// competition. MatchesRemaining never goes below zero.
type Suspension struct {
	GameID           string
	PlayerID         string
	CompetitionID    string
	MatchesRemaining int
	SourceMatchID    string
}

type SuspensionKey struct {
	PlayerID      string
	CompetitionID string
}

// StatDelta is an aggregated change to a player's cumulative season stats.
type StatDelta struct {
	PlayerID    string
	Goals       int
	OwnGoals    int
	Assists     int
	YellowCards int
	RedCards    int
}

func (d StatDelta) IsZero() bool {
	return d.Goals == 0 && d.OwnGoals == 0 && d.Assists == 0 && d.YellowCards == 0 && d.RedCards == 0
}

// ConditionUpdate sets post-match fitness and morale.
type ConditionUpdate struct {
	PlayerID string
	Fitness  int
	Morale   int
}

// GoalkeeperDelta is an aggregated change to a keeper's record.
type GoalkeeperDelta struct {
	PlayerID      string
	GoalsConceded int
	CleanSheets   int
}

// InjuryUpdate sets or clears an injury. A nil Until clears it.
type InjuryUpdate struct {
	PlayerID      string
	InjuryType    string
	Until         *time.Time
	SourceMatchID string
}
