package match

// SimPlayer is the slice of a player the simulator needs.
type SimPlayer struct {
	ID       string
	TeamID   string
	Position string
	Ability  int
	Fitness  int
	Morale   int
}

// SideInput describes one team for the simulator.
type SideInput struct {
	TeamID    string
	Players   []SimPlayer
	Bench     []SimPlayer
	Formation string
	Mentality string
	Tactics   map[string]string
	// EntryMinutes holds the minute each player came on. Starters are absent
	// or zero.
	EntryMinutes map[string]int
}

// SimulationInput is everything needed to simulate a match or part of one.
// FromMinute is exclusive: generated events all have Minute > FromMinute.
type SimulationInput struct {
	MatchID    string
	Home       SideInput
	Away       SideInput
	FromMinute int
	Neutral    bool
}

// SimulationResult is the outcome of a simulated window.
type SimulationResult struct {
	HomeScore int
	AwayScore int
	Events    []Event
}

// PenaltyKick is one attempt in a shootout.
type PenaltyKick struct {
	TeamID   string `json:"team_id"`
	PlayerID string `json:"player_id"`
	Scored   bool   `json:"scored"`
}

type ShootoutResult struct {
	HomeScore int
	AwayScore int
	Kicks     []PenaltyKick
}

// KickerOrder optionally fixes the order of takers per team.
type KickerOrder map[string][]string
