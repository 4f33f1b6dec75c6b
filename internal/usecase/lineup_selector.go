package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/player"
)

const (
	defaultFormation = "4-4-2"
	defaultMentality = "balanced"
	benchSize        = 7
)

var autoPickSlots = []struct {
	position player.Position
	count    int
}{
	{player.PositionGoalkeeper, 1},
	{player.PositionDefender, 4},
	{player.PositionMidfielder, 4},
	{player.PositionForward, 2},
}

// LineupSelector fills missing lineups with the strongest available eleven.
type LineupSelector struct {
	matches match.Repository
}

func NewLineupSelector(matches match.Repository) *LineupSelector {
	return &LineupSelector{matches: matches}
}

// Availability tells which players may be picked for a match.
type Availability struct {
	Date      time.Time
	Suspended map[string]map[string]bool
}

func (a Availability) available(p player.Player, competitionID string) bool {
	if p.IsInjured(a.Date) {
		return false
	}
	return !a.Suspended[competitionID][p.ID]
}

// EnsureLineups picks lineups for every side that has none, or whose lineup
// names a player who can no longer play, and persists them in one write.
func (s *LineupSelector) EnsureLineups(ctx context.Context, gameID string, matches []match.Match, squads map[string][]player.Player, avail Availability) ([]match.Match, error) {
	out := make([]match.Match, len(matches))
	updates := make([]match.LineupUpdate, 0, len(matches))
	for i, m := range matches {
		changed := false
		if !s.lineupUsable(m.HomeLineup, m.CompetitionID, squads[m.HomeTeamID], avail) {
			m.HomeLineup = AutoPick(squads[m.HomeTeamID], m.CompetitionID, avail)
			changed = true
		}
		if !s.lineupUsable(m.AwayLineup, m.CompetitionID, squads[m.AwayTeamID], avail) {
			m.AwayLineup = AutoPick(squads[m.AwayTeamID], m.CompetitionID, avail)
			changed = true
		}
		if m.HomeFormation == "" {
			m.HomeFormation = defaultFormation
			changed = true
		}
		if m.AwayFormation == "" {
			m.AwayFormation = defaultFormation
			changed = true
		}
		if m.HomeMentality == "" {
			m.HomeMentality = defaultMentality
			changed = true
		}
		if m.AwayMentality == "" {
			m.AwayMentality = defaultMentality
			changed = true
		}
		if changed {
			updates = append(updates, match.LineupUpdateOf(m))
		}
		out[i] = m
	}

	if len(updates) == 0 {
		return out, nil
	}
	if err := s.matches.SaveLineups(ctx, gameID, updates); err != nil {
		return nil, fmt.Errorf("save lineups: %w", err)
	}
	return out, nil
}

func (s *LineupSelector) lineupUsable(lineup []string, competitionID string, squad []player.Player, avail Availability) bool {
	if len(lineup) == 0 {
		return false
	}
	byID := make(map[string]player.Player, len(squad))
	for _, p := range squad {
		byID[p.ID] = p
	}
	for _, playerID := range lineup {
		p, ok := byID[playerID]
		if !ok || !avail.available(p, competitionID) {
			return false
		}
	}
	return true
}

// AutoPick selects a 4-4-2 by ability. Empty slots are filled from the best
// remaining players of any position.
func AutoPick(squad []player.Player, competitionID string, avail Availability) []string {
	pool := make([]player.Player, 0, len(squad))
	for _, p := range squad {
		if avail.available(p, competitionID) {
			pool = append(pool, p)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Ability != pool[j].Ability {
			return pool[i].Ability > pool[j].Ability
		}
		return pool[i].ID < pool[j].ID
	})

	picked := make(map[string]struct{}, 11)
	out := make([]string, 0, 11)
	for _, slot := range autoPickSlots {
		n := 0
		for _, p := range pool {
			if n == slot.count {
				break
			}
			if p.Position != slot.position {
				continue
			}
			if _, ok := picked[p.ID]; ok {
				continue
			}
			picked[p.ID] = struct{}{}
			out = append(out, p.ID)
			n++
		}
	}
	for _, p := range pool {
		if len(out) == 11 {
			break
		}
		if _, ok := picked[p.ID]; ok {
			continue
		}
		picked[p.ID] = struct{}{}
		out = append(out, p.ID)
	}
	return out
}

// BuildSide converts a lineup into simulator input. Players not in the
// lineup but available form the bench.
func BuildSide(teamID string, lineup []string, formation, mentality string, tactics map[string]string, squad []player.Player, competitionID string, avail Availability) match.SideInput {
	byID := make(map[string]player.Player, len(squad))
	for _, p := range squad {
		byID[p.ID] = p
	}
	side := match.SideInput{
		TeamID:    teamID,
		Formation: formation,
		Mentality: mentality,
		Tactics:   tactics,
	}
	inLineup := make(map[string]struct{}, len(lineup))
	for _, playerID := range lineup {
		p, ok := byID[playerID]
		if !ok {
			continue
		}
		inLineup[playerID] = struct{}{}
		side.Players = append(side.Players, toSimPlayer(p, teamID))
	}

	bench := make([]player.Player, 0, len(squad))
	for _, p := range squad {
		if _, ok := inLineup[p.ID]; ok {
			continue
		}
		if avail.available(p, competitionID) {
			bench = append(bench, p)
		}
	}
	sort.SliceStable(bench, func(i, j int) bool { return bench[i].Ability > bench[j].Ability })
	if len(bench) > benchSize {
		bench = bench[:benchSize]
	}
	for _, p := range bench {
		side.Bench = append(side.Bench, toSimPlayer(p, teamID))
	}
	return side
}

func toSimPlayer(p player.Player, teamID string) match.SimPlayer {
	return match.SimPlayer{
		ID:       p.ID,
		TeamID:   teamID,
		Position: string(p.Position),
		Ability:  p.Ability,
		Fitness:  p.Fitness,
		Morale:   p.Morale,
	}
}

// squadsByTeam groups players by their current team.
func squadsByTeam(players []player.Player) map[string][]player.Player {
	out := make(map[string][]player.Player)
	for _, p := range players {
		out[p.TeamID] = append(out[p.TeamID], p)
	}
	return out
}

func playersByID(players []player.Player) map[string]player.Player {
	out := make(map[string]player.Player, len(players))
	for _, p := range players {
		out[p.ID] = p
	}
	return out
}
