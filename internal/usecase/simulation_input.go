package usecase

import (
	"fmt"
	"sort"

	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/platform/id"
)

// applySubstitutions returns the players on the pitch after the team's
// substitutions, with the minute each replacement came on.
func applySubstitutions(lineup []string, teamID string, subs []match.Substitution) ([]string, map[string]int) {
	out := append([]string(nil), lineup...)
	entry := make(map[string]int)
	ordered := make([]match.Substitution, 0, len(subs))
	for _, sub := range subs {
		if sub.TeamID == teamID {
			ordered = append(ordered, sub)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Minute < ordered[j].Minute })

	for _, sub := range ordered {
		next := out[:0:0]
		for _, playerID := range out {
			if playerID != sub.PlayerOutID {
				next = append(next, playerID)
			}
		}
		if !containsString(next, sub.PlayerInID) {
			next = append(next, sub.PlayerInID)
		}
		out = next
		entry[sub.PlayerInID] = sub.Minute
	}
	return out, entry
}

// dismissedPlayers lists players shown a red card in events.
func dismissedPlayers(events []match.Event) map[string]struct{} {
	out := make(map[string]struct{})
	for _, e := range events {
		if e.Type == match.EventRedCard {
			out[e.PlayerID] = struct{}{}
		}
	}
	return out
}

func withoutPlayers(ids []string, drop map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for _, playerID := range ids {
		if _, ok := drop[playerID]; ok {
			continue
		}
		out = append(out, playerID)
	}
	return out
}

// continuationInput builds the simulator input for the rest of a match that
// already has events up to fromMinute.
func continuationInput(m match.Match, homeLineup, awayLineup []string, squads map[string][]player.Player, played []match.Event, fromMinute int, avail Availability) match.SimulationInput {
	dismissed := dismissedPlayers(played)

	homeIDs, homeEntry := applySubstitutions(homeLineup, m.HomeTeamID, m.Substitutions)
	awayIDs, awayEntry := applySubstitutions(awayLineup, m.AwayTeamID, m.Substitutions)
	homeIDs = withoutPlayers(homeIDs, dismissed)
	awayIDs = withoutPlayers(awayIDs, dismissed)

	home := BuildSide(m.HomeTeamID, homeIDs, m.HomeFormation, m.HomeMentality, m.HomeTactics, squads[m.HomeTeamID], m.CompetitionID, avail)
	home.EntryMinutes = homeEntry
	away := BuildSide(m.AwayTeamID, awayIDs, m.AwayFormation, m.AwayMentality, m.AwayTactics, squads[m.AwayTeamID], m.CompetitionID, avail)
	away.EntryMinutes = awayEntry

	return match.SimulationInput{
		MatchID:    m.ID,
		Home:       home,
		Away:       away,
		FromMinute: fromMinute,
	}
}

// stampEvents gives simulator events their identity inside the save.
func stampEvents(ids id.Generator, g game.Game, m match.Match, events []match.Event) ([]match.Event, error) {
	out := make([]match.Event, len(events))
	for i, e := range events {
		eventID, err := ids.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate event id: %w", err)
		}
		e.ID = eventID
		e.GameID = g.ID
		e.MatchID = m.ID
		e.CompetitionID = m.CompetitionID
		out[i] = e
	}
	return out, nil
}

// aggregateStatDeltas folds events into one delta per player, ordered by
// player id.
func aggregateStatDeltas(events []match.Event) []player.StatDelta {
	byPlayer := make(map[string]*player.StatDelta)
	for _, e := range events {
		if e.PlayerID == "" {
			continue
		}
		d, ok := byPlayer[e.PlayerID]
		if !ok {
			d = &player.StatDelta{PlayerID: e.PlayerID}
			byPlayer[e.PlayerID] = d
		}
		switch e.Type {
		case match.EventGoal:
			d.Goals++
		case match.EventOwnGoal:
			d.OwnGoals++
		case match.EventAssist:
			d.Assists++
		case match.EventYellowCard:
			d.YellowCards++
		case match.EventRedCard:
			d.RedCards++
		}
	}

	out := make([]player.StatDelta, 0, len(byPlayer))
	for _, d := range byPlayer {
		if !d.IsZero() {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// priorYellows reads each carded player's yellow count before the events
// were applied.
func priorYellows(events []match.Event, players map[string]player.Player) map[string]int {
	out := make(map[string]int)
	for _, e := range events {
		if e.Type != match.EventYellowCard {
			continue
		}
		if _, ok := out[e.PlayerID]; ok {
			continue
		}
		out[e.PlayerID] = players[e.PlayerID].YellowCards
	}
	return out
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
