package memory

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/domain/standing"
)

const (
	DemoGameID        = "demo-career"
	DemoSeason        = "2025/26"
	CompetitionTopID  = "eng-tier-1"
	CompetitionLowID  = "eng-tier-2"
	CompetitionCupID  = "eng-cup"
	CompetitionEuroID = "euro-cup"
)

var (
	topTeams     = []string{"ars", "avl", "che", "eve", "liv", "mci", "mun", "new"}
	lowTeams     = []string{"bur", "cov", "hul", "lee", "mid", "nor", "sun", "wat"}
	foreignTeams = []string{"bar", "bay", "int", "psg"}
)

var seedSquad = []struct {
	position player.Position
	count    int
}{
	{player.PositionGoalkeeper, 2},
	{player.PositionDefender, 6},
	{player.PositionMidfielder, 6},
	{player.PositionForward, 4},
}

// SeedCareer builds a demo save: a top league the user plays in, a
// simulated second tier, a domestic cup and a continental group stage.
func SeedCareer(gameID, userID, userTeamID string) SeedData {
	start := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	kickoff := start.AddDate(0, 0, 35)
	week := 7 * 24 * time.Hour
	rng := rand.New(rand.NewPCG(2025, 26))

	data := SeedData{
		Games: []game.Game{{
			ID:            gameID,
			UserID:        userID,
			TeamID:        userTeamID,
			Season:        DemoSeason,
			CompetitionID: CompetitionTopID,
			CurrentDate:   start,
			Budget:        25_000_000,
		}},
		Competitions: []competition.Competition{
			{
				ID: CompetitionTopID, GameID: gameID, Name: "Premier Division", Format: competition.FormatLeague,
				Role: competition.RolePrimary, Tier: 1, Country: "ENG", Participating: true,
				RelegatesToID: CompetitionLowID, RelegationSpots: 2,
				QualificationTargets: []competition.QualificationTarget{{CompetitionID: CompetitionEuroID, FromPosition: 1, ToPosition: 4}},
			},
			{
				ID: CompetitionLowID, GameID: gameID, Name: "Championship", Format: competition.FormatLeague,
				Role: competition.RoleSimulated, Tier: 2, Country: "ENG",
				PromotesToID: CompetitionTopID, PromotionSpots: 2,
			},
			{
				ID: CompetitionCupID, GameID: gameID, Name: "National Cup", Format: competition.FormatKnockoutCup,
				Role: competition.RoleDomesticCup, Country: "ENG", Participating: true, PrizeMoneyPerRound: 500_000,
			},
			{
				ID: CompetitionEuroID, GameID: gameID, Name: "Continental Cup", Format: competition.FormatGroupStageCup,
				Role: competition.RoleContinental, Participating: true, GroupQualifiers: 2,
				TwoLeggedKnockout: true, PrizeMoneyPerRound: 2_000_000,
			},
		},
	}

	for i, teamID := range topTeams {
		data.Entries = append(data.Entries, competition.Entry{GameID: gameID, CompetitionID: CompetitionTopID, TeamID: teamID, Seed: i + 1})
	}
	for i, teamID := range lowTeams {
		data.Entries = append(data.Entries, competition.Entry{GameID: gameID, CompetitionID: CompetitionLowID, TeamID: teamID, Seed: i + 1})
	}
	for i, teamID := range append(append([]string(nil), topTeams...), lowTeams...) {
		data.Entries = append(data.Entries, competition.Entry{GameID: gameID, CompetitionID: CompetitionCupID, TeamID: teamID, Seed: i + 1})
	}
	euro := append(append([]string(nil), topTeams[:4]...), foreignTeams...)
	for i, teamID := range euro {
		group := "A"
		if i%2 == 1 {
			group = "B"
		}
		data.Entries = append(data.Entries, competition.Entry{GameID: gameID, CompetitionID: CompetitionEuroID, TeamID: teamID, GroupLabel: group, Seed: i + 1})
	}

	for _, e := range data.Entries {
		if e.CompetitionID == CompetitionCupID {
			continue
		}
		data.Standings = append(data.Standings, standing.Standing{
			GameID: gameID, CompetitionID: e.CompetitionID, GroupLabel: e.GroupLabel, TeamID: e.TeamID,
		})
	}

	data.Matches = append(data.Matches, seedLeague(gameID, CompetitionTopID, "", topTeams, kickoff, week)...)
	for _, group := range []string{"A", "B"} {
		var teams []string
		for _, e := range data.Entries {
			if e.CompetitionID == CompetitionEuroID && e.GroupLabel == group {
				teams = append(teams, e.TeamID)
			}
		}
		data.Matches = append(data.Matches, seedLeague(gameID, CompetitionEuroID, group, teams, kickoff.AddDate(0, 0, 3), 2*week)...)
	}
	data.Rounds = append(data.Rounds, competition.Round{
		CompetitionID: CompetitionCupID,
		Number:        1,
		Name:          competition.RoundName(16),
		FirstLegDate:  kickoff.AddDate(0, 0, 17),
		Knockout:      true,
	})

	seq := 0
	for _, teamID := range append(append(append([]string(nil), topTeams...), lowTeams...), foreignTeams...) {
		tierAbility := 72
		switch {
		case contains(lowTeams, teamID):
			tierAbility = 60
		case contains(foreignTeams, teamID):
			tierAbility = 76
		}
		for _, slot := range seedSquad {
			for n := 0; n < slot.count; n++ {
				seq++
				id := fmt.Sprintf("p-%s-%03d", teamID, seq)
				data.Players = append(data.Players, player.Generate(gameID, teamID, id, slot.position, tierAbility, start, rng))
			}
		}
	}
	return data
}

func seedLeague(gameID, competitionID, group string, teams []string, start time.Time, interval time.Duration) []match.Match {
	pairings, err := competition.GenerateRoundRobin(teams, start, interval)
	if err != nil {
		return nil
	}
	out := make([]match.Match, 0, len(pairings))
	for i, p := range pairings {
		name := fmt.Sprintf("Matchday %d", p.RoundNumber)
		if group != "" {
			name = fmt.Sprintf("Group %s matchday %d", group, p.RoundNumber)
		}
		out = append(out, match.Match{
			ID:            fmt.Sprintf("m-%s%s-%03d", competitionID, group, i+1),
			GameID:        gameID,
			CompetitionID: competitionID,
			RoundNumber:   p.RoundNumber,
			RoundName:     name,
			HomeTeamID:    p.HomeTeamID,
			AwayTeamID:    p.AwayTeamID,
			ScheduledDate: p.Date,
		})
	}
	return out
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
