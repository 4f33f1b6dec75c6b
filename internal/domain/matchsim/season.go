package matchsim

import (
	"math/rand/v2"

	"github.com/riskibarqy/career-engine/internal/domain/standing"
)

// TeamStrength is the aggregate rating used for whole-season simulation.
type TeamStrength struct {
	TeamID  string
	Ability float64
}

// SimulateLeagueTable plays a double round robin between the teams on
// aggregate ratings only and returns the ranked final table.
func (s *Simulator) SimulateLeagueTable(gameID, competitionID string, teams []TeamStrength, rng *rand.Rand) []standing.Standing {
	rows := make(map[string]standing.Standing, len(teams))
	for _, t := range teams {
		rows[t.TeamID] = standing.Standing{GameID: gameID, CompetitionID: competitionID, TeamID: t.TeamID}
	}

	for _, home := range teams {
		for _, away := range teams {
			if home.TeamID == away.TeamID {
				continue
			}
			homeRate := s.cfg.HomeGoalRate * s.cfg.HomeAdvantage * ratio(home.Ability, away.Ability)
			awayRate := s.cfg.AwayGoalRate * ratio(away.Ability, home.Ability)
			hg := samplePoisson(rng, homeRate)
			ag := samplePoisson(rng, awayRate)
			for _, d := range standing.DeltasForMatch(home.TeamID, away.TeamID, hg, ag) {
				rows[d.TeamID] = standing.Apply(rows[d.TeamID], d)
			}
		}
	}

	out := make([]standing.Standing, 0, len(rows))
	for _, t := range teams {
		out = append(out, rows[t.TeamID])
	}
	return standing.Rank(out)
}
