package matchsim

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSide(teamID string, ability int) match.SideInput {
	positions := []string{"GK", "DEF", "DEF", "DEF", "DEF", "MID", "MID", "MID", "MID", "FWD", "FWD"}
	players := make([]match.SimPlayer, 0, len(positions))
	for i, pos := range positions {
		players = append(players, match.SimPlayer{
			ID:       teamID + "-p" + strconv.Itoa(i),
			TeamID:   teamID,
			Position: pos,
			Ability:  ability,
			Fitness:  90,
			Morale:   70,
		})
	}
	return match.SideInput{TeamID: teamID, Players: players, Formation: "4-4-2", Mentality: "balanced"}
}

func TestSimulate_ScoreMatchesGoalEvents(t *testing.T) {
	t.Parallel()

	sim := New(DefaultConfig())
	for i := 0; i < 50; i++ {
		in := match.SimulationInput{
			MatchID: "m" + strconv.Itoa(i),
			Home:    testSide("home", 60+i%20),
			Away:    testSide("away", 70-i%15),
		}
		res := sim.Simulate(in)
		home, away := match.ScoreFromEvents(res.Events, "home", "away")
		require.Equal(t, home, res.HomeScore, "match %s", in.MatchID)
		require.Equal(t, away, res.AwayScore, "match %s", in.MatchID)
		for j := 1; j < len(res.Events); j++ {
			require.LessOrEqual(t, res.Events[j-1].Minute, res.Events[j].Minute)
		}
		for _, e := range res.Events {
			require.GreaterOrEqual(t, e.Minute, 1)
			require.LessOrEqual(t, e.Minute, match.RegulationMinutes)
		}
	}
}

func TestSimulateRemainder_IsDeterministicAndAfterMinute(t *testing.T) {
	t.Parallel()

	sim := New(DefaultConfig())
	in := match.SimulationInput{MatchID: "m1", Home: testSide("home", 70), Away: testSide("away", 68)}

	first := sim.SimulateRemainder(in, 60)
	second := sim.SimulateRemainder(in, 60)
	assert.Equal(t, first, second)
	for _, e := range first.Events {
		assert.Greater(t, e.Minute, 60)
		assert.LessOrEqual(t, e.Minute, match.RegulationMinutes)
	}

	assert.Empty(t, sim.SimulateRemainder(in, 90).Events)
}

func TestSimulateRemainder_RespectsEntryMinutes(t *testing.T) {
	t.Parallel()

	sim := New(DefaultConfig())
	home := testSide("home", 75)
	home.EntryMinutes = map[string]int{"home-p10": 85}
	in := match.SimulationInput{MatchID: "entry", Home: home, Away: testSide("away", 60)}

	for _, e := range sim.SimulateRemainder(in, 30).Events {
		if e.PlayerID == "home-p10" {
			assert.Greater(t, e.Minute, 85)
		}
	}
}

func TestSimulateExtraTime_StaysInsideExtraTime(t *testing.T) {
	t.Parallel()

	sim := New(DefaultConfig())
	in := match.SimulationInput{MatchID: "et", Home: testSide("home", 70), Away: testSide("away", 70)}
	res := sim.SimulateExtraTime(in)
	for _, e := range res.Events {
		assert.Greater(t, e.Minute, match.RegulationMinutes)
		assert.LessOrEqual(t, e.Minute, match.ExtraTimeMinutes)
	}

	in.FromMinute = 120
	assert.Empty(t, sim.SimulateExtraTime(in).Events)
}

func TestSimulatePenaltyShootout_AlwaysHasWinner(t *testing.T) {
	t.Parallel()

	sim := New(DefaultConfig())
	for i := 0; i < 30; i++ {
		home := testSide("home"+strconv.Itoa(i), 60+i)
		away := testSide("away"+strconv.Itoa(i), 80-i)
		res := sim.SimulatePenaltyShootout(home, away, nil)
		assert.NotEqual(t, res.HomeScore, res.AwayScore)

		scored := map[string]int{}
		for _, k := range res.Kicks {
			if k.Scored {
				scored[k.TeamID]++
			}
		}
		assert.Equal(t, res.HomeScore, scored[home.TeamID])
		assert.Equal(t, res.AwayScore, scored[away.TeamID])
	}
}

func TestKickers_PreferredOrderFirstGoalkeeperLast(t *testing.T) {
	t.Parallel()

	side := testSide("t", 60)
	side.Players[0].Ability = 99 // the keeper
	out := kickers(side, []string{"t-p5", "t-p9"})
	require.Len(t, out, len(side.Players))
	assert.Equal(t, "t-p5", out[0].ID)
	assert.Equal(t, "t-p9", out[1].ID)
	assert.Equal(t, "GK", out[len(out)-1].Position)
}

func TestSimulateLeagueTable_RanksEveryTeam(t *testing.T) {
	t.Parallel()

	sim := New(DefaultConfig())
	teams := []TeamStrength{{TeamID: "a", Ability: 80}, {TeamID: "b", Ability: 60}, {TeamID: "c", Ability: 55}, {TeamID: "d", Ability: 50}}
	table := sim.SimulateLeagueTable("g", "c1", teams, rand.New(rand.NewPCG(1, 2)))
	require.Len(t, table, 4)
	for i, row := range table {
		assert.Equal(t, i+1, row.Position)
		assert.Equal(t, 6, row.Played)
	}
}
