package usecase

import (
	"context"
	"testing"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processorFor(h *harness) *MatchResultProcessor {
	return NewMatchResultProcessor(h.matches, h.events, h.players, h.suspensions, h.eligibility, h.standings, GameplayRules{}, nil)
}

func resultOf(m match.Match, events ...match.Event) MatchResult {
	for i := range events {
		events[i].ID = m.ID + "-e" + string(rune('a'+i))
		events[i].GameID = testGameID
		events[i].MatchID = m.ID
		events[i].CompetitionID = m.CompetitionID
	}
	home, away := match.ScoreFromEvents(events, m.HomeTeamID, m.AwayTeamID)
	return MatchResult{Match: m, HomeScore: home, AwayScore: away, Events: events}
}

func TestMatchResultProcessor_AppliesBatch(t *testing.T) {
	ctx := context.Background()
	data := leagueSave([]string{testUserTeam, "t01", "t02", "t03"})
	a := newFixture("a", testLeagueID, "t02", "t03", 1, matchdayOne)
	a.HomeLineup, a.AwayLineup = starters("t02"), starters("t03")
	data.Matches = append(data.Matches, a)
	h := newHarness(t, data, nil)

	g := h.game(t)
	players, err := h.players.ListByGame(ctx, testGameID)
	require.NoError(t, err)
	comps := map[string]competition.Competition{testLeagueID: data.Competitions[0]}

	out, err := processorFor(h).ProcessAll(ctx, g, ProcessInput{
		Matchday:     1,
		Date:         matchdayOne,
		Results:      []MatchResult{resultOf(a, goalBy("t02", "t02-f1", 30))},
		Players:      playersByID(players),
		Competitions: comps,
	})
	require.NoError(t, err)
	require.Len(t, out.Matches, 1)
	assert.Equal(t, []string{testLeagueID}, out.StandingCompetitions)

	assert.True(t, h.match(t, "a").Played)
	h.requireScoreMatchesEvents(t, "a")
	assert.Equal(t, 1, h.player(t, "t02-f1").Goals)
	assert.Equal(t, 1, h.player(t, "t02-f1").Appearances)
	assert.Equal(t, 88, h.player(t, "t03-d1").Fitness)
	assert.Equal(t, 3, h.standing(t, testLeagueID, "t02").Points)
	assert.Equal(t, 1, h.player(t, "t02-gk").CleanSheets)
}

func TestMatchResultProcessor_PartialSaveIsConflict(t *testing.T) {
	ctx := context.Background()
	data := leagueSave([]string{testUserTeam, "t01", "t02", "t03"})
	done := newFixture("done", testLeagueID, testUserTeam, "t01", 1, matchdayOne)
	done.Played = true
	done.HomeScore, done.AwayScore = match.IntPtr(0), match.IntPtr(0)
	fresh := newFixture("fresh", testLeagueID, "t02", "t03", 1, matchdayOne)
	fresh.HomeLineup, fresh.AwayLineup = starters("t02"), starters("t03")
	data.Matches = append(data.Matches, done, fresh)
	h := newHarness(t, data, nil)

	g := h.game(t)
	players, err := h.players.ListByGame(ctx, testGameID)
	require.NoError(t, err)
	processor := processorFor(h)

	err = h.store.WithinTx(ctx, func(ctx context.Context) error {
		_, err := processor.ProcessAll(ctx, g, ProcessInput{
			Matchday: 1,
			Date:     matchdayOne,
			Results: []MatchResult{
				resultOf(done, goalBy(testUserTeam, "usr-f1", 10)),
				resultOf(fresh, goalBy("t02", "t02-f1", 30)),
			},
			Players:      playersByID(players),
			Competitions: map[string]competition.Competition{testLeagueID: data.Competitions[0]},
		})
		return err
	})
	require.ErrorIs(t, err, ErrConflict)

	// nothing of the batch survives the rollback
	assert.False(t, h.match(t, "fresh").Played)
	for _, matchID := range []string{"done", "fresh"} {
		events, err := h.events.ListByMatch(ctx, testGameID, matchID)
		require.NoError(t, err)
		assert.Empty(t, events, matchID)
	}
	assert.Zero(t, h.player(t, "usr-f1").Goals)
	assert.Zero(t, h.player(t, "t02-f1").Goals)
	assert.Zero(t, h.standing(t, testLeagueID, "t02").Played)
}
