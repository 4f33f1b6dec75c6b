package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/jobscheduler"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	matchdayOne = testSeasonStart.AddDate(0, 0, 7)
	matchdayTwo = testSeasonStart.AddDate(0, 0, 14)
)

func acceptingDispatcher() *mockDispatcher {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, mock.AnythingOfType("usecase.CareerActionJob")).Return(nil)
	return d
}

func countNotifications(t *testing.T, h *harness, typ notification.Type) int {
	t.Helper()
	list, err := h.notifications.ListByGame(context.Background(), testGameID, 0)
	require.NoError(t, err)
	n := 0
	for _, item := range list {
		if item.Type == typ {
			n++
		}
	}
	return n
}

func TestMatchdayOrchestrator_DefersOnlyTheUserMatch(t *testing.T) {
	ctx := context.Background()
	teams := []string{testUserTeam}
	for i := 1; i <= 19; i++ {
		teams = append(teams, fmt.Sprintf("t%02d", i))
	}
	data := leagueSave(teams)
	data.Matches = append(data.Matches,
		newFixture("m01", testLeagueID, testUserTeam, "t01", 1, matchdayOne),
		newFixture("r2-01", testLeagueID, "t01", testUserTeam, 2, matchdayTwo),
	)
	aiMatches := make([]string, 0, 9)
	for i := 2; i <= 18; i += 2 {
		matchID := fmt.Sprintf("m%02d", i)
		data.Matches = append(data.Matches, newFixture(matchID, testLeagueID, teams[i], teams[i+1], 1, matchdayOne))
		aiMatches = append(aiMatches, matchID)
	}

	dispatcher := acceptingDispatcher()
	h := newHarness(t, data, dispatcher)
	for i, matchID := range aiMatches {
		home, away := teams[2+2*i], teams[3+2*i]
		h.sim.regular[matchID] = scripted(home, away, goal(home, 30))
	}
	h.sim.regular["m01"] = scripted(testUserTeam, "t01", goal(testUserTeam, 10), goal(testUserTeam, 50), goal("t01", 70))

	result, err := h.orchestrator.Advance(ctx, testGameID)
	require.NoError(t, err)
	assert.Equal(t, AdvanceLiveMatch, result.Status)
	assert.Equal(t, "m01", result.MatchID)
	assert.Equal(t, 1, result.BatchesProcessed)
	assert.Equal(t, 10, result.MatchesSimulated)
	assert.Equal(t, 1, result.Matchday)

	for _, matchID := range append([]string{"m01"}, aiMatches...) {
		assert.True(t, h.match(t, matchID).Played, matchID)
		h.requireScoreMatchesEvents(t, matchID)
	}
	assert.Equal(t, 2, h.player(t, testUserTeam+"-f1").Goals)

	for i := range aiMatches {
		home, away := teams[2+2*i], teams[3+2*i]
		assert.Equal(t, 3, h.standing(t, testLeagueID, home).Points, home)
		assert.Equal(t, 1, h.standing(t, testLeagueID, away).Lost, away)
		assert.Equal(t, 1, h.player(t, home+"-gk").CleanSheets, home)
		assert.Equal(t, 1, h.player(t, away+"-gk").GoalsConceded, away)
	}
	assert.Zero(t, h.standing(t, testLeagueID, testUserTeam).Played)
	assert.Zero(t, h.standing(t, testLeagueID, "t01").Played)
	assert.Zero(t, h.player(t, testUserTeam+"-gk").GoalsConceded)
	assert.Zero(t, countNotifications(t, h, notification.TypeMatchResult))

	g := h.game(t)
	assert.Equal(t, "m01", g.PendingFinalizationMatchID)
	assert.Equal(t, matchdayOne, g.CurrentDate)
	require.NotNil(t, g.CareerActionsProcessingAt)
	dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)

	require.NoError(t, h.finalization.FinalizeMatch(ctx, testGameID, "m01"))
	row := h.standing(t, testLeagueID, testUserTeam)
	assert.Equal(t, 1, row.Played)
	assert.Equal(t, 3, row.Points)
	assert.Equal(t, 2, row.GoalsFor)
	assert.Equal(t, 1, h.player(t, testUserTeam+"-gk").GoalsConceded)
	assert.Equal(t, 1, countNotifications(t, h, notification.TypeMatchResult))
	assert.Empty(t, h.game(t).PendingFinalizationMatchID)

	// finalizing twice changes nothing
	require.NoError(t, h.finalization.FinalizeMatch(ctx, testGameID, "m01"))
	assert.Equal(t, 1, h.standing(t, testLeagueID, testUserTeam).Played)
	assert.Equal(t, 1, countNotifications(t, h, notification.TypeMatchResult))
}

func TestMatchdayOrchestrator_KeepsAtMostOneDeferredMatch(t *testing.T) {
	ctx := context.Background()
	data := leagueSave([]string{testUserTeam, "t01", "t02", "t03"})
	data.Matches = append(data.Matches,
		newFixture("r1-a", testLeagueID, testUserTeam, "t01", 1, matchdayOne),
		newFixture("r1-b", testLeagueID, "t02", "t03", 1, matchdayOne),
		newFixture("r2-a", testLeagueID, "t02", testUserTeam, 2, matchdayTwo),
		newFixture("r2-b", testLeagueID, "t01", "t03", 2, matchdayTwo),
	)

	var h *harness
	dispatcher := &mockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.AnythingOfType("usecase.CareerActionJob")).
		Run(func(args mock.Arguments) {
			job := args.Get(1).(CareerActionJob)
			require.NoError(t, h.games.ReleaseCareerActions(context.Background(), job.GameID, job.ClaimedAt))
		}).
		Return(nil)
	h = newHarness(t, data, dispatcher)
	h.sim.regular["r1-a"] = scripted(testUserTeam, "t01", goal(testUserTeam, 12))
	h.sim.regular["r2-a"] = scripted("t02", testUserTeam, goal(testUserTeam, 80))

	first, err := h.orchestrator.Advance(ctx, testGameID)
	require.NoError(t, err)
	require.Equal(t, AdvanceLiveMatch, first.Status)
	assert.Equal(t, "r1-a", first.MatchID)

	// the abandoned live match is settled before the next one is deferred
	second, err := h.orchestrator.Advance(ctx, testGameID)
	require.NoError(t, err)
	require.Equal(t, AdvanceLiveMatch, second.Status)
	assert.Equal(t, "r2-a", second.MatchID)
	assert.Equal(t, "r2-a", h.game(t).PendingFinalizationMatchID)
	assert.Equal(t, 1, h.standing(t, testLeagueID, testUserTeam).Played)

	third, err := h.orchestrator.Advance(ctx, testGameID)
	require.NoError(t, err)
	assert.Equal(t, AdvanceSeasonComplete, third.Status)
	g := h.game(t)
	assert.Empty(t, g.PendingFinalizationMatchID)
	assert.NotNil(t, g.SeasonCompletedAt)
	assert.Equal(t, 2, h.standing(t, testLeagueID, testUserTeam).Played)
	assert.Equal(t, 6, h.standing(t, testLeagueID, testUserTeam).Points)
	dispatcher.AssertNumberOfCalls(t, "Dispatch", 2)
}

func TestMatchdayOrchestrator_PlaysAIBatchesAfterTheDeferredMatch(t *testing.T) {
	ctx := context.Background()
	data := leagueSave([]string{testUserTeam, "t01", "t02", "t03"})
	data.Matches = append(data.Matches,
		newFixture("r1-a", testLeagueID, testUserTeam, "t01", 1, testSeasonStart.AddDate(0, 0, 1)),
		newFixture("r2-ai", testLeagueID, "t02", "t03", 2, testSeasonStart.AddDate(0, 0, 4)),
		newFixture("r3-a", testLeagueID, "t02", testUserTeam, 3, testSeasonStart.AddDate(0, 0, 8)),
	)

	var sent CareerActionJob
	dispatcher := &mockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.AnythingOfType("usecase.CareerActionJob")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(CareerActionJob) }).
		Return(nil)
	h := newHarness(t, data, dispatcher)
	h.sim.regular["r1-a"] = scripted(testUserTeam, "t01", goal(testUserTeam, 30))
	h.sim.regular["r2-ai"] = scripted("t02", "t03", goal("t03", 44))

	result, err := h.orchestrator.Advance(ctx, testGameID)
	require.NoError(t, err)
	assert.Equal(t, AdvanceLiveMatch, result.Status)
	assert.Equal(t, "r1-a", result.MatchID)
	assert.Equal(t, 2, result.BatchesProcessed)
	assert.Equal(t, 2, result.MatchesSimulated)
	assert.Equal(t, 2, result.Matchday)
	assert.Equal(t, testSeasonStart.AddDate(0, 0, 4), result.CurrentDate)
	assert.Equal(t, 2, sent.Ticks)

	assert.True(t, h.match(t, "r2-ai").Played)
	h.requireScoreMatchesEvents(t, "r2-ai")
	assert.False(t, h.match(t, "r3-a").Played)
	assert.Equal(t, 3, h.standing(t, testLeagueID, "t03").Points)
	assert.Zero(t, h.standing(t, testLeagueID, testUserTeam).Played)

	g := h.game(t)
	assert.Equal(t, "r1-a", g.PendingFinalizationMatchID)
	assert.Nil(t, g.SeasonCompletedAt)

	require.NoError(t, h.finalization.FinalizeMatch(ctx, testGameID, "r1-a"))
	assert.Equal(t, 3, h.standing(t, testLeagueID, testUserTeam).Points)
}

func TestMatchdayOrchestrator_DeferredMatchBeforeSeasonEnd(t *testing.T) {
	ctx := context.Background()
	data := leagueSave([]string{testUserTeam, "t01", "t02", "t03"})
	data.Matches = append(data.Matches,
		newFixture("last-a", testLeagueID, testUserTeam, "t01", 1, matchdayOne),
		newFixture("last-ai", testLeagueID, "t02", "t03", 2, matchdayTwo),
	)
	h := newHarness(t, data, acceptingDispatcher())

	result, err := h.orchestrator.Advance(ctx, testGameID)
	require.NoError(t, err)
	assert.Equal(t, AdvanceLiveMatch, result.Status)
	assert.Equal(t, "last-a", result.MatchID)
	assert.Equal(t, 2, result.BatchesProcessed)
	assert.True(t, h.match(t, "last-ai").Played)

	// the season only ends once the live match is settled
	assert.Nil(t, h.game(t).SeasonCompletedAt)
}

func TestMatchdayOrchestrator_ConcurrentAdvanceDispatchesOnce(t *testing.T) {
	ctx := context.Background()
	data := leagueSave([]string{testUserTeam, "t01", "t02", "t03"})
	data.Matches = append(data.Matches,
		newFixture("ai", testLeagueID, "t02", "t03", 1, matchdayOne),
		newFixture("user", testLeagueID, testUserTeam, "t01", 2, matchdayTwo),
	)
	dispatcher := acceptingDispatcher()
	h := newHarness(t, data, dispatcher)

	var wg sync.WaitGroup
	results := make([]AdvanceResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.orchestrator.Advance(ctx, testGameID)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)

	blocked := 0
	for _, r := range results {
		if r.Status == AdvanceBlocked {
			blocked++
			assert.Equal(t, BlockCareerActions, r.BlockReason)
			continue
		}
		assert.Equal(t, AdvanceLiveMatch, r.Status)
		assert.Equal(t, 2, r.BatchesProcessed)
	}
	assert.Equal(t, 1, blocked)
}

func TestMatchdayOrchestrator_Blockers(t *testing.T) {
	ctx := context.Background()

	t.Run("pending user action", func(t *testing.T) {
		data := leagueSave([]string{testUserTeam, "t01"})
		data.Matches = append(data.Matches, newFixture("m1", testLeagueID, testUserTeam, "t01", 1, matchdayOne))
		data.PendingActions = []game.PendingAction{{
			ID: "pa-1", GameID: testGameID, Type: game.ActionContractDecision, Title: "Renew your striker", CreatedAt: testSeasonStart,
		}}
		h := newHarness(t, data, nil)

		result, err := h.orchestrator.Advance(ctx, testGameID)
		require.NoError(t, err)
		assert.Equal(t, AdvanceBlocked, result.Status)
		assert.Equal(t, BlockPendingAction, result.BlockReason)
		require.NotNil(t, result.PendingAction)
		assert.Equal(t, "pa-1", result.PendingAction.ID)
		assert.False(t, h.match(t, "m1").Played)
	})

	t.Run("career actions in flight", func(t *testing.T) {
		data := leagueSave([]string{testUserTeam, "t01"})
		data.Matches = append(data.Matches, newFixture("m1", testLeagueID, testUserTeam, "t01", 1, matchdayOne))
		claimed := time.Now().Add(-time.Minute)
		data.Games[0].CareerActionsProcessingAt = &claimed
		h := newHarness(t, data, nil)

		result, err := h.orchestrator.Advance(ctx, testGameID)
		require.NoError(t, err)
		assert.Equal(t, AdvanceBlocked, result.Status)
		assert.Equal(t, BlockCareerActions, result.BlockReason)
	})

	t.Run("stale claim is cleared", func(t *testing.T) {
		data := leagueSave([]string{testUserTeam, "t01"})
		data.Matches = append(data.Matches, newFixture("m1", testLeagueID, testUserTeam, "t01", 1, matchdayOne))
		claimed := time.Now().Add(-10 * time.Minute)
		data.Games[0].CareerActionsProcessingAt = &claimed
		h := newHarness(t, data, acceptingDispatcher())

		result, err := h.orchestrator.Advance(ctx, testGameID)
		require.NoError(t, err)
		assert.Equal(t, AdvanceLiveMatch, result.Status)
		g := h.game(t)
		require.NotNil(t, g.CareerActionsProcessingAt)
		assert.True(t, g.CareerActionsProcessingAt.After(claimed))
	})

	t.Run("season transition running", func(t *testing.T) {
		data := leagueSave([]string{testUserTeam, "t01"})
		started := testSeasonStart
		data.Games[0].SeasonTransitionStartedAt = &started
		h := newHarness(t, data, nil)

		result, err := h.orchestrator.Advance(ctx, testGameID)
		require.NoError(t, err)
		assert.Equal(t, AdvanceBlocked, result.Status)
		assert.Equal(t, BlockSeasonTransition, result.BlockReason)
	})

	t.Run("unknown save", func(t *testing.T) {
		h := newHarness(t, leagueSave([]string{testUserTeam}), nil)
		_, err := h.orchestrator.Advance(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMatchdayOrchestrator_SeasonCompleteWithoutDispatch(t *testing.T) {
	dispatcher := &mockDispatcher{}
	h := newHarness(t, leagueSave([]string{testUserTeam, "t01"}), dispatcher)

	result, err := h.orchestrator.Advance(context.Background(), testGameID)
	require.NoError(t, err)
	assert.Equal(t, AdvanceSeasonComplete, result.Status)
	assert.Zero(t, result.BatchesProcessed)
	assert.NotNil(t, h.game(t).SeasonCompletedAt)
	dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestMatchdayOrchestrator_DispatchFailureReleasesClaim(t *testing.T) {
	ctx := context.Background()
	data := leagueSave([]string{testUserTeam, "t01"})
	data.Matches = append(data.Matches, newFixture("m1", testLeagueID, testUserTeam, "t01", 1, matchdayOne))

	var sent CareerActionJob
	dispatcher := &mockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.AnythingOfType("usecase.CareerActionJob")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(CareerActionJob) }).
		Return(errors.New("queue unavailable"))
	h := newHarness(t, data, dispatcher)

	result, err := h.orchestrator.Advance(ctx, testGameID)
	require.NoError(t, err)
	assert.Equal(t, AdvanceLiveMatch, result.Status)
	assert.Nil(t, h.game(t).CareerActionsProcessingAt)

	event, ok, err := h.dispatches.Get(ctx, sent.DispatchID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jobscheduler.StatusFailed, event.Status)
	assert.Equal(t, "queue unavailable", event.ErrorMessage)
	assert.Equal(t, 1, sent.Ticks)
}
