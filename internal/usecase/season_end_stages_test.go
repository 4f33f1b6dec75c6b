package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"testing"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/finance"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/matchsim"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/domain/season"
	"github.com/riskibarqy/career-engine/internal/domain/standing"
	"github.com/riskibarqy/career-engine/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/career-engine/internal/platform/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	lowerLeagueID = "lg2"
	continentalID = "cont"
)

// tableByID finishes a simulated league in team id order.
type tableByID struct {
	calls int
}

func (s *tableByID) SimulateLeagueTable(gameID, competitionID string, teams []matchsim.TeamStrength, _ *rand.Rand) []standing.Standing {
	s.calls++
	ids := make([]string, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.TeamID)
	}
	sort.Strings(ids)
	rows := make([]standing.Standing, 0, len(ids))
	for i, teamID := range ids {
		rows = append(rows, standing.Standing{
			GameID:        gameID,
			CompetitionID: competitionID,
			TeamID:        teamID,
			Played:        2 * (len(ids) - 1),
			Points:        3 * (len(ids) - i),
		})
	}
	return standing.Rank(rows)
}

type failingStage struct {
	SeasonEndStage
	err error
}

func (s *failingStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	if s.err != nil {
		return data, s.err
	}
	return s.SeasonEndStage.Process(ctx, g, data)
}

var (
	lastMatchday  = time.Date(2026, time.May, 24, 18, 0, 0, 0, time.UTC)
	nextSeasonDay = time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
)

// finishedSeason is a four-team top flight whose last team goes down to a
// simulated second tier, with the top two qualifying for a continental cup.
func finishedSeason() memory.SeedData {
	data := leagueSave([]string{testUserTeam, "t01", "t02", "t03"})
	g := &data.Games[0]
	g.CurrentDate = lastMatchday
	g.CurrentMatchday = 6
	g.SeasonCompletedAt = &lastMatchday

	top := &data.Competitions[0]
	top.RelegatesToID = lowerLeagueID
	top.RelegationSpots = 1
	top.QualificationTargets = []competition.QualificationTarget{{CompetitionID: continentalID, FromPosition: 1, ToPosition: 2}}
	data.Competitions = append(data.Competitions,
		competition.Competition{
			ID: lowerLeagueID, GameID: testGameID, Name: "Second Tier", Format: competition.FormatLeague,
			Role: competition.RoleSimulated, Tier: 2, PromotesToID: testLeagueID, PromotionSpots: 1,
		},
		competition.Competition{
			ID: continentalID, GameID: testGameID, Name: "Continental Cup", Format: competition.FormatKnockoutCup,
			Role: competition.RoleContinental,
		},
	)

	data.Standings = nil
	for i, row := range []struct {
		teamID string
		points int
	}{{"t01", 9}, {testUserTeam, 6}, {"t02", 3}, {"t03", 0}} {
		data.Standings = append(data.Standings, standing.Standing{
			GameID: testGameID, CompetitionID: testLeagueID, TeamID: row.teamID,
			Position: i + 1, Played: 3, Points: row.points,
		})
	}
	for i, teamID := range []string{"x01", "x02", "x03", "x04"} {
		data.Entries = append(data.Entries, competition.Entry{GameID: testGameID, CompetitionID: lowerLeagueID, TeamID: teamID, Seed: i + 1})
		data.Standings = append(data.Standings, standing.Standing{GameID: testGameID, CompetitionID: lowerLeagueID, TeamID: teamID})
		data.Players = append(data.Players, squad(teamID)...)
	}
	data.Entries = append(data.Entries,
		competition.Entry{GameID: testGameID, CompetitionID: continentalID, TeamID: "f01", Seed: 1},
		competition.Entry{GameID: testGameID, CompetitionID: continentalID, TeamID: "t02", Seed: 2},
	)

	expiring := nextSeasonDay.AddDate(0, 0, -1)
	for i := range data.Players {
		p := &data.Players[i]
		switch p.ID {
		case "usr-s3", "t02-s3":
			p.ContractUntil = expiring
		case "t01-s2":
			p.RetiringAtSeasonEnd = true
		case "usr-f1":
			p.Goals, p.Appearances = 12, 6
		}
	}
	data.Suspensions = []player.Suspension{{GameID: testGameID, PlayerID: "usr-d1", CompetitionID: testLeagueID, MatchesRemaining: 2, SourceMatchID: "old"}}

	old := newFixture("old", testLeagueID, testUserTeam, "t01", 6, lastMatchday)
	old.Played = true
	old.HomeScore, old.AwayScore = match.IntPtr(1), match.IntPtr(0)
	data.Matches = append(data.Matches, old)
	return data
}

func seasonEndDeps(h *harness, seasons SeasonSimulator) StageDeps {
	return StageDeps{
		Competitions: h.competitions,
		Matches:      h.matches,
		Events:       h.events,
		Ties:         h.ties,
		Players:      h.players,
		Suspensions:  h.suspensions,
		Standings:    h.standings,
		Career:       h.careerRepo,
		Archives:     memory.NewArchiveRepository(h.store),
		Finance:      h.finance,
		Notifier:     h.notifier,
		Seasons:      seasons,
		IDs:          id.NewSequenceGenerator("gen"),
		Now:          func() time.Time { return lastMatchday },
	}
}

func entryTeamsOf(t *testing.T, h *harness, competitionID string) []string {
	t.Helper()
	entries, err := h.competitions.ListEntries(context.Background(), testGameID, competitionID)
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.TeamID)
	}
	return out
}

func TestDefaultSeasonEndStages_RollsOverSave(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, finishedSeason(), nil)
	deps := seasonEndDeps(h, &tableByID{})
	pipeline := NewSeasonEndPipeline(h.store, h.games, DefaultSeasonEndStages(deps), nil, nil)

	data, err := pipeline.Run(ctx, SeasonEndInput{GameID: testGameID})
	require.NoError(t, err)

	t.Run("promotion and relegation", func(t *testing.T) {
		assert.Equal(t, []string{"x01"}, data.Strings(season.KeyPromotedTeams))
		assert.Equal(t, []string{"t03"}, data.Strings(season.KeyRelegatedTeams))
		assert.ElementsMatch(t, []string{testUserTeam, "t01", "t02", "x01"}, entryTeamsOf(t, h, testLeagueID))
		assert.ElementsMatch(t, []string{"x02", "x03", "x04", "t03"}, entryTeamsOf(t, h, lowerLeagueID))
	})

	t.Run("fixtures replace last season", func(t *testing.T) {
		// four teams home and away
		assert.Equal(t, 12, data.Int(season.KeyFixturesGenerated))
		assert.Equal(t, 1, data.Int(season.KeyArchivedMatches))
		fixtures, err := h.matches.ListByCompetition(ctx, testGameID, testLeagueID)
		require.NoError(t, err)
		assert.Len(t, fixtures, 12)
		for _, m := range fixtures {
			assert.False(t, m.Played, m.ID)
			assert.True(t, m.ScheduledDate.After(nextSeasonDay), m.ID)
		}
		_, ok, err := h.matches.GetByID(ctx, testGameID, "old")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("stats and suspensions reset", func(t *testing.T) {
		scorer := h.player(t, "usr-f1")
		assert.Zero(t, scorer.Goals)
		assert.Zero(t, scorer.Appearances)
		bans, err := h.suspensions.ListActive(ctx, testGameID, nil)
		require.NoError(t, err)
		assert.Empty(t, bans)
	})

	t.Run("contracts", func(t *testing.T) {
		assert.Equal(t, []string{"usr-s3"}, data.Strings(season.KeyExpiredContracts))
		gone, err := h.players.GetByIDs(ctx, testGameID, []string{"usr-s3"})
		require.NoError(t, err)
		assert.Empty(t, gone)
		assert.True(t, h.player(t, "t02-s3").ContractUntil.After(nextSeasonDay))
		assert.Contains(t, data.Strings(season.KeyRetiredPlayers), "t01-s2")
		assert.Equal(t, 1, countNotifications(t, h, notification.TypeContract))
	})

	t.Run("continental qualification", func(t *testing.T) {
		assert.Equal(t, map[string][]string{continentalID: {"t01", testUserTeam}}, data.Metadata[season.KeyQualifiedTeams])
		assert.Equal(t, []string{"t01", testUserTeam, "f01"}, entryTeamsOf(t, h, continentalID))

		cont, ok, err := h.competitions.GetByID(ctx, testGameID, continentalID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, cont.Participating)

		rounds, err := h.competitions.ListRounds(ctx, testGameID, continentalID)
		require.NoError(t, err)
		require.Len(t, rounds, 1)
		assert.True(t, rounds[0].Knockout)
	})

	t.Run("standings start empty", func(t *testing.T) {
		for _, teamID := range []string{testUserTeam, "t01", "t02", "x01"} {
			row := h.standing(t, testLeagueID, teamID)
			assert.Zero(t, row.Played, teamID)
			assert.Zero(t, row.Points, teamID)
		}
		assert.Zero(t, h.standing(t, lowerLeagueID, "t03").Played)
	})

	t.Run("archive and budget", func(t *testing.T) {
		archives, err := deps.Archives.ListByGame(ctx, testGameID)
		require.NoError(t, err)
		require.Len(t, archives, 1)
		assert.Equal(t, "2025/26", archives[0].Season)
		assert.Equal(t, "t01", archives[0].ChampionID)
		assert.Equal(t, 2, archives[0].UserPosition)
		assert.Equal(t, 2, data.Int(season.KeyUserPosition))

		mine, err := h.players.ListByTeams(ctx, testGameID, []string{testUserTeam})
		require.NoError(t, err)
		var bill int64
		for _, p := range mine {
			bill += p.Wage
		}
		want := finance.Project(2, 1, 4, bill).TransferBudget
		assert.Equal(t, want, data.Metadata[season.KeyBudget])

		snapshots, err := h.finance.Snapshots(ctx, testGameID)
		require.NoError(t, err)
		require.Len(t, snapshots, 1)
		assert.Equal(t, "2026/27", snapshots[0].Season)
		assert.Equal(t, want, h.game(t).Budget)
	})

	t.Run("save moves into the new season", func(t *testing.T) {
		g := h.game(t)
		assert.Equal(t, "2026/27", g.Season)
		assert.Equal(t, nextSeasonDay, g.CurrentDate)
		assert.Zero(t, g.CurrentMatchday)
		assert.Nil(t, g.SeasonCompletedAt)
		assert.Nil(t, g.SeasonTransitionStartedAt)
		assert.True(t, g.NeedsOnboarding)
		assert.Equal(t, testLeagueID, g.CompetitionID)
	})
}

func TestDefaultSeasonEndStages_ForcedRerunAfterFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, finishedSeason(), nil)
	seasons := &tableByID{}

	errBoom := errors.New("fixture store unavailable")
	stages := DefaultSeasonEndStages(seasonEndDeps(h, seasons))
	var broken *failingStage
	for i, s := range stages {
		if s.Name() == StagePrimaryCompetitionInit {
			broken = &failingStage{SeasonEndStage: s, err: errBoom}
			stages[i] = broken
		}
	}
	require.NotNil(t, broken)
	pipeline := NewSeasonEndPipeline(h.store, h.games, stages, nil, nil)

	_, err := pipeline.Run(ctx, SeasonEndInput{GameID: testGameID})
	require.ErrorIs(t, err, errBoom)

	g := h.game(t)
	assert.Equal(t, "2025/26", g.Season)
	require.NotNil(t, g.SeasonTransitionStartedAt)
	// stages before the failure stay applied
	assert.ElementsMatch(t, []string{testUserTeam, "t01", "t02", "x01"}, entryTeamsOf(t, h, testLeagueID))

	_, err = pipeline.Run(ctx, SeasonEndInput{GameID: testGameID})
	require.ErrorIs(t, err, ErrConflict)

	broken.err = nil
	data, err := pipeline.Run(ctx, SeasonEndInput{GameID: testGameID, Force: true})
	require.NoError(t, err)

	assert.Equal(t, 1, seasons.calls, "the second tier keeps its simulated table")
	assert.Equal(t, []string{"x01"}, data.Strings(season.KeyPromotedTeams))
	assert.Equal(t, []string{"t03"}, data.Strings(season.KeyRelegatedTeams))
	assert.ElementsMatch(t, []string{testUserTeam, "t01", "t02", "x01"}, entryTeamsOf(t, h, testLeagueID))
	assert.ElementsMatch(t, []string{"x02", "x03", "x04", "t03"}, entryTeamsOf(t, h, lowerLeagueID))
	assert.Equal(t, 12, data.Int(season.KeyFixturesGenerated))

	fixtures, err := h.matches.ListByCompetition(ctx, testGameID, testLeagueID)
	require.NoError(t, err)
	assert.Len(t, fixtures, 12)

	g = h.game(t)
	assert.Equal(t, "2026/27", g.Season)
	assert.Zero(t, g.CurrentMatchday)
	assert.Nil(t, g.SeasonTransitionStartedAt)
}
