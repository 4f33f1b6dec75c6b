package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/season"
	"github.com/riskibarqy/career-engine/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStage struct {
	name     string
	priority int
	log      *[]string
	err      error
}

func (s *recordingStage) Name() string  { return s.name }
func (s *recordingStage) Priority() int { return s.priority }

func (s *recordingStage) Process(_ context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	*s.log = append(*s.log, s.name)
	if s.err != nil {
		return data, s.err
	}
	g.Budget++
	data.Set(s.name, true)
	return data, nil
}

func completedSeasonStore() *memory.Store {
	finished := time.Date(2026, 5, 24, 18, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	store.Load(memory.SeedData{Games: []game.Game{{
		ID:                testGameID,
		TeamID:            testUserTeam,
		Season:            "2025/26",
		CompetitionID:     testLeagueID,
		CurrentDate:       finished,
		CurrentMatchday:   38,
		SeasonCompletedAt: &finished,
	}}})
	return store
}

func TestSeasonEndPipeline_RunsStagesByPriority(t *testing.T) {
	ctx := context.Background()
	store := completedSeasonStore()
	games := memory.NewGameRepository(store)

	var log []string
	pipeline := NewSeasonEndPipeline(store, games, []SeasonEndStage{
		&recordingStage{name: "late", priority: 30, log: &log},
		&recordingStage{name: "first", priority: 10, log: &log},
		&recordingStage{name: "tied-a", priority: 20, log: &log},
		&recordingStage{name: "tied-b", priority: 20, log: &log},
	}, nil, nil)
	assert.Equal(t, []string{"first", "tied-a", "tied-b", "late"}, pipeline.Stages())

	data, err := pipeline.Run(ctx, SeasonEndInput{GameID: testGameID})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "tied-a", "tied-b", "late"}, log)
	assert.Equal(t, "2025/26", data.OldSeason)
	assert.Equal(t, "2026/27", data.NewSeason)
	assert.Len(t, data.Metadata, 4)

	g, _, err := games.GetByID(ctx, testGameID)
	require.NoError(t, err)
	assert.Equal(t, "2026/27", g.Season)
	assert.Equal(t, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), g.CurrentDate)
	assert.Zero(t, g.CurrentMatchday)
	assert.Nil(t, g.SeasonCompletedAt)
	assert.Nil(t, g.SeasonTransitionStartedAt)
	assert.Equal(t, int64(4), g.Budget)
}

func TestSeasonEndPipeline_StopsAtFailedStage(t *testing.T) {
	ctx := context.Background()
	store := completedSeasonStore()
	games := memory.NewGameRepository(store)

	var log []string
	errBoom := errors.New("archive unavailable")
	broken := &recordingStage{name: "archive", priority: 20, log: &log, err: errBoom}
	pipeline := NewSeasonEndPipeline(store, games, []SeasonEndStage{
		&recordingStage{name: "loans", priority: 10, log: &log},
		broken,
		&recordingStage{name: "standings", priority: 30, log: &log},
	}, nil, nil)

	_, err := pipeline.Run(ctx, SeasonEndInput{GameID: testGameID})
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "archive")
	assert.Equal(t, []string{"loans", "archive"}, log)

	g, _, err := games.GetByID(ctx, testGameID)
	require.NoError(t, err)
	assert.Equal(t, "2025/26", g.Season)
	assert.Equal(t, int64(1), g.Budget)
	assert.NotNil(t, g.SeasonTransitionStartedAt)

	t.Run("rerun needs force", func(t *testing.T) {
		broken.err = nil
		_, err := pipeline.Run(ctx, SeasonEndInput{GameID: testGameID})
		require.ErrorIs(t, err, ErrConflict)

		log = nil
		_, err = pipeline.Run(ctx, SeasonEndInput{GameID: testGameID, Force: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"loans", "archive", "standings"}, log)

		g, _, err := games.GetByID(ctx, testGameID)
		require.NoError(t, err)
		assert.Equal(t, "2026/27", g.Season)
		assert.Nil(t, g.SeasonTransitionStartedAt)
	})
}

func TestSeasonEndPipeline_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("season still running", func(t *testing.T) {
		store := memory.NewStore()
		store.Load(memory.SeedData{Games: []game.Game{{ID: testGameID, Season: "2025/26"}}})
		pipeline := NewSeasonEndPipeline(store, memory.NewGameRepository(store), nil, nil, nil)
		_, err := pipeline.Run(ctx, SeasonEndInput{GameID: testGameID})
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("match awaiting finalization", func(t *testing.T) {
		store := completedSeasonStore()
		games := memory.NewGameRepository(store)
		g, _, _ := games.GetByID(ctx, testGameID)
		g.PendingFinalizationMatchID = "m38"
		require.NoError(t, games.Update(ctx, g))

		pipeline := NewSeasonEndPipeline(store, games, nil, nil, nil)
		_, err := pipeline.Run(ctx, SeasonEndInput{GameID: testGameID})
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown save", func(t *testing.T) {
		store := memory.NewStore()
		pipeline := NewSeasonEndPipeline(store, memory.NewGameRepository(store), nil, nil, nil)
		_, err := pipeline.Run(ctx, SeasonEndInput{GameID: "missing"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("blank id", func(t *testing.T) {
		store := memory.NewStore()
		pipeline := NewSeasonEndPipeline(store, memory.NewGameRepository(store), nil, nil, nil)
		_, err := pipeline.Run(ctx, SeasonEndInput{GameID: "  "})
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestDefaultSeasonEndStages_Order(t *testing.T) {
	pipeline := NewSeasonEndPipeline(nil, nil, DefaultSeasonEndStages(StageDeps{}), nil, nil)
	assert.Equal(t, []string{
		StageLoanReturn,
		StageSeasonArchive,
		StageContractExpiration,
		StageSquadReplenishment,
		StagePlayerRetirement,
		StagePlayerDevelopment,
		StageStatsReset,
		StageScoutDataReset,
		StageSeasonSimulation,
		StagePromotionRelegation,
		StagePrimaryCompetitionInit,
		StageStandingsReset,
		StageContinentalQualification,
		StageSecondaryCompetitionInit,
		StageBudgetProjection,
		StageOnboardingReset,
	}, pipeline.Stages())
}
