package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/season"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/riskibarqy/career-engine/internal/platform/metrics"
	"go.opentelemetry.io/otel/attribute"
)

// SeasonEndStage is one step of the season rollover. Stages may change the
// save through g and hand results to later stages through the returned
// transition data.
type SeasonEndStage interface {
	Name() string
	Priority() int
	Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error)
}

// SeasonEndInput selects the save to roll over. Force re-runs every stage
// of a transition that failed part way.
type SeasonEndInput struct {
	GameID string
	Force  bool
}

// SeasonEndPipeline runs the stages in ascending priority. Each stage
// commits on its own; a failed stage stops the chain and leaves earlier
// stages applied.
type SeasonEndPipeline struct {
	tx      Transactor
	games   game.Repository
	stages  []SeasonEndStage
	metrics *metrics.Recorder
	logger  *logging.Logger
	now     func() time.Time
}

func NewSeasonEndPipeline(tx Transactor, games game.Repository, stages []SeasonEndStage, recorder *metrics.Recorder, logger *logging.Logger) *SeasonEndPipeline {
	if logger == nil {
		logger = logging.Default()
	}
	ordered := append([]SeasonEndStage(nil), stages...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority() < ordered[j].Priority() })
	return &SeasonEndPipeline{
		tx:      tx,
		games:   games,
		stages:  ordered,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// Stages returns the stage names in execution order.
func (p *SeasonEndPipeline) Stages() []string {
	out := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		out = append(out, s.Name())
	}
	return out
}

func (p *SeasonEndPipeline) Run(ctx context.Context, input SeasonEndInput) (season.TransitionData, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeasonEndPipeline.Run", attribute.String("game.id", input.GameID))
	defer span.End()

	input.GameID = strings.TrimSpace(input.GameID)
	if input.GameID == "" {
		return season.TransitionData{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	data, err := p.begin(ctx, input)
	if err != nil {
		return season.TransitionData{}, err
	}

	log := p.logger.ForGame(input.GameID)
	for _, stage := range p.stages {
		started := p.now()
		err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
			g, ok, err := p.games.LockForUpdate(ctx, input.GameID)
			if err != nil {
				return fmt.Errorf("lock game=%s: %w", input.GameID, err)
			}
			if !ok {
				return fmt.Errorf("%w: game=%s", ErrNotFound, input.GameID)
			}
			next, err := stage.Process(ctx, &g, data)
			if err != nil {
				return err
			}
			if err := p.games.Update(ctx, g); err != nil {
				return fmt.Errorf("update game: %w", err)
			}
			data = next
			return nil
		})
		p.metrics.ObserveStage(stage.Name(), p.now().Sub(started), err)
		if err != nil {
			failSpan(span, err)
			log.ErrorContext(ctx, "season end stage failed", "stage", stage.Name(), "error", err)
			return data, fmt.Errorf("season end stage %s: %w", stage.Name(), err)
		}
		log.InfoContext(ctx, "season end stage done", "stage", stage.Name())
	}

	if err := p.finish(ctx, input.GameID, data); err != nil {
		return data, err
	}
	log.InfoContext(ctx, "season rolled over",
		"old_season", data.OldSeason,
		"new_season", data.NewSeason,
	)
	return data, nil
}

// begin checks the save may roll over and marks the transition started.
func (p *SeasonEndPipeline) begin(ctx context.Context, input SeasonEndInput) (season.TransitionData, error) {
	var data season.TransitionData
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		g, ok, err := p.games.LockForUpdate(ctx, input.GameID)
		if err != nil {
			return fmt.Errorf("lock game=%s: %w", input.GameID, err)
		}
		if !ok {
			return fmt.Errorf("%w: game=%s", ErrNotFound, input.GameID)
		}
		if g.SeasonCompletedAt == nil {
			return fmt.Errorf("%w: season %s still has fixtures to play", ErrConflict, g.Season)
		}
		if g.HasPendingFinalization() {
			return fmt.Errorf("%w: match=%s is waiting for finalization", ErrConflict, g.PendingFinalizationMatchID)
		}
		if g.SeasonTransitionInProgress() && !input.Force {
			return fmt.Errorf("%w: season transition already started at %s", ErrConflict, g.SeasonTransitionStartedAt.Format(time.RFC3339))
		}

		data, err = season.NewTransitionData(g.ID, g.Season, g.CompetitionID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		startedAt := p.now().UTC()
		g.SeasonTransitionStartedAt = &startedAt
		if err := p.games.Update(ctx, g); err != nil {
			return fmt.Errorf("mark season transition game=%s: %w", g.ID, err)
		}
		return nil
	})
	return data, err
}

// finish moves the save into the new season and lifts the transition block.
func (p *SeasonEndPipeline) finish(ctx context.Context, gameID string, data season.TransitionData) error {
	start, err := season.StartDate(data.NewSeason)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return p.tx.WithinTx(ctx, func(ctx context.Context) error {
		g, ok, err := p.games.LockForUpdate(ctx, gameID)
		if err != nil {
			return fmt.Errorf("lock game=%s: %w", gameID, err)
		}
		if !ok {
			return fmt.Errorf("%w: game=%s", ErrNotFound, gameID)
		}
		g.Season = data.NewSeason
		g.CurrentDate = start
		g.CurrentMatchday = 0
		g.SeasonCompletedAt = nil
		g.SeasonTransitionStartedAt = nil
		if err := p.games.Update(ctx, g); err != nil {
			return fmt.Errorf("start season %s game=%s: %w", data.NewSeason, g.ID, err)
		}
		return nil
	})
}
