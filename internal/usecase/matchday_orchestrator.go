package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/jobscheduler"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/platform/id"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/riskibarqy/career-engine/internal/platform/metrics"
	"github.com/sourcegraph/conc/iter"
	"go.opentelemetry.io/otel/attribute"
)

const CareerActionsJobPath = "/v1/internal/jobs/career-actions"

type AdvanceStatus string

const (
	AdvanceBlocked        AdvanceStatus = "blocked"
	AdvanceLiveMatch      AdvanceStatus = "live_match"
	AdvanceSeasonComplete AdvanceStatus = "season_complete"
)

const (
	BlockCareerActions     = "career_actions_in_progress"
	BlockPendingAction     = "pending_action"
	BlockSeasonTransition  = "season_transition_in_progress"
	trainingInjuryMaxWeeks = 3
)

// AdvanceResult is the outcome of one advance call. Blocked results are not
// errors: the caller shows the reason and retries later.
type AdvanceResult struct {
	Status           AdvanceStatus       `json:"status"`
	BlockReason      string              `json:"block_reason,omitempty"`
	PendingAction    *game.PendingAction `json:"pending_action,omitempty"`
	MatchID          string              `json:"match_id,omitempty"`
	Matchday         int                 `json:"matchday"`
	CurrentDate      time.Time           `json:"current_date"`
	BatchesProcessed int                 `json:"batches_processed"`
	MatchesSimulated int                 `json:"matches_simulated"`
}

// OrchestratorDeps are the collaborators of the matchday orchestrator.
type OrchestratorDeps struct {
	Tx           Transactor
	Games        game.Repository
	Players      player.Repository
	Ties         match.CupTieRepository
	Matchdays    *MatchdayService
	Lineups      *LineupSelector
	Eligibility  *EligibilityService
	Processor    *MatchResultProcessor
	Standings    *StandingsCalculator
	Resolver     *CupTieResolver
	Finalization *MatchFinalizationService
	Notifier     *NotificationService
	Simulator    Simulator
	IDs          id.Generator
	Dispatcher   CareerActionDispatcher
	DispatchRepo jobscheduler.Repository
	Rules        GameplayRules
	Metrics      *metrics.Recorder
	Logger       *logging.Logger
}

// MatchdayOrchestrator advances a save batch by batch until the user's next
// match is ready to watch or the season's fixtures run out.
type MatchdayOrchestrator struct {
	deps   OrchestratorDeps
	rules  GameplayRules
	logger *logging.Logger
	now    func() time.Time
}

func NewMatchdayOrchestrator(deps OrchestratorDeps) *MatchdayOrchestrator {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.IDs == nil {
		deps.IDs = id.NewUUIDGenerator()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = NewNoopCareerActionDispatcher()
	}
	return &MatchdayOrchestrator{
		deps:   deps,
		rules:  deps.Rules.withDefaults(),
		logger: deps.Logger,
		now:    time.Now,
	}
}

// Advance moves the save forward. The save stays locked for the whole call.
func (o *MatchdayOrchestrator) Advance(ctx context.Context, gameID string) (AdvanceResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchdayOrchestrator.Advance", attribute.String("game.id", gameID))
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return AdvanceResult{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	started := o.now()
	var (
		result AdvanceResult
		job    *CareerActionJob
	)
	err := o.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		g, ok, err := o.deps.Games.LockForUpdate(ctx, gameID)
		if err != nil {
			return fmt.Errorf("lock game=%s: %w", gameID, err)
		}
		if !ok {
			return fmt.Errorf("%w: game=%s", ErrNotFound, gameID)
		}

		// a match left unfinalized by an abandoned live view is settled first
		if g.HasPendingFinalization() {
			o.logger.WarnContext(ctx, "finalizing abandoned live match", "game_id", g.ID, "match_id", g.PendingFinalizationMatchID)
			g, err = o.deps.Finalization.finalize(ctx, g)
			if err != nil {
				return fmt.Errorf("finalize abandoned match: %w", err)
			}
		}

		blocked, err := o.checkBlockers(ctx, &g)
		if err != nil {
			return err
		}
		if blocked != nil {
			result = *blocked
			return nil
		}

		result, err = o.run(ctx, &g)
		if err != nil {
			return err
		}
		if result.BatchesProcessed == 0 {
			return nil
		}

		claimedAt := o.now().UTC()
		g.CareerActionsProcessingAt = &claimedAt
		if err := o.deps.Games.Update(ctx, g); err != nil {
			return fmt.Errorf("claim career actions game=%s: %w", g.ID, err)
		}
		job = &CareerActionJob{
			DispatchID: careerDispatchID(g.ID, claimedAt),
			GameID:     g.ID,
			Ticks:      result.BatchesProcessed,
			ClaimedAt:  claimedAt,
		}
		return nil
	})
	if err != nil {
		failSpan(span, err)
		o.deps.Metrics.ObserveAdvance("error", o.now().Sub(started))
		return AdvanceResult{}, err
	}

	if job != nil {
		o.dispatch(ctx, *job)
	}
	o.deps.Metrics.ObserveAdvance(string(result.Status), o.now().Sub(started))
	o.logger.InfoContext(ctx, "advance finished",
		"game_id", gameID,
		"status", result.Status,
		"block_reason", result.BlockReason,
		"match_id", result.MatchID,
		"batches", result.BatchesProcessed,
		"matches", result.MatchesSimulated,
	)
	return result, nil
}

// checkBlockers returns a blocked result when the save cannot advance. A
// stale career claim is cleared on g so the next write persists it.
func (o *MatchdayOrchestrator) checkBlockers(ctx context.Context, g *game.Game) (*AdvanceResult, error) {
	base := AdvanceResult{Status: AdvanceBlocked, Matchday: g.CurrentMatchday, CurrentDate: g.CurrentDate}

	inFlight, stale := g.CareerActionsInFlight(o.now(), o.rules.CareerActionsStaleAfter)
	if stale {
		o.logger.WarnContext(ctx, "clearing stale career actions claim", "game_id", g.ID, "claimed_at", g.CareerActionsProcessingAt)
		g.CareerActionsProcessingAt = nil
		if err := o.deps.Games.Update(ctx, *g); err != nil {
			return nil, fmt.Errorf("clear stale career claim game=%s: %w", g.ID, err)
		}
	}
	if inFlight {
		base.BlockReason = BlockCareerActions
		return &base, nil
	}

	actions, err := o.deps.Games.ListPendingActions(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("list pending actions game=%s: %w", g.ID, err)
	}
	for _, a := range actions {
		if a.ResolvedAt != nil {
			continue
		}
		action := a
		base.BlockReason = BlockPendingAction
		base.PendingAction = &action
		return &base, nil
	}

	if g.SeasonTransitionInProgress() {
		base.BlockReason = BlockSeasonTransition
		return &base, nil
	}
	return nil, nil
}

// run processes batches until the next one would need the user's team again
// or no fixtures are left. The first batch holding the user's match defers
// it; AI-only batches after it are still played.
func (o *MatchdayOrchestrator) run(ctx context.Context, g *game.Game) (AdvanceResult, error) {
	result := AdvanceResult{Matchday: g.CurrentMatchday, CurrentDate: g.CurrentDate}
	if g.SeasonCompletedAt != nil {
		result.Status = AdvanceSeasonComplete
		return result, nil
	}

	pendingCompetition := ""
	for {
		batch, err := o.deps.Matchdays.NextBatch(ctx, *g)
		if err != nil {
			return result, err
		}
		if batch == nil {
			if result.MatchID != "" {
				return result, nil
			}
			completedAt := o.now().UTC()
			g.SeasonCompletedAt = &completedAt
			if err := o.deps.Games.Update(ctx, *g); err != nil {
				return result, fmt.Errorf("mark season complete game=%s: %w", g.ID, err)
			}
			result.Status = AdvanceSeasonComplete
			result.Matchday, result.CurrentDate = g.CurrentMatchday, g.CurrentDate
			return result, nil
		}

		human, hasHuman := batch.HumanMatch(g.TeamID)
		if hasHuman && result.MatchID != "" {
			return result, nil
		}

		if err := o.processBatch(ctx, g, batch, pendingCompetition); err != nil {
			return result, fmt.Errorf("process batch date=%s: %w", batch.CurrentDate.Format(time.DateOnly), err)
		}
		result.BatchesProcessed++
		result.MatchesSimulated += len(batch.Matches)
		result.Matchday, result.CurrentDate = g.CurrentMatchday, g.CurrentDate
		o.deps.Metrics.BatchProcessed(len(batch.Matches))

		if hasHuman {
			result.Status = AdvanceLiveMatch
			result.MatchID = human.ID
			pendingCompetition = human.CompetitionID
		}
	}
}

type simulated struct {
	match  match.Match
	result match.SimulationResult
}

// processBatch simulates and persists one batch. The user's match, if the
// batch holds one, is left pending: its score-dependent effects wait for
// finalization. Progress checks skip pendingCompetition, whose deferred match
// from an earlier batch is not settled yet.
func (o *MatchdayOrchestrator) processBatch(ctx context.Context, g *game.Game, batch *Batch, pendingCompetition string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchdayOrchestrator.processBatch",
		attribute.String("game.id", g.ID),
		attribute.Int("batch.matches", len(batch.Matches)),
		attribute.Int("matchday", batch.Matchday),
	)
	defer span.End()

	previousDate := g.CurrentDate
	players, err := o.loadPlayers(ctx, g.ID, batch.Matches)
	if err != nil {
		return err
	}
	if err := o.recoverFitness(ctx, g.ID, players, previousDate, batch.CurrentDate); err != nil {
		return err
	}

	compIDs := batch.CompetitionIDs()
	for _, compID := range compIDs {
		if err := batch.Handlers[compID].BeforeMatches(ctx, *g, batch.Competitions[compID], batch.CurrentDate); err != nil {
			return fmt.Errorf("before matches competition=%s: %w", compID, err)
		}
	}

	suspended, _, err := o.deps.Eligibility.SuspendedByCompetition(ctx, g.ID, compIDs)
	if err != nil {
		return err
	}
	avail := Availability{Date: batch.CurrentDate, Suspended: suspended}
	squads := squadsByTeam(mapValues(players))
	matches, err := o.deps.Lineups.EnsureLineups(ctx, g.ID, batch.Matches, squads, avail)
	if err != nil {
		return err
	}

	outcomes := iter.Map(matches, func(m *match.Match) simulated {
		in := match.SimulationInput{
			MatchID: m.ID,
			Home:    BuildSide(m.HomeTeamID, m.HomeLineup, m.HomeFormation, m.HomeMentality, m.HomeTactics, squads[m.HomeTeamID], m.CompetitionID, avail),
			Away:    BuildSide(m.AwayTeamID, m.AwayLineup, m.AwayFormation, m.AwayMentality, m.AwayTactics, squads[m.AwayTeamID], m.CompetitionID, avail),
		}
		return simulated{match: *m, result: o.deps.Simulator.Simulate(in)}
	})

	deferredID := ""
	if human, ok := batch.HumanMatch(g.TeamID); ok {
		deferredID = human.ID
	}
	results := make([]MatchResult, 0, len(outcomes))
	for _, out := range outcomes {
		events, err := stampEvents(o.deps.IDs, *g, out.match, out.result.Events)
		if err != nil {
			return err
		}
		results = append(results, MatchResult{
			Match:     out.match,
			HomeScore: out.result.HomeScore,
			AwayScore: out.result.AwayScore,
			Events:    events,
		})
	}

	g.CurrentDate = batch.CurrentDate
	g.CurrentMatchday = batch.Matchday
	if deferredID != "" {
		g.PendingFinalizationMatchID = deferredID
	}
	if err := o.deps.Games.Update(ctx, *g); err != nil {
		return fmt.Errorf("update game before batch effects=%s: %w", g.ID, err)
	}

	processed, err := o.deps.Processor.ProcessAll(ctx, *g, ProcessInput{
		Matchday:        batch.Matchday,
		Date:            batch.CurrentDate,
		Results:         results,
		DeferredMatchID: deferredID,
		Players:         players,
		Competitions:    batch.Competitions,
	})
	if err != nil {
		return err
	}
	if err := o.deps.Standings.RecalculatePositions(ctx, g.ID, processed.StandingCompetitions); err != nil {
		return err
	}

	skipProgress := map[string]struct{}{pendingCompetition: {}}
	if deferredID != "" {
		for _, m := range processed.Matches {
			if m.ID == deferredID {
				skipProgress[m.CompetitionID] = struct{}{}
				if err := o.prepareLiveDecider(ctx, *g, m); err != nil {
					return err
				}
			}
		}
	}

	if err := o.trainingInjuries(ctx, *g, players, processed.Matches, batch.CurrentDate); err != nil {
		return err
	}
	if err := o.conditionNotices(ctx, *g, previousDate, batch); err != nil {
		return err
	}

	for _, compID := range compIDs {
		compMatches := make([]match.Match, 0)
		for _, m := range processed.Matches {
			if m.CompetitionID == compID && m.ID != deferredID {
				compMatches = append(compMatches, m)
			}
		}
		if err := batch.Handlers[compID].AfterMatches(ctx, *g, batch.Competitions[compID], compMatches, players); err != nil {
			return fmt.Errorf("after matches competition=%s: %w", compID, err)
		}
	}
	for _, compID := range compIDs {
		if _, skip := skipProgress[compID]; skip {
			continue
		}
		checker, ok := batch.Handlers[compID].(ProgressChecker)
		if !ok {
			continue
		}
		if err := checker.CheckProgress(ctx, *g, batch.Competitions[compID]); err != nil {
			return fmt.Errorf("check progress competition=%s: %w", compID, err)
		}
	}
	return nil
}

// prepareLiveDecider plays extra time and penalties of the user's cup match
// ahead of time so the live view can show them. The tie itself is completed
// at finalization.
func (o *MatchdayOrchestrator) prepareLiveDecider(ctx context.Context, g game.Game, m match.Match) error {
	if !m.IsCupTie() {
		return nil
	}
	tie, ok, err := o.deps.Ties.GetByID(ctx, g.ID, m.CupTieID)
	if err != nil {
		return fmt.Errorf("get cup tie=%s: %w", m.CupTieID, err)
	}
	if !ok {
		return nil
	}
	return o.deps.Resolver.PlayDecider(ctx, g, tie, false)
}

func (o *MatchdayOrchestrator) loadPlayers(ctx context.Context, gameID string, matches []match.Match) (map[string]player.Player, error) {
	teams := make([]string, 0, len(matches)*2)
	for _, m := range matches {
		teams = append(teams, m.HomeTeamID, m.AwayTeamID)
	}
	list, err := o.deps.Players.ListByTeams(ctx, gameID, uniqueStrings(teams))
	if err != nil {
		return nil, fmt.Errorf("list batch players: %w", err)
	}
	return playersByID(list), nil
}

// recoverFitness restores fitness for the days between batches. players is
// updated in place.
func (o *MatchdayOrchestrator) recoverFitness(ctx context.Context, gameID string, players map[string]player.Player, from, to time.Time) error {
	if from.IsZero() || !to.After(from) {
		return nil
	}
	days := int(to.Sub(from).Hours() / 24)
	if days <= 0 {
		return nil
	}
	gain := days * o.rules.FitnessRecoveryPerDay
	updates := make([]player.ConditionUpdate, 0, len(players))
	for playerID, p := range players {
		if p.Fitness >= player.MaxFitness {
			continue
		}
		p.Fitness = clampInt(p.Fitness+gain, 0, player.MaxFitness)
		players[playerID] = p
		updates = append(updates, player.ConditionUpdate{PlayerID: playerID, Fitness: p.Fitness, Morale: p.Morale})
	}
	if len(updates) == 0 {
		return nil
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].PlayerID < updates[j].PlayerID })
	if err := o.deps.Players.UpdateConditions(ctx, gameID, updates); err != nil {
		return fmt.Errorf("recover fitness: %w", err)
	}
	return nil
}

// trainingInjuries may injure the user's players who sat the batch out.
func (o *MatchdayOrchestrator) trainingInjuries(ctx context.Context, g game.Game, players map[string]player.Player, played []match.Match, date time.Time) error {
	if o.rules.TrainingInjuryChance <= 0 {
		return nil
	}
	featured := make(map[string]struct{})
	for _, playerID := range appearances(played) {
		featured[playerID] = struct{}{}
	}
	squad := make([]player.Player, 0)
	for _, p := range players {
		if p.TeamID != g.TeamID || p.IsInjured(date) {
			continue
		}
		if _, ok := featured[p.ID]; ok {
			continue
		}
		squad = append(squad, p)
	}
	sort.Slice(squad, func(i, j int) bool { return squad[i].ID < squad[j].ID })

	rng := seededRNG(g.ID, date.Format(time.DateOnly), "training")
	updates := make([]player.InjuryUpdate, 0)
	for _, p := range squad {
		if rng.Float64() >= o.rules.TrainingInjuryChance {
			continue
		}
		until := date.AddDate(0, 0, 7*(1+rng.IntN(trainingInjuryMaxWeeks)))
		updates = append(updates, player.InjuryUpdate{PlayerID: p.ID, InjuryType: "training knock", Until: &until})
	}
	if len(updates) == 0 {
		return nil
	}
	if err := o.deps.Players.UpdateInjuries(ctx, g.ID, updates); err != nil {
		return fmt.Errorf("apply training injuries: %w", err)
	}
	if o.deps.Notifier == nil {
		return nil
	}
	for _, u := range updates {
		p := players[u.PlayerID]
		err := o.deps.Notifier.Notify(ctx, g, Message{
			Type:     notification.TypeInjury,
			Title:    p.Name + " injured in training",
			Body:     fmt.Sprintf("%s is out until %s.", p.Name, u.Until.Format(time.DateOnly)),
			Metadata: map[string]any{"player_id": p.ID},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// conditionNotices tells the user about players back from injury and
// players running low on fitness.
func (o *MatchdayOrchestrator) conditionNotices(ctx context.Context, g game.Game, previousDate time.Time, batch *Batch) error {
	if o.deps.Notifier == nil {
		return nil
	}
	squad, err := o.deps.Players.ListByTeams(ctx, g.ID, []string{g.TeamID})
	if err != nil {
		return fmt.Errorf("list user squad: %w", err)
	}
	sort.Slice(squad, func(i, j int) bool { return squad[i].ID < squad[j].ID })
	for _, p := range squad {
		if p.InjuredUntil != nil && p.InjuredUntil.After(previousDate) && !p.InjuredUntil.After(batch.CurrentDate) {
			_, err := o.deps.Notifier.NotifyOnce(ctx, g, Message{
				Type:      notification.TypeRecovery,
				Title:     p.Name + " fit again",
				Body:      fmt.Sprintf("%s has recovered and is available for selection.", p.Name),
				DedupeKey: "recovery:" + p.ID + ":" + p.InjuredUntil.Format(time.DateOnly),
				Metadata:  map[string]any{"player_id": p.ID},
			})
			if err != nil {
				return err
			}
		}
		if p.Fitness < o.rules.LowFitnessThreshold {
			_, err := o.deps.Notifier.NotifyOnce(ctx, g, Message{
				Type:      notification.TypeLowFitness,
				Title:     p.Name + " needs rest",
				Body:      fmt.Sprintf("%s is down to %d%% fitness.", p.Name, p.Fitness),
				Priority:  notification.PriorityLow,
				DedupeKey: fmt.Sprintf("low_fitness:%s:%d", p.ID, batch.Matchday),
				Metadata:  map[string]any{"player_id": p.ID, "fitness": p.Fitness},
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// dispatch hands the claimed career ticks to the background executor. A
// failed hand-off releases the claim so the next advance is not blocked.
func (o *MatchdayOrchestrator) dispatch(ctx context.Context, job CareerActionJob) {
	event := jobscheduler.CareerActionsEvent(job.DispatchID, job.GameID, CareerActionsJobPath, job.Ticks, jobscheduler.StatusSent)
	if err := o.deps.Dispatcher.Dispatch(ctx, job); err != nil {
		o.deps.Metrics.DispatchFailed()
		o.logger.ErrorContext(ctx, "dispatch career actions failed", "game_id", job.GameID, "dispatch_id", job.DispatchID, "error", err)
		if releaseErr := o.deps.Games.ReleaseCareerActions(context.WithoutCancel(ctx), job.GameID, job.ClaimedAt); releaseErr != nil {
			o.logger.ErrorContext(ctx, "release career actions claim failed", "game_id", job.GameID, "error", releaseErr)
		}
		o.recordDispatchEvent(ctx, event.Failed(err))
		return
	}
	o.recordDispatchEvent(ctx, event)
}

func (o *MatchdayOrchestrator) recordDispatchEvent(ctx context.Context, event jobscheduler.DispatchEvent) {
	if o.deps.DispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	event.TraceID, event.SpanID = traceMetaFromContext(ctx)
	if event.OccurredAt.IsZero() {
		event.OccurredAt = o.now().UTC()
	}
	if err := o.deps.DispatchRepo.UpsertEvent(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

var dispatchUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func careerDispatchID(gameID string, claimedAt time.Time) string {
	gameID = dispatchUnsafeChars.ReplaceAllString(strings.TrimSpace(gameID), "-")
	return "career-actions-" + gameID + "-" + claimedAt.UTC().Format("20060102T150405.000000000Z")
}

func mapValues(players map[string]player.Player) []player.Player {
	out := make([]player.Player, 0, len(players))
	for _, p := range players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
