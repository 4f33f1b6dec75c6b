package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const (
	minimumMatchFitness = 30
	moraleSwing         = 5
)

// MatchResult is one simulated match ready to be persisted. Events are
// already stamped with ids.
type MatchResult struct {
	Match     match.Match
	HomeScore int
	AwayScore int
	Events    []match.Event
}

// ProcessInput is one batch of results.
type ProcessInput struct {
	Matchday        int
	Date            time.Time
	Results         []MatchResult
	DeferredMatchID string
	// Players holds every player of the involved teams as loaded before the
	// batch.
	Players      map[string]player.Player
	Competitions map[string]competition.Competition
}

// ProcessOutput reports what the batch changed.
type ProcessOutput struct {
	Matches              []match.Match
	StandingCompetitions []string
	SuspensionsServed    int
}

// MatchResultProcessor is the bulk write path for a batch. Its round trips
// do not grow with the number of matches, apart from card processing.
type MatchResultProcessor struct {
	matches     match.Repository
	events      match.EventRepository
	players     player.Repository
	suspensions player.SuspensionRepository
	eligibility *EligibilityService
	standings   *StandingsCalculator
	rules       GameplayRules
	logger      *logging.Logger
	now         func() time.Time
}

func NewMatchResultProcessor(
	matches match.Repository,
	events match.EventRepository,
	players player.Repository,
	suspensions player.SuspensionRepository,
	eligibility *EligibilityService,
	standings *StandingsCalculator,
	rules GameplayRules,
	logger *logging.Logger,
) *MatchResultProcessor {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchResultProcessor{
		matches:     matches,
		events:      events,
		players:     players,
		suspensions: suspensions,
		eligibility: eligibility,
		standings:   standings,
		rules:       rules.withDefaults(),
		logger:      logger,
		now:         time.Now,
	}
}

// ProcessAll persists a batch in the fixed order: scores, events, stats,
// suspensions, cards and injuries, appearances, conditions, goalkeeper stats
// and standings. The deferred match gets no standings or goalkeeper effects
// and its card and injury notifications are held back.
func (p *MatchResultProcessor) ProcessAll(ctx context.Context, g game.Game, in ProcessInput) (ProcessOutput, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchResultProcessor.ProcessAll",
		attribute.String("game.id", g.ID),
		attribute.Int("batch.matches", len(in.Results)),
	)
	defer span.End()

	if len(in.Results) == 0 {
		return ProcessOutput{}, nil
	}

	playedAt := p.now().UTC()
	updates := make([]match.ResultUpdate, 0, len(in.Results))
	allEvents := make([]match.Event, 0, len(in.Results)*8)
	played := make([]match.Match, 0, len(in.Results))
	for _, r := range in.Results {
		updates = append(updates, match.ResultUpdate{MatchID: r.Match.ID, HomeScore: r.HomeScore, AwayScore: r.AwayScore})
		allEvents = append(allEvents, r.Events...)

		m := r.Match
		m.HomeScore = match.IntPtr(r.HomeScore)
		m.AwayScore = match.IntPtr(r.AwayScore)
		m.Played = true
		m.PlayedAt = &playedAt
		played = append(played, m)
	}

	updated, err := p.matches.BulkSaveResults(ctx, g.ID, updates, playedAt)
	if err != nil {
		return ProcessOutput{}, fmt.Errorf("bulk save results: %w", err)
	}
	if updated != len(updates) {
		p.logger.WarnContext(ctx, "batch matches already played",
			"game_id", g.ID,
			"expected", len(updates),
			"updated", updated,
		)
		return ProcessOutput{}, fmt.Errorf("%w: %d of %d batch results were already saved", ErrConflict, len(updates)-updated, len(updates))
	}

	if len(allEvents) > 0 {
		if err := p.events.InsertBatch(ctx, allEvents); err != nil {
			return ProcessOutput{}, fmt.Errorf("bulk insert events: %w", err)
		}
	}

	if deltas := aggregateStatDeltas(allEvents); len(deltas) > 0 {
		if err := p.players.ApplyStatDeltas(ctx, g.ID, deltas); err != nil {
			return ProcessOutput{}, fmt.Errorf("apply stat deltas: %w", err)
		}
	}

	served, err := p.serveSuspensions(ctx, g, played, in.Players)
	if err != nil {
		return ProcessOutput{}, err
	}

	for _, r := range in.Results {
		notify := r.Match.ID != in.DeferredMatchID
		err := p.eligibility.ProcessCards(ctx, g, CardInput{
			Match:        r.Match,
			Events:       r.Events,
			PriorYellows: priorYellows(r.Events, in.Players),
			Notify:       notify,
		}, in.Players)
		if err != nil {
			return ProcessOutput{}, fmt.Errorf("process cards match=%s: %w", r.Match.ID, err)
		}
		if err := p.eligibility.ApplyInjuries(ctx, g, r.Events, in.Date, in.Players, notify); err != nil {
			return ProcessOutput{}, fmt.Errorf("process injuries match=%s: %w", r.Match.ID, err)
		}
	}

	appeared := appearances(played)
	if len(appeared) > 0 {
		if err := p.players.IncrementAppearances(ctx, g.ID, appeared); err != nil {
			return ProcessOutput{}, fmt.Errorf("increment appearances: %w", err)
		}
	}

	if conditions := p.conditions(played, in.Players); len(conditions) > 0 {
		if err := p.players.UpdateConditions(ctx, g.ID, conditions); err != nil {
			return ProcessOutput{}, fmt.Errorf("update conditions: %w", err)
		}
	}

	settled := make([]match.Match, 0, len(played))
	for _, m := range played {
		if m.ID != in.DeferredMatchID {
			settled = append(settled, m)
		}
	}

	if keepers := goalkeeperDeltas(settled, in.Players); len(keepers) > 0 {
		if err := p.players.ApplyGoalkeeperStats(ctx, g.ID, keepers); err != nil {
			return ProcessOutput{}, fmt.Errorf("apply goalkeeper stats: %w", err)
		}
	}

	tableMatches := make([]match.Match, 0, len(settled))
	for _, m := range settled {
		if CountsForStandings(in.Competitions[m.CompetitionID], m) {
			tableMatches = append(tableMatches, m)
		}
	}
	touched, err := p.standings.BulkUpdateAfterMatches(ctx, g.ID, tableMatches)
	if err != nil {
		return ProcessOutput{}, err
	}

	p.logger.InfoContext(ctx, "batch results processed",
		"game_id", g.ID,
		"matchday", in.Matchday,
		"matches", len(played),
		"events", len(allEvents),
		"deferred_match_id", in.DeferredMatchID,
	)
	return ProcessOutput{Matches: played, StandingCompetitions: touched, SuspensionsServed: served}, nil
}

// serveSuspensions counts one served match for every suspended player whose
// team played in that competition.
func (p *MatchResultProcessor) serveSuspensions(ctx context.Context, g game.Game, played []match.Match, players map[string]player.Player) (int, error) {
	teamsByCompetition := make(map[string]map[string]struct{})
	for _, m := range played {
		if teamsByCompetition[m.CompetitionID] == nil {
			teamsByCompetition[m.CompetitionID] = make(map[string]struct{})
		}
		teamsByCompetition[m.CompetitionID][m.HomeTeamID] = struct{}{}
		teamsByCompetition[m.CompetitionID][m.AwayTeamID] = struct{}{}
	}
	compIDs := make([]string, 0, len(teamsByCompetition))
	for compID := range teamsByCompetition {
		compIDs = append(compIDs, compID)
	}
	sort.Strings(compIDs)

	active, err := p.suspensions.ListActive(ctx, g.ID, compIDs)
	if err != nil {
		return 0, fmt.Errorf("list suspensions: %w", err)
	}
	keys := make([]player.SuspensionKey, 0, len(active))
	for _, s := range active {
		if s.MatchesRemaining <= 0 {
			continue
		}
		pl, ok := players[s.PlayerID]
		if !ok {
			continue
		}
		if _, playedHere := teamsByCompetition[s.CompetitionID][pl.TeamID]; !playedHere {
			continue
		}
		keys = append(keys, player.SuspensionKey{PlayerID: s.PlayerID, CompetitionID: s.CompetitionID})
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := p.suspensions.DecrementBatch(ctx, g.ID, keys); err != nil {
		return 0, fmt.Errorf("decrement suspensions: %w", err)
	}
	return len(keys), nil
}

// conditions drains fitness of everyone who played and moves morale by
// the result.
func (p *MatchResultProcessor) conditions(played []match.Match, players map[string]player.Player) []player.ConditionUpdate {
	out := make([]player.ConditionUpdate, 0, len(played)*22)
	seen := make(map[string]struct{})
	for _, m := range played {
		home, away := m.Score()
		for _, side := range []struct {
			teamID string
			lineup []string
			diff   int
		}{
			{m.HomeTeamID, m.HomeLineup, home - away},
			{m.AwayTeamID, m.AwayLineup, away - home},
		} {
			onPitch, _ := applySubstitutions(side.lineup, side.teamID, m.Substitutions)
			ids := append(append([]string(nil), side.lineup...), onPitch...)
			for _, playerID := range ids {
				if _, ok := seen[playerID]; ok {
					continue
				}
				pl, ok := players[playerID]
				if !ok {
					continue
				}
				seen[playerID] = struct{}{}

				fitness := pl.Fitness - p.rules.FitnessLossPerMatch
				if fitness < minimumMatchFitness {
					fitness = minimumMatchFitness
				}
				morale := pl.Morale
				switch {
				case side.diff > 0:
					morale += moraleSwing
				case side.diff < 0:
					morale -= moraleSwing
				}
				out = append(out, player.ConditionUpdate{
					PlayerID: playerID,
					Fitness:  fitness,
					Morale:   clampInt(morale, 0, player.MaxMorale),
				})
			}
		}
	}
	return out
}

// appearances lists every starter and substitute of the matches.
func appearances(played []match.Match) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(played)*24)
	add := func(ids []string) {
		for _, playerID := range ids {
			if _, ok := seen[playerID]; ok {
				continue
			}
			seen[playerID] = struct{}{}
			out = append(out, playerID)
		}
	}
	for _, m := range played {
		add(m.HomeLineup)
		add(m.AwayLineup)
		for _, sub := range m.Substitutions {
			add([]string{sub.PlayerInID})
		}
	}
	return out
}

// goalkeeperDeltas credits each side's first listed keeper with goals
// conceded and clean sheets, aggregated across the matches.
func goalkeeperDeltas(matches []match.Match, players map[string]player.Player) []player.GoalkeeperDelta {
	byKeeper := make(map[string]*player.GoalkeeperDelta)
	credit := func(lineup []string, conceded int) {
		for _, playerID := range lineup {
			pl, ok := players[playerID]
			if !ok || !pl.IsGoalkeeper() {
				continue
			}
			d, ok := byKeeper[playerID]
			if !ok {
				d = &player.GoalkeeperDelta{PlayerID: playerID}
				byKeeper[playerID] = d
			}
			d.GoalsConceded += conceded
			if conceded == 0 {
				d.CleanSheets++
			}
			return
		}
	}
	for _, m := range matches {
		if !m.Played {
			continue
		}
		home, away := m.Score()
		credit(m.HomeLineup, away)
		credit(m.AwayLineup, home)
	}

	out := make([]player.GoalkeeperDelta, 0, len(byKeeper))
	for _, d := range byKeeper {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
