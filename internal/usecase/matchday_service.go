package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// Batch is the set of matches due together on one matchday.
type Batch struct {
	Matches      []match.Match
	Handlers     map[string]CompetitionHandler
	Competitions map[string]competition.Competition
	Matchday     int
	CurrentDate  time.Time
}

// CompetitionIDs lists the competitions in the batch in a stable order.
func (b *Batch) CompetitionIDs() []string {
	out := make([]string, 0, len(b.Competitions))
	for compID := range b.Competitions {
		out = append(out, compID)
	}
	sort.Strings(out)
	return out
}

// HumanMatch returns the batch match played by teamID.
func (b *Batch) HumanMatch(teamID string) (match.Match, bool) {
	for _, m := range b.Matches {
		if m.Involves(teamID) {
			return m, true
		}
	}
	return match.Match{}, false
}

// MatchdayService finds the next batch of due matches.
type MatchdayService struct {
	competitions competition.Repository
	matches      match.Repository
	handlers     *HandlerResolver
	logger       *logging.Logger
}

func NewMatchdayService(competitions competition.Repository, matches match.Repository, handlers *HandlerResolver, logger *logging.Logger) *MatchdayService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchdayService{
		competitions: competitions,
		matches:      matches,
		handlers:     handlers,
		logger:       logger,
	}
}

// NextBatch returns nil when no unplayed match remains.
func (s *MatchdayService) NextBatch(ctx context.Context, g game.Game) (*Batch, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchdayService.NextBatch", attribute.String("game.id", g.ID))
	defer span.End()

	comps, err := s.competitions.ListByGame(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}
	byID := make(map[string]competition.Competition, len(comps))
	for _, c := range comps {
		byID[c.ID] = c
	}

	// knockout phases and draws are generated before looking for the next
	// fixture so a completed round is never skipped over
	for _, c := range comps {
		if !c.Participating || !c.HasKnockoutPhase() {
			continue
		}
		h, err := s.handlers.Resolve(c.Format)
		if err != nil {
			return nil, err
		}
		if gen, ok := h.(KnockoutGenerator); ok {
			created, err := gen.GenerateKnockoutFixtures(ctx, g, c, g.CurrentDate)
			if err != nil {
				return nil, fmt.Errorf("generate knockout fixtures competition=%s: %w", c.ID, err)
			}
			if created > 0 {
				s.logger.InfoContext(ctx, "knockout fixtures generated", "game_id", g.ID, "competition_id", c.ID, "ties", created)
			}
		}
		drawn, err := s.conductDraws(ctx, g, c)
		if err != nil {
			return nil, err
		}
		if drawn > 0 {
			s.logger.InfoContext(ctx, "knockout round drawn", "game_id", g.ID, "competition_id", c.ID, "ties", drawn)
		}
	}

	earliest, found, err := s.matches.FirstUnplayed(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("find first unplayed match: %w", err)
	}
	if !found {
		return nil, nil
	}

	sameDay, err := s.matches.ListUnplayedOnDate(ctx, g.ID, earliest.ScheduledDate)
	if err != nil {
		return nil, fmt.Errorf("list matches on %s: %w", earliest.ScheduledDate.Format(time.DateOnly), err)
	}
	return s.assemble(ctx, g, byID, sameDay)
}

func (s *MatchdayService) conductDraws(ctx context.Context, g game.Game, c competition.Competition) (int, error) {
	if c.ID == "" {
		return 0, nil
	}
	h, err := s.handlers.Resolve(c.Format)
	if err != nil {
		return 0, err
	}
	conductor, ok := h.(DrawConductor)
	if !ok {
		return 0, nil
	}
	n, err := conductor.ConductDraws(ctx, g, c)
	if err != nil {
		return 0, fmt.Errorf("conduct draws competition=%s: %w", c.ID, err)
	}
	return n, nil
}

// assemble expands league-phase matches to their full round and resolves
// one handler per competition. Only the earliest match of the user's team
// stays in the batch; a later one waits for its own batch.
func (s *MatchdayService) assemble(ctx context.Context, g game.Game, comps map[string]competition.Competition, sameDay []match.Match) (*Batch, error) {
	batch := &Batch{
		Handlers:     make(map[string]CompetitionHandler),
		Competitions: make(map[string]competition.Competition),
	}
	seen := make(map[string]struct{})
	add := func(m match.Match) {
		if _, ok := seen[m.ID]; ok {
			return
		}
		seen[m.ID] = struct{}{}
		batch.Matches = append(batch.Matches, m)
	}

	leagueRounds := make(map[string]int)
	for _, m := range sameDay {
		add(m)
		c, ok := comps[m.CompetitionID]
		if !ok {
			return nil, fmt.Errorf("%w: match=%s references unknown competition=%s", ErrNotFound, m.ID, m.CompetitionID)
		}
		if c.IsLeagueLike() && !m.IsCupTie() {
			leagueRounds[m.CompetitionID] = m.RoundNumber
		}
	}

	compIDs := make([]string, 0, len(leagueRounds))
	for compID := range leagueRounds {
		compIDs = append(compIDs, compID)
	}
	sort.Strings(compIDs)
	for _, compID := range compIDs {
		round, err := s.matches.ListUnplayedByRound(ctx, g.ID, compID, leagueRounds[compID])
		if err != nil {
			return nil, fmt.Errorf("list round %d competition=%s: %w", leagueRounds[compID], compID, err)
		}
		for _, m := range round {
			if !m.IsCupTie() {
				add(m)
			}
		}
	}

	sort.SliceStable(batch.Matches, func(i, j int) bool {
		a, b := batch.Matches[i], batch.Matches[j]
		if !a.ScheduledDate.Equal(b.ScheduledDate) {
			return a.ScheduledDate.Before(b.ScheduledDate)
		}
		if a.CompetitionID != b.CompetitionID {
			return a.CompetitionID < b.CompetitionID
		}
		return a.ID < b.ID
	})
	batch.Matches = keepFirstMatchOf(batch.Matches, g.TeamID)

	for _, m := range batch.Matches {
		c := comps[m.CompetitionID]
		if _, ok := batch.Handlers[c.ID]; !ok {
			h, err := s.handlers.Resolve(c.Format)
			if err != nil {
				return nil, err
			}
			batch.Handlers[c.ID] = h
			batch.Competitions[c.ID] = c
		}
		if m.ScheduledDate.After(batch.CurrentDate) {
			batch.CurrentDate = m.ScheduledDate
		}
	}

	for compID := range leagueRounds {
		if _, ok := batch.Competitions[compID]; !ok {
			delete(leagueRounds, compID)
		}
	}
	batch.Matchday = s.matchday(g, batch, leagueRounds)
	return batch, nil
}

// keepFirstMatchOf drops every match of teamID after the first one. matches
// must already be in play order.
func keepFirstMatchOf(matches []match.Match, teamID string) []match.Match {
	out := matches[:0]
	kept := false
	for _, m := range matches {
		if m.Involves(teamID) {
			if kept {
				continue
			}
			kept = true
		}
		out = append(out, m)
	}
	return out
}

// matchday prefers the primary league's round, then any league round, then
// the next sequential matchday.
func (s *MatchdayService) matchday(g game.Game, batch *Batch, leagueRounds map[string]int) int {
	if round, ok := leagueRounds[g.CompetitionID]; ok {
		return round
	}
	best := 0
	for _, compID := range batch.CompetitionIDs() {
		if round, ok := leagueRounds[compID]; ok && batch.Competitions[compID].Participating {
			best = round
			break
		}
	}
	if best > 0 {
		return best
	}
	return g.CurrentMatchday + 1
}
