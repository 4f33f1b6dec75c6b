package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/platform/id"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// ResimulationInput carries the user's changes to a live match. Lineups
// are the players on the pitch from Minute on.
type ResimulationInput struct {
	GameID        string               `json:"-" validate:"required"`
	MatchID       string               `json:"-" validate:"required"`
	Minute        int                  `json:"minute" validate:"gte=0,lt=120"`
	HomeLineup    []string             `json:"home_lineup" validate:"required,min=7,max=11,dive,required"`
	AwayLineup    []string             `json:"away_lineup" validate:"required,min=7,max=11,dive,required"`
	HomeFormation string               `json:"home_formation" validate:"omitempty,max=16"`
	AwayFormation string               `json:"away_formation" validate:"omitempty,max=16"`
	HomeMentality string               `json:"home_mentality" validate:"omitempty,max=32"`
	AwayMentality string               `json:"away_mentality" validate:"omitempty,max=32"`
	HomeTactics   map[string]string    `json:"home_tactics"`
	AwayTactics   map[string]string    `json:"away_tactics"`
	Substitutions []match.Substitution `json:"substitutions" validate:"dive"`
}

// ResimulationResult reports the score before and after the replay. For
// extra time both scores are the extra-time period only.
type ResimulationResult struct {
	MatchID      string `json:"match_id"`
	Minute       int    `json:"minute"`
	OldHomeScore int    `json:"old_home_score"`
	OldAwayScore int    `json:"old_away_score"`
	NewHomeScore int    `json:"new_home_score"`
	NewAwayScore int    `json:"new_away_score"`
	OldScore     string `json:"old_score"`
	NewScore     string `json:"new_score"`
	RemovedCount int    `json:"removed_events"`
	AddedCount   int    `json:"added_events"`
}

// MatchResimulationService replays the rest of the live match after the
// user changes lineups or tactics. Standings, cup ties and keeper records
// stay untouched until the match is finalized.
type MatchResimulationService struct {
	tx          Transactor
	games       game.Repository
	matches     match.Repository
	events      match.EventRepository
	players     player.Repository
	eligibility *EligibilityService
	simulator   Simulator
	ids         id.Generator
	rules       GameplayRules
	validator   *validator.Validate
	logger      *logging.Logger
}

func NewMatchResimulationService(
	tx Transactor,
	games game.Repository,
	matches match.Repository,
	events match.EventRepository,
	players player.Repository,
	eligibility *EligibilityService,
	simulator Simulator,
	ids id.Generator,
	rules GameplayRules,
	logger *logging.Logger,
) *MatchResimulationService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &MatchResimulationService{
		tx:          tx,
		games:       games,
		matches:     matches,
		events:      events,
		players:     players,
		eligibility: eligibility,
		simulator:   simulator,
		ids:         ids,
		rules:       rules.withDefaults(),
		validator:   validator.New(),
		logger:      logger,
	}
}

// Resimulate replays regulation time after input.Minute.
func (s *MatchResimulationService) Resimulate(ctx context.Context, input ResimulationInput) (ResimulationResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchResimulationService.Resimulate",
		attribute.String("game.id", input.GameID),
		attribute.String("match.id", input.MatchID),
		attribute.Int("minute", input.Minute),
	)
	defer span.End()

	if input.Minute >= match.RegulationMinutes {
		return ResimulationResult{}, fmt.Errorf("%w: minute must be below %d, use extra-time resimulation", ErrInvalidInput, match.RegulationMinutes)
	}
	return s.run(ctx, input, false)
}

// ResimulateExtraTime replays extra time after input.Minute (90..119).
func (s *MatchResimulationService) ResimulateExtraTime(ctx context.Context, input ResimulationInput) (ResimulationResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchResimulationService.ResimulateExtraTime",
		attribute.String("game.id", input.GameID),
		attribute.String("match.id", input.MatchID),
		attribute.Int("minute", input.Minute),
	)
	defer span.End()

	if input.Minute < match.RegulationMinutes {
		return ResimulationResult{}, fmt.Errorf("%w: extra-time minute must be at least %d", ErrInvalidInput, match.RegulationMinutes)
	}
	return s.run(ctx, input, true)
}

func (s *MatchResimulationService) run(ctx context.Context, input ResimulationInput, extraTime bool) (ResimulationResult, error) {
	input.GameID = strings.TrimSpace(input.GameID)
	input.MatchID = strings.TrimSpace(input.MatchID)
	if err := s.validator.StructCtx(ctx, input); err != nil {
		return ResimulationResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var result ResimulationResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		g, ok, err := s.games.LockForUpdate(ctx, input.GameID)
		if err != nil {
			return fmt.Errorf("lock game=%s: %w", input.GameID, err)
		}
		if !ok {
			return fmt.Errorf("%w: game=%s", ErrNotFound, input.GameID)
		}
		if g.PendingFinalizationMatchID != input.MatchID {
			return fmt.Errorf("%w: match=%s is not the live match", ErrConflict, input.MatchID)
		}

		m, ok, err := s.matches.GetByID(ctx, g.ID, input.MatchID)
		if err != nil {
			return fmt.Errorf("get match=%s: %w", input.MatchID, err)
		}
		if !ok || !m.Played {
			return fmt.Errorf("%w: match=%s has not been played", ErrConflict, input.MatchID)
		}
		if extraTime && !m.HasExtraTime() {
			return fmt.Errorf("%w: match=%s went to no extra time", ErrInvalidInput, input.MatchID)
		}

		result, err = s.replay(ctx, g, m, input, extraTime)
		return err
	})
	if err != nil {
		return ResimulationResult{}, err
	}

	s.logger.InfoContext(ctx, "match resimulated",
		"game_id", input.GameID,
		"match_id", input.MatchID,
		"minute", input.Minute,
		"extra_time", extraTime,
		"old_score", result.OldScore,
		"new_score", result.NewScore,
	)
	return result, nil
}

func (s *MatchResimulationService) replay(ctx context.Context, g game.Game, m match.Match, input ResimulationInput, extraTime bool) (ResimulationResult, error) {
	result := ResimulationResult{MatchID: m.ID, Minute: input.Minute}
	if extraTime {
		result.OldHomeScore, result.OldAwayScore = *m.HomeScoreET, *m.AwayScoreET
	} else {
		result.OldHomeScore, result.OldAwayScore = m.Score()
	}

	before, err := s.events.ListByMatch(ctx, g.ID, m.ID)
	if err != nil {
		return result, fmt.Errorf("list events match=%s: %w", m.ID, err)
	}
	list, err := s.players.ListByTeams(ctx, g.ID, []string{m.HomeTeamID, m.AwayTeamID})
	if err != nil {
		return result, fmt.Errorf("list players match=%s: %w", m.ID, err)
	}
	original := playersByID(list)

	removed, err := s.events.DeleteAfterMinute(ctx, g.ID, m.ID, input.Minute)
	if err != nil {
		return result, fmt.Errorf("delete events after minute=%d match=%s: %w", input.Minute, m.ID, err)
	}
	kept, _ := match.SplitAtMinute(before, input.Minute)
	result.RemovedCount = len(removed)

	if err := s.eligibility.RevertMatchEvents(ctx, g, m.ID, removed, original); err != nil {
		return result, err
	}
	if err := s.reapplyKeptCards(ctx, g, m, before, kept, removed, original); err != nil {
		return result, err
	}

	replaced := m
	m = applyInputToMatch(m, input)
	if err := s.matches.SaveLineups(ctx, g.ID, []match.LineupUpdate{match.LineupUpdateOf(m)}); err != nil {
		return result, fmt.Errorf("save lineups match=%s: %w", m.ID, err)
	}

	avail := Availability{Date: m.ScheduledDate}
	in := continuationInput(m, m.HomeLineup, m.AwayLineup, squadsByTeam(list), kept, input.Minute, avail)
	var sim match.SimulationResult
	if extraTime {
		sim = s.simulator.SimulateExtraTime(in)
	} else {
		sim = s.simulator.SimulateRemainder(in, input.Minute)
	}
	added, err := stampEvents(s.ids, g, m, sim.Events)
	if err != nil {
		return result, err
	}
	result.AddedCount = len(added)
	if len(added) > 0 {
		if err := s.events.InsertBatch(ctx, added); err != nil {
			return result, fmt.Errorf("insert resimulated events match=%s: %w", m.ID, err)
		}
	}

	affected := make([]string, 0, len(removed)+len(added))
	for _, e := range append(append([]match.Event(nil), removed...), added...) {
		if e.PlayerID != "" {
			affected = append(affected, e.PlayerID)
		}
	}
	affected = uniqueStrings(affected)
	if len(affected) > 0 {
		if err := s.players.RecomputeStatsFromEvents(ctx, g.ID, affected); err != nil {
			return result, fmt.Errorf("recompute player stats match=%s: %w", m.ID, err)
		}
	}

	// yellows before the new events: the original count minus what was removed
	prior := make(map[string]int)
	for _, e := range added {
		if e.Type == match.EventYellowCard {
			if _, ok := prior[e.PlayerID]; !ok {
				prior[e.PlayerID] = original[e.PlayerID].YellowCards - countEvents(removed, e.PlayerID, match.EventYellowCard)
			}
		}
	}
	if err := s.eligibility.ProcessCards(ctx, g, CardInput{Match: m, Events: added, PriorYellows: prior}, original); err != nil {
		return result, fmt.Errorf("process resimulated cards match=%s: %w", m.ID, err)
	}
	if err := s.eligibility.ApplyInjuries(ctx, g, added, m.ScheduledDate, original, false); err != nil {
		return result, fmt.Errorf("process resimulated injuries match=%s: %w", m.ID, err)
	}

	if extraTime {
		keptHome, keptAway := match.ScoreFromEvents(match.FilterWindow(kept, match.RegulationMinutes, match.ExtraTimeMinutes), m.HomeTeamID, m.AwayTeamID)
		result.NewHomeScore, result.NewAwayScore = keptHome+sim.HomeScore, keptAway+sim.AwayScore
		m.HomeScoreET = match.IntPtr(result.NewHomeScore)
		m.AwayScoreET = match.IntPtr(result.NewAwayScore)
	} else {
		keptHome, keptAway := match.ScoreFromEvents(match.FilterWindow(kept, 0, match.RegulationMinutes), m.HomeTeamID, m.AwayTeamID)
		result.NewHomeScore, result.NewAwayScore = keptHome+sim.HomeScore, keptAway+sim.AwayScore
		m.HomeScore = match.IntPtr(result.NewHomeScore)
		m.AwayScore = match.IntPtr(result.NewAwayScore)
		m.HomeScoreET, m.AwayScoreET = nil, nil
		m.IsExtraTime = false
	}
	m.HomePenalties, m.AwayPenalties = nil, nil
	if err := s.matches.SaveLiveResult(ctx, m); err != nil {
		return result, fmt.Errorf("save live result match=%s: %w", m.ID, err)
	}
	if err := s.settleParticipation(ctx, g, replaced, m, kept, input.Minute, original); err != nil {
		return result, err
	}

	result.OldScore = match.FormatScore(result.OldHomeScore, result.OldAwayScore)
	result.NewScore = match.FormatScore(result.NewHomeScore, result.NewAwayScore)
	return result, nil
}

// settleParticipation moves appearances and match condition from the
// replaced run of the match to the replayed one. Players on the pitch before
// minute keep their appearance; substitutes of the discarded run who came on
// later lose it.
func (s *MatchResimulationService) settleParticipation(ctx context.Context, g game.Game, replaced, m match.Match, kept []match.Event, minute int, players map[string]player.Player) error {
	if !replaced.HasLineups() {
		return nil
	}
	before := make(map[string]struct{})
	for _, playerID := range appearances([]match.Match{replaced}) {
		before[playerID] = struct{}{}
	}

	after := make(map[string]struct{})
	if minute > 0 {
		for _, playerID := range append(append([]string(nil), replaced.HomeLineup...), replaced.AwayLineup...) {
			after[playerID] = struct{}{}
		}
		for _, sub := range replaced.Substitutions {
			if sub.Minute <= minute {
				after[sub.PlayerInID] = struct{}{}
			}
		}
	}
	for _, e := range kept {
		if e.PlayerID != "" {
			after[e.PlayerID] = struct{}{}
		}
	}
	for _, playerID := range appearances([]match.Match{m}) {
		after[playerID] = struct{}{}
	}

	oldHome, oldAway := replaced.Score()
	newHome, newAway := m.Score()
	swing := func(p player.Player, home, away int, took bool) int {
		if !took {
			return 0
		}
		diff := home - away
		if p.TeamID == m.AwayTeamID {
			diff = -diff
		}
		switch {
		case diff > 0:
			return moraleSwing
		case diff < 0:
			return -moraleSwing
		}
		return 0
	}

	ids := make([]string, 0, len(before)+len(after))
	for playerID := range before {
		ids = append(ids, playerID)
	}
	for playerID := range after {
		ids = append(ids, playerID)
	}
	ids = uniqueStrings(ids)
	sort.Strings(ids)

	gained := make([]string, 0)
	lost := make([]string, 0)
	conditions := make([]player.ConditionUpdate, 0)
	for _, playerID := range ids {
		p, ok := players[playerID]
		if !ok {
			continue
		}
		_, wasIn := before[playerID]
		_, isIn := after[playerID]

		fitness := p.Fitness
		switch {
		case wasIn && !isIn:
			lost = append(lost, playerID)
			fitness = clampInt(fitness+s.rules.FitnessLossPerMatch, 0, player.MaxFitness)
		case !wasIn && isIn:
			gained = append(gained, playerID)
			fitness -= s.rules.FitnessLossPerMatch
			if fitness < minimumMatchFitness {
				fitness = minimumMatchFitness
			}
		}
		morale := p.Morale - swing(p, oldHome, oldAway, wasIn) + swing(p, newHome, newAway, isIn)
		morale = clampInt(morale, 0, player.MaxMorale)
		if fitness == p.Fitness && morale == p.Morale {
			continue
		}
		conditions = append(conditions, player.ConditionUpdate{PlayerID: playerID, Fitness: fitness, Morale: morale})
	}

	if err := s.players.IncrementAppearances(ctx, g.ID, gained); err != nil {
		return fmt.Errorf("increment resimulated appearances match=%s: %w", m.ID, err)
	}
	if err := s.players.DecrementAppearances(ctx, g.ID, lost); err != nil {
		return fmt.Errorf("decrement replaced appearances match=%s: %w", m.ID, err)
	}
	if len(conditions) > 0 {
		if err := s.players.UpdateConditions(ctx, g.ID, conditions); err != nil {
			return fmt.Errorf("update resimulated conditions match=%s: %w", m.ID, err)
		}
	}
	return nil
}

// reapplyKeptCards restores suspensions earned by cards that survived the
// cut but were dropped along with the removed cards of the same player.
func (s *MatchResimulationService) reapplyKeptCards(ctx context.Context, g game.Game, m match.Match, before, kept, removed []match.Event, players map[string]player.Player) error {
	cardedRemoved := make(map[string]struct{})
	for _, e := range removed {
		if e.IsCard() {
			cardedRemoved[e.PlayerID] = struct{}{}
		}
	}
	if len(cardedRemoved) == 0 {
		return nil
	}

	cards := make([]match.Event, 0)
	prior := make(map[string]int)
	for _, e := range kept {
		if !e.IsCard() {
			continue
		}
		if _, ok := cardedRemoved[e.PlayerID]; !ok {
			continue
		}
		cards = append(cards, e)
		if _, ok := prior[e.PlayerID]; !ok {
			prior[e.PlayerID] = players[e.PlayerID].YellowCards - countEvents(before, e.PlayerID, match.EventYellowCard)
		}
	}
	if len(cards) == 0 {
		return nil
	}
	if err := s.eligibility.ProcessCards(ctx, g, CardInput{Match: m, Events: cards, PriorYellows: prior}, players); err != nil {
		return fmt.Errorf("reapply kept cards match=%s: %w", m.ID, err)
	}
	return nil
}

func applyInputToMatch(m match.Match, input ResimulationInput) match.Match {
	m.HomeLineup = append([]string(nil), input.HomeLineup...)
	m.AwayLineup = append([]string(nil), input.AwayLineup...)
	if input.HomeFormation != "" {
		m.HomeFormation = input.HomeFormation
	}
	if input.AwayFormation != "" {
		m.AwayFormation = input.AwayFormation
	}
	if input.HomeMentality != "" {
		m.HomeMentality = input.HomeMentality
	}
	if input.AwayMentality != "" {
		m.AwayMentality = input.AwayMentality
	}
	if input.HomeTactics != nil {
		m.HomeTactics = input.HomeTactics
	}
	if input.AwayTactics != nil {
		m.AwayTactics = input.AwayTactics
	}
	m.Substitutions = append([]match.Substitution(nil), input.Substitutions...)
	return m
}

func countEvents(events []match.Event, playerID string, typ match.EventType) int {
	n := 0
	for _, e := range events {
		if e.PlayerID == playerID && e.Type == typ {
			n++
		}
	}
	return n
}
