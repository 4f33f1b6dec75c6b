package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/platform/id"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// CupTieResolver decides knockout ties from one or two legs. Extra time and
// penalties are simulated at most once per tie and reused afterwards.
type CupTieResolver struct {
	matches     match.Repository
	events      match.EventRepository
	ties        match.CupTieRepository
	players     player.Repository
	eligibility *EligibilityService
	simulator   Simulator
	ids         id.Generator
	logger      *logging.Logger
}

func NewCupTieResolver(
	matches match.Repository,
	events match.EventRepository,
	ties match.CupTieRepository,
	players player.Repository,
	eligibility *EligibilityService,
	simulator Simulator,
	ids id.Generator,
	logger *logging.Logger,
) *CupTieResolver {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &CupTieResolver{
		matches:     matches,
		events:      events,
		ties:        ties,
		players:     players,
		eligibility: eligibility,
		simulator:   simulator,
		ids:         ids,
		logger:      logger,
	}
}

// tieLegs holds the played legs of a tie, with the aggregate oriented to
// the tie's home team.
type tieLegs struct {
	tieHome  string
	decider  match.Match
	twoLegs  bool
	homeGoal int
	awayGoal int
}

// swapped reports whether the deciding leg is hosted by the tie's away team.
func (l tieLegs) swapped() bool {
	return l.decider.HomeTeamID != l.tieHome
}

// extraTime returns the deciding leg's extra-time goals oriented to the tie.
func (l tieLegs) extraTime() (int, int) {
	if !l.decider.HasExtraTime() {
		return 0, 0
	}
	if l.swapped() {
		return *l.decider.AwayScoreET, *l.decider.HomeScoreET
	}
	return *l.decider.HomeScoreET, *l.decider.AwayScoreET
}

func (l tieLegs) penalties() (int, int) {
	if !l.decider.HasPenalties() {
		return 0, 0
	}
	if l.swapped() {
		return *l.decider.AwayPenalties, *l.decider.HomePenalties
	}
	return *l.decider.HomePenalties, *l.decider.AwayPenalties
}

// loadLegs returns false when a leg is still unplayed.
func (r *CupTieResolver) loadLegs(ctx context.Context, gameID string, tie match.CupTie) (tieLegs, bool, error) {
	first, ok, err := r.matches.GetByID(ctx, gameID, tie.FirstLegMatchID)
	if err != nil {
		return tieLegs{}, false, fmt.Errorf("get first leg match=%s: %w", tie.FirstLegMatchID, err)
	}
	if !ok || !first.Played {
		return tieLegs{}, false, nil
	}

	legs := tieLegs{tieHome: tie.HomeTeamID, decider: first}
	home, away := first.Score()
	if first.HomeTeamID != tie.HomeTeamID {
		home, away = away, home
	}
	if tie.TwoLegged() {
		second, ok, err := r.matches.GetByID(ctx, gameID, tie.SecondLegMatchID)
		if err != nil {
			return tieLegs{}, false, fmt.Errorf("get second leg match=%s: %w", tie.SecondLegMatchID, err)
		}
		if !ok || !second.Played {
			return tieLegs{}, false, nil
		}
		h2, a2 := second.Score()
		if second.HomeTeamID == tie.HomeTeamID {
			home, away = home+h2, away+a2
		} else {
			home, away = home+a2, away+h2
		}
		legs.decider = second
		legs.twoLegs = true
	}
	legs.homeGoal, legs.awayGoal = home, away
	return legs, true, nil
}

// PlayDecider simulates and stores extra time and penalties on the deciding
// leg when the tie is level, without completing the tie. It is safe to call
// repeatedly.
func (r *CupTieResolver) PlayDecider(ctx context.Context, g game.Game, tie match.CupTie, notify bool) error {
	if tie.Completed {
		return nil
	}
	legs, ready, err := r.loadLegs(ctx, g.ID, tie)
	if err != nil || !ready {
		return err
	}
	_, err = r.playDecider(ctx, g, legs, notify)
	return err
}

func (r *CupTieResolver) playDecider(ctx context.Context, g game.Game, legs tieLegs, notify bool) (tieLegs, error) {
	if legs.homeGoal != legs.awayGoal {
		return legs, nil
	}

	if !legs.decider.HasExtraTime() {
		updated, err := r.simulateExtraTime(ctx, g, legs.decider, notify)
		if err != nil {
			return legs, err
		}
		legs.decider = updated
	}

	etHome, etAway := legs.extraTime()
	if etHome != etAway || legs.decider.HasPenalties() {
		return legs, nil
	}

	updated, err := r.simulatePenalties(ctx, g, legs.decider)
	if err != nil {
		return legs, err
	}
	legs.decider = updated
	return legs, nil
}

// Resolve decides the tie and marks it completed. It returns an empty
// winner when a leg has not been played yet. Completed ties are returned
// unchanged.
func (r *CupTieResolver) Resolve(ctx context.Context, g game.Game, tie match.CupTie) (string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CupTieResolver.Resolve",
		attribute.String("game.id", g.ID),
		attribute.String("cup_tie.id", tie.ID),
	)
	defer span.End()

	if tie.Completed {
		return tie.WinnerID, nil
	}

	legs, ready, err := r.loadLegs(ctx, g.ID, tie)
	if err != nil {
		return "", err
	}
	if !ready {
		return "", nil
	}

	legs, err = r.playDecider(ctx, g, legs, true)
	if err != nil {
		return "", err
	}

	winner, resolution, ok := decide(tie, legs)
	if !ok {
		r.logger.WarnContext(ctx, "cup tie still level after penalties", "game_id", g.ID, "cup_tie_id", tie.ID)
		return "", nil
	}

	tie.WinnerID = winner
	tie.Completed = true
	tie.Resolution = &resolution
	completed, err := r.ties.Complete(ctx, tie)
	if err != nil {
		return "", fmt.Errorf("complete cup tie=%s: %w", tie.ID, err)
	}
	if !completed {
		stored, found, err := r.ties.GetByID(ctx, g.ID, tie.ID)
		if err != nil {
			return "", fmt.Errorf("reload cup tie=%s: %w", tie.ID, err)
		}
		if found {
			return stored.WinnerID, nil
		}
	}
	return winner, nil
}

// decide applies aggregate, then extra time, then penalties. There is no
// away-goals rule.
func decide(tie match.CupTie, legs tieLegs) (string, match.Resolution, bool) {
	pick := func(home, away int) string {
		if home > away {
			return tie.HomeTeamID
		}
		return tie.AwayTeamID
	}

	home, away := legs.homeGoal, legs.awayGoal
	if home != away {
		return pick(home, away), match.Resolution{
			Type:      match.ResolutionNormal,
			Score:     match.FormatScore(home, away),
			Aggregate: legs.twoLegs,
		}, true
	}

	etHome, etAway := legs.extraTime()
	home, away = home+etHome, away+etAway
	if home != away {
		return pick(home, away), match.Resolution{
			Type:      match.ResolutionExtraTime,
			Score:     match.FormatScore(home, away),
			Aggregate: legs.twoLegs,
		}, true
	}

	penHome, penAway := legs.penalties()
	if penHome == penAway {
		return "", match.Resolution{}, false
	}
	return pick(penHome, penAway), match.Resolution{
		Type:         match.ResolutionPenalties,
		ScoreAfterET: match.FormatScore(home, away),
		Penalties:    match.FormatScore(penHome, penAway),
		Aggregate:    legs.twoLegs,
	}, true
}

func (r *CupTieResolver) squads(ctx context.Context, g game.Game, m match.Match) (map[string][]player.Player, map[string]player.Player, error) {
	list, err := r.players.ListByTeams(ctx, g.ID, []string{m.HomeTeamID, m.AwayTeamID})
	if err != nil {
		return nil, nil, fmt.Errorf("list players for match=%s: %w", m.ID, err)
	}
	return squadsByTeam(list), playersByID(list), nil
}

func (r *CupTieResolver) simulateExtraTime(ctx context.Context, g game.Game, m match.Match, notify bool) (match.Match, error) {
	squads, byID, err := r.squads(ctx, g, m)
	if err != nil {
		return m, err
	}
	played, err := r.events.ListByMatch(ctx, g.ID, m.ID)
	if err != nil {
		return m, fmt.Errorf("list events match=%s: %w", m.ID, err)
	}

	avail := Availability{Date: m.ScheduledDate}
	in := continuationInput(m, m.HomeLineup, m.AwayLineup, squads, played, match.RegulationMinutes, avail)
	res := r.simulator.SimulateExtraTime(in)

	events, err := stampEvents(r.ids, g, m, res.Events)
	if err != nil {
		return m, err
	}
	if err := r.persistExtraEvents(ctx, g, m, events, byID, notify); err != nil {
		return m, err
	}
	if err := r.matches.SaveExtraTime(ctx, g.ID, m.ID, res.HomeScore, res.AwayScore); err != nil {
		return m, fmt.Errorf("save extra time match=%s: %w", m.ID, err)
	}

	m.HomeScoreET = match.IntPtr(res.HomeScore)
	m.AwayScoreET = match.IntPtr(res.AwayScore)
	m.IsExtraTime = true
	return m, nil
}

// persistExtraEvents stores extra-time events and applies their stat, card
// and injury effects.
func (r *CupTieResolver) persistExtraEvents(ctx context.Context, g game.Game, m match.Match, events []match.Event, players map[string]player.Player, notify bool) error {
	if len(events) == 0 {
		return nil
	}
	if err := r.events.InsertBatch(ctx, events); err != nil {
		return fmt.Errorf("insert extra time events match=%s: %w", m.ID, err)
	}

	prior := priorYellows(events, players)
	if err := r.players.ApplyStatDeltas(ctx, g.ID, aggregateStatDeltas(events)); err != nil {
		return fmt.Errorf("apply extra time stats match=%s: %w", m.ID, err)
	}
	if r.eligibility == nil {
		return nil
	}
	err := r.eligibility.ProcessCards(ctx, g, CardInput{Match: m, Events: events, PriorYellows: prior, Notify: notify}, players)
	if err != nil {
		return fmt.Errorf("process extra time cards match=%s: %w", m.ID, err)
	}
	if err := r.eligibility.ApplyInjuries(ctx, g, events, m.ScheduledDate, players, notify); err != nil {
		return fmt.Errorf("process extra time injuries match=%s: %w", m.ID, err)
	}
	return nil
}

func (r *CupTieResolver) simulatePenalties(ctx context.Context, g game.Game, m match.Match) (match.Match, error) {
	squads, _, err := r.squads(ctx, g, m)
	if err != nil {
		return m, err
	}
	played, err := r.events.ListByMatch(ctx, g.ID, m.ID)
	if err != nil {
		return m, fmt.Errorf("list events match=%s: %w", m.ID, err)
	}

	in := continuationInput(m, m.HomeLineup, m.AwayLineup, squads, played, match.ExtraTimeMinutes, Availability{Date: m.ScheduledDate})
	res := r.simulator.SimulatePenaltyShootout(in.Home, in.Away, nil)
	if err := r.matches.SavePenalties(ctx, g.ID, m.ID, res.HomeScore, res.AwayScore); err != nil {
		return m, fmt.Errorf("save penalties match=%s: %w", m.ID, err)
	}

	m.HomePenalties = match.IntPtr(res.HomeScore)
	m.AwayPenalties = match.IntPtr(res.AwayScore)
	return m, nil
}
