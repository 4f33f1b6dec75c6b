package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/finance"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// MatchFinalized is published once the deferred match's effects may be
// applied.
type MatchFinalized struct {
	Game        game.Game
	Match       match.Match
	Competition competition.Competition
	Players     map[string]player.Player
}

// TieResolved is published when finalizing a match completed its cup tie.
type TieResolved struct {
	Game        game.Game
	Match       match.Match
	Competition competition.Competition
	Tie         match.CupTie
}

type MatchFinalizedListener interface {
	OnMatchFinalized(ctx context.Context, ev MatchFinalized) error
}

type TieResolvedListener interface {
	OnTieResolved(ctx context.Context, ev TieResolved) error
}

// MatchFinalizationService applies the deferred, score-dependent effects of
// the user's match exactly once.
type MatchFinalizationService struct {
	tx           Transactor
	games        game.Repository
	matches      match.Repository
	ties         match.CupTieRepository
	competitions competition.Repository
	players      player.Repository
	resolver     *CupTieResolver

	matchListeners []MatchFinalizedListener
	tieListeners   []TieResolvedListener

	logger *logging.Logger
}

func NewMatchFinalizationService(
	tx Transactor,
	games game.Repository,
	matches match.Repository,
	ties match.CupTieRepository,
	competitions competition.Repository,
	players player.Repository,
	resolver *CupTieResolver,
	logger *logging.Logger,
) *MatchFinalizationService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchFinalizationService{
		tx:           tx,
		games:        games,
		matches:      matches,
		ties:         ties,
		competitions: competitions,
		players:      players,
		resolver:     resolver,
		logger:       logger,
	}
}

// Subscribe registers a listener for MatchFinalized, TieResolved or both.
// Listeners run in registration order.
func (s *MatchFinalizationService) Subscribe(listener any) {
	if l, ok := listener.(MatchFinalizedListener); ok {
		s.matchListeners = append(s.matchListeners, l)
	}
	if l, ok := listener.(TieResolvedListener); ok {
		s.tieListeners = append(s.tieListeners, l)
	}
}

// FinalizeMatch applies the deferred effects of matchID. It is a no-op when
// nothing is pending and a conflict when another match is pending.
func (s *MatchFinalizationService) FinalizeMatch(ctx context.Context, gameID, matchID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchFinalizationService.FinalizeMatch",
		attribute.String("game.id", gameID),
		attribute.String("match.id", matchID),
	)
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	matchID = strings.TrimSpace(matchID)
	if gameID == "" || matchID == "" {
		return fmt.Errorf("%w: game id and match id are required", ErrInvalidInput)
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		g, ok, err := s.games.LockForUpdate(ctx, gameID)
		if err != nil {
			return fmt.Errorf("lock game=%s: %w", gameID, err)
		}
		if !ok {
			return fmt.Errorf("%w: game=%s", ErrNotFound, gameID)
		}
		if !g.HasPendingFinalization() {
			return nil
		}
		if g.PendingFinalizationMatchID != matchID {
			return fmt.Errorf("%w: match=%s is pending finalization, not match=%s", ErrConflict, g.PendingFinalizationMatchID, matchID)
		}
		_, err = s.finalize(ctx, g)
		return err
	})
}

// finalize runs inside the caller's transaction with the game locked. The
// pending pointer is cleared last.
func (s *MatchFinalizationService) finalize(ctx context.Context, g game.Game) (game.Game, error) {
	matchID := g.PendingFinalizationMatchID
	m, ok, err := s.matches.GetByID(ctx, g.ID, matchID)
	if err != nil {
		return g, fmt.Errorf("get match=%s: %w", matchID, err)
	}

	if ok && m.Played {
		if err := s.publish(ctx, g, m); err != nil {
			return g, err
		}
	} else {
		s.logger.WarnContext(ctx, "pending match missing or unplayed, clearing pointer", "game_id", g.ID, "match_id", matchID)
	}

	// listeners may have credited the budget
	refreshed, found, err := s.games.GetByID(ctx, g.ID)
	if err != nil {
		return g, fmt.Errorf("reload game=%s: %w", g.ID, err)
	}
	if found {
		g = refreshed
	}
	g.PendingFinalizationMatchID = ""
	if err := s.games.Update(ctx, g); err != nil {
		return g, fmt.Errorf("clear pending finalization game=%s: %w", g.ID, err)
	}
	s.logger.InfoContext(ctx, "match finalized", "game_id", g.ID, "match_id", matchID)
	return g, nil
}

func (s *MatchFinalizationService) publish(ctx context.Context, g game.Game, m match.Match) error {
	comp, _, err := s.competitions.GetByID(ctx, g.ID, m.CompetitionID)
	if err != nil {
		return fmt.Errorf("get competition=%s: %w", m.CompetitionID, err)
	}

	var resolved *match.CupTie
	if m.IsCupTie() {
		tie, found, err := s.ties.GetByID(ctx, g.ID, m.CupTieID)
		if err != nil {
			return fmt.Errorf("get cup tie=%s: %w", m.CupTieID, err)
		}
		if found && !tie.Completed {
			winner, err := s.resolver.Resolve(ctx, g, tie)
			if err != nil {
				return fmt.Errorf("resolve cup tie=%s: %w", tie.ID, err)
			}
			if winner != "" {
				stored, _, err := s.ties.GetByID(ctx, g.ID, tie.ID)
				if err != nil {
					return fmt.Errorf("reload cup tie=%s: %w", tie.ID, err)
				}
				resolved = &stored
			}
		}
		// extra time may have been added by the resolver
		if reloaded, found, err := s.matches.GetByID(ctx, g.ID, m.ID); err == nil && found {
			m = reloaded
		}
	}

	list, err := s.players.ListByTeams(ctx, g.ID, []string{m.HomeTeamID, m.AwayTeamID})
	if err != nil {
		return fmt.Errorf("list players for match=%s: %w", m.ID, err)
	}
	ev := MatchFinalized{Game: g, Match: m, Competition: comp, Players: playersByID(list)}
	for _, l := range s.matchListeners {
		if err := l.OnMatchFinalized(ctx, ev); err != nil {
			return err
		}
	}

	if resolved == nil {
		return nil
	}
	tieEv := TieResolved{Game: g, Match: m, Competition: comp, Tie: *resolved}
	for _, l := range s.tieListeners {
		if err := l.OnTieResolved(ctx, tieEv); err != nil {
			return err
		}
	}
	return nil
}

// FinalizationListeners wires the standard reactions to a finalized match.
type FinalizationListeners struct {
	Standings  *StandingsListener
	Keepers    *GoalkeeperListener
	Inbox      *FinalizationNotifier
	PrizeMoney *PrizeMoneyListener
}

func (l FinalizationListeners) SubscribeTo(s *MatchFinalizationService) {
	if l.Standings != nil {
		s.Subscribe(l.Standings)
	}
	if l.Keepers != nil {
		s.Subscribe(l.Keepers)
	}
	if l.Inbox != nil {
		s.Subscribe(l.Inbox)
	}
	if l.PrizeMoney != nil {
		s.Subscribe(l.PrizeMoney)
	}
}

// StandingsListener applies the finalized league result and re-ranks.
type StandingsListener struct {
	standings *StandingsCalculator
	handlers  *HandlerResolver
}

func NewStandingsListener(standings *StandingsCalculator, handlers *HandlerResolver) *StandingsListener {
	return &StandingsListener{standings: standings, handlers: handlers}
}

func (l *StandingsListener) OnMatchFinalized(ctx context.Context, ev MatchFinalized) error {
	if !CountsForStandings(ev.Competition, ev.Match) {
		return nil
	}
	touched, err := l.standings.BulkUpdateAfterMatches(ctx, ev.Game.ID, []match.Match{ev.Match})
	if err != nil {
		return err
	}
	if err := l.standings.RecalculatePositions(ctx, ev.Game.ID, touched); err != nil {
		return err
	}
	if l.handlers == nil {
		return nil
	}
	h, err := l.handlers.Resolve(ev.Competition.Format)
	if err != nil {
		return err
	}
	if checker, ok := h.(ProgressChecker); ok {
		return checker.CheckProgress(ctx, ev.Game, ev.Competition)
	}
	return nil
}

// GoalkeeperListener records the finalized match on the keepers' records.
type GoalkeeperListener struct {
	players player.Repository
}

func NewGoalkeeperListener(players player.Repository) *GoalkeeperListener {
	return &GoalkeeperListener{players: players}
}

func (l *GoalkeeperListener) OnMatchFinalized(ctx context.Context, ev MatchFinalized) error {
	deltas := goalkeeperDeltas([]match.Match{ev.Match}, ev.Players)
	if len(deltas) == 0 {
		return nil
	}
	if err := l.players.ApplyGoalkeeperStats(ctx, ev.Game.ID, deltas); err != nil {
		return fmt.Errorf("apply goalkeeper stats match=%s: %w", ev.Match.ID, err)
	}
	return nil
}

// FinalizationNotifier sends the messages held back while the match was
// live: the result, the user's suspensions and injuries, and tie outcomes.
type FinalizationNotifier struct {
	notifier    *NotificationService
	events      match.EventRepository
	suspensions player.SuspensionRepository
	ties        match.CupTieRepository
}

func NewFinalizationNotifier(notifier *NotificationService, events match.EventRepository, suspensions player.SuspensionRepository, ties match.CupTieRepository) *FinalizationNotifier {
	return &FinalizationNotifier{notifier: notifier, events: events, suspensions: suspensions, ties: ties}
}

func (l *FinalizationNotifier) OnMatchFinalized(ctx context.Context, ev MatchFinalized) error {
	g, m := ev.Game, ev.Match
	home, away := m.Score()
	score := match.FormatScore(home, away)
	if m.HasExtraTime() {
		score += fmt.Sprintf(" (aet %s)", match.FormatScore(home+*m.HomeScoreET, away+*m.AwayScoreET))
	}
	if m.HasPenalties() {
		score += fmt.Sprintf(" (%s pens)", match.FormatScore(*m.HomePenalties, *m.AwayPenalties))
	}
	err := l.notifier.Notify(ctx, g, Message{
		Type:     notification.TypeMatchResult,
		Title:    ev.Competition.Name + " result",
		Body:     fmt.Sprintf("%s %s %s", m.HomeTeamID, score, m.AwayTeamID),
		Metadata: map[string]any{"match_id": m.ID, "competition_id": m.CompetitionID, "opponent_id": m.OpponentOf(g.TeamID)},
	})
	if err != nil {
		return err
	}

	events, err := l.events.ListByMatch(ctx, g.ID, m.ID)
	if err != nil {
		return fmt.Errorf("list events match=%s: %w", m.ID, err)
	}
	for _, e := range events {
		if e.Type != match.EventInjury {
			continue
		}
		p, ok := ev.Players[e.PlayerID]
		if !ok || p.TeamID != g.TeamID {
			continue
		}
		body := p.Name + " was injured during the match."
		if p.InjuredUntil != nil {
			body = fmt.Sprintf("%s picked up a %s and is out until %s.", p.Name, p.InjuryType, p.InjuredUntil.Format(time.DateOnly))
		}
		err := l.notifier.Notify(ctx, g, Message{
			Type:     notification.TypeInjury,
			Title:    p.Name + " injured",
			Body:     body,
			Priority: notification.PriorityHigh,
			Metadata: map[string]any{"player_id": p.ID, "match_id": m.ID},
		})
		if err != nil {
			return err
		}
	}

	active, err := l.suspensions.ListActive(ctx, g.ID, []string{m.CompetitionID})
	if err != nil {
		return fmt.Errorf("list suspensions: %w", err)
	}
	for _, s := range active {
		if s.SourceMatchID != m.ID || s.MatchesRemaining <= 0 {
			continue
		}
		p, ok := ev.Players[s.PlayerID]
		if !ok || p.TeamID != g.TeamID {
			continue
		}
		err := l.notifier.Notify(ctx, g, Message{
			Type:     notification.TypeSuspension,
			Title:    p.Name + " suspended",
			Body:     fmt.Sprintf("%s misses the next %d %s match(es).", p.Name, s.MatchesRemaining, ev.Competition.Name),
			Priority: notification.PriorityHigh,
			Metadata: map[string]any{"player_id": p.ID, "match_id": m.ID, "competition_id": m.CompetitionID},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *FinalizationNotifier) OnTieResolved(ctx context.Context, ev TieResolved) error {
	return notifyTieOutcome(ctx, l.notifier, l.ties, ev.Game, ev.Competition, ev.Tie)
}

// PrizeMoneyListener credits prize money when the user's team wins a tie.
type PrizeMoneyListener struct {
	finance  finance.Repository
	notifier *NotificationService
}

func NewPrizeMoneyListener(repo finance.Repository, notifier *NotificationService) *PrizeMoneyListener {
	return &PrizeMoneyListener{finance: repo, notifier: notifier}
}

func (l *PrizeMoneyListener) OnTieResolved(ctx context.Context, ev TieResolved) error {
	g, comp, tie := ev.Game, ev.Competition, ev.Tie
	if tie.WinnerID != g.TeamID || comp.PrizeMoneyPerRound <= 0 {
		return nil
	}
	reason := fmt.Sprintf("%s round %d prize money", comp.Name, tie.RoundNumber)
	if err := l.finance.AddIncome(ctx, g.ID, comp.PrizeMoneyPerRound, reason); err != nil {
		return fmt.Errorf("add prize money game=%s: %w", g.ID, err)
	}
	if l.notifier == nil {
		return nil
	}
	return l.notifier.Notify(ctx, g, Message{
		Type:     notification.TypePrizeMoney,
		Title:    "Prize money received",
		Body:     fmt.Sprintf("The club received %d for progressing in the %s.", comp.PrizeMoneyPerRound, comp.Name),
		Metadata: map[string]any{"competition_id": comp.ID, "cup_tie_id": tie.ID, "amount": comp.PrizeMoneyPerRound},
	})
}
