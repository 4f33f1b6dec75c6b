package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
)

// EligibilityService turns cards and injuries into suspensions and
// absences.
type EligibilityService struct {
	suspensions player.SuspensionRepository
	players     player.Repository
	notifier    *NotificationService
	rules       GameplayRules
	logger      *logging.Logger
}

func NewEligibilityService(
	suspensions player.SuspensionRepository,
	players player.Repository,
	notifier *NotificationService,
	rules GameplayRules,
	logger *logging.Logger,
) *EligibilityService {
	if logger == nil {
		logger = logging.Default()
	}
	return &EligibilityService{
		suspensions: suspensions,
		players:     players,
		notifier:    notifier,
		rules:       rules.withDefaults(),
		logger:      logger,
	}
}

// CardInput carries one match's card events for suspension processing.
type CardInput struct {
	Match  match.Match
	Events []match.Event
	// PriorYellows is each player's yellow count before this match.
	PriorYellows map[string]int
	Notify       bool
}

// ProcessCards creates suspensions for red cards and for yellow cards that
// reach the accumulation threshold. Events are processed in minute order.
func (s *EligibilityService) ProcessCards(ctx context.Context, g game.Game, in CardInput, players map[string]player.Player) error {
	yellows := make(map[string]int, len(in.PriorYellows))
	for k, v := range in.PriorYellows {
		yellows[k] = v
	}

	for _, e := range in.Events {
		var ban int
		reason := ""
		switch e.Type {
		case match.EventYellowCard:
			yellows[e.PlayerID]++
			if yellows[e.PlayerID]%s.rules.YellowCardThreshold == 0 {
				ban = s.rules.YellowCardBan
				reason = fmt.Sprintf("%d yellow cards", yellows[e.PlayerID])
			}
		case match.EventRedCard:
			ban = s.rules.RedCardBan
			reason = "red card"
		default:
			continue
		}
		if ban <= 0 {
			continue
		}

		err := s.suspensions.Add(ctx, player.Suspension{
			GameID:           g.ID,
			PlayerID:         e.PlayerID,
			CompetitionID:    in.Match.CompetitionID,
			MatchesRemaining: ban,
			SourceMatchID:    in.Match.ID,
		})
		if err != nil {
			return fmt.Errorf("add suspension player=%s: %w", e.PlayerID, err)
		}

		p, ok := players[e.PlayerID]
		if !in.Notify || !ok || p.TeamID != g.TeamID || s.notifier == nil {
			continue
		}
		err = s.notifier.Notify(ctx, g, Message{
			Type:     notification.TypeSuspension,
			Title:    p.Name + " suspended",
			Body:     fmt.Sprintf("%s misses the next %d match(es) after a %s.", p.Name, ban, reason),
			Priority: notification.PriorityHigh,
			Metadata: map[string]any{"player_id": p.ID, "match_id": in.Match.ID, "competition_id": in.Match.CompetitionID},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ApplyInjuries records injury events as absences counted from date.
func (s *EligibilityService) ApplyInjuries(ctx context.Context, g game.Game, events []match.Event, date time.Time, players map[string]player.Player, notify bool) error {
	updates := make([]player.InjuryUpdate, 0, len(events))
	for _, e := range events {
		if e.Type != match.EventInjury {
			continue
		}
		weeks := e.InjuryWeeks()
		if weeks <= 0 {
			weeks = 1
		}
		until := date.AddDate(0, 0, 7*weeks)
		updates = append(updates, player.InjuryUpdate{
			PlayerID:      e.PlayerID,
			InjuryType:    e.InjuryType(),
			Until:         &until,
			SourceMatchID: e.MatchID,
		})
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.players.UpdateInjuries(ctx, g.ID, updates); err != nil {
		return fmt.Errorf("update injuries: %w", err)
	}
	if !notify || s.notifier == nil {
		return nil
	}
	for _, u := range updates {
		p, ok := players[u.PlayerID]
		if !ok || p.TeamID != g.TeamID {
			continue
		}
		err := s.notifier.Notify(ctx, g, Message{
			Type:     notification.TypeInjury,
			Title:    p.Name + " injured",
			Body:     fmt.Sprintf("%s picked up a %s and is out until %s.", p.Name, u.InjuryType, u.Until.Format(time.DateOnly)),
			Priority: notification.PriorityHigh,
			Metadata: map[string]any{"player_id": p.ID, "match_id": u.SourceMatchID},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RevertMatchEvents undoes the suspensions and injuries that removed events
// of a match caused.
func (s *EligibilityService) RevertMatchEvents(ctx context.Context, g game.Game, matchID string, removed []match.Event, players map[string]player.Player) error {
	carded := make([]string, 0)
	injured := make([]player.InjuryUpdate, 0)
	seen := make(map[string]struct{})
	for _, e := range removed {
		switch {
		case e.IsCard():
			if _, ok := seen[e.PlayerID]; !ok {
				seen[e.PlayerID] = struct{}{}
				carded = append(carded, e.PlayerID)
			}
		case e.Type == match.EventInjury:
			if p, ok := players[e.PlayerID]; ok && p.InjurySourceMatchID != matchID {
				continue
			}
			injured = append(injured, player.InjuryUpdate{PlayerID: e.PlayerID})
		}
	}

	if len(carded) > 0 {
		if err := s.suspensions.DeleteBySourceMatch(ctx, g.ID, matchID, carded); err != nil {
			return fmt.Errorf("delete suspensions from match=%s: %w", matchID, err)
		}
	}
	if len(injured) > 0 {
		if err := s.players.UpdateInjuries(ctx, g.ID, injured); err != nil {
			return fmt.Errorf("clear injuries from match=%s: %w", matchID, err)
		}
	}
	return nil
}

// SuspendedByCompetition indexes players with matches left to serve.
func (s *EligibilityService) SuspendedByCompetition(ctx context.Context, gameID string, competitionIDs []string) (map[string]map[string]bool, []player.Suspension, error) {
	active, err := s.suspensions.ListActive(ctx, gameID, competitionIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("list suspensions: %w", err)
	}
	out := make(map[string]map[string]bool, len(competitionIDs))
	for _, item := range active {
		if item.MatchesRemaining <= 0 {
			continue
		}
		if out[item.CompetitionID] == nil {
			out[item.CompetitionID] = make(map[string]bool)
		}
		out[item.CompetitionID][item.PlayerID] = true
	}
	return out, active, nil
}
