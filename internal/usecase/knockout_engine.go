package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/platform/id"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
)

// knockoutEngine draws and schedules knockout rounds and reports tie
// outcomes. It is shared by every format with a knockout phase.
type knockoutEngine struct {
	competitions competition.Repository
	matches      match.Repository
	ties         match.CupTieRepository
	resolver     *CupTieResolver
	notifier     *NotificationService
	ids          id.Generator
	rules        GameplayRules
	logger       *logging.Logger
}

// drawRNG is deterministic per save, competition and round.
func drawRNG(gameID, competitionID string, round int) *rand.Rand {
	return seededRNG(gameID, competitionID, strconv.Itoa(round))
}

// seededRNG derives a reproducible generator from the given key parts.
func seededRNG(parts ...string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(parts, "|")))
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// roundsByNumber groups ties by knockout round and returns the highest
// round drawn so far.
func roundsByNumber(ties []match.CupTie) (map[int][]match.CupTie, int) {
	out := make(map[int][]match.CupTie)
	latest := 0
	for _, t := range ties {
		out[t.RoundNumber] = append(out[t.RoundNumber], t)
		if t.RoundNumber > latest {
			latest = t.RoundNumber
		}
	}
	for round := range out {
		sort.SliceStable(out[round], func(i, j int) bool { return out[round][i].ID < out[round][j].ID })
	}
	return out, latest
}

// drawNextRound pairs the winners of the latest completed round. Seeded
// draws keep the given order; open draws are shuffled. It returns the number
// of ties created.
func (k *knockoutEngine) drawNextRound(ctx context.Context, g game.Game, comp competition.Competition, seeded bool) (int, error) {
	ties, err := k.ties.ListByCompetition(ctx, g.ID, comp.ID)
	if err != nil {
		return 0, fmt.Errorf("list cup ties competition=%s: %w", comp.ID, err)
	}
	if len(ties) == 0 {
		return 0, nil
	}

	byRound, latest := roundsByNumber(ties)
	winners := make([]string, 0, len(byRound[latest]))
	for _, t := range byRound[latest] {
		if !t.Completed {
			return 0, nil
		}
		winners = append(winners, t.WinnerID)
	}
	if len(winners) < 2 {
		return 0, nil
	}
	if !seeded {
		rng := drawRNG(g.ID, comp.ID, latest+1)
		rng.Shuffle(len(winners), func(i, j int) { winners[i], winners[j] = winners[j], winners[i] })
	}

	base, err := k.lastLegDate(ctx, g.ID, byRound[latest])
	if err != nil {
		return 0, err
	}
	return k.createRound(ctx, g, comp, latest+1, winners, base)
}

// drawFirstRound draws round one from a team list.
func (k *knockoutEngine) drawFirstRound(ctx context.Context, g game.Game, comp competition.Competition, teams []string, seeded bool, base time.Time) (int, error) {
	teams = append([]string(nil), teams...)
	if !seeded {
		rng := drawRNG(g.ID, comp.ID, 1)
		rng.Shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })
	}
	return k.createRound(ctx, g, comp, 1, teams, base)
}

func (k *knockoutEngine) lastLegDate(ctx context.Context, gameID string, ties []match.CupTie) (time.Time, error) {
	ids := make([]string, 0, len(ties)*2)
	for _, t := range ties {
		if t.FirstLegMatchID != "" {
			ids = append(ids, t.FirstLegMatchID)
		}
		if t.SecondLegMatchID != "" {
			ids = append(ids, t.SecondLegMatchID)
		}
	}
	matches, err := k.matches.GetByIDs(ctx, gameID, ids)
	if err != nil {
		return time.Time{}, fmt.Errorf("get knockout legs: %w", err)
	}
	var last time.Time
	for _, m := range matches {
		if m.ScheduledDate.After(last) {
			last = m.ScheduledDate
		}
	}
	return last, nil
}

// createRound schedules one knockout round, pairing teams first against
// last. With an odd count the first team gets a walkover.
func (k *knockoutEngine) createRound(ctx context.Context, g game.Game, comp competition.Competition, number int, teams []string, base time.Time) (int, error) {
	round, err := k.roundDefinition(ctx, g, comp, number, len(teams), base)
	if err != nil {
		return 0, err
	}

	var bye string
	if len(teams)%2 == 1 {
		bye = teams[0]
		teams = teams[1:]
	}
	pairs := competition.SeedPairs(teams)

	ties := make([]match.CupTie, 0, len(pairs)+1)
	matches := make([]match.Match, 0, len(pairs)*2)
	for _, pair := range pairs {
		tieID, err := k.ids.NewID()
		if err != nil {
			return 0, fmt.Errorf("generate cup tie id: %w", err)
		}
		tie := match.CupTie{
			ID:            tieID,
			GameID:        g.ID,
			CompetitionID: comp.ID,
			RoundNumber:   number,
			HomeTeamID:    pair[0],
			AwayTeamID:    pair[1],
		}

		first, err := k.newLeg(g, comp, round, tieID, pair[0], pair[1], round.FirstLegDate)
		if err != nil {
			return 0, err
		}
		tie.FirstLegMatchID = first.ID
		matches = append(matches, first)

		if round.TwoLegged() {
			second, err := k.newLeg(g, comp, round, tieID, pair[1], pair[0], *round.SecondLegDate)
			if err != nil {
				return 0, err
			}
			tie.SecondLegMatchID = second.ID
			matches = append(matches, second)
		}
		ties = append(ties, tie)
	}
	if bye != "" {
		tieID, err := k.ids.NewID()
		if err != nil {
			return 0, fmt.Errorf("generate cup tie id: %w", err)
		}
		ties = append(ties, match.CupTie{
			ID:            tieID,
			GameID:        g.ID,
			CompetitionID: comp.ID,
			RoundNumber:   number,
			HomeTeamID:    bye,
			WinnerID:      bye,
			Completed:     true,
			Resolution:    &match.Resolution{Type: match.ResolutionWalkover},
		})
	}

	if err := k.matches.InsertBatch(ctx, matches); err != nil {
		return 0, fmt.Errorf("insert knockout matches competition=%s round=%d: %w", comp.ID, number, err)
	}
	if err := k.ties.InsertBatch(ctx, ties); err != nil {
		return 0, fmt.Errorf("insert cup ties competition=%s round=%d: %w", comp.ID, number, err)
	}

	k.logger.InfoContext(ctx, "knockout round drawn",
		"game_id", g.ID,
		"competition_id", comp.ID,
		"round", number,
		"ties", len(ties),
	)
	return len(ties), nil
}

// roundDefinition returns the stored round or derives one from base. Dates
// in the past move to a week after the current date.
func (k *knockoutEngine) roundDefinition(ctx context.Context, g game.Game, comp competition.Competition, number, teams int, base time.Time) (competition.Round, error) {
	rounds, err := k.competitions.ListRounds(ctx, g.ID, comp.ID)
	if err != nil {
		return competition.Round{}, fmt.Errorf("list rounds competition=%s: %w", comp.ID, err)
	}
	for _, r := range rounds {
		if r.Number == number && r.Knockout {
			return k.reschedule(r, g.CurrentDate, teams, comp), nil
		}
	}

	interval := k.rules.FixtureInterval
	if base.IsZero() {
		base = g.CurrentDate
	}
	r := competition.Round{
		CompetitionID: comp.ID,
		Number:        number,
		Name:          competition.RoundName(teams + teams%2),
		FirstLegDate:  base.Add(2 * interval),
		Knockout:      true,
	}
	r = k.reschedule(r, g.CurrentDate, teams, comp)
	if err := k.competitions.UpsertRounds(ctx, g.ID, []competition.Round{r}); err != nil {
		return competition.Round{}, fmt.Errorf("save round competition=%s round=%d: %w", comp.ID, number, err)
	}
	return r, nil
}

func (k *knockoutEngine) reschedule(r competition.Round, current time.Time, teams int, comp competition.Competition) competition.Round {
	interval := k.rules.FixtureInterval
	if r.FirstLegDate.Before(current) {
		r.FirstLegDate = current.Add(interval)
		r.SecondLegDate = nil
	}
	// finals are always one match
	final := teams <= 2
	switch {
	case final:
		r.SecondLegDate = nil
	case r.SecondLegDate == nil && comp.TwoLeggedKnockout:
		second := r.FirstLegDate.Add(interval)
		r.SecondLegDate = &second
	}
	if r.Name == "" {
		r.Name = competition.RoundName(teams + teams%2)
	}
	return r
}

func (k *knockoutEngine) newLeg(g game.Game, comp competition.Competition, round competition.Round, tieID, home, away string, date time.Time) (match.Match, error) {
	matchID, err := k.ids.NewID()
	if err != nil {
		return match.Match{}, fmt.Errorf("generate match id: %w", err)
	}
	return match.Match{
		ID:            matchID,
		GameID:        g.ID,
		CompetitionID: comp.ID,
		RoundNumber:   round.Number,
		RoundName:     round.Name,
		CupTieID:      tieID,
		HomeTeamID:    home,
		AwayTeamID:    away,
		ScheduledDate: date,
	}, nil
}

// resolvePlayedTies resolves every tie touched by matches whose legs are
// all played, skipping ties of excluded matches.
func (k *knockoutEngine) resolvePlayedTies(ctx context.Context, g game.Game, comp competition.Competition, matches []match.Match, exclude string) error {
	seen := make(map[string]struct{})
	for _, m := range matches {
		if !m.IsCupTie() || !m.Played || m.CompetitionID != comp.ID || m.ID == exclude {
			continue
		}
		if _, ok := seen[m.CupTieID]; ok {
			continue
		}
		seen[m.CupTieID] = struct{}{}

		tie, ok, err := k.ties.GetByID(ctx, g.ID, m.CupTieID)
		if err != nil {
			return fmt.Errorf("get cup tie=%s: %w", m.CupTieID, err)
		}
		if !ok || tie.Completed {
			continue
		}
		if tie.TwoLegged() && (tie.FirstLegMatchID == exclude || tie.SecondLegMatchID == exclude) {
			continue
		}
		winner, err := k.resolver.Resolve(ctx, g, tie)
		if err != nil {
			return err
		}
		if winner == "" {
			continue
		}
		tie.WinnerID = winner
		tie.Completed = true
		if err := k.notifyTieOutcome(ctx, g, comp, tie); err != nil {
			return err
		}
	}
	return nil
}

// notifyTieOutcome tells the user whether their team went through.
func (k *knockoutEngine) notifyTieOutcome(ctx context.Context, g game.Game, comp competition.Competition, tie match.CupTie) error {
	return notifyTieOutcome(ctx, k.notifier, k.ties, g, comp, tie)
}

func notifyTieOutcome(ctx context.Context, notifier *NotificationService, tieRepo match.CupTieRepository, g game.Game, comp competition.Competition, tie match.CupTie) error {
	if notifier == nil || !tie.Involves(g.TeamID) || !tie.Completed {
		return nil
	}

	ties, err := tieRepo.ListByCompetition(ctx, g.ID, comp.ID)
	if err != nil {
		return fmt.Errorf("list cup ties competition=%s: %w", comp.ID, err)
	}
	byRound, _ := roundsByNumber(ties)
	final := len(byRound[tie.RoundNumber]) == 1

	msg := Message{
		DedupeKey: "tie:" + tie.ID,
		Metadata: map[string]any{
			"competition_id": comp.ID,
			"cup_tie_id":     tie.ID,
			"round":          tie.RoundNumber,
			"winner_id":      tie.WinnerID,
			"loser_id":       tie.LoserID(),
		},
	}
	switch {
	case tie.WinnerID == g.TeamID && final:
		msg.Type = notification.TypeTitleWon
		msg.Title = comp.Name + " winners"
		msg.Body = "Your team won the " + comp.Name + "."
		msg.Priority = notification.PriorityHigh
	case tie.WinnerID == g.TeamID:
		msg.Type = notification.TypeCompetitionAdvanced
		msg.Title = "Through in the " + comp.Name
		msg.Body = "Your team advanced past round " + strconv.Itoa(tie.RoundNumber) + " of the " + comp.Name + "."
	default:
		msg.Type = notification.TypeCompetitionEliminate
		msg.Title = "Out of the " + comp.Name
		msg.Body = "Your team was knocked out of the " + comp.Name + " in round " + strconv.Itoa(tie.RoundNumber) + "."
	}
	_, err = notifier.NotifyOnce(ctx, g, msg)
	return err
}
