package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/domain/standing"
	"github.com/riskibarqy/career-engine/internal/platform/id"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
)

// CompetitionHandler carries the fixture rules of one competition format.
type CompetitionHandler interface {
	Type() competition.Format
	BeforeMatches(ctx context.Context, g game.Game, comp competition.Competition, date time.Time) error
	// AfterMatches runs once the batch is persisted. matches never contains
	// the match whose effects are deferred.
	AfterMatches(ctx context.Context, g game.Game, comp competition.Competition, matches []match.Match, players map[string]player.Player) error
}

// KnockoutGenerator is implemented by formats whose knockout phase is
// seeded from a league or group phase.
type KnockoutGenerator interface {
	GenerateKnockoutFixtures(ctx context.Context, g game.Game, comp competition.Competition, date time.Time) (int, error)
}

// DrawConductor is implemented by formats that draw knockout rounds.
type DrawConductor interface {
	ConductDraws(ctx context.Context, g game.Game, comp competition.Competition) (int, error)
}

// ProgressChecker reports end-of-competition outcomes to the user.
type ProgressChecker interface {
	CheckProgress(ctx context.Context, g game.Game, comp competition.Competition) error
}

// HandlerDeps are the collaborators shared by the format handlers.
type HandlerDeps struct {
	Competitions competition.Repository
	Matches      match.Repository
	Ties         match.CupTieRepository
	Standings    *StandingsCalculator
	Resolver     *CupTieResolver
	Notifier     *NotificationService
	IDs          id.Generator
	Rules        GameplayRules
	Logger       *logging.Logger
}

// HandlerResolver maps a competition format to its handler.
type HandlerResolver struct {
	handlers map[competition.Format]CompetitionHandler
}

func NewHandlerResolver(deps HandlerDeps) *HandlerResolver {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.IDs == nil {
		deps.IDs = id.NewUUIDGenerator()
	}
	engine := &knockoutEngine{
		competitions: deps.Competitions,
		matches:      deps.Matches,
		ties:         deps.Ties,
		resolver:     deps.Resolver,
		notifier:     deps.Notifier,
		ids:          deps.IDs,
		rules:        deps.Rules.withDefaults(),
		logger:       deps.Logger,
	}
	progress := &leagueProgress{
		matches:   deps.Matches,
		standings: deps.Standings,
		notifier:  deps.Notifier,
	}

	r := &HandlerResolver{handlers: make(map[competition.Format]CompetitionHandler)}
	r.Register(&leagueHandler{progress: progress})
	r.Register(&knockoutCupHandler{engine: engine})
	for _, format := range []competition.Format{competition.FormatLeagueWithPlayoff, competition.FormatSwiss, competition.FormatGroupStageCup} {
		r.Register(&hybridHandler{
			format:       format,
			engine:       engine,
			progress:     progress,
			competitions: deps.Competitions,
			standings:    deps.Standings,
		})
	}
	return r
}

// Register replaces the handler for h.Type().
func (r *HandlerResolver) Register(h CompetitionHandler) {
	r.handlers[h.Type()] = h
}

func (r *HandlerResolver) Resolve(format competition.Format) (CompetitionHandler, error) {
	h, ok := r.handlers[format]
	if !ok {
		return nil, fmt.Errorf("%w: no handler for competition format %q", ErrInvalidInput, format)
	}
	return h, nil
}

type leagueHandler struct {
	progress *leagueProgress
}

func (h *leagueHandler) Type() competition.Format { return competition.FormatLeague }

func (h *leagueHandler) BeforeMatches(context.Context, game.Game, competition.Competition, time.Time) error {
	return nil
}

func (h *leagueHandler) AfterMatches(context.Context, game.Game, competition.Competition, []match.Match, map[string]player.Player) error {
	return nil
}

func (h *leagueHandler) CheckProgress(ctx context.Context, g game.Game, comp competition.Competition) error {
	return h.progress.check(ctx, g, comp)
}

type knockoutCupHandler struct {
	engine *knockoutEngine
}

func (h *knockoutCupHandler) Type() competition.Format { return competition.FormatKnockoutCup }

func (h *knockoutCupHandler) BeforeMatches(context.Context, game.Game, competition.Competition, time.Time) error {
	return nil
}

func (h *knockoutCupHandler) AfterMatches(ctx context.Context, g game.Game, comp competition.Competition, matches []match.Match, _ map[string]player.Player) error {
	return h.engine.resolvePlayedTies(ctx, g, comp, matches, g.PendingFinalizationMatchID)
}

// ConductDraws draws round one from the entry list when nothing is drawn
// yet, otherwise the round after the latest completed one.
func (h *knockoutCupHandler) ConductDraws(ctx context.Context, g game.Game, comp competition.Competition) (int, error) {
	ties, err := h.engine.ties.ListByCompetition(ctx, g.ID, comp.ID)
	if err != nil {
		return 0, fmt.Errorf("list cup ties competition=%s: %w", comp.ID, err)
	}
	if len(ties) > 0 {
		return h.engine.drawNextRound(ctx, g, comp, false)
	}

	entries, err := h.engine.competitions.ListEntries(ctx, g.ID, comp.ID)
	if err != nil {
		return 0, fmt.Errorf("list entries competition=%s: %w", comp.ID, err)
	}
	if len(entries) < 2 {
		return 0, nil
	}
	teams := make([]string, 0, len(entries))
	for _, e := range entries {
		teams = append(teams, e.TeamID)
	}
	return h.engine.drawFirstRound(ctx, g, comp, teams, false, g.CurrentDate)
}

// hybridHandler drives formats with a league or group phase followed by a
// seeded knockout phase.
type hybridHandler struct {
	format       competition.Format
	engine       *knockoutEngine
	progress     *leagueProgress
	competitions competition.Repository
	standings    *StandingsCalculator
}

func (h *hybridHandler) Type() competition.Format { return h.format }

func (h *hybridHandler) BeforeMatches(context.Context, game.Game, competition.Competition, time.Time) error {
	return nil
}

func (h *hybridHandler) AfterMatches(ctx context.Context, g game.Game, comp competition.Competition, matches []match.Match, _ map[string]player.Player) error {
	return h.engine.resolvePlayedTies(ctx, g, comp, matches, g.PendingFinalizationMatchID)
}

func (h *hybridHandler) ConductDraws(ctx context.Context, g game.Game, comp competition.Competition) (int, error) {
	return h.engine.drawNextRound(ctx, g, comp, true)
}

func (h *hybridHandler) CheckProgress(ctx context.Context, g game.Game, comp competition.Competition) error {
	if h.format == competition.FormatGroupStageCup {
		return nil
	}
	return h.progress.check(ctx, g, comp)
}

// GenerateKnockoutFixtures seeds the first knockout round once every
// league-phase match is played. Later rounds are drawn from winners.
func (h *hybridHandler) GenerateKnockoutFixtures(ctx context.Context, g game.Game, comp competition.Competition, date time.Time) (int, error) {
	ties, err := h.engine.ties.ListByCompetition(ctx, g.ID, comp.ID)
	if err != nil {
		return 0, fmt.Errorf("list cup ties competition=%s: %w", comp.ID, err)
	}
	if len(ties) > 0 {
		return h.engine.drawNextRound(ctx, g, comp, true)
	}

	matches, err := h.engine.matches.ListByCompetition(ctx, g.ID, comp.ID)
	if err != nil {
		return 0, fmt.Errorf("list matches competition=%s: %w", comp.ID, err)
	}
	if len(matches) == 0 {
		return 0, nil
	}
	var last time.Time
	for _, m := range matches {
		if !m.Played && !m.IsCupTie() {
			return 0, nil
		}
		if m.ScheduledDate.After(last) {
			last = m.ScheduledDate
		}
	}

	ranked, err := h.standings.Ranked(ctx, g.ID, comp.ID)
	if err != nil {
		return 0, err
	}
	seeds := h.seeds(comp, ranked)
	if len(seeds) < 2 {
		return 0, nil
	}
	if err := h.notifyQualification(ctx, g, comp, ranked, seeds); err != nil {
		return 0, err
	}

	base := last
	if date.After(base) {
		base = date
	}
	return h.engine.drawFirstRound(ctx, g, comp, seeds, true, base)
}

// seeds lists knockout qualifiers in seed order.
func (h *hybridHandler) seeds(comp competition.Competition, ranked []standing.Standing) []string {
	switch h.format {
	case competition.FormatLeagueWithPlayoff:
		return standing.TeamsInPositions(ranked, "", comp.PlayoffFrom, comp.PlayoffTo)
	case competition.FormatSwiss:
		return standing.TeamsInPositions(ranked, "", comp.KnockoutSeedFrom, comp.KnockoutSeedTo)
	case competition.FormatGroupStageCup:
		qualifiers := comp.GroupQualifiers
		if qualifiers <= 0 {
			qualifiers = 2
		}
		groups := standing.Groups(ranked)
		out := make([]string, 0, qualifiers*len(groups))
		// group winners are seeded above runners-up
		for pos := 1; pos <= qualifiers; pos++ {
			for _, group := range groups {
				out = append(out, standing.TeamsInPositions(ranked, group, pos, pos)...)
			}
		}
		return out
	default:
		return nil
	}
}

func (h *hybridHandler) notifyQualification(ctx context.Context, g game.Game, comp competition.Competition, ranked []standing.Standing, seeds []string) error {
	if h.engine.notifier == nil {
		return nil
	}
	inTable := false
	for _, row := range ranked {
		if row.TeamID == g.TeamID {
			inTable = true
			break
		}
	}
	if !inTable {
		return nil
	}

	msg := Message{
		DedupeKey: "knockout_phase:" + g.Season + ":" + comp.ID,
		Metadata:  map[string]any{"competition_id": comp.ID},
	}
	if containsString(seeds, g.TeamID) {
		msg.Type = notification.TypeCompetitionAdvanced
		msg.Title = "Into the " + comp.Name + " knockout phase"
		msg.Body = "Your team qualified for the knockout phase of the " + comp.Name + "."
	} else {
		msg.Type = notification.TypeCompetitionEliminate
		msg.Title = "Out of the " + comp.Name
		msg.Body = "Your team did not qualify for the knockout phase of the " + comp.Name + "."
	}
	_, err := h.engine.notifier.NotifyOnce(ctx, g, msg)
	return err
}

// leagueProgress sends title, promotion and relegation messages once the
// user's league phase is finished.
type leagueProgress struct {
	matches   match.Repository
	standings *StandingsCalculator
	notifier  *NotificationService
}

func (p *leagueProgress) check(ctx context.Context, g game.Game, comp competition.Competition) error {
	if p.notifier == nil || !comp.Participating {
		return nil
	}
	matches, err := p.matches.ListByCompetition(ctx, g.ID, comp.ID)
	if err != nil {
		return fmt.Errorf("list matches competition=%s: %w", comp.ID, err)
	}
	if len(matches) == 0 {
		return nil
	}
	for _, m := range matches {
		if !m.Played && !m.IsCupTie() {
			return nil
		}
	}

	ranked, err := p.standings.Ranked(ctx, g.ID, comp.ID)
	if err != nil {
		return err
	}
	position := 0
	for _, row := range ranked {
		if row.TeamID == g.TeamID {
			position = row.Position
			break
		}
	}
	if position == 0 {
		return nil
	}

	msg := Message{
		DedupeKey: "league_final:" + g.Season + ":" + comp.ID,
		Priority:  notification.PriorityHigh,
		Metadata:  map[string]any{"competition_id": comp.ID, "position": position},
	}
	switch {
	case position == 1 && comp.Format == competition.FormatLeague:
		msg.Type = notification.TypeTitleWon
		msg.Title = comp.Name + " champions"
		msg.Body = "Your team won the " + comp.Name + "."
	case comp.PromotesToID != "" && position <= comp.PromotionSpots:
		msg.Type = notification.TypePromotion
		msg.Title = "Promoted"
		msg.Body = fmt.Sprintf("Your team finished %d and will be promoted.", position)
	case comp.RelegatesToID != "" && position > len(ranked)-comp.RelegationSpots:
		msg.Type = notification.TypeRelegation
		msg.Title = "Relegated"
		msg.Body = fmt.Sprintf("Your team finished %d and will be relegated.", position)
	default:
		return nil
	}
	_, err = p.notifier.NotifyOnce(ctx, g, msg)
	return err
}
