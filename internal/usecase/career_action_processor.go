package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/career"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/platform/id"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/riskibarqy/career-engine/internal/platform/metrics"
	"go.opentelemetry.io/otel/attribute"
)

const (
	maxPendingIncomingOffers = 3
	incomingOfferChance      = 0.35
	offerExpiryWarning       = 3 * 24 * time.Hour
	scoutingShortlistSize    = 5
)

// CareerActionProcessor advances the background career state of a save:
// transfers, contracts, loans, scouting and the academy. It is the only
// writer of that state and runs outside the advance transaction.
type CareerActionProcessor struct {
	tx       Transactor
	games    game.Repository
	career   career.Repository
	players  player.Repository
	notifier *NotificationService
	ids      id.Generator
	rules    GameplayRules
	metrics  *metrics.Recorder
	logger   *logging.Logger
}

func NewCareerActionProcessor(
	tx Transactor,
	games game.Repository,
	careerRepo career.Repository,
	players player.Repository,
	notifier *NotificationService,
	ids id.Generator,
	rules GameplayRules,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) *CareerActionProcessor {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &CareerActionProcessor{
		tx:       tx,
		games:    games,
		career:   careerRepo,
		players:  players,
		notifier: notifier,
		ids:      ids,
		rules:    rules.withDefaults(),
		metrics:  recorder,
		logger:   logger,
	}
}

// tickState is what one run shares between its ticks.
type tickState struct {
	g       *game.Game
	date    time.Time
	rng     *rand.Rand
	players map[string]player.Player
	changed map[string]struct{}
}

func (t *tickState) put(p player.Player) {
	t.players[p.ID] = p
	t.changed[p.ID] = struct{}{}
}

// aiTeams lists every club in the save except the user's, in id order.
func (t *tickState) aiTeams() []string {
	seen := make(map[string]struct{})
	for _, p := range t.players {
		if p.TeamID == "" || p.TeamID == t.g.TeamID {
			continue
		}
		seen[p.TeamID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for teamID := range seen {
		out = append(out, teamID)
	}
	sort.Strings(out)
	return out
}

func (t *tickState) squad(teamID string) []player.Player {
	out := make([]player.Player, 0, 30)
	for _, p := range t.players {
		if p.TeamID == teamID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run processes job.Ticks career ticks under the save lock. The single-flight
// claim is released whatever the outcome.
func (p *CareerActionProcessor) Run(ctx context.Context, job CareerActionJob) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.CareerActionProcessor.Run",
		attribute.String("game.id", job.GameID),
		attribute.Int("ticks", job.Ticks),
	)
	defer span.End()

	job.GameID = strings.TrimSpace(job.GameID)
	if job.GameID == "" {
		return fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	defer p.release(ctx, job)

	ticks := job.Ticks
	if ticks <= 0 {
		ticks = 1
	}
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		g, ok, err := p.games.LockForUpdate(ctx, job.GameID)
		if err != nil {
			return fmt.Errorf("lock game=%s: %w", job.GameID, err)
		}
		if !ok {
			return fmt.Errorf("%w: game=%s", ErrNotFound, job.GameID)
		}
		list, err := p.players.ListByGame(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("list players game=%s: %w", g.ID, err)
		}

		budget := g.Budget
		state := &tickState{g: &g, date: g.CurrentDate, players: playersByID(list)}
		for i := 0; i < ticks; i++ {
			state.rng = seededRNG(g.ID, job.DispatchID, g.CurrentDate.Format(time.DateOnly), strconv.Itoa(i))
			state.changed = make(map[string]struct{})
			if err := p.tick(ctx, state); err != nil {
				return fmt.Errorf("career tick %d/%d: %w", i+1, ticks, err)
			}
		}
		if g.Budget == budget {
			return nil
		}
		if err := p.games.Update(ctx, g); err != nil {
			return fmt.Errorf("update game budget=%s: %w", g.ID, err)
		}
		return nil
	})
	if err != nil {
		p.logger.WarnContext(ctx, "career ticks failed", "game_id", job.GameID, "dispatch_id", job.DispatchID, "error", err)
		return err
	}

	p.metrics.CareerTicks(ticks)
	p.logger.InfoContext(ctx, "career ticks processed", "game_id", job.GameID, "dispatch_id", job.DispatchID, "ticks", ticks)
	return nil
}

func (p *CareerActionProcessor) release(ctx context.Context, job CareerActionJob) {
	if err := p.games.ReleaseCareerActions(context.WithoutCancel(ctx), job.GameID, job.ClaimedAt); err != nil {
		p.logger.WarnContext(ctx, "release career actions claim failed", "game_id", job.GameID, "error", err)
	}
}

func (p *CareerActionProcessor) tick(ctx context.Context, t *tickState) error {
	steps := []struct {
		name string
		run  func(context.Context, *tickState) error
	}{
		{"complete_transfers", p.completeAgreedTransfers},
		{"generate_offers", p.generateOffers},
		{"resolve_negotiations", p.resolveNegotiations},
		{"resolve_bids", p.resolveBids},
		{"resolve_loan_requests", p.resolveLoanRequests},
		{"advance_scouting", p.advanceScouting},
		{"loan_searches", p.processLoanSearches},
		{"expiring_offers", p.flagExpiringOffers},
		{"academy", p.advanceAcademy},
		{"transfer_windows", p.transferWindows},
	}
	for _, step := range steps {
		if err := step.run(ctx, t); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return p.savePlayers(ctx, t)
}

func (p *CareerActionProcessor) savePlayers(ctx context.Context, t *tickState) error {
	if len(t.changed) == 0 {
		return nil
	}
	out := make([]player.Player, 0, len(t.changed))
	for playerID := range t.changed {
		out = append(out, t.players[playerID])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if err := p.players.SaveBatch(ctx, out); err != nil {
		return fmt.Errorf("save players: %w", err)
	}
	return nil
}

func (p *CareerActionProcessor) notify(ctx context.Context, t *tickState, msg Message) error {
	if p.notifier == nil {
		return nil
	}
	return p.notifier.Notify(ctx, *t.g, msg)
}

// completeAgreedTransfers moves players whose fee was agreed. Registrations
// only go through while a window is open.
func (p *CareerActionProcessor) completeAgreedTransfers(ctx context.Context, t *tickState) error {
	if _, open := career.OpenWindow(p.rules.TransferWindows, t.date); !open {
		return nil
	}
	offers, err := p.career.ListOffers(ctx, t.g.ID, career.OfferAgreed)
	if err != nil {
		return fmt.Errorf("list agreed offers: %w", err)
	}
	if len(offers) == 0 {
		return nil
	}

	for i, o := range offers {
		pl, ok := t.players[o.PlayerID]
		if !ok || pl.TeamID != o.FromTeamID {
			offers[i].Status = career.OfferExpired
			continue
		}
		if !o.Incoming && t.g.Budget < o.Fee {
			offers[i].Status = career.OfferRejected
			if err := p.notify(ctx, t, Message{
				Type:     notification.TypeTransferOffer,
				Title:    "Transfer collapsed",
				Body:     fmt.Sprintf("The move for %s fell through: the budget no longer covers the fee.", pl.Name),
				Metadata: map[string]any{"offer_id": o.ID, "player_id": pl.ID},
			}); err != nil {
				return err
			}
			continue
		}

		pl.TeamID = o.ToTeamID
		pl.ParentTeamID = ""
		pl.RetiringAtSeasonEnd = false
		t.put(pl)
		if o.Incoming {
			t.g.Budget += o.Fee
		} else {
			t.g.Budget -= o.Fee
		}
		offers[i].Status = career.OfferCompleted

		title := pl.Name + " signed"
		if o.Incoming {
			title = pl.Name + " sold"
		}
		if err := p.notify(ctx, t, Message{
			Type:     notification.TypeTransferCompleted,
			Title:    title,
			Body:     fmt.Sprintf("%s has moved for a fee of %d.", pl.Name, o.Fee),
			Priority: notification.PriorityHigh,
			Metadata: map[string]any{"offer_id": o.ID, "player_id": pl.ID, "fee": o.Fee},
		}); err != nil {
			return err
		}
	}
	if err := p.career.SaveOffers(ctx, offers); err != nil {
		return fmt.Errorf("save completed offers: %w", err)
	}
	return nil
}

// generateOffers lets AI clubs bid for the user's players while a window
// is open.
func (p *CareerActionProcessor) generateOffers(ctx context.Context, t *tickState) error {
	if _, open := career.OpenWindow(p.rules.TransferWindows, t.date); !open {
		return nil
	}
	pending, err := p.career.ListOffers(ctx, t.g.ID, career.OfferPending)
	if err != nil {
		return fmt.Errorf("list pending offers: %w", err)
	}
	targeted := make(map[string]struct{})
	incoming := 0
	for _, o := range pending {
		if o.Incoming {
			incoming++
			targeted[o.PlayerID] = struct{}{}
		}
	}
	if incoming >= maxPendingIncomingOffers || t.rng.Float64() >= incomingOfferChance {
		return nil
	}

	candidates := make([]player.Player, 0)
	for _, pl := range t.squad(t.g.TeamID) {
		if _, ok := targeted[pl.ID]; ok || pl.OnLoan() {
			continue
		}
		candidates = append(candidates, pl)
	}
	buyers := t.aiTeams()
	if len(candidates) == 0 || len(buyers) == 0 {
		return nil
	}

	target := candidates[t.rng.IntN(len(candidates))]
	buyer := buyers[t.rng.IntN(len(buyers))]
	offerID, err := p.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate offer id: %w", err)
	}
	offer := career.TransferOffer{
		ID:         offerID,
		GameID:     t.g.ID,
		PlayerID:   target.ID,
		FromTeamID: t.g.TeamID,
		ToTeamID:   buyer,
		Fee:        target.MarketValue * int64(80+t.rng.IntN(50)) / 100,
		Status:     career.OfferPending,
		Incoming:   true,
		CreatedAt:  t.date,
		ExpiresAt:  t.date.Add(p.rules.OfferLifetime),
	}
	if err := p.career.SaveOffers(ctx, []career.TransferOffer{offer}); err != nil {
		return fmt.Errorf("save generated offer: %w", err)
	}
	return p.notify(ctx, t, Message{
		Type:     notification.TypeTransferOffer,
		Title:    "Offer for " + target.Name,
		Body:     fmt.Sprintf("A club has bid %d for %s. The offer expires on %s.", offer.Fee, target.Name, offer.ExpiresAt.Format(time.DateOnly)),
		Metadata: map[string]any{"offer_id": offer.ID, "player_id": target.ID, "buyer_team_id": buyer},
	})
}

// resolveNegotiations computes the player's reply to renewal and
// pre-contract offers whose response is due. Accepted pre-contracts take
// effect when the current contract runs out.
func (p *CareerActionProcessor) resolveNegotiations(ctx context.Context, t *tickState) error {
	pending, err := p.career.ListNegotiations(ctx, t.g.ID, career.DecisionPending)
	if err != nil {
		return fmt.Errorf("list negotiations: %w", err)
	}
	due := make([]career.ContractNegotiation, 0, len(pending))
	for _, n := range pending {
		if n.RespondAt.After(t.date) {
			continue
		}
		pl, ok := t.players[n.PlayerID]
		accepted := ok && career.AcceptsRenewal(n, t.rng)
		n.Status = career.DecisionRejected
		if accepted {
			n.Status = career.DecisionAccepted
		}
		due = append(due, n)

		if accepted && n.Kind == career.NegotiationRenewal {
			from := pl.ContractUntil
			if from.Before(t.date) {
				from = t.date
			}
			pl.ContractUntil = from.AddDate(n.Years, 0, 0)
			pl.Wage = n.OfferedWage
			pl.RetiringAtSeasonEnd = false
			t.put(pl)
		}

		title, body := contractReply(n, pl.Name)
		if err := p.notify(ctx, t, Message{
			Type:     notification.TypeContract,
			Title:    title,
			Body:     body,
			Metadata: map[string]any{"negotiation_id": n.ID, "player_id": n.PlayerID, "kind": string(n.Kind)},
		}); err != nil {
			return err
		}
	}
	if len(due) == 0 {
		return nil
	}
	if err := p.career.SaveNegotiations(ctx, due); err != nil {
		return fmt.Errorf("save negotiations: %w", err)
	}
	return nil
}

func contractReply(n career.ContractNegotiation, name string) (string, string) {
	switch {
	case n.Status == career.DecisionAccepted && n.Kind == career.NegotiationPreContract:
		return name + " agrees pre-contract", fmt.Sprintf("%s will join when the current contract expires.", name)
	case n.Status == career.DecisionAccepted:
		return name + " renews", fmt.Sprintf("%s signed a %d-year extension.", name, n.Years)
	default:
		return name + " rejects offer", fmt.Sprintf("%s turned down a wage of %d.", name, n.OfferedWage)
	}
}

// resolveBids decides pending offers the user has already answered: the
// selling club for the user's bids, the buying club for counter-offers.
func (p *CareerActionProcessor) resolveBids(ctx context.Context, t *tickState) error {
	pending, err := p.career.ListOffers(ctx, t.g.ID, career.OfferPending)
	if err != nil {
		return fmt.Errorf("list pending offers: %w", err)
	}
	due := make([]career.TransferOffer, 0)
	for _, o := range pending {
		if o.RespondAt == nil || o.RespondAt.After(t.date) {
			continue
		}
		pl := t.players[o.PlayerID]
		value := pl.MarketValue
		if value <= 0 {
			value = player.MarketValue(pl, t.date)
		}
		agreed := career.AcceptsBid(o.Fee, value, t.rng)
		if o.Incoming {
			// the buyer walks away from a counter-offer far above value
			agreed = o.Fee <= value*13/10 || t.rng.IntN(3) == 0
		}
		o.Status = career.OfferRejected
		title := "Bid rejected"
		if agreed {
			o.Status = career.OfferAgreed
			title = "Fee agreed"
		}
		due = append(due, o)

		if err := p.notify(ctx, t, Message{
			Type:     notification.TypeTransferOffer,
			Title:    title,
			Body:     fmt.Sprintf("%s: %d for %s.", title, o.Fee, pl.Name),
			Metadata: map[string]any{"offer_id": o.ID, "player_id": o.PlayerID, "status": string(o.Status)},
		}); err != nil {
			return err
		}
	}
	if len(due) == 0 {
		return nil
	}
	if err := p.career.SaveOffers(ctx, due); err != nil {
		return fmt.Errorf("save resolved offers: %w", err)
	}
	return nil
}

// resolveLoanRequests settles loan moves the user approved once the player
// has given an answer.
func (p *CareerActionProcessor) resolveLoanRequests(ctx context.Context, t *tickState) error {
	pending, err := p.career.ListLoanRequests(ctx, t.g.ID, career.DecisionPending)
	if err != nil {
		return fmt.Errorf("list loan requests: %w", err)
	}
	due := make([]career.LoanRequest, 0, len(pending))
	loans := make([]career.Loan, 0)
	for _, r := range pending {
		if r.RespondAt.After(t.date) {
			continue
		}
		pl, ok := t.players[r.PlayerID]
		r.Status = career.DecisionRejected
		if ok && pl.TeamID == r.FromTeamID && career.AcceptsLoan(pl.Appearances, pl.Age, t.rng) {
			r.Status = career.DecisionAccepted
			loan, err := p.startLoan(t, pl, r.ToTeamID)
			if err != nil {
				return err
			}
			loans = append(loans, loan)
		}
		due = append(due, r)

		verb := "declined"
		if r.Status == career.DecisionAccepted {
			verb = "agreed"
		}
		if err := p.notify(ctx, t, Message{
			Type:     notification.TypeLoan,
			Title:    "Loan " + verb,
			Body:     fmt.Sprintf("%s %s the loan move.", pl.Name, verb),
			Metadata: map[string]any{"loan_request_id": r.ID, "player_id": r.PlayerID},
		}); err != nil {
			return err
		}
	}
	if len(due) == 0 {
		return nil
	}
	if err := p.career.SaveLoanRequests(ctx, due); err != nil {
		return fmt.Errorf("save loan requests: %w", err)
	}
	if len(loans) > 0 {
		if err := p.career.SaveLoans(ctx, loans); err != nil {
			return fmt.Errorf("save loans: %w", err)
		}
	}
	return nil
}

func (p *CareerActionProcessor) startLoan(t *tickState, pl player.Player, loanTeamID string) (career.Loan, error) {
	loanID, err := p.ids.NewID()
	if err != nil {
		return career.Loan{}, fmt.Errorf("generate loan id: %w", err)
	}
	loan := career.Loan{
		ID:           loanID,
		GameID:       t.g.ID,
		PlayerID:     pl.ID,
		ParentTeamID: pl.TeamID,
		LoanTeamID:   loanTeamID,
		StartedAt:    t.date,
		Active:       true,
	}
	pl.ParentTeamID = pl.TeamID
	pl.TeamID = loanTeamID
	t.put(pl)
	return loan, nil
}

// advanceScouting moves every running search on by one week and produces a
// shortlist when it finishes.
func (p *CareerActionProcessor) advanceScouting(ctx context.Context, t *tickState) error {
	searches, err := p.career.ListScoutingSearches(ctx, t.g.ID, career.SearchInProgress)
	if err != nil {
		return fmt.Errorf("list scouting searches: %w", err)
	}
	if len(searches) == 0 {
		return nil
	}
	for i := range searches {
		s := &searches[i]
		s.WeeksElapsed++
		total := s.WeeksTotal
		if total <= 0 {
			total = p.rules.ScoutingWeeks
		}
		if s.WeeksElapsed < total {
			continue
		}
		s.Status = career.SearchCompleted
		s.ResultPlayerIDs = p.shortlist(t, *s)
		if err := p.notify(ctx, t, Message{
			Type:     notification.TypeScouting,
			Title:    "Scouting report ready",
			Body:     fmt.Sprintf("Your scouts found %d %s target(s).", len(s.ResultPlayerIDs), s.Position),
			Metadata: map[string]any{"search_id": s.ID, "player_ids": s.ResultPlayerIDs},
		}); err != nil {
			return err
		}
	}
	if err := p.career.SaveScoutingSearches(ctx, searches); err != nil {
		return fmt.Errorf("save scouting searches: %w", err)
	}
	return nil
}

func (p *CareerActionProcessor) shortlist(t *tickState, s career.ScoutingSearch) []string {
	pool := make([]player.Player, 0)
	for _, pl := range t.players {
		if pl.TeamID == t.g.TeamID || string(pl.Position) != s.Position {
			continue
		}
		if s.MaxAge > 0 && pl.Age > s.MaxAge {
			continue
		}
		pool = append(pool, pl)
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Ability != pool[j].Ability {
			return pool[i].Ability > pool[j].Ability
		}
		return pool[i].ID < pool[j].ID
	})
	if len(pool) > scoutingShortlistSize {
		pool = pool[:scoutingShortlistSize]
	}
	out := make([]string, 0, len(pool))
	for _, pl := range pool {
		out = append(out, pl.ID)
	}
	return out
}

// processLoanSearches looks for a club to take a player once the search
// period runs out.
func (p *CareerActionProcessor) processLoanSearches(ctx context.Context, t *tickState) error {
	searches, err := p.career.ListLoanSearches(ctx, t.g.ID, career.SearchInProgress)
	if err != nil {
		return fmt.Errorf("list loan searches: %w", err)
	}
	if len(searches) == 0 {
		return nil
	}
	loans := make([]career.Loan, 0)
	clubs := t.aiTeams()
	for i := range searches {
		s := &searches[i]
		s.WeeksRemaining--
		if s.WeeksRemaining > 0 {
			continue
		}
		pl, ok := t.players[s.PlayerID]
		s.Status = career.SearchFailed
		if ok && len(clubs) > 0 && career.AcceptsLoan(pl.Appearances, pl.Age, t.rng) {
			club := clubs[t.rng.IntN(len(clubs))]
			loan, err := p.startLoan(t, pl, club)
			if err != nil {
				return err
			}
			loans = append(loans, loan)
			s.Status = career.SearchCompleted
			s.LoanTeamID = club
		}

		body := fmt.Sprintf("No club wanted %s on loan.", pl.Name)
		if s.Status == career.SearchCompleted {
			body = fmt.Sprintf("%s has joined a club on loan until the end of the season.", pl.Name)
		}
		if err := p.notify(ctx, t, Message{
			Type:     notification.TypeLoan,
			Title:    "Loan search finished",
			Body:     body,
			Metadata: map[string]any{"search_id": s.ID, "player_id": s.PlayerID, "status": string(s.Status)},
		}); err != nil {
			return err
		}
	}
	if err := p.career.SaveLoanSearches(ctx, searches); err != nil {
		return fmt.Errorf("save loan searches: %w", err)
	}
	if len(loans) > 0 {
		if err := p.career.SaveLoans(ctx, loans); err != nil {
			return fmt.Errorf("save loans: %w", err)
		}
	}
	return nil
}

// flagExpiringOffers warns about offers close to expiry and expires the
// ones past it.
func (p *CareerActionProcessor) flagExpiringOffers(ctx context.Context, t *tickState) error {
	pending, err := p.career.ListOffers(ctx, t.g.ID, career.OfferPending)
	if err != nil {
		return fmt.Errorf("list pending offers: %w", err)
	}
	changed := make([]career.TransferOffer, 0)
	for _, o := range pending {
		switch {
		case !o.ExpiresAt.After(t.date):
			o.Status = career.OfferExpired
			changed = append(changed, o)
		case !o.ExpiringFlag && o.ExpiresAt.Sub(t.date) <= offerExpiryWarning:
			o.ExpiringFlag = true
			changed = append(changed, o)
			name := t.players[o.PlayerID].Name
			if err := p.notify(ctx, t, Message{
				Type:     notification.TypeOfferExpiring,
				Title:    "Offer expiring",
				Body:     fmt.Sprintf("The offer for %s expires on %s.", name, o.ExpiresAt.Format(time.DateOnly)),
				Metadata: map[string]any{"offer_id": o.ID, "player_id": o.PlayerID},
			}); err != nil {
				return err
			}
		}
	}
	if len(changed) == 0 {
		return nil
	}
	if err := p.career.SaveOffers(ctx, changed); err != nil {
		return fmt.Errorf("save expiring offers: %w", err)
	}
	return nil
}

// advanceAcademy develops the prospects and flags those ready for an
// evaluation.
func (p *CareerActionProcessor) advanceAcademy(ctx context.Context, t *tickState) error {
	prospects, err := p.career.ListAcademyPlayers(ctx, t.g.ID, career.AcademyActive)
	if err != nil {
		return fmt.Errorf("list academy players: %w", err)
	}
	if len(prospects) == 0 {
		return nil
	}
	for i := range prospects {
		a := &prospects[i]
		a.Progress += 1 + t.rng.IntN(3)
		if a.Ability < a.Potential && t.rng.IntN(4) == 0 {
			a.Ability++
		}
	}
	if err := p.flagAcademyEvaluations(ctx, t, prospects); err != nil {
		return err
	}
	if err := p.career.SaveAcademyPlayers(ctx, prospects); err != nil {
		return fmt.Errorf("save academy players: %w", err)
	}
	return nil
}

func (p *CareerActionProcessor) flagAcademyEvaluations(ctx context.Context, t *tickState, prospects []career.AcademyPlayer) error {
	for i := range prospects {
		a := &prospects[i]
		if a.EvaluationDue || a.Progress < p.rules.AcademyEvaluationAt {
			continue
		}
		a.EvaluationDue = true
		if err := p.notify(ctx, t, Message{
			Type:     notification.TypeAcademy,
			Title:    a.Name + " ready for evaluation",
			Body:     fmt.Sprintf("Decide whether to promote or release %s.", a.Name),
			Metadata: map[string]any{"academy_player_id": a.ID},
		}); err != nil {
			return err
		}
	}
	return nil
}

// transferWindows announces window changes. The close notice doubles as the
// once-per-window guard for the AI transfer market.
func (p *CareerActionProcessor) transferWindows(ctx context.Context, t *tickState) error {
	if p.notifier == nil {
		return nil
	}
	for _, w := range p.rules.TransferWindows {
		if w.IsOpen(t.date) {
			_, err := p.notifier.NotifyOnce(ctx, *t.g, Message{
				Type:      notification.TypeWindowOpen,
				Title:     "Transfer window open",
				Body:      fmt.Sprintf("The %s transfer window is open.", w.Name),
				DedupeKey: "window_open:" + w.Key(t.date),
			})
			if err != nil {
				return err
			}
		}
		if !w.InCloseMonth(t.date) {
			continue
		}
		sent, err := p.notifier.NotifyOnce(ctx, *t.g, Message{
			Type:      notification.TypeWindowClosed,
			Title:     "Transfer window closed",
			Body:      fmt.Sprintf("The %s transfer window has closed.", w.Name),
			DedupeKey: "window_closed:" + w.Key(t.date),
		})
		if err != nil {
			return err
		}
		if sent {
			moved := p.simulateTransferMarket(t)
			p.logger.InfoContext(ctx, "ai transfer market simulated", "game_id", t.g.ID, "window", w.Key(t.date), "transfers", moved)
		}
	}
	return nil
}

// simulateTransferMarket moves players between AI clubs. Sellers keep at
// least the minimum squad size.
func (p *CareerActionProcessor) simulateTransferMarket(t *tickState) int {
	clubs := t.aiTeams()
	if len(clubs) < 2 {
		return 0
	}
	moved := 0
	for i := 0; i < len(clubs)/2; i++ {
		seller := clubs[t.rng.IntN(len(clubs))]
		buyer := clubs[t.rng.IntN(len(clubs))]
		if seller == buyer {
			continue
		}
		squad := t.squad(seller)
		if len(squad) <= p.rules.MinimumSquadSize {
			continue
		}
		pl := squad[t.rng.IntN(len(squad))]
		if pl.OnLoan() || pl.IsGoalkeeper() {
			continue
		}
		pl.TeamID = buyer
		t.put(pl)
		moved++
	}
	return moved
}
