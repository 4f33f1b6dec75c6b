package game

import (
	"strings"
	"time"
)

// Game is one career save: a user managing a single team through seasons.
type Game struct {
	ID              string
	UserID          string
	TeamID          string
	Season          string
	CompetitionID   string
	CurrentDate     time.Time
	CurrentMatchday int

	// PendingFinalizationMatchID points at the user's match whose side effects
	// were deferred while it is watched live. At most one per game.
	PendingFinalizationMatchID string

	// CareerActionsProcessingAt is the single-flight claim for background
	// career ticks. Nil means no tick is in flight.
	CareerActionsProcessingAt *time.Time

	SeasonTransitionStartedAt *time.Time
	SeasonCompletedAt         *time.Time
	NeedsOnboarding           bool
	Budget                    int64
	UpdatedAt                 time.Time
}

func (g Game) HasPendingFinalization() bool {
	return strings.TrimSpace(g.PendingFinalizationMatchID) != ""
}

// CareerActionsInFlight reports whether a claimed tick is still considered
// running. Claims older than staleAfter are treated as abandoned.
func (g Game) CareerActionsInFlight(now time.Time, staleAfter time.Duration) (inFlight bool, stale bool) {
	if g.CareerActionsProcessingAt == nil {
		return false, false
	}
	if staleAfter > 0 && now.Sub(*g.CareerActionsProcessingAt) > staleAfter {
		return false, true
	}
	return true, false
}

func (g Game) SeasonTransitionInProgress() bool {
	return g.SeasonTransitionStartedAt != nil
}

const (
	ActionContractDecision  = "contract_decision"
	ActionTransferResponse  = "transfer_response"
	ActionSquadRegistration = "squad_registration"
	ActionAcademyEvaluation = "academy_evaluation"
	ActionLineupRequired    = "lineup_required"
)

// PendingAction is a decision the user must take before time can advance.
type PendingAction struct {
	ID         string
	GameID     string
	Type       string
	Title      string
	Payload    map[string]any
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
