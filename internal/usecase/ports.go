package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/career"
	"github.com/riskibarqy/career-engine/internal/domain/match"
)

// Transactor runs fn as one unit of work. Repositories called with the ctx
// passed to fn join the same transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Simulator produces match outcomes. Implementations must be pure: the same
// input always yields the same result.
type Simulator interface {
	Simulate(in match.SimulationInput) match.SimulationResult
	SimulateExtraTime(in match.SimulationInput) match.SimulationResult
	SimulatePenaltyShootout(home, away match.SideInput, order match.KickerOrder) match.ShootoutResult
	SimulateRemainder(in match.SimulationInput, fromMinute int) match.SimulationResult
}

// CareerActionJob is one background run of career ticks for a save.
type CareerActionJob struct {
	DispatchID string    `json:"dispatch_id"`
	GameID     string    `json:"game_id"`
	Ticks      int       `json:"ticks"`
	ClaimedAt  time.Time `json:"claimed_at"`
}

// CareerActionDispatcher hands a career tick run to a background executor.
type CareerActionDispatcher interface {
	Dispatch(ctx context.Context, job CareerActionJob) error
}

type noopCareerActionDispatcher struct{}

func (noopCareerActionDispatcher) Dispatch(_ context.Context, _ CareerActionJob) error {
	return nil
}

func NewNoopCareerActionDispatcher() CareerActionDispatcher {
	return noopCareerActionDispatcher{}
}

// GameplayRules are the tunable numbers of the career simulation.
type GameplayRules struct {
	CareerActionsStaleAfter time.Duration
	TransferWindows         []career.TransferWindow
	YellowCardThreshold     int
	YellowCardBan           int
	RedCardBan              int
	MinimumSquadSize        int
	RetirementAge           int
	FitnessLossPerMatch     int
	FitnessRecoveryPerDay   int
	LowFitnessThreshold     int
	TrainingInjuryChance    float64
	FixtureInterval         time.Duration
	OfferLifetime           time.Duration
	ScoutingWeeks           int
	LoanSearchWeeks         int
	AcademyEvaluationAt     int
}

func DefaultGameplayRules() GameplayRules {
	return GameplayRules{
		CareerActionsStaleAfter: 5 * time.Minute,
		TransferWindows: []career.TransferWindow{
			{Name: "summer", OpenMonth: time.July, OpenDay: 1, CloseMonth: time.September, CloseDay: 1},
			{Name: "winter", OpenMonth: time.January, OpenDay: 1, CloseMonth: time.February, CloseDay: 1},
		},
		YellowCardThreshold:   5,
		YellowCardBan:         1,
		RedCardBan:            1,
		MinimumSquadSize:      22,
		RetirementAge:         35,
		FitnessLossPerMatch:   12,
		FitnessRecoveryPerDay: 4,
		LowFitnessThreshold:   60,
		TrainingInjuryChance:  0.005,
		FixtureInterval:       7 * 24 * time.Hour,
		OfferLifetime:         14 * 24 * time.Hour,
		ScoutingWeeks:         3,
		LoanSearchWeeks:       2,
		AcademyEvaluationAt:   100,
	}
}

func (r GameplayRules) withDefaults() GameplayRules {
	def := DefaultGameplayRules()
	if r.CareerActionsStaleAfter <= 0 {
		r.CareerActionsStaleAfter = def.CareerActionsStaleAfter
	}
	if len(r.TransferWindows) == 0 {
		r.TransferWindows = def.TransferWindows
	}
	if r.YellowCardThreshold <= 0 {
		r.YellowCardThreshold = def.YellowCardThreshold
	}
	if r.YellowCardBan <= 0 {
		r.YellowCardBan = def.YellowCardBan
	}
	if r.RedCardBan <= 0 {
		r.RedCardBan = def.RedCardBan
	}
	if r.MinimumSquadSize <= 0 {
		r.MinimumSquadSize = def.MinimumSquadSize
	}
	if r.RetirementAge <= 0 {
		r.RetirementAge = def.RetirementAge
	}
	if r.FitnessLossPerMatch <= 0 {
		r.FitnessLossPerMatch = def.FitnessLossPerMatch
	}
	if r.FitnessRecoveryPerDay <= 0 {
		r.FitnessRecoveryPerDay = def.FitnessRecoveryPerDay
	}
	if r.LowFitnessThreshold <= 0 {
		r.LowFitnessThreshold = def.LowFitnessThreshold
	}
	if r.FixtureInterval <= 0 {
		r.FixtureInterval = def.FixtureInterval
	}
	if r.OfferLifetime <= 0 {
		r.OfferLifetime = def.OfferLifetime
	}
	if r.ScoutingWeeks <= 0 {
		r.ScoutingWeeks = def.ScoutingWeeks
	}
	if r.LoanSearchWeeks <= 0 {
		r.LoanSearchWeeks = def.LoanSearchWeeks
	}
	if r.AcademyEvaluationAt <= 0 {
		r.AcademyEvaluationAt = def.AcademyEvaluationAt
	}
	return r
}
