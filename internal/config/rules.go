package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/riskibarqy/career-engine/internal/domain/career"
	"github.com/riskibarqy/career-engine/internal/usecase"
)

const rulesEnvPrefix = "CAREER_RULES_"

// Rules mirrors usecase.GameplayRules with koanf keys. Transfer windows can
// only be set from the YAML file.
type Rules struct {
	CareerActionsStaleAfter time.Duration           `koanf:"career_actions_stale_after"`
	TransferWindows         []career.TransferWindow `koanf:"transfer_windows"`
	YellowCardThreshold     int                     `koanf:"yellow_card_threshold"`
	YellowCardBan           int                     `koanf:"yellow_card_ban"`
	RedCardBan              int                     `koanf:"red_card_ban"`
	MinimumSquadSize        int                     `koanf:"minimum_squad_size"`
	RetirementAge           int                     `koanf:"retirement_age"`
	FitnessLossPerMatch     int                     `koanf:"fitness_loss_per_match"`
	FitnessRecoveryPerDay   int                     `koanf:"fitness_recovery_per_day"`
	LowFitnessThreshold     int                     `koanf:"low_fitness_threshold"`
	TrainingInjuryChance    float64                 `koanf:"training_injury_chance"`
	FixtureInterval         time.Duration           `koanf:"fixture_interval"`
	OfferLifetime           time.Duration           `koanf:"offer_lifetime"`
	ScoutingWeeks           int                     `koanf:"scouting_weeks"`
	LoanSearchWeeks         int                     `koanf:"loan_search_weeks"`
	AcademyEvaluationAt     int                     `koanf:"academy_evaluation_at"`
}

func defaultRules() Rules {
	def := usecase.DefaultGameplayRules()
	return Rules{
		CareerActionsStaleAfter: def.CareerActionsStaleAfter,
		TransferWindows:         def.TransferWindows,
		YellowCardThreshold:     def.YellowCardThreshold,
		YellowCardBan:           def.YellowCardBan,
		RedCardBan:              def.RedCardBan,
		MinimumSquadSize:        def.MinimumSquadSize,
		RetirementAge:           def.RetirementAge,
		FitnessLossPerMatch:     def.FitnessLossPerMatch,
		FitnessRecoveryPerDay:   def.FitnessRecoveryPerDay,
		LowFitnessThreshold:     def.LowFitnessThreshold,
		TrainingInjuryChance:    def.TrainingInjuryChance,
		FixtureInterval:         def.FixtureInterval,
		OfferLifetime:           def.OfferLifetime,
		ScoutingWeeks:           def.ScoutingWeeks,
		LoanSearchWeeks:         def.LoanSearchWeeks,
		AcademyEvaluationAt:     def.AcademyEvaluationAt,
	}
}

// LoadRules layers the gameplay rules, lowest precedence first: built-in
// defaults, the YAML file at path (if any), then CAREER_RULES_* env vars.
func LoadRules(path string) (usecase.GameplayRules, error) {
	k := koanf.New(".")

	if path = strings.TrimSpace(path); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return usecase.GameplayRules{}, fmt.Errorf("load rules file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(rulesEnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, rulesEnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return usecase.GameplayRules{}, fmt.Errorf("load rules env: %w", err)
	}

	rules := defaultRules()
	windows := rules.TransferWindows
	rules.TransferWindows = nil
	if err := k.UnmarshalWithConf("", &rules, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return usecase.GameplayRules{}, fmt.Errorf("decode rules: %w", err)
	}
	if len(rules.TransferWindows) == 0 {
		rules.TransferWindows = windows
	}
	if err := rules.validate(); err != nil {
		return usecase.GameplayRules{}, err
	}
	return rules.gameplay(), nil
}

func (r Rules) validate() error {
	if r.TrainingInjuryChance < 0 || r.TrainingInjuryChance > 1 {
		return fmt.Errorf("training_injury_chance must be within [0, 1], got %v", r.TrainingInjuryChance)
	}
	if r.YellowCardThreshold < 1 {
		return fmt.Errorf("yellow_card_threshold must be >= 1")
	}
	for _, w := range r.TransferWindows {
		if w.OpenMonth < time.January || w.OpenMonth > time.December || w.CloseMonth < time.January || w.CloseMonth > time.December {
			return fmt.Errorf("transfer window %q has an invalid month", w.Name)
		}
		if w.OpenDay < 1 || w.OpenDay > 31 || w.CloseDay < 1 || w.CloseDay > 31 {
			return fmt.Errorf("transfer window %q has an invalid day", w.Name)
		}
	}
	return nil
}

func (r Rules) gameplay() usecase.GameplayRules {
	return usecase.GameplayRules{
		CareerActionsStaleAfter: r.CareerActionsStaleAfter,
		TransferWindows:         append([]career.TransferWindow(nil), r.TransferWindows...),
		YellowCardThreshold:     r.YellowCardThreshold,
		YellowCardBan:           r.YellowCardBan,
		RedCardBan:              r.RedCardBan,
		MinimumSquadSize:        r.MinimumSquadSize,
		RetirementAge:           r.RetirementAge,
		FitnessLossPerMatch:     r.FitnessLossPerMatch,
		FitnessRecoveryPerDay:   r.FitnessRecoveryPerDay,
		LowFitnessThreshold:     r.LowFitnessThreshold,
		TrainingInjuryChance:    r.TrainingInjuryChance,
		FixtureInterval:         r.FixtureInterval,
		OfferLifetime:           r.OfferLifetime,
		ScoutingWeeks:           r.ScoutingWeeks,
		LoanSearchWeeks:         r.LoanSearchWeeks,
		AcademyEvaluationAt:     r.AcademyEvaluationAt,
	}
}
