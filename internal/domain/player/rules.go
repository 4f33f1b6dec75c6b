package player

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	MaxAbility     = 99
	MinAbility     = 20
	MaxFitness     = 100
	DefaultFitness = 90
	DefaultMorale  = 70
	MaxMorale      = 100
)

// DevelopmentRules tunes the season-end progression curve.
type DevelopmentRules struct {
	PeakAgeFrom    int
	PeakAgeTo      int
	YouthGrowth    int
	DeclinePerYear int
}

func DefaultDevelopmentRules() DevelopmentRules {
	return DevelopmentRules{PeakAgeFrom: 27, PeakAgeTo: 30, YouthGrowth: 4, DeclinePerYear: 3}
}

// Develop ages a player by one season and moves ability toward
// potential before the peak and away from it after.
func Develop(p Player, rules DevelopmentRules, rng *rand.Rand) Player {
	p.Age++
	switch {
	case p.Age < rules.PeakAgeFrom:
		gap := p.Potential - p.Ability
		if gap > 0 {
			growth := rules.YouthGrowth + rng.IntN(3)
			if p.Appearances >= 20 {
				growth++
			}
			if growth > gap {
				growth = gap
			}
			p.Ability += growth
		}
	case p.Age > rules.PeakAgeTo:
		p.Ability -= rules.DeclinePerYear + rng.IntN(2)
	}
	p.Ability = clamp(p.Ability, MinAbility, MaxAbility)
	if p.Potential < p.Ability {
		p.Potential = p.Ability
	}
	return p
}

// ShouldRetire decides whether a player retires this summer.
func ShouldRetire(p Player, retirementAge int, rng *rand.Rand) bool {
	if p.RetiringAtSeasonEnd {
		return true
	}
	if p.Age < retirementAge-3 {
		return false
	}
	if p.Age >= retirementAge+3 {
		return true
	}
	// chance rises linearly across the six-year retirement window
	chance := float64(p.Age-(retirementAge-3)+1) / 7
	return rng.Float64() < chance
}

// MarketValue estimates a transfer value from ability, age and contract.
func MarketValue(p Player, on time.Time) int64 {
	base := int64(p.Ability) * int64(p.Ability) * 2_000
	switch {
	case p.Age <= 21:
		base = base * 14 / 10
	case p.Age >= 32:
		base = base * 5 / 10
	case p.Age >= 29:
		base = base * 8 / 10
	}
	if months := monthsUntil(on, p.ContractUntil); months < 12 {
		base = base * int64(6+months/2) / 12
	}
	if base < 10_000 {
		base = 10_000
	}
	return base
}

// Generate creates a squad filler for a team. Output is deterministic for a
// given rng state.
func Generate(gameID, teamID, id string, position Position, tierAbility int, season time.Time, rng *rand.Rand) Player {
	age := 18 + rng.IntN(12)
	ability := clamp(tierAbility-8+rng.IntN(12), MinAbility, MaxAbility)
	potential := ability
	if age < 24 {
		potential = clamp(ability+rng.IntN(15), ability, MaxAbility)
	}
	p := Player{
		ID:            id,
		GameID:        gameID,
		TeamID:        teamID,
		Name:          fmt.Sprintf("%s %s", firstNames[rng.IntN(len(firstNames))], lastNames[rng.IntN(len(lastNames))]),
		Position:      position,
		Age:           age,
		Ability:       ability,
		Potential:     potential,
		Fitness:       DefaultFitness,
		Morale:        DefaultMorale,
		ContractUntil: season.AddDate(1+rng.IntN(3), 0, 0),
		Wage:          int64(ability) * 1_000,
	}
	p.MarketValue = MarketValue(p, season)
	return p
}

func monthsUntil(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var firstNames = []string{"Luca", "Mateo", "Jonas", "Rafael", "Tomas", "Adam", "Noah", "Elias", "Marco", "Diego", "Kai", "Sami"}

var lastNames = []string{"Moreno", "Schmidt", "Silva", "Rossi", "Novak", "Dubois", "Jensen", "Kowalski", "Ortega", "Brandt", "Costa", "Varga"}
