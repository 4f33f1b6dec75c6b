package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/standing"
)

// StandingsCalculator keeps competition tables in step with results.
type StandingsCalculator struct {
	repo standing.Repository
}

func NewStandingsCalculator(repo standing.Repository) *StandingsCalculator {
	return &StandingsCalculator{repo: repo}
}

// CountsForStandings reports whether a match is a league-phase fixture of a
// competition with a table.
func CountsForStandings(comp competition.Competition, m match.Match) bool {
	return comp.HasStandings() && !m.IsCupTie()
}

// BulkUpdateAfterMatches applies every played result, one bulk write per
// competition. It returns the competitions it touched.
func (c *StandingsCalculator) BulkUpdateAfterMatches(ctx context.Context, gameID string, matches []match.Match) ([]string, error) {
	byCompetition := make(map[string][]standing.ResultDelta)
	order := make([]string, 0)
	for _, m := range matches {
		if !m.Played || m.HomeScore == nil || m.AwayScore == nil {
			continue
		}
		if _, ok := byCompetition[m.CompetitionID]; !ok {
			order = append(order, m.CompetitionID)
		}
		home, away := m.Score()
		byCompetition[m.CompetitionID] = append(byCompetition[m.CompetitionID], standing.DeltasForMatch(m.HomeTeamID, m.AwayTeamID, home, away)...)
	}

	for _, compID := range order {
		if err := c.repo.ApplyResults(ctx, gameID, compID, byCompetition[compID]); err != nil {
			return nil, fmt.Errorf("apply standings competition=%s: %w", compID, err)
		}
	}
	return order, nil
}

// RecalculatePositions re-ranks the given competitions.
func (c *StandingsCalculator) RecalculatePositions(ctx context.Context, gameID string, competitionIDs []string) error {
	for _, compID := range uniqueStrings(competitionIDs) {
		rows, err := c.repo.ListByCompetition(ctx, gameID, compID)
		if err != nil {
			return fmt.Errorf("list standings competition=%s: %w", compID, err)
		}
		if len(rows) == 0 {
			continue
		}
		if err := c.repo.SavePositions(ctx, gameID, compID, standing.Rank(rows)); err != nil {
			return fmt.Errorf("save positions competition=%s: %w", compID, err)
		}
	}
	return nil
}

// InitializeStandings writes a zeroed table for the competition entries.
func (c *StandingsCalculator) InitializeStandings(ctx context.Context, gameID string, entries []competition.Entry) error {
	byCompetition := make(map[string][]standing.Standing)
	for _, e := range entries {
		byCompetition[e.CompetitionID] = append(byCompetition[e.CompetitionID], standing.Standing{
			GameID:        gameID,
			CompetitionID: e.CompetitionID,
			GroupLabel:    e.GroupLabel,
			TeamID:        e.TeamID,
		})
	}
	compIDs := make([]string, 0, len(byCompetition))
	for compID := range byCompetition {
		compIDs = append(compIDs, compID)
	}
	sort.Strings(compIDs)

	for _, compID := range compIDs {
		if err := c.repo.Replace(ctx, gameID, compID, standing.Rank(byCompetition[compID])); err != nil {
			return fmt.Errorf("initialize standings competition=%s: %w", compID, err)
		}
	}
	return nil
}

// ReplaceTable stores a complete table, re-ranked.
func (c *StandingsCalculator) ReplaceTable(ctx context.Context, gameID, competitionID string, rows []standing.Standing) error {
	if err := c.repo.Replace(ctx, gameID, competitionID, standing.Rank(rows)); err != nil {
		return fmt.Errorf("replace standings competition=%s: %w", competitionID, err)
	}
	return nil
}

// Ranked returns a competition table in position order.
func (c *StandingsCalculator) Ranked(ctx context.Context, gameID, competitionID string) ([]standing.Standing, error) {
	rows, err := c.repo.ListByCompetition(ctx, gameID, competitionID)
	if err != nil {
		return nil, fmt.Errorf("list standings competition=%s: %w", competitionID, err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].GroupLabel != rows[j].GroupLabel {
			return rows[i].GroupLabel < rows[j].GroupLabel
		}
		return rows[i].Position < rows[j].Position
	})
	return rows, nil
}

func uniqueStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
