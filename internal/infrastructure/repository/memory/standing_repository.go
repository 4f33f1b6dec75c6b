package memory

import (
	"context"
	"slices"

	"github.com/riskibarqy/career-engine/internal/domain/standing"
)

type StandingRepository struct {
	s *Store
}

func NewStandingRepository(s *Store) *StandingRepository {
	return &StandingRepository{s: s}
}

func (r *StandingRepository) ListByCompetition(_ context.Context, gameID, competitionID string) ([]standing.Standing, error) {
	var out []standing.Standing
	r.s.read(func(t *tables) {
		out = slices.Clone(t.standings[gameID][competitionID])
	})
	return out, nil
}

// ApplyResults only touches existing rows, like the SQL update it mirrors.
func (r *StandingRepository) ApplyResults(_ context.Context, gameID, competitionID string, deltas []standing.ResultDelta) error {
	r.s.write(func(t *tables) {
		rows := t.standings[gameID][competitionID]
		for _, d := range deltas {
			for i := range rows {
				if rows[i].TeamID == d.TeamID {
					rows[i] = standing.Apply(rows[i], d)
				}
			}
		}
	})
	return nil
}

func (r *StandingRepository) SavePositions(_ context.Context, gameID, competitionID string, ranked []standing.Standing) error {
	positions := make(map[string]standing.Standing, len(ranked))
	for _, row := range ranked {
		positions[row.TeamID] = row
	}
	r.s.write(func(t *tables) {
		rows := t.standings[gameID][competitionID]
		for i := range rows {
			if p, ok := positions[rows[i].TeamID]; ok {
				rows[i].Position = p.Position
				rows[i].PreviousPosition = p.PreviousPosition
			}
		}
	})
	return nil
}

func (r *StandingRepository) Replace(_ context.Context, gameID, competitionID string, rows []standing.Standing) error {
	r.s.write(func(t *tables) {
		table(t.standings, gameID)[competitionID] = slices.Clone(rows)
	})
	return nil
}

func (r *StandingRepository) DeleteByGame(_ context.Context, gameID string) error {
	r.s.write(func(t *tables) {
		delete(t.standings, gameID)
	})
	return nil
}
