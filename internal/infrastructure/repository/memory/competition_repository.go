package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
)

type CompetitionRepository struct {
	s *Store
}

func NewCompetitionRepository(s *Store) *CompetitionRepository {
	return &CompetitionRepository{s: s}
}

func (r *CompetitionRepository) ListByGame(_ context.Context, gameID string) ([]competition.Competition, error) {
	var out []competition.Competition
	r.s.read(func(t *tables) {
		out = sortedByID(t.competitions[gameID])
	})
	return out, nil
}

func (r *CompetitionRepository) GetByID(_ context.Context, gameID, competitionID string) (competition.Competition, bool, error) {
	var (
		c  competition.Competition
		ok bool
	)
	r.s.read(func(t *tables) {
		c, ok = t.competitions[gameID][competitionID]
	})
	return c, ok, nil
}

func (r *CompetitionRepository) ListEntries(_ context.Context, gameID, competitionID string) ([]competition.Entry, error) {
	var out []competition.Entry
	r.s.read(func(t *tables) {
		out = slices.Clone(t.entries[gameID][competitionID])
	})
	return out, nil
}

func (r *CompetitionRepository) ReplaceEntries(_ context.Context, gameID, competitionID string, entries []competition.Entry) error {
	r.s.write(func(t *tables) {
		table(t.entries, gameID)[competitionID] = slices.Clone(entries)
	})
	return nil
}

func (r *CompetitionRepository) ListRounds(_ context.Context, gameID, competitionID string) ([]competition.Round, error) {
	var out []competition.Round
	r.s.read(func(t *tables) {
		out = slices.Clone(t.rounds[gameID][competitionID])
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *CompetitionRepository) UpsertRounds(_ context.Context, gameID string, rounds []competition.Round) error {
	r.s.write(func(t *tables) {
		byComp := table(t.rounds, gameID)
		for _, round := range rounds {
			byComp[round.CompetitionID] = upsertRound(byComp[round.CompetitionID], round)
		}
	})
	return nil
}

func upsertRound(rounds []competition.Round, round competition.Round) []competition.Round {
	for i := range rounds {
		if rounds[i].Number == round.Number {
			rounds[i] = round
			return rounds
		}
	}
	return append(rounds, round)
}

func (r *CompetitionRepository) UpdateParticipation(_ context.Context, gameID, competitionID string, role competition.Role, participating bool) error {
	r.s.write(func(t *tables) {
		c, ok := t.competitions[gameID][competitionID]
		if !ok {
			return
		}
		c.Role = role
		c.Participating = participating
		t.competitions[gameID][competitionID] = c
	})
	return nil
}

func (r *CompetitionRepository) DeleteRounds(_ context.Context, gameID string) error {
	r.s.write(func(t *tables) {
		delete(t.rounds, gameID)
	})
	return nil
}
