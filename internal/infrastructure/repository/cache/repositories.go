package cache

import (
	"context"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	basecache "github.com/riskibarqy/career-engine/internal/platform/cache"
)

// CompetitionRepository caches competition structure per save. Reads made
// inside a unit of work go straight to the store so they see uncommitted
// writes; every write drops the save's cached entries.
type CompetitionRepository struct {
	next  competition.Repository
	cache *basecache.Store
	inTx  func(context.Context) bool
}

func NewCompetitionRepository(next competition.Repository, cache *basecache.Store, inTx func(context.Context) bool) *CompetitionRepository {
	if inTx == nil {
		inTx = func(context.Context) bool { return false }
	}
	return &CompetitionRepository{next: next, cache: cache, inTx: inTx}
}

func scopeFor(gameID string) string {
	return "competition:" + gameID
}

func (r *CompetitionRepository) ListByGame(ctx context.Context, gameID string) ([]competition.Competition, error) {
	if r.inTx(ctx) {
		return r.next.ListByGame(ctx, gameID)
	}
	v, err := r.cache.GetOrLoad(ctx, scopeFor(gameID), "list", func(ctx context.Context) (any, error) {
		items, err := r.next.ListByGame(ctx, gameID)
		if err != nil {
			return nil, err
		}
		return cloneCompetitions(items), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]competition.Competition)
	return cloneCompetitions(items), nil
}

func (r *CompetitionRepository) GetByID(ctx context.Context, gameID, competitionID string) (competition.Competition, bool, error) {
	if r.inTx(ctx) {
		return r.next.GetByID(ctx, gameID, competitionID)
	}
	v, err := r.cache.GetOrLoad(ctx, scopeFor(gameID), "id:"+competitionID, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, gameID, competitionID)
		if err != nil {
			return nil, err
		}
		return cachedCompetitionByID{value: cloneCompetition(item), exists: exists}, nil
	})
	if err != nil {
		return competition.Competition{}, false, err
	}

	cached, _ := v.(cachedCompetitionByID)
	return cloneCompetition(cached.value), cached.exists, nil
}

type cachedCompetitionByID struct {
	value  competition.Competition
	exists bool
}

func (r *CompetitionRepository) ListEntries(ctx context.Context, gameID, competitionID string) ([]competition.Entry, error) {
	if r.inTx(ctx) {
		return r.next.ListEntries(ctx, gameID, competitionID)
	}
	v, err := r.cache.GetOrLoad(ctx, scopeFor(gameID), "entries:"+competitionID, func(ctx context.Context) (any, error) {
		items, err := r.next.ListEntries(ctx, gameID, competitionID)
		if err != nil {
			return nil, err
		}
		return append([]competition.Entry(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]competition.Entry)
	return append([]competition.Entry(nil), items...), nil
}

func (r *CompetitionRepository) ListRounds(ctx context.Context, gameID, competitionID string) ([]competition.Round, error) {
	if r.inTx(ctx) {
		return r.next.ListRounds(ctx, gameID, competitionID)
	}
	v, err := r.cache.GetOrLoad(ctx, scopeFor(gameID), "rounds:"+competitionID, func(ctx context.Context) (any, error) {
		items, err := r.next.ListRounds(ctx, gameID, competitionID)
		if err != nil {
			return nil, err
		}
		return append([]competition.Round(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]competition.Round)
	return append([]competition.Round(nil), items...), nil
}

func (r *CompetitionRepository) ReplaceEntries(ctx context.Context, gameID, competitionID string, entries []competition.Entry) error {
	defer r.invalidate(ctx, gameID)
	return r.next.ReplaceEntries(ctx, gameID, competitionID, entries)
}

func (r *CompetitionRepository) UpsertRounds(ctx context.Context, gameID string, rounds []competition.Round) error {
	defer r.invalidate(ctx, gameID)
	return r.next.UpsertRounds(ctx, gameID, rounds)
}

func (r *CompetitionRepository) UpdateParticipation(ctx context.Context, gameID, competitionID string, role competition.Role, participating bool) error {
	defer r.invalidate(ctx, gameID)
	return r.next.UpdateParticipation(ctx, gameID, competitionID, role, participating)
}

func (r *CompetitionRepository) DeleteRounds(ctx context.Context, gameID string) error {
	defer r.invalidate(ctx, gameID)
	return r.next.DeleteRounds(ctx, gameID)
}

func (r *CompetitionRepository) invalidate(ctx context.Context, gameID string) {
	r.cache.Invalidate(ctx, scopeFor(gameID))
}

func cloneCompetition(item competition.Competition) competition.Competition {
	item.QualificationTargets = append([]competition.QualificationTarget(nil), item.QualificationTargets...)
	return item
}

func cloneCompetitions(items []competition.Competition) []competition.Competition {
	out := make([]competition.Competition, 0, len(items))
	for _, item := range items {
		out = append(out, cloneCompetition(item))
	}
	return out
}
