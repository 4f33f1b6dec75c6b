package memory

import (
	"context"
	"sort"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/game"
)

type GameRepository struct {
	s *Store
}

func NewGameRepository(s *Store) *GameRepository {
	return &GameRepository{s: s}
}

func (r *GameRepository) GetByID(_ context.Context, gameID string) (game.Game, bool, error) {
	var (
		g  game.Game
		ok bool
	)
	r.s.read(func(t *tables) {
		g, ok = t.games[gameID]
	})
	return g, ok, nil
}

// LockForUpdate is a plain read: the store already serialises units of work.
func (r *GameRepository) LockForUpdate(ctx context.Context, gameID string) (game.Game, bool, error) {
	return r.GetByID(ctx, gameID)
}

func (r *GameRepository) Update(_ context.Context, g game.Game) error {
	g.UpdatedAt = time.Now().UTC()
	r.s.write(func(t *tables) {
		t.games[g.ID] = g
	})
	return nil
}

func (r *GameRepository) ListPendingActions(_ context.Context, gameID string) ([]game.PendingAction, error) {
	var out []game.PendingAction
	r.s.read(func(t *tables) {
		for _, a := range t.actions[gameID] {
			if a.ResolvedAt == nil {
				out = append(out, a)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *GameRepository) CreatePendingAction(_ context.Context, action game.PendingAction) error {
	r.s.write(func(t *tables) {
		t.actions[action.GameID] = append(t.actions[action.GameID], action)
	})
	return nil
}

// ResolvePendingAction marks an action done. It is used by tests and the
// operator CLI; the engine itself never resolves actions.
func (r *GameRepository) ResolvePendingAction(_ context.Context, gameID, actionID string, at time.Time) error {
	r.s.write(func(t *tables) {
		for i, a := range t.actions[gameID] {
			if a.ID == actionID {
				t.actions[gameID][i].ResolvedAt = &at
			}
		}
	})
	return nil
}

func (r *GameRepository) ReleaseCareerActions(_ context.Context, gameID string, claimedAt time.Time) error {
	r.s.write(func(t *tables) {
		g, ok := t.games[gameID]
		if !ok || g.CareerActionsProcessingAt == nil {
			return
		}
		if !claimedAt.IsZero() && !g.CareerActionsProcessingAt.Equal(claimedAt) {
			return
		}
		g.CareerActionsProcessingAt = nil
		t.games[gameID] = g
	})
	return nil
}
