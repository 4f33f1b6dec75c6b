package game

import (
	"context"
	"time"
)

// Repository persists career saves. LockForUpdate must be called inside a
// transaction and holds the save until it ends.
type Repository interface {
	GetByID(ctx context.Context, gameID string) (Game, bool, error)
	LockForUpdate(ctx context.Context, gameID string) (Game, bool, error)
	Update(ctx context.Context, g Game) error
	ListPendingActions(ctx context.Context, gameID string) ([]PendingAction, error)
	CreatePendingAction(ctx context.Context, action PendingAction) error
	// ReleaseCareerActions clears the tick claim if it still equals
	// claimedAt. A zero claimedAt clears any claim.
	ReleaseCareerActions(ctx context.Context, gameID string, claimedAt time.Time) error
}
