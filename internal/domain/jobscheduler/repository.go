package jobscheduler

import "context"

// Repository keeps the latest event per dispatch id; UpsertEvent overwrites.
type Repository interface {
	UpsertEvent(ctx context.Context, event DispatchEvent) error
	Get(ctx context.Context, dispatchID string) (DispatchEvent, bool, error)
}
