package notification

import (
	"context"
	"time"
)

// Repository persists inbox messages.
type Repository interface {
	Create(ctx context.Context, n Notification) error
	// Exists reports whether a notification with the dedupe key was created
	// at or after since.
	Exists(ctx context.Context, gameID string, typ Type, dedupeKey string, since time.Time) (bool, error)
	ListByGame(ctx context.Context, gameID string, limit int) ([]Notification, error)
}
