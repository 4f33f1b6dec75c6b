package standing

import "context"

// Repository persists competition tables.
type Repository interface {
	ListByCompetition(ctx context.Context, gameID, competitionID string) ([]Standing, error)
	// ApplyResults adds result deltas to existing rows in one round trip.
	ApplyResults(ctx context.Context, gameID, competitionID string, deltas []ResultDelta) error
	SavePositions(ctx context.Context, gameID, competitionID string, rows []Standing) error
	Replace(ctx context.Context, gameID, competitionID string, rows []Standing) error
	DeleteByGame(ctx context.Context, gameID string) error
}
