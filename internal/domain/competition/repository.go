package competition

import "context"

// Repository exposes competition structure for a save.
type Repository interface {
	ListByGame(ctx context.Context, gameID string) ([]Competition, error)
	GetByID(ctx context.Context, gameID, competitionID string) (Competition, bool, error)
	ListEntries(ctx context.Context, gameID, competitionID string) ([]Entry, error)
	ReplaceEntries(ctx context.Context, gameID, competitionID string, entries []Entry) error
	ListRounds(ctx context.Context, gameID, competitionID string) ([]Round, error)
	UpsertRounds(ctx context.Context, gameID string, rounds []Round) error
	// UpdateParticipation changes whether the user's team plays in the
	// competition and in which role.
	UpdateParticipation(ctx context.Context, gameID, competitionID string, role Role, participating bool) error
	DeleteRounds(ctx context.Context, gameID string) error
}
