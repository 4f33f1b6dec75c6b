package player

import "context"

// Repository describes player persistence needs from use cases.
type Repository interface {
	ListByGame(ctx context.Context, gameID string) ([]Player, error)
	ListByTeams(ctx context.Context, gameID string, teamIDs []string) ([]Player, error)
	GetByIDs(ctx context.Context, gameID string, playerIDs []string) ([]Player, error)
	InsertBatch(ctx context.Context, players []Player) error
	// SaveBatch upserts full player rows.
	SaveBatch(ctx context.Context, players []Player) error
	DeleteBatch(ctx context.Context, gameID string, playerIDs []string) error

	ApplyStatDeltas(ctx context.Context, gameID string, deltas []StatDelta) error
	// RecomputeStatsFromEvents rebuilds event-derived stats of the given
	// players from their remaining match events.
	RecomputeStatsFromEvents(ctx context.Context, gameID string, playerIDs []string) error
	IncrementAppearances(ctx context.Context, gameID string, playerIDs []string) error
	// DecrementAppearances takes one appearance back, never going below zero.
	DecrementAppearances(ctx context.Context, gameID string, playerIDs []string) error
	UpdateConditions(ctx context.Context, gameID string, updates []ConditionUpdate) error
	ApplyGoalkeeperStats(ctx context.Context, gameID string, deltas []GoalkeeperDelta) error
	UpdateInjuries(ctx context.Context, gameID string, updates []InjuryUpdate) error
	ResetSeasonStats(ctx context.Context, gameID string) error
}

// SuspensionRepository persists competition bans.
type SuspensionRepository interface {
	ListActive(ctx context.Context, gameID string, competitionIDs []string) ([]Suspension, error)
	// Add creates the ban or adds MatchesRemaining to an existing one for the
	// same player and competition.
	Add(ctx context.Context, suspension Suspension) error
	// DecrementBatch lowers each counter by one, clamped at zero.
	DecrementBatch(ctx context.Context, gameID string, keys []SuspensionKey) error
	DeleteBySourceMatch(ctx context.Context, gameID, matchID string, playerIDs []string) error
	DeleteByGame(ctx context.Context, gameID string) error
}
