package season

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TransitionData is threaded through every season-end stage. Stages read
// what earlier stages left in Metadata and add their own results.
type TransitionData struct {
	GameID        string
	OldSeason     string
	NewSeason     string
	CompetitionID string
	Metadata      map[string]any
}

func NewTransitionData(gameID, oldSeason, competitionID string) (TransitionData, error) {
	next, err := NextSeason(oldSeason)
	if err != nil {
		return TransitionData{}, err
	}
	return TransitionData{
		GameID:        gameID,
		OldSeason:     oldSeason,
		NewSeason:     next,
		CompetitionID: competitionID,
		Metadata:      make(map[string]any),
	}, nil
}

func (d *TransitionData) Set(key string, value any) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]any)
	}
	d.Metadata[key] = value
}

func (d TransitionData) Int(key string) int {
	switch v := d.Metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (d TransitionData) Strings(key string) []string {
	v, _ := d.Metadata[key].([]string)
	return v
}

// FinalPositions maps competition id to team id to final league position.
func (d TransitionData) FinalPositions() map[string]map[string]int {
	v, _ := d.Metadata[KeyFinalPositions].(map[string]map[string]int)
	return v
}

const (
	KeyReturnedLoans     = "returned_loans"
	KeyArchivedMatches   = "archived_matches"
	KeyExpiredContracts  = "expired_contracts"
	KeyReplenished       = "replenished_players"
	KeyRetiredPlayers    = "retired_players"
	KeyDevelopedPlayers  = "developed_players"
	KeyFinalPositions    = "final_positions"
	KeyPromotedTeams     = "promoted_teams"
	KeyRelegatedTeams    = "relegated_teams"
	KeyFixturesGenerated = "fixtures_generated"
	KeyQualifiedTeams    = "qualified_teams"
	KeyUserPosition      = "user_final_position"
	KeyBudget            = "projected_budget"
)

// NextSeason turns "2025/26" into "2026/27". Single-year seasons ("2025")
// are also accepted.
func NextSeason(current string) (string, error) {
	current = strings.TrimSpace(current)
	startPart, _, split := strings.Cut(current, "/")
	start, err := strconv.Atoi(startPart)
	if err != nil {
		return "", fmt.Errorf("parse season %q: %w", current, err)
	}
	if !split {
		return strconv.Itoa(start + 1), nil
	}
	return fmt.Sprintf("%d/%02d", start+1, (start+2)%100), nil
}

// StartDate is the first day of a season, defaulting to 1 July.
func StartDate(season string) (time.Time, error) {
	startPart, _, _ := strings.Cut(strings.TrimSpace(season), "/")
	year, err := strconv.Atoi(startPart)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse season %q: %w", season, err)
	}
	return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC), nil
}

// Archive is the summary kept for a finished season.
type Archive struct {
	GameID       string
	Season       string
	ChampionID   string
	UserPosition int
	Standings    map[string]any
	TopScorers   []map[string]any
	CreatedAt    time.Time
}

// ArchiveRepository stores finished-season summaries.
type ArchiveRepository interface {
	Save(ctx context.Context, archive Archive) error
	ListByGame(ctx context.Context, gameID string) ([]Archive, error)
}
