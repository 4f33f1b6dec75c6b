package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/career"
	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/finance"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/matchsim"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/domain/season"
	"github.com/riskibarqy/career-engine/internal/domain/standing"
	"github.com/riskibarqy/career-engine/internal/platform/id"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/sourcegraph/conc/iter"
)

const (
	StageLoanReturn               = "loan_return"
	StageSeasonArchive            = "season_archive"
	StageContractExpiration       = "contract_expiration"
	StageSquadReplenishment       = "squad_replenishment"
	StagePlayerRetirement         = "player_retirement"
	StagePlayerDevelopment        = "player_development"
	StageStatsReset               = "stats_reset"
	StageScoutDataReset           = "scout_data_reset"
	StageSeasonSimulation         = "season_simulation"
	StagePromotionRelegation      = "promotion_relegation"
	StagePrimaryCompetitionInit   = "primary_competition_init"
	StageStandingsReset           = "standings_reset"
	StageContinentalQualification = "uefa_qualification"
	StageSecondaryCompetitionInit = "secondary_competition_init"
	StageBudgetProjection         = "budget_projection"
	StageOnboardingReset          = "onboarding_reset"
)

const (
	// league kickoff is five weeks after the season opens on 1 July
	kickoffOffset      = 35 * 24 * time.Hour
	midweekOffset      = 3 * 24 * time.Hour
	swissLeagueRounds  = 8
	groupSize          = 4
	topScorersArchived = 10
	defaultTierAbility = 55
)

// squadShape is the position mix replenishment aims for.
var squadShape = map[player.Position]float64{
	player.PositionGoalkeeper: 3.0 / 22,
	player.PositionDefender:   7.0 / 22,
	player.PositionMidfielder: 7.0 / 22,
	player.PositionForward:    5.0 / 22,
}

// SeasonSimulator plays out whole seasons of competitions the user does
// not take part in.
type SeasonSimulator interface {
	SimulateLeagueTable(gameID, competitionID string, teams []matchsim.TeamStrength, rng *rand.Rand) []standing.Standing
}

// StageDeps carries the stores every season-end stage may touch.
type StageDeps struct {
	Competitions competition.Repository
	Matches      match.Repository
	Events       match.EventRepository
	Ties         match.CupTieRepository
	Players      player.Repository
	Suspensions  player.SuspensionRepository
	Standings    *StandingsCalculator
	Career       career.Repository
	Archives     season.ArchiveRepository
	Finance      finance.Repository
	Notifier     *NotificationService
	Seasons      SeasonSimulator
	IDs          id.Generator
	Rules        GameplayRules
	Development  player.DevelopmentRules
	Logger       *logging.Logger
	Now          func() time.Time
}

// DefaultSeasonEndStages returns the full rollover in its standard order.
func DefaultSeasonEndStages(deps StageDeps) []SeasonEndStage {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.IDs == nil {
		deps.IDs = id.NewUUIDGenerator()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Development == (player.DevelopmentRules{}) {
		deps.Development = player.DefaultDevelopmentRules()
	}
	deps.Rules = deps.Rules.withDefaults()
	d := &deps

	return []SeasonEndStage{
		&loanReturnStage{stageBase{StageLoanReturn, 10, d}},
		&seasonArchiveStage{stageBase{StageSeasonArchive, 20, d}},
		&contractExpirationStage{stageBase{StageContractExpiration, 20, d}},
		&squadReplenishmentStage{stageBase{StageSquadReplenishment, 30, d}},
		&playerRetirementStage{stageBase{StagePlayerRetirement, 40, d}},
		&playerDevelopmentStage{stageBase{StagePlayerDevelopment, 50, d}},
		&statsResetStage{stageBase{StageStatsReset, 60, d}},
		&scoutDataResetStage{stageBase{StageScoutDataReset, 60, d}},
		&seasonSimulationStage{stageBase{StageSeasonSimulation, 70, d}},
		&promotionRelegationStage{stageBase{StagePromotionRelegation, 80, d}},
		&primaryCompetitionInitStage{stageBase{StagePrimaryCompetitionInit, 90, d}},
		&standingsResetStage{stageBase{StageStandingsReset, 100, d}},
		&continentalQualificationStage{stageBase{StageContinentalQualification, 110, d}},
		&secondaryCompetitionInitStage{stageBase{StageSecondaryCompetitionInit, 120, d}},
		&budgetProjectionStage{stageBase{StageBudgetProjection, 130, d}},
		&onboardingResetStage{stageBase{StageOnboardingReset, 140, d}},
	}
}

type stageBase struct {
	name     string
	priority int
	deps     *StageDeps
}

func (s stageBase) Name() string  { return s.name }
func (s stageBase) Priority() int { return s.priority }

func (s stageBase) rng(g *game.Game, data season.TransitionData) *rand.Rand {
	return seededRNG(g.ID, data.OldSeason, s.name)
}

func newSeasonStart(data season.TransitionData) (time.Time, error) {
	start, err := season.StartDate(data.NewSeason)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return start, nil
}

// sortedPlayers lists every player of the save in id order so seeded
// draws are stable across runs.
func (s stageBase) sortedPlayers(ctx context.Context, gameID string) ([]player.Player, error) {
	players, err := s.deps.Players.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players, nil
}

type loanReturnStage struct{ stageBase }

func (s *loanReturnStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	loans, err := s.deps.Career.ListActiveLoans(ctx, g.ID)
	if err != nil {
		return data, fmt.Errorf("list active loans: %w", err)
	}
	if len(loans) == 0 {
		data.Set(season.KeyReturnedLoans, 0)
		return data, nil
	}

	ids := make([]string, 0, len(loans))
	for _, l := range loans {
		ids = append(ids, l.PlayerID)
	}
	players, err := s.deps.Players.GetByIDs(ctx, g.ID, ids)
	if err != nil {
		return data, fmt.Errorf("load loaned players: %w", err)
	}
	byID := playersByID(players)

	moved := make([]player.Player, 0, len(loans))
	for i := range loans {
		loans[i].Active = false
		p, ok := byID[loans[i].PlayerID]
		if !ok {
			continue
		}
		p.TeamID = loans[i].ParentTeamID
		p.ParentTeamID = ""
		moved = append(moved, p)
	}
	if err := s.deps.Players.SaveBatch(ctx, moved); err != nil {
		return data, fmt.Errorf("return loaned players: %w", err)
	}
	if err := s.deps.Career.SaveLoans(ctx, loans); err != nil {
		return data, fmt.Errorf("close loans: %w", err)
	}
	data.Set(season.KeyReturnedLoans, len(moved))
	return data, nil
}

type seasonArchiveStage struct{ stageBase }

func (s *seasonArchiveStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	comps, err := s.deps.Competitions.ListByGame(ctx, g.ID)
	if err != nil {
		return data, fmt.Errorf("list competitions: %w", err)
	}

	finals := data.FinalPositions()
	if finals == nil {
		finals = make(map[string]map[string]int)
	}
	tables := make(map[string]any)
	for _, comp := range comps {
		if !comp.HasStandings() || comp.Role == competition.RoleSimulated {
			continue
		}
		ranked, err := s.deps.Standings.Ranked(ctx, g.ID, comp.ID)
		if err != nil {
			return data, err
		}
		if len(ranked) == 0 {
			continue
		}
		rows := make([]map[string]any, 0, len(ranked))
		positions := make(map[string]int, len(ranked))
		for _, r := range ranked {
			positions[r.TeamID] = r.Position
			rows = append(rows, map[string]any{
				"team_id":  r.TeamID,
				"group":    r.GroupLabel,
				"position": r.Position,
				"played":   r.Played,
				"points":   r.Points,
				"gd":       r.GoalDifference(),
			})
		}
		tables[comp.ID] = rows
		if comp.IsLeagueLike() {
			finals[comp.ID] = positions
		}
	}

	var champion string
	for teamID, pos := range finals[g.CompetitionID] {
		if pos == 1 {
			champion = teamID
		}
	}
	userPosition := finals[g.CompetitionID][g.TeamID]

	players, err := s.deps.Players.ListByGame(ctx, g.ID)
	if err != nil {
		return data, fmt.Errorf("list players: %w", err)
	}
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Goals != players[j].Goals {
			return players[i].Goals > players[j].Goals
		}
		return players[i].ID < players[j].ID
	})
	scorers := make([]map[string]any, 0, topScorersArchived)
	for _, p := range players {
		if len(scorers) == topScorersArchived || p.Goals == 0 {
			break
		}
		scorers = append(scorers, map[string]any{
			"player_id": p.ID,
			"name":      p.Name,
			"team_id":   p.TeamID,
			"goals":     p.Goals,
			"assists":   p.Assists,
		})
	}

	archive := season.Archive{
		GameID:       g.ID,
		Season:       data.OldSeason,
		ChampionID:   champion,
		UserPosition: userPosition,
		Standings:    tables,
		TopScorers:   scorers,
		CreatedAt:    s.deps.Now().UTC(),
	}
	if err := s.deps.Archives.Save(ctx, archive); err != nil {
		return data, fmt.Errorf("archive season %s: %w", data.OldSeason, err)
	}
	data.Set(season.KeyFinalPositions, finals)
	data.Set(season.KeyUserPosition, userPosition)
	return data, nil
}

type contractExpirationStage struct{ stageBase }

// Process applies agreed pre-contracts, renews expiring AI contracts and
// lets the user's out-of-contract players leave.
func (s *contractExpirationStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	start, err := newSeasonStart(data)
	if err != nil {
		return data, err
	}
	players, err := s.sortedPlayers(ctx, g.ID)
	if err != nil {
		return data, err
	}
	accepted, err := s.deps.Career.ListNegotiations(ctx, g.ID, career.DecisionAccepted)
	if err != nil {
		return data, fmt.Errorf("list accepted negotiations: %w", err)
	}
	preContracts := make(map[string]career.ContractNegotiation)
	for _, n := range accepted {
		if n.Kind == career.NegotiationPreContract {
			preContracts[n.PlayerID] = n
		}
	}

	rng := s.rng(g, data)
	saved := make([]player.Player, 0)
	var released []string
	for _, p := range players {
		if p.ContractUntil.After(start) {
			continue
		}
		if n, ok := preContracts[p.ID]; ok && n.TeamID != p.TeamID {
			p.TeamID = n.TeamID
			p.ParentTeamID = ""
			p.ContractUntil = start.AddDate(max(n.Years, 1), 0, 0)
			p.Wage = n.OfferedWage
			saved = append(saved, p)
			continue
		}
		if p.TeamID == g.TeamID {
			released = append(released, p.ID)
			if err := s.deps.Notifier.Notify(ctx, *g, Message{
				Type:     notification.TypeContract,
				Title:    fmt.Sprintf("%s has left the club", p.Name),
				Body:     "Their contract expired and they left on a free transfer.",
				Metadata: map[string]any{"player_id": p.ID},
			}); err != nil {
				return data, err
			}
			continue
		}
		p.ContractUntil = start.AddDate(1+rng.IntN(3), 0, 0)
		saved = append(saved, p)
	}

	if err := s.deps.Players.SaveBatch(ctx, saved); err != nil {
		return data, fmt.Errorf("save renewed contracts: %w", err)
	}
	if err := s.deps.Players.DeleteBatch(ctx, g.ID, released); err != nil {
		return data, fmt.Errorf("release expired players: %w", err)
	}
	data.Set(season.KeyExpiredContracts, released)
	return data, nil
}

type squadReplenishmentStage struct{ stageBase }

// Process tops every AI squad up to the minimum size. The user's squad is
// left to the user.
func (s *squadReplenishmentStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	start, err := newSeasonStart(data)
	if err != nil {
		return data, err
	}
	players, err := s.deps.Players.ListByGame(ctx, g.ID)
	if err != nil {
		return data, fmt.Errorf("list players: %w", err)
	}
	squads := squadsByTeam(players)

	teams, err := teamsInSave(ctx, s.deps.Competitions, g.ID)
	if err != nil {
		return data, err
	}

	rng := s.rng(g, data)
	var created []player.Player
	for _, teamID := range teams {
		if teamID == g.TeamID {
			continue
		}
		squad := squads[teamID]
		ability := averageAbility(squad)
		for len(squad) < s.deps.Rules.MinimumSquadSize {
			playerID, err := s.deps.IDs.NewID()
			if err != nil {
				return data, fmt.Errorf("generate player id: %w", err)
			}
			p := player.Generate(g.ID, teamID, playerID, neediestPosition(squad), ability, start, rng)
			squad = append(squad, p)
			created = append(created, p)
		}
	}
	if err := s.deps.Players.InsertBatch(ctx, created); err != nil {
		return data, fmt.Errorf("insert generated players: %w", err)
	}
	data.Set(season.KeyReplenished, len(created))
	return data, nil
}

func averageAbility(squad []player.Player) int {
	if len(squad) == 0 {
		return defaultTierAbility
	}
	total := 0
	for _, p := range squad {
		total += p.Ability
	}
	return total / len(squad)
}

// neediestPosition is the position furthest below its share of a full squad.
func neediestPosition(squad []player.Player) player.Position {
	counts := make(map[player.Position]int, len(squadShape))
	for _, p := range squad {
		counts[p.Position]++
	}
	size := float64(len(squad) + 1)
	best := player.PositionMidfielder
	bestGap := -1.0
	for _, pos := range []player.Position{player.PositionGoalkeeper, player.PositionDefender, player.PositionMidfielder, player.PositionForward} {
		gap := squadShape[pos]*size - float64(counts[pos])
		if gap > bestGap {
			best, bestGap = pos, gap
		}
	}
	return best
}

type playerRetirementStage struct{ stageBase }

func (s *playerRetirementStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	players, err := s.sortedPlayers(ctx, g.ID)
	if err != nil {
		return data, err
	}
	rng := s.rng(g, data)
	var retired []string
	for _, p := range players {
		if !player.ShouldRetire(p, s.deps.Rules.RetirementAge, rng) {
			continue
		}
		retired = append(retired, p.ID)
		if p.TeamID != g.TeamID {
			continue
		}
		if err := s.deps.Notifier.Notify(ctx, *g, Message{
			Type:     notification.TypeContract,
			Title:    fmt.Sprintf("%s retires", p.Name),
			Body:     fmt.Sprintf("%s has hung up their boots at %d.", p.Name, p.Age),
			Metadata: map[string]any{"player_id": p.ID},
		}); err != nil {
			return data, err
		}
	}
	if err := s.deps.Players.DeleteBatch(ctx, g.ID, retired); err != nil {
		return data, fmt.Errorf("remove retired players: %w", err)
	}
	data.Set(season.KeyRetiredPlayers, retired)
	return data, nil
}

type playerDevelopmentStage struct{ stageBase }

func (s *playerDevelopmentStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	start, err := newSeasonStart(data)
	if err != nil {
		return data, err
	}
	players, err := s.sortedPlayers(ctx, g.ID)
	if err != nil {
		return data, err
	}
	rng := s.rng(g, data)
	for i := range players {
		players[i] = player.Develop(players[i], s.deps.Development, rng)
		players[i].MarketValue = player.MarketValue(players[i], start)
	}
	if err := s.deps.Players.SaveBatch(ctx, players); err != nil {
		return data, fmt.Errorf("save developed players: %w", err)
	}
	data.Set(season.KeyDevelopedPlayers, len(players))
	return data, nil
}

type statsResetStage struct{ stageBase }

func (s *statsResetStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	if err := s.deps.Players.ResetSeasonStats(ctx, g.ID); err != nil {
		return data, fmt.Errorf("reset season stats: %w", err)
	}
	if err := s.deps.Suspensions.DeleteByGame(ctx, g.ID); err != nil {
		return data, fmt.Errorf("clear suspensions: %w", err)
	}
	return data, nil
}

type scoutDataResetStage struct{ stageBase }

func (s *scoutDataResetStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	if err := s.deps.Career.DeleteScoutingSearches(ctx, g.ID); err != nil {
		return data, fmt.Errorf("clear scouting searches: %w", err)
	}
	return data, nil
}

type seasonSimulationStage struct{ stageBase }

type simulatedLeague struct {
	comp  competition.Competition
	teams []matchsim.TeamStrength
}

// Process simulates every league the user's save does not play match by
// match and records the final tables. A league whose table already holds
// results keeps it, so a forced re-run reaches the same final positions.
func (s *seasonSimulationStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	comps, err := s.deps.Competitions.ListByGame(ctx, g.ID)
	if err != nil {
		return data, fmt.Errorf("list competitions: %w", err)
	}
	players, err := s.deps.Players.ListByGame(ctx, g.ID)
	if err != nil {
		return data, fmt.Errorf("list players: %w", err)
	}
	squads := squadsByTeam(players)

	finals := data.FinalPositions()
	if finals == nil {
		finals = make(map[string]map[string]int)
	}
	var leagues []simulatedLeague
	for _, comp := range comps {
		if comp.Role != competition.RoleSimulated || !comp.IsLeagueLike() {
			continue
		}
		stored, err := s.deps.Standings.Ranked(ctx, g.ID, comp.ID)
		if err != nil {
			return data, err
		}
		if tablePlayed(stored) {
			positions := make(map[string]int, len(stored))
			for _, row := range stored {
				positions[row.TeamID] = row.Position
			}
			finals[comp.ID] = positions
			continue
		}
		entries, err := s.deps.Competitions.ListEntries(ctx, g.ID, comp.ID)
		if err != nil {
			return data, fmt.Errorf("list entries competition=%s: %w", comp.ID, err)
		}
		if len(entries) < 2 {
			continue
		}
		league := simulatedLeague{comp: comp}
		for _, e := range entries {
			league.teams = append(league.teams, matchsim.TeamStrength{
				TeamID:  e.TeamID,
				Ability: firstElevenAbility(squads[e.TeamID]),
			})
		}
		leagues = append(leagues, league)
	}
	sort.Slice(leagues, func(i, j int) bool { return leagues[i].comp.ID < leagues[j].comp.ID })

	tables := iter.Map(leagues, func(l *simulatedLeague) []standing.Standing {
		rng := seededRNG(g.ID, data.OldSeason, s.name, l.comp.ID)
		return s.deps.Seasons.SimulateLeagueTable(g.ID, l.comp.ID, l.teams, rng)
	})

	for i, l := range leagues {
		if err := s.deps.Standings.ReplaceTable(ctx, g.ID, l.comp.ID, tables[i]); err != nil {
			return data, err
		}
		positions := make(map[string]int, len(tables[i]))
		for _, row := range standing.Rank(tables[i]) {
			positions[row.TeamID] = row.Position
		}
		finals[l.comp.ID] = positions
	}
	data.Set(season.KeyFinalPositions, finals)
	return data, nil
}

func tablePlayed(rows []standing.Standing) bool {
	for _, row := range rows {
		if row.Played > 0 {
			return true
		}
	}
	return false
}

// firstElevenAbility averages the best eleven players of a squad.
func firstElevenAbility(squad []player.Player) float64 {
	if len(squad) == 0 {
		return defaultTierAbility
	}
	abilities := make([]int, 0, len(squad))
	for _, p := range squad {
		abilities = append(abilities, p.Ability)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(abilities)))
	if len(abilities) > 11 {
		abilities = abilities[:11]
	}
	total := 0
	for _, a := range abilities {
		total += a
	}
	return float64(total) / float64(len(abilities))
}

type promotionRelegationStage struct{ stageBase }

type leagueMove struct {
	teamID string
	from   string
	to     string
	up     bool
}

func (s *promotionRelegationStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	comps, err := s.deps.Competitions.ListByGame(ctx, g.ID)
	if err != nil {
		return data, fmt.Errorf("list competitions: %w", err)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i].ID < comps[j].ID })
	finals := data.FinalPositions()

	var moves []leagueMove
	for _, comp := range comps {
		positions := finals[comp.ID]
		if !comp.IsLeagueLike() || len(positions) == 0 {
			continue
		}
		ordered := teamsByPosition(positions)
		if comp.PromotesToID != "" && comp.PromotionSpots > 0 {
			for _, teamID := range ordered[:min(comp.PromotionSpots, len(ordered))] {
				moves = append(moves, leagueMove{teamID: teamID, from: comp.ID, to: comp.PromotesToID, up: true})
			}
		}
		if comp.RelegatesToID != "" && comp.RelegationSpots > 0 {
			for _, teamID := range ordered[max(len(ordered)-comp.RelegationSpots, 0):] {
				moves = append(moves, leagueMove{teamID: teamID, from: comp.ID, to: comp.RelegatesToID})
			}
		}
	}

	leaving := make(map[string]map[string]bool)
	arriving := make(map[string][]string)
	var promoted, relegated []string
	for _, m := range moves {
		if leaving[m.from] == nil {
			leaving[m.from] = make(map[string]bool)
		}
		leaving[m.from][m.teamID] = true
		arriving[m.to] = append(arriving[m.to], m.teamID)
		if m.up {
			promoted = append(promoted, m.teamID)
		} else {
			relegated = append(relegated, m.teamID)
		}
	}

	for _, comp := range comps {
		if len(leaving[comp.ID]) == 0 && len(arriving[comp.ID]) == 0 {
			continue
		}
		entries, err := s.deps.Competitions.ListEntries(ctx, g.ID, comp.ID)
		if err != nil {
			return data, fmt.Errorf("list entries competition=%s: %w", comp.ID, err)
		}
		// a forced re-run finds earlier moves already applied
		next := make([]competition.Entry, 0, len(entries)+len(arriving[comp.ID]))
		present := make(map[string]bool, len(entries))
		for _, e := range entries {
			if !leaving[comp.ID][e.TeamID] && !present[e.TeamID] {
				next = append(next, e)
				present[e.TeamID] = true
			}
		}
		for _, teamID := range arriving[comp.ID] {
			if present[teamID] {
				continue
			}
			next = append(next, competition.Entry{GameID: g.ID, CompetitionID: comp.ID, TeamID: teamID})
			present[teamID] = true
		}
		if err := s.deps.Competitions.ReplaceEntries(ctx, g.ID, comp.ID, next); err != nil {
			return data, fmt.Errorf("replace entries competition=%s: %w", comp.ID, err)
		}
	}

	for _, m := range moves {
		if m.teamID != g.TeamID {
			continue
		}
		if err := s.deps.Competitions.UpdateParticipation(ctx, g.ID, m.from, competition.RoleSimulated, false); err != nil {
			return data, fmt.Errorf("leave competition=%s: %w", m.from, err)
		}
		if err := s.deps.Competitions.UpdateParticipation(ctx, g.ID, m.to, competition.RolePrimary, true); err != nil {
			return data, fmt.Errorf("join competition=%s: %w", m.to, err)
		}
		g.CompetitionID = m.to
		data.CompetitionID = m.to
		s.deps.Logger.InfoContext(ctx, "user team changes league",
			"game_id", g.ID,
			"from", m.from,
			"to", m.to,
			"promoted", m.up,
		)
	}

	data.Set(season.KeyPromotedTeams, promoted)
	data.Set(season.KeyRelegatedTeams, relegated)
	return data, nil
}

// teamsByPosition orders a final table from first to last.
func teamsByPosition(positions map[string]int) []string {
	out := make([]string, 0, len(positions))
	for teamID := range positions {
		out = append(out, teamID)
	}
	sort.Slice(out, func(i, j int) bool {
		if positions[out[i]] != positions[out[j]] {
			return positions[out[i]] < positions[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

type primaryCompetitionInitStage struct{ stageBase }

// Process clears last season's fixtures and schedules the user's league.
func (s *primaryCompetitionInitStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	start, err := newSeasonStart(data)
	if err != nil {
		return data, err
	}
	if _, err := s.deps.Ties.DeleteByGame(ctx, g.ID); err != nil {
		return data, fmt.Errorf("delete cup ties: %w", err)
	}
	if _, err := s.deps.Events.DeleteByGame(ctx, g.ID); err != nil {
		return data, fmt.Errorf("delete match events: %w", err)
	}
	archived, err := s.deps.Matches.DeleteByGame(ctx, g.ID)
	if err != nil {
		return data, fmt.Errorf("delete matches: %w", err)
	}
	if err := s.deps.Competitions.DeleteRounds(ctx, g.ID); err != nil {
		return data, fmt.Errorf("delete rounds: %w", err)
	}
	data.Set(season.KeyArchivedMatches, archived)

	comp, ok, err := s.deps.Competitions.GetByID(ctx, g.ID, g.CompetitionID)
	if err != nil {
		return data, fmt.Errorf("get competition=%s: %w", g.CompetitionID, err)
	}
	if !ok {
		return data, fmt.Errorf("%w: competition=%s", ErrNotFound, g.CompetitionID)
	}
	entries, err := s.deps.Competitions.ListEntries(ctx, g.ID, comp.ID)
	if err != nil {
		return data, fmt.Errorf("list entries competition=%s: %w", comp.ID, err)
	}

	matches, rounds, err := roundRobinFixtures(s.deps.IDs, g.ID, comp.ID, "", entryTeams(entries), start.Add(kickoffOffset), s.deps.Rules.FixtureInterval, 0)
	if err != nil {
		return data, err
	}
	if err := s.deps.Matches.InsertBatch(ctx, matches); err != nil {
		return data, fmt.Errorf("insert fixtures competition=%s: %w", comp.ID, err)
	}
	if err := s.deps.Competitions.UpsertRounds(ctx, g.ID, rounds); err != nil {
		return data, fmt.Errorf("save rounds competition=%s: %w", comp.ID, err)
	}
	data.Set(season.KeyFixturesGenerated, len(matches))
	return data, nil
}

// roundRobinFixtures builds league fixtures and their round definitions.
// maxRounds above zero truncates the schedule.
func roundRobinFixtures(ids id.Generator, gameID, competitionID, group string, teams []string, start time.Time, interval time.Duration, maxRounds int) ([]match.Match, []competition.Round, error) {
	if len(teams) < 2 {
		return nil, nil, nil
	}
	pairings, err := competition.GenerateRoundRobin(teams, start, interval)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: competition=%s: %v", ErrInvalidInput, competitionID, err)
	}
	matches := make([]match.Match, 0, len(pairings))
	roundDates := make(map[int]time.Time)
	for _, p := range pairings {
		if maxRounds > 0 && p.RoundNumber > maxRounds {
			continue
		}
		matchID, err := ids.NewID()
		if err != nil {
			return nil, nil, fmt.Errorf("generate match id: %w", err)
		}
		name := fmt.Sprintf("Matchday %d", p.RoundNumber)
		if group != "" {
			name = fmt.Sprintf("Group %s matchday %d", group, p.RoundNumber)
		}
		matches = append(matches, match.Match{
			ID:            matchID,
			GameID:        gameID,
			CompetitionID: competitionID,
			RoundNumber:   p.RoundNumber,
			RoundName:     name,
			HomeTeamID:    p.HomeTeamID,
			AwayTeamID:    p.AwayTeamID,
			ScheduledDate: p.Date,
		})
		roundDates[p.RoundNumber] = p.Date
	}

	rounds := make([]competition.Round, 0, len(roundDates))
	for number, date := range roundDates {
		rounds = append(rounds, competition.Round{
			CompetitionID: competitionID,
			Number:        number,
			Name:          fmt.Sprintf("Matchday %d", number),
			FirstLegDate:  date,
		})
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Number < rounds[j].Number })
	return matches, rounds, nil
}

func entryTeams(entries []competition.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.TeamID)
	}
	sort.Strings(out)
	return out
}

// teamsInSave lists every team entered in any competition of the save.
func teamsInSave(ctx context.Context, comps competition.Repository, gameID string) ([]string, error) {
	all, err := comps.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}
	seen := make(map[string]struct{})
	for _, c := range all {
		entries, err := comps.ListEntries(ctx, gameID, c.ID)
		if err != nil {
			return nil, fmt.Errorf("list entries competition=%s: %w", c.ID, err)
		}
		for _, e := range entries {
			seen[e.TeamID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for teamID := range seen {
		out = append(out, teamID)
	}
	sort.Strings(out)
	return out, nil
}

type standingsResetStage struct{ stageBase }

// Process creates empty tables for every competition with a league phase.
func (s *standingsResetStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	comps, err := s.deps.Competitions.ListByGame(ctx, g.ID)
	if err != nil {
		return data, fmt.Errorf("list competitions: %w", err)
	}
	for _, comp := range comps {
		if !comp.IsLeagueLike() {
			continue
		}
		entries, err := s.deps.Competitions.ListEntries(ctx, g.ID, comp.ID)
		if err != nil {
			return data, fmt.Errorf("list entries competition=%s: %w", comp.ID, err)
		}
		if err := s.deps.Standings.ReplaceTable(ctx, g.ID, comp.ID, nil); err != nil {
			return data, err
		}
		if err := s.deps.Standings.InitializeStandings(ctx, g.ID, entries); err != nil {
			return data, err
		}
	}
	return data, nil
}

type continentalQualificationStage struct{ stageBase }

type qualifier struct {
	teamID   string
	position int
	source   string
}

// Process rebuilds the entry lists of competitions fed by league finishes.
// Entrants that came from outside the save's leagues are kept.
func (s *continentalQualificationStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	comps, err := s.deps.Competitions.ListByGame(ctx, g.ID)
	if err != nil {
		return data, fmt.Errorf("list competitions: %w", err)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i].ID < comps[j].ID })
	byID := make(map[string]competition.Competition, len(comps))
	for _, c := range comps {
		byID[c.ID] = c
	}
	finals := data.FinalPositions()

	qualifiers := make(map[string][]qualifier)
	sources := make(map[string]map[string]struct{})
	for _, comp := range comps {
		positions := finals[comp.ID]
		for _, target := range comp.QualificationTargets {
			if sources[target.CompetitionID] == nil {
				sources[target.CompetitionID] = make(map[string]struct{})
			}
			sources[target.CompetitionID][comp.ID] = struct{}{}
			for _, teamID := range teamsByPosition(positions) {
				pos := positions[teamID]
				if pos >= target.FromPosition && pos <= target.ToPosition {
					qualifiers[target.CompetitionID] = append(qualifiers[target.CompetitionID], qualifier{teamID: teamID, position: pos, source: comp.ID})
				}
			}
		}
	}

	targets := make([]string, 0, len(sources))
	for targetID := range sources {
		targets = append(targets, targetID)
	}
	sort.Strings(targets)

	qualified := make(map[string][]string, len(targets))
	for _, targetID := range targets {
		target, ok := byID[targetID]
		if !ok {
			s.deps.Logger.WarnContext(ctx, "qualification target missing", "game_id", g.ID, "competition_id", targetID)
			continue
		}
		domestic := make(map[string]struct{})
		for sourceID := range sources[targetID] {
			for teamID := range finals[sourceID] {
				domestic[teamID] = struct{}{}
			}
			entries, err := s.deps.Competitions.ListEntries(ctx, g.ID, sourceID)
			if err != nil {
				return data, fmt.Errorf("list entries competition=%s: %w", sourceID, err)
			}
			for _, e := range entries {
				domestic[e.TeamID] = struct{}{}
			}
		}

		current, err := s.deps.Competitions.ListEntries(ctx, g.ID, targetID)
		if err != nil {
			return data, fmt.Errorf("list entries competition=%s: %w", targetID, err)
		}
		sort.Slice(current, func(i, j int) bool { return current[i].Seed < current[j].Seed })

		qs := qualifiers[targetID]
		sort.SliceStable(qs, func(i, j int) bool { return qs[i].position < qs[j].position })

		seen := make(map[string]struct{})
		teams := make([]string, 0, len(current)+len(qs))
		for _, q := range qs {
			if _, dup := seen[q.teamID]; dup {
				continue
			}
			seen[q.teamID] = struct{}{}
			teams = append(teams, q.teamID)
			qualified[targetID] = append(qualified[targetID], q.teamID)
		}
		for _, e := range current {
			if _, ok := domestic[e.TeamID]; ok {
				continue
			}
			if _, dup := seen[e.TeamID]; dup {
				continue
			}
			seen[e.TeamID] = struct{}{}
			teams = append(teams, e.TeamID)
		}

		entries := seededEntries(g.ID, target, teams)
		if err := s.deps.Competitions.ReplaceEntries(ctx, g.ID, targetID, entries); err != nil {
			return data, fmt.Errorf("replace entries competition=%s: %w", targetID, err)
		}

		_, userIn := seen[g.TeamID]
		if userIn != target.Participating {
			if err := s.deps.Competitions.UpdateParticipation(ctx, g.ID, targetID, competition.RoleContinental, userIn); err != nil {
				return data, fmt.Errorf("update participation competition=%s: %w", targetID, err)
			}
		}
	}
	data.Set(season.KeyQualifiedTeams, qualified)
	return data, nil
}

// seededEntries numbers teams in order and deals group labels in a snake
// so each group gets one team from every pot.
func seededEntries(gameID string, comp competition.Competition, teams []string) []competition.Entry {
	groups := 0
	if comp.Format == competition.FormatGroupStageCup {
		groups = max(len(teams)/groupSize, 1)
	}
	out := make([]competition.Entry, 0, len(teams))
	for i, teamID := range teams {
		e := competition.Entry{GameID: gameID, CompetitionID: comp.ID, TeamID: teamID, Seed: i + 1}
		if groups > 0 {
			idx := i % groups
			if (i/groups)%2 == 1 {
				idx = groups - 1 - idx
			}
			e.GroupLabel = string(rune('A' + idx))
		}
		out = append(out, e)
	}
	return out
}

type secondaryCompetitionInitStage struct{ stageBase }

// Process schedules the cups and continental competitions the user's team
// takes part in. Knockout cups only get their first round dated; the draw
// happens when that round comes up.
func (s *secondaryCompetitionInitStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	start, err := newSeasonStart(data)
	if err != nil {
		return data, err
	}
	comps, err := s.deps.Competitions.ListByGame(ctx, g.ID)
	if err != nil {
		return data, fmt.Errorf("list competitions: %w", err)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i].ID < comps[j].ID })

	midweek := start.Add(kickoffOffset + midweekOffset)
	interval := 2 * s.deps.Rules.FixtureInterval
	var matches []match.Match
	var rounds []competition.Round
	for _, comp := range comps {
		if !comp.Participating || comp.ID == g.CompetitionID {
			continue
		}
		entries, err := s.deps.Competitions.ListEntries(ctx, g.ID, comp.ID)
		if err != nil {
			return data, fmt.Errorf("list entries competition=%s: %w", comp.ID, err)
		}

		switch comp.Format {
		case competition.FormatKnockoutCup:
			rounds = append(rounds, competition.Round{
				CompetitionID: comp.ID,
				Number:        1,
				Name:          competition.RoundName(len(entries) + len(entries)%2),
				FirstLegDate:  midweek.Add(interval),
				Knockout:      true,
			})
			continue
		case competition.FormatGroupStageCup:
			byGroup := make(map[string][]string)
			for _, e := range entries {
				byGroup[e.GroupLabel] = append(byGroup[e.GroupLabel], e.TeamID)
			}
			labels := make([]string, 0, len(byGroup))
			for label := range byGroup {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			for _, label := range labels {
				teams := byGroup[label]
				sort.Strings(teams)
				ms, rs, err := roundRobinFixtures(s.deps.IDs, g.ID, comp.ID, label, teams, midweek, interval, 0)
				if err != nil {
					return data, err
				}
				matches = append(matches, ms...)
				rounds = mergeRounds(rounds, rs)
			}
		default:
			maxRounds := 0
			if comp.Format == competition.FormatSwiss {
				maxRounds = swissLeagueRounds
			}
			ms, rs, err := roundRobinFixtures(s.deps.IDs, g.ID, comp.ID, "", entryTeams(entries), midweek, interval, maxRounds)
			if err != nil {
				return data, err
			}
			matches = append(matches, ms...)
			rounds = append(rounds, rs...)
		}

		if err := s.deps.Standings.ReplaceTable(ctx, g.ID, comp.ID, nil); err != nil {
			return data, err
		}
		if err := s.deps.Standings.InitializeStandings(ctx, g.ID, entries); err != nil {
			return data, err
		}
	}

	if err := s.deps.Matches.InsertBatch(ctx, matches); err != nil {
		return data, fmt.Errorf("insert secondary fixtures: %w", err)
	}
	if err := s.deps.Competitions.UpsertRounds(ctx, g.ID, rounds); err != nil {
		return data, fmt.Errorf("save secondary rounds: %w", err)
	}
	data.Set(season.KeyFixturesGenerated, data.Int(season.KeyFixturesGenerated)+len(matches))
	return data, nil
}

// mergeRounds adds rounds not yet defined for the same competition and
// number. Groups share round numbers and dates.
func mergeRounds(existing, more []competition.Round) []competition.Round {
	type key struct {
		comp   string
		number int
	}
	seen := make(map[key]struct{}, len(existing))
	for _, r := range existing {
		seen[key{r.CompetitionID, r.Number}] = struct{}{}
	}
	for _, r := range more {
		k := key{r.CompetitionID, r.Number}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		existing = append(existing, r)
	}
	return existing
}

type budgetProjectionStage struct{ stageBase }

func (s *budgetProjectionStage) Process(ctx context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	comp, ok, err := s.deps.Competitions.GetByID(ctx, g.ID, g.CompetitionID)
	if err != nil {
		return data, fmt.Errorf("get competition=%s: %w", g.CompetitionID, err)
	}
	if !ok {
		return data, fmt.Errorf("%w: competition=%s", ErrNotFound, g.CompetitionID)
	}
	entries, err := s.deps.Competitions.ListEntries(ctx, g.ID, comp.ID)
	if err != nil {
		return data, fmt.Errorf("list entries competition=%s: %w", comp.ID, err)
	}
	squad, err := s.deps.Players.ListByTeams(ctx, g.ID, []string{g.TeamID})
	if err != nil {
		return data, fmt.Errorf("list squad: %w", err)
	}
	var wageBill int64
	for _, p := range squad {
		wageBill += p.Wage
	}

	// a team that changed league has no comparable finish; project mid-table
	position := data.Int(season.KeyUserPosition)
	for _, teamID := range append(data.Strings(season.KeyPromotedTeams), data.Strings(season.KeyRelegatedTeams)...) {
		if teamID == g.TeamID {
			position = 0
		}
	}

	snapshot := finance.Project(position, comp.Tier, len(entries), wageBill)
	snapshot.GameID = g.ID
	snapshot.Season = data.NewSeason
	if err := s.deps.Finance.SaveSnapshot(ctx, snapshot); err != nil {
		return data, fmt.Errorf("save budget projection: %w", err)
	}
	g.Budget = snapshot.TransferBudget
	data.Set(season.KeyBudget, snapshot.TransferBudget)
	return data, nil
}

type onboardingResetStage struct{ stageBase }

func (s *onboardingResetStage) Process(_ context.Context, g *game.Game, data season.TransitionData) (season.TransitionData, error) {
	g.NeedsOnboarding = true
	return data, nil
}
