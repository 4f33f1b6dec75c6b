package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/domain/standing"
	"github.com/riskibarqy/career-engine/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/career-engine/internal/platform/id"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testGameID   = "g1"
	testUserTeam = "usr"
	testLeagueID = "lg"
	testCupID    = "cup"
)

var testSeasonStart = time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

// scriptedSimulator replays canned results keyed by match id. Matches
// without a script end 0-0.
type scriptedSimulator struct {
	regular   map[string]match.SimulationResult
	extra     map[string]match.SimulationResult
	remainder map[string]match.SimulationResult
	shootouts map[string]match.ShootoutResult

	mu            sync.Mutex
	extraCalls    int
	shootoutCalls int
}

func newScriptedSimulator() *scriptedSimulator {
	return &scriptedSimulator{
		regular:   make(map[string]match.SimulationResult),
		extra:     make(map[string]match.SimulationResult),
		remainder: make(map[string]match.SimulationResult),
		shootouts: make(map[string]match.ShootoutResult),
	}
}

func (s *scriptedSimulator) Simulate(in match.SimulationInput) match.SimulationResult {
	return cloneResult(s.regular[in.MatchID])
}

func (s *scriptedSimulator) SimulateExtraTime(in match.SimulationInput) match.SimulationResult {
	s.mu.Lock()
	s.extraCalls++
	s.mu.Unlock()
	return cloneResult(s.extra[in.MatchID])
}

func (s *scriptedSimulator) SimulatePenaltyShootout(home, away match.SideInput, _ match.KickerOrder) match.ShootoutResult {
	s.mu.Lock()
	s.shootoutCalls++
	s.mu.Unlock()
	return s.shootouts[home.TeamID+"|"+away.TeamID]
}

func (s *scriptedSimulator) SimulateRemainder(in match.SimulationInput, _ int) match.SimulationResult {
	return cloneResult(s.remainder[in.MatchID])
}

func (s *scriptedSimulator) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extraCalls, s.shootoutCalls
}

func cloneResult(r match.SimulationResult) match.SimulationResult {
	r.Events = append([]match.Event(nil), r.Events...)
	return r
}

// scripted builds a result whose score is counted from its events.
func scripted(homeTeamID, awayTeamID string, events ...match.Event) match.SimulationResult {
	home, away := match.ScoreFromEvents(events, homeTeamID, awayTeamID)
	return match.SimulationResult{HomeScore: home, AwayScore: away, Events: events}
}

func goal(teamID string, minute int) match.Event {
	return match.Event{TeamID: teamID, PlayerID: teamID + "-f1", Minute: minute, Type: match.EventGoal}
}

func goalBy(teamID, playerID string, minute int) match.Event {
	return match.Event{TeamID: teamID, PlayerID: playerID, Minute: minute, Type: match.EventGoal}
}

func yellow(teamID, playerID string, minute int) match.Event {
	return match.Event{TeamID: teamID, PlayerID: playerID, Minute: minute, Type: match.EventYellowCard}
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, job CareerActionJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// harness wires every matchday service over one in-memory store.
type harness struct {
	store *memory.Store
	sim   *scriptedSimulator

	games         *memory.GameRepository
	competitions  *memory.CompetitionRepository
	matches       *memory.MatchRepository
	events        *memory.EventRepository
	ties          *memory.CupTieRepository
	players       *memory.PlayerRepository
	suspensions   *memory.SuspensionRepository
	standingsRepo *memory.StandingRepository
	careerRepo    *memory.CareerRepository
	notifications *memory.NotificationRepository
	finance       *memory.FinanceRepository
	dispatches    *memory.JobDispatchRepository

	notifier     *NotificationService
	eligibility  *EligibilityService
	standings    *StandingsCalculator
	resolver     *CupTieResolver
	handlers     *HandlerResolver
	finalization *MatchFinalizationService
	resimulation *MatchResimulationService
	orchestrator *MatchdayOrchestrator
	career       *CareerActionProcessor
}

func newHarness(t *testing.T, data memory.SeedData, dispatcher CareerActionDispatcher) *harness {
	t.Helper()

	store := memory.NewStore()
	store.Load(data)
	h := &harness{
		store:         store,
		sim:           newScriptedSimulator(),
		games:         memory.NewGameRepository(store),
		competitions:  memory.NewCompetitionRepository(store),
		matches:       memory.NewMatchRepository(store),
		events:        memory.NewEventRepository(store),
		ties:          memory.NewCupTieRepository(store),
		players:       memory.NewPlayerRepository(store),
		suspensions:   memory.NewSuspensionRepository(store),
		standingsRepo: memory.NewStandingRepository(store),
		careerRepo:    memory.NewCareerRepository(store),
		notifications: memory.NewNotificationRepository(store),
		finance:       memory.NewFinanceRepository(store),
		dispatches:    memory.NewJobDispatchRepository(store),
	}

	ids := id.NewSequenceGenerator("t")
	rules := GameplayRules{}
	h.notifier = NewNotificationService(h.notifications, ids, nil)
	h.eligibility = NewEligibilityService(h.suspensions, h.players, h.notifier, rules, nil)
	h.standings = NewStandingsCalculator(h.standingsRepo)
	h.resolver = NewCupTieResolver(h.matches, h.events, h.ties, h.players, h.eligibility, h.sim, ids, nil)
	h.handlers = NewHandlerResolver(HandlerDeps{
		Competitions: h.competitions,
		Matches:      h.matches,
		Ties:         h.ties,
		Standings:    h.standings,
		Resolver:     h.resolver,
		Notifier:     h.notifier,
		IDs:          ids,
		Rules:        rules,
	})
	h.finalization = NewMatchFinalizationService(store, h.games, h.matches, h.ties, h.competitions, h.players, h.resolver, nil)
	FinalizationListeners{
		Standings:  NewStandingsListener(h.standings, h.handlers),
		Keepers:    NewGoalkeeperListener(h.players),
		Inbox:      NewFinalizationNotifier(h.notifier, h.events, h.suspensions, h.ties),
		PrizeMoney: NewPrizeMoneyListener(h.finance, h.notifier),
	}.SubscribeTo(h.finalization)
	h.resimulation = NewMatchResimulationService(store, h.games, h.matches, h.events, h.players, h.eligibility, h.sim, ids, rules, nil)

	processor := NewMatchResultProcessor(h.matches, h.events, h.players, h.suspensions, h.eligibility, h.standings, rules, nil)
	h.orchestrator = NewMatchdayOrchestrator(OrchestratorDeps{
		Tx:           store,
		Games:        h.games,
		Players:      h.players,
		Ties:         h.ties,
		Matchdays:    NewMatchdayService(h.competitions, h.matches, h.handlers, nil),
		Lineups:      NewLineupSelector(h.matches),
		Eligibility:  h.eligibility,
		Processor:    processor,
		Standings:    h.standings,
		Resolver:     h.resolver,
		Finalization: h.finalization,
		Notifier:     h.notifier,
		Simulator:    h.sim,
		IDs:          ids,
		Dispatcher:   dispatcher,
		DispatchRepo: h.dispatches,
		Rules:        rules,
	})
	h.career = NewCareerActionProcessor(store, h.games, h.careerRepo, h.players, h.notifier, ids, rules, nil, nil)
	return h
}

func (h *harness) game(t *testing.T) game.Game {
	t.Helper()
	g, ok, err := h.games.GetByID(context.Background(), testGameID)
	require.NoError(t, err)
	require.True(t, ok)
	return g
}

func (h *harness) match(t *testing.T, matchID string) match.Match {
	t.Helper()
	m, ok, err := h.matches.GetByID(context.Background(), testGameID, matchID)
	require.NoError(t, err)
	require.True(t, ok)
	return m
}

func (h *harness) player(t *testing.T, playerID string) player.Player {
	t.Helper()
	list, err := h.players.GetByIDs(context.Background(), testGameID, []string{playerID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func (h *harness) standing(t *testing.T, competitionID, teamID string) standing.Standing {
	t.Helper()
	rows, err := h.standingsRepo.ListByCompetition(context.Background(), testGameID, competitionID)
	require.NoError(t, err)
	for _, row := range rows {
		if row.TeamID == teamID {
			return row
		}
	}
	t.Fatalf("no standing for team %s in %s", teamID, competitionID)
	return standing.Standing{}
}

// requireScoreMatchesEvents checks a played match's score against its goal
// events.
func (h *harness) requireScoreMatchesEvents(t *testing.T, matchID string) {
	t.Helper()
	m := h.match(t, matchID)
	events, err := h.events.ListByMatch(context.Background(), testGameID, matchID)
	require.NoError(t, err)
	home, away := match.ScoreFromEvents(match.FilterWindow(events, 0, match.RegulationMinutes), m.HomeTeamID, m.AwayTeamID)
	gotHome, gotAway := m.Score()
	require.Equal(t, home, gotHome, "home score of %s", matchID)
	require.Equal(t, away, gotAway, "away score of %s", matchID)
}

// squad gives a team one keeper, four defenders, four midfielders, two
// forwards and three substitutes.
func squad(teamID string) []player.Player {
	slots := []struct {
		suffix   string
		position player.Position
	}{
		{"gk", player.PositionGoalkeeper},
		{"d1", player.PositionDefender}, {"d2", player.PositionDefender}, {"d3", player.PositionDefender}, {"d4", player.PositionDefender},
		{"m1", player.PositionMidfielder}, {"m2", player.PositionMidfielder}, {"m3", player.PositionMidfielder}, {"m4", player.PositionMidfielder},
		{"f1", player.PositionForward}, {"f2", player.PositionForward},
		{"s1", player.PositionDefender}, {"s2", player.PositionMidfielder}, {"s3", player.PositionForward},
	}
	out := make([]player.Player, 0, len(slots))
	for i, slot := range slots {
		ability := 70
		if slot.suffix[0] == 's' {
			ability = 60
		}
		out = append(out, player.Player{
			ID:            teamID + "-" + slot.suffix,
			GameID:        testGameID,
			TeamID:        teamID,
			Name:          fmt.Sprintf("%s player %d", teamID, i+1),
			Position:      slot.position,
			Age:           26,
			Ability:       ability,
			Potential:     ability,
			Fitness:       100,
			Morale:        70,
			ContractUntil: testSeasonStart.AddDate(3, 0, 0),
			Wage:          10_000,
		})
	}
	return out
}

func starters(teamID string) []string {
	return []string{
		teamID + "-gk",
		teamID + "-d1", teamID + "-d2", teamID + "-d3", teamID + "-d4",
		teamID + "-m1", teamID + "-m2", teamID + "-m3", teamID + "-m4",
		teamID + "-f1", teamID + "-f2",
	}
}

// leagueSave builds a save whose primary league has the given teams, with
// the user's team first.
func leagueSave(teams []string) memory.SeedData {
	data := memory.SeedData{
		Games: []game.Game{{
			ID:            testGameID,
			UserID:        "user-1",
			TeamID:        testUserTeam,
			Season:        "2025/26",
			CompetitionID: testLeagueID,
			CurrentDate:   testSeasonStart,
			Budget:        1_000_000,
		}},
		Competitions: []competition.Competition{{
			ID: testLeagueID, GameID: testGameID, Name: "Test League", Format: competition.FormatLeague,
			Role: competition.RolePrimary, Tier: 1, Participating: true,
		}},
	}
	for i, teamID := range teams {
		data.Entries = append(data.Entries, competition.Entry{GameID: testGameID, CompetitionID: testLeagueID, TeamID: teamID, Seed: i + 1})
		data.Standings = append(data.Standings, standing.Standing{GameID: testGameID, CompetitionID: testLeagueID, TeamID: teamID})
		data.Players = append(data.Players, squad(teamID)...)
	}
	return data
}

func newFixture(matchID, competitionID, home, away string, round int, date time.Time) match.Match {
	return match.Match{
		ID:            matchID,
		GameID:        testGameID,
		CompetitionID: competitionID,
		RoundNumber:   round,
		RoundName:     fmt.Sprintf("Matchday %d", round),
		HomeTeamID:    home,
		AwayTeamID:    away,
		ScheduledDate: date,
	}
}

// playedLeg is a finished cup leg with the given regulation score.
func playedLeg(matchID, tieID, home, away string, homeGoals, awayGoals int, date time.Time) match.Match {
	m := newFixture(matchID, testCupID, home, away, 1, date)
	m.CupTieID = tieID
	m.RoundName = "Final"
	m.Played = true
	m.HomeScore = match.IntPtr(homeGoals)
	m.AwayScore = match.IntPtr(awayGoals)
	m.HomeLineup = starters(home)
	m.AwayLineup = starters(away)
	return m
}

// legGoals are the stored events behind a leg's regulation score.
func legGoals(matchID, home, away string, homeGoals, awayGoals int) []match.Event {
	out := make([]match.Event, 0, homeGoals+awayGoals)
	add := func(teamID string, n, offset int) {
		for i := 0; i < n; i++ {
			e := goal(teamID, offset+i*10)
			e.ID = fmt.Sprintf("%s-%s-%d", matchID, teamID, i)
			e.GameID = testGameID
			e.MatchID = matchID
			e.CompetitionID = testCupID
			out = append(out, e)
		}
	}
	add(home, homeGoals, 10)
	add(away, awayGoals, 15)
	return out
}

func cupSave(teams ...string) memory.SeedData {
	data := leagueSave(teams)
	data.Competitions = append(data.Competitions, competition.Competition{
		ID: testCupID, GameID: testGameID, Name: "Test Cup", Format: competition.FormatKnockoutCup,
		Role: competition.RoleDomesticCup, Participating: true, PrizeMoneyPerRound: 250_000,
	})
	return data
}
