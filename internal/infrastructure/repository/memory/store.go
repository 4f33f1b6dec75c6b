package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/riskibarqy/career-engine/internal/domain/career"
	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/finance"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/jobscheduler"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/domain/season"
	"github.com/riskibarqy/career-engine/internal/domain/standing"
)

// Store keeps every table of a career save in process memory. Units of work
// are serialised; a failed one restores the state it started from.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	t    *tables
}

type txKey struct{}

type tables struct {
	games         map[string]game.Game
	actions       map[string][]game.PendingAction
	competitions  map[string]map[string]competition.Competition
	entries       map[string]map[string][]competition.Entry
	rounds        map[string]map[string][]competition.Round
	matches       map[string]map[string]match.Match
	events        map[string][]match.Event
	ties          map[string]map[string]match.CupTie
	players       map[string]map[string]player.Player
	suspensions   map[string]map[player.SuspensionKey]player.Suspension
	standings     map[string]map[string][]standing.Standing
	notifications map[string][]notification.Notification
	offers        map[string]map[string]career.TransferOffer
	negotiations  map[string]map[string]career.ContractNegotiation
	loanRequests  map[string]map[string]career.LoanRequest
	loans         map[string]map[string]career.Loan
	loanSearches  map[string]map[string]career.LoanSearch
	scouting      map[string]map[string]career.ScoutingSearch
	academy       map[string]map[string]career.AcademyPlayer
	archives      map[string][]season.Archive
	snapshots     map[string][]finance.Snapshot
	dispatches    map[string]jobscheduler.DispatchEvent
}

func NewStore() *Store {
	return &Store{t: &tables{
		games:         make(map[string]game.Game),
		actions:       make(map[string][]game.PendingAction),
		competitions:  make(map[string]map[string]competition.Competition),
		entries:       make(map[string]map[string][]competition.Entry),
		rounds:        make(map[string]map[string][]competition.Round),
		matches:       make(map[string]map[string]match.Match),
		events:        make(map[string][]match.Event),
		ties:          make(map[string]map[string]match.CupTie),
		players:       make(map[string]map[string]player.Player),
		suspensions:   make(map[string]map[player.SuspensionKey]player.Suspension),
		standings:     make(map[string]map[string][]standing.Standing),
		notifications: make(map[string][]notification.Notification),
		offers:        make(map[string]map[string]career.TransferOffer),
		negotiations:  make(map[string]map[string]career.ContractNegotiation),
		loanRequests:  make(map[string]map[string]career.LoanRequest),
		loans:         make(map[string]map[string]career.Loan),
		loanSearches:  make(map[string]map[string]career.LoanSearch),
		scouting:      make(map[string]map[string]career.ScoutingSearch),
		academy:       make(map[string]map[string]career.AcademyPlayer),
		archives:      make(map[string][]season.Archive),
		snapshots:     make(map[string][]finance.Snapshot),
		dispatches:    make(map[string]jobscheduler.DispatchEvent),
	}}
}

// WithinTx runs fn as one unit of work. Nested calls join the outer one.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.t.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// InTx reports whether ctx carries a unit of work started by WithinTx.
func InTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

func (s *Store) read(fn func(t *tables)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.t)
}

func (s *Store) write(fn func(t *tables)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.t)
}

func (t *tables) clone() *tables {
	return &tables{
		games:         maps.Clone(t.games),
		actions:       cloneLists(t.actions),
		competitions:  cloneNested(t.competitions),
		entries:       cloneNestedLists(t.entries),
		rounds:        cloneNestedLists(t.rounds),
		matches:       cloneNested(t.matches),
		events:        cloneLists(t.events),
		ties:          cloneNested(t.ties),
		players:       cloneNested(t.players),
		suspensions:   cloneNested(t.suspensions),
		standings:     cloneNestedLists(t.standings),
		notifications: cloneLists(t.notifications),
		offers:        cloneNested(t.offers),
		negotiations:  cloneNested(t.negotiations),
		loanRequests:  cloneNested(t.loanRequests),
		loans:         cloneNested(t.loans),
		loanSearches:  cloneNested(t.loanSearches),
		scouting:      cloneNested(t.scouting),
		academy:       cloneNested(t.academy),
		archives:      cloneLists(t.archives),
		snapshots:     cloneLists(t.snapshots),
		dispatches:    maps.Clone(t.dispatches),
	}
}

func cloneNested[K comparable, V any](m map[string]map[K]V) map[string]map[K]V {
	out := make(map[string]map[K]V, len(m))
	for k, inner := range m {
		out[k] = maps.Clone(inner)
	}
	return out
}

func cloneLists[V any](m map[string][]V) map[string][]V {
	out := make(map[string][]V, len(m))
	for k, list := range m {
		out[k] = slices.Clone(list)
	}
	return out
}

func cloneNestedLists[V any](m map[string]map[string][]V) map[string]map[string][]V {
	out := make(map[string]map[string][]V, len(m))
	for k, inner := range m {
		out[k] = cloneLists(inner)
	}
	return out
}

// table returns the per-game inner map, creating it on first use.
func table[K comparable, V any](m map[string]map[K]V, gameID string) map[K]V {
	inner, ok := m[gameID]
	if !ok {
		inner = make(map[K]V)
		m[gameID] = inner
	}
	return inner
}

func sortedByID[V any](m map[string]V) []V {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func idSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// SeedData is a complete save loaded in one call.
type SeedData struct {
	Games          []game.Game
	PendingActions []game.PendingAction
	Competitions   []competition.Competition
	Entries        []competition.Entry
	Rounds         []competition.Round
	Matches        []match.Match
	Events         []match.Event
	Ties           []match.CupTie
	Players        []player.Player
	Suspensions    []player.Suspension
	Standings      []standing.Standing
	Offers         []career.TransferOffer
	Negotiations   []career.ContractNegotiation
	LoanRequests   []career.LoanRequest
	Loans          []career.Loan
	Academy        []career.AcademyPlayer
}

// Load inserts data, replacing rows with the same keys.
func (s *Store) Load(data SeedData) {
	s.write(func(t *tables) {
		for _, g := range data.Games {
			t.games[g.ID] = g
		}
		for _, a := range data.PendingActions {
			t.actions[a.GameID] = append(t.actions[a.GameID], a)
		}
		for _, c := range data.Competitions {
			table(t.competitions, c.GameID)[c.ID] = c
		}
		for _, e := range data.Entries {
			entries := table(t.entries, e.GameID)
			entries[e.CompetitionID] = append(entries[e.CompetitionID], e)
		}
		for _, m := range data.Matches {
			table(t.matches, m.GameID)[m.ID] = m
		}
		for _, e := range data.Events {
			t.events[e.GameID] = append(t.events[e.GameID], e)
		}
		for _, tie := range data.Ties {
			table(t.ties, tie.GameID)[tie.ID] = tie
		}
		for _, p := range data.Players {
			table(t.players, p.GameID)[p.ID] = p
		}
		for _, sp := range data.Suspensions {
			table(t.suspensions, sp.GameID)[player.SuspensionKey{PlayerID: sp.PlayerID, CompetitionID: sp.CompetitionID}] = sp
		}
		for _, row := range data.Standings {
			rows := table(t.standings, row.GameID)
			rows[row.CompetitionID] = append(rows[row.CompetitionID], row)
		}
		for _, o := range data.Offers {
			table(t.offers, o.GameID)[o.ID] = o
		}
		for _, n := range data.Negotiations {
			table(t.negotiations, n.GameID)[n.ID] = n
		}
		for _, r := range data.LoanRequests {
			table(t.loanRequests, r.GameID)[r.ID] = r
		}
		for _, l := range data.Loans {
			table(t.loans, l.GameID)[l.ID] = l
		}
		for _, a := range data.Academy {
			table(t.academy, a.GameID)[a.ID] = a
		}
	})
	for _, r := range data.Rounds {
		gameID := ""
		for _, c := range data.Competitions {
			if c.ID == r.CompetitionID {
				gameID = c.GameID
			}
		}
		s.write(func(t *tables) {
			rounds := table(t.rounds, gameID)
			rounds[r.CompetitionID] = upsertRound(rounds[r.CompetitionID], r)
		})
	}
}
