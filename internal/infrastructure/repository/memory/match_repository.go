package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/match"
)

type MatchRepository struct {
	s *Store
}

func NewMatchRepository(s *Store) *MatchRepository {
	return &MatchRepository{s: s}
}

func sortMatches(out []match.Match) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ScheduledDate.Before(out[j].ScheduledDate)
		}
		return out[i].ID < out[j].ID
	})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (r *MatchRepository) filter(gameID string, keep func(m match.Match) bool) []match.Match {
	var out []match.Match
	r.s.read(func(t *tables) {
		for _, m := range t.matches[gameID] {
			if keep(m) {
				out = append(out, m)
			}
		}
	})
	sortMatches(out)
	return out
}

func (r *MatchRepository) GetByID(_ context.Context, gameID, matchID string) (match.Match, bool, error) {
	var (
		m  match.Match
		ok bool
	)
	r.s.read(func(t *tables) {
		m, ok = t.matches[gameID][matchID]
	})
	return m, ok, nil
}

func (r *MatchRepository) GetByIDs(_ context.Context, gameID string, matchIDs []string) ([]match.Match, error) {
	out := make([]match.Match, 0, len(matchIDs))
	r.s.read(func(t *tables) {
		for _, id := range matchIDs {
			if m, ok := t.matches[gameID][id]; ok {
				out = append(out, m)
			}
		}
	})
	return out, nil
}

func (r *MatchRepository) FirstUnplayed(_ context.Context, gameID string) (match.Match, bool, error) {
	unplayed := r.filter(gameID, func(m match.Match) bool { return !m.Played })
	if len(unplayed) == 0 {
		return match.Match{}, false, nil
	}
	return unplayed[0], true, nil
}

func (r *MatchRepository) ListUnplayedOnDate(_ context.Context, gameID string, date time.Time) ([]match.Match, error) {
	return r.filter(gameID, func(m match.Match) bool {
		return !m.Played && sameDay(m.ScheduledDate, date)
	}), nil
}

func (r *MatchRepository) ListUnplayedByRound(_ context.Context, gameID, competitionID string, round int) ([]match.Match, error) {
	return r.filter(gameID, func(m match.Match) bool {
		return !m.Played && m.CompetitionID == competitionID && m.RoundNumber == round
	}), nil
}

func (r *MatchRepository) ListByCompetition(_ context.Context, gameID, competitionID string) ([]match.Match, error) {
	return r.filter(gameID, func(m match.Match) bool { return m.CompetitionID == competitionID }), nil
}

func (r *MatchRepository) HasUnplayedForTeam(_ context.Context, gameID, teamID string) (bool, error) {
	return len(r.filter(gameID, func(m match.Match) bool { return !m.Played && m.Involves(teamID) })) > 0, nil
}

func (r *MatchRepository) CountUnplayed(_ context.Context, gameID string) (int, error) {
	return len(r.filter(gameID, func(m match.Match) bool { return !m.Played })), nil
}

func (r *MatchRepository) InsertBatch(_ context.Context, matches []match.Match) error {
	r.s.write(func(t *tables) {
		for _, m := range matches {
			table(t.matches, m.GameID)[m.ID] = m
		}
	})
	return nil
}

func (r *MatchRepository) update(gameID, matchID string, fn func(m *match.Match) bool) bool {
	changed := false
	r.s.write(func(t *tables) {
		m, ok := t.matches[gameID][matchID]
		if !ok {
			return
		}
		if fn(&m) {
			t.matches[gameID][matchID] = m
			changed = true
		}
	})
	return changed
}

func (r *MatchRepository) SaveLineups(_ context.Context, gameID string, updates []match.LineupUpdate) error {
	for _, u := range updates {
		r.update(gameID, u.MatchID, func(m *match.Match) bool {
			m.HomeLineup = slices.Clone(u.HomeLineup)
			m.AwayLineup = slices.Clone(u.AwayLineup)
			m.HomeFormation, m.AwayFormation = u.HomeFormation, u.AwayFormation
			m.HomeMentality, m.AwayMentality = u.HomeMentality, u.AwayMentality
			m.HomeTactics, m.AwayTactics = u.HomeTactics, u.AwayTactics
			m.Substitutions = slices.Clone(u.Substitutions)
			return true
		})
	}
	return nil
}

func (r *MatchRepository) BulkSaveResults(_ context.Context, gameID string, results []match.ResultUpdate, playedAt time.Time) (int, error) {
	updated := 0
	for _, res := range results {
		ok := r.update(gameID, res.MatchID, func(m *match.Match) bool {
			if m.Played {
				return false
			}
			m.HomeScore = match.IntPtr(res.HomeScore)
			m.AwayScore = match.IntPtr(res.AwayScore)
			m.Played = true
			at := playedAt
			m.PlayedAt = &at
			return true
		})
		if ok {
			updated++
		}
	}
	return updated, nil
}

func (r *MatchRepository) SaveExtraTime(_ context.Context, gameID, matchID string, home, away int) error {
	r.update(gameID, matchID, func(m *match.Match) bool {
		m.HomeScoreET = match.IntPtr(home)
		m.AwayScoreET = match.IntPtr(away)
		m.IsExtraTime = true
		return true
	})
	return nil
}

func (r *MatchRepository) SavePenalties(_ context.Context, gameID, matchID string, home, away int) error {
	r.update(gameID, matchID, func(m *match.Match) bool {
		m.HomePenalties = match.IntPtr(home)
		m.AwayPenalties = match.IntPtr(away)
		return true
	})
	return nil
}

func (r *MatchRepository) SaveLiveResult(_ context.Context, lm match.Match) error {
	r.update(lm.GameID, lm.ID, func(m *match.Match) bool {
		m.HomeScore, m.AwayScore = lm.HomeScore, lm.AwayScore
		m.HomeScoreET, m.AwayScoreET = lm.HomeScoreET, lm.AwayScoreET
		m.HomePenalties, m.AwayPenalties = lm.HomePenalties, lm.AwayPenalties
		m.IsExtraTime = lm.IsExtraTime
		return true
	})
	return nil
}

func (r *MatchRepository) DeleteByGame(_ context.Context, gameID string) (int, error) {
	n := 0
	r.s.write(func(t *tables) {
		n = len(t.matches[gameID])
		delete(t.matches, gameID)
	})
	return n, nil
}

type EventRepository struct {
	s *Store
}

func NewEventRepository(s *Store) *EventRepository {
	return &EventRepository{s: s}
}

func (r *EventRepository) ListByMatch(_ context.Context, gameID, matchID string) ([]match.Event, error) {
	var out []match.Event
	r.s.read(func(t *tables) {
		for _, e := range t.events[gameID] {
			if e.MatchID == matchID {
				out = append(out, e)
			}
		}
	})
	match.SortEvents(out)
	return out, nil
}

func (r *EventRepository) ListByPlayers(_ context.Context, gameID string, playerIDs []string) ([]match.Event, error) {
	wanted := idSet(playerIDs)
	var out []match.Event
	r.s.read(func(t *tables) {
		for _, e := range t.events[gameID] {
			if _, ok := wanted[e.PlayerID]; ok {
				out = append(out, e)
			}
		}
	})
	return out, nil
}

func (r *EventRepository) InsertBatch(_ context.Context, events []match.Event) error {
	r.s.write(func(t *tables) {
		for _, e := range events {
			t.events[e.GameID] = append(t.events[e.GameID], e)
		}
	})
	return nil
}

func (r *EventRepository) DeleteAfterMinute(_ context.Context, gameID, matchID string, minute int) ([]match.Event, error) {
	var removed []match.Event
	r.s.write(func(t *tables) {
		kept := t.events[gameID][:0:0]
		for _, e := range t.events[gameID] {
			if e.MatchID == matchID && e.Minute > minute {
				removed = append(removed, e)
				continue
			}
			kept = append(kept, e)
		}
		t.events[gameID] = kept
	})
	match.SortEvents(removed)
	return removed, nil
}

func (r *EventRepository) DeleteByGame(_ context.Context, gameID string) (int, error) {
	n := 0
	r.s.write(func(t *tables) {
		n = len(t.events[gameID])
		delete(t.events, gameID)
	})
	return n, nil
}

type CupTieRepository struct {
	s *Store
}

func NewCupTieRepository(s *Store) *CupTieRepository {
	return &CupTieRepository{s: s}
}

func (r *CupTieRepository) GetByID(_ context.Context, gameID, tieID string) (match.CupTie, bool, error) {
	var (
		tie match.CupTie
		ok  bool
	)
	r.s.read(func(t *tables) {
		tie, ok = t.ties[gameID][tieID]
	})
	return tie, ok, nil
}

func (r *CupTieRepository) ListByCompetition(_ context.Context, gameID, competitionID string) ([]match.CupTie, error) {
	var out []match.CupTie
	r.s.read(func(t *tables) {
		for _, tie := range t.ties[gameID] {
			if tie.CompetitionID == competitionID {
				out = append(out, tie)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *CupTieRepository) InsertBatch(_ context.Context, ties []match.CupTie) error {
	r.s.write(func(t *tables) {
		for _, tie := range ties {
			table(t.ties, tie.GameID)[tie.ID] = tie
		}
	})
	return nil
}

func (r *CupTieRepository) Complete(_ context.Context, tie match.CupTie) (bool, error) {
	completed := false
	r.s.write(func(t *tables) {
		stored, ok := t.ties[tie.GameID][tie.ID]
		if !ok || stored.Completed {
			return
		}
		stored.WinnerID = tie.WinnerID
		stored.Resolution = tie.Resolution
		stored.Completed = true
		t.ties[tie.GameID][tie.ID] = stored
		completed = true
	})
	return completed, nil
}

func (r *CupTieRepository) DeleteByGame(_ context.Context, gameID string) (int, error) {
	n := 0
	r.s.write(func(t *tables) {
		n = len(t.ties[gameID])
		delete(t.ties, gameID)
	})
	return n, nil
}
