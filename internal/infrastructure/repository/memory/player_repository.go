package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/player"
)

type PlayerRepository struct {
	s *Store
}

func NewPlayerRepository(s *Store) *PlayerRepository {
	return &PlayerRepository{s: s}
}

func (r *PlayerRepository) ListByGame(_ context.Context, gameID string) ([]player.Player, error) {
	var out []player.Player
	r.s.read(func(t *tables) {
		out = sortedByID(t.players[gameID])
	})
	return out, nil
}

func (r *PlayerRepository) ListByTeams(_ context.Context, gameID string, teamIDs []string) ([]player.Player, error) {
	teams := idSet(teamIDs)
	var out []player.Player
	r.s.read(func(t *tables) {
		for _, p := range sortedByID(t.players[gameID]) {
			if _, ok := teams[p.TeamID]; ok {
				out = append(out, p)
			}
		}
	})
	return out, nil
}

func (r *PlayerRepository) GetByIDs(_ context.Context, gameID string, playerIDs []string) ([]player.Player, error) {
	out := make([]player.Player, 0, len(playerIDs))
	r.s.read(func(t *tables) {
		for _, id := range playerIDs {
			if p, ok := t.players[gameID][id]; ok {
				out = append(out, p)
			}
		}
	})
	return out, nil
}

func (r *PlayerRepository) InsertBatch(_ context.Context, players []player.Player) error {
	r.s.write(func(t *tables) {
		for _, p := range players {
			table(t.players, p.GameID)[p.ID] = p
		}
	})
	return nil
}

func (r *PlayerRepository) SaveBatch(ctx context.Context, players []player.Player) error {
	return r.InsertBatch(ctx, players)
}

func (r *PlayerRepository) DeleteBatch(_ context.Context, gameID string, playerIDs []string) error {
	r.s.write(func(t *tables) {
		for _, id := range playerIDs {
			delete(t.players[gameID], id)
		}
	})
	return nil
}

func (r *PlayerRepository) each(gameID string, ids []string, fn func(p *player.Player)) {
	r.s.write(func(t *tables) {
		players := t.players[gameID]
		for _, id := range ids {
			p, ok := players[id]
			if !ok {
				continue
			}
			fn(&p)
			players[id] = p
		}
	})
}

func (r *PlayerRepository) ApplyStatDeltas(_ context.Context, gameID string, deltas []player.StatDelta) error {
	for _, d := range deltas {
		r.each(gameID, []string{d.PlayerID}, func(p *player.Player) {
			p.Goals += d.Goals
			p.OwnGoals += d.OwnGoals
			p.Assists += d.Assists
			p.YellowCards += d.YellowCards
			p.RedCards += d.RedCards
		})
	}
	return nil
}

// RecomputeStatsFromEvents counts every remaining event of the players.
func (r *PlayerRepository) RecomputeStatsFromEvents(_ context.Context, gameID string, playerIDs []string) error {
	wanted := idSet(playerIDs)
	counts := make(map[string]player.StatDelta, len(playerIDs))
	r.s.read(func(t *tables) {
		for _, e := range t.events[gameID] {
			if _, ok := wanted[e.PlayerID]; !ok {
				continue
			}
			d := counts[e.PlayerID]
			switch e.Type {
			case match.EventGoal:
				d.Goals++
			case match.EventOwnGoal:
				d.OwnGoals++
			case match.EventAssist:
				d.Assists++
			case match.EventYellowCard:
				d.YellowCards++
			case match.EventRedCard:
				d.RedCards++
			}
			counts[e.PlayerID] = d
		}
	})
	r.each(gameID, playerIDs, func(p *player.Player) {
		d := counts[p.ID]
		p.Goals, p.OwnGoals, p.Assists = d.Goals, d.OwnGoals, d.Assists
		p.YellowCards, p.RedCards = d.YellowCards, d.RedCards
	})
	return nil
}

func (r *PlayerRepository) IncrementAppearances(_ context.Context, gameID string, playerIDs []string) error {
	r.each(gameID, playerIDs, func(p *player.Player) {
		p.Appearances++
	})
	return nil
}

func (r *PlayerRepository) DecrementAppearances(_ context.Context, gameID string, playerIDs []string) error {
	r.each(gameID, playerIDs, func(p *player.Player) {
		if p.Appearances > 0 {
			p.Appearances--
		}
	})
	return nil
}

func (r *PlayerRepository) UpdateConditions(_ context.Context, gameID string, updates []player.ConditionUpdate) error {
	for _, u := range updates {
		r.each(gameID, []string{u.PlayerID}, func(p *player.Player) {
			p.Fitness = u.Fitness
			p.Morale = u.Morale
		})
	}
	return nil
}

func (r *PlayerRepository) ApplyGoalkeeperStats(_ context.Context, gameID string, deltas []player.GoalkeeperDelta) error {
	for _, d := range deltas {
		r.each(gameID, []string{d.PlayerID}, func(p *player.Player) {
			p.GoalsConceded += d.GoalsConceded
			p.CleanSheets += d.CleanSheets
		})
	}
	return nil
}

func (r *PlayerRepository) UpdateInjuries(_ context.Context, gameID string, updates []player.InjuryUpdate) error {
	for _, u := range updates {
		r.each(gameID, []string{u.PlayerID}, func(p *player.Player) {
			if u.Until == nil {
				p.InjuryType, p.InjuredUntil, p.InjurySourceMatchID = "", nil, ""
				return
			}
			until := *u.Until
			p.InjuryType, p.InjuredUntil, p.InjurySourceMatchID = u.InjuryType, &until, u.SourceMatchID
		})
	}
	return nil
}

func (r *PlayerRepository) ResetSeasonStats(_ context.Context, gameID string) error {
	r.s.write(func(t *tables) {
		for id, p := range t.players[gameID] {
			p.Goals, p.OwnGoals, p.Assists = 0, 0, 0
			p.YellowCards, p.RedCards = 0, 0
			p.Appearances, p.GoalsConceded, p.CleanSheets = 0, 0, 0
			t.players[gameID][id] = p
		}
	})
	return nil
}

type SuspensionRepository struct {
	s *Store
}

func NewSuspensionRepository(s *Store) *SuspensionRepository {
	return &SuspensionRepository{s: s}
}

func (r *SuspensionRepository) ListActive(_ context.Context, gameID string, competitionIDs []string) ([]player.Suspension, error) {
	comps := idSet(competitionIDs)
	var out []player.Suspension
	r.s.read(func(t *tables) {
		for _, sp := range t.suspensions[gameID] {
			if sp.MatchesRemaining <= 0 {
				continue
			}
			if _, ok := comps[sp.CompetitionID]; len(comps) > 0 && !ok {
				continue
			}
			out = append(out, sp)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompetitionID != out[j].CompetitionID {
			return out[i].CompetitionID < out[j].CompetitionID
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, nil
}

func (r *SuspensionRepository) Add(_ context.Context, suspension player.Suspension) error {
	key := player.SuspensionKey{PlayerID: suspension.PlayerID, CompetitionID: suspension.CompetitionID}
	r.s.write(func(t *tables) {
		bans := table(t.suspensions, suspension.GameID)
		if existing, ok := bans[key]; ok {
			suspension.MatchesRemaining += existing.MatchesRemaining
		}
		bans[key] = suspension
	})
	return nil
}

func (r *SuspensionRepository) DecrementBatch(_ context.Context, gameID string, keys []player.SuspensionKey) error {
	r.s.write(func(t *tables) {
		bans := t.suspensions[gameID]
		for _, key := range keys {
			sp, ok := bans[key]
			if !ok {
				continue
			}
			sp.MatchesRemaining = max(sp.MatchesRemaining-1, 0)
			bans[key] = sp
		}
	})
	return nil
}

func (r *SuspensionRepository) DeleteBySourceMatch(_ context.Context, gameID, matchID string, playerIDs []string) error {
	wanted := idSet(playerIDs)
	r.s.write(func(t *tables) {
		for key, sp := range t.suspensions[gameID] {
			if sp.SourceMatchID != matchID {
				continue
			}
			if _, ok := wanted[sp.PlayerID]; len(wanted) > 0 && !ok {
				continue
			}
			delete(t.suspensions[gameID], key)
		}
	})
	return nil
}

func (r *SuspensionRepository) DeleteByGame(_ context.Context, gameID string) error {
	r.s.write(func(t *tables) {
		delete(t.suspensions, gameID)
	})
	return nil
}
