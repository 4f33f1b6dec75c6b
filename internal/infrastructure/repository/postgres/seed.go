package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/standing"
	"github.com/riskibarqy/career-engine/internal/infrastructure/repository/memory"
)

// BootstrapSeed writes a save into an empty database. A save that already
// exists is left alone.
func BootstrapSeed(ctx context.Context, db *sqlx.DB, data memory.SeedData) error {
	if len(data.Games) == 0 {
		return nil
	}
	games := NewGameRepository(db)
	_, exists, err := games.GetByID(ctx, data.Games[0].ID)
	if err != nil {
		return fmt.Errorf("check seed game: %w", err)
	}
	if exists {
		return nil
	}

	return NewTransactor(db).WithinTx(ctx, func(ctx context.Context) error {
		for _, g := range data.Games {
			if err := games.Insert(ctx, g); err != nil {
				return err
			}
		}
		for _, a := range data.PendingActions {
			if err := games.CreatePendingAction(ctx, a); err != nil {
				return err
			}
		}

		comps := NewCompetitionRepository(db)
		if err := comps.InsertBatch(ctx, data.Competitions); err != nil {
			return err
		}
		for key, entries := range groupByCompetition(data.Entries, func(e competition.Entry) compKey {
			return compKey{gameID: e.GameID, competitionID: e.CompetitionID}
		}) {
			if err := comps.ReplaceEntries(ctx, key.gameID, key.competitionID, entries); err != nil {
				return err
			}
		}
		gameOf := make(map[string]string, len(data.Competitions))
		for _, c := range data.Competitions {
			gameOf[c.ID] = c.GameID
		}
		for key, rounds := range groupByCompetition(data.Rounds, func(r competition.Round) compKey {
			return compKey{gameID: gameOf[r.CompetitionID], competitionID: r.CompetitionID}
		}) {
			if err := comps.UpsertRounds(ctx, key.gameID, rounds); err != nil {
				return err
			}
		}

		if err := NewMatchRepository(db).InsertBatch(ctx, data.Matches); err != nil {
			return err
		}
		if err := NewCupTieRepository(db).InsertBatch(ctx, data.Ties); err != nil {
			return err
		}
		if err := NewEventRepository(db).InsertBatch(ctx, data.Events); err != nil {
			return err
		}
		if err := NewPlayerRepository(db).InsertBatch(ctx, data.Players); err != nil {
			return err
		}
		suspensions := NewSuspensionRepository(db)
		for _, sp := range data.Suspensions {
			if err := suspensions.Add(ctx, sp); err != nil {
				return err
			}
		}

		standings := NewStandingRepository(db)
		for key, rows := range groupByCompetition(data.Standings, func(s standing.Standing) compKey {
			return compKey{gameID: s.GameID, competitionID: s.CompetitionID}
		}) {
			if err := standings.Replace(ctx, key.gameID, key.competitionID, rows); err != nil {
				return err
			}
		}

		careers := NewCareerRepository(db)
		if err := careers.SaveOffers(ctx, data.Offers); err != nil {
			return err
		}
		if err := careers.SaveNegotiations(ctx, data.Negotiations); err != nil {
			return err
		}
		if err := careers.SaveLoanRequests(ctx, data.LoanRequests); err != nil {
			return err
		}
		if err := careers.SaveLoans(ctx, data.Loans); err != nil {
			return err
		}
		return careers.SaveAcademyPlayers(ctx, data.Academy)
	})
}

type compKey struct {
	gameID        string
	competitionID string
}

func groupByCompetition[T any](items []T, key func(T) compKey) map[compKey][]T {
	out := make(map[compKey][]T)
	for _, item := range items {
		k := key(item)
		out[k] = append(out[k], item)
	}
	return out
}
