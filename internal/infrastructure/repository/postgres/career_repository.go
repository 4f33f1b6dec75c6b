package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/career-engine/internal/domain/career"
	qb "github.com/riskibarqy/career-engine/internal/platform/querybuilder"
)

// CareerRepository stores the week-to-week career records. Every list is
// ordered by id.
type CareerRepository struct {
	db *sqlx.DB
}

func NewCareerRepository(db *sqlx.DB) *CareerRepository {
	return &CareerRepository{db: db}
}

func (r *CareerRepository) ListOffers(ctx context.Context, gameID string, statuses ...career.OfferStatus) ([]career.TransferOffer, error) {
	conditions := []qb.Condition{qb.Eq("game_id", gameID)}
	if len(statuses) > 0 {
		values := make([]any, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		conditions = append(conditions, qb.In("status", values))
	}
	rows, err := selectRows[transferOfferTableModel](ctx, executor(ctx, r.db), "transfer offers",
		qb.Select("id", "game_id", "player_id", "from_team_id", "to_team_id", "fee", "status",
			"incoming", "expiring_flag", "created_at", "respond_at", "expires_at").
			From("transfer_offers").Where(conditions...).OrderBy("id"))
	if err != nil {
		return nil, err
	}
	out := make([]career.TransferOffer, 0, len(rows))
	for _, row := range rows {
		out = append(out, career.TransferOffer{
			ID:           row.ID,
			GameID:       row.GameID,
			PlayerID:     row.PlayerID,
			FromTeamID:   row.FromTeamID,
			ToTeamID:     row.ToTeamID,
			Fee:          row.Fee,
			Status:       career.OfferStatus(row.Status),
			Incoming:     row.Incoming,
			ExpiringFlag: row.ExpiringFlag,
			CreatedAt:    row.CreatedAt.UTC(),
			RespondAt:    utcTime(row.RespondAt),
			ExpiresAt:    row.ExpiresAt.UTC(),
		})
	}
	return out, nil
}

func (r *CareerRepository) SaveOffers(ctx context.Context, offers []career.TransferOffer) error {
	if len(offers) == 0 {
		return nil
	}
	rows := make([]transferOfferTableModel, 0, len(offers))
	for _, o := range offers {
		rows = append(rows, transferOfferTableModel{
			ID:           o.ID,
			GameID:       o.GameID,
			PlayerID:     o.PlayerID,
			FromTeamID:   o.FromTeamID,
			ToTeamID:     o.ToTeamID,
			Fee:          o.Fee,
			Status:       string(o.Status),
			Incoming:     o.Incoming,
			ExpiringFlag: o.ExpiringFlag,
			CreatedAt:    o.CreatedAt.UTC(),
			RespondAt:    utcTime(o.RespondAt),
			ExpiresAt:    o.ExpiresAt.UTC(),
		})
	}
	query, args, err := qb.InsertModels("transfer_offers", rows, upsertSuffix("game_id, id",
		"player_id", "from_team_id", "to_team_id", "fee", "status", "incoming", "expiring_flag", "respond_at", "expires_at"))
	return execBuilt(ctx, executor(ctx, r.db), "upsert transfer offers", query, args, err)
}

func (r *CareerRepository) ListNegotiations(ctx context.Context, gameID string, status career.DecisionStatus) ([]career.ContractNegotiation, error) {
	rows, err := selectRows[contractNegotiationTableModel](ctx, executor(ctx, r.db), "contract negotiations",
		qb.Select("id", "game_id", "player_id", "team_id", "kind", "offered_wage", "demanded_wage", "years", "status", "respond_at").
			From("contract_negotiations").
			Where(qb.Eq("game_id", gameID), qb.Eq("status", string(status))).
			OrderBy("id"))
	if err != nil {
		return nil, err
	}
	out := make([]career.ContractNegotiation, 0, len(rows))
	for _, row := range rows {
		out = append(out, career.ContractNegotiation{
			ID:           row.ID,
			GameID:       row.GameID,
			PlayerID:     row.PlayerID,
			TeamID:       row.TeamID,
			Kind:         career.NegotiationKind(row.Kind),
			OfferedWage:  row.OfferedWage,
			DemandedWage: row.DemandedWage,
			Years:        row.Years,
			Status:       career.DecisionStatus(row.Status),
			RespondAt:    row.RespondAt.UTC(),
		})
	}
	return out, nil
}

func (r *CareerRepository) SaveNegotiations(ctx context.Context, negotiations []career.ContractNegotiation) error {
	if len(negotiations) == 0 {
		return nil
	}
	rows := make([]contractNegotiationTableModel, 0, len(negotiations))
	for _, n := range negotiations {
		rows = append(rows, contractNegotiationTableModel{
			ID:           n.ID,
			GameID:       n.GameID,
			PlayerID:     n.PlayerID,
			TeamID:       n.TeamID,
			Kind:         string(n.Kind),
			OfferedWage:  n.OfferedWage,
			DemandedWage: n.DemandedWage,
			Years:        n.Years,
			Status:       string(n.Status),
			RespondAt:    n.RespondAt.UTC(),
		})
	}
	query, args, err := qb.InsertModels("contract_negotiations", rows, upsertSuffix("game_id, id",
		"player_id", "team_id", "kind", "offered_wage", "demanded_wage", "years", "status", "respond_at"))
	return execBuilt(ctx, executor(ctx, r.db), "upsert contract negotiations", query, args, err)
}

func (r *CareerRepository) ListLoanRequests(ctx context.Context, gameID string, status career.DecisionStatus) ([]career.LoanRequest, error) {
	rows, err := selectRows[loanRequestTableModel](ctx, executor(ctx, r.db), "loan requests",
		qb.Select("id", "game_id", "player_id", "from_team_id", "to_team_id", "status", "respond_at").
			From("loan_requests").
			Where(qb.Eq("game_id", gameID), qb.Eq("status", string(status))).
			OrderBy("id"))
	if err != nil {
		return nil, err
	}
	out := make([]career.LoanRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, career.LoanRequest{
			ID:         row.ID,
			GameID:     row.GameID,
			PlayerID:   row.PlayerID,
			FromTeamID: row.FromTeamID,
			ToTeamID:   row.ToTeamID,
			Status:     career.DecisionStatus(row.Status),
			RespondAt:  row.RespondAt.UTC(),
		})
	}
	return out, nil
}

func (r *CareerRepository) SaveLoanRequests(ctx context.Context, requests []career.LoanRequest) error {
	if len(requests) == 0 {
		return nil
	}
	rows := make([]loanRequestTableModel, 0, len(requests))
	for _, lr := range requests {
		rows = append(rows, loanRequestTableModel{
			ID:         lr.ID,
			GameID:     lr.GameID,
			PlayerID:   lr.PlayerID,
			FromTeamID: lr.FromTeamID,
			ToTeamID:   lr.ToTeamID,
			Status:     string(lr.Status),
			RespondAt:  lr.RespondAt.UTC(),
		})
	}
	query, args, err := qb.InsertModels("loan_requests", rows, upsertSuffix("game_id, id",
		"player_id", "from_team_id", "to_team_id", "status", "respond_at"))
	return execBuilt(ctx, executor(ctx, r.db), "upsert loan requests", query, args, err)
}

func (r *CareerRepository) ListActiveLoans(ctx context.Context, gameID string) ([]career.Loan, error) {
	rows, err := selectRows[loanTableModel](ctx, executor(ctx, r.db), "active loans",
		qb.Select("id", "game_id", "player_id", "parent_team_id", "loan_team_id", "started_at", "active").
			From("loans").
			Where(qb.Eq("game_id", gameID), qb.Expr("active = TRUE")).
			OrderBy("id"))
	if err != nil {
		return nil, err
	}
	out := make([]career.Loan, 0, len(rows))
	for _, row := range rows {
		out = append(out, career.Loan{
			ID:           row.ID,
			GameID:       row.GameID,
			PlayerID:     row.PlayerID,
			ParentTeamID: row.ParentTeamID,
			LoanTeamID:   row.LoanTeamID,
			StartedAt:    row.StartedAt.UTC(),
			Active:       row.Active,
		})
	}
	return out, nil
}

func (r *CareerRepository) SaveLoans(ctx context.Context, loans []career.Loan) error {
	if len(loans) == 0 {
		return nil
	}
	rows := make([]loanTableModel, 0, len(loans))
	for _, l := range loans {
		rows = append(rows, loanTableModel{
			ID:           l.ID,
			GameID:       l.GameID,
			PlayerID:     l.PlayerID,
			ParentTeamID: l.ParentTeamID,
			LoanTeamID:   l.LoanTeamID,
			StartedAt:    l.StartedAt.UTC(),
			Active:       l.Active,
		})
	}
	query, args, err := qb.InsertModels("loans", rows, upsertSuffix("game_id, id",
		"player_id", "parent_team_id", "loan_team_id", "started_at", "active"))
	return execBuilt(ctx, executor(ctx, r.db), "upsert loans", query, args, err)
}

func (r *CareerRepository) ListLoanSearches(ctx context.Context, gameID string, status career.SearchStatus) ([]career.LoanSearch, error) {
	rows, err := selectRows[loanSearchTableModel](ctx, executor(ctx, r.db), "loan searches",
		qb.Select("id", "game_id", "player_id", "weeks_remaining", "status", "loan_team_id").
			From("loan_searches").
			Where(qb.Eq("game_id", gameID), qb.Eq("status", string(status))).
			OrderBy("id"))
	if err != nil {
		return nil, err
	}
	out := make([]career.LoanSearch, 0, len(rows))
	for _, row := range rows {
		out = append(out, career.LoanSearch{
			ID:             row.ID,
			GameID:         row.GameID,
			PlayerID:       row.PlayerID,
			WeeksRemaining: row.WeeksRemaining,
			Status:         career.SearchStatus(row.Status),
			LoanTeamID:     row.LoanTeamID,
		})
	}
	return out, nil
}

func (r *CareerRepository) SaveLoanSearches(ctx context.Context, searches []career.LoanSearch) error {
	if len(searches) == 0 {
		return nil
	}
	rows := make([]loanSearchTableModel, 0, len(searches))
	for _, ls := range searches {
		rows = append(rows, loanSearchTableModel{
			ID:             ls.ID,
			GameID:         ls.GameID,
			PlayerID:       ls.PlayerID,
			WeeksRemaining: ls.WeeksRemaining,
			Status:         string(ls.Status),
			LoanTeamID:     ls.LoanTeamID,
		})
	}
	query, args, err := qb.InsertModels("loan_searches", rows, upsertSuffix("game_id, id",
		"player_id", "weeks_remaining", "status", "loan_team_id"))
	return execBuilt(ctx, executor(ctx, r.db), "upsert loan searches", query, args, err)
}

func (r *CareerRepository) ListScoutingSearches(ctx context.Context, gameID string, status career.SearchStatus) ([]career.ScoutingSearch, error) {
	rows, err := selectRows[scoutingSearchTableModel](ctx, executor(ctx, r.db), "scouting searches",
		qb.Select("id", "game_id", "position", "max_age", "weeks_total", "weeks_elapsed", "status", "result_player_ids").
			From("scouting_searches").
			Where(qb.Eq("game_id", gameID), qb.Eq("status", string(status))).
			OrderBy("id"))
	if err != nil {
		return nil, err
	}
	out := make([]career.ScoutingSearch, 0, len(rows))
	for _, row := range rows {
		out = append(out, career.ScoutingSearch{
			ID:              row.ID,
			GameID:          row.GameID,
			Position:        row.Position,
			MaxAge:          row.MaxAge,
			WeeksTotal:      row.WeeksTotal,
			WeeksElapsed:    row.WeeksElapsed,
			Status:          career.SearchStatus(row.Status),
			ResultPlayerIDs: emptyToNil(row.ResultPlayerIDs),
		})
	}
	return out, nil
}

func (r *CareerRepository) SaveScoutingSearches(ctx context.Context, searches []career.ScoutingSearch) error {
	if len(searches) == 0 {
		return nil
	}
	rows := make([]scoutingSearchTableModel, 0, len(searches))
	for _, ss := range searches {
		rows = append(rows, scoutingSearchTableModel{
			ID:              ss.ID,
			GameID:          ss.GameID,
			Position:        ss.Position,
			MaxAge:          ss.MaxAge,
			WeeksTotal:      ss.WeeksTotal,
			WeeksElapsed:    ss.WeeksElapsed,
			Status:          string(ss.Status),
			ResultPlayerIDs: pq.StringArray(nonNilStrings(ss.ResultPlayerIDs)),
		})
	}
	query, args, err := qb.InsertModels("scouting_searches", rows, upsertSuffix("game_id, id",
		"position", "max_age", "weeks_total", "weeks_elapsed", "status", "result_player_ids"))
	return execBuilt(ctx, executor(ctx, r.db), "upsert scouting searches", query, args, err)
}

func (r *CareerRepository) DeleteScoutingSearches(ctx context.Context, gameID string) error {
	_, err := deleteByGame(ctx, executor(ctx, r.db), "scouting_searches", gameID)
	return err
}

func (r *CareerRepository) ListAcademyPlayers(ctx context.Context, gameID string, status career.AcademyStatus) ([]career.AcademyPlayer, error) {
	rows, err := selectRows[academyPlayerTableModel](ctx, executor(ctx, r.db), "academy players",
		qb.Select("id", "game_id", "team_id", "name", "position", "age", "ability", "potential", "progress", "evaluation_due", "status").
			From("academy_players").
			Where(qb.Eq("game_id", gameID), qb.Eq("status", string(status))).
			OrderBy("id"))
	if err != nil {
		return nil, err
	}
	out := make([]career.AcademyPlayer, 0, len(rows))
	for _, row := range rows {
		out = append(out, career.AcademyPlayer{
			ID:            row.ID,
			GameID:        row.GameID,
			TeamID:        row.TeamID,
			Name:          row.Name,
			Position:      row.Position,
			Age:           row.Age,
			Ability:       row.Ability,
			Potential:     row.Potential,
			Progress:      row.Progress,
			EvaluationDue: row.EvaluationDue,
			Status:        career.AcademyStatus(row.Status),
		})
	}
	return out, nil
}

func (r *CareerRepository) SaveAcademyPlayers(ctx context.Context, players []career.AcademyPlayer) error {
	if len(players) == 0 {
		return nil
	}
	rows := make([]academyPlayerTableModel, 0, len(players))
	for _, a := range players {
		rows = append(rows, academyPlayerTableModel{
			ID:            a.ID,
			GameID:        a.GameID,
			TeamID:        a.TeamID,
			Name:          a.Name,
			Position:      a.Position,
			Age:           a.Age,
			Ability:       a.Ability,
			Potential:     a.Potential,
			Progress:      a.Progress,
			EvaluationDue: a.EvaluationDue,
			Status:        string(a.Status),
		})
	}
	query, args, err := qb.InsertModels("academy_players", rows, upsertSuffix("game_id, id",
		"team_id", "name", "position", "age", "ability", "potential", "progress", "evaluation_due", "status"))
	return execBuilt(ctx, executor(ctx, r.db), "upsert academy players", query, args, err)
}
