package memory

import (
	"context"
	"slices"

	"github.com/riskibarqy/career-engine/internal/domain/career"
)

type CareerRepository struct {
	s *Store
}

func NewCareerRepository(s *Store) *CareerRepository {
	return &CareerRepository{s: s}
}

func listWhere[V any](s *Store, pick func(t *tables) map[string]V, keep func(v V) bool) []V {
	var out []V
	s.read(func(t *tables) {
		for _, v := range sortedByID(pick(t)) {
			if keep(v) {
				out = append(out, v)
			}
		}
	})
	return out
}

func (r *CareerRepository) ListOffers(_ context.Context, gameID string, statuses ...career.OfferStatus) ([]career.TransferOffer, error) {
	return listWhere(r.s, func(t *tables) map[string]career.TransferOffer { return t.offers[gameID] },
		func(o career.TransferOffer) bool { return len(statuses) == 0 || slices.Contains(statuses, o.Status) }), nil
}

func (r *CareerRepository) SaveOffers(_ context.Context, offers []career.TransferOffer) error {
	r.s.write(func(t *tables) {
		for _, o := range offers {
			table(t.offers, o.GameID)[o.ID] = o
		}
	})
	return nil
}

func (r *CareerRepository) ListNegotiations(_ context.Context, gameID string, status career.DecisionStatus) ([]career.ContractNegotiation, error) {
	return listWhere(r.s, func(t *tables) map[string]career.ContractNegotiation { return t.negotiations[gameID] },
		func(n career.ContractNegotiation) bool { return n.Status == status }), nil
}

func (r *CareerRepository) SaveNegotiations(_ context.Context, negotiations []career.ContractNegotiation) error {
	r.s.write(func(t *tables) {
		for _, n := range negotiations {
			table(t.negotiations, n.GameID)[n.ID] = n
		}
	})
	return nil
}

func (r *CareerRepository) ListLoanRequests(_ context.Context, gameID string, status career.DecisionStatus) ([]career.LoanRequest, error) {
	return listWhere(r.s, func(t *tables) map[string]career.LoanRequest { return t.loanRequests[gameID] },
		func(lr career.LoanRequest) bool { return lr.Status == status }), nil
}

func (r *CareerRepository) SaveLoanRequests(_ context.Context, requests []career.LoanRequest) error {
	r.s.write(func(t *tables) {
		for _, lr := range requests {
			table(t.loanRequests, lr.GameID)[lr.ID] = lr
		}
	})
	return nil
}

func (r *CareerRepository) ListActiveLoans(_ context.Context, gameID string) ([]career.Loan, error) {
	return listWhere(r.s, func(t *tables) map[string]career.Loan { return t.loans[gameID] },
		func(l career.Loan) bool { return l.Active }), nil
}

func (r *CareerRepository) SaveLoans(_ context.Context, loans []career.Loan) error {
	r.s.write(func(t *tables) {
		for _, l := range loans {
			table(t.loans, l.GameID)[l.ID] = l
		}
	})
	return nil
}

func (r *CareerRepository) ListLoanSearches(_ context.Context, gameID string, status career.SearchStatus) ([]career.LoanSearch, error) {
	return listWhere(r.s, func(t *tables) map[string]career.LoanSearch { return t.loanSearches[gameID] },
		func(ls career.LoanSearch) bool { return ls.Status == status }), nil
}

func (r *CareerRepository) SaveLoanSearches(_ context.Context, searches []career.LoanSearch) error {
	r.s.write(func(t *tables) {
		for _, ls := range searches {
			table(t.loanSearches, ls.GameID)[ls.ID] = ls
		}
	})
	return nil
}

func (r *CareerRepository) ListScoutingSearches(_ context.Context, gameID string, status career.SearchStatus) ([]career.ScoutingSearch, error) {
	return listWhere(r.s, func(t *tables) map[string]career.ScoutingSearch { return t.scouting[gameID] },
		func(ss career.ScoutingSearch) bool { return ss.Status == status }), nil
}

func (r *CareerRepository) SaveScoutingSearches(_ context.Context, searches []career.ScoutingSearch) error {
	r.s.write(func(t *tables) {
		for _, ss := range searches {
			table(t.scouting, ss.GameID)[ss.ID] = ss
		}
	})
	return nil
}

func (r *CareerRepository) DeleteScoutingSearches(_ context.Context, gameID string) error {
	r.s.write(func(t *tables) {
		delete(t.scouting, gameID)
	})
	return nil
}

func (r *CareerRepository) ListAcademyPlayers(_ context.Context, gameID string, status career.AcademyStatus) ([]career.AcademyPlayer, error) {
	return listWhere(r.s, func(t *tables) map[string]career.AcademyPlayer { return t.academy[gameID] },
		func(a career.AcademyPlayer) bool { return a.Status == status }), nil
}

func (r *CareerRepository) SaveAcademyPlayers(_ context.Context, players []career.AcademyPlayer) error {
	r.s.write(func(t *tables) {
		for _, a := range players {
			table(t.academy, a.GameID)[a.ID] = a
		}
	})
	return nil
}
