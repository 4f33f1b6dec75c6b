package career

import "context"

// Repository persists the background state advanced by career ticks. Save
// methods upsert by id.
type Repository interface {
	ListOffers(ctx context.Context, gameID string, statuses ...OfferStatus) ([]TransferOffer, error)
	SaveOffers(ctx context.Context, offers []TransferOffer) error

	ListNegotiations(ctx context.Context, gameID string, status DecisionStatus) ([]ContractNegotiation, error)
	SaveNegotiations(ctx context.Context, negotiations []ContractNegotiation) error

	ListLoanRequests(ctx context.Context, gameID string, status DecisionStatus) ([]LoanRequest, error)
	SaveLoanRequests(ctx context.Context, requests []LoanRequest) error

	ListActiveLoans(ctx context.Context, gameID string) ([]Loan, error)
	SaveLoans(ctx context.Context, loans []Loan) error

	ListLoanSearches(ctx context.Context, gameID string, status SearchStatus) ([]LoanSearch, error)
	SaveLoanSearches(ctx context.Context, searches []LoanSearch) error

	ListScoutingSearches(ctx context.Context, gameID string, status SearchStatus) ([]ScoutingSearch, error)
	SaveScoutingSearches(ctx context.Context, searches []ScoutingSearch) error
	DeleteScoutingSearches(ctx context.Context, gameID string) error

	ListAcademyPlayers(ctx context.Context, gameID string, status AcademyStatus) ([]AcademyPlayer, error)
	SaveAcademyPlayers(ctx context.Context, players []AcademyPlayer) error
}
