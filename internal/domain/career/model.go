package career

import "time"

type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferAgreed    OfferStatus = "agreed"
	OfferCompleted OfferStatus = "completed"
	OfferRejected  OfferStatus = "rejected"
	OfferExpired   OfferStatus = "expired"
)

// TransferOffer is a bid for a player. Incoming offers target the user's
// squad; outgoing ones are the user's bids.
type TransferOffer struct {
	ID           string
	GameID       string
	PlayerID     string
	FromTeamID   string
	ToTeamID     string
	Fee          int64
	Status       OfferStatus
	Incoming     bool
	ExpiringFlag bool
	CreatedAt    time.Time
	RespondAt    *time.Time
	ExpiresAt    time.Time
}

type NegotiationKind string

const (
	NegotiationRenewal     NegotiationKind = "renewal"
	NegotiationPreContract NegotiationKind = "pre_contract"
)

type DecisionStatus string

const (
	DecisionPending  DecisionStatus = "pending"
	DecisionAccepted DecisionStatus = "accepted"
	DecisionRejected DecisionStatus = "rejected"
)

// ContractNegotiation is a contract offer whose reply is due at RespondAt.
type ContractNegotiation struct {
	ID           string
	GameID       string
	PlayerID     string
	TeamID       string
	Kind         NegotiationKind
	OfferedWage  int64
	DemandedWage int64
	Years        int
	Status       DecisionStatus
	RespondAt    time.Time
}

// LoanRequest is an AI club asking to borrow one of the user's players.
type LoanRequest struct {
	ID         string
	GameID     string
	PlayerID   string
	FromTeamID string
	ToTeamID   string
	Status     DecisionStatus
	RespondAt  time.Time
}

// Loan is an active temporary move. The player returns at season end.
type Loan struct {
	ID           string
	GameID       string
	PlayerID     string
	ParentTeamID string
	LoanTeamID   string
	StartedAt    time.Time
	Active       bool
}

type SearchStatus string

const (
	SearchInProgress SearchStatus = "in_progress"
	SearchCompleted  SearchStatus = "completed"
	SearchFailed     SearchStatus = "failed"
)

// LoanSearch looks for a club willing to take a player on loan.
type LoanSearch struct {
	ID             string
	GameID         string
	PlayerID       string
	WeeksRemaining int
	Status         SearchStatus
	LoanTeamID     string
}

// ScoutingSearch is a multi-week scouting assignment.
type ScoutingSearch struct {
	ID              string
	GameID          string
	Position        string
	MaxAge          int
	WeeksTotal      int
	WeeksElapsed    int
	Status          SearchStatus
	ResultPlayerIDs []string
}

type AcademyStatus string

const (
	AcademyActive   AcademyStatus = "active"
	AcademyPromoted AcademyStatus = "promoted"
	AcademyReleased AcademyStatus = "released"
)

// AcademyPlayer is a youth prospect developing towards an evaluation.
type AcademyPlayer struct {
	ID            string
	GameID        string
	TeamID        string
	Name          string
	Position      string
	Age           int
	Ability       int
	Potential     int
	Progress      int
	EvaluationDue bool
	Status        AcademyStatus
}
