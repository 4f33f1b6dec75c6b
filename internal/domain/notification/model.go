package notification

import "time"

type Type string

const (
	TypeMatchResult          Type = "match_result"
	TypeTransferCompleted    Type = "transfer_completed"
	TypeTransferOffer        Type = "transfer_offer"
	TypeOfferExpiring        Type = "offer_expiring"
	TypeInjury               Type = "injury"
	TypeSuspension           Type = "suspension"
	TypeRecovery             Type = "recovery"
	TypeLowFitness           Type = "low_fitness"
	TypeCompetitionAdvanced  Type = "competition_advanced"
	TypeCompetitionEliminate Type = "competition_eliminated"
	TypeTitleWon             Type = "title_won"
	TypePromotion            Type = "promotion"
	TypeRelegation           Type = "relegation"
	TypeWindowOpen           Type = "window_open"
	TypeWindowClosed         Type = "window_closed"
	TypeContract             Type = "contract"
	TypeLoan                 Type = "loan"
	TypeScouting             Type = "scouting"
	TypeAcademy              Type = "academy"
	TypePrizeMoney           Type = "prize_money"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notification is an inbox message for the user of a save.
type Notification struct {
	ID        string
	GameID    string
	Type      Type
	Title     string
	Message   string
	Priority  string
	DedupeKey string
	Metadata  map[string]any
	CreatedAt time.Time
}
