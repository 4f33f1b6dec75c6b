package finance

import "context"

// Snapshot is the projected budget of the user's club for a season.
type Snapshot struct {
	GameID            string
	Season            string
	ProjectedPosition int
	Revenue           int64
	WageBill          int64
	WageBudget        int64
	TransferBudget    int64
}

// Project estimates next season's revenue from the expected league finish.
// Higher tiers and better finishes earn more; wages take up to seventy
// percent of revenue and whatever is left funds transfers.
func Project(position, tier, teamsInLeague int, wageBill int64) Snapshot {
	if tier < 1 {
		tier = 1
	}
	if teamsInLeague < 1 {
		teamsInLeague = 20
	}
	if position < 1 || position > teamsInLeague {
		position = (teamsInLeague + 1) / 2
	}

	base := int64(120_000_000) / int64(tier*tier)
	merit := base * int64(teamsInLeague-position+1) / int64(teamsInLeague)
	revenue := base/2 + merit

	wageBudget := revenue * 7 / 10
	transferBudget := revenue - wageBill
	if transferBudget < 0 {
		transferBudget = 0
	}
	transferBudget = transferBudget / 3

	return Snapshot{
		ProjectedPosition: position,
		Revenue:           revenue,
		WageBill:          wageBill,
		WageBudget:        wageBudget,
		TransferBudget:    transferBudget,
	}
}

// Repository persists projections and prize money.
type Repository interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	// AddIncome credits money to the game budget.
	AddIncome(ctx context.Context, gameID string, amount int64, reason string) error
}
