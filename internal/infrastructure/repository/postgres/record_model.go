package postgres

import "time"

type notificationTableModel struct {
	ID        string    `db:"id"`
	GameID    string    `db:"game_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Priority  string    `db:"priority"`
	DedupeKey string    `db:"dedupe_key"`
	Metadata  string    `db:"metadata"`
	CreatedAt time.Time `db:"created_at"`
}

type seasonArchiveTableModel struct {
	GameID       string    `db:"game_id"`
	Season       string    `db:"season"`
	ChampionID   string    `db:"champion_id"`
	UserPosition int       `db:"user_position"`
	Standings    string    `db:"standings"`
	TopScorers   string    `db:"top_scorers"`
	CreatedAt    time.Time `db:"created_at"`
}

type financeSnapshotTableModel struct {
	GameID            string `db:"game_id"`
	Season            string `db:"season"`
	ProjectedPosition int    `db:"projected_position"`
	Revenue           int64  `db:"revenue"`
	WageBill          int64  `db:"wage_bill"`
	WageBudget        int64  `db:"wage_budget"`
	TransferBudget    int64  `db:"transfer_budget"`
}

type financeLedgerInsertModel struct {
	GameID    string    `db:"game_id"`
	Amount    int64     `db:"amount"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

type jobDispatchInsertModel struct {
	DispatchID       string     `db:"dispatch_id"`
	JobName          string     `db:"job_name"`
	JobPath          string     `db:"job_path"`
	GameID           string     `db:"game_id"`
	Payload          string     `db:"payload"`
	Status           string     `db:"status"`
	SentAt           *time.Time `db:"sent_at"`
	CompletedAt      *time.Time `db:"completed_at"`
	FailedAt         *time.Time `db:"failed_at"`
	LastError        *string    `db:"last_error"`
	SentTraceID      *string    `db:"sent_trace_id"`
	SentSpanID       *string    `db:"sent_span_id"`
	CompletedTraceID *string    `db:"completed_trace_id"`
	CompletedSpanID  *string    `db:"completed_span_id"`
	FailedTraceID    *string    `db:"failed_trace_id"`
	FailedSpanID     *string    `db:"failed_span_id"`
}

type jobDispatchTableModel struct {
	DispatchID       string     `db:"dispatch_id"`
	JobName          string     `db:"job_name"`
	JobPath          string     `db:"job_path"`
	GameID           string     `db:"game_id"`
	Payload          string     `db:"payload"`
	Status           string     `db:"status"`
	SentAt           *time.Time `db:"sent_at"`
	CompletedAt      *time.Time `db:"completed_at"`
	FailedAt         *time.Time `db:"failed_at"`
	LastError        *string    `db:"last_error"`
	SentTraceID      *string    `db:"sent_trace_id"`
	SentSpanID       *string    `db:"sent_span_id"`
	CompletedTraceID *string    `db:"completed_trace_id"`
	CompletedSpanID  *string    `db:"completed_span_id"`
	FailedTraceID    *string    `db:"failed_trace_id"`
	FailedSpanID     *string    `db:"failed_span_id"`
}
