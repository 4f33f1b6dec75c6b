package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/career-engine/internal/domain/finance"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/domain/season"
	qb "github.com/riskibarqy/career-engine/internal/platform/querybuilder"
)

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n notification.Notification) error {
	createdAt := n.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query, args, err := qb.InsertModel("notifications", notificationTableModel{
		ID:        n.ID,
		GameID:    n.GameID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Priority:  n.Priority,
		DedupeKey: n.DedupeKey,
		Metadata:  encodeJSONMap(n.Metadata),
		CreatedAt: createdAt,
	}, "")
	return execBuilt(ctx, executor(ctx, r.db), "insert notification type="+string(n.Type), query, args, err)
}

func (r *NotificationRepository) Exists(ctx context.Context, gameID string, typ notification.Type, dedupeKey string, since time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM notifications WHERE game_id = $1 AND type = $2 AND dedupe_key = $3 AND created_at >= $4)`
	if err := executor(ctx, r.db).GetContext(ctx, &exists, query, gameID, string(typ), dedupeKey, since.UTC()); err != nil {
		return false, fmt.Errorf("check notification type=%s key=%s: %w", typ, dedupeKey, err)
	}
	return exists, nil
}

// ListByGame returns the newest notifications first.
func (r *NotificationRepository) ListByGame(ctx context.Context, gameID string, limit int) ([]notification.Notification, error) {
	builder := qb.Select("id", "game_id", "type", "title", "message", "priority", "dedupe_key", "metadata::text AS metadata", "created_at").
		From("notifications").
		Where(qb.Eq("game_id", gameID)).
		OrderBy("created_at DESC", "seq DESC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	rows, err := selectRows[notificationTableModel](ctx, executor(ctx, r.db), "notifications", builder)
	if err != nil {
		return nil, err
	}
	out := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, notification.Notification{
			ID:        row.ID,
			GameID:    row.GameID,
			Type:      notification.Type(row.Type),
			Title:     row.Title,
			Message:   row.Message,
			Priority:  row.Priority,
			DedupeKey: row.DedupeKey,
			Metadata:  decodeJSONMap(row.Metadata),
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

type ArchiveRepository struct {
	db *sqlx.DB
}

func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Save keeps one archive per season; a rerun overwrites it.
func (r *ArchiveRepository) Save(ctx context.Context, archive season.Archive) error {
	topScorers, err := encodeJSON(archive.TopScorers)
	if err != nil {
		return fmt.Errorf("encode top scorers season=%s: %w", archive.Season, err)
	}
	createdAt := archive.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query, args, err := qb.InsertModel("season_archives", seasonArchiveTableModel{
		GameID:       archive.GameID,
		Season:       archive.Season,
		ChampionID:   archive.ChampionID,
		UserPosition: archive.UserPosition,
		Standings:    encodeJSONMap(archive.Standings),
		TopScorers:   topScorers,
		CreatedAt:    createdAt,
	}, upsertSuffix("game_id, season", "champion_id", "user_position", "standings", "top_scorers", "created_at"))
	return execBuilt(ctx, executor(ctx, r.db), "upsert season archive season="+archive.Season, query, args, err)
}

func (r *ArchiveRepository) ListByGame(ctx context.Context, gameID string) ([]season.Archive, error) {
	rows, err := selectRows[seasonArchiveTableModel](ctx, executor(ctx, r.db), "season archives",
		qb.Select("game_id", "season", "champion_id", "user_position", "standings::text AS standings", "top_scorers::text AS top_scorers", "created_at").
			From("season_archives").
			Where(qb.Eq("game_id", gameID)).
			OrderBy("season"))
	if err != nil {
		return nil, err
	}
	out := make([]season.Archive, 0, len(rows))
	for _, row := range rows {
		topScorers, err := decodeJSON[[]map[string]any](row.TopScorers)
		if err != nil {
			return nil, fmt.Errorf("decode top scorers season=%s: %w", row.Season, err)
		}
		out = append(out, season.Archive{
			GameID:       row.GameID,
			Season:       row.Season,
			ChampionID:   row.ChampionID,
			UserPosition: row.UserPosition,
			Standings:    decodeJSONMap(row.Standings),
			TopScorers:   topScorers,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

type FinanceRepository struct {
	db *sqlx.DB
}

func NewFinanceRepository(db *sqlx.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

func (r *FinanceRepository) SaveSnapshot(ctx context.Context, snapshot finance.Snapshot) error {
	query, args, err := qb.InsertModel("finance_snapshots", financeSnapshotTableModel{
		GameID:            snapshot.GameID,
		Season:            snapshot.Season,
		ProjectedPosition: snapshot.ProjectedPosition,
		Revenue:           snapshot.Revenue,
		WageBill:          snapshot.WageBill,
		WageBudget:        snapshot.WageBudget,
		TransferBudget:    snapshot.TransferBudget,
	}, upsertSuffix("game_id, season", "projected_position", "revenue", "wage_bill", "wage_budget", "transfer_budget"))
	return execBuilt(ctx, executor(ctx, r.db), "upsert finance snapshot season="+snapshot.Season, query, args, err)
}

// AddIncome credits the budget and keeps a ledger line for it.
func (r *FinanceRepository) AddIncome(ctx context.Context, gameID string, amount int64, reason string) error {
	q := executor(ctx, r.db)
	query, args, err := qb.Update("games").
		SetExpr("budget", "budget + ?", amount).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", gameID)).
		ToSQL()
	if err := execBuilt(ctx, q, "credit game budget game="+gameID, query, args, err); err != nil {
		return err
	}
	query, args, err = qb.InsertModel("finance_ledger", financeLedgerInsertModel{
		GameID:    gameID,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}, "")
	return execBuilt(ctx, q, "insert finance ledger game="+gameID, query, args, err)
}

// Snapshots lists stored projections oldest season first.
func (r *FinanceRepository) Snapshots(ctx context.Context, gameID string) ([]finance.Snapshot, error) {
	rows, err := selectRows[financeSnapshotTableModel](ctx, executor(ctx, r.db), "finance snapshots",
		qb.Select("game_id", "season", "projected_position", "revenue", "wage_bill", "wage_budget", "transfer_budget").
			From("finance_snapshots").
			Where(qb.Eq("game_id", gameID)).
			OrderBy("season"))
	if err != nil {
		return nil, err
	}
	out := make([]finance.Snapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, finance.Snapshot{
			GameID:            row.GameID,
			Season:            row.Season,
			ProjectedPosition: row.ProjectedPosition,
			Revenue:           row.Revenue,
			WageBill:          row.WageBill,
			WageBudget:        row.WageBudget,
			TransferBudget:    row.TransferBudget,
		})
	}
	return out, nil
}
