package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	qb "github.com/riskibarqy/career-engine/internal/platform/querybuilder"
)

// querier is the part of *sqlx.DB and *sqlx.Tx the repositories use.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type txKey struct{}

// Transactor opens one database transaction per unit of work and hands it
// to repositories through the context.
type Transactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx joins the transaction already carried by ctx, if any.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// InTx reports whether ctx carries a transaction started by WithinTx.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return ok
}

// executor returns the transaction carried by ctx or db itself.
func executor(ctx context.Context, db *sqlx.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func stringSliceToAny(items []string) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func utcTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := value.UTC()
	return &v
}

func encodeJSONMap(value map[string]any) string {
	if len(value) == 0 {
		return "{}"
	}
	encoded, err := sonic.Marshal(value)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func decodeJSONMap(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	out := make(map[string]any)
	if err := sonic.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}

// encodeJSON stores any value as a jsonb literal; nil becomes "null".
func encodeJSON(value any) (string, error) {
	encoded, err := sonic.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeJSON[T any](raw string) (T, error) {
	var out T
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return out, nil
	}
	if err := sonic.Unmarshal([]byte(raw), &out); err != nil {
		return out, err
	}
	return out, nil
}

// execBuilt runs a built statement, naming it in errors.
func execBuilt(ctx context.Context, q querier, what string, query string, args []any, err error) error {
	if err != nil {
		return fmt.Errorf("build %s query: %w", what, err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func encodeStringMap(value map[string]string) string {
	if len(value) == 0 {
		return "{}"
	}
	encoded, err := sonic.Marshal(value)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func decodeStringMap(raw string) map[string]string {
	out, err := decodeJSON[map[string]string](raw)
	if err != nil || len(out) == 0 {
		return nil
	}
	return out
}

func nonNilStrings(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func emptyToNil(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	return append([]string(nil), items...)
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}

// latestByKey keeps the last item per key, in first-seen order. A CASE
// expression only honours the first WHEN for a key.
func latestByKey[T any](items []T, key func(T) string) []T {
	index := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

func selectRows[T any](ctx context.Context, q querier, what string, builder *qb.SelectBuilder) ([]T, error) {
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select %s query: %w", what, err)
	}
	var rows []T
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", what, err)
	}
	return rows, nil
}

// upsertSuffix overwrites columns on a key conflict.
func upsertSuffix(conflict string, columns ...string) string {
	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		sets = append(sets, "    "+c+" = EXCLUDED."+c)
	}
	return "ON CONFLICT (" + conflict + ")\nDO UPDATE SET\n" + strings.Join(sets, ",\n")
}
