package querybuilder

import (
	"fmt"
	"strings"
)

type bulkRow struct {
	key    any
	values []any
}

// BulkUpdateBuilder writes a different value per row in one statement:
//
//	UPDATE t SET col = CASE key WHEN $1 THEN $2 ... ELSE col END WHERE key IN (...)
//
// Incremented columns add the value to the current one instead.
type BulkUpdateBuilder struct {
	table     string
	key       string
	columns   []string
	casts     map[string]string
	increment map[string]bool
	rows      []bulkRow
	where     []Condition
}

func BulkUpdate(table, keyColumn string) *BulkUpdateBuilder {
	return &BulkUpdateBuilder{
		table:     table,
		key:       keyColumn,
		casts:     make(map[string]string),
		increment: make(map[string]bool),
	}
}

func (b *BulkUpdateBuilder) Columns(columns ...string) *BulkUpdateBuilder {
	b.columns = append(b.columns, columns...)
	return b
}

// Cast annotates placeholders of column with a SQL type, e.g. "integer".
func (b *BulkUpdateBuilder) Cast(column, sqlType string) *BulkUpdateBuilder {
	b.casts[column] = sqlType
	return b
}

// Increment makes column = column + value.
func (b *BulkUpdateBuilder) Increment(columns ...string) *BulkUpdateBuilder {
	for _, c := range columns {
		b.increment[c] = true
	}
	return b
}

func (b *BulkUpdateBuilder) Row(key any, values ...any) *BulkUpdateBuilder {
	b.rows = append(b.rows, bulkRow{key: key, values: append([]any(nil), values...)})
	return b
}

func (b *BulkUpdateBuilder) Where(conditions ...Condition) *BulkUpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *BulkUpdateBuilder) Len() int {
	return len(b.rows)
}

func (b *BulkUpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("bulk update table is required")
	}
	if strings.TrimSpace(b.key) == "" {
		return "", nil, fmt.Errorf("bulk update key column is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("bulk update columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("bulk update rows are required")
	}

	for i, row := range b.rows {
		if len(row.values) != len(b.columns) {
			return "", nil, fmt.Errorf("bulk update row %d has %d values, expected %d", i, len(row.values), len(b.columns))
		}
	}

	var w sqlWriter
	w.raw("UPDATE ", b.table, " SET ")
	for colIdx, col := range b.columns {
		if colIdx > 0 {
			w.raw(", ")
		}
		w.raw(col, " = ")
		if b.increment[col] {
			w.raw(col, " + ")
		}
		w.raw("CASE ", b.key)
		for _, row := range b.rows {
			w.raw(" WHEN ")
			w.bind(row.key)
			w.raw(" THEN ")
			w.bind(row.values[colIdx])
			if cast := b.casts[col]; cast != "" {
				w.raw("::", cast)
			}
		}
		if b.increment[col] {
			w.raw(" ELSE 0 END")
		} else {
			w.raw(" ELSE ", col, " END")
		}
	}

	keys := make([]any, 0, len(b.rows))
	for _, row := range b.rows {
		keys = append(keys, row.key)
	}
	w.where(append([]Condition{In(b.key, keys)}, b.where...))
	return w.result()
}
