package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// InsertModel inserts one struct using its `db` tags as columns.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	cols, vals, err := columnsAndValues(model)
	if err != nil {
		return "", nil, err
	}
	return InsertInto(table).Columns(cols...).Values(vals...).Suffix(suffix).ToSQL()
}

// InsertModels writes every model as one multi-row insert.
func InsertModels[T any](table string, models []T, suffix string) (string, []any, error) {
	if len(models) == 0 {
		return "", nil, fmt.Errorf("insert models are required")
	}
	b := InsertInto(table).Suffix(suffix)
	for i := range models {
		cols, vals, err := columnsAndValues(models[i])
		if err != nil {
			return "", nil, err
		}
		if i == 0 {
			b.Columns(cols...)
		}
		b.Values(vals...)
	}
	return b.ToSQL()
}

type taggedField struct {
	index  int
	column string
}

// table models are reflected once per type
var modelFields sync.Map // reflect.Type -> []taggedField

func fieldsOf(typ reflect.Type) []taggedField {
	if cached, ok := modelFields.Load(typ); ok {
		return cached.([]taggedField)
	}
	fields := make([]taggedField, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		col, _, _ := strings.Cut(f.Tag.Get("db"), ",")
		col = strings.TrimSpace(col)
		if col == "" || col == "-" {
			continue
		}
		fields = append(fields, taggedField{index: i, column: col})
	}
	modelFields.Store(typ, fields)
	return fields
}

func columnsAndValues(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be struct, got %s", value.Kind())
	}

	fields := fieldsOf(value.Type())
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("model %s has no db columns", value.Type())
	}
	cols := make([]string, len(fields))
	vals := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = f.column
		vals[i] = value.Field(f.index).Interface()
	}
	return cols, vals, nil
}
