package querybuilder

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Columns lists the db-tagged fields of model in declaration order.
func Columns(model any) ([]string, error) {
	cols, _, err := columnsAndValues(model)
	return cols, err
}

func InsertModel(table string, model any) (string, []any, error) {
	cols, vals, err := columnsAndValues(model)
	if err != nil {
		return "", nil, err
	}
	return InsertInto(table).Columns(cols...).Values(vals...).ToSQL()
}

// UpdateModel sets every db column of model except key and immutable, and
// filters on key.
func UpdateModel(table string, model any, key string, immutable ...string) (string, []any, error) {
	cols, vals, err := columnsAndValues(model)
	if err != nil {
		return "", nil, err
	}

	b := Update(table)
	var keyValue any
	found := false
	for i, col := range cols {
		switch {
		case col == key:
			keyValue, found = vals[i], true
		case slices.Contains(immutable, col):
		default:
			b.Set(col, vals[i])
		}
	}
	if !found {
		return "", nil, fmt.Errorf("model has no %s column", key)
	}
	return b.Where(Eq(key, keyValue)).ToSQL()
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
		return nil, nil, fmt.Errorf("model must be struct")
	}

	typ := value.Type()
	cols := make([]string, 0, typ.NumField())
	vals := make([]any, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		col := strings.TrimSpace(strings.Split(field.Tag.Get("db"), ",")[0])
		if col == "" || col == "-" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, value.Field(i).Interface())
	}

	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("model has no db columns")
	}
	return cols, vals, nil
}
