package postgres

import (
	"database/sql"
	"errors"

	"github.com/riskibarqy/sports-insights/internal/platform/querybuilder"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// mustColumns lists a table model's columns. Models are static, so a failure
// is a programming error.
func mustColumns(model any) []string {
	cols, err := querybuilder.Columns(model)
	if err != nil {
		panic("postgres: " + err.Error())
	}
	return cols
}
