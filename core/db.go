package core

import (
	"context"
	"database/sql"
)

type (
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
		PingContext(ctx context.Context) error
		Close() error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClauses maps public ordering fields onto columns, dropping unknown fields.
func OrderByClauses(ordering []DBOrdering, columns map[string]string) []string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		clauses = append(clauses, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	return clauses
}
