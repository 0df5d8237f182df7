// Package sqlxrepos implements the domain repositories on PostgreSQL with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// pqError returns the code and constraint of a PostgreSQL error, if err is one.
func pqError(err error) (pq.ErrorCode, string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code, pqErr.Constraint
	}
	return "", ""
}

func get(ctx context.Context, q sqlx.QueryerContext, dest interface{}, query sq.Sqlizer) error {
	stmt, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, q, dest, stmt, args...)
}

func selectAll(ctx context.Context, q sqlx.QueryerContext, dest interface{}, query sq.Sqlizer) error {
	stmt, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, q, dest, stmt, args...)
}

func exec(ctx context.Context, e sqlx.ExecerContext, query sq.Sqlizer) (sql.Result, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return e.ExecContext(ctx, stmt, args...)
}

// trapNoRows maps "no rows" errors to notFound.
func trapNoRows(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// mustAffect returns notFound if res affected no row.
func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// likePattern escapes the LIKE wildcards of s and wraps it in `%`.
func likePattern(s string) string {
	return "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s) + "%"
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
