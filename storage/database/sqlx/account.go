package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
)

type accountRepository struct {
	db *sqlx.DB
}

var _ auth.AccountRepository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) auth.AccountRepository {
	return &accountRepository{db: db}
}

// accountTable returns the table holding the accounts of role and the expression of their display name.
func accountTable(role core.Role) (table, name string, err error) {
	switch role {
	case core.RoleAdmin:
		return "admins", "name", nil
	case core.RoleInstructor:
		return "instructors", "first_name || ' ' || last_name", nil
	case core.RoleStudent:
		return "students", "first_name || ' ' || last_name", nil
	}
	return "", "", errors.Wrapf(core.ErrUnknownRole, "no table for %q", role)
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, role core.Role, email string) (auth.Account, error) {
	table, name, err := accountTable(role)
	if err != nil {
		return auth.Account{}, err
	}

	var row struct {
		ID           int        `db:"id"`
		Name         string     `db:"name"`
		Email        string     `db:"email"`
		PasswordHash null.Bytes `db:"password_hash"`
		IsActive     bool       `db:"is_active"`
	}
	q := psql.Select("id", name+" AS name", "email", "password_hash", "is_active").
		From(table).
		Where(sq.Eq{"email": email})
	if err = get(ctx, repo.db, &row, q); err != nil {
		return auth.Account{}, trapNoRows(err, auth.ErrNotFound, "querying account")
	}
	return auth.Account{
		ID:           row.ID,
		Role:         role,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash.Bytes,
		IsActive:     row.IsActive,
	}, nil
}

func (repo *accountRepository) update(ctx context.Context, role core.Role, id int, column string, value interface{}) error {
	table, _, err := accountTable(role)
	if err != nil {
		return err
	}
	res, err := exec(ctx, repo.db, psql.Update(table).Set(column, value).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrapf(err, "updating %s.%s", table, column)
	}
	return mustAffect(res, auth.ErrNotFound)
}

func (repo *accountRepository) SetLastLogin(ctx context.Context, role core.Role, id int, at time.Time) error {
	return repo.update(ctx, role, id, "last_login", at.UTC())
}

func (repo *accountRepository) SetPassword(ctx context.Context, role core.Role, id int, hash []byte) error {
	return repo.update(ctx, role, id, "password_hash", hash)
}

func (repo *accountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	q := psql.Select().Column(sq.Expr(
		"EXISTS (SELECT 1 FROM instructors WHERE email = ?) OR EXISTS (SELECT 1 FROM students WHERE email = ?)",
		email, email,
	))
	var exists bool
	if err := get(ctx, repo.db, &exists, q); err != nil {
		return false, errors.Wrap(err, "checking account email")
	}
	return exists, nil
}

func (repo *accountRepository) UpsertAdmin(ctx context.Context, adm auth.Admin) (auth.Admin, error) {
	q := psql.Insert("admins").
		Columns("name", "email", "password_hash", "is_active", "created_at").
		Values(adm.Name, adm.Email, nullBytes(adm.PasswordHash), adm.IsActive, adm.CreatedAt.UTC()).
		Suffix("ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash, is_active = EXCLUDED.is_active").
		Suffix("RETURNING id, created_at, last_login")

	var row struct {
		ID        int       `db:"id"`
		CreatedAt time.Time `db:"created_at"`
		LastLogin null.Time `db:"last_login"`
	}
	if err := get(ctx, repo.db, &row, q); err != nil {
		return auth.Admin{}, errors.Wrap(err, "upserting admin")
	}
	adm.ID = row.ID
	adm.CreatedAt = row.CreatedAt.UTC()
	adm.LastLogin = utcPtr(row.LastLogin)
	return adm, nil
}
