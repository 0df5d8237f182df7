package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/session"
)

type sessionStore struct {
	db *sqlx.DB
}

var _ session.Store = (*sessionStore)(nil) // interface compliance check

// NewSessionStore returns a session.Store on the sessions table.
func NewSessionStore(db *sqlx.DB) session.Store {
	return &sessionStore{db: db}
}

func (s *sessionStore) Get(ctx context.Context, id string) (session.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return session.Session{}, session.ErrNotFound
	}

	var data []byte
	q := psql.Select("data").
		From("sessions").
		Where(sq.Eq{"id": id}).
		Where("expires_at > NOW()")
	if err := get(ctx, s.db, &data, q); err != nil {
		return session.Session{}, trapNoRows(err, session.ErrNotFound, "querying session")
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return session.Session{}, errors.Wrap(err, "decoding session")
	}
	return sess, nil
}

// Save upserts sess and purges the sessions past their expiry.
func (s *sessionStore) Save(ctx context.Context, sess session.Session, expiresAt time.Time) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, psql.Delete("sessions").Where("expires_at <= NOW()")); err != nil {
			return errors.Wrap(err, "purging sessions")
		}
		q := psql.Insert("sessions").
			Columns("id", "data", "expires_at").
			Values(sess.ID, data, expiresAt.UTC()).
			Suffix("ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at")
		_, err := exec(ctx, tx, q)
		return errors.Wrap(err, "saving session")
	})
}

// Update rewrites a live session; a deleted or expired one stays gone.
func (s *sessionStore) Update(ctx context.Context, sess session.Session, expiresAt time.Time) error {
	if _, err := uuid.Parse(sess.ID); err != nil {
		return session.ErrNotFound
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	q := psql.Update("sessions").
		Set("data", data).
		Set("expires_at", expiresAt.UTC()).
		Where(sq.Eq{"id": sess.ID}).
		Where("expires_at > NOW()")
	res, err := exec(ctx, s.db, q)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return mustAffect(res, session.ErrNotFound)
}

func (s *sessionStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	_, err := exec(ctx, s.db, psql.Delete("sessions").Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "deleting session")
}
