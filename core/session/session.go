// Package session keeps the server side state of a browser: who is logged in, their CSRF token and flash message.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound    = errors.New("session not found")
	ErrExpired     = errors.New("Your session has expired. Please login again.")
	ErrInvalidCSRF = errors.New("Invalid form submission. Please try again.")

	csrfTokenLen = 32

	// idle sessions are kept that long past their timeout so that they are reported as expired, not unknown
	retention = 24 * time.Hour
)

type Session struct {
	ID           string        `json:"id"`
	Identity     core.Identity `json:"identity"`
	CSRFToken    string        `json:"csrf_token"`
	Flash        string        `json:"flash,omitempty"`
	LastActivity time.Time     `json:"last_activity"`
	CreatedAt    time.Time     `json:"created_at"`
}

type (
	Store interface {
		// Get returns ErrNotFound for unknown and expired ids.
		Get(ctx context.Context, id string) (Session, error)
		// Save creates or replaces sess, to be kept until expiresAt.
		Save(ctx context.Context, sess Session, expiresAt time.Time) error
		// Update replaces a live session only; it returns ErrNotFound once sess was deleted or expired.
		Update(ctx context.Context, sess Session, expiresAt time.Time) error
		Delete(ctx context.Context, id string) error
	}

	Manager struct {
		store       Store
		idleTimeout time.Duration
		now         func() time.Time
	}
)

func NewManager(store Store, idleTimeout time.Duration) *Manager {
	return &Manager{store: store, idleTimeout: idleTimeout, now: time.Now}
}

func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLen)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generating csrf token")
	}
	return hex.EncodeToString(b), nil
}

func (m *Manager) expiresAt(sess Session) time.Time {
	return sess.LastActivity.Add(m.idleTimeout + retention)
}

func (m *Manager) save(ctx context.Context, sess Session) error {
	return m.store.Save(ctx, sess, m.expiresAt(sess))
}

// update stores the changes of a session loaded earlier without bringing it back after a logout.
func (m *Manager) update(ctx context.Context, sess Session) error {
	return m.store.Update(ctx, sess, m.expiresAt(sess))
}

// New starts an anonymous session.
func (m *Manager) New(ctx context.Context) (Session, error) {
	token, err := newCSRFToken()
	if err != nil {
		return Session{}, err
	}
	now := m.now().UTC()
	sess := Session{
		ID:           uuid.NewString(),
		Identity:     core.Anonymous,
		CSRFToken:    token,
		LastActivity: now,
		CreatedAt:    now,
	}
	if err = m.save(ctx, sess); err != nil {
		return Session{}, errors.Wrap(err, "saving session")
	}
	return sess, nil
}

// Load returns the session with id, or a new anonymous one if there is none.
func (m *Manager) Load(ctx context.Context, id string) (Session, error) {
	if id != "" {
		sess, err := m.store.Get(ctx, id)
		if err == nil {
			return sess, nil
		}
		if errors.Cause(err) != ErrNotFound {
			return Session{}, errors.Wrap(err, "loading session")
		}
	}
	return m.New(ctx)
}

// Login binds identity to a new session id and CSRF token, discarding sess.
func (m *Manager) Login(ctx context.Context, sess Session, identity core.Identity) (Session, error) {
	if sess.ID != "" {
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			return Session{}, errors.Wrap(err, "deleting session")
		}
	}
	token, err := newCSRFToken()
	if err != nil {
		return Session{}, err
	}
	now := m.now().UTC()
	renewed := Session{
		ID:           uuid.NewString(),
		Identity:     identity,
		CSRFToken:    token,
		Flash:        sess.Flash,
		LastActivity: now,
		CreatedAt:    now,
	}
	if err = m.save(ctx, renewed); err != nil {
		return Session{}, errors.Wrap(err, "saving session")
	}
	return renewed, nil
}

func (m *Manager) Logout(ctx context.Context, sess Session) error {
	return m.store.Delete(ctx, sess.ID)
}

// Touch refreshes the activity of an authenticated session. A session idle for longer than
// the timeout is destroyed and ErrExpired returned; ErrNotFound means it was destroyed meanwhile.
func (m *Manager) Touch(ctx context.Context, sess *Session) error {
	now := m.now().UTC()
	if sess.Identity.IsAuthenticated() && now.Sub(sess.LastActivity) > m.idleTimeout {
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			return errors.Wrap(err, "deleting expired session")
		}
		return ErrExpired
	}
	sess.LastActivity = now
	return m.update(ctx, *sess)
}

// VerifyCSRF compares token with the one of sess in constant time.
func (m *Manager) VerifyCSRF(sess Session, token string) error {
	if token == "" || sess.CSRFToken == "" {
		return ErrInvalidCSRF
	}
	if subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(token)) != 1 {
		return ErrInvalidCSRF
	}
	return nil
}

// SetFlash returns ErrNotFound if sess no longer exists.
func (m *Manager) SetFlash(ctx context.Context, sess *Session, msg string) error {
	sess.Flash = msg
	return m.update(ctx, *sess)
}

// PopFlash returns the flash message of sess once.
func (m *Manager) PopFlash(ctx context.Context, sess *Session) (string, error) {
	msg := sess.Flash
	if msg == "" {
		return "", nil
	}
	sess.Flash = ""
	return msg, m.update(ctx, *sess)
}
