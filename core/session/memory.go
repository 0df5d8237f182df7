package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	sess      Session
	expiresAt time.Time
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

var _ Store = (*memoryStore)(nil) // interface compliance check

// NewMemoryStore returns a Store keeping sessions in process memory.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]memoryEntry), now: time.Now}
}

func (s *memoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok || !s.now().Before(e.expiresAt) {
		return Session{}, ErrNotFound
	}
	return e.sess, nil
}

func (s *memoryStore) Save(_ context.Context, sess Session, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
		}
	}
	s.sessions[sess.ID] = memoryEntry{sess: sess, expiresAt: expiresAt}
	return nil
}

func (s *memoryStore) Update(_ context.Context, sess Session, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sess.ID]
	if !ok || !s.now().Before(e.expiresAt) {
		return ErrNotFound
	}
	s.sessions[sess.ID] = memoryEntry{sess: sess, expiresAt: expiresAt}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
