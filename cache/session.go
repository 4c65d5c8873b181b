// Package cache holds per-session state: the latest document analysis and
// the conversation about it. The analysis is overwritten by every new
// analysis and both are dropped when the session ends or expires.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"clausewise-backend/models"
)

// ErrNotFound is returned when a session has no stored analysis.
var ErrNotFound = errors.New("session entry not found")

// SessionStore keeps session-scoped analysis and conversation state.
type SessionStore interface {
	SaveAnalysis(ctx context.Context, sessionID string, analysis *models.DocumentAnalysis) error
	LatestAnalysis(ctx context.Context, sessionID string) (*models.DocumentAnalysis, error)
	AppendMessages(ctx context.Context, sessionID string, msgs ...models.ChatMessage) error
	Conversation(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	Clear(ctx context.Context, sessionID string) error
}

type memorySession struct {
	analysis  *models.DocumentAnalysis
	messages  []models.ChatMessage
	expiresAt time.Time
}

// MemoryStore is an in-process SessionStore.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store whose sessions expire ttl after their last
// write. A zero ttl never expires.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// session returns the live session, creating it when create is set.
// Callers hold mu.
func (s *MemoryStore) session(id string, create bool) *memorySession {
	sess, ok := s.sessions[id]
	if ok && s.ttl > 0 && s.now().After(sess.expiresAt) {
		delete(s.sessions, id)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		sess = &memorySession{}
		s.sessions[id] = sess
	}
	if create && s.ttl > 0 {
		sess.expiresAt = s.now().Add(s.ttl)
	}
	return sess
}

func (s *MemoryStore) SaveAnalysis(ctx context.Context, sessionID string, analysis *models.DocumentAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session(sessionID, true).analysis = analysis.Clone()
	return nil
}

func (s *MemoryStore) LatestAnalysis(ctx context.Context, sessionID string) (*models.DocumentAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(sessionID, false)
	if sess == nil || sess.analysis == nil {
		return nil, ErrNotFound
	}
	return sess.analysis.Clone(), nil
}

func (s *MemoryStore) AppendMessages(ctx context.Context, sessionID string, msgs ...models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(sessionID, true)
	sess.messages = append(sess.messages, msgs...)
	return nil
}

func (s *MemoryStore) Conversation(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(sessionID, false)
	if sess == nil {
		return []models.ChatMessage{}, nil
	}
	return append([]models.ChatMessage{}, sess.messages...), nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
