package session

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/victornm/trivia/internal/domain"
)

// ErrVersionConflict is returned by Store.Swap when the stored document moved on
// since it was read.
var ErrVersionConflict = stderrors.New("session: version conflict")

// Store persists session documents with optimistic concurrency on Session.Version.
type Store interface {
	// Insert stores a new session at version 1.
	Insert(ctx context.Context, s *domain.Session) error
	// Get returns the current document, domain.ErrSessionNotFound when absent.
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Swap replaces the stored document if its version still equals s.Version,
	// then bumps s.Version. Otherwise it returns ErrVersionConflict.
	Swap(ctx context.Context, s *domain.Session) error
	// ListStale returns active sessions not updated since before, oldest first.
	// A limit of zero or less lists all of them.
	ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Session, error)
	// ListUnaggregated returns completed sessions, completed before before, that
	// are not yet marked aggregated, oldest completion first. Limit is as for ListStale.
	ListUnaggregated(ctx context.Context, before time.Time, limit int) ([]*domain.Session, error)
}

// MemoryStore keeps sessions in process. It is used in tests and when no
// database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.Session)}
}

func (m *MemoryStore) Insert(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.SessionID]; ok {
		return stderrors.New("session: duplicate session id " + s.SessionID)
	}

	s.Version = 1
	m.sessions[s.SessionID] = s.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Swap(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[s.SessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if cur.Version != s.Version {
		return ErrVersionConflict
	}

	s.Version++
	m.sessions[s.SessionID] = s.Clone()
	return nil
}

func (m *MemoryStore) ListStale(_ context.Context, before time.Time, limit int) ([]*domain.Session, error) {
	return m.list(func(s *domain.Session) (time.Time, bool) {
		return s.UpdatedAt, s.Status == domain.SessionStatusActive && s.UpdatedAt.Before(before)
	}, limit), nil
}

func (m *MemoryStore) ListUnaggregated(_ context.Context, before time.Time, limit int) ([]*domain.Session, error) {
	return m.list(func(s *domain.Session) (time.Time, bool) {
		if s.Status != domain.SessionStatusCompleted || s.AggregatedAt != nil || s.CompletedAt == nil {
			return time.Time{}, false
		}
		return *s.CompletedAt, s.CompletedAt.Before(before)
	}, limit), nil
}

// list returns copies of the sessions match accepts, ordered by the time it
// reports and then by id.
func (m *MemoryStore) list(match func(s *domain.Session) (time.Time, bool), limit int) []*domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type keyed struct {
		at time.Time
		s  *domain.Session
	}

	var found []keyed
	for _, s := range m.sessions {
		if at, ok := match(s); ok {
			found = append(found, keyed{at: at, s: s.Clone()})
		}
	}

	slices.SortFunc(found, func(a, b keyed) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return strings.Compare(a.s.SessionID, b.s.SessionID)
	})

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	res := make([]*domain.Session, 0, len(found))
	for _, k := range found {
		res = append(res, k.s)
	}
	return res
}
