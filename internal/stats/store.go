package stats

import (
	"context"
	"sort"
	"sync"

	"github.com/victornm/trivia/internal/domain"
)

// Store folds completions into per-user aggregates.
type Store interface {
	// Record marks the session as aggregated and applies c in one atomic step.
	// A session seen before yields domain.ErrDuplicateAggregation and changes nothing.
	Record(ctx context.Context, c domain.Completion) error
	// Get returns the stats of a user, zero stats when the user never completed a session.
	Get(ctx context.Context, userID string) (domain.UserStats, error)
	// List returns the stats of every user with at least one completed session.
	List(ctx context.Context) ([]domain.UserStats, error)
}

type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*domain.UserStats
	aggregated map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*domain.UserStats),
		aggregated: make(map[string]struct{}),
	}
}

func (m *MemoryStore) Record(_ context.Context, c domain.Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.aggregated[c.SessionID]; ok {
		return domain.ErrDuplicateAggregation
	}
	m.aggregated[c.SessionID] = struct{}{}

	u, ok := m.users[c.UserID]
	if !ok {
		u = &domain.UserStats{UserID: c.UserID}
		m.users[c.UserID] = u
	}
	u.Apply(c)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, userID string) (domain.UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return domain.UserStats{UserID: userID, Categories: map[domain.Category]domain.CategoryStats{}}, nil
	}
	return copyStats(u), nil
}

func (m *MemoryStore) List(_ context.Context) ([]domain.UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]domain.UserStats, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, copyStats(u))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UserID < res[j].UserID })
	return res, nil
}

func copyStats(u *domain.UserStats) domain.UserStats {
	c := *u
	c.Categories = make(map[domain.Category]domain.CategoryStats, len(u.Categories))
	for k, v := range u.Categories {
		c.Categories[k] = v
	}
	return c
}
