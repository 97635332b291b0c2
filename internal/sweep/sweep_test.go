package sweep_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/questionbank"
	"github.com/victornm/trivia/internal/session"
	"github.com/victornm/trivia/internal/stats"
	"github.com/victornm/trivia/internal/sweep"
)

func TestSweeper_Run(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	bank, err := questionbank.Default()
	require.NoError(t, err)

	eb := event.NewBus()
	t.Cleanup(eb.Stop)

	store := session.NewMemoryStore()
	svc := session.NewService(session.Config{
		Store: store,
		Bank:  bank,
		Stats: stats.NewService(stats.Config{Store: stats.NewMemoryStore(), EventBus: eb}),
		Now:   clock,
	})

	start := func(user string) string {
		resp, err := svc.Start(ctx, session.StartRequest{UserID: user, Category: domain.CategoryLaborLaw, Count: 1})
		require.NoError(t, err)
		return resp.SessionID
	}

	idle := start("u1")
	idle2 := start("u2")
	finished := start("u3")
	ss, err := store.Get(ctx, finished)
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(ctx, session.SubmitAnswerRequest{SessionID: finished, UserID: "u3", QuestionID: ss.Questions[0].QuestionID})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	recent := start("u4")

	sw := sweep.New(sweep.Config{Sessions: svc, Concurrency: 2, Now: clock})
	res, err := sw.Run(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Abandoned)
	assert.Zero(t, res.Skipped)

	for id, want := range map[string]domain.SessionStatus{
		idle:     domain.SessionStatusAbandoned,
		idle2:    domain.SessionStatusAbandoned,
		finished: domain.SessionStatusCompleted,
		recent:   domain.SessionStatusActive,
	} {
		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, id)
	}

	res, err = sw.Run(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, res.Abandoned, "nothing is stale anymore")
}

func TestSweeper_Run_RaceWithFinalAnswer(t *testing.T) {
	ss := domain.NewSession("s1", "u1", domain.CategoryEconomy, nil, time.Now())
	fake := &racingSessions{stale: []*domain.Session{ss}}

	res, err := sweep.New(sweep.Config{Sessions: fake}).Run(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, sweep.Result{Skipped: 1}, res)
}

func TestSweeper_Run_SessionAnsweredAfterListing(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	bank, err := questionbank.Default()
	require.NoError(t, err)

	store := session.NewMemoryStore()
	svc := session.NewService(session.Config{
		Store: store,
		Bank:  bank,
		Stats: stats.NewService(stats.Config{Store: stats.NewMemoryStore()}),
		Now:   clock,
	})

	resp, err := svc.Start(ctx, session.StartRequest{UserID: "u1", Category: domain.CategoryLaborLaw, Count: 2})
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)

	resuming := &resumingSessions{Service: svc, answer: func() {
		_, err := svc.SubmitAnswer(ctx, session.SubmitAnswerRequest{SessionID: resp.SessionID, UserID: "u1", QuestionID: resp.Questions[0].ID})
		require.NoError(t, err)
	}}

	res, err := sweep.New(sweep.Config{Sessions: resuming, Now: clock}).Run(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, sweep.Result{Skipped: 1}, res)

	ss, err := store.Get(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusActive, ss.Status, "a session answered after listing stays active")
	assert.Equal(t, 1, ss.AnsweredCount)
}

func TestSweeper_Reconcile(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	bank, err := questionbank.Default()
	require.NoError(t, err)

	statsSvc := stats.NewService(stats.Config{Store: stats.NewMemoryStore()})
	down := &flakyStats{next: statsSvc, down: true}

	store := session.NewMemoryStore()
	svc := session.NewService(session.Config{Store: store, Bank: bank, Stats: down, Now: clock})

	resp, err := svc.Start(ctx, session.StartRequest{UserID: "u1", Category: domain.CategoryLaborLaw, Count: 1})
	require.NoError(t, err)

	res, err := svc.SubmitAnswer(ctx, session.SubmitAnswerRequest{SessionID: resp.SessionID, UserID: "u1", QuestionID: resp.Questions[0].ID})
	require.NoError(t, err, "the stored answer is reported even when stats are down")
	assert.Equal(t, domain.SessionStatusCompleted, res.SessionStatus)

	u, err := statsSvc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, u.TotalGames)

	sw := sweep.New(sweep.Config{Sessions: svc, Now: clock})

	n, err := sw.Reconcile(ctx, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n, "sessions within grace are left alone")

	now = now.Add(2 * time.Minute)
	_, err = sw.Reconcile(ctx, time.Minute)
	require.Error(t, err, "stats still down")

	down.setDown(false)
	n, err = sw.Reconcile(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	u, err = statsSvc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.TotalGames, "the game caught up")

	ss, err := store.Get(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.NotNil(t, ss.AggregatedAt)

	n, err = sw.Reconcile(ctx, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is pending anymore")

	u, err = statsSvc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.TotalGames, "the game is counted once")
}

func TestSweeper_Run_InvalidIdle(t *testing.T) {
	_, err := sweep.New(sweep.Config{Sessions: &racingSessions{}}).Run(context.Background(), 0)
	require.Error(t, err)
}

// racingSessions reports every listed session as finished by the time it is abandoned.
type racingSessions struct {
	stale []*domain.Session
}

func (r *racingSessions) ListStale(context.Context, time.Time, int) ([]*domain.Session, error) {
	return r.stale, nil
}

func (r *racingSessions) Abandon(context.Context, session.AbandonRequest) (*domain.Session, error) {
	return nil, domain.ErrSessionNotActive
}

func (r *racingSessions) ListUnaggregated(context.Context, time.Time, int) ([]*domain.Session, error) {
	return nil, nil
}

func (r *racingSessions) Aggregate(context.Context, *domain.Session) error {
	return nil
}

// resumingSessions answers a question right after the stale sessions are listed.
type resumingSessions struct {
	*session.Service
	answer func()
}

func (r *resumingSessions) ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Session, error) {
	res, err := r.Service.ListStale(ctx, before, limit)
	r.answer()
	return res, err
}

type flakyStats struct {
	next session.StatsRecorder

	mu   sync.Mutex
	down bool
}

func (f *flakyStats) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyStats) RecordCompletion(ctx context.Context, s *domain.Session) error {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()

	if down {
		return errors.New("stats store unavailable")
	}
	return f.next.RecordCompletion(ctx, s)
}
