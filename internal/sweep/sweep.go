package sweep

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/session"
)

const (
	defaultBatchSize   = 500
	defaultConcurrency = 8
)

// Sessions is the part of the session engine the sweeper drives.
type Sessions interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Session, error)
	Abandon(ctx context.Context, req session.AbandonRequest) (*domain.Session, error)
	ListUnaggregated(ctx context.Context, before time.Time, limit int) ([]*domain.Session, error)
	Aggregate(ctx context.Context, ss *domain.Session) error
}

type Config struct {
	Sessions    Sessions
	BatchSize   int
	Concurrency int
	Now         func() time.Time
}

// Sweeper abandons sessions nobody touched for a while and folds completed
// sessions whose stats never landed. The engine itself never expires sessions;
// this runs from outside on a schedule.
type Sweeper struct {
	sessions    Sessions
	batchSize   int
	concurrency int
	now         func() time.Time
}

func New(c Config) *Sweeper {
	s := &Sweeper{
		sessions:    c.Sessions,
		batchSize:   c.BatchSize,
		concurrency: c.Concurrency,
		now:         c.Now,
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultConcurrency
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type Result struct {
	Abandoned int
	// Skipped sessions were answered, finished or abandoned between listing and sweeping.
	Skipped int
}

// Run abandons one batch of active sessions idle for longer than idle.
func (s *Sweeper) Run(ctx context.Context, idle time.Duration) (Result, error) {
	if idle <= 0 {
		return Result{}, fmt.Errorf("sweep: idle duration must be positive, got %s", idle)
	}

	cutoff := s.now().Add(-idle)
	stale, err := s.sessions.ListStale(ctx, cutoff, s.batchSize)
	if err != nil {
		return Result{}, fmt.Errorf("sweep: list stale sessions: %w", err)
	}

	var abandoned, skipped atomic.Int32
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for _, ss := range stale {
		ss := ss
		eg.Go(func() error {
			_, err := s.sessions.Abandon(ctx, session.AbandonRequest{
				SessionID:  ss.SessionID,
				UserID:     ss.UserID,
				IdleBefore: cutoff,
			})
			switch {
			case err == nil:
				abandoned.Add(1)
				return nil
			case stderrors.Is(err, domain.ErrSessionNotActive), stderrors.Is(err, session.ErrSessionResumed):
				skipped.Add(1)
				return nil
			default:
				return fmt.Errorf("sweep: abandon %s: %w", ss.SessionID, err)
			}
		})
	}

	err = eg.Wait()
	res := Result{Abandoned: int(abandoned.Load()), Skipped: int(skipped.Load())}

	slog.InfoContext(ctx, "sweep: finished",
		"stale", len(stale),
		"abandoned", res.Abandoned,
		"skipped", res.Skipped,
		"error", err,
	)

	return res, err
}

// Reconcile folds one batch of completed sessions whose aggregation failed.
// Sessions completed within grace are left to the request that completed them.
func (s *Sweeper) Reconcile(ctx context.Context, grace time.Duration) (int, error) {
	if grace < 0 {
		return 0, fmt.Errorf("sweep: grace must not be negative, got %s", grace)
	}

	pending, err := s.sessions.ListUnaggregated(ctx, s.now().Add(-grace), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("sweep: list unaggregated sessions: %w", err)
	}

	var aggregated atomic.Int32
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for _, ss := range pending {
		ss := ss
		eg.Go(func() error {
			if err := s.sessions.Aggregate(ctx, ss); err != nil {
				return fmt.Errorf("sweep: aggregate %s: %w", ss.SessionID, err)
			}
			aggregated.Add(1)
			return nil
		})
	}

	err = eg.Wait()
	n := int(aggregated.Load())

	if len(pending) > 0 || err != nil {
		slog.InfoContext(ctx, "sweep: reconciled",
			"pending", len(pending),
			"aggregated", n,
			"error", err,
		)
	}

	return n, err
}
