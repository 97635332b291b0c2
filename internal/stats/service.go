package stats

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/retry"
	"github.com/victornm/trivia/internal/telemetry"
)

type Config struct {
	Store    Store
	EventBus *event.Bus
	Metrics  *telemetry.StatsMetrics
}

type Service struct {
	store   Store
	eb      *event.Bus
	metrics *telemetry.StatsMetrics
}

func NewService(c Config) *Service {
	s := &Service{
		store:   c.Store,
		eb:      c.EventBus,
		metrics: c.Metrics,
	}

	if s.metrics == nil {
		s.metrics = telemetry.NewStatsMetrics(nil)
	}

	return s
}

// RecordCompletion folds a completed session into its owner's stats. Every
// session is folded at most once, a repeated call fails with
// domain.ErrDuplicateAggregation.
func (s *Service) RecordCompletion(ctx context.Context, ss *domain.Session) error {
	if ss.Status != domain.SessionStatusCompleted {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("session %s is %s, only completed sessions are aggregated", ss.SessionID, ss.Status))
	}
	if err := ss.Validate(); err != nil {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("inconsistent session: %v", err))
	}

	c := domain.CompletionOf(ss)
	if err := s.store.Record(ctx, c); err != nil {
		if stderrors.Is(err, domain.ErrDuplicateAggregation) {
			s.metrics.Duplicates.Inc()
			slog.WarnContext(ctx, "stats: duplicate aggregation rejected", "session", ss.SessionID)
		}
		return err
	}
	s.metrics.Recorded.Inc()

	u, err := s.Get(ctx, ss.UserID)
	if err != nil {
		// recorded already, subscribers catch up on the next update
		slog.ErrorContext(ctx, "stats: reload after record failed", "user", ss.UserID, "error", err)
		return nil
	}

	s.eb.Publish(ctx, domain.EventStatsUpdated{Stats: u})
	return nil
}

// Get returns a snapshot of the user's stats.
func (s *Service) Get(ctx context.Context, userID string) (domain.UserStats, error) {
	var u domain.UserStats
	err := retry.Do(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.store.Get(ctx, userID)
		return err
	})
	return u, err
}

// List returns every user's stats.
func (s *Service) List(ctx context.Context) ([]domain.UserStats, error) {
	var res []domain.UserStats
	err := retry.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.store.List(ctx)
		return err
	})
	return res, err
}

// CategorySnapshot is a category bucket with its derived accuracy.
type CategorySnapshot struct {
	domain.CategoryStats
	Accuracy float64 `json:"accuracy"`
}

// Snapshot is the stats of a user as exposed to clients.
type Snapshot struct {
	UserID        string                               `json:"userId"`
	TotalGames    int                                  `json:"totalGames"`
	TotalCorrect  int                                  `json:"totalCorrect"`
	TotalAnswered int                                  `json:"totalAnswered"`
	TotalPoints   int                                  `json:"totalPoints"`
	BestStreak    int                                  `json:"bestStreak"`
	Accuracy      float64                              `json:"accuracy"`
	Categories    map[domain.Category]CategorySnapshot `json:"categories"`
}

func NewSnapshot(u domain.UserStats) Snapshot {
	snap := Snapshot{
		UserID:        u.UserID,
		TotalGames:    u.TotalGames,
		TotalCorrect:  u.TotalCorrect,
		TotalAnswered: u.TotalAnswered,
		TotalPoints:   u.TotalPoints,
		BestStreak:    u.BestStreak,
		Accuracy:      u.Accuracy(),
		Categories:    make(map[domain.Category]CategorySnapshot, len(u.Categories)),
	}
	for c, cs := range u.Categories {
		snap.Categories[c] = CategorySnapshot{CategoryStats: cs, Accuracy: cs.Accuracy()}
	}
	return snap
}
