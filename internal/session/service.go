package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/retry"
	"github.com/victornm/trivia/internal/telemetry"
)

const (
	defaultUpdateAttempts = 5
	defaultRecordAttempts = 3
)

// ErrSessionResumed is returned by an idle-guarded Abandon when the session was
// updated after the idle cutoff.
var ErrSessionResumed = stderrors.New("session: updated since it went idle")

// QuestionBank draws the questions of a new session.
type QuestionBank interface {
	Draw(category domain.Category, count int) ([]domain.Question, error)
}

// StatsRecorder folds a completed session into its owner's stats. A session
// folded before yields domain.ErrDuplicateAggregation.
type StatsRecorder interface {
	RecordCompletion(ctx context.Context, s *domain.Session) error
}

// Limits bounds the client supplied inputs.
type Limits struct {
	MinQuestions     int
	MaxQuestions     int
	DefaultQuestions int
	MaxTimeSpent     time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		MinQuestions:     1,
		MaxQuestions:     10,
		DefaultQuestions: 5,
		MaxTimeSpent:     60 * time.Second,
	}
}

type Config struct {
	Store   Store
	Bank    QuestionBank
	Stats   StatsRecorder
	Metrics *telemetry.SessionMetrics
	Limits  Limits

	// UpdateAttempts bounds the optimistic retries of a single mutation.
	UpdateAttempts int
	Now            func() time.Time
}

type Service struct {
	store   Store
	bank    QuestionBank
	stats   StatsRecorder
	metrics *telemetry.SessionMetrics
	limits  Limits

	updateAttempts int
	now            func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store:          c.Store,
		bank:           c.Bank,
		stats:          c.Stats,
		metrics:        c.Metrics,
		limits:         c.Limits,
		updateAttempts: c.UpdateAttempts,
		now:            c.Now,
	}

	if s.limits == (Limits{}) {
		s.limits = DefaultLimits()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewSessionMetrics(nil)
	}
	if s.updateAttempts <= 0 {
		s.updateAttempts = defaultUpdateAttempts
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

type StartRequest struct {
	UserID   string
	Category domain.Category
	// Count is the number of questions, the configured default when zero.
	Count int
}

// Start draws the questions and persists a new active session.
func (s *Service) Start(ctx context.Context, req StartRequest) (*StartResponse, error) {
	if !req.Category.Valid() {
		return nil, domain.ErrInvalidCategory
	}

	count := req.Count
	if count == 0 {
		count = s.limits.DefaultQuestions
	}
	if count < s.limits.MinQuestions || count > s.limits.MaxQuestions {
		return nil, domain.ErrInvalidCount.With(errors.WithMessagef("question count must be within [%d, %d], got %d", s.limits.MinQuestions, s.limits.MaxQuestions, count))
	}

	questions, err := s.bank.Draw(req.Category, count)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	ss := domain.NewSession(id.String(), req.UserID, req.Category, questions, s.now())
	if err := s.store.Insert(ctx, ss); err != nil {
		return nil, err
	}

	s.metrics.Started.WithLabelValues(req.Category.Key()).Inc()
	slog.InfoContext(ctx, "session: started",
		"session", ss.SessionID,
		"user", ss.UserID,
		"category", ss.Category.Key(),
		"questions", len(ss.Questions),
	)

	return newStartResponse(ss), nil
}

type SubmitAnswerRequest struct {
	SessionID        string
	UserID           string
	QuestionID       int
	ChosenIndex      int
	TimeSpentSeconds float64
}

// SubmitAnswer scores one answer. A question is scored at most once, whatever
// the number of concurrent or repeated submissions.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*AnswerResult, error) {
	maxSpent := s.limits.MaxTimeSpent.Seconds()
	if math.IsNaN(req.TimeSpentSeconds) || req.TimeSpentSeconds < 0 || req.TimeSpentSeconds > maxSpent {
		return nil, domain.ErrInvalidTimeSpent.With(errors.WithMessagef("time spent must be within [0, %g] seconds", maxSpent))
	}

	var out domain.AnswerOutcome
	ss, err := s.update(ctx, req.SessionID, req.UserID, func(ss *domain.Session) error {
		var err error
		out, err = ss.Answer(req.QuestionID, req.ChosenIndex, req.TimeSpentSeconds, s.now())
		return err
	})
	if err != nil {
		s.metrics.Answers.WithLabelValues(outcomeOf(err)).Inc()
		return nil, err
	}

	if out.Question.IsCorrect {
		s.metrics.Answers.WithLabelValues("correct").Inc()
	} else {
		s.metrics.Answers.WithLabelValues("incorrect").Inc()
	}

	if out.CompletedNow {
		s.metrics.Completed.WithLabelValues(ss.Category.Key()).Inc()
		slog.InfoContext(ctx, "session: completed",
			"session", ss.SessionID,
			"user", ss.UserID,
			"points", ss.TotalPoints,
		)

		// the answer is stored already, a failed aggregation is retried by the sweeper
		if err := s.Aggregate(context.WithoutCancel(ctx), ss); err != nil {
			s.metrics.AggregationPending.Inc()
			slog.ErrorContext(ctx, "session: aggregation pending",
				"session", ss.SessionID,
				"error", err,
			)
		}
	}

	return newAnswerResult(ss, out), nil
}

// Aggregate folds a completed session into its owner's stats and marks it
// aggregated. It is safe to repeat: a session already folded is only marked.
func (s *Service) Aggregate(ctx context.Context, ss *domain.Session) error {
	if ss.AggregatedAt != nil {
		return nil
	}

	err := retry.Do(ctx, func(ctx context.Context) error {
		err := s.stats.RecordCompletion(ctx, ss)
		if stderrors.Is(err, domain.ErrDuplicateAggregation) {
			// folded by an earlier attempt or another caller
			return nil
		}
		return err
	}, retry.WithAttempts(defaultRecordAttempts))
	if err != nil {
		return fmt.Errorf("record completion of %s: %w", ss.SessionID, err)
	}

	if _, err := s.update(ctx, ss.SessionID, ss.UserID, func(cur *domain.Session) error {
		return cur.MarkAggregated(s.now())
	}); err != nil {
		// counted already, ListUnaggregated keeps returning it until the mark lands
		slog.WarnContext(ctx, "session: mark aggregated failed",
			"session", ss.SessionID,
			"error", err,
		)
	}

	return nil
}

// ListUnaggregated returns completed sessions not yet counted in stats,
// completed before before.
func (s *Service) ListUnaggregated(ctx context.Context, before time.Time, limit int) ([]*domain.Session, error) {
	var res []*domain.Session
	err := retry.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.store.ListUnaggregated(ctx, before, limit)
		return err
	})
	return res, err
}

type AbandonRequest struct {
	SessionID  string
	UserID     string
	// IdleBefore, when set, abandons the session only if it was last updated
	// before it. A session touched since fails with ErrSessionResumed.
	IdleBefore time.Time
}

// Abandon ends an active session without contributing to stats.
func (s *Service) Abandon(ctx context.Context, req AbandonRequest) (*domain.Session, error) {
	ss, err := s.update(ctx, req.SessionID, req.UserID, func(ss *domain.Session) error {
		last := ss.UpdatedAt
		if err := ss.Abandon(s.now()); err != nil {
			return err
		}
		if !req.IdleBefore.IsZero() && !last.Before(req.IdleBefore) {
			return ErrSessionResumed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Abandoned.Inc()
	slog.InfoContext(ctx, "session: abandoned",
		"session", ss.SessionID,
		"user", ss.UserID,
		"answered", ss.AnsweredCount,
	)

	return ss, nil
}

type GetRequest struct {
	SessionID string
	UserID    string
}

// Get returns the owner's view of a session.
func (s *Service) Get(ctx context.Context, req GetRequest) (*View, error) {
	var ss *domain.Session
	err := retry.Do(ctx, func(ctx context.Context) error {
		var err error
		ss, err = s.store.Get(ctx, req.SessionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if ss.UserID != req.UserID {
		return nil, notOwner(ctx, ss, req.UserID)
	}

	return newView(ss), nil
}

// ListStale returns active sessions idle since before.
func (s *Service) ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Session, error) {
	var res []*domain.Session
	err := retry.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.store.ListStale(ctx, before, limit)
		return err
	})
	return res, err
}

// update applies fn to a fresh copy of the session and writes it back with a
// compare-and-set. On a lost race the whole read-check-write runs again, so fn
// always sees the latest answers. Nothing else is retried.
func (s *Service) update(ctx context.Context, id, userID string, fn func(ss *domain.Session) error) (*domain.Session, error) {
	var res *domain.Session
	err := retry.Do(ctx, func(ctx context.Context) error {
		ss, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}

		if ss.UserID != userID {
			return notOwner(ctx, ss, userID)
		}

		if err := fn(ss); err != nil {
			return err
		}

		if err := s.store.Swap(ctx, ss); err != nil {
			if stderrors.Is(err, ErrVersionConflict) {
				s.metrics.Conflicts.Inc()
			}
			return err
		}

		res = ss
		return nil
	},
		retry.WithAttempts(s.updateAttempts),
		retry.WithInterval(time.Millisecond, 20*time.Millisecond),
		retry.WithRetryable(func(err error) bool {
			return stderrors.Is(err, ErrVersionConflict)
		}),
	)

	if stderrors.Is(err, ErrVersionConflict) {
		return nil, domain.ErrConcurrentUpdate.With(errors.WithCause(err))
	}
	if err != nil {
		return nil, err
	}

	return res, nil
}

// notOwner reports a foreign session the way a missing one is reported, so the
// caller cannot tell whether it exists. errors.Is still matches domain.ErrNotOwner.
func notOwner(ctx context.Context, ss *domain.Session, userID string) error {
	slog.WarnContext(ctx, "session: access by non-owner",
		"session", ss.SessionID,
		"user", userID,
	)
	return domain.ErrSessionNotFound.With(errors.WithCause(domain.ErrNotOwner))
}

func outcomeOf(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Reason != "" {
		return e.Reason
	}
	return "error"
}
