package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/victornm/trivia/internal/errors"
)

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// SessionQuestion is the per-session snapshot of a question plus the attempt made on it.
type SessionQuestion struct {
	QuestionID         int        `json:"questionId"`
	Prompt             string     `json:"prompt"`
	Options            []string   `json:"options"`
	Difficulty         Difficulty `json:"difficulty"`
	CorrectOptionIndex int        `json:"correctOptionIndex"`
	Explanation        string     `json:"explanation,omitempty"`

	Answered         bool       `json:"answered"`
	ChosenIndex      *int       `json:"chosenIndex"`
	IsCorrect        bool       `json:"isCorrect"`
	PointsAwarded    int        `json:"pointsAwarded"`
	TimeSpentSeconds float64    `json:"timeSpentSeconds"`
	AnswerOrder      int        `json:"answerOrder,omitempty"`
	AnsweredAt       *time.Time `json:"answeredAt,omitempty"`
}

// Session is a single user's attempt at a fixed sequence of questions.
// Version is bumped by the store on every successful write.
type Session struct {
	SessionID     string            `json:"sessionId"`
	UserID        string            `json:"userId"`
	Category      Category          `json:"category"`
	Status        SessionStatus     `json:"status"`
	Questions     []SessionQuestion `json:"questions"`
	AnsweredCount int               `json:"answeredCount"`
	CorrectCount  int               `json:"correctCount"`
	TotalPoints   int               `json:"totalPoints"`
	StartedAt     time.Time         `json:"startedAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	CompletedAt   *time.Time        `json:"completedAt"`
	AbandonedAt   *time.Time        `json:"abandonedAt,omitempty"`
	// AggregatedAt is set once the session is folded into its owner's stats.
	AggregatedAt  *time.Time        `json:"aggregatedAt,omitempty"`
	Version       int64             `json:"-"`
}

// NewSession builds an active session from the drawn questions.
func NewSession(id, userID string, category Category, questions []Question, now time.Time) *Session {
	ss := &Session{
		SessionID: id,
		UserID:    userID,
		Category:  category,
		Status:    SessionStatusActive,
		Questions: make([]SessionQuestion, 0, len(questions)),
		StartedAt: now,
		UpdatedAt: now,
	}

	for _, q := range questions {
		ss.Questions = append(ss.Questions, SessionQuestion{
			QuestionID:         q.ID,
			Prompt:             q.Prompt,
			Options:            slices.Clone(q.Options),
			Difficulty:         q.Difficulty,
			CorrectOptionIndex: q.CorrectOptionIndex,
			Explanation:        q.Explanation,
		})
	}

	return ss
}

// Clone returns a deep copy, so a mutation attempt never leaks into a stored document.
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = make([]SessionQuestion, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = slices.Clone(q.Options)
		q.ChosenIndex = clonePtr(q.ChosenIndex)
		q.AnsweredAt = clonePtr(q.AnsweredAt)
		c.Questions[i] = q
	}
	c.CompletedAt = clonePtr(s.CompletedAt)
	c.AbandonedAt = clonePtr(s.AbandonedAt)
	c.AggregatedAt = clonePtr(s.AggregatedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// AnswerOutcome describes the effect of a recorded answer.
type AnswerOutcome struct {
	Question SessionQuestion
	// CompletedNow is true only for the answer that moved the session into completed.
	CompletedNow bool
}

// Answer records the answer to one question and completes the session when it was the last one.
func (s *Session) Answer(questionID, chosenIndex int, timeSpentSeconds float64, now time.Time) (AnswerOutcome, error) {
	if s.Status != SessionStatusActive {
		return AnswerOutcome{}, ErrSessionNotActive.With(errors.WithMessagef("session %s is %s", s.SessionID, s.Status))
	}

	i := slices.IndexFunc(s.Questions, func(q SessionQuestion) bool { return q.QuestionID == questionID })
	if i < 0 {
		return AnswerOutcome{}, ErrQuestionNotInSession.With(errors.WithMessagef("question %d is not part of session %s", questionID, s.SessionID))
	}

	q := &s.Questions[i]
	if q.Answered {
		return AnswerOutcome{}, ErrAlreadyAnswered.With(errors.WithMessagef("question %d already answered", questionID))
	}

	if chosenIndex < 0 || chosenIndex >= len(q.Options) {
		return AnswerOutcome{}, ErrInvalidAnswerIndex.With(errors.WithMessagef("answer index %d out of range [0, %d)", chosenIndex, len(q.Options)))
	}

	q.Answered = true
	q.ChosenIndex = &chosenIndex
	q.IsCorrect = chosenIndex == q.CorrectOptionIndex
	q.TimeSpentSeconds = timeSpentSeconds
	q.AnsweredAt = &now
	if q.IsCorrect {
		q.PointsAwarded = q.Difficulty.Points()
	}

	s.AnsweredCount++
	q.AnswerOrder = s.AnsweredCount
	if q.IsCorrect {
		s.CorrectCount++
		s.TotalPoints += q.PointsAwarded
	}
	s.UpdatedAt = now

	out := AnswerOutcome{Question: *q}
	if s.AnsweredCount == len(s.Questions) {
		s.Status = SessionStatusCompleted
		s.CompletedAt = &now
		out.CompletedNow = true
	}

	return out, nil
}

// Abandon moves an active session into abandoned.
func (s *Session) Abandon(now time.Time) error {
	if s.Status != SessionStatusActive {
		return ErrSessionNotActive.With(errors.WithMessagef("session %s is %s", s.SessionID, s.Status))
	}

	s.Status = SessionStatusAbandoned
	s.AbandonedAt = &now
	s.UpdatedAt = now
	return nil
}

// MarkAggregated records that the completed session is counted in stats. It
// keeps the first mark.
func (s *Session) MarkAggregated(now time.Time) error {
	if s.Status != SessionStatusCompleted {
		return ErrSessionNotActive.With(errors.WithMessagef("session %s is %s, only completed sessions are aggregated", s.SessionID, s.Status))
	}
	if s.AggregatedAt == nil {
		s.AggregatedAt = &now
	}
	return nil
}

// Remaining is the number of unanswered questions.
func (s *Session) Remaining() int {
	return len(s.Questions) - s.AnsweredCount
}

// BestStreak is the longest run of consecutive correct answers, in the order they were given.
func (s *Session) BestStreak() int {
	answered := make([]SessionQuestion, 0, len(s.Questions))
	for _, q := range s.Questions {
		if q.Answered {
			answered = append(answered, q)
		}
	}
	slices.SortStableFunc(answered, func(a, b SessionQuestion) int { return a.AnswerOrder - b.AnswerOrder })

	var best, run int
	for _, q := range answered {
		if !q.IsCorrect {
			run = 0
			continue
		}
		run++
		best = max(best, run)
	}
	return best
}

// Validate checks the counters against the per-question records.
func (s *Session) Validate() error {
	var answered, correct, points int
	for _, q := range s.Questions {
		if q.Answered {
			answered++
		}
		if q.IsCorrect {
			correct++
		}
		points += q.PointsAwarded
	}

	switch {
	case answered != s.AnsweredCount:
		return fmt.Errorf("session %s: answered count %d, want %d", s.SessionID, s.AnsweredCount, answered)
	case correct != s.CorrectCount:
		return fmt.Errorf("session %s: correct count %d, want %d", s.SessionID, s.CorrectCount, correct)
	case points != s.TotalPoints:
		return fmt.Errorf("session %s: total points %d, want %d", s.SessionID, s.TotalPoints, points)
	case (s.Status == SessionStatusCompleted) != (answered == len(s.Questions)):
		return fmt.Errorf("session %s: status %s with %d/%d answered", s.SessionID, s.Status, answered, len(s.Questions))
	case (s.Status == SessionStatusCompleted) != (s.CompletedAt != nil):
		return fmt.Errorf("session %s: status %s with completedAt=%v", s.SessionID, s.Status, s.CompletedAt)
	case s.AggregatedAt != nil && s.Status != SessionStatusCompleted:
		return fmt.Errorf("session %s: status %s with aggregatedAt=%v", s.SessionID, s.Status, s.AggregatedAt)
	}
	return nil
}
