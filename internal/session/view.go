package session

import (
	"slices"
	"time"

	"github.com/victornm/trivia/internal/domain"
)

// PublicQuestion is a session question without its answer key.
type PublicQuestion struct {
	ID         int               `json:"id"`
	Prompt     string            `json:"prompt"`
	Options    []string          `json:"options"`
	Difficulty domain.Difficulty `json:"difficulty"`
}

type StartResponse struct {
	SessionID      string           `json:"sessionId"`
	Category       domain.Category  `json:"category"`
	Questions      []PublicQuestion `json:"questions"`
	TotalQuestions int              `json:"totalQuestions"`
}

func newStartResponse(ss *domain.Session) *StartResponse {
	resp := &StartResponse{
		SessionID:      ss.SessionID,
		Category:       ss.Category,
		Questions:      make([]PublicQuestion, 0, len(ss.Questions)),
		TotalQuestions: len(ss.Questions),
	}
	for _, q := range ss.Questions {
		resp.Questions = append(resp.Questions, PublicQuestion{
			ID:         q.QuestionID,
			Prompt:     q.Prompt,
			Options:    slices.Clone(q.Options),
			Difficulty: q.Difficulty,
		})
	}
	return resp
}

type AnswerResult struct {
	IsCorrect          bool                 `json:"isCorrect"`
	PointsAwarded      int                  `json:"pointsAwarded"`
	CorrectOptionIndex int                  `json:"correctOptionIndex"`
	Explanation        string               `json:"explanation"`
	SessionStatus      domain.SessionStatus `json:"sessionStatus"`
	TotalPointsSoFar   int                  `json:"totalPointsSoFar"`
	QuestionsRemaining int                  `json:"questionsRemaining"`
}

func newAnswerResult(ss *domain.Session, out domain.AnswerOutcome) *AnswerResult {
	return &AnswerResult{
		IsCorrect:          out.Question.IsCorrect,
		PointsAwarded:      out.Question.PointsAwarded,
		CorrectOptionIndex: out.Question.CorrectOptionIndex,
		Explanation:        out.Question.Explanation,
		SessionStatus:      ss.Status,
		TotalPointsSoFar:   ss.TotalPoints,
		QuestionsRemaining: ss.Remaining(),
	}
}

// QuestionView reveals the answer key only once the question is answered.
type QuestionView struct {
	PublicQuestion
	Answered           bool     `json:"answered"`
	ChosenIndex        *int     `json:"chosenIndex,omitempty"`
	IsCorrect          *bool    `json:"isCorrect,omitempty"`
	PointsAwarded      int      `json:"pointsAwarded"`
	TimeSpentSeconds   *float64 `json:"timeSpentSeconds,omitempty"`
	CorrectOptionIndex *int     `json:"correctOptionIndex,omitempty"`
	Explanation        string   `json:"explanation,omitempty"`
}

type View struct {
	SessionID      string               `json:"sessionId"`
	UserID         string               `json:"userId"`
	Category       domain.Category      `json:"category"`
	Status         domain.SessionStatus `json:"status"`
	Questions      []QuestionView       `json:"questions"`
	AnsweredCount  int                  `json:"answeredCount"`
	CorrectCount   int                  `json:"correctCount"`
	TotalPoints    int                  `json:"totalPoints"`
	TotalQuestions int                  `json:"totalQuestions"`
	StartedAt      time.Time            `json:"startedAt"`
	CompletedAt    *time.Time           `json:"completedAt"`
	AbandonedAt    *time.Time           `json:"abandonedAt,omitempty"`
}

func newView(ss *domain.Session) *View {
	v := &View{
		SessionID:      ss.SessionID,
		UserID:         ss.UserID,
		Category:       ss.Category,
		Status:         ss.Status,
		Questions:      make([]QuestionView, 0, len(ss.Questions)),
		AnsweredCount:  ss.AnsweredCount,
		CorrectCount:   ss.CorrectCount,
		TotalPoints:    ss.TotalPoints,
		TotalQuestions: len(ss.Questions),
		StartedAt:      ss.StartedAt,
		CompletedAt:    ss.CompletedAt,
		AbandonedAt:    ss.AbandonedAt,
	}

	for _, q := range ss.Questions {
		qv := QuestionView{
			PublicQuestion: PublicQuestion{
				ID:         q.QuestionID,
				Prompt:     q.Prompt,
				Options:    slices.Clone(q.Options),
				Difficulty: q.Difficulty,
			},
			Answered:      q.Answered,
			PointsAwarded: q.PointsAwarded,
		}
		if q.Answered {
			correct, isCorrect, spent := q.CorrectOptionIndex, q.IsCorrect, q.TimeSpentSeconds
			qv.ChosenIndex = q.ChosenIndex
			qv.IsCorrect = &isCorrect
			qv.TimeSpentSeconds = &spent
			qv.CorrectOptionIndex = &correct
			qv.Explanation = q.Explanation
		}
		v.Questions = append(v.Questions, qv)
	}

	return v
}
