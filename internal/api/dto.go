package api

import (
	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/questionbank"
)

// Field names are shared by the HTTP and gRPC transports and must stay stable.

type ListCategoriesRequest struct{}

type ListCategoriesResponse struct {
	Categories []questionbank.CategorySummary `json:"categories"`
}

type StartRequest struct {
	Category      string `json:"category"`
	QuestionCount int    `json:"questionCount"`
}

type SubmitAnswerRequest struct {
	SessionID        string  `json:"sessionId"`
	QuestionID       int     `json:"questionId"`
	ChosenIndex      *int    `json:"chosenIndex"`
	TimeSpentSeconds float64 `json:"timeSpentSeconds"`
}

type AbandonRequest struct {
	SessionID string `json:"sessionId"`
}

type AbandonResponse struct {
	Status domain.SessionStatus `json:"status"`
}

type GetSessionRequest struct {
	SessionID string `json:"sessionId" uri:"id"`
}

type GetLeaderboardRequest struct {
	Category string `json:"category,omitempty" form:"category"`
	Scope    string `json:"scope,omitempty" form:"scope"`
	Region   string `json:"region,omitempty" form:"region"`
	Limit    int    `json:"limit,omitempty" form:"limit"`
}

type GetStatsRequest struct {
	UserID string `json:"userId,omitempty" form:"userId"`
}
