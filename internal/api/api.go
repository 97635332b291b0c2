package api

import (
	"context"
	"strings"

	"github.com/victornm/trivia/internal/auth"
	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/leaderboard"
	"github.com/victornm/trivia/internal/questionbank"
	"github.com/victornm/trivia/internal/session"
	"github.com/victornm/trivia/internal/stats"
)

type Config struct {
	Bank        *questionbank.Bank
	Session     *session.Service
	Stats       *stats.Service
	Leaderboard *leaderboard.Service
	Verifier    *auth.Verifier
}

// API exposes the trivia operations over HTTP and gRPC. Every operation takes the
// caller from the context, put there by the auth middleware of the transport.
type API struct {
	bank     *questionbank.Bank
	ss       *session.Service
	stats    *stats.Service
	lb       *leaderboard.Service
	verifier *auth.Verifier
}

func New(c Config) *API {
	return &API{
		bank:     c.Bank,
		ss:       c.Session,
		stats:    c.Stats,
		lb:       c.Leaderboard,
		verifier: c.Verifier,
	}
}

func (a *API) ListCategories(ctx context.Context, _ ListCategoriesRequest) (*ListCategoriesResponse, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}

	return &ListCategoriesResponse{Categories: a.bank.ListCategories()}, nil
}

func (a *API) Start(ctx context.Context, req StartRequest) (*session.StartResponse, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	return a.ss.Start(ctx, session.StartRequest{
		UserID:   user,
		Category: category,
		Count:    req.QuestionCount,
	})
}

func (a *API) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*session.AnswerResult, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if req.ChosenIndex == nil {
		return nil, domain.ErrInvalidAnswerIndex.With(errors.WithMessagef("chosenIndex is required"))
	}

	return a.ss.SubmitAnswer(ctx, session.SubmitAnswerRequest{
		SessionID:        req.SessionID,
		UserID:           user,
		QuestionID:       req.QuestionID,
		ChosenIndex:      *req.ChosenIndex,
		TimeSpentSeconds: req.TimeSpentSeconds,
	})
}

func (a *API) Abandon(ctx context.Context, req AbandonRequest) (*AbandonResponse, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	ss, err := a.ss.Abandon(ctx, session.AbandonRequest{
		SessionID: req.SessionID,
		UserID:    user,
	})
	if err != nil {
		return nil, err
	}

	return &AbandonResponse{Status: ss.Status}, nil
}

func (a *API) GetSession(ctx context.Context, req GetSessionRequest) (*session.View, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	return a.ss.Get(ctx, session.GetRequest{
		SessionID: req.SessionID,
		UserID:    user,
	})
}

func (a *API) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*leaderboard.Leaderboard, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}

	scope, err := leaderboard.ParseScope(req.Scope)
	if err != nil {
		return nil, err
	}

	r := leaderboard.RankRequest{
		Scope:  scope,
		Region: req.Region,
		Limit:  req.Limit,
	}
	if strings.TrimSpace(req.Category) != "" {
		category, err := domain.ParseCategory(req.Category)
		if err != nil {
			return nil, err
		}
		r.Category = &category
	}

	return a.lb.Rank(ctx, r)
}

func (a *API) GetStats(ctx context.Context, req GetStatsRequest) (*stats.Snapshot, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if req.UserID == "" {
		req.UserID = user
	}

	u, err := a.stats.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	snap := stats.NewSnapshot(u)
	return &snap, nil
}

func caller(ctx context.Context) (string, error) {
	id, ok := auth.UserID(ctx)
	if !ok {
		return "", auth.ErrUnauthenticated
	}
	return id, nil
}
