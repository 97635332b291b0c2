package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/trivia/internal/errors"
)

// RegisterHTTP mounts the trivia routes under /api/trivia.
func (a *API) RegisterHTTP(r gin.IRouter) {
	g := r.Group("/api/trivia", a.verifier.Gin())

	g.GET("/categories", handle(bindNothing[ListCategoriesRequest], a.ListCategories))
	g.POST("/start", handle(bindJSON[StartRequest], a.Start))
	g.POST("/answer", handle(bindJSON[SubmitAnswerRequest], a.SubmitAnswer))
	g.POST("/abandon", handle(bindJSON[AbandonRequest], a.Abandon))
	g.GET("/sessions/:id", handle(bindURI[GetSessionRequest], a.GetSession))
	g.GET("/leaderboard", handle(bindQuery[GetLeaderboardRequest], a.GetLeaderboard))
	g.GET("/stats", handle(bindQuery[GetStatsRequest], a.GetStats))
}

func handle[Req, Resp any](bind func(c *gin.Context, req *Req) error, op func(ctx context.Context, req Req) (Resp, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if err := bind(c, &req); err != nil {
			renderError(c, errors.New(errors.CodeInvalidArgument,
				errors.WithReason("MALFORMED_REQUEST"),
				errors.WithMessagef("malformed request: %v", err),
			))
			return
		}

		resp, err := op(c.Request.Context(), req)
		if err != nil {
			renderError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func bindNothing[Req any](*gin.Context, *Req) error { return nil }

func bindJSON[Req any](c *gin.Context, req *Req) error { return c.ShouldBindJSON(req) }

func bindQuery[Req any](c *gin.Context, req *Req) error { return c.ShouldBindQuery(req) }

func bindURI[Req any](c *gin.Context, req *Req) error { return c.ShouldBindUri(req) }

func renderError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
