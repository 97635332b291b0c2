package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/auth"
	"github.com/victornm/trivia/internal/server"
)

const secret = "server-test-secret"

func makeServer(t *testing.T, opts ...func(c *server.Config)) *server.Server {
	t.Helper()

	c := server.DefaultConfig()
	c.Auth.Secret = secret
	for _, opt := range opts {
		opt(&c)
	}

	s, err := server.Init(c)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func serve(t *testing.T, s *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	token, err := auth.NewVerifier(secret).Issue("u1", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestInit_RequiresSecret(t *testing.T) {
	_, err := server.Init(server.DefaultConfig())
	assert.Error(t, err)
}

func TestInit_UnknownCatalog(t *testing.T) {
	c := server.DefaultConfig()
	c.Auth.Secret = secret
	c.Catalog.Path = "/does/not/exist.yaml"

	_, err := server.Init(c)
	assert.Error(t, err)
}

func TestServer_Routes(t *testing.T) {
	tests := map[string]struct {
		opts       []func(c *server.Config)
		method     string
		path       string
		body       any
		wantStatus int
		wantBody   string
	}{
		"healthz without infra": {
			method:     http.MethodGet,
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `"healthy":true`,
		},
		"healthz with redis": {
			opts: []func(c *server.Config){func(c *server.Config) {
				c.Redis.Leaderboard.Addrs = []string{miniredis.RunT(t).Addr()}
			}},
			method:     http.MethodGet,
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `"redis":"ok"`,
		},
		"metrics": {
			method:     http.MethodGet,
			path:       "/metrics",
			wantStatus: http.StatusOK,
			wantBody:   "trivia_session_abandoned_total",
		},
		"categories": {
			method:     http.MethodGet,
			path:       "/api/trivia/categories",
			wantStatus: http.StatusOK,
			wantBody:   `"categories"`,
		},
		"start honours configured bounds": {
			opts: []func(c *server.Config){func(c *server.Config) {
				c.Game.MaxQuestions = 2
			}},
			method:     http.MethodPost,
			path:       "/api/trivia/start",
			body:       map[string]any{"category": "Emprendimiento", "questionCount": 3},
			wantStatus: http.StatusBadRequest,
			wantBody:   "INVALID_COUNT",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			s := makeServer(t, tt.opts...)

			w := serve(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestServer_Sweep(t *testing.T) {
	s := makeServer(t)

	w := serve(t, s, http.MethodPost, "/api/trivia/start", map[string]any{"category": "Emprendimiento"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res, err := s.Sweep(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, res.Abandoned, "a fresh session is not idle")

	res, err = s.Sweep(context.Background(), time.Nanosecond)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Abandoned)

	n, err := s.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "abandoned sessions never reach stats")
}
