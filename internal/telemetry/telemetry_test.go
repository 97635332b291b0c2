package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestCountCalls(t *testing.T) {
	m := NewGRPCMetrics(prometheus.NewRegistry())
	intercept := countCalls(m)
	info := &grpc.UnaryServerInfo{FullMethod: "/trivia.v1.TriviaService/Start"}

	tests := map[string]struct {
		err  error
		code codes.Code
	}{
		"ok":        {code: codes.OK},
		"status":    {err: status.Error(codes.NotFound, "nope"), code: codes.NotFound},
		"any error": {err: errors.New("boom"), code: codes.Unknown},
	}

	for name, tt := range tests {
		_, err := intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
			return nil, tt.err
		})
		assert.Equal(t, tt.err, err, name)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Calls.WithLabelValues(info.FullMethod, tt.code.String())), name)
	}
}

func TestRecoverPanic(t *testing.T) {
	logs := captureLogs(t)

	err := recoverPanic(context.Background(), "boom")
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, logs.String(), "grpc: handler panic")
}

func TestGinLogger(t *testing.T) {
	tests := map[string]struct {
		status    int
		wantLevel string
	}{
		"success":      {status: http.StatusOK, wantLevel: "level=INFO"},
		"client error": {status: http.StatusNotFound, wantLevel: "level=WARN"},
		"server error": {status: http.StatusInternalServerError, wantLevel: "level=ERROR"},
	}

	gin.SetMode(gin.TestMode)
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			logs := captureLogs(t)

			r := gin.New()
			r.Use(GinLogger())
			r.GET("/items/:id", func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, logs.String(), tt.wantLevel)
			assert.Contains(t, logs.String(), "path=/items/:id", "the route pattern is logged, not the raw path")
		})
	}
}

func TestMonitorRedis(t *testing.T) {
	logs := captureLogs(t)

	r := redis.NewClient(&redis.Options{Addr: miniredis.RunT(t).Addr()})
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, MonitorRedis(r))

	require.NoError(t, r.Set(context.Background(), "k", "v", 0).Err())
	assert.ErrorIs(t, r.Get(context.Background(), "missing").Err(), redis.Nil)

	assert.Contains(t, logs.String(), "redis: processed")
	assert.Contains(t, logs.String(), "cmd=set")
	assert.NotContains(t, logs.String(), "redis: nil", "missing keys are not logged as errors")
}
