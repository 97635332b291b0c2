package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/victornm/trivia/internal/api"
	"github.com/victornm/trivia/internal/auth"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/leaderboard"
	"github.com/victornm/trivia/internal/postgres"
	"github.com/victornm/trivia/internal/questionbank"
	"github.com/victornm/trivia/internal/session"
	"github.com/victornm/trivia/internal/stats"
	"github.com/victornm/trivia/internal/sweep"
	"github.com/victornm/trivia/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Log struct {
		Level string
	}

	Auth struct {
		Secret string
	}

	Postgres postgres.Config

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
			TTL    time.Duration
		}
	}

	Game struct {
		MinQuestions     int
		MaxQuestions     int
		DefaultQuestions int
		MaxTimeSpent     time.Duration
	}

	Catalog struct {
		// Path of a YAML question catalog. Empty uses the embedded one.
		Path string
	}

	Sweep struct {
		Idle time.Duration
		// Grace is how long a completed session may wait for its stats before
		// the sweep folds it.
		Grace time.Duration
		// Interval of the in-process sweep. Zero leaves sweeping to the sweep command.
		Interval time.Duration
	}
}

// DefaultConfig is the configuration Load starts from.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 8081
	c.Log.Level = "info"
	c.Redis.Leaderboard.Prefix = "trivia"
	c.Redis.Leaderboard.TTL = 30 * time.Second

	l := session.DefaultLimits()
	c.Game.MinQuestions = l.MinQuestions
	c.Game.MaxQuestions = l.MaxQuestions
	c.Game.DefaultQuestions = l.DefaultQuestions
	c.Game.MaxTimeSpent = l.MaxTimeSpent

	c.Sweep.Idle = 30 * time.Minute
	c.Sweep.Grace = time.Minute
	return c
}

type Server struct {
	c Config

	eb  *event.Bus
	reg *prometheus.Registry

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
		}

		postgres *pgxpool.Pool
	}

	service struct {
		bank        *questionbank.Bank
		session     *session.Service
		stats       *stats.Service
		leaderboard *leaderboard.Service
		sweeper     *sweep.Sweeper
	}

	verifier *auth.Verifier
	handler  http.Handler

	http *http.Server
	grpc *grpc.Server
}

func Init(c Config) (*Server, error) {
	if c.Auth.Secret == "" {
		return nil, errors.New("server: auth secret is not configured")
	}

	s := &Server{c: c}

	s.reg = prometheus.NewRegistry()
	s.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.eb = event.NewBus(event.WithMetrics(telemetry.NewEventMetrics(s.reg)))

	if err := s.initInfra(); err != nil {
		s.Close()
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		s.Close()
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	lc := s.c.Redis.Leaderboard
	if len(lc.Addrs) == 0 {
		slog.Info("server: no leaderboard redis configured, rankings are not cached")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    lc.Addrs,
		Password: lc.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.leaderboard = r
	return nil
}

func (s *Server) initPostgres() error {
	pc := s.c.Postgres
	if !pc.Enabled() {
		slog.Info("server: no postgres configured, sessions and stats are kept in memory")
		return nil
	}

	ctx := context.Background()

	if pc.Migrate {
		if _, err := postgres.Migrate(ctx, pc.DSN()); err != nil {
			return err
		}
	}

	db, err := postgres.Connect(ctx, pc.DSN())
	if err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initService() error {
	bank, err := questionbank.LoadFile(s.c.Catalog.Path)
	if err != nil {
		return err
	}
	s.service.bank = bank

	var (
		sessions  session.Store         = session.NewMemoryStore()
		aggregate stats.Store           = stats.NewMemoryStore()
		directory leaderboard.Directory = leaderboard.NewMemoryDirectory()
	)
	if db := s.infra.postgres; db != nil {
		sessions = session.NewPostgresStore(db)
		aggregate = stats.NewPostgresStore(db)
		directory = leaderboard.NewPostgresDirectory(db)
	}

	s.service.stats = stats.NewService(stats.Config{
		Store:    aggregate,
		EventBus: s.eb,
		Metrics:  telemetry.NewStatsMetrics(s.reg),
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus:  s.eb,
		Stats:     s.service.stats,
		Directory: directory,
		Redis:     s.infra.redis.leaderboard,
		Prefix:    s.c.Redis.Leaderboard.Prefix,
		TTL:       s.c.Redis.Leaderboard.TTL,
		Metrics:   telemetry.NewLeaderboardMetrics(s.reg),
	})

	s.service.session = session.NewService(session.Config{
		Store:   sessions,
		Bank:    bank,
		Stats:   s.service.stats,
		Metrics: telemetry.NewSessionMetrics(s.reg),
		Limits: session.Limits{
			MinQuestions:     s.c.Game.MinQuestions,
			MaxQuestions:     s.c.Game.MaxQuestions,
			DefaultQuestions: s.c.Game.DefaultQuestions,
			MaxTimeSpent:     s.c.Game.MaxTimeSpent,
		},
	})

	s.service.sweeper = sweep.New(sweep.Config{Sessions: s.service.session})

	s.verifier = auth.NewVerifier(s.c.Auth.Secret)
	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.Use(gin.Recovery(), telemetry.GinLogger())
	e.GET("/healthz", s.healthz)
	e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg})))
	pprof.Register(e, "/debug/pprof")

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor(telemetry.NewGRPCMetrics(s.reg), s.verifier.UnaryServerInterceptor()))

	a := api.New(api.Config{
		Bank:        s.service.bank,
		Session:     s.service.session,
		Stats:       s.service.stats,
		Leaderboard: s.service.leaderboard,
		Verifier:    s.verifier,
	})
	a.RegisterHTTP(e)
	a.RegisterGRPC(s.grpc)

	s.handler = e
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if db := s.infra.postgres; db != nil {
		checks["postgres"] = "ok"
		if err := db.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		}
	}

	// Redis only caches, an outage degrades the leaderboard but is not fatal.
	if r := s.infra.redis.leaderboard; r != nil {
		checks["redis"] = "ok"
		if err := r.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"healthy": healthy, "checks": checks})
}

// Handler is the HTTP handler of the server, for in-process use.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Sweep abandons sessions idle for longer than idle, the configured idle time when zero.
func (s *Server) Sweep(ctx context.Context, idle time.Duration) (sweep.Result, error) {
	if idle <= 0 {
		idle = s.c.Sweep.Idle
	}
	return s.service.sweeper.Run(ctx, idle)
}

// Reconcile folds completed sessions whose stats failed to record.
func (s *Server) Reconcile(ctx context.Context) (int, error) {
	return s.service.sweeper.Reconcile(ctx, s.c.Sweep.Grace)
}

// Start serves gRPC and HTTP until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		return fmt.Errorf("grpc server: listen: %w", err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if every := s.c.Sweep.Interval; every > 0 {
		eg.Go(func() error {
			s.sweepEvery(ctx, every)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
		return err
	}
	return nil
}

func (s *Server) sweepEvery(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res, err := s.Sweep(ctx, 0)
			if err != nil {
				slog.ErrorContext(ctx, "server: sweep failed", "error", err)
				continue
			}
			if res.Abandoned > 0 || res.Skipped > 0 {
				slog.InfoContext(ctx, "server: sweep done", "abandoned", res.Abandoned, "skipped", res.Skipped)
			}

			if _, err := s.Reconcile(ctx); err != nil {
				slog.ErrorContext(ctx, "server: reconcile failed", "error", err)
			}
		}
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.Close()

	slog.InfoContext(ctx, "server: shutdown completed")
}

// Close releases the event bus and the connections. Shutdown calls it.
func (s *Server) Close() {
	if s.eb != nil {
		s.eb.Stop()
	}
	if r := s.infra.redis.leaderboard; r != nil {
		if err := r.Close(); err != nil {
			slog.Error("server: close redis failed", "error", err)
		}
	}
	if db := s.infra.postgres; db != nil {
		db.Close()
	}
}
