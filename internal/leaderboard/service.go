package leaderboard

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/telemetry"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100

	defaultCacheTTL = time.Minute
)

type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeRegional Scope = "regional"
)

var ErrInvalidScope = errors.New(errors.CodeInvalidArgument, errors.WithReason("INVALID_SCOPE"), errors.WithMessagef("invalid leaderboard scope"))

// ParseScope accepts global (also spelled national) and regional. Empty means global.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "global", "national":
		return ScopeGlobal, nil
	case "regional":
		return ScopeRegional, nil
	}
	return "", ErrInvalidScope.With(errors.WithMessagef("unknown leaderboard scope %q", s))
}

// StatsLister reads the aggregates to rank.
type StatsLister interface {
	List(ctx context.Context) ([]domain.UserStats, error)
}

type Config struct {
	EventBus  *event.Bus
	Stats     StatsLister
	Directory Directory
	// Redis caches rankings. Without it every call ranks from scratch.
	Redis   redis.UniversalClient
	Prefix  string
	TTL     time.Duration
	Metrics *telemetry.LeaderboardMetrics
}

type Service struct {
	stats     StatsLister
	directory Directory
	cache     *cache
	group     singleflight.Group
	metrics   *telemetry.LeaderboardMetrics
}

func NewService(c Config) *Service {
	s := &Service{
		stats:     c.Stats,
		directory: c.Directory,
		metrics:   c.Metrics,
	}

	if s.directory == nil {
		s.directory = NewMemoryDirectory()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewLeaderboardMetrics(nil)
	}

	if c.Redis != nil {
		ttl := c.TTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		s.cache = &cache{redis: c.Redis, prefix: c.Prefix, ttl: ttl}

		c.EventBus.Subscribe(domain.EventNameStatsUpdated, func(ctx context.Context, e event.Event) error {
			return s.Invalidate(ctx)
		})
	}

	return s
}

type RankRequest struct {
	// Category narrows the ranking to one category bucket. Nil ranks overall totals.
	Category *domain.Category
	Scope    Scope
	// Region is required by the regional scope.
	Region string
	// Limit is DefaultLimit when not positive and capped at MaxLimit.
	Limit int
}

type Leaderboard struct {
	Entries  []domain.LeaderboardEntry `json:"entries"`
	Category *domain.Category          `json:"category,omitempty"`
	Scope    Scope                     `json:"scope"`
	Region   string                    `json:"region,omitempty"`
}

// Rank orders users by points. Ties go to the earlier account, then to the lower
// user id, so identical data always yields the identical order.
func (s *Service) Rank(ctx context.Context, req RankRequest) (*Leaderboard, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	if s.cache == nil {
		return s.rank(ctx, req)
	}

	key, err := s.cache.key(ctx, req)
	if err != nil {
		s.metrics.Cache.WithLabelValues("error").Inc()
		return s.rank(ctx, req)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if l, ok := s.cache.get(ctx, key); ok {
			s.metrics.Cache.WithLabelValues("hit").Inc()
			return l, nil
		}
		s.metrics.Cache.WithLabelValues("miss").Inc()

		l, err := s.rank(ctx, req)
		if err != nil {
			return nil, err
		}
		s.cache.set(ctx, key, l)
		return l, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Leaderboard), nil
}

// Invalidate drops every cached ranking.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.bump(ctx)
}

func normalize(req RankRequest) (RankRequest, error) {
	if req.Scope == "" {
		req.Scope = ScopeGlobal
	}
	if req.Scope != ScopeGlobal && req.Scope != ScopeRegional {
		return req, ErrInvalidScope.With(errors.WithMessagef("unknown leaderboard scope %q", req.Scope))
	}

	req.Region = strings.TrimSpace(req.Region)
	if req.Scope == ScopeRegional && req.Region == "" {
		return req, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("regional leaderboard requires a region"))
	}
	if req.Scope == ScopeGlobal {
		req.Region = ""
	}

	if req.Category != nil && !req.Category.Valid() {
		return req, domain.ErrInvalidCategory
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	req.Limit = min(req.Limit, MaxLimit)

	return req, nil
}

type candidate struct {
	domain.LeaderboardEntry
	member *domain.Member
}

func (s *Service) rank(ctx context.Context, req RankRequest) (*Leaderboard, error) {
	all, err := s.stats.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}

	ids := make([]string, 0, len(all))
	for _, u := range all {
		ids = append(ids, u.UserID)
	}
	members, err := s.directory.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup members: %w", err)
	}

	cs := make([]candidate, 0, len(all))
	for _, u := range all {
		points, games, correct, answered := u.TotalPoints, u.TotalGames, u.TotalCorrect, u.TotalAnswered
		if req.Category != nil {
			b := u.Categories[*req.Category]
			points, games, correct, answered = b.Points, b.Played, b.Correct, b.Answered
		}
		if games == 0 {
			continue
		}

		c := candidate{LeaderboardEntry: domain.LeaderboardEntry{
			UserID:      u.UserID,
			TotalPoints: points,
			GamesPlayed: games,
			Accuracy:    domain.Accuracy(correct, answered),
		}}
		if m, ok := members[u.UserID]; ok {
			c.member = &m
		}

		if req.Scope == ScopeRegional && (c.member == nil || !strings.EqualFold(c.member.Region, req.Region)) {
			continue
		}
		cs = append(cs, c)
	}

	slices.SortFunc(cs, compare)

	if len(cs) > req.Limit {
		cs = cs[:req.Limit]
	}

	l := &Leaderboard{
		Entries:  make([]domain.LeaderboardEntry, 0, len(cs)),
		Category: req.Category,
		Scope:    req.Scope,
		Region:   req.Region,
	}
	for i, c := range cs {
		c.Rank = i + 1
		l.Entries = append(l.Entries, c.LeaderboardEntry)
	}

	return l, nil
}

// compare is a total order: points desc, account creation asc with unknown
// members last, user id asc.
func compare(a, b candidate) int {
	if a.TotalPoints != b.TotalPoints {
		return b.TotalPoints - a.TotalPoints
	}

	switch {
	case a.member != nil && b.member == nil:
		return -1
	case a.member == nil && b.member != nil:
		return 1
	case a.member != nil && b.member != nil:
		if c := a.member.CreatedAt.Compare(b.member.CreatedAt); c != 0 {
			return c
		}
	}

	return strings.Compare(a.UserID, b.UserID)
}
