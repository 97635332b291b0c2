package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/trivia/internal/domain"
)

// PostgresStore keeps each session as a jsonb document next to the columns
// needed to query it. The version column carries the optimistic lock.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Insert(ctx context.Context, s *domain.Session) error {
	const stmt = `
INSERT INTO game_sessions (session_id, user_id, category, status, document, version, started_at, updated_at, completed_at)
VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8);`

	if _, err := p.db.Exec(ctx, stmt,
		s.SessionID, s.UserID, s.Category.Key(), s.Status, s, s.StartedAt, s.UpdatedAt, s.CompletedAt,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	s.Version = 1
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	const stmt = `SELECT document, version FROM game_sessions WHERE session_id = $1;`

	var (
		s       domain.Session
		version int64
	)
	err := p.db.QueryRow(ctx, stmt, id).Scan(&s, &version)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.Version = version
	return &s, nil
}

func (p *PostgresStore) Swap(ctx context.Context, s *domain.Session) error {
	const stmt = `
UPDATE game_sessions
SET document = $3, status = $4, updated_at = $5, completed_at = $6, aggregated_at = $7, version = version + 1
WHERE session_id = $1 AND version = $2;`

	tag, err := p.db.Exec(ctx, stmt, s.SessionID, s.Version, s, s.Status, s.UpdatedAt, s.CompletedAt, s.AggregatedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	s.Version++
	return nil
}

func (p *PostgresStore) ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Session, error) {
	const stmt = `
SELECT document, version
FROM game_sessions
WHERE status = 'active' AND updated_at < $1
ORDER BY updated_at, session_id
LIMIT $2;`

	sessions, err := p.list(ctx, stmt, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale sessions: %w", err)
	}
	return sessions, nil
}

func (p *PostgresStore) ListUnaggregated(ctx context.Context, before time.Time, limit int) ([]*domain.Session, error) {
	const stmt = `
SELECT document, version
FROM game_sessions
WHERE status = 'completed' AND aggregated_at IS NULL AND completed_at < $1
ORDER BY completed_at, session_id
LIMIT $2;`

	sessions, err := p.list(ctx, stmt, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list unaggregated sessions: %w", err)
	}
	return sessions, nil
}

func (p *PostgresStore) list(ctx context.Context, stmt string, before time.Time, limit int) ([]*domain.Session, error) {
	// LIMIT NULL lists every row
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := p.db.Query(ctx, stmt, before, lim)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (*domain.Session, error) {
		var s domain.Session
		if err := r.Scan(&s, &s.Version); err != nil {
			return nil, err
		}
		return &s, nil
	})
}
