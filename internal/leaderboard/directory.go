package leaderboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/trivia/internal/domain"
)

// Directory resolves user ids to member records. Unknown ids are omitted from the result.
type Directory interface {
	Lookup(ctx context.Context, ids []string) (map[string]domain.Member, error)
}

type MemoryDirectory struct {
	mu      sync.RWMutex
	members map[string]domain.Member
}

func NewMemoryDirectory(members ...domain.Member) *MemoryDirectory {
	d := &MemoryDirectory{members: make(map[string]domain.Member, len(members))}
	for _, m := range members {
		d.members[m.UserID] = m
	}
	return d
}

func (d *MemoryDirectory) Put(m domain.Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[m.UserID] = m
}

func (d *MemoryDirectory) Lookup(_ context.Context, ids []string) (map[string]domain.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	res := make(map[string]domain.Member, len(ids))
	for _, id := range ids {
		if m, ok := d.members[id]; ok {
			res[id] = m
		}
	}
	return res, nil
}

// PostgresDirectory reads the members table maintained by the account system.
type PostgresDirectory struct {
	db *pgxpool.Pool
}

func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Lookup(ctx context.Context, ids []string) (map[string]domain.Member, error) {
	const stmt = `SELECT user_id, region, created_at FROM members WHERE user_id = ANY($1);`

	rows, err := d.db.Query(ctx, stmt, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup members: %w", err)
	}

	members, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Member])
	if err != nil {
		return nil, fmt.Errorf("lookup members: %w", err)
	}

	res := make(map[string]domain.Member, len(members))
	for _, m := range members {
		res[m.UserID] = m
	}
	return res, nil
}

// Upsert records a member.
func (d *PostgresDirectory) Upsert(ctx context.Context, m domain.Member) error {
	const stmt = `
INSERT INTO members (user_id, region, created_at) VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET region = EXCLUDED.region;`

	if _, err := d.db.Exec(ctx, stmt, m.UserID, m.Region, m.CreatedAt); err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}
