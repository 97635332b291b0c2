package stats

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
)

const codeUniqueViolation = "23505"

// PostgresStore applies completions as in-place increments, so two sessions of
// the same user completing together never lose an update.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Record(ctx context.Context, c domain.Completion) (err error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		insLedgerStmt = `INSERT INTO aggregated_sessions (session_id, user_id, aggregated_at) VALUES ($1, $2, $3);`

		upsertUserStmt = `
INSERT INTO user_trivia_stats (user_id, total_games, total_correct, total_answered, total_points, best_streak, updated_at)
VALUES ($1, 1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
	total_games    = user_trivia_stats.total_games + 1,
	total_correct  = user_trivia_stats.total_correct + EXCLUDED.total_correct,
	total_answered = user_trivia_stats.total_answered + EXCLUDED.total_answered,
	total_points   = user_trivia_stats.total_points + EXCLUDED.total_points,
	best_streak    = GREATEST(user_trivia_stats.best_streak, EXCLUDED.best_streak),
	updated_at     = EXCLUDED.updated_at;`

		upsertCategoryStmt = `
INSERT INTO user_category_stats (user_id, category, played, correct, answered, points)
VALUES ($1, $2, 1, $3, $4, $5)
ON CONFLICT (user_id, category) DO UPDATE SET
	played   = user_category_stats.played + 1,
	correct  = user_category_stats.correct + EXCLUDED.correct,
	answered = user_category_stats.answered + EXCLUDED.answered,
	points   = user_category_stats.points + EXCLUDED.points;`
	)

	_, err = tx.Exec(ctx, insLedgerStmt, c.SessionID, c.UserID, c.At)
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return domain.ErrDuplicateAggregation.With(errors.WithCause(err))
	}
	if err != nil {
		return fmt.Errorf("insert aggregation: %w", err)
	}

	if _, err = tx.Exec(ctx, upsertUserStmt, c.UserID, c.Correct, c.Answered, c.Points, c.Streak, c.At); err != nil {
		return fmt.Errorf("upsert user stats: %w", err)
	}

	if _, err = tx.Exec(ctx, upsertCategoryStmt, c.UserID, c.Category.Key(), c.Correct, c.Answered, c.Points); err != nil {
		return fmt.Errorf("upsert category stats: %w", err)
	}

	return tx.Commit(ctx)
}

func (p *PostgresStore) Get(ctx context.Context, userID string) (domain.UserStats, error) {
	const stmt = `
SELECT user_id, total_games, total_correct, total_answered, total_points, best_streak, updated_at
FROM user_trivia_stats
WHERE user_id = $1;`

	u := domain.UserStats{UserID: userID, Categories: map[domain.Category]domain.CategoryStats{}}
	err := p.db.QueryRow(ctx, stmt, userID).Scan(
		&u.UserID, &u.TotalGames, &u.TotalCorrect, &u.TotalAnswered, &u.TotalPoints, &u.BestStreak, &u.UpdatedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return u, nil
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("get user stats: %w", err)
	}

	byUser := map[string]*domain.UserStats{userID: &u}
	if err := p.loadCategories(ctx, byUser, `WHERE user_id = $1`, userID); err != nil {
		return domain.UserStats{}, err
	}

	return u, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]domain.UserStats, error) {
	const stmt = `
SELECT user_id, total_games, total_correct, total_answered, total_points, best_streak, updated_at
FROM user_trivia_stats
ORDER BY user_id;`

	rows, err := p.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list user stats: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.UserStats, error) {
		u := domain.UserStats{Categories: map[domain.Category]domain.CategoryStats{}}
		err := r.Scan(&u.UserID, &u.TotalGames, &u.TotalCorrect, &u.TotalAnswered, &u.TotalPoints, &u.BestStreak, &u.UpdatedAt)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("list user stats: %w", err)
	}

	byUser := make(map[string]*domain.UserStats, len(users))
	for i := range users {
		byUser[users[i].UserID] = &users[i]
	}
	if err := p.loadCategories(ctx, byUser, ``); err != nil {
		return nil, err
	}

	return users, nil
}

func (p *PostgresStore) loadCategories(ctx context.Context, byUser map[string]*domain.UserStats, where string, args ...any) error {
	stmt := `SELECT user_id, category, played, correct, answered, points FROM user_category_stats ` + where + `;`

	rows, err := p.db.Query(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("list category stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID, key string
			cs          domain.CategoryStats
		)
		if err := rows.Scan(&userID, &key, &cs.Played, &cs.Correct, &cs.Answered, &cs.Points); err != nil {
			return fmt.Errorf("scan category stats: %w", err)
		}

		category, err := domain.ParseCategory(key)
		if err != nil {
			return fmt.Errorf("category stats of %s: %w", userID, err)
		}

		if u, ok := byUser[userID]; ok {
			u.Categories[category] = cs
		}
	}

	return rows.Err()
}
