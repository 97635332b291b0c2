package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 2026100101_create_trivia.sql
var createTriviaSQL string

// Migrations holds the schema of the session, stats and member stores.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createTriviaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
DROP TABLE IF EXISTS members;
DROP TABLE IF EXISTS aggregated_sessions;
DROP TABLE IF EXISTS user_category_stats;
DROP TABLE IF EXISTS user_trivia_stats;
DROP TABLE IF EXISTS game_sessions;`)
			return err
		},
	)
}
