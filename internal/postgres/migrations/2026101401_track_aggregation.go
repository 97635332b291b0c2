package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 2026101401_track_aggregation.sql
var trackAggregationSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, trackAggregationSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
DROP INDEX IF EXISTS game_sessions_unaggregated_idx;
ALTER TABLE game_sessions DROP COLUMN IF EXISTS aggregated_at;`)
			return err
		},
	)
}
