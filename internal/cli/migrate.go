package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victornm/trivia/internal/postgres"
)

func newMigrateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !o.c.Postgres.Enabled() {
				return errors.New("postgres address not configured")
			}

			applied, err := postgres.Migrate(cmd.Context(), o.c.Postgres.DSN())
			if err != nil {
				return err
			}

			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
			}
			return nil
		},
	}
}
