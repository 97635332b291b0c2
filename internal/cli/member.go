package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/leaderboard"
	"github.com/victornm/trivia/internal/postgres"
)

func newMemberCmd(o *options) *cobra.Command {
	var m domain.Member

	cmd := &cobra.Command{
		Use:   "member",
		Short: "Register a member in the directory used by regional leaderboards",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !o.c.Postgres.Enabled() {
				return errors.New("postgres address not configured")
			}

			db, err := postgres.Connect(cmd.Context(), o.c.Postgres.DSN())
			if err != nil {
				return err
			}
			defer db.Close()

			if m.CreatedAt.IsZero() {
				m.CreatedAt = time.Now().UTC()
			}
			if err := leaderboard.NewPostgresDirectory(db).Upsert(cmd.Context(), m); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "member %s registered in %q\n", m.UserID, m.Region)
			return nil
		},
	}

	cmd.Flags().StringVar(&m.UserID, "user", "", "user id")
	cmd.Flags().StringVar(&m.Region, "region", "", "region of the member")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
