package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/victornm/trivia/internal/server"
)

func newSweepCmd(o *options) *cobra.Command {
	var idle time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Abandon idle sessions and fold completed sessions missing from stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			// memory stores live in the serving process, there is nothing to sweep here
			if !o.c.Postgres.Enabled() {
				return errors.New("postgres address not configured")
			}

			s, err := server.Init(o.c)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.Sweep(cmd.Context(), idle)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "abandoned %d, skipped %d\n", res.Abandoned, res.Skipped)

			n, err := s.Reconcile(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "aggregated %d\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&idle, "idle", 0, "idle time after which a session is abandoned (default Sweep.Idle)")
	return cmd
}
