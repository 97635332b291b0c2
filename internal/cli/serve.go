package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/victornm/trivia/internal/server"
)

func newServeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and gRPC APIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, os.Interrupt)
			defer stop()

			return runServer(ctx, o.c)
		},
	}
}

func runServer(ctx context.Context, c server.Config) error {
	s, err := server.Init(c)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return s.Start(ctx)
}
