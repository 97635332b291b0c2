package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/victornm/trivia/internal/config"
	"github.com/victornm/trivia/internal/server"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

type options struct {
	configPath string
	envFile    string

	c server.Config
}

func newRootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:           "trivia",
		Short:         "Timed, scored trivia sessions with stats and leaderboards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load()
		},
	}

	cmd.PersistentFlags().StringVar(&o.configPath, "config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&o.envFile, "env-file", ".env", "dotenv file exported before the config is read")

	cmd.AddCommand(newServeCmd(o))
	cmd.AddCommand(newMigrateCmd(o))
	cmd.AddCommand(newSweepCmd(o))
	cmd.AddCommand(newTokenCmd(o))
	cmd.AddCommand(newMemberCmd(o))
	return cmd
}

func (o *options) load() error {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return err
	}

	o.c = server.DefaultConfig()
	if err := config.Load(o.configPath, &o.c); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(o.c.Log.Level),
	})))
	return nil
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
