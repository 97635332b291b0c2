package main

import (
	"log/slog"
	"os"

	"github.com/victornm/trivia/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("trivia: command failed", "error", err)
		os.Exit(1)
	}
}
