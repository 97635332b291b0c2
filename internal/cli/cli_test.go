package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/auth"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))

	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("AUTH_SECRET", "cli-secret")

	out, err := run(t, "token", "--user", "u42")
	require.NoError(t, err)

	id, err := auth.NewVerifier("cli-secret").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u42", id)
}

func TestTokenCmd_ConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("auth:\n  secret: file-secret\n"), 0o600))

	out, err := run(t, "token", "--user", "u1", "--config", p)
	require.NoError(t, err)

	_, err = auth.NewVerifier("file-secret").Verify(strings.TrimSpace(out))
	assert.NoError(t, err)
}

func TestCommands_NeedConfiguration(t *testing.T) {
	tests := map[string][]string{
		"token without secret":     {"token", "--user", "u1"},
		"token without user":       {"token"},
		"migrate without postgres": {"migrate"},
		"sweep without postgres":   {"sweep"},
		"member without postgres":  {"member", "--user", "u1"},
	}

	for name, args := range tests {
		args := args
		t.Run(name, func(t *testing.T) {
			_, err := run(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
