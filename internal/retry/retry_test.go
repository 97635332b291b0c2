package retry_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/retry"
)

var errTransient = stderrors.New("connection reset")

func TestDo(t *testing.T) {
	tests := map[string]struct {
		failures  int
		failWith  error
		opts      []retry.Option
		wantCalls int
		wantErr   error
	}{
		"success on first call": {
			wantCalls: 1,
		},
		"transient failures are retried": {
			failures:  2,
			failWith:  errTransient,
			wantCalls: 3,
		},
		"attempts are bounded": {
			failures:  10,
			failWith:  errTransient,
			opts:      []retry.Option{retry.WithAttempts(4)},
			wantCalls: 4,
			wantErr:   errTransient,
		},
		"domain errors are not retried": {
			failures:  10,
			failWith:  errors.New(errors.CodeAlreadyExists, errors.WithReason("DUP")),
			wantCalls: 1,
			wantErr:   errors.New(errors.CodeAlreadyExists, errors.WithReason("DUP")),
		},
		"custom classification wins": {
			failures:  10,
			failWith:  errTransient,
			opts:      []retry.Option{retry.WithRetryable(func(error) bool { return false })},
			wantCalls: 1,
			wantErr:   errTransient,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			opts := append([]retry.Option{retry.WithInterval(time.Millisecond, time.Millisecond)}, tt.opts...)
			err := retry.Do(context.Background(), func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return tt.failWith
				}
				return nil
			}, opts...)

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDo_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retry.Do(ctx, func(context.Context) error {
		calls++
		return errTransient
	}, retry.WithAttempts(5), retry.WithInterval(time.Millisecond, time.Millisecond))

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}
