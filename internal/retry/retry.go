package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/victornm/trivia/internal/errors"
)

const (
	defaultAttempts        = 3
	defaultInitialInterval = 20 * time.Millisecond
	defaultMaxInterval     = 500 * time.Millisecond
)

type config struct {
	attempts  int
	initial   time.Duration
	max       time.Duration
	retryable func(error) bool
}

type Option func(c *config)

// WithAttempts bounds the total number of calls, the first one included.
func WithAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithInterval sets the initial and maximum wait between two calls.
func WithInterval(initial, max time.Duration) Option {
	return func(c *config) {
		if initial > 0 {
			c.initial = initial
		}
		if max >= initial {
			c.max = max
		}
	}
}

// WithRetryable overrides which errors are worth another attempt.
func WithRetryable(f func(error) bool) Option {
	return func(c *config) {
		c.retryable = f
	}
}

// Do calls op until it succeeds, returns a permanent error, the attempts are used up
// or ctx is done. Domain errors are permanent unless WithRetryable says otherwise.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	c := config{
		attempts: defaultAttempts,
		initial:  defaultInitialInterval,
		max:      defaultMaxInterval,
		retryable: func(err error) bool {
			return !errors.IsDomain(err)
		},
	}
	for _, opt := range opts {
		opt(&c)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initial
	eb.MaxInterval = c.max
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.attempts-1)), ctx)

	return backoff.Retry(func() error {
		err := op(ctx)
		if err != nil && !c.retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
