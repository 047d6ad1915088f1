// AngelaMos | 2026
// dial.go

package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const dialMaxInterval = 5 * time.Second

func pingWithin(ctx context.Context, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return ping(ctx)
}

func permanent(err error) error {
	return backoff.Permanent(err)
}

// dialWithRetry runs connect with exponential backoff until it succeeds,
// returns a permanent error, or timeout elapses. A zero timeout means a
// single attempt.
func dialWithRetry(
	ctx context.Context,
	name string,
	timeout time.Duration,
	logger *slog.Logger,
	connect func(context.Context) error,
) error {
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if timeout > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.MaxInterval = dialMaxInterval
		exp.MaxElapsedTime = timeout
		policy = exp
	}

	return backoff.RetryNotify(
		func() error { return connect(ctx) },
		backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			if logger != nil {
				logger.Warn("waiting for dependency",
					"dependency", name,
					"retry_in", wait,
					"error", err,
				)
			}
		},
	)
}
