package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff is the reconnect policy of a Supervisor. Delays start at
// Initial and double after each consecutive failure up to Max.
// MaxAttempts caps consecutive failed attempts; zero retries forever.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int
}

// DefaultBackoff retries forever, waiting 1s, 2s, 4s ... up to a minute.
var DefaultBackoff = Backoff{
	Initial: time.Second,
	Max:     60 * time.Second,
}

// policy builds the schedule of waits between failed attempts. It
// returns backoff.Stop once MaxAttempts attempts have failed.
func (b Backoff) policy() backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = b.Initial
	exponential.MaxInterval = b.Max
	exponential.Multiplier = 2
	exponential.RandomizationFactor = 0
	exponential.MaxElapsedTime = 0
	exponential.Reset()
	if b.MaxAttempts > 0 {
		return backoff.WithMaxRetries(exponential, uint64(b.MaxAttempts-1))
	}
	return exponential
}

// ConnectFunc makes one connection attempt.
type ConnectFunc func(ctx context.Context) (*Manager, error)

// Supervisor keeps a feed connected. Each attempt is an independent
// single-shot ConnectFunc; the Supervisor decides when to try again.
type Supervisor struct {
	Connect ConnectFunc
	Backoff Backoff
	Logger  *slog.Logger

	// OnConnect, if set, is called with each new Manager before it
	// starts reading. Use it to watch Status.
	OnConnect func(*Manager)
}

// Run connects and reconnects until ctx is done, a Manager is closed by
// its owner, or MaxAttempts consecutive attempts fail. A connection that
// delivered at least one frame is not a failed attempt: when it drops,
// the schedule starts over and the next attempt follows after Initial.
func (s *Supervisor) Run(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settings := s.Backoff
	if settings.Initial <= 0 {
		settings.Initial = DefaultBackoff.Initial
	}
	if settings.Max < settings.Initial {
		settings.Max = settings.Initial
	}
	policy := settings.policy()

	failures := 0
	for {
		manager, err := s.Connect(ctx)
		productive := false
		if err == nil {
			if s.OnConnect != nil {
				s.OnConnect(manager)
			}
			err = manager.Run(ctx)
			if err == nil || errors.Is(err, ErrClosed) {
				return nil
			}
			productive = manager.Stats().Received > 0
		}
		if ctx.Err() != nil {
			return nil
		}

		var delay time.Duration
		if productive {
			failures = 0
			policy.Reset()
			delay = settings.Initial
			logger.Warn("feed dropped, reconnecting", "retry_in", delay, "error", err)
		} else {
			failures++
			delay = policy.NextBackOff()
			if delay == backoff.Stop {
				return fmt.Errorf("feed unavailable after %d attempts: %w", failures, err)
			}
			logger.Warn("feed unavailable, retrying",
				"attempt", failures,
				"retry_in", delay,
				"error", err,
			)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
