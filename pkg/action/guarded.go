package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ethpandaops/netops/pkg/config"
	"github.com/ethpandaops/netops/pkg/observability"
	"github.com/ethpandaops/netops/pkg/types"
)

// Guarded wraps an Executor with the device boundary policy: an optional
// rate limit shared by all actions, a per-attempt timeout, and bounded
// retries with exponential backoff. Unknown actions are never retried.
type Guarded struct {
	log     logrus.FieldLogger
	next    Executor
	cfg     config.ActionsConfig
	limiter *rate.Limiter
}

// NewGuarded creates a Guarded executor around next.
func NewGuarded(log logrus.FieldLogger, next Executor, cfg config.ActionsConfig) *Guarded {
	g := &Guarded{
		log:  log.WithField("component", "action_executor"),
		next: next,
		cfg:  cfg,
	}

	if cfg.RateLimit.Enabled {
		g.limiter = rate.NewLimiter(
			rate.Limit(cfg.RateLimit.GetRequestsPerSecond()),
			cfg.RateLimit.GetBurstSize(),
		)
	}

	return g
}

// Execute runs the named action, retrying transient failures.
func (g *Guarded) Execute(ctx context.Context, name types.ActionName, incident types.Incident) (types.ActionOutcome, error) {
	attempts := g.cfg.MaxRetries + 1

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := g.backoff(ctx, attempt-1); err != nil {
				return types.ActionOutcome{}, err
			}
		}

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return types.ActionOutcome{}, fmt.Errorf("waiting for action rate limit: %w", err)
			}
		}

		outcome, err := g.attempt(ctx, name, incident)
		if err == nil {
			observability.ActionCallsTotal.WithLabelValues(string(name), "success").Inc()

			return outcome, nil
		}

		if errors.Is(err, ErrUnknownAction) {
			observability.ActionCallsTotal.WithLabelValues(string(name), "unknown").Inc()

			return types.ActionOutcome{}, err
		}

		lastErr = err

		g.log.WithFields(logrus.Fields{
			"action":      name,
			"incident_id": incident.ID,
			"attempt":     attempt,
			"max":         attempts,
		}).WithError(err).Warn("Action attempt failed")
	}

	observability.ActionCallsTotal.WithLabelValues(string(name), "error").Inc()

	return types.ActionOutcome{}, fmt.Errorf("action %s failed after %d attempts: %w", name, attempts, lastErr)
}

func (g *Guarded) attempt(ctx context.Context, name types.ActionName, incident types.Incident) (types.ActionOutcome, error) {
	if g.cfg.Timeout <= 0 {
		return g.next.Execute(ctx, name, incident)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	return g.next.Execute(ctx, name, incident)
}

// maxBackoff caps the delay between retries.
const maxBackoff = 30 * time.Second

// backoffDelay returns base * 2^(retry-1), capped at maxBackoff.
func backoffDelay(base time.Duration, retry int) time.Duration {
	if base <= 0 {
		return 0
	}

	delay := min(base, maxBackoff)
	for i := 1; i < retry && delay < maxBackoff; i++ {
		delay = min(delay*2, maxBackoff)
	}

	return delay
}

// backoff sleeps for the retry's delay, returning early if ctx is done.
func (g *Guarded) backoff(ctx context.Context, retry int) error {
	delay := backoffDelay(g.cfg.Backoff, retry)
	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
