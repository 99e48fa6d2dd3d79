package chain

import (
	"context"
	"time"

	"go.uber.org/zap"

	"yieldScope/internal/simerr"
)

const (
	defaultBackoff = 100 * time.Millisecond
	maxBackoff     = 10 * time.Second
)

// withRetry runs fn until it succeeds, fails with anything other than a
// network error, or c.retries extra attempts are spent. Delays double from
// c.backoff up to maxBackoff.
func (c *Client) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	retries := max(c.retries, 0)
	delay := c.backoff
	if delay <= 0 {
		delay = defaultBackoff
	}

	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= retries || !simerr.Retryable(err) {
			return err
		}
		c.logger.Warn("ledger call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxBackoff)
	}
}
