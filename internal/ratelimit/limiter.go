// Package ratelimit throttles outbound calls to a quota-constrained provider
// and retries the ones the provider rejects for throttling.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/audio-summarizer/internal/metrics"
	"github.com/codebuildervaibhav/audio-summarizer/internal/upstream"
)

// ErrRetriesExhausted is returned once every attempt was throttled.
var ErrRetriesExhausted = errors.New("rate limit retries exhausted")

// Budget is the per-minute allowance of one provider. Zero disables a limit.
type Budget struct {
	RPM int
	TPM int
}

// Limiter is shared by every job that talks to the same provider.
type Limiter struct {
	name     string
	interval time.Duration
	tpm      int
	window   time.Duration
	log      *logrus.Entry

	mu         sync.Mutex
	next       time.Time
	usedTokens int
}

// NewLimiter builds a limiter whose minimum spacing between calls is 60/RPM
// seconds.
func NewLimiter(name string, budget Budget, log *logrus.Entry) *Limiter {
	var interval time.Duration
	if budget.RPM > 0 {
		interval = time.Minute / time.Duration(budget.RPM)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Limiter{
		name:     name,
		interval: interval,
		tpm:      budget.TPM,
		window:   time.Minute,
		log:      log.WithField("limiter", name),
	}
}

// Name is the provider label used in logs and metrics.
func (l *Limiter) Name() string {
	return l.name
}

// Interval is the enforced spacing between two permitted calls.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Acquire blocks the caller until the next request slot. Slots are reserved
// under the lock and waited for outside it, so concurrent callers queue up
// one interval apart.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	slot := now
	if l.next.After(now) {
		slot = l.next
	}
	l.next = slot.Add(l.interval)
	l.mu.Unlock()

	wait := slot.Sub(now)
	metrics.RateLimitWait.WithLabelValues(l.name).Observe(wait.Seconds())
	return sleep(ctx, wait)
}

// RecordUsage adds tokens to the running total. When the total would exceed
// the per-minute budget the limiter pauses for a full window and starts over
// from zero; every other caller waits for the same window.
func (l *Limiter) RecordUsage(ctx context.Context, tokens int) error {
	if l.tpm <= 0 || tokens <= 0 {
		return nil
	}

	l.mu.Lock()
	l.usedTokens += tokens
	if l.usedTokens <= l.tpm {
		l.mu.Unlock()
		return nil
	}

	resume := time.Now().Add(l.window)
	if resume.After(l.next) {
		l.next = resume
	}
	l.usedTokens = 0
	l.mu.Unlock()

	l.log.WithField("tpm", l.tpm).Warn("token budget reached, pausing for a full window")
	return sleep(ctx, time.Until(resume))
}

// UsedTokens reports the running total in the current window.
func (l *Limiter) UsedTokens() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usedTokens
}

// CallWithRetry runs op after acquiring a request slot. Throttling and server
// errors are retried up to maxAttempts times in total, the delay doubling from
// initialDelay; any other error is returned immediately.
func (l *Limiter) CallWithRetry(ctx context.Context, maxAttempts int, initialDelay time.Duration, op func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = initialDelay << uint(maxAttempts)
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxAttempts-1)), ctx)

	attempts := 0
	operation := func() error {
		attempts++
		if err := l.Acquire(ctx); err != nil {
			return backoff.Permanent(err)
		}

		err := op(ctx)
		switch {
		case err == nil:
			metrics.UpstreamAttempts.WithLabelValues(l.name, "ok").Inc()
			return nil
		case upstream.IsRetryable(err):
			metrics.UpstreamAttempts.WithLabelValues(l.name, upstream.KindOf(err).String()).Inc()
			return err
		default:
			metrics.UpstreamAttempts.WithLabelValues(l.name, "error").Inc()
			return backoff.Permanent(err)
		}
	}

	notify := func(err error, delay time.Duration) {
		l.log.WithFields(logrus.Fields{
			"attempt": attempts,
			"delay":   delay.String(),
			"error":   err.Error(),
		}).Warn("upstream throttled, retrying")
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		return nil
	}
	if upstream.IsRetryable(err) && attempts >= maxAttempts {
		return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
	}
	return err
}

// EstimateTokens approximates token usage by word count.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
