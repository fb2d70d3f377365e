package mcqbank

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// RetryPolicy bounds how hard a generator call is retried
type RetryPolicy struct {
	MaxAttempts int           // total attempts, default 3
	FlatDelay   time.Duration // wait after an ordinary failure, default 2s
	MaxBackoff  time.Duration // cap for rate-limit backoff, default 60s
}

// DefaultRetryPolicy matches the provider limits the pipeline was tuned on
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		FlatDelay:   2 * time.Second,
		MaxBackoff:  60 * time.Second,
	}
}

// Backoff returns the wait after the given failed attempt (1-based).
// Rate-limit failures back off exponentially, everything else waits flat.
func (p RetryPolicy) Backoff(attempt int, rateLimited bool) time.Duration {
	if !rateLimited {
		return p.FlatDelay
	}
	wait := p.MaxBackoff
	if attempt < 16 {
		if d := time.Duration(1<<attempt) * time.Second; d < wait {
			wait = d
		}
	}
	return wait
}

// RetryingGenerator retries failed calls according to a RetryPolicy
type RetryingGenerator struct {
	next   Generator
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryingGenerator wraps next. Zero policy fields take defaults.
func NewRetryingGenerator(next Generator, policy RetryPolicy) *RetryingGenerator {
	def := DefaultRetryPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.FlatDelay < 0 {
		policy.FlatDelay = def.FlatDelay
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = def.MaxBackoff
	}
	return &RetryingGenerator{next: next, policy: policy, sleep: sleepContext}
}

// Generate calls the wrapped generator until it succeeds or attempts run out
func (r *RetryingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		text, err := r.next.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		limited := isRateLimited(err)
		wait := r.policy.Backoff(attempt, limited)
		if limited {
			log.Printf("%s Rate limit hit, waiting %v before retry (attempt %d/%d)", markWarn, wait, attempt+1, r.policy.MaxAttempts)
		} else {
			log.Printf("%s LLM call failed: %v, retrying in %v (attempt %d/%d)", markWarn, err, wait, attempt+1, r.policy.MaxAttempts)
		}
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("giving up after %d attempts: %w", r.policy.MaxAttempts, lastErr)
}

// PacedGenerator keeps a minimum gap between consecutive calls so a
// sequential run stays under provider rate limits.
type PacedGenerator struct {
	next     Generator
	interval time.Duration

	mu    sync.Mutex
	last  time.Time
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacedGenerator wraps next with a minimum interval between calls
func NewPacedGenerator(next Generator, interval time.Duration) *PacedGenerator {
	return &PacedGenerator{
		next:     next,
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Generate waits out the remaining interval, then calls through
func (p *PacedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() && p.interval > 0 {
		if wait := p.interval - p.now().Sub(p.last); wait > 0 {
			if err := p.sleep(ctx, wait); err != nil {
				return "", err
			}
		}
	}

	text, err := p.next.Generate(ctx, prompt)
	p.last = p.now()
	return text, err
}

// sleepContext blocks for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
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
