package retry

import (
	"context"
	"time"
)

// Policy configures exponential backoff retry behavior. The same policy type
// serves every retrying call site in the engine: structure extraction,
// embedding batches, and final-answer validation.
type Policy struct {
	MaxAttempts int           // Total attempts including the first
	BaseDelay   time.Duration // Initial delay between attempts
	MaxDelay    time.Duration // Ceiling for the backoff delay
	Multiplier  float64       // Exponential backoff multiplier
}

// Default returns sensible defaults for external API calls.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}
}

// Attempts returns a policy that retries up to n attempts with the default
// backoff curve.
func Attempts(n int) Policy {
	p := Default()
	p.MaxAttempts = n
	return p
}

// Do executes fn with exponential backoff. Retry is skipped on context
// cancellation; the context error wins over the last attempt's error.
func Do[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := p.BaseDelay

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * p.Multiplier)
				if p.MaxDelay > 0 && backoff > p.MaxDelay {
					backoff = p.MaxDelay
				}
			}
		}
	}

	return zero, lastErr
}
