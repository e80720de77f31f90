package service

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out calls to the GitHub API between modules
type Pacer interface {
	// Wait blocks until the next module may be processed or ctx is done
	Wait(ctx context.Context) error
}

// DefaultModuleDelay is the pause between modules in a scrape job
const DefaultModuleDelay = time.Second

// NewFixedDelay returns a pacer admitting one call per delay. The first call
// never waits. A delay of zero or less disables pacing.
func NewFixedDelay(delay time.Duration) Pacer {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
