package emailchange

import (
	"context"
	"time"
)

// Janitor reaps expired, never-confirmed tokens. It is owned by the process
// lifecycle: one sweep at start, then one per interval until ctx is
// cancelled. Sweeps share the store's atomic conditional delete with in-flight
// confirms, so no extra locking is needed.
type Janitor struct {
	store    TokenStore
	interval time.Duration
	logger   Logger
}

// DefaultSweepInterval matches the confirmation TTL.
const DefaultSweepInterval = time.Hour

func NewJanitor(store TokenStore, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		store:    store,
		interval: interval,
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger used by the janitor.
func (j *Janitor) WithLogger(logger Logger) *Janitor {
	if logger != nil {
		j.logger = logger
	}
	return j
}

// Run blocks until ctx is cancelled. Call it from its own goroutine.
func (j *Janitor) Run(ctx context.Context) {
	j.Sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor shutting down")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass.
func (j *Janitor) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	n, err := j.store.PurgeExpired(ctx)
	if err != nil {
		j.logger.Error("janitor sweep failed: %v", err)
		return
	}

	metricPurgedTokens.Add(float64(n))
	if n > 0 {
		j.logger.Info("janitor purged %d expired email change tokens", n)
	}
}
