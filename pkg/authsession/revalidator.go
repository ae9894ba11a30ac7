package authsession

import (
	"context"
	"sync"
	"time"
)

// DefaultRevalidateInterval is how often a signed-in session re-checks
// the stored credential's expiry.
const DefaultRevalidateInterval = time.Minute

// Revalidator runs a check on a fixed interval while it is started.
//
// Start and Stop are idempotent. Stop is synchronous: once it returns the
// ticker is stopped and no further check begins, although a check already
// running is allowed to finish. Stop never waits for that check, so it is
// safe to call from inside one.
type Revalidator struct {
	interval time.Duration
	clock    Clock
	check    func(ctx context.Context)

	mu      sync.Mutex
	ticker  Ticker
	done    chan struct{}
	cancel  context.CancelFunc
	started int
}

// NewRevalidator creates a stopped revalidator.
func NewRevalidator(interval time.Duration, clock Clock, check func(ctx context.Context)) *Revalidator {
	if interval <= 0 {
		interval = DefaultRevalidateInterval
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Revalidator{interval: interval, clock: clock, check: check}
}

// Start begins ticking. It is a no-op while already running.
func (r *Revalidator) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ticker != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.ticker = r.clock.NewTicker(r.interval)
	r.done = make(chan struct{})
	r.cancel = cancel
	r.started++

	go r.loop(ctx, r.ticker, r.done)
}

// Stop halts ticking. It is a no-op while stopped.
func (r *Revalidator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	close(r.done)
	r.cancel()
	r.ticker, r.done, r.cancel = nil, nil, nil
}

// Running reports whether the revalidator is started.
func (r *Revalidator) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticker != nil
}

// Starts returns how many times a ticker has been created.
func (r *Revalidator) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

func (r *Revalidator) loop(ctx context.Context, t Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-t.C():
			// A tick and Stop may be ready together; Stop wins.
			select {
			case <-done:
				return
			default:
			}
			r.check(ctx)
		}
	}
}
