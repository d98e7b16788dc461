package notification

import (
	"context"
	"time"
)

// poller runs fetch once immediately and then on every tick until it
// is stopped. Ticks never overlap: a slow fetch delays the next one.
type poller struct {
	interval  time.Duration
	fetch     func(ctx context.Context)
	triggerCh chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// startPoller launches the polling goroutine.
func startPoller(interval time.Duration, fetch func(ctx context.Context)) *poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{
		interval:  interval,
		fetch:     fetch,
		triggerCh: make(chan struct{}, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go p.run(ctx)
	return p
}

func (p *poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.triggerCh:
		}
		// A tick and a stop can be ready together; stop wins.
		if ctx.Err() != nil {
			return
		}
		p.fetch(ctx)
	}
}

// trigger requests an immediate fetch without blocking. A trigger that
// arrives while one is already queued is dropped.
func (p *poller) trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// stop cancels the in-flight fetch and waits for the goroutine to exit.
// After stop returns, fetch is never called again.
func (p *poller) stop() {
	p.cancel()
	<-p.done
}
