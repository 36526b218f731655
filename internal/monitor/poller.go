package monitor

import (
	"context"
	"sync"
	"time"

	"ccmonitor/cli/internal/config"
)

// Ticker is the target a Poller drives. *Engine implements it.
type Ticker interface {
	PollTick(ctx context.Context) <-chan struct{}
}

// Poller calls PollTick on a fixed interval. It is created once per session,
// Reset when the configured interval changes and stopped on teardown.
type Poller struct {
	target   Ticker
	interval time.Duration

	resets  chan time.Duration
	stop    chan struct{}
	done    chan struct{}
	started bool
	mu      sync.Mutex
	once    sync.Once
}

// NewPoller returns a stopped poller.
func NewPoller(target Ticker, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = config.DefaultConnection().PollingInterval
	}
	return &Poller{
		target:   target,
		interval: interval,
		resets:   make(chan time.Duration),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker goroutine. It runs until Stop or ctx ends.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	go p.loop(ctx, p.interval)
}

// Reset changes the interval of a running poller; on a stopped one it only
// records the value for Start.
func (p *Poller) Reset(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	started := p.started
	p.interval = d
	p.mu.Unlock()
	if !started {
		return
	}
	select {
	case p.resets <- d:
	case <-p.done:
	}
}

// Interval returns the interval most recently set.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Follow resets the poller whenever store installs a different polling interval.
func (p *Poller) Follow(store *config.Store) {
	store.OnReplace(func(prev, next config.Connection) {
		if prev.PollingInterval != next.PollingInterval {
			p.Reset(next.PollingInterval)
		}
	})
}

// Stop halts the ticker and waits for the goroutine to exit. Safe to call
// more than once and on a poller that never started.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		<-p.done
	}
}

func (p *Poller) loop(ctx context.Context, interval time.Duration) {
	defer close(p.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case d := <-p.resets:
			t.Reset(d)
		case <-t.C:
			p.target.PollTick(ctx)
		}
	}
}
