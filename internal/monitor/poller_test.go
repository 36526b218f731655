package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTicker struct{ n atomic.Int32 }

func (c *countingTicker) PollTick(context.Context) <-chan struct{} {
	c.n.Add(1)
	done := make(chan struct{})
	close(done)
	return done
}

func TestPollerTicksUntilStopped(t *testing.T) {
	ct := &countingTicker{}
	p := NewPoller(ct, 5*time.Millisecond)
	p.Start(context.Background())

	require.Eventually(t, func() bool { return ct.n.Load() >= 2 }, time.Second, time.Millisecond)
	p.Stop()
	after := ct.n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, ct.n.Load())

	// second stop and late reset are no-ops
	p.Stop()
	p.Reset(time.Millisecond)
}

func TestPollerResetFollowsStore(t *testing.T) {
	ct := &countingTicker{}
	store := config.NewStore(config.DefaultConnection())
	p := NewPoller(ct, time.Hour)
	p.Follow(store)
	p.Start(context.Background())
	defer p.Stop()

	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, ct.n.Load())

	next := store.Read()
	next.PollingInterval = 5 * time.Millisecond
	require.NoError(t, store.Replace(next))
	assert.Equal(t, 5*time.Millisecond, p.Interval())
	require.Eventually(t, func() bool { return ct.n.Load() >= 2 }, time.Second, time.Millisecond)
}

func TestPollerStopsWithContext(t *testing.T) {
	ct := &countingTicker{}
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(ct, time.Millisecond)
	p.Start(ctx)
	cancel()
	p.Stop()
}

func TestPollerDrivesEngine(t *testing.T) {
	e, fb, _ := newEngine(t, body(`{"result":{}}`), Options{})
	ctx := context.Background()
	e.Submit(ctx, nil, "readAllAssets", chaincode.Query)
	_, err := e.TogglePolling(ctx, ByIndex(0))
	require.NoError(t, err)

	p := NewPoller(e, 5*time.Millisecond)
	p.Start(ctx)
	defer p.Stop()
	require.Eventually(t, func() bool { return fb.count() >= 4 }, time.Second, time.Millisecond)
}
