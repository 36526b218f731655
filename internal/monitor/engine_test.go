// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package monitor

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/config"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replyFunc func(ctx context.Context, req chaincode.Request) (chaincode.Response, error)

// fakeBridge records requests and answers them with reply.
type fakeBridge struct {
	mu    sync.Mutex
	calls []chaincode.Request
	reply replyFunc
}

func (f *fakeBridge) Call(ctx context.Context, _ config.Connection, req chaincode.Request, _ *chaincode.Credentials) (chaincode.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	reply := f.reply
	f.mu.Unlock()
	return reply(ctx, req)
}

func (f *fakeBridge) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func body(s string) replyFunc {
	return func(context.Context, chaincode.Request) (chaincode.Response, error) {
		return chaincode.DecodeResponse([]byte(s))
	}
}

type notes struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notes) ShowMessage(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
}

func (n *notes) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func newEngine(t *testing.T, reply replyFunc, opts Options) (*Engine, *fakeBridge, *notes) {
	t.Helper()
	fb := &fakeBridge{reply: reply}
	n := &notes{}
	if opts.Notifier == nil {
		opts.Notifier = n
	}
	e := New(fb, config.NewStore(config.DefaultConnection()), opts)
	t.Cleanup(e.Close)
	return e, fb, n
}

func entries(t *testing.T, e *Engine) []Entry {
	t.Helper()
	out, err := e.Entries(context.Background())
	require.NoError(t, err)
	return out
}

func TestQueryThenRequeryUpdatesInPlace(t *testing.T) {
	var temp atomic.Int32
	temp.Store(5)
	e, _, _ := newEngine(t, func(context.Context, chaincode.Request) (chaincode.Response, error) {
		return chaincode.DecodeResponse([]byte(fmt.Sprintf(`{"result":{"assetID":"A1","temperature":%d}}`, temp.Load())))
	}, Options{})
	ctx := context.Background()
	args := chaincode.Args{"assetID": "A1"}

	first := e.Submit(ctx, args, "readAsset", chaincode.Query)
	require.NoError(t, first.Err)
	assert.True(t, first.Appended)
	assert.Equal(t, `{"result":{"assetID":"A1","temperature":5}}`, first.Entry.Payload)
	require.Len(t, entries(t, e), 1)

	temp.Store(9)
	second := e.Submit(ctx, args, "readAsset", chaincode.Query)
	require.NoError(t, second.Err)
	assert.True(t, second.Applied)
	assert.False(t, second.Appended)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)

	got := entries(t, e)
	require.Len(t, got, 1)
	assert.Equal(t, `{"result":{"assetID":"A1","temperature":9}}`, got[0].Payload)
	assert.Equal(t, chaincode.Args{"assetID": "A1"}, got[0].Args)
	assert.False(t, got[0].Polling)
	assert.False(t, got[0].Removable)
}

func TestEquivalentArgsShareOneEntry(t *testing.T) {
	e, _, _ := newEngine(t, body(`{"result":{}}`), Options{})
	ctx := context.Background()

	e.Submit(ctx, chaincode.Args{"assetID": "A1", "owner": map[string]any{"name": "x", "org": "y"}}, "readAsset", chaincode.Query)
	e.Submit(ctx, chaincode.Args{"owner": map[string]any{"org": "y", "name": "x"}, "assetID": "A1", "match": "n/a", "note": ""}, "readAsset", chaincode.Query)
	assert.Len(t, entries(t, e), 1)

	// a different function or kind is a different entry
	e.Submit(ctx, chaincode.Args{"assetID": "A1"}, "readAssetHistory", chaincode.Query)
	e.Submit(ctx, chaincode.Args{"assetID": "A2"}, "readAsset", chaincode.Query)
	assert.Len(t, entries(t, e), 3)
}

func TestMissingArgsAreAnEmptyObject(t *testing.T) {
	e, fb, _ := newEngine(t, body(`{"result":[]}`), Options{})
	ctx := context.Background()

	e.Submit(ctx, nil, "readAll", chaincode.Query)
	e.Submit(ctx, chaincode.Args{}, "readAll", chaincode.Query)
	e.Submit(ctx, chaincode.Args{"owner": ""}, "readAll", chaincode.Query)

	require.Equal(t, 3, fb.count())
	for _, c := range fb.calls {
		assert.Equal(t, []string{"{}"}, c.Params.CtorMsg.Args)
	}
	got := entries(t, e)
	require.Len(t, got, 1)
	assert.Equal(t, chaincode.Args{}, got[0].Args)

	_, err := e.TogglePolling(ctx, ByIndex(0))
	require.NoError(t, err)
	assert.Equal(t, []string{"{}"}, fb.calls[3].Params.CtorMsg.Args)
}

func TestSnapshotsDoNotShareArgs(t *testing.T) {
	e, fb, _ := newEngine(t, body(`{"result":{}}`), Options{})
	ctx := context.Background()
	events, cancel, err := e.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	added := e.Submit(ctx, chaincode.Args{"assetID": "A1", "owner": map[string]any{"org": "y"}}, "readAsset", chaincode.Query)
	require.NoError(t, added.Err)
	added.Entry.Args["assetID"] = "A2"

	ev := <-events
	ev.Entry.Args["assetID"] = "A3"
	ev.Entries[0].Args["owner"].(map[string]any)["org"] = "z"

	snap := entries(t, e)
	snap[0].Args["assetID"] = "A4"

	got := entries(t, e)
	require.Len(t, got, 1)
	assert.Equal(t, chaincode.Args{"assetID": "A1", "owner": map[string]any{"org": "y"}}, got[0].Args)

	_, err = e.TogglePolling(ctx, ByIndex(0))
	require.NoError(t, err)
	assert.Equal(t, []string{`{"assetID":"A1","owner":{"org":"y"}}`}, fb.calls[1].Params.CtorMsg.Args)
	assert.Len(t, entries(t, e), 1)
}

// connRecorder parks each call until release and records the snapshot it got.
type connRecorder struct {
	started chan config.Connection
	release chan struct{}
}

func (c *connRecorder) Call(_ context.Context, conn config.Connection, _ chaincode.Request, creds *chaincode.Credentials) (chaincode.Response, error) {
	c.started <- conn
	<-c.release
	return chaincode.DecodeResponse([]byte(`{"result":{"secret":"` + creds.Secret + `"}}`))
}

func TestInFlightSubmitKeepsItsConnection(t *testing.T) {
	store := config.NewStore(config.DefaultConnection())
	tr := &connRecorder{started: make(chan config.Connection, 1), release: make(chan struct{})}
	e := New(tr, store, Options{})
	t.Cleanup(e.Close)

	done := make(chan Outcome, 1)
	go func() {
		done <- e.Submit(context.Background(), chaincode.Args{"assetID": "A1"}, "readAsset", chaincode.Query)
	}()
	before := <-tr.started

	next := store.Read()
	next.ChaincodeID = "fleet"
	next.Secret = "rotated"
	require.NoError(t, store.Replace(next))
	close(tr.release)

	out := <-done
	require.NoError(t, out.Err)
	assert.Equal(t, "simple_contract", before.ChaincodeID)
	assert.Equal(t, "secret", before.Secret)
	assert.Equal(t, `{"result":{"secret":"secret"}}`, out.Payload)

	go func() {
		done <- e.Submit(context.Background(), chaincode.Args{"assetID": "A1"}, "readAsset", chaincode.Query)
	}()
	after := <-tr.started
	assert.Equal(t, "fleet", after.ChaincodeID)
	<-done
}

func TestInvokeNeverMutates(t *testing.T) {
	e, fb, _ := newEngine(t, body(`{"result":{"status":"OK"}}`), Options{})
	out := e.Submit(context.Background(), chaincode.Args{"assetID": "A1", "match": "all"}, "createAsset", chaincode.Invoke)
	require.NoError(t, out.Err)
	assert.False(t, out.Applied)
	assert.Equal(t, `{"result":{"status":"OK"}}`, out.Payload)
	assert.Empty(t, entries(t, e))
	require.Equal(t, 1, fb.count())
	assert.Equal(t, "invoke", fb.calls[0].Method)
	assert.Equal(t, []string{`{"assetID":"A1"}`}, fb.calls[0].Params.CtorMsg.Args)
}

func TestFailuresNotifyWithoutMutation(t *testing.T) {
	tests := []struct {
		name  string
		reply replyFunc
		kind  cerrors.Kind
		want  string
	}{
		{
			name:  "application error message is verbatim",
			reply: body(`{"error":{"code":-32000,"data":"asset A1 does not exist"}}`),
			kind:  cerrors.KindApplication,
			want:  "asset A1 does not exist",
		},
		{
			name: "transport error is generic",
			reply: func(context.Context, chaincode.Request) (chaincode.Response, error) {
				return chaincode.Response{}, cerrors.New(cerrors.KindTransport, "bridge request failed")
			},
			kind: cerrors.KindTransport,
			want: "Failed to connect to localhost:3001",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, n := newEngine(t, tt.reply, Options{})
			out := e.Submit(context.Background(), chaincode.Args{"assetID": "A1"}, "readAsset", chaincode.Query)
			require.Error(t, out.Err)
			assert.Equal(t, tt.kind, cerrors.KindOf(out.Err))
			assert.False(t, out.Applied)
			assert.Empty(t, entries(t, e))
			assert.Equal(t, []string{tt.want}, n.all())
		})
	}
}

func TestTogglePolling(t *testing.T) {
	e, fb, _ := newEngine(t, body(`{"result":{"v":1}}`), Options{})
	ctx := context.Background()
	added := e.Submit(ctx, chaincode.Args{"assetID": "A1"}, "readAsset", chaincode.Query)
	require.Equal(t, 1, fb.count())

	ent, err := e.TogglePolling(ctx, ByIndex(0))
	require.NoError(t, err)
	assert.True(t, ent.Polling)
	assert.Equal(t, 2, fb.count(), "enabling polls once immediately")
	assert.Equal(t, fb.calls[0], fb.calls[1])

	ent, err = e.TogglePolling(ctx, ByID(added.Entry.ID))
	require.NoError(t, err)
	assert.False(t, ent.Polling)
	assert.Equal(t, 2, fb.count(), "disabling sends nothing")

	_, err = e.TogglePolling(ctx, ByIndex(3))
	assert.True(t, cerrors.Is(err, cerrors.KindIndex))
	_, err = e.TogglePolling(ctx, ByID("missing"))
	assert.True(t, cerrors.Is(err, cerrors.KindIndex))
}

func TestRemoveShiftsLaterEntries(t *testing.T) {
	e, _, _ := newEngine(t, body(`{"result":{}}`), Options{})
	ctx := context.Background()
	for _, id := range []string{"A1", "A2", "A3"} {
		e.Submit(ctx, chaincode.Args{"assetID": id}, "readAsset", chaincode.Query)
	}

	gone, err := e.Remove(ctx, ByIndex(1))
	require.NoError(t, err)
	assert.Equal(t, chaincode.Args{"assetID": "A2"}, gone.Args)

	got := entries(t, e)
	require.Len(t, got, 2)
	assert.Equal(t, chaincode.Args{"assetID": "A1"}, got[0].Args)
	assert.Equal(t, chaincode.Args{"assetID": "A3"}, got[1].Args)

	_, err = e.Remove(ctx, ByIndex(2))
	assert.True(t, cerrors.Is(err, cerrors.KindIndex))
	_, err = e.Remove(ctx, ByIndex(-1))
	assert.True(t, cerrors.Is(err, cerrors.KindIndex))
}

func TestSetRemovableAndClearAll(t *testing.T) {
	e, _, _ := newEngine(t, body(`{"result":{}}`), Options{})
	ctx := context.Background()
	e.Submit(ctx, chaincode.Args{"assetID": "A1"}, "readAsset", chaincode.Query)
	e.Submit(ctx, chaincode.Args{"assetID": "A2"}, "readAsset", chaincode.Query)

	ent, err := e.SetRemovable(ctx, ByIndex(1), true)
	require.NoError(t, err)
	assert.True(t, ent.Removable)
	assert.True(t, entries(t, e)[1].Removable)

	// a later payload update keeps the flags
	e.Submit(ctx, chaincode.Args{"assetID": "A2"}, "readAsset", chaincode.Query)
	assert.True(t, entries(t, e)[1].Removable)

	_, err = e.SetRemovable(ctx, ByIndex(5), true)
	assert.True(t, cerrors.Is(err, cerrors.KindIndex))

	n, err := e.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, entries(t, e))
}

func TestPollTickSubmitsPollingEntriesIndependently(t *testing.T) {
	var failA1 atomic.Bool
	e, fb, n := newEngine(t, func(_ context.Context, req chaincode.Request) (chaincode.Response, error) {
		if failA1.Load() && req.Params.CtorMsg.Args[0] == `{"assetID":"A1"}` {
			return chaincode.DecodeResponse([]byte(`{"error":{"data":"boom"}}`))
		}
		return chaincode.DecodeResponse([]byte(`{"result":{}}`))
	}, Options{})
	ctx := context.Background()

	for _, id := range []string{"A1", "A2", "A3"} {
		e.Submit(ctx, chaincode.Args{"assetID": id}, "readAsset", chaincode.Query)
	}
	_, err := e.TogglePolling(ctx, ByIndex(0))
	require.NoError(t, err)
	_, err = e.TogglePolling(ctx, ByIndex(2))
	require.NoError(t, err)
	before := fb.count()

	<-e.PollTick(ctx)
	assert.Equal(t, before+2, fb.count())

	// a failing polled entry does not stop the others and stays enabled
	failA1.Store(true)
	before = fb.count()
	<-e.PollTick(ctx)
	assert.Equal(t, before+2, fb.count())
	assert.Equal(t, []string{"boom"}, n.all())
	got := entries(t, e)
	require.Len(t, got, 3)
	assert.True(t, got[0].Polling)
	assert.False(t, got[1].Polling)
	assert.True(t, got[2].Polling)
}

func TestConcurrentSubmitsConverge(t *testing.T) {
	e, _, _ := newEngine(t, body(`{"result":{"ok":true}}`), Options{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Submit(context.Background(), chaincode.Args{"assetID": "A1"}, "readAsset", chaincode.Query)
		}()
	}
	wg.Wait()
	assert.Len(t, entries(t, e), 1)
}

// blockingReply lets the first request through and parks the rest until
// release is closed or their context ends.
func blockingReply(started chan<- struct{}, release <-chan struct{}) replyFunc {
	var n atomic.Int32
	return func(ctx context.Context, _ chaincode.Request) (chaincode.Response, error) {
		if n.Add(1) > 1 {
			started <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
				return chaincode.Response{}, cerrors.Wrap(cerrors.KindTransport, "request cancelled", ctx.Err())
			}
		}
		return chaincode.DecodeResponse([]byte(`{"result":{"late":true}}`))
	}
}

func TestStaleResponseAfterRemove(t *testing.T) {
	tests := []struct {
		name   string
		cancel bool
		want   int
	}{
		{name: "default reinserts", cancel: false, want: 1},
		{name: "cancel in flight discards", cancel: true, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			started := make(chan struct{}, 1)
			release := make(chan struct{})
			e, _, n := newEngine(t, blockingReply(started, release), Options{CancelInFlight: tt.cancel})
			ctx := context.Background()

			added := e.Submit(ctx, chaincode.Args{"assetID": "A1"}, "readAsset", chaincode.Query)
			require.NoError(t, added.Err)

			toggled := make(chan struct{})
			go func() {
				defer close(toggled)
				_, _ = e.TogglePolling(ctx, ByIndex(0))
			}()
			<-started
			_, err := e.Remove(ctx, ByIndex(0))
			require.NoError(t, err)
			close(release)
			<-toggled

			got := entries(t, e)
			require.Len(t, got, tt.want)
			if tt.want == 1 {
				assert.NotEqual(t, added.Entry.ID, got[0].ID)
				assert.False(t, got[0].Polling)
				assert.Equal(t, `{"result":{"late":true}}`, got[0].Payload)
			}
			assert.Empty(t, n.all())
		})
	}
}

func TestLaggingSubscriberIsWarned(t *testing.T) {
	var logs bytes.Buffer
	e, _, _ := newEngine(t, body(`{"result":{}}`), Options{EventBuffer: 1, Logger: logging.New("warn", &logs)})
	ctx := context.Background()
	_, cancel, err := e.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	e.Submit(ctx, chaincode.Args{"assetID": "A1"}, "readAsset", chaincode.Query)
	e.Submit(ctx, chaincode.Args{"assetID": "A2"}, "readAsset", chaincode.Query)
	entries(t, e)
	assert.Contains(t, logs.String(), "event dropped")
}

func TestSubscribeReceivesEvents(t *testing.T) {
	e, _, _ := newEngine(t, body(`{"result":{}}`), Options{})
	ctx := context.Background()
	events, cancel, err := e.Subscribe(ctx)
	require.NoError(t, err)

	e.Submit(ctx, chaincode.Args{"assetID": "A1"}, "readAsset", chaincode.Query)
	e.Submit(ctx, chaincode.Args{"assetID": "A1"}, "readAsset", chaincode.Query)
	_, err = e.Remove(ctx, ByIndex(0))
	require.NoError(t, err)

	var types []EventType
	for i := 0; i < 3; i++ {
		ev := <-events
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{EventEntryAdded, EventEntryUpdated, EventEntryRemoved}, types)

	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestClosedEngine(t *testing.T) {
	e, _, _ := newEngine(t, body(`{"result":{}}`), Options{})
	events, _, err := e.Subscribe(context.Background())
	require.NoError(t, err)
	e.Close()

	_, open := <-events
	assert.False(t, open)
	out := e.Submit(context.Background(), nil, "readAsset", chaincode.Query)
	assert.ErrorIs(t, out.Err, ErrClosed)
	_, err = e.Entries(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	<-e.PollTick(context.Background())
}

func TestParseRef(t *testing.T) {
	assert.Equal(t, ByIndex(2), ParseRef("2"))
	assert.Equal(t, ByID("5f0c"), ParseRef(" 5f0c "))
	assert.Equal(t, "index 2", ByIndex(2).String())
}

func TestTableRendersEntries(t *testing.T) {
	out := Table([]Entry{{ID: "0123456789", Function: "readAsset", Args: chaincode.Args{"assetID": "A1"}, Payload: `{"result":{}}`, Polling: true, UpdatedAt: time.Now()}})
	assert.Contains(t, out, "readAsset")
	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, `{"assetID":"A1"}`)
	assert.Contains(t, Table(nil), "No results yet")
}
