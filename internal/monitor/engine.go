// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package monitor keeps the set of tracked chaincode query results.
//
// A single dispatcher goroutine owns the result set. Network calls run in the
// caller's goroutine and their responses are posted back to the dispatcher,
// which matches them against the set at response time: an entry with the same
// (function, kind, args) is updated in place, otherwise a new entry is
// appended. An entry removed while its request was in flight therefore
// reappears when the response lands, unless Options.CancelInFlight is set.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"ccmonitor/cli/internal/backend"
	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/config"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/httperrors"
	"ccmonitor/cli/internal/logging"

	"github.com/gofrs/uuid"
	"github.com/pterm/pterm"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("monitor: engine closed")

// ConfigSource yields the connection snapshot used by one submission.
// *config.Store implements it.
type ConfigSource interface {
	Read() config.Connection
}

// Options tune an Engine. Zero values select defaults.
type Options struct {
	// CancelInFlight cancels toggle and poll requests of an entry when it is
	// removed or its polling is disabled, and discards their responses.
	CancelInFlight bool
	Notifier       Notifier
	Metrics        Metrics
	Logger         *pterm.Logger
	Clock          func() time.Time
	NewID          func() string
	// EventBuffer is the channel size given to each subscriber.
	EventBuffer int
}

// Engine reconciles chaincode responses into an ordered result set.
type Engine struct {
	transport backend.Transport
	conf      ConfigSource
	opts      Options
	log       *pterm.Logger

	cmds    chan command
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// owned by the dispatcher goroutine
	entries []Entry
	flights map[string][]*flight
	subs    map[int]chan Event
	nextSub int
}

// flight is a cancellable submission tied to an entry. discarded is only
// touched by the dispatcher.
type flight struct {
	entryID   string
	ctx       context.Context
	cancel    context.CancelFunc
	discarded bool
}

// New starts an engine. Close must be called to stop its dispatcher.
func New(t backend.Transport, conf ConfigSource, opts Options) *Engine {
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(string) {})
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.Must(uuid.NewV4()).String() }
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	e := &Engine{
		transport: t,
		conf:      conf,
		opts:      opts,
		log:       opts.Logger,
		cmds:      make(chan command),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		flights:   make(map[string][]*flight),
		subs:      make(map[int]chan Event),
	}
	go e.run()
	return e
}

func (e *Engine) run() {
	defer close(e.stopped)
	for {
		select {
		case c := <-e.cmds:
			e.dispatch(c)
		case <-e.done:
			for id := range e.flights {
				e.cancelFlights(id)
			}
			for id, ch := range e.subs {
				delete(e.subs, id)
				close(ch)
			}
			return
		}
	}
}

// Close stops the dispatcher and closes all subscriber channels.
func (e *Engine) Close() {
	e.once.Do(func() { close(e.done) })
	<-e.stopped
}

func (e *Engine) send(ctx context.Context, c command) error {
	select {
	case e.cmds <- c:
		return nil
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit sanitizes args, calls the bridge with the current connection
// snapshot and reconciles the response. Failures are reported to the Notifier
// and returned in Outcome.Err; they never change the result set.
func (e *Engine) Submit(ctx context.Context, args chaincode.Args, fn string, kind chaincode.Kind) Outcome {
	return e.submit(ctx, args, fn, kind, nil)
}

func (e *Engine) submit(ctx context.Context, args chaincode.Args, fn string, kind chaincode.Kind, fl *flight) Outcome {
	// no arguments and an empty object are the same call
	if args == nil {
		args = chaincode.Args{}
	}
	clean := chaincode.Sanitize(args, kind)
	conn := e.conf.Read()
	req := chaincode.BuildRequest(fn, clean, kind, conn)

	e.opts.Metrics.Submitted(kind.String())
	start := time.Now()
	resp, err := e.transport.Call(ctx, conn, req, chaincode.CredentialsFrom(conn))
	e.opts.Metrics.Completed(kind.String(), resultLabel(err), time.Since(start))
	e.log.Debug("chaincode call", e.log.Args("function", fn, "kind", kind.String(), "result", resultLabel(err)))

	reply := make(chan Outcome, 1)
	c := submitResult{
		fn:      fn,
		kind:    kind,
		args:    clean,
		payload: resp.Payload,
		err:     err,
		host:    httperrors.ExtractHostFromURL(conn.BridgeURL),
		flight:  fl,
		reply:   reply,
	}
	// the response is reconciled even if ctx ended after the call returned
	if err := e.send(context.Background(), c); err != nil {
		return Outcome{Err: err}
	}
	return <-reply
}

// TogglePolling flips the polling flag of the selected entry. Enabling it
// issues exactly one immediate submission with the entry's stored call and
// returns the entry after that submission; disabling issues none.
func (e *Engine) TogglePolling(ctx context.Context, sel Selector) (Entry, error) {
	reply := make(chan toggleReply, 1)
	if err := e.send(ctx, togglePolling{ctx: ctx, sel: sel, reply: reply}); err != nil {
		return Entry{}, err
	}
	r := <-reply
	if r.err != nil || !r.enabled {
		return r.entry, r.err
	}
	sub := ctx
	if r.flight != nil {
		sub = r.flight.ctx
	}
	out := e.submit(sub, r.entry.Args, r.entry.Function, r.entry.Kind, r.flight)
	if out.Applied {
		return out.Entry, nil
	}
	return r.entry, nil
}

// PollTick resubmits every entry whose polling flag is set at tick time, each
// in its own goroutine. The returned channel closes when all of them finish.
func (e *Engine) PollTick(ctx context.Context) <-chan struct{} {
	finished := make(chan struct{})
	reply := make(chan []pollJob, 1)
	if err := e.send(ctx, pollTick{ctx: ctx, reply: reply}); err != nil {
		close(finished)
		return finished
	}
	jobs := <-reply

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j pollJob) {
			defer wg.Done()
			sub := ctx
			if j.flight != nil {
				sub = j.flight.ctx
			}
			e.submit(sub, j.entry.Args, j.entry.Function, j.entry.Kind, j.flight)
		}(j)
	}
	go func() {
		wg.Wait()
		close(finished)
	}()
	return finished
}

// Remove deletes the selected entry; later entries shift down by one.
func (e *Engine) Remove(ctx context.Context, sel Selector) (Entry, error) {
	reply := make(chan entryReply, 1)
	if err := e.send(ctx, remove{sel: sel, reply: reply}); err != nil {
		return Entry{}, err
	}
	r := <-reply
	return r.entry, r.err
}

// SetRemovable sets the removable flag of the selected entry.
func (e *Engine) SetRemovable(ctx context.Context, sel Selector, v bool) (Entry, error) {
	reply := make(chan entryReply, 1)
	if err := e.send(ctx, setRemovable{sel: sel, value: v, reply: reply}); err != nil {
		return Entry{}, err
	}
	r := <-reply
	return r.entry, r.err
}

// ClearAll empties the result set and returns how many entries it held.
func (e *Engine) ClearAll(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := e.send(ctx, clearAll{reply: reply}); err != nil {
		return 0, err
	}
	return <-reply, nil
}

// Entries returns a copy of the result set in insertion order.
func (e *Engine) Entries(ctx context.Context) ([]Entry, error) {
	reply := make(chan []Entry, 1)
	if err := e.send(ctx, snapshot{reply: reply}); err != nil {
		return nil, err
	}
	return <-reply, nil
}

// Subscribe registers for events. The channel is closed by cancel or when the
// engine closes. Events are dropped for a subscriber whose buffer is full.
func (e *Engine) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	ch := make(chan Event, e.opts.EventBuffer)
	reply := make(chan int, 1)
	if err := e.send(ctx, subscribe{ch: ch, reply: reply}); err != nil {
		return nil, nil, err
	}
	id := <-reply
	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = e.send(context.Background(), unsubscribe{id: id}) })
	}
	return ch, cancel, nil
}

func (e *Engine) publish(t EventType, index int, ent *Entry, msg string) {
	e.opts.Metrics.Entries(len(e.entries))
	if len(e.subs) == 0 {
		return
	}
	if ent != nil {
		c := ent.clone()
		ent = &c
	}
	ev := Event{Type: t, At: e.opts.Clock(), Index: index, Entry: ent, Message: msg, Entries: e.copyEntries()}
	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.log.Warn("subscriber lagging, event dropped", e.log.Args("subscriber", id, "type", string(t)))
		}
	}
}

func (e *Engine) notify(msg string) {
	e.opts.Notifier.ShowMessage(msg)
	e.publish(EventNotification, -1, nil, msg)
}

// copyEntries snapshots the set; holders may not reach the stored Args.
func (e *Engine) copyEntries() []Entry {
	out := make([]Entry, len(e.entries))
	for i := range e.entries {
		out[i] = e.entries[i].clone()
	}
	return out
}

func (e *Engine) startFlight(parent context.Context, entryID string) *flight {
	if !e.opts.CancelInFlight {
		return nil
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	f := &flight{entryID: entryID, ctx: ctx, cancel: cancel}
	e.flights[entryID] = append(e.flights[entryID], f)
	return f
}

func (e *Engine) finishFlight(f *flight) {
	f.cancel()
	list := e.flights[f.entryID]
	for i, g := range list {
		if g == f {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(e.flights, f.entryID)
	} else {
		e.flights[f.entryID] = list
	}
}

func (e *Engine) cancelFlights(entryID string) {
	for _, f := range e.flights[entryID] {
		f.discarded = true
		f.cancel()
	}
	delete(e.flights, entryID)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	if k := cerrors.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
