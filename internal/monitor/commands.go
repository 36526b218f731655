package monitor

import (
	"context"
	"fmt"

	"ccmonitor/cli/internal/chaincode"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/httperrors"
)

// command is a request processed by the dispatcher goroutine. Every variant
// is handled in dispatch; an unknown variant is a programming error.
type command interface{ isCommand() }

type submitResult struct {
	fn      string
	kind    chaincode.Kind
	args    chaincode.Args
	payload string
	err     error
	host    string
	flight  *flight
	reply   chan Outcome
}

type togglePolling struct {
	ctx   context.Context
	sel   Selector
	reply chan toggleReply
}

type toggleReply struct {
	entry   Entry
	enabled bool
	flight  *flight
	err     error
}

type setRemovable struct {
	sel   Selector
	value bool
	reply chan entryReply
}

type entryReply struct {
	entry Entry
	err   error
}

type remove struct {
	sel   Selector
	reply chan entryReply
}

type clearAll struct {
	reply chan int
}

type pollTick struct {
	ctx   context.Context
	reply chan []pollJob
}

type pollJob struct {
	entry  Entry
	flight *flight
}

type snapshot struct {
	reply chan []Entry
}

type subscribe struct {
	ch    chan Event
	reply chan int
}

type unsubscribe struct {
	id int
}

func (submitResult) isCommand()  {}
func (togglePolling) isCommand() {}
func (setRemovable) isCommand()  {}
func (remove) isCommand()        {}
func (clearAll) isCommand()      {}
func (pollTick) isCommand()      {}
func (snapshot) isCommand()      {}
func (subscribe) isCommand()     {}
func (unsubscribe) isCommand()   {}

func (e *Engine) dispatch(c command) {
	switch c := c.(type) {
	case submitResult:
		c.reply <- e.applyResult(c)
	case togglePolling:
		c.reply <- e.applyToggle(c)
	case setRemovable:
		c.reply <- e.applyRemovable(c)
	case remove:
		c.reply <- e.applyRemove(c)
	case clearAll:
		n := len(e.entries)
		for id := range e.flights {
			e.cancelFlights(id)
		}
		e.entries = nil
		e.publish(EventResultsCleared, -1, nil, "")
		c.reply <- n
	case pollTick:
		c.reply <- e.collectPolls(c.ctx)
	case snapshot:
		c.reply <- e.copyEntries()
	case subscribe:
		e.nextSub++
		e.subs[e.nextSub] = c.ch
		c.reply <- e.nextSub
	case unsubscribe:
		if ch, ok := e.subs[c.id]; ok {
			delete(e.subs, c.id)
			close(ch)
		}
	default:
		panic(fmt.Sprintf("monitor: unhandled command %T", c))
	}
}

func (e *Engine) applyResult(c submitResult) Outcome {
	if c.flight != nil {
		e.finishFlight(c.flight)
		if c.flight.discarded {
			e.log.Debug("discarding late response", e.log.Args("function", c.fn, "entry", c.flight.entryID))
			return Outcome{Discarded: true, Err: c.err}
		}
	}
	if c.err != nil {
		e.notify(failureMessage(c.err, c.host))
		return Outcome{Err: c.err}
	}
	if c.kind != chaincode.Query {
		return Outcome{Payload: c.payload}
	}

	key := chaincode.KeyOf(c.fn, c.args, c.kind)
	now := e.opts.Clock()
	for i := range e.entries {
		if e.entries[i].key != key {
			continue
		}
		e.entries[i].Payload = c.payload
		e.entries[i].UpdatedAt = now
		ent := e.entries[i].clone()
		e.publish(EventEntryUpdated, i, &ent, "")
		return Outcome{Entry: ent, Payload: c.payload, Applied: true}
	}

	ent := Entry{
		ID:        e.opts.NewID(),
		Args:      c.args,
		Function:  c.fn,
		Kind:      c.kind,
		Payload:   c.payload,
		UpdatedAt: now,
		key:       key,
	}
	e.entries = append(e.entries, ent)
	ent = ent.clone()
	e.publish(EventEntryAdded, len(e.entries)-1, &ent, "")
	return Outcome{Entry: ent, Payload: c.payload, Applied: true, Appended: true}
}

func (e *Engine) applyToggle(c togglePolling) toggleReply {
	i, ok := c.sel.resolve(e.entries)
	if !ok {
		return toggleReply{err: indexError(c.sel)}
	}
	ent := &e.entries[i]
	if ent.Polling {
		ent.Polling = false
		e.cancelFlights(ent.ID)
		snap := ent.clone()
		e.publish(EventPollingDisabled, i, &snap, "")
		return toggleReply{entry: snap}
	}
	ent.Polling = true
	snap := ent.clone()
	e.publish(EventPollingEnabled, i, &snap, "")
	return toggleReply{entry: snap, enabled: true, flight: e.startFlight(c.ctx, snap.ID)}
}

func (e *Engine) applyRemovable(c setRemovable) entryReply {
	i, ok := c.sel.resolve(e.entries)
	if !ok {
		return entryReply{err: indexError(c.sel)}
	}
	e.entries[i].Removable = c.value
	snap := e.entries[i].clone()
	e.publish(EventRemovableChanged, i, &snap, "")
	return entryReply{entry: snap}
}

func (e *Engine) applyRemove(c remove) entryReply {
	i, ok := c.sel.resolve(e.entries)
	if !ok {
		return entryReply{err: indexError(c.sel)}
	}
	gone := e.entries[i]
	e.cancelFlights(gone.ID)
	e.entries = append(e.entries[:i], e.entries[i+1:]...)
	e.publish(EventEntryRemoved, i, &gone, "")
	return entryReply{entry: gone}
}

func (e *Engine) collectPolls(ctx context.Context) []pollJob {
	var jobs []pollJob
	for _, ent := range e.entries {
		if ent.Polling {
			jobs = append(jobs, pollJob{entry: ent.clone(), flight: e.startFlight(ctx, ent.ID)})
		}
	}
	return jobs
}

func indexError(sel Selector) error {
	return cerrors.New(cerrors.KindIndex, "no result at "+sel.String())
}

// failureMessage is the operator-facing text for a failed submission.
func failureMessage(err error, host string) string {
	if cerrors.Is(err, cerrors.KindApplication) {
		return cerrors.MessageOf(err)
	}
	return httperrors.Describe(err, host)
}
