package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/config"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/logging"
	"ccmonitor/cli/internal/monitor"
	"ccmonitor/cli/internal/schema"
)

const watchHelp = "q FN [ARGS] query · i FN [ARGS] invoke · p REF poll · r REF remove · k REF on|off removable · c clear · t MS interval · s schema · x quit"

type watchOp int

const (
	opQuery watchOp = iota + 1
	opInvoke
	opToggle
	opRemove
	opRemovable
	opClear
	opInterval
	opSchema
	opHelp
	opQuit
)

// watchAction is one parsed line of watch input.
type watchAction struct {
	op       watchOp
	fn       string
	args     chaincode.Args
	ref      monitor.Selector
	flag     bool
	interval time.Duration
}

var watchVerbs = map[string]watchOp{
	"q": opQuery, "query": opQuery,
	"i": opInvoke, "invoke": opInvoke,
	"p": opToggle, "poll": opToggle,
	"r": opRemove, "rm": opRemove, "remove": opRemove,
	"k": opRemovable, "removable": opRemovable,
	"c": opClear, "clear": opClear,
	"t": opInterval, "interval": opInterval,
	"s": opSchema, "schema": opSchema,
	"h": opHelp, "?": opHelp, "help": opHelp,
	"x": opQuit, "quit": opQuit, "exit": opQuit,
}

// parseWatchLine reads "VERB [OPERANDS]". Call arguments are the rest of the
// line after the function name, so JSON may contain spaces.
func parseWatchLine(line string) (watchAction, error) {
	verb, rest := cut(strings.TrimSpace(line))
	op, ok := watchVerbs[strings.ToLower(verb)]
	if !ok {
		return watchAction{}, cerrors.New(cerrors.KindConfig, fmt.Sprintf("unknown command %q, type h for help", verb))
	}
	a := watchAction{op: op}
	switch op {
	case opQuery, opInvoke:
		fn, raw := cut(rest)
		if fn == "" {
			return a, cerrors.New(cerrors.KindConfig, verb+" needs a function name")
		}
		args, err := parseArgs(raw)
		if err != nil {
			return a, err
		}
		a.fn, a.args = fn, args
	case opToggle, opRemove:
		if rest == "" {
			return a, cerrors.New(cerrors.KindConfig, verb+" needs a result index or id")
		}
		a.ref = monitor.ParseRef(rest)
	case opRemovable:
		ref, v := cut(rest)
		if ref == "" {
			return a, cerrors.New(cerrors.KindConfig, verb+" needs a result index or id")
		}
		switch strings.ToLower(v) {
		case "", "on", "true", "yes":
			a.flag = true
		case "off", "false", "no":
		default:
			return a, cerrors.New(cerrors.KindConfig, "removable takes on or off")
		}
		a.ref = monitor.ParseRef(ref)
	case opInterval:
		ms, err := strconv.Atoi(rest)
		if err != nil || ms <= 0 {
			return a, cerrors.New(cerrors.KindConfig, "interval takes a positive number of milliseconds")
		}
		a.interval = time.Duration(ms) * time.Millisecond
	}
	return a, nil
}

func cut(s string) (head, tail string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// watchRunner applies parsed input to a session. notify shows one line of
// feedback; failures of submissions already arrive as engine notifications.
type watchRunner struct {
	engine *monitor.Engine
	store  *config.Store
	schema *schema.Fetcher
	notify func(string)
}

// apply runs a and reports whether the user asked to quit.
func (w *watchRunner) apply(ctx context.Context, a watchAction) bool {
	switch a.op {
	case opQuery:
		w.engine.Submit(ctx, a.args, a.fn, chaincode.Query)
	case opInvoke:
		out := w.engine.Submit(ctx, a.args, a.fn, chaincode.Invoke)
		if out.Err == nil {
			w.notify(fmt.Sprintf("%s: %s", a.fn, logging.Truncate(out.Payload, 96)))
		}
	case opToggle:
		ent, err := w.engine.TogglePolling(ctx, a.ref)
		if err != nil {
			w.fail(err)
			break
		}
		state := "off"
		if ent.Polling {
			state = "on"
		}
		w.notify(fmt.Sprintf("Polling %s for %s", state, ent.Function))
	case opRemove:
		if _, err := w.engine.Remove(ctx, a.ref); err != nil {
			w.fail(err)
		}
	case opRemovable:
		if _, err := w.engine.SetRemovable(ctx, a.ref, a.flag); err != nil {
			w.fail(err)
		}
	case opClear:
		if _, err := w.engine.ClearAll(ctx); err != nil {
			w.fail(err)
		}
	case opInterval:
		conn := w.store.Read()
		conn.PollingInterval = a.interval
		if err := w.store.Replace(conn); err != nil {
			w.fail(err)
			break
		}
		w.notify("Polling every " + a.interval.String())
	case opSchema:
		c, err := w.schema.Fetch(ctx, w.store.Read())
		if err != nil {
			w.fail(err)
			break
		}
		w.notify(schemaSummary(c))
	case opHelp:
		w.notify(watchHelp)
	case opQuit:
		return true
	default:
		panic(fmt.Sprintf("watch: unhandled op %d", a.op))
	}
	return false
}

func (w *watchRunner) fail(err error) {
	w.notify(cerrors.MessageOf(err))
}

// schemaSummary lists tab names with their functions on one line.
func schemaSummary(c schema.Classification) string {
	if c.Empty() {
		return "The chaincode declared no functions."
	}
	var parts []string
	for _, t := range c.Tabs {
		if len(t.Functions) == 0 {
			continue
		}
		names := make([]string, len(t.Functions))
		for i, f := range t.Functions {
			names[i] = f.Name
		}
		parts = append(parts, t.Name+": "+strings.Join(names, ", "))
	}
	if len(parts) == 0 {
		return "No declared function matches a tab."
	}
	return strings.Join(parts, " · ")
}
