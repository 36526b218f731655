// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package history records payload changes of tracked results so asset state
// can be reviewed after the fact. Records go to a rotating JSON-lines journal
// and, when configured, to PostgreSQL.
package history

import (
	"context"
	"encoding/json"
	"time"

	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/monitor"

	"github.com/pterm/pterm"
)

// Record is one observed payload.
type Record struct {
	At       time.Time       `json:"at" yaml:"at"`
	Event    string          `json:"event" yaml:"event"`
	EntryID  string          `json:"entry_id" yaml:"entry_id"`
	Function string          `json:"function" yaml:"function"`
	Kind     string          `json:"kind" yaml:"kind"`
	Args     json.RawMessage `json:"args" yaml:"-"`
	Payload  json.RawMessage `json:"payload" yaml:"-"`
}

// Sink stores records.
type Sink interface {
	Append(ctx context.Context, r Record) error
	Close() error
}

// Reader lists stored records, newest first. An empty function matches all.
type Reader interface {
	Recent(ctx context.Context, limit int, function string) ([]Record, error)
}

// FromEvent converts an added or updated entry event into a record.
func FromEvent(ev monitor.Event) (Record, bool) {
	if ev.Entry == nil || (ev.Type != monitor.EventEntryAdded && ev.Type != monitor.EventEntryUpdated) {
		return Record{}, false
	}
	e := ev.Entry
	return Record{
		At:       ev.At,
		Event:    string(ev.Type),
		EntryID:  e.ID,
		Function: e.Function,
		Kind:     e.Kind.String(),
		Args:     json.RawMessage(chaincode.Canonical(e.Args)),
		Payload:  rawOrNull(e.Payload),
	}, true
}

func rawOrNull(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

// Recorder copies engine events into sinks.
type Recorder struct {
	sinks []Sink
	log   *pterm.Logger
}

// NewRecorder creates a recorder writing to sinks.
func NewRecorder(log *pterm.Logger, sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks, log: log}
}

// Run consumes events until the channel closes or ctx ends. A failing sink
// is logged and does not stop the others.
func (r *Recorder) Run(ctx context.Context, events <-chan monitor.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			rec, ok := FromEvent(ev)
			if !ok {
				continue
			}
			for _, s := range r.sinks {
				if err := s.Append(ctx, rec); err != nil && r.log != nil {
					r.log.Warn("history write failed", r.log.Args("function", rec.Function, "error", err.Error()))
				}
			}
		}
	}
}

// Close closes every sink and returns the first error.
func (r *Recorder) Close() error {
	var first error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
