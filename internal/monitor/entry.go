// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package monitor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ccmonitor/cli/internal/chaincode"
)

// Entry is one tracked query result. Args is sanitized and must not be
// modified by holders of a snapshot.
type Entry struct {
	ID        string         `json:"id" yaml:"id"`
	Args      chaincode.Args `json:"args" yaml:"args"`
	Function  string         `json:"function" yaml:"function"`
	Kind      chaincode.Kind `json:"kind" yaml:"kind"`
	Payload   string         `json:"payload" yaml:"payload"`
	Polling   bool           `json:"polling" yaml:"polling"`
	Removable bool           `json:"removable" yaml:"removable"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"updated_at"`

	key chaincode.Key
}

// Key returns the (function, kind, args) identity of the entry.
func (e Entry) Key() chaincode.Key { return e.key }

func (e Entry) clone() Entry {
	e.Args = chaincode.Clone(e.Args)
	return e
}

// Selector addresses an entry either by position or by stable ID.
// Positions are resolved against the set at the moment the command runs.
type Selector struct {
	index int
	id    string
	byID  bool
}

// ByIndex selects the entry at position i.
func ByIndex(i int) Selector { return Selector{index: i} }

// ByID selects the entry with the given ID.
func ByID(id string) Selector { return Selector{id: id, byID: true} }

// ParseRef reads a numeric reference as an index and anything else as an ID.
func ParseRef(ref string) Selector {
	ref = strings.TrimSpace(ref)
	if i, err := strconv.Atoi(ref); err == nil {
		return ByIndex(i)
	}
	return ByID(ref)
}

func (s Selector) String() string {
	if s.byID {
		return "id " + s.id
	}
	return fmt.Sprintf("index %d", s.index)
}

func (s Selector) resolve(entries []Entry) (int, bool) {
	if !s.byID {
		return s.index, s.index >= 0 && s.index < len(entries)
	}
	for i := range entries {
		if entries[i].ID == s.id {
			return i, true
		}
	}
	return -1, false
}

// Outcome reports what a submission did to the result set. Err carries the
// classified failure after it has already been reported to the Notifier.
type Outcome struct {
	Entry Entry
	// Payload is the response body; for invokes it is the only trace of the call.
	Payload   string
	Applied   bool
	Appended  bool
	Discarded bool
	Err       error
}
