// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package chaincode models the JSON-RPC conversation with a chaincode bridge:
// operation kinds, argument sanitizing, request envelopes and response decoding.
// Everything here is pure; the network lives in internal/backend and
// internal/bridge/grpcclient.
package chaincode

import (
	"strings"
)

// Kind is the operation type of a chaincode call.
type Kind string

const (
	// Query reads ledger state; results are tracked by the monitor.
	Query Kind = "query"
	// Invoke submits a transaction; results are notified, never tracked.
	Invoke Kind = "invoke"
)

// Method returns the JSON-RPC method name for k.
func (k Kind) Method() string { return strings.ToLower(string(k)) }

func (k Kind) String() string { return string(k) }
