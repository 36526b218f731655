// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package chaincode

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"ccmonitor/cli/internal/config"
)

const (
	jsonRPCVersion = "2.0"
	// requestID is fixed; the bridge does not correlate by id.
	requestID = 5
	// chaincodeTypeGolang is the only contract runtime the bridge accepts.
	chaincodeTypeGolang = 1

	// SchemaFunction is the contract function that describes the contract's API.
	SchemaFunction = "readAssetSchemas"
)

// Request is the JSON-RPC envelope POSTed to the bridge.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  Params `json:"params"`
	ID      int    `json:"id"`
}

// Params carries the contract call.
type Params struct {
	Type          int         `json:"type"`
	ChaincodeID   ChaincodeID `json:"chaincodeID"`
	CtorMsg       CtorMsg     `json:"ctorMsg"`
	SecureContext string      `json:"secureContext"`
}

// ChaincodeID names the target contract.
type ChaincodeID struct {
	Name string `json:"name"`
}

// CtorMsg is the function and its single JSON-string argument.
type CtorMsg struct {
	Function string   `json:"function"`
	Args     []string `json:"args"`
}

// Credentials are sent as HTTP Basic auth.
type Credentials struct {
	Key    string
	Secret string
}

// BasicAuth returns the Authorization header value.
func (c Credentials) BasicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Key+":"+c.Secret))
}

// CredentialsFrom extracts the Basic auth pair from a connection snapshot.
func CredentialsFrom(conn config.Connection) *Credentials {
	return &Credentials{Key: conn.Key, Secret: conn.Secret}
}

// BuildRequest assembles the envelope for fn. args are expected to be sanitized
// already; nil args produce an empty argument list, which only the schema
// fetch sends. Submissions always carry an object, "{}" at least.
func BuildRequest(fn string, args Args, kind Kind, conn config.Connection) Request {
	ctorArgs := []string{}
	if args != nil {
		ctorArgs = append(ctorArgs, Canonical(args))
	}
	return Request{
		JSONRPC: jsonRPCVersion,
		Method:  kind.Method(),
		Params: Params{
			Type:          chaincodeTypeGolang,
			ChaincodeID:   ChaincodeID{Name: conn.ChaincodeID},
			CtorMsg:       CtorMsg{Function: fn, Args: ctorArgs},
			SecureContext: conn.SecureContext,
		},
		ID: requestID,
	}
}

// BuildSchemaRequest assembles the schema fetch: a query of readAssetSchemas without arguments.
func BuildSchemaRequest(conn config.Connection) Request {
	return BuildRequest(SchemaFunction, nil, Query, conn)
}

// Canonical encodes args as compact JSON with sorted keys and no HTML escaping.
// Equal argument structures always produce equal strings. Nil encodes as "{}".
func Canonical(args Args) string {
	if args == nil {
		return "{}"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(args); err != nil {
		// only unsupported Go values (channels, funcs) get here
		return "{}"
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Key identifies a tracked result: one entry per distinct (args, function, kind).
type Key struct {
	Function string
	Kind     Kind
	Args     string
}

// KeyOf computes the identity of a call. args must already be sanitized.
func KeyOf(fn string, args Args, kind Kind) Key {
	return Key{Function: fn, Kind: kind, Args: Canonical(args)}
}
