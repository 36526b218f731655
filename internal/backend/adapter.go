// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides the transport contract for chaincode bridges and its
// HTTP implementation. Implementations are stateless with respect to
// connection parameters: each call receives the config snapshot it must use.
package backend

import (
	"context"

	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/config"
)

// Transport sends one chaincode request and classifies the outcome.
//
// Errors are *errors.E with KindTransport (network failure, non-2xx status,
// malformed body, open breaker) or KindApplication (body carried an error
// member). creds may be nil for unauthenticated calls such as the schema fetch.
type Transport interface {
	Call(ctx context.Context, conn config.Connection, req chaincode.Request, creds *chaincode.Credentials) (chaincode.Response, error)
}

// Initializer is implemented by bridges that accept client (re)initialization
// after the connection parameters change.
type Initializer interface {
	InitClient(ctx context.Context, conn config.Connection) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, conn config.Connection, req chaincode.Request, creds *chaincode.Credentials) (chaincode.Response, error)

// Call implements Transport.
func (f TransportFunc) Call(ctx context.Context, conn config.Connection, req chaincode.Request, creds *chaincode.Credentials) (chaincode.Response, error) {
	return f(ctx, conn, req, creds)
}
