// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bridge selects the transport the CLI uses to reach the chaincode
// bridge. HTTP is the default; gRPC is available for bridges that expose the
// Struct-based unary endpoint.
package bridge

import (
	"io"
	"strings"

	"ccmonitor/cli/internal/backend"
	"ccmonitor/cli/internal/bridge/grpcclient"
	"ccmonitor/cli/internal/config"
	cerrors "ccmonitor/cli/internal/errors"
)

// Transport kinds accepted in TransportSettings.Kind.
const (
	KindHTTP = "http"
	KindGRPC = "grpc"
)

// Bridge is a transport with an explicit lifetime.
type Bridge interface {
	backend.Transport
	io.Closer
}

// New builds the transport configured by ts. The returned Bridge also
// implements backend.Initializer when the transport supports it.
func New(ts config.TransportSettings) (Bridge, error) {
	switch strings.ToLower(strings.TrimSpace(ts.Kind)) {
	case "", KindHTTP:
		return httpBridge{backend.New(ts)}, nil
	case KindGRPC:
		if ts.GRPCAddress == "" {
			return nil, cerrors.New(cerrors.KindConfig, "transport.grpc_address is required for the grpc transport")
		}
		guard := backend.NewGuard(backend.GuardFromSettings(ts))
		return grpcclient.Dial(ts.GRPCAddress, ts.GRPCInsecure, guard)
	default:
		return nil, cerrors.New(cerrors.KindConfig, "unknown transport kind "+ts.Kind)
	}
}

type httpBridge struct {
	*backend.HTTP
}

func (httpBridge) Close() error { return nil }
