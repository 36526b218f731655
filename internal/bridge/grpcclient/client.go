// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package grpcclient provides a gRPC implementation of backend.Transport.
// The chaincode envelope travels as a google.protobuf.Struct on a unary call,
// so bridges only need the well-known types, not generated stubs. Basic auth
// is carried in the "authorization" metadata key.
package grpcclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net"

	"ccmonitor/cli/internal/backend"
	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/config"
	cerrors "ccmonitor/cli/internal/errors"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// MethodCall is the full gRPC method name of the bridge's unary entry point.
const MethodCall = "/chaincode.Bridge/Call"

// Client implements backend.Transport over a single gRPC connection.
type Client struct {
	conn  *grpc.ClientConn
	guard *backend.Guard
}

// Dial creates a client for addr. TLS is used unless plaintext is set; a
// missing port defaults to 443.
func Dial(addr string, plaintext bool, guard *backend.Guard) (*Client, error) {
	host := addr
	target := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	} else {
		target = net.JoinHostPort(addr, "443")
	}

	creds := insecure.NewCredentials()
	if !plaintext {
		creds = credentials.NewTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	}
	return New(target, guard, grpc.WithTransportCredentials(creds))
}

// New creates a client for target with explicit dial options.
func New(target string, guard *backend.Guard, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "grpc client for %s", target)
	}
	if guard == nil {
		guard = backend.NewGuard(backend.GuardOptions{})
	}
	return &Client{conn: conn, guard: guard}, nil
}

// Call sends req as a Struct and decodes the Struct reply like an HTTP body.
// The connection snapshot is not needed for addressing; the dial target is fixed.
func (c *Client) Call(ctx context.Context, _ config.Connection, req chaincode.Request, creds *chaincode.Credentials) (chaincode.Response, error) {
	in, err := toStruct(req)
	if err != nil {
		return chaincode.Response{}, cerrors.Wrap(cerrors.KindTransport, "encode request", err)
	}
	if creds != nil {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", creds.BasicAuth())
	}

	var resp chaincode.Response
	err = c.guard.Do(ctx, func() error {
		out := &structpb.Struct{}
		if err := c.conn.Invoke(ctx, MethodCall, in, out); err != nil {
			st, _ := status.FromError(err)
			return cerrors.Wrap(cerrors.KindTransport, "bridge call failed: "+st.Code().String(), err)
		}
		body, err := json.Marshal(out.AsMap())
		if err != nil {
			return cerrors.Wrap(cerrors.KindTransport, "invalid json in bridge response", err)
		}
		resp, err = chaincode.DecodeResponse(body)
		return err
	})
	return resp, err
}

// Close releases the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func toStruct(req chaincode.Request) (*structpb.Struct, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
