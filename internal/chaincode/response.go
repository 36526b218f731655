// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package chaincode

import (
	"bytes"
	"encoding/json"

	cerrors "ccmonitor/cli/internal/errors"

	"github.com/tidwall/gjson"
)

// Response is a successful bridge reply.
type Response struct {
	// Payload is the whole response body as compact JSON, stored verbatim by the monitor.
	Payload string
}

// Result returns the "result" member of the payload.
func (r Response) Result() gjson.Result {
	return gjson.Get(r.Payload, "result")
}

// DecodeResponse validates a bridge reply body.
//
// A body that is not JSON is a transport error. A body carrying an "error"
// member is an application error whose message is error.data (or its raw JSON,
// or error.message when data is absent).
func DecodeResponse(body []byte) (Response, error) {
	if !gjson.ValidBytes(body) {
		return Response{}, cerrors.New(cerrors.KindTransport, "invalid json in bridge response")
	}
	if e := gjson.GetBytes(body, "error"); e.Exists() && e.Type != gjson.Null {
		return Response{}, cerrors.New(cerrors.KindApplication, applicationMessage(e))
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return Response{}, cerrors.Wrap(cerrors.KindTransport, "invalid json in bridge response", err)
	}
	return Response{Payload: buf.String()}, nil
}

func applicationMessage(e gjson.Result) string {
	if data := e.Get("data"); data.Exists() && data.Type != gjson.Null {
		if data.Type == gjson.String {
			return data.String()
		}
		return data.Raw
	}
	if msg := e.Get("message"); msg.Exists() {
		return msg.String()
	}
	if e.Type == gjson.String {
		return e.String()
	}
	return e.Raw
}
