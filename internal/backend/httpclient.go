package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/config"
	cerrors "ccmonitor/cli/internal/errors"

	"github.com/pkg/errors"
)

// maxBodyBytes caps how much of a bridge reply is read.
const maxBodyBytes = 8 << 20

// Bridge paths for client initialization.
const (
	PathInitClient    = "/init_client"
	PathGetChaincodes = "/getchaincodes"
)

// HTTP implements Transport over the bridge's JSON-RPC POST endpoint.
type HTTP struct {
	// client is the underlying HTTP client with configured timeout
	client *http.Client
	guard  *Guard
}

// newHTTP creates an HTTP transport. A nil guard disables rate limiting and breaking.
func newHTTP(timeout time.Duration, guard *Guard) *HTTP {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if guard == nil {
		guard = NewGuard(GuardOptions{})
	}
	return &HTTP{
		client: &http.Client{Timeout: timeout},
		guard:  guard,
	}
}

// Call POSTs req to conn.Endpoint().
func (h *HTTP) Call(ctx context.Context, conn config.Connection, req chaincode.Request, creds *chaincode.Credentials) (chaincode.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return chaincode.Response{}, cerrors.Wrap(cerrors.KindTransport, "encode request", err)
	}
	var out chaincode.Response
	err = h.guard.Do(ctx, func() error {
		data, err := h.post(ctx, conn.Endpoint(), body, creds)
		if err != nil {
			return err
		}
		out, err = chaincode.DecodeResponse(data)
		return err
	})
	return out, err
}

// InitClient hands the connection parameters to the bridge, then asks it to
// refresh its chaincode list. Both calls are unauthenticated.
func (h *HTTP) InitClient(ctx context.Context, conn config.Connection) error {
	body, err := json.Marshal(initParams(conn))
	if err != nil {
		return err
	}
	for _, p := range []string{PathInitClient, PathGetChaincodes} {
		if _, err := h.post(ctx, conn.BridgePath(p), body, nil); err != nil {
			return err
		}
	}
	return nil
}

func (h *HTTP) post(ctx context.Context, url string, body []byte, creds *chaincode.Credentials) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindTransport, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if creds != nil {
		req.Header.Set("Authorization", creds.BasicAuth())
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindTransport, "bridge request failed", errors.Wrapf(err, "POST %s", url))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindTransport, "read bridge response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, cerrors.New(cerrors.KindTransport, fmt.Sprintf("bridge answered status %s", resp.Status))
	}
	return data, nil
}

// initParams mirrors the field names the bridge expects on /init_client.
func initParams(c config.Connection) map[string]any {
	return map[string]any{
		"urlRestRoot":   c.URLRestRoot,
		"chaincodeId":   c.ChaincodeID,
		"secureContext": c.SecureContext,
		"blocksPerPage": c.BlocksPerPage,
		"key":           c.Key,
		"secret":        c.Secret,
		"networkId":     c.NetworkID,
		"channel":       c.Channel,
		"iotOrg":        c.IoTOrg,
		"iotAuthToken":  c.IoTAuthToken,
		"iotApiKey":     c.IoTAPIKey,
	}
}
