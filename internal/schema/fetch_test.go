package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"ccmonitor/cli/internal/backend"
	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/config"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/monitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAPI = `{"API":{
	"createAsset":{"description":"Create an asset.","properties":{"args":{"items":{"properties":{"assetID":{},"temperature":{}}}},"method":"invoke"}},
	"readAsset":{"description":"Read an asset.","properties":{"args":{"items":{"properties":{"assetID":{}}}},"method":"query"}},
	"deleteAsset":{"properties":{"method":"invoke"}}
}}`

func TestParseAPIShapes(t *testing.T) {
	quoted, err := json.Marshal(sampleAPI)
	require.NoError(t, err)
	tests := []struct {
		name    string
		payload string
	}{
		{name: "message string", payload: `{"result":{"status":"OK","message":` + string(quoted) + `}}`},
		{name: "result object", payload: `{"result":` + sampleAPI + `}`},
		{name: "top level", payload: sampleAPI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := ParseAPI(tt.payload)
			require.Len(t, api, 3)
			assert.Equal(t, []string{"createAsset", "readAsset", "deleteAsset"}, names(api))
			assert.Equal(t, "invoke", api[0].Method)
			assert.Equal(t, []string{"assetID", "temperature"}, api[0].Fields)
			assert.Equal(t, "Read an asset.", api[1].Description)
		})
	}
	assert.Nil(t, ParseAPI(`{"result":{"message":"not json"}}`))
}

type sinkFunc func(Classification)

func (f sinkFunc) BindOperations(c Classification) { f(c) }

type lookups struct{ bridge, cache int }

func (l *lookups) SchemaLookup(source string) {
	if source == "cache" {
		l.cache++
	} else {
		l.bridge++
	}
}

func TestFetcherCachesAndSendsNoAuth(t *testing.T) {
	var calls atomic.Int32
	tr := backend.TransportFunc(func(_ context.Context, _ config.Connection, req chaincode.Request, creds *chaincode.Credentials) (chaincode.Response, error) {
		calls.Add(1)
		assert.Nil(t, creds)
		assert.Equal(t, chaincode.SchemaFunction, req.Params.CtorMsg.Function)
		assert.Equal(t, "query", req.Method)
		return chaincode.DecodeResponse([]byte(`{"result":` + sampleAPI + `}`))
	})
	rec := &lookups{}
	f, err := NewFetcher(tr, FetcherOptions{Metrics: rec})
	require.NoError(t, err)
	conn := config.DefaultConnection()

	var bound Classification
	c, err := f.Bind(context.Background(), conn, sinkFunc(func(c Classification) { bound = c }))
	require.NoError(t, err)
	assert.Equal(t, c, bound)
	tab, _ := c.Tab("READ")
	assert.Equal(t, []string{"readAsset"}, names(tab.Functions))

	_, err = f.Fetch(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, &lookups{bridge: 1, cache: 1}, rec)

	other := conn
	other.ChaincodeID = "other_contract"
	_, err = f.Fetch(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	f.Invalidate()
	_, err = f.Fetch(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcherRetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	tr := backend.TransportFunc(func(context.Context, config.Connection, chaincode.Request, *chaincode.Credentials) (chaincode.Response, error) {
		if calls.Add(1) < 3 {
			return chaincode.Response{}, cerrors.New(cerrors.KindTransport, "bridge request failed")
		}
		return chaincode.DecodeResponse([]byte(sampleAPI))
	})
	f, err := NewFetcher(tr, FetcherOptions{Backoff: []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}})
	require.NoError(t, err)

	c, err := f.Fetch(context.Background(), config.DefaultConnection())
	require.NoError(t, err)
	assert.Len(t, c.API, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcherGivesUpAfterBackoff(t *testing.T) {
	var calls atomic.Int32
	tr := backend.TransportFunc(func(context.Context, config.Connection, chaincode.Request, *chaincode.Credentials) (chaincode.Response, error) {
		calls.Add(1)
		return chaincode.Response{}, cerrors.New(cerrors.KindTransport, "bridge request failed")
	})
	f, err := NewFetcher(tr, FetcherOptions{Backoff: []time.Duration{time.Millisecond}})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), config.DefaultConnection())
	assert.True(t, cerrors.Is(err, cerrors.KindTransport))
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetcherApplicationErrorYieldsEmptySchema(t *testing.T) {
	var calls atomic.Int32
	var shown []string
	tr := backend.TransportFunc(func(context.Context, config.Connection, chaincode.Request, *chaincode.Credentials) (chaincode.Response, error) {
		calls.Add(1)
		return chaincode.DecodeResponse([]byte(`{"error":{"data":"unknown function readAssetSchemas"}}`))
	})
	f, err := NewFetcher(tr, FetcherOptions{Notifier: monitor.NotifierFunc(func(s string) { shown = append(shown, s) })})
	require.NoError(t, err)

	c, err := f.Fetch(context.Background(), config.DefaultConnection())
	require.NoError(t, err)
	assert.True(t, c.Empty())
	assert.Equal(t, []string{"unknown function readAssetSchemas"}, shown)
	assert.Equal(t, int32(1), calls.Load(), "application errors are not retried")

	// empty results are not cached
	_, _ = f.Fetch(context.Background(), config.DefaultConnection())
	assert.Equal(t, int32(2), calls.Load())
}

func TestPtermSink(t *testing.T) {
	var buf bytes.Buffer
	PtermSink{Out: &buf}.BindOperations(Classify(ParseAPI(sampleAPI), config.DefaultTabs))
	out := buf.String()
	assert.Contains(t, out, "CREATE")
	assert.Contains(t, out, "readAsset")
	assert.NotContains(t, out, "UPDATE")

	buf.Reset()
	PtermSink{Out: &buf}.BindOperations(Classify(nil, config.DefaultTabs))
	assert.Contains(t, buf.String(), "declared no functions")
}
