package schema

import (
	"context"
	"time"

	"ccmonitor/cli/internal/backend"
	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/config"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/monitor"

	"github.com/eapache/go-resiliency/retrier"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const defaultCacheSize = 16

// FormSink receives the operations to offer in the query and invoke forms.
type FormSink interface {
	BindOperations(Classification)
}

// LookupRecorder counts where schema lookups were served from.
type LookupRecorder interface {
	SchemaLookup(source string)
}

// FetcherOptions configure a Fetcher. Zero values select defaults.
type FetcherOptions struct {
	Tabs      []string
	CacheSize int
	Backoff   []time.Duration
	Notifier  monitor.Notifier
	Metrics   LookupRecorder
}

// Fetcher reads the chaincode schema through the bridge and classifies it.
// Results are cached per bridge, network root and chaincode.
type Fetcher struct {
	transport backend.Transport
	opts      FetcherOptions
	cache     *lru.Cache
}

// NewFetcher creates a fetcher.
func NewFetcher(t backend.Transport, opts FetcherOptions) (*Fetcher, error) {
	if len(opts.Tabs) == 0 {
		opts.Tabs = config.DefaultTabs
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.Backoff == nil {
		opts.Backoff = retrier.ExponentialBackoff(3, 200*time.Millisecond)
	}
	if opts.Notifier == nil {
		opts.Notifier = monitor.NotifierFunc(func(string) {})
	}
	cache, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "schema cache")
	}
	return &Fetcher{transport: t, opts: opts, cache: cache}, nil
}

// Fetch returns the classification for conn. An application error from the
// bridge is shown through the Notifier and yields an empty classification.
func (f *Fetcher) Fetch(ctx context.Context, conn config.Connection) (Classification, error) {
	key := cacheKey(conn)
	if v, ok := f.cache.Get(key); ok {
		f.record("cache")
		return v.(Classification), nil
	}
	f.record("bridge")

	req := chaincode.BuildSchemaRequest(conn)
	var resp chaincode.Response
	r := retrier.New(f.opts.Backoff, retryTransport{ctx: ctx})
	err := r.Run(func() error {
		var err error
		resp, err = f.transport.Call(ctx, conn, req, nil)
		return err
	})
	switch {
	case cerrors.Is(err, cerrors.KindApplication):
		f.opts.Notifier.ShowMessage(cerrors.MessageOf(err))
		return Classify(nil, f.opts.Tabs), nil
	case err != nil:
		return Classification{}, err
	}

	c := Classify(ParseAPI(resp.Payload), f.opts.Tabs)
	f.cache.Add(key, c)
	return c, nil
}

// Bind fetches the classification for conn and hands it to sink.
func (f *Fetcher) Bind(ctx context.Context, conn config.Connection, sink FormSink) (Classification, error) {
	c, err := f.Fetch(ctx, conn)
	if err != nil {
		return c, err
	}
	sink.BindOperations(c)
	return c, nil
}

// Invalidate drops every cached classification.
func (f *Fetcher) Invalidate() { f.cache.Purge() }

func (f *Fetcher) record(source string) {
	if f.opts.Metrics != nil {
		f.opts.Metrics.SchemaLookup(source)
	}
}

func cacheKey(c config.Connection) string {
	return c.BridgeURL + "|" + c.URLRestRoot + "|" + c.ChaincodeID
}

// retryTransport retries transport failures while ctx is live.
type retryTransport struct {
	ctx context.Context
}

func (r retryTransport) Classify(err error) retrier.Action {
	switch {
	case err == nil:
		return retrier.Succeed
	case r.ctx.Err() != nil:
		return retrier.Fail
	case cerrors.Is(err, cerrors.KindTransport):
		return retrier.Retry
	}
	return retrier.Fail
}

// ParseAPI extracts the declared functions from a schema response. The API
// object may sit under result.message as a JSON string, directly under
// result, or at the top level. Declaration order is preserved.
func ParseAPI(payload string) []Function {
	root := gjson.Parse(payload)
	result := root.Get("result")
	var nodes []gjson.Result
	if msg := result.Get("message"); msg.Type == gjson.String && gjson.Valid(msg.String()) {
		nodes = append(nodes, gjson.Parse(msg.String()))
	}
	nodes = append(nodes, result, root)

	for _, n := range nodes {
		if api := n.Get("API"); api.IsObject() {
			return functionsFrom(api)
		}
	}
	return nil
}

func functionsFrom(api gjson.Result) []Function {
	var out []Function
	api.ForEach(func(name, def gjson.Result) bool {
		fn := Function{
			Name:        name.String(),
			Description: def.Get("description").String(),
			Method:      def.Get("properties.method").String(),
		}
		def.Get("properties.args.items.properties").ForEach(func(field, _ gjson.Result) bool {
			fn.Fields = append(fn.Fields, field.String())
			return true
		})
		out = append(out, fn)
		return true
	})
	return out
}
