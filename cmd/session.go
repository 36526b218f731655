// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ccmonitor/cli/internal/auth"
	"ccmonitor/cli/internal/backend"
	"ccmonitor/cli/internal/bridge"
	"ccmonitor/cli/internal/config"
	"ccmonitor/cli/internal/dsn"
	"ccmonitor/cli/internal/history"
	"ccmonitor/cli/internal/keychain"
	"ccmonitor/cli/internal/logging"
	"ccmonitor/cli/internal/metrics"
	"ccmonitor/cli/internal/monitor"
	"ccmonitor/cli/internal/schema"
	"ccmonitor/cli/internal/xdg"

	"github.com/pterm/pterm"
)

// EnvHistoryDSN overrides the history DSN stored in the keychain.
const EnvHistoryDSN = "CCMONITOR_HISTORY_DSN"

// sessionOptions select the collaborators a command needs.
type sessionOptions struct {
	notifier monitor.Notifier
	metrics  *metrics.Metrics
}

// session is one wired monitor: settings, secrets, transport, engine and
// schema fetcher sharing a single connection store.
type session struct {
	settings config.Settings
	log      *pterm.Logger
	km       *keychain.Manager
	creds    auth.Credentials
	store    *config.Store
	bridge   bridge.Bridge
	engine   *monitor.Engine
	schema   *schema.Fetcher
	metrics  *metrics.Metrics

	closers []io.Closer
	once    sync.Once
}

// openSession loads settings and credentials and starts an engine.
// Close must be called when the command is done.
func openSession(opts sessionOptions) (*session, error) {
	st, err := loadSettings()
	if err != nil {
		return nil, err
	}
	log, logCloser := logging.Setup(st.LogLevel, st.LogFile)
	s := &session{settings: st, log: log, closers: []io.Closer{logCloser}}

	s.km = keychainOrNil(log)
	s.creds, err = loadCredentials(s.km)
	if err != nil {
		s.Close()
		return nil, err
	}
	if !s.creds.Present() {
		log.Debug("no stored credentials, using defaults")
	}

	conn := st.Connection.Connection(s.creds.Key, s.creds.Secret, s.creds.IoTAuthToken)
	if err := conn.Validate(); err != nil {
		s.Close()
		return nil, err
	}
	s.store = config.NewStore(conn)

	s.bridge, err = bridge.New(st.Transport)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, s.bridge)

	s.metrics = opts.metrics
	if s.metrics == nil {
		s.metrics = metrics.NopMetrics()
	}
	s.engine = monitor.New(s.bridge, s.store, monitor.Options{
		CancelInFlight: st.CancelInFlight,
		Notifier:       opts.notifier,
		Metrics:        s.metrics,
		Logger:         log,
	})
	s.schema, err = schema.NewFetcher(s.bridge, schema.FetcherOptions{
		Tabs:     st.Tabs,
		Notifier: opts.notifier,
		Metrics:  s.metrics,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.store.OnReplace(func(prev, next config.Connection) {
		if prev.BridgeURL != next.BridgeURL || prev.ChaincodeID != next.ChaincodeID || prev.URLRestRoot != next.URLRestRoot {
			s.schema.Invalidate()
		}
	})
	log.Debug("session ready", log.Args("bridge", conn.BridgeURL, "transport", transportKind(st.Transport), "chaincode", conn.ChaincodeID))
	return s, nil
}

// Close stops the engine and releases the transport and log file.
func (s *session) Close() {
	s.once.Do(func() {
		if s.engine != nil {
			s.engine.Close()
		}
		for i := len(s.closers) - 1; i >= 0; i-- {
			_ = s.closers[i].Close()
		}
	})
}

// initializer returns the bridge as a backend.Initializer when it is one.
func (s *session) initializer() backend.Initializer {
	if in, ok := s.bridge.(backend.Initializer); ok {
		return in
	}
	return nil
}

// startHistory subscribes a recorder to the engine. The journal is always
// written unless disabled; PostgreSQL is added when a history DSN is known.
// The returned stop function drains the recorder and closes its sinks.
func (s *session) startHistory(ctx context.Context) (func(), error) {
	if s.settings.History.Disabled {
		return func() {}, nil
	}
	var sinks []history.Sink
	j, err := openJournal(s.settings.History)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, j)

	if raw := historyDSN(s.km); raw != "" {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pg, err := history.OpenPostgres(pctx, raw)
		cancel()
		if err != nil {
			s.log.Warn("history database unavailable, journal only", s.log.Args("error", logging.Mask(err.Error())))
		} else {
			sinks = append(sinks, pg)
		}
	}

	events, unsubscribe, err := s.engine.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	rec := history.NewRecorder(s.log, sinks...)
	done := make(chan struct{})
	go func() {
		defer close(done)
		rec.Run(ctx, events)
	}()
	return func() {
		unsubscribe()
		<-done
		_ = rec.Close()
	}, nil
}

// openJournal opens the configured journal, defaulting to the XDG state dir.
func openJournal(h config.HistorySettings) (*history.Journal, error) {
	p := strings.TrimSpace(h.Journal)
	if p == "" {
		dir, err := xdg.StateDir()
		if err != nil {
			return nil, err
		}
		p = filepath.Join(dir, "history.jsonl")
	}
	return history.NewJournal(p, h.JournalMaxMB, h.JournalMaxAgeDays), nil
}

// historyDSN resolves the history DSN from the environment, then the keychain.
func historyDSN(km *keychain.Manager) string {
	raw := strings.TrimSpace(os.Getenv(EnvHistoryDSN))
	if raw == "" && km != nil {
		if v, err := km.LoadHistoryDSN(); err == nil {
			raw = strings.TrimSpace(v)
		}
	}
	if raw == "" {
		return ""
	}
	if n, err := dsn.Normalize(raw); err == nil {
		return n
	}
	return raw
}

// keychainOrNil opens the OS keychain; environment credentials still work without one.
func keychainOrNil(log *pterm.Logger) *keychain.Manager {
	km, err := keychain.GetManager()
	if err != nil {
		log.Debug("keychain unavailable", log.Args("error", err.Error()))
		return nil
	}
	return km
}

// loadCredentials avoids handing auth.Load a typed nil store.
func loadCredentials(km *keychain.Manager) (auth.Credentials, error) {
	if km == nil {
		return auth.Load(nil)
	}
	return auth.Load(km)
}

func transportKind(ts config.TransportSettings) string {
	if k := strings.ToLower(strings.TrimSpace(ts.Kind)); k != "" {
		return k
	}
	return bridge.KindHTTP
}

// startPoller polls the engine on the configured interval and follows
// interval changes made through the store.
func (s *session) startPoller(ctx context.Context, override time.Duration) *monitor.Poller {
	interval := s.store.Read().PollingInterval
	if override > 0 {
		interval = override
	}
	p := monitor.NewPoller(s.engine, interval)
	p.Follow(s.store)
	p.Start(ctx)
	return p
}
