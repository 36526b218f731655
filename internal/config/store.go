// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	cerrors "ccmonitor/cli/internal/errors"
)

// Connection is the complete parameter set for talking to a chaincode bridge.
// Values are passed by copy: whoever holds a Connection holds an immutable snapshot.
type Connection struct {
	// BridgeURL is the JSON-RPC bridge the CLI talks to.
	BridgeURL string
	// URLRestRoot is the upstream network API the bridge is initialized with.
	URLRestRoot     string
	ChaincodePath   string
	ChaincodeID     string
	Key             string
	Secret          string
	SecureContext   string
	Channel         string
	NetworkID       string
	BlocksPerPage   int
	PollingInterval time.Duration
	IoTOrg          string
	IoTAPIKey       string
	IoTAuthToken    string
}

// DefaultConnection returns the starter-network connection parameters.
func DefaultConnection() Connection {
	return Connection{
		BridgeURL:       "http://localhost:3001",
		URLRestRoot:     "https://ibmblockchain-starter.ng.bluemix.net/api/v1",
		ChaincodePath:   "/chaincode",
		ChaincodeID:     "simple_contract",
		Key:             "org1",
		Secret:          "secret",
		SecureContext:   "user_context",
		Channel:         "defaultchannel",
		NetworkID:       "networkId",
		BlocksPerPage:   10,
		PollingInterval: 2000 * time.Millisecond,
	}
}

// Endpoint returns the URL chaincode requests are POSTed to.
func (c Connection) Endpoint() string { return c.BridgePath(c.ChaincodePath) }

// BridgePath joins p onto the bridge base URL.
func (c Connection) BridgePath(p string) string {
	return strings.TrimRight(c.BridgeURL, "/") + "/" + strings.TrimLeft(p, "/")
}

// Validate reports settings that would make every request fail.
func (c Connection) Validate() error {
	if strings.TrimSpace(c.BridgeURL) == "" {
		return cerrors.New(cerrors.KindConfig, "bridge_url is required")
	}
	u, err := url.Parse(c.BridgeURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return cerrors.Wrap(cerrors.KindConfig, "bridge_url must be an absolute URL", err)
	}
	if strings.TrimSpace(c.ChaincodeID) == "" {
		return cerrors.New(cerrors.KindConfig, "chaincode_id is required")
	}
	if c.PollingInterval <= 0 {
		return cerrors.New(cerrors.KindConfig, "polling interval must be positive")
	}
	return nil
}

// Redacted returns a copy safe to print or serve.
func (c Connection) Redacted() Connection {
	if c.Secret != "" {
		c.Secret = "***"
	}
	if c.IoTAuthToken != "" {
		c.IoTAuthToken = "***"
	}
	return c
}

// Settings returns the persisted half of c.
func (c Connection) Settings() ConnectionSettings {
	return ConnectionSettings{
		BridgeURL:         c.BridgeURL,
		URLRestRoot:       c.URLRestRoot,
		ChaincodePath:     c.ChaincodePath,
		ChaincodeID:       c.ChaincodeID,
		SecureContext:     c.SecureContext,
		Channel:           c.Channel,
		NetworkID:         c.NetworkID,
		BlocksPerPage:     c.BlocksPerPage,
		PollingIntervalMS: int(c.PollingInterval / time.Millisecond),
		IoTOrg:            c.IoTOrg,
		IoTAPIKey:         c.IoTAPIKey,
	}
}

// WithSettings returns c with every persisted field taken from s verbatim,
// keeping c's secrets. Unlike ConnectionSettings.Connection it applies no
// defaults, so Validate sees exactly what the caller asked for.
func (c Connection) WithSettings(s ConnectionSettings) Connection {
	c.BridgeURL = s.BridgeURL
	c.URLRestRoot = s.URLRestRoot
	c.ChaincodePath = s.ChaincodePath
	c.ChaincodeID = s.ChaincodeID
	c.SecureContext = s.SecureContext
	c.Channel = s.Channel
	c.NetworkID = s.NetworkID
	c.BlocksPerPage = s.BlocksPerPage
	c.PollingInterval = time.Duration(s.PollingIntervalMS) * time.Millisecond
	c.IoTOrg = s.IoTOrg
	c.IoTAPIKey = s.IoTAPIKey
	return c
}

// Connection combines persisted settings with secrets loaded elsewhere.
// Zero-valued fields fall back to DefaultConnection.
func (s ConnectionSettings) Connection(key, secret, iotToken string) Connection {
	d := DefaultConnection()
	c := Connection{
		BridgeURL:       pick(s.BridgeURL, d.BridgeURL),
		URLRestRoot:     pick(s.URLRestRoot, d.URLRestRoot),
		ChaincodePath:   pick(s.ChaincodePath, d.ChaincodePath),
		ChaincodeID:     pick(s.ChaincodeID, d.ChaincodeID),
		Key:             pick(key, d.Key),
		Secret:          pick(secret, d.Secret),
		SecureContext:   pick(s.SecureContext, d.SecureContext),
		Channel:         pick(s.Channel, d.Channel),
		NetworkID:       pick(s.NetworkID, d.NetworkID),
		BlocksPerPage:   s.BlocksPerPage,
		PollingInterval: time.Duration(s.PollingIntervalMS) * time.Millisecond,
		IoTOrg:          s.IoTOrg,
		IoTAPIKey:       s.IoTAPIKey,
		IoTAuthToken:    iotToken,
	}
	if c.BlocksPerPage <= 0 {
		c.BlocksPerPage = d.BlocksPerPage
	}
	if c.PollingInterval <= 0 {
		c.PollingInterval = d.PollingInterval
	}
	return c
}

func pick(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// Store holds the current Connection. Read never blocks; Replace swaps the
// whole value so a caller that already called Read keeps its snapshot.
type Store struct {
	cur atomic.Pointer[Connection]

	mu    sync.Mutex
	hooks []func(prev, next Connection)
}

// NewStore returns a store seeded with initial.
func NewStore(initial Connection) *Store {
	s := &Store{}
	c := initial
	s.cur.Store(&c)
	return s
}

// Read returns a snapshot of the current connection.
func (s *Store) Read() Connection {
	return *s.cur.Load()
}

// Replace validates next and installs it wholesale, then runs OnReplace hooks.
func (s *Store) Replace(next Connection) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	c := next
	prev := s.cur.Swap(&c)
	hooks := append([]func(prev, next Connection){}, s.hooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		h(*prev, next)
	}
	return nil
}

// OnReplace registers fn to run after every successful Replace.
func (s *Store) OnReplace(fn func(prev, next Connection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}
