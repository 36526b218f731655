// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; the bridge key, secret and the
// history DSN go to the OS keychain. Values are layered by viper: built-in
// defaults, then the JSON file, then CCMONITOR_* environment variables.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"ccmonitor/cli/internal/xdg"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (CCMONITOR_LOG_LEVEL, ...).
const EnvPrefix = "CCMONITOR"

// Settings holds non-sensitive CLI settings.
type Settings struct {
	LogLevel       string             `json:"log_level" mapstructure:"log_level"`
	LogFile        string             `json:"log_file,omitempty" mapstructure:"log_file"`
	Connection     ConnectionSettings `json:"connection" mapstructure:"connection"`
	Transport      TransportSettings  `json:"transport" mapstructure:"transport"`
	Tabs           []string           `json:"tabs" mapstructure:"tabs"`
	History        HistorySettings    `json:"history" mapstructure:"history"`
	Server         ServerSettings     `json:"server" mapstructure:"server"`
	CancelInFlight bool               `json:"cancel_in_flight" mapstructure:"cancel_in_flight"`
}

// ConnectionSettings is the persisted, secret-free half of a Connection.
type ConnectionSettings struct {
	BridgeURL         string `json:"bridge_url" mapstructure:"bridge_url"`
	URLRestRoot       string `json:"url_rest_root" mapstructure:"url_rest_root"`
	ChaincodePath     string `json:"chaincode_path" mapstructure:"chaincode_path"`
	ChaincodeID       string `json:"chaincode_id" mapstructure:"chaincode_id"`
	SecureContext     string `json:"secure_context" mapstructure:"secure_context"`
	Channel           string `json:"channel" mapstructure:"channel"`
	NetworkID         string `json:"network_id" mapstructure:"network_id"`
	BlocksPerPage     int    `json:"blocks_per_page" mapstructure:"blocks_per_page"`
	PollingIntervalMS int    `json:"polling_interval_ms" mapstructure:"polling_interval_ms"`
	IoTOrg            string `json:"iot_org,omitempty" mapstructure:"iot_org"`
	IoTAPIKey         string `json:"iot_api_key,omitempty" mapstructure:"iot_api_key"`
}

// TransportSettings tunes the bridge client.
type TransportSettings struct {
	// Kind selects the wire: "http" (default) or "grpc".
	Kind             string `json:"kind" mapstructure:"kind"`
	GRPCAddress      string `json:"grpc_address,omitempty" mapstructure:"grpc_address"`
	GRPCInsecure     bool   `json:"grpc_insecure,omitempty" mapstructure:"grpc_insecure"`
	TimeoutMS        int    `json:"timeout_ms" mapstructure:"timeout_ms"`
	RatePerSecond    int    `json:"rate_per_second" mapstructure:"rate_per_second"`
	BreakerErrors    int    `json:"breaker_errors" mapstructure:"breaker_errors"`
	BreakerSuccesses int    `json:"breaker_successes" mapstructure:"breaker_successes"`
	BreakerTimeoutMS int    `json:"breaker_timeout_ms" mapstructure:"breaker_timeout_ms"`
}

// HistorySettings controls the payload journal.
type HistorySettings struct {
	Journal           string `json:"journal,omitempty" mapstructure:"journal"`
	JournalMaxMB      int    `json:"journal_max_mb" mapstructure:"journal_max_mb"`
	JournalMaxAgeDays int    `json:"journal_max_age_days" mapstructure:"journal_max_age_days"`
	Disabled          bool   `json:"disabled" mapstructure:"disabled"`
}

// ServerSettings configures `ccmonitor serve`.
type ServerSettings struct {
	Listen string `json:"listen" mapstructure:"listen"`
}

// DefaultTabs are the operation tabs the schema classifier groups functions under.
var DefaultTabs = []string{"CREATE", "REPLACE", "READ", "UPDATE", "DELETE", "EVENT", "SET"}

// Defaults returns the settings used when no file exists.
func Defaults() Settings {
	d := DefaultConnection()
	return Settings{
		LogLevel: "info",
		Connection: ConnectionSettings{
			BridgeURL:         d.BridgeURL,
			URLRestRoot:       d.URLRestRoot,
			ChaincodePath:     d.ChaincodePath,
			ChaincodeID:       d.ChaincodeID,
			SecureContext:     d.SecureContext,
			Channel:           d.Channel,
			NetworkID:         d.NetworkID,
			BlocksPerPage:     d.BlocksPerPage,
			PollingIntervalMS: int(d.PollingInterval.Milliseconds()),
		},
		Transport: TransportSettings{
			Kind:             "http",
			TimeoutMS:        10000,
			BreakerErrors:    5,
			BreakerSuccesses: 1,
			BreakerTimeoutMS: 10000,
		},
		Tabs: append([]string(nil), DefaultTabs...),
		History: HistorySettings{
			JournalMaxMB:      50,
			JournalMaxAgeDays: 14,
		},
		Server: ServerSettings{Listen: "127.0.0.1:8089"},
	}
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration from the default location; a missing file returns defaults.
func Load() (Settings, error) {
	p, err := Path()
	if err != nil {
		return Settings{}, err
	}
	return LoadFile(p)
}

// LoadFile reads configuration from p, overlaying defaults and environment.
func LoadFile(p string) (Settings, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Defaults())

	if _, err := os.Stat(p); err == nil {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, errors.Wrapf(err, "read config %s", p)
		}
	} else if !os.IsNotExist(err) {
		return Settings{}, errors.Wrapf(err, "stat config %s", p)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, errors.Wrap(err, "decode config")
	}
	if len(s.Tabs) == 0 {
		s.Tabs = append([]string(nil), DefaultTabs...)
	}
	return s, nil
}

// setDefaults registers every leaf so AutomaticEnv can resolve nested keys.
func setDefaults(v *viper.Viper, d Settings) {
	var m map[string]any
	b, _ := json.Marshal(d)
	_ = json.Unmarshal(b, &m)
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, val := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := val.(map[string]any); ok {
				walk(key, child)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", m)
	// omitempty fields still need a default so env overrides are seen
	for _, k := range []string{"log_file", "connection.iot_org", "connection.iot_api_key",
		"transport.grpc_address", "history.journal"} {
		if !v.IsSet(k) {
			v.SetDefault(k, "")
		}
	}
	if !v.IsSet("transport.grpc_insecure") {
		v.SetDefault("transport.grpc_insecure", false)
	}
}

// Save writes configuration to the default location with 0600 permissions.
func Save(s Settings) error {
	p, err := Path()
	if err != nil {
		return err
	}
	return SaveFile(p, s)
}

// SaveFile writes configuration to p with 0600 permissions.
func SaveFile(p string, s Settings) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
