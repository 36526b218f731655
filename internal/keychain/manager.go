// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for ccmonitor.
// It stores the bridge credentials, the IoT platform token and the history
// database DSN in the OS credential store; nothing secret is written to the
// config file.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("keychain: item not found")

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "ccmonitor"

// Keys used for storing secrets in the OS keychain.
const (
	KeyBridgeKey    = "bridge_key"
	KeyBridgeSecret = "bridge_secret"
	KeyIoTToken     = "iot_auth_token"
	KeyHistoryDSN   = "history_dsn"
)

var credentialKeys = []string{KeyBridgeKey, KeyBridgeSecret, KeyIoTToken}

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// NewWithKeyring wraps an already opened keyring (tests use keyring.NewArrayKeyring).
func NewWithKeyring(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the global keychain manager instance.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	globalManager, globalError = NewManager()
	if globalError != nil {
		globalManager = nil
		return nil, globalError
	}
	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only; there is no file fallback.
func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on this OS")
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
		KWalletAppID:    ServiceName,
		KWalletFolder:   ServiceName,
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "linux" {
			return nil, errors.New("no secret service available. Install gnome-keyring, kwallet or 'pass', or use CCMONITOR_KEY/CCMONITOR_SECRET")
		}
		return nil, err
	}
	return ring, nil
}

// Save stores value under key. This method is thread-safe.
func (m *Manager) Save(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

// Load returns the value stored under key, or ErrNotFound.
// This method is thread-safe.
func (m *Manager) Load(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, err := m.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if len(it.Data) == 0 {
		return "", ErrNotFound
	}
	return string(it.Data), nil
}

// Clear removes key; a missing key is not an error.
func (m *Manager) Clear(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// SaveHistoryDSN stores the history database DSN.
func (m *Manager) SaveHistoryDSN(dsn string) error { return m.Save(KeyHistoryDSN, dsn) }

// LoadHistoryDSN retrieves the history database DSN.
func (m *Manager) LoadHistoryDSN() (string, error) { return m.Load(KeyHistoryDSN) }

// ClearCredentials removes bridge key, secret and IoT token.
func (m *Manager) ClearCredentials() error {
	for _, k := range credentialKeys {
		if err := m.Clear(k); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll removes all secrets from the keychain.
func (m *Manager) ClearAll() error {
	if err := m.ClearCredentials(); err != nil {
		return err
	}
	return m.Clear(KeyHistoryDSN)
}
