// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth implements persistence for bridge credentials.
//
// The bridge authenticates every chaincode call with HTTP Basic auth built from
// a key and a secret. Both live in the OS keychain via internal/keychain and can
// be overridden per process with CCMONITOR_KEY / CCMONITOR_SECRET.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"ccmonitor/cli/internal/keychain"
)

var verboseAuth = os.Getenv("CCMONITOR_VERBOSE") == "1"

// Environment overrides.
const (
	EnvKey      = "CCMONITOR_KEY"
	EnvSecret   = "CCMONITOR_SECRET"
	EnvIoTToken = "CCMONITOR_IOT_TOKEN"
)

// Source says where a credential set was resolved from.
type Source string

const (
	SourceNone     Source = "none"
	SourceEnv      Source = "environment"
	SourceKeychain Source = "keychain"
)

// Credentials authenticate requests to the bridge.
type Credentials struct {
	Key          string
	Secret       string
	IoTAuthToken string
	Source       Source
}

// Present reports whether both halves of the Basic auth pair are set.
func (c Credentials) Present() bool { return c.Key != "" && c.Secret != "" }

// SecretStore is the subset of keychain.Manager used here.
type SecretStore interface {
	Load(key string) (string, error)
	Save(key, value string) error
	Clear(key string) error
}

// Load resolves credentials: environment first, then store. A nil store means
// environment only. Missing credentials yield SourceNone and no error.
func Load(store SecretStore) (Credentials, error) {
	if k, s := strings.TrimSpace(os.Getenv(EnvKey)), strings.TrimSpace(os.Getenv(EnvSecret)); k != "" && s != "" {
		debugf("auth.Load: using %s/%s", EnvKey, EnvSecret)
		return Credentials{Key: k, Secret: s, IoTAuthToken: os.Getenv(EnvIoTToken), Source: SourceEnv}, nil
	}
	c := Credentials{Source: SourceNone}
	if store == nil {
		return c, nil
	}

	var err error
	if c.Key, err = load(store, keychain.KeyBridgeKey); err != nil {
		return c, err
	}
	if c.Secret, err = load(store, keychain.KeyBridgeSecret); err != nil {
		return c, err
	}
	if c.IoTAuthToken, err = load(store, keychain.KeyIoTToken); err != nil {
		return c, err
	}
	if c.Present() {
		c.Source = SourceKeychain
	}
	debugf("auth.Load: source=%s key_set=%v secret_set=%v", c.Source, c.Key != "", c.Secret != "")
	return c, nil
}

func load(store SecretStore, key string) (string, error) {
	v, err := store.Load(key)
	if errors.Is(err, keychain.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// Save writes key and secret (and the IoT token when set) to store.
func Save(store SecretStore, c Credentials) error {
	if !c.Present() {
		return errors.New("both key and secret are required")
	}
	if err := store.Save(keychain.KeyBridgeKey, c.Key); err != nil {
		return err
	}
	if err := store.Save(keychain.KeyBridgeSecret, c.Secret); err != nil {
		return err
	}
	if c.IoTAuthToken != "" {
		return store.Save(keychain.KeyIoTToken, c.IoTAuthToken)
	}
	return nil
}

// Clear removes stored credentials.
func Clear(store SecretStore) error {
	for _, k := range []string{keychain.KeyBridgeKey, keychain.KeyBridgeSecret, keychain.KeyIoTToken} {
		if err := store.Clear(k); err != nil {
			return err
		}
	}
	return nil
}

func debugf(format string, args ...any) {
	if verboseAuth {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}
