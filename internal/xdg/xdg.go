// Package xdg resolves XDG Base Directory paths for ccmonitor.
// Config holds settings.json-style files; state holds the result journal and
// rotated logs. Both directories are created private (0700) on first use.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// AppName names the per-user directories.
const AppName = "ccmonitor"

// ConfigDir returns the XDG config directory for ccmonitor.
// It falls back to ~/.config/ccmonitor when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for ccmonitor.
// It falls back to ~/.local/state/ccmonitor when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func resolve(envVar, homeRel string) (string, error) {
	base := os.Getenv(envVar)
	if base == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
