// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"time"

	"ccmonitor/cli/internal/config"
)

// New creates the HTTP bridge transport configured by ts.
func New(ts config.TransportSettings) *HTTP {
	return newHTTP(time.Duration(ts.TimeoutMS)*time.Millisecond, NewGuard(GuardFromSettings(ts)))
}

// GuardFromSettings maps persisted transport settings onto guard options.
func GuardFromSettings(ts config.TransportSettings) GuardOptions {
	return GuardOptions{
		RatePerSecond:    ts.RatePerSecond,
		BreakerErrors:    ts.BreakerErrors,
		BreakerSuccesses: ts.BreakerSuccesses,
		BreakerTimeout:   time.Duration(ts.BreakerTimeoutMS) * time.Millisecond,
	}
}
