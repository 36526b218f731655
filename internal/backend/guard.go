// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"time"

	cerrors "ccmonitor/cli/internal/errors"

	"github.com/eapache/go-resiliency/breaker"
	"go.uber.org/ratelimit"
)

// GuardOptions configure a Guard. Zero values disable the corresponding feature.
type GuardOptions struct {
	RatePerSecond    int
	BreakerErrors    int
	BreakerSuccesses int
	BreakerTimeout   time.Duration
}

// Guard rate-limits outbound calls and trips a circuit breaker on repeated
// transport failures. Application errors are successful round trips and do
// not count against the breaker.
type Guard struct {
	limiter ratelimit.Limiter
	breaker *breaker.Breaker
}

// NewGuard builds a guard from opts.
func NewGuard(opts GuardOptions) *Guard {
	g := &Guard{limiter: ratelimit.NewUnlimited()}
	if opts.RatePerSecond > 0 {
		g.limiter = ratelimit.New(opts.RatePerSecond)
	}
	if opts.BreakerErrors > 0 {
		successes := opts.BreakerSuccesses
		if successes <= 0 {
			successes = 1
		}
		timeout := opts.BreakerTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		g.breaker = breaker.New(opts.BreakerErrors, successes, timeout)
	}
	return g
}

// Do runs call under the limiter and breaker.
func (g *Guard) Do(ctx context.Context, call func() error) error {
	if err := ctx.Err(); err != nil {
		return cerrors.Wrap(cerrors.KindTransport, "request cancelled", err)
	}
	g.limiter.Take()
	if g.breaker == nil {
		return call()
	}

	var appErr error
	err := g.breaker.Run(func() error {
		err := call()
		if cerrors.Is(err, cerrors.KindApplication) {
			appErr = err
			return nil
		}
		return err
	})
	if err == breaker.ErrBreakerOpen {
		return cerrors.Wrap(cerrors.KindTransport, "bridge unavailable", err)
	}
	if err != nil {
		return err
	}
	return appErr
}
