// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package publicip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
)

// Source resolves the host's public address.
type Source interface {
	// Lookup returns the public address. Implementations respect the
	// context's deadline for all network traffic.
	Lookup(ctx context.Context) (netip.Addr, error)
}

// Fixed is a Source that always returns a configured address. Used
// when the operator passes an explicit public IP.
type Fixed struct {
	Addr netip.Addr
}

// Compile-time interface checks.
var (
	_ Source = Fixed{}
	_ Source = (*Chain)(nil)
)

// Lookup returns the configured address.
func (f Fixed) Lookup(context.Context) (netip.Addr, error) {
	if !f.Addr.IsValid() {
		return netip.Addr{}, fmt.Errorf("publicip: fixed address not set")
	}
	return f.Addr, nil
}

// Chain tries each source in order and returns the first success.
// Individual failures are logged at warn level; if every source
// fails, the joined errors are returned.
type Chain struct {
	// Sources in preference order.
	Sources []Source
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Lookup runs the chain.
func (c *Chain) Lookup(ctx context.Context) (netip.Addr, error) {
	if len(c.Sources) == 0 {
		return netip.Addr{}, fmt.Errorf("publicip: no sources configured")
	}

	var errs []error
	for _, source := range c.Sources {
		addr, err := source.Lookup(ctx)
		if err != nil {
			c.logger().Warn("public IP source failed", "error", err)
			errs = append(errs, err)
			continue
		}
		return addr, nil
	}
	return netip.Addr{}, fmt.Errorf("publicip: all sources failed: %w", errors.Join(errs...))
}

func (c *Chain) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
