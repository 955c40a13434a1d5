// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package publicip

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/hearth-home/hearth/lib/netutil"
)

// DefaultEchoURL is the echo service queried when HTTP.URL is empty.
// The service returns the caller's address as a bare text body.
const DefaultEchoURL = "https://api.ipify.org"

// Compile-time interface check.
var _ Source = (*HTTP)(nil)

// HTTP resolves the public address by asking an IP echo service.
type HTTP struct {
	// URL of the echo service. Empty means DefaultEchoURL.
	URL string
	// HTTPClient is used for the request. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
}

// Lookup performs the echo request and parses the returned address.
func (h *HTTP) Lookup(ctx context.Context) (netip.Addr, error) {
	echoURL := h.URL
	if echoURL == "" {
		echoURL = DefaultEchoURL
	}
	httpClient := h.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, echoURL, nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("publicip: creating echo request: %w", err)
	}

	response, err := httpClient.Do(request)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("publicip: echo request to %s failed: %w", echoURL, err)
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("publicip: reading echo response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("publicip: %s returned %d", echoURL, response.StatusCode)
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(string(body)))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("publicip: %s returned an unparseable address: %w", echoURL, err)
	}
	return addr, nil
}
