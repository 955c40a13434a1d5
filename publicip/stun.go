// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package publicip

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/pion/stun/v3"
)

// DefaultSTUNServer is the binding server queried when STUN.Server is
// empty.
const DefaultSTUNServer = "stun.l.google.com:19302"

// Compile-time interface check.
var _ Source = (*STUN)(nil)

// STUN resolves the public address with an RFC 5389 binding request.
// The server reflects the source address it saw the request from in
// the XOR-MAPPED-ADDRESS attribute.
type STUN struct {
	// Server is the STUN server in host:port form. Empty means
	// DefaultSTUNServer.
	Server string
}

// Lookup sends the binding request and returns the mapped address.
func (s *STUN) Lookup(ctx context.Context) (netip.Addr, error) {
	server := s.Server
	if server == "" {
		server = DefaultSTUNServer
	}

	conn, err := (&net.Dialer{}).DialContext(ctx, "udp4", server)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("publicip: dialing STUN server %s: %w", server, err)
	}

	client, err := stun.NewClient(conn)
	if err != nil {
		conn.Close()
		return netip.Addr{}, fmt.Errorf("publicip: creating STUN client: %w", err)
	}
	defer client.Close()

	// Close the client when the context ends so a silent server
	// cannot hold Lookup past the caller's deadline.
	stopWatch := context.AfterFunc(ctx, func() { client.Close() })
	defer stopWatch()

	var addr netip.Addr
	var bindErr error
	request := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	err = client.Do(request, func(event stun.Event) {
		if event.Error != nil {
			bindErr = event.Error
			return
		}
		var mapped stun.XORMappedAddress
		if err := mapped.GetFrom(event.Message); err != nil {
			bindErr = fmt.Errorf("no XOR-MAPPED-ADDRESS in response: %w", err)
			return
		}
		parsed, ok := netip.AddrFromSlice(mapped.IP)
		if !ok {
			bindErr = fmt.Errorf("unparseable mapped address %v", mapped.IP)
			return
		}
		addr = parsed.Unmap()
	})
	if err != nil {
		return netip.Addr{}, fmt.Errorf("publicip: STUN binding request to %s: %w", server, err)
	}
	if bindErr != nil {
		return netip.Addr{}, fmt.Errorf("publicip: STUN binding request to %s: %w", server, bindErr)
	}
	return addr, nil
}
