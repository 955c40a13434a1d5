// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package portmap

import (
	"context"
	"fmt"
)

// Transport protocols a mapping can forward. These are the literal
// values the IGD AddPortMapping action accepts.
const (
	ProtocolTCP = "TCP"
	ProtocolUDP = "UDP"
)

// Mapper exposes an internal port through the local gateway. The
// bridge holds exactly one mapping for its webhook listener.
type Mapper interface {
	// Acquire exposes the requested internal port and returns the
	// resulting mapping. Blocks for gateway discovery on first use.
	Acquire(ctx context.Context, request MappingRequest) (Mapping, error)

	// Release removes a mapping previously returned by Acquire.
	Release(ctx context.Context, mapping Mapping) error
}

// MappingRequest describes the port forwarding to create.
type MappingRequest struct {
	// InternalPort is the port the bridge listens on. Required.
	InternalPort uint16
	// ExternalPort is the gateway-side port. Zero requests the same
	// number as InternalPort.
	ExternalPort uint16
	// Protocol is ProtocolTCP or ProtocolUDP. Empty means TCP.
	Protocol string
	// Description labels the mapping in the gateway's forwarding
	// table.
	Description string
}

// withDefaults returns a copy with the zero-value conventions
// resolved.
func (r MappingRequest) withDefaults() MappingRequest {
	if r.ExternalPort == 0 {
		r.ExternalPort = r.InternalPort
	}
	if r.Protocol == "" {
		r.Protocol = ProtocolTCP
	}
	return r
}

func (r MappingRequest) validate() error {
	if r.InternalPort == 0 {
		return fmt.Errorf("portmap: InternalPort is required")
	}
	if r.Protocol != ProtocolTCP && r.Protocol != ProtocolUDP {
		return fmt.Errorf("portmap: invalid protocol %q", r.Protocol)
	}
	return nil
}

// Mapping is an active port forwarding. Pass it back to Release to
// remove it.
type Mapping struct {
	// ExternalIP is the gateway's WAN address, when the provider can
	// report one. Empty otherwise; the bridge falls back to its own
	// public IP discovery.
	ExternalIP string
	// ExternalPort is the port reachable from outside.
	ExternalPort uint16
	// InternalPort is the forwarded local port.
	InternalPort uint16
	// Protocol is ProtocolTCP or ProtocolUDP.
	Protocol string
	// Description is the label recorded in the gateway.
	Description string
}
