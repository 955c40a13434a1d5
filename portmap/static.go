// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package portmap

import "context"

// Compile-time interface check.
var _ Mapper = (*Static)(nil)

// Static is a Mapper for gateways where the forwarding rule already
// exists (configured by hand, or by infrastructure outside the
// bridge). Acquire reports the preconfigured mapping without touching
// the network; Release does nothing.
type Static struct {
	// ExternalIP is the known WAN address, if any. Empty leaves
	// discovery to the bridge's public IP sources.
	ExternalIP string
	// ExternalPort overrides the external port for every request.
	// Zero means the request's own external port (which itself
	// defaults to the internal port).
	ExternalPort uint16
}

// Acquire returns the preconfigured mapping for the request.
func (s *Static) Acquire(_ context.Context, request MappingRequest) (Mapping, error) {
	if err := request.validate(); err != nil {
		return Mapping{}, err
	}
	request = request.withDefaults()

	externalPort := s.ExternalPort
	if externalPort == 0 {
		externalPort = request.ExternalPort
	}
	return Mapping{
		ExternalIP:   s.ExternalIP,
		ExternalPort: externalPort,
		InternalPort: request.InternalPort,
		Protocol:     request.Protocol,
		Description:  request.Description,
	}, nil
}

// Release is a no-op: the rule belongs to whoever configured it.
func (s *Static) Release(context.Context, Mapping) error {
	return nil
}
