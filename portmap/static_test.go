// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package portmap

import (
	"context"
	"testing"
)

func TestStaticAcquire(t *testing.T) {
	t.Run("defaults to request ports", func(t *testing.T) {
		mapper := &Static{}
		mapping, err := mapper.Acquire(context.Background(), MappingRequest{InternalPort: 8080})
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if mapping.ExternalPort != 8080 {
			t.Errorf("ExternalPort = %d, want 8080", mapping.ExternalPort)
		}
		if mapping.Protocol != ProtocolTCP {
			t.Errorf("Protocol = %q, want TCP", mapping.Protocol)
		}
		if mapping.ExternalIP != "" {
			t.Errorf("ExternalIP = %q, want empty when unconfigured", mapping.ExternalIP)
		}
	})

	t.Run("configured override", func(t *testing.T) {
		mapper := &Static{ExternalIP: "198.51.100.4", ExternalPort: 443}
		mapping, err := mapper.Acquire(context.Background(), MappingRequest{InternalPort: 8080})
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if mapping.ExternalPort != 443 {
			t.Errorf("ExternalPort = %d, want the configured 443", mapping.ExternalPort)
		}
		if mapping.ExternalIP != "198.51.100.4" {
			t.Errorf("ExternalIP = %q", mapping.ExternalIP)
		}
		if mapping.InternalPort != 8080 {
			t.Errorf("InternalPort = %d, want 8080", mapping.InternalPort)
		}
	})

	t.Run("invalid request", func(t *testing.T) {
		mapper := &Static{}
		if _, err := mapper.Acquire(context.Background(), MappingRequest{}); err == nil {
			t.Error("expected error for zero internal port")
		}
	})
}

func TestStaticRelease(t *testing.T) {
	mapper := &Static{}
	if err := mapper.Release(context.Background(), Mapping{ExternalPort: 8080, Protocol: ProtocolTCP}); err != nil {
		t.Errorf("Release should be a no-op, got: %v", err)
	}
}
