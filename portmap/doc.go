// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package portmap exposes the bridge's webhook port through the local
// gateway so the pub/sub service can reach it from the internet.
//
// The package defines one interface: [Mapper] acquires and releases a
// port forwarding (Acquire, Release). The bridge acquires its mapping
// during startup, before subscribing, and releases it during shutdown.
// A failed acquisition is fatal for the daemon (an unreachable webhook
// endpoint can never confirm its subscription); a failed release is
// logged and otherwise ignored, since the process is exiting anyway.
//
// [UPnP] is the production implementation. It discovers an Internet
// Gateway Device over SSDP (huin/goupnp), preferring the newest WAN
// connection service the gateway offers, and issues AddPortMapping
// with an unlimited lease. The LAN-side address for the mapping is
// derived from the route to the gateway, so multi-homed hosts map the
// interface the gateway actually sees.
//
// [Static] is for gateways with a manually configured forward: Acquire
// reports the preconfigured external port without touching the
// network, and Release does nothing.
package portmap
