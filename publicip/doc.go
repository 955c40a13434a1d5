// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package publicip determines the address at which the bridge's
// webhook endpoint is reachable from the internet. The pub/sub
// subscription is registered against this address, so a wrong answer
// means the confirmation request never arrives.
//
// [Source] is the lookup interface. [HTTP] asks a plain-text echo
// service (api.ipify.org by default) what address the request came
// from. [STUN] sends a binding request to a public STUN server and
// reads the XOR-MAPPED-ADDRESS from the answer, which works without
// any HTTP infrastructure and survives echo service outages. [Chain]
// tries sources in order and returns the first success.
//
// When the operator already knows the public address (static IP,
// DNS-managed host), [Fixed] short-circuits discovery entirely.
package publicip
