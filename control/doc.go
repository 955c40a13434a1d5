// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package control implements the bridge's local operator interface: a
// CBOR request-response protocol over a Unix socket.
//
// Each connection carries exactly one request-response cycle. The
// client writes a [Request] (action name plus an optional payload),
// the server routes it to the handler registered for that action and
// writes a [Response], then the connection closes. CBOR is
// self-delimiting, so no framing protocol is needed.
//
// The socket file is created mode 0600: whoever can reach the daemon's
// runtime directory can inspect and poke the bridge, nobody else. The
// hearth-ctl command is the standard client.
package control
