// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for Hearth
// binaries:
//
//   - Fatal error reporting to stderr when the structured logger may
//     not be initialized (pre-logger), followed by process exit.
//   - Process replacement via Restart: re-invoking the same entry
//     point with the same arguments and environment. The bridge's
//     heartbeat supervisor uses this as its self-heal action when the
//     notification delivery channel goes dead.
//
// All other raw I/O in the daemon goes through the structured logger.
package process
