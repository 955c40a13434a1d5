// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog provides atomic marker file operations for tracking
// process restarts. A process writes a watchdog [State] before
// replacing itself via exec(); the next incarnation reads the state on
// startup to learn that it exists because of a self-heal restart, and
// why.
//
// The intended workflow for the bridge's dead-channel self-heal:
//
//  1. The heartbeat supervisor decides the delivery channel is dead.
//     It calls [Write] with the reason and the last send/receive
//     timestamps, then exec()s the same binary.
//  2. The fresh process calls [Check] during startup. A recent marker
//     means the previous incarnation restarted itself; the process
//     logs the recorded reason and calls [Clear].
//  3. A marker older than the caller's maximum age is ignored: it was
//     left behind by a crash between Write and exec, or by an
//     unrelated earlier restart, and describes nothing about this
//     startup.
//
// The marker file is written atomically (write to temporary file,
// fsync, rename into place, fsync parent directory) so readers never
// see a partial or corrupt state. It is serialized as JSON so an
// operator can read it with cat when the daemon is down.
//
// This package has no dependencies on other Hearth packages.
package watchdog
