// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package skill routes bridge commands to their handlers.
//
// A [Skill] handles one kind of command arriving over the webhook:
// HandleCommand receives the room, the command verb, and the free-form
// data object from the notification. The [Registry] maps handler names
// to skills; the bridge resolves the notification's handler_name
// against it and invokes the match.
//
// [Script] is the deployable skill kind: it runs a configured argv,
// feeding the command payload as JSON on stdin, so handlers can be
// shell scripts or any executable without linking against the bridge.
// [LoadManifest] builds a registry from a skills.jsonc file (JSON with
// comments and trailing commas). [Func] adapts a plain function for
// in-process handlers.
package skill
