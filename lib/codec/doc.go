// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Hearth's standard CBOR encoding configuration.
//
// Hearth uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: the SNS Query API envelope, webhook
//     notification payloads, command messages handed to skills, the
//     restart marker file, and CLI output.
//   - CBOR for the internal control protocol: the Unix socket between
//     hearth-bridge and hearth-ctl.
//
// This package provides the shared CBOR encoding and decoding modes so
// that both ends of the control socket encode identically without
// duplicating configuration. The encoder uses Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer encoding,
// no indefinite-length items. Same logical data always produces
// identical bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (the control socket):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. It never
//     appears in JSON output. Example: the control socket
//     request/response envelope.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor` tags
//     are absent, so a single `json` tag controls field naming and
//     omitempty for both formats. Example: control action results,
//     which hearth-ctl re-encodes as JSON for display.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract.
package codec
