// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package sns is a client for the Amazon SNS Query API, covering the
// five operations the bridge needs: Subscribe, ConfirmSubscription,
// Unsubscribe, Publish, and ListSubscriptionsByTopic.
//
// The client speaks the Query protocol directly: form-encoded POST
// requests signed with Signature Version 4, XML responses. Structured
// API errors surface as *APIError, testable with errors.As or the
// IsNotFound/IsInvalidParameter/IsThrottled helpers.
//
// The BaseURL override points the client at anything that speaks the
// same protocol, such as a local emulator or an httptest server.
// Signing still happens against the override host, so a verifying
// emulator works too.
package sns
