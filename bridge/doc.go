// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge connects a home network to a cloud pub/sub topic.
//
// A [Bridge] binds a local HTTP webhook, exposes it through the
// router (portmap), subscribes the resulting public URL to an SNS
// topic, and dispatches the command notifications delivered to it to
// registered skills. Subscription confirmation is driven by the topic
// itself: SNS posts a SubscriptionConfirmation to the webhook and the
// bridge answers with a ConfirmSubscription API call.
//
// The delivery channel is supervised end to end. Once confirmed, the
// bridge publishes a ping command to its own topic every PingInterval
// and expects the ping back through the webhook. When nothing has
// round-tripped for twice the interval, the channel is declared dead
// and the process re-execs itself to rebuild the listener, the port
// mapping, and the subscription from scratch (see lib/process and
// lib/watchdog).
//
// Lifecycle: [New], then [Bridge.Run], which blocks until the context
// is canceled or a fatal error occurs and then tears the subscription
// down. States move Unsubscribed, PendingConfirmation, Confirmed, and
// finally ShuttingDown back to Unsubscribed.
package bridge
