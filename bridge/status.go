// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/hearth-home/hearth/control"
	"github.com/hearth-home/hearth/lib/codec"
	"github.com/hearth-home/hearth/lib/version"
)

// StatusReport is the control socket's status action payload.
// Timestamps are RFC 3339 strings, empty when the event has not
// happened yet.
type StatusReport struct {
	State               string   `json:"state"`
	TopicARN            string   `json:"topic_arn"`
	SubscriptionARN     string   `json:"subscription_arn,omitempty"`
	Endpoint            string   `json:"endpoint,omitempty"`
	BridgeID            string   `json:"bridge_id"`
	LastPingID          string   `json:"last_ping_id,omitempty"`
	LastPingSent        string   `json:"last_ping_sent,omitempty"`
	LastPingReceived    string   `json:"last_ping_received,omitempty"`
	PingIntervalSeconds int64    `json:"ping_interval_seconds"`
	Skills              []string `json:"skills"`
	UptimeSeconds       int64    `json:"uptime_seconds"`
	Version             string   `json:"version"`
}

// PingReport is the control socket's ping action payload.
type PingReport struct {
	PingID string `json:"ping_id"`
}

// SkillsReport is the control socket's skills action payload.
type SkillsReport struct {
	Skills []string `json:"skills"`
}

// RegisterControl registers the bridge's operator actions on the
// control server: status, ping, and skills.
func (b *Bridge) RegisterControl(server *control.Server) {
	server.Handle("status", func(context.Context, codec.RawMessage) (any, error) {
		return b.statusReport(), nil
	})
	server.Handle("ping", func(ctx context.Context, _ codec.RawMessage) (any, error) {
		if b.State() != StateConfirmed {
			return nil, fmt.Errorf("subscription is %s, nothing to ping through", b.State())
		}
		pingID, err := b.publishPing(ctx)
		if err != nil {
			return nil, err
		}
		return PingReport{PingID: pingID}, nil
	})
	server.Handle("skills", func(context.Context, codec.RawMessage) (any, error) {
		return SkillsReport{Skills: b.skills.Names()}, nil
	})
}

// statusReport assembles the current bridge state for operators.
func (b *Bridge) statusReport() StatusReport {
	lastSent, lastReceived := b.hb.Snapshot()
	b.mu.Lock()
	subscriptionARN := b.subscriptionARN
	endpointURL := b.endpoint.URL
	lastPingID := b.lastPingID
	b.mu.Unlock()

	report := StatusReport{
		State:               b.State().String(),
		TopicARN:            b.topicARN,
		SubscriptionARN:     subscriptionARN,
		Endpoint:            endpointURL,
		BridgeID:            b.bridgeID,
		LastPingID:          lastPingID,
		PingIntervalSeconds: int64(b.pingInterval / time.Second),
		Skills:              b.skills.Names(),
		UptimeSeconds:       int64(b.clock.Now().Sub(b.startedAt) / time.Second),
		Version:             version.Short(),
	}
	if !lastSent.IsZero() {
		report.LastPingSent = lastSent.UTC().Format(time.RFC3339)
	}
	if !lastReceived.IsZero() {
		report.LastPingReceived = lastReceived.UTC().Format(time.RFC3339)
	}
	return report
}
