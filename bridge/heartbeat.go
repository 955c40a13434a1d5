// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hearth-home/hearth/lib/watchdog"
)

const (
	// DefaultPingInterval is how often the bridge publishes a
	// heartbeat ping when not configured otherwise. The delivery
	// channel is declared dead after twice this long with nothing
	// received.
	DefaultPingInterval = 600 * time.Second

	// heartbeatPollInterval is the supervisor's wakeup granularity.
	// Each wakeup checks whether a ping is due against the injected
	// clock, so this bounds reaction latency, nothing else.
	heartbeatPollInterval = 1 * time.Second

	// heartbeatJoinTimeout bounds how long Shutdown waits for the
	// supervisor goroutine to exit.
	heartbeatJoinTimeout = 5 * time.Second
)

const (
	// pingCommand is the heartbeat sentinel verb. Receivers key on
	// the command alone; no handler lookup happens for pings.
	pingCommand = "ping"

	// watchdogComponent and restartReason identify bridge-initiated
	// restarts in the watchdog marker file.
	watchdogComponent = "bridge"
	restartReason     = "delivery-dead"
)

// pingMessage is the heartbeat payload published to the topic.
// BridgeID is fixed for the life of the process and PingID is fresh
// per ping, so a send and its round-trip delivery correlate in logs.
type pingMessage struct {
	Command  string `json:"command"`
	PingID   string `json:"ping_id"`
	BridgeID string `json:"bridge_id"`
}

// heartbeatClock tracks when the last ping went out and when the last
// one came back. The supervisor goroutine stamps sends while webhook
// request goroutines stamp receipts, so both sides go through the
// mutex.
type heartbeatClock struct {
	mu           sync.Mutex
	lastSent     time.Time
	lastReceived time.Time
}

func (c *heartbeatClock) MarkSent(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSent = t
}

func (c *heartbeatClock) MarkReceived(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastReceived = t
}

func (c *heartbeatClock) Snapshot() (lastSent, lastReceived time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSent, c.lastReceived
}

// heartbeatLoop supervises the delivery channel from confirmation
// until shutdown. It wakes every second and, when a full PingInterval
// has passed since the last send, runs one supervision cycle: verify
// the topic still has a confirmed subscriber, restart the process if
// the channel has gone dead, otherwise publish the next ping.
func (b *Bridge) heartbeatLoop(ctx context.Context) {
	defer close(b.heartbeatDone)
	b.logger.Info("heartbeat supervisor started",
		"interval", b.pingInterval, "bridge_id", b.bridgeID)

	ticker := b.clock.NewTicker(heartbeatPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if b.stopped.Load() {
			return
		}
		if !b.heartbeatTick(ctx) {
			return
		}
	}
}

// heartbeatTick runs one poll step. Returns false when the loop must
// exit because a restart was initiated.
func (b *Bridge) heartbeatTick(ctx context.Context) bool {
	now := b.clock.Now()
	lastSent, lastReceived := b.hb.Snapshot()
	if !lastSent.IsZero() && now.Sub(lastSent) < b.pingInterval {
		return true
	}

	b.checkSubscribers(ctx)

	// Dead channel: a ping went out and nothing has come back through
	// the webhook for more than twice the interval. The listener, the
	// mapping, or the subscription is broken in a way we cannot see
	// from inside, so rebuild everything via re-exec.
	if !lastSent.IsZero() && now.Sub(lastReceived) > 2*b.pingInterval {
		b.logger.Error("delivery channel dead, restarting process",
			"last_ping_sent", lastSent,
			"last_ping_received", lastReceived,
			"dead_after", 2*b.pingInterval,
		)
		b.restartProcess(lastSent, lastReceived)
		return false
	}

	if _, err := b.publishPing(ctx); err != nil {
		// Transient publish failures must not kill the supervisor;
		// lastSent stays put, so the next poll retries.
		b.logger.Error("publishing heartbeat ping failed", "error", err)
	}
	return true
}

// checkSubscribers warns when the topic has no confirmed subscriber.
// Pings published to such a topic vanish, and the dead-channel
// restart will eventually fire; this log names the real cause first.
func (b *Bridge) checkSubscribers(ctx context.Context) {
	subscriptions, err := b.sns.ListSubscriptionsByTopic(ctx, b.topicARN)
	if err != nil {
		b.logger.Error("listing topic subscriptions failed", "error", err)
		return
	}
	confirmed := 0
	for _, subscription := range subscriptions {
		if subscription.Confirmed() {
			confirmed++
		}
	}
	if confirmed == 0 {
		b.logger.Error("topic has no confirmed subscriptions, deliveries cannot reach the webhook",
			"topic_arn", b.topicARN)
	}
}

// publishPing publishes one heartbeat ping and stamps lastSent. The
// control socket's ping action calls this too, which is why it
// returns the ping ID.
func (b *Bridge) publishPing(ctx context.Context) (string, error) {
	pingID := uuid.NewString()
	payload, err := json.Marshal(pingMessage{
		Command:  pingCommand,
		PingID:   pingID,
		BridgeID: b.bridgeID,
	})
	if err != nil {
		return "", fmt.Errorf("bridge: encoding ping: %w", err)
	}

	messageID, err := b.sns.Publish(ctx, b.topicARN, string(payload))
	if err != nil {
		return "", err
	}

	b.hb.MarkSent(b.clock.Now())
	b.mu.Lock()
	b.lastPingID = pingID
	b.mu.Unlock()
	b.logger.Debug("heartbeat ping published", "ping_id", pingID, "message_id", messageID)
	return pingID, nil
}

// restartProcess writes the restart marker and re-execs the current
// binary. On success nothing below the exec runs; the next
// incarnation finds the marker and logs that it self-healed. Failure
// to exec is fatal: a bridge that cannot self-heal must not keep
// pretending to supervise the channel.
func (b *Bridge) restartProcess(lastSent, lastReceived time.Time) {
	if b.watchdogPath != "" {
		state := watchdog.State{
			Component:        watchdogComponent,
			Reason:           restartReason,
			PID:              os.Getpid(),
			LastPingSent:     lastSent,
			LastPingReceived: lastReceived,
			Timestamp:        b.clock.Now(),
		}
		if err := watchdog.Write(b.watchdogPath, state); err != nil {
			b.logger.Error("writing restart marker failed",
				"path", b.watchdogPath, "error", err)
		}
	}

	if err := b.restart(); err != nil {
		b.reportFatal(fmt.Errorf("bridge: self-heal restart failed: %w", err))
		return
	}
	// Reached only with an injected restart function; syscall.Exec
	// does not return on success.
	b.reportFatal(fmt.Errorf("bridge: restart returned without replacing the process"))
}
