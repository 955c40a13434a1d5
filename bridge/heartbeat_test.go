// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hearth-home/hearth/lib/testutil"
	"github.com/hearth-home/hearth/lib/watchdog"
	"github.com/hearth-home/hearth/sns"
)

func TestHeartbeatClock(t *testing.T) {
	var hb heartbeatClock

	sent, received := hb.Snapshot()
	if !sent.IsZero() || !received.IsZero() {
		t.Fatalf("fresh clock = sent %v received %v, want zero values", sent, received)
	}

	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(3 * time.Second)
	hb.MarkSent(t1)
	hb.MarkReceived(t2)

	sent, received = hb.Snapshot()
	if !sent.Equal(t1) {
		t.Errorf("sent = %v, want %v", sent, t1)
	}
	if !received.Equal(t2) {
		t.Errorf("received = %v, want %v", received, t2)
	}
}

func TestHeartbeatPublishesWhileAlive(t *testing.T) {
	fix := newFixture(t)
	fix.start()
	fix.confirm()

	fix.clock.WaitForTimers(1)
	fix.clock.Advance(time.Second)
	ping := testutil.RequireReceive(t, fix.sns.publishes, 5*time.Second, "waiting for first ping")

	// The ping round-trips, so the channel stays alive.
	fix.reflectPing(ping)

	// A full interval later the supervisor publishes again instead of
	// restarting.
	fix.clock.Advance(fix.pingInterval)
	testutil.RequireReceive(t, fix.sns.publishes, 5*time.Second, "waiting for second ping")
	requireNoPublish(t, fix.sns)

	select {
	case <-fix.restarts:
		t.Fatal("restart triggered while the delivery channel was alive")
	default:
	}
}

func TestHeartbeatRestartsDeadDeliveryChannel(t *testing.T) {
	fix := newFixture(t)
	fix.start()
	fix.confirm()
	confirmedAt := fix.clock.Now()

	// First ping goes out and is never delivered back.
	fix.clock.WaitForTimers(1)
	fix.clock.Advance(time.Second)
	testutil.RequireReceive(t, fix.sns.publishes, 5*time.Second, "waiting for first ping")
	sentAt := fix.clock.Now()

	// Jump past twice the ping interval since the last delivery. The
	// next tick declares the channel dead.
	fix.clock.Advance(2*fix.pingInterval + time.Second)
	testutil.RequireReceive(t, fix.restarts, 5*time.Second, "waiting for restart")

	// The injected restart returns instead of replacing the process,
	// which the bridge treats as fatal.
	err := fix.waitRun()
	if err == nil || !strings.Contains(err.Error(), "restart returned without replacing") {
		t.Fatalf("Run returned %v, want restart failure", err)
	}
	requireNoPublish(t, fix.sns)

	// The restart marker records why the previous incarnation died.
	state, err := watchdog.Read(fix.watchdogPath)
	if err != nil {
		t.Fatalf("reading restart marker: %v", err)
	}
	if state.Component != watchdogComponent {
		t.Errorf("marker component = %q, want %q", state.Component, watchdogComponent)
	}
	if state.Reason != restartReason {
		t.Errorf("marker reason = %q, want %q", state.Reason, restartReason)
	}
	if state.PID != os.Getpid() {
		t.Errorf("marker pid = %d, want %d", state.PID, os.Getpid())
	}
	if !state.LastPingSent.Equal(sentAt) {
		t.Errorf("marker last ping sent = %v, want %v", state.LastPingSent, sentAt)
	}
	if !state.LastPingReceived.Equal(confirmedAt) {
		t.Errorf("marker last ping received = %v, want %v", state.LastPingReceived, confirmedAt)
	}
	if !state.Timestamp.Equal(fix.clock.Now()) {
		t.Errorf("marker timestamp = %v, want %v", state.Timestamp, fix.clock.Now())
	}
}

func TestHeartbeatPublishFailureRetries(t *testing.T) {
	fix := newFixture(t)
	fix.start()
	fix.confirm()
	fix.sns.setPublishErr(true)

	fix.clock.WaitForTimers(1)
	fix.clock.Advance(time.Second)

	deadline := time.Now().Add(5 * time.Second)
	for fix.sns.attemptedPublishes() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no publish attempt observed")
		}
		time.Sleep(time.Millisecond)
	}

	// The failed send leaves lastSent untouched, so the next poll tick
	// tries again.
	fix.sns.setPublishErr(false)
	fix.clock.Advance(time.Second)
	testutil.RequireReceive(t, fix.sns.publishes, 5*time.Second, "waiting for retried ping")

	select {
	case <-fix.restarts:
		t.Fatal("restart triggered by a publish failure")
	default:
	}
}

func TestForcePing(t *testing.T) {
	fix := newFixture(t)
	fix.build()

	pingID, err := fix.bridge.publishPing(context.Background())
	if err != nil {
		t.Fatalf("publishPing: %v", err)
	}
	if pingID == "" {
		t.Fatal("publishPing returned an empty id")
	}

	ping := testutil.RequireReceive(t, fix.sns.publishes, 5*time.Second, "waiting for forced ping")
	var pingBody pingMessage
	if err := json.Unmarshal([]byte(ping.message), &pingBody); err != nil {
		t.Fatalf("parsing ping payload: %v", err)
	}
	if pingBody.PingID != pingID {
		t.Errorf("published ping id = %q, want %q", pingBody.PingID, pingID)
	}

	sent, _ := fix.bridge.hb.Snapshot()
	if !sent.Equal(fix.clock.Now()) {
		t.Errorf("lastSent = %v, want %v", sent, fix.clock.Now())
	}
}

func TestCheckSubscribersFlagsEmptyTopic(t *testing.T) {
	fix := newFixture(t)
	fix.sns.addSubscription(sns.Subscription{
		TopicARN:        testTopicARN,
		Endpoint:        "http://" + testPublicIP + ":8080/",
		SubscriptionARN: sns.PendingConfirmation,
	})
	fix.build()

	var logs bytes.Buffer
	fix.bridge.logger = slog.New(slog.NewTextHandler(&logs, nil))

	fix.bridge.checkSubscribers(context.Background())
	if !strings.Contains(logs.String(), "no confirmed subscriptions") {
		t.Errorf("log output %q missing the empty-topic warning", logs.String())
	}

	// A confirmed subscription silences the warning.
	logs.Reset()
	fix.sns.addSubscription(sns.Subscription{
		TopicARN:        testTopicARN,
		Endpoint:        "http://" + testPublicIP + ":8080/",
		SubscriptionARN: testTopicARN + ":22223333-4444-5555-6666-777788889999",
	})
	fix.bridge.checkSubscribers(context.Background())
	if strings.Contains(logs.String(), "no confirmed subscriptions") {
		t.Errorf("empty-topic warning logged despite a confirmed subscription: %q", logs.String())
	}
}
