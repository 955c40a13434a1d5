// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hearth-home/hearth/lib/clock"
	"github.com/hearth-home/hearth/lib/process"
	"github.com/hearth-home/hearth/portmap"
	"github.com/hearth-home/hearth/publicip"
	"github.com/hearth-home/hearth/skill"
	"github.com/hearth-home/hearth/sns"
)

// State is the bridge's position in the subscription lifecycle.
type State int32

const (
	// StateUnsubscribed means no subscription exists: before Subscribe
	// and after Shutdown completes.
	StateUnsubscribed State = iota

	// StatePendingConfirmation means the Subscribe API call went out
	// and the bridge is waiting for the SubscriptionConfirmation
	// callback on its webhook.
	StatePendingConfirmation

	// StateConfirmed means the subscription handshake completed and
	// the heartbeat supervisor is running.
	StateConfirmed

	// StateShuttingDown means Shutdown has started tearing the
	// subscription down.
	StateShuttingDown
)

// String returns the state name used in logs and status reports.
func (s State) String() string {
	switch s {
	case StateUnsubscribed:
		return "unsubscribed"
	case StatePendingConfirmation:
		return "pending-confirmation"
	case StateConfirmed:
		return "confirmed"
	case StateShuttingDown:
		return "shutting-down"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// atomicState wraps an atomic.Int32 with the State type. Confirmation
// callbacks race with duplicate deliveries and with shutdown, so every
// transition is a single atomic operation.
type atomicState struct {
	value atomic.Int32
}

func (a *atomicState) Load() State   { return State(a.value.Load()) }
func (a *atomicState) Store(s State) { a.value.Store(int32(s)) }
func (a *atomicState) CompareAndSwap(from, to State) bool {
	return a.value.CompareAndSwap(int32(from), int32(to))
}

// Endpoint is the public address the webhook is reachable at after
// port exposure. URL is what gets subscribed to the topic.
type Endpoint struct {
	IP   string
	Port uint16
	URL  string
}

// Config holds everything a Bridge needs. TopicARN, SNS, Mapper, and
// PublicIP are required; the rest defaults sensibly.
type Config struct {
	// TopicARN is the pub/sub topic to subscribe to and publish
	// heartbeat pings on.
	TopicARN string

	// SNS is the topic's API client.
	SNS *sns.Client

	// Mapper exposes the webhook port through the local gateway.
	Mapper portmap.Mapper

	// PublicIP discovers the address external callers reach us at.
	// Consulted only when the mapper cannot report the gateway's WAN
	// address itself.
	PublicIP publicip.Source

	// Listen is the webhook listen address. Default ":8080"; ":0"
	// binds an ephemeral port.
	Listen string

	// ExternalPort is the gateway-side port to request. Zero asks for
	// the same number as the bound internal port.
	ExternalPort uint16

	// PingInterval is the heartbeat publish interval. The delivery
	// channel is declared dead after 2x this long without a received
	// ping. Default DefaultPingInterval.
	PingInterval time.Duration

	// DispatchTimeout bounds a single skill invocation. Default
	// DefaultDispatchTimeout.
	DispatchTimeout time.Duration

	// Skills resolves notification handler names. If nil, an empty
	// registry is used and the bridge runs heartbeat-only.
	Skills *skill.Registry

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// Clock supplies time. If nil, the real clock is used. Tests
	// inject clock.Fake.
	Clock clock.Clock

	// Restart replaces the process when the delivery channel dies. If
	// nil, process.Restart re-execs the current binary. A successful
	// call never returns.
	Restart func() error

	// WatchdogPath is where the restart marker file is written before
	// a self-initiated restart. Empty disables the marker.
	WatchdogPath string
}

// Bridge owns the webhook listener, the port mapping, the topic
// subscription, and the heartbeat supervisor. Create with New, drive
// with Run.
type Bridge struct {
	topicARN        string
	sns             *sns.Client
	mapper          portmap.Mapper
	publicIP        publicip.Source
	listenAddr      string
	externalPort    uint16
	pingInterval    time.Duration
	dispatchTimeout time.Duration
	skills          *skill.Registry
	logger          *slog.Logger
	clock           clock.Clock
	restart         func() error
	watchdogPath    string

	// bridgeID identifies this process incarnation in ping messages
	// and the status report.
	bridgeID  string
	startedAt time.Time

	state   atomicState
	stopped atomic.Bool

	// runCtx lives from New until Shutdown. Webhook callbacks and the
	// heartbeat run on it rather than on per-request contexts: SNS
	// closes the connection as soon as it has our 200, which would
	// cancel a request-scoped context mid-confirmation.
	runCtx    context.Context
	runCancel context.CancelFunc

	// fatal carries the first unrecoverable error to Run. Later
	// fatals are logged and dropped.
	fatal chan error

	server        *webhookServer
	serverStarted bool
	serverDone    chan struct{}

	hb               heartbeatClock
	heartbeatStarted atomic.Bool
	heartbeatDone    chan struct{}

	// mu guards the fields below. They are written on the startup and
	// confirmation paths and read by the status report and shutdown.
	mu              sync.Mutex
	mapping         portmap.Mapping
	hasMapping      bool
	endpoint        Endpoint
	subscriptionARN string
	lastPingID      string
}

const (
	// subscribeProtocol is the SNS delivery protocol for the webhook.
	// The bridge terminates plain HTTP; TLS, if any, belongs to a
	// fronting proxy.
	subscribeProtocol = "http"

	// mappingDescription labels the forwarding entry in the gateway's
	// table.
	mappingDescription = "hearth webhook"

	// shutdownTimeout bounds the SNS teardown calls during Shutdown.
	shutdownTimeout = 10 * time.Second
)

// New validates the configuration and returns an unstarted Bridge.
func New(config Config) (*Bridge, error) {
	if config.TopicARN == "" {
		return nil, fmt.Errorf("bridge: TopicARN is required")
	}
	if config.SNS == nil {
		return nil, fmt.Errorf("bridge: SNS client is required")
	}
	if config.Mapper == nil {
		return nil, fmt.Errorf("bridge: Mapper is required")
	}
	if config.PublicIP == nil {
		return nil, fmt.Errorf("bridge: PublicIP source is required")
	}
	if config.Listen == "" {
		config.Listen = ":8080"
	}
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.DispatchTimeout <= 0 {
		config.DispatchTimeout = DefaultDispatchTimeout
	}
	if config.Skills == nil {
		config.Skills = skill.NewRegistry()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Restart == nil {
		config.Restart = func() error { return process.Restart(nil) }
	}

	b := &Bridge{
		topicARN:        config.TopicARN,
		sns:             config.SNS,
		mapper:          config.Mapper,
		publicIP:        config.PublicIP,
		listenAddr:      config.Listen,
		externalPort:    config.ExternalPort,
		pingInterval:    config.PingInterval,
		dispatchTimeout: config.DispatchTimeout,
		skills:          config.Skills,
		logger:          config.Logger,
		clock:           config.Clock,
		restart:         config.Restart,
		watchdogPath:    config.WatchdogPath,
		bridgeID:        uuid.NewString(),
		fatal:           make(chan error, 1),
		serverDone:      make(chan struct{}),
		heartbeatDone:   make(chan struct{}),
	}
	b.startedAt = b.clock.Now()
	b.runCtx, b.runCancel = context.WithCancel(context.Background())
	return b, nil
}

// State returns the bridge's current lifecycle state.
func (b *Bridge) State() State {
	return b.state.Load()
}

// Run subscribes and then blocks until ctx is canceled or an internal
// fatal error occurs (confirmation failure, listener failure, failed
// restart). Either way the subscription is torn down before Run
// returns; the fatal error, if any, is returned.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Subscribe(ctx); err != nil {
		b.Shutdown()
		return err
	}

	select {
	case <-ctx.Done():
		b.logger.Info("shutdown requested")
		b.Shutdown()
		return nil
	case err := <-b.fatal:
		b.logger.Error("fatal error, shutting down", "error", err)
		b.Shutdown()
		return err
	}
}

// Subscribe brings the webhook online and subscribes it to the topic:
// bind the listener, expose the port through the gateway, determine
// the public address, and issue the Subscribe API call. On return the
// bridge is PendingConfirmation, waiting for SNS to post the
// confirmation to the webhook.
//
// Any failure here is fatal to startup: a bridge that cannot be
// reached from the topic can never confirm, so limping on would only
// hide the problem.
func (b *Bridge) Subscribe(ctx context.Context) error {
	b.server = newWebhookServer(b.listenAddr, &webhookHandler{
		topicARN:       b.topicARN,
		logger:         b.logger,
		onConfirmation: b.confirmSubscription,
		onNotification: b.handleNotification,
	}, b.logger)

	serveResult := make(chan error, 1)
	b.mu.Lock()
	b.serverStarted = true
	b.mu.Unlock()
	go func() {
		err := b.server.Serve(b.runCtx)
		serveResult <- err
		if err != nil {
			b.reportFatal(err)
		}
		close(b.serverDone)
	}()

	select {
	case <-b.server.Ready():
	case err := <-serveResult:
		if err != nil {
			return err
		}
		return fmt.Errorf("bridge: webhook listener stopped before becoming ready")
	}

	tcpAddr, ok := b.server.Addr().(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("bridge: unexpected listener address type %T", b.server.Addr())
	}
	internalPort := uint16(tcpAddr.Port)

	mapping, err := b.mapper.Acquire(ctx, portmap.MappingRequest{
		InternalPort: internalPort,
		ExternalPort: b.externalPort,
		Protocol:     portmap.ProtocolTCP,
		Description:  mappingDescription,
	})
	if err != nil {
		return fmt.Errorf("bridge: acquiring port mapping for %d: %w", internalPort, err)
	}
	b.mu.Lock()
	b.mapping = mapping
	b.hasMapping = true
	b.mu.Unlock()
	b.logger.Info("port mapping acquired",
		"internal_port", mapping.InternalPort,
		"external_port", mapping.ExternalPort,
		"external_ip", mapping.ExternalIP,
	)

	publicAddr, err := b.publicAddress(ctx, mapping)
	if err != nil {
		return fmt.Errorf("bridge: determining public address: %w", err)
	}

	endpoint := Endpoint{
		IP:   publicAddr.String(),
		Port: mapping.ExternalPort,
		URL:  "http://" + net.JoinHostPort(publicAddr.String(), strconv.Itoa(int(mapping.ExternalPort))) + "/",
	}
	b.mu.Lock()
	b.endpoint = endpoint
	b.mu.Unlock()

	// PendingConfirmation goes in before the Subscribe call is issued:
	// SNS may post the confirmation the instant it processes the
	// request, and the confirm path must never observe Unsubscribed.
	b.state.Store(StatePendingConfirmation)

	subscriptionARN, err := b.sns.Subscribe(ctx, b.topicARN, subscribeProtocol, endpoint.URL)
	if err != nil {
		return fmt.Errorf("bridge: subscribing %s to %s: %w", endpoint.URL, b.topicARN, err)
	}
	b.logger.Info("subscription requested",
		"topic_arn", b.topicARN,
		"endpoint", endpoint.URL,
		"subscription_arn", subscriptionARN,
	)
	return nil
}

// publicAddress resolves the address to advertise in the subscription
// URL. The gateway's own WAN report wins when the mapper provides
// one; otherwise the configured discovery source is consulted.
func (b *Bridge) publicAddress(ctx context.Context, mapping portmap.Mapping) (netip.Addr, error) {
	if mapping.ExternalIP != "" {
		addr, err := netip.ParseAddr(mapping.ExternalIP)
		if err == nil {
			return addr, nil
		}
		b.logger.Warn("gateway reported unparseable external ip, falling back to discovery",
			"external_ip", mapping.ExternalIP, "error", err)
	}
	addr, err := b.publicIP.Lookup(ctx)
	if err != nil {
		return netip.Addr{}, err
	}
	b.logger.Info("public address discovered", "ip", addr.String())
	return addr, nil
}

// confirmSubscription completes the subscription handshake. Invoked
// from the webhook when a SubscriptionConfirmation arrives. Only the
// first delivery acts; SNS retries confirmations like any other
// message, and duplicates are logged and skipped.
func (b *Bridge) confirmSubscription(topicARN, token string) {
	if topicARN != b.topicARN {
		b.reportFatal(fmt.Errorf("bridge: confirmation for topic %s, configured topic is %s", topicARN, b.topicARN))
		return
	}
	if !b.state.CompareAndSwap(StatePendingConfirmation, StateConfirmed) {
		b.logger.Info("duplicate subscription confirmation skipped", "state", b.State())
		return
	}

	subscriptionARN, err := b.sns.ConfirmSubscription(b.runCtx, topicARN, token)
	if err != nil {
		b.reportFatal(fmt.Errorf("bridge: confirming subscription: %w", err))
		return
	}

	b.mu.Lock()
	b.subscriptionARN = subscriptionARN
	b.mu.Unlock()

	// The confirmation itself proves the channel works right now.
	// Seed lastReceived so the dead check measures from here, not
	// from the zero time.
	b.hb.MarkReceived(b.clock.Now())

	if b.heartbeatStarted.CompareAndSwap(false, true) {
		go b.heartbeatLoop(b.runCtx)
	}

	b.logger.Info("subscription confirmed", "subscription_arn", subscriptionARN)
}

// handleNotification feeds a delivered notification through the
// dispatcher. Invoked from the webhook after the 200 has gone out;
// outcomes are logged, never returned, since there is nobody left to
// return them to.
func (b *Bridge) handleNotification(message string) {
	result := b.dispatch(b.runCtx, message)
	b.logDispatch(result)
}

// Shutdown removes the subscription and the port mapping, then stops
// the webhook listener and joins the heartbeat goroutine. Idempotent;
// only the first call acts. Teardown errors are logged and swallowed,
// a half-failed shutdown must still release everything it can.
func (b *Bridge) Shutdown() {
	if !b.stopped.CompareAndSwap(false, true) {
		return
	}
	b.state.Store(StateShuttingDown)
	b.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	b.Unsubscribe(ctx)

	// Stopping runCtx stops the HTTP server and the heartbeat loop.
	b.runCancel()

	b.mu.Lock()
	serverStarted := b.serverStarted
	b.mu.Unlock()
	if serverStarted {
		<-b.serverDone
	}

	if b.heartbeatStarted.Load() {
		select {
		case <-b.heartbeatDone:
		case <-b.clock.After(heartbeatJoinTimeout):
			b.logger.Warn("heartbeat loop did not stop in time")
		}
	}

	b.state.Store(StateUnsubscribed)
	b.logger.Info("shutdown complete")
}

// Unsubscribe releases the port mapping and removes this bridge's
// subscription from the topic. Safe to call when nothing was ever
// acquired or subscribed: absence is success. Errors are logged and
// not returned; teardown continues regardless.
func (b *Bridge) Unsubscribe(ctx context.Context) {
	b.mu.Lock()
	mapping := b.mapping
	hasMapping := b.hasMapping
	b.hasMapping = false
	endpointURL := b.endpoint.URL
	b.mu.Unlock()

	if hasMapping {
		if err := b.mapper.Release(ctx, mapping); err != nil {
			b.logger.Error("releasing port mapping failed", "error", err,
				"external_port", mapping.ExternalPort)
		} else {
			b.logger.Info("port mapping released", "external_port", mapping.ExternalPort)
		}
	}

	if endpointURL == "" {
		// Startup never got far enough to subscribe.
		return
	}

	subscriptions, err := b.sns.ListSubscriptionsByTopic(ctx, b.topicARN)
	if err != nil {
		b.logger.Error("listing subscriptions during teardown failed", "error", err)
		return
	}

	for _, subscription := range subscriptions {
		if subscription.TopicARN != b.topicARN || subscription.Endpoint != endpointURL {
			continue
		}
		if !subscription.Confirmed() {
			// "pending confirmation" is not an ARN; there is nothing
			// to remove on the topic side.
			b.logger.Info("subscription never confirmed, nothing to remove")
			return
		}
		if err := b.sns.Unsubscribe(ctx, subscription.SubscriptionARN); err != nil {
			b.logger.Error("unsubscribe failed", "error", err,
				"subscription_arn", subscription.SubscriptionARN)
			return
		}
		b.logger.Info("subscription removed", "subscription_arn", subscription.SubscriptionARN)
		return
	}

	b.logger.Info("no matching subscription on topic, nothing to remove")
}

// reportFatal hands err to Run. The channel holds one error; whoever
// loses the race is logged here instead.
func (b *Bridge) reportFatal(err error) {
	select {
	case b.fatal <- err:
	default:
		b.logger.Error("fatal error after shutdown already initiated", "error", err)
	}
}
