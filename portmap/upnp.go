// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package portmap

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/huin/goupnp/dcps/internetgateway2"
)

// Compile-time interface check.
var _ Mapper = (*UPnP)(nil)

// DefaultDiscoveryTimeout bounds the SSDP search for an internet
// gateway. Gateways answer within a second or two on a healthy LAN;
// the generous bound covers sleepy consumer routers.
const DefaultDiscoveryTimeout = 10 * time.Second

// igdClient is the subset of the generated WAN connection clients the
// mapper uses. WANIPConnection1, WANIPConnection2, and
// WANPPPConnection1 all satisfy it.
type igdClient interface {
	AddPortMappingCtx(ctx context.Context, remoteHost string, externalPort uint16, protocol string, internalPort uint16, internalClient string, enabled bool, description string, leaseDuration uint32) error
	DeletePortMappingCtx(ctx context.Context, remoteHost string, externalPort uint16, protocol string) error
	GetExternalIPAddressCtx(ctx context.Context) (string, error)
}

// gateway is a discovered IGD service endpoint plus the LAN-side
// address this host uses to reach it.
type gateway struct {
	client  igdClient
	service string
	localIP string
}

// UPnP maps ports on the LAN's internet gateway via the IGD protocol.
// The zero value is usable; discovery runs on first Acquire or Release
// and the discovered gateway is reused for the mapper's lifetime.
type UPnP struct {
	// DiscoveryTimeout bounds gateway discovery. Zero means
	// DefaultDiscoveryTimeout.
	DiscoveryTimeout time.Duration
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	mu      sync.Mutex
	gateway *gateway

	// discoverFunc is replaced in tests to avoid the network.
	discoverFunc func(ctx context.Context) (*gateway, error)
}

// Acquire discovers the gateway (first call only) and adds a port
// mapping with an unlimited lease. The gateway's WAN address fills
// Mapping.ExternalIP when the gateway reports one; failure to read it
// is logged and leaves ExternalIP empty.
func (u *UPnP) Acquire(ctx context.Context, request MappingRequest) (Mapping, error) {
	if err := request.validate(); err != nil {
		return Mapping{}, err
	}
	request = request.withDefaults()

	gw, err := u.connect(ctx)
	if err != nil {
		return Mapping{}, err
	}

	err = gw.client.AddPortMappingCtx(ctx, "", request.ExternalPort, request.Protocol,
		request.InternalPort, gw.localIP, true, request.Description, 0)
	if err != nil {
		return Mapping{}, fmt.Errorf("portmap: adding %s mapping %d -> %s:%d: %w",
			request.Protocol, request.ExternalPort, gw.localIP, request.InternalPort, err)
	}

	mapping := Mapping{
		ExternalPort: request.ExternalPort,
		InternalPort: request.InternalPort,
		Protocol:     request.Protocol,
		Description:  request.Description,
	}

	externalIP, err := gw.client.GetExternalIPAddressCtx(ctx)
	if err != nil {
		u.logger().Warn("gateway did not report its external address", "error", err)
	} else {
		mapping.ExternalIP = externalIP
	}

	u.logger().Info("port mapping added",
		"service", gw.service,
		"protocol", mapping.Protocol,
		"external_port", mapping.ExternalPort,
		"internal", fmt.Sprintf("%s:%d", gw.localIP, mapping.InternalPort),
		"external_ip", mapping.ExternalIP)
	return mapping, nil
}

// Release removes the mapping from the gateway.
func (u *UPnP) Release(ctx context.Context, mapping Mapping) error {
	gw, err := u.connect(ctx)
	if err != nil {
		return err
	}
	if err := gw.client.DeletePortMappingCtx(ctx, "", mapping.ExternalPort, mapping.Protocol); err != nil {
		return fmt.Errorf("portmap: deleting %s mapping %d: %w", mapping.Protocol, mapping.ExternalPort, err)
	}
	u.logger().Info("port mapping removed", "protocol", mapping.Protocol, "external_port", mapping.ExternalPort)
	return nil
}

// connect returns the cached gateway, discovering it on first use.
func (u *UPnP) connect(ctx context.Context) (*gateway, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.gateway != nil {
		return u.gateway, nil
	}

	timeout := u.DiscoveryTimeout
	if timeout == 0 {
		timeout = DefaultDiscoveryTimeout
	}
	discoverCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	discover := u.discoverFunc
	if discover == nil {
		discover = discoverGateway
	}
	gw, err := discover(discoverCtx)
	if err != nil {
		return nil, err
	}
	u.logger().Info("internet gateway discovered", "service", gw.service, "local_ip", gw.localIP)
	u.gateway = gw
	return gw, nil
}

func (u *UPnP) logger() *slog.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return slog.Default()
}

// discoverGateway searches the LAN for an IGD WAN connection service,
// preferring the newest service generation. Routers in PPP bridge
// mode expose WANPPPConnection instead of WANIPConnection, so all
// three are tried.
func discoverGateway(ctx context.Context) (*gateway, error) {
	if clients, _, err := internetgateway2.NewWANIPConnection2ClientsCtx(ctx); err == nil && len(clients) > 0 {
		client := clients[0]
		return newGateway(client, "WANIPConnection:2", client.Location.Host)
	}
	if clients, _, err := internetgateway2.NewWANIPConnection1ClientsCtx(ctx); err == nil && len(clients) > 0 {
		client := clients[0]
		return newGateway(client, "WANIPConnection:1", client.Location.Host)
	}
	if clients, _, err := internetgateway2.NewWANPPPConnection1ClientsCtx(ctx); err == nil && len(clients) > 0 {
		client := clients[0]
		return newGateway(client, "WANPPPConnection:1", client.Location.Host)
	}
	return nil, fmt.Errorf("portmap: no internet gateway found (is UPnP enabled on the router?)")
}

func newGateway(client igdClient, service, gatewayHost string) (*gateway, error) {
	localIP, err := localAddressFor(gatewayHost)
	if err != nil {
		return nil, err
	}
	return &gateway{client: client, service: service, localIP: localIP}, nil
}

// localAddressFor returns the source address the kernel picks for
// traffic to the gateway. Dialing UDP sends no packets; it only
// resolves the route.
func localAddressFor(gatewayHost string) (string, error) {
	conn, err := net.Dial("udp4", gatewayHost)
	if err != nil {
		return "", fmt.Errorf("portmap: resolving route to gateway %s: %w", gatewayHost, err)
	}
	defer conn.Close()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("portmap: unexpected local address type %T", conn.LocalAddr())
	}
	return localAddr.IP.String(), nil
}
