package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rssflow/internal/nodesvc"
)

// PollInterval is the fixed discovery cadence for DNS-based node polling.
const PollInterval = 5 * time.Second

// Resolver resolves a service-discovery name to dial-able addresses.
// Implemented by *net.Resolver in production (LookupHost); swappable
// in tests.
type Resolver interface {
	LookupHost(ctx context.Context, host string) (addrs []string, err error)
}

// Dialer opens a nodesvc.Client against address and pings it. Split
// out from Poller so tests can substitute a fake without a real
// listening gRPC server.
type Dialer interface {
	DialAndPing(ctx context.Context, address string) (nodesvc.PingResponse, error)
}

// grpcDialer is the production Dialer: dials with nodesvc.Dial, calls
// Ping, and always closes the connection afterward (the poller only
// needs identity, not a pooled connection).
type grpcDialer struct{}

func (grpcDialer) DialAndPing(ctx context.Context, address string) (nodesvc.PingResponse, error) {
	c, err := nodesvc.Dial(address)
	if err != nil {
		return nodesvc.PingResponse{}, err
	}
	defer c.Close()
	resp, err := c.Ping(ctx)
	if err != nil {
		return nodesvc.PingResponse{}, err
	}
	return *resp, nil
}

// Poller periodically resolves discoveryName, dials every resolved
// address, pings it, and upserts the returned NodeMeta into reg.
type Poller struct {
	Registry      *Registry
	Resolver      Resolver
	Dialer        Dialer
	DiscoveryName string
	Port          string // port appended to each resolved host for dialing
	Interval      time.Duration
}

// NewPoller builds a Poller with the production resolver/dialer and
// the default 5s interval.
func NewPoller(reg *Registry, discoveryName, port string) *Poller {
	return &Poller{
		Registry:      reg,
		Resolver:      &netResolver{},
		Dialer:        grpcDialer{},
		DiscoveryName: discoveryName,
		Port:          port,
		Interval:      PollInterval,
	}
}

// Run polls until ctx is cancelled. Intended to be run in its own
// goroutine from process start.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = PollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	addrs, err := p.Resolver.LookupHost(ctx, p.DiscoveryName)
	if err != nil {
		slog.Warn("node discovery lookup failed",
			slog.String("name", p.DiscoveryName),
			slog.Any("error", err))
		return
	}
	for _, host := range addrs {
		addr := host
		if p.Port != "" {
			addr = fmt.Sprintf("%s:%s", host, p.Port)
		}
		pingResp, err := p.Dialer.DialAndPing(ctx, addr)
		if err != nil {
			slog.Warn("node ping failed",
				slog.String("address", addr),
				slog.Any("error", err))
			continue
		}
		p.Registry.Upsert(pingResp.Node)
	}
}
