package registry

import (
	"context"
	"net"
)

// netResolver adapts *net.Resolver to the Resolver interface.
type netResolver struct {
	r net.Resolver
}

func (n *netResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return n.r.LookupHost(ctx, host)
}
