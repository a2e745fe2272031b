package registry

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"rssflow/internal/nodesvc"
	"rssflow/internal/observability/tracing"
	"rssflow/internal/resilience/retry"
)

// Client dials the registry daemon's RPC surface.
type Client struct {
	conn *grpc.ClientConn
}

// Dial opens a connection to the registry at registryURL (e.g.
// "rssflow:50051").
func Dial(registryURL string) (*Client, error) {
	conn, err := grpc.NewClient(
		registryURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(nodesvc.CodecName)),
		grpc.WithChainUnaryInterceptor(tracing.UnaryClientInterceptor),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Register issues a Register RPC.
func (c *Client) Register(ctx context.Context, node nodesvc.NodeMeta) error {
	return c.conn.Invoke(ctx, "/"+registryServiceName+"/Register", &RegisterRequest{Node: node}, new(RegisterResponse))
}

// Heartbeat issues a Heartbeat RPC.
func (c *Client) Heartbeat(ctx context.Context, node nodesvc.NodeMeta) error {
	return c.conn.Invoke(ctx, "/"+registryServiceName+"/Heartbeat", &HeartbeatRequest{Node: node}, new(HeartbeatResponse))
}

// GetNode issues a GetNode RPC.
func (c *Client) GetNode(ctx context.Context, name string) (*nodesvc.NodeMeta, error) {
	resp := new(GetNodeResponse)
	if err := c.conn.Invoke(ctx, "/"+registryServiceName+"/GetNode", &GetNodeRequest{Name: name}, resp); err != nil {
		return nil, err
	}
	return resp.Node, nil
}

// ListNodes issues a ListNodes RPC.
func (c *Client) ListNodes(ctx context.Context) ([]nodesvc.NodeMeta, error) {
	resp := new(ListNodesResponse)
	if err := c.conn.Invoke(ctx, "/"+registryServiceName+"/ListNodes", &struct{}{}, resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// RegisterWithRetry reports node to the registry at startup, retrying
// unconditionally per retry.RegistrationConfig (3 attempts, fixed 2s
// backoff) before giving up. Unlike
// retry.WithBackoff, every failure is retried regardless of its
// classification — at startup the registry itself may simply not be
// listening yet, which IsRetryable's network-error heuristics don't
// reliably cover for gRPC status errors.
func RegisterWithRetry(ctx context.Context, c *Client, node nodesvc.NodeMeta) error {
	cfg := retry.RegistrationConfig()
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lastErr = c.Register(ctx, node); lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		select {
		case <-time.After(cfg.InitialDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
