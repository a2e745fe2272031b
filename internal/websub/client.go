package websub

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"rssflow/internal/nodesvc"
	"rssflow/internal/observability/tracing"
)

// Client dials the WebSub Subscriber's RPC surface, used by the Fetch
// node to hand off a discovered hub.
type Client struct {
	conn *grpc.ClientConn
}

// Dial opens a connection to the WebSub Subscriber at address.
func Dial(address string) (*Client, error) {
	conn, err := grpc.NewClient(
		address,
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

// Subscribe issues a fire-and-forget Subscribe RPC on behalf of node.
func (c *Client) Subscribe(ctx context.Context, topic, hub string, node nodesvc.NodeMeta) (bool, error) {
	resp := new(SubscribeResponse)
	req := &SubscribeRequest{Topic: topic, Hub: hub, Node: node}
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/Subscribe", req, resp); err != nil {
		return false, err
	}
	return resp.NewSubscription, nil
}
