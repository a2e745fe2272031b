package nodesvc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// MetaNodeKey is the request metadata field carrying the expected
// node-type name, checked by the node-identity gate in service.go.
const MetaNodeKey = "x-node"

// WithNodeName returns a context carrying outgoing gRPC metadata with
// x-node set to name, merging with any metadata already present.
func WithNodeName(ctx context.Context, name string) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	md.Set(MetaNodeKey, name)
	return metadata.NewOutgoingContext(ctx, md)
}

// IncomingNodeName extracts x-node from incoming request metadata, if
// present.
func IncomingNodeName(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	vs := md.Get(MetaNodeKey)
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}
