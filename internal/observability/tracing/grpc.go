package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// metadataCarrier adapts grpc/metadata.MD to otel/propagation.TextMapCarrier
// so W3C trace context can be injected/extracted at the gRPC boundary the
// same way Middleware does it for HTTP headers. No contrib package in the
// retrieval pack (no otelgrpc dependency anywhere in it), so this is
// hand-written against otel/propagation directly.
type metadataCarrier metadata.MD

func (c metadataCarrier) Get(key string) string {
	vs := metadata.MD(c).Get(key)
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func (c metadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

func (c metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// UnaryServerInterceptor extracts W3C trace context from incoming gRPC
// metadata and starts a server span wrapping the call, mirroring
// Middleware's HTTP behaviour.
func UnaryServerInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, metadataCarrier(md))

	ctx, span := tracer.Start(ctx, info.FullMethod, trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	resp, err := handler(ctx, req)
	if err != nil {
		span.RecordError(err)
	}
	return resp, err
}

// UnaryClientInterceptor injects the current span's trace context into
// outbound gRPC metadata before invoking the call, applied uniformly at
// every RPC boundary (registry, node-to-node, subscriber-to-node).
func UnaryClientInterceptor(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	ctx, span := tracer.Start(ctx, method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	otel.GetTextMapPropagator().Inject(ctx, metadataCarrier(md))
	ctx = metadata.NewOutgoingContext(ctx, md)

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err != nil {
		span.RecordError(err)
	}
	return err
}
