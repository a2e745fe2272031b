package websub

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"rssflow/internal/nodesvc"
	"rssflow/internal/observability/tracing"
)

// SubscribeRequest is the RPC the Fetch node issues fire-and-forget
// when it discovers a WebSub hub.
type SubscribeRequest struct {
	Topic string           `json:"topic"`
	Hub   string           `json:"hub"`
	Node  nodesvc.NodeMeta `json:"node"`
}

// SubscribeResponse reports whether a new subscription row was
// created.
type SubscribeResponse struct {
	NewSubscription bool `json:"new_subscription"`
}

// Service exposes the Subscriber's Subscribe operation over gRPC.
type Service struct {
	sub *Subscriber
}

// NewService wraps sub as a Service.
func NewService(sub *Subscriber) *Service {
	return &Service{sub: sub}
}

// Subscribe implements the RPC.
func (s *Service) Subscribe(ctx context.Context, req *SubscribeRequest) (*SubscribeResponse, error) {
	isNew, err := s.sub.Subscribe(ctx, req.Topic, req.Hub, req.Node)
	if err != nil {
		return nil, err
	}
	return &SubscribeResponse{NewSubscription: isNew}, nil
}

const serviceName = "rssflow.websub.WebSub"

func subscribeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SubscribeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Service).Subscribe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/Subscribe"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(*Service).Subscribe(ctx, req.(*SubscribeRequest))
	})
}

// ServiceDesc is the hand-written equivalent of protoc-gen-go-grpc
// output for the WebSub Subscriber's RPC surface.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Service)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Subscribe", Handler: subscribeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "websub",
}

// Serve starts the WebSub Subscriber's gRPC server on lis.
func Serve(svc *Service, lis net.Listener, opts ...grpc.ServerOption) *grpc.Server {
	allOpts := append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(tracing.UnaryServerInterceptor)}, opts...)
	srv := grpc.NewServer(allOpts...)
	srv.RegisterService(&ServiceDesc, svc)
	go func() { _ = srv.Serve(lis) }()
	return srv
}
