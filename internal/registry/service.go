package registry

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"rssflow/internal/nodesvc"
	"rssflow/internal/observability/tracing"
)

// RegisterRequest is the self-registration RPC request a node issues
// at startup (an alternative discovery path to the Poller pinging
// nodes itself).
type RegisterRequest struct {
	Node nodesvc.NodeMeta `json:"node"`
}

// RegisterResponse acknowledges a Register call.
type RegisterResponse struct{}

// GetNodeRequest looks up a single node by name.
type GetNodeRequest struct {
	Name string `json:"name"`
}

// GetNodeResponse carries the node if found.
type GetNodeResponse struct {
	Node *nodesvc.NodeMeta `json:"node,omitempty"`
}

// ListNodesResponse carries every currently registered node.
type ListNodesResponse struct {
	Nodes []nodesvc.NodeMeta `json:"nodes"`
}

// HeartbeatRequest refreshes a node's liveness.
type HeartbeatRequest struct {
	Node nodesvc.NodeMeta `json:"node"`
}

// HeartbeatResponse acknowledges a Heartbeat call.
type HeartbeatResponse struct{}

// Service implements the registry RPC surface (Register, GetNode,
// ListNodes, Heartbeat) over a Registry.
type Service struct {
	reg *Registry
}

// NewService wraps reg as a Service.
func NewService(reg *Registry) *Service {
	return &Service{reg: reg}
}

// Register upserts node, identical to Heartbeat — both are idempotent
// "this node is alive at this address" assertions.
func (s *Service) Register(_ context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	s.reg.Upsert(req.Node)
	return &RegisterResponse{}, nil
}

// Heartbeat refreshes a node's entry.
func (s *Service) Heartbeat(_ context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error) {
	s.reg.Upsert(req.Node)
	return &HeartbeatResponse{}, nil
}

// GetNode looks up a single node.
func (s *Service) GetNode(_ context.Context, req *GetNodeRequest) (*GetNodeResponse, error) {
	if m, ok := s.reg.Get(req.Name); ok {
		return &GetNodeResponse{Node: &m}, nil
	}
	return &GetNodeResponse{}, nil
}

// ListNodes returns every registered node.
func (s *Service) ListNodes(_ context.Context, _ *struct{}) (*ListNodesResponse, error) {
	return &ListNodesResponse{Nodes: s.reg.List()}, nil
}

const registryServiceName = "rssflow.registry.Registry"

func registerHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RegisterRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Service).Register(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: registryServiceName + "/Register"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(*Service).Register(ctx, req.(*RegisterRequest))
	})
}

func heartbeatHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HeartbeatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Service).Heartbeat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: registryServiceName + "/Heartbeat"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(*Service).Heartbeat(ctx, req.(*HeartbeatRequest))
	})
}

func getNodeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetNodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Service).GetNode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: registryServiceName + "/GetNode"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(*Service).GetNode(ctx, req.(*GetNodeRequest))
	})
}

func listNodesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(struct{})
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Service).ListNodes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: registryServiceName + "/ListNodes"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(*Service).ListNodes(ctx, req.(*struct{}))
	})
}

// ServiceDesc is the hand-written equivalent of protoc-gen-go-grpc
// output for the registry's RPC surface.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: registryServiceName,
	HandlerType: (*Service)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: registerHandler},
		{MethodName: "Heartbeat", Handler: heartbeatHandler},
		{MethodName: "GetNode", Handler: getNodeHandler},
		{MethodName: "ListNodes", Handler: listNodesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "registry",
}

// Serve starts the registry gRPC server on lis.
func Serve(svc *Service, lis net.Listener, opts ...grpc.ServerOption) *grpc.Server {
	allOpts := append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(tracing.UnaryServerInterceptor)}, opts...)
	srv := grpc.NewServer(allOpts...)
	srv.RegisterService(&ServiceDesc, svc)
	go func() { _ = srv.Serve(lis) }()
	return srv
}
