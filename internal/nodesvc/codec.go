package nodesvc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec is a hand-rolled grpc/encoding.Codec that marshals request
// and response structs as JSON instead of protobuf wire format. The
// node services in this module are served over a hand-written
// grpc.ServiceDesc (see service.go) rather than protoc-gen-go-grpc
// output, so there is no generated proto.Message to encode; JSON over
// the gRPC framing is the simplest codec that keeps the rest of the
// grpc-go stack (codes, status, interceptors, connectivity) intact.
type jsonCodec struct{}

// Name implements encoding.Codec. Clients select this codec per-call
// via grpc.CallContentSubtype(Name()).
func (jsonCodec) Name() string { return "json" }

// Marshal implements encoding.Codec.
func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements encoding.Codec.
func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// CodecName is the content-subtype node clients must select.
const CodecName = "json"
