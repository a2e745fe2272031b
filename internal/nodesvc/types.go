// Package nodesvc is the common node contract: every processing node
// (Fetch, Filter, Replace, Sanitise, Retrieve, and the WebSub
// Subscriber's fan-out target) implements Handler and is served over
// the hand-written NodeService gRPC surface defined in service.go.
package nodesvc

import (
	"context"

	"rssflow/internal/domain/option"
	"rssflow/internal/domain/payload"
)

// ProcessRequest is the request half of the node contract.
type ProcessRequest struct {
	Payload *payload.Payload `json:"payload,omitempty"`
	Options *option.Bag      `json:"options,omitempty"`
}

// GetPayload implements payload.Request so nodes can call
// payload.TryFromRequest(req, typeURL) directly.
func (r *ProcessRequest) GetPayload() *payload.Payload {
	if r == nil {
		return nil
	}
	return r.Payload
}

// GetOptions returns the request's option bag, or an empty bag if the
// request or its Options field is nil.
func (r *ProcessRequest) GetOptions() *option.Bag {
	if r == nil || r.Options == nil {
		return option.New(nil)
	}
	return r.Options
}

// ProcessResponse is the response half of the node contract.
type ProcessResponse struct {
	Payload *payload.Payload `json:"payload,omitempty"`
}

// NodeMeta identifies a live processing node and its dial-able address.
type NodeMeta struct {
	NodeName string `json:"node_name"`
	Address  string `json:"address"`
}

// PingResponse is returned by Ping, used by the registry's health poll.
type PingResponse struct {
	Node NodeMeta `json:"node"`
}

// Handler is the interface every processing node implements.
type Handler interface {
	Process(ctx context.Context, req *ProcessRequest) (*ProcessResponse, error)
	Ping(ctx context.Context) (*PingResponse, error)
}
