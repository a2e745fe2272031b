// Package payload implements the typed Payload envelope that carries
// feed data between nodes: a (type_url, bytes) pair whose bytes are the
// canonical JSON encoding of the schema named by type_url.
package payload

import (
	"encoding/json"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Payload is the envelope crossing every node boundary.
type Payload struct {
	TypeURL string `json:"type_url"`
	Bytes   []byte `json:"bytes"`
}

// Known type URLs.
const (
	TypeURLFeed        = "rssflow.feed.Feed"
	TypeURLWebSubEvent = "rssflow.websub.WebSubEvent"
)

// WebSubEvent carries the raw body pushed by a hub, used to substitute
// a push for an HTTP fetch at the Fetch node.
type WebSubEvent struct {
	Body []byte `json:"body"`
}

var registry sync.Map // type_url -> struct{} (membership only; marshal/unmarshal go through encoding/json)

func init() {
	registry.Store(TypeURLFeed, struct{}{})
	registry.Store(TypeURLWebSubEvent, struct{}{})
}

// RegisterSchema declares that typeURL is a recognised payload schema.
// Node packages call this from init() for any schema beyond the two
// built in here, following the small per-package init-time
// registration style used throughout this codebase.
func RegisterSchema(typeURL string) {
	registry.Store(typeURL, struct{}{})
}

func known(typeURL string) bool {
	_, ok := registry.Load(typeURL)
	return ok
}

// Encode marshals v as the canonical JSON encoding of typeURL and wraps
// it in a Payload. Go's encoding/json marshals struct fields in
// declaration order, which is what makes the resulting bytes canonical
// for a given Go value.
func Encode(v any, typeURL string) (*Payload, error) {
	if !known(typeURL) {
		return nil, status.Errorf(codes.InvalidArgument, "unknown payload type %q", typeURL)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode %s: %v", typeURL, err)
	}
	return &Payload{TypeURL: typeURL, Bytes: b}, nil
}

// Decode unmarshals p.Bytes into a new T, rejecting p if its TypeURL
// does not match typeURL.
func Decode[T any](p *Payload, typeURL string) (T, error) {
	var zero T
	if p == nil {
		return zero, status.Errorf(codes.InvalidArgument, "payload is required")
	}
	if p.TypeURL != typeURL {
		return zero, status.Errorf(codes.InvalidArgument, "expected payload type %q, got %q", typeURL, p.TypeURL)
	}
	var v T
	if err := json.Unmarshal(p.Bytes, &v); err != nil {
		return zero, status.Errorf(codes.Internal, "decode %s: %v", typeURL, err)
	}
	return v, nil
}

// Request is the minimal shape TryFromRequest needs from a node's
// ProcessRequest, kept independent of the nodesvc package to avoid an
// import cycle (nodesvc depends on payload, not the reverse).
type Request interface {
	GetPayload() *Payload
}

// TryFromRequest is the single call site nodes use to pull a typed
// value out of a request's payload.
func TryFromRequest[T any](req Request, typeURL string) (T, error) {
	var zero T
	if req == nil {
		return zero, status.Errorf(codes.InvalidArgument, "request is required")
	}
	return Decode[T](req.GetPayload(), typeURL)
}
