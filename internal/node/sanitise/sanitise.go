// Package sanitise implements the Sanitise node: HTML cleaning of a
// chosen entry field using a fixed allowlist policy.
package sanitise

import (
	"context"
	"runtime"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"rssflow/internal/domain/feed"
	"rssflow/internal/domain/payload"
	"rssflow/internal/nodesvc"
)

// Name is this node's declared node-type name.
const Name = "sanitise"

// policy is bluemonday's UGC allowlist extended to additionally permit
// the style attribute on generic elements — the de facto Go HTML
// sanitiser, adopted as the ecosystem-standard choice
// (see DESIGN.md).
var policy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("style").Globally()
	return p
}()

// Node implements nodesvc.Handler.
type Node struct {
	meta nodesvc.NodeMeta
}

// New builds a Node advertising address as its own.
func New(address string) *Node {
	return &Node{meta: nodesvc.NodeMeta{NodeName: Name, Address: address}}
}

// Ping implements nodesvc.Handler.
func (n *Node) Ping(context.Context) (*nodesvc.PingResponse, error) {
	return &nodesvc.PingResponse{Node: n.meta}, nil
}

// Process implements nodesvc.Handler, fanning out across entries with
// the same semaphore+errgroup bound as Replace.
func (n *Node) Process(ctx context.Context, req *nodesvc.ProcessRequest) (*nodesvc.ProcessResponse, error) {
	field, err := req.GetOptions().GetEnum("field", feed.FieldDomain)
	if err != nil {
		return nil, err
	}

	f, err := payload.TryFromRequest[feed.Feed](req, payload.TypeURLFeed)
	if err != nil {
		return nil, err
	}

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	eg, egCtx := errgroup.WithContext(ctx)
	for i := range f.Entries {
		i := i
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-egCtx.Done():
				return egCtx.Err()
			}
			defer func() { <-sem }()

			value := f.Entries[i].FieldValue(field)
			f.Entries[i].SetFieldValue(field, policy.Sanitize(value))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nodesvc.ErrInternalf("sanitise: %v", err)
	}

	out, err := payload.Encode(f, payload.TypeURLFeed)
	if err != nil {
		return nil, err
	}
	return &nodesvc.ProcessResponse{Payload: out}, nil
}
