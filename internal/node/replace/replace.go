// Package replace implements the Replace node: substring replacement
// on a chosen entry field, fanned out across entries.
package replace

import (
	"context"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"rssflow/internal/domain/feed"
	"rssflow/internal/domain/option"
	"rssflow/internal/domain/payload"
	"rssflow/internal/nodesvc"
)

// Name is this node's declared node-type name.
const Name = "replace"

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

type options struct {
	field    string
	old, new string
}

func parseOptions(opts *option.Bag) (options, error) {
	var o options
	var err error
	o.field, err = opts.GetEnum("field", feed.FieldDomain)
	if err != nil {
		return o, err
	}
	if o.old, err = opts.GetRequiredString("old"); err != nil {
		return o, err
	}
	if o.new, err = opts.GetRequiredString("new"); err != nil {
		return o, err
	}
	return o, nil
}

// Process implements nodesvc.Handler. Entries are processed in
// parallel bounded by runtime.GOMAXPROCS(0) (the Go proxy for an
// available-parallelism bound) and reassembled by index to preserve
// order, using the same semaphore+errgroup idiom as the rest of this
// codebase's fan-out processing.
func (n *Node) Process(ctx context.Context, req *nodesvc.ProcessRequest) (*nodesvc.ProcessResponse, error) {
	o, err := parseOptions(req.GetOptions())
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

			value := f.Entries[i].FieldValue(o.field)
			f.Entries[i].SetFieldValue(o.field, strings.ReplaceAll(value, o.old, o.new))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nodesvc.ErrInternalf("replace: %v", err)
	}

	out, err := payload.Encode(f, payload.TypeURLFeed)
	if err != nil {
		return nil, err
	}
	return &nodesvc.ProcessResponse{Payload: out}, nil
}
