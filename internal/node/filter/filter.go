// Package filter implements the Filter node: it retains or drops
// entries by matching a chosen field against a contains/regex
// predicate, optionally inverted.
package filter

import (
	"context"
	"regexp"
	"strings"

	"rssflow/internal/domain/feed"
	"rssflow/internal/domain/option"
	"rssflow/internal/domain/payload"
	"rssflow/internal/nodesvc"
)

// Name is this node's declared node-type name, checked against x-node
// by the nodesvc gate.
const Name = "filter"

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

type predicate struct {
	field   string
	invert  bool
	match   func(value string) bool
}

func parseOptions(opts *option.Bag) (predicate, error) {
	var p predicate
	var err error
	p.field, err = opts.GetEnum("field", feed.FieldDomain)
	if err != nil {
		return p, err
	}

	p.invert, _, err = opts.GetBool("invert")
	if err != nil {
		return p, err
	}

	contains, hasContains, err := opts.GetString("contains")
	if err != nil {
		return p, err
	}
	pattern, hasRegex, err := opts.GetString("regex")
	if err != nil {
		return p, err
	}

	switch {
	case hasContains && hasRegex:
		return p, nodesvc.ErrInvalidArgument("exactly one of contains or regex is required")
	case hasContains:
		p.match = func(value string) bool { return strings.Contains(value, contains) }
	case hasRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return p, nodesvc.ErrInvalidArgument("invalid regex: %v", err)
		}
		p.match = re.MatchString
	default:
		return p, nodesvc.ErrInvalidArgument("exactly one of contains or regex is required")
	}
	return p, nil
}

// Process implements nodesvc.Handler.
func (n *Node) Process(ctx context.Context, req *nodesvc.ProcessRequest) (*nodesvc.ProcessResponse, error) {
	p, err := parseOptions(req.GetOptions())
	if err != nil {
		return nil, err
	}

	f, err := payload.TryFromRequest[feed.Feed](req, payload.TypeURLFeed)
	if err != nil {
		return nil, err
	}

	kept := make([]feed.Entry, 0, len(f.Entries))
	for _, e := range f.Entries {
		value := e.FieldValue(p.field)
		if p.match(value) != p.invert {
			kept = append(kept, e)
		}
	}
	f.Entries = kept

	out, err := payload.Encode(f, payload.TypeURLFeed)
	if err != nil {
		return nil, err
	}
	return &nodesvc.ProcessResponse{Payload: out}, nil
}
