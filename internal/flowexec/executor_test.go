package flowexec_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"rssflow/internal/domain/feed"
	"rssflow/internal/domain/option"
	"rssflow/internal/domain/payload"
	"rssflow/internal/flowexec"
	"rssflow/internal/flowstore"
	"rssflow/internal/node/filter"
	"rssflow/internal/nodesvc"
	"rssflow/internal/registry"
)

// fixedFeedNode stands in for the Fetch node's first step: it ignores
// its request entirely and always answers with the same Feed, which is
// all scenario F's "fetch" step needs to exercise the executor.
type fixedFeedNode struct {
	meta nodesvc.NodeMeta
	feed feed.Feed
}

func (n *fixedFeedNode) Ping(context.Context) (*nodesvc.PingResponse, error) {
	return &nodesvc.PingResponse{Node: n.meta}, nil
}

func (n *fixedFeedNode) Process(context.Context, *nodesvc.ProcessRequest) (*nodesvc.ProcessResponse, error) {
	p, err := payload.Encode(n.feed, payload.TypeURLFeed)
	if err != nil {
		return nil, err
	}
	return &nodesvc.ProcessResponse{Payload: p}, nil
}

func startNode(t *testing.T, name string, h nodesvc.Handler) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv, err := nodesvc.Serve(name, h, lis)
	require.NoError(t, err)
	t.Cleanup(srv.GracefulStop)
	return lis.Addr().String()
}

type memFlowStore struct{ flows map[string]*flowstore.Flow }

func (s *memFlowStore) Get(_ context.Context, name string) (*flowstore.Flow, error) {
	f, ok := s.flows[name]
	if !ok {
		return nil, flowstore.ErrNotFound
	}
	return f, nil
}

// TestExecutor_TwoStepFlow is spec.md §8 scenario F: a flow of
// {fetch, filter} whose final Atom entries are the fetched feed's
// entries minus any whose summary contains "SNEAK PEEK".
func TestExecutor_TwoStepFlow(t *testing.T) {
	srcFeed := feed.Feed{
		ID: "urn:feed",
		Entries: []feed.Entry{
			{ID: "e1", Summary: &feed.Text{Value: "hello world", Type: "text"}},
			{ID: "e2", Summary: &feed.Text{Value: "BELOW IS A SNEAK PEEK OF THIS CONTENT!", Type: "text"}},
		},
	}

	fetchAddr := startNode(t, "fetch", &fixedFeedNode{meta: nodesvc.NodeMeta{NodeName: "fetch"}, feed: srcFeed})
	filterAddr := startNode(t, "filter", filter.New("filter:dontcare"))

	reg := registry.New()
	reg.Upsert(nodesvc.NodeMeta{NodeName: "fetch", Address: fetchAddr})
	reg.Upsert(nodesvc.NodeMeta{NodeName: "filter", Address: filterAddr})

	filterOpts, err := option.NewFromMap(map[string]any{
		"field":    1.0, // summary
		"contains": "SNEAK PEEK",
		"invert":   true,
	})
	require.NoError(t, err)

	flows := &memFlowStore{flows: map[string]*flowstore.Flow{
		"demo": {Nodes: []flowstore.FlowStep{
			{Type: "fetch"},
			{Type: "filter", Options: filterOpts},
		}},
	}}

	pool := flowexec.NewClientPool()
	t.Cleanup(func() { _ = pool.Close() })
	exec := flowexec.New(flows, reg, pool)

	result, err := exec.Run(context.Background(), "demo")
	require.NoError(t, err)
	require.NotNil(t, result.Feed)
	require.Len(t, result.Feed.Entries, 1)
	require.Equal(t, "e1", result.Feed.Entries[0].ID)
}

func TestExecutor_UnknownFlowIsNotFound(t *testing.T) {
	flows := &memFlowStore{flows: map[string]*flowstore.Flow{}}
	exec := flowexec.New(flows, registry.New(), flowexec.NewClientPool())

	_, err := exec.Run(context.Background(), "missing")
	require.ErrorIs(t, err, flowexec.ErrFlowNotFound)
	require.Equal(t, 404, flowexec.StatusCode(err))
}

func TestExecutor_UnresolvedNodeTypeIsUnprocessableEntity(t *testing.T) {
	flows := &memFlowStore{flows: map[string]*flowstore.Flow{
		"demo": {Nodes: []flowstore.FlowStep{{Type: "ghost"}}},
	}}
	exec := flowexec.New(flows, registry.New(), flowexec.NewClientPool())

	_, err := exec.Run(context.Background(), "demo")
	require.ErrorIs(t, err, flowexec.ErrUnprocessableEntity)
	require.Equal(t, 422, flowexec.StatusCode(err))
}

func TestExecutor_NoFinalPayloadIsEmptySuccess(t *testing.T) {
	addr := startNode(t, "sink", &noOutputNode{})
	reg := registry.New()
	reg.Upsert(nodesvc.NodeMeta{NodeName: "sink", Address: addr})

	flows := &memFlowStore{flows: map[string]*flowstore.Flow{
		"demo": {Nodes: []flowstore.FlowStep{{Type: "sink"}}},
	}}
	pool := flowexec.NewClientPool()
	t.Cleanup(func() { _ = pool.Close() })
	exec := flowexec.New(flows, reg, pool)

	result, err := exec.Run(context.Background(), "demo")
	require.NoError(t, err)
	require.Nil(t, result.Feed)
}

type noOutputNode struct{}

func (noOutputNode) Ping(context.Context) (*nodesvc.PingResponse, error) {
	return &nodesvc.PingResponse{Node: nodesvc.NodeMeta{NodeName: "sink"}}, nil
}

func (noOutputNode) Process(context.Context, *nodesvc.ProcessRequest) (*nodesvc.ProcessResponse, error) {
	return &nodesvc.ProcessResponse{}, nil
}
