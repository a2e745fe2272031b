// Package flowexec implements the Flow Executor: it sequences node
// Process calls for a named flow and produces the final Atom feed.
package flowexec

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rssflow/internal/domain/feed"
	"rssflow/internal/domain/payload"
	"rssflow/internal/flowstore"
	"rssflow/internal/nodesvc"
	"rssflow/internal/registry"
)

// ErrUnprocessableEntity is returned when a step references a node
// type with no live instance in the registry snapshot.
var ErrUnprocessableEntity = errors.New("flowexec: node type has no live instance")

// ErrFlowNotFound is returned when the named flow is unknown.
var ErrFlowNotFound = errors.New("flowexec: flow not found")

// Dialer opens a pooled client for a node address. Production code
// uses a *ClientPool (pool.go); tests substitute a fake.
type Dialer interface {
	Client(address string) (*nodesvc.Client, error)
}

// Executor runs flows per client request for GET /flow/{name}.
type Executor struct {
	Flows    flowstore.Store
	Registry *registry.Registry
	Dialer   Dialer
}

// New builds an Executor.
func New(flows flowstore.Store, reg *registry.Registry, dialer Dialer) *Executor {
	return &Executor{Flows: flows, Registry: reg, Dialer: dialer}
}

// Result is the outcome of a successful flow run. Feed is nil when the
// flow produced no final payload ("absent final payload returns empty
// success").
type Result struct {
	Feed *feed.Feed
}

// Run executes the named flow against a fresh per-request payload,
// returning the final Feed or a typed error. Callers map the error to
// an HTTP status via StatusCode.
func (e *Executor) Run(ctx context.Context, name string) (*Result, error) {
	flow, err := e.Flows.Get(ctx, name)
	if err != nil {
		if errors.Is(err, flowstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, name)
		}
		return nil, status.Errorf(codes.Internal, "load flow %q: %v", name, err)
	}

	snapshot := e.Registry.Snapshot()

	var current *payload.Payload
	for _, step := range flow.Nodes {
		meta, ok := snapshot[step.Type]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnprocessableEntity, step.Type)
		}

		client, err := e.Dialer.Client(meta.Address)
		if err != nil {
			return nil, status.Errorf(codes.Unavailable, "dial node %s: %v", step.Type, err)
		}

		resp, err := client.Process(ctx, step.Type, &nodesvc.ProcessRequest{
			Payload: current,
			Options: step.Options,
		})
		if err != nil {
			return nil, err
		}
		current = resp.Payload
	}

	if current == nil {
		return &Result{}, nil
	}

	f, err := payload.Decode[feed.Feed](current, payload.TypeURLFeed)
	if err != nil {
		return nil, err
	}
	return &Result{Feed: &f}, nil
}

// StatusCode maps a flow execution error to the HTTP status it should
// produce: NotFound/InvalidArgument -> 422, Unavailable/
// Internal -> 500, ErrUnprocessableEntity -> 422, unknown flow name ->
// 404.
func StatusCode(err error) int {
	if err == nil {
		return 200
	}
	if errors.Is(err, ErrFlowNotFound) {
		return 404
	}
	if errors.Is(err, ErrUnprocessableEntity) {
		return 422
	}
	st, ok := status.FromError(err)
	if !ok {
		return 500
	}
	switch st.Code() {
	case codes.NotFound, codes.InvalidArgument:
		return 422
	default:
		return 500
	}
}
