// Package flowstore defines the Flow definition CRUD collaborator.
// Persistence of flow definitions is explicitly out of scope for this
// core; only the read interface the Flow Executor depends on lives
// here.
package flowstore

import (
	"context"

	"rssflow/internal/domain/option"
)

// FlowStep is one node in a Flow's linear pipeline.
type FlowStep struct {
	Type    string      `json:"type"`
	Options *option.Bag `json:"options"`
}

// Flow is a named, ordered list of steps.
type Flow struct {
	Nodes []FlowStep `json:"nodes"`
}

// Store is the out-of-scope collaborator: a key(name)->Flow lookup.
// CRUD/authoring of flow definitions lives outside this core.
type Store interface {
	Get(ctx context.Context, name string) (*Flow, error)
}

// ErrNotFound is returned by a Store implementation when name is
// unknown.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "flow not found" }
