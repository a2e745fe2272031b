package flowstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// StaticStore loads a fixed set of flow definitions from a JSON file at
// startup and serves Get against the in-memory result. It implements
// Store's read-only surface only; there is deliberately no Put/Delete
// here (flow authoring is out of scope), which is why this lives next
// to the Store interface rather than in its own package.
type StaticStore struct {
	flows map[string]*Flow
}

// NewStaticStore reads path, a JSON object of {name: {nodes: [...]}},
// and returns a Store backed by the decoded map.
func NewStaticStore(path string) (*StaticStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flowstore: read %s: %w", path, err)
	}
	var flows map[string]*Flow
	if err := json.Unmarshal(data, &flows); err != nil {
		return nil, fmt.Errorf("flowstore: decode %s: %w", path, err)
	}
	return &StaticStore{flows: flows}, nil
}

func (s *StaticStore) Get(_ context.Context, name string) (*Flow, error) {
	f, ok := s.flows[name]
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}
