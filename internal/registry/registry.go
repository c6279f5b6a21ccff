// Package registry holds the hawker-to-data-source mappings consulted at
// prediction time.
package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/model"
)

// Registry resolves hawker ids to their data-source mappings.
type Registry interface {
	Get(id string) (model.HawkerMapping, bool)
	// IDs returns every registered id in sorted order.
	IDs() []string
	All() map[string]model.HawkerMapping
	Replace(mappings map[string]model.HawkerMapping) error
}

// Memory is an in-memory Registry. Replace swaps the whole table at once so
// readers never observe a partial update.
type Memory struct {
	mappings map[string]model.HawkerMapping
	mu       sync.RWMutex
}

// NewMemory creates a registry seeded with mappings.
func NewMemory(mappings map[string]model.HawkerMapping) (*Memory, error) {
	m := &Memory{mappings: map[string]model.HawkerMapping{}}
	if err := m.Replace(mappings); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns a copy of the mapping for id.
func (m *Memory) Get(id string) (model.HawkerMapping, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, ok := m.mappings[id]
	if !ok {
		return model.HawkerMapping{}, false
	}
	return mapping.Clone(), true
}

// IDs returns the registered ids in sorted order.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.mappings))
}

// All returns a deep copy of the table.
func (m *Memory) All() map[string]model.HawkerMapping {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return cloneAll(m.mappings)
}

// Replace validates and installs a new table.
func (m *Memory) Replace(mappings map[string]model.HawkerMapping) error {
	if err := Validate(mappings); err != nil {
		return err
	}

	next := cloneAll(mappings)

	m.mu.Lock()
	m.mappings = next
	m.mu.Unlock()
	return nil
}

// Validate rejects blank ids and mappings without a name.
func Validate(mappings map[string]model.HawkerMapping) error {
	for id, mapping := range mappings {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: hawker id cannot be empty", common.ErrInvalidArgument)
		}
		if strings.TrimSpace(mapping.Name) == "" {
			return fmt.Errorf("%w: hawker %s has no name", common.ErrInvalidArgument, id)
		}
	}
	return nil
}

type empty struct{}

// Empty returns a registry with no entries that rejects updates. It lets a
// predictor run before any mappings exist.
func Empty() Registry {
	return empty{}
}

func (empty) Get(string) (model.HawkerMapping, bool) { return model.HawkerMapping{}, false }
func (empty) IDs() []string                          { return nil }
func (empty) All() map[string]model.HawkerMapping    { return map[string]model.HawkerMapping{} }
func (empty) Replace(map[string]model.HawkerMapping) error {
	return fmt.Errorf("%w: registry is read-only", common.ErrInvalidArgument)
}

// Defaults returns the built-in mappings used before any collection run.
func Defaults() map[string]model.HawkerMapping {
	return map[string]model.HawkerMapping{
		"HC001": {
			Name:     "Old Airport Road Food Centre",
			Carparks: []string{"CP001", "CP002"},
			BusStops: []string{"83059", "83051"},
		},
		"HC002": {
			Name:     "Maxwell Food Centre",
			Carparks: []string{"CP003", "CP004"},
			BusStops: []string{"03223", "03239"},
		},
		"HC003": {
			Name:     "Tekka Centre",
			Carparks: []string{"CP005"},
			BusStops: []string{"08057", "08069"},
		},
	}
}

// Decode reads a JSON object of id to mapping. A mapping without a name is
// named after its id; missing lists decode as empty.
func Decode(r io.Reader) (map[string]model.HawkerMapping, error) {
	var mappings map[string]model.HawkerMapping
	if err := json.NewDecoder(r).Decode(&mappings); err != nil {
		return nil, fmt.Errorf("%w: decoding mappings: %w", common.ErrInvalidArgument, err)
	}
	if len(mappings) == 0 {
		return nil, fmt.Errorf("%w: no mappings provided", common.ErrInvalidArgument)
	}
	for id, mapping := range mappings {
		if strings.TrimSpace(mapping.Name) == "" {
			mapping.Name = id
		}
		if mapping.Carparks == nil {
			mapping.Carparks = []string{}
		}
		if mapping.BusStops == nil {
			mapping.BusStops = []string{}
		}
		mappings[id] = mapping
	}
	if err := Validate(mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

func cloneAll(in map[string]model.HawkerMapping) map[string]model.HawkerMapping {
	out := make(map[string]model.HawkerMapping, len(in))
	for id, mapping := range in {
		out[id] = mapping.Clone()
	}
	return out
}
