package mcp

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrToolsetExists  = errors.New("toolset already registered")
	ErrUnknownToolset = errors.New("unknown toolset")
)

type ToolsetFactory func() Toolset

type toolsetRegistry struct {
	mu        sync.RWMutex
	factories map[string]ToolsetFactory
}

var registry = toolsetRegistry{factories: map[string]ToolsetFactory{}}

func RegisterToolset(id string, factory ToolsetFactory) error {
	if id == "" {
		return errors.New("toolset id required")
	}
	if factory == nil {
		return errors.New("toolset factory required")
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.factories[id]; exists {
		return fmt.Errorf("%w: %q", ErrToolsetExists, id)
	}
	registry.factories[id] = factory
	return nil
}

func MustRegisterToolset(id string, factory ToolsetFactory) {
	if err := RegisterToolset(id, factory); err != nil {
		panic(err)
	}
}

func ToolsetFactoryFor(id string) (ToolsetFactory, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	factory, ok := registry.factories[id]
	return factory, ok
}

func RegisteredToolsets() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	ids := make([]string, 0, len(registry.factories))
	for id := range registry.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BuildToolsets instantiates the named toolsets in order, skipping repeats.
func BuildToolsets(ids []string) ([]Toolset, error) {
	seen := map[string]struct{}{}
	out := make([]Toolset, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		factory, ok := ToolsetFactoryFor(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownToolset, id, RegisteredToolsets())
		}
		toolset := factory()
		if toolset == nil {
			return nil, fmt.Errorf("toolset %q factory returned nil", id)
		}
		out = append(out, toolset)
	}
	return out, nil
}
