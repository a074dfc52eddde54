package loaders

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrLoaderExists    = errors.New("loader already exists")
	ErrLoaderNil       = errors.New("loader is nil")
	ErrInvalidMetadata = errors.New("invalid loader metadata")
)

// Registry is the discovery source for loaders. Loaders may be added or
// removed between bring-up cycles; each cycle works on a snapshot.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Loader
}

// NewRegistry creates an empty loader registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Loader)}
}

// ValidateMetadata checks required metadata fields and id format.
func ValidateMetadata(meta Metadata) error {
	id := strings.TrimSpace(meta.ID)
	name := strings.TrimSpace(meta.Name)
	desc := strings.TrimSpace(meta.Description)
	if id == "" || name == "" || desc == "" {
		return fmt.Errorf("%w: id, name, and description are required", ErrInvalidMetadata)
	}
	if !isValidID(id) {
		return fmt.Errorf("%w: invalid id format %q", ErrInvalidMetadata, id)
	}
	return nil
}

// Register adds a loader to the registry.
func (r *Registry) Register(loader Loader) error {
	if loader == nil {
		return ErrLoaderNil
	}

	meta := loader.Metadata()
	if err := ValidateMetadata(meta); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[meta.ID]; ok {
		return fmt.Errorf("%w: %s", ErrLoaderExists, meta.ID)
	}
	r.items[meta.ID] = loader
	return nil
}

// Unregister removes a loader by id and reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[id]
	delete(r.items, id)
	return ok
}

// Resolve returns a loader by id.
func (r *Registry) Resolve(id string) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loader, ok := r.items[id]
	return loader, ok
}

// All returns a snapshot of the current loaders ordered by id.
func (r *Registry) All() []Loader {
	r.mu.RLock()
	list := make([]Loader, 0, len(r.items))
	for _, loader := range r.items {
		list = append(list, loader)
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		return list[i].Metadata().ID < list[j].Metadata().ID
	})
	return list
}

// ListMetadata returns deterministic metadata ordering by id.
func (r *Registry) ListMetadata() []Metadata {
	all := r.All()
	list := make([]Metadata, 0, len(all))
	for _, loader := range all {
		list = append(list, loader.Metadata())
	}
	return list
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func isValidID(id string) bool {
	if id == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(id); i++ {
		c := id[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if i == 0 || i == len(id)-1 {
			if isSep {
				return false
			}
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}
