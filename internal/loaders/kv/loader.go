package kv

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/mgmtd/internal/loaders"
	"github.com/danmuck/mgmtd/internal/mbean"
)

const (
	// LoaderID is the canonical loader identifier for the in-memory key-value store.
	LoaderID   = "loader.kv"
	objectType = "kv-store"
)

// Loader registers a managed in-memory key-value store under the domain root.
type Loader struct {
	mu    sync.RWMutex
	store map[string]string
	name  mbean.Name
}

var _ loaders.Loader = (*Loader)(nil)

// NewLoader constructs a loader with an empty store.
func NewLoader() *Loader {
	return &Loader{
		store: make(map[string]string),
	}
}

// Metadata returns stable loader identity details.
func (l *Loader) Metadata() loaders.Metadata {
	return loaders.Metadata{
		ID:          LoaderID,
		Name:        "KV (in-memory)",
		Description: "Managed key-value store for operator annotations",
	}
}

// Load registers the store object. The store contents survive unload/load.
func (l *Loader) Load(reg mbean.Registrar, root mbean.Name) (mbean.Name, error) {
	name, err := mbean.NewName(root.Domain(), "type", objectType, "parent", root.Prop("type"))
	if err != nil {
		return "", err
	}
	name, err = reg.Register(&mbean.Object{
		Attrs: map[string]mbean.Getter{
			"Size": func() (any, error) { return l.Size(), nil },
		},
		Ops: map[string]mbean.Operation{
			"put":    l.put,
			"get":    l.get,
			"delete": l.delete,
			"list":   l.list,
		},
	}, name, mbean.WithParent(root))
	if err != nil {
		return "", err
	}
	l.mu.Lock()
	l.name = name
	l.mu.Unlock()
	return name, nil
}

// Unload removes the store object if it is still registered.
func (l *Loader) Unload(reg mbean.Registrar) error {
	l.mu.Lock()
	name := l.name
	l.name = ""
	l.mu.Unlock()
	if name.IsZero() {
		return nil
	}
	if _, ok := reg.Find(name); !ok {
		return nil
	}
	return reg.Unregister(name)
}

func (l *Loader) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.store)
}

func (l *Loader) put(args map[string]string) (any, error) {
	key := strings.TrimSpace(args["key"])
	if key == "" {
		return nil, fmt.Errorf("loader.kv: missing key")
	}
	l.mu.Lock()
	l.store[key] = args["value"]
	l.mu.Unlock()
	return fmt.Sprintf("ok put key=%s", key), nil
}

func (l *Loader) get(args map[string]string) (any, error) {
	key := strings.TrimSpace(args["key"])
	if key == "" {
		return nil, fmt.Errorf("loader.kv: missing key")
	}
	l.mu.RLock()
	val, ok := l.store[key]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("loader.kv: missing key=%s", key)
	}
	return val, nil
}

func (l *Loader) delete(args map[string]string) (any, error) {
	key := strings.TrimSpace(args["key"])
	if key == "" {
		return nil, fmt.Errorf("loader.kv: missing key")
	}
	l.mu.Lock()
	delete(l.store, key)
	l.mu.Unlock()
	return fmt.Sprintf("ok delete key=%s", key), nil
}

func (l *Loader) list(args map[string]string) (any, error) {
	prefix := strings.TrimSpace(args["prefix"])
	l.mu.RLock()
	keys := make([]string, 0, len(l.store))
	for k := range l.store {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	l.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}
