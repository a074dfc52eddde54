package settings

import (
	"sort"
	"sync"

	"github.com/danmuck/mgmtd/internal/loaders"
	"github.com/danmuck/mgmtd/internal/mbean"
)

const (
	// LoaderID is the canonical loader identifier for the effective configuration view.
	LoaderID   = "loader.settings"
	objectType = "settings"
)

// Loader exposes the daemon's effective settings as read-only attributes.
type Loader struct {
	values map[string]string

	mu   sync.Mutex
	name mbean.Name
}

var _ loaders.Loader = (*Loader)(nil)

// NewLoader copies values; later changes to the map are not observed.
func NewLoader(values map[string]string) *Loader {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Loader{values: copied}
}

func (l *Loader) Metadata() loaders.Metadata {
	return loaders.Metadata{
		ID:          LoaderID,
		Name:        "Settings",
		Description: "Effective daemon configuration, read-only",
	}
}

func (l *Loader) Load(reg mbean.Registrar, root mbean.Name) (mbean.Name, error) {
	name, err := mbean.NewName(root.Domain(), "type", objectType, "parent", root.Prop("type"))
	if err != nil {
		return "", err
	}
	attrs := make(map[string]mbean.Getter, len(l.values))
	for k, v := range l.values {
		attrs[k] = mbean.Static(v)
	}
	name, err = reg.Register(&mbean.Object{
		Attrs: attrs,
		Ops: map[string]mbean.Operation{
			"keys": func(map[string]string) (any, error) { return l.Keys(), nil },
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

func (l *Loader) Keys() []string {
	keys := make([]string, 0, len(l.values))
	for k := range l.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
