package runtimemon

import (
	"runtime"
	"sync"
	"time"

	"github.com/danmuck/mgmtd/internal/loaders"
	"github.com/danmuck/mgmtd/internal/mbean"
)

const (
	// LoaderID is the canonical loader identifier for Go runtime monitoring.
	LoaderID   = "loader.runtime"
	objectType = "runtime-monitor"
)

// Loader registers a read-only view of Go runtime statistics.
type Loader struct {
	mu      sync.Mutex
	name    mbean.Name
	started time.Time
}

var _ loaders.Loader = (*Loader)(nil)

func NewLoader() *Loader {
	return &Loader{started: time.Now()}
}

func (l *Loader) Metadata() loaders.Metadata {
	return loaders.Metadata{
		ID:          LoaderID,
		Name:        "Runtime monitor",
		Description: "Go runtime statistics (goroutines, heap, gc)",
	}
}

func (l *Loader) Load(reg mbean.Registrar, root mbean.Name) (mbean.Name, error) {
	name, err := mbean.NewName(root.Domain(), "type", objectType, "parent", root.Prop("type"))
	if err != nil {
		return "", err
	}
	name, err = reg.Register(&mbean.Object{
		Attrs: map[string]mbean.Getter{
			"Goroutines": func() (any, error) { return runtime.NumGoroutine(), nil },
			"HeapAlloc":  func() (any, error) { return memStats().HeapAlloc, nil },
			"NumGC":      func() (any, error) { return memStats().NumGC, nil },
			"Uptime":     func() (any, error) { return time.Since(l.started).String(), nil },
			"GoVersion":  mbean.Static(runtime.Version()),
		},
		Ops: map[string]mbean.Operation{
			"gc": func(map[string]string) (any, error) {
				runtime.GC()
				return memStats().NumGC, nil
			},
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

func memStats() runtime.MemStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms
}
