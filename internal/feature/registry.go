package feature

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/danmuck/mgmtd/internal/observability"
)

// Well-known readiness features published by the startup service.
const (
	// CoreReady carries the domain root once the static core tree exists.
	// Loaders may still be running when it is published.
	CoreReady = "mgmt.core.ready"
	// Ready carries the domain root after every loader of a cycle finished.
	Ready = "mgmt.ready"
)

// Event is one publication as seen by listeners.
type Event struct {
	Name    string
	Payload any
	Seq     uint64
	At      time.Time
}

type entry struct {
	payload   any
	published bool
	seq       uint64
	ready     chan struct{}
}

// Registry stores named readiness facts. Publishing a name again replaces
// its payload; waiters are released by the first publication.
type Registry struct {
	mu        sync.Mutex
	entries   map[string]*entry
	seq       uint64
	listeners []func(Event)

	notifyMu sync.Mutex
}

// NewRegistry creates an empty feature registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry()
	})
	return defaultReg
}

// AddListener subscribes fn to every later publication, in order.
func (r *Registry) AddListener(fn func(Event)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Publish sets name to payload and releases every waiter on name.
func (r *Registry) Publish(name string, payload any) {
	r.mu.Lock()
	e := r.entryLocked(name)
	r.seq++
	e.payload = payload
	e.seq = r.seq
	if !e.published {
		e.published = true
		close(e.ready)
	}
	ev := Event{Name: name, Payload: payload, Seq: e.seq, At: time.Now()}
	listeners := make([]func(Event), len(r.listeners))
	copy(listeners, r.listeners)

	r.notifyMu.Lock()
	r.mu.Unlock()
	defer r.notifyMu.Unlock()

	observability.RecordFeaturePublished(name)
	for _, fn := range listeners {
		fn(ev)
	}
}

// Wait blocks until name has been published or ctx is done, then returns
// the latest payload.
func (r *Registry) Wait(ctx context.Context, name string) (any, error) {
	r.mu.Lock()
	ch := r.entryLocked(name).ready
	r.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[name].payload, nil
}

// Lookup returns the latest payload without blocking.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok || !e.published {
		return nil, false
	}
	return e.payload, true
}

// Seq returns the publication sequence of name, zero when unpublished.
func (r *Registry) Seq(name string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return 0
	}
	return e.seq
}

// Snapshot returns every published name with its latest payload.
func (r *Registry) Snapshot() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]any, len(r.entries))
	for name, e := range r.entries {
		if e.published {
			out[name] = e.payload
		}
	}
	return out
}

// Names returns published names sorted.
func (r *Registry) Names() []string {
	snap := r.Snapshot()
	out := make([]string, 0, len(snap))
	for name := range snap {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) entryLocked(name string) *entry {
	e, ok := r.entries[name]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		r.entries[name] = e
	}
	return e
}
