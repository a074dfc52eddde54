// Package loadertest provides a scriptable Loader for tests.
package loadertest

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/mgmtd/internal/loaders"
	"github.com/danmuck/mgmtd/internal/mbean"
)

// Fake registers one object named after its ID under the domain root.
type Fake struct {
	ID        string
	LoadErr   error
	UnloadErr error
	Panic     bool
	Delay     time.Duration
	// Gate blocks Load until closed.
	Gate <-chan struct{}
	// OnLoad runs first thing in Load.
	OnLoad func(id string)

	loads   atomic.Int32
	unloads atomic.Int32

	mu         sync.Mutex
	registered []mbean.Name
}

var _ loaders.Loader = (*Fake)(nil)

func New(id string) *Fake {
	return &Fake{ID: id}
}

func (f *Fake) Metadata() loaders.Metadata {
	return loaders.Metadata{
		ID:          f.ID,
		Name:        "fake " + f.ID,
		Description: "scriptable test loader",
	}
}

func (f *Fake) Load(reg mbean.Registrar, root mbean.Name) (mbean.Name, error) {
	if f.OnLoad != nil {
		f.OnLoad(f.ID)
	}
	f.loads.Add(1)
	if f.Gate != nil {
		<-f.Gate
	}
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	if f.Panic {
		panic(fmt.Sprintf("fake %s exploded", f.ID))
	}
	if f.LoadErr != nil {
		return "", f.LoadErr
	}

	name, err := mbean.NewName(root.Domain(), "type", "fake", "id", f.ID)
	if err != nil {
		return "", err
	}
	name, err = reg.Register(&mbean.Object{
		Attrs: map[string]mbean.Getter{"ID": mbean.Static(f.ID)},
	}, name, mbean.WithParent(root))
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.registered = append(f.registered, name)
	f.mu.Unlock()
	return name, nil
}

func (f *Fake) Unload(reg mbean.Registrar) error {
	f.unloads.Add(1)
	f.mu.Lock()
	names := f.registered
	f.registered = nil
	f.mu.Unlock()
	for _, name := range names {
		_ = reg.Unregister(name)
	}
	if f.Panic {
		panic(fmt.Sprintf("fake %s exploded on unload", f.ID))
	}
	return f.UnloadErr
}

func (f *Fake) Loads() int {
	return int(f.loads.Load())
}

func (f *Fake) Unloads() int {
	return int(f.unloads.Load())
}
