package mbean

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Tracker follows registration notifications and keeps the parent/child
// edges of the management tree.
type Tracker struct {
	mu       sync.RWMutex
	parents  map[Name]Name
	children map[Name]map[Name]struct{}
}

// NewTracker returns an empty tracker. Use Attach to feed it.
func NewTracker() *Tracker {
	return &Tracker{
		parents:  make(map[Name]Name),
		children: make(map[Name]map[Name]struct{}),
	}
}

// Attach subscribes the tracker to s.
func (t *Tracker) Attach(s *Server) {
	s.AddListener(t.observe)
}

func (t *Tracker) observe(n Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch n.Kind {
	case Registered:
		if n.Parent.IsZero() {
			return
		}
		t.parents[n.Name] = n.Parent
		set, ok := t.children[n.Parent]
		if !ok {
			set = make(map[Name]struct{})
			t.children[n.Parent] = set
		}
		set[n.Name] = struct{}{}
	case Unregistered:
		parent, ok := t.parents[n.Name]
		if !ok {
			// a parentless node keeps its children so a walk from its
			// name still reaches them.
			return
		}
		delete(t.children[parent], n.Name)
		delete(t.parents, n.Name)
		// children move up to the removed node's parent.
		for child := range t.children[n.Name] {
			t.parents[child] = parent
			t.children[parent][child] = struct{}{}
		}
		delete(t.children, n.Name)
		if len(t.children[parent]) == 0 {
			delete(t.children, parent)
		}
	}
}

// Children returns the direct children of name, sorted.
func (t *Tracker) Children(name Name) []Name {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.childrenLocked(name)
}

// Parent returns the tracked parent of name.
func (t *Tracker) Parent(name Name) (Name, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	parent, ok := t.parents[name]
	return parent, ok
}

// Descendants returns every descendant of root in teardown order:
// each child appears before its parent. root itself is not included.
func (t *Tracker) Descendants(root Name) []Name {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Name, 0)
	seen := map[Name]struct{}{root: {}}
	var walk func(Name)
	walk = func(n Name) {
		for _, child := range t.childrenLocked(n) {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			walk(child)
			out = append(out, child)
		}
	}
	walk(root)
	return out
}

// Count returns how many child edges are tracked.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.parents)
}

func (t *Tracker) Attributes() map[string]Getter {
	return map[string]Getter{
		"Count": func() (any, error) {
			return t.Count(), nil
		},
	}
}

func (t *Tracker) Operations() map[string]Operation {
	return map[string]Operation{
		"children": func(args map[string]string) (any, error) {
			name, err := ParseName(args["name"])
			if err != nil {
				return nil, err
			}
			return namesToStrings(t.Children(name)), nil
		},
		"parent": func(args map[string]string) (any, error) {
			name, err := ParseName(args["name"])
			if err != nil {
				return nil, err
			}
			parent, ok := t.Parent(name)
			if !ok {
				return nil, nil
			}
			return parent.String(), nil
		},
	}
}

func (t *Tracker) childrenLocked(name Name) []Name {
	set := t.children[name]
	out := make([]Name, 0, len(set))
	for child := range set {
		out = append(out, child)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i] < out[j]
	})
	return out
}

// UnregisterTree removes every tracked descendant of root, leaves first,
// then root itself. Individual failures do not stop the walk; names that
// are already gone are skipped.
func UnregisterTree(reg Registrar, tracker *Tracker, root Name) error {
	var errs []error
	for _, name := range tracker.Descendants(root) {
		if err := reg.Unregister(name); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if err := reg.Unregister(root); err != nil && !errors.Is(err, ErrNotFound) {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("mbean: unregister tree %s: %w", root, errors.Join(errs...))
	}
	return nil
}

func namesToStrings(names []Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}
