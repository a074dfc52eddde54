package mbean

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registrar is the management registration contract consumed by loaders
// and the startup orchestrator.
type Registrar interface {
	Register(obj Managed, name Name, opts ...RegisterOption) (Name, error)
	Unregister(name Name) error
	Find(name Name) (Name, bool)
	Invoke(name Name, member string, args map[string]string) (any, error)
}

// NotificationKind is the registration event type.
type NotificationKind string

const (
	Registered   NotificationKind = "registered"
	Unregistered NotificationKind = "unregistered"
)

// Notification describes one registration change.
type Notification struct {
	Kind   NotificationKind
	Name   Name
	Parent Name
	At     time.Time
}

// Listener observes registration changes. Listeners run in event order and
// must not register or unregister objects themselves.
type Listener func(Notification)

type registerOptions struct {
	parent Name
}

// RegisterOption configures one registration.
type RegisterOption func(*registerOptions)

// WithParent records parent as the tree parent of the registered object.
func WithParent(parent Name) RegisterOption {
	return func(o *registerOptions) {
		o.parent = parent
	}
}

type entry struct {
	obj        Managed
	parent     Name
	registered time.Time
}

// Server is the in-process Registrar.
type Server struct {
	mu        sync.RWMutex
	entries   map[Name]entry
	listeners []Listener

	// notifyMu orders listener delivery with state changes.
	notifyMu sync.Mutex
}

var _ Registrar = (*Server)(nil)

// NewServer initializes an empty registrar.
func NewServer() *Server {
	return &Server{
		entries: make(map[Name]entry),
	}
}

// AddListener subscribes fn to every later registration change.
func (s *Server) AddListener(fn Listener) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Register adds obj under name and returns the canonical name.
func (s *Server) Register(obj Managed, name Name, opts ...RegisterOption) (Name, error) {
	if obj == nil {
		return "", ErrNilObject
	}
	canonical, err := ParseName(string(name))
	if err != nil {
		return "", err
	}
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	parent := Name("")
	if !o.parent.IsZero() {
		if parent, err = ParseName(string(o.parent)); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	if _, ok := s.entries[canonical]; ok {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrAlreadyRegistered, canonical)
	}
	if !parent.IsZero() {
		if _, ok := s.entries[parent]; !ok {
			s.mu.Unlock()
			return "", fmt.Errorf("%w: %s", ErrParentNotFound, parent)
		}
	}
	now := time.Now()
	s.entries[canonical] = entry{obj: obj, parent: parent, registered: now}
	s.notifyLocked(Notification{Kind: Registered, Name: canonical, Parent: parent, At: now})
	return canonical, nil
}

// Unregister removes name. Children are left in place.
func (s *Server) Unregister(name Name) error {
	canonical, err := ParseName(string(name))
	if err != nil {
		return err
	}

	s.mu.Lock()
	e, ok := s.entries[canonical]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, canonical)
	}
	delete(s.entries, canonical)
	s.notifyLocked(Notification{Kind: Unregistered, Name: canonical, Parent: e.parent, At: time.Now()})
	return nil
}

// Find returns the canonical form of name when it is registered.
func (s *Server) Find(name Name) (Name, bool) {
	canonical, err := ParseName(string(name))
	if err != nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.entries[canonical]; !ok {
		return "", false
	}
	return canonical, true
}

// Invoke reads the attribute named member, or runs the operation of that
// name when no such attribute exists. The object is called without any
// registrar lock held, so operations may register further objects.
func (s *Server) Invoke(name Name, member string, args map[string]string) (any, error) {
	obj, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if get, ok := obj.Attributes()[member]; ok && get != nil {
		return get()
	}
	if op, ok := obj.Operations()[member]; ok && op != nil {
		if args == nil {
			args = map[string]string{}
		}
		return op(args)
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrUnknownMember, member, name)
}

// Attribute reads one attribute only.
func (s *Server) Attribute(name Name, attr string) (any, error) {
	obj, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	get, ok := obj.Attributes()[attr]
	if !ok || get == nil {
		return nil, fmt.Errorf("%w: attribute %s on %s", ErrUnknownMember, attr, name)
	}
	return get()
}

// Operation runs one operation only.
func (s *Server) Operation(name Name, op string, args map[string]string) (any, error) {
	obj, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	fn, ok := obj.Operations()[op]
	if !ok || fn == nil {
		return nil, fmt.Errorf("%w: operation %s on %s", ErrUnknownMember, op, name)
	}
	if args == nil {
		args = map[string]string{}
	}
	return fn(args)
}

// Info describes one registered object.
func (s *Server) Info(name Name) (Info, error) {
	canonical, err := ParseName(string(name))
	if err != nil {
		return Info{}, err
	}
	s.mu.RLock()
	e, ok := s.entries[canonical]
	s.mu.RUnlock()
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, canonical)
	}
	return describe(canonical, e.parent, e.obj), nil
}

// Names returns registered names sorted; an empty domain lists every name.
func (s *Server) Names(domain string) []Name {
	s.mu.RLock()
	out := make([]Name, 0, len(s.entries))
	for name := range s.entries {
		if domain == "" || name.Domain() == domain {
			out = append(out, name)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i] < out[j]
	})
	return out
}

// Parent returns the recorded parent of name.
func (s *Server) Parent(name Name) (Name, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok || e.parent.IsZero() {
		return "", false
	}
	return e.parent, true
}

func (s *Server) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Server) lookup(name Name) (Managed, error) {
	canonical, err := ParseName(string(name))
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	e, ok := s.entries[canonical]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, canonical)
	}
	return e.obj, nil
}

// notifyLocked hands the event to listeners after releasing s.mu.
// Caller must hold s.mu; it is unlocked on return.
func (s *Server) notifyLocked(n Notification) {
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, fn := range listeners {
		fn(n)
	}
}
