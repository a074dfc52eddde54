package mbean

import (
	"errors"
	"sync"
	"testing"

	"github.com/danmuck/mgmtd/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterObject() (*Object, *int) {
	calls := 0
	return &Object{
		Attrs: map[string]Getter{
			"Calls": func() (any, error) { return calls, nil },
		},
		Ops: map[string]Operation{
			"bump": func(args map[string]string) (any, error) {
				calls++
				return args["by"], nil
			},
			"fail": func(map[string]string) (any, error) {
				return nil, errors.New("boom")
			},
		},
	}, &calls
}

func TestRegisterFindUnregister(t *testing.T) {
	testlog.Start(t)
	s := NewServer()
	obj, _ := counterObject()

	name, err := s.Register(obj, "mgmt:type=counter,id=1")
	require.NoError(t, err)
	assert.Equal(t, Name("mgmt:id=1,type=counter"), name)

	got, ok := s.Find("mgmt:type=counter,id=1")
	require.True(t, ok)
	assert.Equal(t, name, got)

	_, err = s.Register(obj, name)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	require.NoError(t, s.Unregister(name))
	_, ok = s.Find(name)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Unregister(name), ErrNotFound)
}

func TestRegisterValidation(t *testing.T) {
	testlog.Start(t)
	s := NewServer()
	obj, _ := counterObject()

	_, err := s.Register(nil, "mgmt:type=x")
	assert.ErrorIs(t, err, ErrNilObject)

	_, err = s.Register(obj, "broken")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = s.Register(obj, "mgmt:type=child", WithParent("mgmt:type=missing"))
	assert.ErrorIs(t, err, ErrParentNotFound)

	_, ok := s.Find("broken")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Count())
}

func TestInvokePrefersAttributesThenOperations(t *testing.T) {
	testlog.Start(t)
	s := NewServer()
	obj, calls := counterObject()
	name, err := s.Register(obj, "mgmt:type=counter")
	require.NoError(t, err)

	out, err := s.Invoke(name, "bump", map[string]string{"by": "2"})
	require.NoError(t, err)
	assert.Equal(t, "2", out)
	assert.Equal(t, 1, *calls)

	v, err := s.Invoke(name, "Calls", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = s.Invoke(name, "fail", nil)
	assert.EqualError(t, err, "boom")

	_, err = s.Invoke(name, "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownMember)

	_, err = s.Invoke("mgmt:type=absent", "Calls", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Attribute(name, "bump")
	assert.ErrorIs(t, err, ErrUnknownMember)
	_, err = s.Operation(name, "Calls", nil)
	assert.ErrorIs(t, err, ErrUnknownMember)
}

func TestInvokeRunsWithoutRegistrarLock(t *testing.T) {
	testlog.Start(t)
	s := NewServer()
	obj := &Object{Ops: map[string]Operation{
		"spawn": func(map[string]string) (any, error) {
			return s.Register(&Object{}, "mgmt:type=spawned")
		},
	}}
	name, err := s.Register(obj, "mgmt:type=factory")
	require.NoError(t, err)

	out, err := s.Invoke(name, "spawn", nil)
	require.NoError(t, err)
	assert.Equal(t, Name("mgmt:type=spawned"), out)
}

func TestNamesInfoAndParent(t *testing.T) {
	testlog.Start(t)
	s := NewServer()
	root, err := s.Register(&Object{}, "mgmt:type=domain-root")
	require.NoError(t, err)
	obj, _ := counterObject()
	child, err := s.Register(obj, "mgmt:type=counter,parent=domain-root", WithParent(root))
	require.NoError(t, err)
	_, err = s.Register(&Object{}, "other:type=x")
	require.NoError(t, err)

	assert.Equal(t, []Name{child, root}, s.Names("mgmt"))
	assert.Len(t, s.Names(""), 3)

	info, err := s.Info(child)
	require.NoError(t, err)
	assert.Equal(t, root, info.Parent)
	assert.Equal(t, []string{"Calls"}, info.Attributes)
	assert.Equal(t, []string{"bump", "fail"}, info.Operations)

	parent, ok := s.Parent(child)
	require.True(t, ok)
	assert.Equal(t, root, parent)
	_, ok = s.Parent(root)
	assert.False(t, ok)
}

func TestListenersSeeOrderedNotifications(t *testing.T) {
	testlog.Start(t)
	s := NewServer()
	var (
		mu     sync.Mutex
		events []Notification
	)
	s.AddListener(func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, n)
	})

	root, err := s.Register(&Object{}, "mgmt:type=domain-root")
	require.NoError(t, err)
	child, err := s.Register(&Object{}, "mgmt:type=child", WithParent(root))
	require.NoError(t, err)
	require.NoError(t, s.Unregister(child))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	assert.Equal(t, Registered, events[0].Kind)
	assert.Equal(t, root, events[0].Name)
	assert.Equal(t, Registered, events[1].Kind)
	assert.Equal(t, root, events[1].Parent)
	assert.Equal(t, Unregistered, events[2].Kind)
	assert.Equal(t, child, events[2].Name)
}

func TestConcurrentRegistrationIsSafe(t *testing.T) {
	testlog.Start(t)
	s := NewServer()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name, err := NewName("mgmt", "type", "worker", "id", string(rune('a'+i%26))+string(rune('a'+i/26)))
			if err != nil {
				t.Errorf("name: %v", err)
				return
			}
			if _, err := s.Register(&Object{}, name); err != nil {
				t.Errorf("register: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 32, s.Count())
}
