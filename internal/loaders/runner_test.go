package loaders_test

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/mgmtd/internal/loaders"
	"github.com/danmuck/mgmtd/internal/loaders/loadertest"
	"github.com/danmuck/mgmtd/internal/mbean"
	"github.com/danmuck/mgmtd/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func rootFixture(t *testing.T) (*mbean.Server, mbean.Name) {
	t.Helper()
	s := mbean.NewServer()
	root, err := s.Register(&mbean.Object{}, "mgmt:type=domain-root")
	require.NoError(t, err)
	return s, root
}

func TestRunnerReturnsTopHandle(t *testing.T) {
	defer goleak.VerifyNone(t)
	testlog.Start(t)
	s, root := rootFixture(t)

	r := loaders.NewRunner(loadertest.New("loader.a"), s, root)
	r.Start()
	r.Start()
	top, ok := r.WaitDone()
	require.True(t, ok)
	assert.Equal(t, mbean.Name("mgmt:id=loader.a,type=fake"), top)

	parent, ok := s.Parent(top)
	require.True(t, ok)
	assert.Equal(t, root, parent)
}

func TestRunnerCapturesFailureWithoutPropagating(t *testing.T) {
	defer goleak.VerifyNone(t)
	logs := testlog.Capture(t)
	s, root := rootFixture(t)

	f := loadertest.New("loader.bad")
	f.LoadErr = errors.New("no backing store")
	r := loaders.NewRunner(f, s, root)
	r.Start()

	top, ok := r.WaitDone()
	assert.False(t, ok)
	assert.True(t, top.IsZero())

	res := r.Result()
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "no backing store")
	assert.Equal(t, 1, logs.Count("loader failed", "loader.bad"))
	assert.Equal(t, 1, logs.Count("loader starting", "loader.bad"))
}

func TestRunnerRecoversPanics(t *testing.T) {
	defer goleak.VerifyNone(t)
	testlog.Start(t)
	s, root := rootFixture(t)

	f := loadertest.New("loader.panic")
	f.Panic = true
	r := loaders.NewRunner(f, s, root)
	r.Start()

	_, ok := r.WaitDone()
	assert.False(t, ok)
	assert.ErrorIs(t, r.Err(), loaders.ErrLoaderPanic)
	assert.ErrorIs(t, r.Result().Err, loaders.ErrLoaderPanic)
}

func TestWaitDoneWithoutStartDoesNotBlock(t *testing.T) {
	testlog.Start(t)
	s, root := rootFixture(t)
	f := loadertest.New("loader.idle")
	r := loaders.NewRunner(f, s, root)

	_, ok := r.WaitDone()
	assert.False(t, ok)
	assert.ErrorIs(t, r.Err(), loaders.ErrRunnerNotStarted)
	assert.ErrorIs(t, r.Result().Err, loaders.ErrRunnerNotStarted)
	assert.Equal(t, 0, f.Loads())
}

func TestWaitDoneBlocksUntilLoaderFinishes(t *testing.T) {
	defer goleak.VerifyNone(t)
	testlog.Start(t)
	s, root := rootFixture(t)

	gate := make(chan struct{})
	f := loadertest.New("loader.slow")
	f.Gate = gate
	r := loaders.NewRunner(f, s, root)
	r.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.WaitDone()
	}()

	select {
	case <-done:
		t.Fatalf("WaitDone returned before the loader finished")
	case <-time.After(30 * time.Millisecond):
	}
	close(gate)
	<-done
}

func TestFanOutFailureDoesNotAffectSiblings(t *testing.T) {
	defer goleak.VerifyNone(t)
	testlog.Start(t)
	s, root := rootFixture(t)

	a := loadertest.New("loader.a")
	b := loadertest.New("loader.b")
	b.LoadErr = errors.New("b is broken")
	c := loadertest.New("loader.c")
	c.Delay = 10 * time.Millisecond

	runners := []*loaders.Runner{
		loaders.NewRunner(a, s, root),
		loaders.NewRunner(b, s, root),
		loaders.NewRunner(c, s, root),
	}
	loaders.StartAll(runners)
	results := loaders.WaitAll(runners)
	require.Len(t, results, 3)

	assert.Equal(t, "loader.a", results[0].LoaderID)
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())
	assert.True(t, results[2].OK())
	assert.Equal(t, 1, a.Loads())
	assert.Equal(t, 1, b.Loads())
	assert.Equal(t, 1, c.Loads())
}

func TestErrIsNilAfterSuccessfulLoad(t *testing.T) {
	defer goleak.VerifyNone(t)
	testlog.Start(t)
	s, root := rootFixture(t)

	r := loaders.NewRunner(loadertest.New("loader.fine"), s, root)
	r.Start()
	top, ok := r.WaitDone()
	require.True(t, ok)
	assert.NoError(t, r.Err())
	assert.Equal(t, top, r.Result().Top)
}
