package loaders_test

import (
	"errors"
	"testing"

	"github.com/danmuck/mgmtd/internal/loaders"
	"github.com/danmuck/mgmtd/internal/loaders/loadertest"
	"github.com/danmuck/mgmtd/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterResolveAndDuplicate(t *testing.T) {
	testlog.Start(t)
	r := loaders.NewRegistry()
	l := loadertest.New("loader.kv")

	require.NoError(t, r.Register(l))
	if err := r.Register(l); !errors.Is(err, loaders.ErrLoaderExists) {
		t.Fatalf("expected ErrLoaderExists, got %v", err)
	}
	got, ok := r.Resolve("loader.kv")
	require.True(t, ok)
	assert.Equal(t, "loader.kv", got.Metadata().ID)

	_, ok = r.Resolve("loader.missing")
	assert.False(t, ok)
}

func TestRegisterRejectsNilAndBadMetadata(t *testing.T) {
	testlog.Start(t)
	r := loaders.NewRegistry()
	assert.ErrorIs(t, r.Register(nil), loaders.ErrLoaderNil)

	for _, id := range []string{"", "Upper", ".lead", "trail-", "dou..ble", "sp ace"} {
		err := r.Register(loadertest.New(id))
		assert.ErrorIs(t, err, loaders.ErrInvalidMetadata, "id=%q", id)
	}
	assert.Equal(t, 0, r.Len())
}

func TestAllIsSortedSnapshot(t *testing.T) {
	testlog.Start(t)
	r := loaders.NewRegistry()
	for _, id := range []string{"loader.z", "loader.a", "loader.m"} {
		require.NoError(t, r.Register(loadertest.New(id)))
	}

	snapshot := r.All()
	require.True(t, r.Unregister("loader.m"))
	assert.False(t, r.Unregister("loader.m"))

	ids := make([]string, 0, len(snapshot))
	for _, l := range snapshot {
		ids = append(ids, l.Metadata().ID)
	}
	assert.Equal(t, []string{"loader.a", "loader.m", "loader.z"}, ids)

	meta := r.ListMetadata()
	require.Len(t, meta, 2)
	assert.Equal(t, "loader.a", meta[0].ID)
	assert.Equal(t, "loader.z", meta[1].ID)
}
