package mbean

import (
	"errors"
	"testing"

	"github.com/danmuck/mgmtd/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNameCanonicalizesPropertyOrder(t *testing.T) {
	testlog.Start(t)
	a, err := ParseName("mgmt:type=kv-store,parent=domain-root")
	require.NoError(t, err)
	b, err := ParseName(" mgmt:parent=domain-root, type=kv-store ")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "mgmt:parent=domain-root,type=kv-store", a.String())
	assert.Equal(t, "mgmt", a.Domain())
	assert.Equal(t, "kv-store", a.Prop("type"))
	assert.Equal(t, "", a.Prop("missing"))
}

func TestParseNameRejectsMalformed(t *testing.T) {
	testlog.Start(t)
	cases := []string{
		"",
		"no-domain-separator",
		":type=x",
		"mgmt:",
		"mgmt:type",
		"mgmt:type=a,type=b",
		"mgmt:ty pe=a",
		"bad domain:type=a",
	}
	for _, raw := range cases {
		_, err := ParseName(raw)
		if !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected ErrInvalidName for %q, got %v", raw, err)
		}
	}
}

func TestNewNameAndWith(t *testing.T) {
	testlog.Start(t)
	name, err := NewName("mgmt", "type", "runtime-monitor", "parent", "domain-root")
	require.NoError(t, err)
	assert.Equal(t, Name("mgmt:parent=domain-root,type=runtime-monitor"), name)

	child, err := name.With("id", "7")
	require.NoError(t, err)
	assert.Equal(t, Name("mgmt:id=7,parent=domain-root,type=runtime-monitor"), child)
	assert.Equal(t, "runtime-monitor", name.Prop("type"), "With must not mutate the receiver")

	_, err = NewName("mgmt", "type")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestMustNamePanicsOnInvalid(t *testing.T) {
	testlog.Start(t)
	assert.Panics(t, func() { MustName("invalid") })
	assert.True(t, Name("").IsZero())
}
