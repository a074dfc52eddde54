package admin

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/mgmtd/internal/testutil/testlog"
	"github.com/danmuck/mgmtd/internal/testutil/tlstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeTLS(t *testing.T) {
	testlog.Start(t)
	ca := tlstest.NewAuthority(t, "mgmtd-test-ca")
	certFile, keyFile := ca.ServerCert(t, "127.0.0.1", "localhost")

	s, _, _ := newGaugeServer(t, Config{TLSCertFile: certFile, TLSKeyFile: keyFile})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ServeListener(ctx, ln)
	}()
	defer func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	}()

	client, err := NewTLSClient(ln.Addr().String(), "", ca.CAFile())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		infos, err := client.List(context.Background(), "")
		return err == nil && len(infos) == 1
	}, 2*time.Second, 10*time.Millisecond)

	value, err := client.GetAttribute(context.Background(), gaugeName, "Value")
	require.NoError(t, err)
	assert.Equal(t, float64(42), value)

	other := tlstest.NewAuthority(t, "someone-else")
	stranger, err := NewTLSClient(ln.Addr().String(), "", other.CAFile())
	require.NoError(t, err)
	_, err = stranger.List(context.Background(), "")
	assert.Error(t, err)
}

func TestNewTLSClientRejectsBadCA(t *testing.T) {
	testlog.Start(t)
	_, err := NewTLSClient("127.0.0.1:1", "", filepath.Join(t.TempDir(), "missing.crt"))
	assert.ErrorContains(t, err, "read ca")

	junk := filepath.Join(t.TempDir(), "junk.crt")
	require.NoError(t, os.WriteFile(junk, []byte("not a cert"), 0o600))
	_, err = NewTLSClient("127.0.0.1:1", "", junk)
	assert.ErrorContains(t, err, "no certificates")
}
