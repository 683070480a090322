package server

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	srv := newTestServer(t, "TestServer_ServeAndShutdown")
	require.NoError(t, srv.Listen("127.0.0.1:0"))

	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(context.Background()) }()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)

	_, err = conn.Write([]byte("AUTH vm1 secret\n"))
	require.NoError(t, err)
	resp, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, resp, "vm1")

	srv.Shutdown(ShutdownMessage)

	// The connected client gets the final line before its connection
	// is closed.
	final, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ShutdownMessage, strings.TrimSpace(final))

	select {
	case err := <-serveDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}

	assert.Equal(t, 0, srv.registry.Len())
}

func TestServer_ContextCancelStopsServe(t *testing.T) {
	srv := newTestServer(t, "TestServer_ContextCancelStopsServe")
	require.NoError(t, srv.Listen("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(ctx) }()

	cancel()

	select {
	case err := <-serveDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after context cancel")
	}
}

func TestServer_ShutdownIsIdempotent(t *testing.T) {
	srv := newTestServer(t, "TestServer_ShutdownIsIdempotent")
	require.NoError(t, srv.Listen("127.0.0.1:0"))

	srv.Shutdown(ShutdownMessage)
	srv.Shutdown(ShutdownMessage)
}
