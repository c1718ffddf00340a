package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahinestrog/mybookstore-cart/internal/grpcserver"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return lis
}

func serveAsync(ctx context.Context, httpLis, grpcLis net.Listener) <-chan error {
	done := make(chan error, 1)
	go func() {
		srv := &http.Server{Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
		done <- serve(ctx, srv, httpLis, grpcserver.New(), grpcLis)
	}()
	return done
}

func TestServe_StopsOnSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(ctx, listen(t), listen(t))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServe_ReturnsServerFailure(t *testing.T) {
	httpLis := listen(t)
	require.NoError(t, httpLis.Close())

	done := serveAsync(context.Background(), httpLis, listen(t))

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http server")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the http listener failed")
	}
}
