package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/lewisedginton/ward_desk/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeErrorChans(t *testing.T) {
	ch1 := make(chan error, 1)
	ch2 := make(chan error, 1)
	merged := MergeErrorChans(ch1, ch2, nil)

	ch1 <- errors.New("error 1")
	ch2 <- errors.New("error 2")
	close(ch1)
	close(ch2)

	var got []string
	timeout := time.After(time.Second)
	for done := false; !done; {
		select {
		case err, ok := <-merged:
			if !ok {
				done = true
				continue
			}
			got = append(got, err.Error())
		case <-timeout:
			t.Fatal("timeout waiting for merged channel to close")
		}
	}
	sort.Strings(got)
	assert.Equal(t, []string{"error 1", "error 2"}, got)
}

func TestServeAndWait(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	errs := Serve(srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, WaitForShutdown(ctx, logger.NewNopLogger(), errs))

	require.NoError(t, srv.Shutdown(context.Background()))
	_, open := <-errs
	assert.False(t, open)
}

func TestWaitForShutdownListenerError(t *testing.T) {
	errs := make(chan error, 1)
	errs <- errors.New("bind: address in use")
	err := WaitForShutdown(context.Background(), logger.NewNopLogger(), errs)
	assert.EqualError(t, err, "bind: address in use")
}
