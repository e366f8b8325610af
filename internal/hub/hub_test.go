package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\n")
}

func TestBroadcastReachesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var count atomic.Int64
	h := New().OnClientCount(func(n int) { count.Store(int64(n)) })
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected", readLine(t, r))
	assert.Equal(t, "", readLine(t, r))
	assert.Eventually(t, func() bool {
		return h.ClientCount() == 1 && count.Load() == 1
	}, time.Second, 5*time.Millisecond)

	h.Broadcast("snapshot_created", map[string]string{"uuid": "s1"})

	assert.Equal(t, "event: snapshot_created", readLine(t, r))
	assert.Equal(t, `data: {"uuid":"s1"}`, readLine(t, r))
}

func TestKeepAlive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New().WithKeepAlive(10 * time.Millisecond)
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readLine(t, r)
	readLine(t, r)
	assert.Equal(t, ": keepalive", readLine(t, r))
}

func TestRunClosesClientsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := New()
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readLine(t, r)
	readLine(t, r)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, err = r.ReadString('\n')
	assert.Error(t, err)
	assert.Equal(t, 0, h.ClientCount())
}
