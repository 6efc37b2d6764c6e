package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_SetsUserAgentUnlessPresent(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	c := NewClient(Options{})
	resp, err := Get(context.Background(), c, srv.URL, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.True(t, strings.HasPrefix(got.Load().(string), "Mozilla/5.0"))

	resp, err = Get(context.Background(), c, srv.URL, http.Header{"User-Agent": {"festctl"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "festctl", got.Load())
}

func TestTransport_RetriesGatewayErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	resp, err := Get(context.Background(), NewClient(Options{RetryMax: 2}), srv.URL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(b))
	assert.Equal(t, int32(3), calls.Load())
}

func TestTransport_DoesNotRetryPost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Options{RetryMax: 2})
	resp, err := c.Post(srv.URL, "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Get(context.Background(), NewClient(Options{}), srv.URL, nil)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.False(t, IsStatus(err, http.StatusBadGateway))
}

func TestGet_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Get(ctx, NewClient(Options{RetryMax: 2}), "http://127.0.0.1:1", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsPublicAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"157.240.22.174", true},
		{"2a03:2880:f12f:83:face:b00c:0:25de", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"192.168.0.10", false},
		{"169.254.169.254", false},
		{"fe80::1", false},
		{"0.0.0.0", false},
		{"::ffff:127.0.0.1", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPublicAddr(netip.MustParseAddr(tt.addr)), tt.addr)
	}
}

func TestPublicOnly_RefusesLoopback(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(Options{PublicOnly: true, RetryMax: 2})
	_, err := Get(context.Background(), c, srv.URL, nil)
	require.ErrorIs(t, err, ErrBlockedAddress)
	assert.Zero(t, calls.Load())
}
