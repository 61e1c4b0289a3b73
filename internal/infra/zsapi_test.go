package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"zerostress/internal/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZSClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/Keys", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`[{"id":1,"available":true}]`))
	}))
	defer srv.Close()

	c := NewZSClient(srv.URL+"/", time.Second, nil)
	var out []map[string]any
	require.NoError(t, c.GetJSON(context.Background(), "/api/Keys", &out))
	require.Len(t, out, 1)
	assert.Equal(t, true, out[0]["available"])
}

func TestZSClient_PostJSONEnviaCuerpo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["name"]})
	}))
	defer srv.Close()

	c := NewZSClient(srv.URL, time.Second, nil)
	var out map[string]string
	require.NoError(t, c.PostJSON(context.Background(), "/api/Payments", map[string]string{"name": "x"}, &out))
	assert.Equal(t, "x", out["echo"])
}

func TestZSClient_Errores(t *testing.T) {
	var status atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	c := NewZSClient(srv.URL, time.Second, cb)
	ctx := context.Background()

	status.Store(http.StatusNotFound)
	assert.ErrorIs(t, c.GetJSON(ctx, "/api/Keys/9", nil), apierror.ErrNotFound)

	status.Store(http.StatusBadRequest)
	err := c.PutJSON(ctx, "/api/Keys/9", map[string]any{}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apierror.ErrRemoteUnavailable)
	assert.Contains(t, err.Error(), "nope")
	assert.Equal(t, CBClosed, cb.State())

	status.Store(http.StatusBadGateway)
	assert.ErrorIs(t, c.Ping(ctx), apierror.ErrRemoteUnavailable)
	assert.ErrorIs(t, c.Ping(ctx), apierror.ErrRemoteUnavailable)
	assert.Equal(t, CBOpen, c.Breaker().State())
}

func TestZSClient_ServidorCaido(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewZSClient(url, time.Second, nil)
	assert.ErrorIs(t, c.GetJSON(context.Background(), "/api/Payments", nil), apierror.ErrRemoteUnavailable)
}
