package aihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/echo", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Key"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer server.Close()

	c := New("test", server.URL, time.Second, map[string]string{"X-Key": "secret"})
	var out map[string]string
	err := c.PostJSON(context.Background(), "/v1/echo", map[string]string{"msg": "hi"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "hi", out["echo"])
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer server.Close()

	c := New("test", server.URL, time.Second, nil)
	err := c.Get(context.Background(), "/models", nil)

	require.Error(t, err)
	apiErr, ok := IsRateLimited(err)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "slow down")
}

func TestClient_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := New("test", server.URL, time.Second, nil)
	var out map[string]any
	err := c.Get(context.Background(), "/", &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_ConnectionError(t *testing.T) {
	c := New("test", "http://127.0.0.1:1", time.Second, nil)

	err := c.Get(context.Background(), "/", nil)

	require.Error(t, err)
	_, limited := IsRateLimited(err)
	assert.False(t, limited)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("garbage"))
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
}

func TestToFloat32(t *testing.T) {
	assert.Equal(t, []float32{0.5, -1}, ToFloat32([]float64{0.5, -1}))
}
