package metrics_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretcache/internal/breaker"
	"github.com/systmms/secretcache/internal/metrics"
)

func TestDefaultServerConfig(t *testing.T) {
	t.Parallel()

	cfg := metrics.DefaultServerConfig()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/metrics", cfg.Path)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
}

func TestServerHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics.NewPrometheus(reg).BreakerStateChanged("prod-kv", breaker.StateOpen)

	health := func() map[string]string { return map[string]string{"prod-kv": "open"} }
	srv := httptest.NewServer(metrics.NewServer(metrics.DefaultServerConfig(), reg, health, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `secretcache_circuit_breaker_state{store="prod-kv"} 1`)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Status   string            `json:"status"`
		Breakers map[string]string `json:"breakers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, "open", payload.Breakers["prod-kv"])

	resp, err = http.Post(srv.URL+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServerStartStop(t *testing.T) {
	t.Parallel()

	cfg := metrics.DefaultServerConfig()
	cfg.Port = 0
	s := metrics.NewServer(cfg, prometheus.NewRegistry(), nil, nil)
	assert.Empty(t, s.Addr())

	require.NoError(t, s.Start())
	require.NotEmpty(t, s.Addr())

	_, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%s/health", port))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestServerStopWithoutStart(t *testing.T) {
	t.Parallel()

	s := metrics.NewServer(metrics.DefaultServerConfig(), prometheus.NewRegistry(), nil, nil)
	assert.NoError(t, s.Stop(context.Background()))
}
