package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/agentspeak/internal/action"
	"github.com/Harshitk-cp/agentspeak/internal/agent"
	"github.com/Harshitk-cp/agentspeak/internal/metrics"
	"github.com/Harshitk-cp/agentspeak/internal/service"
	"github.com/Harshitk-cp/agentspeak/internal/store"
)

const pingProgram = `
name: pinger
plans:
  - name: ping
    trigger: "+!ping(N)"
    body:
      - add: "pinged(N)"
`

type testServer struct {
	*httptest.Server
	key string
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("agentspeak", reg)
	svc := service.NewAgentService(store.NewMemoryAgentStore(), store.MemoryFactory(), action.Builtins(nil), agent.DefaultConfig(), nil)
	svc.SetObserver(collector)

	opts.Gatherer = reg
	opts.Metrics = collector
	app := NewApp(svc, opts, nil)
	srv := httptest.NewServer(app.Router)
	t.Cleanup(func() {
		srv.Close()
		app.Close()
	})
	return &testServer{Server: srv, key: opts.APIKey}
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.key != "" {
		req.Header.Set("Authorization", "Bearer "+s.key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(bytes.TrimSpace(raw)) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *testServer) create(t *testing.T) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/v1/agents?name=p1", "application/yaml", pingProgram)
	require.Equal(t, http.StatusCreated, status, body)
	return body["id"].(string)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})
	status, body := srv.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	build := body["build"].(map[string]any)
	assert.Equal(t, "dev", build["version"])
}

func TestHealth_Unavailable(t *testing.T) {
	srv := newTestServer(t, Options{Health: func(context.Context) error { return errors.New("redis down") }})
	status, body := srv.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "redis down", body["error"])
}

func TestAgentLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := srv.create(t)

	status, _ := srv.do(t, http.MethodPost, "/v1/agents/"+id+"/goals", "application/json", `{"goal": "ping(1)"}`)
	require.Equal(t, http.StatusAccepted, status)

	status, body := srv.do(t, http.MethodPost, "/v1/agents/"+id+"/step", "application/json", `{"steps": 10}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"+!ping(1)"}, body["completed"])
	assert.Empty(t, body["failures"])

	status, body = srv.do(t, http.MethodGet, "/v1/agents/"+id, "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "p1", body["name"])
	state := body["state"].(map[string]any)
	beliefs := state["beliefs"].([]any)
	require.Len(t, beliefs, 1)
	assert.Equal(t, "pinged(1)", beliefs[0].(map[string]any)["literal"])

	status, body = srv.do(t, http.MethodGet, "/v1/agents", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["agents"], 1)

	status, _ = srv.do(t, http.MethodDelete, "/v1/agents/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = srv.do(t, http.MethodGet, "/v1/agents/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreate_JSONEnvelope(t *testing.T) {
	srv := newTestServer(t, Options{})
	payload, err := json.Marshal(map[string]any{"name": "j1", "program": pingProgram, "metadata": map[string]any{"k": "v"}})
	require.NoError(t, err)

	status, body := srv.do(t, http.MethodPost, "/v1/agents", "application/json", string(payload))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "j1", body["name"])

	status, _ = srv.do(t, http.MethodPost, "/v1/agents", "application/json", string(payload))
	assert.Equal(t, http.StatusConflict, status)
}

func TestCreate_Errors(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, _ := srv.do(t, http.MethodPost, "/v1/agents", "application/yaml", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = srv.do(t, http.MethodPost, "/v1/agents", "application/yaml", "plans: [{trigger: '+!g(('}]")
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = srv.do(t, http.MethodPost, "/v1/agents", "application/json", "{")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPercepts(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := srv.create(t)

	status, _ := srv.do(t, http.MethodPost, "/v1/agents/"+id+"/percepts", "application/json", `{"literal": "light(on)"}`)
	require.Equal(t, http.StatusAccepted, status)

	status, _ = srv.do(t, http.MethodPost, "/v1/agents/"+id+"/percepts", "application/json", `{"literal": "light(X)"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := srv.do(t, http.MethodDelete, "/v1/agents/"+id+"/percepts", "application/json", `{"literal": "light(_)"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["removed"])
}

func TestDropGoal(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := srv.create(t)

	status, _ := srv.do(t, http.MethodPost, "/v1/agents/"+id+"/goals", "application/json", `{"goal": "ping(2)"}`)
	require.Equal(t, http.StatusAccepted, status)
	status, _ = srv.do(t, http.MethodPost, "/v1/agents/"+id+"/step", "", "")
	require.Equal(t, http.StatusOK, status)

	status, body := srv.do(t, http.MethodDelete, "/v1/agents/"+id+"/goals", "application/json", `{"goal": "ping(_)"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, []any{0.0, 1.0}, body["cancelled"])
}

func TestStep_Validation(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := srv.create(t)

	status, _ := srv.do(t, http.MethodPost, "/v1/agents/"+id+"/step", "application/json", `{"steps": 0}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = srv.do(t, http.MethodPost, "/v1/agents/not-a-uuid/step", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = srv.do(t, http.MethodPost, "/v1/agents/00000000-0000-0000-0000-000000000001/step", "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, Options{APIKey: "k"})
	srv.create(t)

	resp, err := http.Get(srv.URL + "/v1/agents")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{})
	srv.create(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(raw)
	assert.Contains(t, text, "agentspeak_agents 1")
	assert.Contains(t, text, `agentspeak_http_requests_total{method="POST",route="/v1/agents`)
	assert.Contains(t, text, `status="201"} 1`)
}
