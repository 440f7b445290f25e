package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadi/materializer/internal/events"
	"github.com/wadi/materializer/internal/materializer"
	"github.com/wadi/materializer/internal/metrics"
	"github.com/wadi/materializer/internal/policy"
	"github.com/wadi/materializer/internal/tools"
	"github.com/wadi/materializer/internal/types"
)

// newTestServer wires a server around an in-memory pipeline with no
// persistence. SAFE mode keeps every request side-effect free.
func newTestServer(t *testing.T, jwtSecret string) *Server {
	t.Helper()

	bus := events.NewBus()
	registry := tools.NewRegistry()
	pol := policy.Resolve("SAFE", t.TempDir(), false)
	svc := materializer.New(nil, bus, registry, pol)

	srv, err := New(Config{Addr: ":0", JWTSecret: jwtSecret}, svc, nil, metrics.NewService(nil, bus))
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.Stop)
	return srv
}

func doRequest(srv *Server, method, path, token string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	rec := doRequest(srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestMaterializeEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	body := `{"structure": {"name": "Demo", "files": [{"path": "a.ts", "content": "export {};"}]}}`
	rec := doRequest(srv, http.MethodPost, "/api/projects/demo/materialize", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.BlueprintResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, []string{"a.ts"}, result.Blueprint)
	assert.NotEmpty(t, result.CorrelationID)
}

func TestMaterializeEndpointBadBody(t *testing.T) {
	srv := newTestServer(t, "")

	rec := doRequest(srv, http.MethodPost, "/api/projects/demo/materialize", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequiredWhenSecretConfigured(t *testing.T) {
	srv := newTestServer(t, testSecret)

	rec := doRequest(srv, http.MethodPost, "/api/projects/demo/materialize", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "health stays open")

	token, err := srv.jwtService.GenerateToken("tester")
	require.NoError(t, err)
	body := `{"structure": {"name": "Demo"}}`
	rec = doRequest(srv, http.MethodPost, "/api/projects/demo/materialize", token, body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	srv := newTestServer(t, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/x", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRunEndpointsWithoutDatabase(t *testing.T) {
	srv := newTestServer(t, "")

	rec := doRequest(srv, http.MethodGet, "/api/runs/3f6f64b4-3c70-4d48-9f6b-6c1e4a9c0c11", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/projects/demo/runs", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	rec := doRequest(srv, http.MethodGet, "/api/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MetricsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.DeployFailureRate)
}

func TestNewRequiresService(t *testing.T) {
	_, err := New(Config{}, nil, nil, nil)
	assert.Error(t, err)
}
