package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/web3drender/internal/api"
	"github.com/charlesng35/web3drender/internal/handlers/testutil"
)

func TestNewRouterRequiresDependencies(t *testing.T) {
	env := testutil.NewEnv(t)

	_, err := api.NewRouter(nil, env.JWT, env.Config, env.Storage, nil)
	require.Error(t, err)
	_, err = api.NewRouter(env.DB, nil, env.Config, env.Storage, nil)
	require.Error(t, err)
	_, err = api.NewRouter(env.DB, env.JWT, env.Config, nil, nil)
	require.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "OK", body["status"])
	require.Equal(t, "Web3DRender API is running", body["message"])
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Request(http.MethodGet, "/api/health", nil, "")

	w := env.Request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "web3drender_api_latency_seconds")
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/nope", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	resp := testutil.DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, path := range []string{"/api/projects", "/api/models", "/api/users/profile"} {
		w := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := testutil.NewEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestJSONBodyLimit(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithBodyLimit(64))

	payload := `{"name":"` + strings.Repeat("a", 200) + `","email":"a@example.com","password":"Secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	require.Equal(t, "PAYLOAD_TOO_LARGE", testutil.DecodeResponse(t, w).Error.Code)
}

func TestReadinessEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/health/ready", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
		Checks  []struct {
			Component string `json:"component"`
			Status    string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.True(t, report.Success)
	require.Equal(t, "up", report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "database", report.Checks[0].Component)
	require.Equal(t, "uploads", report.Checks[1].Component)
}

func TestResponsesAreGzippedWhenAccepted(t *testing.T) {
	env := testutil.NewEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Equal(t, "OK", body["status"])

	req = httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
	zr, err = gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err = io.ReadAll(zr)
	require.NoError(t, err)
	require.Contains(t, string(raw), "NOT_FOUND")
}

func TestUploadsAreNotGzipped(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Register("Ada", "ada@example.com")
	w := env.Upload(auth.Token, "cube.obj", []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), map[string]string{
		"project_id": env.CreateProject(auth.Token, "Bridge"),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var model struct {
		FilePath string `json:"file_path"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &model)

	req := httptest.NewRequest(http.MethodGet, "/uploads/"+model.FilePath, nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Content-Encoding"))
	require.Equal(t, "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n", w.Body.String())
}
