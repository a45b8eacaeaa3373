package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/api"
	"github.com/charlesng35/web3drender/internal/app"
	iauth "github.com/charlesng35/web3drender/internal/auth"
	sharedtestutil "github.com/charlesng35/web3drender/internal/database/testutil"
	"github.com/charlesng35/web3drender/internal/middleware"
	"github.com/charlesng35/web3drender/internal/uploads"
	"github.com/charlesng35/web3drender/pkg/response"
)

// DefaultPassword satisfies the registration password rules.
const DefaultPassword = "Secret123"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T       *testing.T
	DB      *gorm.DB
	Router  *gin.Engine
	JWT     *iauth.JWTService
	Config  *app.Config
	Storage *uploads.Storage
}

// EnvOption adjusts the configuration before the router is built.
type EnvOption func(*app.Config)

// WithAuthLimit sets the auth limiter budget.
func WithAuthLimit(limit int) EnvOption {
	return func(cfg *app.Config) {
		cfg.RateLimit.Auth.Limit = limit
	}
}

// WithBodyLimit caps JSON request bodies.
func WithBodyLimit(limit int64) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.BodyLimit = limit
	}
}

// WithMaxUploadSize caps stored upload files.
func WithMaxUploadSize(limit int64) EnvOption {
	return func(cfg *app.Config) {
		cfg.Uploads.MaxFileSize = limit
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Server: app.ServerConfig{BodyLimit: 50 << 20},
		Uploads: app.UploadsConfig{
			Dir:         t.TempDir(),
			MaxFileSize: 1 << 20,
		},
		RateLimit: app.RateLimitConfig{
			API:  app.LimitConfig{Limit: 10000, Window: time.Minute},
			Auth: app.LimitConfig{Limit: 1000, Window: time.Minute},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			PasswordCost: bcrypt.MinCost,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	storage, err := uploads.NewStorage(cfg.Uploads.Dir, cfg.Uploads.MaxSize())
	require.NoError(t, err)

	router, err := api.NewRouter(db, jwtSvc, cfg, storage, middleware.NewMemoryRateStore())
	require.NoError(t, err)

	return &Env{
		T:       t,
		DB:      db,
		Router:  router,
		JWT:     jwtSvc,
		Config:  cfg,
		Storage: storage,
	}
}

// UserPayload captures the user fields returned from auth endpoints.
type UserPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResult bundles the JSON response from register and login.
type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresIn int         `json:"expires_in"`
	User      UserPayload `json:"user"`
}

// Register creates an account through the API and returns the issued token.
func (e *Env) Register(name, email string) AuthResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": DefaultPassword,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var result AuthResult
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &result)
	require.NotEmpty(e.T, result.Token)
	return result
}

// Login authenticates and returns the issued token.
func (e *Env) Login(email, password string) AuthResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	var result AuthResult
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &result)
	require.NotEmpty(e.T, result.Token)
	require.Greater(e.T, result.ExpiresIn, 0)
	return result
}

// CreateProject creates a project through the API and returns its id.
func (e *Env) CreateProject(token, name string) string {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/projects", map[string]string{"name": name}, token)
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var project struct {
		ID string `json:"id"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &project)
	require.NotEmpty(e.T, project.ID)
	return project.ID
}

// Upload posts a multipart model upload. A nil content omits the file part.
func (e *Env) Upload(token, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(e.T, writer.WriteField(key, value))
	}
	if content != nil {
		part, err := writer.CreateFormFile("model", filename)
		require.NoError(e.T, err)
		_, err = io.Copy(part, bytes.NewReader(content))
		require.NoError(e.T, err)
	}
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(http.MethodPost, "/api/models/upload", &buf)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// UploadModel uploads a small OBJ into projectID and returns the model id.
func (e *Env) UploadModel(token, projectID string, fields map[string]string) string {
	e.T.Helper()

	if fields == nil {
		fields = map[string]string{}
	}
	fields["project_id"] = projectID

	w := e.Upload(token, "cube.obj", []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), fields)
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var model struct {
		ID string `json:"id"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &model)
	require.NotEmpty(e.T, model.ID)
	return model.ID
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
