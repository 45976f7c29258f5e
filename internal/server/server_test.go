package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/launchkit-dev/launchkit/internal/auth"
	"github.com/launchkit-dev/launchkit/internal/config"
	"github.com/launchkit-dev/launchkit/internal/database"
	"github.com/launchkit-dev/launchkit/internal/metrics"
	"github.com/launchkit-dev/launchkit/internal/models"
	"github.com/launchkit-dev/launchkit/internal/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	removed []string
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) Bucket() string { return "uploads" }

func (f *fakeStore) Put(ctx context.Context, obj storage.Object) error {
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[obj.Key] = data
	f.types[obj.Key] = obj.ContentType
	return nil
}

func (f *fakeStore) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (*url.URL, error) {
	return url.Parse("http://minio.test/uploads/" + key)
}

func (f *fakeStore) Remove(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, bucket+"/"+key)
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type testEnv struct {
	server  *Server
	db      *gorm.DB
	auth    *auth.Auth
	store   *fakeStore
	queue   *fakeQueue
	metrics *metrics.Collector
	cfg     *config.Config
}

type envOption func(*config.Config, *Dependencies)

func withRateLimit(perMinute int) envOption {
	return func(cfg *config.Config, _ *Dependencies) {
		cfg.Server.AuthRateLimit = perMinute
	}
}

func withoutQueue() envOption {
	return func(_ *config.Config, deps *Dependencies) {
		deps.Queue = nil
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, err := database.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, models.AutoMigrate(db))

	authService, err := auth.New(db, auth.Options{
		Secret:           "test-secret",
		EmailAndPassword: true,
		UpdateAge:        24 * time.Hour,
		PasswordCost:     bcrypt.MinCost,
	})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Database.URL = ":memory:"
	cfg.Server.FormSecret = "test-form-secret"
	cfg.Server.AuthRateLimit = 0
	cfg.Storage.MaxUploadBytes = 1024

	reg := prometheus.NewRegistry()
	env := &testEnv{
		db:      db,
		auth:    authService,
		store:   newFakeStore(),
		queue:   &fakeQueue{},
		metrics: metrics.NewCollector(reg),
		cfg:     cfg,
	}

	deps := Dependencies{
		DB:       db,
		Auth:     authService,
		Store:    env.store,
		Queue:    env.queue,
		Metrics:  env.metrics,
		Gatherer: reg,
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	env.server, err = New(cfg, zerolog.Nop(), "test", deps)
	require.NoError(t, err)
	return env
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(path string, body any, headers ...string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return e.do(req)
}

// signUp creates a user through the API and returns its session token
func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	rec := e.postJSON("/api/auth/sign-up/email", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func bearer(token string) string {
	return "Bearer " + token
}

func sessionCookie(token string) *http.Cookie {
	return &http.Cookie{Name: SessionCookieName, Value: token}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(config.Default(), zerolog.Nop(), "test", Dependencies{})
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "online", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "ok", resp.Checks["database"])
	assert.Equal(t, "ok", resp.Checks["storage"])
}

func TestHealthCheck_StorageDown(t *testing.T) {
	env := newTestEnv(t)
	env.store.pingErr = errors.New("connection refused")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.Checks["storage"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "launchkit_http_requests_total")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, withRateLimit(2))

	body := map[string]string{"email": "nobody@example.com", "password": "whatever-password"}
	assert.Equal(t, http.StatusUnauthorized, env.postJSON("/api/auth/sign-in/email", body).Code)
	assert.Equal(t, http.StatusUnauthorized, env.postJSON("/api/auth/sign-in/email", body).Code)

	rec := env.postJSON("/api/auth/sign-in/email", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other routes are not limited
	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/api/auth/get-session", nil)).Code)
}

func TestIPRateLimiter_SweepsIdleClients(t *testing.T) {
	rl := newIPRateLimiter(1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"))
	assert.Equal(t, 2, rl.size())

	now = now.Add(limiterIdleTTL + time.Minute)
	assert.True(t, rl.allow("10.0.0.3"))
	assert.Equal(t, 1, rl.size())
}

func TestNewIPRateLimiter_Disabled(t *testing.T) {
	assert.Nil(t, newIPRateLimiter(0))
}

func TestRequestToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUp(t, "ada@example.com")

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/get-session", nil)
		req.Header.Set("Authorization", bearer(token))
		rec := env.do(req)
		assert.Contains(t, rec.Body.String(), "ada@example.com")
	})

	t.Run("cookie", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/auth/get-session", nil), sessionCookie(token))
		assert.Contains(t, rec.Body.String(), "ada@example.com")
	})

	t.Run("malformed header is ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/get-session", nil)
		req.Header.Set("Authorization", "Token "+token)
		rec := env.do(req)
		assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
	})
}
