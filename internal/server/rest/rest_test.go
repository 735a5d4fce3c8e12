package rest

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/taskflow/internal/common"
	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
	"github.com/dmitrijs2005/taskflow/internal/server/auth"
	"github.com/dmitrijs2005/taskflow/internal/server/config"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/dmitrijs2005/taskflow/internal/server/queue"
	"github.com/dmitrijs2005/taskflow/internal/server/ratelimit"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/memory"
	"github.com/dmitrijs2005/taskflow/internal/server/services"
	"github.com/dmitrijs2005/taskflow/internal/server/validation"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

type testEnv struct {
	srv   *httptest.Server
	rm    *memory.RepositoryManager
	users *services.UserService
}

// newTestEnv wires the real services over the in-memory repositories. The
// sqlite handle only backs transactions and readiness pings.
func newTestEnv(t *testing.T, mutate func(o *Options)) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = bcrypt.MinCost

	rm := memory.NewRepositoryManager()
	l := logging.Nop{}
	h := auth.NewHasher(cfg.BcryptCost)
	otp := services.NewOTPService(db, rm, queue.NewLogPublisher(l), h, cfg, l)
	users := services.NewUserService(db, rm, h, otp, cfg, l)

	o := Options{
		Users:       users,
		OTP:         otp,
		OAuth:       services.NewOAuthService(db, rm, cfg, l),
		Tasks:       services.NewTaskService(db, rm, l),
		Attachments: services.NewAttachmentService(db, rm, nil, l),
		Health:      services.NewHealthService(db),
	}
	if mutate != nil {
		mutate(&o)
	}

	srv := httptest.NewServer(NewHandlers(o, l).Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, rm: rm, users: users}
}

type response struct {
	Status  int
	Body    map[string]any
	Cookies []*http.Cookie
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{Status: resp.StatusCode, Cookies: resp.Cookies()}
	_ = json.NewDecoder(resp.Body).Decode(&out.Body)
	return out
}

func data(t *testing.T, r response) map[string]any {
	t.Helper()
	d, ok := r.Body["data"].(map[string]any)
	require.True(t, ok, "no data object in %v", r.Body)
	return d
}

// signupVerified signs a user up, confirms the emailed code and logs in.
func (e *testEnv) signupVerified(t *testing.T, email string) string {
	t.Helper()

	r := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "user", "email": email, "password": "password123",
	})
	require.Equal(t, http.StatusCreated, r.Status, r.Body)
	userID := data(t, r)["id"].(string)

	codes := e.rm.OTPCodesFor(userID)
	require.Len(t, codes, 1)

	r = e.do(t, http.MethodPost, "/verify/confirm", "", map[string]string{
		"email": email, "otp": codes[0].Code, "type": string(models.OTPEmailVerification),
	})
	require.Equal(t, http.StatusOK, r.Status, r.Body)

	r = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	return r.Body["token"].(string)
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t, nil)

	r := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice", "email": "Alice@Example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, r.Status, r.Body)
	user := data(t, r)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotContains(t, user, "passwordHash")
	userID := user["id"].(string)

	r = e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, r.Status)
	assert.Equal(t, false, r.Body["success"])

	r = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, r.Status)

	code := e.rm.OTPCodesFor(userID)[0].Code
	confirm := map[string]string{"email": "alice@example.com", "otp": code, "type": "email_verification"}
	r = e.do(t, http.MethodPost, "/verify/confirm", "", confirm)
	require.Equal(t, http.StatusOK, r.Status, r.Body)

	r = e.do(t, http.MethodPost, "/verify/confirm", "", confirm)
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	r = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	token, _ := r.Body["token"].(string)
	require.NotEmpty(t, token)

	var cookie *http.Cookie
	for _, c := range r.Cookies {
		if c.Name == common.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, token, cookie.Value)

	r = e.do(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	assert.Equal(t, "alice@example.com", data(t, r)["email"])

	// cookie instead of header
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/api/users/me", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: token})
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	r = e.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, false, r.Body["success"])

	r = e.do(t, http.MethodGet, "/api/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	r = e.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, r.Status)
}

func TestSignupValidation(t *testing.T) {
	e := newTestEnv(t, nil)

	r := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"username": "a", "email": "nope", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, r.Status)
	details, ok := r.Body["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")

	r = e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, r.Status)
}

func TestSendOTP(t *testing.T) {
	e := newTestEnv(t, nil)

	r := e.do(t, http.MethodPost, "/verify/send", "", map[string]string{"email": "ghost@example.com", "type": "email_verification"})
	assert.Equal(t, http.StatusNotFound, r.Status)

	r = e.do(t, http.MethodPost, "/verify/send", "", map[string]string{"email": "ghost@example.com", "type": "bogus"})
	assert.Equal(t, http.StatusBadRequest, r.Status)

	e.signupVerified(t, "bob@example.com")
	r = e.do(t, http.MethodPost, "/verify/send", "", map[string]string{"email": "bob@example.com", "type": "reset_password"})
	assert.Equal(t, http.StatusOK, r.Status, r.Body)
}

func TestTasksEndToEnd(t *testing.T) {
	e := newTestEnv(t, nil)
	alice := e.signupVerified(t, "alice@example.com")
	bob := e.signupVerified(t, "bob@example.com")

	r := e.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = e.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{
		"title": "T", "startTime": "2024-01-01T01:00:00Z", "endTime": "2024-01-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = e.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{
		"title": "T", "startTime": "2024-01-01T00:00:00Z", "endTime": "2024-01-01T01:00:00Z",
	})
	require.Equal(t, http.StatusCreated, r.Status, r.Body)
	taskID := data(t, r)["id"].(string)
	assert.Equal(t, "pending", data(t, r)["status"])

	r = e.do(t, http.MethodGet, "/api/tasks/"+taskID, alice, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, "T", data(t, r)["title"])

	r = e.do(t, http.MethodGet, "/api/tasks", alice, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Len(t, r.Body["data"], 1)

	r = e.do(t, http.MethodGet, "/api/tasks?limit=abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, r.Status)

	update := map[string]string{"status": "completed"}
	r = e.do(t, http.MethodPut, "/api/tasks/"+taskID, bob, update)
	assert.Equal(t, http.StatusForbidden, r.Status)
	r = e.do(t, http.MethodDelete, "/api/tasks/"+taskID, bob, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)
	r = e.do(t, http.MethodGet, "/api/tasks/"+taskID, bob, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)

	r = e.do(t, http.MethodPut, "/api/tasks/"+taskID, alice, update)
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	assert.Equal(t, "completed", data(t, r)["status"])

	r = e.do(t, http.MethodGet, "/api/reports/tasks", alice, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Len(t, r.Body["data"], len(models.TaskStatuses))

	r = e.do(t, http.MethodPost, "/api/tasks/"+taskID+"/attachments", alice, map[string]string{"fileName": "a.txt"})
	assert.Equal(t, http.StatusServiceUnavailable, r.Status)

	r = e.do(t, http.MethodDelete, "/api/tasks/"+taskID, alice, nil)
	require.Equal(t, http.StatusOK, r.Status)
	r = e.do(t, http.MethodGet, "/api/tasks/"+taskID, alice, nil)
	assert.Equal(t, http.StatusNotFound, r.Status)
	r = e.do(t, http.MethodDelete, "/api/tasks/"+taskID, bob, nil)
	assert.Equal(t, http.StatusNotFound, r.Status)
}

func TestAdminListUsers(t *testing.T) {
	e := newTestEnv(t, nil)
	user := e.signupVerified(t, "alice@example.com")

	r := e.do(t, http.MethodGet, "/api/users", user, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)

	_, err := e.users.CreateAdmin(context.Background(), validation.SignupCommand{
		Username: "root", Email: "root@example.com", Password: "password123",
	})
	require.NoError(t, err)
	r = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "root@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, r.Status)

	r = e.do(t, http.MethodGet, "/api/users", r.Body["token"].(string), nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Len(t, r.Body["data"], 2)
}

func TestGoogleRoutes(t *testing.T) {
	e := newTestEnv(t, nil)
	token := e.signupVerified(t, "alice@example.com")

	r := e.do(t, http.MethodGet, "/auth/google/url", "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	r = e.do(t, http.MethodGet, "/auth/google/url", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, r.Status)

	r = e.do(t, http.MethodGet, "/auth/google/status", token, nil)
	assert.Equal(t, http.StatusNotFound, r.Status)

	r = e.do(t, http.MethodGet, "/auth/google/callback?state=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = e.do(t, http.MethodPost, "/auth/google/callback", "", map[string]string{"code": "abc"})
	assert.Equal(t, http.StatusBadRequest, r.Status)
}

func TestUnknownRoutes(t *testing.T) {
	e := newTestEnv(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"unknown path", http.MethodGet, "/nope", http.StatusNotFound},
		{"public path wrong method", http.MethodGet, "/api/auth/login", http.StatusNotFound},
		{"unknown api path", http.MethodGet, "/api/unknown", http.StatusNotFound},
		{"protected path without token", http.MethodGet, "/api/tasks", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.do(t, tt.method, tt.path, "", nil)
			assert.Equal(t, tt.want, r.Status)
		})
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, nil)

	r := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, "ok", r.Body["status"])

	r = e.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, r.Status)
}

func TestLoginRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := newTestEnv(t, func(o *Options) {
		o.Limiter = ratelimit.NewRedisLimiter(rdb, time.Minute)
		o.LoginLimit = 2
	})

	body := map[string]string{"email": "ghost@example.com", "password": "password123"}
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPost, "/api/auth/login", "", body).Status)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPost, "/api/auth/login", "", body).Status)
	assert.Equal(t, http.StatusTooManyRequests, e.do(t, http.MethodPost, "/api/auth/login", "", body).Status)

	// limiter outage fails open
	mr.Close()
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPost, "/api/auth/login", "", body).Status)
}

func TestWriteError_SanitizesInProduction(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	for _, production := range []bool{false, true} {
		h := NewHandlers(Options{Production: production}, logging.Nop{})
		rec := httptest.NewRecorder()
		h.writeError(rec, req, apperr.Internal("pool exhausted", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		if production {
			assert.Equal(t, "internal server error", body["message"])
		} else {
			assert.Equal(t, "pool exhausted", body["message"])
		}
	}

	h := NewHandlers(Options{Production: true}, logging.Nop{})
	rec := httptest.NewRecorder()
	h.writeError(rec, req, apperr.NotFound("task not found"))
	assert.Contains(t, rec.Body.String(), "task not found")
}

func TestRecover(t *testing.T) {
	h := NewHandlers(Options{}, logging.Nop{})
	panicky := h.Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

	rec := httptest.NewRecorder()
	panicky.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", RealIP(r))

	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", RealIP(r))
}
