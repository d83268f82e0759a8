package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"production-tracker/internal/audit"
	"production-tracker/internal/auth"
	"production-tracker/internal/config"
	"production-tracker/internal/httpapi"
	"production-tracker/internal/metrics"
	"production-tracker/internal/pipeline"
	"production-tracker/internal/projects"
	"production-tracker/internal/ratelimit"
	"production-tracker/internal/rbac"
	"production-tracker/internal/refreshtokens"
	"production-tracker/internal/users"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	router *gin.Engine
	users  *users.MemoryRepo
	audit  *audit.MemoryRepo
}

type appOptions struct {
	source     config.PermissionSource
	authLimit  int
	generalMax int
}

func newTestApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if opts.authLimit == 0 {
		opts.authLimit = 1000
	}
	if opts.generalMax == 0 {
		opts.generalMax = 1000
	}

	tokens, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "access-secret-0123456789abcdef0123",
		RefreshSecret:   "refresh-secret-0123456789abcdef012",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userRepo := users.NewMemoryRepo()
	auditRepo := audit.NewMemoryRepo()
	auditSvc := audit.NewService(auditRepo)
	perms := rbac.DefaultTable()
	m := metrics.New()

	authSvc := auth.NewService(auth.ServiceDeps{
		Users:   userRepo,
		Store:   refreshtokens.NewMemoryStore(),
		Tokens:  tokens,
		Hasher:  auth.NewHasher(bcrypt.MinCost),
		Perms:   perms,
		Audit:   auditSvc,
		Metrics: m,
	})

	r := gin.New()
	driver := pipeline.NewDriver(pipeline.Options{ExposeErrors: true})
	r.Use(driver.Recovery())
	registerRoutes(r, routeDeps{
		prefix: "/api/v1",
		driver: driver,
		handlers: httpapi.Handlers{
			Auth:     authSvc,
			Projects: projects.NewService(projects.NewMemoryStore(), userRepo),
		},
		health:         httpapi.NewHealth(db, nil),
		verifier:       auth.NewVerifier(tokens, userRepo, perms, opts.source),
		gate:           rbac.NewGate(auditSvc, m),
		metrics:        m,
		generalLimiter: ratelimit.NewMemoryLimiter(opts.generalMax, time.Minute),
		authLimiter:    ratelimit.NewMemoryLimiter(opts.authLimit, time.Minute),
	})
	return &testApp{router: r, users: userRepo, audit: auditRepo}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
	Meta    *pipeline.Meta  `json:"meta"`
}

type sessionData struct {
	User         users.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (a *testApp) register(t *testing.T, email, role string) sessionData {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "password": "correct horse", "firstName": "Test", "lastName": "User", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, "User registered successfully", env.Message)
	var sess sessionData
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	return sess
}

func (a *testApp) setUser(t *testing.T, id string, mutate func(*users.User)) {
	t.Helper()
	u, err := a.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	mutate(&u)
	require.NoError(t, a.users.Update(context.Background(), u))
}

func TestLogoutThenRefreshIsUnauthenticated(t *testing.T) {
	app := newTestApp(t, appOptions{})
	app.register(t, "pm@studio.test", "project_manager")

	w, env := app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "PM@studio.test", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Login successful", env.Message)
	var sess sessionData
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	require.Empty(t, sess.User.PasswordHash)

	w, env = app.do(t, http.MethodPost, "/api/v1/auth/logout", "", gin.H{"refreshToken": sess.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Logged out successfully", env.Message)

	w, env = app.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refreshToken": sess.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.False(t, env.Success)
}

func TestRefreshRotatesSession(t *testing.T) {
	app := newTestApp(t, appOptions{})
	sess := app.register(t, "tm@studio.test", "")

	w, env := app.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refreshToken": sess.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Tokens refreshed successfully", env.Message)
	var next sessionData
	require.NoError(t, json.Unmarshal(env.Data, &next))
	require.NotEqual(t, sess.RefreshToken, next.RefreshToken)
	require.Equal(t, auth.DefaultRole, next.User.Role)

	w, _ = app.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refreshToken": sess.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInactiveUserCannotLogIn(t *testing.T) {
	app := newTestApp(t, appOptions{})
	sess := app.register(t, "gone@studio.test", "team_member")
	app.setUser(t, sess.User.ID, func(u *users.User) { u.Active = false })

	w, env := app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "gone@studio.test", "password": "correct horse"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid credentials", env.Error)

	w, env = app.do(t, http.MethodGet, "/api/v1/auth/profile", sess.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "User not found or inactive", env.Error)
}

func TestDuplicateRegistrationConflicts(t *testing.T) {
	app := newTestApp(t, appOptions{})
	app.register(t, "dup@studio.test", "client")

	w, env := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "dup@studio.test", "password": "correct horse", "firstName": "A", "lastName": "B",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "User already exists with this email", env.Error)
}

func TestProfileAndMe(t *testing.T) {
	app := newTestApp(t, appOptions{})
	sess := app.register(t, "me@studio.test", "client")

	w, _ := app.do(t, http.MethodGet, "/api/v1/auth/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := app.do(t, http.MethodGet, "/api/v1/auth/profile", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(env.Data), "me@studio.test")

	w, env = app.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"anonymous":true}`, string(env.Data))

	w, env = app.do(t, http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"anonymous":true}`, string(env.Data))

	w, env = app.do(t, http.MethodGet, "/api/v1/auth/me", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(env.Data), `"role":"client"`)
}

func createProjectBody(managerID string) gin.H {
	return gin.H{
		"title":            "Launch Film",
		"clientId":         uuid.NewString(),
		"projectManagerId": managerID,
		"stage":            "2",
		"priority":         "high",
		"projectType":      "commercial",
		"deliverables":     []string{"30s spot"},
	}
}

func TestPermissionGateDeniesAndAudits(t *testing.T) {
	app := newTestApp(t, appOptions{})
	client := app.register(t, "client@studio.test", "client")

	w, env := app.do(t, http.MethodPost, "/api/v1/projects", client.AccessToken, createProjectBody(client.User.ID))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Insufficient permissions", env.Error)

	denied := app.audit.OfType(audit.EventTypeAccessDenied)
	require.Len(t, denied, 1)
	require.Equal(t, client.User.ID, denied[0].ActorUserID)
	require.Equal(t, []string{rbac.ProjectCreate}, denied[0].Required)

	w, _ = app.do(t, http.MethodGet, "/api/v1/projects", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleDowngrade(t *testing.T) {
	cases := []struct {
		source config.PermissionSource
		want   int
	}{
		{config.PermissionSourceToken, http.StatusCreated},
		{config.PermissionSourceUser, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(string(tc.source), func(t *testing.T) {
			app := newTestApp(t, appOptions{source: tc.source})
			pm := app.register(t, "pm@studio.test", "project_manager")
			app.setUser(t, pm.User.ID, func(u *users.User) { u.Role = rbac.RoleClient })

			w, _ := app.do(t, http.MethodPost, "/api/v1/projects", pm.AccessToken, createProjectBody(pm.User.ID))
			require.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestProjectLifecycle(t *testing.T) {
	app := newTestApp(t, appOptions{})
	pm := app.register(t, "pm@studio.test", "project_manager")

	w, env := app.do(t, http.MethodPost, "/api/v1/projects", pm.AccessToken, createProjectBody(pm.User.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, "Project created successfully", env.Message)
	var created projects.Project
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Len(t, created.Stages, projects.StageCount)

	w, env = app.do(t, http.MethodGet, "/api/v1/projects?limit=5", pm.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, &pipeline.Meta{Page: 1, Limit: 5, Total: 1, TotalPages: 1}, env.Meta)

	w, env = app.do(t, http.MethodPut, "/api/v1/projects/"+created.ID, pm.AccessToken, gin.H{"stage": "3", "progress": 40})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "Project updated successfully", env.Message)

	w, env = app.do(t, http.MethodPost, "/api/v1/projects/"+created.ID+"/duplicate", pm.AccessToken, gin.H{"title": "Launch Film (copy)"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var dup projects.Project
	require.NoError(t, json.Unmarshal(env.Data, &dup))
	require.Equal(t, "1", dup.Stage)
	require.NotEqual(t, created.ID, dup.ID)

	w, env = app.do(t, http.MethodGet, "/api/v1/projects/"+created.ID+"/activity", pm.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acts []projects.Activity
	require.NoError(t, json.Unmarshal(env.Data, &acts))
	require.NotEmpty(t, acts)

	w, env = app.do(t, http.MethodGet, "/api/v1/projects/not-a-uuid", pm.AccessToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Validation failed", env.Error)

	w, _ = app.do(t, http.MethodDelete, "/api/v1/projects/"+created.ID, pm.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code, "project managers lack project:delete")

	w, env = app.do(t, http.MethodGet, "/api/v1/projects/"+uuid.NewString(), pm.AccessToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Project not found", env.Error)
}

func TestAuthRateLimit(t *testing.T) {
	app := newTestApp(t, appOptions{authLimit: 2})
	body := gin.H{"email": "nobody@studio.test", "password": "whatever"}

	for i := 0; i < 2; i++ {
		w, _ := app.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w, env := app.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, ratelimit.MsgTooManyAuthAttempts, env.Error)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestSuccessfulAuthCallsDoNotUseUpTheAuthLimit(t *testing.T) {
	app := newTestApp(t, appOptions{authLimit: 5})
	sess := app.register(t, "busy@studio.test", "team_member")

	for i := 0; i < 10; i++ {
		w, _ := app.do(t, http.MethodGet, "/api/v1/auth/profile", sess.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code, "profile call %d", i+1)
		w, _ = app.do(t, http.MethodGet, "/api/v1/auth/me", sess.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code, "me call %d", i+1)
	}

	body := gin.H{"email": "busy@studio.test", "password": "wrong password"}
	for i := 0; i < 5; i++ {
		w, _ := app.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w, env := app.do(t, http.MethodGet, "/api/v1/auth/profile", sess.AccessToken, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, ratelimit.MsgTooManyAuthAttempts, env.Error)
}

func TestRegisterRejectsPasswordOverBcryptByteLimit(t *testing.T) {
	app := newTestApp(t, appOptions{})

	w, env := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "accent@studio.test", "password": strings.Repeat("é", 40), "firstName": "A", "lastName": "B",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.Equal(t, "Validation failed", env.Error)
	require.Contains(t, string(env.Details), `"field":"password"`)
}

func TestListProjectsRejectsHugePage(t *testing.T) {
	app := newTestApp(t, appOptions{})
	sess := app.register(t, "pager@studio.test", "team_member")

	w, env := app.do(t, http.MethodGet, "/api/v1/projects?page=9223372036854775807", sess.AccessToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.Contains(t, string(env.Details), `"field":"page"`)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t, appOptions{})
	w, env := app.do(t, http.MethodGet, "/api/v1/nowhere", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Route /api/v1/nowhere not found", env.Error)
}
