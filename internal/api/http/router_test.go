package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

type stubUsers map[int64]*domain.User

func (s stubUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := s[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, writeMax int, redisErr error) *testServer {
	t.Helper()

	authCfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 10}
	authService := service.NewAuthService(authCfg, nil)
	users := stubUsers{
		1: {ID: 1, Role: domain.RoleAdmin, IsActive: true},
		5: {ID: 5, Role: domain.RoleWorker, DepartmentID: nil, IsActive: true},
	}
	reference := service.NewReferenceService(service.ReferenceDependencies{})
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, MiddlewareConfig{Logger: zap.NewNop(), Metrics: metrics})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-service", "test", stubPinger{}, stubPinger{err: redisErr}, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(service.NewTicketService(service.TicketDependencies{})),
		Users:          handlers.NewUsersHandler(service.NewUserService(service.UserDependencies{}), reference),
		Reference:      handlers.NewReferenceHandler(reference),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users),
		WriteLimiter:   WriteLimiter(config.RateLimitConfig{WriteMax: writeMax, WriteWindowSeconds: 60}),
	})
	return &testServer{app: app, tokens: authService.TokenManager()}
}

func (s *testServer) bearer(t *testing.T, id int64, role domain.RoleName) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(&domain.User{ID: id, Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, authHeader, body string) (int, errorEnvelope, *nethttp.Response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if authHeader != "" {
		req.Header.Set(fiber.HeaderAuthorization, authHeader)
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env errorEnvelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env, resp
}

func TestRoutes_ErrorEnvelope(t *testing.T) {
	srv := newTestServer(t, 100, nil)
	admin := srv.bearer(t, 1, domain.RoleAdmin)
	worker := srv.bearer(t, 5, domain.RoleWorker)

	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		body       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"unknown route", nethttp.MethodGet, "/nope", "", "", 404, "NOT_FOUND", "Route not found"},
		{"tickets need a token", nethttp.MethodGet, "/api/tickets", "", "", 401, "UNAUTHORIZED", "Authentication required"},
		{"workers cannot list users", nethttp.MethodGet, "/api/users", worker, "", 403, "FORBIDDEN", "Insufficient permissions"},
		{"workers cannot reach assign", nethttp.MethodPut, "/api/tickets/1/assign", worker, `{"assignedTo":5}`, 403, "FORBIDDEN", "Insufficient permissions"},
		{"workers cannot reload reference data", nethttp.MethodPost, "/api/reference/reload", worker, "", 403, "FORBIDDEN", "Insufficient permissions"},
		{"non numeric ticket id", nethttp.MethodGet, "/api/tickets/abc", admin, "", 400, "VALIDATION_FAILED", "Invalid ticket ID"},
		{"negative ticket id", nethttp.MethodPut, "/api/tickets/-3/status", admin, `{"status":"closed"}`, 400, "VALIDATION_FAILED", "Invalid ticket ID"},
		{"zero user id", nethttp.MethodDelete, "/api/users/0", admin, "", 400, "VALIDATION_FAILED", "Invalid user ID"},
		{"login requires fields", nethttp.MethodPost, "/api/auth/login", "", `{"email":"a@x.com"}`, 400, "VALIDATION_FAILED", "Email and password are required"},
		{"malformed json", nethttp.MethodPost, "/api/auth/login", "", `{"email":`, 400, "VALIDATION_FAILED", "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env, _ := srv.do(t, tt.method, tt.path, tt.auth, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Equal(t, tt.wantMsg, env.Error.Message)
		})
	}
}

func TestRoutes_MeReturnsPrincipal(t *testing.T) {
	srv := newTestServer(t, 100, nil)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/auth/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, srv.bearer(t, 5, domain.RoleWorker))
	resp, err := srv.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Data struct {
			ID   int64  `json:"id"`
			Role string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(5), body.Data.ID)
	assert.Equal(t, "worker", body.Data.Role)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestRoutes_WriteLimiter(t *testing.T) {
	srv := newTestServer(t, 2, nil)

	for i := 0; i < 2; i++ {
		status, _, _ := srv.do(t, nethttp.MethodPost, "/api/auth/login", "", `{}`)
		assert.Equal(t, nethttp.StatusBadRequest, status)
	}

	status, env, _ := srv.do(t, nethttp.MethodPost, "/api/auth/login", "", `{}`)
	assert.Equal(t, nethttp.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)
	assert.Equal(t, "Too many requests. Try again later.", env.Error.Message)

	status, _, _ = srv.do(t, nethttp.MethodGet, "/health/live", "", "")
	assert.Equal(t, nethttp.StatusOK, status)
}

func TestRoutes_Health(t *testing.T) {
	srv := newTestServer(t, 100, nil)
	status, _, _ := srv.do(t, nethttp.MethodGet, "/health/ready", "", "")
	assert.Equal(t, nethttp.StatusOK, status)

	down := newTestServer(t, 100, errors.New("dial tcp: connection refused"))
	status, env, _ := down.do(t, nethttp.MethodGet, "/health/ready", "", "")
	assert.Equal(t, nethttp.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", env.Error.Code)
}
