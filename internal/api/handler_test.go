package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlgate/internal/domain"
	"sqlgate/internal/service"
	"sqlgate/internal/testutil"
)

const testSecret = "api-test-secret"

func TestHTTPStatusFromDomainError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound("missing"), http.StatusNotFound},
		{domain.ErrAccessDenied("no"), http.StatusForbidden},
		{domain.ErrValidation("bad"), http.StatusBadRequest},
		{domain.ErrConflict("dup"), http.StatusConflict},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, httpStatusFromDomainError(tc.err))
	}
}

func testToken(t *testing.T, admin bool) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "u-1",
		"name":  "ana",
		"admin": admin,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// newTestRouter wires a router whose role service sits on the given mock;
// the remaining services are backed by empty mocks.
func newTestRouter(roleRepo *testutil.MockRoleRepo) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := &testutil.MockAuditRepo{}
	h := NewHandler(
		service.NewRoleService(roleRepo, audit),
		service.NewPrivilegeService(&testutil.MockPrivilegeRepo{}, roleRepo, audit),
		service.NewMaskingService(&testutil.MockMaskingRepo{}, audit),
		service.NewExceptionService(&testutil.MockExceptionRepo{}),
		service.NewAccessRequestService(&testutil.MockAccessRequestRepo{}, roleRepo, audit),
		service.NewUserService(&testutil.MockUserRepo{}, audit, testSecret, time.Hour),
		nil,
		service.NewAuditService(audit),
		logger,
	)
	return NewRouter(h, RouterConfig{JWTSecret: []byte(testSecret)})
}

func TestRouter_Unauthenticated(t *testing.T) {
	router := newTestRouter(&testutil.MockRoleRepo{})

	req := httptest.NewRequest(http.MethodGet, "/v1/roles", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(&testutil.MockRoleRepo{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRouter_ListRoles(t *testing.T) {
	roleRepo := &testutil.MockRoleRepo{
		ListFn: func(_ context.Context) ([]domain.Role, error) {
			return []domain.Role{{ID: "r-1", Name: "Analyst"}}, nil
		},
	}
	router := newTestRouter(roleRepo)

	req := httptest.NewRequest(http.MethodGet, "/v1/roles", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, false))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Analyst")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_CreateRole_AdminOnly(t *testing.T) {
	router := newTestRouter(&testutil.MockRoleRepo{})

	body := strings.NewReader(`{"name":"Analyst"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/roles", body)
	req.Header.Set("Authorization", "Bearer "+testToken(t, false))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_CreateRole(t *testing.T) {
	roleRepo := &testutil.MockRoleRepo{
		CreateFn: func(_ context.Context, r *domain.Role) (*domain.Role, error) {
			r.ID = "r-1"
			return r, nil
		},
	}
	router := newTestRouter(roleRepo)

	body := strings.NewReader(`{"name":"Analyst","description":"ad hoc"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/roles", body)
	req.Header.Set("Authorization", "Bearer "+testToken(t, true))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "r-1")
}

func TestRouter_BadJSONRejected(t *testing.T) {
	router := newTestRouter(&testutil.MockRoleRepo{})

	req := httptest.NewRequest(http.MethodPost, "/v1/roles", strings.NewReader(`{"name":`))
	req.Header.Set("Authorization", "Bearer "+testToken(t, true))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
