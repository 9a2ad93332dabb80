package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/service"
	"backoffice/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(tokens *token.Manager, seen *service.Actor, roles ...string) *gin.Engine {
	r := gin.New()
	r.GET("/private", RequireRole(tokens, roles...), func(c *gin.Context) {
		*seen = CurrentActor(c)
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequireRole(t *testing.T) {
	tokens := token.NewManager("test-secret", time.Hour)
	userID, companyID := uuid.New(), uuid.New()
	managerToken, _, err := tokens.Issue(userID, model.RoleManager, &companyID)
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		var seen service.Actor
		r := newRouter(tokens, &seen, model.RoleAdmin, model.RoleManager)

		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+managerToken)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		require.NotNil(t, seen.UserID)
		assert.Equal(t, userID, *seen.UserID)
		assert.Equal(t, model.RoleManager, seen.Role)
		assert.Equal(t, companyID, *seen.CompanyID)
	})

	t.Run("cookie", func(t *testing.T) {
		var seen service.Actor
		r := newRouter(tokens, &seen)

		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: managerToken})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("admin tokens carry no company", func(t *testing.T) {
		adminToken, _, err := tokens.Issue(uuid.New(), model.RoleAdmin, nil)
		require.NoError(t, err)

		var seen service.Actor
		r := newRouter(tokens, &seen)
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.True(t, seen.IsAdmin())
		assert.Nil(t, seen.CompanyID)
	})

	tests := []struct {
		name   string
		header string
		roles  []string
		want   int
	}{
		{"missing", "", nil, http.StatusUnauthorized},
		{"malformed", "Token " + managerToken, nil, http.StatusUnauthorized},
		{"bad signature", "Bearer " + mustIssue(t, token.NewManager("other", time.Hour)), nil, http.StatusUnauthorized},
		{"role not allowed", "Bearer " + managerToken, []string{model.RoleAdmin}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen service.Actor
			r := newRouter(tokens, &seen, tt.roles...)
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"error"`)
		})
	}
}

func TestTokenCookies(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	SetTokenCookies(c, "abc", time.Hour)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "access_token=abc")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "HttpOnly")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	ClearTokenCookies(c)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}

func mustIssue(t *testing.T, m *token.Manager) string {
	t.Helper()
	s, _, err := m.Issue(uuid.New(), model.RoleStaff, nil)
	require.NoError(t, err)
	return s
}
