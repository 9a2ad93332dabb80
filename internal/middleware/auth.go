package middleware

import (
	"net/http"
	"strings"
	"time"

	"backoffice/internal/service"
	"backoffice/internal/token"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	AccessTokenCookie = "access_token"

	ctxUserID    = "userID"
	ctxUserRole  = "userRole"
	ctxCompanyID = "companyID"
)

func cookieMode() (http.SameSite, bool) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	if gin.Mode() == gin.ReleaseMode {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetTokenCookies stores the access token as an HttpOnly cookie living as long as the token.
func SetTokenCookies(c *gin.Context, accessToken string, ttl time.Duration) {
	sameSite, secure := cookieMode()
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, accessToken, int(ttl.Seconds()), "/", "", secure, true)
}

// ClearTokenCookies removes the access token cookie
func ClearTokenCookies(c *gin.Context) {
	sameSite, secure := cookieMode()
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
}

// RequireRole validates the access token and checks the caller's role is in
// allowedRoles. No roles means any authenticated user.
func RequireRole(tokens *token.Manager, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(AccessTokenCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		if len(allowedRoles) > 0 && !contains(allowedRoles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxUserRole, claims.Role)
		if claims.CompanyID != nil {
			c.Set(ctxCompanyID, *claims.CompanyID)
		}

		c.Next()
	}
}

// CurrentActor rebuilds the caller set by RequireRole.
func CurrentActor(c *gin.Context) service.Actor {
	var actor service.Actor
	if id, ok := c.Get(ctxUserID); ok {
		userID := id.(uuid.UUID)
		actor.UserID = &userID
	}
	actor.Role = c.GetString(ctxUserRole)
	if id, ok := c.Get(ctxCompanyID); ok {
		companyID := id.(uuid.UUID)
		actor.CompanyID = &companyID
	}
	return actor
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
