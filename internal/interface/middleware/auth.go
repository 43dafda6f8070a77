package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/socialapp/user-service/pkg/helpers"
	"github.com/socialapp/user-service/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxUserEmailKey = "userEmail"
	CtxTokenKey     = "authToken"
)

// tokenFromRequest reads the bearer token from the auth cookie, falling back
// to the Authorization header for non-browser clients.
func tokenFromRequest(c *gin.Context) string {
	if t, err := c.Cookie(helpers.TokenCookie); err == nil && t != "" {
		return t
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Auth validates the bearer token and injects userID and userEmail into the
// Gin context. Expired and malformed tokens both abort with 401, with a
// message telling the two apart.
func Auth(tokens *helpers.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			resp := response.Error[any](c, http.StatusUnauthorized, "missing token", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		claims, err := tokens.Verify(token)
		if err != nil {
			msg := "invalid token"
			if err == helpers.ErrTokenExpired {
				msg = "token expired"
			}
			resp := response.Error[any](c, http.StatusUnauthorized, msg, nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxUserEmailKey, claims.UserEmail)
		c.Set(CtxTokenKey, token)
		c.Next()
	}
}
