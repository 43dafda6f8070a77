package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/socialapp/user-service/pkg/helpers"
)

const CtxSessionIDKey = "sessionID"

// Session ensures every request carries a session-id cookie and exposes the
// id in the Gin context. The cookie keys the server-side OTP flow state; its
// lifetime matches the flow-state TTL and slides on every request.
func Session(cookies *helpers.Manager, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(helpers.SessionCookie)
		if err != nil || sid == "" {
			sid = uuid.NewString()
		}
		cookies.SetSessionID(c, sid, time.Now().Add(ttl))
		c.Set(CtxSessionIDKey, sid)
		c.Next()
	}
}
