package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieNames used by the service. The auth token cookie is distinct from the
// session-id cookie that keys OTP flow state.
const (
	TokenCookie   = "token"
	SessionCookie = "sid"
)

type Manager struct {
	Domain string
	Secure bool
}

func NewCookie(domain string, secure bool) *Manager {
	return &Manager{Domain: domain, Secure: secure}
}

// SetToken stores the bearer token as an HTTP-only cookie expiring with the token.
func (m *Manager) SetToken(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, token, maxAgeFrom(exp), "/", m.Domain, m.Secure, true)
}

// ClearToken removes the token cookie on logout.
func (m *Manager) ClearToken(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, "", -1, "/", m.Domain, m.Secure, true)
}

// SetSessionID stores the session identifier that keys server-side OTP flow state.
func (m *Manager) SetSessionID(c *gin.Context, sid string, exp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sid, maxAgeFrom(exp), "/", m.Domain, m.Secure, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
