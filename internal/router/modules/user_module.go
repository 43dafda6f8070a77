package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/socialapp/user-service/internal/container"
	handlers "github.com/socialapp/user-service/internal/interface/http"
	"github.com/socialapp/user-service/internal/interface/middleware"
)

// UserModule wires the whole account surface under /api/users.
// Public: list, check, register, verify-otp, resendotp, login, logout.
// Protected: profile edit, password verify, email change, forgot-password
// lanes, search, avatar upload.
type UserModule struct {
	Users    *handlers.UserHandler
	Profile  *handlers.ProfileHandler
	Email    *handlers.EmailHandler
	Password *handlers.PasswordHandler
}

func NewUserModule(u *handlers.UserHandler, p *handlers.ProfileHandler, e *handlers.EmailHandler, pw *handlers.PasswordHandler) *UserModule {
	return &UserModule{Users: u, Profile: p, Email: e, Password: pw}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")

	// Every route needs the session cookie: the OTP lanes key their state by it.
	users.Use(middleware.Session(container.GetCookies(), container.GetConfig().SessionTTL))

	// Public endpoints with IP-based rate limits on the OTP-sending paths.
	registerLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	otpLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())

	users.GET("/", m.Users.List)
	users.GET("/check", m.Users.Check)
	users.POST("/register", registerLimiter, m.Users.Register)
	users.POST("/verify-otp", otpLimiter, m.Users.VerifyOTP)
	users.POST("/resendotp", otpLimiter, m.Users.ResendOTP)
	users.POST("/login", loginLimiter, m.Users.Login)
	users.POST("/logout", m.Users.Logout)

	// Protected
	auth := users.Group("/")
	auth.Use(middleware.Auth(container.GetTokens()))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.PATCH("/update-profile", m.Profile.UpdateProfile)
		auth.POST("/verify-password", m.Profile.VerifyPassword)
		auth.POST("/update-avatar", m.Profile.UploadAvatar)
		auth.GET("/search", m.Profile.Search)

		auth.POST("/request-email-update-otp", m.Email.RequestUpdateOTP)
		auth.PATCH("/confirm-email-update", m.Email.ConfirmUpdate)

		// The forgot-password lane sits behind the gate as well.
		auth.POST("/request-forgot-password-otp", m.Password.RequestOTP)
		auth.POST("/match-password-otp", m.Password.MatchOTP)
		auth.PATCH("/reset-forgot-password", m.Password.Reset)
	}
}
