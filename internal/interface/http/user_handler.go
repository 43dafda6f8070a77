package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/socialapp/user-service/internal/application"
	"github.com/socialapp/user-service/internal/interface/middleware"
	"github.com/socialapp/user-service/pkg/helpers"
	"github.com/socialapp/user-service/pkg/response"
	"github.com/socialapp/user-service/pkg/validation"
)

// UserHandler covers the public account surface: listing, registration,
// OTP verification, login, logout, and the auth-status probe.
type UserHandler struct {
	Svc     *userapp.Service
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger, cookies *helpers.Manager) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

// badRequest lists the sentinels whose message is safe to return with a 400.
var badRequest = []error{
	userapp.ErrMissingFields,
	userapp.ErrEmailEqualsName,
	userapp.ErrPasswordTooShort,
	userapp.ErrPasswordEqualsIdentity,
	userapp.ErrDuplicateEmail,
	userapp.ErrUserNotFound,
	userapp.ErrInvalidCredentials,
	userapp.ErrNoPendingRegistration,
	userapp.ErrIncompleteRegistration,
	userapp.ErrOtpMismatch,
	userapp.ErrOtpRequired,
	userapp.ErrOtpNotValidated,
	userapp.ErrSameEmail,
	userapp.ErrNoPendingEmail,
	userapp.ErrPasswordMismatch,
}

// fail translates a service error into the envelope: known sentinels become a
// 400 carrying their message, anything else is logged and hidden behind a 500.
func fail(c *gin.Context, logger *logrus.Logger, err error) {
	for _, s := range badRequest {
		if errors.Is(err, s) {
			response.Fail(c, http.StatusBadRequest, s.Error(), nil)
			return
		}
	}
	if logger != nil {
		logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	response.Fail(c, http.StatusInternalServerError, "internal server error", nil)
}

func sessionID(c *gin.Context) string {
	return c.GetString(middleware.CtxSessionIDKey)
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Role     string `json:"role" binding:"required"`
}

type otpRequest struct {
	OTP string `json:"otp" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// List handles GET /.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"users": users}, "users")
}

// Register handles POST /register: stash the pending account in the session
// and fire off the OTP email without waiting for it.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	in := userapp.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password, Role: req.Role}
	if err := h.Svc.Register(c.Request.Context(), sessionID(c), in); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.JSON[any](c, http.StatusOK, nil, "otp sent to your email")
}

// VerifyOTP handles POST /verify-otp: the code that turns a pending
// registration into a persisted user plus a signed-in session.
func (h *UserHandler) VerifyOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, token, exp, err := h.Svc.VerifyOTP(c.Request.Context(), sessionID(c), req.OTP)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.SetToken(c, token, exp)
	response.JSON(c, http.StatusOK, gin.H{"user": u, "token": token}, "registration complete")
}

// ResendOTP handles POST /resendotp.
func (h *UserHandler) ResendOTP(c *gin.Context) {
	if err := h.Svc.ResendOTP(c.Request.Context(), sessionID(c)); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.JSON[any](c, http.StatusOK, nil, "otp resent to your email")
}

// Login handles POST /login.
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, token, exp, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.SetToken(c, token, exp)
	response.JSON(c, http.StatusOK, gin.H{"user": u, "token": token}, "login successful")
}

// Logout handles POST /logout.
func (h *UserHandler) Logout(c *gin.Context) {
	h.Cookies.ClearToken(c)
	response.JSON(c, http.StatusOK, gin.H{"logged_out": true}, "logged out")
}

// Check handles GET /check, the non-gating auth-status probe. A missing
// cookie is a plain "not signed in" (400), a bad or expired token is 401,
// and a token for a vanished user is 404; all three carry authenticated:false
// rather than the usual error envelope semantics.
func (h *UserHandler) Check(c *gin.Context) {
	token, err := c.Cookie(helpers.TokenCookie)
	if err != nil || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"authenticated": false, "message": "no token provided"})
		return
	}
	u, err := h.Svc.CheckAuth(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, helpers.ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false, "message": "token expired"})
		case errors.Is(err, helpers.ErrTokenInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false, "message": "invalid token"})
		case errors.Is(err, userapp.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"authenticated": false, "message": "user not found"})
		default:
			fail(c, h.Logger, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": u})
}
