package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/socialapp/user-service/internal/application"
	"github.com/socialapp/user-service/pkg/response"
	"github.com/socialapp/user-service/pkg/validation"
)

// PasswordHandler covers the forgot/reset-password lane. It never touches the
// token cookie: the reset response carries the fresh token in the body only.
type PasswordHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewPasswordHandler(svc *userapp.Service, logger *logrus.Logger) *PasswordHandler {
	return &PasswordHandler{Svc: svc, Logger: logger}
}

type resetPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConformPassword string `json:"conformPassword" binding:"required"`
}

// RequestOTP handles POST /request-forgot-password-otp. The send is awaited.
func (h *PasswordHandler) RequestOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.RequestReset(c.Request.Context(), sessionID(c), req.Email); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.JSON[any](c, http.StatusOK, nil, "otp sent to your email")
}

// MatchOTP handles POST /match-password-otp: a correct code only flips the
// lane's validated flag, the password change happens in a separate request.
func (h *PasswordHandler) MatchOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ConfirmResetOTP(c.Request.Context(), sessionID(c), req.OTP); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"otp_validated": true}, "otp verified")
}

// Reset handles PATCH /reset-forgot-password. The fresh token is returned in
// the body only; the client signs in with it explicitly.
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, token, _, err := h.Svc.ResetPassword(c.Request.Context(), sessionID(c), req.Password, req.ConformPassword)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"user": u, "token": token}, "password reset")
}
